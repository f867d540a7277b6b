package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jinjor/flux/src/audio"
	"github.com/jinjor/flux/src/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

func newPlayCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play the engine live and take commands over a unix socket",
		Annotations: map[string]string{
			"clock":  "audio.clock",
			"tempo":  "audio.tempo",
			"socket": "ipc.socket_path",
			"seed":   "engine.seed",
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return play(ctx, a)
		},
	}
	cmd.Flags().String("clock", config.ClockInternal, "clock source: internal or midi")
	cmd.Flags().Float64("tempo", 120, "tempo of the internal clock in BPM")
	cmd.Flags().String("socket", "/tmp/flux.sock", "path of the command socket")
	cmd.Flags().Uint64("seed", 1, "random seed")
	return cmd
}

func play(ctx context.Context, a *app) error {
	params, err := a.cfg.Engine.Params()
	if err != nil {
		return err
	}
	au, err := audio.NewAudio(a.cfg.Audio, params, a.cfg.Engine.Seed, a.logger)
	if err != nil {
		return err
	}
	defer au.Close()

	err = withIPCConnection(ctx, a.cfg.IPC.SocketPath, a.logger, func(conn net.Conn) error {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()
		g, ctx := errgroup.WithContext(ctx)
		context.AfterFunc(ctx, func() { conn.Close() })

		g.Go(func() error {
			return au.Start(ctx)
		})
		g.Go(func() error {
			// the session ends when the client hangs up
			defer cancel()
			return receiveCommands(ctx, conn, au.CommandCh, a.logger)
		})
		g.Go(func() error {
			return sendReports(ctx, conn, au, a.cfg.IPC.ReportRate, a.cfg.IPC.Timeout, a.logger)
		})
		if a.cfg.Audio.Clock == config.ClockMIDI {
			midiIn := audio.ListenToMidiIn(ctx, a.logger)
			g.Go(func() error {
				for data := range midiIn {
					au.AddMidiEvent(data)
				}
				return nil
			})
		}
		return g.Wait()
	})
	if err != nil {
		return err
	}
	a.logger.Info("play ended.")
	return nil
}

func withIPCConnection(ctx context.Context, path string, logger *zap.Logger, f func(net.Conn) error) error {
	os.Remove(path)
	listener, err := new(net.ListenConfig).Listen(ctx, "unix", path)
	if err != nil {
		return err
	}
	stop := context.AfterFunc(ctx, func() { listener.Close() })
	defer stop()
	defer func() {
		logger.Debug("Closing IPC...")
		if err := listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			logger.Warn("error while closing listener", zap.Error(err))
		}
		os.Remove(path)
	}()
	logger.Info("start listening...", zap.String("socket", path))
	conn, err := listener.Accept()
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	defer func() {
		if err := conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			logger.Warn("error while closing connection", zap.Error(err))
		}
	}()
	return f(conn)
}

func receiveCommands(ctx context.Context, conn io.Reader, commandCh chan<- []string, logger *zap.Logger) error {
	reader := bufio.NewReader(conn)
	var line []byte
	for {
		next, isPrefix, err := reader.ReadLine()
		if err == io.EOF {
			break
		}
		if err != nil {
			if ctx.Err() != nil {
				logger.Debug("Connection interrupted")
				break
			}
			return err
		}
		line = append(line, next...)
		if isPrefix {
			continue
		}
		command, err := parseCommand(string(line))
		line = line[:0]
		if err != nil {
			logger.Warn("malformed command", zap.Error(err))
			continue
		}
		if len(command) == 0 {
			continue
		}
		select {
		case commandCh <- command:
		case <-ctx.Done():
			return nil
		}
		logger.Debug("received", zap.Strings("command", command))
	}
	logger.Debug("receiveCommands() ended.")
	return nil
}

// parseCommand splits a line on spaces and unescapes every item.
func parseCommand(line string) ([]string, error) {
	items := strings.Fields(line)
	for i, item := range items {
		escaped, err := url.QueryUnescape(item)
		if err != nil {
			return nil, err
		}
		items[i] = escaped
	}
	return items, nil
}

type snapshotter interface {
	Snapshot() audio.Snapshot
}

type writeDeadliner interface {
	SetWriteDeadline(t time.Time) error
}

// sendReports writes a snapshot line at reportRate until ctx is done. When w
// supports deadlines, each write must finish within timeout.
func sendReports(ctx context.Context, w io.Writer, s snapshotter, reportRate float64, timeout time.Duration, logger *zap.Logger) error {
	limiter := rate.NewLimiter(rate.Limit(reportRate), 1)
	deadliner, hasDeadline := w.(writeDeadliner)
	hasDeadline = hasDeadline && timeout > 0
	for {
		if err := limiter.Wait(ctx); err != nil {
			break
		}
		if hasDeadline {
			if err := deadliner.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, s.Snapshot().String()+"\n"); err != nil {
			if ctx.Err() != nil {
				break
			}
			return fmt.Errorf("failed to send report: %w", err)
		}
	}
	logger.Debug("sendReports() ended.")
	return nil
}
