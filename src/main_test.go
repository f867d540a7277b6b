package main

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jinjor/flux/src/audio"
	"github.com/jinjor/flux/src/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestParseCommand(t *testing.T) {
	command, err := parseCommand("set  t_model markov")
	require.NoError(t, err)
	assert.Equal(t, []string{"set", "t_model", "markov"}, command)

	command, err = parseCommand("set%20x 0.5")
	require.NoError(t, err)
	assert.Equal(t, []string{"set x", "0.5"}, command)

	_, err = parseCommand("set %zz")
	assert.Error(t, err)
}

func TestReceiveCommands(t *testing.T) {
	server, client := net.Pipe()
	commandCh := make(chan []string, 8)
	done := make(chan error, 1)
	go func() {
		done <- receiveCommands(context.Background(), server, commandCh, zap.NewNop())
	}()

	_, err := client.Write([]byte("set spread 0.5\nbad %zz\n\nreset\n"))
	require.NoError(t, err)
	require.NoError(t, client.Close())
	require.NoError(t, <-done)

	close(commandCh)
	var received [][]string
	for command := range commandCh {
		received = append(received, command)
	}
	assert.Equal(t, [][]string{{"set", "spread", "0.5"}, {"reset"}}, received)
}

func TestReceiveCommandsStopsOnCancel(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- receiveCommands(ctx, server, make(chan []string), zap.NewNop())
	}()
	cancel()
	server.Close()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("receiveCommands did not stop")
	}
}

type fixedSnapshot struct{}

func (fixedSnapshot) Snapshot() audio.Snapshot {
	return audio.Snapshot{X: [3]float64{0.5, 0.25, 1}, T: [3]float64{1, 0, 1}}
}

type lineRecorder struct {
	sync.Mutex
	b strings.Builder
}

func (r *lineRecorder) Write(p []byte) (int, error) {
	r.Lock()
	defer r.Unlock()
	return r.b.Write(p)
}

func (r *lineRecorder) lines() []string {
	r.Lock()
	defer r.Unlock()
	return strings.Split(strings.TrimSpace(r.b.String()), "\n")
}

func TestSendReports(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	var w lineRecorder
	require.NoError(t, sendReports(ctx, &w, fixedSnapshot{}, 50, time.Second, zap.NewNop()))

	lines := w.lines()
	require.NotEmpty(t, lines)
	assert.Less(t, len(lines), 20)
	assert.Equal(t, "flux 0.500000 0.250000 1.000000 1 0 1", lines[0])
}

func TestSendReportsGivesUpOnStalledClient(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	// nobody reads from client
	err := sendReports(ctx, server, fixedSnapshot{}, 50, 50*time.Millisecond, zap.NewNop())
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrDeadlineExceeded)
}

func TestRenderCommand(t *testing.T) {
	dir := t.TempDir()
	cmd := newRootCmd()
	cmd.SetArgs([]string{"render", "--seconds", "0.01", "--out", dir, "--seed", "4"})
	require.NoError(t, cmd.Execute())
	for i := 0; i < render.NumStems; i++ {
		_, err := os.Stat(filepath.Join(dir, render.StemFileName(i)))
		assert.NoError(t, err)
	}
}

func TestPlayRejectsInvalidClock(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"play", "--clock", "usb"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `clock must be "internal" or "midi"`)
}
