package render

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/wav"
	"github.com/jinjor/flux/src/flux"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const blockSize = 512

// NumStems is the number of X/T pairs the engine produces.
const NumStems = 3

// ----- Streamer ----- //

// Streamer plays one X/T pair of a processor as a stereo beep.Streamer. The
// left channel carries X as octaves scaled by 1/MaxOctaves and the right
// channel carries T. The processor is clocked by a square wave.
type Streamer struct {
	ctx         context.Context
	processor   *flux.Processor
	stem        int
	clockPeriod int
	pos         int
	err         error

	clock []float64
	x     [NumStems][]float64
	t     [NumStems][]float64
}

var _ beep.Streamer = (*Streamer)(nil)

// NewStreamer streams stem (0, 1 or 2) of p. clockPeriod is the clock
// period in samples.
func NewStreamer(ctx context.Context, p *flux.Processor, stem int, clockPeriod int) *Streamer {
	s := &Streamer{
		ctx:         ctx,
		processor:   p,
		stem:        min(max(stem, 0), NumStems-1),
		clockPeriod: max(clockPeriod, 2),
		clock:       make([]float64, blockSize),
	}
	for i := range s.x {
		s.x[i] = make([]float64, blockSize)
		s.t[i] = make([]float64, blockSize)
	}
	return s
}

func (s *Streamer) Stream(samples [][2]float64) (n int, ok bool) {
	if err := s.ctx.Err(); err != nil {
		s.err = err
		return 0, false
	}
	for n < len(samples) {
		size := min(blockSize, len(samples)-n)
		for i := 0; i < size; i++ {
			if (s.pos+i)%s.clockPeriod < s.clockPeriod/2 {
				s.clock[i] = 1
			} else {
				s.clock[i] = 0
			}
		}
		s.processor.Process(s.clock, s.x[0], s.x[1], s.x[2], s.t[0], s.t[1], s.t[2], 0, size)
		x, t := s.x[s.stem], s.t[s.stem]
		for i := 0; i < size; i++ {
			samples[n+i][0] = math.Log2(1+x[i]) / flux.MaxOctaves
			samples[n+i][1] = t[i]
		}
		s.pos = (s.pos + size) % s.clockPeriod
		n += size
	}
	return n, true
}

func (s *Streamer) Err() error { return s.err }

// ----- Stems ----- //

// Options describes one stem rendering run.
type Options struct {
	SampleRate  int
	Seconds     float64
	ClockPeriod int
	Seed        uint64
	Params      flux.Params
	OutputDir   string
}

// StemFileName returns the file name of stem i.
func StemFileName(i int) string {
	return fmt.Sprintf("x%dt%d.wav", i+1, i+1)
}

// RenderStems writes every X/T pair into its own WAV file and returns the
// paths. Each stem runs its own processor with the same seed, so the files
// line up sample for sample.
func RenderStems(ctx context.Context, opts Options, logger *zap.Logger) ([]string, error) {
	if opts.SampleRate <= 0 || opts.Seconds <= 0 {
		return nil, fmt.Errorf("invalid render options: sample rate %d, seconds %v", opts.SampleRate, opts.Seconds)
	}
	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	format := beep.Format{SampleRate: beep.SampleRate(opts.SampleRate), NumChannels: 2, Precision: 2}
	total := format.SampleRate.N(time.Duration(opts.Seconds * float64(time.Second)))

	paths := make([]string, NumStems)
	g, ctx := errgroup.WithContext(ctx)
	for i := range paths {
		paths[i] = filepath.Join(opts.OutputDir, StemFileName(i))
		g.Go(func() error {
			p := flux.NewProcessor(float64(opts.SampleRate), opts.Seed)
			p.SetParams(opts.Params)
			if err := writeStem(paths[i], NewStreamer(ctx, p, i, opts.ClockPeriod), total, format); err != nil {
				return fmt.Errorf("failed to render %s: %w", paths[i], err)
			}
			logger.Info("rendered stem", zap.String("path", paths[i]), zap.Int("samples", total))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return paths, nil
}

func writeStem(path string, s *Streamer, total int, format beep.Format) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	if err := wav.Encode(f, beep.Take(total, s), format); err != nil {
		return err
	}
	return s.Err()
}
