package audio

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/hajimehoshi/oto"
	"github.com/jinjor/flux/src/config"
	"github.com/jinjor/flux/src/flux"
	"go.uber.org/zap"
)

const (
	channelNum      = 2
	bitDepthInBytes = 2
	bytesPerSample  = bitDepthInBytes * channelNum
	numVoices       = 3
)

// ----- Audio ----- //

// Audio renders the engine as sound. It implements io.Reader so it can be
// copied into an audio device or any other sink of 16-bit stereo PCM.
type Audio struct {
	sync.Mutex
	ctx       context.Context
	cfg       config.AudioConfig
	logger    *zap.Logger
	CommandCh chan []string
	done      chan struct{}

	processor  *flux.Processor
	clock      *clockGenerator
	adsrParams *adsrParams
	voices     [numVoices]*voice
	baseFreq   float64
	echoParams *echoParams
	echoes     [channelNum]*echo

	clockIn []float64
	x       [numVoices][]float64
	t       [numVoices][]float64
	out     [numVoices][]float64
	mix     [channelNum][]float64
}

var _ io.Reader = (*Audio)(nil)

// Snapshot is the latest value of every engine output.
type Snapshot struct {
	X [numVoices]float64
	T [numVoices]float64
}

// String formats the snapshot as a report line.
func (s Snapshot) String() string {
	var b strings.Builder
	b.WriteString("flux")
	for _, v := range s.X {
		b.WriteString(" " + strconv.FormatFloat(v, 'f', 6, 64))
	}
	for _, v := range s.T {
		b.WriteString(" " + strconv.FormatFloat(v, 'f', 0, 64))
	}
	return b.String()
}

// NewAudio builds the engine and its voices and starts processing commands
// sent to CommandCh. No audio device is opened until Start.
func NewAudio(cfg config.AudioConfig, params flux.Params, seed uint64, logger *zap.Logger) (*Audio, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid audio configuration: %w", err)
	}
	sampleRate := float64(cfg.SampleRate)
	processor := flux.NewProcessor(sampleRate, seed)
	processor.SetParams(params)

	a := &Audio{
		ctx:        context.Background(),
		cfg:        cfg,
		logger:     logger.Named("audio"),
		CommandCh:  make(chan []string, 256),
		done:       make(chan struct{}),
		processor:  processor,
		clock:      newClockGenerator(sampleRate, cfg.Clock, cfg.Tempo),
		adsrParams: newADSRParams(),
		baseFreq:   cfg.BaseFrequency,
		echoParams: newEchoParams(),
		clockIn:    make([]float64, cfg.BlockSize),
	}
	for i := range a.echoes {
		a.echoes[i] = newEcho(sampleRate)
		a.mix[i] = make([]float64, cfg.BlockSize)
	}
	for i := range a.voices {
		a.voices[i] = newVoice(waveTriangle, sampleRate)
		a.voices[i].reset(a.baseFreq)
		a.x[i] = make([]float64, cfg.BlockSize)
		a.t[i] = make([]float64, cfg.BlockSize)
		a.out[i] = make([]float64, cfg.BlockSize)
	}
	go a.processCommands()
	return a, nil
}

func (a *Audio) processCommands() {
	defer close(a.done)
	for command := range a.CommandCh {
		if err := a.update(command); err != nil {
			a.logger.Warn("command rejected", zap.Strings("command", command), zap.Error(err))
			continue
		}
		a.logger.Debug("command applied", zap.Strings("command", command))
	}
	a.logger.Debug("processCommands() ended.")
}

func (a *Audio) Read(buf []byte) (int, error) {
	a.Lock()
	defer a.Unlock()
	select {
	case <-a.ctx.Done():
		a.logger.Debug("Read() interrupted.")
		return 0, io.EOF
	default:
	}
	frames := len(buf) / bytesPerSample
	for offset := 0; offset < frames; offset += a.cfg.BlockSize {
		size := min(a.cfg.BlockSize, frames-offset)
		a.render(size)
		writeBuffer(a.mix[0][:size], a.mix[1][:size], a.cfg.Gain, buf[offset*bytesPerSample:])
	}
	return frames * bytesPerSample, nil
}

func (a *Audio) render(size int) {
	a.clock.fill(a.clockIn[:size])
	a.processor.Process(a.clockIn, a.x[0], a.x[1], a.x[2], a.t[0], a.t[1], a.t[2], 0, size)
	for i, v := range a.voices {
		v.process(a.adsrParams, a.baseFreq, a.x[i][:size], a.t[i][:size], a.out[i][:size])
	}
	// voice 1 left, voice 3 right, voice 2 center
	left, right := a.mix[0][:size], a.mix[1][:size]
	for i := range left {
		left[i] = a.out[0][i] + 0.5*a.out[1][i]
		right[i] = a.out[2][i] + 0.5*a.out[1][i]
	}
	for ch, e := range a.echoes {
		e.applyParams(a.echoParams)
		e.process(a.mix[ch][:size])
	}
}

func writeBuffer(left, right []float64, gain float64, buf []byte) {
	for i := range left {
		putSample(buf[bytesPerSample*i:], left[i]*gain)
		putSample(buf[bytesPerSample*i+bitDepthInBytes:], right[i]*gain)
	}
}

func putSample(buf []byte, value float64) {
	const max = 32767
	if value > 1 {
		value = 1
	} else if value < -1 {
		value = -1
	}
	b := int16(value * max)
	buf[0] = byte(b)
	buf[1] = byte(b >> 8)
}

func (a *Audio) update(command []string) error {
	if len(command) == 0 {
		return fmt.Errorf("empty command")
	}
	a.Lock()
	defer a.Unlock()

	switch command[0] {
	case "set":
		command = command[1:]
		if len(command) == 3 {
			switch command[0] {
			case "adsr":
				return a.adsrParams.set(command[1], command[2])
			case "echo":
				return a.echoParams.set(command[1], command[2])
			}
		}
		if len(command) != 2 {
			return fmt.Errorf("invalid key-value pair %v", command)
		}
		switch command[0] {
		case "wave":
			kind, err := waveKindFromString(command[1])
			if err != nil {
				return err
			}
			for _, v := range a.voices {
				v.osc.kind = kind
			}
			return nil
		case "base_frequency":
			freq, err := strconv.ParseFloat(command[1], 64)
			if err != nil {
				return fmt.Errorf("invalid value for base_frequency: %w", err)
			}
			if !(freq > 0 && freq < 20000) {
				return fmt.Errorf("base_frequency out of range: %v", freq)
			}
			a.baseFreq = freq
			return nil
		}
		return a.processor.Set(command[0], command[1])
	case "reset":
		a.processor.Reset()
		for _, v := range a.voices {
			v.reset(a.baseFreq)
		}
		return nil
	case "clock":
		if len(command) != 2 {
			return fmt.Errorf("usage: clock internal|midi")
		}
		return a.clock.setSource(command[1])
	case "tempo":
		if len(command) != 2 {
			return fmt.Errorf("usage: tempo <bpm>")
		}
		bpm, err := strconv.ParseFloat(command[1], 64)
		if err != nil {
			return fmt.Errorf("invalid tempo: %w", err)
		}
		return a.clock.setTempo(bpm)
	default:
		return fmt.Errorf("unknown command %v", command[0])
	}
}

// Snapshot returns the outputs of the last rendered sample.
func (a *Audio) Snapshot() Snapshot {
	a.Lock()
	defer a.Unlock()
	x, t := a.processor.Outputs()
	return Snapshot{X: x, T: t}
}

// Processor exposes the engine for direct parameter changes.
func (a *Audio) Processor() *flux.Processor {
	return a.processor
}

// Close stops command processing and waits for it to finish.
func (a *Audio) Close() error {
	a.logger.Debug("Closing Audio...")
	close(a.CommandCh)
	<-a.done
	return nil
}

// Start plays the audio on the default device until ctx is done.
func (a *Audio) Start(ctx context.Context) error {
	bufferSizeInBytes := a.cfg.BlockSize * bytesPerSample
	otoContext, err := oto.NewContext(a.cfg.SampleRate, channelNum, bitDepthInBytes, bufferSizeInBytes)
	if err != nil {
		return fmt.Errorf("failed to open audio device: %w", err)
	}
	defer func() {
		if err := otoContext.Close(); err != nil {
			a.logger.Warn("failed to close audio device", zap.Error(err))
		}
	}()
	p := otoContext.NewPlayer()
	defer func() {
		if err := p.Close(); err != nil {
			a.logger.Warn("failed to close player", zap.Error(err))
		}
	}()
	a.Lock()
	a.ctx = ctx
	a.Unlock()

	// block until ctx is done
	if _, err := io.CopyBuffer(p, a, make([]byte, bufferSizeInBytes)); err != nil {
		return fmt.Errorf("audio stream failed: %w", err)
	}
	a.logger.Debug("Start() ended.")
	return nil
}
