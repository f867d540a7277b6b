package audio

import (
	"context"

	"gitlab.com/gomidi/rtmididrv"
	"go.uber.org/zap"
)

// MIDI system real-time messages
const (
	midiClock    = 0xF8
	midiStart    = 0xFA
	midiContinue = 0xFB
	midiStop     = 0xFC
)

// ListenToMidiIn forwards every message of the first MIDI input until ctx is
// done. The channel is closed when listening stops.
func ListenToMidiIn(ctx context.Context, logger *zap.Logger) <-chan []byte {
	ch := make(chan []byte, 65536)
	go func() {
		defer close(ch)
		drv, err := rtmididrv.New()
		if err != nil {
			logger.Error("failed to initialize MIDI driver", zap.Error(err))
			return
		}
		defer func() {
			if err := drv.Close(); err != nil {
				logger.Warn("failed to close MIDI driver", zap.Error(err))
			}
		}()
		ins, err := drv.Ins()
		if err != nil {
			logger.Error("failed to get MIDI IN", zap.Error(err))
			return
		}
		if len(ins) == 0 {
			logger.Warn("MIDI IN not found")
			return
		}
		in := ins[0]
		if err := in.Open(); err != nil {
			logger.Error("failed to open MIDI IN", zap.Error(err))
			return
		}
		logger.Info("opened MIDI IN", zap.String("port", in.String()))
		defer func() {
			if err := in.Close(); err != nil {
				logger.Warn("failed to close MIDI IN", zap.Error(err))
			}
		}()
		if err := in.SetListener(func(data []byte, deltaMicroseconds int64) {
			select {
			case ch <- data:
			default:
			}
		}); err != nil {
			logger.Error("failed to set MIDI listener", zap.Error(err))
			return
		}
		defer func() {
			if err := in.StopListening(); err != nil {
				logger.Warn("failed to stop listening", zap.Error(err))
			}
		}()
		<-ctx.Done()
	}()
	return ch
}

// AddMidiEvent feeds one received MIDI message to the clock. Messages must
// come from a single goroutine. It does not wait for the audio goroutine.
func (a *Audio) AddMidiEvent(data []byte) {
	if len(data) == 0 {
		return
	}
	switch data[0] {
	case midiClock:
		a.clock.midiTick()
	case midiStart:
		a.logger.Debug("MIDI start")
		a.clock.midiStart()
	case midiContinue:
		a.clock.midiContinue()
	case midiStop:
		a.logger.Debug("MIDI stop")
		a.clock.midiStop()
	}
}
