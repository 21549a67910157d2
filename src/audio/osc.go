package audio

import (
	"math"
)

// ----- Wave Kind ----- //

const (
	WaveSine = iota
	WaveTriangle
	WaveSquare
	WaveSaw
)

// ----- OSC ----- //

// OscillatorNode plays a waveform between its start and stop times.
type OscillatorNode struct {
	*port
	kind       int
	frequency  *AudioParam
	phase      float64
	started    bool
	ended      bool
	startTime  float64 // sec
	stopTime   float64 // sec
	out        []float64
	freqBuf    []float64
	renderedAt int64
}

var _ Oscillator = (*OscillatorNode)(nil)

func newOscillatorNode(ctx *Context) *OscillatorNode {
	o := &OscillatorNode{
		port:       &port{ctx: ctx},
		kind:       WaveSine,
		frequency:  newAudioParam(ctx, 440),
		stopTime:   math.Inf(1),
		renderedAt: -1,
	}
	o.self = o
	return o
}

// Frequency ...
func (o *OscillatorNode) Frequency() Param {
	return o.frequency
}

// SetWaveform ...
func (o *OscillatorNode) SetWaveform(kind int) {
	o.ctx.mu.Lock()
	defer o.ctx.mu.Unlock()
	o.kind = kind
}

// Start schedules the oscillator to sound from t on. It can only start once.
func (o *OscillatorNode) Start(t float64) error {
	o.ctx.mu.Lock()
	defer o.ctx.mu.Unlock()
	if o.ctx.state == StateClosed {
		return ErrContextClosed
	}
	if o.started {
		return ErrInvalidState
	}
	o.started = true
	o.startTime = math.Max(t, 0)
	return nil
}

// Stop schedules the end of the sound. Calling it again can only move the
// stop time earlier. Stopping an ended oscillator does nothing.
func (o *OscillatorNode) Stop(t float64) error {
	o.ctx.mu.Lock()
	defer o.ctx.mu.Unlock()
	if o.ctx.state == StateClosed {
		return ErrContextClosed
	}
	if !o.started {
		return ErrInvalidState
	}
	if o.ended {
		return nil
	}
	if t < o.stopTime {
		o.stopTime = t
	}
	return nil
}

func (o *OscillatorNode) process(frame int64, size int) []float64 {
	if o.renderedAt == frame && len(o.out) == size {
		return o.out
	}
	o.renderedAt = frame
	o.out = resize(o.out, size)
	o.freqBuf = resize(o.freqBuf, size)
	sr := float64(o.ctx.sampleRate)
	o.frequency.fill(frame, o.ctx.sampleRate, o.freqBuf)
	for i := range o.out {
		t := float64(frame+int64(i)) / sr
		if !o.started || o.ended || t < o.startTime || t >= o.stopTime {
			o.out[i] = 0
			continue
		}
		o.out[i] = waveAt(o.kind, o.phase)
		o.phase += 2.0 * math.Pi * o.freqBuf[i] / sr
		if o.phase >= 2.0*math.Pi {
			o.phase = math.Mod(o.phase, 2.0*math.Pi)
		}
	}
	if o.started && float64(frame+int64(size))/sr >= o.stopTime {
		o.ended = true
	}
	return o.out
}

func waveAt(kind int, phase float64) float64 {
	p := phase / (2.0 * math.Pi)
	switch kind {
	case WaveTriangle:
		if p < 0.5 {
			return p*4 - 1
		}
		return p*(-4) + 3
	case WaveSquare:
		if p < 0.5 {
			return 1
		}
		return -1
	case WaveSaw:
		return p*2 - 1
	}
	return math.Sin(phase)
}
