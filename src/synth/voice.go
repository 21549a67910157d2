package synth

import (
	"container/list"
	"math"
	"sync"

	"github.com/jinjor/polysynth/src/audio"
)

func noteToFreq(baseFreq float64, note int) float64 {
	return baseFreq * math.Pow(2, float64(note-69)/12)
}

// ----- Voice ----- //

// Voice is one sounding pitch. It is returned by Trigger and stays valid
// after it leaves the engine's table.
type Voice struct {
	pitch         int
	velocity      float64
	startTime     float64 // sec
	hardStop      float64 // sec
	generation    uint64
	oscillators   []audio.Oscillator
	harmonicGains []audio.Gain
	envelope      audio.Gain
	release       func()
	safetyNet     audio.Timer
	elem          *list.Element

	mu       sync.Mutex
	released bool
	stopped  bool
	stopEnd  float64
	tornDown bool
}

// Pitch ...
func (v *Voice) Pitch() int {
	return v.pitch
}

// StartTime is the audio time the voice started at.
func (v *Voice) StartTime() float64 {
	return v.startTime
}

// Release starts the release phase. Only the first call has any effect.
func (v *Voice) Release() {
	if v.release != nil {
		v.release()
	}
}

// forceStop fades the voice out within the force-stop fade and stops its
// oscillators there. It returns the end of the fade.
func (v *Voice) forceStop(en envelope, now float64) float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.stopped {
		return v.stopEnd
	}
	v.stopped = true
	v.released = true
	v.stopEnd = en.fadeOut(v.envelope.Gain(), now)
	v.stopOscillators(v.stopEnd)
	return v.stopEnd
}

func (v *Voice) stopOscillators(t float64) {
	for _, o := range v.oscillators {
		o := o
		bestEffort("stop oscillator", func() error {
			return o.Stop(t)
		})
	}
}

// ----- Voice Builder ----- //

// buildVoice wires fundamental and harmonics through the envelope into the
// output stage and schedules everything from now on.
func (e *Engine) buildVoice(pitch int, velocity float64, now float64) (*Voice, error) {
	graph := e.graph
	e.generation++
	v := &Voice{
		pitch:      pitch,
		velocity:   velocity,
		startTime:  now,
		hardStop:   now + ms(e.cfg.MaxNoteDuration),
		generation: e.generation,
	}
	env, err := graph.NewGain()
	if err != nil {
		return nil, err
	}
	v.envelope = env
	freq := noteToFreq(e.cfg.BaseFreq, pitch)
	if err := v.addOscillator(graph, freq, env); err != nil {
		v.teardown()
		return nil, err
	}
	limit := math.Min(e.cfg.HarmonicLimit, float64(graph.SampleRate())/2)
	for _, h := range e.cfg.Harmonics {
		hfreq := freq * h.Ratio
		if hfreq > limit {
			continue
		}
		g, err := graph.NewGain()
		if err != nil {
			v.teardown()
			return nil, err
		}
		v.harmonicGains = append(v.harmonicGains, g)
		g.Gain().SetValueAtTime(h.Level, now)
		if err := g.Connect(env); err != nil {
			v.teardown()
			return nil, err
		}
		if err := v.addOscillator(graph, hfreq, g); err != nil {
			v.teardown()
			return nil, err
		}
	}
	e.envelope.schedule(env.Gain(), now, velocity, v.hardStop)
	if err := env.Connect(e.output.input()); err != nil {
		v.teardown()
		return nil, err
	}
	for _, o := range v.oscillators {
		if err := o.Start(now); err != nil {
			v.teardown()
			return nil, err
		}
		if err := o.Stop(v.hardStop); err != nil {
			v.teardown()
			return nil, err
		}
	}
	v.release = e.releaseFunc(graph, v)
	v.safetyNet = graph.AfterFunc(v.hardStop+ms(e.cfg.CleanupBuffer), func() {
		e.cleanup(v)
	})
	return v, nil
}

func (v *Voice) addOscillator(graph audio.Graph, freq float64, dst audio.Node) error {
	o, err := graph.NewOscillator()
	if err != nil {
		return err
	}
	v.oscillators = append(v.oscillators, o)
	o.Frequency().SetValueAtTime(freq, v.startTime)
	return o.Connect(dst)
}

// releaseFunc builds the voice's release closure. It only holds the voice's
// own handles, so it works whether or not the voice is still in the table.
func (e *Engine) releaseFunc(graph audio.Graph, v *Voice) func() {
	en := e.envelope
	buffer := ms(e.cfg.CleanupBuffer)
	return func() {
		v.mu.Lock()
		if v.released {
			v.mu.Unlock()
			return
		}
		v.released = true
		end := en.releaseAt(v.envelope.Gain(), v.startTime, graph.CurrentTime())
		v.stopOscillators(end)
		v.mu.Unlock()
		graph.AfterFunc(end+buffer, func() {
			e.cleanup(v)
		})
	}
}
