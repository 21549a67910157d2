package synth

import (
	"math"

	"github.com/jinjor/polysynth/src/audio"
)

// exponential ramps cannot reach zero
const minGain = 0.0001

// ----- Envelope ----- //

/*
  p +  x
    | / \
    |/   `.
  s +      `-.______________          (release)
    |                       `.          x-.
    |                         \            `.
  0 +--+-----+--------------+--x     or      x--
    |a |d    |   sustain    |r |hardStop
*/
type envelope struct {
	attack       float64 // sec
	decay        float64 // sec
	sustainRatio float64 // 0-1
	release      float64 // sec
	minDuration  float64 // sec
	forceFade    float64 // sec
}

func newEnvelope(cfg Config) envelope {
	return envelope{
		attack:       ms(cfg.Attack),
		decay:        ms(cfg.Decay),
		sustainRatio: cfg.SustainRatio,
		release:      ms(cfg.Release),
		minDuration:  ms(cfg.MinNoteDuration),
		forceFade:    ms(cfg.ForceStopFade),
	}
}

// schedule programs attack, decay and sustain from start, plus the final
// fade that ends exactly at hardStop.
func (en envelope) schedule(p audio.Param, start float64, peak float64, hardStop float64) {
	peak = math.Max(peak, minGain)
	sustain := math.Max(peak*en.sustainRatio, minGain)
	decayEnd := start + en.attack + en.decay
	p.SetValueAtTime(minGain, start)
	p.LinearRampToValueAtTime(peak, start+en.attack)
	p.ExponentialRampToValueAtTime(sustain, decayEnd)
	p.SetValueAtTime(sustain, math.Max(hardStop-en.release, decayEnd))
	p.ExponentialRampToValueAtTime(minGain, hardStop)
	p.SetValueAtTime(0, hardStop)
}

// releaseAt starts the release at the requested time, but never before the
// note has sounded for minDuration. It returns when the release ends.
func (en envelope) releaseAt(p audio.Param, start float64, requested float64) float64 {
	at := math.Max(requested, start+en.minDuration)
	end := at + en.release
	en.anchor(p, at)
	p.ExponentialRampToValueAtTime(minGain, end)
	p.SetValueAtTime(0, end)
	return end
}

// fadeOut silences the envelope within forceFade from now.
func (en envelope) fadeOut(p audio.Param, now float64) float64 {
	end := now + en.forceFade
	en.anchor(p, now)
	p.LinearRampToValueAtTime(0, end)
	return end
}

// anchor drops everything scheduled after t and holds the value the
// curve has at t, so the next ramp starts without a jump.
func (en envelope) anchor(p audio.Param, t float64) {
	p.CancelAndHoldAtTime(t)
}
