package synth

import (
	"math"

	"github.com/jinjor/polysynth/src/audio"
)

// compensationGain keeps the sum of k voices from growing linearly.
func compensationGain(k int) float64 {
	if k < 1 {
		k = 1
	}
	return math.Min(1.0, 1/math.Sqrt(float64(k)))
}

// ----- Output Stage ----- //

// voices -> compensation -> volume -> destination
type outputStage struct {
	graph        audio.Graph
	compensation audio.Gain
	volume       audio.Gain
	rampTime     float64 // sec
	target       float64
}

func newOutputStage(graph audio.Graph, volume float64, rampTime float64) (*outputStage, error) {
	compensation, err := graph.NewGain()
	if err != nil {
		return nil, err
	}
	vol, err := graph.NewGain()
	if err != nil {
		return nil, err
	}
	if err := compensation.Connect(vol); err != nil {
		return nil, err
	}
	if err := vol.Connect(graph.Destination()); err != nil {
		return nil, err
	}
	o := &outputStage{
		graph:        graph,
		compensation: compensation,
		volume:       vol,
		rampTime:     rampTime,
		target:       compensationGain(0),
	}
	now := graph.CurrentTime()
	compensation.Gain().SetValueAtTime(o.target, now)
	o.setVolume(volume)
	return o, nil
}

func (o *outputStage) input() audio.Node {
	return o.compensation
}

// setVoiceCount ramps the compensation gain to match k voices.
func (o *outputStage) setVoiceCount(k int) {
	target := compensationGain(k)
	if target == o.target {
		return
	}
	o.target = target
	p := o.compensation.Gain()
	now := o.graph.CurrentTime()
	p.CancelAndHoldAtTime(now)
	p.LinearRampToValueAtTime(target, now+o.rampTime)
}

func (o *outputStage) setVolume(level float64) {
	p := o.volume.Gain()
	now := o.graph.CurrentTime()
	p.CancelScheduledValues(now)
	p.SetValueAtTime(level, now)
}

func (o *outputStage) disconnect() {
	disconnect("disconnect compensation gain", o.compensation)
	disconnect("disconnect volume gain", o.volume)
}
