package audio

import "math"

// ----- Event Kind ----- //

const (
	eventSetValue = iota
	eventLinear
	eventExponential
	eventTarget
)

type paramEvent struct {
	kind         int
	time         float64 // sec
	value        float64
	timeConstant float64 // sec
}

// ----- Audio Param ----- //

/*
  Events are kept sorted by time. Ramps run from the previous event's
  (time, value) to their own. Events that are already in the past are
  folded into (anchorTime, value) at the start of every render block.

  v +        x
    |       / `.
    |      /    `-.__
    +-----x          `x------
    |
    +-----+--+-------+-------
    |anchor |linear  |exp    |
*/
type AudioParam struct {
	ctx        *Context
	value      float64
	anchorTime float64
	events     []paramEvent
}

var _ Param = (*AudioParam)(nil)

func newAudioParam(ctx *Context, value float64) *AudioParam {
	return &AudioParam{
		ctx:   ctx,
		value: value,
	}
}

// Value returns the value at the current audio time.
func (p *AudioParam) Value() float64 {
	p.ctx.mu.Lock()
	defer p.ctx.mu.Unlock()
	return p.valueAt(p.ctx.currentTime())
}

// ValueAtTime returns the value the automation produces at t.
func (p *AudioParam) ValueAtTime(t float64) float64 {
	p.ctx.mu.Lock()
	defer p.ctx.mu.Unlock()
	return p.valueAt(t)
}

// SetValueAtTime jumps to value at t.
func (p *AudioParam) SetValueAtTime(value float64, t float64) {
	p.ctx.mu.Lock()
	defer p.ctx.mu.Unlock()
	p.insert(paramEvent{kind: eventSetValue, time: t, value: value})
}

// LinearRampToValueAtTime ramps linearly from the previous event to value at t.
func (p *AudioParam) LinearRampToValueAtTime(value float64, t float64) {
	p.ctx.mu.Lock()
	defer p.ctx.mu.Unlock()
	p.insert(paramEvent{kind: eventLinear, time: t, value: value})
}

// ExponentialRampToValueAtTime ramps geometrically from the previous event
// to value at t. A ramp between zero or opposite-signed values holds the
// previous value until t.
func (p *AudioParam) ExponentialRampToValueAtTime(value float64, t float64) {
	p.ctx.mu.Lock()
	defer p.ctx.mu.Unlock()
	p.insert(paramEvent{kind: eventExponential, time: t, value: value})
}

// SetTargetAtTime approaches target from t on with the given time constant.
func (p *AudioParam) SetTargetAtTime(target float64, t float64, timeConstant float64) {
	p.ctx.mu.Lock()
	defer p.ctx.mu.Unlock()
	if timeConstant <= 0 {
		p.insert(paramEvent{kind: eventSetValue, time: t, value: target})
		return
	}
	p.insert(paramEvent{kind: eventTarget, time: t, value: target, timeConstant: timeConstant})
}

// CancelScheduledValues drops every event at or after t.
func (p *AudioParam) CancelScheduledValues(t float64) {
	p.ctx.mu.Lock()
	defer p.ctx.mu.Unlock()
	for i, e := range p.events {
		if e.time >= t {
			p.events = p.events[:i]
			return
		}
	}
}

// CancelAndHoldAtTime drops every event after t but keeps the curve up to t
// and holds the value it reaches there. A ramp in progress at t is cut
// short at t instead of being removed.
func (p *AudioParam) CancelAndHoldAtTime(t float64) {
	p.ctx.mu.Lock()
	defer p.ctx.mu.Unlock()
	value := p.valueAt(t)
	hold := paramEvent{kind: eventSetValue, time: t, value: value}
	for i, e := range p.events {
		if e.time >= t {
			if e.kind == eventLinear || e.kind == eventExponential {
				hold.kind = e.kind
			}
			p.events = p.events[:i]
			break
		}
	}
	p.insert(hold)
}

func (p *AudioParam) insert(e paramEvent) {
	if math.IsNaN(e.value) || math.IsInf(e.value, 0) || math.IsNaN(e.time) {
		return
	}
	if e.time < 0 {
		e.time = 0
	}
	i := len(p.events)
	for i > 0 && p.events[i-1].time > e.time {
		i--
	}
	p.events = append(p.events, paramEvent{})
	copy(p.events[i+1:], p.events[i:])
	p.events[i] = e
}

func (p *AudioParam) valueAt(t float64) float64 {
	anchorTime, anchorValue := p.anchorTime, p.value
	var target *paramEvent
	curve := func(at float64) float64 {
		if target == nil {
			return anchorValue
		}
		return setTargetAtTime(anchorValue, target.value, (at-anchorTime)/target.timeConstant)
	}
	for i := range p.events {
		e := &p.events[i]
		if e.time > t {
			switch e.kind {
			case eventLinear:
				pos := rampPos(anchorTime, e.time, t)
				return anchorValue + (e.value-anchorValue)*pos
			case eventExponential:
				pos := rampPos(anchorTime, e.time, t)
				return exponentialAt(anchorValue, e.value, pos)
			}
			return curve(t)
		}
		if e.kind == eventTarget {
			anchorValue = curve(e.time)
			anchorTime = e.time
			target = e
		} else {
			anchorTime, anchorValue, target = e.time, e.value, nil
		}
	}
	return curve(t)
}

// prune folds every event at or before now into the anchor.
// Linear, exponential and target curves continue unchanged from any point
// on them, so this does not alter future values.
func (p *AudioParam) prune(now float64) {
	k := 0
	for k < len(p.events) && p.events[k].time <= now {
		k++
	}
	if k == 0 {
		return
	}
	value := p.valueAt(now)
	last := p.events[k-1]
	p.value = value
	p.anchorTime = now
	if last.kind == eventTarget {
		k--
		p.events[k] = paramEvent{kind: eventTarget, time: now, value: last.value, timeConstant: last.timeConstant}
	}
	p.events = append(p.events[:0], p.events[k:]...)
}

// fill writes one value per sample for the block starting at frame.
func (p *AudioParam) fill(frame int64, sampleRate int, out []float64) {
	sr := float64(sampleRate)
	p.prune(float64(frame) / sr)
	if len(p.events) == 0 {
		for i := range out {
			out[i] = p.value
		}
		return
	}
	for i := range out {
		out[i] = p.valueAt(float64(frame+int64(i)) / sr)
	}
}

func rampPos(from float64, to float64, t float64) float64 {
	if to <= from {
		return 1
	}
	pos := (t - from) / (to - from)
	if pos < 0 {
		return 0
	}
	if pos > 1 {
		return 1
	}
	return pos
}

func exponentialAt(initialValue float64, targetValue float64, pos float64) float64 {
	if initialValue == 0 || initialValue*targetValue <= 0 {
		return initialValue
	}
	return initialValue * math.Pow(targetValue/initialValue, pos)
}

// 63% closer to target when pos=1.0
func setTargetAtTime(initialValue float64, targetValue float64, pos float64) float64 {
	return targetValue + (initialValue-targetValue)*math.Exp(-pos)
}
