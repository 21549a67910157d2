package synth

import (
	"fmt"
	"log"
	"math"
	"sort"
)

// ----- Polyphony ----- //

// Trigger starts pitch (0-127) at velocity (clamped to 0-1). A voice already
// sounding at pitch is stopped first; at full polyphony the oldest voice is.
func (e *Engine) Trigger(pitch int, velocity float64) (*Voice, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.graph == nil {
		return nil, ErrNotInitialized
	}
	if pitch < 0 || pitch > 127 {
		return nil, fmt.Errorf("%w: %d", ErrPitchOutOfRange, pitch)
	}
	velocity = clamp01(velocity)
	now := e.graph.CurrentTime()
	// built first so a failure leaves the sounding voices alone
	v, err := e.buildVoice(pitch, velocity, now)
	if err != nil {
		return nil, fmt.Errorf("cannot build voice for pitch %d: %w", pitch, err)
	}
	if prev, ok := e.voices[pitch]; ok {
		e.forceStop(prev, now)
	}
	for len(e.voices) >= e.cfg.MaxPolyphony {
		oldest := e.oldest()
		if oldest == nil {
			break
		}
		log.Printf("max polyphony reached, evicting pitch %d\n", oldest.pitch)
		e.forceStop(oldest, now)
	}
	e.insert(v)
	return v, nil
}

// Release starts v's release phase. It works even if v was already
// evicted or replaced.
func (e *Engine) Release(v *Voice) {
	if v == nil {
		return
	}
	v.Release()
}

// ReleaseAll stops every voice right away, skipping the release phase.
func (e *Engine) ReleaseAll() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.graph == nil {
		return
	}
	now := e.graph.CurrentTime()
	for _, v := range e.activeVoices() {
		e.forceStop(v, now)
	}
}

// ActiveVoiceCount ...
func (e *Engine) ActiveVoiceCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.voices)
}

// forceStop is shared by retrigger, eviction and ReleaseAll: a short fade,
// immediate removal from the table, and a cleanup after the fade.
func (e *Engine) forceStop(v *Voice, now float64) {
	end := v.forceStop(e.envelope, now)
	e.remove(v)
	e.scheduleCleanup(v, end)
}

func (e *Engine) insert(v *Voice) {
	e.voices[v.pitch] = v
	v.elem = e.order.PushBack(v)
	e.output.setVoiceCount(len(e.voices))
}

// remove drops v from the table unless the entry has since been taken
// by a newer voice at the same pitch.
func (e *Engine) remove(v *Voice) bool {
	cur, ok := e.voices[v.pitch]
	if !ok || cur.generation != v.generation {
		return false
	}
	delete(e.voices, v.pitch)
	if v.elem != nil {
		e.order.Remove(v.elem)
		v.elem = nil
	}
	e.output.setVoiceCount(len(e.voices))
	return true
}

// oldest returns the voice with the smallest start time. The front of the
// insertion order is the answer unless it went stale.
func (e *Engine) oldest() *Voice {
	if front := e.order.Front(); front != nil {
		v := front.Value.(*Voice)
		if cur, ok := e.voices[v.pitch]; ok && cur.generation == v.generation {
			return v
		}
		log.Println("[WARN] oldest voice pointer is stale, rescanning")
		e.order.Remove(front)
	}
	var oldest *Voice
	for _, v := range e.voices {
		if oldest == nil ||
			v.startTime < oldest.startTime ||
			v.startTime == oldest.startTime && v.generation < oldest.generation {
			oldest = v
		}
	}
	return oldest
}

// activeVoices lists the table oldest first.
func (e *Engine) activeVoices() []*Voice {
	voices := make([]*Voice, 0, len(e.voices))
	for _, v := range e.voices {
		voices = append(voices, v)
	}
	sort.Slice(voices, func(i, j int) bool {
		return voices[i].generation < voices[j].generation
	})
	return voices
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
