package synth

import (
	"log"

	"github.com/jinjor/polysynth/src/audio"
)

// bestEffort runs a stop or disconnect on a node that may already be gone.
// A failure means the node is already torn down; it is logged and dropped.
func bestEffort(op string, f func() error) bool {
	if err := f(); err != nil {
		log.Printf("[WARN] %v", &TransientNodeError{Op: op, Err: err})
		return false
	}
	return true
}

func disconnect(op string, n audio.Node) bool {
	if n == nil {
		return false
	}
	return bestEffort(op, n.Disconnect)
}

// teardown disconnects every node of the voice and cancels its safety net.
// It returns how many nodes this call disconnected; later calls return 0.
func (v *Voice) teardown() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.tornDown {
		return 0
	}
	v.tornDown = true
	v.released = true
	v.stopped = true
	if v.safetyNet != nil {
		v.safetyNet.Stop()
	}
	n := 0
	for _, o := range v.oscillators {
		if disconnect("disconnect oscillator", o) {
			n++
		}
	}
	for _, g := range v.harmonicGains {
		if disconnect("disconnect harmonic gain", g) {
			n++
		}
	}
	if disconnect("disconnect envelope", v.envelope) {
		n++
	}
	return n
}

// cleanup runs when a voice's sound is over: after its release, after a
// forced stop, or at the safety-net deadline.
func (e *Engine) cleanup(v *Voice) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v.teardown()
	if e.graph == nil {
		return
	}
	e.remove(v)
}

// scheduleCleanup runs cleanup once the fade ending at end is over.
func (e *Engine) scheduleCleanup(v *Voice, end float64) {
	e.graph.AfterFunc(end+ms(e.cfg.CleanupBuffer), func() {
		e.cleanup(v)
	})
}
