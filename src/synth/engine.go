package synth

import (
	"container/list"
	"fmt"
	"log"
	"sync"

	"github.com/jinjor/polysynth/src/audio"
)

// GraphFactory creates the audio graph an engine plays into.
type GraphFactory func(sampleRate int) (audio.Graph, error)

// DeviceGraph opens the default audio device.
func DeviceGraph(sampleRate int) (audio.Graph, error) {
	c, err := audio.NewContext(audio.Options{SampleRate: sampleRate})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ----- Engine ----- //

// Engine owns the audio graph, the output stage and the voice table.
// It is safe for concurrent use.
type Engine struct {
	mu         sync.Mutex
	cfg        Config
	envelope   envelope
	newGraph   GraphFactory
	graph      audio.Graph
	output     *outputStage
	voices     map[int]*Voice
	order      *list.List // *Voice, oldest first
	generation uint64
	volume     float64
}

// NewEngine returns an uninitialized engine. A nil newGraph means DeviceGraph.
func NewEngine(cfg Config, newGraph GraphFactory) *Engine {
	if newGraph == nil {
		newGraph = DeviceGraph
	}
	return &Engine{
		cfg:      cfg,
		envelope: newEnvelope(cfg),
		newGraph: newGraph,
		volume:   cfg.DefaultVolume,
	}
}

// Initialize creates the graph and the output chain and plays a
// near-silent tone so the first real note does not pay for a cold start.
// A second call only logs a warning.
func (e *Engine) Initialize() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.graph != nil {
		log.Println("[WARN] engine is already initialized")
		return nil
	}
	if err := e.cfg.Validate(); err != nil {
		return &InitializationError{Err: err}
	}
	graph, err := e.newGraph(e.cfg.SampleRate)
	if err != nil {
		return &InitializationError{Err: err}
	}
	output, err := newOutputStage(graph, e.cfg.DefaultVolume, ms(e.cfg.CompensationRamp))
	if err != nil {
		if err := graph.Close(); err != nil {
			log.Printf("error while closing graph: %v", err)
		}
		return &InitializationError{Err: err}
	}
	e.graph = graph
	e.output = output
	e.voices = make(map[int]*Voice, e.cfg.MaxPolyphony)
	e.order = list.New()
	e.volume = e.cfg.DefaultVolume
	if !e.cfg.DisablePrewarm {
		e.prewarm()
	}
	log.Printf("engine initialized: sampleRate=%d maxPolyphony=%d\n", graph.SampleRate(), e.cfg.MaxPolyphony)
	return nil
}

func (e *Engine) prewarm() {
	graph := e.graph
	o, err := graph.NewOscillator()
	if err != nil {
		log.Printf("[WARN] prewarm skipped: %v", err)
		return
	}
	g, err := graph.NewGain()
	if err != nil {
		log.Printf("[WARN] prewarm skipped: %v", err)
		return
	}
	now := graph.CurrentTime()
	end := now + ms(e.cfg.PrewarmDuration)
	g.Gain().SetValueAtTime(e.cfg.PrewarmGain, now)
	o.Frequency().SetValueAtTime(e.cfg.BaseFreq, now)
	ok := bestEffort("prewarm connect", func() error { return o.Connect(g) }) &&
		bestEffort("prewarm connect", func() error { return g.Connect(e.output.volume) }) &&
		bestEffort("prewarm start", func() error { return o.Start(now) }) &&
		bestEffort("prewarm stop", func() error { return o.Stop(end) })
	if !ok {
		disconnect("disconnect prewarm oscillator", o)
		disconnect("disconnect prewarm gain", g)
		return
	}
	graph.AfterFunc(end+ms(e.cfg.CleanupBuffer), func() {
		disconnect("disconnect prewarm oscillator", o)
		disconnect("disconnect prewarm gain", g)
	})
}

// Dispose stops and disconnects every voice and closes the graph.
// The engine can be initialized again afterwards.
func (e *Engine) Dispose() error {
	graph := e.detach()
	if graph == nil {
		return nil
	}
	// the graph may still be running timers that call back into the engine
	if err := graph.Close(); err != nil {
		return fmt.Errorf("cannot close audio graph: %w", err)
	}
	return nil
}

func (e *Engine) detach() audio.Graph {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.graph == nil {
		return nil
	}
	log.Println("Disposing engine...")
	now := e.graph.CurrentTime()
	for _, v := range e.activeVoices() {
		v.forceStop(e.envelope, now)
		v.teardown()
	}
	e.voices = nil
	e.order = nil
	e.output.disconnect()
	e.output = nil
	graph := e.graph
	e.graph = nil
	return graph
}

// Suspend pauses the audio clock. Voices resume where they were.
func (e *Engine) Suspend() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.graph == nil {
		return ErrNotInitialized
	}
	return e.graph.Suspend()
}

// Resume ...
func (e *Engine) Resume() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.graph == nil {
		return ErrNotInitialized
	}
	return e.graph.Resume()
}

// SetVolume clamps level to 0-1 and applies it to the volume stage at once.
func (e *Engine) SetVolume(level float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.graph == nil {
		return ErrNotInitialized
	}
	e.volume = clamp01(level)
	e.output.setVolume(e.volume)
	return nil
}

// Volume ...
func (e *Engine) Volume() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.volume
}

// Peak is the output peak of the last rendered block.
func (e *Engine) Peak() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.graph == nil {
		return 0
	}
	return e.graph.Peak()
}
