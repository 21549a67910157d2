package audio

import "errors"

// ----- Errors ----- //

var (
	// ErrContextClosed is returned by every operation on a closed context.
	ErrContextClosed = errors.New("audio: context is closed")
	// ErrInvalidState is returned when a node is started twice or stopped
	// before it was started.
	ErrInvalidState = errors.New("audio: invalid node state")
	// ErrNotConnected is returned when disconnecting a node that has no outputs.
	ErrNotConnected = errors.New("audio: node is not connected")
	// ErrIncompatibleNode is returned when connecting to a node that cannot take inputs.
	ErrIncompatibleNode = errors.New("audio: incompatible node")
)

// ----- Interfaces ----- //

// Param is a value automated on the audio clock.
// All times are in seconds on the graph's clock.
type Param interface {
	Value() float64
	ValueAtTime(t float64) float64
	SetValueAtTime(value float64, t float64)
	LinearRampToValueAtTime(value float64, t float64)
	ExponentialRampToValueAtTime(value float64, t float64)
	SetTargetAtTime(target float64, t float64, timeConstant float64)
	CancelScheduledValues(t float64)
	CancelAndHoldAtTime(t float64)
}

// Node is a stage in the signal graph.
type Node interface {
	Connect(dst Node) error
	Disconnect() error
}

// Oscillator generates a periodic waveform between its start and stop times.
type Oscillator interface {
	Node
	Frequency() Param
	SetWaveform(kind int)
	Start(t float64) error
	Stop(t float64) error
}

// Gain scales the sum of its inputs.
type Gain interface {
	Node
	Gain() Param
}

// Timer is a pending bookkeeping callback.
type Timer interface {
	Stop() bool
}

// Graph is the host audio subsystem the synthesizer builds voices on.
type Graph interface {
	SampleRate() int
	CurrentTime() float64
	Destination() Node
	NewOscillator() (Oscillator, error)
	NewGain() (Gain, error)
	// AfterFunc calls f once the audio clock has passed t.
	// f runs outside of any graph lock.
	AfterFunc(t float64, f func()) Timer
	Suspend() error
	Resume() error
	Close() error
	State() State
	Peak() float64
}

// ----- State ----- //

// State of a Context.
type State int

const (
	StateRunning State = iota
	StateSuspended
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateSuspended:
		return "suspended"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}
