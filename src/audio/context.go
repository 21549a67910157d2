package audio

import (
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/hajimehoshi/oto"
	"github.com/viterin/vek"
)

const (
	channelNum      = 2
	bitDepthInBytes = 2
	samplesPerCycle = 1024
)
const bytesPerSample = bitDepthInBytes * channelNum
const bufferSizeInBytes = samplesPerCycle * bytesPerSample // should be >= 4096

// Options ...
type Options struct {
	SampleRate int
	// Headless contexts never open a device; the owner renders them
	// through Render or Read.
	Headless bool
}

// ----- Context ----- //

// Context is the signal graph and its sample clock.
type Context struct {
	mu          sync.Mutex
	sampleRate  int
	frame       int64
	state       State
	destination *GainNode
	timers      timerQueue
	timerSeq    uint64
	peak        float64
	abs         []float64
	readBuf     []float64
	otoContext  *oto.Context
	pumpDone    chan struct{}
}

var _ io.Reader = (*Context)(nil)
var _ Graph = (*Context)(nil)

// NewContext creates a running context. Unless opts.Headless is set, it
// opens the audio device and starts streaming into it.
func NewContext(opts Options) (*Context, error) {
	if opts.SampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate: %d", opts.SampleRate)
	}
	c := &Context{
		sampleRate: opts.SampleRate,
		state:      StateRunning,
	}
	c.destination = newGainNode(c, 1)
	if opts.Headless {
		return c, nil
	}
	otoContext, err := oto.NewContext(opts.SampleRate, channelNum, bitDepthInBytes, bufferSizeInBytes)
	if err != nil {
		return nil, fmt.Errorf("cannot create oto context: %w", err)
	}
	c.otoContext = otoContext
	c.pumpDone = make(chan struct{})
	go c.pump(otoContext.NewPlayer())
	return c, nil
}

// blocks until the context is closed
func (c *Context) pump(p *oto.Player) {
	defer close(c.pumpDone)
	defer func() {
		if err := p.Close(); err != nil {
			log.Printf("error while closing player: %v", err)
		}
	}()
	if _, err := io.CopyBuffer(p, c, make([]byte, bufferSizeInBytes)); err != nil {
		log.Printf("error: %v", err)
	}
	log.Println("pump() ended.")
}

// SampleRate ...
func (c *Context) SampleRate() int {
	return c.sampleRate
}

// CurrentTime returns the audio clock in seconds.
func (c *Context) CurrentTime() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentTime()
}

func (c *Context) currentTime() float64 {
	return float64(c.frame) / float64(c.sampleRate)
}

// Destination is the node everything audible ends up in.
func (c *Context) Destination() Node {
	return c.destination
}

// State ...
func (c *Context) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Peak returns the absolute peak of the last rendered block.
func (c *Context) Peak() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.peak
}

// NewOscillator ...
func (c *Context) NewOscillator() (Oscillator, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateClosed {
		return nil, ErrContextClosed
	}
	return newOscillatorNode(c), nil
}

// NewGain ...
func (c *Context) NewGain() (Gain, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateClosed {
		return nil, ErrContextClosed
	}
	return newGainNode(c, 1), nil
}

// Suspend freezes the clock. Rendering produces silence until Resume.
func (c *Context) Suspend() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateClosed {
		return ErrContextClosed
	}
	c.state = StateSuspended
	return nil
}

// Resume ...
func (c *Context) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateClosed {
		return ErrContextClosed
	}
	c.state = StateRunning
	return nil
}

// Close drops pending timers and releases the device. Closing twice is a no-op.
func (c *Context) Close() error {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return nil
	}
	log.Println("Closing audio context...")
	c.state = StateClosed
	c.timers.clear()
	c.mu.Unlock()
	if c.otoContext == nil {
		return nil
	}
	<-c.pumpDone
	if err := c.otoContext.Close(); err != nil {
		return fmt.Errorf("cannot close oto context: %w", err)
	}
	return nil
}

// Render renders one mono block into out and advances the clock.
// Timers that became due run after the block, outside the graph lock.
func (c *Context) Render(out []float64) error {
	c.mu.Lock()
	switch c.state {
	case StateClosed:
		c.mu.Unlock()
		return ErrContextClosed
	case StateSuspended:
		for i := range out {
			out[i] = 0
		}
		c.peak = 0
		c.mu.Unlock()
		return nil
	}
	copy(out, c.destination.process(c.frame, len(out)))
	c.peak = c.measurePeak(out)
	c.frame += int64(len(out))
	due := c.timers.popDue(c.currentTime())
	c.mu.Unlock()
	for _, f := range due {
		f()
	}
	return nil
}

func (c *Context) measurePeak(out []float64) float64 {
	if len(out) == 0 {
		return 0
	}
	c.abs = resize(c.abs, len(out))
	return vek.Max(vek.Abs_Into(c.abs, out))
}

// Read renders interleaved 16-bit stereo PCM.
func (c *Context) Read(buf []byte) (int, error) {
	bufSamples := len(buf) / bytesPerSample
	c.readBuf = resize(c.readBuf, bufSamples)
	if err := c.Render(c.readBuf); err != nil {
		log.Println("Read() interrupted.")
		return 0, io.EOF
	}
	writeBuffer(c.readBuf, buf, 0)
	writeBuffer(c.readBuf, buf, 1)
	return bufSamples * bytesPerSample, nil
}

func writeBuffer(out []float64, buf []byte, ch int) {
	sampleLength := len(buf) / bytesPerSample
	for i := 0; i < sampleLength; i++ {
		value := out[i]
		if value > 1 {
			value = 1
		} else if value < -1 {
			value = -1
		}
		const max = 32767
		b := int16(value * max)
		buf[bytesPerSample*i+2*ch] = byte(b)
		buf[bytesPerSample*i+2*ch+1] = byte(b >> 8)
	}
}

func resize(buf []float64, n int) []float64 {
	if cap(buf) >= n {
		return buf[:n]
	}
	return make([]float64, n)
}
