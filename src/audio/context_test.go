package audio

import (
	"errors"
	"io"
	"math"
	"testing"
)

func expectNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Errorf("expected no error, but got: %v", err)
	}
}

func expectError(t *testing.T, err error, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Errorf("expected %v, but got: %v", target, err)
	}
}

func expectEqual(t *testing.T, actual, expected interface{}) {
	t.Helper()
	if actual != expected {
		t.Errorf("expected %v, but got: %v", expected, actual)
	}
}

func expectNearlyEqual(t *testing.T, actual, expected float64) {
	t.Helper()
	if math.Abs(actual-expected) > 0.0001 {
		t.Errorf("expected %v, but got: %v", expected, actual)
	}
}

func newHeadless(t testing.TB, sampleRate int) *Context {
	c, err := NewContext(Options{SampleRate: sampleRate, Headless: true})
	if err != nil {
		t.Fatalf("cannot create context: %v", err)
	}
	return c
}

// sine at a quarter of the sample rate: 0, 1, 0, -1, ...
func connectQuarterSine(t *testing.T, c *Context, dst Node) Oscillator {
	t.Helper()
	o, err := c.NewOscillator()
	expectNoError(t, err)
	o.Frequency().SetValueAtTime(float64(c.SampleRate())/4, 0)
	expectNoError(t, o.Connect(dst))
	expectNoError(t, o.Start(0))
	return o
}

func int16At(buf []byte, sample int, ch int) int16 {
	i := bytesPerSample*sample + 2*ch
	return int16(uint16(buf[i]) | uint16(buf[i+1])<<8)
}

func TestInvalidSampleRate(t *testing.T) {
	_, err := NewContext(Options{SampleRate: 0, Headless: true})
	if err == nil {
		t.Errorf("expected an error for sample rate 0")
	}
}

func TestClockAdvancesPerBlock(t *testing.T) {
	c := newHeadless(t, 1000)
	defer c.Close()
	expectNearlyEqual(t, c.CurrentTime(), 0)
	out := make([]float64, 100)
	expectNoError(t, c.Render(out))
	expectNearlyEqual(t, c.CurrentTime(), 0.1)
	expectNoError(t, c.Render(out))
	expectNearlyEqual(t, c.CurrentTime(), 0.2)
	expectEqual(t, c.State(), StateRunning)
}

func TestSuspendFreezesClock(t *testing.T) {
	c := newHeadless(t, 1000)
	defer c.Close()
	connectQuarterSine(t, c, c.Destination())
	out := make([]float64, 4)
	expectNoError(t, c.Suspend())
	expectEqual(t, c.State(), StateSuspended)
	expectNoError(t, c.Render(out))
	expectNearlyEqual(t, c.CurrentTime(), 0)
	for _, v := range out {
		expectEqual(t, v, 0.0)
	}
	expectNearlyEqual(t, c.Peak(), 0)

	expectNoError(t, c.Resume())
	expectEqual(t, c.State(), StateRunning)
	expectNoError(t, c.Render(out))
	expectNearlyEqual(t, c.CurrentTime(), 0.004)
	expectNearlyEqual(t, out[1], 1)
	expectNearlyEqual(t, out[3], -1)
}

func TestClosedContext(t *testing.T) {
	c := newHeadless(t, 1000)
	expectNoError(t, c.Close())
	expectNoError(t, c.Close())
	expectEqual(t, c.State(), StateClosed)
	expectError(t, c.Render(make([]float64, 4)), ErrContextClosed)
	expectError(t, c.Suspend(), ErrContextClosed)
	expectError(t, c.Resume(), ErrContextClosed)
	_, err := c.NewOscillator()
	expectError(t, err, ErrContextClosed)
	_, err = c.NewGain()
	expectError(t, err, ErrContextClosed)
	n, err := c.Read(make([]byte, 16))
	expectEqual(t, n, 0)
	expectEqual(t, err, io.EOF)
}

func TestReadWritesStereoPCM(t *testing.T) {
	c := newHeadless(t, 1000)
	defer c.Close()
	g, err := c.NewGain()
	expectNoError(t, err)
	g.Gain().SetValueAtTime(0.5, 0)
	expectNoError(t, g.Connect(c.Destination()))
	connectQuarterSine(t, c, g)

	buf := make([]byte, 4*bytesPerSample)
	n, err := c.Read(buf)
	expectNoError(t, err)
	expectEqual(t, n, len(buf))
	expectEqual(t, int16At(buf, 0, 0), int16(0))
	expectEqual(t, int16At(buf, 1, 0), int16(16383))
	expectEqual(t, int16At(buf, 1, 1), int16(16383))
	expectEqual(t, int16At(buf, 3, 0), int16(-16383))
	expectEqual(t, int16At(buf, 3, 1), int16(-16383))
	expectNearlyEqual(t, c.Peak(), 0.5)
}

func TestReadClips(t *testing.T) {
	c := newHeadless(t, 1000)
	defer c.Close()
	g, err := c.NewGain()
	expectNoError(t, err)
	g.Gain().SetValueAtTime(2, 0)
	expectNoError(t, g.Connect(c.Destination()))
	connectQuarterSine(t, c, g)

	buf := make([]byte, 4*bytesPerSample)
	_, err = c.Read(buf)
	expectNoError(t, err)
	expectEqual(t, int16At(buf, 1, 0), int16(32767))
	expectEqual(t, int16At(buf, 3, 0), int16(-32767))
	expectNearlyEqual(t, c.Peak(), 2)
}

func BenchmarkRender(b *testing.B) {
	polyphony := 10
	c := newHeadless(b, 48000)
	defer c.Close()
	for n := 0; n < polyphony; n++ {
		g, err := c.NewGain()
		if err != nil {
			b.Fatal(err)
		}
		g.Gain().SetValueAtTime(1, 0)
		g.Gain().ExponentialRampToValueAtTime(0.01, 10)
		if err := g.Connect(c.Destination()); err != nil {
			b.Fatal(err)
		}
		for _, ratio := range []float64{1, 2, 3} {
			o, err := c.NewOscillator()
			if err != nil {
				b.Fatal(err)
			}
			o.Frequency().SetValueAtTime(220*ratio*math.Pow(2, float64(n)/12), 0)
			if err := o.Connect(g); err != nil {
				b.Fatal(err)
			}
			if err := o.Start(0); err != nil {
				b.Fatal(err)
			}
		}
	}
	out := make([]float64, samplesPerCycle)
	b.ResetTimer()
	for n := 0; n < b.N; n++ {
		if err := c.Render(out); err != nil {
			b.Fatal(err)
		}
	}
}
