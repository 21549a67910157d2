package audio

import (
	"math"
	"testing"
)

func TestOscillatorPlaysBetweenStartAndStop(t *testing.T) {
	c := newHeadless(t, 1000)
	defer c.Close()
	o, err := c.NewOscillator()
	expectNoError(t, err)
	o.Frequency().SetValueAtTime(250, 0)
	expectNoError(t, o.Connect(c.Destination()))
	expectNoError(t, o.Start(0.004))
	expectNoError(t, o.Stop(0.008))

	out := make([]float64, 12)
	expectNoError(t, c.Render(out))
	for i := 0; i < 4; i++ {
		expectEqual(t, out[i], 0.0)
	}
	expectNearlyEqual(t, out[4], 0)
	expectNearlyEqual(t, out[5], 1)
	expectNearlyEqual(t, out[6], 0)
	expectNearlyEqual(t, out[7], -1)
	for i := 8; i < 12; i++ {
		expectEqual(t, out[i], 0.0)
	}
}

func TestOscillatorIsSilentUntilStarted(t *testing.T) {
	c := newHeadless(t, 1000)
	defer c.Close()
	o, err := c.NewOscillator()
	expectNoError(t, err)
	expectNoError(t, o.Connect(c.Destination()))
	out := make([]float64, 8)
	expectNoError(t, c.Render(out))
	for _, v := range out {
		expectEqual(t, v, 0.0)
	}
}

func TestOscillatorStartStopErrors(t *testing.T) {
	c := newHeadless(t, 1000)
	defer c.Close()
	o, err := c.NewOscillator()
	expectNoError(t, err)
	expectError(t, o.Stop(1), ErrInvalidState)
	expectNoError(t, o.Start(0))
	expectError(t, o.Start(0), ErrInvalidState)
	expectNoError(t, o.Stop(1))

	expectNoError(t, c.Close())
	expectError(t, o.Stop(0.5), ErrContextClosed)
}

func TestOscillatorStopOnlyMovesEarlier(t *testing.T) {
	c := newHeadless(t, 1000)
	defer c.Close()
	o, err := c.NewOscillator()
	expectNoError(t, err)
	o.Frequency().SetValueAtTime(250, 0)
	expectNoError(t, o.Connect(c.Destination()))
	expectNoError(t, o.Start(0))
	expectNoError(t, o.Stop(0.004))
	expectNoError(t, o.Stop(0.008))

	out := make([]float64, 8)
	expectNoError(t, c.Render(out))
	expectNearlyEqual(t, out[1], 1)
	for i := 4; i < 8; i++ {
		expectEqual(t, out[i], 0.0)
	}
	// already ended
	expectNoError(t, o.Stop(0.001))
}

func TestOscillatorFrequencyAutomation(t *testing.T) {
	c := newHeadless(t, 1000)
	defer c.Close()
	o, err := c.NewOscillator()
	expectNoError(t, err)
	o.Frequency().SetValueAtTime(250, 0)
	o.Frequency().SetValueAtTime(125, 0.004)
	expectNoError(t, o.Connect(c.Destination()))
	expectNoError(t, o.Start(0))

	out := make([]float64, 8)
	expectNoError(t, c.Render(out))
	expectNearlyEqual(t, out[1], 1)
	expectNearlyEqual(t, out[3], -1)
	// back at phase 0, now a quarter period every two samples
	expectNearlyEqual(t, out[4], 0)
	expectNearlyEqual(t, out[5], math.Sin(math.Pi/4))
	expectNearlyEqual(t, out[6], 1)
}

func TestWaveforms(t *testing.T) {
	expectNearlyEqual(t, waveAt(WaveSine, math.Pi/2), 1)
	expectNearlyEqual(t, waveAt(WaveTriangle, 0), -1)
	expectNearlyEqual(t, waveAt(WaveTriangle, math.Pi/2), 0)
	expectNearlyEqual(t, waveAt(WaveTriangle, math.Pi), 1)
	expectNearlyEqual(t, waveAt(WaveTriangle, 3*math.Pi/2), 0)
	expectNearlyEqual(t, waveAt(WaveSquare, math.Pi/2), 1)
	expectNearlyEqual(t, waveAt(WaveSquare, 3*math.Pi/2), -1)
	expectNearlyEqual(t, waveAt(WaveSaw, 0), -1)
	expectNearlyEqual(t, waveAt(WaveSaw, math.Pi), 0)
}
