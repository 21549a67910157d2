package audio

import "testing"

func TestGainSumsInputs(t *testing.T) {
	c := newHeadless(t, 1000)
	defer c.Close()
	g, err := c.NewGain()
	expectNoError(t, err)
	g.Gain().SetValueAtTime(0.25, 0)
	expectNoError(t, g.Connect(c.Destination()))
	connectQuarterSine(t, c, g)
	connectQuarterSine(t, c, g)

	out := make([]float64, 4)
	expectNoError(t, c.Render(out))
	expectNearlyEqual(t, out[1], 0.5)
	expectNearlyEqual(t, out[3], -0.5)
}

func TestGainAutomation(t *testing.T) {
	c := newHeadless(t, 1000)
	defer c.Close()
	g, err := c.NewGain()
	expectNoError(t, err)
	g.Gain().SetValueAtTime(0, 0)
	g.Gain().LinearRampToValueAtTime(1, 0.004)
	expectNoError(t, g.Connect(c.Destination()))
	connectQuarterSine(t, c, g)

	out := make([]float64, 8)
	expectNoError(t, c.Render(out))
	expectNearlyEqual(t, out[1], 0.25)
	expectNearlyEqual(t, out[3], -0.75)
	expectNearlyEqual(t, out[5], 1)
}

func TestConnectIsIdempotent(t *testing.T) {
	c := newHeadless(t, 1000)
	defer c.Close()
	o := connectQuarterSine(t, c, c.Destination())
	expectNoError(t, o.Connect(c.Destination()))

	out := make([]float64, 4)
	expectNoError(t, c.Render(out))
	expectNearlyEqual(t, out[1], 1)
}

func TestConnectRejectsIncompatibleNodes(t *testing.T) {
	c := newHeadless(t, 1000)
	defer c.Close()
	other := newHeadless(t, 1000)
	defer other.Close()
	o1, err := c.NewOscillator()
	expectNoError(t, err)
	o2, err := c.NewOscillator()
	expectNoError(t, err)
	g, err := c.NewGain()
	expectNoError(t, err)

	expectError(t, o1.Connect(o2), ErrIncompatibleNode)
	expectError(t, g.Connect(g), ErrIncompatibleNode)
	expectError(t, g.Connect(other.Destination()), ErrIncompatibleNode)
	expectError(t, o1.Connect(nil), ErrIncompatibleNode)
}

func TestDisconnect(t *testing.T) {
	c := newHeadless(t, 1000)
	defer c.Close()
	o := connectQuarterSine(t, c, c.Destination())
	expectNoError(t, o.Disconnect())
	expectError(t, o.Disconnect(), ErrNotConnected)

	out := make([]float64, 4)
	expectNoError(t, c.Render(out))
	for _, v := range out {
		expectEqual(t, v, 0.0)
	}

	expectNoError(t, c.Close())
	expectError(t, o.Disconnect(), ErrContextClosed)
	expectError(t, o.Connect(c.Destination()), ErrContextClosed)
}

func TestFanOutRendersSourceOnce(t *testing.T) {
	c := newHeadless(t, 1000)
	defer c.Close()
	g1, err := c.NewGain()
	expectNoError(t, err)
	g2, err := c.NewGain()
	expectNoError(t, err)
	expectNoError(t, g1.Connect(c.Destination()))
	expectNoError(t, g2.Connect(c.Destination()))
	o := connectQuarterSine(t, c, g1)
	expectNoError(t, o.Connect(g2))

	out := make([]float64, 4)
	expectNoError(t, c.Render(out))
	// phase would have advanced twice per sample otherwise
	expectNearlyEqual(t, out[1], 2)
	expectNearlyEqual(t, out[3], -2)
}

func TestCycleDoesNotRecurse(t *testing.T) {
	c := newHeadless(t, 1000)
	defer c.Close()
	g1, err := c.NewGain()
	expectNoError(t, err)
	g2, err := c.NewGain()
	expectNoError(t, err)
	expectNoError(t, g1.Connect(g2))
	expectNoError(t, g2.Connect(g1))
	expectNoError(t, g2.Connect(c.Destination()))
	connectQuarterSine(t, c, g1)

	out := make([]float64, 4)
	expectNoError(t, c.Render(out))
	expectNearlyEqual(t, out[1], 1)
}
