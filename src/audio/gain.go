package audio

import "github.com/viterin/vek"

// source is anything a GainNode can pull a block from.
type source interface {
	process(frame int64, size int) []float64
}

// ----- Port ----- //

// port is the output side shared by every node.
type port struct {
	ctx     *Context
	self    source
	outputs []*GainNode
}

// Connect routes this node into dst, which must be a gain node of the same context.
func (p *port) Connect(dst Node) error {
	p.ctx.mu.Lock()
	defer p.ctx.mu.Unlock()
	if p.ctx.state == StateClosed {
		return ErrContextClosed
	}
	g, ok := dst.(*GainNode)
	if !ok || g.ctx != p.ctx || source(g) == p.self {
		return ErrIncompatibleNode
	}
	for _, o := range p.outputs {
		if o == g {
			return nil
		}
	}
	p.outputs = append(p.outputs, g)
	g.inputs = append(g.inputs, p.self)
	return nil
}

// Disconnect removes every outgoing connection.
func (p *port) Disconnect() error {
	p.ctx.mu.Lock()
	defer p.ctx.mu.Unlock()
	if p.ctx.state == StateClosed {
		return ErrContextClosed
	}
	if len(p.outputs) == 0 {
		return ErrNotConnected
	}
	for _, g := range p.outputs {
		g.removeInput(p.self)
	}
	p.outputs = nil
	return nil
}

// ----- Gain Node ----- //

// GainNode sums its inputs and scales them by Gain().
type GainNode struct {
	*port
	gain       *AudioParam
	inputs     []source
	out        []float64
	gainBuf    []float64
	renderedAt int64
}

var _ Gain = (*GainNode)(nil)

func newGainNode(ctx *Context, value float64) *GainNode {
	g := &GainNode{
		port:       &port{ctx: ctx},
		gain:       newAudioParam(ctx, value),
		renderedAt: -1,
	}
	g.self = g
	return g
}

// Gain ...
func (g *GainNode) Gain() Param {
	return g.gain
}

func (g *GainNode) removeInput(s source) {
	for i, in := range g.inputs {
		if in == s {
			g.inputs = append(g.inputs[:i], g.inputs[i+1:]...)
			return
		}
	}
}

func (g *GainNode) process(frame int64, size int) []float64 {
	if g.renderedAt == frame && len(g.out) == size {
		return g.out
	}
	// marked before pulling inputs so a cycle reads silence instead of recursing
	g.renderedAt = frame
	g.out = resize(g.out, size)
	for i := range g.out {
		g.out[i] = 0
	}
	for _, in := range g.inputs {
		vek.Add_Inplace(g.out, in.process(frame, size))
	}
	g.gainBuf = resize(g.gainBuf, size)
	g.gain.fill(frame, g.ctx.sampleRate, g.gainBuf)
	vek.Mul_Inplace(g.out, g.gainBuf)
	return g.out
}
