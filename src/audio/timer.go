package audio

import "container/heap"

// ----- Timer ----- //

type timer struct {
	ctx   *Context
	at    float64 // sec
	seq   uint64
	f     func()
	index int // -1 when fired, stopped or never queued
}

// Stop cancels the timer. It reports whether the call stopped a pending timer.
func (t *timer) Stop() bool {
	t.ctx.mu.Lock()
	defer t.ctx.mu.Unlock()
	if t.index < 0 {
		return false
	}
	heap.Remove(&t.ctx.timers, t.index)
	return true
}

// AfterFunc calls f after the block in which the clock passes t.
// On a closed context the returned timer never fires.
func (c *Context) AfterFunc(t float64, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	tm := &timer{ctx: c, at: t, f: f, index: -1}
	if c.state == StateClosed {
		return tm
	}
	c.timerSeq++
	tm.seq = c.timerSeq
	heap.Push(&c.timers, tm)
	return tm
}

// ----- Timer Queue ----- //

type timerQueue []*timer

var _ heap.Interface = (*timerQueue)(nil)

func (q timerQueue) Len() int { return len(q) }
func (q timerQueue) Less(i, j int) bool {
	if q[i].at == q[j].at {
		return q[i].seq < q[j].seq
	}
	return q[i].at < q[j].at
}
func (q timerQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}
func (q *timerQueue) Push(x interface{}) {
	t := x.(*timer)
	t.index = len(*q)
	*q = append(*q, t)
}
func (q *timerQueue) Pop() interface{} {
	old := *q
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*q = old[:n-1]
	return t
}

func (q *timerQueue) popDue(now float64) []func() {
	var due []func()
	for q.Len() > 0 && (*q)[0].at <= now {
		t := heap.Pop(q).(*timer)
		due = append(due, t.f)
	}
	return due
}

func (q *timerQueue) clear() {
	for _, t := range *q {
		t.index = -1
	}
	*q = nil
}
