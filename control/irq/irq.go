// Package irq models the interrupt hardware the clock's main loop is built around.
//
// Interrupt sources (a free-running timer and the buttons' pin change interrupt) mark their
// vector pending at any time.  Handlers only run while the main loop is asleep in CPU.Sleep, one
// per call, and never nested.  Handlers report what happened by posting an Event to a single-slot
// Mailbox, which the main loop takes after it wakes up.  Anything posted while an earlier event
// is still in the mailbox replaces it.
package irq

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/errgroup"
)

// Event is what an interrupt handler saw.
type Event uint32

const (
	None Event = iota
	SetPressed
	IncPressed
	DecPressed
	TimeTick
)

func (e Event) String() string {
	switch e {
	case None:
		return "none"
	case SetPressed:
		return "set"
	case IncPressed:
		return "inc"
	case DecPressed:
		return "dec"
	case TimeTick:
		return "tick"
	}
	return fmt.Sprintf("event(%d)", uint32(e))
}

// Mailbox holds at most one Event.  The zero value is empty.
type Mailbox struct {
	v atomic.Uint32
}

// Post replaces whatever is in the mailbox with e.
func (m *Mailbox) Post(e Event) {
	m.v.Store(uint32(e))
}

// Take empties the mailbox and returns what was in it.
func (m *Mailbox) Take() Event {
	return Event(m.v.Swap(uint32(None)))
}

var (
	serviced = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "irq_interrupts_serviced_total",
		Help: "count of interrupt handlers run, by vector",
	}, []string{"vector"})
	coalesced = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "irq_interrupts_coalesced_total",
		Help: "count of interrupts raised while the vector was already pending, by vector",
	}, []string{"vector"})
)

// CPU gates interrupt handlers.  Handlers run only inside Sleep.
type CPU struct {
	enable  chan struct{}
	done    chan struct{}
	vectors []*Vector
}

// NewCPU returns a CPU with no vectors.
func NewCPU() *CPU {
	return &CPU{
		enable: make(chan struct{}),
		done:   make(chan struct{}, 1),
	}
}

// Vector is one interrupt source's pending flag and handler.
type Vector struct {
	name    string
	cpu     *CPU
	handler func()
	pending chan struct{}
}

// Vector adds an interrupt vector.  All vectors must be added before Run.
func (c *CPU) Vector(name string, handler func()) *Vector {
	v := &Vector{
		name:    name,
		cpu:     c,
		handler: handler,
		pending: make(chan struct{}, 1),
	}
	c.vectors = append(c.vectors, v)
	return v
}

// Trigger marks the vector pending.  It never blocks.  Triggering an already-pending vector does
// nothing, the same as setting an interrupt flag that's already set.
func (v *Vector) Trigger() {
	select {
	case v.pending <- struct{}{}:
	default:
		coalesced.WithLabelValues(v.name).Inc()
	}
}

func (v *Vector) String() string {
	return v.name
}

func (v *Vector) serve(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-v.pending:
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-v.cpu.enable:
		}
		// The pending flag clears on entry.
		select {
		case <-v.pending:
		default:
		}
		v.handler()
		serviced.WithLabelValues(v.name).Inc()
		v.cpu.done <- struct{}{}
	}
}

// Run services interrupts until ctx is done.
func (c *CPU) Run(ctx context.Context) error {
	eg, ctx := errgroup.WithContext(ctx)
	for _, v := range c.vectors {
		v := v
		eg.Go(func() error { return v.serve(ctx) })
	}
	return eg.Wait()
}

// Sleep enables interrupts, waits for exactly one handler to run, and disables them again.  If
// an interrupt is already pending it's handled right away.
func (c *CPU) Sleep(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case c.enable <- struct{}{}:
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return nil
	}
}
