package irq

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/jrockway/segment-clock/control/pins"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultTickPeriod is the overflow period of a 16-bit timer counting at 1MHz, which is how
	// often the time is read from the RTC.
	DefaultTickPeriod = 65536 * time.Microsecond
	// DefaultDebounce is how long the button handler waits before sampling the buttons.
	DefaultDebounce = 10 * time.Millisecond

	// edgePoll is how often the pin change source checks for shutdown while waiting for edges.
	edgePoll = 100 * time.Millisecond
)

// Timer triggers v every period until ctx is done.
func Timer(ctx context.Context, clock clockwork.Clock, period time.Duration, v *Vector) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-clock.After(period):
			v.Trigger()
		}
	}
}

// PinChange triggers v whenever any of the inputs changes level, until ctx is done.
func PinChange(ctx context.Context, v *Vector, inputs ...pins.Input) error {
	eg, ctx := errgroup.WithContext(ctx)
	for _, in := range inputs {
		in := in
		eg.Go(func() error {
			for ctx.Err() == nil {
				if in.WaitForEdge(edgePoll) {
					v.Trigger()
				}
			}
			return ctx.Err()
		})
	}
	return eg.Wait()
}

// Buttons are the three front panel buttons.  They read low while pressed.
type Buttons struct {
	Set pins.Input
	Inc pins.Input
	Dec pins.Input
}

// Pressed returns the event for the first pressed button in the order Set, Inc, Dec, or None if
// no button is down.
func (b Buttons) Pressed() Event {
	switch {
	case !b.Set.Read():
		return SetPressed
	case !b.Inc.Read():
		return IncPressed
	case !b.Dec.Read():
		return DecPressed
	}
	return None
}

// TickHandler is the timer's handler.
func TickHandler(m *Mailbox) func() {
	return func() { m.Post(TimeTick) }
}

// ButtonHandler is the pin change handler.  It waits for the contacts to settle and then posts
// whichever button is down.  A release posts None.
func ButtonHandler(m *Mailbox, clock clockwork.Clock, debounce time.Duration, b Buttons) func() {
	return func() {
		clock.Sleep(debounce)
		m.Post(b.Pressed())
	}
}

// Interrupts is the board's complete interrupt setup: the timer and the buttons, both reporting
// through one mailbox.
type Interrupts struct {
	*Mailbox
	*CPU

	clock   clockwork.Clock
	period  time.Duration
	buttons Buttons
	timer   *Vector
	pcint   *Vector
}

// New wires up the timer and button interrupts.  Nothing runs until Run is called.
func New(clock clockwork.Clock, period, debounce time.Duration, buttons Buttons) *Interrupts {
	i := &Interrupts{
		Mailbox: new(Mailbox),
		CPU:     NewCPU(),
		clock:   clock,
		period:  period,
		buttons: buttons,
	}
	i.timer = i.Vector("timer", TickHandler(i.Mailbox))
	i.pcint = i.Vector("buttons", ButtonHandler(i.Mailbox, clock, debounce, buttons))
	return i
}

// Run starts the interrupt sources and services interrupts until ctx is done.
func (i *Interrupts) Run(ctx context.Context) error {
	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error { return i.CPU.Run(ctx) })
	eg.Go(func() error { return Timer(ctx, i.clock, i.period, i.timer) })
	eg.Go(func() error {
		return PinChange(ctx, i.pcint, i.buttons.Set, i.buttons.Inc, i.buttons.Dec)
	})
	return eg.Wait()
}
