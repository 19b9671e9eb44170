// Package sim is a software model of the clock's circuit board: the RTC chip, the display driver
// chips, and the buttons, connected to the controller by simulated wires.
//
// It lets the real drivers run unmodified on a machine without any of the hardware, which is how
// the tests exercise the bus protocols end to end and how run-clock works with -simulate.
package sim

import (
	"fmt"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
)

// Wire is one net on the board, with a pull-up resistor.  The controller drives one end of it
// through a Pin.  Devices watch it for level changes and may pull it low.  Only one device may
// pull a given wire.
type Wire struct {
	name string

	mu       sync.Mutex
	driven   bool
	drive    gpio.Level
	pulled   bool
	watchers []func(gpio.Level)
}

// NewWire returns an undriven wire, which reads high.
func NewWire(name string) *Wire {
	return &Wire{name: name}
}

func (w *Wire) levelLocked() gpio.Level {
	if w.pulled {
		return gpio.Low
	}
	if w.driven {
		return w.drive
	}
	return gpio.High
}

// Level returns the level of the wire as seen by anything attached to it.
func (w *Wire) Level() gpio.Level {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.levelLocked()
}

// Watch calls f with the new level whenever the controller changes the level of the wire.
// Changes caused by devices are not reported.  f is called on the controller's goroutine, after
// the wire has been unlocked.
func (w *Wire) Watch(f func(gpio.Level)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.watchers = append(w.watchers, f)
}

// Hold pulls the wire low from the device side, or lets go of it.
func (w *Wire) Hold(low bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pulled = low
}

func (w *Wire) set(driven bool, l gpio.Level) {
	w.mu.Lock()
	before := w.levelLocked()
	w.driven, w.drive = driven, l
	after := w.levelLocked()
	watchers := w.watchers
	w.mu.Unlock()
	if before == after {
		return
	}
	for _, f := range watchers {
		f(after)
	}
}

// Pin returns the controller's end of the wire.
func (w *Wire) Pin() *Pin {
	return &Pin{Pin: &gpiotest.Pin{N: w.name}, wire: w}
}

func (w *Wire) String() string {
	return fmt.Sprintf("%s=%v", w.name, w.Level())
}

// Pin is a periph.io pin attached to a Wire.  Out drives the wire and In releases it.
type Pin struct {
	*gpiotest.Pin
	wire *Wire
}

// Out implements gpio.PinOut.
func (p *Pin) Out(l gpio.Level) error {
	p.wire.set(true, l)
	return nil
}

// In implements gpio.PinIn.  Pulls are ignored; every wire has a pull-up.
func (p *Pin) In(pull gpio.Pull, edge gpio.Edge) error {
	if edge != gpio.NoEdge {
		return fmt.Errorf("%s: edge detection is not simulated on bus wires", p.N)
	}
	p.wire.set(false, gpio.Low)
	return nil
}

// Read implements gpio.PinIn.
func (p *Pin) Read() gpio.Level {
	return p.wire.Level()
}
