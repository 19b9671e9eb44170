package pins

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
)

type periphLine struct {
	pin   gpio.PinIO
	latch *Latch
}

// Periph adapts a periph.io pin.  Driver errors go to latch.
func Periph(p gpio.PinIO, latch *Latch) Line {
	return &periphLine{pin: p, latch: latch}
}

// ByName looks up a pin in the periph.io registry, like "P9_12" or "GPIO23".  host.Init must have
// been called already.
func ByName(name string, latch *Latch) (Line, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("no gpio pin named %q", name)
	}
	return Periph(p, latch), nil
}

func (l *periphLine) Set() {
	if err := l.pin.Out(gpio.High); err != nil {
		l.latch.record(fmt.Errorf("%s: set: %w", l.pin.Name(), err))
	}
}

func (l *periphLine) Clear() {
	if err := l.pin.Out(gpio.Low); err != nil {
		l.latch.record(fmt.Errorf("%s: clear: %w", l.pin.Name(), err))
	}
}

func (l *periphLine) Read() bool {
	return l.pin.Read() == gpio.High
}

func (l *periphLine) Tristate() {
	// Float, not PullUp: the bus has its own resistors.
	if err := l.pin.In(gpio.Float, gpio.NoEdge); err != nil {
		l.latch.record(fmt.Errorf("%s: tristate: %w", l.pin.Name(), err))
	}
}

func (l *periphLine) String() string {
	return l.pin.String()
}

type periphInput struct {
	pin gpio.PinIO
}

// PeriphButton configures p as an active-low button input with the internal pull-up enabled and
// edge detection on both edges.
func PeriphButton(p gpio.PinIO) (Input, error) {
	if err := p.In(gpio.PullUp, gpio.BothEdges); err != nil {
		return nil, fmt.Errorf("configure %s as button: %w", p.Name(), err)
	}
	return &periphInput{pin: p}, nil
}

// ButtonByName is PeriphButton for a pin in the periph.io registry.
func ButtonByName(name string) (Input, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("no gpio pin named %q", name)
	}
	return PeriphButton(p)
}

func (i *periphInput) Read() bool {
	return i.pin.Read() == gpio.High
}

func (i *periphInput) WaitForEdge(timeout time.Duration) bool {
	return i.pin.WaitForEdge(timeout)
}
