package pins

import (
	"fmt"
	"strconv"
	"time"

	"github.com/stianeikeland/go-rpio"
)

// rpioPoll is how often an rpio input is sampled while waiting for an edge.
const rpioPoll = time.Millisecond

type rpioLine struct {
	pin rpio.Pin
}

// Rpio adapts a Raspberry Pi pin driven through /dev/gpiomem.  rpio.Open must have been called.
// rpio writes registers directly and never fails, so there is no latch.
func Rpio(p rpio.Pin) Line {
	return &rpioLine{pin: p}
}

// RpioByName parses a BCM pin number.
func RpioByName(name string) (Line, error) {
	n, err := strconv.Atoi(name)
	if err != nil {
		return nil, fmt.Errorf("parse bcm pin number %q: %w", name, err)
	}
	return Rpio(rpio.Pin(n)), nil
}

// The level is written before switching to output so an open-drain line never glitches high.

func (l *rpioLine) Set() {
	l.pin.High()
	l.pin.Output()
}

func (l *rpioLine) Clear() {
	l.pin.Low()
	l.pin.Output()
}

func (l *rpioLine) Read() bool {
	return l.pin.Read() == rpio.High
}

func (l *rpioLine) Tristate() {
	l.pin.Input()
	l.pin.PullOff()
}

type rpioInput struct {
	pin  rpio.Pin
	last rpio.State
}

// RpioButton configures a BCM pin as an active-low button with the internal pull-up.
func RpioButton(name string) (Input, error) {
	n, err := strconv.Atoi(name)
	if err != nil {
		return nil, fmt.Errorf("parse bcm pin number %q: %w", name, err)
	}
	p := rpio.Pin(n)
	p.Input()
	p.PullUp()
	return &rpioInput{pin: p, last: p.Read()}, nil
}

func (i *rpioInput) Read() bool {
	return i.pin.Read() == rpio.High
}

func (i *rpioInput) WaitForEdge(timeout time.Duration) bool {
	var deadline time.Time
	if timeout >= 0 {
		deadline = time.Now().Add(timeout)
	}
	for {
		if s := i.pin.Read(); s != i.last {
			i.last = s
			return true
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			return false
		}
		time.Sleep(rpioPoll)
	}
}
