package sim

import (
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/jrockway/segment-clock/control/tm1640"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
)

// Button is an active-low push button with an edge-detecting input pin.  The level changes as
// soon as Press or Release is called; WaitForEdge only reports that it changed.
type Button struct {
	*gpiotest.Pin
	edges chan struct{}
}

// NewButton returns a released button.
func NewButton(name string) *Button {
	return &Button{
		// EdgesChan is never sent on; gpiotest just insists that it exists before edge
		// detection is enabled.
		Pin:   &gpiotest.Pin{N: name, L: gpio.High, EdgesChan: make(chan gpio.Level)},
		edges: make(chan struct{}, 1),
	}
}

// Press pushes the button down.
func (b *Button) Press() {
	b.set(gpio.Low)
}

// Release lets the button back up.
func (b *Button) Release() {
	b.set(gpio.High)
}

// Tap presses the button and releases it after d.
func (b *Button) Tap(d time.Duration) {
	b.Press()
	time.AfterFunc(d, b.Release)
}

func (b *Button) set(l gpio.Level) {
	if b.Pin.Read() == l {
		return
	}
	_ = b.Pin.Out(l)
	select {
	case b.edges <- struct{}{}:
	default:
	}
}

// WaitForEdge implements gpio.PinIn.
func (b *Button) WaitForEdge(timeout time.Duration) bool {
	var expired <-chan time.Time
	if timeout >= 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		expired = t.C
	}
	select {
	case <-b.edges:
		return true
	case <-expired:
		return false
	}
}

// Board is the whole simulated circuit board.
type Board struct {
	RTC   *DS1307
	Panel *Panel

	Set *Button
	Inc *Button
	Dec *Button

	rtcSCL, rtcSDA *Wire
	data           *Wire
	clocks         [tm1640.NumChips]*Wire
}

// NewBoard builds a board whose RTC keeps time with clock.
func NewBoard(clock clockwork.Clock) *Board {
	b := &Board{
		rtcSCL: NewWire("RTC_SCL"),
		rtcSDA: NewWire("RTC_SDA"),
		data:   NewWire("DISPLAY_DIN"),
		Set:    NewButton("SET"),
		Inc:    NewButton("INC"),
		Dec:    NewButton("DEC"),
	}
	for i := range b.clocks {
		b.clocks[i] = NewWire(fmt.Sprintf("DISPLAY_CLK%d", i))
	}
	b.RTC = NewDS1307(clock, b.rtcSCL, b.rtcSDA)
	b.Panel = NewPanel(b.data, b.clocks)
	return b
}

// RTCPins returns the controller's ends of the RTC bus.
func (b *Board) RTCPins() (scl, sda gpio.PinIO) {
	return b.rtcSCL.Pin(), b.rtcSDA.Pin()
}

// DisplayPins returns the controller's ends of the display bus.
func (b *Board) DisplayPins() (data gpio.PinIO, clocks [tm1640.NumChips]gpio.PinIO) {
	for i, w := range b.clocks {
		clocks[i] = w.Pin()
	}
	return b.data.Pin(), clocks
}
