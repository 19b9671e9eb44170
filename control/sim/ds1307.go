package sim

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"periph.io/x/conn/v3/gpio"
)

const (
	rtcAddress   = 0x68
	rtcClockHalt = 0x80
	rtc12Hour    = 0x40
	rtcPM        = 0x20
)

type busState int

const (
	busIdle busState = iota
	busIgnore
	busAddress
	busPointer
	busData
	busSend
)

// DS1307 models a DS1307 real-time clock on an SCL and SDA wire.  It understands single and
// multi-byte reads and writes with a repeated start, which is all the driver uses.
//
// The oscillator runs off the given clock while the clock halt bit is clear.  Only seconds,
// minutes, and hours are kept; the date registers don't advance.
type DS1307 struct {
	clock clockwork.Clock
	scl   *Wire
	sda   *Wire

	mu      sync.Mutex
	regs    [64]byte
	since   time.Time
	state   busState
	next    busState
	bit     int
	shift   byte
	out     byte
	acked   bool
	pointer byte
}

// NewDS1307 attaches a chip to the given wires.  It starts in the state of a chip that lost its
// backup battery: all zeroes, with the oscillator halted.
func NewDS1307(clock clockwork.Clock, scl, sda *Wire) *DS1307 {
	d := &DS1307{clock: clock, scl: scl, sda: sda, since: clock.Now()}
	d.regs[0] = rtcClockHalt
	scl.Watch(d.onClock)
	sda.Watch(d.onData)
	return d
}

// Registers returns the contents of the chip's registers.
func (d *DS1307) Registers() [64]byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tick()
	return d.regs
}

// SetRegisters overwrites registers starting at reg, as though the chip had been written to over
// the bus.
func (d *DS1307) SetRegisters(reg byte, data ...byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tick()
	for _, b := range data {
		d.write(reg, b)
		reg = (reg + 1) % byte(len(d.regs))
	}
}

func (d *DS1307) write(reg, b byte) {
	if reg == 0 {
		// Writing the seconds register resets the countdown chain.
		d.since = d.clock.Now()
	}
	d.regs[reg] = b
}

func (d *DS1307) onData(l gpio.Level) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.scl.Level() == gpio.Low {
		return
	}
	d.sda.Hold(false)
	if l == gpio.Low {
		// START, or a repeated START.
		d.tick()
		d.state, d.bit, d.shift = busAddress, 0, 0
		return
	}
	d.state = busIdle
}

func (d *DS1307) onClock(l gpio.Level) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == busIdle || d.state == busIgnore {
		return
	}
	if l == gpio.High {
		d.rise()
	} else {
		d.fall()
	}
}

func (d *DS1307) rise() {
	switch {
	case d.bit == 8:
		d.acked = d.sda.Level() == gpio.Low
	case d.state != busSend:
		d.shift <<= 1
		if d.sda.Level() == gpio.High {
			d.shift |= 1
		}
	}
	d.bit++
}

func (d *DS1307) fall() {
	switch {
	case d.bit == 8 && d.state == busSend:
		// The controller acknowledges.
		d.sda.Hold(false)
	case d.bit == 8:
		if d.receive(d.shift) {
			d.sda.Hold(true)
		} else {
			d.state = busIgnore
		}
	case d.bit == 9:
		d.bit, d.shift = 0, 0
		d.sda.Hold(false)
		if d.state == busSend {
			if !d.acked {
				d.state = busIgnore
				return
			}
		} else {
			d.state = d.next
		}
		if d.state == busSend {
			d.load()
		}
	case d.state == busSend:
		d.sda.Hold(d.out&(0x80>>d.bit) == 0)
	}
}

// receive handles a byte from the controller and reports whether to acknowledge it.
func (d *DS1307) receive(b byte) bool {
	switch d.state {
	case busAddress:
		if b>>1 != rtcAddress {
			return false
		}
		if b&1 == 1 {
			d.next = busSend
		} else {
			d.next = busPointer
		}
	case busPointer:
		d.pointer = b % byte(len(d.regs))
		d.next = busData
	case busData:
		d.write(d.pointer, b)
		d.pointer = (d.pointer + 1) % byte(len(d.regs))
		d.next = busData
	}
	return true
}

// load latches the register at the pointer for sending and puts its first bit on the wire.
func (d *DS1307) load() {
	d.out = d.regs[d.pointer]
	d.pointer = (d.pointer + 1) % byte(len(d.regs))
	d.sda.Hold(d.out&0x80 == 0)
}

func (d *DS1307) tick() {
	now := d.clock.Now()
	if d.regs[0]&rtcClockHalt != 0 {
		d.since = now
		return
	}
	n := int(now.Sub(d.since) / time.Second)
	if n <= 0 {
		return
	}
	d.since = d.since.Add(time.Duration(n) * time.Second)
	d.advance(n)
}

func fromBCD(b byte) int {
	return int(b>>4)*10 + int(b&0x0F)
}

func toBCD(n int) byte {
	return byte(n/10)<<4 | byte(n%10)
}

// advance moves the time registers forward by n seconds.
func (d *DS1307) advance(n int) {
	const day = 24 * 60 * 60
	seconds := fromBCD(d.regs[0] & 0x7F)
	minutes := fromBCD(d.regs[1] & 0x7F)
	var hours int
	twelve := d.regs[2]&rtc12Hour != 0
	if twelve {
		hours = fromBCD(d.regs[2]&0x1F) % 12
		if d.regs[2]&rtcPM != 0 {
			hours += 12
		}
	} else {
		hours = fromBCD(d.regs[2] & 0x3F)
	}

	t := ((hours*60+minutes)*60 + seconds + n) % day
	d.regs[0] = toBCD(t % 60)
	d.regs[1] = toBCD(t / 60 % 60)
	hours = t / 3600
	if !twelve {
		d.regs[2] = toBCD(hours)
		return
	}
	h := byte(rtc12Hour)
	if hours >= 12 {
		h |= rtcPM
	}
	if hours%12 == 0 {
		h |= toBCD(12)
	} else {
		h |= toBCD(hours % 12)
	}
	d.regs[2] = h
}
