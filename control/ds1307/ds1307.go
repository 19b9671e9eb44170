// Package ds1307 talks to a DS1307 real-time clock over two GPIO lines.
//
// There is no I2C controller involved.  The protocol is bit-banged with just enough of I2C to
// talk to one chip: no clock stretching, no arbitration, and acknowledgements are clocked but
// never checked.  A bad transfer looks like a good one and just produces a stale or wrong reading
// until the next one.
package ds1307

import (
	"github.com/jrockway/segment-clock/control/pins"
	"github.com/jrockway/segment-clock/control/timeofday"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Register is an address in the DS1307's register file.
type Register uint8

const (
	RegisterSeconds Register = 0x00
	RegisterMinutes Register = 0x01
	RegisterHours   Register = 0x02
)

// Address is the chip's bus address, already shifted into the high 7 bits.
const Address = 0b11010000

type direction uint8

const (
	write direction = 0
	read  direction = 1
)

// ClockHalt is the top bit of the seconds register.  It's set when the chip powered up without
// its backup battery and the oscillator is stopped.
const ClockHalt = 0x80

type ack bool

const (
	sendAck  ack = true
	sendNack ack = false
)

var (
	transfers = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ds1307_transfers_total",
		Help: "count of transfers with the rtc, by direction",
	}, []string{"direction"})
	coldStarts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ds1307_cold_starts_total",
		Help: "count of times the rtc was found halted and reset to 12:00",
	})
)

// RTC is a DS1307 on a clock line and an open-drain data line.  The data line is pulled up
// externally; we only ever drive it low or let go of it.
type RTC struct {
	scl pins.Line
	sda pins.Line
}

// New returns an RTC.  It doesn't touch the bus.
func New(scl, sda pins.Line) *RTC {
	return &RTC{scl: scl, sda: sda}
}

func (r *RTC) start() {
	r.scl.Set()
	r.sda.Clear()
	r.scl.Clear()
}

func (r *RTC) stop() {
	r.sda.Clear()
	r.scl.Set()
	r.sda.Tristate()
}

func (r *RTC) pulse() {
	r.scl.Set()
	r.scl.Clear()
}

// tx sends a byte, most significant bit first, then clocks the acknowledgement and ignores it.
func (r *RTC) tx(b byte) {
	for i := byte(1 << 7); i != 0; i >>= 1 {
		if b&i != 0 {
			r.sda.Tristate()
		} else {
			r.sda.Clear()
		}
		r.pulse()
	}
	r.sda.Tristate()
	r.pulse()
}

// rx reads a byte, most significant bit first, then acknowledges it or not.
func (r *RTC) rx(a ack) byte {
	var b byte
	r.sda.Tristate()
	for i := 0; i < 8; i++ {
		r.scl.Set()
		b <<= 1
		if r.sda.Read() {
			b |= 1
		}
		r.scl.Clear()
	}
	if a == sendAck {
		r.sda.Clear()
	} else {
		r.sda.Tristate()
	}
	r.pulse()
	return b
}

// begin addresses the chip and sets its register pointer.  For reads, it then issues a repeated
// start and readdresses the chip for reading.
func (r *RTC) begin(dir direction, reg Register) {
	r.start()
	r.tx(Address | byte(write))
	r.tx(byte(reg))
	if dir == read {
		r.start()
		r.tx(Address | byte(read))
	}
}

// ReadRegisters fills buf with consecutive registers starting at reg.
func (r *RTC) ReadRegisters(reg Register, buf []byte) {
	if len(buf) == 0 {
		return
	}
	transfers.WithLabelValues("read").Inc()
	r.begin(read, reg)
	for i := range buf {
		a := sendAck
		if i == len(buf)-1 {
			a = sendNack
		}
		buf[i] = r.rx(a)
	}
	r.stop()
}

// WriteRegisters writes data to consecutive registers starting at reg.
func (r *RTC) WriteRegisters(reg Register, data ...byte) {
	transfers.WithLabelValues("write").Inc()
	r.begin(write, reg)
	for _, b := range data {
		r.tx(b)
	}
	r.stop()
}

// Init checks whether the chip kept time while the board was off.  If it didn't, the clock is
// started at 12:00 AM in 12-hour mode.  It returns true in that case.
func (r *RTC) Init() bool {
	transfers.WithLabelValues("read").Inc()
	r.begin(read, RegisterSeconds)
	seconds := r.rx(sendNack)
	halted := seconds&ClockHalt != 0
	if halted {
		coldStarts.Inc()
		transfers.WithLabelValues("write").Inc()
		minutes, hours := timeofday.Midnight.Encode()
		r.begin(write, RegisterSeconds)
		r.tx(0) // also clears ClockHalt
		r.tx(minutes)
		r.tx(hours)
	}
	r.stop()
	return halted
}

// ReadTime reads the minutes and hours registers.  Invalid times are returned along with an error
// wrapping timeofday.ErrInvalid.
func (r *RTC) ReadTime() (timeofday.Time, error) {
	var buf [2]byte
	r.ReadRegisters(RegisterMinutes, buf[:])
	return timeofday.Decode(buf[0], buf[1])
}

// WriteTime sets the clock to s.  Seconds are reset to zero.
func (r *RTC) WriteTime(s timeofday.Setting) {
	minutes, hours := s.Encode()
	r.WriteRegisters(RegisterSeconds, 0, minutes, hours)
}
