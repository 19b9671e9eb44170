// Package tm1640 drives the board's nine TM1640 LED driver chips.
//
// To conserve GPIOs the chips share a single data line, but each has its own clock line.  A chip
// only listens while its own clock is toggled, so chips are addressed by which clock line we
// wiggle, not by anything on the wire.  Nothing is ever read back; the chips have no way to
// acknowledge anything.
package tm1640

import (
	"github.com/jrockway/segment-clock/control/pins"
	"github.com/jrockway/segment-clock/control/segments"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// NumChips is the number of driver chips on the board.
const NumChips = 9

const (
	cmdAutoIncrement = 0x40
	cmdAddressZero   = 0xC0
	cmdDisplayOn     = 0x88
)

// regions is the offset in the frame of the first cell of each chip's top row.  Each chip owns 8
// cells of two consecutive rows; the chips are 3 bands across by 3 bands down.
var regions = [NumChips]int{
	0 + 0, 0 + 8, 0 + 16,
	48 + 0, 48 + 8, 48 + 16,
	96 + 0, 96 + 8, 96 + 16,
}

// Region returns the frame offsets of the two rows that chip drives.
func Region(chip int) (rowA, rowB int) {
	return regions[chip], regions[chip] + segments.Width
}

var (
	framesPresented = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tm1640_frames_presented_total",
		Help: "count of whole frames sent to the display chips",
	})
	bytesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tm1640_bytes_sent_total",
		Help: "count of bytes clocked out to any display chip",
	})
)

// Bus is the shared data line plus one clock line per chip.
type Bus struct {
	data   pins.Line
	clocks [NumChips]pins.Line
}

// New returns a Bus.  Chip i is clocked by clocks[i].
func New(data pins.Line, clocks [NumChips]pins.Line) *Bus {
	return &Bus{data: data, clocks: clocks}
}

func (b *Bus) start(chip int) {
	b.data.Clear()
	b.clocks[chip].Clear()
}

func (b *Bus) stop(chip int) {
	b.data.Clear()
	b.clocks[chip].Set()
	b.data.Set()
}

func (b *Bus) sendBit(chip int, bit bool) {
	if bit {
		b.data.Set()
	} else {
		b.data.Clear()
	}
	// The datasheet is vague about timing here, but GPIO writes are slow enough that no delay is
	// needed between edges.
	b.clocks[chip].Set()
	b.clocks[chip].Clear()
}

// SendByte clocks out one byte, least significant bit first.
func (b *Bus) SendByte(chip int, x byte) {
	for i := 0; i < 8; i++ {
		b.sendBit(chip, x&1 != 0)
		x >>= 1
	}
	bytesSent.Inc()
}

// SendFrame writes two rows of 8 cells to a chip.
func (b *Bus) SendFrame(chip int, rowA, rowB *[8]byte) {
	b.start(chip)
	b.SendByte(chip, cmdAutoIncrement)
	b.stop(chip)

	b.start(chip)
	b.SendByte(chip, cmdAddressZero)
	for _, row := range []*[8]byte{rowA, rowB} {
		planes := Transpose(*row)
		for _, p := range planes {
			b.SendByte(chip, p)
		}
	}
	b.stop(chip)
}

// Present sends the whole frame to the display.
func (b *Bus) Present(f *segments.Frame) {
	for chip := 0; chip < NumChips; chip++ {
		var rowA, rowB [8]byte
		a, bb := Region(chip)
		copy(rowA[:], f[a:a+8])
		copy(rowB[:], f[bb:bb+8])
		b.SendFrame(chip, &rowA, &rowB)
	}
	framesPresented.Inc()
}

// AllOn turns on every chip's display.
func (b *Bus) AllOn() {
	for chip := 0; chip < NumChips; chip++ {
		b.start(chip)
		b.SendByte(chip, cmdDisplayOn)
		b.stop(chip)
	}
}
