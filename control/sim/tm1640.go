package sim

import (
	"sync"

	"github.com/jrockway/segment-clock/control/segments"
	"github.com/jrockway/segment-clock/control/tm1640"
	"periph.io/x/conn/v3/gpio"
)

type tm1640Chip struct {
	clk *Wire

	listening bool
	command   bool
	writing   bool
	fixed     bool
	bit       int
	shift     byte
	addr      int
	ram       [16]byte
	on        bool
}

func (c *tm1640Chip) start() {
	c.listening, c.command, c.writing = true, true, false
	c.bit, c.shift = 0, 0
}

func (c *tm1640Chip) receive(b byte) {
	if c.command {
		c.command = false
		switch b & 0xC0 {
		case 0x40:
			c.fixed = b&0x04 != 0
		case 0xC0:
			c.addr = int(b & 0x0F)
			c.writing = true
		case 0x80:
			c.on = b&0x08 != 0
		}
		return
	}
	if !c.writing {
		return
	}
	c.ram[c.addr] = b
	if !c.fixed {
		c.addr = (c.addr + 1) % len(c.ram)
	}
}

// Panel models the board's display: nine TM1640 chips sharing a data wire, each with its own
// clock wire.
type Panel struct {
	data *Wire

	mu    sync.Mutex
	chips [tm1640.NumChips]*tm1640Chip
}

// NewPanel attaches the chips to their wires.
func NewPanel(data *Wire, clocks [tm1640.NumChips]*Wire) *Panel {
	p := &Panel{data: data}
	for i, clk := range clocks {
		c := &tm1640Chip{clk: clk}
		p.chips[i] = c
		clk.Watch(func(l gpio.Level) { p.onClock(c, l) })
	}
	data.Watch(p.onData)
	return p
}

func (p *Panel) onData(l gpio.Level) {
	p.mu.Lock()
	defer p.mu.Unlock()
	// Every chip whose clock is idling high sees this, not just the one being talked to.
	for _, c := range p.chips {
		if c.clk.Level() == gpio.Low {
			continue
		}
		if l == gpio.Low {
			c.start()
		} else {
			c.listening = false
		}
	}
}

func (p *Panel) onClock(c *tm1640Chip, l gpio.Level) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if l == gpio.Low || !c.listening {
		return
	}
	if p.data.Level() == gpio.High {
		c.shift |= 1 << c.bit
	}
	c.bit++
	if c.bit == 8 {
		c.receive(c.shift)
		c.bit, c.shift = 0, 0
	}
}

// Lit reports whether chip has been turned on.
func (p *Panel) Lit(chip int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.chips[chip].on
}

// Frame reconstructs what the panel is showing.  Cells driven by chips that haven't been turned
// on are blank.
func (p *Panel) Frame() segments.Frame {
	p.mu.Lock()
	defer p.mu.Unlock()
	var f segments.Frame
	for i, c := range p.chips {
		if !c.on {
			continue
		}
		var planesA, planesB [8]byte
		copy(planesA[:], c.ram[:8])
		copy(planesB[:], c.ram[8:])
		rowA, rowB := tm1640.Transpose(planesA), tm1640.Transpose(planesB)
		a, b := tm1640.Region(i)
		copy(f[a:a+8], rowA[:])
		copy(f[b:b+8], rowB[:])
	}
	return f
}
