package sim

import (
	"errors"
	"testing"
	"testing/quick"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/jrockway/segment-clock/control/ds1307"
	"github.com/jrockway/segment-clock/control/pins"
	"github.com/jrockway/segment-clock/control/segments"
	"github.com/jrockway/segment-clock/control/timeofday"
	"github.com/jrockway/segment-clock/control/tm1640"
	"gotest.tools/assert"
	"periph.io/x/conn/v3/gpio"
)

func TestWire(t *testing.T) {
	w := NewWire("W")
	var seen []gpio.Level
	w.Watch(func(l gpio.Level) { seen = append(seen, l) })
	p := pins.Periph(w.Pin(), nil)

	assert.Assert(t, p.Read(), "undriven wire should be pulled up")
	p.Clear()
	assert.Assert(t, !p.Read())
	p.Tristate()
	assert.Assert(t, p.Read())

	w.Hold(true)
	assert.Assert(t, !p.Read(), "device should be able to pull the wire low")
	p.Set()
	assert.Assert(t, !p.Read(), "open-drain device wins")
	w.Hold(false)
	assert.Assert(t, p.Read())

	assert.DeepEqual(t, seen, []gpio.Level{gpio.Low, gpio.High})
}

func newRTC(t *testing.T) (*ds1307.RTC, *DS1307, clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	b := NewBoard(clock)
	var latch pins.Latch
	scl, sda := b.RTCPins()
	rtc := ds1307.New(pins.Periph(scl, &latch), pins.Periph(sda, &latch))
	t.Cleanup(func() { assert.NilError(t, latch.Err()) })
	return rtc, b.RTC, clock
}

func TestRTCColdStart(t *testing.T) {
	rtc, chip, _ := newRTC(t)
	assert.Assert(t, rtc.Init(), "a fresh chip should be halted")
	regs := chip.Registers()
	assert.DeepEqual(t, regs[:3], []byte{0x00, 0x00, 0x52})
	assert.Assert(t, !rtc.Init(), "a running chip should be left alone")

	got, err := rtc.ReadTime()
	assert.NilError(t, err)
	assert.Equal(t, got.String(), "12:00")
}

func TestRTCKeepsTime(t *testing.T) {
	rtc, chip, clock := newRTC(t)
	rtc.WriteTime(timeofday.Setting{Hours: 7, MinutesTens: 4, MinutesOnes: 5})
	got, err := rtc.ReadTime()
	assert.NilError(t, err)
	assert.Equal(t, got, timeofday.Time{HoursOnes: 7, MinutesTens: 4, MinutesOnes: 5})

	clock.Advance(15 * time.Minute)
	got, err = rtc.ReadTime()
	assert.NilError(t, err)
	assert.Equal(t, got.String(), "08:00")

	chip.SetRegisters(0, 0x59, 0x59, 0x51)
	clock.Advance(time.Second)
	got, err = rtc.ReadTime()
	assert.NilError(t, err)
	assert.Equal(t, got.String(), "12:00")
	regs := chip.Registers()
	assert.Equal(t, regs[2], byte(0x72), "11:59:59 AM should become 12 PM")

	chip.SetRegisters(0, 0x59, 0x59, 0x72)
	clock.Advance(time.Second)
	got, err = rtc.ReadTime()
	assert.NilError(t, err)
	assert.Equal(t, got.String(), "01:00")
}

func TestRTCStopped(t *testing.T) {
	rtc, chip, clock := newRTC(t)
	chip.SetRegisters(0, 0x80, 0x30, 0x43)
	clock.Advance(time.Hour)
	got, err := rtc.ReadTime()
	assert.NilError(t, err)
	assert.Equal(t, got.String(), "03:30", "halted oscillator should not advance")
}

func TestRTCReadRegisters(t *testing.T) {
	rtc, chip, _ := newRTC(t)
	chip.SetRegisters(0x08, 0xDE, 0xAD, 0xBE, 0xEF)
	buf := make([]byte, 4)
	rtc.ReadRegisters(0x08, buf)
	assert.DeepEqual(t, buf, []byte{0xDE, 0xAD, 0xBE, 0xEF})

	rtc.WriteRegisters(0x09, 0x12, 0x34)
	regs := chip.Registers()
	assert.DeepEqual(t, regs[0x08:0x0C], []byte{0xDE, 0x12, 0x34, 0xEF})
}

func TestRTCInvalid(t *testing.T) {
	rtc, chip, _ := newRTC(t)
	chip.SetRegisters(0, 0x00, 0x7A, 0x52)
	_, err := rtc.ReadTime()
	assert.Assert(t, errors.Is(err, timeofday.ErrInvalid), "error: %v", err)
}

func newPanel(t *testing.T) (*tm1640.Bus, *Panel) {
	t.Helper()
	b := NewBoard(clockwork.NewFakeClock())
	data, clocks := b.DisplayPins()
	var lines [tm1640.NumChips]pins.Line
	for i, c := range clocks {
		lines[i] = pins.Periph(c, nil)
	}
	return tm1640.New(pins.Periph(data, nil), lines), b.Panel
}

func TestPanelDark(t *testing.T) {
	bus, panel := newPanel(t)
	var f segments.Frame
	f[0] = 0xFF
	bus.Present(&f)
	assert.Equal(t, panel.Frame(), segments.Frame{}, "chips should be dark until turned on")
	for chip := 0; chip < tm1640.NumChips; chip++ {
		assert.Assert(t, !panel.Lit(chip))
	}
}

func TestPanelRoundTrip(t *testing.T) {
	bus, panel := newPanel(t)
	bus.AllOn()
	for chip := 0; chip < tm1640.NumChips; chip++ {
		assert.Assert(t, panel.Lit(chip), "chip %d", chip)
	}
	present := func(f segments.Frame) bool {
		bus.Present(&f)
		return panel.Frame() == f
	}
	if err := quick.Check(present, nil); err != nil {
		t.Error(err)
	}
}

func TestButton(t *testing.T) {
	b := NewButton("SET")
	in, err := pins.PeriphButton(b)
	assert.NilError(t, err)
	assert.Assert(t, in.Read())
	assert.Assert(t, !in.WaitForEdge(time.Millisecond))

	b.Press()
	assert.Assert(t, in.WaitForEdge(time.Second))
	assert.Assert(t, !in.Read())
	b.Press()
	assert.Assert(t, !in.WaitForEdge(time.Millisecond), "pressing again is not an edge")
	b.Release()
	assert.Assert(t, in.WaitForEdge(-1))
	assert.Assert(t, in.Read())
}

func TestCellArt(t *testing.T) {
	art := cellArt(segments.Digits[8] | segments.Point)
	got := string(art[0][:]) + "\n" + string(art[1][:]) + "\n" + string(art[2][:])
	assert.Equal(t, got, " _  \n|_| \n|_|.")
}
