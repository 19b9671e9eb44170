package clock

import (
	"context"
	"errors"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/jrockway/segment-clock/control/ds1307"
	"github.com/jrockway/segment-clock/control/irq"
	"github.com/jrockway/segment-clock/control/pins"
	"github.com/jrockway/segment-clock/control/screen"
	"github.com/jrockway/segment-clock/control/segments"
	"github.com/jrockway/segment-clock/control/sim"
	"github.com/jrockway/segment-clock/control/timeofday"
	"github.com/jrockway/segment-clock/control/tm1640"
	"gotest.tools/assert"
)

type fakeRTC struct {
	halted bool
	t      timeofday.Time
	err    error
	writes []timeofday.Setting
}

func (r *fakeRTC) Init() bool {
	h := r.halted
	r.halted = false
	return h
}

func (r *fakeRTC) ReadTime() (timeofday.Time, error) { return r.t, r.err }

func (r *fakeRTC) WriteTime(s timeofday.Setting) {
	r.writes = append(r.writes, s)
	r.t = s.Time()
}

var errNoMoreEvents = errors.New("no more events")

// script is an interrupt source that delivers a fixed list of events.
type script struct {
	events  []irq.Event
	pending irq.Event
}

func (s *script) Sleep(ctx context.Context) error {
	if len(s.events) == 0 {
		return errNoMoreEvents
	}
	s.pending, s.events = s.events[0], s.events[1:]
	return nil
}

func (s *script) Take() irq.Event {
	e := s.pending
	s.pending = irq.None
	return e
}

type recorder struct {
	frames []segments.Frame
	on     int
}

func (r *recorder) Present(f *segments.Frame) { r.frames = append(r.frames, *f) }
func (r *recorder) AllOn()                    { r.on++ }

func newController(t *testing.T, now timeofday.Time, events ...irq.Event) (*Controller, *fakeRTC, *recorder) {
	t.Helper()
	rtc := &fakeRTC{t: now}
	r := new(recorder)
	c := New(rtc, screen.New(r), &script{events: events}, nil)
	return c, rtc, r
}

// run steps c until the script runs out.
func run(t *testing.T, c *Controller) {
	t.Helper()
	if err := c.Run(context.Background()); !errors.Is(err, errNoMoreEvents) {
		t.Fatalf("run: unexpected error: %v", err)
	}
}

func TestSetCycle(t *testing.T) {
	c, rtc, _ := newController(t, timeofday.Time{HoursOnes: 3, MinutesTens: 0, MinutesOnes: 7})
	c.Boot(false)

	steps := []struct {
		event       irq.Event
		wantMode    Mode
		wantSetting timeofday.Setting
	}{
		{irq.SetPressed, SetHours, timeofday.Setting{Hours: 3, MinutesTens: 0, MinutesOnes: 7}},
		{irq.DecPressed, SetHours, timeofday.Setting{Hours: 2, MinutesTens: 0, MinutesOnes: 7}},
		{irq.SetPressed, SetMinutesTens, timeofday.Setting{Hours: 2, MinutesTens: 0, MinutesOnes: 7}},
		{irq.DecPressed, SetMinutesTens, timeofday.Setting{Hours: 2, MinutesTens: 5, MinutesOnes: 7}},
		{irq.SetPressed, SetMinutesOnes, timeofday.Setting{Hours: 2, MinutesTens: 5, MinutesOnes: 7}},
		{irq.IncPressed, SetMinutesOnes, timeofday.Setting{Hours: 2, MinutesTens: 5, MinutesOnes: 8}},
		{irq.IncPressed, SetMinutesOnes, timeofday.Setting{Hours: 2, MinutesTens: 5, MinutesOnes: 9}},
		{irq.IncPressed, SetMinutesOnes, timeofday.Setting{Hours: 2, MinutesTens: 5, MinutesOnes: 0}},
	}
	for i, step := range steps {
		c.Dispatch(step.event)
		if got, want := c.Mode(), step.wantMode; got != want {
			t.Errorf("step %d (%v): mode:\n  got: %v\n want: %v", i, step.event, got, want)
		}
		if got, want := c.Setting(), step.wantSetting; got != want {
			t.Errorf("step %d (%v): setting:\n  got: %v\n want: %v", i, step.event, got, want)
		}
	}
	assert.Equal(t, len(rtc.writes), 0, "nothing should be written until the last set")

	c.Dispatch(irq.SetPressed)
	assert.Equal(t, c.Mode(), Clock)
	assert.DeepEqual(t, rtc.writes, []timeofday.Setting{{Hours: 2, MinutesTens: 5, MinutesOnes: 0}})
	assert.Equal(t, c.Time().String(), "02:50")
	assert.Assert(t, c.needsRender)
}

func TestWraparound(t *testing.T) {
	testData := []struct {
		mode  Mode
		event irq.Event
		from  timeofday.Setting
		want  timeofday.Setting
	}{
		{SetHours, irq.IncPressed, timeofday.Setting{Hours: 12}, timeofday.Setting{Hours: 1}},
		{SetHours, irq.DecPressed, timeofday.Setting{Hours: 1}, timeofday.Setting{Hours: 12}},
		{SetHours, irq.IncPressed, timeofday.Setting{Hours: 9}, timeofday.Setting{Hours: 10}},
		{SetMinutesTens, irq.IncPressed, timeofday.Setting{Hours: 1, MinutesTens: 5}, timeofday.Setting{Hours: 1}},
		{SetMinutesTens, irq.DecPressed, timeofday.Setting{Hours: 1}, timeofday.Setting{Hours: 1, MinutesTens: 5}},
		{SetMinutesOnes, irq.IncPressed, timeofday.Setting{Hours: 1, MinutesOnes: 9}, timeofday.Setting{Hours: 1}},
		{SetMinutesOnes, irq.DecPressed, timeofday.Setting{Hours: 1}, timeofday.Setting{Hours: 1, MinutesOnes: 9}},
		{Clock, irq.IncPressed, timeofday.Setting{Hours: 4}, timeofday.Setting{Hours: 4}},
		{Clock, irq.DecPressed, timeofday.Setting{Hours: 4}, timeofday.Setting{Hours: 4}},
	}
	for _, test := range testData {
		c, _, _ := newController(t, timeofday.Time{HoursOnes: 1})
		c.mode, c.setting = test.mode, test.from
		c.Dispatch(test.event)
		if got, want := c.setting, test.want; got != want {
			t.Errorf("%v %v from %v:\n  got: %v\n want: %v", test.mode, test.event, test.from, got, want)
		}
		assert.Equal(t, c.Mode(), test.mode, "inc and dec never change the mode")
	}
}

func TestNoneChangesNothing(t *testing.T) {
	now := timeofday.Time{HoursTens: 1, HoursOnes: 1, MinutesTens: 1, MinutesOnes: 1}
	c, _, r := newController(t, now, irq.TimeTick, irq.None, irq.None)
	c.Boot(false)
	run(t, c)
	// One frame from boot, one redraw for the first reading of the time, and nothing after.
	assert.Equal(t, len(r.frames), 2)
	assert.Equal(t, c.Mode(), Clock)
	assert.Equal(t, c.Time(), now)
	assert.Equal(t, *c.screen.Frame(), segments.Frame{}, "frame should be cleared every loop")
}

func TestRedrawOnlyOnChange(t *testing.T) {
	c, rtc, r := newController(t, timeofday.Time{HoursOnes: 4, MinutesTens: 2, MinutesOnes: 0})
	c.Boot(false)
	assert.Assert(t, c.needsRender, "first reading should need a redraw")
	c.Dispatch(irq.TimeTick)
	assert.Assert(t, !c.needsRender, "same time should not need a redraw")
	rtc.t.MinutesOnes = 1
	c.Dispatch(irq.TimeTick)
	assert.Assert(t, c.needsRender)
	assert.Equal(t, len(r.frames), 1, "only boot should have presented so far")
}

func TestInvalidRead(t *testing.T) {
	now := timeofday.Time{HoursOnes: 8, MinutesTens: 3, MinutesOnes: 0}
	c, rtc, _ := newController(t, now)
	c.Boot(false)
	rtc.t, rtc.err = timeofday.Time{HoursTens: 1, HoursOnes: 9}, timeofday.ErrInvalid
	c.Dispatch(irq.TimeTick)
	assert.Equal(t, c.Time(), now, "invalid time should be dropped")
	assert.Assert(t, !c.needsRender)
}

func TestSetBeforeValidRead(t *testing.T) {
	c, rtc, _ := newController(t, timeofday.Time{})
	rtc.err = timeofday.ErrInvalid
	c.Boot(false)
	c.Dispatch(irq.SetPressed)
	assert.Equal(t, c.Mode(), SetHours)
	assert.Equal(t, c.Setting(), timeofday.Midnight, "an unread clock should be set starting from 12:00")

	c.Dispatch(irq.DecPressed)
	assert.Equal(t, c.Setting().Hours, 11)
	c.Dispatch(irq.IncPressed)
	c.Dispatch(irq.SetPressed)
	c.Dispatch(irq.SetPressed)
	rtc.err = nil
	c.Dispatch(irq.SetPressed)
	assert.Equal(t, c.Mode(), Clock)
	assert.DeepEqual(t, rtc.writes, []timeofday.Setting{timeofday.Midnight})
	m, h := rtc.writes[0].Encode()
	assert.Equal(t, m, byte(0x00))
	assert.Equal(t, h, byte(0x52))
	assert.Equal(t, c.Time().String(), "12:00")
}

func TestTickWhileSetting(t *testing.T) {
	c, rtc, r := newController(t, timeofday.Time{HoursOnes: 5, MinutesTens: 5, MinutesOnes: 9},
		irq.SetPressed, irq.TimeTick, irq.None)
	c.Boot(false)
	rtc.t = timeofday.Time{HoursOnes: 6}
	run(t, c)
	assert.Equal(t, c.Mode(), SetHours)
	assert.Equal(t, c.Time().String(), "06:00", "ticks still read the time while setting")
	assert.Equal(t, c.Setting(), timeofday.Setting{Hours: 5, MinutesTens: 5, MinutesOnes: 9}, "ticks must not touch the setting")
	// Boot, the first loop's clock face, then the setting readout on every loop after that,
	// including the one that ran out of events.
	assert.Equal(t, len(r.frames), 5)
	last := r.frames[len(r.frames)-1]
	assert.Equal(t, last[61], segments.Digits[5]|segments.Point)
	assert.Equal(t, last[85], segments.Top)
}

func TestBoot(t *testing.T) {
	c, rtc, r := newController(t, timeofday.Time{HoursTens: 1, HoursOnes: 2})
	rtc.halted = true
	c.Boot(true)
	assert.Equal(t, r.on, 1)
	assert.Equal(t, len(r.frames), 1+len(segments.Frame{})*8)
	assert.Equal(t, r.frames[0], segments.Frame{}, "boot should blank the display first")
	assert.Equal(t, r.frames[1][0], byte(0x01))
	assert.Equal(t, r.frames[8][0], byte(0xFF))
	assert.Equal(t, r.frames[9][1], byte(0x01))
	var all segments.Frame
	for i := range all {
		all[i] = 0xFF
	}
	assert.Equal(t, r.frames[len(r.frames)-1], all)
	assert.Equal(t, *c.screen.Frame(), segments.Frame{}, "self test should leave the frame clear")
}

// TestBoard runs the controller against the simulated board, so that everything between the
// state machine and the wires is the real thing.
func TestBoard(t *testing.T) {
	board := sim.NewBoard(clockwork.NewFakeClock())
	var latch pins.Latch
	scl, sda := board.RTCPins()
	rtc := ds1307.New(pins.Periph(scl, &latch), pins.Periph(sda, &latch))
	data, clocks := board.DisplayPins()
	var lines [tm1640.NumChips]pins.Line
	for i, p := range clocks {
		lines[i] = pins.Periph(p, &latch)
	}
	bus := tm1640.New(pins.Periph(data, &latch), lines)

	events := &script{events: []irq.Event{
		irq.SetPressed, irq.SetPressed, irq.IncPressed, irq.SetPressed, irq.DecPressed,
		irq.SetPressed, irq.TimeTick,
	}}
	c := New(rtc, screen.New(bus), events, &latch)
	c.Boot(false)
	assert.Equal(t, c.Time().String(), "12:00", "a fresh rtc should start at 12:00")
	err := c.Run(context.Background())
	assert.Assert(t, errors.Is(err, errNoMoreEvents), "run: %v", err)
	assert.NilError(t, latch.Err())

	assert.Equal(t, c.Mode(), Clock)
	assert.Equal(t, c.Time().String(), "12:19")
	regs := board.RTC.Registers()
	assert.Equal(t, regs[1], byte(0x19))
	assert.Equal(t, regs[2], byte(0x52))

	// The last loop redrew the clock face, and the panel should be showing it.
	s := screen.New(nil)
	s.RenderClock(c.Time())
	assert.Equal(t, board.Panel.Frame(), *s.Frame())
}
