// Package clock is the clock's controller.  It keeps the time read from the RTC, runs the state
// machine for setting the time with the buttons, and decides when the screen needs redrawing.
//
// Everything here runs on one goroutine.  Input arrives only as events taken from the interrupt
// mailbox, one per iteration of the main loop.
package clock

import (
	"context"
	"fmt"
	"log"

	"github.com/jrockway/segment-clock/control/irq"
	"github.com/jrockway/segment-clock/control/pins"
	"github.com/jrockway/segment-clock/control/screen"
	"github.com/jrockway/segment-clock/control/timeofday"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/net/trace"
)

// Mode is what the clock is doing.
type Mode int

const (
	// Clock shows the time.
	Clock Mode = iota
	// SetHours, SetMinutesTens, and SetMinutesOnes edit one part of the time each.
	SetHours
	SetMinutesTens
	SetMinutesOnes
)

func (m Mode) String() string {
	switch m {
	case Clock:
		return "clock"
	case SetHours:
		return "set hours"
	case SetMinutesTens:
		return "set minutes tens"
	case SetMinutesOnes:
		return "set minutes ones"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// RTC is where the time is kept.
type RTC interface {
	// Init starts the RTC if it had stopped, and reports whether it had.
	Init() bool
	// ReadTime returns the current time.
	ReadTime() (timeofday.Time, error)
	// WriteTime sets the time, with seconds at zero.
	WriteTime(timeofday.Setting)
}

// Interrupts is where the main loop waits for something to happen.
type Interrupts interface {
	// Sleep enables interrupts and returns after exactly one handler has run.
	Sleep(ctx context.Context) error
	// Take empties the mailbox.
	Take() irq.Event
}

var (
	dispatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clock_events_dispatched_total",
		Help: "count of events handled by the main loop, by event",
	}, []string{"event"})
	invalidReads = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rtc_invalid_reads_total",
		Help: "count of times the rtc returned a time that could not be displayed",
	})
	gpioErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clock_gpio_errors_total",
		Help: "count of main loop iterations during which the gpio driver reported errors",
	})
	modeGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "clock_mode",
		Help: "current mode; 0 shows the time, 1-3 are setting hours, minutes tens, and minutes ones",
	})
)

// Controller owns all of the clock's state.
type Controller struct {
	rtc    RTC
	screen *screen.Screen
	irqs   Interrupts
	latch  *pins.Latch
	events trace.EventLog

	mode        Mode
	now         timeofday.Time
	setting     timeofday.Setting
	needsRender bool
}

// New returns a Controller.  GPIO errors collected by latch are reported once per loop; latch
// may be nil.
func New(rtc RTC, s *screen.Screen, irqs Interrupts, latch *pins.Latch) *Controller {
	return &Controller{
		rtc:    rtc,
		screen: s,
		irqs:   irqs,
		latch:  latch,
		events: trace.NewEventLog("clock", "controller"),
	}
}

// Mode returns the current mode.
func (c *Controller) Mode() Mode { return c.mode }

// Time returns the last valid time read from the RTC.
func (c *Controller) Time() timeofday.Time { return c.now }

// Setting returns the time being edited.  It's only meaningful outside of Clock mode.
func (c *Controller) Setting() timeofday.Setting { return c.setting }

// Boot brings up the RTC and the display.  With selfTest, every segment is lit one at a time
// before the clock starts.
func (c *Controller) Boot(selfTest bool) {
	if c.rtc.Init() {
		log.Printf("rtc was halted; restarted at 12:00")
		c.events.Printf("rtc cold start")
	}
	c.refresh()
	c.screen.Show()
	c.screen.AllOn()
	if selfTest {
		c.testPattern()
	}
}

func (c *Controller) testPattern() {
	c.events.Printf("self test")
	f := c.screen.Frame()
	for i := range f {
		for b := byte(1); b != 0; b <<= 1 {
			f[i] |= b
			c.screen.Show()
		}
	}
	c.screen.Clear()
}

// Run runs the main loop until ctx is done.
func (c *Controller) Run(ctx context.Context) error {
	defer c.events.Finish()
	for {
		if err := c.Step(ctx); err != nil {
			return err
		}
	}
}

// Step is one iteration of the main loop: redraw if needed, wait for one interrupt, and handle
// the event it posted.
func (c *Controller) Step(ctx context.Context) error {
	if c.mode != Clock || c.needsRender {
		c.render()
		c.screen.Show()
	}
	c.screen.Clear()
	if err := c.irqs.Sleep(ctx); err != nil {
		return fmt.Errorf("wait for interrupt: %w", err)
	}
	c.Dispatch(c.irqs.Take())
	if err := c.latch.Err(); err != nil {
		gpioErrors.Inc()
		c.events.Errorf("gpio: %v", err)
		log.Printf("gpio: %v", err)
	}
	return nil
}

func (c *Controller) render() {
	switch c.mode {
	case Clock:
		c.screen.RenderClock(c.now)
	case SetHours:
		c.screen.RenderSetting(screen.Hours, c.setting)
	case SetMinutesTens:
		c.screen.RenderSetting(screen.MinutesTens, c.setting)
	case SetMinutesOnes:
		c.screen.RenderSetting(screen.MinutesOnes, c.setting)
	}
}

// Dispatch handles one event.
func (c *Controller) Dispatch(e irq.Event) {
	dispatched.WithLabelValues(e.String()).Inc()
	switch e {
	case irq.SetPressed:
		c.set()
	case irq.IncPressed:
		c.adjust(1)
	case irq.DecPressed:
		c.adjust(-1)
	case irq.TimeTick:
		c.refresh()
	}
	modeGauge.Set(float64(c.mode))
}

// refresh reads the time from the RTC.  A redraw is needed only if it changed.  An invalid
// reading is dropped and the previous time kept.
func (c *Controller) refresh() {
	t, err := c.rtc.ReadTime()
	if err != nil {
		invalidReads.Inc()
		c.events.Errorf("read time: %v", err)
		c.needsRender = false
		return
	}
	c.needsRender = t != c.now
	if c.needsRender {
		c.events.Printf("time is %v", t)
	}
	c.now = t
}

func (c *Controller) set() {
	switch c.mode {
	case Clock:
		c.setting = c.now.Setting()
		if c.now.Validate() != nil {
			// Nothing valid has been read yet.
			c.setting = timeofday.Midnight
		}
		c.mode = SetHours
	case SetHours:
		c.mode = SetMinutesTens
	case SetMinutesTens:
		c.mode = SetMinutesOnes
	case SetMinutesOnes:
		c.rtc.WriteTime(c.setting)
		log.Printf("time set to %v", c.setting.Time())
		c.events.Printf("time set to %v", c.setting.Time())
		c.refresh()
		c.needsRender = true
		c.mode = Clock
	}
}

// wrap adds delta to x and wraps the result into [lo, hi].
func wrap(x, delta, lo, hi int) int {
	n := hi - lo + 1
	return lo + ((x-lo+delta)%n+n)%n
}

func (c *Controller) adjust(delta int) {
	switch c.mode {
	case SetHours:
		c.setting.Hours = wrap(c.setting.Hours, delta, 1, 12)
	case SetMinutesTens:
		c.setting.MinutesTens = uint8(wrap(int(c.setting.MinutesTens), delta, 0, 5))
	case SetMinutesOnes:
		c.setting.MinutesOnes = uint8(wrap(int(c.setting.MinutesOnes), delta, 0, 9))
	}
}
