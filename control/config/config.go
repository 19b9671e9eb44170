// Package config describes how the clock is wired to the host's GPIO lines.
//
// Line names are whatever the GPIO backend understands: periph.io names like "P9_12" or
// "GPIO23", or bare BCM numbers for rpio.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jrockway/segment-clock/control/irq"
	"github.com/jrockway/segment-clock/control/tm1640"
	"gopkg.in/yaml.v3"
)

// Config is the clock's complete wiring and timing.
type Config struct {
	Display DisplayConfig `yaml:"display"`
	RTC     RTCConfig     `yaml:"rtc"`
	Buttons ButtonsConfig `yaml:"buttons"`
	Timing  TimingConfig  `yaml:"timing"`
}

// DisplayConfig is the shared data line and each driver chip's clock line, in chip order.
type DisplayConfig struct {
	Data   string   `yaml:"data"`
	Clocks []string `yaml:"clocks"`
}

// RTCConfig is the DS1307's clock and data lines.
type RTCConfig struct {
	SCL string `yaml:"scl"`
	SDA string `yaml:"sda"`
}

// ButtonsConfig is the line of each front-panel button.
type ButtonsConfig struct {
	Set string `yaml:"set"`
	Inc string `yaml:"inc"`
	Dec string `yaml:"dec"`
}

// TimingConfig controls the interrupt sources.
type TimingConfig struct {
	// Tick is how often the time is read from the RTC.
	Tick time.Duration `yaml:"tick"`
	// Debounce is how long to wait after a button changes before reading it.
	Debounce time.Duration `yaml:"debounce"`
}

// Default returns the wiring of the BeagleBone cape.
func Default() *Config {
	return &Config{
		Display: DisplayConfig{
			Data: "P9_12",
			Clocks: []string{
				"P8_7", "P8_8", "P8_9", "P8_10", "P8_11", "P8_12", "P8_14", "P8_15", "P8_16",
			},
		},
		RTC:     RTCConfig{SCL: "P9_15", SDA: "P9_23"},
		Buttons: ButtonsConfig{Set: "P9_25", Inc: "P9_27", Dec: "P9_30"},
		Timing:  TimingConfig{Tick: irq.DefaultTickPeriod, Debounce: irq.DefaultDebounce},
	}
}

// Load reads a config file.  Anything the file doesn't mention keeps its default.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Parse is Load for a config that's already in memory.
func Parse(data []byte) (*Config, error) {
	c := Default()
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}
	return c, nil
}

// Validate checks that every line is named exactly once and that the timing makes sense.
func (c *Config) Validate() error {
	var errs []error
	if got := len(c.Display.Clocks); got != tm1640.NumChips {
		errs = append(errs, fmt.Errorf("display: need exactly %d clock lines, got %d", tm1640.NumChips, got))
	}

	owner := make(map[string]string)
	line := func(what, name string) {
		if name == "" {
			errs = append(errs, fmt.Errorf("%s: no line configured", what))
			return
		}
		if prev, ok := owner[name]; ok {
			errs = append(errs, fmt.Errorf("%s: line %q is already used by %s", what, name, prev))
			return
		}
		owner[name] = what
	}
	line("display data", c.Display.Data)
	for i, clk := range c.Display.Clocks {
		line(fmt.Sprintf("display clock %d", i), clk)
	}
	line("rtc scl", c.RTC.SCL)
	line("rtc sda", c.RTC.SDA)
	line("set button", c.Buttons.Set)
	line("inc button", c.Buttons.Inc)
	line("dec button", c.Buttons.Dec)

	if c.Timing.Tick <= 0 {
		errs = append(errs, fmt.Errorf("timing: tick must be positive, got %v", c.Timing.Tick))
	}
	if c.Timing.Debounce < 0 || c.Timing.Debounce >= time.Second {
		errs = append(errs, fmt.Errorf("timing: debounce must be in [0, 1s), got %v", c.Timing.Debounce))
	}
	return errors.Join(errs...)
}
