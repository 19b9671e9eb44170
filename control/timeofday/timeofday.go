// Package timeofday is the 12-hour time the clock shows, and its encoding in the DS1307's
// minutes and hours registers.
package timeofday

import (
	"errors"
	"fmt"
)

// ErrInvalid is returned when registers don't hold a valid 12-hour time.
var ErrInvalid = errors.New("invalid time of day")

// Bits of the hours register.
const (
	hoursMode12 = 0x40
	hoursTens   = 0x10
)

// Time is a time of day as BCD digit pairs, 1:00 through 12:59.
type Time struct {
	HoursTens, HoursOnes     uint8
	MinutesTens, MinutesOnes uint8
}

// Hours returns the hour, 1 through 12.
func (t Time) Hours() int {
	return int(t.HoursTens)*10 + int(t.HoursOnes)
}

// Minutes returns the minute, 0 through 59.
func (t Time) Minutes() int {
	return int(t.MinutesTens)*10 + int(t.MinutesOnes)
}

func (t Time) String() string {
	return fmt.Sprintf("%d%d:%d%d", t.HoursTens, t.HoursOnes, t.MinutesTens, t.MinutesOnes)
}

// Validate returns an error wrapping ErrInvalid if any digit is out of range.
func (t Time) Validate() error {
	switch {
	case t.HoursTens > 1, t.HoursOnes > 9, t.MinutesTens > 5, t.MinutesOnes > 9:
		return fmt.Errorf("%v: digit out of range: %w", t, ErrInvalid)
	case t.Hours() < 1 || t.Hours() > 12:
		return fmt.Errorf("%v: hour not in 1..12: %w", t, ErrInvalid)
	}
	return nil
}

// Setting returns a copy of t for editing.
func (t Time) Setting() Setting {
	return Setting{
		Hours:       t.Hours(),
		MinutesTens: t.MinutesTens,
		MinutesOnes: t.MinutesOnes,
	}
}

// Decode reads the minutes and hours registers.  The AM/PM and 12-hour mode flags are ignored.
func Decode(minutes, hours byte) (Time, error) {
	t := Time{
		HoursTens:   (hours >> 4) & 1,
		HoursOnes:   hours & 0xF,
		MinutesTens: minutes >> 4,
		MinutesOnes: minutes & 0xF,
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("decode registers %#02x %#02x: %w", minutes, hours, err)
	}
	return t, nil
}

// Setting is a time being set with the buttons.  Hours aren't BCD since there are only 12 of them
// to cycle through.
type Setting struct {
	Hours                    int
	MinutesTens, MinutesOnes uint8
}

// Time converts s back into digit pairs.
func (s Setting) Time() Time {
	return Time{
		HoursTens:   uint8(s.Hours / 10),
		HoursOnes:   uint8(s.Hours % 10),
		MinutesTens: s.MinutesTens,
		MinutesOnes: s.MinutesOnes,
	}
}

// Encode returns the minutes and hours registers for s.  The hours register is always in 12-hour
// mode, and always AM.
func (s Setting) Encode() (minutes, hours byte) {
	hours = hoursMode12
	if s.Hours >= 10 {
		hours |= hoursTens | byte(s.Hours-10)
	} else {
		hours |= byte(s.Hours)
	}
	return s.MinutesTens<<4 | s.MinutesOnes, hours
}

// Midnight is 12:00, what the clock is set to after it loses power.
var Midnight = Setting{Hours: 12}
