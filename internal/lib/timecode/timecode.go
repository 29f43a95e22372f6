// Package timecode converts clip offsets between total seconds
// and the hours/minutes/seconds triple shown by time pickers.
package timecode

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// MaxInput bounds the magnitude of a single user supplied value.
const MaxInput = math.MaxInt32

var ErrOutOfRange = errors.New("time value out of range")

// Seconds is an elapsed time in whole seconds.
type Seconds int64

// Parts is the hours/minutes/seconds view of Seconds.
type Parts struct {
	Hours   int64 `json:"hours"`
	Minutes int64 `json:"minutes"`
	Seconds int64 `json:"seconds"`
}

// ToParts splits s into hours, minutes and seconds.
func ToParts(s Seconds) Parts {
	v := int64(s)
	return Parts{
		Hours:   v / 3600,
		Minutes: (v % 3600) / 60,
		Seconds: v % 60,
	}
}

// FromParts returns h*3600 + m*60 + s.
//
// Parts are not bounds checked: minutes >= 60 or
// negative values are folded in arithmetically.
func FromParts(h, m, s int64) Seconds {
	return Seconds(h*3600 + m*60 + s)
}

// Total is FromParts applied to p.
func (p Parts) Total() Seconds {
	return FromParts(p.Hours, p.Minutes, p.Seconds)
}

// WithHours returns the total after replacing the hours field.
func (p Parts) WithHours(h int64) Seconds {
	return FromParts(h, p.Minutes, p.Seconds)
}

// WithMinutes returns the total after replacing the minutes field.
func (p Parts) WithMinutes(m int64) Seconds {
	return FromParts(p.Hours, m, p.Seconds)
}

// WithSeconds returns the total after replacing the seconds field.
func (p Parts) WithSeconds(s int64) Seconds {
	return FromParts(p.Hours, p.Minutes, s)
}

// String formats s as HH:MM:SS.
func (s Seconds) String() string {
	sign := ""
	if s < 0 {
		sign, s = "-", -s
	}
	p := ToParts(s)
	return fmt.Sprintf("%s%02d:%02d:%02d", sign, p.Hours, p.Minutes, p.Seconds)
}

// FromDuration truncates d to whole seconds.
func FromDuration(d time.Duration) Seconds {
	return Seconds(d / time.Second)
}

// FromFloat floors f to whole seconds.
// Values beyond MaxInput in magnitude are rejected.
func FromFloat(f float64) (Seconds, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("invalid time value %v", f)
	}

	f = math.Floor(f)
	if f > MaxInput || f < -MaxInput {
		return 0, ErrOutOfRange
	}

	return Seconds(f), nil
}

// ParseField parses a single numeric picker field.
// Blank input is zero, fractions are floored.
func ParseField(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}

	if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
		if v > MaxInput || v < -MaxInput {
			return 0, ErrOutOfRange
		}
		return v, nil
	}

	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid time value %q", raw)
	}

	v, err := FromFloat(f)
	if err != nil {
		return 0, err
	}

	return int64(v), nil
}

// ParseParts parses hours, minutes and seconds picker fields.
// ok is false when any field is not a number
// or all of them are blank. Fields are bounded by MaxInput,
// so the total cannot overflow.
func ParseParts(h, m, s string) (total Seconds, ok bool) {
	if strings.TrimSpace(h+m+s) == "" {
		return 0, false
	}

	var parts [3]int64
	for i, raw := range []string{h, m, s} {
		v, err := ParseField(raw)
		if err != nil {
			return 0, false
		}
		parts[i] = v
	}

	return FromParts(parts[0], parts[1], parts[2]), true
}
