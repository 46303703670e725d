package parse

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidDuration is returned when a duration string does not follow the
// "2y5m7d3h" form.
var ErrInvalidDuration = errors.New("invalid duration")

// Duration is a calendar-aware span of years, months, days and hours, in the
// grammar restic accepts for keep-within policies. Unlike time.Duration the
// year and month components shift by calendar date, so "1m" before March 31st
// is not a fixed number of hours.
type Duration struct {
	Years, Months, Days, Hours int
}

// ParseDuration parses strings like "2y5m7d3h". Every component is optional
// and may appear in any order; the last occurrence of a unit wins. An empty
// string, a number without a unit or an unknown unit is an error.
func ParseDuration(s string) (Duration, error) {
	if s == "" {
		return Duration{}, fmt.Errorf("%w: empty string", ErrInvalidDuration)
	}

	var d Duration
	rest := s
	for len(rest) > 0 {
		num, tail, err := leadingInt(rest)
		if err != nil {
			return Duration{}, fmt.Errorf("%w: %s", ErrInvalidDuration, s)
		}
		if len(tail) == 0 {
			return Duration{}, fmt.Errorf("%w: missing unit at end of %q", ErrInvalidDuration, s)
		}

		switch tail[0] {
		case 'y':
			d.Years = num
		case 'm':
			d.Months = num
		case 'd':
			d.Days = num
		case 'h':
			d.Hours = num
		default:
			return Duration{}, fmt.Errorf("%w: unknown unit %q in %q", ErrInvalidDuration, string(tail[0]), s)
		}
		rest = tail[1:]
	}

	return d, nil
}

// leadingInt splits an optionally signed integer off the front of s.
func leadingInt(s string) (int, string, error) {
	i := 0
	if i < len(s) && (s[i] == '-' || s[i] == '+') {
		i++
	}
	start := i
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == start {
		return 0, s, errors.New("no digits")
	}

	num, err := strconv.Atoi(s[:i])
	if err != nil {
		return 0, s, err
	}

	return num, s[i:], nil
}

// Zero reports whether every component is zero.
func (d Duration) Zero() bool {
	return d == Duration{}
}

// String renders the duration back into the parseable form. The zero
// duration renders as "0h" so the output always parses again.
func (d Duration) String() string {
	if d.Zero() {
		return "0h"
	}

	var b strings.Builder
	if d.Years != 0 {
		fmt.Fprintf(&b, "%dy", d.Years)
	}
	if d.Months != 0 {
		fmt.Fprintf(&b, "%dm", d.Months)
	}
	if d.Days != 0 {
		fmt.Fprintf(&b, "%dd", d.Days)
	}
	if d.Hours != 0 {
		fmt.Fprintf(&b, "%dh", d.Hours)
	}

	return b.String()
}

// SubtractFrom returns the instant lying this duration before ref, using
// calendar arithmetic for the year, month and day components.
func (d Duration) SubtractFrom(ref time.Time) time.Time {
	return ref.AddDate(-d.Years, -d.Months, -d.Days).Add(-time.Duration(d.Hours) * time.Hour)
}

// MarshalJSON renders the duration in its string form; zero becomes "" so
// configuration round trips stay clean.
func (d Duration) MarshalJSON() ([]byte, error) {
	if d.Zero() {
		return []byte(`""`), nil
	}

	return json.Marshal(d.String())
}

// UnmarshalJSON accepts the string form; "" and null mean zero.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Duration{}
		return nil
	}

	parsed, err := ParseDuration(s)
	if err != nil {
		return err
	}
	*d = parsed

	return nil
}
