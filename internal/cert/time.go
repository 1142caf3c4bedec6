package cert

import (
	"fmt"
	"time"
)

// OffsetLayout renders validity timestamps in ISO-8601 with microseconds and
// a numeric offset.
const OffsetLayout = "2006-01-02T15:04:05.000000-07:00"

// NaiveLayout renders local wall-clock time with microseconds and no offset.
const NaiveLayout = "2006-01-02T15:04:05.000000"

// naiveLayout matches timestamps written without an offset. Fractional
// seconds are accepted implicitly by time.Parse.
const naiveLayout = "2006-01-02T15:04:05"

// TimeStyle selects how validity timestamps are written.
type TimeStyle int

const (
	// NaiveLocal writes local time without an offset, omitting the fraction
	// when it is zero. Tools that compare against a naive local clock
	// require this form.
	NaiveLocal TimeStyle = iota

	// OffsetUTC writes UTC with microseconds and a "+00:00" offset.
	OffsetUTC
)

// Format renders t in style s.
func (s TimeStyle) Format(t time.Time) string {
	if s == OffsetUTC {
		return t.UTC().Format(OffsetLayout)
	}
	local := t.In(time.Local)
	if local.Nanosecond()/1000 == 0 {
		return local.Format(naiveLayout)
	}
	return local.Format(NaiveLayout)
}

// FormatTime renders t in the default NaiveLocal style.
func FormatTime(t time.Time) string {
	return NaiveLocal.Format(t)
}

// ParseTime accepts timestamps with a numeric offset or "Z", and naive
// timestamps which are interpreted in the local time zone.
func ParseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation(naiveLayout, s, time.Local); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
