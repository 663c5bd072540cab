package analysis

import (
	"fmt"
	"sort"
	"time"
)

const day = 24 * time.Hour

// Duration is a time span that may be missing (e.g. the longest trade of a
// run without trades). Missing spans render as "NaT".
type Duration struct {
	D     time.Duration
	Valid bool
}

func validDuration(d time.Duration) Duration { return Duration{D: d, Valid: true} }

// String renders like "3 days 04:00:00".
func (d Duration) String() string {
	if !d.Valid {
		return "NaT"
	}
	v := d.D
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	days := v / day
	v -= days * day
	h := v / time.Hour
	v -= h * time.Hour
	m := v / time.Minute
	v -= m * time.Minute
	s := v / time.Second
	v -= s * time.Second

	out := fmt.Sprintf("%s%d days %02d:%02d:%02d", sign, days, h, m, s)
	switch {
	case v == 0:
	case v%time.Microsecond == 0:
		out += fmt.Sprintf(".%06d", v/time.Microsecond)
	default:
		out += fmt.Sprintf(".%09d", v)
	}
	return out
}

// FormatTimestamp renders t as "2006-01-02 15:04:05", with a microsecond
// fraction only when t has sub-second precision.
func FormatTimestamp(t time.Time) string {
	if t.Nanosecond() != 0 {
		return t.Format("2006-01-02 15:04:05.000000")
	}
	return t.Format("2006-01-02 15:04:05")
}

// dataPeriod is the median spacing of the first 100 bars.
func dataPeriod(times []time.Time) time.Duration {
	n := len(times)
	if n > 100 {
		n = 100
	}
	if n < 2 {
		return 0
	}
	diffs := make([]time.Duration, 0, n-1)
	for i := 1; i < n; i++ {
		diffs = append(diffs, times[i].Sub(times[i-1]))
	}
	sort.Slice(diffs, func(i, j int) bool { return diffs[i] < diffs[j] })
	mid := len(diffs) / 2
	if len(diffs)%2 == 1 {
		return diffs[mid]
	}
	return (diffs[mid-1] + diffs[mid]) / 2
}

// resolution is the smallest unit with a non-zero component in period,
// e.g. 1h30m -> minute.
func resolution(period time.Duration) time.Duration {
	for _, unit := range []time.Duration{day, time.Hour, time.Minute, time.Second, time.Millisecond, time.Microsecond} {
		if period >= unit && period%unit == 0 {
			return unit
		}
	}
	return time.Nanosecond
}

// roundUp ceils d to the data's time resolution.
func roundUp(d Duration, period time.Duration) Duration {
	if !d.Valid || period <= 0 {
		return d
	}
	unit := resolution(period)
	if d.D <= 0 {
		return d
	}
	return validDuration((d.D + unit - 1) / unit * unit)
}
