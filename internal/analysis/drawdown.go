package analysis

import (
	"math"
	"time"
)

// drawdownSeries is 1 - equity/running peak for each bar.
func drawdownSeries(equity []float64) []float64 {
	dd := make([]float64, len(equity))
	peak := math.Inf(-1)
	for i, e := range equity {
		if e > peak {
			peak = e
		}
		dd[i] = 1 - e/peak
	}
	return dd
}

type drawdownPeriod struct {
	Duration time.Duration
	Peak     float64
}

// drawdownPeriods splits the curve at bars with zero drawdown. The final bar
// always closes the last period, so a drawdown still running at the end of
// the data is included.
func drawdownPeriods(dd []float64, times []time.Time) []drawdownPeriod {
	n := len(dd)
	if n == 0 {
		return nil
	}
	marks := make([]int, 0, n)
	for i, v := range dd {
		if v == 0 {
			marks = append(marks, i)
		}
	}
	if len(marks) == 0 || marks[len(marks)-1] != n-1 {
		marks = append(marks, n-1)
	}

	var out []drawdownPeriod
	for k := 1; k < len(marks); k++ {
		prev, cur := marks[k-1], marks[k]
		if cur <= prev+1 {
			continue
		}
		peak := 0.0
		for i := prev; i <= cur; i++ {
			if dd[i] > peak {
				peak = dd[i]
			}
		}
		out = append(out, drawdownPeriod{
			Duration: times[cur].Sub(times[prev]),
			Peak:     peak,
		})
	}
	return out
}
