package analysis

import (
	"math"
	"time"
)

// dailyEquity keeps the last equity value of each calendar day.
func dailyEquity(times []time.Time, equity []float64) []float64 {
	out := make([]float64, 0, len(equity))
	var lastY, lastD int
	for i, t := range times {
		y, d := t.Year(), t.YearDay()
		if i > 0 && y == lastY && d == lastD {
			out[len(out)-1] = equity[i]
			continue
		}
		out = append(out, equity[i])
		lastY, lastD = y, d
	}
	return out
}

// pctChange returns simple period returns; the first element is NaN.
func pctChange(xs []float64) []float64 {
	out := make([]float64, len(xs))
	for i := range xs {
		if i == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = xs[i]/xs[i-1] - 1
	}
	return out
}

// logReturns returns log(x[i]/x[i-1]); the first element is NaN.
func logReturns(xs []float64) []float64 {
	out := make([]float64, len(xs))
	for i := range xs {
		if i == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = math.Log(xs[i] / xs[i-1])
	}
	return out
}

// geometricMean treats NaN as a zero return. Any return at or below -100%
// yields 0.
func geometricMean(rs []float64) float64 {
	if len(rs) == 0 {
		return math.NaN()
	}
	sum := 0.0
	for _, r := range rs {
		if math.IsNaN(r) {
			r = 0
		}
		g := 1 + r
		if g <= 0 {
			return 0
		}
		sum += math.Log(g)
	}
	return math.Exp(sum/float64(len(rs))) - 1
}

func finite(xs []float64) []float64 {
	out := make([]float64, 0, len(xs))
	for _, x := range xs {
		if !math.IsNaN(x) {
			out = append(out, x)
		}
	}
	return out
}

// mean skips NaN values and is NaN for empty input.
func mean(xs []float64) float64 {
	xs = finite(xs)
	if len(xs) == 0 {
		return math.NaN()
	}
	s := 0.0
	for _, x := range xs {
		s += x
	}
	return s / float64(len(xs))
}

// variance is the sample variance (ddof 1) of the non-NaN values.
func variance(xs []float64) float64 {
	xs = finite(xs)
	if len(xs) < 2 {
		return math.NaN()
	}
	m := mean(xs)
	s := 0.0
	for _, x := range xs {
		s += (x - m) * (x - m)
	}
	return s / float64(len(xs)-1)
}

// covariance of paired non-NaN observations, ddof 1. A NaN or Inf in either
// series poisons the result.
func covariance(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n < 2 {
		return math.NaN()
	}
	ma, mb := 0.0, 0.0
	for i := 0; i < n; i++ {
		ma += a[i]
		mb += b[i]
	}
	ma /= float64(n)
	mb /= float64(n)
	s := 0.0
	for i := 0; i < n; i++ {
		s += (a[i] - ma) * (b[i] - mb)
	}
	return s / float64(n-1)
}

// annualTradingDays is 365 when a meaningful share of bars fall on weekends
// (crypto-like data) and 252 otherwise.
func annualTradingDays(times []time.Time) float64 {
	if len(times) == 0 {
		return 252
	}
	weekend := 0
	for _, t := range times {
		if wd := t.Weekday(); wd == time.Saturday || wd == time.Sunday {
			weekend++
		}
	}
	if float64(weekend)/float64(len(times)) > 2.0/7*0.6 {
		return 365
	}
	return 252
}

func safeDiv(a, b float64) float64 {
	if b == 0 {
		return math.NaN()
	}
	return a / b
}
