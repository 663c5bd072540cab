package analysis

import (
	"math"
	"time"

	"predict-backtest/internal/model"
)

// Stats is an ordered set of named statistics for one backtest run.
// Values are float64, int, string, time.Time or Duration.
type Stats struct {
	keys   []string
	values map[string]any
}

func newStats() *Stats {
	return &Stats{values: make(map[string]any, len(catalog))}
}

func (s *Stats) set(key string, v any) {
	if _, ok := s.values[key]; !ok {
		s.keys = append(s.keys, key)
	}
	s.values[key] = v
}

// Get returns the raw value of a statistic.
func (s *Stats) Get(key string) (any, bool) {
	if s == nil {
		return nil, false
	}
	v, ok := s.values[key]
	return v, ok
}

// Keys returns statistic names in report order.
func (s *Stats) Keys() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.keys))
	copy(out, s.keys)
	return out
}

// Float returns a numeric statistic, or NaN when the key is missing or not
// numeric.
func (s *Stats) Float(key string) float64 {
	v, ok := s.Get(key)
	if !ok {
		return math.NaN()
	}
	switch x := v.(type) {
	case float64:
		return x
	case int:
		return float64(x)
	}
	return math.NaN()
}

// Input is everything Compute needs from a finished run.
type Input struct {
	Series   *model.Series
	Trades   []model.Trade
	Equity   []model.EquityPoint
	Strategy string
}

// Compute derives the performance report of one run. Trades still open at
// the end of the data are not part of Trades; their value shows up only in
// the equity curve.
func Compute(in Input) *Stats {
	st := newStats()
	var bars []model.Bar
	if in.Series != nil {
		bars = in.Series.Bars
	}
	times := make([]time.Time, len(in.Equity))
	equity := make([]float64, len(in.Equity))
	for i, p := range in.Equity {
		times[i] = p.Time
		equity[i] = p.Equity
	}
	if len(equity) == 0 || len(bars) == 0 {
		st.set(StatStrategy, in.Strategy)
		return st
	}
	period := dataPeriod(times)
	start, end := times[0], times[len(times)-1]

	st.set(StatStart, start)
	st.set(StatEnd, end)
	st.set(StatDuration, validDuration(end.Sub(start)))

	exposed := make([]bool, len(equity))
	for _, t := range in.Trades {
		for i := t.EntryBar; i <= t.ExitBar && i < len(exposed); i++ {
			if i >= 0 {
				exposed[i] = true
			}
		}
	}
	nExposed := 0
	for _, e := range exposed {
		if e {
			nExposed++
		}
	}
	st.set(StatExposure, float64(nExposed)/float64(len(exposed))*100)

	first, final := equity[0], equity[len(equity)-1]
	peak := math.Inf(-1)
	for _, e := range equity {
		peak = math.Max(peak, e)
	}
	commissions := 0.0
	for _, t := range in.Trades {
		commissions += t.Commissions
	}
	st.set(StatEquityFinal, final)
	st.set(StatEquityPeak, peak)
	st.set(StatCommissions, commissions)

	returnPct := (final - first) / first * 100
	firstClose, lastClose := bars[0].Close, bars[len(bars)-1].Close
	buyHold := (lastClose - firstClose) / firstClose * 100
	st.set(StatReturn, returnPct)
	st.set(StatBuyHoldReturn, buyHold)

	// Annualised figures work on daily equity returns.
	dayReturns := pctChange(dailyEquity(times, equity))
	tradingDays := annualTradingDays(times)
	gmean := geometricMean(dayReturns)
	annReturn := math.Pow(1+gmean, tradingDays) - 1
	volatility := math.Sqrt(math.Pow(variance(dayReturns)+math.Pow(1+gmean, 2), tradingDays)-
		math.Pow(1+gmean, 2*tradingDays)) * 100
	st.set(StatReturnAnn, annReturn*100)
	st.set(StatVolatilityAnn, volatility)

	years := end.Sub(start).Hours() / 24 / tradingDays
	cagr := math.NaN()
	if years != 0 {
		cagr = math.Pow(final/first, 1/years) - 1
	}
	st.set(StatCAGR, cagr*100)

	st.set(StatSharpe, safeDiv(annReturn*100, volatility))

	downside := make([]float64, len(dayReturns))
	for i, r := range dayReturns {
		downside[i] = math.Pow(math.Min(r, 0), 2)
	}
	st.set(StatSortino, annReturn/(math.Sqrt(mean(downside))*math.Sqrt(tradingDays)))

	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	beta := math.NaN()
	if len(closes) == len(equity) && len(equity) > 2 {
		eqLog := logReturns(equity)[1:]
		mktLog := logReturns(closes)[1:]
		beta = safeDiv(covariance(eqLog, mktLog), covariance(mktLog, mktLog))
	}
	st.set(StatAlpha, returnPct-beta*buyHold)
	st.set(StatBeta, beta)

	dd := drawdownSeries(equity)
	maxDD := 0.0
	for _, v := range dd {
		if v > maxDD {
			maxDD = v
		}
	}
	st.set(StatCalmar, safeDiv(annReturn, maxDD))

	periods := drawdownPeriods(dd, times)
	ddPeaks := make([]float64, len(periods))
	ddDurations := make([]time.Duration, len(periods))
	for i, p := range periods {
		ddPeaks[i] = p.Peak
		ddDurations[i] = p.Duration
	}
	st.set(StatMaxDrawdown, -maxDD*100)
	st.set(StatAvgDrawdown, -mean(ddPeaks)*100)
	st.set(StatMaxDrawdownDur, roundUp(maxDuration(ddDurations), period))
	st.set(StatAvgDrawdownDur, roundUp(meanDuration(ddDurations), period))

	tradeStats(st, in.Trades, period)
	st.set(StatStrategy, in.Strategy)
	return st
}

func tradeStats(st *Stats, trades []model.Trade, period time.Duration) {
	n := len(trades)
	pl := make([]float64, n)
	returns := make([]float64, n)
	durations := make([]time.Duration, n)
	wins := 0
	for i, t := range trades {
		pl[i] = t.PnL
		returns[i] = t.ReturnPct
		durations[i] = t.Duration()
		if t.PnL > 0 {
			wins++
		}
	}

	winRate := math.NaN()
	if n > 0 {
		winRate = float64(wins) / float64(n)
	}
	best, worst := math.NaN(), math.NaN()
	for i, r := range returns {
		if i == 0 || r > best {
			best = r
		}
		if i == 0 || r < worst {
			worst = r
		}
	}

	st.set(StatTrades, n)
	st.set(StatWinRate, winRate*100)
	st.set(StatBestTrade, best*100)
	st.set(StatWorstTrade, worst*100)
	st.set(StatAvgTrade, geometricMean(returns)*100)
	st.set(StatMaxTradeDur, roundUp(maxDuration(durations), period))
	st.set(StatAvgTradeDur, roundUp(meanDuration(durations), period))

	gains, losses := 0.0, 0.0
	var plWin, plLoss []float64
	for i, r := range returns {
		if r > 0 {
			gains += r
		} else if r < 0 {
			losses += r
		}
		if pl[i] > 0 {
			plWin = append(plWin, pl[i])
		} else if pl[i] < 0 {
			plLoss = append(plLoss, pl[i])
		}
	}
	profitFactor := math.NaN()
	if losses != 0 {
		profitFactor = gains / math.Abs(losses)
	}
	st.set(StatProfitFactor, profitFactor)
	st.set(StatExpectancy, mean(returns)*100)

	sqn := math.NaN()
	if sd := math.Sqrt(variance(pl)); sd != 0 && !math.IsNaN(sd) {
		sqn = math.Sqrt(float64(n)) * mean(pl) / sd
	}
	st.set(StatSQN, sqn)

	kelly := winRate - (1-winRate)/(mean(plWin)/-mean(plLoss))
	st.set(StatKelly, kelly)
}

func maxDuration(ds []time.Duration) Duration {
	if len(ds) == 0 {
		return Duration{}
	}
	m := ds[0]
	for _, d := range ds[1:] {
		if d > m {
			m = d
		}
	}
	return validDuration(m)
}

func meanDuration(ds []time.Duration) Duration {
	if len(ds) == 0 {
		return Duration{}
	}
	var sum time.Duration
	for _, d := range ds {
		sum += d
	}
	return validDuration(sum / time.Duration(len(ds)))
}
