package analysis

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"predict-backtest/internal/model"
)

func dailyBars(t *testing.T, start time.Time, closes []float64) *model.Series {
	t.Helper()
	bars := make([]model.Bar, len(closes))
	for i, c := range closes {
		bars[i] = model.Bar{Time: start.Add(time.Duration(i) * day), Open: c, High: c, Low: c, Close: c}
	}
	s, err := model.NewSeries(bars)
	require.NoError(t, err)
	return s
}

func equityCurve(s *model.Series, values ...float64) []model.EquityPoint {
	out := make([]model.EquityPoint, len(values))
	for i, v := range values {
		out[i] = model.EquityPoint{Time: s.Bars[i].Time, Equity: v}
	}
	return out
}

func TestCompute_BasicRun(t *testing.T) {
	// 2024-01-01 is a Monday; four weekday bars.
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := dailyBars(t, start, []float64{10, 11, 9, 12})
	trades := []model.Trade{{
		Size: 1, EntryBar: 1, ExitBar: 2,
		EntryTime: s.Bars[1].Time, ExitTime: s.Bars[2].Time,
		PnL: 5, ReturnPct: 0.05, Commissions: 0.5,
	}}

	st := Compute(Input{
		Series:   s,
		Trades:   trades,
		Equity:   equityCurve(s, 100, 110, 99, 120),
		Strategy: "Strategy1(take_profit_ratio=0.05,stop_loss_ratio=0.025)",
	})

	assert.Equal(t, Catalog()[0].Name, st.Keys()[0])
	assert.Len(t, st.Keys(), len(Catalog()))

	v, ok := st.Get(StatStart)
	require.True(t, ok)
	assert.Equal(t, start, v)

	v, _ = st.Get(StatDuration)
	assert.Equal(t, "3 days 00:00:00", v.(Duration).String())

	assert.InDelta(t, 50.0, st.Float(StatExposure), 1e-9)
	assert.InDelta(t, 120.0, st.Float(StatEquityFinal), 1e-9)
	assert.InDelta(t, 120.0, st.Float(StatEquityPeak), 1e-9)
	assert.InDelta(t, 0.5, st.Float(StatCommissions), 1e-9)
	assert.InDelta(t, 20.0, st.Float(StatReturn), 1e-9)
	assert.InDelta(t, 20.0, st.Float(StatBuyHoldReturn), 1e-9)
	assert.InDelta(t, -10.0, st.Float(StatMaxDrawdown), 1e-9)
	assert.InDelta(t, -10.0, st.Float(StatAvgDrawdown), 1e-9)

	v, _ = st.Get(StatMaxDrawdownDur)
	assert.Equal(t, "2 days 00:00:00", v.(Duration).String())

	assert.Equal(t, 1, st.values[StatTrades])
	assert.InDelta(t, 100.0, st.Float(StatWinRate), 1e-9)
	assert.InDelta(t, 5.0, st.Float(StatBestTrade), 1e-9)
	assert.InDelta(t, 5.0, st.Float(StatWorstTrade), 1e-9)
	assert.InDelta(t, 5.0, st.Float(StatAvgTrade), 1e-9)
	assert.InDelta(t, 5.0, st.Float(StatExpectancy), 1e-9)
	assert.True(t, math.IsNaN(st.Float(StatProfitFactor)), "no losing trades")
	assert.True(t, math.IsNaN(st.Float(StatSQN)), "one trade has no deviation")

	v, _ = st.Get(StatMaxTradeDur)
	assert.Equal(t, "1 days 00:00:00", v.(Duration).String())

	assert.False(t, math.IsNaN(st.Float(StatReturnAnn)))
	assert.False(t, math.IsNaN(st.Float(StatVolatilityAnn)))
	assert.False(t, math.IsNaN(st.Float(StatBeta)))

	v, _ = st.Get(StatStrategy)
	assert.Equal(t, "Strategy1(take_profit_ratio=0.05,stop_loss_ratio=0.025)", v)
}

func TestCompute_NoTrades(t *testing.T) {
	s := dailyBars(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), []float64{10, 11, 12})
	st := Compute(Input{Series: s, Equity: equityCurve(s, 1000, 1000, 1000)})

	assert.Equal(t, 0, st.values[StatTrades])
	assert.InDelta(t, 0.0, st.Float(StatExposure), 1e-9)
	assert.InDelta(t, 0.0, st.Float(StatReturn), 1e-9)
	assert.InDelta(t, 0.0, st.Float(StatMaxDrawdown), 1e-9)
	assert.True(t, math.IsNaN(st.Float(StatWinRate)))
	assert.True(t, math.IsNaN(st.Float(StatBestTrade)))
	assert.True(t, math.IsNaN(st.Float(StatSharpe)), "flat equity has zero volatility")

	v, _ := st.Get(StatAvgTradeDur)
	assert.Equal(t, "NaT", v.(Duration).String())
	v, _ = st.Get(StatMaxDrawdownDur)
	assert.Equal(t, "NaT", v.(Duration).String())
}

func TestGeometricMean(t *testing.T) {
	got := geometricMean([]float64{math.NaN(), 0.1, -0.1})
	want := math.Exp((math.Log(1.1)+math.Log(0.9))/3) - 1
	assert.InDelta(t, want, got, 1e-12)

	assert.Equal(t, 0.0, geometricMean([]float64{0.2, -1}))
	assert.True(t, math.IsNaN(geometricMean(nil)))
}

func TestAnnualTradingDays(t *testing.T) {
	weekdays := []time.Time{
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
	}
	assert.Equal(t, 252.0, annualTradingDays(weekdays))

	var everyDay []time.Time
	for i := 0; i < 14; i++ {
		everyDay = append(everyDay, time.Date(2024, 1, 1+i, 0, 0, 0, 0, time.UTC))
	}
	assert.Equal(t, 365.0, annualTradingDays(everyDay))
}

func TestDrawdownPeriods_OpenAtEnd(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	times := []time.Time{base, base.Add(time.Hour), base.Add(2 * time.Hour), base.Add(3 * time.Hour)}
	dd := drawdownSeries([]float64{100, 90, 95, 80})

	periods := drawdownPeriods(dd, times)
	require.Len(t, periods, 1)
	assert.Equal(t, 3*time.Hour, periods[0].Duration)
	assert.InDelta(t, 0.2, periods[0].Peak, 1e-12)
}

func TestRankByMetric(t *testing.T) {
	mk := func(v float64) *Stats {
		st := newStats()
		st.set(StatSharpe, v)
		return st
	}
	ranked := RankByMetric(map[string]*Stats{
		"Strategy 1": mk(0.5),
		"Strategy 2": mk(math.NaN()),
		"Strategy 3": mk(1.5),
		"Strategy 4": nil,
	}, StatSharpe)

	ids := make([]string, len(ranked))
	for i, r := range ranked {
		ids[i] = r.ID
	}
	assert.Equal(t, []string{"Strategy 3", "Strategy 1", "Strategy 2", "Strategy 4"}, ids)
}
