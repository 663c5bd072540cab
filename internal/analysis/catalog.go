package analysis

// ValueKind describes how a statistic is rendered in job output.
type ValueKind string

const (
	KindNumber    ValueKind = "number"
	KindTimestamp ValueKind = "timestamp"
	KindDuration  ValueKind = "duration"
	KindText      ValueKind = "string"
)

// Statistic names. Callers select them verbatim in desired_metrics.
const (
	StatStart          = "Start"
	StatEnd            = "End"
	StatDuration       = "Duration"
	StatExposure       = "Exposure Time [%]"
	StatEquityFinal    = "Equity Final [$]"
	StatEquityPeak     = "Equity Peak [$]"
	StatCommissions    = "Commissions [$]"
	StatReturn         = "Return [%]"
	StatBuyHoldReturn  = "Buy & Hold Return [%]"
	StatReturnAnn      = "Return (Ann.) [%]"
	StatVolatilityAnn  = "Volatility (Ann.) [%]"
	StatCAGR           = "CAGR [%]"
	StatSharpe         = "Sharpe Ratio"
	StatSortino        = "Sortino Ratio"
	StatCalmar         = "Calmar Ratio"
	StatAlpha          = "Alpha [%]"
	StatBeta           = "Beta"
	StatMaxDrawdown    = "Max. Drawdown [%]"
	StatAvgDrawdown    = "Avg. Drawdown [%]"
	StatMaxDrawdownDur = "Max. Drawdown Duration"
	StatAvgDrawdownDur = "Avg. Drawdown Duration"
	StatTrades         = "# Trades"
	StatWinRate        = "Win Rate [%]"
	StatBestTrade      = "Best Trade [%]"
	StatWorstTrade     = "Worst Trade [%]"
	StatAvgTrade       = "Avg. Trade [%]"
	StatMaxTradeDur    = "Max. Trade Duration"
	StatAvgTradeDur    = "Avg. Trade Duration"
	StatProfitFactor   = "Profit Factor"
	StatExpectancy     = "Expectancy [%]"
	StatSQN            = "SQN"
	StatKelly          = "Kelly Criterion"
	StatStrategy       = "_strategy"
)

// MetricInfo is one entry of the statistics catalog.
type MetricInfo struct {
	Name string    `json:"name"`
	Kind ValueKind `json:"kind"`
}

var catalog = []MetricInfo{
	{StatStart, KindTimestamp},
	{StatEnd, KindTimestamp},
	{StatDuration, KindDuration},
	{StatExposure, KindNumber},
	{StatEquityFinal, KindNumber},
	{StatEquityPeak, KindNumber},
	{StatCommissions, KindNumber},
	{StatReturn, KindNumber},
	{StatBuyHoldReturn, KindNumber},
	{StatReturnAnn, KindNumber},
	{StatVolatilityAnn, KindNumber},
	{StatCAGR, KindNumber},
	{StatSharpe, KindNumber},
	{StatSortino, KindNumber},
	{StatCalmar, KindNumber},
	{StatAlpha, KindNumber},
	{StatBeta, KindNumber},
	{StatMaxDrawdown, KindNumber},
	{StatAvgDrawdown, KindNumber},
	{StatMaxDrawdownDur, KindDuration},
	{StatAvgDrawdownDur, KindDuration},
	{StatTrades, KindNumber},
	{StatWinRate, KindNumber},
	{StatBestTrade, KindNumber},
	{StatWorstTrade, KindNumber},
	{StatAvgTrade, KindNumber},
	{StatMaxTradeDur, KindDuration},
	{StatAvgTradeDur, KindDuration},
	{StatProfitFactor, KindNumber},
	{StatExpectancy, KindNumber},
	{StatSQN, KindNumber},
	{StatKelly, KindNumber},
	{StatStrategy, KindText},
}

// Catalog lists every statistic Compute produces, in report order.
func Catalog() []MetricInfo {
	out := make([]MetricInfo, len(catalog))
	copy(out, catalog)
	return out
}
