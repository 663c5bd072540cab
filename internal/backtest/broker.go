package backtest

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"predict-backtest/internal/model"
	"predict-backtest/internal/strategy"
)

// OrderError is returned when a strategy submits an order the broker cannot
// accept at all (as opposed to one it cannot afford, which is dropped).
type OrderError struct {
	Bar    int
	Reason string
}

func (e *OrderError) Error() string {
	return fmt.Sprintf("order rejected at bar %d: %s", e.Bar, e.Reason)
}

// allAvailable is the fraction used when a strategy asks for "everything".
var allAvailable = math.Nextafter(1, 0)

type entryOrder struct {
	size       float64
	takeProfit float64
	stopLoss   float64
}

type position struct {
	units       int64
	entryBar    int
	entryTime   time.Time
	entryPrice  float64
	takeProfit  float64
	stopLoss    float64
	commissions decimal.Decimal
}

// unrealized is the P/L of the position at price, net of commissions paid so far.
func (p *position) unrealized(price float64) decimal.Decimal {
	diff := decimal.NewFromFloat(price).Sub(decimal.NewFromFloat(p.entryPrice))
	return decimal.NewFromInt(p.units).Mul(diff).Sub(p.commissions)
}

// broker holds the account state of a single run: cash, at most one open
// long position, and orders waiting for the next bar.
type broker struct {
	bars         []model.Bar
	commission   decimal.Decimal
	leverage     float64
	tradeOnClose bool

	cash      decimal.Decimal
	pos       *position
	entry     *entryOrder
	exitAsked bool
	trades    []model.Trade
}

func newBroker(bars []model.Bar, settings model.Settings) *broker {
	return &broker{
		bars:         bars,
		commission:   decimal.NewFromFloat(settings.Commission),
		leverage:     settings.Options.Leverage(),
		tradeOnClose: settings.Options.TradeOnClose,
		cash:         decimal.NewFromFloat(settings.Cash),
	}
}

func (b *broker) busy() bool { return b.pos != nil || b.entry != nil }

// equity is cash plus the open position marked at price.
func (b *broker) equity(price float64) float64 {
	eq := b.cash
	if b.pos != nil {
		eq = eq.Add(b.pos.unrealized(price))
	}
	return eq.InexactFloat64()
}

// submit records the decision taken on bar i. Entries while a position is
// open or already pending are ignored.
func (b *broker) submit(i int, d strategy.Decision) error {
	switch d.Action {
	case strategy.Buy:
		if b.busy() {
			return nil
		}
		size := d.Size
		if size == 0 {
			size = allAvailable
		}
		if !strategy.ValidSize(size) {
			return &OrderError{Bar: i, Reason: fmt.Sprintf("size %v must be a fraction in (0,1) or a whole number of units", d.Size)}
		}
		adjusted := b.bars[i].Close * (1 + b.commission.InexactFloat64())
		if (d.StopLoss != 0 && d.StopLoss >= adjusted) || (d.TakeProfit != 0 && d.TakeProfit <= adjusted) {
			return &OrderError{Bar: i, Reason: fmt.Sprintf(
				"long orders require SL (%g) < LIMIT (%g) < TP (%g)", d.StopLoss, adjusted, d.TakeProfit)}
		}
		b.entry = &entryOrder{size: size, takeProfit: d.TakeProfit, stopLoss: d.StopLoss}
	case strategy.Close:
		if b.pos != nil {
			b.exitAsked = true
		}
	}
	return nil
}

// process executes everything due on bar i: brackets of the running trade,
// then queued market orders, then brackets of a trade opened on this bar.
func (b *broker) process(i int) {
	bracketsDone := false
	if !b.tradeOnClose && b.pos != nil {
		b.checkBrackets(i)
		bracketsDone = true
	}

	fillBar, fillPrice := i, b.bars[i].Open
	if b.tradeOnClose {
		fillBar, fillPrice = i-1, b.bars[i-1].Close
	}

	if b.exitAsked {
		b.exitAsked = false
		if b.pos != nil {
			b.closePosition(fillBar, fillPrice, model.ExitSignal)
		}
	}

	opened := false
	if o := b.entry; o != nil {
		b.entry = nil
		opened = b.open(o, fillBar, fillPrice)
	}

	if b.pos != nil && (opened || !bracketsDone) {
		b.checkBrackets(i)
	}
}

// checkBrackets closes the position when bar i trades through its stop-loss
// or take-profit. A gap through the level fills at the open. The stop wins
// when both are hit on the same bar.
func (b *broker) checkBrackets(i int) {
	bar, p := b.bars[i], b.pos
	if p.stopLoss != 0 && bar.Low < p.stopLoss {
		b.closePosition(i, math.Min(p.stopLoss, bar.Open), model.ExitStopLoss)
		return
	}
	if p.takeProfit != 0 && bar.High > p.takeProfit {
		b.closePosition(i, math.Max(p.takeProfit, bar.Open), model.ExitTakeProfit)
	}
}

// open fills an entry order. Orders that size to zero units or exceed the
// buying power are cancelled.
func (b *broker) open(o *entryOrder, bar int, price float64) bool {
	c := b.commission.InexactFloat64()
	adjusted := price * (1 + c)
	power := b.equity(price) * b.leverage

	var units int64
	if o.size < 1 {
		units = int64(math.Floor(power * o.size / adjusted))
	} else {
		units = int64(o.size)
	}
	if units <= 0 || float64(units)*adjusted > power {
		return false
	}

	b.pos = &position{
		units:       units,
		entryBar:    bar,
		entryTime:   b.bars[bar].Time,
		entryPrice:  price,
		takeProfit:  o.takeProfit,
		stopLoss:    o.stopLoss,
		commissions: b.fee(units, price),
	}
	return true
}

func (b *broker) fee(units int64, price float64) decimal.Decimal {
	return decimal.NewFromInt(units).Mul(decimal.NewFromFloat(price)).Mul(b.commission)
}

func (b *broker) closePosition(bar int, price float64, reason model.ExitReason) {
	p := b.pos
	p.commissions = p.commissions.Add(b.fee(p.units, price))
	pnl := p.unrealized(price)
	cost := decimal.NewFromInt(p.units).Mul(decimal.NewFromFloat(p.entryPrice))

	ret := 0.0
	if !cost.IsZero() {
		ret = pnl.Div(cost).InexactFloat64()
	}

	b.cash = b.cash.Add(pnl)
	b.trades = append(b.trades, model.Trade{
		Size:        p.units,
		EntryBar:    p.entryBar,
		ExitBar:     bar,
		EntryTime:   p.entryTime,
		ExitTime:    b.bars[bar].Time,
		EntryPrice:  p.entryPrice,
		ExitPrice:   price,
		TakeProfit:  p.takeProfit,
		StopLoss:    p.stopLoss,
		PnL:         pnl.InexactFloat64(),
		ReturnPct:   ret,
		Commissions: p.commissions.InexactFloat64(),
		Reason:      reason,
	})
	b.pos = nil
}

// markOpen describes the running position as if it were closed at bar's
// close, without touching cash.
func (b *broker) markOpen(bar int) model.Trade {
	p := b.pos
	price := b.bars[bar].Close
	pnl := p.unrealized(price)
	ret := 0.0
	if cost := float64(p.units) * p.entryPrice; cost != 0 {
		ret = pnl.InexactFloat64() / cost
	}
	return model.Trade{
		Size:        p.units,
		EntryBar:    p.entryBar,
		ExitBar:     bar,
		EntryTime:   p.entryTime,
		ExitTime:    b.bars[bar].Time,
		EntryPrice:  p.entryPrice,
		ExitPrice:   price,
		TakeProfit:  p.takeProfit,
		StopLoss:    p.stopLoss,
		PnL:         pnl.InexactFloat64(),
		ReturnPct:   ret,
		Commissions: p.commissions.InexactFloat64(),
	}
}
