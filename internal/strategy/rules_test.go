package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"predict-backtest/internal/model"
)

// walk feeds closes through a rule the way the engine does: decisions start
// on the second bar and a Buy/Close takes effect before the next decision.
func walk(t *testing.T, r Strategy, closes []float64) []Decision {
	t.Helper()
	out := make([]Decision, len(closes))
	maxClose := closes[0]
	inPos := false
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 1; i < len(closes); i++ {
		if closes[i] > maxClose {
			maxClose = closes[i]
		}
		d := r.Decide(Context{
			Index:      i,
			Bar:        model.Bar{Time: start.Add(time.Duration(i) * time.Hour), Close: closes[i]},
			MaxClose:   maxClose,
			InPosition: inPos,
		})
		if d.Action == Buy {
			require.False(t, inPos, "buy while a position is open at bar %d", i)
			inPos = true
		}
		if d.Action == Close {
			require.True(t, inPos, "close without a position at bar %d", i)
			inPos = false
		}
		out[i] = d
	}
	return out
}

func TestFixedExitOnChange_OpensAtMaxAndClosesOnNextChange(t *testing.T) {
	r, err := New(Config{Class: "Strategy2", Params: map[string]any{"size": 1.0}})
	require.NoError(t, err)

	got := walk(t, r, []float64{10, 12, 11, 13, 9})

	assert.Equal(t, Buy, got[3].Action, "Close=13 is the running max")
	assert.Equal(t, 1.0, got[3].Size)
	assert.Equal(t, Close, got[4].Action, "Close=9 is off the running max")
	// 12 is also a running max at its bar and gets its own round trip.
	assert.Equal(t, Buy, got[1].Action)
	assert.Equal(t, Close, got[2].Action)
}

func TestFixedExitOnDecline_HoldsThroughMaxAndClosesBelow(t *testing.T) {
	r, err := New(Config{Class: "Strategy4", Params: map[string]any{"size": 2.0}})
	require.NoError(t, err)

	got := walk(t, r, []float64{5, 6, 7, 7, 6.5})

	assert.Equal(t, Buy, got[1].Action)
	assert.Equal(t, Hold, got[2].Action, "new max while holding")
	assert.Equal(t, Hold, got[3].Action, "equal to max is not a decline")
	assert.Equal(t, Close, got[4].Action)
}

func TestBracketExitOnReversal(t *testing.T) {
	r, err := New(Config{Class: "Strategy1", Params: map[string]any{
		"take_profit_ratio": 0.05,
		"stop_loss_ratio":   0.025,
	}})
	require.NoError(t, err)

	got := walk(t, r, []float64{100, 110, 105, 120})

	require.Equal(t, Buy, got[1].Action)
	assert.InDelta(t, 115.5, got[1].TakeProfit, 1e-9)
	assert.InDelta(t, 107.25, got[1].StopLoss, 1e-9)
	assert.Zero(t, got[1].Size, "bracket entries size from available cash")
	assert.Equal(t, Close, got[2].Action)
	assert.Equal(t, Buy, got[3].Action)
}

func TestBracketHasNoReversalExit(t *testing.T) {
	for _, class := range []string{"Strategy3", "Strategy5"} {
		t.Run(class, func(t *testing.T) {
			r, err := New(Config{Class: class, Params: map[string]any{
				"take_profit_ratio": 0.1,
				"stop_loss_ratio":   0.05,
			}})
			require.NoError(t, err)

			got := walk(t, r, []float64{100, 110, 105, 104})

			assert.Equal(t, Buy, got[1].Action)
			assert.Equal(t, Hold, got[2].Action)
			assert.Equal(t, Hold, got[3].Action)
		})
	}
}

func TestRuleString(t *testing.T) {
	r, err := New(Config{Class: "Strategy1", Params: map[string]any{
		"take_profit_ratio": 0.05,
		"stop_loss_ratio":   0.025,
	}})
	require.NoError(t, err)
	assert.Equal(t, "Strategy1(take_profit_ratio=0.05,stop_loss_ratio=0.025)", r.String())

	f, err := New(Config{Class: "Strategy4", Params: map[string]any{"size": 3}})
	require.NoError(t, err)
	assert.Equal(t, "Strategy4(size=3)", f.String())
}
