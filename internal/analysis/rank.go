package analysis

import (
	"math"
	"sort"
)

type Ranked struct {
	ID    string  `json:"id"`
	Value float64 `json:"value"`
}

// RankByMetric orders runs by one numeric statistic, best (highest) first.
// Runs where the statistic is missing or NaN sort last; ties break on ID.
func RankByMetric(byID map[string]*Stats, metric string) []Ranked {
	out := make([]Ranked, 0, len(byID))
	for id, st := range byID {
		out = append(out, Ranked{ID: id, Value: st.Float(metric)})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		an, bn := math.IsNaN(a.Value), math.IsNaN(b.Value)
		if an != bn {
			return bn
		}
		if !an && a.Value != b.Value {
			return a.Value > b.Value
		}
		return a.ID < b.ID
	})
	return out
}
