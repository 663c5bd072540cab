package backtest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"predict-backtest/internal/analysis"
)

// MissingPolicy decides what happens when a requested metric is not among
// the computed statistics.
type MissingPolicy string

const (
	MissingNull  MissingPolicy = "null"
	MissingOmit  MissingPolicy = "omit"
	MissingError MissingPolicy = "error"
)

var ErrMissingMetric = errors.New("metric not available")

// ParseMissingPolicy accepts "null", "omit" or "error"; empty means null.
func ParseMissingPolicy(s string) (MissingPolicy, error) {
	switch p := MissingPolicy(s); p {
	case "":
		return MissingNull, nil
	case MissingNull, MissingOmit, MissingError:
		return p, nil
	}
	return "", fmt.Errorf("invalid missing metric policy %q (want null, omit or error)", s)
}

// MetricSet is an ordered selection of statistics, serialised as a JSON object
// in request order.
type MetricSet struct {
	names  []string
	values map[string]any
}

func newMetrics(capacity int) *MetricSet {
	return &MetricSet{values: make(map[string]any, capacity)}
}

func (m *MetricSet) set(name string, v any) {
	if _, ok := m.values[name]; !ok {
		m.names = append(m.names, name)
	}
	m.values[name] = v
}

func (m *MetricSet) Get(name string) (any, bool) {
	if m == nil {
		return nil, false
	}
	v, ok := m.values[name]
	return v, ok
}

func (m *MetricSet) Names() []string {
	if m == nil {
		return nil
	}
	return append([]string(nil), m.names...)
}

func (m *MetricSet) Len() int {
	if m == nil {
		return 0
	}
	return len(m.names)
}

func (m *MetricSet) MarshalJSON() ([]byte, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range m.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(m.values[name])
		if err != nil {
			return nil, fmt.Errorf("metric %q: %w", name, err)
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// selectMetrics picks the requested statistics in request order and coerces
// them to JSON-friendly values.
func selectMetrics(st *analysis.Stats, names []string, policy MissingPolicy) (*MetricSet, error) {
	out := newMetrics(len(names))
	for _, name := range names {
		v, ok := st.Get(name)
		if !ok {
			switch policy {
			case MissingOmit:
				continue
			case MissingError:
				return nil, fmt.Errorf("%w: %q", ErrMissingMetric, name)
			default:
				out.set(name, nil)
				continue
			}
		}
		out.set(name, coerce(v))
	}
	return out, nil
}

// coerce maps a statistic to float64, string or nil. JSON has no NaN or
// infinity, so those become the strings "NaN", "Inf" and "-Inf".
func coerce(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case float64:
		return coerceFloat(x)
	case float32:
		return coerceFloat(float64(x))
	case int:
		return float64(x)
	case int64:
		return float64(x)
	case string:
		return x
	case time.Time:
		return analysis.FormatTimestamp(x)
	case analysis.Duration:
		return x.String()
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}

func coerceFloat(f float64) any {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Inf"
	case math.IsInf(f, -1):
		return "-Inf"
	}
	return f
}
