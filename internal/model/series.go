package model

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrEmptySeries    = errors.New("price series is empty")
	ErrDuplicateIndex = errors.New("price series contains duplicate timestamps")
	ErrNotMonotonic   = errors.New("price series is not sorted by timestamp")
)

// Bar is one time-indexed OHLC record.
//
// The input only carries a predicted close and the last actual close, so
// High and Low are placeholders equal to Close and Open is the last actual
// close. Keep that in mind before reading anything into intrabar ranges.
type Bar struct {
	Time  time.Time
	Open  float64
	High  float64
	Low   float64
	Close float64
}

// Series is an ordered, duplicate-free sequence of bars.
// It is never mutated after construction; engine runs share it.
type Series struct {
	Bars []Bar
}

func NewSeries(bars []Bar) (*Series, error) {
	s := &Series{Bars: bars}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Series) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Bars)
}

// Validate checks that timestamps are strictly increasing.
func (s *Series) Validate() error {
	if s.Len() == 0 {
		return ErrEmptySeries
	}
	for i := 1; i < len(s.Bars); i++ {
		prev, cur := s.Bars[i-1].Time, s.Bars[i].Time
		if cur.Equal(prev) {
			return fmt.Errorf("%w: %s at rows %d and %d", ErrDuplicateIndex, cur.Format(time.RFC3339), i-1, i)
		}
		if cur.Before(prev) {
			return fmt.Errorf("%w: %s precedes %s", ErrNotMonotonic, cur.Format(time.RFC3339), prev.Format(time.RFC3339))
		}
	}
	return nil
}

func (s *Series) Closes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Close
	}
	return out
}

func (s *Series) Times() []time.Time {
	out := make([]time.Time, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Time
	}
	return out
}

func (s *Series) Start() time.Time { return s.Bars[0].Time }
func (s *Series) End() time.Time   { return s.Bars[len(s.Bars)-1].Time }
