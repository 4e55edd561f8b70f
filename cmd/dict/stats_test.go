package dict

import (
	"math"
	"testing"
)

func TestNewThreadStats(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   threadStats
	}{
		{"empty", nil, threadStats{}},
		{"single", []float64{10}, threadStats{Min: 10, Max: 10, Mean: 10, MinMaxRatio: 1}},
		{"spread", []float64{2, 4, 4, 4, 5, 5, 7, 9}, threadStats{StdDeviation: 2, Min: 2, Max: 9, Mean: 5, MinMaxRatio: 2.0 / 9}},
		{"all zero", []float64{0, 0}, threadStats{MinMaxRatio: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := newThreadStats(tt.values)
			if math.Abs(got.StdDeviation-tt.want.StdDeviation) > 1e-9 ||
				got.Min != tt.want.Min || got.Max != tt.want.Max ||
				got.Mean != tt.want.Mean || math.Abs(got.MinMaxRatio-tt.want.MinMaxRatio) > 1e-9 {
				t.Errorf("Expected %+v, got %+v", tt.want, got)
			}
		})
	}
}
