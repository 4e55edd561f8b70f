package dict

import (
	"math"
)

// threadStats describes how evenly the throughput of a test was spread over the threads
type threadStats struct {
	StdDeviation float64 `json:"std_deviation"`
	Min          float64 `json:"min"`
	Max          float64 `json:"max"`
	Mean         float64 `json:"mean"`
	MinMaxRatio  float64 `json:"min_max_ratio"`
}

// newThreadStats computes the spread of the ops/sec values of all threads
func newThreadStats(opsPerSec []float64) threadStats {
	if len(opsPerSec) == 0 {
		return threadStats{}
	}

	lo, hi := opsPerSec[0], opsPerSec[0]
	var sum float64
	for _, v := range opsPerSec {
		sum += v
		lo = min(lo, v)
		hi = max(hi, v)
	}
	mean := sum / float64(len(opsPerSec))

	// population standard deviation
	var sumSquaredDiffs float64
	for _, v := range opsPerSec {
		diff := v - mean
		sumSquaredDiffs += diff * diff
	}

	ratio := 1.0
	if hi > 0 {
		ratio = lo / hi
	}

	return threadStats{
		StdDeviation: math.Sqrt(sumSquaredDiffs / float64(len(opsPerSec))),
		Min:          lo,
		Max:          hi,
		Mean:         mean,
		MinMaxRatio:  ratio,
	}
}
