package dict

import (
	"errors"
	"fmt"
	"github.com/ValentinKolb/rDict/lib/common"
	"github.com/VictoriaMetrics/metrics"
	"time"
)

// --------------------------------------------------------------------------
// Metrics (exposed through the default VictoriaMetrics set)
// --------------------------------------------------------------------------

const (
	metricOperations     = "rdict_operations_total"
	metricErrors         = "rdict_operation_errors_total"
	metricDuration       = "rdict_operation_duration_seconds"
	metricFlushedCommand = "rdict_pipeline_flushed_commands"
)

// variantName returns the label value of the dictionary variant
func (d *dictImpl) variantName() string {
	if d.keys.ordered() {
		return "ordered"
	}
	return "plain"
}

// observe records one call of op. It is deferred at the top of an operation with the address
// of the named error result: defer d.observe("get", time.Now(), &err)
func (d *dictImpl) observe(op string, start time.Time, err *error) {
	labels := fmt.Sprintf(`{variant=%q,op=%q}`, d.variantName(), op)
	metrics.GetOrCreateCounter(metricOperations + labels).Inc()
	metrics.GetOrCreateHistogram(fmt.Sprintf(`%s{op=%q}`, metricDuration, op)).UpdateDuration(start)

	// absent keys are an expected outcome, not a failure
	if err != nil && *err != nil && !errors.Is(*err, common.ErrKeyNotFound) {
		metrics.GetOrCreateCounter(metricErrors + labels).Inc()
	}
}

// observeFlush records the number of commands sent by a pipeline flush
func observeFlush(n int) {
	metrics.GetOrCreateCounter(metricFlushedCommand).Add(n)
}
