package tracing

import (
	"log"

	"github.com/sarchlab/memtracker/ledger"
)

// LogTracer writes one comma-separated line per event to a logger.
type LogTracer struct {
	logger *log.Logger
}

// NewLogTracer creates a LogTracer.
func NewLogTracer(logger *log.Logger) *LogTracer {
	return &LogTracer{logger: logger}
}

// RecordAppended logs the record.
func (t *LogTracer) RecordAppended(rec ledger.OperationRecord) {
	t.logger.Printf("record, %d, %s, %s, %s, %s, %d, %s, %s\n",
		rec.Seq,
		rec.Kind,
		rec.Location,
		rec.Target,
		rec.TypeLabel,
		rec.Size,
		rec.Outcome,
		rec.Description,
	)
}

// Reset logs the counters of the scenario that just ended.
func (t *LogTracer) Reset(last ledger.Summary) {
	t.logger.Printf("reset, %d, %d, %d\n",
		last.OperationCount,
		last.PeakConcurrent,
		last.CurrentConcurrent,
	)
}
