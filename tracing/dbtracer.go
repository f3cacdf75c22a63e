package tracing

import (
	"github.com/sarchlab/memtracker/datarecording"
	"github.com/sarchlab/memtracker/ledger"
)

// Tables written by DBTracer.
const (
	OperationTable = "memory_operations"
	ScenarioTable  = "scenario_summaries"
)

// OperationEntry is one row of the operation table.
type OperationEntry struct {
	Scenario    uint64
	Seq         uint64
	Kind        string
	Location    string
	Target      string
	TypeLabel   string
	Size        uint64
	Description string
	Outcome     string
}

// ToRecord converts the row back into a record.
func (e OperationEntry) ToRecord() (ledger.OperationRecord, error) {
	kind, err := ledger.ParseKind(e.Kind)
	if err != nil {
		return ledger.OperationRecord{}, err
	}

	rec := ledger.OperationRecord{
		Seq:         e.Seq,
		Kind:        kind,
		Location:    e.Location,
		Target:      e.Target,
		TypeLabel:   e.TypeLabel,
		Size:        e.Size,
		Description: e.Description,
	}

	err = rec.Outcome.UnmarshalText([]byte(e.Outcome))
	if err != nil {
		return ledger.OperationRecord{}, err
	}

	return rec, nil
}

// ScenarioEntry is the final summary of one scenario.
type ScenarioEntry struct {
	Scenario              uint64
	OperationCount        int
	TotalAllocated        uint64
	TotalDeallocated      uint64
	PeakConcurrent        uint64
	CurrentConcurrent     uint64
	ActiveAllocationCount int
	ActiveBorrowCount     int
}

// A DBTracer records every operation into a DataRecorder. Each run between
// two resets is numbered as one scenario.
type DBTracer struct {
	dataRecorder datarecording.DataRecorder
	scenario     uint64
}

// NewDBTracer creates the operation and scenario tables and returns a tracer
// writing into them.
func NewDBTracer(dataRecorder datarecording.DataRecorder) *DBTracer {
	t := &DBTracer{
		dataRecorder: dataRecorder,
	}

	t.dataRecorder.CreateTable(OperationTable, OperationEntry{})
	t.dataRecorder.CreateTable(ScenarioTable, ScenarioEntry{})

	return t
}

// Scenario returns the number of the scenario currently being recorded.
func (t *DBTracer) Scenario() uint64 {
	return t.scenario
}

// RecordAppended buffers the record as a row.
func (t *DBTracer) RecordAppended(rec ledger.OperationRecord) {
	t.dataRecorder.InsertData(OperationTable, OperationEntry{
		Scenario:    t.scenario,
		Seq:         rec.Seq,
		Kind:        rec.Kind.String(),
		Location:    rec.Location,
		Target:      rec.Target,
		TypeLabel:   rec.TypeLabel,
		Size:        rec.Size,
		Description: rec.Description,
		Outcome:     rec.Outcome.String(),
	})
}

// Reset closes the current scenario. Resets of an empty ledger do not start a
// new scenario.
func (t *DBTracer) Reset(last ledger.Summary) {
	t.closeScenario(last)
}

// Finish closes the current scenario with the final state of the ledger and
// flushes the recorder.
func (t *DBTracer) Finish(final ledger.Summary) {
	t.closeScenario(final)
	t.dataRecorder.Flush()
}

func (t *DBTracer) closeScenario(s ledger.Summary) {
	if s.OperationCount == 0 {
		return
	}

	t.dataRecorder.InsertData(ScenarioTable, ScenarioEntry{
		Scenario:              t.scenario,
		OperationCount:        s.OperationCount,
		TotalAllocated:        s.TotalAllocated,
		TotalDeallocated:      s.TotalDeallocated,
		PeakConcurrent:        s.PeakConcurrent,
		CurrentConcurrent:     s.CurrentConcurrent,
		ActiveAllocationCount: s.ActiveAllocationCount,
		ActiveBorrowCount:     s.ActiveBorrowCount,
	})

	t.scenario++
}
