package tracing

import (
	"encoding/json"
	"io"
	"sync"

	"github.com/sarchlab/memtracker/ledger"
)

// JSONEntry is one element of the array written by a JSONTracer.
type JSONEntry struct {
	Scenario uint64                 `json:"scenario"`
	Record   ledger.OperationRecord `json:"record"`
}

// JSONTracer writes records as a JSON array. Finish must be called to close
// the array.
type JSONTracer struct {
	w        io.Writer
	lock     sync.Mutex
	started  bool
	scenario uint64
	dirty    bool
}

// NewJSONTracer creates a JSONTracer writing into w.
func NewJSONTracer(w io.Writer) *JSONTracer {
	return &JSONTracer{w: w}
}

// RecordAppended writes the record as the next array element.
func (t *JSONTracer) RecordAppended(rec ledger.OperationRecord) {
	t.lock.Lock()
	defer t.lock.Unlock()

	sep := ",\n"
	if !t.started {
		sep = "[\n"
		t.started = true
	}

	b, err := json.Marshal(JSONEntry{Scenario: t.scenario, Record: rec})
	if err != nil {
		panic(err)
	}

	t.write([]byte(sep))
	t.write(b)

	t.dirty = true
}

// Reset starts numbering the next scenario, unless nothing was recorded
// since the last reset.
func (t *JSONTracer) Reset(_ ledger.Summary) {
	t.lock.Lock()
	defer t.lock.Unlock()

	if t.dirty {
		t.scenario++
		t.dirty = false
	}
}

// Finish closes the array. An empty trace is written as [].
func (t *JSONTracer) Finish() {
	t.lock.Lock()
	defer t.lock.Unlock()

	if !t.started {
		t.write([]byte("[]\n"))
		return
	}

	t.write([]byte("\n]\n"))
}

func (t *JSONTracer) write(b []byte) {
	_, err := t.w.Write(b)
	if err != nil {
		panic(err)
	}
}
