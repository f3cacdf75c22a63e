package tracing

import (
	"sync"

	"github.com/sarchlab/memtracker/ledger"
)

// KindCountTracer counts how often each kind of operation is recorded, how
// many of them were no-ops, and how many bytes they carried. Counts survive
// ledger resets. It can be read from another goroutine while the ledger is
// being driven.
type KindCountTracer struct {
	lock      sync.Mutex
	counts    map[ledger.Kind]uint64
	noOps     map[ledger.Kind]uint64
	bytes     map[ledger.Kind]uint64
	scenarios uint64
}

// NewKindCountTracer creates a new KindCountTracer.
func NewKindCountTracer() *KindCountTracer {
	return &KindCountTracer{
		counts: make(map[ledger.Kind]uint64),
		noOps:  make(map[ledger.Kind]uint64),
		bytes:  make(map[ledger.Kind]uint64),
	}
}

// RecordAppended counts the record.
func (t *KindCountTracer) RecordAppended(rec ledger.OperationRecord) {
	t.lock.Lock()
	defer t.lock.Unlock()

	t.counts[rec.Kind]++
	t.bytes[rec.Kind] += rec.Size

	if rec.Outcome == ledger.OutcomeNoOp {
		t.noOps[rec.Kind]++
	}
}

// Reset counts finished scenarios. Resets of an empty ledger are ignored.
func (t *KindCountTracer) Reset(last ledger.Summary) {
	if last.OperationCount == 0 {
		return
	}

	t.lock.Lock()
	t.scenarios++
	t.lock.Unlock()
}

// Count returns the number of records of a kind.
func (t *KindCountTracer) Count(kind ledger.Kind) uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.counts[kind]
}

// NoOpCount returns the number of records of a kind that changed nothing.
func (t *KindCountTracer) NoOpCount(kind ledger.Kind) uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.noOps[kind]
}

// Bytes returns the sum of the sizes carried by records of a kind.
func (t *KindCountTracer) Bytes(kind ledger.Kind) uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.bytes[kind]
}

// Total returns the number of records seen.
func (t *KindCountTracer) Total() uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	var total uint64
	for _, c := range t.counts {
		total += c
	}

	return total
}

// Scenarios returns the number of non-empty scenarios that were reset away.
func (t *KindCountTracer) Scenarios() uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.scenarios
}
