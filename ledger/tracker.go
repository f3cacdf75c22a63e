// Package ledger keeps an append-only log of simulated memory operations and
// derives from it the set of live allocations, the set of live borrows, and
// running byte counters.
//
// A Tracker is not safe for concurrent use. Hosts that share one across
// goroutines must serialize every call themselves.
package ledger

import (
	"fmt"
	"math"
	"sort"

	"github.com/sarchlab/memtracker/hooking"
)

// Hook positions invoked by a Tracker.
var (
	// HookPosRecordAppended fires once per appended record. The item is the
	// OperationRecord.
	HookPosRecordAppended = &hooking.HookPos{Name: "RecordAppended"}

	// HookPosReset fires when the tracker is reset. The item is the Summary
	// taken just before the reset.
	HookPosReset = &hooking.HookPos{Name: "Reset"}
)

// A Tracker owns the operation log, the allocation and borrow tables and the
// byte counters derived from them.
type Tracker struct {
	*hooking.HookableBase

	log         []OperationRecord
	allocations map[string]AllocationEntry
	borrows     map[string]BorrowEntry
	nextSeq     uint64

	totalAllocated    uint64
	totalDeallocated  uint64
	peakConcurrent    uint64
	currentConcurrent uint64
}

// NewTracker creates an empty Tracker.
func NewTracker() *Tracker {
	t := &Tracker{
		HookableBase: hooking.NewHookableBase(),
	}
	t.clear()

	return t
}

func (t *Tracker) clear() {
	t.log = nil
	t.allocations = make(map[string]AllocationEntry)
	t.borrows = make(map[string]BorrowEntry)
	t.nextSeq = 1
	t.totalAllocated = 0
	t.totalDeallocated = 0
	t.peakConcurrent = 0
	t.currentConcurrent = 0
}

// Reset discards the log, both tables and all counters. Sequence numbers
// start over from 1.
func (t *Tracker) Reset() {
	before := t.Summary()

	t.clear()

	t.InvokeHook(hooking.HookCtx{
		Domain: t,
		Pos:    HookPosReset,
		Item:   before,
	})
}

// Record appends an operation to the log and applies its effect on the
// tables. It returns the sequence number assigned to the record. For Move,
// the returned number is the one of the Move marker; the derived Deallocate
// and Allocate records follow it.
//
// Byte counters are uint64. An Allocate or Move that would push the total
// allocated bytes past math.MaxUint64 is rejected with ErrSizeOverflow.
func (t *Tracker) Record(op Operation) (uint64, error) {
	err := t.validate(op)
	if err != nil {
		return 0, err
	}

	switch op.Kind {
	case KindAllocate:
		return t.allocate(op), nil
	case KindDeallocate:
		return t.deallocate(op), nil
	case KindMove:
		return t.move(op), nil
	case KindBorrow:
		return t.borrow(op, Shared), nil
	case KindMutableBorrow:
		return t.borrow(op, Exclusive), nil
	case KindBorrowEnd:
		return t.endBorrow(op), nil
	case KindClone:
		return t.logOnly(op), nil
	}

	panic("unreachable")
}

func (t *Tracker) validate(op Operation) error {
	if !op.Kind.Valid() {
		return fmt.Errorf("%w: %s", ErrUnknownKind, op.Kind)
	}

	if op.Size < 0 {
		return fmt.Errorf("%s %q with size %d: %w",
			op.Kind, op.Location, op.Size, ErrNegativeSize)
	}

	if (op.Kind == KindMove || op.Kind == KindClone) && op.Target == "" {
		return fmt.Errorf("%s %q: %w", op.Kind, op.Location, ErrMissingTarget)
	}

	// totalAllocated bounds both the live and the peak byte counts.
	if (op.Kind == KindAllocate || op.Kind == KindMove) &&
		uint64(op.Size) > math.MaxUint64-t.totalAllocated {
		return fmt.Errorf("%s %q with size %d: %w",
			op.Kind, op.Location, op.Size, ErrSizeOverflow)
	}

	return nil
}

func (t *Tracker) appendRecord(op Operation, outcome Outcome) OperationRecord {
	rec := OperationRecord{
		Seq:         t.nextSeq,
		Kind:        op.Kind,
		Location:    op.Location,
		Target:      op.Target,
		TypeLabel:   op.TypeLabel,
		Size:        uint64(op.Size),
		Description: op.Description,
		Outcome:     outcome,
	}

	t.nextSeq++
	t.log = append(t.log, rec)

	return rec
}

func (t *Tracker) notifyAppended(rec OperationRecord) {
	t.InvokeHook(hooking.HookCtx{
		Domain: t,
		Pos:    HookPosRecordAppended,
		Item:   rec,
	})
}

// logOnly appends a record that leaves the tables untouched.
func (t *Tracker) logOnly(op Operation) uint64 {
	rec := t.appendRecord(op, OutcomeLogOnly)
	t.notifyAppended(rec)

	return rec.Seq
}

func (t *Tracker) allocate(op Operation) uint64 {
	rec := t.appendRecord(op, OutcomeApplied)

	// Allocating over a live location replaces it. The old bytes are released
	// first so that the live sum stays equal to the table contents.
	old, found := t.allocations[op.Location]
	if found {
		t.release(old)
	}

	t.allocations[op.Location] = AllocationEntry{
		Location:   op.Location,
		Size:       rec.Size,
		TypeLabel:  op.TypeLabel,
		CreatedSeq: rec.Seq,
	}

	t.totalAllocated += rec.Size
	t.currentConcurrent += rec.Size

	if t.currentConcurrent > t.peakConcurrent {
		t.peakConcurrent = t.currentConcurrent
	}

	t.notifyAppended(rec)

	return rec.Seq
}

func (t *Tracker) release(entry AllocationEntry) {
	delete(t.allocations, entry.Location)
	t.currentConcurrent -= entry.Size
	t.totalDeallocated += entry.Size
}

func (t *Tracker) deallocate(op Operation) uint64 {
	entry, found := t.allocations[op.Location]
	if !found {
		rec := t.appendRecord(op, OutcomeNoOp)
		t.notifyAppended(rec)

		return rec.Seq
	}

	rec := t.appendRecord(op, OutcomeApplied)
	t.release(entry)
	t.notifyAppended(rec)

	return rec.Seq
}

func (t *Tracker) move(op Operation) uint64 {
	marker := t.logOnly(op)

	t.deallocate(Operation{
		Kind:        KindDeallocate,
		Location:    op.Location,
		TypeLabel:   op.TypeLabel,
		Size:        op.Size,
		Description: "moved to " + op.Target,
	})

	t.allocate(Operation{
		Kind:        KindAllocate,
		Location:    op.Target,
		TypeLabel:   op.TypeLabel,
		Size:        op.Size,
		Description: "moved from " + op.Location,
	})

	return marker
}

// borrow records a borrow keyed by the operation's location. Borrowing again
// under a label that is still active replaces the previous entry.
func (t *Tracker) borrow(op Operation, exclusivity Exclusivity) uint64 {
	rec := t.appendRecord(op, OutcomeApplied)

	t.borrows[op.Location] = BorrowEntry{
		Label:       op.Location,
		Target:      op.Target,
		Exclusivity: exclusivity,
		CreatedSeq:  rec.Seq,
	}

	t.notifyAppended(rec)

	return rec.Seq
}

func (t *Tracker) endBorrow(op Operation) uint64 {
	_, found := t.borrows[op.Location]
	if !found {
		rec := t.appendRecord(op, OutcomeNoOp)
		t.notifyAppended(rec)

		return rec.Seq
	}

	rec := t.appendRecord(op, OutcomeApplied)
	delete(t.borrows, op.Location)
	t.notifyAppended(rec)

	return rec.Seq
}

// Allocate records that size bytes of typeLabel now live at location.
func (t *Tracker) Allocate(
	location, typeLabel string,
	size int64,
) (uint64, error) {
	return t.Record(Operation{
		Kind:      KindAllocate,
		Location:  location,
		TypeLabel: typeLabel,
		Size:      size,
	})
}

// Deallocate records that the value at location has been dropped.
func (t *Tracker) Deallocate(
	location, typeLabel string,
	size int64,
) (uint64, error) {
	return t.Record(Operation{
		Kind:      KindDeallocate,
		Location:  location,
		TypeLabel: typeLabel,
		Size:      size,
	})
}

// Move records ownership moving from src to dst.
func (t *Tracker) Move(src, dst, typeLabel string, size int64) (uint64, error) {
	return t.Record(Operation{
		Kind:      KindMove,
		Location:  src,
		Target:    dst,
		TypeLabel: typeLabel,
		Size:      size,
	})
}

// Borrow records a shared borrow named label of target.
func (t *Tracker) Borrow(label, target string) (uint64, error) {
	return t.Record(Operation{
		Kind:     KindBorrow,
		Location: label,
		Target:   target,
	})
}

// MutableBorrow records an exclusive borrow named label of target.
func (t *Tracker) MutableBorrow(label, target string) (uint64, error) {
	return t.Record(Operation{
		Kind:     KindMutableBorrow,
		Location: label,
		Target:   target,
	})
}

// EndBorrow records that the borrow named label went out of scope.
func (t *Tracker) EndBorrow(label string) (uint64, error) {
	return t.Record(Operation{
		Kind:     KindBorrowEnd,
		Location: label,
	})
}

// Clone records a deep copy of src into dst. It does not allocate dst; call
// Allocate as well if the copy should count as live memory.
func (t *Tracker) Clone(src, dst, typeLabel string, size int64) (uint64, error) {
	return t.Record(Operation{
		Kind:      KindClone,
		Location:  src,
		Target:    dst,
		TypeLabel: typeLabel,
		Size:      size,
	})
}

// Records returns a copy of the whole log, oldest first.
func (t *Tracker) Records() []OperationRecord {
	records := make([]OperationRecord, len(t.log))
	copy(records, t.log)

	return records
}

// ActiveAllocation returns the live allocation at location, if any.
func (t *Tracker) ActiveAllocation(location string) (AllocationEntry, bool) {
	entry, found := t.allocations[location]
	return entry, found
}

// ActiveBorrow returns the live borrow named label, if any.
func (t *Tracker) ActiveBorrow(label string) (BorrowEntry, bool) {
	entry, found := t.borrows[label]
	return entry, found
}

// Allocations returns the live allocations sorted by location.
func (t *Tracker) Allocations() []AllocationEntry {
	entries := make([]AllocationEntry, 0, len(t.allocations))
	for _, e := range t.allocations {
		entries = append(entries, e)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Location < entries[j].Location
	})

	return entries
}

// Borrows returns the live borrows sorted by label.
func (t *Tracker) Borrows() []BorrowEntry {
	entries := make([]BorrowEntry, 0, len(t.borrows))
	for _, e := range t.borrows {
		entries = append(entries, e)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Label < entries[j].Label
	})

	return entries
}
