package ledger

// Summary is a snapshot of the tracker counters.
type Summary struct {
	OperationCount        int    `json:"operation_count"`
	TotalAllocated        uint64 `json:"total_allocated"`
	TotalDeallocated      uint64 `json:"total_deallocated"`
	PeakConcurrent        uint64 `json:"peak_concurrent"`
	CurrentConcurrent     uint64 `json:"current_concurrent"`
	ActiveAllocationCount int    `json:"active_allocation_count"`
	ActiveBorrowCount     int    `json:"active_borrow_count"`
}

// Summary returns the current counters.
func (t *Tracker) Summary() Summary {
	return Summary{
		OperationCount:        len(t.log),
		TotalAllocated:        t.totalAllocated,
		TotalDeallocated:      t.totalDeallocated,
		PeakConcurrent:        t.peakConcurrent,
		CurrentConcurrent:     t.currentConcurrent,
		ActiveAllocationCount: len(t.allocations),
		ActiveBorrowCount:     len(t.borrows),
	}
}

// Recent returns up to n records, most recent first.
func (t *Tracker) Recent(n int) []OperationRecord {
	if n <= 0 {
		return []OperationRecord{}
	}

	if n > len(t.log) {
		n = len(t.log)
	}

	records := make([]OperationRecord, 0, n)
	for i := len(t.log) - 1; i >= len(t.log)-n; i-- {
		records = append(records, t.log[i])
	}

	return records
}

// Len returns the number of records in the log.
func (t *Tracker) Len() int {
	return len(t.log)
}

// HasActiveAllocations reports whether any allocation is live.
func (t *Tracker) HasActiveAllocations() bool {
	return len(t.allocations) > 0
}

// HasActiveBorrows reports whether any borrow is live.
func (t *Tracker) HasActiveBorrows() bool {
	return len(t.borrows) > 0
}
