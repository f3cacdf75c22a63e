package ledger

// Operation is the input of Tracker.Record.
type Operation struct {
	Kind     Kind
	Location string

	// Target is the borrowed location for Borrow and MutableBorrow, and the
	// destination label for Move and Clone.
	Target string

	TypeLabel   string
	Size        int64
	Description string
}

// An OperationRecord is one entry of the operation log. Records are values;
// the log hands out copies.
type OperationRecord struct {
	Seq         uint64  `json:"seq"`
	Kind        Kind    `json:"kind"`
	Location    string  `json:"location"`
	Target      string  `json:"target,omitempty"`
	TypeLabel   string  `json:"type_label"`
	Size        uint64  `json:"size"`
	Description string  `json:"description,omitempty"`
	Outcome     Outcome `json:"outcome"`
}

// HasDescription reports whether the caller attached a description.
func (r OperationRecord) HasDescription() bool {
	return r.Description != ""
}

// AllocationEntry is a live simulated allocation.
type AllocationEntry struct {
	Location   string `json:"location"`
	Size       uint64 `json:"size"`
	TypeLabel  string `json:"type_label"`
	CreatedSeq uint64 `json:"created_seq"`
}

// BorrowEntry is a live simulated borrow.
type BorrowEntry struct {
	Label       string      `json:"label"`
	Target      string      `json:"target"`
	Exclusivity Exclusivity `json:"exclusivity"`
	CreatedSeq  uint64      `json:"created_seq"`
}
