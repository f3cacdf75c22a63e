package narration

import "github.com/sarchlab/memtracker/ledger"

// DefaultRegistry returns a registry holding the built-in scenarios.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(NewNarrator("ownership", Ownership))
	r.Register(NewNarrator("borrowing", Borrowing))
	r.Register(NewNarrator("cloning", Cloning))
	r.Register(NewNarrator("patterns", Patterns))

	return r
}

// Ownership allocates a string, moves it to a new owner and drops it at the
// end of the scope.
func Ownership(t *ledger.Tracker, obs Observer) error {
	s := &script{t: t, obs: obs}

	s.record(ledger.Operation{
		Kind:        ledger.KindAllocate,
		Location:    "s1",
		TypeLabel:   "String",
		Size:        5,
		Description: `let s1 = String::from("hello")`,
	})
	s.step("s1 owns a heap buffer")

	s.record(ledger.Operation{
		Kind:        ledger.KindMove,
		Location:    "s1",
		Target:      "s2",
		TypeLabel:   "String",
		Size:        5,
		Description: "let s2 = s1",
	})
	s.step("ownership moved to s2; s1 can no longer be used")

	s.record(ledger.Operation{
		Kind:        ledger.KindDeallocate,
		Location:    "s2",
		TypeLabel:   "String",
		Size:        5,
		Description: "s2 goes out of scope",
	})
	s.step("the buffer is freed exactly once")

	return s.err
}

// Borrowing shows several shared borrows followed by one exclusive borrow of
// the same value.
func Borrowing(t *ledger.Tracker, obs Observer) error {
	s := &script{t: t, obs: obs}

	s.record(ledger.Operation{
		Kind:        ledger.KindAllocate,
		Location:    "data",
		TypeLabel:   "Vec<i32>",
		Size:        12,
		Description: "let mut data = vec![1, 2, 3]",
	})
	s.record(ledger.Operation{
		Kind:        ledger.KindBorrow,
		Location:    "r1",
		Target:      "data",
		Description: "let r1 = &data",
	})
	s.record(ledger.Operation{
		Kind:        ledger.KindBorrow,
		Location:    "r2",
		Target:      "data",
		Description: "let r2 = &data",
	})
	s.step("any number of readers may share data")

	s.record(ledger.Operation{Kind: ledger.KindBorrowEnd, Location: "r1"})
	s.record(ledger.Operation{Kind: ledger.KindBorrowEnd, Location: "r2"})
	s.record(ledger.Operation{
		Kind:        ledger.KindMutableBorrow,
		Location:    "w",
		Target:      "data",
		Description: "let w = &mut data",
	})
	s.step("once the readers are gone a single writer may borrow")

	s.record(ledger.Operation{Kind: ledger.KindBorrowEnd, Location: "w"})
	s.record(ledger.Operation{
		Kind:      ledger.KindDeallocate,
		Location:  "data",
		TypeLabel: "Vec<i32>",
		Size:      12,
	})
	s.step("all borrows ended before data was dropped")

	return s.err
}

// Cloning contrasts a deep copy, which needs its own allocation, with a move.
func Cloning(t *ledger.Tracker, obs Observer) error {
	s := &script{t: t, obs: obs}

	s.record(ledger.Operation{
		Kind:      ledger.KindAllocate,
		Location:  "a",
		TypeLabel: "String",
		Size:      11,
	})
	s.record(ledger.Operation{
		Kind:        ledger.KindClone,
		Location:    "a",
		Target:      "b",
		TypeLabel:   "String",
		Size:        11,
		Description: "let b = a.clone()",
	})
	s.record(ledger.Operation{
		Kind:        ledger.KindAllocate,
		Location:    "b",
		TypeLabel:   "String",
		Size:        11,
		Description: "the clone owns a fresh buffer",
	})
	s.step("two independent buffers are live")

	s.record(ledger.Operation{
		Kind:      ledger.KindDeallocate,
		Location:  "a",
		TypeLabel: "String",
		Size:      11,
	})
	s.record(ledger.Operation{
		Kind:      ledger.KindDeallocate,
		Location:  "b",
		TypeLabel: "String",
		Size:      11,
	})
	s.step("each buffer is freed by its own owner")

	return s.err
}

// Patterns walks through a builder that takes ownership of its parts, borrows
// them while validating, and hands the result back.
func Patterns(t *ledger.Tracker, obs Observer) error {
	s := &script{t: t, obs: obs}

	s.record(ledger.Operation{
		Kind:        ledger.KindAllocate,
		Location:    "name",
		TypeLabel:   "String",
		Size:        8,
		Description: "caller builds the name",
	})
	s.record(ledger.Operation{
		Kind:        ledger.KindAllocate,
		Location:    "tags",
		TypeLabel:   "Vec<String>",
		Size:        48,
		Description: "caller builds the tag list",
	})
	s.step("the caller owns both parts")

	s.record(ledger.Operation{
		Kind:        ledger.KindMove,
		Location:    "name",
		Target:      "builder.name",
		TypeLabel:   "String",
		Size:        8,
		Description: "builder.name(name)",
	})
	s.record(ledger.Operation{
		Kind:        ledger.KindMove,
		Location:    "tags",
		Target:      "builder.tags",
		TypeLabel:   "Vec<String>",
		Size:        48,
		Description: "builder.tags(tags)",
	})
	s.record(ledger.Operation{
		Kind:        ledger.KindBorrow,
		Location:    "check",
		Target:      "builder.tags",
		Description: "validate(&builder.tags)",
	})
	s.step("the builder owns the parts and lends them to the validator")

	s.record(ledger.Operation{Kind: ledger.KindBorrowEnd, Location: "check"})
	s.record(ledger.Operation{
		Kind:        ledger.KindMove,
		Location:    "builder.tags",
		Target:      "config.tags",
		TypeLabel:   "Vec<String>",
		Size:        48,
		Description: "builder.build()",
	})
	s.record(ledger.Operation{
		Kind:      ledger.KindMove,
		Location:  "builder.name",
		Target:    "config.name",
		TypeLabel: "String",
		Size:      8,
	})
	s.step("build() moves everything into the finished value")

	s.record(ledger.Operation{
		Kind:      ledger.KindDeallocate,
		Location:  "config.name",
		TypeLabel: "String",
		Size:      8,
	})
	s.record(ledger.Operation{
		Kind:      ledger.KindDeallocate,
		Location:  "config.tags",
		TypeLabel: "Vec<String>",
		Size:      48,
	})
	s.step("dropping the value frees every part")

	return s.err
}
