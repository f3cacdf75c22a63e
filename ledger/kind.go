package ledger

import (
	"fmt"
	"strings"
)

// Kind is the type of a simulated memory event.
type Kind int

// A list of all the operation kinds a Tracker understands.
const (
	KindAllocate Kind = iota
	KindDeallocate
	KindMove
	KindBorrow
	KindMutableBorrow
	KindBorrowEnd
	KindClone
	numKinds
)

var kindNames = [...]string{
	KindAllocate:      "Allocate",
	KindDeallocate:    "Deallocate",
	KindMove:          "Move",
	KindBorrow:        "Borrow",
	KindMutableBorrow: "MutableBorrow",
	KindBorrowEnd:     "BorrowEnd",
	KindClone:         "Clone",
}

// Kinds returns all the valid kinds in declaration order.
func Kinds() []Kind {
	kinds := make([]Kind, 0, numKinds)
	for k := Kind(0); k < numKinds; k++ {
		kinds = append(kinds, k)
	}

	return kinds
}

// Valid reports whether k is one of the declared kinds.
func (k Kind) Valid() bool {
	return k >= 0 && k < numKinds
}

func (k Kind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("Kind(%d)", int(k))
	}

	return kindNames[k]
}

// ParseKind converts a kind name back into a Kind. Matching ignores case.
func ParseKind(s string) (Kind, error) {
	for k := Kind(0); k < numKinds; k++ {
		if strings.EqualFold(kindNames[k], s) {
			return k, nil
		}
	}

	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// MarshalText encodes the kind as its name.
func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, int(k))
	}

	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}

	*k = parsed

	return nil
}

// Exclusivity tells whether a borrow is shared or exclusive.
type Exclusivity int

// Shared borrows may coexist; an exclusive borrow is read-write.
const (
	Shared Exclusivity = iota
	Exclusive
)

func (e Exclusivity) String() string {
	if e == Exclusive {
		return "exclusive"
	}

	return "shared"
}

// MarshalText encodes the exclusivity as "shared" or "exclusive".
func (e Exclusivity) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

// UnmarshalText decodes "shared" or "exclusive".
func (e *Exclusivity) UnmarshalText(text []byte) error {
	switch string(text) {
	case "shared":
		*e = Shared
	case "exclusive":
		*e = Exclusive
	default:
		return fmt.Errorf("unknown exclusivity %q", text)
	}

	return nil
}

// Outcome describes what ingesting a record did to the tables.
type Outcome int

// OutcomeNoOp marks a Deallocate or BorrowEnd whose label had no active
// entry. Such records are kept in the log but change nothing.
const (
	OutcomeApplied Outcome = iota
	OutcomeNoOp
	OutcomeLogOnly
)

func (o Outcome) String() string {
	switch o {
	case OutcomeApplied:
		return "applied"
	case OutcomeNoOp:
		return "no-op"
	case OutcomeLogOnly:
		return "log-only"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// MarshalText encodes the outcome as its name.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText decodes an outcome name.
func (o *Outcome) UnmarshalText(text []byte) error {
	for _, candidate := range []Outcome{OutcomeApplied, OutcomeNoOp, OutcomeLogOnly} {
		if candidate.String() == string(text) {
			*o = candidate
			return nil
		}
	}

	return fmt.Errorf("unknown outcome %q", text)
}
