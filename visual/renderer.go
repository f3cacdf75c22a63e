// Package visual turns the contents of a ledger into plain text diagrams.
package visual

import (
	"fmt"
	"math/bits"
	"strings"

	"github.com/sarchlab/memtracker/ledger"
)

// DefaultMaxBarWidth is the widest bar drawn for an allocation.
const DefaultMaxBarWidth = 40

// StateViewer is the part of a tracker that RenderState reads.
type StateViewer interface {
	Allocations() []ledger.AllocationEntry
	Borrows() []ledger.BorrowEntry
}

// A Renderer formats tracker state and records as text.
type Renderer struct {
	maxBarWidth int
	barRune     rune
}

// NewRenderer creates a Renderer with the default settings.
func NewRenderer() Renderer {
	return Renderer{
		maxBarWidth: DefaultMaxBarWidth,
		barRune:     '#',
	}
}

// WithMaxBarWidth sets the widest bar. Values below 1 are treated as 1.
func (r Renderer) WithMaxBarWidth(width int) Renderer {
	if width < 1 {
		width = 1
	}

	r.maxBarWidth = width

	return r
}

// WithBarRune sets the character bars are drawn with.
func (r Renderer) WithBarRune(c rune) Renderer {
	r.barRune = c
	return r
}

// MaxBarWidth returns the widest bar the renderer draws.
func (r Renderer) MaxBarWidth() int {
	return r.maxBarWidth
}

// RenderState draws one line per live allocation followed by one line per
// live borrow. It returns an empty string when nothing is live.
func (r Renderer) RenderState(v StateViewer) string {
	var sb strings.Builder

	allocations := v.Allocations()

	var largest uint64
	for _, a := range allocations {
		if a.Size > largest {
			largest = a.Size
		}
	}

	for _, a := range allocations {
		fmt.Fprintf(&sb, "%s [%s] %d bytes (%s)\n",
			a.Location,
			strings.Repeat(string(r.barRune), r.barWidth(a.Size, largest)),
			a.Size,
			a.TypeLabel,
		)
	}

	for _, b := range v.Borrows() {
		fmt.Fprintf(&sb, "%s --(%s)--> %s\n", b.Label, b.Exclusivity, b.Target)
	}

	return sb.String()
}

// barWidth scales size against the largest live allocation, rounding up, and
// clamps the result to [1, maxBarWidth].
func (r Renderer) barWidth(size, largest uint64) int {
	if largest == 0 {
		return 1
	}

	if size >= largest {
		return r.maxBarWidth
	}

	// 128-bit product, so sizes near the int64 limit still scale.
	hi, lo := bits.Mul64(size, uint64(r.maxBarWidth))
	lo, carry := bits.Add64(lo, largest-1, 0)
	width, _ := bits.Div64(hi+carry, lo, largest)

	switch {
	case width < 1:
		return 1
	case width > uint64(r.maxBarWidth):
		return r.maxBarWidth
	default:
		return int(width)
	}
}

// RenderOperation formats a single record on one line.
func (r Renderer) RenderOperation(rec ledger.OperationRecord) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "#%d %s %s @ %s", rec.Seq, rec.Kind, rec.TypeLabel, rec.Location)

	if rec.Target != "" {
		fmt.Fprintf(&sb, " -> %s", rec.Target)
	}

	fmt.Fprintf(&sb, " (%d bytes)", rec.Size)

	if rec.HasDescription() {
		fmt.Fprintf(&sb, ": %s", rec.Description)
	}

	if rec.Outcome == ledger.OutcomeNoOp {
		sb.WriteString(" [no-op]")
	}

	return sb.String()
}

// RenderRecent formats records one per line, in the order given.
func (r Renderer) RenderRecent(records []ledger.OperationRecord) string {
	var sb strings.Builder

	for _, rec := range records {
		sb.WriteString(r.RenderOperation(rec))
		sb.WriteByte('\n')
	}

	return sb.String()
}

// RenderSummary formats the counters as a small table.
func (r Renderer) RenderSummary(s ledger.Summary) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "operations:          %d\n", s.OperationCount)
	fmt.Fprintf(&sb, "total allocated:     %d bytes\n", s.TotalAllocated)
	fmt.Fprintf(&sb, "total deallocated:   %d bytes\n", s.TotalDeallocated)
	fmt.Fprintf(&sb, "peak concurrent:     %d bytes\n", s.PeakConcurrent)
	fmt.Fprintf(&sb, "current concurrent:  %d bytes\n", s.CurrentConcurrent)
	fmt.Fprintf(&sb, "active allocations:  %d\n", s.ActiveAllocationCount)
	fmt.Fprintf(&sb, "active borrows:      %d\n", s.ActiveBorrowCount)

	return sb.String()
}
