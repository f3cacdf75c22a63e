package visual

import (
	"math"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/memtracker/ledger"
)

func lines(s string) []string {
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}

var _ = Describe("Renderer", func() {
	var (
		r       Renderer
		tracker *ledger.Tracker
	)

	BeforeEach(func() {
		r = NewRenderer().WithMaxBarWidth(10)
		tracker = ledger.NewTracker()
	})

	It("should render nothing for an empty tracker", func() {
		Expect(r.RenderState(tracker)).To(BeEmpty())
	})

	It("should render allocations and borrows", func() {
		_, _ = tracker.Allocate("big", "Vec<u8>", 100)
		_, _ = tracker.Allocate("small", "u8", 1)
		_, _ = tracker.Allocate("half", "String", 50)
		_, _ = tracker.Borrow("r1", "big")
		_, _ = tracker.MutableBorrow("w", "half")

		Expect(lines(r.RenderState(tracker))).To(ConsistOf(
			"big [##########] 100 bytes (Vec<u8>)",
			"half [#####] 50 bytes (String)",
			"small [#] 1 bytes (u8)",
			"r1 --(shared)--> big",
			"w --(exclusive)--> half",
		))
	})

	It("should put borrows after allocations", func() {
		_, _ = tracker.Borrow("a", "z")
		_, _ = tracker.Allocate("z", "T", 3)

		out := lines(r.RenderState(tracker))
		Expect(out).To(HaveLen(2))
		Expect(out[0]).To(HavePrefix("z ["))
		Expect(out[1]).To(Equal("a --(shared)--> z"))
	})

	It("should draw at least one bar cell for zero sized values", func() {
		_, _ = tracker.Allocate("unit", "()", 0)

		Expect(r.RenderState(tracker)).To(Equal("unit [#] 0 bytes (())\n"))
	})

	It("should bound bar widths", func() {
		_, _ = tracker.Allocate("a", "T", 1<<40)
		_, _ = tracker.Allocate("b", "T", 1)

		for _, l := range lines(r.RenderState(tracker)) {
			bar := l[strings.Index(l, "[")+1 : strings.Index(l, "]")]
			Expect(len(bar)).To(BeNumerically(">=", 1))
			Expect(len(bar)).To(BeNumerically("<=", 10))
		}
	})

	It("should scale bars of allocations near the size limit", func() {
		_, _ = tracker.Allocate("big", "T", math.MaxInt64/2)
		_, _ = tracker.Allocate("small", "T", 1)
		_, _ = tracker.Allocate("half", "T", math.MaxInt64/4)

		Expect(lines(NewRenderer().RenderState(tracker))).To(ConsistOf(
			"big ["+strings.Repeat("#", 40)+"] 4611686018427387903 bytes (T)",
			"half ["+strings.Repeat("#", 20)+"] 2305843009213693951 bytes (T)",
			"small [#] 1 bytes (T)",
		))
	})

	It("should clamp the configured width", func() {
		Expect(NewRenderer().WithMaxBarWidth(0).MaxBarWidth()).To(Equal(1))
		Expect(NewRenderer().MaxBarWidth()).To(Equal(DefaultMaxBarWidth))
	})

	It("should use the configured bar rune", func() {
		_, _ = tracker.Allocate("a", "T", 2)

		out := r.WithMaxBarWidth(2).WithBarRune('=').RenderState(tracker)

		Expect(out).To(Equal("a [==] 2 bytes (T)\n"))
	})

	It("should render an operation", func() {
		_, _ = tracker.Record(ledger.Operation{
			Kind:        ledger.KindAllocate,
			Location:    "s1",
			TypeLabel:   "String",
			Size:        5,
			Description: "let s1 = String::from(\"hello\")",
		})

		Expect(r.RenderOperation(tracker.Records()[0])).To(Equal(
			"#1 Allocate String @ s1 (5 bytes): let s1 = String::from(\"hello\")"))
	})

	It("should render targets and no-ops", func() {
		_, _ = tracker.Borrow("r", "s1")
		_, _ = tracker.EndBorrow("q")

		records := tracker.Records()
		Expect(r.RenderOperation(records[0])).
			To(Equal("#1 Borrow  @ r -> s1 (0 bytes)"))
		Expect(r.RenderOperation(records[1])).
			To(Equal("#2 BorrowEnd  @ q (0 bytes) [no-op]"))
	})

	It("should render recent records one per line", func() {
		_, _ = tracker.Allocate("a", "T", 1)
		_, _ = tracker.Deallocate("a", "T", 1)

		out := r.RenderRecent(tracker.Recent(2))

		Expect(lines(out)).To(Equal([]string{
			"#2 Deallocate T @ a (1 bytes)",
			"#1 Allocate T @ a (1 bytes)",
		}))
	})

	It("should render a summary", func() {
		_, _ = tracker.Allocate("a", "T", 7)

		out := r.RenderSummary(tracker.Summary())

		Expect(out).To(ContainSubstring("operations:          1\n"))
		Expect(out).To(ContainSubstring("peak concurrent:     7 bytes\n"))
		Expect(out).To(ContainSubstring("active borrows:      0\n"))
	})
})
