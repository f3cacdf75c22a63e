package narration

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/memtracker/ledger"
)

var _ = Describe("Registry", func() {
	var (
		mockCtrl *gomock.Controller
		obs      *MockObserver
		tracker  *ledger.Tracker
		registry *Registry
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		obs = NewMockObserver(mockCtrl)
		tracker = ledger.NewTracker()
		registry = NewRegistry()
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should list names alphabetically", func() {
		Expect(DefaultRegistry().Names()).To(Equal(
			[]string{"borrowing", "cloning", "ownership", "patterns"}))
	})

	It("should panic when a name is registered twice", func() {
		registry.Register(NewNarrator("x", func(*ledger.Tracker, Observer) error {
			return nil
		}))

		Expect(func() {
			registry.Register(NewNarrator("x", func(*ledger.Tracker, Observer) error {
				return nil
			}))
		}).To(Panic())
	})

	It("should report unknown scenarios", func() {
		err := registry.Run(tracker, []string{"missing"}, obs)

		Expect(err).To(MatchError(ContainSubstring("missing")))
	})

	It("should reset the tracker before each scenario", func() {
		registry.Register(NewNarrator("first", func(t *ledger.Tracker, _ Observer) error {
			_, err := t.Allocate("a", "T", 4)
			return err
		}))
		registry.Register(NewNarrator("second", func(t *ledger.Tracker, o Observer) error {
			o.Step("second starts", t)
			return nil
		}))
		_, _ = tracker.Allocate("leftover", "T", 1)

		obs.EXPECT().Step("second starts", tracker).Do(
			func(_ string, t *ledger.Tracker) {
				Expect(t.Len()).To(Equal(0))
			})

		Expect(registry.Run(tracker, []string{"first", "second"}, obs)).
			To(Succeed())
	})

	It("should wrap narrator errors with the scenario name", func() {
		registry.Register(NewNarrator("bad", func(t *ledger.Tracker, _ Observer) error {
			_, err := t.Allocate("a", "T", -1)
			return err
		}))

		err := registry.Run(tracker, []string{"bad"}, nil)

		Expect(errors.Is(err, ledger.ErrNegativeSize)).To(BeTrue())
		Expect(err.Error()).To(HavePrefix("scenario bad: "))
	})

	It("should stop a script at its first error", func() {
		s := &script{t: tracker, obs: obs}
		s.record(ledger.Operation{Kind: ledger.KindAllocate, Location: "a", Size: -1})
		s.record(ledger.Operation{Kind: ledger.KindAllocate, Location: "b", Size: 1})
		s.step("never shown")

		Expect(s.err).To(MatchError(ledger.ErrNegativeSize))
		Expect(tracker.Len()).To(Equal(0))
	})
})

var _ = Describe("Built-in scenarios", func() {
	var (
		tracker *ledger.Tracker
	)

	BeforeEach(func() {
		tracker = ledger.NewTracker()
	})

	DescribeTable("should finish with nothing live",
		func(name string, steps int, peak uint64) {
			var captions []string
			obs := ObserverFunc(func(caption string, t *ledger.Tracker) {
				captions = append(captions, caption)
			})

			err := DefaultRegistry().Run(tracker, []string{name}, obs)

			Expect(err).NotTo(HaveOccurred())
			Expect(captions).To(HaveLen(steps))
			s := tracker.Summary()
			Expect(tracker.HasActiveAllocations()).To(BeFalse())
			Expect(tracker.HasActiveBorrows()).To(BeFalse())
			Expect(s.CurrentConcurrent).To(BeZero())
			Expect(s.TotalAllocated).To(Equal(s.TotalDeallocated))
			Expect(s.PeakConcurrent).To(Equal(peak))
		},
		Entry("ownership", "ownership", 3, uint64(5)),
		Entry("borrowing", "borrowing", 3, uint64(12)),
		Entry("cloning", "cloning", 2, uint64(22)),
		Entry("patterns", "patterns", 4, uint64(56)),
	)

	It("should show two shared readers in the borrowing scenario", func() {
		seen := false
		obs := ObserverFunc(func(caption string, t *ledger.Tracker) {
			if caption == "any number of readers may share data" {
				seen = true
				Expect(t.Summary().ActiveBorrowCount).To(Equal(2))
			}
		})

		Expect(Borrowing(tracker, obs)).To(Succeed())
		Expect(seen).To(BeTrue())
	})

	It("should move ownership in the ownership scenario", func() {
		obs := ObserverFunc(func(caption string, t *ledger.Tracker) {
			if caption == "ownership moved to s2; s1 can no longer be used" {
				_, found := t.ActiveAllocation("s1")
				Expect(found).To(BeFalse())
				_, found = t.ActiveAllocation("s2")
				Expect(found).To(BeTrue())
			}
		})

		Expect(Ownership(tracker, obs)).To(Succeed())
		Expect(tracker.Records()[1].Kind).To(Equal(ledger.KindMove))
	})

	It("should run silently", func() {
		Expect(Cloning(tracker, Silent)).To(Succeed())
	})
})
