// Package narration drives a ledger through scripted teaching scenarios.
//
// A Narrator only issues Record calls and reads the tracker's query surface.
// It never reaches into the tables or the counters.
package narration

import (
	"fmt"
	"sort"

	"github.com/sarchlab/memtracker/ledger"
)

// An Observer is told about interesting points of a scenario so that the host
// can display the tracker state at that point.
type Observer interface {
	Step(caption string, t *ledger.Tracker)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(caption string, t *ledger.Tracker)

// Step calls f.
func (f ObserverFunc) Step(caption string, t *ledger.Tracker) {
	f(caption, t)
}

type silentObserver struct{}

func (silentObserver) Step(string, *ledger.Tracker) {}

// Silent is an Observer that ignores every step.
var Silent Observer = silentObserver{}

// A Narrator tells one teaching story through a tracker.
type Narrator interface {
	Name() string
	Narrate(t *ledger.Tracker, obs Observer) error
}

// NarratorFunc is the body of a narrator.
type NarratorFunc func(t *ledger.Tracker, obs Observer) error

type funcNarrator struct {
	name string
	fn   NarratorFunc
}

func (n funcNarrator) Name() string {
	return n.name
}

func (n funcNarrator) Narrate(t *ledger.Tracker, obs Observer) error {
	return n.fn(t, obs)
}

// NewNarrator gives a name to a narrator body.
func NewNarrator(name string, fn NarratorFunc) Narrator {
	return funcNarrator{name: name, fn: fn}
}

// A Registry looks up narrators by name.
type Registry struct {
	narrators map[string]Narrator
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{narrators: make(map[string]Narrator)}
}

// Register adds a narrator. Registering two narrators under the same name
// panics.
func (r *Registry) Register(n Narrator) {
	if _, found := r.narrators[n.Name()]; found {
		panic(fmt.Sprintf("narrator %s already registered", n.Name()))
	}

	r.narrators[n.Name()] = n
}

// Get returns the narrator registered under name.
func (r *Registry) Get(name string) (Narrator, bool) {
	n, found := r.narrators[name]
	return n, found
}

// Names returns the registered names in alphabetical order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.narrators))
	for name := range r.narrators {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Run plays the named narrators one after another. The tracker is reset
// before each scenario so that they do not see each other's state.
func (r *Registry) Run(t *ledger.Tracker, names []string, obs Observer) error {
	if obs == nil {
		obs = Silent
	}

	for _, name := range names {
		n, found := r.Get(name)
		if !found {
			return fmt.Errorf("unknown scenario %q", name)
		}

		t.Reset()

		err := n.Narrate(t, obs)
		if err != nil {
			return fmt.Errorf("scenario %s: %w", name, err)
		}
	}

	return nil
}

// script records operations until the first error and remembers it, so that
// scenario bodies can read as a plain list of steps.
type script struct {
	t   *ledger.Tracker
	obs Observer
	err error
}

func (s *script) record(op ledger.Operation) {
	if s.err != nil {
		return
	}

	_, s.err = s.t.Record(op)
}

func (s *script) step(caption string) {
	if s.err != nil {
		return
	}

	s.obs.Step(caption, s.t)
}
