// Package tracing observes a ledger through its hooks. A Tracer is told about
// every record appended to the ledger and about every reset.
package tracing

import (
	"fmt"
	"reflect"

	"github.com/sarchlab/memtracker/hooking"
	"github.com/sarchlab/memtracker/ledger"
)

// A Tracer collects traces from a ledger.
type Tracer interface {
	// RecordAppended is called after a record has been appended and its
	// effect applied.
	RecordAppended(rec ledger.OperationRecord)

	// Reset is called after the ledger has been cleared. last is the summary
	// taken just before the reset.
	Reset(last ledger.Summary)
}

// CollectTrace lets the tracer collect trace from a domain. It panics if the
// tracer is already attached to the domain.
func CollectTrace(domain hooking.Hookable, tracer Tracer) {
	if findHook(domain, tracer) != nil {
		panic(fmt.Sprintf("domain already has tracer %s",
			reflect.TypeOf(tracer)))
	}

	domain.AcceptHook(&traceHook{t: tracer})
}

// StopTrace detaches the tracer from the domain.
func StopTrace(domain hooking.Hookable, tracer Tracer) {
	h := findHook(domain, tracer)
	if h != nil {
		domain.RemoveHook(h)
	}
}

func findHook(domain hooking.Hookable, tracer Tracer) *traceHook {
	for _, hook := range domain.Hooks() {
		h, ok := hook.(*traceHook)
		if ok && h.t == tracer {
			return h
		}
	}

	return nil
}

// A traceHook is a hook that forwards ledger events to a tracer.
type traceHook struct {
	t Tracer
}

// Func calls the tracer interfaces when the hook is triggered
func (h *traceHook) Func(ctx hooking.HookCtx) {
	switch ctx.Pos {
	case ledger.HookPosRecordAppended:
		h.t.RecordAppended(ctx.Item.(ledger.OperationRecord))
	case ledger.HookPosReset:
		h.t.Reset(ctx.Item.(ledger.Summary))
	}
}
