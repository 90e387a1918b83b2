// Package tracer defines the contract between the instrumenter and the
// runtime it instruments: the three hook export names the instrumenter
// wires calls to, the wire encoding of a trace entry, and a reference
// implementation of the runtime side of that contract.
//
// The instrumenter itself never executes this code — it runs inside the
// WebAssembly module being instrumented, compiled there by whatever
// toolchain produced that module (e.g. a Go-to-wasm compiler importing this
// package, or an equivalent written in another source language). It is
// provided here so the contract has one canonical, tested implementation,
// and so the CLI's exec subcommand has something to decode the trace with
// when it drives an instrumented module through wasmtime.
package tracer

import (
	"math"
	"sync"
	"unsafe"

	"github.com/wasmtrace/wasmtrace/internal/ring"
)

// Anchor export names. The instrumenter locates LogCallName in the
// module's function index space to resolve the hook's call target, and
// never instruments a function exported under any of these three names.
const (
	LogCallName         = "__log_call"
	ExposeTracerName    = "__expose_tracer"
	ExposeTracerLenName = "__expose_tracer_len"
)

// AnchorNames lists the exports the instrumenter must never rewrite.
var AnchorNames = [...]string{LogCallName, ExposeTracerName, ExposeTracerLenName}

// IsAnchor reports whether name is one of the three anchor exports.
func IsAnchor(name string) bool {
	for _, a := range AnchorNames {
		if a == name {
			return true
		}
	}
	return false
}

// EntryKind tags what a logged trace entry represents.
type EntryKind int32

const (
	FunctionCall        EntryKind = 0
	FunctionReturnVoid  EntryKind = 1
	FunctionReturnValue EntryKind = 2
)

// VoidPlaceholder is the sentinel payload logged alongside
// FunctionReturnVoid, since a void return carries no value of its own.
const VoidPlaceholder int32 = math.MaxInt32

// RingEntries is the number of logical (kind, payload) entries the default
// tracer retains. Each entry occupies two i32 slots, so the backing ring
// buffer is sized to 2*RingEntries.
const RingEntries = 1024

// Tracer records (kind, payload) pairs in a fixed-capacity ring buffer,
// overwriting the oldest entry once full. All methods are safe for
// concurrent use.
type Tracer struct {
	mu  sync.Mutex
	buf *ring.Buffer[int32]
}

// NewTracer returns a Tracer with the default capacity (RingEntries
// logical entries).
func NewTracer() *Tracer {
	return NewTracerWithEntries(RingEntries)
}

// NewTracerWithEntries returns a Tracer that retains the given number of
// logical entries.
func NewTracerWithEntries(entries int) *Tracer {
	return &Tracer{buf: ring.New[int32](entries * 2)}
}

// Log enqueues one logical entry: the kind, then the payload.
func (t *Tracer) Log(kind EntryKind, payload int32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf.Enqueue(int32(kind))
	t.buf.Enqueue(payload)
}

// Len returns the number of int32 slots currently stored (twice the number
// of logical entries).
func (t *Tracer) Len() uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return uint32(t.buf.Len())
}

// AsPointer returns a pointer to the first slot of the trace, or nil if
// empty. The pointer is stable across further Log calls: see
// ring.Buffer.AsContiguousSlice.
func (t *Tracer) AsPointer() *int32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.buf.AsContiguousSlice()
	if len(s) == 0 {
		return nil
	}
	return (*int32)(unsafe.Pointer(&s[0]))
}

// Snapshot copies out the current trace contents as (kind, payload) pairs,
// in enqueue order. This is the Go-side convenience a CLI diagnostic uses;
// the wire contract itself is the raw int32 pairs described in AsPointer.
func (t *Tracer) Snapshot() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.buf.AsContiguousSlice()
	out := make([]Entry, 0, len(s)/2)
	for i := 0; i+1 < len(s); i += 2 {
		out = append(out, Entry{Kind: EntryKind(s[i]), Payload: s[i+1]})
	}
	return out
}

// Entry is a decoded (kind, payload) trace record.
type Entry struct {
	Kind    EntryKind
	Payload int32
}

var (
	defaultOnce   sync.Once
	defaultTracer *Tracer
)

func instance() *Tracer {
	defaultOnce.Do(func() {
		defaultTracer = NewTracer()
	})
	return defaultTracer
}

// LogCall is the reference implementation of the __log_call export: it
// lazily initializes a process-wide Tracer on first use and logs one entry
// to it. A target module's toolchain wires its compiled __log_call export
// to a function with this behavior.
func LogCall(kind, data int32) {
	instance().Log(EntryKind(kind), data)
}

// ExposeTracer is the reference implementation of the __expose_tracer
// export.
func ExposeTracer() *int32 {
	return instance().AsPointer()
}

// ExposeTracerLen is the reference implementation of the
// __expose_tracer_len export.
func ExposeTracerLen() uint32 {
	return instance().Len()
}
