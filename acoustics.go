// Package acoustics is the root of the engine: the process-wide Context
// singleton (spec §9 "Global state"), the error-kind shape spec §7
// describes, and the double-buffer publish/acquire primitive spec §5
// requires between the simulation worker pool and the audio thread.
package acoustics

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// ErrorKind classifies the failure modes spec §7 enumerates.
type ErrorKind int

const (
	// InvalidArgument: nil handle, out-of-range frame size/channel count,
	// unsupported Ambisonic order.
	InvalidArgument ErrorKind = iota
	// OutOfMemory: any allocation failure, propagated by factory functions.
	OutOfMemory
	// Initialization: device backend unavailable, HRTF asset missing or
	// malformed, SIMD level unsupported.
	Initialization
	// Cancelled: a long-running job was aborted by the caller.
	Cancelled
	// InconsistentState: query against an uncommitted scene, effect
	// applied with a mismatched channel count.
	InconsistentState
)

func (k ErrorKind) String() string {
	switch k {
	case InvalidArgument:
		return "invalid argument"
	case OutOfMemory:
		return "out of memory"
	case Initialization:
		return "initialization"
	case Cancelled:
		return "cancelled"
	case InconsistentState:
		return "inconsistent state"
	default:
		return "unknown"
	}
}

// Error is the one concrete error shape every factory function in this
// module returns (spec §7 "Propagation"): a kind plus a message, never a
// wrapped sentinel tree.
type Error struct {
	Kind ErrorKind
	Msg  string
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %s", e.Kind, e.Msg) }

// NewError builds an *Error with a formatted message.
func NewError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// SIMDLevel caps the width of the math/SIMD shim the context will allow
// (spec §9 "SIMD level negotiation" supplemental feature).
type SIMDLevel int

const (
	SIMDAuto SIMDLevel = iota
	SIMD4
	SIMD8
)

// LogSink receives library log lines; hosts install one via SetLogSink.
// The default is nil (no-op) — library packages never print on their own
// (spec SPEC_FULL.md ambient-stack "Logging").
type LogSink func(level string, message string)

// Context is the process-wide singleton spec §9 describes: log sink,
// SIMD level cap, and API version. It has no allocator hook; memory is
// always allocated by the Go runtime. It is initialized
// once via Init and torn down via Shutdown; a systems-language rewrite
// would thread this explicitly instead, but plugin hosts only give us a
// global slot for audio callbacks.
type Context struct {
	mu        sync.Mutex
	inited    bool
	logSink   LogSink
	simdLevel SIMDLevel
	version   string
}

const apiVersion = "1.0"

var global Context

// Init initializes the global context. Calling Init twice without an
// intervening Shutdown is a no-op returning an Initialization error.
func Init(simdLevel SIMDLevel) (*Context, error) {
	global.mu.Lock()
	defer global.mu.Unlock()
	if global.inited {
		return nil, NewError(Initialization, "context already initialized")
	}
	global.inited = true
	global.simdLevel = simdLevel
	global.version = apiVersion
	return &global, nil
}

// Shutdown tears down the global context, allowing a subsequent Init.
func Shutdown() {
	global.mu.Lock()
	defer global.mu.Unlock()
	global.inited = false
	global.logSink = nil
}

// SetLogSink installs the callback library code may log through. A nil
// sink (the default) silently drops log lines.
func (c *Context) SetLogSink(sink LogSink) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logSink = sink
}

// Log routes a message through the installed sink, if any.
func (c *Context) Log(level, format string, args ...any) {
	c.mu.Lock()
	sink := c.logSink
	c.mu.Unlock()
	if sink != nil {
		sink(level, fmt.Sprintf(format, args...))
	}
}

// SIMDLevel returns the context's configured SIMD cap.
func (c *Context) SIMDLevel() SIMDLevel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.simdLevel
}

// Version reports the API version string.
func (c *Context) Version() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.version
}

// DoubleBuffer implements the publish/acquire handoff spec §5 requires
// between the simulation worker pool (writer) and the audio thread
// (reader): an atomic "new-written" flag plus a retained slot pair. The
// audio thread never blocks and never observes a partially updated
// object — Acquire only swaps in the back slot when Publish has set the
// flag, and clears it atomically on the way out.
type DoubleBuffer[T any] struct {
	back    atomic.Pointer[T]
	pending atomic.Bool
	front   T
}

// Publish is called from the simulation worker pool (or control thread)
// with a fully-built value. It never blocks the audio thread: it simply
// stores the pointer and raises the pending flag.
func (d *DoubleBuffer[T]) Publish(v *T) {
	d.back.Store(v)
	d.pending.Store(true)
}

// Acquire is called once per audio frame. If a new value is pending, it
// swaps it into the front slot and clears the flag; otherwise the
// previous front value is returned untouched (spec §5 "the back buffer
// is left untouched so the front buffer continues to play").
func (d *DoubleBuffer[T]) Acquire() *T {
	if d.pending.CompareAndSwap(true, false) {
		if v := d.back.Load(); v != nil {
			d.front = *v
		}
	}
	return &d.front
}
