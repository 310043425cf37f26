// Package task provides the cooperative cancellation primitives used to run
// renders in the background: a tri-state lock checked once per face, a
// barrier-counting toggler for dependent jobs and an errgroup-backed worker.
package task

import (
	"runtime"
	"sync/atomic"
)

// State is the state of a Lock.
type State int32

const (
	Stopped State = iota
	Running
	Cancelled
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Running:
		return "running"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Lock guards one render at a time. The zero value is Stopped and ready
// to use.
//
// The render side calls TryStart, then Proceed before every unit of work,
// then Release when done. Any other goroutine may call Cancel or
// CancelAndWait.
type Lock struct {
	state atomic.Int32
}

// State returns the current state.
func (l *Lock) State() State {
	return State(l.state.Load())
}

// TryStart moves Stopped to Running. It fails when a render already holds
// the lock or is still winding down from a cancel.
func (l *Lock) TryStart() bool {
	return l.state.CompareAndSwap(int32(Stopped), int32(Running))
}

// Cancel asks the running render to stop. It reports whether a render was
// running.
func (l *Lock) Cancel() bool {
	return l.state.CompareAndSwap(int32(Running), int32(Cancelled))
}

// CancelAndWait cancels the running render, if any, and returns once it
// has observed the cancel.
func (l *Lock) CancelAndWait() {
	l.Cancel()
	for l.State() == Cancelled {
		runtime.Gosched()
	}
}

// Proceed reports whether the render may continue. On a pending cancel it
// moves the lock to Stopped and returns false; the render must then return
// without touching the lock again.
func (l *Lock) Proceed() bool {
	if l.state.Load() != int32(Cancelled) {
		return true
	}
	l.state.Store(int32(Stopped))
	return false
}

// Release ends a render that ran to completion. A cancel that raced with
// the last unit of work is absorbed.
func (l *Lock) Release() {
	if !l.state.CompareAndSwap(int32(Running), int32(Stopped)) {
		l.state.CompareAndSwap(int32(Cancelled), int32(Stopped))
	}
}
