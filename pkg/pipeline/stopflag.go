package pipeline

import "sync"

// StopFlag is the one piece of state shared between the pipeline and the
// acquisition source: a cooperative stop request. All access goes through
// the accessors; the flag is never read unsynchronized.
type StopFlag struct {
	mu      sync.Mutex
	stopped bool
}

// Set raises the stop request. Setting an already-set flag is a no-op.
func (f *StopFlag) Set() {
	f.mu.Lock()
	f.stopped = true
	f.mu.Unlock()
}

// Clear lowers the flag, typically between sessions.
func (f *StopFlag) Clear() {
	f.mu.Lock()
	f.stopped = false
	f.mu.Unlock()
}

// Stopped reports whether a stop has been requested. The acquisition
// source polls this after every raw acquisition.
func (f *StopFlag) Stopped() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopped
}
