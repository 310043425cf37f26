package task

import "sync"

// Toggler enables or disables a background job by counting barriers.
// Each Suppress raises the count and each Resume lowers it; the job is
// enabled only at zero. Suppression propagates to every toggler that
// depends on this one.
//
// A flip and its propagation happen under the toggler's lock, parents
// before dependents, so concurrent Suppress, Resume and DependOn calls
// never lose a barrier. Dependencies must not form a cycle.
type Toggler struct {
	// OnChange is called with the new enabled state whenever it flips.
	// It runs with the toggler locked and must not call its methods.
	OnChange func(enabled bool)

	mu         sync.Mutex
	count      int
	dependents []*Toggler
}

// Enabled reports whether no barrier is held.
func (t *Toggler) Enabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.count == 0
}

// Suppress adds a barrier.
func (t *Toggler) Suppress() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.count++
	if t.count == 1 {
		t.flip(false)
	}
}

// Resume removes a barrier. Calls without a matching Suppress are ignored.
func (t *Toggler) Resume() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.count == 0 {
		return
	}
	t.count--
	if t.count == 0 {
		t.flip(true)
	}
}

// flip reports the new state and passes it on. t.mu is held.
func (t *Toggler) flip(enabled bool) {
	if t.OnChange != nil {
		t.OnChange(enabled)
	}
	for _, d := range t.dependents {
		if enabled {
			d.Resume()
		} else {
			d.Suppress()
		}
	}
}

// DependOn makes t suppressed whenever dep is. If dep is currently
// suppressed, t gains a barrier right away.
func (t *Toggler) DependOn(dep *Toggler) {
	dep.mu.Lock()
	defer dep.mu.Unlock()
	dep.dependents = append(dep.dependents, t)
	if dep.count > 0 {
		t.Suppress()
	}
}
