package task

import (
	"sync"
	"testing"
)

func TestTogglerBarriers(t *testing.T) {
	var changes []bool
	tg := &Toggler{OnChange: func(enabled bool) { changes = append(changes, enabled) }}

	if !tg.Enabled() {
		t.Fatal("new toggler should be enabled")
	}
	tg.Suppress()
	tg.Suppress()
	if tg.Enabled() {
		t.Error("enabled with two barriers")
	}
	tg.Resume()
	if tg.Enabled() {
		t.Error("enabled with one barrier left")
	}
	tg.Resume()
	if !tg.Enabled() {
		t.Error("disabled with no barriers")
	}
	tg.Resume()
	if !tg.Enabled() {
		t.Error("unmatched Resume disabled the toggler")
	}

	want := []bool{false, true}
	if len(changes) != len(want) {
		t.Fatalf("OnChange calls = %v, want %v", changes, want)
	}
	for i := range want {
		if changes[i] != want[i] {
			t.Errorf("OnChange call %d = %v, want %v", i, changes[i], want[i])
		}
	}
}

func TestTogglerDependents(t *testing.T) {
	var render, shadows, export Toggler
	shadows.DependOn(&render)
	export.DependOn(&shadows)

	render.Suppress()
	if shadows.Enabled() || export.Enabled() {
		t.Error("dependents stayed enabled while render is suppressed")
	}

	shadows.Suppress()
	render.Resume()
	if shadows.Enabled() {
		t.Error("shadows enabled while holding its own barrier")
	}
	if export.Enabled() {
		t.Error("export enabled while shadows is suppressed")
	}

	shadows.Resume()
	if !shadows.Enabled() || !export.Enabled() {
		t.Error("dependents not re-enabled")
	}
}

func TestTogglerDependOnSuppressed(t *testing.T) {
	var parent, child Toggler
	parent.Suppress()
	child.DependOn(&parent)
	if child.Enabled() {
		t.Error("child enabled although parent is suppressed")
	}
	parent.Resume()
	if !child.Enabled() {
		t.Error("child not enabled after parent resumed")
	}
}

func TestTogglerDependOnRacesResume(t *testing.T) {
	for range 500 {
		var parent, child Toggler
		parent.Suppress()
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			child.DependOn(&parent)
		}()
		go func() {
			defer wg.Done()
			parent.Resume()
		}()
		wg.Wait()
		if !child.Enabled() {
			t.Fatal("child stuck suppressed after parent resumed")
		}
	}
}

func TestTogglerConcurrentBarriers(t *testing.T) {
	var parent, child Toggler
	child.DependOn(&parent)
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 200 {
				parent.Suppress()
				parent.Resume()
			}
		}()
	}
	wg.Wait()
	if !parent.Enabled() || !child.Enabled() {
		t.Errorf("enabled = %v, %v after balanced barriers, want true, true", parent.Enabled(), child.Enabled())
	}
}
