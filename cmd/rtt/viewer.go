package main

import (
	"log/slog"
	"sync/atomic"
	"time"

	uv "github.com/charmbracelet/ultraviolet"

	"github.com/taigrr/rtt/pkg/render"
	"github.com/taigrr/rtt/pkg/scene"
	"github.com/taigrr/rtt/pkg/task"
)

// idleDelay is how long the view must rest before a full render starts.
const idleDelay = 400 * time.Millisecond

// viewer draws a compact preview every frame and, while the view rests,
// refines it with a full render on a background worker.
//
// The preview renderer owns the scene camera. The full renderer works on a
// copy taken when its job starts and is the only one touching the baked
// shadows.
type viewer struct {
	scene   *scene.Scene
	orbit   *Orbit
	preview *render.Renderer
	full    *render.Renderer
	fullCam render.Camera
	worker  *task.Worker

	// input holds a barrier while the camera moves; refine depends on it
	// and gates full renders.
	input     task.Toggler
	refine    task.Toggler
	moving    bool
	lastInput time.Time

	started   bool
	fullReady atomic.Bool
	fullStart time.Time
	wireframe bool
	fullOff   bool
}

func newViewer(sc *scene.Scene, fps, width, height int) *viewer {
	v := &viewer{scene: sc, worker: task.NewWorker(&task.Lock{})}

	v.full = render.NewRenderer(render.NewBufferSet(width, height), sc.Camera)
	sc.Apply(v.full)
	v.full.Camera = &v.fullCam
	v.full.Lock = v.worker.Lock()

	v.preview = render.NewRenderer(render.NewBufferSet(width, height), sc.Camera)
	v.preview.Models = sc.Models
	v.preview.Lights = sc.Lights
	v.preview.InitCache()

	v.orbit = NewOrbit(sc.Camera, fps)
	v.refine.OnChange = func(enabled bool) {
		if !enabled {
			v.cancelFull()
		}
	}
	v.refine.DependOn(&v.input)
	return v
}

// cancelFull stops a running full render and drops the finished one.
func (v *viewer) cancelFull() {
	if v.worker.Busy() {
		slog.Debug("cancelling full render")
	}
	v.worker.Cancel()
	v.worker.Wait()
	v.fullReady.Store(false)
	v.started = false
}

// Touch records camera input at now.
func (v *viewer) Touch(now time.Time) {
	v.lastInput = now
	if !v.moving {
		v.moving = true
		v.input.Suppress()
	}
}

// ToggleWireframe switches the preview between filled and wireframe.
// Full renders are held off while it shows wireframes.
func (v *viewer) ToggleWireframe() {
	v.wireframe = !v.wireframe
	if v.wireframe {
		v.preview.Rasterizer.Mode = render.ModeWireframe
		v.refine.Suppress()
	} else {
		v.preview.Rasterizer.Mode = render.ModeFill
		v.refine.Resume()
	}
}

// ToggleFull turns full renders off and on.
func (v *viewer) ToggleFull() {
	v.fullOff = !v.fullOff
	if v.fullOff {
		v.refine.Suppress()
	} else {
		v.refine.Resume()
	}
}

// Resize reallocates both buffers for a width x height pixel view.
func (v *viewer) Resize(width, height int) {
	v.cancelFull()
	v.full.Rasterizer.Buffer = render.NewBufferSet(width, height)
	v.preview.Rasterizer.Buffer = render.NewBufferSet(width, height)
	v.scene.Camera.SetAspect(float64(height) / float64(width))
}

// Frame advances the camera, starts a full render when the view has
// rested, and draws the best available image into area. It returns a
// status line for the HUD.
func (v *viewer) Frame(now time.Time, scr uv.Screen, area uv.Rectangle) string {
	if v.orbit.Update() {
		v.Touch(now)
	} else if v.moving && now.Sub(v.lastInput) > idleDelay {
		v.moving = false
		v.input.Resume()
	}

	if v.refine.Enabled() && !v.started {
		v.fullCam = *v.scene.Camera
		v.fullStart = now
		v.started = v.worker.Go(v.renderFull)
	}

	if v.fullReady.Load() {
		v.full.Rasterizer.Buffer.Draw(scr, area)
		return "full render"
	}
	v.preview.RenderFrame(render.PassCompact, v.scene.Background)
	v.preview.Rasterizer.Buffer.Draw(scr, area)
	switch {
	case v.started:
		return "preview, rendering..."
	case v.wireframe:
		return "wireframe"
	default:
		return "preview"
	}
}

func (v *viewer) renderFull() error {
	if v.full.RenderFrame(render.PassFull, v.scene.Background) {
		v.fullReady.Store(true)
		slog.Debug("full render done", "elapsed", time.Since(v.fullStart), "faces", v.full.Stats.Faces)
	}
	return nil
}

// Close cancels any background render.
func (v *viewer) Close() {
	v.cancelFull()
}
