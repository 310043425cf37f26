package scene

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/taigrr/rtt/pkg/math3d"
	"github.com/taigrr/rtt/pkg/render"
)

const testScene = `
camera{position = {0, 2, 5}, target = {0, 0, 0}, fov = 70, near = 0.2, far = 40}
model{shape = "plane", size = 8, divisions = 2, checker = {size = 4}}
model{shape = "cube", position = {0, 0.5, 0}, rotation = {0, 45, 0}, scale = 0.5,
      color = {1, 0.5, 0.25}, material = {type = "phong", shininess = 30}}
model{shape = "cube", position = {2, 0.5, 0}, material = "ggx"}
point_light{position = {2, 3, 2}, strength = 12}
spot_light{position = {0, 4, 0}, target = {0, 0, 0}, inner = 20, outer = 30}
directional_light{direction = {-1, -1, -1}}
background{0, 0, 1}
shadows{size = 32, bias = 0.002}
`

func TestParse(t *testing.T) {
	s, err := Parse(testScene, "")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if got := s.Camera.Position; got != math3d.V3(0, 2, 5) {
		t.Errorf("camera position = %v", got)
	}
	if math.Abs(s.Camera.HFov-70*math.Pi/180) > 1e-12 {
		t.Errorf("camera fov = %v", s.Camera.HFov)
	}
	if s.Camera.Near != 0.2 || s.Camera.Far != 40 {
		t.Errorf("clip planes = %v %v", s.Camera.Near, s.Camera.Far)
	}
	// looking at the origin from above and behind
	if f := s.Camera.Forward(); f.Z >= 0 || f.Y >= 0 {
		t.Errorf("camera forward = %v", f)
	}

	if len(s.Models) != 3 {
		t.Fatalf("len(Models) = %d, want 3", len(s.Models))
	}
	if s.Models[0].Texture == nil {
		t.Error("checker texture not created")
	}
	if _, ok := s.Models[1].Material.(render.Phong); !ok {
		t.Errorf("model 1 material = %T, want Phong", s.Models[1].Material)
	}
	if p := s.Models[1].Material.(render.Phong); p.Shininess != 30 || p.Specular != 0.5 {
		t.Errorf("phong = %+v", p)
	}
	if _, ok := s.Models[2].Material.(render.GGX); !ok {
		t.Errorf("model 2 material = %T, want GGX", s.Models[2].Material)
	}
	if c := s.Models[1].Color; c != math3d.V4(1, 0.5, 0.25, 1) {
		t.Errorf("model 1 color = %v", c)
	}
	if got := s.Models[1].Transform.Translation(); got != math3d.V3(0, 0.5, 0) {
		t.Errorf("model 1 translation = %v", got)
	}

	if len(s.Lights) != 3 {
		t.Fatalf("len(Lights) = %d, want 3", len(s.Lights))
	}
	spot, ok := s.Lights[1].(*render.SpotLight)
	if !ok {
		t.Fatalf("light 1 = %T, want *SpotLight", s.Lights[1])
	}
	if spot.Direction != math3d.V3(0, -1, 0) {
		t.Errorf("spot direction = %v", spot.Direction)
	}
	if spot.Inner >= spot.Outer {
		t.Errorf("spot cone inner %v outer %v", spot.Inner, spot.Outer)
	}

	if s.Background != render.RGB(0, 0, 255) {
		t.Errorf("background = %v", s.Background)
	}
	if !s.Shadows || s.ShadowOptions.Size != 32 || s.ShadowOptions.Tolerance != 0.002 {
		t.Errorf("shadows = %v %+v", s.Shadows, s.ShadowOptions)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantErr string
	}{
		{"unknown shape", `camera{} model{shape = "torus"}`, "unknown shape"},
		{"no mesh", `camera{} model{}`, "needs mesh or shape"},
		{"bad vector", `camera{position = {1, 2}}`, "three numbers"},
		{"bad number", `camera{fov = "wide"}`, "number expected"},
		{"bad material", `camera{} model{shape = "cube", material = "chrome"}`, "unknown type"},
		{"syntax", `camera{`, ""},
		{"no io", `io.write("x")`, ""},
		{"no require", `require("scene")`, ""},
		{"no dofile", `dofile("scene.lua")`, ""},
		{"no loadfile", `loadfile("scene.lua")()`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.src, "")
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestParseNoCamera(t *testing.T) {
	_, err := Parse(`point_light{}`, "")
	if !errors.Is(err, ErrNoCamera) {
		t.Errorf("Parse() error = %v, want ErrNoCamera", err)
	}
}

func TestLoadResolvesRelativePaths(t *testing.T) {
	dir := t.TempDir()
	obj := "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 3\n"
	if err := os.WriteFile(filepath.Join(dir, "tri.obj"), []byte(obj), 0o644); err != nil {
		t.Fatal(err)
	}
	script := `camera{position = {0, 0, 3}}
model{mesh = "tri.obj"}
model{mesh = "tri.obj", position = {1, 0, 0}}
`
	path := filepath.Join(dir, "scene.lua")
	if err := os.WriteFile(path, []byte(script), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(s.Models) != 2 {
		t.Fatalf("len(Models) = %d, want 2", len(s.Models))
	}
	if s.Models[0].Mesh != s.Models[1].Mesh {
		t.Error("mesh loaded twice instead of shared")
	}
	if s.Models[0].Mesh.TriangleCount() != 1 {
		t.Errorf("TriangleCount() = %d", s.Models[0].Mesh.TriangleCount())
	}
}

func TestApply(t *testing.T) {
	s, err := Parse(testScene, "")
	if err != nil {
		t.Fatal(err)
	}
	buf := render.NewBufferSet(40, 30)
	r := render.NewRenderer(buf, render.NewCamera())
	s.Apply(r)

	if r.Camera != s.Camera {
		t.Error("camera not bound")
	}
	if math.Abs(r.Camera.Aspect-0.75) > 1e-12 {
		t.Errorf("aspect = %v, want 0.75", r.Camera.Aspect)
	}
	if len(r.Cache.Models) != 3 || len(r.Cache.Lights) != 3 {
		t.Errorf("cache sized %d/%d", len(r.Cache.Models), len(r.Cache.Lights))
	}
	if len(r.Shadows) != 3 {
		t.Fatalf("len(Shadows) = %d, want 3", len(r.Shadows))
	}
	if _, ok := r.Shadows[0].(*render.CubeShadow); !ok {
		t.Errorf("point light shadow = %T", r.Shadows[0])
	}
	if _, ok := r.Shadows[1].(*render.SpotShadow); !ok {
		t.Errorf("spot light shadow = %T", r.Shadows[1])
	}
	if r.Shadows[2] != nil {
		t.Errorf("directional light shadow = %T, want nil", r.Shadows[2])
	}

	if !r.RenderFrame(render.PassFull, s.Background) {
		t.Fatal("render reported cancel without a lock")
	}
	if r.Stats.Emitted == 0 {
		t.Error("nothing rasterized")
	}
}
