package render

import (
	"math"
	"testing"

	"github.com/taigrr/rtt/pkg/math3d"
)

func TestCubeFace(t *testing.T) {
	tests := []struct {
		d    math3d.Vec3
		want int
	}{
		{math3d.V3(1, 0, 0), CubePosX},
		{math3d.V3(-3, 1, 2), CubeNegX},
		{math3d.V3(0.1, 2, -1), CubePosY},
		{math3d.V3(0, -2, 1), CubeNegY},
		{math3d.V3(0.5, 0.5, 1), CubePosZ},
		{math3d.V3(0, 0, -0.1), CubeNegZ},
		// ties
		{math3d.V3(1, 1, 0), CubePosX},
		{math3d.V3(-1, 0, 1), CubeNegX},
		{math3d.V3(0, 1, -1), CubePosY},
		{math3d.V3(0, 0, 0), CubePosX},
	}
	for _, tt := range tests {
		if got := CubeFace(tt.d); got != tt.want {
			t.Errorf("CubeFace(%v) = %d, want %d", tt.d, got, tt.want)
		}
	}
}

func TestCubeFaceViewLooksAlongAxis(t *testing.T) {
	pos := math3d.V3(1, 2, 3)
	for face, b := range cubeFaceBasis {
		view := CubeFaceView(pos, face)
		got := view.MulVec3(pos.Add(b.forward.Scale(2)))
		if got.Sub(math3d.V3(0, 0, -2)).Len() > 1e-9 {
			t.Errorf("face %d: point ahead maps to %v", face, got)
		}
		// every direction is classified to the face that sees it
		if CubeFace(b.forward) != face {
			t.Errorf("face %d forward classified as %d", face, CubeFace(b.forward))
		}
	}
}

// shadowScene has a small occluder at z=-2 in front of a large receiver at
// z=-4, both facing the origin.
func shadowScene(l Light) *Renderer {
	r := newTestRenderer(quadMesh(-2, 0.5), quadMesh(-4, 3))
	r.Lights = []Light{l}
	r.InitCache()
	return r
}

func testShadowOptions() ShadowOptions {
	opts := DefaultShadowOptions()
	opts.Size = 64
	return opts
}

func TestSpotShadow(t *testing.T) {
	r := shadowScene(&SpotLight{
		Direction: math3d.V3(0, 0, -1),
		Color:     math3d.V3(1, 1, 1),
		Strength:  10,
		Inner:     math.Pi / 6,
		Outer:     math.Pi / 4,
	})
	r.BakeShadows(testShadowOptions())
	s, ok := r.Shadows[0].(*SpotShadow)
	if !ok {
		t.Fatalf("Shadows[0] = %T, want *SpotShadow", r.Shadows[0])
	}

	tests := []struct {
		name string
		pos  math3d.Vec3
		want bool
	}{
		{"behind occluder", math3d.V3(0.1, -0.3, -4), true},
		{"behind occluder corner", math3d.V3(-0.8, 0.8, -4), true},
		{"beside occluder", math3d.V3(2, 0, -4), false},
		{"occluder surface", math3d.V3(0.2, -0.2, -2), false},
		{"in front of occluder", math3d.V3(0, 0, -1), false},
		{"behind the light", math3d.V3(0, 0, 1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.InShadow(tt.pos); got != tt.want {
				t.Errorf("InShadow(%v) = %v, want %v", tt.pos, got, tt.want)
			}
		})
	}
}

func TestCubeShadow(t *testing.T) {
	r := shadowScene(&PointLight{Color: math3d.V3(1, 1, 1), Strength: 10})
	r.BakeShadows(testShadowOptions())
	s, ok := r.Shadows[0].(*CubeShadow)
	if !ok {
		t.Fatalf("Shadows[0] = %T, want *CubeShadow", r.Shadows[0])
	}

	tests := []struct {
		name string
		pos  math3d.Vec3
		want bool
	}{
		{"behind occluder", math3d.V3(0.1, -0.3, -4), true},
		{"beside occluder", math3d.V3(1.6, 0, -4), false},
		{"occluder surface", math3d.V3(0.1, 0.1, -2), false},
		{"empty face", math3d.V3(0, 0, 3), false},
		{"side face", math3d.V3(5, 0, -1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.InShadow(tt.pos); got != tt.want {
				t.Errorf("InShadow(%v) = %v, want %v", tt.pos, got, tt.want)
			}
		})
	}
}

func TestCubeShadowMatchesRenderDepth(t *testing.T) {
	pos := math3d.V3(0.3, -0.2, 0)
	r := shadowScene(&PointLight{Position: pos, Strength: 1})
	opts := testShadowOptions()
	s := r.BakeShadow(r.Lights[0], opts).(*CubeShadow)

	want := NewDepthBufferSet(opts.Size, opts.Size)
	r.RenderDepth(want, CubeFaceView(pos, CubeNegZ), CubeProjection(opts.Near, opts.Far))
	got := s.Faces[CubeNegZ]
	written := 0
	for i := range want.Depth {
		if got.Depth[i] != want.Depth[i] {
			t.Fatalf("depth %d = %v, want %v", i, got.Depth[i], want.Depth[i])
		}
		if want.Depth[i] > -1 {
			written++
		}
	}
	if written == 0 {
		t.Error("the -Z face saw no geometry")
	}
}

func TestShadowsFollowCamera(t *testing.T) {
	r := shadowScene(&SpotLight{
		Direction: math3d.V3(0, 0, -1),
		Color:     math3d.V3(1, 1, 1),
		Strength:  10,
		Inner:     math.Pi / 6,
		Outer:     math.Pi / 4,
	})
	r.BakeShadows(testShadowOptions())

	// move the camera; the world point behind the occluder stays shadowed
	r.Camera.SetPosition(math3d.V3(1, 0, 0))
	r.RefreshCache()
	camPos := r.Camera.ViewMatrix().MulVec3(math3d.V3(0.1, -0.3, -4))
	if !r.Shadows[0].InShadow(camPos) {
		t.Error("shadow lost after camera move")
	}
}

func TestRenderWithShadows(t *testing.T) {
	light := &PointLight{Position: math3d.V3(0, 0, -1), Color: math3d.V3(1, 1, 1), Strength: 4}
	lit := shadowScene(light)
	lit.RenderFrame(PassFull, ColorBlack)

	shadowed := shadowScene(light)
	shadowed.BakeShadows(testShadowOptions())
	shadowed.RenderFrame(PassFull, ColorBlack)

	// the receiver just outside the occluder: visible from the camera but
	// hidden from the light
	x, y := 49, 24
	if got := lit.Rasterizer.Buffer.Pixel(x, y); got == ColorBlack {
		t.Fatalf("unshadowed receiver pixel is black")
	}
	if got := shadowed.Rasterizer.Buffer.Pixel(x, y); got != ColorBlack {
		t.Errorf("shadowed receiver pixel = %v, want black", got)
	}
}

func TestBakeShadowDirectional(t *testing.T) {
	r := shadowScene(&DirectionalLight{Direction: math3d.V3(0, -1, 0), Strength: 1})
	if s := r.BakeShadow(r.Lights[0], testShadowOptions()); s != nil {
		t.Errorf("BakeShadow() = %T, want nil", s)
	}
	r.BakeShadows(testShadowOptions())
	if len(r.Shadows) != 1 || r.Shadows[0] != nil {
		t.Errorf("Shadows = %v", r.Shadows)
	}
	r.ClearShadows()
	if r.Shadows != nil {
		t.Error("ClearShadows() kept maps")
	}
}
