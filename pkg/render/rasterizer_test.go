package render

import (
	"math"
	"testing"

	"github.com/taigrr/rtt/pkg/math3d"
)

// newTestRasterizer draws into a w×h buffer through a 90 degree frustum
// with near 1 and far 10, so NDC x = -x/z for camera-space points.
func newTestRasterizer(w, h int) *Rasterizer {
	buf := NewBufferSet(w, h)
	buf.Clear(ColorBlack)
	r := NewRasterizer(buf)
	r.Proj = math3d.Frustum(math.Pi/2, float64(h)/float64(w), 1, 10)
	return r
}

func white3() [3]math3d.Vec4 {
	return [3]math3d.Vec4{White(), White(), White()}
}

func flatNormals() [3]math3d.Vec3 {
	n := math3d.V3(0, 0, 1)
	return [3]math3d.Vec3{n, n, n}
}

// fullScreenQuad covers the whole buffer of a 4:3 test rasterizer at z=-2
// and reaches past every border. Its diagonal misses every pixel center.
func fullScreenQuad() [2][3]math3d.Vec3 {
	a := math3d.V3(-2.2, -1.65, -2)
	b := math3d.V3(2.2, -1.65, -2)
	c := math3d.V3(2.2, 1.65, -2)
	d := math3d.V3(-2.2, 1.65, -2)
	return [2][3]math3d.Vec3{{a, b, c}, {a, c, d}}
}

func TestFillCoversEachPixelOnce(t *testing.T) {
	r := newTestRasterizer(64, 48)
	hits := make([]int, 64*48)
	r.Test = TestFunc(func(_ *Rasterizer, f *FragInfo, depth *float64, _ *uint8, _ *DrawContext) bool {
		hits[depthIndex(r.Buffer, depth)]++
		return false
	})

	for _, tri := range fullScreenQuad() {
		if n := r.DrawTriangle(tri, flatNormals(), [3]math3d.Vec2{}, white3(), nil); n != 1 {
			t.Fatalf("DrawTriangle() emitted %d triangles, want 1", n)
		}
	}
	for i, n := range hits {
		if n != 1 {
			t.Fatalf("pixel (%d, %d) tested %d times, want 1", i%64, i/64, n)
		}
	}
}

// depthIndex recovers the pixel index of a depth cell handed to a test
// stage.
func depthIndex(buf *BufferSet, depth *float64) int {
	for i := range buf.Depth {
		if &buf.Depth[i] == depth {
			return i
		}
	}
	panic("depth cell not in buffer")
}

func TestBarycentricWeights(t *testing.T) {
	r := newTestRasterizer(64, 64)
	p := [3]math3d.Vec3{
		math3d.V3(-1, -1, -2),
		math3d.V3(1, -1, -4),
		math3d.V3(0, 1, -3),
	}
	plane := p[1].Sub(p[0]).Cross(p[2].Sub(p[0])).Normalize()

	var count int
	r.Test = TestFunc(func(_ *Rasterizer, f *FragInfo, _ *float64, _ *uint8, _ *DrawContext) bool {
		count++
		const eps = 1e-6
		if s := f.P + f.Q + f.R; math.Abs(s-1) > eps {
			t.Errorf("weights sum to %v", s)
		}
		for _, w := range []float64{f.P, f.Q, f.R} {
			if w < -eps || w > 1+eps {
				t.Errorf("weight %v outside [0, 1]", w)
			}
		}
		// the interpolated position lies on the triangle's plane
		if d := plane.Dot(f.Position().Sub(p[0])); math.Abs(d) > eps {
			t.Errorf("position %v is %v off the plane", f.Position(), d)
		}
		// and projects to a pixel center
		s := r.Buffer.Denormalize(f.Clip.Homogenize2())
		for _, c := range []float64{s.X, s.Y} {
			if frac := c - math.Floor(c); math.Abs(frac-0.5) > eps {
				t.Errorf("fragment at %v is not a pixel center", s)
			}
		}
		return false
	})
	r.DrawTriangle(p, flatNormals(), [3]math3d.Vec2{}, white3(), nil)
	if count == 0 {
		t.Fatal("no fragments")
	}
}

func TestClipCounts(t *testing.T) {
	const front, behind = -3.0, -0.5
	tests := []struct {
		name string
		z    [3]float64
		want int
	}{
		{"none behind", [3]float64{front, front, front}, 1},
		{"one behind", [3]float64{behind, front, front}, 2},
		{"two behind", [3]float64{behind, behind, front}, 1},
		{"three behind", [3]float64{behind, behind, behind}, 0},
		{"one behind rotated", [3]float64{front, front, behind}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRasterizer(32, 32)
			r.Test = TestFunc(func(_ *Rasterizer, f *FragInfo, _ *float64, _ *uint8, _ *DrawContext) bool {
				if f.Depth > 1e-6 {
					t.Errorf("fragment depth %v in front of the near plane", f.Depth)
				}
				return false
			})
			p := [3]math3d.Vec3{
				math3d.V3(-1, -1, tt.z[0]),
				math3d.V3(1, -1, tt.z[1]),
				math3d.V3(0, 1, tt.z[2]),
			}
			if got := r.DrawTriangle(p, flatNormals(), [3]math3d.Vec2{}, white3(), nil); got != tt.want {
				t.Errorf("DrawTriangle() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestBackFaceCulling(t *testing.T) {
	r := newTestRasterizer(32, 32)
	p := [3]math3d.Vec3{
		math3d.V3(-1, -1, -3),
		math3d.V3(0, 1, -3),
		math3d.V3(1, -1, -3),
	}
	if got := r.DrawTriangle(p, flatNormals(), [3]math3d.Vec2{}, white3(), nil); got != 0 {
		t.Errorf("clockwise triangle emitted %d triangles, want 0", got)
	}
}

func colorFragment() FragmentShader {
	return FragmentFunc(func(_ *Rasterizer, f *FragInfo, _ *DrawContext) Color {
		return FromVec4(f.ColorMult())
	})
}

func TestDepthTest(t *testing.T) {
	near := [3]math3d.Vec3{math3d.V3(-1, -1, -2), math3d.V3(1, -1, -2), math3d.V3(0, 1, -2)}
	far := [3]math3d.Vec3{math3d.V3(-2, -2, -4), math3d.V3(2, -2, -4), math3d.V3(0, 2, -4)}
	red := [3]math3d.Vec4{math3d.V4(1, 0, 0, 1), math3d.V4(1, 0, 0, 1), math3d.V4(1, 0, 0, 1)}
	green := [3]math3d.Vec4{math3d.V4(0, 1, 0, 1), math3d.V4(0, 1, 0, 1), math3d.V4(0, 1, 0, 1)}

	for _, nearFirst := range []bool{true, false} {
		r := newTestRasterizer(32, 32)
		r.Fragment = colorFragment()
		if nearFirst {
			r.DrawTriangle(near, flatNormals(), [3]math3d.Vec2{}, red, nil)
			r.DrawTriangle(far, flatNormals(), [3]math3d.Vec2{}, green, nil)
		} else {
			r.DrawTriangle(far, flatNormals(), [3]math3d.Vec2{}, green, nil)
			r.DrawTriangle(near, flatNormals(), [3]math3d.Vec2{}, red, nil)
		}
		if got := r.Buffer.Pixel(16, 14); got != ColorRed {
			t.Errorf("nearFirst=%v: center pixel = %v, want red", nearFirst, got)
		}
	}
}

func TestDepthTestIdempotent(t *testing.T) {
	r := newTestRasterizer(32, 32)
	var accepted int
	r.Test = TestFunc(func(r *Rasterizer, f *FragInfo, depth *float64, stencil *uint8, ctx *DrawContext) bool {
		ok := DepthTest{}.TestFragment(r, f, depth, stencil, ctx)
		if ok {
			accepted++
		}
		return ok
	})
	p := [3]math3d.Vec3{math3d.V3(-1, -1, -2), math3d.V3(1, -1, -2), math3d.V3(0, 1, -2)}
	r.DrawTriangle(p, flatNormals(), [3]math3d.Vec2{}, white3(), nil)
	first := accepted
	if first == 0 {
		t.Fatal("first draw accepted nothing")
	}
	r.DrawTriangle(p, flatNormals(), [3]math3d.Vec2{}, white3(), nil)
	if accepted != first {
		t.Errorf("redrawing accepted %d more fragments, want 0", accepted-first)
	}
}

func TestDepthTestMonotonic(t *testing.T) {
	f := &FragInfo{}
	depth := -1.0
	for _, d := range []float64{-0.9, -0.95, -0.5, -0.6, -0.1} {
		f.Depth = d
		before := depth
		ok := depthTest(f, &depth)
		if ok != (d > before) {
			t.Errorf("depthTest(%v) over %v = %v", d, before, ok)
		}
		if depth < before {
			t.Errorf("stored depth decreased from %v to %v", before, depth)
		}
	}
	if depth != -0.1 {
		t.Errorf("final depth = %v, want -0.1", depth)
	}
}

func countLit(buf *BufferSet) int {
	n := 0
	for _, c := range buf.Color {
		if c != ColorBlack {
			n++
		}
	}
	return n
}

func TestRenderModes(t *testing.T) {
	p := [3]math3d.Vec3{math3d.V3(-1, -1, -2), math3d.V3(1, -1, -2), math3d.V3(0, 1, -2)}

	fill := newTestRasterizer(64, 64)
	fill.DrawTriangle(p, flatNormals(), [3]math3d.Vec2{}, white3(), nil)

	wire := newTestRasterizer(64, 64)
	wire.Mode = ModeWireframe
	wire.DrawTriangle(p, flatNormals(), [3]math3d.Vec2{}, white3(), nil)

	points := newTestRasterizer(64, 64)
	points.Mode = ModePoints
	points.DrawTriangle(p, flatNormals(), [3]math3d.Vec2{}, white3(), nil)

	nFill, nWire, nPoints := countLit(fill.Buffer), countLit(wire.Buffer), countLit(points.Buffer)
	if nWire == 0 || nWire >= nFill {
		t.Errorf("wireframe lit %d pixels, fill %d", nWire, nFill)
	}
	if wire.Buffer.Pixel(32, 28) != ColorBlack {
		t.Error("wireframe filled the interior")
	}
	if nPoints == 0 || nPoints > 3 {
		t.Errorf("points lit %d pixels, want 1 to 3", nPoints)
	}
}

func TestHeadlightTextureRepeats(t *testing.T) {
	r := newTestRasterizer(64, 48)
	ctx := &DrawContext{Texture: quadTexture()}
	uv := math3d.V2(1.25, 0.25) // texel (0, 0) under repeat, (1, 0) under clamp
	uvs := [3]math3d.Vec2{uv, uv, uv}
	for _, tri := range fullScreenQuad() {
		r.DrawTriangle(tri, flatNormals(), uvs, white3(), ctx)
	}
	c := r.Buffer.Pixel(20, 30)
	if c.R == 0 || c.G != 0 || c.B != 0 {
		t.Errorf("pixel = %v, want pure red from the wrapped texel", c)
	}
}

func TestDrawLine(t *testing.T) {
	tests := []struct {
		name   string
		p1, p2 math3d.Vec2
		want   int
	}{
		{"horizontal", math3d.V2(2.5, 5.5), math3d.V2(12.5, 5.5), 11},
		{"vertical", math3d.V2(5.5, 2.5), math3d.V2(5.5, 12.5), 11},
		{"diagonal", math3d.V2(0.5, 0.5), math3d.V2(15.5, 15.5), 16},
		{"reversed", math3d.V2(12.5, 5.5), math3d.V2(2.5, 5.5), 11},
		{"point", math3d.V2(3.2, 3.7), math3d.V2(3.2, 3.7), 1},
		{"outside", math3d.V2(-10, -10), math3d.V2(-5, -1), 0},
		{"clipped", math3d.V2(-10.5, 7.5), math3d.V2(40.5, 7.5), 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRasterizer(20, 20)
			r.DrawLine(tt.p1, tt.p2, ColorWhite)
			if got := countLit(r.Buffer); got != tt.want {
				t.Errorf("lit %d pixels, want %d", got, tt.want)
			}
		})
	}
}

func TestDrawLine3D(t *testing.T) {
	tests := []struct {
		name string
		a, b math3d.Vec3
		lit  bool
	}{
		{"in front", math3d.V3(-1, 0, -2), math3d.V3(1, 0, -2), true},
		{"behind", math3d.V3(-1, 0, 1), math3d.V3(1, 0, 2), false},
		{"crosses near plane", math3d.V3(0, -1, -2), math3d.V3(0, -1, 2), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRasterizer(20, 20)
			r.DrawLine3D(tt.a, tt.b, ColorWhite)
			if got := countLit(r.Buffer) > 0; got != tt.lit {
				t.Errorf("lit = %v, want %v", got, tt.lit)
			}
		})
	}
}

func TestDrawGuides(t *testing.T) {
	r := newTestRasterizer(40, 40)
	r.ModelView = math3d.Translate(math3d.V3(0, 0, -3))
	r.DrawAxes(1)
	counts := map[Color]int{}
	for _, c := range r.Buffer.Color {
		counts[c]++
	}
	for _, c := range []Color{ColorRed, ColorGreen, ColorBlue} {
		if counts[c] == 0 {
			t.Errorf("no %v axis pixels", c)
		}
	}

	box := newTestRasterizer(40, 40)
	box.ModelView = math3d.Translate(math3d.V3(0, 0, -4))
	box.DrawBox(NewAABB(math3d.V3(-1, -1, -1), math3d.V3(1, 1, 1)), ColorWhite)
	if box.Buffer.Pixel(20, 20) != ColorBlack {
		t.Error("box interior drawn")
	}
	if countLit(box.Buffer) == 0 {
		t.Error("box not drawn")
	}

	grid := newTestRasterizer(40, 40)
	grid.ModelView = math3d.Translate(math3d.V3(0, -1, -5))
	grid.DrawGrid(4, 1, ColorWhite)
	if countLit(grid.Buffer) == 0 {
		t.Error("grid not drawn")
	}
}

func TestDrawCachedTriangleMatchesDirect(t *testing.T) {
	p := [3]math3d.Vec3{math3d.V3(-1, -1, -2), math3d.V3(1, -0.5, -3), math3d.V3(0, 1, -2.5)}

	direct := newTestRasterizer(48, 48)
	direct.Fragment = colorFragment()
	direct.DrawTriangle(p, flatNormals(), [3]math3d.Vec2{}, white3(), nil)

	cached := newTestRasterizer(48, 48)
	cached.Fragment = colorFragment()
	var pc [3]VertexPosCache
	var ptrs [3]*VertexPosCache
	for i := range p {
		pc[i].Shaded = p[i]
		pc[i].Complete(cached.Buffer, cached.Proj)
		ptrs[i] = &pc[i]
	}
	cached.DrawCachedTriangle(ptrs, flatNormals(), [3]math3d.Vec2{}, white3(), nil)

	for i := range direct.Buffer.Color {
		if direct.Buffer.Color[i] != cached.Buffer.Color[i] || direct.Buffer.Depth[i] != cached.Buffer.Depth[i] {
			t.Fatalf("pixel %d differs between direct and cached draws", i)
		}
	}
}

func BenchmarkDrawTriangle(b *testing.B) {
	r := newTestRasterizer(200, 150)
	quad := fullScreenQuad()
	for b.Loop() {
		r.Buffer.ClearDepth(-1)
		for _, tri := range quad {
			r.DrawTriangle(tri, flatNormals(), [3]math3d.Vec2{}, white3(), nil)
		}
	}
}

func BenchmarkDrawTriangleClipped(b *testing.B) {
	r := newTestRasterizer(200, 150)
	p := [3]math3d.Vec3{math3d.V3(-1, -1, -0.5), math3d.V3(1, -1, -3), math3d.V3(0, 1, -3)}
	for b.Loop() {
		r.Buffer.ClearDepth(-1)
		r.DrawTriangle(p, flatNormals(), [3]math3d.Vec2{}, white3(), nil)
	}
}
