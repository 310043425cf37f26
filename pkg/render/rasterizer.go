package render

import (
	"fmt"
	"math"

	"github.com/taigrr/rtt/pkg/math3d"
)

// RenderMode selects how emitted triangles are drawn.
type RenderMode int

const (
	ModeFill      RenderMode = iota // scanline fill through the shader stages
	ModeWireframe                   // three edges in the first vertex color
	ModePoints                      // three vertex dots in the first vertex color
)

// Rasterizer scan-converts triangles into a buffer set through a vertex,
// a test and a fragment stage. It is not safe for concurrent use; give
// each goroutine its own rasterizer and buffer set.
type Rasterizer struct {
	Buffer    *BufferSet
	Proj      math3d.Mat4
	ModelView math3d.Mat4

	Vertex   VertexShader
	Test     TestShader
	Fragment FragmentShader

	Mode RenderMode

	verts [3]FragVertex
	frag  FragInfo
}

// NewRasterizer creates a rasterizer drawing into buf with the default
// stages, an identity model-view and a 60 degree projection.
func NewRasterizer(buf *BufferSet) *Rasterizer {
	return &Rasterizer{
		Buffer:    buf,
		Proj:      math3d.Frustum(math.Pi/3, float64(buf.Height)/float64(buf.Width), 0.1, 100),
		ModelView: math3d.Identity(),
		Vertex:    DefaultVertex{},
		Test:      DepthTest{},
		Fragment:  HeadlightFragment{},
	}
}

// backFacing reports whether the camera-space triangle faces away from the
// eye. Counter-clockwise triangles face the viewer.
func backFacing(p1, p2, p3 math3d.Vec3) bool {
	return math3d.Triple(p1, p2, p3) > 0
}

// DrawTriangle shades, culls, clips and rasterizes one object-space
// triangle. It returns the number of triangles emitted after clipping.
func (r *Rasterizer) DrawTriangle(p, n [3]math3d.Vec3, uv [3]math3d.Vec2, c [3]math3d.Vec4, ctx *DrawContext) int {
	var shaded [3]math3d.Vec3
	for i := range p {
		shaded[i] = r.Vertex.ShadePosition(r, r.ModelView, p[i], ctx)
	}
	if backFacing(shaded[0], shaded[1], shaded[2]) {
		return 0
	}
	for i := range p {
		v := &r.verts[i]
		v.Pos = shaded[i]
		v.Clip = r.Proj.MulVec4(math3d.V4FromV3(shaded[i], 1))
		v.Screen = r.Buffer.Denormalize(v.Clip.Homogenize2())
		v.Normal = r.Vertex.ShadeNormal(r, r.ModelView, n[i], ctx)
		v.UV = uv[i]
		v.Color = c[i]
		v.Corner = i
	}
	return r.drawClipped(ctx)
}

// DrawCachedTriangle rasterizes a triangle whose vertices already went
// through the vertex stage and VertexPosCache.Complete against r.Buffer
// and r.Proj. n holds camera-space normals.
func (r *Rasterizer) DrawCachedTriangle(p [3]*VertexPosCache, n [3]math3d.Vec3, uv [3]math3d.Vec2, c [3]math3d.Vec4, ctx *DrawContext) int {
	if backFacing(p[0].Shaded, p[1].Shaded, p[2].Shaded) {
		return 0
	}
	for i := range p {
		v := &r.verts[i]
		v.Pos = p[i].Shaded
		v.Clip = p[i].Clip
		v.Screen = p[i].Screen
		v.Normal = n[i]
		v.UV = uv[i]
		v.Color = c[i]
		v.Corner = i
	}
	return r.drawClipped(ctx)
}

// clipScreen returns the buffer position where the edge from front
// (kept, z <= 0) to back (z > 0) crosses the near plane.
func (r *Rasterizer) clipScreen(front, back math3d.Vec4) math3d.Vec2 {
	return r.Buffer.Denormalize(front.Scale(back.Z).Sub(back.Scale(front.Z)).Homogenize2())
}

// drawClipped sorts r.verts by clip depth and emits the part of the
// triangle behind the near plane (clip z <= 0) as 0, 1 or 2 triangles.
func (r *Rasterizer) drawClipped(ctx *DrawContext) int {
	v := &r.verts
	if v[0].Clip.Z < v[1].Clip.Z {
		v[0], v[1] = v[1], v[0]
	}
	if v[1].Clip.Z < v[2].Clip.Z {
		v[1], v[2] = v[2], v[1]
	}
	if v[0].Clip.Z < v[1].Clip.Z {
		v[0], v[1] = v[1], v[0]
	}

	var s [3]math3d.Vec2
	switch {
	case v[2].Clip.Z > 0:
		return 0
	case v[1].Clip.Z > 0:
		s[0] = r.clipScreen(v[2].Clip, v[0].Clip)
		s[1] = r.clipScreen(v[2].Clip, v[1].Clip)
		s[2] = v[2].Screen
		r.emit(s, ctx)
		return 1
	case v[0].Clip.Z > 0:
		s[0] = r.clipScreen(v[1].Clip, v[0].Clip)
		s[1] = v[1].Screen
		s[2] = v[2].Screen
		r.emit(s, ctx)
		s[1] = r.clipScreen(v[2].Clip, v[0].Clip)
		r.emit(s, ctx)
		return 2
	default:
		s[0], s[1], s[2] = v[0].Screen, v[1].Screen, v[2].Screen
		r.emit(s, ctx)
		return 1
	}
}

func (r *Rasterizer) emit(s [3]math3d.Vec2, ctx *DrawContext) {
	switch r.Mode {
	case ModeWireframe:
		c := FromVec4(r.verts[0].Color.Clamp(0, 1))
		r.DrawLine(s[0], s[1], c)
		r.DrawLine(s[1], s[2], c)
		r.DrawLine(s[2], s[0], c)
	case ModePoints:
		c := FromVec4(r.verts[0].Color.Clamp(0, 1))
		for _, p := range s {
			r.DrawPoint(p, c)
		}
	default:
		r.fill(s, ctx)
	}
}

// projParams are the per-triangle coefficients of the perspective-correct
// barycentric mapping from NDC x, y to the weights of the three corners.
type projParams struct {
	divC, divXm, divYm       float64
	m11c, m11ym, m12c, m12xm float64
	m21c, m21ym, m22c, m22xm float64
	vxc, vyc, vm             float64
}

func newProjParams(p1, p2, p3 math3d.Vec4) projParams {
	v12, v23, v31 := p2.Sub(p1), p3.Sub(p2), p1.Sub(p3)
	return projParams{
		divC:  p1.Y*v23.X + p2.Y*v31.X + p3.Y*v12.X,
		divXm: p1.W*v23.Y + p2.W*v31.Y + p3.W*v12.Y,
		divYm: -p1.W*v23.X - p2.W*v31.X - p3.W*v12.X,
		m11c:  -v23.Y,
		m11ym: v23.W,
		m12c:  v23.X,
		m12xm: -v23.W,
		m21c:  -v31.Y,
		m21ym: v31.W,
		m22c:  v31.X,
		m22xm: -v31.W,
		vxc:   -p3.X,
		vyc:   -p3.Y,
		vm:    p3.W,
	}
}

// weights returns the weights p and q of the first two corners at NDC (x, y).
func (pp *projParams) weights(x, y float64) (p, q float64) {
	vx := pp.vxc + pp.vm*x
	vy := pp.vyc + pp.vm*y
	dm := 1 / (pp.divC + pp.divXm*x + pp.divYm*y)
	p = ((pp.m11c+pp.m11ym*y)*vx + (pp.m12c+pp.m12xm*x)*vy) * dm
	q = ((pp.m21c+pp.m21ym*y)*vx + (pp.m22c+pp.m22xm*x)*vy) * dm
	return p, q
}

// fill splits the screen triangle at its middle vertex and fills the top
// half from the highest apex and the bottom half from the lowest.
func (r *Rasterizer) fill(s [3]math3d.Vec2, ctx *DrawContext) {
	a0, a1, a2 := s[0], s[1], s[2]
	if a0.Y < a1.Y {
		a0, a1 = a1, a0
	}
	if a1.Y < a2.Y {
		a1, a2 = a2, a1
	}
	if a0.Y < a1.Y {
		a0, a1 = a1, a0
	}

	invkTM := (a1.X - a0.X) / (a1.Y - a0.Y)
	invkTD := (a2.X - a0.X) / (a2.Y - a0.Y)
	invkMD := (a2.X - a1.X) / (a2.Y - a1.Y)

	params := newProjParams(r.verts[0].Clip, r.verts[1].Clip, r.verts[2].Clip)
	r.frag.V = &r.verts

	if invkTM < invkTD {
		r.fillHalf(a0.X, a0.Y, invkTD, invkTM, a1.Y, a0.Y, &params, ctx)
	} else {
		r.fillHalf(a0.X, a0.Y, invkTM, invkTD, a1.Y, a0.Y, &params, ctx)
	}
	if invkTD < invkMD {
		r.fillHalf(a2.X, a2.Y, invkTD, invkMD, a2.Y, a1.Y, &params, ctx)
	} else {
		r.fillHalf(a2.X, a2.Y, invkMD, invkTD, a2.Y, a1.Y, &params, ctx)
	}
}

// fillHalf fills rows [ymin, ymax) between two edges through the apex
// (sx, sy) with inverse slopes invk1 (left) and invk2 (right). A pixel is
// covered when its center lies inside.
func (r *Rasterizer) fillHalf(sx, sy, invk1, invk2, ymin, ymax float64, params *projParams, ctx *DrawContext) {
	buf := r.Buffer
	w, h := float64(buf.Width), float64(buf.Height)
	sx += 0.5
	sy -= 0.5
	miny := int(math3d.Clamp(ymin+0.5, 0, h))
	maxy := int(math3d.Clamp(ymax+0.5, 0, h))
	xstep, ystep := 2/w, 2/h
	ys := (float64(miny)+0.5)*ystep - 1

	f := &r.frag
	for y := miny; y < maxy; y, ys = y+1, ys+ystep {
		diff := float64(y) - sy
		left := diff*invk1 + sx
		right := diff*invk2 + sx
		l := int(math3d.Clamp(left, 0, w))
		rt := int(math3d.Clamp(right, 0, w))
		xs := (float64(l)+0.5)*xstep - 1
		row := y * buf.Width
		for x := l; x < rt; x, xs = x+1, xs+xstep {
			if debugChecks && (x >= buf.Width || y >= buf.Height) {
				panic(fmt.Sprintf("render: scanline pixel (%d, %d) out of %dx%d buffer", x, y, buf.Width, buf.Height))
			}
			f.reset(params.weights(xs, ys))
			i := row + x
			if r.Test.TestFragment(r, f, &buf.Depth[i], &buf.Stencil[i], ctx) {
				buf.Color[i] = r.Fragment.ShadeFragment(r, f, ctx)
			}
		}
	}
}
