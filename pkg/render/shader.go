package render

import (
	"math"

	"github.com/taigrr/rtt/pkg/math3d"
)

// DrawContext carries per-draw information from the caller to the stages.
// Any field may be zero when the rasterizer is used without a renderer.
type DrawContext struct {
	Renderer *Renderer
	Cache    *SceneCache
	Model    int
	Face     int
	Texture  *Texture
}

// VertexShader transforms object-space vertices into camera space.
type VertexShader interface {
	ShadePosition(r *Rasterizer, mv math3d.Mat4, p math3d.Vec3, ctx *DrawContext) math3d.Vec3
	ShadeNormal(r *Rasterizer, mv math3d.Mat4, n math3d.Vec3, ctx *DrawContext) math3d.Vec3
}

// TestShader accepts or rejects a fragment. It may update the depth and
// stencil cells and may modify the fragment in place.
type TestShader interface {
	TestFragment(r *Rasterizer, f *FragInfo, depth *float64, stencil *uint8, ctx *DrawContext) bool
}

// FragmentShader computes the output color of an accepted fragment.
type FragmentShader interface {
	ShadeFragment(r *Rasterizer, f *FragInfo, ctx *DrawContext) Color
}

// VertexFunc adapts a position transform to VertexShader. Normals use the
// default direction transform.
type VertexFunc func(r *Rasterizer, mv math3d.Mat4, p math3d.Vec3, ctx *DrawContext) math3d.Vec3

func (fn VertexFunc) ShadePosition(r *Rasterizer, mv math3d.Mat4, p math3d.Vec3, ctx *DrawContext) math3d.Vec3 {
	return fn(r, mv, p, ctx)
}

func (fn VertexFunc) ShadeNormal(r *Rasterizer, mv math3d.Mat4, n math3d.Vec3, ctx *DrawContext) math3d.Vec3 {
	return mv.MulVec3Dir(n)
}

// TestFunc adapts a function to TestShader.
type TestFunc func(r *Rasterizer, f *FragInfo, depth *float64, stencil *uint8, ctx *DrawContext) bool

func (fn TestFunc) TestFragment(r *Rasterizer, f *FragInfo, depth *float64, stencil *uint8, ctx *DrawContext) bool {
	return fn(r, f, depth, stencil, ctx)
}

// FragmentFunc adapts a function to FragmentShader.
type FragmentFunc func(r *Rasterizer, f *FragInfo, ctx *DrawContext) Color

func (fn FragmentFunc) ShadeFragment(r *Rasterizer, f *FragInfo, ctx *DrawContext) Color {
	return fn(r, f, ctx)
}

// DefaultVertex applies the model-view matrix to positions and normals.
type DefaultVertex struct{}

func (DefaultVertex) ShadePosition(_ *Rasterizer, mv math3d.Mat4, p math3d.Vec3, _ *DrawContext) math3d.Vec3 {
	return mv.MulVec3(p)
}

func (DefaultVertex) ShadeNormal(_ *Rasterizer, mv math3d.Mat4, n math3d.Vec3, _ *DrawContext) math3d.Vec3 {
	return mv.MulVec3Dir(n)
}

// DepthTest passes fragments strictly closer than the stored depth and
// writes their depth.
type DepthTest struct{}

func (DepthTest) TestFragment(_ *Rasterizer, f *FragInfo, depth *float64, _ *uint8, _ *DrawContext) bool {
	return depthTest(f, depth)
}

func depthTest(f *FragInfo, depth *float64) bool {
	if f.Depth > *depth {
		*depth = f.Depth
		return true
	}
	return false
}

// headlightMaterial is the material HeadlightFragment shades with.
var headlightMaterial = Phong{Diffuse: 1, Specular: 0.5, Shininess: 50}

// HeadlightFragment shades with a light at the eye whose radiance falls off
// as 10/d². When the context carries a texture it is sampled with repeat
// wrapping and bilinear filtering.
type HeadlightFragment struct{}

func (HeadlightFragment) ShadeFragment(_ *Rasterizer, f *FragInfo, ctx *DrawContext) Color {
	pos := f.Position()
	in := pos.Normalize()
	e := 10 / pos.LenSq()
	if math.IsInf(e, 0) {
		e = 0
	}
	lit := headlightMaterial.Reflect(in, in.Negate(), f.Normal(), math3d.V3(e, e, e))
	c := f.ColorMult().Mul(math3d.V4FromV3(lit, 1))
	if ctx != nil && ctx.Texture != nil {
		c = ctx.Texture.Sample(f.UV(), WrapRepeat, FilterBilinear).Mul(c)
	}
	return FromVec4(c.Clamp(0, 1))
}
