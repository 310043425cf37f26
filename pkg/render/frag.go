package render

import "github.com/taigrr/rtt/pkg/math3d"

// FragVertex is one corner of the triangle being rasterized.
type FragVertex struct {
	Clip   math3d.Vec4 // projected, before the perspective divide
	Pos    math3d.Vec3 // camera space
	Normal math3d.Vec3 // camera space, not normalized
	UV     math3d.Vec2
	Color  math3d.Vec4
	Screen math3d.Vec2 // buffer coordinates, valid when Clip.Z <= 0
	Corner int        // index of this corner in the source face
}

const (
	fragHasPos = 1 << iota
	fragHasNormal
	fragHasUV
	fragHasColor
)

// FragInfo describes the fragment being tested and shaded. P, Q and R are
// the perspective-correct weights of V[0], V[1] and V[2]. Clip and Depth
// are interpolated eagerly; the other attributes on first use. A test stage
// may override any attribute in place before the fragment stage runs.
//
// The rasterizer reuses one FragInfo for every fragment; do not retain it.
type FragInfo struct {
	P, Q, R float64
	V       *[3]FragVertex
	Clip    math3d.Vec4
	Depth   float64

	have   uint8
	pos    math3d.Vec3
	normal math3d.Vec3
	uv     math3d.Vec2
	color  math3d.Vec4
}

func (f *FragInfo) reset(p, q float64) {
	f.P, f.Q, f.R = p, q, 1-p-q
	v := f.V
	f.Clip = v[0].Clip.Scale(f.P).Add(v[1].Clip.Scale(f.Q)).Add(v[2].Clip.Scale(f.R))
	f.Depth = f.Clip.Z / f.Clip.W
	f.have = 0
}

func (f *FragInfo) interp3(a, b, c math3d.Vec3) math3d.Vec3 {
	return a.Scale(f.P).Add(b.Scale(f.Q)).Add(c.Scale(f.R))
}

// Position returns the interpolated camera-space position.
func (f *FragInfo) Position() math3d.Vec3 {
	if f.have&fragHasPos == 0 {
		f.pos = f.interp3(f.V[0].Pos, f.V[1].Pos, f.V[2].Pos)
		f.have |= fragHasPos
	}
	return f.pos
}

// Normal returns the interpolated camera-space normal, normalized.
func (f *FragInfo) Normal() math3d.Vec3 {
	if f.have&fragHasNormal == 0 {
		f.normal = f.interp3(f.V[0].Normal, f.V[1].Normal, f.V[2].Normal).Normalize()
		f.have |= fragHasNormal
	}
	return f.normal
}

// UV returns the interpolated texture coordinates.
func (f *FragInfo) UV() math3d.Vec2 {
	if f.have&fragHasUV == 0 {
		f.uv = f.V[0].UV.Scale(f.P).Add(f.V[1].UV.Scale(f.Q)).Add(f.V[2].UV.Scale(f.R))
		f.have |= fragHasUV
	}
	return f.uv
}

// ColorMult returns the interpolated vertex color.
func (f *FragInfo) ColorMult() math3d.Vec4 {
	if f.have&fragHasColor == 0 {
		f.color = f.V[0].Color.Scale(f.P).Add(f.V[1].Color.Scale(f.Q)).Add(f.V[2].Color.Scale(f.R))
		f.have |= fragHasColor
	}
	return f.color
}

// SetPosition overrides the camera-space position.
func (f *FragInfo) SetPosition(p math3d.Vec3) {
	f.pos = p
	f.have |= fragHasPos
}

// SetNormal overrides the normal. n is normalized.
func (f *FragInfo) SetNormal(n math3d.Vec3) {
	f.normal = n.Normalize()
	f.have |= fragHasNormal
}

// SetUV overrides the texture coordinates.
func (f *FragInfo) SetUV(uv math3d.Vec2) {
	f.uv = uv
	f.have |= fragHasUV
}

// SetColorMult overrides the vertex color.
func (f *FragInfo) SetColorMult(c math3d.Vec4) {
	f.color = c
	f.have |= fragHasColor
}

// SetClip overrides the clip position and recomputes Depth.
func (f *FragInfo) SetClip(c math3d.Vec4) {
	f.Clip = c
	f.Depth = c.Z / c.W
}
