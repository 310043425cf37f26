package render

import (
	"math"

	"github.com/taigrr/rtt/pkg/math3d"
)

// Enhancement is a per-model hook that runs before the depth test and may
// modify the fragment in place or reject it.
type Enhancement interface {
	// NewFaceCache allocates the per-face data for a mesh with faces faces.
	NewFaceCache(faces int) FaceCache
	// BeforeTest runs for every fragment of the model's face face.
	BeforeTest(r *Rasterizer, f *FragInfo, fc FaceCache, face int) bool
}

// FaceCache holds per-face data an enhancement derives from the cached
// camera-space vertices. v and uv are in face corner order.
type FaceCache interface {
	Refresh(face int, v [3]*VertexPosCache, uv [3]math3d.Vec2)
}

// DefaultParallaxSteps bounds the ray march of Parallax.
const DefaultParallaxSteps = 200

// Parallax is parallax occlusion mapping: the view ray is marched through
// a height field, displacing position and texture coordinates, and the
// normal is tilted by the height gradient. Height is read from the red
// channel, 1 being the surface and 0 being Depth below it.
type Parallax struct {
	Height *Texture
	Depth  float64
	Steps  int // 0 means DefaultParallaxSteps
}

type parallaxFace struct {
	d1, d2     math3d.Vec3 // camera-space edges from corner 0
	uvd1, uvd2 math3d.Vec2
	uvdx, uvdy math3d.Vec3 // camera-space directions of +u and +v
	ok         bool
}

// ParallaxCache is the FaceCache of Parallax.
type ParallaxCache struct {
	faces []parallaxFace
}

func (p *Parallax) NewFaceCache(faces int) FaceCache {
	return &ParallaxCache{faces: make([]parallaxFace, faces)}
}

func (c *ParallaxCache) Refresh(face int, v [3]*VertexPosCache, uv [3]math3d.Vec2) {
	pf := &c.faces[face]
	pf.d1 = v[1].Shaded.Sub(v[0].Shaded)
	pf.d2 = v[2].Shaded.Sub(v[0].Shaded)
	pf.uvd1 = uv[1].Sub(uv[0])
	pf.uvd2 = uv[2].Sub(uv[0])

	npx, nqx, okx := math3d.SolveLinear2(pf.uvd1, pf.uvd2, math3d.V2(1, 0))
	npy, nqy, oky := math3d.SolveLinear2(pf.uvd1, pf.uvd2, math3d.V2(0, 1))
	pf.uvdx = pf.d1.Scale(npx).Add(pf.d2.Scale(nqx))
	pf.uvdy = pf.d1.Scale(npy).Add(pf.d2.Scale(nqy))
	pf.ok = okx && oky && pf.uvdx.LenSq() > 0 && pf.uvdy.LenSq() > 0
}

func (p *Parallax) BeforeTest(r *Rasterizer, f *FragInfo, fc FaceCache, face int) bool {
	pc, ok := fc.(*ParallaxCache)
	if !ok || p.Height == nil {
		return true
	}
	pf := &pc.faces[face]
	if !pf.ok {
		return true
	}
	tw, th := float64(p.Height.Width), float64(p.Height.Height)

	pos := f.Position()
	fpos := pos.Normalize()
	n := f.Normal()
	sinv := -n.Dot(fpos)
	cosv := math.Sqrt(max(0, 1-sinv*sinv))
	if cosv < 1e-9 {
		return true
	}
	yd := n.Cross(fpos).Normalize()
	xd := yd.Cross(n)
	sp, sq, ok := math3d.SolveLinear2(pf.d1.XY(), pf.d2.XY(), xd.XY())
	if !ok {
		return true
	}
	duv := pf.uvd1.Scale(sp).Add(pf.uvd2.Scale(sq))
	lv := 2 * duv.Len() * tw
	if lv == 0 {
		return true
	}
	zinc := sinv / cosv / lv
	duv = duv.Scale(1 / lv)
	dpos := fpos.Scale(1 / (lv * cosv))

	steps := p.Steps
	if steps <= 0 {
		steps = DefaultParallaxSteps
	}
	uv := f.UV()
	zv := zinc
	for range steps {
		h := p.Height.Sample(uv, WrapRepeat, FilterBilinear)
		if (1-h.X)*p.Depth < zv {
			break
		}
		uv = uv.Add(duv)
		pos = pos.Add(dpos)
		zv += zinc
	}
	f.SetUV(uv)
	f.SetPosition(pos)
	f.SetClip(r.Proj.MulVec4(math3d.V4FromV3(pos, 1)))

	lx, ly := pf.uvdx.Len(), pf.uvdy.Len()
	gx := -p.Depth * p.Height.GradX(uv).X * tw / lx
	gy := -p.Depth * p.Height.GradY(uv).X * th / ly
	zmult := math.Sqrt(1 / (1 + gx*gx + gy*gy))
	f.SetNormal(n.Add(pf.uvdx.Scale(gx / lx)).Add(pf.uvdy.Scale(gy / ly)).Scale(zmult))
	return true
}
