package render

import (
	"math"

	"github.com/taigrr/rtt/pkg/math3d"
)

// Light is a light source in world space. It is one of *PointLight,
// *DirectionalLight or *SpotLight.
type Light interface {
	// BuildCache moves the light into the camera space of view.
	BuildCache(view math3d.Mat4) LightCache
	// Illuminate returns the unit direction light travels to reach the
	// camera-space point pos and the RGB radiance arriving there. ok is
	// false when the light does not reach pos.
	Illuminate(cache LightCache, pos math3d.Vec3) (in, radiance math3d.Vec3, ok bool)

	light()
}

// LightCache is the camera-space form of a light: one of PointCache,
// DirectionalCache or SpotCache.
type LightCache interface {
	lightCache()
}

// PointLight radiates in all directions with inverse-square falloff.
type PointLight struct {
	Position math3d.Vec3
	Color    math3d.Vec3
	Strength float64
}

// DirectionalLight is infinitely far away and has no falloff.
type DirectionalLight struct {
	Direction math3d.Vec3 // direction the light travels
	Color     math3d.Vec3
	Strength  float64
}

// SpotLight is a point light restricted to a cone. Inner and Outer are
// half-angles in radians; intensity fades smoothly between them.
type SpotLight struct {
	Position  math3d.Vec3
	Direction math3d.Vec3
	Color     math3d.Vec3
	Strength  float64
	Inner     float64
	Outer     float64
}

type PointCache struct {
	Position math3d.Vec3
}

type DirectionalCache struct {
	Direction math3d.Vec3
}

type SpotCache struct {
	Position           math3d.Vec3
	Direction          math3d.Vec3
	CosInner, CosOuter float64
}

func (PointCache) lightCache()       {}
func (DirectionalCache) lightCache() {}
func (SpotCache) lightCache()        {}

func (*PointLight) light()       {}
func (*DirectionalLight) light() {}
func (*SpotLight) light()        {}

func (l *PointLight) BuildCache(view math3d.Mat4) LightCache {
	return PointCache{Position: view.MulVec3(l.Position)}
}

func (l *PointLight) Illuminate(cache LightCache, pos math3d.Vec3) (math3d.Vec3, math3d.Vec3, bool) {
	c := cache.(PointCache)
	return pointFalloff(c.Position, pos, l.Color.Scale(l.Strength))
}

func pointFalloff(from, pos, radiance math3d.Vec3) (math3d.Vec3, math3d.Vec3, bool) {
	d := pos.Sub(from)
	d2 := d.LenSq()
	if d2 == 0 {
		return math3d.Vec3{}, math3d.Vec3{}, false
	}
	return d.Scale(1 / math.Sqrt(d2)), radiance.Scale(1 / d2), true
}

func (l *DirectionalLight) BuildCache(view math3d.Mat4) LightCache {
	return DirectionalCache{Direction: view.MulVec3Dir(l.Direction).Normalize()}
}

func (l *DirectionalLight) Illuminate(cache LightCache, _ math3d.Vec3) (math3d.Vec3, math3d.Vec3, bool) {
	c := cache.(DirectionalCache)
	return c.Direction, l.Color.Scale(l.Strength), true
}

func (l *SpotLight) BuildCache(view math3d.Mat4) LightCache {
	return SpotCache{
		Position:  view.MulVec3(l.Position),
		Direction: view.MulVec3Dir(l.Direction).Normalize(),
		CosInner:  math.Cos(l.Inner),
		CosOuter:  math.Cos(l.Outer),
	}
}

func (l *SpotLight) Illuminate(cache LightCache, pos math3d.Vec3) (math3d.Vec3, math3d.Vec3, bool) {
	c := cache.(SpotCache)
	in, radiance, ok := pointFalloff(c.Position, pos, l.Color.Scale(l.Strength))
	if !ok {
		return in, radiance, false
	}
	cos := in.Dot(c.Direction)
	if cos <= c.CosOuter {
		return in, math3d.Vec3{}, false
	}
	if cos < c.CosInner {
		t := (cos - c.CosOuter) / (c.CosInner - c.CosOuter)
		radiance = radiance.Scale(t * t * (3 - 2*t))
	}
	return in, radiance, true
}
