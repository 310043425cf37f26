package render

import (
	"math"

	"github.com/taigrr/rtt/pkg/math3d"
)

// BRDF computes the radiance reflected toward out from light arriving
// along in (the direction the light travels) onto a surface with unit
// normal n. radiance is the incoming RGB radiance. The result may be
// negative for back-lit surfaces; callers clamp it.
type BRDF interface {
	Reflect(in, out, n, radiance math3d.Vec3) math3d.Vec3
}

// Diffuse is a Lambertian material.
type Diffuse struct {
	Diffuse float64
}

func (d Diffuse) Reflect(in, _, n, radiance math3d.Vec3) math3d.Vec3 {
	return radiance.Scale(-d.Diffuse * in.Dot(n))
}

// Phong adds a specular lobe around the mirror direction.
type Phong struct {
	Diffuse   float64
	Specular  float64
	Shininess float64
}

func (p Phong) Reflect(in, out, n, radiance math3d.Vec3) math3d.Vec3 {
	ddotv := in.Dot(n)
	mirror := in.Sub(n.Scale(2 * ddotv))
	spec := p.Specular * math.Pow(max(0, out.Dot(mirror)), p.Shininess)
	return radiance.Scale(spec - p.Diffuse*ddotv)
}

// GGX is a Cook-Torrance microfacet material with the GGX distribution,
// Smith-Schlick geometry and Schlick Fresnel, plus a Lambertian term.
type GGX struct {
	Diffuse   float64
	Specular  float64
	Roughness float64 // perceptual roughness in (0, 1]
	F0        float64 // reflectance at normal incidence
}

func (g GGX) Reflect(in, out, n, radiance math3d.Vec3) math3d.Vec3 {
	l := in.Negate()
	nl := n.Dot(l)
	nv := n.Dot(out)
	if nl <= 0 || nv <= 0 {
		return math3d.Vec3{}
	}
	h := l.Add(out).Normalize()
	nh := max(0, n.Dot(h))
	vh := max(0, out.Dot(h))

	a := g.Roughness * g.Roughness
	a2 := a * a
	denom := nh*nh*(a2-1) + 1
	d := a2 / (math.Pi * denom * denom)

	k := a / 2
	geo := (nl / (nl*(1-k) + k)) * (nv / (nv*(1-k) + k))
	f := g.F0 + (1-g.F0)*math.Pow(1-vh, 5)

	spec := d * geo * f / (4 * nl * nv)
	return radiance.Scale((g.Diffuse + g.Specular*spec) * nl)
}
