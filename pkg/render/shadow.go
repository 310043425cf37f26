package render

import (
	"math"

	"github.com/taigrr/rtt/pkg/math3d"
)

// DefaultShadowBias is the depth tolerance subtracted from stored shadow
// depths before comparing, to keep lit surfaces from shadowing themselves.
const DefaultShadowBias = 0.001

// ShadowData is a baked shadow map: nil (no shadow), *SpotShadow or
// *CubeShadow.
type ShadowData interface {
	// Update rebinds the map to a new camera view matrix.
	Update(view math3d.Mat4)
	// InShadow reports whether the camera-space point pos is occluded
	// from the light.
	InShadow(pos math3d.Vec3) bool
}

// ShadowOptions control shadow bakes.
type ShadowOptions struct {
	Size      int // width and height of each depth map
	Near      float64
	Far       float64
	Tolerance float64
}

// DefaultShadowOptions returns 256² maps covering 0.1 to 50 units.
func DefaultShadowOptions() ShadowOptions {
	return ShadowOptions{Size: 256, Near: 0.1, Far: 50, Tolerance: DefaultShadowBias}
}

// SpotShadow is a single depth map rendered from a spot light.
type SpotShadow struct {
	ViewProj  math3d.Mat4 // world to light clip space
	Depth     *BufferSet
	Tolerance float64

	camToLight math3d.Mat4
}

func (s *SpotShadow) Update(view math3d.Mat4) {
	s.camToLight = s.ViewProj.Mul(view.Inverse())
}

func (s *SpotShadow) InShadow(pos math3d.Vec3) bool {
	cp := s.camToLight.MulVec4(math3d.V4FromV3(pos, 1))
	if cp.W <= 0 {
		return false
	}
	return occluded(s.Depth, cp, s.Tolerance)
}

// occluded compares the light-space depth of cp against the map texel it
// projects to, clamped to texel centers.
func occluded(buf *BufferSet, cp math3d.Vec4, tol float64) bool {
	xy := buf.Denormalize(cp.Homogenize2())
	x := int(math3d.Clamp(xy.X, 0.5, float64(buf.Width)-0.5))
	y := int(math3d.Clamp(xy.Y, 0.5, float64(buf.Height)-0.5))
	return cp.Z/cp.W < buf.Depth[buf.Index(x, y)]-tol
}

// Cube faces in storage order.
const (
	CubePosX = iota
	CubeNegX
	CubePosY
	CubeNegY
	CubePosZ
	CubeNegZ
)

var cubeFaceBasis = [6]struct{ forward, up math3d.Vec3 }{
	CubePosX: {math3d.V3(1, 0, 0), math3d.V3(0, 1, 0)},
	CubeNegX: {math3d.V3(-1, 0, 0), math3d.V3(0, 1, 0)},
	CubePosY: {math3d.V3(0, 1, 0), math3d.V3(0, 0, 1)},
	CubeNegY: {math3d.V3(0, -1, 0), math3d.V3(0, 0, 1)},
	CubePosZ: {math3d.V3(0, 0, 1), math3d.V3(0, 1, 0)},
	CubeNegZ: {math3d.V3(0, 0, -1), math3d.V3(0, 1, 0)},
}

// CubeFace returns the cube face that direction d points into: the axis of
// largest magnitude, positive face for non-negative components. Ties
// prefer X over Y over Z.
func CubeFace(d math3d.Vec3) int {
	a := d.Abs()
	switch {
	case a.X >= a.Y && a.X >= a.Z:
		if d.X >= 0 {
			return CubePosX
		}
		return CubeNegX
	case a.Y >= a.Z:
		if d.Y >= 0 {
			return CubePosY
		}
		return CubeNegY
	default:
		if d.Z >= 0 {
			return CubePosZ
		}
		return CubeNegZ
	}
}

// CubeFaceView returns the world-to-camera matrix of cube face face for a
// light at pos.
func CubeFaceView(pos math3d.Vec3, face int) math3d.Mat4 {
	b := cubeFaceBasis[face]
	return math3d.CamView(pos, b.forward, b.up, b.forward.Cross(b.up))
}

// CubeProjection is the projection shared by the six faces of a cube map.
func CubeProjection(near, far float64) math3d.Mat4 {
	return math3d.Frustum(math.Pi/2, 1, near, far)
}

// CubeShadow is six depth maps around a point light.
type CubeShadow struct {
	Faces     [6]*BufferSet
	Views     [6]math3d.Mat4 // world to face camera
	Proj      math3d.Mat4
	Position  math3d.Vec3
	Tolerance float64

	camToWorld math3d.Mat4
	camToFace  [6]math3d.Mat4
}

func (s *CubeShadow) Update(view math3d.Mat4) {
	s.camToWorld = view.Inverse()
	for i := range s.Views {
		s.camToFace[i] = s.Proj.Mul(s.Views[i]).Mul(s.camToWorld)
	}
}

func (s *CubeShadow) InShadow(pos math3d.Vec3) bool {
	face := CubeFace(s.camToWorld.MulVec3(pos).Sub(s.Position))
	cp := s.camToFace[face].MulVec4(math3d.V4FromV3(pos, 1))
	if cp.W <= 0 {
		return false
	}
	// outside this face's depth range: before its near plane or past far
	if zv := cp.Z / cp.W; zv > 0 || zv <= -1 {
		return false
	}
	return occluded(s.Faces[face], cp, s.Tolerance)
}

// spotView builds a view matrix at pos looking along dir with any up
// vector perpendicular to it.
func spotView(pos, dir math3d.Vec3) math3d.Mat4 {
	dir = dir.Normalize()
	ref := math3d.Up()
	if math.Abs(dir.Y) > 0.99 {
		ref = math3d.V3(1, 0, 0)
	}
	right := dir.Cross(ref).Normalize()
	up := right.Cross(dir)
	return math3d.CamView(pos, dir, up, right)
}

// maxSpotFov keeps spot shadow frusta strictly narrower than 180 degrees.
const maxSpotFov = math.Pi * 0.95

// BakeShadow renders the shadow map of l. Directional lights and unknown
// light types return nil.
func (r *Renderer) BakeShadow(l Light, opts ShadowOptions) ShadowData {
	switch l := l.(type) {
	case *SpotLight:
		view := spotView(l.Position, l.Direction)
		proj := math3d.Frustum(min(2*l.Outer, maxSpotFov), 1, opts.Near, opts.Far)
		buf := NewDepthBufferSet(opts.Size, opts.Size)
		r.RenderDepth(buf, view, proj)
		Logger().Debug("baked spot shadow", "size", opts.Size)
		return &SpotShadow{ViewProj: proj.Mul(view), Depth: buf, Tolerance: opts.Tolerance}
	case *PointLight:
		s := &CubeShadow{
			Proj:      CubeProjection(opts.Near, opts.Far),
			Position:  l.Position,
			Tolerance: opts.Tolerance,
		}
		for i := range s.Faces {
			s.Views[i] = CubeFaceView(l.Position, i)
			s.Faces[i] = NewDepthBufferSet(opts.Size, opts.Size)
			r.RenderDepth(s.Faces[i], s.Views[i], s.Proj)
		}
		Logger().Debug("baked cube shadow", "size", opts.Size)
		return s
	default:
		return nil
	}
}

// BakeShadows rebuilds the shadow map of every light and binds them to
// the current camera. Call it when geometry or lights change.
func (r *Renderer) BakeShadows(opts ShadowOptions) {
	r.Shadows = make([]ShadowData, len(r.Lights))
	for i, l := range r.Lights {
		r.Shadows[i] = r.BakeShadow(l, opts)
	}
	if r.Camera != nil {
		view := r.Camera.ViewMatrix()
		for _, s := range r.Shadows {
			if s != nil {
				s.Update(view)
			}
		}
	}
}

// ClearShadows drops every baked shadow map.
func (r *Renderer) ClearShadows() {
	r.Shadows = nil
}
