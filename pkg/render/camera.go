package render

import (
	"math"

	"github.com/taigrr/rtt/pkg/math3d"
)

// Camera describes the viewer: a position, a yaw/pitch orientation and a
// perspective frustum.
type Camera struct {
	Position math3d.Vec3

	Pitch float64 // look up/down, radians
	Yaw   float64 // look left/right around +Y, radians

	HFov   float64 // horizontal field of view in radians
	Aspect float64 // height / width
	Near   float64
	Far    float64

	viewMatrix math3d.Mat4
	projMatrix math3d.Mat4
	viewDirty  bool
	projDirty  bool
}

// NewCamera creates a camera at the origin looking down -Z.
func NewCamera() *Camera {
	return &Camera{
		HFov:      math.Pi / 3,
		Aspect:    0.75,
		Near:      0.1,
		Far:       100,
		viewDirty: true,
		projDirty: true,
	}
}

// SetPosition sets the camera position.
func (c *Camera) SetPosition(pos math3d.Vec3) {
	c.Position = pos
	c.viewDirty = true
}

// SetRotation sets pitch and yaw in radians.
func (c *Camera) SetRotation(pitch, yaw float64) {
	c.Pitch = pitch
	c.Yaw = yaw
	c.viewDirty = true
}

// SetFOV sets the horizontal field of view in radians.
func (c *Camera) SetFOV(hfov float64) {
	c.HFov = hfov
	c.projDirty = true
}

// SetAspect sets the height/width ratio of the target buffer.
func (c *Camera) SetAspect(aspect float64) {
	c.Aspect = aspect
	c.projDirty = true
}

// SetClipPlanes sets the near and far clipping distances.
func (c *Camera) SetClipPlanes(near, far float64) {
	c.Near = near
	c.Far = far
	c.projDirty = true
}

// Forward returns the unit view direction.
func (c *Camera) Forward() math3d.Vec3 {
	return math3d.V3(
		-math.Sin(c.Yaw)*math.Cos(c.Pitch),
		math.Sin(c.Pitch),
		-math.Cos(c.Yaw)*math.Cos(c.Pitch),
	)
}

// Right returns the unit right direction.
func (c *Camera) Right() math3d.Vec3 {
	return math3d.V3(math.Cos(c.Yaw), 0, -math.Sin(c.Yaw))
}

// Up returns the unit up direction.
func (c *Camera) Up() math3d.Vec3 {
	return c.Right().Cross(c.Forward())
}

// ViewMatrix returns the world-to-camera matrix.
func (c *Camera) ViewMatrix() math3d.Mat4 {
	if c.viewDirty {
		c.viewMatrix = math3d.CamView(c.Position, c.Forward(), c.Up(), c.Right())
		c.viewDirty = false
	}
	return c.viewMatrix
}

// ProjectionMatrix returns the camera-to-clip matrix.
func (c *Camera) ProjectionMatrix() math3d.Mat4 {
	if c.projDirty {
		c.projMatrix = math3d.Frustum(c.HFov, c.Aspect, c.Near, c.Far)
		c.projDirty = false
	}
	return c.projMatrix
}

// MoveForward moves the camera along its view direction.
func (c *Camera) MoveForward(distance float64) {
	c.Position = c.Position.Add(c.Forward().Scale(distance))
	c.viewDirty = true
}

// MoveRight strafes the camera.
func (c *Camera) MoveRight(distance float64) {
	c.Position = c.Position.Add(c.Right().Scale(distance))
	c.viewDirty = true
}

// Rotate adds to pitch and yaw. Pitch is clamped short of straight up or
// down so Right stays well defined.
func (c *Camera) Rotate(deltaPitch, deltaYaw float64) {
	const maxPitch = math.Pi/2 - 0.01
	c.Pitch = math3d.Clamp(c.Pitch+deltaPitch, -maxPitch, maxPitch)
	c.Yaw += deltaYaw
	c.viewDirty = true
}

// LookAt points the camera at target.
func (c *Camera) LookAt(target math3d.Vec3) {
	dir := target.Sub(c.Position).Normalize()
	c.Pitch = math.Asin(dir.Y)
	c.Yaw = math.Atan2(-dir.X, -dir.Z)
	c.viewDirty = true
}

// Orbit places the camera on a sphere around target and looks at it.
// yaw and pitch are the camera's angles as seen from the target.
func (c *Camera) Orbit(target math3d.Vec3, distance, yaw, pitch float64) {
	offset := math3d.V3(
		math.Sin(yaw)*math.Cos(pitch),
		math.Sin(pitch),
		math.Cos(yaw)*math.Cos(pitch),
	).Scale(distance)
	c.Position = target.Add(offset)
	c.LookAt(target)
}
