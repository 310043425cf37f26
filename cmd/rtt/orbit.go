package main

import (
	"math"

	"github.com/charmbracelet/harmonica"

	"github.com/taigrr/rtt/pkg/math3d"
	"github.com/taigrr/rtt/pkg/render"
)

// settleEpsilon is how close an axis must be to its goal, with how little
// velocity left, to count as at rest.
const settleEpsilon = 1e-3

// OrbitAxis eases one orbit parameter toward its goal with a harmonica
// spring.
type OrbitAxis struct {
	Value    float64
	Goal     float64
	velocity float64
	spring   harmonica.Spring
}

// NewOrbitAxis creates an axis at rest at v.
func NewOrbitAxis(fps int, v float64) OrbitAxis {
	return OrbitAxis{
		Value: v,
		Goal:  v,
		// Frequency 6.0 = snappy, damping 1.0 = critically damped (no overshoot)
		spring: harmonica.NewSpring(harmonica.FPS(fps), 6.0, 1.0),
	}
}

// Update advances the spring one frame and reports whether the axis is
// still moving.
func (a *OrbitAxis) Update() bool {
	a.Value, a.velocity = a.spring.Update(a.Value, a.velocity, a.Goal)
	if math.Abs(a.Goal-a.Value) < settleEpsilon && math.Abs(a.velocity) < settleEpsilon {
		a.Value, a.velocity = a.Goal, 0
		return false
	}
	return true
}

const (
	maxOrbitPitch = math.Pi/2 - 0.05
	minOrbitDist  = 0.5
	maxOrbitDist  = 100
)

// Orbit places a camera on a sphere around Target. Input moves the goals
// and the camera follows on springs.
type Orbit struct {
	Target           math3d.Vec3
	Yaw, Pitch, Dist OrbitAxis

	cam  *render.Camera
	home [3]float64
}

// NewOrbit derives an orbit from the camera's current placement: the
// target is the point ahead of the camera closest to the origin.
func NewOrbit(cam *render.Camera, fps int) *Orbit {
	fwd := cam.Forward()
	d := max(cam.Position.Negate().Dot(fwd), 1)
	target := cam.Position.Add(fwd.Scale(d))
	off := cam.Position.Sub(target)
	yaw := math.Atan2(off.X, off.Z)
	pitch := math.Asin(math3d.Clamp(off.Y/d, -1, 1))

	return &Orbit{
		Target: target,
		Yaw:    NewOrbitAxis(fps, yaw),
		Pitch:  NewOrbitAxis(fps, pitch),
		Dist:   NewOrbitAxis(fps, d),
		cam:    cam,
		home:   [3]float64{yaw, pitch, d},
	}
}

// Reset eases back to the starting placement.
func (o *Orbit) Reset() {
	o.Yaw.Goal, o.Pitch.Goal, o.Dist.Goal = o.home[0], o.home[1], o.home[2]
}

// Rotate moves the yaw and pitch goals by the given angles in radians.
func (o *Orbit) Rotate(dyaw, dpitch float64) {
	o.Yaw.Goal += dyaw
	o.Pitch.Goal = math3d.Clamp(o.Pitch.Goal+dpitch, -maxOrbitPitch, maxOrbitPitch)
}

// Zoom scales the distance goal.
func (o *Orbit) Zoom(factor float64) {
	o.Dist.Goal = math3d.Clamp(o.Dist.Goal*factor, minOrbitDist, maxOrbitDist)
}

// Update advances the springs, moves the camera and reports whether the
// orbit is still in motion.
func (o *Orbit) Update() bool {
	moving := o.Yaw.Update()
	moving = o.Pitch.Update() || moving
	moving = o.Dist.Update() || moving
	o.cam.Orbit(o.Target, o.Dist.Value, o.Yaw.Value, o.Pitch.Value)
	return moving
}
