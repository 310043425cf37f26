package render

import (
	"fmt"
	"math"

	"github.com/taigrr/rtt/pkg/math3d"
)

// DrawLine draws a line between two buffer positions. Pixels are chosen by
// stepping one pixel at a time along the major axis; both ends are clipped
// to pixel centers inside the buffer first.
func (r *Rasterizer) DrawLine(p1, p2 math3d.Vec2, c Color) {
	pf, pt := p1, p2
	if p1.X+p1.Y > p2.X+p2.Y {
		pf, pt = p2, p1
	}
	diff := pt.Sub(pf)
	if diff.X == 0 && diff.Y == 0 {
		r.DrawPoint(pf, c)
		return
	}
	w, h := float64(r.Buffer.Width), float64(r.Buffer.Height)

	// pf has the smaller x+y, so diff.X < 0 implies a steep upward line
	// and diff.Y < 0 a shallow one.
	steep := diff.X < 0 || (diff.Y >= 0 && math.Abs(diff.Y) > math.Abs(diff.X))
	if steep {
		if clipLine(&pf.X, &pf.Y, &pt.X, &pt.Y, 0.5, w-0.5) {
			r.lineUp(pf.Y, pf.X, pt.Y, diff.X/diff.Y, c)
		}
		return
	}
	if clipLine(&pf.Y, &pf.X, &pt.Y, &pt.X, 0.5, h-0.5) {
		r.lineRight(pf.X, pf.Y, pt.X, diff.Y/diff.X, c)
	}
}

// lineRight walks x from fx to tx; y stays inside the buffer because the
// caller clipped it.
func (r *Rasterizer) lineRight(fx, fy, tx, k float64, c Color) {
	buf := r.Buffer
	t := int(math3d.Clamp(tx, 0, float64(buf.Width-1)))
	tx -= fx
	fx -= 0.5
	for cx := int(math3d.Clamp(fx+0.5, 0, float64(buf.Width))); cx <= t; cx++ {
		y := fy + k*math3d.Clamp(float64(cx)-fx, 0, tx)
		if debugChecks && (y < 0 || y > float64(buf.Height)) {
			panic(fmt.Sprintf("render: line y %v outside buffer", y))
		}
		buf.SetPixel(cx, int(y), c)
	}
}

// lineUp walks y from by to ty; x stays inside the buffer because the
// caller clipped it.
func (r *Rasterizer) lineUp(by, bx, ty, invk float64, c Color) {
	buf := r.Buffer
	t := int(math3d.Clamp(ty, 0, float64(buf.Height-1)))
	ty -= by
	by -= 0.5
	for cy := int(math3d.Clamp(by+0.5, 0, float64(buf.Height))); cy <= t; cy++ {
		x := bx + invk*math3d.Clamp(float64(cy)-by, 0, ty)
		if debugChecks && (x < 0 || x > float64(buf.Width)) {
			panic(fmt.Sprintf("render: line x %v outside buffer", x))
		}
		buf.SetPixel(int(x), cy, c)
	}
}

// clipLine clips the segment (fx, fy)-(tx, ty) to xmin <= x <= xmax,
// moving y along. It reports false when nothing is left.
func clipLine(fx, fy, tx, ty *float64, xmin, xmax float64) bool {
	fixup := func(x, y *float64, v, k float64) {
		*y += k * (v - *x)
		*x = v
	}
	if *fx < *tx {
		if *tx < xmin || *fx > xmax {
			return false
		}
		k := (*ty - *fy) / (*tx - *fx)
		if *fx < xmin {
			fixup(fx, fy, xmin, k)
		}
		if *tx > xmax {
			fixup(tx, ty, xmax, k)
		}
		return true
	}
	if *fx < xmin || *tx > xmax {
		return false
	}
	k := (*ty - *fy) / (*tx - *fx)
	if *fx > xmax {
		fixup(fx, fy, xmax, k)
	}
	if *tx < xmin {
		fixup(tx, ty, xmin, k)
	}
	return true
}

// DrawPoint sets the pixel containing p, if any.
func (r *Rasterizer) DrawPoint(p math3d.Vec2, c Color) {
	x, y := math.Floor(p.X), math.Floor(p.Y)
	if x < 0 || y < 0 || x >= float64(r.Buffer.Width) || y >= float64(r.Buffer.Height) {
		return
	}
	r.Buffer.SetPixel(int(x), int(y), c)
}

// DrawLine3D projects an object-space segment through ModelView and Proj,
// clips it at the near plane and draws it without depth testing.
func (r *Rasterizer) DrawLine3D(a, b math3d.Vec3, c Color) {
	ca := r.Proj.MulVec4(math3d.V4FromV3(r.ModelView.MulVec3(a), 1))
	cb := r.Proj.MulVec4(math3d.V4FromV3(r.ModelView.MulVec3(b), 1))
	switch {
	case ca.Z > 0 && cb.Z > 0:
		return
	case ca.Z > 0:
		ca = cb.Scale(ca.Z).Sub(ca.Scale(cb.Z))
	case cb.Z > 0:
		cb = ca.Scale(cb.Z).Sub(cb.Scale(ca.Z))
	}
	r.DrawLine(r.Buffer.Denormalize(ca.Homogenize2()), r.Buffer.Denormalize(cb.Homogenize2()), c)
}

// DrawBox draws the twelve edges of box.
func (r *Rasterizer) DrawBox(box AABB, c Color) {
	var corners [8]math3d.Vec3
	for i := range corners {
		corners[i] = math3d.V3(
			selectComponent(i&1 != 0, box.Max.X, box.Min.X),
			selectComponent(i&2 != 0, box.Max.Y, box.Min.Y),
			selectComponent(i&4 != 0, box.Max.Z, box.Min.Z),
		)
	}
	for i := range corners {
		for _, bit := range []int{1, 2, 4} {
			if i&bit == 0 {
				r.DrawLine3D(corners[i], corners[i|bit], c)
			}
		}
	}
}

// DrawAxes draws the object-space axes at the origin in red, green and blue.
func (r *Rasterizer) DrawAxes(length float64) {
	origin := math3d.Vec3{}
	r.DrawLine3D(origin, math3d.V3(length, 0, 0), ColorRed)
	r.DrawLine3D(origin, math3d.V3(0, length, 0), ColorGreen)
	r.DrawLine3D(origin, math3d.V3(0, 0, length), ColorBlue)
}

// DrawGrid draws a grid on the XZ plane at y=0.
func (r *Rasterizer) DrawGrid(size, step float64, c Color) {
	half := size / 2
	for x := -half; x <= half; x += step {
		r.DrawLine3D(math3d.V3(x, 0, -half), math3d.V3(x, 0, half), c)
	}
	for z := -half; z <= half; z += step {
		r.DrawLine3D(math3d.V3(-half, 0, z), math3d.V3(half, 0, z), c)
	}
}
