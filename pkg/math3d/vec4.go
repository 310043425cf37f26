package math3d

// Vec4 represents a 4D vector: a homogeneous 3D point, or an RGBA color
// with components in [0, 1].
type Vec4 struct {
	X, Y, Z, W float64
}

// V4 creates a new Vec4.
func V4(x, y, z, w float64) Vec4 {
	return Vec4{x, y, z, w}
}

// V4FromV3 creates a Vec4 from Vec3 with specified W.
func V4FromV3(v Vec3, w float64) Vec4 {
	return Vec4{v.X, v.Y, v.Z, w}
}

// Vec3 returns the Vec3 portion (ignoring W).
func (v Vec4) Vec3() Vec3 {
	return Vec3{v.X, v.Y, v.Z}
}

// Homogenize2 divides X and Y by W.
func (v Vec4) Homogenize2() Vec2 {
	return Vec2{v.X / v.W, v.Y / v.W}
}

// Add returns the vector sum.
//
//nolint:st1016 // a+b naming convention is clearer for vector operations
func (a Vec4) Add(b Vec4) Vec4 {
	return Vec4{a.X + b.X, a.Y + b.Y, a.Z + b.Z, a.W + b.W}
}

// Sub returns the vector difference.
//
//nolint:st1016 // a-b naming convention is clearer for vector operations
func (a Vec4) Sub(b Vec4) Vec4 {
	return Vec4{a.X - b.X, a.Y - b.Y, a.Z - b.Z, a.W - b.W}
}

// Mul returns the component-wise product, used to modulate colors.
//
//nolint:st1016 // a*b naming convention is clearer for vector operations
func (a Vec4) Mul(b Vec4) Vec4 {
	return Vec4{a.X * b.X, a.Y * b.Y, a.Z * b.Z, a.W * b.W}
}

// Scale returns the scalar product.
func (v Vec4) Scale(s float64) Vec4 {
	return Vec4{v.X * s, v.Y * s, v.Z * s, v.W * s}
}

// Clamp limits every component to [lo, hi].
func (v Vec4) Clamp(lo, hi float64) Vec4 {
	return Vec4{clamp(v.X, lo, hi), clamp(v.Y, lo, hi), clamp(v.Z, lo, hi), clamp(v.W, lo, hi)}
}

// MaxScalar raises every component to at least s.
func (v Vec4) MaxScalar(s float64) Vec4 {
	return Vec4{max(v.X, s), max(v.Y, s), max(v.Z, s), max(v.W, s)}
}

// Clamp limits v to [lo, hi]. NaN is returned unchanged.
func Clamp(v, lo, hi float64) float64 {
	return clamp(v, lo, hi)
}

func clamp(v, lo, hi float64) float64 {
	if v > lo {
		if v < hi {
			return v
		}
		return hi
	}
	if v <= lo {
		return lo
	}
	return v
}
