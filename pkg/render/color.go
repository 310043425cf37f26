package render

import (
	"image/color"

	"github.com/taigrr/rtt/pkg/math3d"
)

// Color is the 8-bit RGBA value stored in a buffer set.
type Color = color.RGBA

// Colors for convenience
var (
	ColorBlack = color.RGBA{0, 0, 0, 255}
	ColorWhite = color.RGBA{255, 255, 255, 255}
	ColorRed   = color.RGBA{255, 0, 0, 255}
	ColorGreen = color.RGBA{0, 255, 0, 255}
	ColorBlue  = color.RGBA{0, 0, 255, 255}
	ColorSky   = color.RGBA{135, 206, 235, 255}
)

// RGB creates an opaque color.
func RGB(r, g, b uint8) Color {
	return Color{R: r, G: g, B: b, A: 255}
}

// FromVec4 converts a color vector with components in [0, 1] to 8 bits,
// rounding by v*255+0.5. Callers clamp first.
func FromVec4(v math3d.Vec4) Color {
	return Color{
		R: uint8(v.X*255 + 0.5),
		G: uint8(v.Y*255 + 0.5),
		B: uint8(v.Z*255 + 0.5),
		A: uint8(v.W*255 + 0.5),
	}
}

// ToVec4 converts an 8-bit color to a vector with components in [0, 1].
func ToVec4(c Color) math3d.Vec4 {
	return math3d.V4(float64(c.R)/255, float64(c.G)/255, float64(c.B)/255, float64(c.A)/255)
}

// White is the identity color multiplier.
func White() math3d.Vec4 {
	return math3d.V4(1, 1, 1, 1)
}
