// Package render implements the rtt software rasterizer: buffer sets,
// textures, a scanline triangle rasterizer with a three-stage shader
// pipeline, and the cached scene renderer with shadow maps built on it.
package render

import (
	"fmt"
	"image"
	"image/png"
	"os"

	"github.com/taigrr/rtt/pkg/math3d"
)

// BufferSet owns the color, depth and stencil planes of one render target.
// Row 0 is the bottom of the image.
type BufferSet struct {
	Width   int
	Height  int
	Color   []Color
	Depth   []float64
	Stencil []uint8
}

// NewBufferSet allocates a buffer set with the given dimensions.
func NewBufferSet(width, height int) *BufferSet {
	n := width * height
	return &BufferSet{
		Width:   width,
		Height:  height,
		Color:   make([]Color, n),
		Depth:   make([]float64, n),
		Stencil: make([]uint8, n),
	}
}

// NewDepthBufferSet allocates a depth-only buffer set, as used for shadow
// maps. Its color plane is nil and must not be drawn with a fragment stage.
func NewDepthBufferSet(width, height int) *BufferSet {
	n := width * height
	return &BufferSet{
		Width:   width,
		Height:  height,
		Depth:   make([]float64, n),
		Stencil: make([]uint8, n),
	}
}

// Index returns the slice index of pixel (x, y).
func (b *BufferSet) Index(x, y int) int {
	if debugChecks && (x < 0 || x >= b.Width || y < 0 || y >= b.Height) {
		panic(fmt.Sprintf("render: pixel (%d, %d) out of %dx%d buffer", x, y, b.Width, b.Height))
	}
	return b.Width*y + x
}

// ClearColor fills the color plane.
func (b *BufferSet) ClearColor(c Color) {
	for i := range b.Color {
		b.Color[i] = c
	}
}

// ClearDepth fills the depth plane. Use -1 (the far plane) before a
// greater-wins depth test.
func (b *BufferSet) ClearDepth(v float64) {
	for i := range b.Depth {
		b.Depth[i] = v
	}
}

// ClearStencil fills the stencil plane.
func (b *BufferSet) ClearStencil(v uint8) {
	for i := range b.Stencil {
		b.Stencil[i] = v
	}
}

// Clear resets color, depth to the far plane and stencil to zero.
func (b *BufferSet) Clear(c Color) {
	if b.Color != nil {
		b.ClearColor(c)
	}
	b.ClearDepth(-1)
	b.ClearStencil(0)
}

// SetPixel sets a pixel at (x, y).
func (b *BufferSet) SetPixel(x, y int, c Color) {
	b.Color[b.Index(x, y)] = c
}

// Pixel returns the color at (x, y).
func (b *BufferSet) Pixel(x, y int) Color {
	return b.Color[b.Index(x, y)]
}

// DepthAt returns the depth at (x, y).
func (b *BufferSet) DepthAt(x, y int) float64 {
	return b.Depth[b.Index(x, y)]
}

// Denormalize maps NDC x and y in [-1, 1] to buffer coordinates.
func (b *BufferSet) Denormalize(v math3d.Vec2) math3d.Vec2 {
	return math3d.V2((v.X+1)*0.5*float64(b.Width), (v.Y+1)*0.5*float64(b.Height))
}

// NormalizePixel returns the NDC coordinates of the center of pixel (x, y).
func (b *BufferSet) NormalizePixel(x, y int) math3d.Vec2 {
	return math3d.V2(
		float64(2*x+1)/float64(b.Width)-1,
		float64(2*y+1)/float64(b.Height)-1,
	)
}

// ToImage converts the color plane to an image with row 0 at the top.
func (b *BufferSet) ToImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, b.Width, b.Height))
	for y := range b.Height {
		src := b.Color[(b.Height-1-y)*b.Width : (b.Height-y)*b.Width]
		for x, c := range src {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

// SavePNG saves the color plane as a PNG file.
func (b *BufferSet) SavePNG(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, b.ToImage()); err != nil {
		return fmt.Errorf("failed to encode png: %w", err)
	}
	return nil
}

// SavePPM saves the color plane as a plain (P3) PPM file.
func (b *BufferSet) SavePPM(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()
	return EncodePPM(f, b.ToImage())
}
