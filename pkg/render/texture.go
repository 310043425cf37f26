package render

import (
	"fmt"
	"image"
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"math"
	"os"

	_ "golang.org/x/image/bmp"  // Register BMP decoder
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff" // Register TIFF decoder

	"github.com/taigrr/rtt/pkg/math3d"
)

// WrapMode determines how texel coordinates outside the texture are handled.
type WrapMode int

const (
	WrapRepeat WrapMode = iota // Tile the texture
	WrapMirror                 // Tile, mirroring every other copy
	WrapClamp                  // Clamp to edge
)

// FilterMode determines how texture sampling is performed.
type FilterMode int

const (
	FilterNearest  FilterMode = iota // Nearest-neighbor (pixelated)
	FilterBilinear                   // Bilinear interpolation (smooth)
)

// Texture holds a 2D image for texture mapping. Row 0 is the bottom row,
// so v=0 samples the bottom of the source image.
//
// Sampling reads a float copy of Pixels; call Refresh after writing Pixels.
type Texture struct {
	Width  int
	Height int
	Pixels []Color

	texels []math3d.Vec4
}

// NewTexture creates an empty texture with the given dimensions.
func NewTexture(width, height int) *Texture {
	t := &Texture{
		Width:  width,
		Height: height,
		Pixels: make([]Color, width*height),
	}
	t.Refresh()
	return t
}

// LoadTexture loads a texture from a PNG, JPEG, BMP, TIFF or PPM file.
func LoadTexture(path string) (*Texture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open texture: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", path, err)
	}
	return TextureFromImage(img), nil
}

// TextureFromImage creates a texture from an image.Image, flipping it so
// the top image row becomes v=1.
func TextureFromImage(img image.Image) *Texture {
	bounds := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Copy(rgba, image.Point{}, img, bounds, draw.Src, nil)

	tex := NewTexture(bounds.Dx(), bounds.Dy())
	for y := range tex.Height {
		row := tex.Height - 1 - y
		for x := range tex.Width {
			tex.Pixels[row*tex.Width+x] = rgba.RGBAAt(x, y)
		}
	}
	tex.Refresh()
	return tex
}

// TextureFromBuffer creates a texture that shares the color plane of buf.
// Call Refresh after each render into buf.
func TextureFromBuffer(buf *BufferSet) *Texture {
	t := &Texture{Width: buf.Width, Height: buf.Height, Pixels: buf.Color}
	t.Refresh()
	return t
}

// NewCheckerTexture creates a procedural checkerboard texture.
func NewCheckerTexture(width, height, checkSize int, c1, c2 Color) *Texture {
	tex := NewTexture(width, height)
	for y := range height {
		for x := range width {
			if (x/checkSize+y/checkSize)%2 == 0 {
				tex.Pixels[y*width+x] = c1
			} else {
				tex.Pixels[y*width+x] = c2
			}
		}
	}
	tex.Refresh()
	return tex
}

// Refresh rebuilds the float texel cache from Pixels.
func (t *Texture) Refresh() {
	if len(t.texels) != len(t.Pixels) {
		t.texels = make([]math3d.Vec4, len(t.Pixels))
	}
	for i, c := range t.Pixels {
		t.texels[i] = ToVec4(c)
	}
}

// Fetch returns the texel at (x, y) as a color vector.
func (t *Texture) Fetch(x, y int) math3d.Vec4 {
	if debugChecks && (x < 0 || x >= t.Width || y < 0 || y >= t.Height) {
		panic(fmt.Sprintf("render: texel (%d, %d) out of %dx%d texture", x, y, t.Width, t.Height))
	}
	return t.texels[t.Width*y+x]
}

// Sample samples the texture at uv, where [0,1]² covers the texture once.
func (t *Texture) Sample(uv math3d.Vec2, wrap WrapMode, filter FilterMode) math3d.Vec4 {
	w, h := float64(t.Width), float64(t.Height)
	if filter == FilterNearest {
		x := wrapCoord(int(math.Floor(uv.X*w)), t.Width, wrap)
		y := wrapCoord(int(math.Floor(uv.Y*h)), t.Height, wrap)
		return t.Fetch(x, y)
	}

	xf, yf := uv.X*w-0.5, uv.Y*h-0.5
	fx, fy := math.Floor(xf), math.Floor(yf)
	xf -= fx
	yf -= fy
	x0, y0 := int(fx), int(fy)
	x1 := wrapCoord(x0+1, t.Width, wrap)
	y1 := wrapCoord(y0+1, t.Height, wrap)
	x0 = wrapCoord(x0, t.Width, wrap)
	y0 = wrapCoord(y0, t.Height, wrap)

	v0, v1 := t.Fetch(x0, y0), t.Fetch(x1, y0)
	v2, v3 := t.Fetch(x0, y1), t.Fetch(x1, y1)
	return v0.Add(v1.Sub(v0).Scale((1 - yf) * xf)).Add(v2.Sub(v0).Add(v3.Sub(v2).Scale(xf)).Scale(yf))
}

// GradX estimates the change of the texture per texel along +x at the
// texel nearest to uv, by central difference with repeat wrapping.
func (t *Texture) GradX(uv math3d.Vec2) math3d.Vec4 {
	x, y := t.nearestTexel(uv)
	l := t.Fetch(wrapCoord(x-1, t.Width, WrapRepeat), y)
	r := t.Fetch(wrapCoord(x+1, t.Width, WrapRepeat), y)
	return r.Sub(l).Scale(0.5)
}

// GradY is GradX along +y.
func (t *Texture) GradY(uv math3d.Vec2) math3d.Vec4 {
	x, y := t.nearestTexel(uv)
	d := t.Fetch(x, wrapCoord(y-1, t.Height, WrapRepeat))
	u := t.Fetch(x, wrapCoord(y+1, t.Height, WrapRepeat))
	return u.Sub(d).Scale(0.5)
}

func (t *Texture) nearestTexel(uv math3d.Vec2) (int, int) {
	return wrapCoord(int(math.Floor(uv.X*float64(t.Width))), t.Width, WrapRepeat),
		wrapCoord(int(math.Floor(uv.Y*float64(t.Height))), t.Height, WrapRepeat)
}

// wrapCoord maps a texel coordinate into [0, size).
func wrapCoord(v, size int, mode WrapMode) int {
	switch mode {
	case WrapRepeat:
		v %= size
		if v < 0 {
			v += size
		}
	case WrapMirror:
		dm := size * 2
		v %= dm
		if v < 0 {
			v += dm
		}
		if v >= size {
			v = dm - v - 1
		}
	default:
		if v < 0 {
			v = 0
		} else if v >= size {
			v = size - 1
		}
	}
	return v
}
