package render

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
)

// ErrBadPPM is returned for malformed PPM headers or truncated pixel data.
var ErrBadPPM = errors.New("render: malformed ppm")

func init() {
	image.RegisterFormat("ppm", "P3", DecodePPM, decodePPMConfig)
	image.RegisterFormat("ppm", "P6", DecodePPM, decodePPMConfig)
}

// Limits on decoded PPM headers. maxPPMNumber bounds every header field
// and sample while parsing.
const (
	maxPPMNumber = 1 << 24
	maxPPMPixels = 1 << 26
)

type ppmHeader struct {
	binary     bool
	w, h, maxv int
}

func readPPMHeader(r *bufio.Reader) (ppmHeader, error) {
	var hdr ppmHeader
	magic := make([]byte, 2)
	if _, err := io.ReadFull(r, magic); err != nil {
		return hdr, fmt.Errorf("%w: %w", ErrBadPPM, err)
	}
	switch string(magic) {
	case "P3":
	case "P6":
		hdr.binary = true
	default:
		return hdr, fmt.Errorf("%w: magic %q", ErrBadPPM, magic)
	}
	for _, dst := range []*int{&hdr.w, &hdr.h, &hdr.maxv} {
		n, err := readPPMNumber(r)
		if err != nil {
			return hdr, err
		}
		*dst = n
	}
	if hdr.w <= 0 || hdr.h <= 0 || hdr.maxv <= 0 || hdr.maxv > 255 {
		return hdr, fmt.Errorf("%w: header %dx%d max %d", ErrBadPPM, hdr.w, hdr.h, hdr.maxv)
	}
	if hdr.w*hdr.h > maxPPMPixels {
		return hdr, fmt.Errorf("%w: %dx%d image too large", ErrBadPPM, hdr.w, hdr.h)
	}
	if hdr.binary {
		// exactly one whitespace byte separates the header from the raster
		if _, err := r.ReadByte(); err != nil {
			return hdr, fmt.Errorf("%w: %w", ErrBadPPM, err)
		}
	}
	return hdr, nil
}

// readPPMNumber skips whitespace and # comments, then reads a decimal of
// at most maxPPMNumber.
func readPPMNumber(r *bufio.Reader) (int, error) {
	var c byte
	var err error
	for {
		if c, err = r.ReadByte(); err != nil {
			return 0, fmt.Errorf("%w: %w", ErrBadPPM, err)
		}
		if c == '#' {
			if _, err = r.ReadString('\n'); err != nil {
				return 0, fmt.Errorf("%w: %w", ErrBadPPM, err)
			}
			continue
		}
		if c >= '0' && c <= '9' {
			break
		}
		if c != ' ' && c != '\t' && c != '\n' && c != '\r' {
			return 0, fmt.Errorf("%w: unexpected byte %q", ErrBadPPM, c)
		}
	}
	n := int(c - '0')
	for {
		c, err = r.ReadByte()
		if err == io.EOF {
			return n, nil
		}
		if err != nil {
			return 0, fmt.Errorf("%w: %w", ErrBadPPM, err)
		}
		if c < '0' || c > '9' {
			return n, r.UnreadByte()
		}
		n = n*10 + int(c-'0')
		if n > maxPPMNumber {
			return 0, fmt.Errorf("%w: number too large", ErrBadPPM)
		}
	}
}

// DecodePPM decodes a P3 or P6 image with a maximum value up to 255.
func DecodePPM(r io.Reader) (image.Image, error) {
	br := bufio.NewReader(r)
	hdr, err := readPPMHeader(br)
	if err != nil {
		return nil, err
	}
	img := image.NewRGBA(image.Rect(0, 0, hdr.w, hdr.h))
	var ch [3]int
	var rgb [3]byte
	for y := range hdr.h {
		for x := range hdr.w {
			if hdr.binary {
				if _, err := io.ReadFull(br, rgb[:]); err != nil {
					return nil, fmt.Errorf("%w: %w", ErrBadPPM, err)
				}
				for i, v := range rgb {
					ch[i] = int(v)
				}
			} else {
				for i := range ch {
					if ch[i], err = readPPMNumber(br); err != nil {
						return nil, err
					}
				}
			}
			var px [3]uint8
			for i, v := range ch {
				if v > hdr.maxv {
					return nil, fmt.Errorf("%w: sample %d above max %d at (%d, %d)", ErrBadPPM, v, hdr.maxv, x, y)
				}
				px[i] = uint8(255 * v / hdr.maxv)
			}
			img.SetRGBA(x, y, color.RGBA{px[0], px[1], px[2], 255})
		}
	}
	return img, nil
}

func decodePPMConfig(r io.Reader) (image.Config, error) {
	hdr, err := readPPMHeader(bufio.NewReader(r))
	if err != nil {
		return image.Config{}, err
	}
	return image.Config{ColorModel: color.RGBAModel, Width: hdr.w, Height: hdr.h}, nil
}

// EncodePPM writes img as a plain (P3) PPM, top row first.
func EncodePPM(w io.Writer, img image.Image) error {
	bw := bufio.NewWriter(w)
	b := img.Bounds()
	fmt.Fprintf(bw, "P3\n%d %d\n255\n", b.Dx(), b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)
			fmt.Fprintf(bw, "%d %d %d \t", c.R, c.G, c.B)
		}
		bw.WriteByte('\n')
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write ppm: %w", err)
	}
	return nil
}
