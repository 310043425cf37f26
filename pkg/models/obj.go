package models

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/taigrr/rtt/pkg/math3d"
)

// LoadOBJ reads a Wavefront OBJ file.
func LoadOBJ(path string) (*Mesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open obj: %w", err)
	}
	defer f.Close()

	m, err := ParseOBJ(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	m.Name = filepath.Base(path)
	return m, nil
}

// ParseOBJ reads the v, vt, vn and f statements of an OBJ stream and
// ignores the rest. Polygons are split into triangle fans.
//
// Index 0 of Points, UVs and Normals is a zero entry, so the 1-based OBJ
// indices are used as is and a missing index refers to the zero entry.
// Negative indices count back from the last element read so far. Meshes
// without normals get smooth ones; corners without a normal in a mesh
// that has some get their face's flat normal.
func ParseOBJ(r io.Reader) (*Mesh, error) {
	m := &Mesh{
		Points:  []math3d.Vec3{{}},
		Normals: []math3d.Vec3{{}},
		UVs:     []math3d.Vec2{{}},
	}

	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(joinSlashes(sc.Text()))
		if len(fields) == 0 {
			continue
		}
		var err error
		switch fields[0] {
		case "v":
			var v [3]float64
			if err = parseFloats(fields[1:], v[:]); err == nil {
				m.Points = append(m.Points, math3d.V3(v[0], v[1], v[2]))
			}
		case "vt":
			var v [2]float64
			if err = parseFloats(fields[1:], v[:]); err == nil {
				m.UVs = append(m.UVs, math3d.V2(v[0], v[1]))
			}
		case "vn":
			var v [3]float64
			if err = parseFloats(fields[1:], v[:]); err == nil {
				m.Normals = append(m.Normals, math3d.V3(v[0], v[1], v[2]))
			}
		case "f":
			err = m.parseFace(fields[1:])
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	if !m.GenerateNormals() {
		m.FillMissingNormals()
	}
	m.CalculateBounds()
	return m, nil
}

// joinSlashes removes blanks before slashes so "1 /2" reads as "1/2".
func joinSlashes(s string) string {
	if !strings.Contains(s, "/") {
		return s
	}
	var b strings.Builder
	for _, c := range s {
		if c == '/' {
			trimmed := strings.TrimRight(b.String(), " \t")
			b.Reset()
			b.WriteString(trimmed)
		}
		b.WriteRune(c)
	}
	return b.String()
}

func parseFloats(fields []string, dst []float64) error {
	if len(fields) < len(dst) {
		return fmt.Errorf("want %d values, got %d", len(dst), len(fields))
	}
	for i := range dst {
		v, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return err
		}
		dst[i] = v
	}
	return nil
}

type objCorner struct {
	v, uv, n int
}

func (m *Mesh) parseFace(fields []string) error {
	if len(fields) < 3 {
		return fmt.Errorf("face with %d corners", len(fields))
	}
	corners := make([]objCorner, len(fields))
	for i, f := range fields {
		parts := strings.SplitN(f, "/", 3)
		ids := [3]*int{&corners[i].v, &corners[i].uv, &corners[i].n}
		counts := [3]int{len(m.Points), len(m.UVs), len(m.Normals)}
		for k, p := range parts {
			id, err := resolveIndex(p, counts[k])
			if err != nil {
				return err
			}
			*ids[k] = id
		}
	}
	for i := 1; i+1 < len(corners); i++ {
		a, b, c := corners[0], corners[i], corners[i+1]
		m.Faces = append(m.Faces, Face{
			VertexIDs: [3]int{a.v, b.v, c.v},
			UVIDs:     [3]int{a.uv, b.uv, c.uv},
			NormalIDs: [3]int{a.n, b.n, c.n},
			Material:  -1,
		})
	}
	return nil
}

// resolveIndex maps an OBJ index to a slice index given the slice length
// count, which includes the zero entry.
func resolveIndex(s string, count int) (int, error) {
	if s == "" {
		return 0, nil
	}
	id, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if id < 0 {
		id += count
	}
	if id < 0 || id >= count {
		return 0, fmt.Errorf("index %s out of range", s)
	}
	return id, nil
}
