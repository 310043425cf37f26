// Package models provides triangle meshes and the OBJ and glTF loaders
// that produce them.
package models

import (
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"github.com/taigrr/rtt/pkg/math3d"
)

// ErrUnsupportedFormat is returned by Load for unknown file extensions.
var ErrUnsupportedFormat = errors.New("models: unsupported model format")

// Mesh is an indexed triangle mesh. Positions, normals and texture
// coordinates are indexed separately per face corner.
type Mesh struct {
	Name      string
	Points    []math3d.Vec3
	Normals   []math3d.Vec3
	UVs       []math3d.Vec2
	Faces     []Face
	Materials []Material

	// Bounding box of the points faces reference (calculated on load)
	BoundsMin math3d.Vec3
	BoundsMax math3d.Vec3
}

// Face is a triangle. Each corner k uses Points[VertexIDs[k]],
// UVs[UVIDs[k]] and Normals[NormalIDs[k]]. Counter-clockwise corners face
// the viewer.
type Face struct {
	VertexIDs [3]int
	UVIDs     [3]int
	NormalIDs [3]int
	Material  int // index into Mesh.Materials, -1 for none
}

// Material is a PBR material from glTF.
type Material struct {
	Name       string
	BaseColor  [4]float64  // RGBA in 0-1 range
	Metallic   float64     // 0 = dielectric, 1 = metal
	Roughness  float64     // 0 = smooth, 1 = rough
	BaseMap    image.Image // Optional base color texture
	HasTexture bool
}

// NewMesh creates an empty mesh.
func NewMesh(name string) *Mesh {
	return &Mesh{Name: name}
}

// Load reads a mesh, choosing the loader by file extension.
func Load(path string) (*Mesh, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".obj":
		return LoadOBJ(path)
	case ".glb", ".gltf":
		return LoadGLB(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// CalculateBounds computes the axis-aligned bounding box of the points
// referenced by faces.
func (m *Mesh) CalculateBounds() {
	if len(m.Faces) == 0 {
		m.BoundsMin, m.BoundsMax = math3d.Vec3{}, math3d.Vec3{}
		return
	}
	first := m.Points[m.Faces[0].VertexIDs[0]]
	m.BoundsMin, m.BoundsMax = first, first
	for _, f := range m.Faces {
		for _, id := range f.VertexIDs {
			m.BoundsMin = m.BoundsMin.Min(m.Points[id])
			m.BoundsMax = m.BoundsMax.Max(m.Points[id])
		}
	}
}

// Center returns the center of the bounding box.
func (m *Mesh) Center() math3d.Vec3 {
	return m.BoundsMin.Add(m.BoundsMax).Scale(0.5)
}

// Size returns the dimensions of the bounding box.
func (m *Mesh) Size() math3d.Vec3 {
	return m.BoundsMax.Sub(m.BoundsMin)
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Faces)
}

// VertexCount returns the number of positions.
func (m *Mesh) VertexCount() int {
	return len(m.Points)
}

func (m *Mesh) faceNormal(f Face) math3d.Vec3 {
	v0 := m.Points[f.VertexIDs[0]]
	v1 := m.Points[f.VertexIDs[1]]
	v2 := m.Points[f.VertexIDs[2]]
	return v1.Sub(v0).Cross(v2.Sub(v0))
}

// CalculateNormals replaces the normals with one normal per face.
func (m *Mesh) CalculateNormals() {
	m.Normals = make([]math3d.Vec3, len(m.Faces))
	for i := range m.Faces {
		f := &m.Faces[i]
		m.Normals[i] = m.faceNormal(*f).Normalize()
		f.NormalIDs = [3]int{i, i, i}
	}
}

// GenerateNormals gives a mesh without usable normals smooth ones. It
// reports whether it did.
func (m *Mesh) GenerateNormals() bool {
	for _, n := range m.Normals {
		if n.LenSq() > 0 {
			return false
		}
	}
	m.CalculateSmoothNormals()
	return true
}

// FillMissingNormals gives every face corner that refers to a zero or
// out-of-range normal its face's flat normal. It reports whether any
// corner changed.
func (m *Mesh) FillMissingNormals() bool {
	changed := false
	for i := range m.Faces {
		f := &m.Faces[i]
		flat := -1
		for k, id := range f.NormalIDs {
			if id >= 0 && id < len(m.Normals) && m.Normals[id].LenSq() > 0 {
				continue
			}
			if flat < 0 {
				flat = len(m.Normals)
				m.Normals = append(m.Normals, m.faceNormal(*f).Normalize())
			}
			f.NormalIDs[k] = flat
			changed = true
		}
	}
	return changed
}

// CalculateSmoothNormals replaces the normals with one per point, the
// area-weighted average of the faces sharing it.
func (m *Mesh) CalculateSmoothNormals() {
	m.Normals = make([]math3d.Vec3, len(m.Points))
	for _, f := range m.Faces {
		n := m.faceNormal(f)
		for _, id := range f.VertexIDs {
			m.Normals[id] = m.Normals[id].Add(n)
		}
	}
	for i := range m.Normals {
		m.Normals[i] = m.Normals[i].Normalize()
	}
	for i := range m.Faces {
		m.Faces[i].NormalIDs = m.Faces[i].VertexIDs
	}
}

// Transform applies a transformation matrix to all points and normals.
func (m *Mesh) Transform(mat math3d.Mat4) {
	for i := range m.Points {
		m.Points[i] = mat.MulVec3(m.Points[i])
	}
	// rotation and uniform scale only; non-uniform scale skews normals
	for i := range m.Normals {
		m.Normals[i] = mat.MulVec3Dir(m.Normals[i]).Normalize()
	}
	m.CalculateBounds()
}

// Clone creates a deep copy of the mesh.
func (m *Mesh) Clone() *Mesh {
	c := *m
	c.Points = append([]math3d.Vec3(nil), m.Points...)
	c.Normals = append([]math3d.Vec3(nil), m.Normals...)
	c.UVs = append([]math3d.Vec2(nil), m.UVs...)
	c.Faces = append([]Face(nil), m.Faces...)
	c.Materials = append([]Material(nil), m.Materials...)
	return &c
}

// GetMaterial returns the material at index i, or nil if i is out of range.
func (m *Mesh) GetMaterial(i int) *Material {
	if i < 0 || i >= len(m.Materials) {
		return nil
	}
	return &m.Materials[i]
}

// PrimaryMaterial returns the material of the first face that has one.
func (m *Mesh) PrimaryMaterial() *Material {
	for _, f := range m.Faces {
		if mat := m.GetMaterial(f.Material); mat != nil {
			return mat
		}
	}
	return nil
}

// Validate checks that every face index is in range.
func (m *Mesh) Validate() error {
	for i, f := range m.Faces {
		for k := range 3 {
			if id := f.VertexIDs[k]; id < 0 || id >= len(m.Points) {
				return fmt.Errorf("face %d: vertex index %d out of range", i, id)
			}
			if id := f.NormalIDs[k]; id < 0 || id >= len(m.Normals) {
				return fmt.Errorf("face %d: normal index %d out of range", i, id)
			}
			if id := f.UVIDs[k]; len(m.UVs) > 0 && (id < 0 || id >= len(m.UVs)) {
				return fmt.Errorf("face %d: uv index %d out of range", i, id)
			}
		}
	}
	return nil
}
