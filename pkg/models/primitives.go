package models

import "github.com/taigrr/rtt/pkg/math3d"

// NewCube returns an axis-aligned cube of edge size centered at the origin
// with one normal per side and the full texture on every side.
func NewCube(size float64) *Mesh {
	m := NewMesh("cube")
	m.UVs = []math3d.Vec2{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}}
	h := size / 2
	sides := [6][2]math3d.Vec3{
		{math3d.V3(0, 0, -1), math3d.V3(0, 1, 0)}, // +X
		{math3d.V3(0, 0, 1), math3d.V3(0, 1, 0)},  // -X
		{math3d.V3(1, 0, 0), math3d.V3(0, 0, -1)}, // +Y
		{math3d.V3(1, 0, 0), math3d.V3(0, 0, 1)},  // -Y
		{math3d.V3(1, 0, 0), math3d.V3(0, 1, 0)},  // +Z
		{math3d.V3(-1, 0, 0), math3d.V3(0, 1, 0)}, // -Z
	}
	for _, s := range sides {
		u, v := s[0].Scale(h), s[1].Scale(h)
		n := s[0].Cross(s[1])
		c := n.Scale(h)
		m.addQuad(
			[4]math3d.Vec3{
				c.Sub(u).Sub(v),
				c.Add(u).Sub(v),
				c.Add(u).Add(v),
				c.Sub(u).Add(v),
			},
			[4]int{0, 1, 2, 3},
			n,
		)
	}
	m.CalculateBounds()
	return m
}

// NewPlane returns a square of edge size on the XZ plane facing +Y, split
// into div×div quads. Texture coordinates span [0, 1].
func NewPlane(size float64, div int) *Mesh {
	div = max(div, 1)
	m := NewMesh("plane")
	m.Normals = []math3d.Vec3{math3d.Up()}
	h := size / 2
	step := size / float64(div)
	for j := 0; j <= div; j++ {
		for i := 0; i <= div; i++ {
			m.Points = append(m.Points, math3d.V3(-h+step*float64(i), 0, h-step*float64(j)))
			m.UVs = append(m.UVs, math3d.V2(float64(i)/float64(div), float64(j)/float64(div)))
		}
	}
	at := func(i, j int) int { return j*(div+1) + i }
	for j := range div {
		for i := range div {
			q := [4]int{at(i, j), at(i+1, j), at(i+1, j+1), at(i, j+1)}
			m.Faces = append(m.Faces,
				Face{VertexIDs: [3]int{q[0], q[1], q[2]}, UVIDs: [3]int{q[0], q[1], q[2]}, Material: -1},
				Face{VertexIDs: [3]int{q[0], q[2], q[3]}, UVIDs: [3]int{q[0], q[2], q[3]}, Material: -1},
			)
		}
	}
	m.CalculateBounds()
	return m
}

// addQuad appends the counter-clockwise quad p as two triangles sharing
// normal n. uv indexes m.UVs per corner.
func (m *Mesh) addQuad(p [4]math3d.Vec3, uv [4]int, n math3d.Vec3) {
	base := len(m.Points)
	m.Points = append(m.Points, p[:]...)
	ni := len(m.Normals)
	m.Normals = append(m.Normals, n)
	for _, t := range [2][3]int{{0, 1, 2}, {0, 2, 3}} {
		m.Faces = append(m.Faces, Face{
			VertexIDs: [3]int{base + t[0], base + t[1], base + t[2]},
			UVIDs:     [3]int{uv[t[0]], uv[t[1]], uv[t[2]]},
			NormalIDs: [3]int{ni, ni, ni},
			Material:  -1,
		})
	}
}
