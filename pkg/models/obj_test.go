package models

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/taigrr/rtt/pkg/math3d"
)

const cubeCornerOBJ = `# corner
v 0 0 0
v 1 0 0
v 0 1 0
vt 0 0
vt 1 0
vt 0 1
vn 0 0 1
f 1/1/1 2/2/1 3/3/1
`

func TestParseOBJ(t *testing.T) {
	m, err := ParseOBJ(strings.NewReader(cubeCornerOBJ))
	if err != nil {
		t.Fatalf("ParseOBJ() error = %v", err)
	}
	if len(m.Points) != 4 || len(m.UVs) != 4 || len(m.Normals) != 2 {
		t.Fatalf("counts = %d/%d/%d, want 4/4/2 with the zero entries", len(m.Points), len(m.UVs), len(m.Normals))
	}
	if len(m.Faces) != 1 {
		t.Fatalf("len(Faces) = %d, want 1", len(m.Faces))
	}
	f := m.Faces[0]
	if f.VertexIDs != [3]int{1, 2, 3} || f.UVIDs != [3]int{1, 2, 3} || f.NormalIDs != [3]int{1, 1, 1} {
		t.Errorf("face = %+v", f)
	}
	if m.BoundsMin != math3d.V3(0, 0, 0) || m.BoundsMax != math3d.V3(1, 1, 0) {
		t.Errorf("bounds = %v %v", m.BoundsMin, m.BoundsMax)
	}
	if err := m.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestParseOBJIndices(t *testing.T) {
	tests := []struct {
		name    string
		face    string
		wantV   [3]int
		wantUV  [3]int
		wantN   [3]int
		wantErr bool
	}{
		{name: "vertex only", face: "f 1 2 3", wantV: [3]int{1, 2, 3}, wantN: [3]int{1, 2, 3}},
		{name: "empty uv", face: "f 1//1 2//1 3//1", wantV: [3]int{1, 2, 3}, wantN: [3]int{1, 1, 1}},
		{name: "negative", face: "f -3/-3/-1 -2/-2/-1 -1/-1/-1", wantV: [3]int{1, 2, 3}, wantUV: [3]int{1, 2, 3}, wantN: [3]int{1, 1, 1}},
		{name: "blank before slash", face: "f 1 /1 2 /2 3 /3", wantV: [3]int{1, 2, 3}, wantUV: [3]int{1, 2, 3}, wantN: [3]int{1, 2, 3}},
		{name: "out of range", face: "f 1 2 9", wantErr: true},
		{name: "two corners", face: "f 1 2", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := "v 0 0 0\nv 1 0 0\nv 0 1 0\nvt 0 0\nvt 1 0\nvt 0 1\n"
			if strings.Contains(tt.face, "/") && !strings.Contains(tt.face, " /") {
				src += "vn 0 0 1\n"
			}
			m, err := ParseOBJ(strings.NewReader(src + tt.face + "\n"))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseOBJ() error = %v", err)
			}
			f := m.Faces[0]
			if f.VertexIDs != tt.wantV || f.UVIDs != tt.wantUV || f.NormalIDs != tt.wantN {
				t.Errorf("face = %+v", f)
			}
		})
	}
}

func TestParseOBJMixedNormals(t *testing.T) {
	src := "v 0 0 0\nv 1 0 0\nv 0 1 0\nv 0 0 1\nvn 0 0 1\n" +
		"f 1//1 2//1 3//1\n" +
		"f 1 3 4\n"
	m, err := ParseOBJ(strings.NewReader(src))
	if err != nil {
		t.Fatalf("ParseOBJ() error = %v", err)
	}
	if got := m.Faces[0].NormalIDs; got != [3]int{1, 1, 1} {
		t.Errorf("face 0 normals = %v, want the file's normal", got)
	}
	for k, id := range m.Faces[1].NormalIDs {
		if n := m.Normals[id]; n != math3d.V3(1, 0, 0) {
			t.Errorf("face 1 corner %d normal = %v, want the flat (1, 0, 0)", k, n)
		}
	}
	if err := m.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestParseOBJFan(t *testing.T) {
	src := "v 0 0 0\nv 1 0 0\nv 1 1 0\nv 0 1 0\nf 1 2 3 4\n"
	m, err := ParseOBJ(strings.NewReader(src))
	if err != nil {
		t.Fatalf("ParseOBJ() error = %v", err)
	}
	if len(m.Faces) != 2 {
		t.Fatalf("len(Faces) = %d, want 2", len(m.Faces))
	}
	if m.Faces[1].VertexIDs != [3]int{1, 3, 4} {
		t.Errorf("second fan triangle = %v", m.Faces[1].VertexIDs)
	}
	// generated smooth normals of a CCW quad in the XY plane point at +Z
	for _, id := range m.Faces[0].NormalIDs {
		if n := m.Normals[id]; math.Abs(n.Z-1) > 1e-9 {
			t.Errorf("normal %d = %v, want +Z", id, n)
		}
	}
}

func TestParseOBJBadNumber(t *testing.T) {
	if _, err := ParseOBJ(strings.NewReader("v 0 x 0\n")); err == nil {
		t.Error("expected error for malformed vertex")
	}
}

func TestLoadUnsupported(t *testing.T) {
	_, err := Load("scene.fbx")
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("Load() error = %v, want ErrUnsupportedFormat", err)
	}
}

func TestMeshCalculateNormals(t *testing.T) {
	m, err := ParseOBJ(strings.NewReader("v 0 0 0\nv 1 0 0\nv 0 0 -1\nf 1 2 3\n"))
	if err != nil {
		t.Fatal(err)
	}
	m.CalculateNormals()
	if len(m.Normals) != 1 {
		t.Fatalf("len(Normals) = %d, want 1", len(m.Normals))
	}
	if n := m.Normals[0]; math.Abs(n.Y-1) > 1e-9 {
		t.Errorf("flat normal = %v, want +Y", n)
	}
}

func TestMeshClone(t *testing.T) {
	m, err := ParseOBJ(strings.NewReader(cubeCornerOBJ))
	if err != nil {
		t.Fatal(err)
	}
	c := m.Clone()
	c.Points[1] = math3d.V3(5, 5, 5)
	if m.Points[1] == c.Points[1] {
		t.Error("Clone shares the point slice")
	}
	m.Transform(math3d.Translate(math3d.V3(0, 0, 2)))
	if m.BoundsMin.Z != 2 {
		t.Errorf("BoundsMin after Transform = %v", m.BoundsMin)
	}
}
