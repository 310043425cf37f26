package models

import (
	"math"
	"testing"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

func TestLoadGLBInvalidPath(t *testing.T) {
	_, err := LoadGLB("/nonexistent/path.glb")
	if err == nil {
		t.Error("Expected error for nonexistent file")
	}
}

func TestGLTFLoaderCreation(t *testing.T) {
	loader := NewGLTFLoader()
	if loader == nil {
		t.Fatal("NewGLTFLoader returned nil")
	}
	if !loader.CalculateNormals {
		t.Error("CalculateNormals should default to true")
	}
	if !loader.SmoothNormals {
		t.Error("SmoothNormals should default to true")
	}
}

func quadDocument() *gltf.Document {
	doc := gltf.NewDocument()
	pos := modeler.WritePosition(doc, [][3]float32{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}})
	uv := modeler.WriteTextureCoord(doc, [][2]float32{{0, 1}, {1, 1}, {1, 0}, {0, 0}})
	idx := modeler.WriteIndices(doc, []uint16{0, 1, 2, 0, 2, 3})
	doc.Materials = []*gltf.Material{{
		Name: "red",
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorFactor: &[4]float64{1, 0, 0, 1},
		},
	}}
	doc.Meshes = []*gltf.Mesh{{
		Name: "quad",
		Primitives: []*gltf.Primitive{{
			Indices:  gltf.Index(idx),
			Material: gltf.Index(0),
			Attributes: map[string]int{
				gltf.POSITION:   pos,
				gltf.TEXCOORD_0: uv,
			},
		}},
	}}
	return doc
}

func TestFromDocument(t *testing.T) {
	mesh, err := NewGLTFLoader().FromDocument(quadDocument(), "")
	if err != nil {
		t.Fatalf("FromDocument() error = %v", err)
	}
	if mesh.TriangleCount() != 2 {
		t.Fatalf("TriangleCount() = %d, want 2", mesh.TriangleCount())
	}
	if mesh.VertexCount() != 4 {
		t.Errorf("VertexCount() = %d, want 4", mesh.VertexCount())
	}
	if err := mesh.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}

	// winding is kept: the quad faces +Z
	for i, n := range mesh.Normals {
		if math.Abs(n.Z-1) > 1e-9 {
			t.Errorf("normal %d = %v, want +Z", i, n)
		}
	}
	// v is flipped to a bottom-left origin
	if uv := mesh.UVs[0]; uv.X != 0 || uv.Y != 0 {
		t.Errorf("uv 0 = %v, want (0, 0)", uv)
	}
	if uv := mesh.UVs[2]; uv.X != 1 || uv.Y != 1 {
		t.Errorf("uv 2 = %v, want (1, 1)", uv)
	}

	mat := mesh.PrimaryMaterial()
	if mat == nil {
		t.Fatal("PrimaryMaterial() = nil")
	}
	if mat.BaseColor != [4]float64{1, 0, 0, 1} {
		t.Errorf("BaseColor = %v", mat.BaseColor)
	}
	if mat.HasTexture {
		t.Error("HasTexture set without a texture")
	}
	if mesh.Size().X != 1 || mesh.Size().Y != 1 || mesh.Size().Z != 0 {
		t.Errorf("Size() = %v", mesh.Size())
	}
}

func TestFromDocumentFlatNormals(t *testing.T) {
	loader := &GLTFLoader{CalculateNormals: true}
	mesh, err := loader.FromDocument(quadDocument(), "")
	if err != nil {
		t.Fatalf("FromDocument() error = %v", err)
	}
	if len(mesh.Normals) != mesh.TriangleCount() {
		t.Errorf("len(Normals) = %d, want one per face", len(mesh.Normals))
	}
}
