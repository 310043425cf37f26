package models

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"github.com/taigrr/rtt/pkg/math3d"
)

// GLTFLoader loads glTF and GLB files into Mesh format.
type GLTFLoader struct {
	// CalculateNormals generates normals for primitives without them.
	CalculateNormals bool
	// SmoothNormals selects per-point over per-face generated normals.
	SmoothNormals bool
}

// NewGLTFLoader creates a new glTF loader with default options.
func NewGLTFLoader() *GLTFLoader {
	return &GLTFLoader{
		CalculateNormals: true,
		SmoothNormals:    true,
	}
}

// LoadGLB loads a glTF or binary glTF (.glb) file with default options.
func LoadGLB(path string) (*Mesh, error) {
	return NewGLTFLoader().Load(path)
}

// Load loads every triangle primitive of every mesh in the document into
// one Mesh. Node transforms are not applied.
func (l *GLTFLoader) Load(path string) (*Mesh, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gltf: %w", err)
	}
	mesh, err := l.FromDocument(doc, filepath.Dir(path))
	if err != nil {
		return nil, err
	}
	mesh.Name = filepath.Base(path)
	return mesh, nil
}

// FromDocument converts a decoded document. dir resolves external image
// URIs.
func (l *GLTFLoader) FromDocument(doc *gltf.Document, dir string) (*Mesh, error) {
	mesh := NewMesh("")
	mesh.Materials = readMaterials(doc, dir)

	hasNormals := true
	for _, m := range doc.Meshes {
		ok, err := l.processMesh(doc, m, mesh)
		if err != nil {
			return nil, fmt.Errorf("process mesh %q: %w", m.Name, err)
		}
		hasNormals = hasNormals && ok
	}

	if l.CalculateNormals && !hasNormals {
		if l.SmoothNormals {
			mesh.CalculateSmoothNormals()
		} else {
			mesh.CalculateNormals()
		}
	}
	mesh.CalculateBounds()
	return mesh, nil
}

// processMesh appends the triangle primitives of m. It reports whether all
// of them carried normals.
func (l *GLTFLoader) processMesh(doc *gltf.Document, m *gltf.Mesh, mesh *Mesh) (bool, error) {
	hasNormals := true
	for _, prim := range m.Primitives {
		if prim.Mode != gltf.PrimitiveTriangles {
			continue
		}
		posIdx, ok := prim.Attributes[gltf.POSITION]
		if !ok {
			continue
		}
		positions, err := modeler.ReadPosition(doc, doc.Accessors[posIdx], nil)
		if err != nil {
			return false, fmt.Errorf("read positions: %w", err)
		}

		var normals [][3]float32
		if idx, ok := prim.Attributes[gltf.NORMAL]; ok {
			if normals, err = modeler.ReadNormal(doc, doc.Accessors[idx], nil); err != nil {
				return false, fmt.Errorf("read normals: %w", err)
			}
		}
		var uvs [][2]float32
		if idx, ok := prim.Attributes[gltf.TEXCOORD_0]; ok {
			if uvs, err = modeler.ReadTextureCoord(doc, doc.Accessors[idx], nil); err != nil {
				return false, fmt.Errorf("read uvs: %w", err)
			}
		}
		hasNormals = hasNormals && len(normals) == len(positions)

		// points, normals and uvs stay parallel so one index serves all three
		base := len(mesh.Points)
		for i, p := range positions {
			mesh.Points = append(mesh.Points, math3d.V3(float64(p[0]), float64(p[1]), float64(p[2])))
			var n math3d.Vec3
			if i < len(normals) {
				n = math3d.V3(float64(normals[i][0]), float64(normals[i][1]), float64(normals[i][2]))
			}
			mesh.Normals = append(mesh.Normals, n)
			var uv math3d.Vec2
			if i < len(uvs) {
				// glTF puts v=0 at the top of the image, textures here at the bottom
				uv = math3d.V2(float64(uvs[i][0]), 1-float64(uvs[i][1]))
			}
			mesh.UVs = append(mesh.UVs, uv)
		}

		material := -1
		if prim.Material != nil && *prim.Material < len(mesh.Materials) {
			material = *prim.Material
		}

		var indices []uint32
		if prim.Indices != nil {
			if indices, err = modeler.ReadIndices(doc, doc.Accessors[*prim.Indices], nil); err != nil {
				return false, fmt.Errorf("read indices: %w", err)
			}
		} else {
			indices = make([]uint32, len(positions))
			for i := range indices {
				indices[i] = uint32(i)
			}
		}
		for i := 0; i+2 < len(indices); i += 3 {
			ids := [3]int{base + int(indices[i]), base + int(indices[i+1]), base + int(indices[i+2])}
			mesh.Faces = append(mesh.Faces, Face{VertexIDs: ids, UVIDs: ids, NormalIDs: ids, Material: material})
		}
	}
	return hasNormals, nil
}

func readMaterials(doc *gltf.Document, dir string) []Material {
	mats := make([]Material, len(doc.Materials))
	for i, gm := range doc.Materials {
		m := Material{Name: gm.Name, BaseColor: [4]float64{1, 1, 1, 1}, Roughness: 1}
		if pbr := gm.PBRMetallicRoughness; pbr != nil {
			m.BaseColor = pbr.BaseColorFactorOrDefault()
			m.Metallic = pbr.MetallicFactorOrDefault()
			m.Roughness = pbr.RoughnessFactorOrDefault()
			if pbr.BaseColorTexture != nil {
				m.BaseMap = readTextureImage(doc, pbr.BaseColorTexture.Index, dir)
				m.HasTexture = m.BaseMap != nil
			}
		}
		mats[i] = m
	}
	return mats
}

// readTextureImage decodes the image behind texture index tex, embedded or
// external. It returns nil when the image is missing or undecodable.
func readTextureImage(doc *gltf.Document, tex int, dir string) image.Image {
	if tex < 0 || tex >= len(doc.Textures) || doc.Textures[tex].Source == nil {
		return nil
	}
	src := *doc.Textures[tex].Source
	if src >= len(doc.Images) {
		return nil
	}
	data := imageBytes(doc, doc.Images[src], dir)
	if len(data) == 0 {
		return nil
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil
	}
	return img
}

func imageBytes(doc *gltf.Document, img *gltf.Image, dir string) []byte {
	if img.BufferView != nil {
		bv := doc.BufferViews[*img.BufferView]
		buf := doc.Buffers[bv.Buffer]
		if buf.Data == nil || bv.ByteOffset+bv.ByteLength > len(buf.Data) {
			return nil
		}
		return buf.Data[bv.ByteOffset : bv.ByteOffset+bv.ByteLength]
	}
	if img.URI == "" || img.IsEmbeddedResource() {
		data, _ := img.MarshalData()
		return data
	}
	data, err := os.ReadFile(filepath.Join(dir, img.URI))
	if err != nil {
		return nil
	}
	return data
}

// LoadGLBWithTexture loads a GLB file and returns the mesh plus the base
// color texture of its first textured material, which may be nil.
func LoadGLBWithTexture(path string) (*Mesh, image.Image, error) {
	mesh, err := LoadGLB(path)
	if err != nil {
		return nil, nil, err
	}
	for _, m := range mesh.Materials {
		if m.HasTexture {
			return mesh, m.BaseMap, nil
		}
	}
	return mesh, nil, nil
}
