package scene

import (
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"github.com/taigrr/rtt/pkg/math3d"
	"github.com/taigrr/rtt/pkg/models"
	"github.com/taigrr/rtt/pkg/render"
)

// LoadModel loads the mesh at path and builds a viewing scene around it
// with FromMesh. texture may be nil; GLB files then use their embedded
// base color texture, if any.
func LoadModel(path string, texture *render.Texture) (*Scene, error) {
	var (
		mesh *models.Mesh
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".glb", ".gltf":
		var embeddedImg image.Image
		mesh, embeddedImg, err = models.LoadGLBWithTexture(path)
		if err == nil && texture == nil && embeddedImg != nil {
			texture = render.TextureFromImage(embeddedImg)
		}
	default:
		mesh, err = models.Load(path)
	}
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	return FromMesh(mesh, texture), nil
}

// FromMesh centers mesh on the origin, scales it into a 2-unit cube and
// stands it on a checkered floor under a key and a fill light, with shadows
// enabled. The mesh is modified in place.
func FromMesh(mesh *models.Mesh, texture *render.Texture) *Scene {
	fitMesh(mesh)

	obj := render.NewModel(mesh, math3d.Identity())
	obj.Texture = texture
	obj.Material = render.Phong{Diffuse: 0.9, Specular: 0.3, Shininess: 40}
	if mat := mesh.PrimaryMaterial(); mat != nil {
		obj.Material = gltfMaterial(mat)
		if texture == nil {
			c := mat.BaseColor
			obj.Color = math3d.V4(c[0], c[1], c[2], c[3])
		}
	}

	floor := render.NewModel(models.NewPlane(8, 4), math3d.Translate(math3d.V3(0, mesh.BoundsMin.Y, 0)))
	floor.Texture = render.NewCheckerTexture(64, 64, 8, render.RGB(200, 200, 200), render.RGB(100, 100, 100))

	cam := render.NewCamera()
	cam.SetPosition(math3d.V3(0, 1.5, 5))
	cam.LookAt(math3d.Vec3{})

	return &Scene{
		Camera: cam,
		Models: []render.Model{obj, floor},
		Lights: []render.Light{
			&render.PointLight{Position: math3d.V3(2.5, 4, 3), Color: math3d.V3(1, 0.95, 0.9), Strength: 30},
			&render.DirectionalLight{Direction: math3d.V3(1, -0.5, 1).Normalize(), Color: math3d.V3(0.6, 0.7, 1), Strength: 0.2},
		},
		Background:    render.RGB(30, 30, 40),
		Shadows:       true,
		ShadowOptions: render.DefaultShadowOptions(),
	}
}

// fitMesh centers mesh on the origin and scales it into a 2-unit cube.
func fitMesh(mesh *models.Mesh) {
	mesh.CalculateBounds()
	size := mesh.Size()
	maxDim := max(size.X, size.Y, size.Z)
	if maxDim <= 0 {
		return
	}
	scale := 2.0 / maxDim
	mesh.Transform(math3d.ScaleUniform(scale).Mul(math3d.Translate(mesh.Center().Negate())))
}

// gltfMaterial maps a metallic-roughness material onto GGX.
func gltfMaterial(mat *models.Material) render.BRDF {
	return render.GGX{
		Diffuse:   1 - mat.Metallic,
		Specular:  1,
		Roughness: max(mat.Roughness, 0.05),
		F0:        0.04 + 0.92*mat.Metallic,
	}
}
