package render

import "github.com/taigrr/rtt/pkg/math3d"

// VertexPosCache holds a vertex position after the vertex stage.
type VertexPosCache struct {
	Shaded math3d.Vec3 // camera space
	Clip   math3d.Vec4 // Shaded through the projection, before the divide
	Screen math3d.Vec2 // buffer coordinates; meaningful only when Clip.Z <= 0
}

// Complete projects Shaded and fills Clip and Screen for buf.
func (c *VertexPosCache) Complete(buf *BufferSet, proj math3d.Mat4) {
	c.Clip = proj.MulVec4(math3d.V4FromV3(c.Shaded, 1))
	c.Screen = buf.Denormalize(c.Clip.Homogenize2())
}

// VertexNormalCache holds a vertex normal after the vertex stage.
type VertexNormalCache struct {
	Normal math3d.Vec3
}

// ModelCache holds the per-frame transformed data of one model.
type ModelCache struct {
	Pos       []VertexPosCache    // indexed like Mesh.Points
	Normals   []VertexNormalCache // indexed like Mesh.Normals
	Faces     FaceCache           // nil when the model has no enhancement
	ModelView math3d.Mat4
	Bounds    AABB // camera-space bounds of the mesh
}

// SceneCache holds everything RefreshCache computes for one frame.
type SceneCache struct {
	Models []ModelCache
	Lights []LightCache
	View   math3d.Mat4
	Proj   math3d.Mat4
}
