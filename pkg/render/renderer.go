package render

import (
	"github.com/taigrr/rtt/pkg/math3d"
	"github.com/taigrr/rtt/pkg/models"
	"github.com/taigrr/rtt/pkg/task"
)

// Pass selects the stages RenderCached binds.
type Pass int

const (
	PassFull    Pass = iota // lights, shadows, materials and textures
	PassShadow              // depth only
	PassCompact             // fixed three-direction lighting for previews
)

func (p Pass) String() string {
	switch p {
	case PassFull:
		return "full"
	case PassShadow:
		return "shadow"
	case PassCompact:
		return "compact"
	default:
		return "unknown"
	}
}

// Model is a mesh placed in the scene.
type Model struct {
	Mesh      *models.Mesh
	Transform math3d.Mat4 // object to world
	Color     math3d.Vec4 // multiplies the shaded color; zero means white
	Texture   *Texture    // sampled with repeat and bilinear filtering; may be nil
	Material  BRDF        // nil means Diffuse{1}
	Enhance   Enhancement // may be nil
}

// NewModel places mesh at transform with a white diffuse material.
func NewModel(mesh *models.Mesh, transform math3d.Mat4) Model {
	return Model{Mesh: mesh, Transform: transform, Color: White(), Material: Diffuse{Diffuse: 1}}
}

func (m *Model) material() BRDF {
	if m.Material == nil {
		return Diffuse{Diffuse: 1}
	}
	return m.Material
}

func (m *Model) color() math3d.Vec4 {
	if m.Color == (math3d.Vec4{}) {
		return White()
	}
	return m.Color
}

// Renderer draws a scene of models and lights through a camera. Set the
// exported fields, call InitCache whenever models or lights change, then
// RefreshCache and RenderCached for every frame.
//
// A renderer is driven by one goroutine at a time. A render running in the
// background is interrupted through Lock.
type Renderer struct {
	Rasterizer *Rasterizer
	Camera     *Camera
	Models     []Model
	Lights     []Light
	Shadows    []ShadowData // parallel to Lights; entries may be nil
	Cache      *SceneCache
	Lock       *task.Lock   // checked once per face; nil disables cancellation
	Vertex     VertexShader // nil means DefaultVertex
	Stats      CullingStats
}

// NewRenderer creates a renderer drawing into buf through cam.
func NewRenderer(buf *BufferSet, cam *Camera) *Renderer {
	return &Renderer{
		Rasterizer: NewRasterizer(buf),
		Camera:     cam,
		Cache:      &SceneCache{},
	}
}

func (r *Renderer) vertexShader() VertexShader {
	if r.Vertex == nil {
		return DefaultVertex{}
	}
	return r.Vertex
}

// InitCache sizes the scene cache and the shadow slots to the bound models
// and lights. Existing shadow maps of surviving light indices are kept.
func (r *Renderer) InitCache() {
	if r.Cache == nil {
		r.Cache = &SceneCache{}
	}
	r.initCache(r.Cache)
	if len(r.Shadows) != len(r.Lights) {
		shadows := make([]ShadowData, len(r.Lights))
		copy(shadows, r.Shadows)
		r.Shadows = shadows
	}
	Logger().Debug("scene cache sized", "models", len(r.Models), "lights", len(r.Lights))
}

func (r *Renderer) initCache(sc *SceneCache) {
	sc.Models = make([]ModelCache, len(r.Models))
	for i := range r.Models {
		m := &r.Models[i]
		mc := &sc.Models[i]
		mc.Pos = make([]VertexPosCache, len(m.Mesh.Points))
		mc.Normals = make([]VertexNormalCache, len(m.Mesh.Normals))
		if m.Enhance != nil {
			mc.Faces = m.Enhance.NewFaceCache(len(m.Mesh.Faces))
		}
	}
	sc.Lights = make([]LightCache, len(r.Lights))
}

// RefreshCache recomputes the scene cache for the camera's current view and
// projection and rebinds the baked shadows to it.
func (r *Renderer) RefreshCache() {
	view := r.Camera.ViewMatrix()
	r.refreshCache(r.Cache, r.Rasterizer, view, r.Camera.ProjectionMatrix())
	for _, s := range r.Shadows {
		if s != nil {
			s.Update(view)
		}
	}
}

// refreshCache fills sc for view and proj, completing vertices against
// rast's buffer.
func (r *Renderer) refreshCache(sc *SceneCache, rast *Rasterizer, view, proj math3d.Mat4) {
	sc.View, sc.Proj = view, proj
	vs := r.vertexShader()
	ctx := &DrawContext{Renderer: r, Cache: sc}
	for i := range r.Models {
		m := &r.Models[i]
		mc := &sc.Models[i]
		mesh := m.Mesh
		ctx.Model = i
		mc.ModelView = view.Mul(m.Transform)
		mc.Bounds = NewAABB(mesh.BoundsMin, mesh.BoundsMax).Transform(mc.ModelView)
		for j, p := range mesh.Points {
			pc := &mc.Pos[j]
			pc.Shaded = vs.ShadePosition(rast, mc.ModelView, p, ctx)
			pc.Complete(rast.Buffer, proj)
		}
		for j, n := range mesh.Normals {
			mc.Normals[j].Normal = vs.ShadeNormal(rast, mc.ModelView, n, ctx)
		}
		if mc.Faces != nil {
			for fi := range mesh.Faces {
				face := &mesh.Faces[fi]
				mc.Faces.Refresh(fi, mc.facePos(face), faceUV(mesh, face))
			}
		}
	}
	for i, l := range r.Lights {
		sc.Lights[i] = l.BuildCache(view)
	}
}

func (mc *ModelCache) facePos(face *models.Face) [3]*VertexPosCache {
	return [3]*VertexPosCache{
		&mc.Pos[face.VertexIDs[0]],
		&mc.Pos[face.VertexIDs[1]],
		&mc.Pos[face.VertexIDs[2]],
	}
}

func (mc *ModelCache) faceNormals(face *models.Face) [3]math3d.Vec3 {
	return [3]math3d.Vec3{
		mc.Normals[face.NormalIDs[0]].Normal,
		mc.Normals[face.NormalIDs[1]].Normal,
		mc.Normals[face.NormalIDs[2]].Normal,
	}
}

func faceUV(mesh *models.Mesh, face *models.Face) [3]math3d.Vec2 {
	var uv [3]math3d.Vec2
	if len(mesh.UVs) == 0 {
		return uv
	}
	for k, id := range face.UVIDs {
		uv[k] = mesh.UVs[id]
	}
	return uv
}

// RenderCached draws every model from the scene cache with the stages of
// pass. It returns false when the render was cancelled through Lock; the
// buffer then holds a partial frame.
func (r *Renderer) RenderCached(pass Pass) bool {
	r.Stats.Reset()
	return r.render(r.Cache, r.Rasterizer, pass, r.Lock, &r.Stats)
}

// RenderFrame clears the buffer to bg, refreshes the cache and renders
// pass.
func (r *Renderer) RenderFrame(pass Pass, bg Color) bool {
	r.Rasterizer.Buffer.Clear(bg)
	r.RefreshCache()
	return r.RenderCached(pass)
}

// RenderDepth renders the scene's depth as seen through view and proj into
// buf, which is cleared first. It uses its own cache and rasterizer and
// leaves the renderer's untouched.
func (r *Renderer) RenderDepth(buf *BufferSet, view, proj math3d.Mat4) {
	sc := &SceneCache{}
	r.initCache(sc)
	rast := &Rasterizer{Buffer: buf, ModelView: math3d.Identity(), Vertex: r.vertexShader()}
	r.refreshCache(sc, rast, view, proj)
	buf.ClearDepth(-1)
	var stats CullingStats
	r.render(sc, rast, PassShadow, nil, &stats)
}

func (r *Renderer) render(sc *SceneCache, rast *Rasterizer, pass Pass, lock *task.Lock, stats *CullingStats) bool {
	rast.Proj = sc.Proj
	switch pass {
	case PassShadow:
		rast.Test = shadowTest{}
		rast.Fragment = HeadlightFragment{}
	case PassCompact:
		rast.Test = modelTest{}
		rast.Fragment = compactFragment{}
	default:
		rast.Test = modelTest{}
		rast.Fragment = litFragment{}
	}

	frustum := NewFrustumFromMatrix(sc.Proj)
	ctx := &DrawContext{Renderer: r, Cache: sc}
	for mi := range r.Models {
		m := &r.Models[mi]
		mc := &sc.Models[mi]
		stats.Tested++
		if !frustum.IntersectAABB(mc.Bounds) {
			stats.Culled++
			continue
		}
		if frustum.ContainsAABB(mc.Bounds) {
			stats.Inside++
		}

		ctx.Model = mi
		ctx.Texture = nil
		if pass != PassShadow {
			ctx.Texture = m.Texture
		}
		c := m.color()
		colors := [3]math3d.Vec4{c, c, c}
		mesh := m.Mesh
		for fi := range mesh.Faces {
			if lock != nil && !lock.Proceed() {
				Logger().Debug("render cancelled", "pass", pass, "model", mi, "face", fi)
				return false
			}
			face := &mesh.Faces[fi]
			ctx.Face = fi
			stats.Faces++
			stats.Emitted += rast.DrawCachedTriangle(mc.facePos(face), mc.faceNormals(face), faceUV(mesh, face), colors, ctx)
		}
	}
	if lock != nil {
		lock.Release()
	}
	return true
}

// shadowTest writes depth and never shades.
type shadowTest struct{}

func (shadowTest) TestFragment(_ *Rasterizer, f *FragInfo, depth *float64, _ *uint8, _ *DrawContext) bool {
	depthTest(f, depth)
	return false
}

// modelTest runs the model's enhancement before the depth test.
type modelTest struct{}

func (modelTest) TestFragment(r *Rasterizer, f *FragInfo, depth *float64, _ *uint8, ctx *DrawContext) bool {
	if e := ctx.Renderer.Models[ctx.Model].Enhance; e != nil {
		if !e.BeforeTest(r, f, ctx.Cache.Models[ctx.Model].Faces, ctx.Face) {
			return false
		}
	}
	return depthTest(f, depth)
}

// litFragment sums every light that reaches the fragment and is not
// shadowed, through the model's material.
type litFragment struct{}

func (litFragment) ShadeFragment(_ *Rasterizer, f *FragInfo, ctx *DrawContext) Color {
	rd := ctx.Renderer
	m := &rd.Models[ctx.Model]
	brdf := m.material()
	pos := f.Position()
	n := f.Normal()
	out := pos.Normalize().Negate()

	var sum math3d.Vec3
	for i, l := range rd.Lights {
		in, radiance, ok := l.Illuminate(ctx.Cache.Lights[i], pos)
		if !ok {
			continue
		}
		if i < len(rd.Shadows) && rd.Shadows[i] != nil && rd.Shadows[i].InShadow(pos) {
			continue
		}
		sum = sum.Add(brdf.Reflect(in, out, n, radiance).Max(math3d.Vec3{}))
	}
	return finishColor(sum, f, ctx)
}

type compactLight struct {
	in     math3d.Vec3
	weight float64
}

// compactLights are fixed camera-space directions of travel.
var compactLights = [3]compactLight{
	{math3d.V3(0.5, -1, -0.6).Normalize(), 0.7},
	{math3d.V3(-0.7, -0.2, -0.4).Normalize(), 0.3},
	{math3d.V3(0, 1, 0), 0.15},
}

const compactAmbient = 0.05

// compactFragment lights with compactLights instead of the scene's lights
// and ignores shadows.
type compactFragment struct{}

func (compactFragment) ShadeFragment(_ *Rasterizer, f *FragInfo, ctx *DrawContext) Color {
	brdf := ctx.Renderer.Models[ctx.Model].material()
	n := f.Normal()
	out := f.Position().Normalize().Negate()
	sum := math3d.V3(compactAmbient, compactAmbient, compactAmbient)
	for _, cl := range compactLights {
		w := cl.weight
		sum = sum.Add(brdf.Reflect(cl.in, out, n, math3d.V3(w, w, w)).Max(math3d.Vec3{}))
	}
	return finishColor(sum, f, ctx)
}

func finishColor(lit math3d.Vec3, f *FragInfo, ctx *DrawContext) Color {
	c := math3d.V4FromV3(lit, 1)
	if ctx.Texture != nil {
		c = c.Mul(ctx.Texture.Sample(f.UV(), WrapRepeat, FilterBilinear))
	}
	return FromVec4(c.Mul(f.ColorMult()).Clamp(0, 1))
}
