// Package scene builds renderer scenes from Lua scripts.
//
// A script describes the scene by calling constructor functions with
// tables:
//
//	camera{position = {0, 1, 4}, target = {0, 0, 0}, fov = 60}
//	model{shape = "cube", position = {0, 0.5, 0}, material = {type = "phong", shininess = 40}}
//	model{mesh = "bunny.obj", texture = "bunny.png", parallax = {height = "h.png", depth = 0.05}}
//	point_light{position = {2, 3, 2}, color = {1, 1, 1}, strength = 12}
//	spot_light{position = {0, 4, 0}, target = {0, 0, 0}, inner = 20, outer = 30}
//	directional_light{direction = {-1, -1, -1}, strength = 0.8}
//	background{0.1, 0.1, 0.15}
//	shadows{size = 512, bias = 0.001}
//
// Angles are in degrees, colors in [0, 1] and relative paths resolve
// against the script's directory.
package scene

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"

	lua "github.com/yuin/gopher-lua"

	"github.com/taigrr/rtt/pkg/math3d"
	"github.com/taigrr/rtt/pkg/models"
	"github.com/taigrr/rtt/pkg/render"
)

// ErrNoCamera is returned when a script never calls camera.
var ErrNoCamera = errors.New("scene: script defines no camera")

// Scene is the result of running a scene script.
type Scene struct {
	Camera     *render.Camera
	Models     []render.Model
	Lights     []render.Light
	Background render.Color

	// Shadows requests shadow maps baked with ShadowOptions.
	Shadows       bool
	ShadowOptions render.ShadowOptions
}

// Apply binds the scene to r, sizes its cache and bakes shadows when
// requested. The camera's aspect is matched to the renderer's buffer.
func (s *Scene) Apply(r *render.Renderer) {
	buf := r.Rasterizer.Buffer
	s.Camera.SetAspect(float64(buf.Height) / float64(buf.Width))
	r.Camera = s.Camera
	r.Models = s.Models
	r.Lights = s.Lights
	r.ClearShadows()
	r.InitCache()
	if s.Shadows {
		r.BakeShadows(s.ShadowOptions)
	}
}

// Load runs the scene script at path.
func Load(path string) (*Scene, error) {
	b := newBuilder(filepath.Dir(path))
	defer b.L.Close()
	if err := b.L.DoFile(path); err != nil {
		return nil, fmt.Errorf("run scene %s: %w", path, err)
	}
	return b.finish()
}

// Parse runs the scene script src. dir resolves relative asset paths.
func Parse(src, dir string) (*Scene, error) {
	b := newBuilder(dir)
	defer b.L.Close()
	if err := b.L.DoString(src); err != nil {
		return nil, fmt.Errorf("run scene: %w", err)
	}
	return b.finish()
}

type builder struct {
	L     *lua.LState
	dir   string
	scene Scene

	meshes   map[string]*models.Mesh
	textures map[string]*render.Texture
}

func newBuilder(dir string) *builder {
	b := &builder{
		L:        lua.NewState(lua.Options{SkipOpenLibs: true}),
		dir:      dir,
		meshes:   make(map[string]*models.Mesh),
		textures: make(map[string]*render.Texture),
	}
	b.scene.Background = render.ColorSky
	b.scene.ShadowOptions = render.DefaultShadowOptions()

	// no io, os, require or file loading: scripts only describe scenes
	for _, lib := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		b.L.Push(b.L.NewFunction(lib.fn))
		b.L.Push(lua.LString(lib.name))
		b.L.Call(1, 0)
	}
	for _, name := range []string{"dofile", "loadfile", "require", "module"} {
		b.L.SetGlobal(name, lua.LNil)
	}

	for name, fn := range map[string]lua.LGFunction{
		"camera":            b.camera,
		"model":             b.model,
		"point_light":       b.pointLight,
		"spot_light":        b.spotLight,
		"directional_light": b.directionalLight,
		"background":        b.background,
		"shadows":           b.shadows,
	} {
		b.L.SetGlobal(name, b.L.NewFunction(fn))
	}
	return b
}

func (b *builder) finish() (*Scene, error) {
	if b.scene.Camera == nil {
		return nil, ErrNoCamera
	}
	s := b.scene
	return &s, nil
}

func (b *builder) path(p string) string {
	if filepath.IsAbs(p) || b.dir == "" {
		return p
	}
	return filepath.Join(b.dir, p)
}

func (b *builder) camera(L *lua.LState) int {
	t := L.CheckTable(1)
	cam := render.NewCamera()
	cam.SetPosition(b.vec3(t, "position", cam.Position))
	if fov := t.RawGetString("fov"); fov != lua.LNil {
		cam.SetFOV(degrees(b.number(t, "fov", 60)))
	}
	near := b.number(t, "near", cam.Near)
	far := b.number(t, "far", cam.Far)
	cam.SetClipPlanes(near, far)
	if target := t.RawGetString("target"); target != lua.LNil {
		cam.LookAt(b.vec3(t, "target", math3d.Vec3{}))
	} else {
		cam.SetRotation(degrees(b.number(t, "pitch", 0)), degrees(b.number(t, "yaw", 0)))
	}
	b.scene.Camera = cam
	return 0
}

func (b *builder) model(L *lua.LState) int {
	t := L.CheckTable(1)
	mesh := b.mesh(t)
	m := render.NewModel(mesh, b.transform(t))
	m.Color = b.color(t, "color", math3d.V4(1, 1, 1, 1))

	if tex := t.RawGetString("texture"); tex != lua.LNil {
		m.Texture = b.texture(lua.LVAsString(tex))
	} else if checker, ok := t.RawGetString("checker").(*lua.LTable); ok {
		size := int(b.number(checker, "size", 8))
		c1 := render.FromVec4(b.color(checker, "a", math3d.V4(1, 1, 1, 1)))
		c2 := render.FromVec4(b.color(checker, "b", math3d.V4(0.2, 0.2, 0.2, 1)))
		m.Texture = render.NewCheckerTexture(size*8, size*8, size, c1, c2)
	} else if mat := mesh.PrimaryMaterial(); mat != nil {
		c := mat.BaseColor
		m.Color = m.Color.Mul(math3d.V4(c[0], c[1], c[2], c[3]))
		if mat.HasTexture {
			m.Texture = render.TextureFromImage(mat.BaseMap)
		}
	}

	m.Material = b.material(t, mesh)
	if p, ok := t.RawGetString("parallax").(*lua.LTable); ok {
		m.Enhance = &render.Parallax{
			Height: b.texture(b.str(p, "height", "")),
			Depth:  b.number(p, "depth", 0.05),
			Steps:  int(b.number(p, "steps", render.DefaultParallaxSteps)),
		}
	}
	b.scene.Models = append(b.scene.Models, m)
	return 0
}

func (b *builder) mesh(t *lua.LTable) *models.Mesh {
	if shape := t.RawGetString("shape"); shape != lua.LNil {
		size := b.number(t, "size", 1)
		switch s := lua.LVAsString(shape); s {
		case "cube":
			return models.NewCube(size)
		case "plane":
			return models.NewPlane(size, int(b.number(t, "divisions", 8)))
		default:
			b.L.RaiseError("model: unknown shape %q", s)
		}
	}
	file := b.str(t, "mesh", "")
	if file == "" {
		b.L.RaiseError("model: needs mesh or shape")
	}
	p := b.path(file)
	if m, ok := b.meshes[p]; ok {
		return m
	}
	m, err := models.Load(p)
	if err != nil {
		b.L.RaiseError("model: %v", err)
	}
	b.meshes[p] = m
	return m
}

func (b *builder) texture(file string) *render.Texture {
	p := b.path(file)
	if tex, ok := b.textures[p]; ok {
		return tex
	}
	tex, err := render.LoadTexture(p)
	if err != nil {
		b.L.RaiseError("texture: %v", err)
	}
	b.textures[p] = tex
	return tex
}

// transform composes translate * rotate(z, y, x) * scale.
func (b *builder) transform(t *lua.LTable) math3d.Mat4 {
	pos := b.vec3(t, "position", math3d.Vec3{})
	rot := b.vec3(t, "rotation", math3d.Vec3{})
	var scale math3d.Vec3
	if s, ok := t.RawGetString("scale").(lua.LNumber); ok {
		scale = math3d.V3(float64(s), float64(s), float64(s))
	} else {
		scale = b.vec3(t, "scale", math3d.V3(1, 1, 1))
	}
	return math3d.Translate(pos).
		Mul(math3d.RotateZ(degrees(rot.Z))).
		Mul(math3d.RotateY(degrees(rot.Y))).
		Mul(math3d.RotateX(degrees(rot.X))).
		Mul(math3d.Scale(scale))
}

func (b *builder) material(t *lua.LTable, mesh *models.Mesh) render.BRDF {
	v := t.RawGetString("material")
	var mt *lua.LTable
	kind := ""
	switch v := v.(type) {
	case lua.LString:
		kind = string(v)
		mt = b.L.NewTable()
	case *lua.LTable:
		mt = v
		kind = b.str(v, "type", "diffuse")
	default:
		if mat := mesh.PrimaryMaterial(); mat != nil {
			return gltfMaterial(mat)
		}
		return render.Diffuse{Diffuse: 1}
	}
	switch kind {
	case "diffuse":
		return render.Diffuse{Diffuse: b.number(mt, "diffuse", 1)}
	case "phong":
		return render.Phong{
			Diffuse:   b.number(mt, "diffuse", 1),
			Specular:  b.number(mt, "specular", 0.5),
			Shininess: b.number(mt, "shininess", 50),
		}
	case "ggx":
		return render.GGX{
			Diffuse:   b.number(mt, "diffuse", 1),
			Specular:  b.number(mt, "specular", 1),
			Roughness: b.number(mt, "roughness", 0.5),
			F0:        b.number(mt, "f0", 0.04),
		}
	default:
		b.L.RaiseError("material: unknown type %q", kind)
		return nil
	}
}

func (b *builder) pointLight(L *lua.LState) int {
	t := L.CheckTable(1)
	b.scene.Lights = append(b.scene.Lights, &render.PointLight{
		Position: b.vec3(t, "position", math3d.V3(0, 5, 0)),
		Color:    b.vec3(t, "color", math3d.V3(1, 1, 1)),
		Strength: b.number(t, "strength", 10),
	})
	return 0
}

func (b *builder) spotLight(L *lua.LState) int {
	t := L.CheckTable(1)
	pos := b.vec3(t, "position", math3d.V3(0, 5, 0))
	dir := b.vec3(t, "direction", math3d.V3(0, -1, 0))
	if target := t.RawGetString("target"); target != lua.LNil {
		dir = b.vec3(t, "target", math3d.Vec3{}).Sub(pos)
	}
	outer := degrees(b.number(t, "outer", 30))
	inner := min(degrees(b.number(t, "inner", 25)), outer)
	b.scene.Lights = append(b.scene.Lights, &render.SpotLight{
		Position:  pos,
		Direction: dir.Normalize(),
		Color:     b.vec3(t, "color", math3d.V3(1, 1, 1)),
		Strength:  b.number(t, "strength", 10),
		Inner:     inner,
		Outer:     outer,
	})
	return 0
}

func (b *builder) directionalLight(L *lua.LState) int {
	t := L.CheckTable(1)
	b.scene.Lights = append(b.scene.Lights, &render.DirectionalLight{
		Direction: b.vec3(t, "direction", math3d.V3(0, -1, 0)).Normalize(),
		Color:     b.vec3(t, "color", math3d.V3(1, 1, 1)),
		Strength:  b.number(t, "strength", 1),
	})
	return 0
}

func (b *builder) background(L *lua.LState) int {
	t := L.CheckTable(1)
	c := math3d.V4(1, 1, 1, 1)
	for i := range 3 {
		n, ok := t.RawGetInt(i + 1).(lua.LNumber)
		if !ok {
			L.ArgError(1, "background needs three numbers")
		}
		switch i {
		case 0:
			c.X = float64(n)
		case 1:
			c.Y = float64(n)
		case 2:
			c.Z = float64(n)
		}
	}
	b.scene.Background = render.FromVec4(c.Clamp(0, 1))
	return 0
}

func (b *builder) shadows(L *lua.LState) int {
	opts := render.DefaultShadowOptions()
	if t, ok := L.Get(1).(*lua.LTable); ok {
		opts.Size = int(b.number(t, "size", float64(opts.Size)))
		opts.Near = b.number(t, "near", opts.Near)
		opts.Far = b.number(t, "far", opts.Far)
		opts.Tolerance = b.number(t, "bias", opts.Tolerance)
	}
	if opts.Size <= 0 {
		L.ArgError(1, "shadow size must be positive")
	}
	b.scene.Shadows = true
	b.scene.ShadowOptions = opts
	return 0
}

func (b *builder) number(t *lua.LTable, key string, def float64) float64 {
	switch v := t.RawGetString(key).(type) {
	case lua.LNumber:
		return float64(v)
	case *lua.LNilType:
		return def
	default:
		b.L.RaiseError("%s: number expected, got %s", key, v.Type())
		return def
	}
}

func (b *builder) str(t *lua.LTable, key, def string) string {
	switch v := t.RawGetString(key).(type) {
	case lua.LString:
		return string(v)
	case *lua.LNilType:
		return def
	default:
		b.L.RaiseError("%s: string expected, got %s", key, v.Type())
		return def
	}
}

// components reads up to n numbers from the array part of the table at
// key. ok is false when the key is absent.
func (b *builder) components(t *lua.LTable, key string, n int) (out [4]float64, count int, ok bool) {
	v := t.RawGetString(key)
	if v == lua.LNil {
		return out, 0, false
	}
	arr, isTable := v.(*lua.LTable)
	if !isTable {
		b.L.RaiseError("%s: table expected, got %s", key, v.Type())
	}
	for i := range n {
		num, isNum := arr.RawGetInt(i + 1).(lua.LNumber)
		if !isNum {
			break
		}
		out[i] = float64(num)
		count++
	}
	return out, count, true
}

func (b *builder) vec3(t *lua.LTable, key string, def math3d.Vec3) math3d.Vec3 {
	c, n, ok := b.components(t, key, 3)
	if !ok {
		return def
	}
	if n != 3 {
		b.L.RaiseError("%s: three numbers expected", key)
	}
	return math3d.V3(c[0], c[1], c[2])
}

func (b *builder) color(t *lua.LTable, key string, def math3d.Vec4) math3d.Vec4 {
	c, n, ok := b.components(t, key, 4)
	if !ok {
		return def
	}
	switch n {
	case 3:
		return math3d.V4(c[0], c[1], c[2], 1)
	case 4:
		return math3d.V4(c[0], c[1], c[2], c[3])
	default:
		b.L.RaiseError("%s: three or four numbers expected", key)
		return def
	}
}

func degrees(d float64) float64 {
	return d * math.Pi / 180
}
