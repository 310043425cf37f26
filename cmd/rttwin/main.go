//go:build !headless

// rttwin - Desktop window viewer for the rtt software rasterizer
// Renders every frame on the CPU and shows it in an ebiten window.
//
// Controls:
//
//	Right drag  - Look around
//	W/A/S/D     - Fly the camera
//	Q/E         - Fly down/up
//	Space       - Spin the first model (stale shadows until F5)
//	G           - Toggle grid, axes and bounding boxes
//	F5          - Rebake shadow maps
//	C           - Copy the frame to the clipboard as PNG
//	Esc         - Quit
package main

import (
	"bytes"
	"flag"
	"fmt"
	"image/png"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"golang.design/x/clipboard"

	"github.com/taigrr/rtt/pkg/math3d"
	"github.com/taigrr/rtt/pkg/render"
	"github.com/taigrr/rtt/pkg/scene"
)

var (
	scenePath   = flag.String("scene", "", "Lua scene script to view instead of a model file")
	texturePath = flag.String("texture", "", "Path to texture image (PNG/JPG/BMP/TIFF/PPM)")
	width       = flag.Int("width", 320, "Render width in pixels")
	height      = flag.Int("height", 240, "Render height in pixels")
	scale       = flag.Int("scale", 3, "Window pixels per rendered pixel")
	shadowSize  = flag.Int("shadow-size", 0, "Shadow map size in texels (0 keeps the scene's)")
	debug       = flag.Bool("debug", false, "Log renderer events to stderr")
)

const (
	moveSpeed  = 2.0   // units per second
	lookSpeed  = 0.005 // radians per window pixel
	spinSpeed  = 1.0   // radians per second
	statusTime = 2 * time.Second
)

type viewer struct {
	sc       *scene.Scene
	r        *render.Renderer
	name     string
	screen   *ebiten.Image
	spin     float64
	base     math3d.Mat4
	spinning bool
	dragging bool
	guides   bool
	lastX    int
	lastY    int
	frameDur time.Duration
	status   string
	statusAt time.Time

	clipOnce sync.Once
	clipOK   bool
}

func newViewer(sc *scene.Scene, name string, w, h int) *viewer {
	buf := render.NewBufferSet(w, h)
	r := render.NewRenderer(buf, sc.Camera)
	sc.Apply(r)
	return &viewer{
		sc:     sc,
		r:      r,
		name:   name,
		screen: ebiten.NewImage(w, h),
	}
}

func (v *viewer) setStatus(msg string) {
	v.status = msg
	v.statusAt = time.Now()
	slog.Info(msg)
}

func (v *viewer) Update() error {
	if ebiten.IsWindowBeingClosed() || inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	dt := 1 / float64(ebiten.TPS())
	cam := v.r.Camera

	x, y := ebiten.CursorPosition()
	if ebiten.IsMouseButtonPressed(ebiten.MouseButtonRight) {
		if v.dragging {
			cam.Rotate(-float64(y-v.lastY)*lookSpeed, -float64(x-v.lastX)*lookSpeed)
		}
		v.dragging = true
	} else {
		v.dragging = false
	}
	v.lastX, v.lastY = x, y

	if ebiten.IsKeyPressed(ebiten.KeyW) {
		cam.MoveForward(moveSpeed * dt)
	}
	if ebiten.IsKeyPressed(ebiten.KeyS) {
		cam.MoveForward(-moveSpeed * dt)
	}
	if ebiten.IsKeyPressed(ebiten.KeyD) {
		cam.MoveRight(moveSpeed * dt)
	}
	if ebiten.IsKeyPressed(ebiten.KeyA) {
		cam.MoveRight(-moveSpeed * dt)
	}
	if ebiten.IsKeyPressed(ebiten.KeyE) {
		cam.SetPosition(cam.Position.Add(math3d.Up().Scale(moveSpeed * dt)))
	}
	if ebiten.IsKeyPressed(ebiten.KeyQ) {
		cam.SetPosition(cam.Position.Sub(math3d.Up().Scale(moveSpeed * dt)))
	}

	if inpututil.IsKeyJustPressed(ebiten.KeySpace) && len(v.r.Models) > 0 {
		v.spinning = !v.spinning
	}
	if v.spinning {
		v.spinModel(dt)
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyG) {
		v.guides = !v.guides
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF5) {
		start := time.Now()
		v.r.BakeShadows(v.sc.ShadowOptions)
		v.setStatus(fmt.Sprintf("shadows baked in %v", time.Since(start).Round(time.Millisecond)))
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyC) {
		if err := v.copyFrame(); err != nil {
			v.setStatus("copy failed: " + err.Error())
		} else {
			v.setStatus("frame copied to clipboard")
		}
	}
	return nil
}

// spinModel turns the first model about the vertical axis through its
// center. Shadow maps are left as baked.
func (v *viewer) spinModel(dt float64) {
	m := &v.r.Models[0]
	if v.spin == 0 {
		v.base = m.Transform
	}
	v.spin = math.Mod(v.spin+spinSpeed*dt, 2*math.Pi)
	center := v.base.MulVec3(m.Mesh.Center())
	m.Transform = math3d.RotateAbout(center, math3d.Up(), v.spin).Mul(v.base)
}

// drawGuides overlays a world grid, the world axes and each model's
// bounding box on the rendered frame.
func (v *viewer) drawGuides() {
	rast := v.r.Rasterizer
	view := v.r.Camera.ViewMatrix()
	rast.ModelView = view
	rast.DrawGrid(8, 1, render.RGB(70, 70, 90))
	rast.DrawAxes(1)
	for _, m := range v.r.Models {
		rast.ModelView = view.Mul(m.Transform)
		rast.DrawBox(render.NewAABB(m.Mesh.BoundsMin, m.Mesh.BoundsMax), render.RGB(255, 200, 0))
	}
}

// copyFrame puts the last rendered frame on the clipboard as a PNG.
func (v *viewer) copyFrame() error {
	v.clipOnce.Do(func() {
		v.clipOK = clipboard.Init() == nil
	})
	if !v.clipOK {
		return fmt.Errorf("clipboard unavailable")
	}
	var b bytes.Buffer
	if err := png.Encode(&b, v.r.Rasterizer.Buffer.ToImage()); err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	clipboard.Write(clipboard.FmtImage, b.Bytes())
	return nil
}

func (v *viewer) Draw(screen *ebiten.Image) {
	start := time.Now()
	v.r.RenderFrame(render.PassFull, v.sc.Background)
	if v.guides {
		v.drawGuides()
	}
	v.frameDur = time.Since(start)

	v.screen.WritePixels(v.r.Rasterizer.Buffer.ToImage().Pix)
	screen.DrawImage(v.screen, nil)

	st := v.r.Stats
	msg := fmt.Sprintf("%s  %.0f fps  render %v\nfaces %d  culled %d/%d",
		v.name, ebiten.ActualFPS(), v.frameDur.Round(time.Millisecond), st.Faces, st.Culled, st.Tested)
	if v.status != "" && time.Since(v.statusAt) < statusTime {
		msg += "\n" + v.status
	}
	ebitenutil.DebugPrint(screen, msg)
}

func (v *viewer) Layout(outsideWidth, outsideHeight int) (int, int) {
	b := v.screen.Bounds()
	return b.Dx(), b.Dy()
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "rttwin - Desktop window viewer for the rtt software rasterizer\n\n")
		fmt.Fprintf(os.Stderr, "Usage: rttwin [options] <model.obj|model.glb>\n")
		fmt.Fprintf(os.Stderr, "       rttwin [options] -scene scene.lua\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *scenePath == "" && flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	if *debug {
		render.SetLogger(logger)
	}

	sc, name, err := loadScene()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	v := newViewer(sc, name, *width, *height)
	ebiten.SetWindowTitle("rtt - " + name)
	ebiten.SetWindowSize(*width**scale, *height**scale)
	ebiten.SetWindowResizable(true)
	ebiten.SetWindowClosingHandled(true)
	if err := ebiten.RunGame(v); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadScene() (*scene.Scene, string, error) {
	if *scenePath != "" {
		sc, err := scene.Load(*scenePath)
		if err != nil {
			return nil, "", err
		}
		applyFlags(sc)
		return sc, filepath.Base(*scenePath), nil
	}

	var texture *render.Texture
	if *texturePath != "" {
		t, err := render.LoadTexture(*texturePath)
		if err != nil {
			slog.Warn("could not load texture", "err", err)
		}
		texture = t
	}
	sc, err := scene.LoadModel(flag.Arg(0), texture)
	if err != nil {
		return nil, "", err
	}
	applyFlags(sc)
	return sc, filepath.Base(flag.Arg(0)), nil
}

func applyFlags(sc *scene.Scene) {
	if *shadowSize > 0 {
		sc.ShadowOptions.Size = *shadowSize
	}
}
