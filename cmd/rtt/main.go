// rtt - Terminal viewer for the rtt software rasterizer
// View OBJ and GLB files, or Lua scene scripts, in your terminal. A compact
// preview follows the camera; once the view rests, a full render with
// lights, materials and shadows replaces it.
//
// Controls:
//
//	Mouse drag  - Orbit the camera
//	Scroll      - Zoom in/out
//	W/S         - Orbit up/down
//	A/D         - Orbit left/right
//	Space       - Random spin
//	R           - Reset view
//	X           - Toggle wireframe preview
//	F           - Toggle full renders
//	?           - Toggle HUD overlay
//	+/-         - Adjust zoom
//	Esc         - Quit
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	uv "github.com/charmbracelet/ultraviolet"
	"golang.org/x/term"

	"github.com/taigrr/rtt/pkg/render"
	"github.com/taigrr/rtt/pkg/scene"
)

var (
	scenePath   = flag.String("scene", "", "Lua scene script to view instead of a model file")
	texturePath = flag.String("texture", "", "Path to texture image (PNG/JPG/BMP/TIFF/PPM)")
	targetFPS   = flag.Int("fps", 30, "Target FPS")
	bgColor     = flag.String("bg", "", "Background color (R,G,B), overriding the scene's")
	outPath     = flag.String("out", "", "Render one full frame to a .png or .ppm file and exit")
	outWidth    = flag.Int("width", 640, "Width of frames written with -out")
	outHeight   = flag.Int("height", 480, "Height of frames written with -out")
	shadowSize  = flag.Int("shadow-size", 0, "Shadow map size in texels (0 keeps the scene's)")
	debug       = flag.Bool("debug", false, "Log renderer events to stderr")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "rtt - Terminal viewer for the rtt software rasterizer\n\n")
		fmt.Fprintf(os.Stderr, "Usage: rtt [options] <model.obj|model.glb>\n")
		fmt.Fprintf(os.Stderr, "       rtt [options] -scene scene.lua\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nControls:\n")
		fmt.Fprintf(os.Stderr, "  Mouse drag  - Orbit the camera\n")
		fmt.Fprintf(os.Stderr, "  Scroll      - Zoom in/out\n")
		fmt.Fprintf(os.Stderr, "  W/S/A/D     - Orbit up/down/left/right\n")
		fmt.Fprintf(os.Stderr, "  Space       - Random spin\n")
		fmt.Fprintf(os.Stderr, "  R           - Reset view\n")
		fmt.Fprintf(os.Stderr, "  X           - Toggle wireframe preview\n")
		fmt.Fprintf(os.Stderr, "  F           - Toggle full renders\n")
		fmt.Fprintf(os.Stderr, "  ?           - Toggle HUD overlay\n")
		fmt.Fprintf(os.Stderr, "  Esc         - Quit\n")
	}
	flag.Parse()

	if *scenePath == "" && flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}
	setupLogging()

	sc, name, err := loadScene(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	out := *outPath
	if out == "" && !term.IsTerminal(int(os.Stdout.Fd())) {
		out = "rtt.png"
		slog.Info("stdout is not a terminal, rendering a snapshot", "path", out)
	}
	if out != "" {
		err = renderSnapshot(sc, out)
	} else {
		err = run(sc, name)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func setupLogging() {
	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	if *debug {
		render.SetLogger(logger)
	}
}

// loadScene reads the -scene script, or builds a viewing scene around the
// model at modelPath. Flag overrides are applied to the result.
func loadScene(modelPath string) (*scene.Scene, string, error) {
	var (
		sc   *scene.Scene
		name string
		err  error
	)
	if *scenePath != "" {
		name = filepath.Base(*scenePath)
		sc, err = scene.Load(*scenePath)
	} else {
		name = filepath.Base(modelPath)
		sc, err = scene.LoadModel(modelPath, loadTexture())
	}
	if err != nil {
		return nil, "", err
	}

	if *bgColor != "" {
		var r, g, b uint8
		if _, err := fmt.Sscanf(*bgColor, "%d,%d,%d", &r, &g, &b); err != nil {
			return nil, "", fmt.Errorf("parse -bg %q: %w", *bgColor, err)
		}
		sc.Background = render.RGB(r, g, b)
	}
	if *shadowSize > 0 {
		sc.ShadowOptions.Size = *shadowSize
	}

	tris := 0
	for _, m := range sc.Models {
		tris += m.Mesh.TriangleCount()
	}
	slog.Info("loaded", "name", name, "models", len(sc.Models), "lights", len(sc.Lights), "triangles", tris)
	return sc, name, nil
}

// loadTexture reads -texture. A missing or unreadable file only warns.
func loadTexture() *render.Texture {
	if *texturePath == "" {
		return nil
	}
	t, err := render.LoadTexture(*texturePath)
	if err != nil {
		slog.Warn("could not load texture", "err", err)
		return nil
	}
	return t
}

// renderSnapshot renders one full frame at -width x -height and writes it
// to path as PNG, or PPM for a .ppm extension.
func renderSnapshot(sc *scene.Scene, path string) error {
	buf := render.NewBufferSet(*outWidth, *outHeight)
	r := render.NewRenderer(buf, sc.Camera)
	sc.Apply(r)

	start := time.Now()
	r.RenderFrame(render.PassFull, sc.Background)
	slog.Info("rendered frame",
		"width", buf.Width, "height", buf.Height,
		"elapsed", time.Since(start).Round(time.Millisecond),
		"faces", r.Stats.Faces, "culled", r.Stats.Culled)

	save := buf.SavePNG
	if strings.EqualFold(filepath.Ext(path), ".ppm") {
		save = buf.SavePPM
	}
	if err := save(path); err != nil {
		return fmt.Errorf("save frame: %w", err)
	}
	slog.Info("saved frame", "path", path)
	return nil
}

// HUD renders an overlay with scene info and render status
type HUD struct {
	name      string
	polyCount int
	fps       float64
	fpsFrames int
	fpsTime   time.Time
}

// NewHUD creates a new HUD
func NewHUD(name string, polyCount int) *HUD {
	return &HUD{
		name:      name,
		polyCount: polyCount,
		fpsTime:   time.Now(),
	}
}

// UpdateFPS updates the FPS counter (call once per frame)
func (h *HUD) UpdateFPS() {
	h.fpsFrames++
	elapsed := time.Since(h.fpsTime)
	if elapsed >= time.Second {
		h.fps = float64(h.fpsFrames) / elapsed.Seconds()
		h.fpsFrames = 0
		h.fpsTime = time.Now()
	}
}

// Render draws the HUD overlay directly to the terminal
func (h *HUD) Render(width, height int, show bool, status string) {
	const (
		reset     = "\x1b[0m"
		bold      = "\x1b[1m"
		bgBlack   = "\x1b[40m"
		fgWhite   = "\x1b[97m"
		fgGreen   = "\x1b[92m"
		fgYellow  = "\x1b[93m"
		fgCyan    = "\x1b[96m"
		clearLine = "\x1b[2K"
	)
	moveTo := func(row, col int) string {
		return fmt.Sprintf("\x1b[%d;%dH", row, col)
	}

	// Always clear the HUD rows (so toggling off works)
	fmt.Print(moveTo(1, 1) + clearLine)
	fmt.Print(moveTo(height, 1) + clearLine)
	if !show {
		return
	}

	fmt.Printf("%s%s%s %.0f FPS %s", moveTo(1, 1), bgBlack, fgGreen, h.fps, reset)

	titleCol := max((width-len(h.name)-2)/2, 1)
	fmt.Printf("%s%s%s%s %s %s", moveTo(1, titleCol), bold, bgBlack, fgWhite, h.name, reset)

	polyCol := max(width-14, 1)
	fmt.Printf("%s%s%s%s %d tris %s", moveTo(1, polyCol), bgBlack, fgCyan, bold, h.polyCount, reset)

	fmt.Printf("%s%s%s %s %s", moveTo(height, 1), bgBlack, fgYellow, status, reset)
}

func run(sc *scene.Scene, name string) error {
	t := uv.DefaultTerminal()

	width, height, err := t.GetSize()
	if err != nil {
		return fmt.Errorf("get terminal size: %w", err)
	}
	if err := t.Start(); err != nil {
		return fmt.Errorf("start terminal: %w", err)
	}

	t.EnterAltScreen()
	t.HideCursor()
	t.Resize(width, height)

	// Enable mouse mode
	fmt.Fprint(os.Stdout, "\x1b[?1003h") // Enable any-event mouse tracking
	fmt.Fprint(os.Stdout, "\x1b[?1006h") // Enable SGR extended mouse mode

	v := newViewer(sc, *targetFPS, width, height*2)

	tris := 0
	for _, m := range sc.Models {
		tris += m.Mesh.TriangleCount()
	}
	hud := NewHUD(name, tris)
	showHUD := true

	// Context for clean shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	cleanup := func() {
		v.Close()
		fmt.Fprint(os.Stdout, "\x1b[?1003l")
		fmt.Fprint(os.Stdout, "\x1b[?1006l")
		t.ExitAltScreen()
		t.ShowCursor()
		t.Shutdown(context.Background())
	}

	var mouseDown bool
	var lastMouseX, lastMouseY int
	const keyStep = 0.15

	handle := func(ev uv.Event, now time.Time) {
		switch ev := ev.(type) {
		case uv.WindowSizeEvent:
			width, height = ev.Width, ev.Height
			t.Erase()
			t.Resize(width, height)
			v.Resize(width, height*2)

		case uv.KeyPressEvent:
			switch {
			case ev.MatchString("escape"), ev.MatchString("ctrl+c"):
				cancel()
			case ev.MatchString("w", "up"):
				v.Touch(now)
				v.orbit.Rotate(0, keyStep)
			case ev.MatchString("s", "down"):
				v.Touch(now)
				v.orbit.Rotate(0, -keyStep)
			case ev.MatchString("a", "left"):
				v.Touch(now)
				v.orbit.Rotate(-keyStep, 0)
			case ev.MatchString("d", "right"):
				v.Touch(now)
				v.orbit.Rotate(keyStep, 0)
			case ev.MatchString("+", "="):
				v.Touch(now)
				v.orbit.Zoom(0.9)
			case ev.MatchString("-", "_"):
				v.Touch(now)
				v.orbit.Zoom(1 / 0.9)
			case ev.MatchString("space"):
				v.Touch(now)
				v.orbit.Rotate((rand.Float64()-0.5)*math.Pi, (rand.Float64()-0.5)*0.5)
			case ev.MatchString("r"):
				v.Touch(now)
				v.orbit.Reset()
			case ev.MatchString("x"):
				v.ToggleWireframe()
			case ev.MatchString("f"):
				v.ToggleFull()
			case ev.MatchString("?"), ev.MatchString("shift+/"):
				showHUD = !showHUD
			}

		case uv.MouseClickEvent:
			mouseDown = true
			lastMouseX, lastMouseY = ev.X, ev.Y

		case uv.MouseReleaseEvent:
			mouseDown = false

		case uv.MouseMotionEvent:
			if mouseDown {
				v.Touch(now)
				v.orbit.Rotate(float64(ev.X-lastMouseX)*0.05, float64(ev.Y-lastMouseY)*0.05)
				lastMouseX, lastMouseY = ev.X, ev.Y
			}

		case uv.MouseWheelEvent:
			switch ev.Button {
			case uv.MouseWheelUp:
				v.Touch(now)
				v.orbit.Zoom(0.9)
			case uv.MouseWheelDown:
				v.Touch(now)
				v.orbit.Zoom(1 / 0.9)
			}
		}
	}

	targetDuration := time.Second / time.Duration(max(*targetFPS, 1))
	events := t.Events()
	for {
		now := time.Now()
	drain:
		for {
			select {
			case <-ctx.Done():
				cleanup()
				return nil
			case ev := <-events:
				handle(ev, now)
			default:
				break drain
			}
		}

		status := v.Frame(now, t, t.Bounds())
		if err := t.Display(); err != nil {
			cleanup()
			return fmt.Errorf("display: %w", err)
		}

		hud.UpdateFPS()
		hud.Render(width, height, showHUD, status)

		// Frame timing
		elapsed := time.Since(now)
		if elapsed < targetDuration {
			time.Sleep(targetDuration - elapsed)
		}
	}
}
