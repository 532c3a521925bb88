/*
	lab contains the demo programs and the frame loop they share.

	A Demo is initialized once, then every frame Run sets the viewport,
	calls Frame, swaps and polls the window and hands the collected input
	messages to Handle. Escape closes the window in every lab.
*/
package lab

import (
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"math"
	"sort"

	"github.com/der-antikeks/glabs/asset"
	"github.com/der-antikeks/glabs/config"
	"github.com/der-antikeks/glabs/gpu"
	"github.com/der-antikeks/glabs/input"
)

// Window is the part of window.Window the labs use.
type Window interface {
	input.Source

	FramebufferSize() (width, height int)
	SetCursorCaptured(captured bool)
	ShouldClose() bool
	SetShouldClose(v bool)
	SwapBuffers()
	PollEvents()
	// Time returns seconds since startup.
	Time() float64
}

// Env is what a lab runs against.
type Env struct {
	Device gpu.Device
	Window Window
	Config config.Config
	Log    *slog.Logger
	// Shaders holds the GLSL sources, named by stage extension.
	Shaders fs.FS
	// ShaderDir is set when Shaders is a directory on disk.
	ShaderDir string
	// Out receives help texts for the user.
	Out io.Writer
}

// loadProgram builds a classic program from the named sources.
func loadProgram(env *Env, names ...string) (*gpu.Program, error) {
	sources, err := asset.LoadShaders(env.Shaders, names...)
	if err != nil {
		return nil, err
	}
	return gpu.BuildProgram(env.Device, false, sources...)
}

type Demo interface {
	Init(env *Env) error
	// Handle receives every input message after the frame was presented.
	Handle(m input.Message)
	Frame(env *Env) error
	Dispose()
}

// registry
var demos = map[string]func() Demo{}

func register(name string, f func() Demo) {
	demos[name] = f
}

// New returns the lab registered under name.
func New(name string) (Demo, error) {
	f, ok := demos[name]
	if !ok {
		return nil, fmt.Errorf("unknown lab %q", name)
	}
	return f(), nil
}

// Names lists the registered labs.
func Names() []string {
	names := make([]string, 0, len(demos))
	for n := range demos {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Run initializes d and drives it until the window closes or a frame
// fails.
func Run(env *Env, d Demo) error {
	env.Log.Info("renderer", "name", env.Device.Renderer(), "version", env.Device.Version())

	defer d.Dispose()
	if err := d.Init(env); err != nil {
		return err
	}

	var (
		last      = env.Window.Time()
		fps       = 60.0
		ratio     = 0.01
		nextPrint = last
	)

	for !env.Window.ShouldClose() {
		w, h := env.Window.FramebufferSize()
		env.Device.Viewport(0, 0, w, h)

		if err := d.Frame(env); err != nil {
			return fmt.Errorf("frame: %w", err)
		}

		env.Window.SwapBuffers()
		env.Window.PollEvents()

		for m := range env.Window.Messages() {
			if k, ok := m.(input.MessageKey); ok && k.Key == input.KeyEscape && k.Action == input.Press {
				env.Window.SetShouldClose(true)
			}
			d.Handle(m)
		}

		// fps
		now := env.Window.Time()
		if delta := now - last; delta > 0 {
			fps = fps*(1-ratio) + (1/delta)*ratio
		}
		last = now
		if now >= nextPrint && !math.IsInf(fps, 0) {
			nextPrint = now + 5
			env.Log.Debug("frame rate", "fps", math.Round(fps))
		}
	}
	return nil
}
