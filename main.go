// Command glabs runs small OpenGL 4.5 experiments, one subcommand per
// lab. Without a subcommand it shows the tessellated cube.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"

	"github.com/urfave/cli/v2"

	"github.com/der-antikeks/glabs/config"
	"github.com/der-antikeks/glabs/gpu/glcore"
	"github.com/der-antikeks/glabs/lab"
	"github.com/der-antikeks/glabs/shaders"
	"github.com/der-antikeks/glabs/window"
)

func init() {
	// glfw and the GL context must stay on the main thread
	runtime.LockOSThread()
}

var (
	configFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "read settings from a TOML or YAML `FILE`",
	}
	shadersFlag = &cli.StringFlag{
		Name:  "shaders",
		Usage: "read GLSL sources from `DIR` instead of the built in ones",
	}
	watchFlag = &cli.BoolFlag{
		Name:  "watch",
		Usage: "rebuild the tessellation pipeline when a source in --shaders changes",
	}
	logLevelFlag = &cli.StringFlag{
		Name:  "log-level",
		Usage: "debug, info, warn or error",
	}
	logFormatFlag = &cli.StringFlag{
		Name:  "log-format",
		Usage: "text or json",
	}
	transformFlag = &cli.StringFlag{
		Name:  "transform",
		Usage: "transform upload strategy, ring or invalidate",
	}
	framesFlag = &cli.IntFlag{
		Name:  "frames-in-flight",
		Usage: "number of transform ring blocks",
	}

	objFlag = &cli.StringFlag{
		Name:  "obj",
		Usage: "Wavefront OBJ `FILE` to show, the built in cube if empty",
	}
	textureFlag = &cli.StringFlag{
		Name:  "texture",
		Usage: "image `FILE` mapped onto the model, a checkerboard if empty",
	}
	flatFlag = &cli.BoolFlag{
		Name:  "flat",
		Usage: "flat shading",
	}
)

// runFunc starts the named lab.
type runFunc func(ctx *cli.Context, name string) error

func newApp(run runFunc) *cli.App {
	action := func(name string) cli.ActionFunc {
		return func(ctx *cli.Context) error { return run(ctx, name) }
	}

	return &cli.App{
		Name:  "glabs",
		Usage: "OpenGL 4.5 core profile experiments",
		Flags: []cli.Flag{
			configFlag,
			shadersFlag,
			watchFlag,
			logLevelFlag,
			logFormatFlag,
			transformFlag,
			framesFlag,
		},
		Action: action("tess"),
		Commands: []*cli.Command{
			{
				Name:   "triangles",
				Usage:  "two colored triangles",
				Action: action("triangles"),
			},
			{
				Name:   "freecam",
				Usage:  "the triangles seen through a keyboard steered camera",
				Action: action("freecam"),
			},
			{
				Name:   "phong",
				Usage:  "a cube lit by a point light, fly with WASD and the mouse",
				Action: action("phong"),
			},
			{
				Name:   "model",
				Usage:  "a textured OBJ model spinning around its y axis",
				Flags:  []cli.Flag{objFlag, textureFlag, flatFlag},
				Action: action("model"),
			},
			{
				Name:   "blend",
				Usage:  "a half transparent lit cube",
				Action: action("blend"),
			},
			{
				Name:   "tess",
				Usage:  "a tessellated cube, drag to orbit and scroll to zoom",
				Action: action("tess"),
			},
		},
	}
}

// configure builds the settings for the named lab: defaults, then the
// config file, then flags.
func configure(ctx *cli.Context, name string) (config.Config, error) {
	cfg := config.Default()
	if path := ctx.String(configFlag.Name); path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return cfg, err
		}
	}

	// the lighting labs were written for a larger window
	if name == "phong" && cfg.Window == config.Default().Window {
		cfg.Window.Width, cfg.Window.Height = 1024, 768
	}

	if ctx.IsSet(shadersFlag.Name) {
		cfg.Shaders.Dir = ctx.String(shadersFlag.Name)
	}
	if ctx.IsSet(watchFlag.Name) {
		cfg.Shaders.Watch = ctx.Bool(watchFlag.Name)
	}
	if ctx.IsSet(logLevelFlag.Name) {
		cfg.Log.Level = ctx.String(logLevelFlag.Name)
	}
	if ctx.IsSet(logFormatFlag.Name) {
		cfg.Log.Format = ctx.String(logFormatFlag.Name)
	}
	if ctx.IsSet(transformFlag.Name) {
		cfg.Render.Transform = ctx.String(transformFlag.Name)
	}
	if ctx.IsSet(framesFlag.Name) {
		cfg.Render.FramesInFlight = ctx.Int(framesFlag.Name)
	}

	return cfg, cfg.Validate()
}

func demo(ctx *cli.Context, name string) (lab.Demo, error) {
	if name == "model" {
		return lab.NewModel(ctx.String(objFlag.Name), ctx.String(textureFlag.Name), ctx.Bool(flatFlag.Name)), nil
	}
	return lab.New(name)
}

func newLogger(c config.Log, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func run(ctx *cli.Context, name string) error {
	cfg, err := configure(ctx, name)
	if err != nil {
		return err
	}

	log := newLogger(cfg.Log, os.Stderr)
	slog.SetDefault(log)

	d, err := demo(ctx, name)
	if err != nil {
		return err
	}

	win, err := window.New(cfg.Window)
	if err != nil {
		return fmt.Errorf("window: %w", err)
	}
	defer win.Destroy()

	dev, err := glcore.New(log)
	if err != nil {
		return fmt.Errorf("opengl: %w", err)
	}

	env := &lab.Env{
		Device:  dev,
		Window:  win,
		Config:  cfg,
		Log:     log.With("lab", name),
		Shaders: shaders.FS,
		Out:     os.Stdout,
	}
	if dir := cfg.Shaders.Dir; dir != "" {
		env.Shaders, env.ShaderDir = os.DirFS(dir), dir
	}

	return lab.Run(env, d)
}

func main() {
	if err := newApp(run).Run(os.Args); err != nil {
		slog.Error("glabs", "error", err)
		os.Exit(1)
	}
}
