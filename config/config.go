// Package config holds the settings shared by all labs. Values come from
// Default, optionally overlaid by a TOML or YAML file and then by
// command line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

var ErrInvalid = errors.New("invalid configuration")

const (
	TransformRing       = "ring"
	TransformInvalidate = "invalidate"
)

type Config struct {
	Window  Window  `toml:"window" yaml:"window"`
	Shaders Shaders `toml:"shaders" yaml:"shaders"`
	Render  Render  `toml:"render" yaml:"render"`
	Log     Log     `toml:"log" yaml:"log"`
}

type Window struct {
	Width        int    `toml:"width" yaml:"width"`
	Height       int    `toml:"height" yaml:"height"`
	Title        string `toml:"title" yaml:"title"`
	SwapInterval int    `toml:"swap_interval" yaml:"swap_interval"`
	Samples      int    `toml:"samples" yaml:"samples"`
}

// Shaders selects where GLSL sources are read from. An empty Dir uses
// the sources compiled into the binary.
type Shaders struct {
	Dir   string `toml:"dir" yaml:"dir"`
	Watch bool   `toml:"watch" yaml:"watch"`
}

type Render struct {
	Transform      string     `toml:"transform" yaml:"transform"`
	FramesInFlight int        `toml:"frames_in_flight" yaml:"frames_in_flight"`
	Wireframe      bool       `toml:"wireframe" yaml:"wireframe"`
	Background     [4]float32 `toml:"background" yaml:"background"`
}

type Log struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"`
}

func Default() Config {
	return Config{
		Window: Window{
			Width:        640,
			Height:       480,
			Title:        "Hello OpenGL",
			SwapInterval: 1,
		},
		Render: Render{
			Transform:      TransformRing,
			FramesInFlight: 3,
			Wireframe:      true,
			Background:     [4]float32{0.2, 0.2, 0.3, 1},
		},
		Log: Log{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads path over the defaults. The format is chosen by extension.
func Load(path string) (Config, error) {
	c := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return c, fmt.Errorf("read config: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		err = toml.Unmarshal(data, &c)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &c)
	default:
		return c, fmt.Errorf("config %v: unknown format %q", path, ext)
	}
	if err != nil {
		return c, fmt.Errorf("parse config %v: %w", path, err)
	}

	return c, c.Validate()
}

func (c Config) Validate() error {
	var errs []error
	invalid := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		invalid("window size %vx%v", c.Window.Width, c.Window.Height)
	}
	if c.Window.Samples < 0 {
		invalid("window samples %v", c.Window.Samples)
	}
	if !slices.Contains([]string{TransformRing, TransformInvalidate}, c.Render.Transform) {
		invalid("transform strategy %q", c.Render.Transform)
	}
	if c.Render.FramesInFlight < 1 || c.Render.FramesInFlight > 8 {
		invalid("frames in flight %v, want 1..8", c.Render.FramesInFlight)
	}
	if c.Shaders.Watch && c.Shaders.Dir == "" {
		invalid("shader watching needs a shader directory")
	}
	if !slices.Contains([]string{"debug", "info", "warn", "error"}, strings.ToLower(c.Log.Level)) {
		invalid("log level %q", c.Log.Level)
	}
	if !slices.Contains([]string{"text", "json"}, c.Log.Format) {
		invalid("log format %q", c.Log.Format)
	}

	return errors.Join(errs...)
}
