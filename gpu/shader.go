package gpu

import (
	"fmt"
	"strings"
)

// CompileError carries the driver diagnostics of a failed compilation.
type CompileError struct {
	Stage Stage
	Name  string
	Log   string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("%v shader %q error: %v", e.Stage, e.Name, strings.TrimSpace(e.Log))
}

// ShaderStage is a compiled shader object for one pipeline stage.
type ShaderStage struct {
	dev    Device
	handle uint32

	Stage  Stage
	Name   string
	Source string
}

// CompileShader compiles src for the given stage. Name identifies the
// source in diagnostics, usually its file name.
func CompileShader(dev Device, stage Stage, name, src string) (*ShaderStage, error) {
	if strings.TrimSpace(src) == "" {
		return nil, &CompileError{Stage: stage, Name: name, Log: "empty source"}
	}

	h, log, ok := dev.CreateShader(stage, src)
	if !ok {
		return nil, &CompileError{Stage: stage, Name: name, Log: log}
	}

	return &ShaderStage{
		dev:    dev,
		handle: h,
		Stage:  stage,
		Name:   name,
		Source: src,
	}, nil
}

func (s *ShaderStage) Handle() uint32 {
	return s.handle
}

func (s *ShaderStage) Dispose() {
	if s.handle == 0 {
		return
	}
	s.dev.DeleteShader(s.handle)
	s.handle = 0
}

// ShaderSource names a stage source for CompileShaders.
type ShaderSource struct {
	Stage  Stage
	Name   string
	Source string
}

// CompileShaders compiles all sources and stops at the first failure,
// disposing the stages compiled so far.
func CompileShaders(dev Device, sources ...ShaderSource) ([]*ShaderStage, error) {
	stages := make([]*ShaderStage, 0, len(sources))
	for _, src := range sources {
		s, err := CompileShader(dev, src.Stage, src.Name, src.Source)
		if err != nil {
			for _, c := range stages {
				c.Dispose()
			}
			return nil, err
		}
		stages = append(stages, s)
	}
	return stages, nil
}
