package gpu

import (
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

type LinkError struct {
	Log string
}

func (e *LinkError) Error() string {
	return fmt.Sprintf("linker error: %v", strings.TrimSpace(e.Log))
}

// Program is a linked shader program. It keeps its stages alive and
// releases them on Dispose.
type Program struct {
	dev       Device
	handle    uint32
	separable bool
	stages    []*ShaderStage
	uniforms  map[string]int32
}

// LinkProgram links the stages into a program. Separable programs can be
// bound into the slots of a Pipeline. On failure the stages are disposed.
func LinkProgram(dev Device, separable bool, stages ...*ShaderStage) (*Program, error) {
	handles := make([]uint32, len(stages))
	for i, s := range stages {
		handles[i] = s.Handle()
	}

	h, log, ok := dev.CreateProgram(handles, separable)
	if !ok {
		for _, s := range stages {
			s.Dispose()
		}
		return nil, &LinkError{Log: log}
	}

	return &Program{
		dev:       dev,
		handle:    h,
		separable: separable,
		stages:    stages,
		uniforms:  make(map[string]int32),
	}, nil
}

// BuildProgram compiles and links the sources in one step.
func BuildProgram(dev Device, separable bool, sources ...ShaderSource) (*Program, error) {
	stages, err := CompileShaders(dev, sources...)
	if err != nil {
		return nil, err
	}
	return LinkProgram(dev, separable, stages...)
}

func (p *Program) Handle() uint32 {
	return p.handle
}

func (p *Program) Separable() bool {
	return p.separable
}

// Stages returns the pipeline slots the program has code for.
func (p *Program) Stages() StageMask {
	var m StageMask
	for _, s := range p.stages {
		m |= s.Stage.Mask()
	}
	return m
}

func (p *Program) Use() {
	p.dev.UseProgram(p.handle)
}

func (p *Program) Dispose() {
	for _, s := range p.stages {
		s.Dispose()
	}
	p.stages = nil

	if p.handle != 0 {
		p.dev.DeleteProgram(p.handle)
		p.handle = 0
	}
}

// Uniform returns the cached location of name, -1 if the program has no
// such active uniform.
func (p *Program) Uniform(name string) int32 {
	loc, ok := p.uniforms[name]
	if !ok {
		loc = p.dev.UniformLocation(p.handle, name)
		p.uniforms[name] = loc
	}
	return loc
}

func (p *Program) SetMat4(name string, m mgl32.Mat4) {
	if loc := p.Uniform(name); loc >= 0 {
		p.dev.ProgramUniformMat4(p.handle, loc, m)
	}
}

func (p *Program) SetVec3(name string, v mgl32.Vec3) {
	if loc := p.Uniform(name); loc >= 0 {
		p.dev.ProgramUniformVec3(p.handle, loc, v)
	}
}

func (p *Program) SetFloat(name string, v float32) {
	if loc := p.Uniform(name); loc >= 0 {
		p.dev.ProgramUniformFloat(p.handle, loc, v)
	}
}

func (p *Program) SetInt(name string, v int32) {
	if loc := p.Uniform(name); loc >= 0 {
		p.dev.ProgramUniformInt(p.handle, loc, v)
	}
}
