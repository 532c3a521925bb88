package gpu

import (
	"fmt"
)

// Pipeline is a program pipeline object, its slots hold separable
// programs.
type Pipeline struct {
	dev    Device
	handle uint32
	slots  map[Stage]*Program
}

func NewPipeline(dev Device) *Pipeline {
	return &Pipeline{
		dev:    dev,
		handle: dev.CreatePipeline(),
		slots:  make(map[Stage]*Program),
	}
}

// Use binds p into the slots selected by stages.
func (pl *Pipeline) Use(stages StageMask, p *Program) error {
	if !p.Separable() {
		return fmt.Errorf("program %v is not separable", p.Handle())
	}
	if missing := stages &^ p.Stages(); missing != 0 {
		return fmt.Errorf("program %v has no code for stages %v", p.Handle(), missing.Each())
	}

	pl.dev.UseProgramStages(pl.handle, stages, p.Handle())
	for _, s := range stages.Each() {
		pl.slots[s] = p
	}
	return nil
}

// Program returns the program bound to the slot of s.
func (pl *Pipeline) Program(s Stage) *Program {
	return pl.slots[s]
}

func (pl *Pipeline) Handle() uint32 {
	return pl.handle
}

func (pl *Pipeline) Bind() {
	pl.dev.BindPipeline(pl.handle)
}

// Dispose deletes the pipeline object, bound programs are owned by the
// caller.
func (pl *Pipeline) Dispose() {
	if pl.handle == 0 {
		return
	}
	pl.dev.DeletePipeline(pl.handle)
	pl.handle = 0
	pl.slots = map[Stage]*Program{}
}
