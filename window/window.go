// Package window owns the glfw window and its OpenGL context and turns
// glfw callbacks into input messages.
package window

import (
	"fmt"
	"iter"

	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/der-antikeks/glabs/config"
	"github.com/der-antikeks/glabs/input"
)

type Window struct {
	window *glfw.Window
	queue  input.Queue
}

// New initializes glfw and opens a non resizable window with a current
// OpenGL 4.6 core context. Must be called from the main thread.
func New(c config.Window) (*Window, error) {
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize glfw: %w", err)
	}

	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 6)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.Resizable, glfw.False)
	if c.Samples > 0 {
		glfw.WindowHint(glfw.Samples, c.Samples)
	}

	w, err := glfw.CreateWindow(c.Width, c.Height, c.Title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("create window: %w", err)
	}

	w.MakeContextCurrent()
	glfw.SwapInterval(c.SwapInterval)

	m := &Window{window: w}

	// callbacks
	w.SetKeyCallback(m.onKey)
	w.SetMouseButtonCallback(m.onMouseButton)
	w.SetCursorPosCallback(m.onMouseMove)
	w.SetScrollCallback(m.onMouseScroll)
	w.SetFramebufferSizeCallback(m.onResize)
	w.SetCloseCallback(m.onClose)

	return m, nil
}

func (m *Window) onKey(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
	if key == glfw.KeyUnknown {
		return
	}
	m.queue.Push(input.MessageKey{Key: input.Key(key), Action: input.Action(action)})
}

func (m *Window) onMouseButton(w *glfw.Window, b glfw.MouseButton, action glfw.Action, _ glfw.ModifierKey) {
	x, y := w.GetCursorPos()
	m.queue.Push(input.MessageMouseButton{
		Button: input.MouseButton(b),
		Action: input.Action(action),
		X:      x,
		Y:      y,
	})
}

func (m *Window) onMouseMove(_ *glfw.Window, x, y float64) {
	m.queue.Push(input.MessageMouseMove{X: x, Y: y})
}

func (m *Window) onMouseScroll(_ *glfw.Window, xoff, yoff float64) {
	m.queue.Push(input.MessageMouseScroll{X: xoff, Y: yoff})
}

func (m *Window) onResize(_ *glfw.Window, width, height int) {
	m.queue.Push(input.MessageResize{Width: width, Height: height})
}

func (m *Window) onClose(_ *glfw.Window) {
	m.queue.Push(input.MessageClose{})
}

// Messages drains the events collected by the last PollEvents.
func (m *Window) Messages() iter.Seq[input.Message] {
	return m.queue.Messages()
}

func (m *Window) FramebufferSize() (width, height int) {
	return m.window.GetFramebufferSize()
}

// SetCursorCaptured hides and locks the cursor for relative mouse
// movement.
func (m *Window) SetCursorCaptured(captured bool) {
	mode := glfw.CursorNormal
	if captured {
		mode = glfw.CursorDisabled
	}
	m.window.SetInputMode(glfw.CursorMode, mode)
}

func (m *Window) ShouldClose() bool {
	return m.window.ShouldClose()
}

func (m *Window) SetShouldClose(v bool) {
	m.window.SetShouldClose(v)
}

func (m *Window) SwapBuffers() {
	m.window.SwapBuffers()
}

func (m *Window) PollEvents() {
	glfw.PollEvents()
}

// Time returns the seconds since glfw was initialized.
func (m *Window) Time() float64 {
	return glfw.GetTime()
}

// Destroy closes the window and terminates glfw.
func (m *Window) Destroy() {
	m.window.Destroy()
	glfw.Terminate()
}
