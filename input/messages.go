package input

import "iter"

type MessageType int

const (
	KeyMessageType MessageType = iota + 1
	MouseButtonMessageType
	MouseMoveMessageType
	MouseScrollMessageType
	ResizeMessageType
	CloseMessageType
)

// Message is a single input event produced by a Source.
type Message interface {
	Type() MessageType
}

// Source yields the input messages gathered since the previous call.
// The sequence is consumed synchronously once per frame.
type Source interface {
	Messages() iter.Seq[Message]
}

type Action int

const (
	Release Action = iota
	Press
	Repeat
)

// Key codes share their values with glfw so the window can convert them
// without a lookup table.
type Key int

const (
	KeySpace  Key = 32
	KeyA      Key = 65
	KeyD      Key = 68
	KeyE      Key = 69
	KeyQ      Key = 81
	KeyS      Key = 83
	KeyW      Key = 87
	KeyEscape Key = 256
	KeyEnter  Key = 257
	KeyRight  Key = 262
	KeyLeft   Key = 263
	KeyDown   Key = 264
	KeyUp     Key = 265

	keyLast Key = 348
)

type MouseButton int

const (
	MouseLeft MouseButton = iota
	MouseRight
	MouseMiddle
)

type MessageKey struct {
	Key    Key
	Action Action
}

func (e MessageKey) Type() MessageType { return KeyMessageType }

// MessageMouseButton carries the cursor position at the time of the
// button change.
type MessageMouseButton struct {
	Button MouseButton
	Action Action
	X, Y   float64
}

func (e MessageMouseButton) Type() MessageType { return MouseButtonMessageType }

type MessageMouseMove struct {
	X, Y float64
}

func (e MessageMouseMove) Type() MessageType { return MouseMoveMessageType }

type MessageMouseScroll struct {
	X, Y float64
}

func (e MessageMouseScroll) Type() MessageType { return MouseScrollMessageType }

type MessageResize struct {
	Width, Height int
}

func (e MessageResize) Type() MessageType { return ResizeMessageType }

type MessageClose struct{}

func (e MessageClose) Type() MessageType { return CloseMessageType }

// Queue buffers messages until they are drained by Messages.
type Queue struct {
	pending []Message
}

func (q *Queue) Push(m Message) {
	q.pending = append(q.pending, m)
}

func (q *Queue) Len() int {
	return len(q.pending)
}

// Messages drains the queue. Messages pushed while the sequence is being
// consumed are delivered in the same pass.
func (q *Queue) Messages() iter.Seq[Message] {
	return func(yield func(Message) bool) {
		for len(q.pending) > 0 {
			m := q.pending[0]
			q.pending = q.pending[1:]
			if !yield(m) {
				return
			}
		}
		q.pending = q.pending[:0]
	}
}
