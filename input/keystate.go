package input

import (
	"github.com/bits-and-blooms/bitset"
)

// KeyState tracks which keys are currently held down.
type KeyState struct {
	down *bitset.BitSet
}

func NewKeyState() *KeyState {
	return &KeyState{
		down: bitset.New(uint(keyLast) + 1),
	}
}

// Apply records key presses and releases, other messages are ignored.
func (s *KeyState) Apply(m Message) {
	e, ok := m.(MessageKey)
	if !ok || e.Key < 0 || e.Key > keyLast {
		return
	}

	switch e.Action {
	case Press:
		s.down.Set(uint(e.Key))
	case Release:
		s.down.Clear(uint(e.Key))
	}
}

func (s *KeyState) IsDown(k Key) bool {
	if k < 0 || k > keyLast {
		return false
	}
	return s.down.Test(uint(k))
}

func (s *KeyState) AnyDown() bool {
	return s.down.Any()
}

func (s *KeyState) Reset() {
	s.down.ClearAll()
}
