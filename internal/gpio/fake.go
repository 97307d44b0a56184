package gpio

import "sync"

// FakeLine is a test double for both input and output lines. Tests set the
// level directly; writes are recorded in History.
type FakeLine struct {
	mu sync.Mutex

	level   int
	History []int

	// Closed tracks if Close was called.
	Closed bool

	// ValueError, if set, is returned by Value.
	ValueError error

	// SetError, if set, is returned by SetValue.
	SetError error
}

// NewFakeLine creates a FakeLine at the given level.
func NewFakeLine(level int) *FakeLine {
	return &FakeLine{level: level}
}

// Value returns the current level.
func (f *FakeLine) Value() (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ValueError != nil {
		return 0, f.ValueError
	}
	return f.level, nil
}

// SetValue records and applies a write.
func (f *FakeLine) SetValue(v int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SetError != nil {
		return f.SetError
	}
	f.level = v
	f.History = append(f.History, v)
	return nil
}

// Set changes the level without recording a write. Tests use it to simulate
// external input changes.
func (f *FakeLine) Set(level int) {
	f.mu.Lock()
	f.level = level
	f.mu.Unlock()
}

// Level returns the current level without error handling.
func (f *FakeLine) Level() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.level
}

// Close marks the line as closed.
func (f *FakeLine) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}
