package sensor

import (
	"errors"
	"strings"
	"testing"
	"time"
)

// scriptLine replays a sequence of raw levels, holding the last one forever.
type scriptLine struct {
	levels []int
	pos    int
	err    error
}

func (l *scriptLine) Value() (int, error) {
	if l.err != nil {
		return 0, l.err
	}
	v := l.levels[l.pos]
	if l.pos < len(l.levels)-1 {
		l.pos++
	}
	return v, nil
}

// steadyLine always reads the same level.
type steadyLine int

func (l steadyLine) Value() (int, error) { return int(l), nil }

func newTestReader(open, closed Line) (*Reader, *int) {
	r := New(open, closed, 20*time.Millisecond)
	sleeps := 0
	r.sleep = func(time.Duration) { sleeps++ }
	return r, &sleeps
}

func TestReadStableSteadyLevel(t *testing.T) {
	r, sleeps := newTestReader(steadyLine(1), steadyLine(1))
	v, err := r.ReadStable(steadyLine(1))
	if err != nil {
		t.Fatal(err)
	}
	if v != 1 {
		t.Errorf("level: got %d, want 1", v)
	}
	// 20ms window at 5ms steps: four samples after the initial read.
	if *sleeps != 4 {
		t.Errorf("samples: got %d, want 4", *sleeps)
	}
}

func TestReadStableResetsOnBounce(t *testing.T) {
	// Two bounces, then the contact settles at 0. Every change restarts the
	// stability window.
	line := &scriptLine{levels: []int{1, 0, 1, 0, 0, 0, 0, 0}}
	r, sleeps := newTestReader(line, line)
	v, err := r.ReadStable(line)
	if err != nil {
		t.Fatal(err)
	}
	if v != 0 {
		t.Errorf("level: got %d, want 0", v)
	}
	// Three resets before the level holds for the full window.
	if *sleeps <= 4 {
		t.Errorf("bounce did not extend the read: %d samples", *sleeps)
	}
}

func TestSnapshotActiveLow(t *testing.T) {
	tests := []struct {
		name         string
		open, closed int
		wantOpen     bool
		wantClosed   bool
	}{
		{"open pressed", 0, 1, true, false},
		{"closed pressed", 1, 0, false, true},
		{"neither", 1, 1, false, false},
		{"both (wiring fault)", 0, 0, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := newTestReader(steadyLine(tt.open), steadyLine(tt.closed))
			snap, err := r.Snapshot()
			if err != nil {
				t.Fatal(err)
			}
			if snap.OpenActive != tt.wantOpen || snap.ClosedActive != tt.wantClosed {
				t.Errorf("got %+v, want open=%v closed=%v", snap, tt.wantOpen, tt.wantClosed)
			}
		})
	}
}

func TestSnapshotReadError(t *testing.T) {
	broken := &scriptLine{err: errors.New("line gone")}
	r, _ := newTestReader(steadyLine(1), broken)
	_, err := r.Snapshot()
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "closed switch") {
		t.Errorf("error lacks switch context: %v", err)
	}
}

func TestDefaultWindow(t *testing.T) {
	r := New(steadyLine(1), steadyLine(1), 0)
	if r.window != DefaultWindow {
		t.Errorf("window: got %v, want %v", r.window, DefaultWindow)
	}
}
