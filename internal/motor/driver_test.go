package motor

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/wjvent/gate-controller/internal/gate"
)

// recorder captures the interleaving of output writes and settle sleeps
// across both lines, so ordering between them is checkable.
type recorder struct {
	ops []string
}

type recLine struct {
	rec  *recorder
	name string
	err  error
}

func (l *recLine) SetValue(v int) error {
	if l.err != nil {
		return l.err
	}
	l.rec.ops = append(l.rec.ops, l.name+"="+string(rune('0'+v)))
	return nil
}

func newTestDriver() (*Driver, *recorder) {
	rec := &recorder{}
	d := New(&recLine{rec: rec, name: "open"}, &recLine{rec: rec, name: "close"}, 10*time.Millisecond, nil)
	d.sleep = func(time.Duration) { rec.ops = append(rec.ops, "sleep") }
	return d, rec
}

func TestDriveOpenMakeBeforeBreak(t *testing.T) {
	d, rec := newTestDriver()
	if err := d.Drive(gate.DirOpen); err != nil {
		t.Fatal(err)
	}
	want := []string{"close=0", "sleep", "open=1"}
	if !reflect.DeepEqual(rec.ops, want) {
		t.Errorf("ops: got %v, want %v", rec.ops, want)
	}
}

func TestDriveCloseMakeBeforeBreak(t *testing.T) {
	d, rec := newTestDriver()
	if err := d.Drive(gate.DirClose); err != nil {
		t.Fatal(err)
	}
	want := []string{"open=0", "sleep", "close=1"}
	if !reflect.DeepEqual(rec.ops, want) {
		t.Errorf("ops: got %v, want %v", rec.ops, want)
	}
}

func TestDriveStopImmediate(t *testing.T) {
	d, rec := newTestDriver()
	if err := d.Drive(gate.DirStop); err != nil {
		t.Fatal(err)
	}
	want := []string{"open=0", "close=0"}
	if !reflect.DeepEqual(rec.ops, want) {
		t.Errorf("ops: got %v, want %v", rec.ops, want)
	}
}

func TestOutputsNeverBothAsserted(t *testing.T) {
	d, rec := newTestDriver()
	dirs := []gate.Direction{
		gate.DirOpen, gate.DirClose, gate.DirOpen,
		gate.DirStop, gate.DirClose, gate.DirStop,
	}
	for _, dir := range dirs {
		if err := d.Drive(dir); err != nil {
			t.Fatal(err)
		}
	}
	open, closed := false, false
	for _, op := range rec.ops {
		switch op {
		case "open=1":
			open = true
		case "open=0":
			open = false
		case "close=1":
			closed = true
		case "close=0":
			closed = false
		}
		if open && closed {
			t.Fatalf("both outputs asserted, trace %v", rec.ops)
		}
	}
}

func TestDriveUnknownDirection(t *testing.T) {
	d, _ := newTestDriver()
	if err := d.Drive(gate.Direction(7)); err == nil {
		t.Fatal("expected error for unknown direction")
	}
}

func TestDriveWriteError(t *testing.T) {
	rec := &recorder{}
	bad := &recLine{rec: rec, name: "open", err: errors.New("gpio gone")}
	d := New(bad, &recLine{rec: rec, name: "close"}, time.Millisecond, nil)
	d.sleep = func(time.Duration) {}
	if err := d.Drive(gate.DirClose); err == nil {
		t.Fatal("expected error")
	}
}

func TestLamp(t *testing.T) {
	rec := &recorder{}
	l := NewLamp(&recLine{rec: rec, name: "lamp"})
	if err := l.Set(true); err != nil {
		t.Fatal(err)
	}
	if err := l.Set(false); err != nil {
		t.Fatal(err)
	}
	want := []string{"lamp=1", "lamp=0"}
	if !reflect.DeepEqual(rec.ops, want) {
		t.Errorf("ops: got %v, want %v", rec.ops, want)
	}
}
