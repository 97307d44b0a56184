package gate

import "testing"

func TestQueueFIFO(t *testing.T) {
	q := NewQueue(4)
	for _, c := range []Command{CmdOpen, CmdClose, CmdToggle} {
		if !q.TryEnqueue(c) {
			t.Fatalf("enqueue %s failed", c)
		}
	}
	if q.Len() != 3 {
		t.Fatalf("len: got %d, want 3", q.Len())
	}
	for _, want := range []Command{CmdOpen, CmdClose, CmdToggle} {
		got, ok := q.TryDequeue()
		if !ok || got != want {
			t.Errorf("dequeue: got %s/%v, want %s", got, ok, want)
		}
	}
}

func TestQueueFullDropsNewest(t *testing.T) {
	q := NewQueue(2)
	q.TryEnqueue(CmdOpen)
	q.TryEnqueue(CmdClose)
	if q.TryEnqueue(CmdToggle) {
		t.Fatal("enqueue succeeded on full queue")
	}
	// The queued commands are untouched.
	got, _ := q.TryDequeue()
	if got != CmdOpen {
		t.Errorf("head after overflow: got %s, want OPEN", got)
	}
	got, _ = q.TryDequeue()
	if got != CmdClose {
		t.Errorf("second after overflow: got %s, want CLOSE", got)
	}
}

func TestQueueEmptyDequeue(t *testing.T) {
	q := NewQueue(0) // default depth
	if cmd, ok := q.TryDequeue(); ok || cmd != CmdNone {
		t.Errorf("dequeue on empty: got %s/%v", cmd, ok)
	}
}

func TestQueueRejectsNone(t *testing.T) {
	q := NewQueue(4)
	if q.TryEnqueue(CmdNone) {
		t.Fatal("CmdNone accepted")
	}
	if q.Len() != 0 {
		t.Errorf("len: got %d, want 0", q.Len())
	}
}
