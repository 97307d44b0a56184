package gate

// Queue is the bounded command channel between the network side and the
// state machine. Producers never block: TryEnqueue fails when the queue is
// full rather than overwriting. The single consumer never blocks either:
// TryDequeue yields "no command this tick" on empty.
type Queue struct {
	ch chan Command
}

// DefaultQueueDepth matches the depth the command channel has always had.
const DefaultQueueDepth = 16

// NewQueue creates a queue with the given depth. Depth <= 0 uses the default.
func NewQueue(depth int) *Queue {
	if depth <= 0 {
		depth = DefaultQueueDepth
	}
	return &Queue{ch: make(chan Command, depth)}
}

// TryEnqueue offers a command. It reports false when the queue is full or
// the command is CmdNone; the caller is expected to log and drop.
func (q *Queue) TryEnqueue(c Command) bool {
	if c == CmdNone {
		return false
	}
	select {
	case q.ch <- c:
		return true
	default:
		return false
	}
}

// TryDequeue removes the oldest pending command, if any.
func (q *Queue) TryDequeue() (Command, bool) {
	select {
	case c := <-q.ch:
		return c, true
	default:
		return CmdNone, false
	}
}

// Len reports the number of pending commands.
func (q *Queue) Len() int {
	return len(q.ch)
}
