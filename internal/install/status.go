package install

import "sync"

// State is the orchestrator's in-process state. It says what this process is
// doing; the live file's state comes from Probe.
type State int

const (
	StateIdle State = iota
	StateApplying
	StateApplied
	StateReverting
)

func (s State) String() string {
	switch s {
	case StateApplying:
		return "applying"
	case StateApplied:
		return "applied"
	case StateReverting:
		return "reverting"
	default:
		return "idle"
	}
}

// Status is a state with its user-facing message.
type Status struct {
	State   State
	Message string
}

// Board holds the latest Status. Subscribers see only the newest value;
// posting never blocks on a slow reader.
type Board struct {
	mu      sync.Mutex
	current Status
	subs    []chan Status
}

// NewBoard creates a board starting at initial.
func NewBoard(initial Status) *Board {
	return &Board{current: initial}
}

// Post replaces the current status and notifies subscribers.
func (b *Board) Post(s Status) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.current = s
	for _, ch := range b.subs {
		// Drop the unread value; Post is the only sender so the send cannot block
		select {
		case <-ch:
		default:
		}
		ch <- s
	}
}

// Current returns the latest status.
func (b *Board) Current() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

// Subscribe returns a channel receiving status updates.
func (b *Board) Subscribe() <-chan Status {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Status, 1)
	b.subs = append(b.subs, ch)
	return ch
}
