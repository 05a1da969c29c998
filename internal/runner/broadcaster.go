package runner

import (
	"sync"
	"time"

	"github.com/sells-group/finreport-cli/internal/model"
)

// EventType classifies a progress event.
type EventType string

const (
	// EventState reports one recorded stage result.
	EventState EventType = "state"
	// EventComplete is the single terminal event of a successful run.
	EventComplete EventType = "complete"
	// EventFailed is the single terminal event of a failed run.
	EventFailed EventType = "failed"
)

// Event is one entry in a run's progress sequence. Every subscriber observes
// the same events in the same order.
type Event struct {
	Type      EventType          `json:"type"`
	Stage     model.Stage        `json:"stage,omitempty"`
	Progress  int                `json:"progress"`
	Result    *model.StageResult `json:"result,omitempty"`
	ErrorKind model.ErrorKind    `json:"error_kind,omitempty"`
	Error     string             `json:"error,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
}

// defaultBacklog bounds a subscriber channel when no backlog is configured.
// A run emits at most one event per stage plus one terminal event, so this
// can never fill.
const defaultBacklog = 16

// broadcaster records a run's event history and fans live events out to
// subscribers. A late subscriber replays the history first and then receives
// live events; the sequence every subscriber sees is identical.
type broadcaster struct {
	backlog int

	mu      sync.Mutex
	history []Event
	subs    map[int]chan Event
	nextID  int
	closed  bool
}

func newBroadcaster(backlog int) *broadcaster {
	if backlog <= 0 {
		backlog = defaultBacklog
	}
	return &broadcaster{backlog: backlog, subs: map[int]chan Event{}}
}

// publish appends an event and delivers it to every open subscriber.
func (b *broadcaster) publish(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.history = append(b.history, e)
	for _, ch := range b.subs {
		ch <- e
	}
}

// closeOut marks the stream finished and closes all subscriber channels.
// Called exactly once, after the terminal event.
func (b *broadcaster) closeOut() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		close(ch)
		delete(b.subs, id)
	}
}

// subscribe returns a channel carrying the full recorded history followed by
// live events, and a cancel function. Cancelling detaches the subscriber
// without affecting the run or other subscribers.
func (b *broadcaster) subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, b.backlog+len(b.history))
	for _, e := range b.history {
		ch <- e
	}
	if b.closed {
		close(ch)
		return ch, func() {}
	}

	id := b.nextID
	b.nextID++
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}
