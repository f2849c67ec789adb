// Package events publishes job/subtask lifecycle transitions so the
// HTTP admin's websocket hub can stream live progress. It mirrors the
// corpus's NATS client wrapper (connect once, publish JSON, subscribe
// with a typed handler) but is equally usable with no NATS connection
// at all, in which case it fans out to in-process subscribers only.
package events

import (
	"encoding/json"
	"sync"
	"time"

	nc "github.com/nats-io/nats.go"

	"github.com/antigravity-dev/banking-platform/internal/logging"
)

var log = logging.For("events")

// TransitionSubject is the NATS subject job/subtask transitions publish to.
const TransitionSubject = "jobs.transition"

// Transition describes one job or subtask state change.
type Transition struct {
	UseCaseKey string    `json:"use_case_key"`
	JobID      int64     `json:"job_id"`
	Subtask    string    `json:"subtask,omitempty"`
	Status     string    `json:"status"`
	At         time.Time `json:"at"`
}

// Bus fans out Transitions to in-process subscribers (the websocket
// hub) and, when connected, to a NATS subject for other processes.
type Bus struct {
	conn *nc.Conn

	mu   sync.RWMutex
	subs map[int]chan Transition
	next int
}

// NewBus constructs a Bus. conn may be nil, in which case publication
// is in-process only.
func NewBus(conn *nc.Conn) *Bus {
	return &Bus{conn: conn, subs: make(map[int]chan Transition)}
}

// PublishTransition fans a transition out to every in-process
// subscriber and, if connected, publishes it to NATS.
func (b *Bus) PublishTransition(t Transition) {
	b.mu.RLock()
	for _, ch := range b.subs {
		select {
		case ch <- t:
		default:
			log.Warnf("subscriber channel full, dropping transition for job %d", t.JobID)
		}
	}
	b.mu.RUnlock()

	if b.conn == nil {
		return
	}
	data, err := json.Marshal(t)
	if err != nil {
		log.Errorf(err, "failed to marshal transition for job %d", t.JobID)
		return
	}
	if err := b.conn.Publish(TransitionSubject, data); err != nil {
		log.Warnf("failed to publish transition for job %d: %v", t.JobID, err)
	}
}

// Subscribe registers an in-process channel that receives every
// future transition, and returns an unsubscribe function.
func (b *Bus) Subscribe(buffer int) (<-chan Transition, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Transition, buffer)
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = ch
	b.mu.Unlock()

	return ch, func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
		close(ch)
	}
}

// Close releases the underlying NATS connection, if any.
func (b *Bus) Close() {
	if b.conn != nil {
		b.conn.Close()
	}
}
