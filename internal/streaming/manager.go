// Package streaming provides in-process pub/sub for workflow progress
// events. The SSE handler subscribes per workflow; the EmitProgress
// activity publishes. A per-workflow ring buffer supports Last-Event-ID
// replay for reconnecting clients.
package streaming

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/adpulse-labs/orchestrator/internal/metrics"
)

// Event types published over the progress channel.
const (
	TypePhaseStarted   = "phase_started"
	TypePhaseCompleted = "phase_completed"
	TypeAgentStarted   = "agent_started"
	TypeAgentCompleted = "agent_completed"
	TypeAgentFailed    = "agent_failed"
	TypeWorkflowDone   = "workflow_done"
	TypeError          = "error"
)

// Event is one progress update for a workflow run.
type Event struct {
	WorkflowID string                 `json:"workflow_id"`
	Type       string                 `json:"type"`
	Phase      string                 `json:"phase,omitempty"`
	Agent      string                 `json:"agent,omitempty"`
	Status     string                 `json:"status,omitempty"`
	Message    string                 `json:"message,omitempty"`
	Details    map[string]interface{} `json:"details,omitempty"`
	ElapsedMS  int64                  `json:"elapsed_ms,omitempty"`
	Timestamp  time.Time              `json:"timestamp"`
	Seq        uint64                 `json:"seq"`
}

// Marshal returns the event as JSON for SSE data frames.
func (e Event) Marshal() []byte {
	b, _ := json.Marshal(e)
	return b
}

// Manager provides in-memory pub/sub for workflow progress events.
type Manager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan Event]struct{}
	history     map[string]*ring
	capacity    int
}

const defaultCapacity = 256

// NewManager creates a streaming manager. capacity bounds each
// workflow's replay buffer; zero means the default.
func NewManager(capacity int) *Manager {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &Manager{
		subscribers: make(map[string]map[chan Event]struct{}),
		history:     make(map[string]*ring),
		capacity:    capacity,
	}
}

// Subscribe adds a subscriber channel for a workflow ID. The caller
// must drain the channel and call Unsubscribe when done.
func (m *Manager) Subscribe(workflowID string, buffer int) chan Event {
	ch := make(chan Event, buffer)
	m.mu.Lock()
	defer m.mu.Unlock()
	subs := m.subscribers[workflowID]
	if subs == nil {
		subs = make(map[chan Event]struct{})
		m.subscribers[workflowID] = subs
	}
	subs[ch] = struct{}{}
	metrics.SSEClientsConnected.Inc()
	return ch
}

// Unsubscribe removes the subscriber channel and closes it.
func (m *Manager) Unsubscribe(workflowID string, ch chan Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if subs, ok := m.subscribers[workflowID]; ok {
		if _, present := subs[ch]; !present {
			return
		}
		delete(subs, ch)
		close(ch)
		metrics.SSEClientsConnected.Dec()
		if len(subs) == 0 {
			delete(m.subscribers, workflowID)
		}
	}
}

// Publish assigns a sequence number, records the event for replay, and
// fans it out to subscribers. Slow subscribers drop events rather than
// block the publisher.
func (m *Manager) Publish(workflowID string, evt Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	evt.WorkflowID = workflowID

	m.mu.Lock()
	rg := m.history[workflowID]
	if rg == nil {
		rg = newRing(m.capacity)
		m.history[workflowID] = rg
	}
	evt.Seq = rg.nextSeq
	rg.nextSeq++
	rg.push(evt)

	// Fan out while still holding the lock: Unsubscribe closes channels
	// under the same lock, so a send can never hit a closed channel.
	// Sends never block, so the critical section stays short.
	for ch := range m.subscribers[workflowID] {
		select {
		case ch <- evt:
		default:
		}
	}
	m.mu.Unlock()

	metrics.ProgressEventsPublished.Inc()
}

// ReplaySince returns buffered events with Seq > since, best-effort
// within ring capacity.
func (m *Manager) ReplaySince(workflowID string, since uint64) []Event {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rg := m.history[workflowID]
	if rg == nil {
		return nil
	}
	return rg.since(since)
}

// Forget drops the replay buffer for a finished workflow.
func (m *Manager) Forget(workflowID string) {
	m.mu.Lock()
	delete(m.history, workflowID)
	m.mu.Unlock()
}

// ring is a fixed-capacity ring buffer of events.
type ring struct {
	buf     []Event
	start   int
	count   int
	nextSeq uint64
}

// Sequence numbers start at 1 so ReplaySince(wf, 0) means "everything
// still buffered" and a client's Last-Event-ID is always the last seq
// it saw.
func newRing(capacity int) *ring { return &ring{buf: make([]Event, capacity), nextSeq: 1} }

func (r *ring) push(e Event) {
	if len(r.buf) == 0 {
		return
	}
	if r.count < len(r.buf) {
		r.buf[(r.start+r.count)%len(r.buf)] = e
		r.count++
		return
	}
	r.buf[r.start] = e
	r.start = (r.start + 1) % len(r.buf)
}

func (r *ring) since(seq uint64) []Event {
	if r.count == 0 {
		return nil
	}
	out := make([]Event, 0, r.count)
	for i := 0; i < r.count; i++ {
		ev := r.buf[(r.start+i)%len(r.buf)]
		if ev.Seq > seq {
			out = append(out, ev)
		}
	}
	return out
}
