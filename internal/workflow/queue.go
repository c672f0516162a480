package workflow

import (
	"sync"

	"github.com/ferrolab/podflow/internal/canvas"
)

// Item is one parked trigger for a busy target pod. TriggerMode determines
// whether the eventual replay emits the auto-triggered event.
type Item struct {
	CanvasID     string             `json:"canvas_id"`
	ConnectionID string             `json:"connection_id"`
	SourcePodID  string             `json:"source_pod_id"`
	TargetPodID  string             `json:"target_pod_id"`
	Summary      string             `json:"summary"`
	IsSummarized bool               `json:"is_summarized"`
	TriggerMode  canvas.TriggerMode `json:"trigger_mode"`
}

// Queues holds one unbounded FIFO per target pod. It is a plain keyed store;
// callers emit events and drive execution. Instances are independent, so
// tests and engines never share queue state.
type Queues struct {
	mu       sync.Mutex
	byTarget map[string][]Item
}

func NewQueues() *Queues {
	return &Queues{byTarget: make(map[string][]Item)}
}

// Enqueue appends the item to its target's queue and returns the 1-based
// position and the new queue size.
func (q *Queues) Enqueue(item Item) (position, queueSize int) {
	q.mu.Lock()
	defer q.mu.Unlock()

	items := append(q.byTarget[item.TargetPodID], item)
	q.byTarget[item.TargetPodID] = items
	return len(items), len(items)
}

// Dequeue pops the head of the target's queue. The second return is false on
// an empty queue.
func (q *Queues) Dequeue(targetPodID string) (Item, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	items := q.byTarget[targetPodID]
	if len(items) == 0 {
		return Item{}, false
	}
	head := items[0]
	if len(items) == 1 {
		delete(q.byTarget, targetPodID)
	} else {
		q.byTarget[targetPodID] = items[1:]
	}
	return head, true
}

// Peek returns the head of the target's queue without removing it.
func (q *Queues) Peek(targetPodID string) (Item, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	items := q.byTarget[targetPodID]
	if len(items) == 0 {
		return Item{}, false
	}
	return items[0], true
}

// Size returns the number of parked items for a target.
func (q *Queues) Size(targetPodID string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.byTarget[targetPodID])
}

// HasQueued reports whether the target has at least one parked item.
func (q *Queues) HasQueued(targetPodID string) bool {
	return q.Size(targetPodID) > 0
}

// Clear drops every parked item for a target and returns how many were
// dropped.
func (q *Queues) Clear(targetPodID string) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := len(q.byTarget[targetPodID])
	delete(q.byTarget, targetPodID)
	return n
}

// Snapshot returns a copy of the target's queue in FIFO order.
func (q *Queues) Snapshot(targetPodID string) []Item {
	q.mu.Lock()
	defer q.mu.Unlock()

	items := q.byTarget[targetPodID]
	out := make([]Item, len(items))
	copy(out, items)
	return out
}
