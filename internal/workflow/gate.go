package workflow

import (
	"sync"
)

// SourceSummary pairs a source pod with its generated summary. Slices of
// SourceSummary preserve completion order.
type SourceSummary struct {
	SourcePodID string `json:"source_pod_id"`
	Summary     string `json:"summary"`
}

// Resolution is the outcome of recording a source's response against a
// pending multi-input target.
type Resolution struct {
	// AllResponded is true once every required source has completed or been
	// rejected.
	AllResponded bool
	// HasRejection is true if any required source was rejected this cycle.
	HasRejection bool
	// Fire is true for exactly one caller per satisfied cycle: the record is
	// consumed atomically with the completeness check, so a second
	// "simultaneous" completion can never trigger the same target twice.
	Fire bool
	// Summaries holds the completed summaries in completion order when Fire
	// is true.
	Summaries []SourceSummary
}

type pendingTarget struct {
	required   map[string]struct{}
	completed  []SourceSummary
	seen       map[string]struct{}
	rejections map[string]string
}

// PendingGate tracks which required sources have reported for multi-input
// targets. A record lives from the first qualifying source completion until
// the cycle resolves; resolution (fire or rejected-out) destroys the record,
// so a later independent completion wave starts fresh.
type PendingGate struct {
	mu      sync.Mutex
	targets map[string]*pendingTarget
}

func NewPendingGate() *PendingGate {
	return &PendingGate{targets: make(map[string]*pendingTarget)}
}

// Init lazily creates the pending record for a target. Idempotent: a record
// created by an earlier arrival is left untouched, so concurrent first
// arrivals cannot reset each other's bookkeeping.
func (g *PendingGate) Init(targetPodID string, requiredSourcePodIDs []string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.targets[targetPodID]; ok {
		return
	}
	required := make(map[string]struct{}, len(requiredSourcePodIDs))
	for _, id := range requiredSourcePodIDs {
		required[id] = struct{}{}
	}
	g.targets[targetPodID] = &pendingTarget{
		required:   required,
		seen:       make(map[string]struct{}),
		rejections: make(map[string]string),
	}
}

// RecordCompletion adds a source's summary and evaluates completeness. The
// check and the conditional consume happen in one critical section: when the
// cycle is satisfied without rejection, the record is destroyed and its
// summaries handed to this caller alone.
func (g *PendingGate) RecordCompletion(targetPodID, sourcePodID, summary string) Resolution {
	g.mu.Lock()
	defer g.mu.Unlock()

	p, ok := g.targets[targetPodID]
	if !ok {
		return Resolution{}
	}
	if _, required := p.required[sourcePodID]; !required {
		return g.statusLocked(p)
	}
	if _, dup := p.seen[sourcePodID]; !dup {
		if _, rejected := p.rejections[sourcePodID]; !rejected {
			p.seen[sourcePodID] = struct{}{}
			p.completed = append(p.completed, SourceSummary{SourcePodID: sourcePodID, Summary: summary})
		}
	}
	return g.resolveLocked(targetPodID, p)
}

// RecordRejection adds a rejection. A rejection never fires the target; if
// it completes the cycle, the record is destroyed so a fresh wave can form
// later.
func (g *PendingGate) RecordRejection(targetPodID, sourcePodID, reason string) Resolution {
	g.mu.Lock()
	defer g.mu.Unlock()

	p, ok := g.targets[targetPodID]
	if !ok {
		return Resolution{}
	}
	if _, required := p.required[sourcePodID]; !required {
		return g.statusLocked(p)
	}
	if _, dup := p.seen[sourcePodID]; !dup {
		p.rejections[sourcePodID] = reason
	}
	return g.resolveLocked(targetPodID, p)
}

// resolveLocked evaluates completeness and consumes the record when the
// cycle is over. Fire is set only on a rejection-free satisfied cycle.
func (g *PendingGate) resolveLocked(targetPodID string, p *pendingTarget) Resolution {
	res := g.statusLocked(p)
	if !res.AllResponded {
		return res
	}
	delete(g.targets, targetPodID)
	if !res.HasRejection {
		res.Fire = true
		res.Summaries = p.completed
	}
	return res
}

func (g *PendingGate) statusLocked(p *pendingTarget) Resolution {
	return Resolution{
		AllResponded: len(p.completed)+len(p.rejections) >= len(p.required),
		HasRejection: len(p.rejections) > 0,
	}
}

// Pending reports whether a target currently has an open record.
func (g *PendingGate) Pending(targetPodID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.targets[targetPodID]
	return ok
}

// CompletedSummaries returns the summaries recorded so far, in completion
// order.
func (g *PendingGate) CompletedSummaries(targetPodID string) []SourceSummary {
	g.mu.Lock()
	defer g.mu.Unlock()

	p, ok := g.targets[targetPodID]
	if !ok {
		return nil
	}
	out := make([]SourceSummary, len(p.completed))
	copy(out, p.completed)
	return out
}

// Rejections returns the recorded rejection reasons by source pod.
func (g *PendingGate) Rejections(targetPodID string) map[string]string {
	g.mu.Lock()
	defer g.mu.Unlock()

	p, ok := g.targets[targetPodID]
	if !ok {
		return nil
	}
	out := make(map[string]string, len(p.rejections))
	for k, v := range p.rejections {
		out[k] = v
	}
	return out
}

// Clear destroys a target's record without firing.
func (g *PendingGate) Clear(targetPodID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.targets, targetPodID)
}
