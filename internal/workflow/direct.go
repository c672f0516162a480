package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ferrolab/podflow/internal/canvas"
	"github.com/ferrolab/podflow/internal/events"
)

// runDirectConnections handles the direct branch. A target with a single
// direct inbound connection triggers immediately; a target with two or more
// joins the debounce window, and only the window's first arrival waits for
// the merged result.
func (e *Engine) runDirectConnections(ctx context.Context, canvasID, sourcePodID string, conns []canvas.Connection) error {
	var errs []error
	for _, conn := range conns {
		if err := e.processDirectConnection(ctx, canvasID, sourcePodID, conn); err != nil {
			e.logger.Error("direct connection failed",
				"connection_id", conn.ID, "target_pod_id", conn.TargetPodID, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (e *Engine) processDirectConnection(ctx context.Context, canvasID, sourcePodID string, conn canvas.Connection) error {
	inbound, err := e.connections.FindByTargetPod(ctx, canvasID, conn.TargetPodID)
	if err != nil {
		return fmt.Errorf("find inbound connections for pod %s: %w", conn.TargetPodID, err)
	}
	directInbound := 0
	for _, in := range inbound {
		if in.TriggerMode == canvas.TriggerDirect {
			directInbound++
		}
	}

	sum, err := e.summaries.GenerateSummaryForTarget(ctx, canvasID, sourcePodID, conn.TargetPodID)
	if err != nil || !sum.Success {
		e.logger.Warn("summary generation failed, skipping edge",
			"connection_id", conn.ID, "target_pod_id", conn.TargetPodID, "error", err)
		return nil
	}

	// Common case: a single direct inbound connection never pays the
	// debounce delay.
	if directInbound <= 1 {
		return e.triggerOrEnqueue(ctx, conn, sum.Summary, true)
	}

	resultCh, first := e.direct.Join(canvasID, conn.TargetPodID, sourcePodID, sum.Summary)
	e.hub.Publish(events.TypeDirectWaiting, events.DirectWaiting{
		CanvasID:         canvasID,
		SourcePodID:      sourcePodID,
		TargetPodID:      conn.TargetPodID,
		ReadySources:     len(e.direct.ReadySummaries(conn.TargetPodID)),
		CountdownSeconds: e.direct.Window().Seconds(),
	})
	if !first {
		// The window's first caller speaks for the whole batch; nothing to
		// await here.
		return nil
	}

	select {
	case res := <-resultCh:
		if !res.Ready {
			return nil
		}
		return e.triggerOrEnqueue(ctx, conn, res.Content, res.IsSummarized)
	case <-ctx.Done():
		e.direct.Clear(conn.TargetPodID)
		return ctx.Err()
	}
}

// MergeResult is delivered on a target's one-shot channel when its debounce
// window closes.
type MergeResult struct {
	Ready        bool
	Content      string
	IsSummarized bool
	SourcePodIDs []string
}

type directPending struct {
	canvasID string
	// gen is bumped on every timer reset; a timer firing with a stale gen is
	// a guaranteed no-op, so replacing a timer can never double-fire.
	gen      uint64
	arrivals []SourceSummary
	timer    *time.Timer
	result   chan MergeResult
}

// DirectAggregator collects direct sources arriving for the same target
// within a debounce window and merges them into a single hand-off. Only the
// first arrival in a window receives the result channel and blocks on it;
// later arrivals reset the countdown and return immediately, so there is
// never more than one waiter or one live timer per target.
type DirectAggregator struct {
	window time.Duration
	hub    *events.Hub
	logger *slog.Logger

	mu      sync.Mutex
	targets map[string]*directPending
}

func NewDirectAggregator(window time.Duration, hub *events.Hub, logger *slog.Logger) *DirectAggregator {
	if window <= 0 {
		window = DefaultDirectMergeWindow
	}
	return &DirectAggregator{
		window:  window,
		hub:     hub,
		logger:  logger.With("component", "direct-merge"),
		targets: make(map[string]*directPending),
	}
}

// Window returns the configured debounce duration.
func (d *DirectAggregator) Window() time.Duration {
	return d.window
}

// Join registers a direct source arrival for a target. The first arrival
// opens the window and gets (resultCh, true); every later arrival within the
// window records its summary, resets the countdown, and gets (nil, false).
func (d *DirectAggregator) Join(canvasID, targetPodID, sourcePodID, summary string) (<-chan MergeResult, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	p, ok := d.targets[targetPodID]
	if !ok {
		p = &directPending{
			canvasID: canvasID,
			gen:      1,
			arrivals: []SourceSummary{{SourcePodID: sourcePodID, Summary: summary}},
			result:   make(chan MergeResult, 1),
		}
		gen := p.gen
		p.timer = time.AfterFunc(d.window, func() { d.expire(targetPodID, gen) })
		d.targets[targetPodID] = p
		return p.result, true
	}

	if i := indexOfSource(p.arrivals, sourcePodID); i >= 0 {
		// Same source again within the window: refresh its content, keep
		// arrival order.
		p.arrivals[i].Summary = summary
	} else {
		p.arrivals = append(p.arrivals, SourceSummary{SourcePodID: sourcePodID, Summary: summary})
	}

	// Replace, never duplicate, the outstanding timer.
	p.gen++
	gen := p.gen
	p.timer.Stop()
	p.timer = time.AfterFunc(d.window, func() { d.expire(targetPodID, gen) })
	return nil, false
}

// expire closes the window for a target. Stale generations (a timer that was
// logically replaced but fired anyway) do nothing.
func (d *DirectAggregator) expire(targetPodID string, gen uint64) {
	d.mu.Lock()
	p, ok := d.targets[targetPodID]
	if !ok || p.gen != gen {
		d.mu.Unlock()
		return
	}
	delete(d.targets, targetPodID)
	d.mu.Unlock()

	sources := make([]string, len(p.arrivals))
	for i, a := range p.arrivals {
		sources[i] = a.SourcePodID
	}

	res := MergeResult{
		Ready:        true,
		IsSummarized: true,
		SourcePodIDs: sources,
	}
	if len(p.arrivals) == 1 {
		// Rare race: the window opened but no second source completed in
		// this cycle. Hand the single summary through unmerged.
		res.Content = p.arrivals[0].Summary
	} else {
		res.Content = MergeSummaries(p.arrivals)
		d.hub.Publish(events.TypeDirectMerged, events.DirectMerged{
			CanvasID:         p.canvasID,
			TargetPodID:      targetPodID,
			SourcePodIDs:     sources,
			CountdownSeconds: 0,
		})
	}

	d.logger.Debug("direct window closed",
		"canvas_id", p.canvasID,
		"target_pod_id", targetPodID,
		"sources", len(sources))

	// Buffered one-shot channel; the send can never block.
	p.result <- res
}

// Pending reports whether a target has an open window.
func (d *DirectAggregator) Pending(targetPodID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.targets[targetPodID]
	return ok
}

// ReadySummaries returns the summaries collected so far, in arrival order.
func (d *DirectAggregator) ReadySummaries(targetPodID string) []SourceSummary {
	d.mu.Lock()
	defer d.mu.Unlock()

	p, ok := d.targets[targetPodID]
	if !ok {
		return nil
	}
	out := make([]SourceSummary, len(p.arrivals))
	copy(out, p.arrivals)
	return out
}

// Clear cancels a target's open window without firing. The waiter, if any,
// is released with Ready false.
func (d *DirectAggregator) Clear(targetPodID string) {
	d.mu.Lock()
	p, ok := d.targets[targetPodID]
	if ok {
		p.timer.Stop()
		delete(d.targets, targetPodID)
	}
	d.mu.Unlock()

	if ok {
		p.result <- MergeResult{Ready: false}
	}
}

// MergeSummaries concatenates summaries into one hand-off block, arrival
// order preserved.
func MergeSummaries(arrivals []SourceSummary) string {
	blocks := make([]string, len(arrivals))
	for i, a := range arrivals {
		blocks[i] = a.Summary
	}
	return strings.Join(blocks, "\n\n---\n\n")
}

func indexOfSource(arrivals []SourceSummary, sourcePodID string) int {
	for i, a := range arrivals {
		if a.SourcePodID == sourcePodID {
			return i
		}
	}
	return -1
}
