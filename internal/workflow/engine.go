package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/ferrolab/podflow/internal/canvas"
	"github.com/ferrolab/podflow/internal/events"
)

// Engine is the trigger/queueing engine. It owns the per-target queues, the
// multi-input gate and the direct-merge aggregator; everything else is an
// injected collaborator.
type Engine struct {
	cfg         Config
	connections ConnectionStore
	pods        PodStore
	summaries   SummaryGenerator
	decider     DecisionService
	chat        ChatDispatcher
	hub         *events.Hub

	queues *Queues
	gate   *PendingGate
	direct *DirectAggregator

	logger *slog.Logger
}

func New(
	cfg Config,
	connections ConnectionStore,
	pods PodStore,
	summaries SummaryGenerator,
	decider DecisionService,
	chat ChatDispatcher,
	hub *events.Hub,
	logger *slog.Logger,
) *Engine {
	cfg = cfg.withDefaults()
	if hub == nil {
		hub = events.NewHub(256)
	}
	logger = logger.With("component", "workflow")
	return &Engine{
		cfg:         cfg,
		connections: connections,
		pods:        pods,
		summaries:   summaries,
		decider:     decider,
		chat:        chat,
		hub:         hub,
		queues:      NewQueues(),
		gate:        NewPendingGate(),
		direct:      NewDirectAggregator(cfg.DirectMergeWindow, hub, logger),
		logger:      logger,
	}
}

// Queues exposes the per-target queue store for the API and tests.
func (e *Engine) Queues() *Queues { return e.queues }

// Gate exposes the multi-input gate for adjacent services and tests.
func (e *Engine) Gate() *PendingGate { return e.gate }

// Direct exposes the direct-merge aggregator for adjacent services and tests.
func (e *Engine) Direct() *DirectAggregator { return e.direct }

// CheckAndTriggerWorkflows is the entry point called when a source pod
// finishes producing output. It partitions the pod's outgoing connections by
// trigger mode and runs the three strategy branches concurrently; one
// branch's failure never aborts the others.
func (e *Engine) CheckAndTriggerWorkflows(ctx context.Context, canvasID, sourcePodID string) error {
	conns, err := e.connections.FindBySourcePod(ctx, canvasID, sourcePodID)
	if err != nil {
		return fmt.Errorf("find outgoing connections for pod %s: %w", sourcePodID, err)
	}
	if len(conns) == 0 {
		return nil
	}

	var auto, direct, decide []canvas.Connection
	for _, conn := range conns {
		switch conn.TriggerMode {
		case canvas.TriggerAuto:
			auto = append(auto, conn)
		case canvas.TriggerDirect:
			direct = append(direct, conn)
		case canvas.TriggerAIDecide:
			decide = append(decide, conn)
		default:
			e.logger.Warn("skipping connection with unknown trigger mode",
				"connection_id", conn.ID, "trigger_mode", conn.TriggerMode)
		}
	}

	e.logger.Debug("checking workflows",
		"canvas_id", canvasID,
		"source_pod_id", sourcePodID,
		"auto", len(auto), "direct", len(direct), "ai_decide", len(decide))

	// Plain errgroup.Group: no shared context cancellation, so the branches
	// run to completion independently. Wait reports the first failure.
	var g errgroup.Group
	g.Go(func() error { return e.runAutoConnections(ctx, auto) })
	g.Go(func() error { return e.runAIDecideConnections(ctx, canvasID, sourcePodID, decide) })
	g.Go(func() error { return e.runDirectConnections(ctx, canvasID, sourcePodID, direct) })
	return g.Wait()
}

// runAutoConnections handles the auto branch: each connection is processed
// independently and failures are collected, not short-circuited.
func (e *Engine) runAutoConnections(ctx context.Context, conns []canvas.Connection) error {
	var errs []error
	for _, conn := range conns {
		if err := e.processGatedConnection(ctx, conn); err != nil {
			e.logger.Error("auto connection failed",
				"connection_id", conn.ID, "target_pod_id", conn.TargetPodID, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// processGatedConnection handles an auto or approved ai-decide connection:
// generate the summary, then either trigger-or-enqueue directly or record
// the completion against the multi-input gate and fire only when the gate
// says every required source has responded without rejection.
func (e *Engine) processGatedConnection(ctx context.Context, conn canvas.Connection) error {
	multi, required, err := e.checkMultiInput(ctx, conn.CanvasID, conn.TargetPodID)
	if err != nil {
		return err
	}

	sum, err := e.summaries.GenerateSummaryForTarget(ctx, conn.CanvasID, conn.SourcePodID, conn.TargetPodID)
	if err != nil || !sum.Success {
		// Summary failure skips this edge: no event, no retry.
		e.logger.Warn("summary generation failed, skipping edge",
			"connection_id", conn.ID, "target_pod_id", conn.TargetPodID, "error", err)
		return nil
	}

	if !multi {
		return e.triggerOrEnqueue(ctx, conn, sum.Summary, true)
	}

	e.gate.Init(conn.TargetPodID, required)
	res := e.gate.RecordCompletion(conn.TargetPodID, conn.SourcePodID, sum.Summary)
	if !res.Fire {
		if res.HasRejection {
			e.logger.Info("multi-input target closed by rejection",
				"target_pod_id", conn.TargetPodID, "all_responded", res.AllResponded)
		} else {
			e.logger.Debug("multi-input target waiting for more sources",
				"target_pod_id", conn.TargetPodID)
		}
		return nil
	}
	return e.triggerOrEnqueue(ctx, conn, MergeSummaries(res.Summaries), true)
}

// checkMultiInput reports whether the target requires two or more upstream
// sources (distinct source pods over auto and ai-decide inbound connections)
// and returns that required set.
func (e *Engine) checkMultiInput(ctx context.Context, canvasID, targetPodID string) (bool, []string, error) {
	inbound, err := e.connections.FindByTargetPod(ctx, canvasID, targetPodID)
	if err != nil {
		return false, nil, fmt.Errorf("find inbound connections for pod %s: %w", targetPodID, err)
	}

	seen := make(map[string]struct{})
	var required []string
	for _, conn := range inbound {
		if conn.TriggerMode != canvas.TriggerAuto && conn.TriggerMode != canvas.TriggerAIDecide {
			continue
		}
		if _, ok := seen[conn.SourcePodID]; ok {
			continue
		}
		seen[conn.SourcePodID] = struct{}{}
		required = append(required, conn.SourcePodID)
	}
	return len(required) >= 2, required, nil
}

// triggerOrEnqueue is the shared decision point once content is ready and
// gating has cleared: dispatch now if the target is idle, park on the queue
// if it is busy.
func (e *Engine) triggerOrEnqueue(ctx context.Context, conn canvas.Connection, content string, isSummarized bool) error {
	pod, err := e.pods.GetPod(ctx, conn.CanvasID, conn.TargetPodID)
	if err != nil {
		return fmt.Errorf("resolve target pod %s: %w", conn.TargetPodID, err)
	}

	if pod.Status == canvas.PodChatting {
		item := Item{
			CanvasID:     conn.CanvasID,
			ConnectionID: conn.ID,
			SourcePodID:  conn.SourcePodID,
			TargetPodID:  conn.TargetPodID,
			Summary:      content,
			IsSummarized: isSummarized,
			TriggerMode:  conn.TriggerMode,
		}
		position, size := e.queues.Enqueue(item)
		e.hub.Publish(events.TypeWorkflowQueued, events.WorkflowQueued{
			CanvasID:     conn.CanvasID,
			ConnectionID: conn.ID,
			TargetPodID:  conn.TargetPodID,
			TriggerMode:  string(conn.TriggerMode),
			Position:     position,
			QueueSize:    size,
		})
		e.logger.Info("target busy, queued trigger",
			"connection_id", conn.ID, "target_pod_id", conn.TargetPodID, "position", position)
		return nil
	}

	skipAutoTriggeredEvent := conn.TriggerMode != canvas.TriggerAuto
	return e.TriggerWorkflowWithSummary(ctx, conn.CanvasID, conn.ID, content, isSummarized, skipAutoTriggeredEvent)
}
