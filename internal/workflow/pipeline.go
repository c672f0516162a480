package workflow

import (
	"context"
	"fmt"

	"github.com/ferrolab/podflow/internal/canvas"
	"github.com/ferrolab/podflow/internal/events"
)

// TriggerWorkflowWithSummary executes one hand-off: marks the connection and
// target pod busy, emits the trigger events, dispatches the content to the
// target's chat channel, and restores state on completion. A dispatch
// failure restores the pod to idle, emits workflow:complete with success
// false, and is returned to the caller. Success or failure, the next queued
// item for the target is processed fire-and-forget after the completion
// event.
func (e *Engine) TriggerWorkflowWithSummary(ctx context.Context, canvasID, connectionID, summary string, isSummarized, skipAutoTriggeredEvent bool) error {
	conn, err := e.connections.GetConnection(ctx, canvasID, connectionID)
	if err != nil {
		return fmt.Errorf("resolve connection %s: %w", connectionID, err)
	}

	if err := e.connections.UpdateConnectionStatus(ctx, canvasID, connectionID, canvas.ConnectionActive); err != nil {
		return fmt.Errorf("activate connection %s: %w", connectionID, err)
	}
	if err := e.pods.SetPodStatus(ctx, canvasID, conn.TargetPodID, canvas.PodChatting); err != nil {
		if restoreErr := e.connections.UpdateConnectionStatus(ctx, canvasID, connectionID, canvas.ConnectionIdle); restoreErr != nil {
			e.logger.Error("failed to restore connection status",
				"connection_id", connectionID, "error", restoreErr)
		}
		return fmt.Errorf("mark pod %s chatting: %w", conn.TargetPodID, err)
	}

	triggered := events.WorkflowTriggered{
		CanvasID:     canvasID,
		ConnectionID: connectionID,
		SourcePodID:  conn.SourcePodID,
		TargetPodID:  conn.TargetPodID,
		TriggerMode:  string(conn.TriggerMode),
	}
	e.hub.Publish(events.TypeWorkflowTriggered, triggered)
	if !skipAutoTriggeredEvent {
		// Direct and ai-decide connections already announced themselves via
		// their waiting/merged/decide events.
		e.hub.Publish(events.TypeWorkflowAutoTriggered, triggered)
	}

	// Queue continuation runs after the completion event, success or
	// failure, without blocking the return to the caller. WithoutCancel:
	// the caller's cancellation must not stall the target's queue.
	defer func() {
		next := context.WithoutCancel(ctx)
		go e.continueQueue(next, canvasID, conn.TargetPodID)
	}()

	e.logger.Info("dispatching hand-off",
		"canvas_id", canvasID,
		"connection_id", connectionID,
		"target_pod_id", conn.TargetPodID,
		"is_summarized", isSummarized)

	dispatchErr := e.chat.SendMessage(ctx, canvasID, conn.TargetPodID, summary, nil)

	// Never leave a pod stuck chatting, whatever the dispatch outcome.
	if err := e.pods.SetPodStatus(ctx, canvasID, conn.TargetPodID, canvas.PodIdle); err != nil {
		e.logger.Error("failed to restore pod status",
			"pod_id", conn.TargetPodID, "error", err)
	}
	if err := e.connections.UpdateConnectionStatus(ctx, canvasID, connectionID, canvas.ConnectionIdle); err != nil {
		e.logger.Error("failed to restore connection status",
			"connection_id", connectionID, "error", err)
	}

	if dispatchErr != nil {
		e.hub.Publish(events.TypeWorkflowComplete, events.WorkflowComplete{
			CanvasID:     canvasID,
			ConnectionID: connectionID,
			TargetPodID:  conn.TargetPodID,
			Success:      false,
			Error:        dispatchErr.Error(),
		})
		return fmt.Errorf("dispatch to pod %s: %w", conn.TargetPodID, dispatchErr)
	}

	e.hub.Publish(events.TypeWorkflowComplete, events.WorkflowComplete{
		CanvasID:     canvasID,
		ConnectionID: connectionID,
		TargetPodID:  conn.TargetPodID,
		Success:      true,
	})
	return nil
}

// continueQueue is the fire-and-forget continuation spawned after every
// pipeline completion. Its errors are logged here and never propagated.
func (e *Engine) continueQueue(ctx context.Context, canvasID, targetPodID string) {
	if err := e.ProcessNextInQueue(ctx, canvasID, targetPodID); err != nil {
		e.logger.Error("queue continuation failed",
			"canvas_id", canvasID, "target_pod_id", targetPodID, "error", err)
	}
}

// ProcessNextInQueue dequeues the next parked trigger for the target, if
// any, and executes it through the pipeline. The pipeline's own completion
// spawns the next continuation, so a busy target's queue drains itself one
// item at a time.
func (e *Engine) ProcessNextInQueue(ctx context.Context, canvasID, targetPodID string) error {
	item, ok := e.queues.Dequeue(targetPodID)
	if !ok {
		return nil
	}
	remaining := e.queues.Size(targetPodID)

	if err := e.connections.UpdateConnectionStatus(ctx, item.CanvasID, item.ConnectionID, canvas.ConnectionActive); err != nil {
		return fmt.Errorf("activate queued connection %s: %w", item.ConnectionID, err)
	}

	e.hub.Publish(events.TypeQueueProcessed, events.QueueProcessed{
		CanvasID:           item.CanvasID,
		ConnectionID:       item.ConnectionID,
		TargetPodID:        item.TargetPodID,
		TriggerMode:        string(item.TriggerMode),
		RemainingQueueSize: remaining,
	})

	skipAutoTriggeredEvent := item.TriggerMode != canvas.TriggerAuto
	return e.TriggerWorkflowWithSummary(ctx, item.CanvasID, item.ConnectionID, item.Summary, item.IsSummarized, skipAutoTriggeredEvent)
}
