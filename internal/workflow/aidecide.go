package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/ferrolab/podflow/internal/canvas"
	"github.com/ferrolab/podflow/internal/events"
)

// runAIDecideConnections arbitrates the ai-decide branch. The whole batch
// from one source completion goes to the decision service in a single call;
// each verdict then fans back into the same gated trigger path the auto
// strategy uses.
func (e *Engine) runAIDecideConnections(ctx context.Context, canvasID, sourcePodID string, conns []canvas.Connection) error {
	if len(conns) == 0 {
		return nil
	}

	ids := make([]string, 0, len(conns))
	byID := make(map[string]canvas.Connection, len(conns))
	for _, conn := range conns {
		ids = append(ids, conn.ID)
		byID[conn.ID] = conn
		if err := e.connections.UpdateDecideStatus(ctx, canvasID, conn.ID, canvas.DecidePending, ""); err != nil {
			e.logger.Error("failed to mark connection decide-pending",
				"connection_id", conn.ID, "error", err)
		}
	}
	e.hub.Publish(events.TypeDecidePending, events.DecidePending{
		CanvasID:      canvasID,
		SourcePodID:   sourcePodID,
		ConnectionIDs: ids,
	})

	outcome, err := e.decider.DecideConnections(ctx, canvasID, sourcePodID, conns)
	if err != nil {
		// The call itself failed: every connection in the batch is errored.
		for _, conn := range conns {
			e.recordDecideError(ctx, conn, err.Error())
		}
		return fmt.Errorf("decide connections for pod %s: %w", sourcePodID, err)
	}

	var errs []error
	for _, verdict := range outcome.Results {
		conn, ok := byID[verdict.ConnectionID]
		if !ok {
			e.logger.Warn("decision service returned unknown connection",
				"connection_id", verdict.ConnectionID)
			continue
		}
		if verdict.ShouldTrigger {
			if err := e.approveAndTrigger(ctx, conn, verdict.Reason); err != nil {
				errs = append(errs, err)
			}
		} else {
			e.rejectConnection(ctx, conn, verdict.Reason)
		}
	}
	for _, decErr := range outcome.Errors {
		conn, ok := byID[decErr.ConnectionID]
		if !ok {
			e.logger.Warn("decision service errored an unknown connection",
				"connection_id", decErr.ConnectionID)
			continue
		}
		e.recordDecideError(ctx, conn, decErr.Err)
	}
	return errors.Join(errs...)
}

// approveAndTrigger marks the connection approved, then behaves exactly like
// an approved auto connection: summary, gate when multi-input, and
// trigger-or-enqueue.
func (e *Engine) approveAndTrigger(ctx context.Context, conn canvas.Connection, reason string) error {
	if err := e.connections.UpdateDecideStatus(ctx, conn.CanvasID, conn.ID, canvas.DecideApproved, reason); err != nil {
		e.logger.Error("failed to mark connection approved",
			"connection_id", conn.ID, "error", err)
	}
	e.publishDecideResult(conn, string(canvas.DecideApproved), reason)

	if err := e.processGatedConnection(ctx, conn); err != nil {
		e.logger.Error("approved connection failed to trigger",
			"connection_id", conn.ID, "error", err)
		return err
	}
	return nil
}

// rejectConnection marks the connection rejected. For a multi-input target
// the rejection is recorded against the gate so the target cannot fire this
// cycle; it is never retried within the cycle.
func (e *Engine) rejectConnection(ctx context.Context, conn canvas.Connection, reason string) {
	if err := e.connections.UpdateDecideStatus(ctx, conn.CanvasID, conn.ID, canvas.DecideRejected, reason); err != nil {
		e.logger.Error("failed to mark connection rejected",
			"connection_id", conn.ID, "error", err)
	}
	e.publishDecideResult(conn, string(canvas.DecideRejected), reason)

	multi, required, err := e.checkMultiInput(ctx, conn.CanvasID, conn.TargetPodID)
	if err != nil {
		e.logger.Error("failed to evaluate multi-input scenario after rejection",
			"target_pod_id", conn.TargetPodID, "error", err)
		return
	}
	if !multi {
		return
	}
	e.gate.Init(conn.TargetPodID, required)
	res := e.gate.RecordRejection(conn.TargetPodID, conn.SourcePodID, reason)
	e.logger.Info("recorded rejection against multi-input target",
		"target_pod_id", conn.TargetPodID,
		"all_responded", res.AllResponded)
}

// recordDecideError marks a connection errored by the decision service.
// No trigger, no gate interaction.
func (e *Engine) recordDecideError(ctx context.Context, conn canvas.Connection, msg string) {
	if err := e.connections.UpdateDecideStatus(ctx, conn.CanvasID, conn.ID, canvas.DecideError, msg); err != nil {
		e.logger.Error("failed to mark connection decide-error",
			"connection_id", conn.ID, "error", err)
	}
	e.publishDecideResult(conn, string(canvas.DecideError), msg)
}

func (e *Engine) publishDecideResult(conn canvas.Connection, status, reason string) {
	e.hub.Publish(events.TypeDecideResult, events.DecideResult{
		CanvasID:     conn.CanvasID,
		ConnectionID: conn.ID,
		SourcePodID:  conn.SourcePodID,
		TargetPodID:  conn.TargetPodID,
		Status:       status,
		Reason:       reason,
	})
}
