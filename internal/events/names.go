package events

// Event types published by the workflow engine. Every terminal outcome of a
// trigger cycle has a corresponding event; nothing that reaches the execution
// pipeline fails silently.
const (
	TypeWorkflowTriggered     = "workflow:triggered"
	TypeWorkflowAutoTriggered = "workflow:auto-triggered"
	TypeWorkflowComplete      = "workflow:complete"
	TypeWorkflowQueued        = "workflow:queued"
	TypeQueueProcessed        = "workflow:queue-processed"
	TypeDecidePending         = "ai-decide:pending"
	TypeDecideResult          = "ai-decide:result"
	TypeDirectWaiting         = "direct:waiting"
	TypeDirectMerged          = "direct:merged"
)

// WorkflowTriggered is published when the execution pipeline starts a
// hand-off for a connection.
type WorkflowTriggered struct {
	CanvasID     string `json:"canvas_id"`
	ConnectionID string `json:"connection_id"`
	SourcePodID  string `json:"source_pod_id"`
	TargetPodID  string `json:"target_pod_id"`
	TriggerMode  string `json:"trigger_mode"`
}

// WorkflowComplete is published when a hand-off finishes, successfully or not.
type WorkflowComplete struct {
	CanvasID     string `json:"canvas_id"`
	ConnectionID string `json:"connection_id"`
	TargetPodID  string `json:"target_pod_id"`
	Success      bool   `json:"success"`
	Error        string `json:"error,omitempty"`
}

// WorkflowQueued is published when a trigger is parked because the target
// pod is busy.
type WorkflowQueued struct {
	CanvasID     string `json:"canvas_id"`
	ConnectionID string `json:"connection_id"`
	TargetPodID  string `json:"target_pod_id"`
	TriggerMode  string `json:"trigger_mode"`
	Position     int    `json:"position"`
	QueueSize    int    `json:"queue_size"`
}

// QueueProcessed is published when a parked trigger is taken off a target's
// queue for execution.
type QueueProcessed struct {
	CanvasID           string `json:"canvas_id"`
	ConnectionID       string `json:"connection_id"`
	TargetPodID        string `json:"target_pod_id"`
	TriggerMode        string `json:"trigger_mode"`
	RemainingQueueSize int    `json:"remaining_queue_size"`
}

// DecidePending is published once per ai-decide batch, before the external
// decision call is made.
type DecidePending struct {
	CanvasID      string   `json:"canvas_id"`
	SourcePodID   string   `json:"source_pod_id"`
	ConnectionIDs []string `json:"connection_ids"`
}

// DecideResult is published per connection once the external decision call
// resolves. Status is approved, rejected or error.
type DecideResult struct {
	CanvasID     string `json:"canvas_id"`
	ConnectionID string `json:"connection_id"`
	SourcePodID  string `json:"source_pod_id"`
	TargetPodID  string `json:"target_pod_id"`
	Status       string `json:"status"`
	Reason       string `json:"reason,omitempty"`
}

// DirectWaiting is published each time a direct source joins a target's open
// debounce window.
type DirectWaiting struct {
	CanvasID         string  `json:"canvas_id"`
	SourcePodID      string  `json:"source_pod_id"`
	TargetPodID      string  `json:"target_pod_id"`
	ReadySources     int     `json:"ready_sources"`
	CountdownSeconds float64 `json:"countdown_seconds"`
}

// DirectMerged is published when a debounce window closes with two or more
// ready sources.
type DirectMerged struct {
	CanvasID         string   `json:"canvas_id"`
	TargetPodID      string   `json:"target_pod_id"`
	SourcePodIDs     []string `json:"source_pod_ids"`
	CountdownSeconds float64  `json:"countdown_seconds"`
}
