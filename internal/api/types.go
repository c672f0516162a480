package api

// CreatePodRequest is the JSON body for POST /canvas/{canvasID}/pods.
type CreatePodRequest struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Agent string `json:"agent,omitempty"`
}

// CreateConnectionRequest is the JSON body for POST /canvas/{canvasID}/connections.
type CreateConnectionRequest struct {
	ID          string `json:"id,omitempty"`
	SourcePodID string `json:"source_pod_id"`
	TargetPodID string `json:"target_pod_id"`
	TriggerMode string `json:"trigger_mode"`
}

// CompleteResponse is returned by POST .../pods/{podID}/complete.
type CompleteResponse struct {
	Status      string `json:"status"`
	CanvasID    string `json:"canvas_id"`
	SourcePodID string `json:"source_pod_id"`
}

// QueueResponse is returned by GET .../pods/{podID}/queue.
type QueueResponse struct {
	TargetPodID string      `json:"target_pod_id"`
	Size        int         `json:"size"`
	Items       []QueueItem `json:"items"`
}

// QueueItem is one parked trigger in a pod's queue.
type QueueItem struct {
	ConnectionID string `json:"connection_id"`
	SourcePodID  string `json:"source_pod_id"`
	TriggerMode  string `json:"trigger_mode"`
	Summarized   bool   `json:"summarized"`
}

// ErrorResponse is returned on errors.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthzResponse is returned by GET /healthz.
type HealthzResponse struct {
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}
