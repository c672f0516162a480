package canvas

import (
	"errors"
	"fmt"
	"time"
)

// PodStatus is the busy/idle state of a pod.
type PodStatus string

const (
	PodIdle     PodStatus = "idle"
	PodChatting PodStatus = "chatting"
	PodError    PodStatus = "error"
)

// TriggerMode is the hand-off strategy carried by a connection.
type TriggerMode string

const (
	TriggerAuto     TriggerMode = "auto"
	TriggerDirect   TriggerMode = "direct"
	TriggerAIDecide TriggerMode = "ai-decide"
)

// DecideStatus tracks the arbitration state of an ai-decide connection.
// It stays "none" for every other trigger mode.
type DecideStatus string

const (
	DecideNone     DecideStatus = "none"
	DecidePending  DecideStatus = "pending"
	DecideApproved DecideStatus = "approved"
	DecideRejected DecideStatus = "rejected"
	DecideError    DecideStatus = "error"
)

// ConnectionStatus is idle except while a hand-off over the connection is
// in flight.
type ConnectionStatus string

const (
	ConnectionIdle   ConnectionStatus = "idle"
	ConnectionActive ConnectionStatus = "active"
)

var (
	ErrPodNotFound        = errors.New("pod not found")
	ErrConnectionNotFound = errors.New("connection not found")
)

// Pod is an addressable agent on a canvas. Agent names the executable in the
// agents directory that backs this pod.
type Pod struct {
	CanvasID  string    `json:"canvas_id"`
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Agent     string    `json:"agent,omitempty"`
	Status    PodStatus `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Connection is a directed edge between two pods carrying a trigger strategy.
type Connection struct {
	CanvasID         string           `json:"canvas_id"`
	ID               string           `json:"id"`
	SourcePodID      string           `json:"source_pod_id"`
	TargetPodID      string           `json:"target_pod_id"`
	TriggerMode      TriggerMode      `json:"trigger_mode"`
	DecideStatus     DecideStatus     `json:"decide_status"`
	DecideReason     string           `json:"decide_reason,omitempty"`
	ConnectionStatus ConnectionStatus `json:"connection_status"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// ParseTriggerMode validates a trigger mode string.
func ParseTriggerMode(s string) (TriggerMode, error) {
	switch TriggerMode(s) {
	case TriggerAuto, TriggerDirect, TriggerAIDecide:
		return TriggerMode(s), nil
	default:
		return "", fmt.Errorf("invalid trigger mode %q (must be auto, direct or ai-decide)", s)
	}
}

// ParsePodStatus validates a pod status string.
func ParsePodStatus(s string) (PodStatus, error) {
	switch PodStatus(s) {
	case PodIdle, PodChatting, PodError:
		return PodStatus(s), nil
	default:
		return "", fmt.Errorf("invalid pod status %q", s)
	}
}
