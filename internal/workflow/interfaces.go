package workflow

import (
	"context"
	"time"

	"github.com/ferrolab/podflow/internal/canvas"
)

//go:generate mockgen -destination=mocks/mock_workflow.go -package=mocks github.com/ferrolab/podflow/internal/workflow ConnectionStore,PodStore,SummaryGenerator,DecisionService,ChatDispatcher

// ConnectionStore is the engine's view of the connection registry.
type ConnectionStore interface {
	FindBySourcePod(ctx context.Context, canvasID, podID string) ([]canvas.Connection, error)
	FindByTargetPod(ctx context.Context, canvasID, podID string) ([]canvas.Connection, error)
	GetConnection(ctx context.Context, canvasID, id string) (canvas.Connection, error)
	UpdateDecideStatus(ctx context.Context, canvasID, id string, status canvas.DecideStatus, reason string) error
	UpdateConnectionStatus(ctx context.Context, canvasID, id string, status canvas.ConnectionStatus) error
}

// PodStore is the engine's view of the pod registry.
type PodStore interface {
	GetPod(ctx context.Context, canvasID, podID string) (canvas.Pod, error)
	SetPodStatus(ctx context.Context, canvasID, podID string, status canvas.PodStatus) error
}

// SummaryResult is the outcome of a summary-generation call. Success false
// means "do not trigger this edge"; it is not an error.
type SummaryResult struct {
	Success bool
	Summary string
}

// SummaryGenerator produces the hand-off content for a (source, target) pair.
type SummaryGenerator interface {
	GenerateSummaryForTarget(ctx context.Context, canvasID, sourcePodID, targetPodID string) (SummaryResult, error)
}

// Decision is the external arbiter's verdict for one ai-decide connection.
type Decision struct {
	ConnectionID  string
	ShouldTrigger bool
	Reason        string
}

// DecisionError reports a per-connection failure inside a decide batch.
type DecisionError struct {
	ConnectionID string
	Err          string
}

// DecisionOutcome carries the arbiter's verdicts and per-connection errors
// for one batch.
type DecisionOutcome struct {
	Results []Decision
	Errors  []DecisionError
}

// DecisionService arbitrates a batch of ai-decide connections from one
// source completion.
type DecisionService interface {
	DecideConnections(ctx context.Context, canvasID, sourcePodID string, conns []canvas.Connection) (DecisionOutcome, error)
}

// ChatDispatcher delivers hand-off content to a pod's chat channel. onChunk,
// if non-nil, receives streamed output; the engine never interprets it.
type ChatDispatcher interface {
	SendMessage(ctx context.Context, canvasID, podID, content string, onChunk func(chunk string)) error
}

// Config holds the engine tunables.
type Config struct {
	// DirectMergeWindow is the debounce window for targets with two or more
	// direct inbound connections. Each new arrival resets the countdown.
	DirectMergeWindow time.Duration
}

// DefaultDirectMergeWindow is a tunable default, not a protocol guarantee.
const DefaultDirectMergeWindow = 3 * time.Second

func (c Config) withDefaults() Config {
	if c.DirectMergeWindow <= 0 {
		c.DirectMergeWindow = DefaultDirectMergeWindow
	}
	return c
}
