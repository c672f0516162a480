package agent

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// SupportedProtocol is the envelope version spoken on agent stdin/stdout.
const SupportedProtocol = 1

// Request is the envelope written to an agent subprocess via stdin.
type Request struct {
	Protocol  int    `json:"protocol"`
	RequestID string `json:"request_id"`
	Command   string `json:"command"` // summarize | decide | chat | health
	CanvasID  string `json:"canvas_id,omitempty"`

	// summarize
	SourcePodID string `json:"source_pod_id,omitempty"`
	TargetPodID string `json:"target_pod_id,omitempty"`

	// decide
	Candidates []Candidate `json:"candidates,omitempty"`

	// chat
	PodID   string `json:"pod_id,omitempty"`
	Content string `json:"content,omitempty"`

	DeadlineAt time.Time `json:"deadline_at"`
}

// Candidate is one ai-decide connection offered to the arbiter.
type Candidate struct {
	ConnectionID  string `json:"connection_id"`
	TargetPodID   string `json:"target_pod_id"`
	TargetPodName string `json:"target_pod_name,omitempty"`
}

// Verdict is the arbiter's answer for one candidate.
type Verdict struct {
	ConnectionID  string `json:"connection_id"`
	ShouldTrigger bool   `json:"should_trigger"`
	Reason        string `json:"reason,omitempty"`
	Error         string `json:"error,omitempty"`
}

// Response is the envelope read from an agent subprocess via stdout.
// Summarize and decide commands answer with a single Response object; the
// chat command streams Frame lines instead (see codec below).
type Response struct {
	Status string `json:"status"` // ok | error
	Error  string `json:"error,omitempty"`

	// summarize
	Success bool   `json:"success,omitempty"`
	Summary string `json:"summary,omitempty"`

	// decide
	Verdicts []Verdict `json:"verdicts,omitempty"`

	Logs []LogEntry `json:"logs,omitempty"`
}

// Frame is one newline-delimited JSON line streamed by the chat command.
// Agents emit zero or more chunk frames followed by exactly one done frame.
type Frame struct {
	Type    string `json:"type"` // chunk | done
	Content string `json:"content,omitempty"`
	Status  string `json:"status,omitempty"` // done frames: ok | error
	Error   string `json:"error,omitempty"`
}

// LogEntry is a log message surfaced by an agent.
type LogEntry struct {
	Level   string `json:"level"` // debug | info | warn | error
	Message string `json:"message"`
}

// EncodeRequest serializes req as a single JSON document on w.
func EncodeRequest(w io.Writer, req *Request) error {
	if req.Protocol != SupportedProtocol {
		return fmt.Errorf("unsupported protocol version: %d", req.Protocol)
	}
	if err := json.NewEncoder(w).Encode(req); err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}
	return nil
}

// DecodeResponse reads an agent's stdout and validates the envelope. The raw
// bytes are returned alongside decode failures so callers can log what the
// agent actually produced.
func DecodeResponse(r io.Reader) (*Response, []byte, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read response: %w", err)
	}
	if len(data) == 0 {
		return nil, data, fmt.Errorf("agent produced no output on stdout")
	}

	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, data, fmt.Errorf("agent output is not valid JSON: %w", err)
	}

	if resp.Status == "" {
		return nil, data, fmt.Errorf("response missing required field: status")
	}
	if resp.Status != "ok" && resp.Status != "error" {
		return nil, data, fmt.Errorf("invalid status value: %q (must be 'ok' or 'error')", resp.Status)
	}
	if resp.Status == "error" && resp.Error == "" {
		return nil, data, fmt.Errorf("response has status=error but no error message")
	}

	return &resp, data, nil
}

// DecodeFrame parses one streamed chat line.
func DecodeFrame(line []byte) (*Frame, error) {
	var f Frame
	if err := json.Unmarshal(line, &f); err != nil {
		return nil, fmt.Errorf("chat frame is not valid JSON: %w", err)
	}
	switch f.Type {
	case "chunk":
		return &f, nil
	case "done":
		if f.Status == "" {
			return nil, fmt.Errorf("done frame missing required field: status")
		}
		if f.Status != "ok" && f.Status != "error" {
			return nil, fmt.Errorf("invalid done frame status: %q", f.Status)
		}
		if f.Status == "error" && f.Error == "" {
			return nil, fmt.Errorf("done frame has status=error but no error message")
		}
		return &f, nil
	default:
		return nil, fmt.Errorf("unknown chat frame type: %q", f.Type)
	}
}
