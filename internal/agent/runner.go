package agent

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/ferrolab/podflow/internal/canvas"
	"github.com/ferrolab/podflow/internal/log"
	"github.com/ferrolab/podflow/internal/workflow"
)

const (
	// maxStderrBytes caps the amount of stderr captured from agent execution.
	maxStderrBytes = 64 * 1024

	// terminationGracePeriod is the time we wait after SIGTERM before SIGKILL.
	terminationGracePeriod = 5 * time.Second

	// maxFrameBytes bounds a single streamed chat frame line.
	maxFrameBytes = 1024 * 1024
)

// PodResolver maps pod IDs to pod records so the runner can pick the backing
// agent executable.
type PodResolver interface {
	GetPod(ctx context.Context, canvasID, podID string) (canvas.Pod, error)
}

// Timeouts holds per-command execution limits.
type Timeouts struct {
	Summarize time.Duration
	Decide    time.Duration
	Chat      time.Duration
	Health    time.Duration
}

func (t Timeouts) withDefaults() Timeouts {
	if t.Summarize <= 0 {
		t.Summarize = 60 * time.Second
	}
	if t.Decide <= 0 {
		t.Decide = 60 * time.Second
	}
	if t.Chat <= 0 {
		t.Chat = 300 * time.Second
	}
	if t.Health <= 0 {
		t.Health = 10 * time.Second
	}
	return t
}

// Runner executes agent subprocesses on behalf of the workflow engine. It
// satisfies workflow.SummaryGenerator, workflow.DecisionService and
// workflow.ChatDispatcher.
type Runner struct {
	registry *Registry
	pods     PodResolver
	timeouts Timeouts
	logger   *slog.Logger
}

// NewRunner creates a Runner over a discovered registry.
func NewRunner(registry *Registry, pods PodResolver, timeouts Timeouts) *Runner {
	return &Runner{
		registry: registry,
		pods:     pods,
		timeouts: timeouts.withDefaults(),
		logger:   log.WithComponent("agent"),
	}
}

var (
	_ workflow.SummaryGenerator = (*Runner)(nil)
	_ workflow.DecisionService  = (*Runner)(nil)
	_ workflow.ChatDispatcher   = (*Runner)(nil)
)

// GenerateSummaryForTarget asks the source pod's agent to summarize its
// conversation for a specific downstream target.
func (r *Runner) GenerateSummaryForTarget(ctx context.Context, canvasID, sourcePodID, targetPodID string) (workflow.SummaryResult, error) {
	agent, err := r.agentForPod(ctx, canvasID, sourcePodID, "summarize")
	if err != nil {
		return workflow.SummaryResult{}, err
	}

	timeout := r.timeouts.Summarize
	req := &Request{
		Protocol:    SupportedProtocol,
		RequestID:   uuid.NewString(),
		Command:     "summarize",
		CanvasID:    canvasID,
		SourcePodID: sourcePodID,
		TargetPodID: targetPodID,
		DeadlineAt:  time.Now().Add(timeout),
	}

	resp, err := r.runOnce(ctx, agent, req, timeout)
	if err != nil {
		return workflow.SummaryResult{}, err
	}
	if resp.Status == "error" {
		return workflow.SummaryResult{}, fmt.Errorf("agent %s summarize failed: %s", agent.Name, resp.Error)
	}
	return workflow.SummaryResult{Success: resp.Success, Summary: resp.Summary}, nil
}

// DecideConnections asks the source pod's agent to arbitrate a batch of
// ai-decide connections in a single call.
func (r *Runner) DecideConnections(ctx context.Context, canvasID, sourcePodID string, conns []canvas.Connection) (workflow.DecisionOutcome, error) {
	agent, err := r.agentForPod(ctx, canvasID, sourcePodID, "decide")
	if err != nil {
		return workflow.DecisionOutcome{}, err
	}

	candidates := make([]Candidate, 0, len(conns))
	for _, conn := range conns {
		c := Candidate{ConnectionID: conn.ID, TargetPodID: conn.TargetPodID}
		// Target names are advisory context; a lookup failure is not fatal.
		if pod, err := r.pods.GetPod(ctx, canvasID, conn.TargetPodID); err == nil {
			c.TargetPodName = pod.Name
		}
		candidates = append(candidates, c)
	}

	timeout := r.timeouts.Decide
	req := &Request{
		Protocol:    SupportedProtocol,
		RequestID:   uuid.NewString(),
		Command:     "decide",
		CanvasID:    canvasID,
		SourcePodID: sourcePodID,
		Candidates:  candidates,
		DeadlineAt:  time.Now().Add(timeout),
	}

	resp, err := r.runOnce(ctx, agent, req, timeout)
	if err != nil {
		return workflow.DecisionOutcome{}, err
	}
	if resp.Status == "error" {
		return workflow.DecisionOutcome{}, fmt.Errorf("agent %s decide failed: %s", agent.Name, resp.Error)
	}

	var outcome workflow.DecisionOutcome
	for _, v := range resp.Verdicts {
		if v.Error != "" {
			outcome.Errors = append(outcome.Errors, workflow.DecisionError{
				ConnectionID: v.ConnectionID,
				Err:          v.Error,
			})
			continue
		}
		outcome.Results = append(outcome.Results, workflow.Decision{
			ConnectionID:  v.ConnectionID,
			ShouldTrigger: v.ShouldTrigger,
			Reason:        v.Reason,
		})
	}
	return outcome, nil
}

// SendMessage delivers hand-off content to the target pod's agent over the
// streaming chat command. onChunk, if non-nil, receives output as it arrives.
func (r *Runner) SendMessage(ctx context.Context, canvasID, podID, content string, onChunk func(chunk string)) error {
	agent, err := r.agentForPod(ctx, canvasID, podID, "chat")
	if err != nil {
		return err
	}

	timeout := r.timeouts.Chat
	req := &Request{
		Protocol:   SupportedProtocol,
		RequestID:  uuid.NewString(),
		Command:    "chat",
		CanvasID:   canvasID,
		PodID:      podID,
		Content:    content,
		DeadlineAt: time.Now().Add(timeout),
	}

	return r.runChat(ctx, agent, req, timeout, onChunk)
}

// CheckHealth runs an agent's health command by name, outside any pod
// context. Used by preflight checks.
func (r *Runner) CheckHealth(ctx context.Context, agentName string) error {
	agent, ok := r.registry.Get(agentName)
	if !ok {
		return fmt.Errorf("agent %q not found in registry", agentName)
	}
	if !agent.SupportsCommand("health") {
		return nil
	}

	timeout := r.timeouts.Health
	req := &Request{
		Protocol:   SupportedProtocol,
		RequestID:  uuid.NewString(),
		Command:    "health",
		DeadlineAt: time.Now().Add(timeout),
	}
	resp, err := r.runOnce(ctx, agent, req, timeout)
	if err != nil {
		return err
	}
	if resp.Status == "error" {
		return fmt.Errorf("agent %s health check failed: %s", agent.Name, resp.Error)
	}
	return nil
}

// agentForPod resolves the agent executable behind a pod and checks that it
// declares the wanted command. Pods without an explicit agent fall back to
// an agent named after the pod.
func (r *Runner) agentForPod(ctx context.Context, canvasID, podID, command string) (*Agent, error) {
	pod, err := r.pods.GetPod(ctx, canvasID, podID)
	if err != nil {
		return nil, fmt.Errorf("resolve pod %s: %w", podID, err)
	}

	name := pod.Agent
	if name == "" {
		name = pod.Name
	}
	agent, ok := r.registry.Get(name)
	if !ok {
		return nil, fmt.Errorf("agent %q for pod %s not found in registry", name, podID)
	}
	if !agent.SupportsCommand(command) {
		return nil, fmt.Errorf("agent %q does not support command %q", name, command)
	}
	return agent, nil
}

// runOnce spawns the agent, writes the request to stdin and decodes a single
// buffered response from stdout.
func (r *Runner) runOnce(ctx context.Context, agent *Agent, req *Request, timeout time.Duration) (*Response, error) {
	logger := log.WithAgent(agent.Name).With("command", req.Command, "request_id", req.RequestID)

	cmd := exec.Command(agent.Entrypoint)
	cmd.Dir = agent.Path

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdin pipe: %w", err)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logger.Debug("spawning agent", "entrypoint", agent.Entrypoint, "timeout", timeout)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start agent process: %w", err)
	}

	writeErr := make(chan error, 1)
	go func() {
		defer stdin.Close()
		writeErr <- EncodeRequest(stdin, req)
	}()

	waitErr := make(chan error, 1)
	go func() { waitErr <- cmd.Wait() }()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-timer.C:
		r.terminate(cmd, waitErr, logger)
		return nil, fmt.Errorf("agent %s %s timed out after %v%s",
			agent.Name, req.Command, timeout, stderrSuffix(stderr.String()))

	case <-ctx.Done():
		r.terminate(cmd, waitErr, logger)
		return nil, ctx.Err()

	case err := <-waitErr:
		if werr := <-writeErr; werr != nil {
			return nil, fmt.Errorf("agent %s %s: encode request: %w", agent.Name, req.Command, werr)
		}
		if err != nil {
			if exitErr, ok := err.(*exec.ExitError); ok {
				// A non-zero exit with parseable output still carries the
				// agent's own error message; let the decoder surface it.
				logger.Warn("agent exited with non-zero status", "exit_code", exitErr.ExitCode())
			} else {
				return nil, fmt.Errorf("agent %s %s: wait for process: %w%s",
					agent.Name, req.Command, err, stderrSuffix(stderr.String()))
			}
		}

		resp, raw, err := DecodeResponse(bytes.NewReader(stdout.Bytes()))
		if err != nil {
			logger.Error("failed to decode agent response", "error", err, "stdout", string(raw))
			return nil, fmt.Errorf("agent %s %s: decode response: %w%s",
				agent.Name, req.Command, err, stderrSuffix(stderr.String()))
		}
		for _, entry := range resp.Logs {
			logger.Info("agent log", "agent_level", entry.Level, "message", entry.Message)
		}
		return resp, nil
	}
}

// runChat spawns the agent and consumes newline-delimited frames from stdout
// until the done frame or a failure.
func (r *Runner) runChat(ctx context.Context, agent *Agent, req *Request, timeout time.Duration, onChunk func(chunk string)) error {
	logger := log.WithAgent(agent.Name).With("command", req.Command, "request_id", req.RequestID)

	cmd := exec.Command(agent.Entrypoint)
	cmd.Dir = agent.Path

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	logger.Debug("spawning agent", "entrypoint", agent.Entrypoint, "timeout", timeout)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start agent process: %w", err)
	}

	go func() {
		defer stdin.Close()
		if err := EncodeRequest(stdin, req); err != nil {
			logger.Error("failed to write request to agent stdin", "error", err)
		}
	}()

	// Scan frames on a separate goroutine so the timeout can interrupt a
	// stalled agent.
	type frameResult struct {
		frame *Frame
		err   error
	}
	frames := make(chan frameResult, 16)
	go func() {
		defer close(frames)
		scanner := bufio.NewScanner(stdoutPipe)
		scanner.Buffer(make([]byte, 64*1024), maxFrameBytes)
		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}
			f, err := DecodeFrame(line)
			frames <- frameResult{frame: f, err: err}
			if err != nil || f.Type == "done" {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			frames <- frameResult{err: fmt.Errorf("read agent stdout: %w", err)}
		}
	}()

	waitErr := make(chan error, 1)
	go func() { waitErr <- cmd.Wait() }()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var done *Frame
	var frameErr error
loop:
	for {
		select {
		case res, ok := <-frames:
			if !ok {
				break loop
			}
			if res.err != nil {
				frameErr = res.err
				break loop
			}
			switch res.frame.Type {
			case "chunk":
				if onChunk != nil {
					onChunk(res.frame.Content)
				}
			case "done":
				done = res.frame
				break loop
			}
		case <-timer.C:
			r.terminate(cmd, waitErr, logger)
			return fmt.Errorf("agent %s chat timed out after %v%s",
				agent.Name, timeout, stderrSuffix(stderr.String()))
		case <-ctx.Done():
			r.terminate(cmd, waitErr, logger)
			return ctx.Err()
		}
	}

	err = <-waitErr
	stderrStr := truncateStderr(stderr.String())

	if frameErr != nil {
		logger.Error("bad chat frame from agent", "error", frameErr)
		return fmt.Errorf("agent %s chat: %w%s", agent.Name, frameErr, stderrSuffix(stderrStr))
	}
	if done == nil {
		if err != nil {
			return fmt.Errorf("agent %s chat exited without a done frame: %w%s",
				agent.Name, err, stderrSuffix(stderrStr))
		}
		return fmt.Errorf("agent %s chat exited without a done frame%s", agent.Name, stderrSuffix(stderrStr))
	}
	if done.Status == "error" {
		logger.Warn("agent chat returned error", "error", done.Error)
		return fmt.Errorf("agent %s chat failed: %s", agent.Name, done.Error)
	}
	logger.Debug("agent chat completed")
	return nil
}

// terminate sends SIGTERM, waits out the grace period, then SIGKILLs.
func (r *Runner) terminate(cmd *exec.Cmd, waitErr <-chan error, logger *slog.Logger) {
	logger.Warn("terminating agent, sending SIGTERM")
	if cmd.Process != nil {
		if err := cmd.Process.Signal(syscall.SIGTERM); err != nil {
			logger.Error("failed to send SIGTERM", "error", err)
		}
	}

	grace := time.NewTimer(terminationGracePeriod)
	defer grace.Stop()

	select {
	case <-waitErr:
		logger.Info("agent exited after SIGTERM")
	case <-grace.C:
		logger.Warn("agent did not exit after SIGTERM, sending SIGKILL")
		if cmd.Process != nil {
			if err := cmd.Process.Kill(); err != nil {
				logger.Error("failed to send SIGKILL", "error", err)
			}
		}
		<-waitErr
	}
}

func stderrSuffix(stderr string) string {
	stderr = truncateStderr(stderr)
	if stderr == "" {
		return ""
	}
	return fmt.Sprintf(" (stderr: %s)", stderr)
}

// truncateStderr caps captured stderr at maxStderrBytes.
func truncateStderr(s string) string {
	if len(s) > maxStderrBytes {
		return s[:maxStderrBytes]
	}
	return s
}
