package watch

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/ferrolab/podflow/internal/events"
)

// PodState is a pod's activity as reconstructed from the event stream. The
// watch TUI has no direct view of the canvas store; everything here is
// derived from what the engine publishes.
type PodState struct {
	ID        string
	CanvasID  string
	Status    string
	Queued    int
	UpdatedAt time.Time
}

const (
	podIdle     = "idle"
	podChatting = "chatting"
	podDeciding = "deciding"
	podWaiting  = "waiting"
)

func updatePodState(pods map[string]*PodState, e events.Event) {
	touch := func(canvasID, podID, status string) *PodState {
		if podID == "" {
			return nil
		}
		p, ok := pods[podID]
		if !ok {
			p = &PodState{ID: podID, CanvasID: canvasID, Status: podIdle}
			pods[podID] = p
		}
		if status != "" {
			p.Status = status
		}
		p.UpdatedAt = time.Now()
		return p
	}

	switch e.Type {
	case events.TypeWorkflowTriggered, events.TypeWorkflowAutoTriggered:
		var d events.WorkflowTriggered
		if json.Unmarshal(e.Data, &d) != nil {
			return
		}
		touch(d.CanvasID, d.SourcePodID, "")
		touch(d.CanvasID, d.TargetPodID, podChatting)

	case events.TypeWorkflowComplete:
		var d events.WorkflowComplete
		if json.Unmarshal(e.Data, &d) != nil {
			return
		}
		touch(d.CanvasID, d.TargetPodID, podIdle)

	case events.TypeWorkflowQueued:
		var d events.WorkflowQueued
		if json.Unmarshal(e.Data, &d) != nil {
			return
		}
		if p := touch(d.CanvasID, d.TargetPodID, ""); p != nil {
			p.Queued = d.QueueSize
		}

	case events.TypeQueueProcessed:
		var d events.QueueProcessed
		if json.Unmarshal(e.Data, &d) != nil {
			return
		}
		if p := touch(d.CanvasID, d.TargetPodID, ""); p != nil {
			p.Queued = d.RemainingQueueSize
		}

	case events.TypeDecidePending:
		var d events.DecidePending
		if json.Unmarshal(e.Data, &d) != nil {
			return
		}
		touch(d.CanvasID, d.SourcePodID, podDeciding)

	case events.TypeDecideResult:
		var d events.DecideResult
		if json.Unmarshal(e.Data, &d) != nil {
			return
		}
		touch(d.CanvasID, d.SourcePodID, podIdle)

	case events.TypeDirectWaiting:
		var d events.DirectWaiting
		if json.Unmarshal(e.Data, &d) != nil {
			return
		}
		touch(d.CanvasID, d.TargetPodID, podWaiting)

	case events.TypeDirectMerged:
		var d events.DirectMerged
		if json.Unmarshal(e.Data, &d) != nil {
			return
		}
		touch(d.CanvasID, d.TargetPodID, "")
	}
}

func renderPods(pods map[string]*PodState, theme Theme, width int) string {
	innerWidth := width - 4

	if len(pods) == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			theme.Title.Render("PODS"),
			theme.Dim.Render("  No pod activity yet..."),
		)
		return theme.Border.Width(innerWidth).Render(content)
	}

	ids := make([]string, 0, len(pods))
	for id := range pods {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var lines []string
	for _, id := range ids {
		p := pods[id]

		var statusStyle lipgloss.Style
		switch p.Status {
		case podChatting:
			statusStyle = theme.StatusActive
		case podDeciding, podWaiting:
			statusStyle = theme.StatusPending
		default:
			statusStyle = theme.StatusOK
		}

		queued := ""
		if p.Queued > 0 {
			queued = theme.StatusQueued.Render(fmt.Sprintf("  queue:%d", p.Queued))
		}

		ago := theme.Dim.Render(time.Since(p.UpdatedAt).Round(time.Second).String() + " ago")
		lines = append(lines, fmt.Sprintf(" %-24s %s%s  %s",
			p.ID, statusStyle.Render(fmt.Sprintf("%-9s", p.Status)), queued, ago))
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		theme.Title.Render("PODS"),
		strings.Join(lines, "\n"),
	)
	return theme.Border.Width(innerWidth).Render(content)
}
