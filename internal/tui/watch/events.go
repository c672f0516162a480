package watch

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ferrolab/podflow/internal/events"
)

func renderEventLines(eventLog []events.Event, theme Theme) string {
	if len(eventLog) == 0 {
		return theme.Dim.Render("  Waiting for events...")
	}

	var lines []string
	for _, e := range eventLog {
		lines = append(lines, formatEvent(e, theme))
	}
	return strings.Join(lines, "\n")
}

func formatEvent(e events.Event, theme Theme) string {
	ts := theme.Dim.Render(e.At.Format("15:04:05"))

	var typeStyle lipgloss.Style
	switch e.Type {
	case events.TypeWorkflowComplete:
		typeStyle = theme.StatusOK
		if failed(e) {
			typeStyle = theme.StatusFailed
		}
	case events.TypeWorkflowTriggered, events.TypeWorkflowAutoTriggered:
		typeStyle = theme.StatusActive
	case events.TypeWorkflowQueued, events.TypeQueueProcessed:
		typeStyle = theme.StatusQueued
	case events.TypeDecidePending, events.TypeDecideResult,
		events.TypeDirectWaiting, events.TypeDirectMerged:
		typeStyle = theme.Highlight
	default:
		typeStyle = theme.Dim
	}

	typeName := typeStyle.Render(fmt.Sprintf("%-24s", e.Type))
	return fmt.Sprintf("%s %s %s", ts, typeName, extractEventDesc(e))
}

func failed(e events.Event) bool {
	var d events.WorkflowComplete
	if err := json.Unmarshal(e.Data, &d); err != nil {
		return false
	}
	return !d.Success
}

func extractEventDesc(e events.Event) string {
	data := make(map[string]any)
	_ = json.Unmarshal(e.Data, &data)

	var parts []string

	if src, ok := data["source_pod_id"].(string); ok && src != "" {
		parts = append(parts, src)
	}
	if tgt, ok := data["target_pod_id"].(string); ok && tgt != "" {
		parts = append(parts, "→ "+tgt)
	}
	if conn, ok := data["connection_id"].(string); ok && conn != "" {
		if len(conn) > 8 {
			conn = conn[:8]
		}
		parts = append(parts, fmt.Sprintf("[%s]", conn))
	}
	if status, ok := data["status"].(string); ok && status != "" {
		parts = append(parts, status)
	}
	if errText, ok := data["error"].(string); ok && errText != "" {
		parts = append(parts, errText)
	}
	if pos, ok := data["position"].(float64); ok && pos > 0 {
		parts = append(parts, fmt.Sprintf("pos=%d", int(pos)))
	}

	if len(parts) == 0 {
		raw := string(e.Data)
		if len(raw) > 60 {
			raw = raw[:60] + "..."
		}
		return raw
	}

	return strings.Join(parts, " ")
}
