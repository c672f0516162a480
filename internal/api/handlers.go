package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ferrolab/podflow/internal/canvas"
)

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, HealthzResponse{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
	})
}

func (s *Server) handleCreatePod(w http.ResponseWriter, r *http.Request) {
	canvasID := chi.URLParam(r, "canvasID")

	var req CreatePodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Name == "" {
		s.writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	pod, err := s.store.CreatePod(r.Context(), canvas.Pod{
		CanvasID: canvasID,
		ID:       req.ID,
		Name:     req.Name,
		Agent:    req.Agent,
	})
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, pod)
}

func (s *Server) handleListPods(w http.ResponseWriter, r *http.Request) {
	pods, err := s.store.ListPods(r.Context(), chi.URLParam(r, "canvasID"))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if pods == nil {
		pods = []canvas.Pod{}
	}
	respondJSON(w, http.StatusOK, pods)
}

func (s *Server) handleGetPod(w http.ResponseWriter, r *http.Request) {
	pod, err := s.store.GetPod(r.Context(), chi.URLParam(r, "canvasID"), chi.URLParam(r, "podID"))
	if err != nil {
		if errors.Is(err, canvas.ErrPodNotFound) {
			s.writeError(w, http.StatusNotFound, "pod not found")
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, pod)
}

// handlePodComplete signals that a pod finished a chat cycle. Trigger
// evaluation runs in the background; the response only acknowledges receipt.
func (s *Server) handlePodComplete(w http.ResponseWriter, r *http.Request) {
	canvasID := chi.URLParam(r, "canvasID")
	podID := chi.URLParam(r, "podID")

	if _, err := s.store.GetPod(r.Context(), canvasID, podID); err != nil {
		if errors.Is(err, canvas.ErrPodNotFound) {
			s.writeError(w, http.StatusNotFound, "pod not found")
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Detach from the request context so the client disconnecting does not
	// cancel downstream triggers.
	go func(ctx context.Context) {
		if err := s.engine.CheckAndTriggerWorkflows(ctx, canvasID, podID); err != nil {
			s.logger.Error("trigger evaluation failed",
				"canvas_id", canvasID, "source_pod_id", podID, "error", err)
		}
	}(context.WithoutCancel(r.Context()))

	respondJSON(w, http.StatusAccepted, CompleteResponse{
		Status:      "accepted",
		CanvasID:    canvasID,
		SourcePodID: podID,
	})
}

func (s *Server) handlePodQueue(w http.ResponseWriter, r *http.Request) {
	podID := chi.URLParam(r, "podID")

	items := s.engine.Queues().Snapshot(podID)
	resp := QueueResponse{
		TargetPodID: podID,
		Size:        len(items),
		Items:       make([]QueueItem, 0, len(items)),
	}
	for _, item := range items {
		resp.Items = append(resp.Items, QueueItem{
			ConnectionID: item.ConnectionID,
			SourcePodID:  item.SourcePodID,
			TriggerMode:  string(item.TriggerMode),
			Summarized:   item.IsSummarized,
		})
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateConnection(w http.ResponseWriter, r *http.Request) {
	canvasID := chi.URLParam(r, "canvasID")

	var req CreateConnectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	mode, err := canvas.ParseTriggerMode(req.TriggerMode)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	conn, err := s.store.CreateConnection(r.Context(), canvas.Connection{
		CanvasID:    canvasID,
		ID:          req.ID,
		SourcePodID: req.SourcePodID,
		TargetPodID: req.TargetPodID,
		TriggerMode: mode,
	})
	if err != nil {
		if errors.Is(err, canvas.ErrPodNotFound) {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, conn)
}

func (s *Server) handleListConnections(w http.ResponseWriter, r *http.Request) {
	conns, err := s.store.ListConnections(r.Context(), chi.URLParam(r, "canvasID"))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if conns == nil {
		conns = []canvas.Connection{}
	}
	respondJSON(w, http.StatusOK, conns)
}

func (s *Server) handleGetConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := s.store.GetConnection(r.Context(), chi.URLParam(r, "canvasID"), chi.URLParam(r, "connectionID"))
	if err != nil {
		if errors.Is(err, canvas.ErrConnectionNotFound) {
			s.writeError(w, http.StatusNotFound, "connection not found")
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, conn)
}

func (s *Server) handleDeleteConnection(w http.ResponseWriter, r *http.Request) {
	err := s.store.DeleteConnection(r.Context(), chi.URLParam(r, "canvasID"), chi.URLParam(r, "connectionID"))
	if err != nil {
		if errors.Is(err, canvas.ErrConnectionNotFound) {
			s.writeError(w, http.StatusNotFound, "connection not found")
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Headers already sent; nothing useful to do.
		_ = err
	}
}

func (s *Server) writeError(w http.ResponseWriter, statusCode int, message string) {
	respondJSON(w, statusCode, ErrorResponse{Error: message})
}
