package httpx

import (
	"errors"
	"net/http"

	"github.com/crosspost-labs/publisher-go/internal/domain/model"
	"github.com/crosspost-labs/publisher-go/internal/service"
)

// JobHandlers provides HTTP handlers for publish job operations.
type JobHandlers struct {
	Svc *service.CoordinatorService
}

// SubmitJob handles requests to submit a new publishing job.
func (h *JobHandlers) SubmitJob(w http.ResponseWriter, r *http.Request) {
	var req model.SubmitRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	job, err := h.Svc.Submit(r.Context(), req)
	if err != nil {
		WriteAppError(w, err)
		return
	}

	WriteJSON(w, http.StatusAccepted, job)
}

// GetJob handles requests for a job status snapshot.
func (h *JobHandlers) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	if jobID == "" {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("job id is required")})
		return
	}

	job, err := h.Svc.GetStatus(r.Context(), jobID)
	if err != nil {
		WriteAppError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, job)
}

// CancelJob handles requests to cancel a job.
func (h *JobHandlers) CancelJob(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	if jobID == "" {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("job id is required")})
		return
	}

	job, err := h.Svc.Cancel(r.Context(), jobID)
	if err != nil {
		WriteAppError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, job)
}

// QueueDepth handles requests for the pending queue depth.
func (h *JobHandlers) QueueDepth(w http.ResponseWriter, r *http.Request) {
	depth, err := h.Svc.QueueDepth(r.Context())
	if err != nil {
		WriteAppError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]int{"depth": depth})
}

// PostMetrics handles requests for engagement metrics of a published post.
func (h *JobHandlers) PostMetrics(w http.ResponseWriter, r *http.Request) {
	jobID, platform, ok := h.postParams(w, r)
	if !ok {
		return
	}

	metrics, err := h.Svc.PostMetrics(r.Context(), jobID, platform)
	if err != nil {
		WriteAppError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"platform": platform, "metrics": metrics})
}

// DeletePost handles requests to delete a published post.
func (h *JobHandlers) DeletePost(w http.ResponseWriter, r *http.Request) {
	jobID, platform, ok := h.postParams(w, r)
	if !ok {
		return
	}

	deleted, err := h.Svc.DeletePost(r.Context(), jobID, platform)
	if err != nil {
		WriteAppError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]bool{"deleted": deleted})
}

// UpdatePost handles requests to edit a published post.
func (h *JobHandlers) UpdatePost(w http.ResponseWriter, r *http.Request) {
	jobID, platform, ok := h.postParams(w, r)
	if !ok {
		return
	}

	var updates map[string]string
	if !DecodeJSON(w, r, &updates) {
		return
	}

	updated, err := h.Svc.UpdatePost(r.Context(), jobID, platform, updates)
	if err != nil {
		WriteAppError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]bool{"updated": updated})
}

func (h *JobHandlers) postParams(w http.ResponseWriter, r *http.Request) (string, model.Platform, bool) {
	jobID := r.PathValue("id")
	platform := model.Platform(r.PathValue("platform"))
	if jobID == "" || !platform.Valid() {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "invalid_path",
			Err:     errors.New("job id and a valid platform are required"),
		})
		return "", "", false
	}
	return jobID, platform, true
}
