package jobs

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/continuity/backend/internal/ledger"
	"github.com/continuity/backend/internal/middleware"
	"github.com/continuity/backend/internal/models"
)

// Request/response structs use snake_case JSON.

type JobResponse struct {
	ID       string  `json:"job_id"`
	Status   string  `json:"status"`
	Progress int     `json:"progress"`
	Log      string  `json:"log"`
	VideoURL *string `json:"video_url,omitempty"`
}

type Handler struct {
	svc      Service
	validate *validator.Validate
	log      *slog.Logger
}

func NewHandler(svc Service, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, validate: validator.New(), log: log}
}

// CreateGeneration handles POST /api/v1/generate. Insufficient funds must
// reject admission with a clear, specific error before anything runs.
func (h *Handler) CreateGeneration(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromCtx(r.Context())
	if userID == uuid.Nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	var req GenerationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		http.Error(w, `{"error":"missing or invalid required fields"}`, http.StatusBadRequest)
		return
	}
	job, err := h.svc.CreateGeneration(r.Context(), userID, req)
	if err != nil {
		if errors.Is(err, ledger.ErrInsufficientFunds) {
			http.Error(w, `{"error":"insufficient credits"}`, http.StatusPaymentRequired)
			return
		}
		if errors.Is(err, ledger.ErrUserNotFound) {
			http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
			return
		}
		h.log.Error("create generation failed", "error", err)
		http.Error(w, `{"error":"create generation failed"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, jobToResponse(job))
}

// GetJob handles GET /api/v1/jobs/{id}.
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, `{"error":"invalid job id"}`, http.StatusBadRequest)
		return
	}
	job, err := h.svc.GetJob(r.Context(), jobID)
	if err != nil {
		http.Error(w, `{"error":"job not found"}`, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, jobToResponse(job))
}

// ListJobs handles GET /api/v1/jobs.
func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromCtx(r.Context())
	if userID == uuid.Nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	list, err := h.svc.ListByUser(r.Context(), userID)
	if err != nil {
		h.log.Error("list jobs failed", "error", err)
		http.Error(w, `{"error":"list jobs failed"}`, http.StatusInternalServerError)
		return
	}
	resp := make([]JobResponse, 0, len(list))
	for _, j := range list {
		resp = append(resp, jobToResponse(j))
	}
	writeJSON(w, http.StatusOK, resp)
}

// ProgressUpdate is the generator's progress callback payload.
type ProgressUpdate struct {
	Progress int    `json:"progress" validate:"gte=0,lte=100"`
	Log      string `json:"log"`
}

// UpdateProgress handles POST /internal/jobs/{id}/progress, called by the
// generation service. Each report bumps the job's updated_at, which is what
// keeps an active job out of the reconciliation sweep.
func (h *Handler) UpdateProgress(w http.ResponseWriter, r *http.Request) {
	jobID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, `{"error":"invalid job id"}`, http.StatusBadRequest)
		return
	}
	var upd ProgressUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(upd); err != nil {
		http.Error(w, `{"error":"progress out of range"}`, http.StatusBadRequest)
		return
	}
	if err := h.svc.UpdateProgress(r.Context(), jobID, upd.Progress, upd.Log); err != nil {
		h.log.Error("update progress failed", "job_id", jobID, "error", err)
		http.Error(w, `{"error":"update progress failed"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func jobToResponse(j *models.Job) JobResponse {
	return JobResponse{
		ID:       j.ID.String(),
		Status:   j.Status,
		Progress: j.Progress,
		Log:      j.Log,
		VideoURL: j.VideoURL,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
