package ledger

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Handler exposes the manual reconciliation trigger for operational tooling.
type Handler struct {
	svc Service
	log *slog.Logger
}

func NewHandler(svc Service, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, log: log}
}

// Reconcile handles POST /api/v1/admin/reconcile and returns the number of
// reservations refunded, mirroring what the scheduled sweep reports.
func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	refunded, err := h.svc.Reconcile(r.Context())
	if err != nil {
		h.log.Error("manual reconcile failed", "error", err)
		http.Error(w, `{"error":"reconcile failed"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]int{"refunded": refunded})
}
