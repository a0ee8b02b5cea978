package billing

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/continuity/backend/internal/ledger"
)

// PaymentEvent is the verified payment-completed tuple delivered by the
// payment collaborator. Signature verification and authentication happen
// upstream; this handler only enforces idempotent application.
type PaymentEvent struct {
	UserID      uuid.UUID `json:"user_id" validate:"required"`
	AmountTotal int64     `json:"amount_total" validate:"required,gt=0"`
	EventID     string    `json:"event_id" validate:"required"`
	SessionID   string    `json:"session_id" validate:"required"`
	Customer    string    `json:"customer"`
}

type Handler struct {
	ledger   ledger.Service
	validate *validator.Validate
	log      *slog.Logger
}

func NewHandler(ledgerSvc ledger.Service, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{ledger: ledgerSvc, validate: validator.New(), log: log}
}

// HandleEvent handles POST /api/v1/billing/events. Replays of the same
// event id return 200 without a second credit, so the payment provider's
// redelivery behavior is harmless.
func (h *Handler) HandleEvent(w http.ResponseWriter, r *http.Request) {
	var ev PaymentEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		http.Error(w, `{"error":"invalid payload"}`, http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(ev); err != nil {
		http.Error(w, `{"error":"missing or invalid event fields"}`, http.StatusBadRequest)
		return
	}
	err := h.ledger.ApplyPurchase(r.Context(), ledger.PurchaseEvent{
		UserID:           ev.UserID,
		AmountMinorUnits: ev.AmountTotal,
		ExternalEventID:  ev.EventID,
		SessionID:        ev.SessionID,
		CustomerID:       ev.Customer,
	})
	if err != nil {
		h.log.Error("apply purchase failed", "event_id", ev.EventID, "error", err)
		http.Error(w, `{"error":"failed to apply purchase"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "success"})
}
