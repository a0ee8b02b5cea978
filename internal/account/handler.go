package account

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/continuity/backend/internal/middleware"
	"github.com/continuity/backend/internal/repository"
)

type BalanceResponse struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Balance int    `json:"balance"`
}

type Handler struct {
	users        *repository.UserRepo
	transactions *repository.TransactionRepo
	log          *slog.Logger
}

func NewHandler(users *repository.UserRepo, transactions *repository.TransactionRepo, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{users: users, transactions: transactions, log: log}
}

// GetMe handles GET /api/v1/account/me: the balance query by user id.
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromCtx(r.Context())
	if userID == uuid.Nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	user, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		http.Error(w, `{"error":"user not found"}`, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, BalanceResponse{
		ID:      user.ID.String(),
		Email:   user.Email,
		Name:    user.Name,
		Balance: user.Balance,
	})
}

// ListLedger handles GET /api/v1/account/ledger: the user's transaction
// history, newest first.
func (h *Handler) ListLedger(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromCtx(r.Context())
	if userID == uuid.Nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	list, err := h.transactions.ListByUserID(r.Context(), userID)
	if err != nil {
		h.log.Error("list ledger failed", "error", err)
		http.Error(w, `{"error":"list ledger failed"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
