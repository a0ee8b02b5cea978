package router

import (
	"net/http"

	"github.com/continuity/backend/internal/account"
	"github.com/continuity/backend/internal/auth"
	"github.com/continuity/backend/internal/billing"
	"github.com/continuity/backend/internal/jobs"
	"github.com/continuity/backend/internal/ledger"
)

// New returns an http.Handler serving the API under /api/v1.
func New(
	authHandler *auth.Handler,
	jobsHandler *jobs.Handler,
	accountHandler *account.Handler,
	billingHandler *billing.Handler,
	ledgerHandler *ledger.Handler,
	authMW func(http.Handler) http.Handler,
) http.Handler {
	mux := http.NewServeMux()
	base := "/api/v1"

	mux.HandleFunc("POST "+base+"/auth/register", authHandler.Register)
	mux.HandleFunc("POST "+base+"/auth/login", authHandler.Login)

	mux.Handle("POST "+base+"/generate", authMW(http.HandlerFunc(jobsHandler.CreateGeneration)))
	mux.Handle("GET "+base+"/jobs", authMW(http.HandlerFunc(jobsHandler.ListJobs)))
	mux.Handle("GET "+base+"/jobs/{id}", authMW(http.HandlerFunc(jobsHandler.GetJob)))

	mux.Handle("GET "+base+"/account/me", authMW(http.HandlerFunc(accountHandler.GetMe)))
	mux.Handle("GET "+base+"/account/ledger", authMW(http.HandlerFunc(accountHandler.ListLedger)))

	// Delivered by the payment collaborator after upstream verification.
	mux.HandleFunc("POST "+base+"/billing/events", billingHandler.HandleEvent)

	// Generator progress callback; reachable only on the internal network.
	mux.HandleFunc("POST /internal/jobs/{id}/progress", jobsHandler.UpdateProgress)

	mux.HandleFunc("POST "+base+"/admin/reconcile", ledgerHandler.Reconcile)

	return mux
}
