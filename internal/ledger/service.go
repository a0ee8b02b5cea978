package ledger

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/continuity/backend/internal/models"
)

// ErrInsufficientFunds is returned when the user's balance is too low for
// the requested reservation. No mutation happens in that case.
var ErrInsufficientFunds = errors.New("insufficient funds")

// ErrUserNotFound is returned by Reserve when the target user does not exist.
var ErrUserNotFound = errors.New("user not found")

// AccountStore is the minimal user repository interface the ledger needs.
type AccountStore interface {
	GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.User, error)
	DeductCredits(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int) (newBalance int, err error)
	AddCredits(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int) (newBalance int, err error)
	SetPaymentCustomerID(ctx context.Context, tx pgx.Tx, id uuid.UUID, customerID string) error
}

// EntryStore is the minimal ledger entry repository interface.
type EntryStore interface {
	Create(ctx context.Context, tx pgx.Tx, t *models.Transaction) error
	GetReservationForUpdate(ctx context.Context, tx pgx.Tx, referenceID string) (*models.Transaction, error)
	SetStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status string) error
	ExistsByEventID(ctx context.Context, eventID string) (bool, error)
	ListStaleReservations(ctx context.Context, cutoff time.Time, limit int) ([]*models.Transaction, error)
}

// JobStateReader is the narrow read contract the sweeper has on the job
// collaborator: status and last update time. The ledger never writes jobs.
type JobStateReader interface {
	GetState(ctx context.Context, id uuid.UUID) (status string, updatedAt time.Time, err error)
}

// TxBeginner opens a database transaction. *pgxpool.Pool satisfies it.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PurchaseEvent is a verified payment-completed event. Authentication and
// signature checks happen upstream; the ledger trusts the tuple and only
// enforces idempotency and amount arithmetic.
type PurchaseEvent struct {
	UserID           uuid.UUID
	AmountMinorUnits int64
	ExternalEventID  string
	SessionID        string
	CustomerID       string
}

type Service interface {
	Reserve(ctx context.Context, tx pgx.Tx, userID, jobID uuid.UUID, cost int) error
	Settle(ctx context.Context, jobID uuid.UUID) error
	Refund(ctx context.Context, jobID uuid.UUID, cost int) error
	ApplyPurchase(ctx context.Context, ev PurchaseEvent) error
	Reconcile(ctx context.Context) (int, error)
}

// Config tunes purchase arithmetic and the reconciliation sweep.
type Config struct {
	// UnitPrice is the price of one credit in minor currency units.
	UnitPrice int
	// StaleAfter is the age past which a reservation (or its job's
	// updated_at) counts as abandoned.
	StaleAfter time.Duration
	// BatchLimit caps rows processed per sweep run.
	BatchLimit int
}

type service struct {
	db         TxBeginner
	accounts   AccountStore
	entries    EntryStore
	jobs       JobStateReader
	unitPrice  int
	staleAfter time.Duration
	batchLimit int
	log        *slog.Logger
}

func NewService(db TxBeginner, accounts AccountStore, entries EntryStore, jobs JobStateReader, cfg Config, log *slog.Logger) *service {
	if cfg.UnitPrice <= 0 {
		cfg.UnitPrice = 100
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = time.Hour
	}
	if cfg.BatchLimit <= 0 {
		cfg.BatchLimit = 100
	}
	if log == nil {
		log = slog.Default()
	}
	return &service{
		db:         db,
		accounts:   accounts,
		entries:    entries,
		jobs:       jobs,
		unitPrice:  cfg.UnitPrice,
		staleAfter: cfg.StaleAfter,
		batchLimit: cfg.BatchLimit,
		log:        log,
	}
}

var _ Service = (*service)(nil)

// Reserve locks the user row, checks and debits the balance, and inserts a
// reserved ledger entry referencing the job. Runs inside the caller's
// transaction so the job row, the debit, and the queue enqueue commit as one
// atomic unit; if anything fails the caller's rollback undoes all of it.
func (s *service) Reserve(ctx context.Context, tx pgx.Tx, userID, jobID uuid.UUID, cost int) error {
	user, err := s.accounts.GetForUpdate(ctx, tx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrUserNotFound
		}
		return err
	}
	if user.Balance < cost {
		return ErrInsufficientFunds
	}
	if _, err := s.accounts.DeductCredits(ctx, tx, userID, cost); err != nil {
		return err
	}
	ref := jobID.String()
	return s.entries.Create(ctx, tx, &models.Transaction{
		ID:          uuid.New(),
		UserID:      userID,
		Amount:      -cost,
		Type:        models.TxTypeReserve,
		Status:      models.TxStatusReserved,
		ReferenceID: &ref,
	})
}

// Settle marks the job's reservation as permanently consumed. No balance
// change: funds were debited at reservation time. Idempotent; a missing or
// already-resolved reservation is a logged no-op.
func (s *service) Settle(ctx context.Context, jobID uuid.UUID) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	res, err := s.entries.GetReservationForUpdate(ctx, tx, jobID.String())
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.log.Info("settle: no reservation for job", "job_id", jobID)
			return nil
		}
		return err
	}
	if res.Status != models.TxStatusReserved {
		return nil
	}
	if err := s.entries.SetStatus(ctx, tx, res.ID, models.TxStatusSettled); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Refund credits the reservation's amount back to its user and marks the
// reservation refunded. Safe to call from overlapping failure and
// reconciliation paths: an already-resolved reservation is a no-op.
func (s *service) Refund(ctx context.Context, jobID uuid.UUID, cost int) error {
	_, err := s.refund(ctx, jobID, cost)
	return err
}

// refund reports whether it actually applied a refund, so the sweeper can
// count only real work.
func (s *service) refund(ctx context.Context, jobID uuid.UUID, cost int) (bool, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	res, err := s.entries.GetReservationForUpdate(ctx, tx, jobID.String())
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.log.Info("refund: no reservation for job", "job_id", jobID)
			return false, nil
		}
		return false, err
	}
	if res.Status != models.TxStatusReserved {
		return false, nil
	}

	if _, err := s.accounts.GetForUpdate(ctx, tx, res.UserID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.log.Error("refund: reservation user missing", "job_id", jobID, "user_id", res.UserID)
			return false, nil
		}
		return false, err
	}
	if _, err := s.accounts.AddCredits(ctx, tx, res.UserID, cost); err != nil {
		return false, err
	}
	ref := jobID.String()
	if err := s.entries.Create(ctx, tx, &models.Transaction{
		ID:          uuid.New(),
		UserID:      res.UserID,
		Amount:      cost,
		Type:        models.TxTypeRefund,
		Status:      models.TxStatusSettled,
		ReferenceID: &ref,
	}); err != nil {
		return false, err
	}
	if err := s.entries.SetStatus(ctx, tx, res.ID, models.TxStatusRefunded); err != nil {
		return false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	s.log.Info("refunded credits", "job_id", jobID, "user_id", res.UserID, "amount", cost)
	return true, nil
}

// ApplyPurchase credits whole credits for a verified payment event, at most
// once per external event id. The fractional remainder of the integer
// division is discarded. The unique index on external_event_id resolves the
// race between concurrent deliveries: the loser's insert fails and its
// transaction rolls back without a second credit.
func (s *service) ApplyPurchase(ctx context.Context, ev PurchaseEvent) error {
	exists, err := s.entries.ExistsByEventID(ctx, ev.ExternalEventID)
	if err != nil {
		return err
	}
	if exists {
		s.log.Info("purchase event already processed", "event_id", ev.ExternalEventID)
		return nil
	}

	credits := int(ev.AmountMinorUnits) / s.unitPrice

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := s.accounts.GetForUpdate(ctx, tx, ev.UserID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.log.Error("purchase: user not found", "user_id", ev.UserID, "event_id", ev.ExternalEventID)
			return nil
		}
		return err
	}
	if _, err := s.accounts.AddCredits(ctx, tx, ev.UserID, credits); err != nil {
		return err
	}
	if ev.CustomerID != "" {
		if err := s.accounts.SetPaymentCustomerID(ctx, tx, ev.UserID, ev.CustomerID); err != nil {
			return err
		}
	}
	ref := ev.SessionID
	eventID := ev.ExternalEventID
	if err := s.entries.Create(ctx, tx, &models.Transaction{
		ID:              uuid.New(),
		UserID:          ev.UserID,
		Amount:          credits,
		Type:            models.TxTypePurchase,
		Status:          models.TxStatusCompleted,
		ReferenceID:     &ref,
		ExternalEventID: &eventID,
	}); err != nil {
		if isUniqueViolation(err) {
			s.log.Info("purchase event raced a duplicate delivery", "event_id", ev.ExternalEventID)
			return nil
		}
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	s.log.Info("applied purchase", "user_id", ev.UserID, "credits", credits, "event_id", ev.ExternalEventID)
	return nil
}

// Reconcile finds reservations stuck in reserved status past the staleness
// threshold and refunds the ones whose job is missing, failed, or stale.
// Reservations for completed jobs are left alone and flagged: refunding
// consumed work would be worse than waiting for manual inspection. Returns
// the number of reservations actually refunded.
func (s *service) Reconcile(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().Add(-s.staleAfter)
	stuck, err := s.entries.ListStaleReservations(ctx, cutoff, s.batchLimit)
	if err != nil {
		return 0, err
	}

	refunded := 0
	for _, res := range stuck {
		jobID, eligible, err := s.refundEligibility(ctx, res, cutoff)
		if err != nil {
			s.log.Error("reconcile: eligibility check failed", "transaction_id", res.ID, "error", err)
			continue
		}
		if !eligible {
			continue
		}
		applied, err := s.refund(ctx, jobID, -res.Amount)
		if err != nil {
			s.log.Error("reconcile: refund failed", "transaction_id", res.ID, "job_id", jobID, "error", err)
			continue
		}
		if applied {
			refunded++
		}
	}
	if len(stuck) > 0 {
		s.log.Info("reconcile sweep finished", "examined", len(stuck), "refunded", refunded)
	}
	return refunded, nil
}

// refundEligibility decides from job state whether a stuck reservation
// should be refunded.
func (s *service) refundEligibility(ctx context.Context, res *models.Transaction, cutoff time.Time) (uuid.UUID, bool, error) {
	if res.ReferenceID == nil || *res.ReferenceID == "" {
		s.log.Warn("reconcile: reservation has no job reference", "transaction_id", res.ID)
		return uuid.Nil, false, nil
	}
	jobID, err := uuid.Parse(*res.ReferenceID)
	if err != nil {
		s.log.Warn("reconcile: reservation has malformed job reference", "transaction_id", res.ID, "reference_id", *res.ReferenceID)
		return uuid.Nil, false, nil
	}

	status, updatedAt, err := s.jobs.GetState(ctx, jobID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Job record gone: the pipeline crashed before persisting
			// anything, or the record was cleaned up. Assume failure.
			return jobID, true, nil
		}
		return uuid.Nil, false, err
	}

	switch {
	case status == models.JobStatusCompleted:
		// Completed job with an unsettled reservation means a settlement
		// call was missed. Never auto-refund consumed work; surface it.
		s.log.Warn("reconcile: reservation still reserved for completed job",
			"transaction_id", res.ID, "job_id", jobID)
		return jobID, false, nil
	case status == models.JobStatusError || status == models.JobStatusFailed:
		return jobID, true, nil
	case updatedAt.Before(cutoff):
		// Job claims to be running but has not been touched within the
		// staleness window: the worker is gone.
		return jobID, true, nil
	default:
		return jobID, false, nil
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
