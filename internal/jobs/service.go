package jobs

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/continuity/backend/internal/execution"
	"github.com/continuity/backend/internal/ledger"
	"github.com/continuity/backend/internal/models"
	"github.com/continuity/backend/internal/repository"
)

// GenerationRequest holds the parameters for a video generation job.
type GenerationRequest struct {
	Prompt         string  `json:"prompt" validate:"required"`
	Style          string  `json:"style"`
	AudioPrompt    string  `json:"audio_prompt"`
	NegativePrompt string  `json:"negative_prompt"`
	GuidanceScale  float64 `json:"guidance_scale" validate:"gte=0,lte=20"`
	MotionStrength int     `json:"motion_strength" validate:"gte=0,lte=10"`
	VideoAPath     string  `json:"video_a_path" validate:"required"`
	VideoCPath     string  `json:"video_c_path" validate:"required"`
}

type Service interface {
	CreateGeneration(ctx context.Context, userID uuid.UUID, req GenerationRequest) (*models.Job, error)
	GetJob(ctx context.Context, jobID uuid.UUID) (*models.Job, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Job, error)
	UpdateProgress(ctx context.Context, jobID uuid.UUID, progress int, logLine string) error
}

// InsertGenerateVideoTxFunc enqueues a generation job within the given
// transaction. Provided by main using river.Client.InsertTx.
type InsertGenerateVideoTxFunc func(ctx context.Context, tx pgx.Tx, args execution.GenerateVideoArgs) error

type service struct {
	repo                *repository.JobRepo
	ledger              ledger.Service
	insertGenerateVideo InsertGenerateVideoTxFunc
	generationCost      int
}

// NewService creates a jobs service. insertGenerateVideo is typically a
// closure over river.Client.InsertTx. Returns *service so it can be used as
// execution.JobService for the River worker.
func NewService(repo *repository.JobRepo, ledgerSvc ledger.Service, insertGenerateVideo InsertGenerateVideoTxFunc, generationCost int) *service {
	return &service{
		repo:                repo,
		ledger:              ledgerSvc,
		insertGenerateVideo: insertGenerateVideo,
		generationCost:      generationCost,
	}
}

var _ Service = (*service)(nil)

// CreateGeneration admits a generation job: the job row, the credit
// reservation, and the queue enqueue commit as one transaction. An
// insufficient balance rejects the whole admission with nothing persisted.
func (s *service) CreateGeneration(ctx context.Context, userID uuid.UUID, req GenerationRequest) (*models.Job, error) {
	job := &models.Job{
		ID:     uuid.New(),
		UserID: userID,
		Status: models.JobStatusQueued,
		Log:    "Queued...",
	}

	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if err := s.repo.Create(ctx, tx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	if err := s.ledger.Reserve(ctx, tx, userID, job.ID, s.generationCost); err != nil {
		return nil, err
	}
	if err := s.insertGenerateVideo(ctx, tx, execution.GenerateVideoArgs{
		JobID:          job.ID,
		UserID:         userID,
		Cost:           s.generationCost,
		Prompt:         req.Prompt,
		Style:          req.Style,
		AudioPrompt:    req.AudioPrompt,
		NegativePrompt: req.NegativePrompt,
		GuidanceScale:  req.GuidanceScale,
		MotionStrength: req.MotionStrength,
		VideoAPath:     req.VideoAPath,
		VideoCPath:     req.VideoCPath,
	}); err != nil {
		return nil, fmt.Errorf("enqueue generation: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return job, nil
}

func (s *service) GetJob(ctx context.Context, jobID uuid.UUID) (*models.Job, error) {
	return s.repo.GetByID(ctx, jobID)
}

func (s *service) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Job, error) {
	return s.repo.ListByUser(ctx, userID)
}

// UpdateProgress records a progress report from the generator. The ledger is
// untouched: only completion or failure resolves the reservation.
func (s *service) UpdateProgress(ctx context.Context, jobID uuid.UUID, progress int, logLine string) error {
	return s.repo.UpdateProgress(ctx, jobID, models.JobStatusGenerating, progress, logLine)
}

// MarkJobCompleted implements execution.JobService. Stores the result and
// settles the reservation so reconciliation ignores it from now on.
func (s *service) MarkJobCompleted(ctx context.Context, jobID uuid.UUID, videoURL string) error {
	if err := s.repo.MarkCompleted(ctx, jobID, videoURL); err != nil {
		return err
	}
	return s.ledger.Settle(ctx, jobID)
}

// MarkJobFailed implements execution.JobService. Records the failure and
// refunds the reserved credits. If the refund call itself is lost the
// reconciliation sweep picks the reservation up on its next pass.
func (s *service) MarkJobFailed(ctx context.Context, jobID uuid.UUID, cost int, reason string) error {
	if err := s.repo.MarkFailed(ctx, jobID, reason); err != nil {
		return err
	}
	return s.ledger.Refund(ctx, jobID, cost)
}
