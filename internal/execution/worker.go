package execution

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/riverqueue/river"
)

// GenerateVideoArgs carries everything the generation worker needs,
// including the reserved cost so a failure can refund the right amount.
type GenerateVideoArgs struct {
	JobID          uuid.UUID `json:"job_id"`
	UserID         uuid.UUID `json:"user_id"`
	Cost           int       `json:"cost"`
	Prompt         string    `json:"prompt"`
	Style          string    `json:"style"`
	AudioPrompt    string    `json:"audio_prompt"`
	NegativePrompt string    `json:"negative_prompt"`
	GuidanceScale  float64   `json:"guidance_scale"`
	MotionStrength int       `json:"motion_strength"`
	VideoAPath     string    `json:"video_a_path"`
	VideoCPath     string    `json:"video_c_path"`
}

func (GenerateVideoArgs) Kind() string { return "generate_video" }

// JobService defines the contract the worker needs to report success/failure.
// Completion settles the job's reservation; failure refunds it.
type JobService interface {
	MarkJobCompleted(ctx context.Context, jobID uuid.UUID, videoURL string) error
	MarkJobFailed(ctx context.Context, jobID uuid.UUID, cost int, reason string) error
}

// generatorResponse is the payload returned by the external generation
// service on success.
type generatorResponse struct {
	VideoURL string `json:"video_url"`
}

type GenerateVideoWorker struct {
	river.WorkerDefaults[GenerateVideoArgs]
	jobService   JobService
	generatorURL string
	httpClient   *http.Client
}

func NewGenerateVideoWorker(js JobService, generatorURL string) *GenerateVideoWorker {
	return &GenerateVideoWorker{
		jobService:   js,
		generatorURL: generatorURL,
		httpClient:   &http.Client{Timeout: 10 * time.Minute},
	}
}

func (w *GenerateVideoWorker) Work(ctx context.Context, job *river.Job[GenerateVideoArgs]) error {
	args := job.Args

	body, err := json.Marshal(args)
	if err != nil {
		return w.failJob(ctx, args, fmt.Sprintf("failed to marshal generation request: %v", err))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.generatorURL, bytes.NewReader(body))
	if err != nil {
		return w.failJob(ctx, args, fmt.Sprintf("failed to create request: %v", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		// Transient network failure: let the queue retry. If every attempt
		// fails the reconciliation sweep refunds the stale reservation.
		return fmt.Errorf("network error calling generator: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return w.failJob(ctx, args, fmt.Sprintf("generator returned non-200 status: %d", resp.StatusCode))
	}

	var out generatorResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil || out.VideoURL == "" {
		return w.failJob(ctx, args, "generator returned invalid response")
	}

	if err := w.jobService.MarkJobCompleted(ctx, args.JobID, out.VideoURL); err != nil {
		return fmt.Errorf("failed to mark job completed: %w", err)
	}
	return nil
}

func (w *GenerateVideoWorker) failJob(ctx context.Context, args GenerateVideoArgs, reason string) error {
	if markErr := w.jobService.MarkJobFailed(ctx, args.JobID, args.Cost, reason); markErr != nil {
		return fmt.Errorf("generation failed (%s) AND failed to mark job as failed: %w", reason, markErr)
	}
	return nil
}
