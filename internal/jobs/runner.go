// Package jobs orchestrates aggregation runs: each run is tracked as a job
// row that moves from running to completed or failed.
package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"gridwatch/internal/db"
	"gridwatch/internal/types"
)

// AggregationEngine computes aggregates for a lookback window.
type AggregationEngine interface {
	Run(ctx context.Context, bucketType types.BucketType, target time.Time, scope db.ReadingScope) ([]*types.Aggregate, error)
}

// AlertEvaluator checks aggregates against the enabled alert rules.
type AlertEvaluator interface {
	Evaluate(ctx context.Context, aggregates []*types.Aggregate) ([]*types.Alert, error)
}

// JobStore tracks job lifecycle rows.
type JobStore interface {
	Start(ctx context.Context, j *types.Job) error
	Finish(ctx context.Context, id string, aggregatesCount, alertsTriggered int, jobErr error) error
	GetByID(ctx context.Context, id string) (*types.Job, error)
}

// aggregatePreviewLimit caps how many aggregates a run result carries back
// to the caller; the full set is persisted regardless.
const aggregatePreviewLimit = 10

// RunOptions narrows one aggregation run. A zero TargetDate means now;
// empty BuildingID/ZoneID mean all meters.
type RunOptions struct {
	TargetDate time.Time
	BuildingID string
	ZoneID     string
}

// RunResult is the outcome of one aggregation run: the finished job row, a
// preview of the persisted aggregates, and every alert the run triggered.
type RunResult struct {
	Job        *types.Job         `json:"job"`
	Aggregates []*types.Aggregate `json:"aggregates"`
	Alerts     []*types.Alert     `json:"alerts"`
}

// Runner executes aggregation jobs.
type Runner struct {
	engine    AggregationEngine
	evaluator AlertEvaluator
	jobs      JobStore
	clock     types.Clock
	logger    *slog.Logger
}

// NewRunner creates a job runner.
func NewRunner(engine AggregationEngine, evaluator AlertEvaluator, jobs JobStore, logger *slog.Logger) *Runner {
	return &Runner{
		engine:    engine,
		evaluator: evaluator,
		jobs:      jobs,
		clock:     types.RealClock{},
		logger:    logger,
	}
}

// RunAggregation records a running job, executes the engine and the alert
// evaluator, and finishes the job as completed or failed. Failures are not
// retried; re-invocation is the caller's call. The returned job reflects the
// stored terminal state.
func (r *Runner) RunAggregation(ctx context.Context, jobType types.JobType, opts RunOptions) (*RunResult, error) {
	bucketType, err := bucketForJob(jobType)
	if err != nil {
		return nil, err
	}

	target := opts.TargetDate
	if target.IsZero() {
		target = r.clock.Now()
	}
	target = target.UTC()

	job := &types.Job{
		ID:         "job_" + uuid.New().String(),
		JobType:    jobType,
		TargetDate: target,
		BuildingID: opts.BuildingID,
		ZoneID:     opts.ZoneID,
	}
	if err := r.jobs.Start(ctx, job); err != nil {
		return nil, err
	}

	scope := db.ReadingScope{BuildingID: opts.BuildingID, ZoneID: opts.ZoneID}

	aggregates, err := r.engine.Run(ctx, bucketType, target, scope)
	if err != nil {
		r.fail(ctx, job.ID, 0, 0, err)
		return nil, err
	}

	alerts, err := r.evaluator.Evaluate(ctx, aggregates)
	if err != nil {
		r.fail(ctx, job.ID, len(aggregates), 0, err)
		return nil, err
	}

	if err := r.jobs.Finish(ctx, job.ID, len(aggregates), len(alerts), nil); err != nil {
		return nil, err
	}

	finished, err := r.jobs.GetByID(ctx, job.ID)
	if err != nil {
		return nil, err
	}

	r.logger.Info("aggregation job finished",
		"job_id", job.ID,
		"job_type", string(jobType),
		"aggregates", len(aggregates),
		"alerts_triggered", len(alerts),
	)

	preview := aggregates
	if len(preview) > aggregatePreviewLimit {
		preview = preview[:aggregatePreviewLimit]
	}

	return &RunResult{
		Job:        finished,
		Aggregates: preview,
		Alerts:     alerts,
	}, nil
}

// fail marks a job failed, logging rather than masking the original error
// when the status write itself fails.
func (r *Runner) fail(ctx context.Context, jobID string, aggregatesCount, alertsTriggered int, runErr error) {
	if err := r.jobs.Finish(ctx, jobID, aggregatesCount, alertsTriggered, runErr); err != nil {
		r.logger.Error("failed to mark job failed", "job_id", jobID, "error", err)
	}
}

// bucketForJob maps a job type to the bucket granularity it aggregates.
func bucketForJob(jobType types.JobType) (types.BucketType, error) {
	switch jobType {
	case types.JobHourlyAggregation:
		return types.BucketHourly, nil
	case types.JobDailyAggregation:
		return types.BucketDaily, nil
	}
	return "", types.NewAppError(types.ErrCodeValidationFailed, "unknown job type", nil)
}
