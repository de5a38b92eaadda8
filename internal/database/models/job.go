package models

import (
	"context"
	"fmt"
	"time"

	"github.com/tribelabs/tribe/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// ClaimTimeout is how long a job may sit in processing before a sweep
// reclaims it. Covers workers that died mid-batch.
const ClaimTimeout = 15 * time.Minute

// JobModel handles database operations for delivery jobs. The delivery_jobs
// table doubles as the work queue; status transitions are the concurrency
// control.
type JobModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewJob creates a new job model.
func NewJob(db *bun.DB, logger *zap.Logger) *JobModel {
	return &JobModel{
		db:     db,
		logger: logger.Named("db_job"),
	}
}

// InsertJobs bulk-inserts delivery jobs.
func (r *JobModel) InsertJobs(ctx context.Context, jobs []*types.DeliveryJob) error {
	if len(jobs) == 0 {
		return nil
	}

	_, err := r.db.NewInsert().
		Model(&jobs).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to insert %d delivery jobs: %w", len(jobs), err)
	}

	return nil
}

// ClaimDue atomically claims due queued jobs on the given channels by moving
// them to processing, and returns the claimed rows. A job with a nil
// scheduled_for is already due. The conditional update is the claim step that
// keeps overlapping sweeps from double-processing a job.
func (r *JobModel) ClaimDue(
	ctx context.Context, now time.Time, channels []string, limit int,
) ([]*types.DeliveryJob, error) {
	var jobs []*types.DeliveryJob

	subq := r.db.NewSelect().
		Model((*types.DeliveryJob)(nil)).
		Column("id").
		Where("status = ?", types.JobStatusQueued).
		Where("channel IN (?)", bun.In(channels)).
		Where("scheduled_for IS NULL OR scheduled_for <= ?", now).
		Order("priority ASC", "created_at ASC").
		Limit(limit)

	err := r.db.NewUpdate().
		Model(&jobs).
		Set("status = ?", types.JobStatusProcessing).
		Set("claimed_at = ?", now).
		Where("id IN (?)", subq).
		Returning("*").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to claim due jobs: %w", err)
	}

	return jobs, nil
}

// ReleaseClaims returns claimed jobs to queued so the next sweep retries
// them. Used when a batch fails partway through.
func (r *JobModel) ReleaseClaims(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	_, err := r.db.NewUpdate().
		Model((*types.DeliveryJob)(nil)).
		Set("status = ?", types.JobStatusQueued).
		Set("claimed_at = NULL").
		Where("id IN (?)", bun.In(ids)).
		Where("status = ?", types.JobStatusProcessing).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to release %d claimed jobs: %w", len(ids), err)
	}

	return nil
}

// MarkSent marks jobs as sent with the given timestamp.
func (r *JobModel) MarkSent(ctx context.Context, ids []string, sentAt time.Time) error {
	if len(ids) == 0 {
		return nil
	}

	_, err := r.db.NewUpdate().
		Model((*types.DeliveryJob)(nil)).
		Set("status = ?", types.JobStatusSent).
		Set("sent_at = ?", sentAt).
		Where("id IN (?)", bun.In(ids)).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to mark %d jobs sent: %w", len(ids), err)
	}

	return nil
}

// ReconcileStuck releases jobs whose claim has outlived ClaimTimeout back to
// queued. Returns how many were reclaimed.
func (r *JobModel) ReconcileStuck(ctx context.Context, now time.Time) (int, error) {
	res, err := r.db.NewUpdate().
		Model((*types.DeliveryJob)(nil)).
		Set("status = ?", types.JobStatusQueued).
		Set("claimed_at = NULL").
		Where("status = ?", types.JobStatusProcessing).
		Where("claimed_at < ?", now.Add(-ClaimTimeout)).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to reconcile stuck jobs: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, nil //nolint:nilerr // driver without RowsAffected support
	}

	return int(affected), nil
}

// CountByStatus returns the number of jobs in the given status.
func (r *JobModel) CountByStatus(ctx context.Context, status string) (int, error) {
	count, err := r.db.NewSelect().
		Model((*types.DeliveryJob)(nil)).
		Where("status = ?", status).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count jobs in status %s: %w", status, err)
	}

	return count, nil
}
