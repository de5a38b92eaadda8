package models

import (
	"context"
	"fmt"

	"github.com/tribelabs/tribe/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// StatsModel handles database operations for digest run statistics.
type StatsModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewStats creates a new stats model.
func NewStats(db *bun.DB, logger *zap.Logger) *StatsModel {
	return &StatsModel{
		db:     db,
		logger: logger.Named("db_stats"),
	}
}

// InsertRun records the outcome of one digest sweep.
func (r *StatsModel) InsertRun(ctx context.Context, run *types.DigestRun) error {
	_, err := r.db.NewInsert().
		Model(run).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to insert digest run: %w", err)
	}

	return nil
}

// GetRecentRuns retrieves the most recent digest runs for an ops view.
func (r *StatsModel) GetRecentRuns(ctx context.Context, limit int) ([]*types.DigestRun, error) {
	var runs []*types.DigestRun

	err := r.db.NewSelect().
		Model(&runs).
		Order("started_at DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent digest runs: %w", err)
	}

	return runs, nil
}
