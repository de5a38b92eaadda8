package models

import (
	"context"
	"fmt"

	"github.com/tribelabs/tribe/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// UpdateModel handles database operations for updates.
type UpdateModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewUpdate creates a new update model.
func NewUpdate(db *bun.DB, logger *zap.Logger) *UpdateModel {
	return &UpdateModel{
		db:     db,
		logger: logger.Named("db_update"),
	}
}

// GetByID retrieves a single update.
func (r *UpdateModel) GetByID(ctx context.Context, id string) (*types.Update, error) {
	var update types.Update

	err := r.db.NewSelect().
		Model(&update).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get update %s: %w", id, err)
	}

	return &update, nil
}

// GetByIDs retrieves updates by ID keyed for lookup.
func (r *UpdateModel) GetByIDs(ctx context.Context, ids []string) (map[string]*types.Update, error) {
	if len(ids) == 0 {
		return map[string]*types.Update{}, nil
	}

	var updates []*types.Update

	err := r.db.NewSelect().
		Model(&updates).
		Where("id IN (?)", bun.In(ids)).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get updates by ids: %w", err)
	}

	updateMap := make(map[string]*types.Update, len(updates))
	for _, update := range updates {
		updateMap[update.ID] = update
	}

	return updateMap, nil
}
