package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tribelabs/tribe/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// GroupModel handles database operations for groups.
type GroupModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewGroup creates a new group model.
func NewGroup(db *bun.DB, logger *zap.Logger) *GroupModel {
	return &GroupModel{
		db:     db,
		logger: logger.Named("db_group"),
	}
}

// GetByID retrieves a single group. Returns nil without error when the group
// does not exist.
func (r *GroupModel) GetByID(ctx context.Context, id string) (*types.Group, error) {
	var group types.Group

	err := r.db.NewSelect().
		Model(&group).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get group %s: %w", id, err)
	}

	return &group, nil
}

// GetByIDs retrieves groups by ID keyed for lookup.
func (r *GroupModel) GetByIDs(ctx context.Context, ids []string) (map[string]*types.Group, error) {
	if len(ids) == 0 {
		return map[string]*types.Group{}, nil
	}

	var groups []*types.Group

	err := r.db.NewSelect().
		Model(&groups).
		Where("id IN (?)", bun.In(ids)).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get groups by ids: %w", err)
	}

	groupMap := make(map[string]*types.Group, len(groups))
	for _, group := range groups {
		groupMap[group.ID] = group
	}

	return groupMap, nil
}
