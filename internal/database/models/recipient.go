package models

import (
	"context"
	"fmt"

	"github.com/tribelabs/tribe/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// RecipientModel handles database operations for recipients and their
// group memberships.
type RecipientModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewRecipient creates a new recipient model.
func NewRecipient(db *bun.DB, logger *zap.Logger) *RecipientModel {
	return &RecipientModel{
		db:     db,
		logger: logger.Named("db_recipient"),
	}
}

// GetActiveByParent retrieves a parent's active recipients with their active
// memberships. Group rows are hydrated separately by the caller through the
// group cache. Rows that fail contact validation are logged and dropped
// rather than failing the whole read.
func (r *RecipientModel) GetActiveByParent(ctx context.Context, parentID string) ([]*types.Recipient, error) {
	var recipients []*types.Recipient

	err := r.db.NewSelect().
		Model(&recipients).
		Relation("Memberships", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("gm.is_active = TRUE").Order("gm.joined_at ASC")
		}).
		Where("recipient.parent_id = ?", parentID).
		Where("recipient.is_active = TRUE").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get recipients for parent %s: %w", parentID, err)
	}

	valid := recipients[:0]
	for _, recipient := range recipients {
		if err := recipient.Validate(); err != nil {
			r.logger.Warn("Dropping recipient with invalid contact configuration",
				zap.String("recipientID", recipient.ID),
				zap.Error(err))
			continue
		}

		valid = append(valid, recipient)
	}

	return valid, nil
}

// GetByIDs retrieves recipients by ID, including inactive ones. Used by the
// digest sweep which must resolve contact endpoints for already-queued jobs.
func (r *RecipientModel) GetByIDs(ctx context.Context, ids []string) (map[string]*types.Recipient, error) {
	if len(ids) == 0 {
		return map[string]*types.Recipient{}, nil
	}

	var recipients []*types.Recipient

	err := r.db.NewSelect().
		Model(&recipients).
		Where("recipient.id IN (?)", bun.In(ids)).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get recipients by ids: %w", err)
	}

	recipientMap := make(map[string]*types.Recipient, len(recipients))
	for _, recipient := range recipients {
		recipientMap[recipient.ID] = recipient
	}

	return recipientMap, nil
}
