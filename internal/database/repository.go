package database

import (
	"github.com/tribelabs/tribe/internal/database/models"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// Repository provides access to all database models.
type Repository struct {
	recipient *models.RecipientModel
	group     *models.GroupModel
	update    *models.UpdateModel
	job       *models.JobModel
	stats     *models.StatsModel
}

// NewRepository creates a new repository instance with all models.
func NewRepository(db *bun.DB, logger *zap.Logger) *Repository {
	return &Repository{
		recipient: models.NewRecipient(db, logger),
		group:     models.NewGroup(db, logger),
		update:    models.NewUpdate(db, logger),
		job:       models.NewJob(db, logger),
		stats:     models.NewStats(db, logger),
	}
}

// Recipient returns the recipient model repository.
func (r *Repository) Recipient() *models.RecipientModel {
	return r.recipient
}

// Group returns the group model repository.
func (r *Repository) Group() *models.GroupModel {
	return r.group
}

// Update returns the update model repository.
func (r *Repository) Update() *models.UpdateModel {
	return r.update
}

// Job returns the delivery job model repository.
func (r *Repository) Job() *models.JobModel {
	return r.job
}

// Stats returns the digest run stats repository.
func (r *Repository) Stats() *models.StatsModel {
	return r.stats
}
