package migrations

import (
	"context"
	"fmt"

	"github.com/tribelabs/tribe/internal/database/types"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		models := []any{
			(*types.Recipient)(nil),
			(*types.Group)(nil),
			(*types.GroupMembership)(nil),
			(*types.Update)(nil),
			(*types.DeliveryJob)(nil),
			(*types.DigestRun)(nil),
		}

		for _, model := range models {
			_, err := db.NewCreateTable().
				Model(model).
				IfNotExists().
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("failed to create table for %T: %w", model, err)
			}
		}

		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		tables := []string{
			"digest_runs",
			"delivery_jobs",
			"group_memberships",
			"updates",
			"groups",
			"recipients",
		}

		for _, table := range tables {
			_, err := db.NewRaw(fmt.Sprintf("DROP TABLE IF EXISTS %s", table)).Exec(ctx)
			if err != nil {
				return fmt.Errorf("failed to drop table %s: %w", table, err)
			}
		}

		return nil
	})
}
