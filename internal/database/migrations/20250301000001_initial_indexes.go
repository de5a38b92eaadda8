package migrations

import (
	"context"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		_, err := db.NewRaw(`
			-- Recipient lookup for distribution
			CREATE INDEX IF NOT EXISTS idx_recipients_parent_active
			ON recipients (parent_id)
			WHERE is_active = TRUE;

			CREATE INDEX IF NOT EXISTS idx_group_memberships_recipient
			ON group_memberships (recipient_id, joined_at ASC)
			WHERE is_active = TRUE;

			CREATE INDEX IF NOT EXISTS idx_group_memberships_group
			ON group_memberships (group_id);

			-- Digest sweep: due queued jobs by channel
			CREATE INDEX IF NOT EXISTS idx_delivery_jobs_due
			ON delivery_jobs (channel, scheduled_for, priority)
			WHERE status = 'queued';

			-- Claim reconciliation
			CREATE INDEX IF NOT EXISTS idx_delivery_jobs_claimed
			ON delivery_jobs (claimed_at)
			WHERE status = 'processing';

			CREATE INDEX IF NOT EXISTS idx_delivery_jobs_recipient
			ON delivery_jobs (recipient_id, created_at DESC);

			CREATE INDEX IF NOT EXISTS idx_digest_runs_started
			ON digest_runs (started_at DESC);
		`).Exec(ctx)

		return err
	}, func(ctx context.Context, db *bun.DB) error {
		_, err := db.NewRaw(`
			DROP INDEX IF EXISTS idx_recipients_parent_active;
			DROP INDEX IF EXISTS idx_group_memberships_recipient;
			DROP INDEX IF EXISTS idx_group_memberships_group;
			DROP INDEX IF EXISTS idx_delivery_jobs_due;
			DROP INDEX IF EXISTS idx_delivery_jobs_claimed;
			DROP INDEX IF EXISTS idx_delivery_jobs_recipient;
			DROP INDEX IF EXISTS idx_digest_runs_started;
		`).Exec(ctx)

		return err
	})
}
