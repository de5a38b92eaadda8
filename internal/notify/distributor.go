package notify

import (
	"context"
	"time"

	"github.com/sourcegraph/conc/pool"
	"github.com/tribelabs/tribe/internal/cache"
	"github.com/tribelabs/tribe/internal/database/dbretry"
	"github.com/tribelabs/tribe/internal/database/types"
	"go.uber.org/zap"
)

// recipientLister loads a parent's notifiable recipients.
type recipientLister interface {
	GetActiveByParent(ctx context.Context, parentID string) ([]*types.Recipient, error)
}

// groupReader loads group rows on cache misses.
type groupReader interface {
	GetByIDs(ctx context.Context, ids []string) (map[string]*types.Group, error)
}

// Distributor runs the fan-out for one update: load recipients, resolve each
// one's effective settings, prune the ineligible, and hand the survivors to
// the scheduler.
type Distributor struct {
	recipients recipientLister
	groups     groupReader
	groupCache *cache.GroupCache
	scheduler  *Scheduler
	logger     *zap.Logger
}

// NewDistributor creates a distributor.
func NewDistributor(
	recipients recipientLister,
	groups groupReader,
	groupCache *cache.GroupCache,
	scheduler *Scheduler,
	logger *zap.Logger,
) *Distributor {
	return &Distributor{
		recipients: recipients,
		groups:     groups,
		groupCache: groupCache,
		scheduler:  scheduler,
		logger:     logger.Named("distributor"),
	}
}

// Distribute fans an update out to every eligible recipient: jobs for
// every_update recipients go to the immediate batch, the rest are queued for
// the digest sweeps. Returns the jobs built for the immediate batch so the
// caller can dispatch them right away.
func (d *Distributor) Distribute(
	ctx context.Context, nctx types.NotificationContext,
) ([]*types.DeliveryJob, error) {
	pairs, err := d.ResolveRecipients(ctx, nctx)
	if err != nil {
		return nil, err
	}

	if len(pairs) == 0 {
		d.logger.Debug("No eligible recipients for update",
			zap.String("updateID", nctx.UpdateID))

		return nil, nil
	}

	immediate, digest := BuildJobs(nctx.UpdateID, pairs, time.Now())

	d.scheduler.PersistJobs(ctx, immediate, digest)

	d.logger.Info("Distributed update",
		zap.String("updateID", nctx.UpdateID),
		zap.Int("recipients", len(pairs)),
		zap.Int("immediateJobs", len(immediate)),
		zap.Int("digestJobs", len(digest)))

	return immediate, nil
}

// ResolveRecipients loads the parent's active recipients, hydrates their
// group rows through the cache, resolves each recipient's effective settings,
// and keeps only those eligible for this update.
func (d *Distributor) ResolveRecipients(
	ctx context.Context, nctx types.NotificationContext,
) ([]RecipientSettings, error) {
	recipients, err := dbretry.Operation(ctx, func(ctx context.Context) ([]*types.Recipient, error) {
		return d.recipients.GetActiveByParent(ctx, nctx.ParentID)
	})
	if err != nil {
		return nil, err
	}

	if err := d.hydrateGroups(ctx, recipients); err != nil {
		return nil, err
	}

	// Resolution is independent per recipient; fan out and keep input order.
	resolved := make([]RecipientSettings, len(recipients))
	eligible := make([]bool, len(recipients))

	p := pool.New()

	for i, recipient := range recipients {
		p.Go(func() {
			settings := ResolveSettings(recipient.Memberships, nctx)

			resolved[i] = RecipientSettings{
				Recipient: recipient,
				Settings:  settings,
			}
			eligible[i] = IsEligible(settings, nctx)
		})
	}

	p.Wait()

	pairs := make([]RecipientSettings, 0, len(recipients))

	for i, pair := range resolved {
		if eligible[i] {
			pairs = append(pairs, pair)
		}
	}

	return pairs, nil
}

// hydrateGroups fills each membership's Group pointer, consulting the cache
// first and falling back to the database for misses. Fetched rows are cached
// best effort.
func (d *Distributor) hydrateGroups(ctx context.Context, recipients []*types.Recipient) error {
	resolved := make(map[string]*types.Group)

	var misses []string

	for _, recipient := range recipients {
		for _, membership := range recipient.Memberships {
			if _, ok := resolved[membership.GroupID]; ok {
				continue
			}

			group, err := d.groupCache.Get(ctx, membership.GroupID)
			if err != nil {
				d.logger.Warn("Group cache lookup failed",
					zap.String("groupID", membership.GroupID),
					zap.Error(err))
			}

			resolved[membership.GroupID] = group
			if group == nil {
				misses = append(misses, membership.GroupID)
			}
		}
	}

	if len(misses) > 0 {
		fetched, err := dbretry.Operation(ctx, func(ctx context.Context) (map[string]*types.Group, error) {
			return d.groups.GetByIDs(ctx, misses)
		})
		if err != nil {
			return err
		}

		for id, group := range fetched {
			resolved[id] = group

			if err := d.groupCache.Set(ctx, group); err != nil {
				d.logger.Warn("Failed to cache group",
					zap.String("groupID", id),
					zap.Error(err))
			}
		}
	}

	for _, recipient := range recipients {
		for _, membership := range recipient.Memberships {
			membership.Group = resolved[membership.GroupID]
		}
	}

	return nil
}
