package notify

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"github.com/tribelabs/tribe/internal/database/dbretry"
	"github.com/tribelabs/tribe/internal/database/types"
	"github.com/tribelabs/tribe/internal/notify/channels"
	"go.uber.org/zap"
)

// DigestDaily and DigestWeekly name the two sweep cadences.
const (
	DigestDaily  = "daily"
	DigestWeekly = "weekly"
)

// digestChannels are the channels that carry rendered digests. SMS is
// short-form only and never receives digest batches.
var digestChannels = []string{types.ChannelEmail, types.ChannelWhatsApp}

// Counts is the aggregate outcome of one digest sweep.
type Counts struct {
	Processed int
	Errors    int
}

// jobSweeper is the slice of the job repository the aggregator needs.
type jobSweeper interface {
	ClaimDue(ctx context.Context, now time.Time, channels []string, limit int) ([]*types.DeliveryJob, error)
	ReleaseClaims(ctx context.Context, ids []string) error
	MarkSent(ctx context.Context, ids []string, sentAt time.Time) error
	ReconcileStuck(ctx context.Context, now time.Time) (int, error)
}

// recipientReader resolves recipient rows for claimed jobs.
type recipientReader interface {
	GetByIDs(ctx context.Context, ids []string) (map[string]*types.Recipient, error)
}

// updateReader resolves update rows for claimed jobs.
type updateReader interface {
	GetByIDs(ctx context.Context, ids []string) (map[string]*types.Update, error)
}

// runRecorder persists sweep outcomes; failures are logged, not propagated.
type runRecorder interface {
	InsertRun(ctx context.Context, run *types.DigestRun) error
}

// Aggregator batches queued digest jobs by (recipient, channel), renders one
// combined message per batch, dispatches it, and marks the batch sent.
// Failure is isolated per batch: one recipient's error never blocks others.
type Aggregator struct {
	jobs       jobSweeper
	recipients recipientReader
	updates    updateReader
	stats      runRecorder
	senders    map[string]channels.Sender
	baseURL    string
	batchSize  int
	logger     *zap.Logger
}

// NewAggregator creates a digest aggregator. The senders map is keyed by
// channel name and must cover every digest channel.
func NewAggregator(
	jobs jobSweeper,
	recipients recipientReader,
	updates updateReader,
	stats runRecorder,
	senders map[string]channels.Sender,
	baseURL string,
	batchSize int,
	logger *zap.Logger,
) *Aggregator {
	return &Aggregator{
		jobs:       jobs,
		recipients: recipients,
		updates:    updates,
		stats:      stats,
		senders:    senders,
		baseURL:    baseURL,
		batchSize:  batchSize,
		logger:     logger.Named("digest"),
	}
}

// ProcessDigests runs one digest sweep: reconcile stale claims, claim due
// jobs, render and dispatch one message per (recipient, channel) batch, and
// mark successes sent. A fetch failure reports {0, 1} so the periodic caller
// logs and waits for the next tick instead of crashing.
func (a *Aggregator) ProcessDigests(ctx context.Context, digestType string) Counts {
	now := time.Now()

	// Return jobs stuck in processing from a dead worker to the queue first.
	reclaimed, err := a.jobs.ReconcileStuck(ctx, now)
	if err != nil {
		a.logger.Warn("Failed to reconcile stuck jobs", zap.Error(err))
	} else if reclaimed > 0 {
		a.logger.Info("Reclaimed stuck delivery jobs", zap.Int("count", reclaimed))
	}

	claimed, err := dbretry.Operation(ctx, func(ctx context.Context) ([]*types.DeliveryJob, error) {
		return a.jobs.ClaimDue(ctx, now, digestChannels, a.batchSize)
	})
	if err != nil {
		a.logger.Error("Failed to fetch due digest jobs", zap.Error(err))
		return Counts{Processed: 0, Errors: 1}
	}

	if len(claimed) == 0 {
		return Counts{}
	}

	counts := a.processBatches(ctx, claimed)

	a.recordRun(ctx, digestType, counts, now)

	a.logger.Info("Digest sweep finished",
		zap.String("digestType", digestType),
		zap.Int("processed", counts.Processed),
		zap.Int("errors", counts.Errors))

	return counts
}

// processBatches groups claimed jobs by (recipient, channel) and processes
// each batch independently.
func (a *Aggregator) processBatches(ctx context.Context, claimed []*types.DeliveryJob) Counts {
	recipientMap, updateMap, err := a.loadRows(ctx, claimed)
	if err != nil {
		a.logger.Error("Failed to load rows for claimed jobs", zap.Error(err))
		a.releaseBatch(ctx, claimed)

		return Counts{Processed: 0, Errors: 1}
	}

	var counts Counts

	for _, batch := range groupByRecipientChannel(claimed) {
		if err := a.processBatch(ctx, batch, recipientMap, updateMap); err != nil {
			a.logger.Error("Failed to process digest batch",
				zap.String("recipientID", batch[0].RecipientID),
				zap.String("channel", batch[0].Channel),
				zap.Int("jobs", len(batch)),
				zap.Error(err))

			counts.Errors += len(batch)

			// Failed batches go back to queued for the next sweep.
			a.releaseBatch(ctx, batch)

			continue
		}

		counts.Processed += len(batch)
	}

	return counts
}

// processBatch renders and dispatches one (recipient, channel) batch, then
// marks its jobs sent. A recipient without the channel's contact endpoint is
// logged and skipped without error so the batch does not requeue forever.
func (a *Aggregator) processBatch(
	ctx context.Context,
	batch []*types.DeliveryJob,
	recipientMap map[string]*types.Recipient,
	updateMap map[string]*types.Update,
) error {
	recipientID := batch[0].RecipientID
	channel := batch[0].Channel

	recipient := recipientMap[recipientID]
	if recipient == nil {
		a.logger.Warn("Skipping digest batch for unknown recipient",
			zap.String("recipientID", recipientID))

		return a.jobs.MarkSent(ctx, jobIDs(batch), time.Now())
	}

	var updates []digestUpdate

	for _, job := range batch {
		update := updateMap[job.UpdateID]
		if update == nil {
			continue
		}

		updates = append(updates, digestUpdate{
			update:  update,
			context: parseGroupContext(job.GroupContext),
		})
	}

	if len(updates) > 0 {
		sections := buildSections(updates)
		msg := channels.Message{
			Subject: digestSubject(len(updates), len(sections)),
			Text:    renderDigestText(sections, preferenceLink(a.baseURL, recipient.PreferenceToken)),
			HTML:    renderDigestHTML(sections, preferenceLink(a.baseURL, recipient.PreferenceToken)),
		}

		if err := a.dispatch(ctx, channel, recipient, msg); err != nil {
			return err
		}
	}

	return a.jobs.MarkSent(ctx, jobIDs(batch), time.Now())
}

// dispatch sends the rendered digest over the batch's channel. A missing
// contact endpoint is a warning and a silent skip, not a failure.
func (a *Aggregator) dispatch(
	ctx context.Context, channel string, recipient *types.Recipient, msg channels.Message,
) error {
	if !recipient.HasEndpointFor(channel) {
		a.logger.Warn("Recipient lacks contact endpoint for digest channel",
			zap.String("recipientID", recipient.ID),
			zap.String("channel", channel))

		return nil
	}

	sender, ok := a.senders[channel]
	if !ok {
		a.logger.Warn("No sender configured for digest channel",
			zap.String("channel", channel))

		return nil
	}

	return sender.Send(ctx, recipient, msg)
}

// loadRows fetches the recipient and update rows referenced by the claimed
// jobs.
func (a *Aggregator) loadRows(
	ctx context.Context, jobs []*types.DeliveryJob,
) (map[string]*types.Recipient, map[string]*types.Update, error) {
	recipientIDs := make([]string, 0, len(jobs))
	updateIDs := make([]string, 0, len(jobs))
	seenRecipients := make(map[string]struct{})
	seenUpdates := make(map[string]struct{})

	for _, job := range jobs {
		if _, ok := seenRecipients[job.RecipientID]; !ok {
			seenRecipients[job.RecipientID] = struct{}{}
			recipientIDs = append(recipientIDs, job.RecipientID)
		}

		if _, ok := seenUpdates[job.UpdateID]; !ok {
			seenUpdates[job.UpdateID] = struct{}{}
			updateIDs = append(updateIDs, job.UpdateID)
		}
	}

	recipientMap, err := a.recipients.GetByIDs(ctx, recipientIDs)
	if err != nil {
		return nil, nil, err
	}

	updateMap, err := a.updates.GetByIDs(ctx, updateIDs)
	if err != nil {
		return nil, nil, err
	}

	return recipientMap, updateMap, nil
}

// releaseBatch returns a batch's claims to queued, logging on failure.
func (a *Aggregator) releaseBatch(ctx context.Context, batch []*types.DeliveryJob) {
	if err := a.jobs.ReleaseClaims(ctx, jobIDs(batch)); err != nil {
		a.logger.Error("Failed to release claimed jobs",
			zap.Int("count", len(batch)),
			zap.Error(err))
	}
}

// recordRun persists the sweep outcome, best effort.
func (a *Aggregator) recordRun(ctx context.Context, digestType string, counts Counts, startedAt time.Time) {
	err := a.stats.InsertRun(ctx, &types.DigestRun{
		DigestType: digestType,
		Processed:  counts.Processed,
		Errors:     counts.Errors,
		StartedAt:  startedAt,
		FinishedAt: time.Now(),
	})
	if err != nil {
		a.logger.Warn("Failed to record digest run", zap.Error(err))
	}
}

// groupByRecipientChannel buckets jobs by the composite (recipient, channel)
// key, preserving claim order within each bucket.
func groupByRecipientChannel(jobs []*types.DeliveryJob) [][]*types.DeliveryJob {
	index := make(map[string]int)

	var batches [][]*types.DeliveryJob

	for _, job := range jobs {
		key := job.RecipientID + "|" + job.Channel

		i, ok := index[key]
		if !ok {
			i = len(batches)
			index[key] = i
			batches = append(batches, nil)
		}

		batches[i] = append(batches[i], job)
	}

	return batches
}

// parseGroupContext parses a job's stored snapshot. Absent or malformed
// snapshots fall back to the default context silently; a digest is never
// dropped over cosmetic metadata.
func parseGroupContext(snapshot string) types.GroupContextSnapshot {
	if snapshot == "" {
		return types.DefaultGroupContext()
	}

	var parsed types.GroupContextSnapshot
	if err := sonic.Unmarshal([]byte(snapshot), &parsed); err != nil || parsed.GroupID == "" {
		return types.DefaultGroupContext()
	}

	return parsed
}

// jobIDs extracts the id list from a batch.
func jobIDs(jobs []*types.DeliveryJob) []string {
	ids := make([]string, len(jobs))
	for i, job := range jobs {
		ids[i] = job.ID
	}

	return ids
}
