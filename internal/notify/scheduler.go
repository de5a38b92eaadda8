package notify

import (
	"context"
	"slices"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"
	"github.com/tribelabs/tribe/internal/database/types"
	"go.uber.org/zap"
)

// digestSendHour is the local hour digest deliveries are scheduled for.
const digestSendHour = 8

// Base priority by frequency; lower value means more urgent. The channel
// adjustment is added on top, so every_update over SMS yields the lowest
// number of all.
var frequencyBasePriority = map[string]int{
	types.FrequencyEveryUpdate:    1,
	types.FrequencyDailyDigest:    2,
	types.FrequencyWeeklyDigest:   3,
	types.FrequencyMilestonesOnly: 4,
}

var channelPriorityAdjustment = map[string]int{
	types.ChannelSMS:      0,
	types.ChannelEmail:    1,
	types.ChannelWhatsApp: 1,
}

const defaultBasePriority = 3

// RecipientSettings pairs a recipient with their resolved settings for one
// distribution attempt.
type RecipientSettings struct {
	Recipient *types.Recipient
	Settings  types.EffectiveSettings
}

// jobInserter is the slice of the job repository the scheduler needs.
type jobInserter interface {
	InsertJobs(ctx context.Context, jobs []*types.DeliveryJob) error
}

// Scheduler converts eligible (recipient, settings) pairs into delivery jobs
// and persists them in immediate and digest batches.
type Scheduler struct {
	jobs   jobInserter
	logger *zap.Logger
}

// NewScheduler creates a new delivery job scheduler.
func NewScheduler(jobs jobInserter, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		jobs:   jobs,
		logger: logger.Named("scheduler"),
	}
}

// BuildJobs constructs delivery jobs for every recipient x channel pair,
// partitioned into immediate and digest groups. Only every_update recipients
// go to the immediate group; everything else rides the digest queue, where a
// nil scheduled time means "already due".
func BuildJobs(
	updateID string, pairs []RecipientSettings, now time.Time,
) (immediate, digest []*types.DeliveryJob) {
	for _, pair := range pairs {
		snapshot := marshalGroupContext(pair.Settings)

		for _, channel := range pair.Settings.Channels {
			// Digests ride email and whatsapp only; a digest-routed SMS job
			// would sit queued forever since no sweep claims that channel.
			if pair.Settings.Frequency != types.FrequencyEveryUpdate &&
				!slices.Contains(digestChannels, channel) {
				continue
			}

			job := &types.DeliveryJob{
				ID:           uuid.New().String(),
				UpdateID:     updateID,
				RecipientID:  pair.Recipient.ID,
				Channel:      channel,
				Priority:     jobPriority(pair.Settings.Frequency, channel),
				ScheduledFor: scheduledFor(pair.Settings.Frequency, now),
				GroupContext: snapshot,
				Status:       types.JobStatusQueued,
				CreatedAt:    now,
			}

			if pair.Settings.Frequency == types.FrequencyEveryUpdate {
				immediate = append(immediate, job)
			} else {
				digest = append(digest, job)
			}
		}
	}

	return immediate, digest
}

// PersistJobs inserts the immediate and digest batches concurrently. A failed
// batch is logged and does not block the other; callers receive the
// constructed jobs either way and must not assume persistence succeeded.
func (s *Scheduler) PersistJobs(ctx context.Context, immediate, digest []*types.DeliveryJob) {
	p := pool.New().WithContext(ctx)

	p.Go(func(ctx context.Context) error {
		if err := s.jobs.InsertJobs(ctx, immediate); err != nil {
			s.logger.Error("Failed to insert immediate delivery jobs",
				zap.Int("count", len(immediate)),
				zap.Error(err))
		}

		return nil
	})

	p.Go(func(ctx context.Context) error {
		if err := s.jobs.InsertJobs(ctx, digest); err != nil {
			s.logger.Error("Failed to insert digest delivery jobs",
				zap.Int("count", len(digest)),
				zap.Error(err))
		}

		return nil
	})

	_ = p.Wait()
}

// jobPriority computes the job's priority from its frequency base and
// channel adjustment. This ordering is relied on by the sweep's claim order.
func jobPriority(frequency, channel string) int {
	base, ok := frequencyBasePriority[frequency]
	if !ok {
		base = defaultBasePriority
	}

	return base + channelPriorityAdjustment[channel]
}

// scheduledFor computes when a job becomes due. Nil means no future schedule;
// the sweep treats it as already due.
func scheduledFor(frequency string, now time.Time) *time.Time {
	switch frequency {
	case types.FrequencyEveryUpdate:
		t := now
		return &t
	case types.FrequencyDailyDigest:
		tomorrow := now.AddDate(0, 0, 1)
		t := time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(),
			digestSendHour, 0, 0, 0, now.Location())

		return &t
	case types.FrequencyWeeklyDigest:
		// Next Sunday is never today: on a Sunday this schedules 7 days out.
		daysUntil := (int(time.Sunday) - int(now.Weekday()) + 7) % 7
		if daysUntil == 0 {
			daysUntil = 7
		}

		sunday := now.AddDate(0, 0, daysUntil)
		t := time.Date(sunday.Year(), sunday.Month(), sunday.Day(),
			digestSendHour, 0, 0, 0, now.Location())

		return &t
	default:
		return nil
	}
}

// marshalGroupContext freezes the resolved group context into the job so
// digest rendering never re-resolves membership. Serialization failures
// degrade to an empty snapshot, which the aggregator defaults silently.
func marshalGroupContext(settings types.EffectiveSettings) string {
	snapshot := types.GroupContextSnapshot{
		GroupID:   settings.GroupID,
		GroupName: settings.GroupName,
		Role:      settings.Role,
	}

	data, err := sonic.Marshal(snapshot)
	if err != nil {
		return ""
	}

	return string(data)
}
