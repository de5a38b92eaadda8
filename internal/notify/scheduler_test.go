package notify_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tribelabs/tribe/internal/database/types"
	"github.com/tribelabs/tribe/internal/notify"
	"go.uber.org/zap"
)

type fakeJobStore struct {
	mu       sync.Mutex
	inserted [][]*types.DeliveryJob

	// failFor lets a test reject selected batches, simulating one batch
	// insert failing while the other succeeds.
	failFor func(jobs []*types.DeliveryJob) error
}

func (f *fakeJobStore) InsertJobs(_ context.Context, jobs []*types.DeliveryJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failFor != nil {
		if err := f.failFor(jobs); err != nil {
			return err
		}
	}

	f.inserted = append(f.inserted, jobs)

	return nil
}

func testPair(frequency string, channels ...string) notify.RecipientSettings {
	return notify.RecipientSettings{
		Recipient: &types.Recipient{ID: "rec-1", Email: "nana@example.com"},
		Settings: types.EffectiveSettings{
			Frequency:    frequency,
			Channels:     channels,
			ContentTypes: []string{types.ContentPrefPhotos},
			GroupID:      "grp-1",
			GroupName:    "Grandparents",
			Role:         "grandparent",
		},
	}
}

func TestBuildJobsSplitsImmediateAndDigest(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 11, 14, 30, 0, 0, time.UTC) // a Wednesday
	pairs := []notify.RecipientSettings{
		testPair(types.FrequencyEveryUpdate, types.ChannelSMS, types.ChannelEmail),
		testPair(types.FrequencyWeeklyDigest, types.ChannelEmail),
	}

	immediate, digest := notify.BuildJobs("upd-1", pairs, now)

	require.Len(t, immediate, 2)
	require.Len(t, digest, 1)

	for _, job := range immediate {
		assert.Equal(t, "upd-1", job.UpdateID)
		assert.Equal(t, types.JobStatusQueued, job.Status)
		require.NotNil(t, job.ScheduledFor)
		assert.Equal(t, now, *job.ScheduledFor)
	}

	assert.NotEmpty(t, immediate[0].ID)
	assert.NotEqual(t, immediate[0].ID, immediate[1].ID)
}

func TestBuildJobsPriority(t *testing.T) {
	t.Parallel()

	now := time.Now()

	tests := []struct {
		name      string
		frequency string
		channel   string
		want      int
	}{
		{"every_update over sms is most urgent", types.FrequencyEveryUpdate, types.ChannelSMS, 1},
		{"every_update over email", types.FrequencyEveryUpdate, types.ChannelEmail, 2},
		{"daily over whatsapp", types.FrequencyDailyDigest, types.ChannelWhatsApp, 3},
		{"weekly over email", types.FrequencyWeeklyDigest, types.ChannelEmail, 4},
		{"milestones over whatsapp", types.FrequencyMilestonesOnly, types.ChannelWhatsApp, 5},
		{"unknown frequency uses default base", "hourly_digest", types.ChannelEmail, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			immediate, digest := notify.BuildJobs("upd-1",
				[]notify.RecipientSettings{testPair(tt.frequency, tt.channel)}, now)

			jobs := append(immediate, digest...)
			require.Len(t, jobs, 1)
			assert.Equal(t, tt.want, jobs[0].Priority)
		})
	}
}

func TestBuildJobsDailySchedule(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 11, 14, 30, 0, 0, time.UTC)

	_, digest := notify.BuildJobs("upd-1",
		[]notify.RecipientSettings{testPair(types.FrequencyDailyDigest, types.ChannelEmail)}, now)

	require.Len(t, digest, 1)
	require.NotNil(t, digest[0].ScheduledFor)
	assert.Equal(t,
		time.Date(2025, 6, 12, 8, 0, 0, 0, time.UTC),
		*digest[0].ScheduledFor)
}

func TestBuildJobsWeeklySchedule(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			"midweek schedules coming sunday",
			time.Date(2025, 6, 11, 14, 30, 0, 0, time.UTC), // Wednesday
			time.Date(2025, 6, 15, 8, 0, 0, 0, time.UTC),
		},
		{
			"sunday schedules next sunday, never today",
			time.Date(2025, 6, 15, 6, 0, 0, 0, time.UTC),
			time.Date(2025, 6, 22, 8, 0, 0, 0, time.UTC),
		},
		{
			"saturday schedules tomorrow",
			time.Date(2025, 6, 14, 23, 0, 0, 0, time.UTC),
			time.Date(2025, 6, 15, 8, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, digest := notify.BuildJobs("upd-1",
				[]notify.RecipientSettings{testPair(types.FrequencyWeeklyDigest, types.ChannelEmail)}, tt.now)

			require.Len(t, digest, 1)
			require.NotNil(t, digest[0].ScheduledFor)
			assert.Equal(t, tt.want, *digest[0].ScheduledFor)
		})
	}
}

func TestBuildJobsDigestFrequencySkipsSMS(t *testing.T) {
	t.Parallel()

	_, digest := notify.BuildJobs("upd-1",
		[]notify.RecipientSettings{
			testPair(types.FrequencyWeeklyDigest, types.ChannelSMS, types.ChannelEmail),
		},
		time.Now())

	// SMS carries no digests; only the email job is queued for the sweep.
	require.Len(t, digest, 1)
	assert.Equal(t, types.ChannelEmail, digest[0].Channel)
}

func TestBuildJobsMilestonesOnlyHasNoSchedule(t *testing.T) {
	t.Parallel()

	_, digest := notify.BuildJobs("upd-1",
		[]notify.RecipientSettings{testPair(types.FrequencyMilestonesOnly, types.ChannelEmail)},
		time.Now())

	require.Len(t, digest, 1)
	// Nil means already due; the next sweep picks it up.
	assert.Nil(t, digest[0].ScheduledFor)
}

func TestBuildJobsGroupContextSnapshot(t *testing.T) {
	t.Parallel()

	_, digest := notify.BuildJobs("upd-1",
		[]notify.RecipientSettings{testPair(types.FrequencyWeeklyDigest, types.ChannelEmail)},
		time.Now())

	require.Len(t, digest, 1)

	var snapshot types.GroupContextSnapshot
	require.NoError(t, sonic.Unmarshal([]byte(digest[0].GroupContext), &snapshot))
	assert.Equal(t, "grp-1", snapshot.GroupID)
	assert.Equal(t, "Grandparents", snapshot.GroupName)
	assert.Equal(t, "grandparent", snapshot.Role)
}

func TestPersistJobsInsertsBothBatches(t *testing.T) {
	t.Parallel()

	store := &fakeJobStore{}
	scheduler := notify.NewScheduler(store, zap.NewNop())

	now := time.Now()
	immediate, digest := notify.BuildJobs("upd-1", []notify.RecipientSettings{
		testPair(types.FrequencyEveryUpdate, types.ChannelSMS),
		testPair(types.FrequencyWeeklyDigest, types.ChannelEmail),
	}, now)

	scheduler.PersistJobs(t.Context(), immediate, digest)

	store.mu.Lock()
	defer store.mu.Unlock()

	total := 0
	for _, batch := range store.inserted {
		total += len(batch)
	}

	assert.Equal(t, 2, total)
}

func TestPersistJobsDigestFailureDoesNotBlockImmediate(t *testing.T) {
	t.Parallel()

	// Fail only batches holding digest jobs, distinguished by priority.
	store := &fakeJobStore{failFor: func(jobs []*types.DeliveryJob) error {
		for _, job := range jobs {
			if job.Priority >= 3 {
				return errors.New("connection refused")
			}
		}

		return nil
	}}
	scheduler := notify.NewScheduler(store, zap.NewNop())

	immediate, digest := notify.BuildJobs("upd-1", []notify.RecipientSettings{
		testPair(types.FrequencyEveryUpdate, types.ChannelSMS),
		testPair(types.FrequencyWeeklyDigest, types.ChannelEmail),
	}, time.Now())

	require.Len(t, immediate, 1)
	require.Len(t, digest, 1)

	// The digest insert failure is logged, not raised, and must not block
	// the immediate batch.
	scheduler.PersistJobs(t.Context(), immediate, digest)

	store.mu.Lock()
	defer store.mu.Unlock()

	require.Len(t, store.inserted, 1)
	require.Len(t, store.inserted[0], 1)
	assert.Equal(t, immediate[0].ID, store.inserted[0][0].ID)
}
