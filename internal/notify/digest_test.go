package notify_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tribelabs/tribe/internal/database/types"
	"github.com/tribelabs/tribe/internal/notify"
	"github.com/tribelabs/tribe/internal/notify/channels"
	"go.uber.org/zap"
)

type fakeSweepStore struct {
	due      []*types.DeliveryJob
	claimErr error

	sent     []string
	released []string
}

func (f *fakeSweepStore) ClaimDue(
	_ context.Context, _ time.Time, _ []string, _ int,
) ([]*types.DeliveryJob, error) {
	if f.claimErr != nil {
		return nil, f.claimErr
	}

	return f.due, nil
}

func (f *fakeSweepStore) ReleaseClaims(_ context.Context, ids []string) error {
	f.released = append(f.released, ids...)
	return nil
}

func (f *fakeSweepStore) MarkSent(_ context.Context, ids []string, _ time.Time) error {
	f.sent = append(f.sent, ids...)
	return nil
}

func (f *fakeSweepStore) ReconcileStuck(_ context.Context, _ time.Time) (int, error) {
	return 0, nil
}

type fakeRecipientStore struct {
	recipients map[string]*types.Recipient
}

func (f *fakeRecipientStore) GetByIDs(
	_ context.Context, _ []string,
) (map[string]*types.Recipient, error) {
	return f.recipients, nil
}

type fakeUpdateStore struct {
	updates map[string]*types.Update
}

func (f *fakeUpdateStore) GetByIDs(_ context.Context, _ []string) (map[string]*types.Update, error) {
	return f.updates, nil
}

type fakeStatsStore struct {
	runs []*types.DigestRun
}

func (f *fakeStatsStore) InsertRun(_ context.Context, run *types.DigestRun) error {
	f.runs = append(f.runs, run)
	return nil
}

type fakeSender struct {
	sent []channels.Message
	err  error
}

func (f *fakeSender) Send(_ context.Context, _ *types.Recipient, msg channels.Message) error {
	if f.err != nil {
		return f.err
	}

	f.sent = append(f.sent, msg)

	return nil
}

func digestJob(id, updateID, recipientID, channel, snapshot string) *types.DeliveryJob {
	return &types.DeliveryJob{
		ID:           id,
		UpdateID:     updateID,
		RecipientID:  recipientID,
		Channel:      channel,
		Status:       types.JobStatusQueued,
		GroupContext: snapshot,
	}
}

func newTestAggregator(
	jobs *fakeSweepStore,
	recipients *fakeRecipientStore,
	updates *fakeUpdateStore,
	stats *fakeStatsStore,
	sender *fakeSender,
) *notify.Aggregator {
	return notify.NewAggregator(
		jobs,
		recipients,
		updates,
		stats,
		map[string]channels.Sender{
			types.ChannelEmail:    sender,
			types.ChannelWhatsApp: sender,
		},
		"https://tribe.example.com",
		100,
		zap.NewNop(),
	)
}

func TestProcessDigestsGroupsByRecipientAndChannel(t *testing.T) {
	t.Parallel()

	snapshotA := `{"groupId":"grp-1","groupName":"Grandparents","role":"grandparent"}`
	snapshotB := `{"groupId":"grp-2","groupName":"Close Friends","role":"friend"}`

	jobs := &fakeSweepStore{due: []*types.DeliveryJob{
		digestJob("job-1", "upd-1", "rec-1", types.ChannelEmail, snapshotA),
		digestJob("job-2", "upd-2", "rec-1", types.ChannelEmail, snapshotB),
		digestJob("job-3", "upd-1", "rec-2", types.ChannelWhatsApp, snapshotA),
	}}
	recipients := &fakeRecipientStore{recipients: map[string]*types.Recipient{
		"rec-1": {ID: "rec-1", Email: "nana@example.com"},
		"rec-2": {ID: "rec-2", Phone: "+15551234567"},
	}}
	updates := &fakeUpdateStore{updates: map[string]*types.Update{
		"upd-1": {ID: "upd-1", Content: "First steps today!", CreatedAt: time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)},
		"upd-2": {ID: "upd-2", Content: "New photo album", CreatedAt: time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC)},
	}}
	stats := &fakeStatsStore{}
	sender := &fakeSender{}

	counts := newTestAggregator(jobs, recipients, updates, stats, sender).
		ProcessDigests(t.Context(), notify.DigestWeekly)

	assert.Equal(t, 3, counts.Processed)
	assert.Zero(t, counts.Errors)

	// One message per (recipient, channel) batch, not per job.
	require.Len(t, sender.sent, 2)
	assert.ElementsMatch(t, []string{"job-1", "job-2", "job-3"}, jobs.sent)

	// rec-1's batch spans two groups: sectioned body and group count in the
	// subject.
	first := sender.sent[0]
	assert.Equal(t, "2 new updates from your Tribe (2 groups)", first.Subject)
	assert.Contains(t, first.Text, "Grandparents")
	assert.Contains(t, first.Text, "Close Friends")
	assert.Contains(t, first.Text, "First steps today!")
	assert.Contains(t, first.HTML, "https://tribe.example.com/preferences")

	second := sender.sent[1]
	assert.Equal(t, "1 new update from your Tribe", second.Subject)

	// Sweep outcome was recorded.
	require.Len(t, stats.runs, 1)
	assert.Equal(t, notify.DigestWeekly, stats.runs[0].DigestType)
	assert.Equal(t, 3, stats.runs[0].Processed)
}

func TestProcessDigestsSnapshotFallback(t *testing.T) {
	t.Parallel()

	jobs := &fakeSweepStore{due: []*types.DeliveryJob{
		digestJob("job-1", "upd-1", "rec-1", types.ChannelEmail, ""),
		digestJob("job-2", "upd-2", "rec-1", types.ChannelEmail, "{not json"),
	}}
	recipients := &fakeRecipientStore{recipients: map[string]*types.Recipient{
		"rec-1": {ID: "rec-1", Email: "nana@example.com"},
	}}
	updates := &fakeUpdateStore{updates: map[string]*types.Update{
		"upd-1": {ID: "upd-1", Content: "Morning walk"},
		"upd-2": {ID: "upd-2", Content: "Lunch together"},
	}}
	sender := &fakeSender{}

	counts := newTestAggregator(jobs, recipients, updates, &fakeStatsStore{}, sender).
		ProcessDigests(t.Context(), notify.DigestDaily)

	assert.Equal(t, 2, counts.Processed)
	assert.Zero(t, counts.Errors)

	// Absent and malformed snapshots both land in the default section.
	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0].Text, "Family")
	assert.Equal(t, "2 new updates from your Tribe", sender.sent[0].Subject)
}

func TestProcessDigestsSendFailureReleasesBatch(t *testing.T) {
	t.Parallel()

	snapshot := `{"groupId":"grp-1","groupName":"Grandparents","role":"grandparent"}`

	jobs := &fakeSweepStore{due: []*types.DeliveryJob{
		digestJob("job-1", "upd-1", "rec-1", types.ChannelEmail, snapshot),
		digestJob("job-2", "upd-2", "rec-1", types.ChannelEmail, snapshot),
		digestJob("job-3", "upd-1", "rec-2", types.ChannelWhatsApp, snapshot),
	}}
	recipients := &fakeRecipientStore{recipients: map[string]*types.Recipient{
		"rec-1": {ID: "rec-1", Email: "nana@example.com"},
		"rec-2": {ID: "rec-2", Phone: "+15551234567"},
	}}
	updates := &fakeUpdateStore{updates: map[string]*types.Update{
		"upd-1": {ID: "upd-1", Content: "First steps"},
		"upd-2": {ID: "upd-2", Content: "New photo"},
	}}

	failing := &fakeSender{err: errors.New("smtp unavailable")}
	working := &fakeSender{}

	agg := notify.NewAggregator(
		jobs, recipients, updates, &fakeStatsStore{},
		map[string]channels.Sender{
			types.ChannelEmail:    failing,
			types.ChannelWhatsApp: working,
		},
		"https://tribe.example.com", 100, zap.NewNop(),
	)

	counts := agg.ProcessDigests(t.Context(), notify.DigestDaily)

	// The failed email batch counts per job and goes back to queued; the
	// whatsapp batch is unaffected.
	assert.Equal(t, 1, counts.Processed)
	assert.Equal(t, 2, counts.Errors)
	assert.ElementsMatch(t, []string{"job-1", "job-2"}, jobs.released)
	assert.ElementsMatch(t, []string{"job-3"}, jobs.sent)
}

func TestProcessDigestsMissingEndpointSkipsSend(t *testing.T) {
	t.Parallel()

	jobs := &fakeSweepStore{due: []*types.DeliveryJob{
		digestJob("job-1", "upd-1", "rec-1", types.ChannelEmail, ""),
	}}
	// The recipient lost their email address after the job was queued.
	recipients := &fakeRecipientStore{recipients: map[string]*types.Recipient{
		"rec-1": {ID: "rec-1", Phone: "+15551234567"},
	}}
	updates := &fakeUpdateStore{updates: map[string]*types.Update{
		"upd-1": {ID: "upd-1", Content: "Morning walk"},
	}}
	sender := &fakeSender{}

	counts := newTestAggregator(jobs, recipients, updates, &fakeStatsStore{}, sender).
		ProcessDigests(t.Context(), notify.DigestDaily)

	// Marked processed without a send so the batch does not requeue forever.
	assert.Equal(t, 1, counts.Processed)
	assert.Zero(t, counts.Errors)
	assert.Empty(t, sender.sent)
	assert.ElementsMatch(t, []string{"job-1"}, jobs.sent)
}

func TestProcessDigestsClaimFailure(t *testing.T) {
	t.Parallel()

	// A non-transient failure; the retry wrapper gives up immediately.
	jobs := &fakeSweepStore{claimErr: errors.New(`relation "delivery_jobs" does not exist`)}

	counts := newTestAggregator(jobs, &fakeRecipientStore{}, &fakeUpdateStore{}, &fakeStatsStore{}, &fakeSender{}).
		ProcessDigests(t.Context(), notify.DigestDaily)

	assert.Zero(t, counts.Processed)
	assert.Equal(t, 1, counts.Errors)
}

func TestProcessDigestsNothingDue(t *testing.T) {
	t.Parallel()

	jobs := &fakeSweepStore{}
	stats := &fakeStatsStore{}

	counts := newTestAggregator(jobs, &fakeRecipientStore{}, &fakeUpdateStore{}, stats, &fakeSender{}).
		ProcessDigests(t.Context(), notify.DigestWeekly)

	assert.Zero(t, counts.Processed)
	assert.Zero(t, counts.Errors)
	// No run row for an empty sweep.
	assert.Empty(t, stats.runs)
}
