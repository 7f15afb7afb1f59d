package activity_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/guildwatch/internal/activity"
	"github.com/edgard/guildwatch/internal/database"
)

type serviceFixture struct {
	svc   *activity.Service
	store database.Store
	clock *clockwork.FakeClock
	trail *fakeTrail
}

func newServiceFixture(t *testing.T) serviceFixture {
	t.Helper()

	db, err := database.NewDB(filepath.Join(t.TempDir(), "activity.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.CloseDB(db) })

	store := database.NewStore(db, nil)
	clock := clockwork.NewFakeClockAt(time.Unix(1_700_000_000, 0))
	trail := &fakeTrail{created: clock.Now()}
	svc := activity.NewService(
		store,
		activity.NewAttributor(trail, 0, 0, nil),
		activity.NewIgnoreSet(time.Minute),
		clock,
		nil,
	)
	return serviceFixture{svc: svc, store: store, clock: clock, trail: trail}
}

func observation(content string, attachments ...activity.Attachment) activity.Observation {
	return activity.Observation{
		GuildID:     1,
		ChannelID:   2,
		MessageID:   3,
		AuthorID:    42,
		Content:     content,
		Attachments: attachments,
	}
}

var testKey = database.MessageKey{GuildID: 1, ChannelID: 2, MessageID: 3}

func TestRecordCreateStoresBaseline(t *testing.T) {
	t.Parallel()
	f := newServiceFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.RecordCreate(ctx, observation("hello",
		activity.Attachment{Filename: "a.png", URL: "https://cdn/a.png"})))

	snap, err := f.store.GetSnapshot(ctx, testKey)
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, "hello", snap.Content)
	assert.Equal(t, "a.png (https://cdn/a.png)", snap.AttachmentSummary)
	assert.Equal(t, f.clock.Now().UTC(), snap.UpdatedAt)
}

func TestRecordIgnoresBots(t *testing.T) {
	t.Parallel()
	f := newServiceFixture(t)
	ctx := context.Background()

	obs := observation("beep")
	obs.IsBot = true
	require.NoError(t, f.svc.RecordCreate(ctx, obs))
	event, err := f.svc.RecordObservation(ctx, obs)
	require.NoError(t, err)
	assert.Nil(t, event)

	snap, err := f.store.GetSnapshot(ctx, testKey)
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestRecordObservationEdit(t *testing.T) {
	t.Parallel()
	f := newServiceFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.RecordCreate(ctx, observation("a")))
	f.clock.Advance(time.Minute)

	event, err := f.svc.RecordObservation(ctx, observation("b"))
	require.NoError(t, err)
	require.NotNil(t, event)
	assert.Equal(t, database.EventEdited, event.Kind)
	assert.Equal(t, "a", *event.BeforeContent)
	assert.Equal(t, "b", *event.AfterContent)
	assert.Nil(t, event.AttachmentSummary)
	assert.Nil(t, event.DeletedBy)
	assert.NotZero(t, event.ID)

	snap, err := f.store.GetSnapshot(ctx, testKey)
	require.NoError(t, err)
	assert.Equal(t, "b", snap.Content)

	again, err := f.svc.RecordObservation(ctx, observation("b"))
	require.NoError(t, err)
	assert.Nil(t, again, "identical observation is a no-op")
}

func TestRecordObservationAttachmentRemoved(t *testing.T) {
	t.Parallel()
	f := newServiceFixture(t)
	ctx := context.Background()

	x := activity.Attachment{Filename: "x.png", URL: "https://cdn/x.png"}
	y := activity.Attachment{Filename: "y.txt", URL: "https://cdn/y.txt"}
	require.NoError(t, f.svc.RecordCreate(ctx, observation("same", x, y)))

	event, err := f.svc.RecordObservation(ctx, observation("same", y))
	require.NoError(t, err)
	require.NotNil(t, event)
	assert.Equal(t, database.EventAttachmentRemoved, event.Kind)
	assert.Equal(t, "y.txt (https://cdn/y.txt)", *event.AttachmentSummary)

	event, err = f.svc.RecordObservation(ctx, observation("same"))
	require.NoError(t, err)
	require.NotNil(t, event)
	assert.Equal(t, database.EventAttachmentRemoved, event.Kind)
	assert.Nil(t, event.AttachmentSummary)
}

func TestRecordDeletionAttributesModerator(t *testing.T) {
	t.Parallel()
	f := newServiceFixture(t)
	ctx := context.Background()

	f.trail.entries = []activity.AuditEntry{
		{ActorID: 7, TargetID: 42, ChannelID: 2, Timestamp: f.clock.Now().Add(5 * time.Second)},
	}
	require.NoError(t, f.svc.RecordCreate(ctx, observation("spam",
		activity.Attachment{Filename: "a.gif", URL: "https://cdn/a.gif"})))

	event, err := f.svc.RecordDeletion(ctx, testKey)
	require.NoError(t, err)
	require.NotNil(t, event)
	assert.Equal(t, database.EventDeleted, event.Kind)
	assert.Equal(t, uint64(7), *event.DeletedBy)
	assert.Equal(t, uint64(42), *event.AuthorID)
	assert.Equal(t, "spam", *event.BeforeContent)
	assert.Nil(t, event.AfterContent)
	assert.Equal(t, "a.gif (https://cdn/a.gif)", *event.AttachmentSummary)

	snap, err := f.store.GetSnapshot(ctx, testKey)
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestRecordDeletionFallsBackToAuthor(t *testing.T) {
	t.Parallel()
	f := newServiceFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.RecordCreate(ctx, observation("oops")))
	event, err := f.svc.RecordDeletion(ctx, testKey)
	require.NoError(t, err)
	require.NotNil(t, event)
	assert.Equal(t, uint64(42), *event.DeletedBy)
}

func TestRecordDeletionWithoutSnapshot(t *testing.T) {
	t.Parallel()
	f := newServiceFixture(t)
	ctx := context.Background()

	event, err := f.svc.RecordDeletion(ctx, testKey)
	require.NoError(t, err)
	require.NotNil(t, event)
	assert.Equal(t, database.EventDeleted, event.Kind)
	assert.Equal(t, uint64(3), *event.MessageID)
	assert.Nil(t, event.BeforeContent)
	assert.Nil(t, event.AuthorID)
	assert.Nil(t, event.DeletedBy)
	assert.Zero(t, f.trail.calls, "no audit lookup without an author")
}

func TestRecordDeletionSuppressed(t *testing.T) {
	t.Parallel()
	f := newServiceFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.RecordCreate(ctx, observation("bad word")))
	f.svc.IgnoreDeletes(testKey.MessageID)

	event, err := f.svc.RecordDeletion(ctx, testKey)
	require.NoError(t, err)
	assert.Nil(t, event)

	snap, err := f.store.GetSnapshot(ctx, testKey)
	require.NoError(t, err)
	assert.Nil(t, snap, "suppressed deletion still drops the snapshot")

	events, err := f.svc.QueryActivity(ctx, testKey.GuildID, database.ActivityFilter{})
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestNoGhostDiffAfterDelete(t *testing.T) {
	t.Parallel()
	f := newServiceFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.RecordCreate(ctx, observation("one")))
	_, err := f.svc.RecordObservation(ctx, observation("two"))
	require.NoError(t, err)
	_, err = f.svc.RecordDeletion(ctx, testKey)
	require.NoError(t, err)

	// Update delivered after the delete: fresh baseline, no diff.
	event, err := f.svc.RecordObservation(ctx, observation("three"))
	require.NoError(t, err)
	assert.Nil(t, event)

	event, err = f.svc.RecordObservation(ctx, observation("three"))
	require.NoError(t, err)
	assert.Nil(t, event)

	events, err := f.svc.QueryActivity(ctx, testKey.GuildID, database.ActivityFilter{})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, database.EventDeleted, events[0].Kind)
	assert.Equal(t, database.EventEdited, events[1].Kind)
}
