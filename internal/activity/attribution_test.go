package activity_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/edgard/guildwatch/internal/activity"
)

type fakeTrail struct {
	entries  []activity.AuditEntry
	err      error
	created  time.Time
	timeErr  error
	gotLimit int
	calls    int
}

func (f *fakeTrail) RecentMessageDeletes(_ context.Context, _ uint64, limit int) ([]activity.AuditEntry, error) {
	f.calls++
	f.gotLimit = limit
	return f.entries, f.err
}

func (f *fakeTrail) MessageTime(uint64) (time.Time, error) {
	return f.created, f.timeErr
}

func TestAttributor(t *testing.T) {
	t.Parallel()

	const (
		guild   = uint64(1)
		channel = uint64(10)
		message = uint64(500)
		author  = uint64(42)
		mod     = uint64(7)
	)
	created := time.Unix(1_700_000_000, 0)

	tests := []struct {
		name  string
		trail *fakeTrail
		want  uint64
	}{
		{
			name: "matching entry within window",
			trail: &fakeTrail{created: created, entries: []activity.AuditEntry{
				{ActorID: mod, TargetID: author, ChannelID: channel, Timestamp: created.Add(15 * time.Second)},
			}},
			want: mod,
		},
		{
			name: "entry before creation still within window",
			trail: &fakeTrail{created: created, entries: []activity.AuditEntry{
				{ActorID: mod, TargetID: author, ChannelID: channel, Timestamp: created.Add(-20 * time.Second)},
			}},
			want: mod,
		},
		{
			name: "outside window falls back to author",
			trail: &fakeTrail{created: created, entries: []activity.AuditEntry{
				{ActorID: mod, TargetID: author, ChannelID: channel, Timestamp: created.Add(21 * time.Second)},
			}},
			want: author,
		},
		{
			name: "other channel",
			trail: &fakeTrail{created: created, entries: []activity.AuditEntry{
				{ActorID: mod, TargetID: author, ChannelID: channel + 1, Timestamp: created},
			}},
			want: author,
		},
		{
			name: "other target",
			trail: &fakeTrail{created: created, entries: []activity.AuditEntry{
				{ActorID: mod, TargetID: author + 1, ChannelID: channel, Timestamp: created},
			}},
			want: author,
		},
		{
			name: "first match wins",
			trail: &fakeTrail{created: created, entries: []activity.AuditEntry{
				{ActorID: 99, TargetID: author, ChannelID: channel + 1, Timestamp: created},
				{ActorID: mod, TargetID: author, ChannelID: channel, Timestamp: created.Add(time.Second)},
				{ActorID: 8, TargetID: author, ChannelID: channel, Timestamp: created},
			}},
			want: mod,
		},
		{
			name:  "audit log error",
			trail: &fakeTrail{created: created, err: errors.New("missing permissions")},
			want:  author,
		},
		{
			name:  "bad message id",
			trail: &fakeTrail{timeErr: errors.New("invalid snowflake")},
			want:  author,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			a := activity.NewAttributor(tt.trail, 0, 0, nil)
			got := a.Attribute(context.Background(), guild, channel, message, author)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAttributorQueriesConfiguredLimit(t *testing.T) {
	t.Parallel()

	trail := &fakeTrail{created: time.Now()}
	activity.NewAttributor(trail, 0, 0, nil).Attribute(context.Background(), 1, 2, 3, 4)
	assert.Equal(t, activity.DefaultAuditLogLimit, trail.gotLimit)

	activity.NewAttributor(trail, 10, time.Second, nil).Attribute(context.Background(), 1, 2, 3, 4)
	assert.Equal(t, 10, trail.gotLimit)
}

func TestAttributorWithoutTrail(t *testing.T) {
	t.Parallel()

	a := activity.NewAttributor(nil, 0, 0, nil)
	assert.Equal(t, uint64(4), a.Attribute(context.Background(), 1, 2, 3, 4))
}

func TestIgnoreSet(t *testing.T) {
	t.Parallel()

	s := activity.NewIgnoreSet(time.Minute)
	s.Add(1, 2)
	assert.Equal(t, 2, s.Len())
	assert.True(t, s.Take(1))
	assert.False(t, s.Take(1), "take forgets the id")
	assert.False(t, s.Take(3))
	assert.True(t, s.Take(2))
}

func TestIgnoreSetExpires(t *testing.T) {
	t.Parallel()

	s := activity.NewIgnoreSet(20 * time.Millisecond)
	s.Add(1)
	time.Sleep(100 * time.Millisecond)
	assert.False(t, s.Take(1))
}
