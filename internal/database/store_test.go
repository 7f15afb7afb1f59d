package database_test

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/guildwatch/internal/database"
	apperrors "github.com/edgard/guildwatch/internal/errors"
)

func newTestStore(t *testing.T) database.Store {
	t.Helper()

	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.CloseDB(db) })

	return database.NewStore(db, nil)
}

func ptr[T any](v T) *T { return &v }

func TestSnapshotLifecycle(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	ctx := context.Background()
	store := newTestStore(t)

	key := database.MessageKey{GuildID: 1, ChannelID: 2, MessageID: 3}
	now := time.Unix(1_700_000_000, 0).UTC()

	got, err := store.GetSnapshot(ctx, key)
	require.NoError(t, err)
	assert.Nil(got)

	require.NoError(t, store.UpsertSnapshot(ctx, &database.MessageSnapshot{
		MessageKey: key, AuthorID: 9, Content: "first", UpdatedAt: now,
	}))
	require.NoError(t, store.UpsertSnapshot(ctx, &database.MessageSnapshot{
		MessageKey: key, AuthorID: 9, Content: "second", AttachmentSummary: "a.png (https://cdn/a.png)", UpdatedAt: now.Add(time.Minute),
	}))

	got, err = store.GetSnapshot(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal("second", got.Content)
	assert.Equal("a.png (https://cdn/a.png)", got.AttachmentSummary)
	assert.Equal(uint64(9), got.AuthorID)
	assert.Equal(now.Add(time.Minute), got.UpdatedAt)

	require.NoError(t, store.DeleteSnapshot(ctx, key))
	require.NoError(t, store.DeleteSnapshot(ctx, key), "second delete must be a no-op")

	got, err = store.GetSnapshot(ctx, key)
	require.NoError(t, err)
	assert.Nil(got)
}

func TestSnapshotIDOutOfRange(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(t)

	key := database.MessageKey{GuildID: math.MaxInt64 + 1, ChannelID: 2, MessageID: 3}

	err := store.UpsertSnapshot(ctx, &database.MessageSnapshot{MessageKey: key, Content: "x"})
	assert.True(t, errors.Is(err, apperrors.ErrValueOutOfRange))

	_, err = store.GetSnapshot(ctx, key)
	assert.True(t, errors.Is(err, apperrors.ErrValueOutOfRange))

	err = store.DeleteSnapshot(ctx, key)
	assert.True(t, errors.Is(err, apperrors.ErrValueOutOfRange))
}

func TestDeleteSnapshotsBefore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(t)

	base := time.Unix(1_700_000_000, 0).UTC()
	for i, age := range []time.Duration{0, 10 * time.Hour, 100 * time.Hour} {
		require.NoError(t, store.UpsertSnapshot(ctx, &database.MessageSnapshot{
			MessageKey: database.MessageKey{GuildID: 1, ChannelID: 1, MessageID: uint64(i + 1)},
			Content:    "m",
			UpdatedAt:  base.Add(-age),
		}))
	}

	deleted, err := store.DeleteSnapshotsBefore(ctx, base.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	gone, err := store.GetSnapshot(ctx, database.MessageKey{GuildID: 1, ChannelID: 1, MessageID: 3})
	require.NoError(t, err)
	assert.Nil(t, gone)

	kept, err := store.GetSnapshot(ctx, database.MessageKey{GuildID: 1, ChannelID: 1, MessageID: 2})
	require.NoError(t, err)
	assert.NotNil(t, kept)
}

func TestActivityAppendAndQuery(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(t)

	base := time.Unix(1_700_000_000, 0).UTC()
	events := []database.ActivityEvent{
		{GuildID: 1, ChannelID: 2, MessageID: ptr(uint64(10)), AuthorID: ptr(uint64(100)), Kind: database.EventEdited,
			BeforeContent: ptr("a"), AfterContent: ptr("b"), CreatedAt: base},
		{GuildID: 1, ChannelID: 2, MessageID: ptr(uint64(11)), AuthorID: ptr(uint64(200)), Kind: database.EventDeleted,
			BeforeContent: ptr("gone"), DeletedBy: ptr(uint64(300)), CreatedAt: base.Add(time.Second)},
		{GuildID: 1, ChannelID: 2, MessageID: ptr(uint64(12)), AuthorID: ptr(uint64(100)), Kind: database.EventAttachmentRemoved,
			AttachmentSummary: ptr("x.png (https://cdn/x.png)"), CreatedAt: base.Add(2 * time.Second)},
		{GuildID: 2, ChannelID: 5, Kind: database.EventDeleted, CreatedAt: base.Add(3 * time.Second)},
	}
	for i := range events {
		require.NoError(t, store.AppendActivity(ctx, &events[i]))
		assert.NotZero(t, events[i].ID)
	}

	t.Run("newest first", func(t *testing.T) {
		got, err := store.QueryActivity(ctx, 1, database.ActivityFilter{})
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, database.EventAttachmentRemoved, got[0].Kind)
		assert.Equal(t, database.EventDeleted, got[1].Kind)
		assert.Equal(t, database.EventEdited, got[2].Kind)
		assert.Equal(t, uint64(300), *got[1].DeletedBy)
		assert.Nil(t, got[0].DeletedBy)
		assert.Equal(t, base, got[2].CreatedAt)
	})

	t.Run("author filter", func(t *testing.T) {
		got, err := store.QueryActivity(ctx, 1, database.ActivityFilter{AuthorID: ptr(uint64(100))})
		require.NoError(t, err)
		require.Len(t, got, 2)
		for _, e := range got {
			assert.Equal(t, uint64(100), *e.AuthorID)
		}
	})

	t.Run("kind filter ignores case", func(t *testing.T) {
		got, err := store.QueryActivity(ctx, 1, database.ActivityFilter{Kind: "DELETED"})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, uint64(11), *got[0].MessageID)
	})

	t.Run("blank kind is no filter", func(t *testing.T) {
		got, err := store.QueryActivity(ctx, 1, database.ActivityFilter{Kind: "  "})
		require.NoError(t, err)
		assert.Len(t, got, 3)
	})

	t.Run("limit", func(t *testing.T) {
		got, err := store.QueryActivity(ctx, 1, database.ActivityFilter{Limit: 1})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, database.EventAttachmentRemoved, got[0].Kind)
	})

	t.Run("optional fields stay absent", func(t *testing.T) {
		got, err := store.QueryActivity(ctx, 2, database.ActivityFilter{})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Nil(t, got[0].MessageID)
		assert.Nil(t, got[0].AuthorID)
		assert.Nil(t, got[0].BeforeContent)
	})
}

func TestActivityQueryLimitClamp(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(t)

	for i := 0; i < database.MaxActivityQueryLimit+5; i++ {
		require.NoError(t, store.AppendActivity(ctx, &database.ActivityEvent{
			GuildID: 7, ChannelID: 1, Kind: database.EventEdited,
		}))
	}

	tests := []struct {
		limit int
		want  int
	}{
		{limit: 0, want: database.MaxActivityQueryLimit},
		{limit: 1000, want: database.MaxActivityQueryLimit},
		{limit: 37, want: 37},
		{limit: -1, want: 1},
		{limit: -5, want: 1},
	}
	for _, tt := range tests {
		got, err := store.QueryActivity(ctx, 7, database.ActivityFilter{Limit: tt.limit})
		require.NoError(t, err)
		assert.Len(t, got, tt.want, "limit %d", tt.limit)
	}
}

func TestAppendActivityRejectsBadInput(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(t)

	err := store.AppendActivity(ctx, &database.ActivityEvent{GuildID: 1, ChannelID: 1, Kind: "renamed"})
	assert.Error(t, err)

	err = store.AppendActivity(ctx, &database.ActivityEvent{
		GuildID: 1, ChannelID: 1, Kind: database.EventDeleted, DeletedBy: ptr(uint64(math.MaxUint64)),
	})
	assert.True(t, errors.Is(err, apperrors.ErrValueOutOfRange))
}

func TestChatHistory(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(t)

	base := time.Unix(1_700_000_000, 0).UTC()
	for i, content := range []string{"one", "two", "three"} {
		role := database.RoleUser
		if i%2 == 1 {
			role = database.RoleAssistant
		}
		msg := &database.ChatMessage{
			GuildID: 1, ChannelID: 2, UserID: 3, DisplayName: "ana",
			Role: role, Content: content, CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, store.SaveChatMessage(ctx, msg))
		assert.NotZero(t, msg.ID)
	}

	got, err := store.GetRecentChatMessages(ctx, 1, 2, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "two", got[0].Content)
	assert.Equal(t, "three", got[1].Content)
	assert.Equal(t, database.RoleAssistant, got[0].Role)

	other, err := store.GetRecentChatMessages(ctx, 1, 99, 20)
	require.NoError(t, err)
	assert.Empty(t, other)

	assert.Error(t, store.SaveChatMessage(ctx, &database.ChatMessage{GuildID: 1, ChannelID: 2}))
}

func TestPingAndMaintenance(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.Ping(ctx))
	require.NoError(t, store.RunSQLMaintenance(ctx))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.ErrorIs(t, store.RunSQLMaintenance(cancelled), context.Canceled)
}

func TestParseEventKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want database.EventKind
		ok   bool
	}{
		{"edited", database.EventEdited, true},
		{" Attachment_Removed ", database.EventAttachmentRemoved, true},
		{"DELETED", database.EventDeleted, true},
		{"created", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := database.ParseEventKind(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseEventKind(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestExtractDBNameFromPath(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"storage.db":                     "storage.db",
		"file:storage.db?_pragma=foo":    "storage.db",
		"file:/tmp/my%20db.sqlite?mode=r": "/tmp/my db.sqlite",
	}
	for in, want := range tests {
		if got := database.ExtractDBNameFromPath(in); got != want {
			t.Errorf("ExtractDBNameFromPath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNewDBUnreachablePath(t *testing.T) {
	t.Parallel()

	db, err := database.NewDB(filepath.Join(t.TempDir(), "missing", "dir", "test.db"))
	require.Error(t, err)
	assert.Nil(t, db)
	assert.Equal(t, apperrors.CodeBackendUnavailable, apperrors.Code(err))
	assert.True(t, errors.Is(err, apperrors.ErrBackendUnavailable))
}

func TestNewDBPragmas(t *testing.T) {
	t.Parallel()

	db, err := database.NewDB(filepath.Join(t.TempDir(), "pragmas.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.CloseDB(db) })

	var mode string
	require.NoError(t, db.Get(&mode, `PRAGMA journal_mode;`))
	assert.Equal(t, "wal", mode)

	var timeout int64
	require.NoError(t, db.Get(&timeout, `PRAGMA busy_timeout;`))
	assert.Equal(t, database.BusyTimeout.Milliseconds(), timeout)
}

func TestDSN(t *testing.T) {
	t.Parallel()

	dsn := database.DSN("storage.db")
	assert.True(t, strings.HasPrefix(dsn, "storage.db?_pragma="), dsn)
	assert.Contains(t, dsn, "journal_mode%28WAL%29")

	dsn = database.DSN("file:storage.db?mode=rwc")
	assert.True(t, strings.HasPrefix(dsn, "file:storage.db?mode=rwc&_pragma="), dsn)
	assert.Equal(t, "storage.db", database.ExtractDBNameFromPath(dsn))
}
