package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	apperrors "github.com/edgard/guildwatch/internal/errors"
)

// Store defines the durable operations used by the activity and chat layers.
// Lookups that find nothing return nil, nil.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// UpsertSnapshot inserts or replaces the snapshot for its key. Last write wins.
	UpsertSnapshot(ctx context.Context, snapshot *MessageSnapshot) error

	// GetSnapshot returns the snapshot for key, or nil, nil if none exists.
	GetSnapshot(ctx context.Context, key MessageKey) (*MessageSnapshot, error)

	// DeleteSnapshot removes the snapshot for key. Deleting a missing snapshot is not an error.
	DeleteSnapshot(ctx context.Context, key MessageKey) error

	// DeleteSnapshotsBefore removes snapshots last updated before cutoff and
	// returns how many were removed.
	DeleteSnapshotsBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// AppendActivity inserts event and sets its ID.
	AppendActivity(ctx context.Context, event *ActivityEvent) error

	// QueryActivity returns the guild's events newest first.
	QueryActivity(ctx context.Context, guildID uint64, filter ActivityFilter) ([]ActivityEvent, error)

	// SaveChatMessage inserts one chat turn and sets its ID.
	SaveChatMessage(ctx context.Context, message *ChatMessage) error

	// GetRecentChatMessages returns up to limit of the channel's latest turns in chronological order.
	GetRecentChatMessages(ctx context.Context, guildID, channelID uint64, limit int) ([]ChatMessage, error)

	// RunSQLMaintenance performs database maintenance tasks like VACUUM.
	RunSQLMaintenance(ctx context.Context) error
}

// sqlxStore provides an implementation of the Store interface using sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a new Store backed by db.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

func (s *sqlxStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return apperrors.NewBackendUnavailable("database ping failed", err)
	}
	return nil
}

func (s *sqlxStore) UpsertSnapshot(ctx context.Context, snapshot *MessageSnapshot) error {
	if snapshot == nil {
		return errors.New("cannot save nil snapshot")
	}
	guildID, channelID, messageID, err := snapshot.toInt64s()
	if err != nil {
		return err
	}
	authorID, err := toInt64("author_user_id", snapshot.AuthorID)
	if err != nil {
		return err
	}

	row := snapshotRow{
		GuildID:      guildID,
		ChannelID:    channelID,
		MessageID:    messageID,
		AuthorUserID: authorID,
		Content:      snapshot.Content,
		UpdatedAt:    snapshot.UpdatedAt.Unix(),
	}
	if snapshot.AttachmentSummary != "" {
		row.AttachmentSummary = sql.NullString{String: snapshot.AttachmentSummary, Valid: true}
	}

	query := `
        INSERT INTO message_snapshots (guild_id, channel_id, message_id, author_user_id, content, attachment_summary, updated_at)
        VALUES (:guild_id, :channel_id, :message_id, :author_user_id, :content, :attachment_summary, :updated_at)
        ON CONFLICT (guild_id, channel_id, message_id) DO UPDATE SET
            author_user_id = excluded.author_user_id,
            content = excluded.content,
            attachment_summary = excluded.attachment_summary,
            updated_at = excluded.updated_at;
    `
	if _, err := s.db.NamedExecContext(ctx, query, row); err != nil {
		s.logger.ErrorContext(ctx, "Error saving snapshot",
			"guild_id", snapshot.GuildID, "message_id", snapshot.MessageID, "error", err)
		return fmt.Errorf("failed to save snapshot (message %d): %w", snapshot.MessageID, err)
	}

	s.logger.DebugContext(ctx, "Snapshot saved",
		"guild_id", snapshot.GuildID, "channel_id", snapshot.ChannelID, "message_id", snapshot.MessageID)
	return nil
}

func (s *sqlxStore) GetSnapshot(ctx context.Context, key MessageKey) (*MessageSnapshot, error) {
	guildID, channelID, messageID, err := key.toInt64s()
	if err != nil {
		return nil, err
	}

	var row snapshotRow
	query := `
        SELECT guild_id, channel_id, message_id, author_user_id, content, attachment_summary, updated_at
        FROM message_snapshots
        WHERE guild_id = ? AND channel_id = ? AND message_id = ?;
    `
	err = s.db.GetContext(ctx, &row, query, guildID, channelID, messageID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		s.logger.ErrorContext(ctx, "Error fetching snapshot", "message_id", key.MessageID, "error", err)
		return nil, fmt.Errorf("failed to get snapshot (message %d): %w", key.MessageID, err)
	}
	return row.toSnapshot()
}

func (s *sqlxStore) DeleteSnapshot(ctx context.Context, key MessageKey) error {
	guildID, channelID, messageID, err := key.toInt64s()
	if err != nil {
		return err
	}

	query := `DELETE FROM message_snapshots WHERE guild_id = ? AND channel_id = ? AND message_id = ?;`
	if _, err := s.db.ExecContext(ctx, query, guildID, channelID, messageID); err != nil {
		s.logger.ErrorContext(ctx, "Error deleting snapshot", "message_id", key.MessageID, "error", err)
		return fmt.Errorf("failed to delete snapshot (message %d): %w", key.MessageID, err)
	}
	return nil
}

func (s *sqlxStore) DeleteSnapshotsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM message_snapshots WHERE updated_at < ?;`, cutoff.Unix())
	if err != nil {
		s.logger.ErrorContext(ctx, "Error pruning snapshots", "cutoff", cutoff, "error", err)
		return 0, fmt.Errorf("failed to prune snapshots: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		s.logger.WarnContext(ctx, "Could not read affected rows after pruning snapshots", "error", err)
		return 0, nil
	}
	s.logger.InfoContext(ctx, "Pruned old snapshots", "cutoff", cutoff, "deleted", affected)
	return affected, nil
}

func (s *sqlxStore) AppendActivity(ctx context.Context, event *ActivityEvent) error {
	if event == nil {
		return errors.New("cannot save nil activity event")
	}
	if _, ok := ParseEventKind(string(event.Kind)); !ok {
		return fmt.Errorf("invalid event kind %q", event.Kind)
	}

	var (
		row activityRow
		err error
	)
	if row.GuildID, err = toInt64("guild_id", event.GuildID); err != nil {
		return err
	}
	if row.ChannelID, err = toInt64("channel_id", event.ChannelID); err != nil {
		return err
	}
	if row.MessageID, err = toNullInt64("message_id", event.MessageID); err != nil {
		return err
	}
	if row.AuthorUserID, err = toNullInt64("author_user_id", event.AuthorID); err != nil {
		return err
	}
	if row.DeletedByUserID, err = toNullInt64("deleted_by_user_id", event.DeletedBy); err != nil {
		return err
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	row.EventType = string(event.Kind)
	row.BeforeContent = toNullString(event.BeforeContent)
	row.AfterContent = toNullString(event.AfterContent)
	row.AttachmentSummary = toNullString(event.AttachmentSummary)
	row.CreatedAt = event.CreatedAt.Unix()

	query := `
        INSERT INTO activity_events (guild_id, channel_id, message_id, author_user_id, event_type,
            before_content, after_content, attachment_summary, deleted_by_user_id, created_at)
        VALUES (:guild_id, :channel_id, :message_id, :author_user_id, :event_type,
            :before_content, :after_content, :attachment_summary, :deleted_by_user_id, :created_at);
    `
	result, err := s.db.NamedExecContext(ctx, query, row)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error saving activity event",
			"guild_id", event.GuildID, "event_kind", event.Kind, "error", err)
		return fmt.Errorf("failed to save activity event (guild %d): %w", event.GuildID, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		s.logger.WarnContext(ctx, "Could not retrieve last insert ID after saving activity event", "error", err)
	} else {
		event.ID = id
	}

	s.logger.DebugContext(ctx, "Activity event saved",
		"guild_id", event.GuildID, "event_kind", event.Kind, "event_id", event.ID)
	return nil
}

func (s *sqlxStore) QueryActivity(ctx context.Context, guildID uint64, filter ActivityFilter) ([]ActivityEvent, error) {
	gid, err := toInt64("guild_id", guildID)
	if err != nil {
		return nil, err
	}

	limit := filter.Limit
	switch {
	case limit == 0, limit > MaxActivityQueryLimit:
		limit = MaxActivityQueryLimit
	case limit < 0:
		limit = 1
	}

	var (
		b    strings.Builder
		args = []any{gid}
	)
	b.WriteString(`
        SELECT id, guild_id, channel_id, message_id, author_user_id, event_type,
            before_content, after_content, attachment_summary, deleted_by_user_id, created_at
        FROM activity_events
        WHERE guild_id = ?`)
	if filter.AuthorID != nil {
		aid, err := toInt64("author_user_id", *filter.AuthorID)
		if err != nil {
			return nil, err
		}
		b.WriteString(` AND author_user_id = ?`)
		args = append(args, aid)
	}
	if kind := strings.TrimSpace(filter.Kind); kind != "" {
		b.WriteString(` AND LOWER(event_type) = LOWER(?)`)
		args = append(args, kind)
	}
	b.WriteString(` ORDER BY created_at DESC, id DESC LIMIT ?;`)
	args = append(args, limit)

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var rows []activityRow
	if err := s.db.SelectContext(ctx, &rows, b.String(), args...); err != nil {
		s.logger.ErrorContext(ctx, "Error querying activity", "guild_id", guildID, "error", err)
		return nil, fmt.Errorf("failed to query activity (guild %d): %w", guildID, err)
	}

	events := make([]ActivityEvent, 0, len(rows))
	for _, row := range rows {
		event, err := row.toEvent()
		if err != nil {
			return nil, fmt.Errorf("failed to decode activity event %d: %w", row.ID, err)
		}
		events = append(events, event)
	}
	return events, nil
}

func (s *sqlxStore) SaveChatMessage(ctx context.Context, message *ChatMessage) error {
	if message == nil {
		return errors.New("cannot save nil chat message")
	}
	if message.Content == "" {
		return errors.New("chat message must have non-empty content")
	}

	var (
		row chatRow
		err error
	)
	if row.GuildID, err = toInt64("guild_id", message.GuildID); err != nil {
		return err
	}
	if row.ChannelID, err = toInt64("channel_id", message.ChannelID); err != nil {
		return err
	}
	if row.UserID, err = toInt64("user_id", message.UserID); err != nil {
		return err
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}
	if message.DisplayName != "" {
		row.DisplayName = sql.NullString{String: message.DisplayName, Valid: true}
	}
	row.Role = message.Role
	row.Content = message.Content
	row.CreatedAt = message.CreatedAt.Unix()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to begin transaction for saving chat message", "error", err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if tx != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
				s.logger.WarnContext(ctx, "Error rolling back transaction", "error", rollbackErr)
			}
		}
	}()

	query := `
        INSERT INTO llm_chat_messages (guild_id, channel_id, user_id, display_name, role, content, created_at)
        VALUES (:guild_id, :channel_id, :user_id, :display_name, :role, :content, :created_at);
    `
	result, err := tx.NamedExecContext(ctx, query, row)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error saving chat message",
			"channel_id", message.ChannelID, "user_id", message.UserID, "error", err)
		return fmt.Errorf("failed to save chat message (channel %d): %w", message.ChannelID, err)
	}
	if id, err := result.LastInsertId(); err == nil {
		message.ID = id
	} else {
		s.logger.WarnContext(ctx, "Could not retrieve last insert ID after saving chat message", "error", err)
	}

	if err := tx.Commit(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to commit transaction", "channel_id", message.ChannelID, "error", err)
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	tx = nil

	s.logger.DebugContext(ctx, "Chat message saved",
		"channel_id", message.ChannelID, "role", message.Role, "message_id", message.ID)
	return nil
}

func (s *sqlxStore) GetRecentChatMessages(ctx context.Context, guildID, channelID uint64, limit int) ([]ChatMessage, error) {
	gid, err := toInt64("guild_id", guildID)
	if err != nil {
		return nil, err
	}
	cid, err := toInt64("channel_id", channelID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}

	var rows []chatRow
	query := `
        SELECT id, guild_id, channel_id, user_id, display_name, role, content, created_at
        FROM llm_chat_messages
        WHERE guild_id = ? AND channel_id = ?
        ORDER BY created_at DESC, id DESC
        LIMIT ?;
    `
	if err := s.db.SelectContext(ctx, &rows, query, gid, cid, limit); err != nil {
		s.logger.ErrorContext(ctx, "Error fetching chat history", "channel_id", channelID, "error", err)
		return nil, fmt.Errorf("failed to get chat history (channel %d): %w", channelID, err)
	}

	messages := make([]ChatMessage, len(rows))
	for i, row := range rows {
		m, err := row.toChatMessage()
		if err != nil {
			return nil, fmt.Errorf("failed to decode chat message %d: %w", row.ID, err)
		}
		// Rows come back newest first.
		messages[len(rows)-1-i] = m
	}
	return messages, nil
}

// RunSQLMaintenance executes VACUUM and refreshes planner statistics.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		s.logger.WarnContext(ctx, "Context cancelled or timed out before starting VACUUM", "error", ctx.Err())
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "Starting database maintenance (VACUUM)")
	start := time.Now()

	// VACUUM cannot run inside a transaction.
	_, err := s.db.ExecContext(ctx, "VACUUM;")
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "VACUUM operation timed out or was cancelled", "error", err)
		return fmt.Errorf("database maintenance (VACUUM) timed out: %w", err)
	case err != nil:
		s.logger.ErrorContext(ctx, "Error running VACUUM", "error", err)
		return fmt.Errorf("failed to run VACUUM: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, "PRAGMA optimize;"); err != nil {
		s.logger.WarnContext(ctx, "PRAGMA optimize failed", "error", err)
	}

	s.logger.InfoContext(ctx, "Database maintenance completed", "duration", time.Since(start))
	return nil
}
