package database

import (
	"database/sql"
	"math"
	"strings"
	"time"

	apperrors "github.com/edgard/guildwatch/internal/errors"
)

// MessageKey identifies a message within a guild.
type MessageKey struct {
	GuildID   uint64
	ChannelID uint64
	MessageID uint64
}

// MessageSnapshot is the last observed state of a tracked message. It is the
// "before" side when an update or deletion is classified.
type MessageSnapshot struct {
	MessageKey
	AuthorID          uint64
	Content           string
	AttachmentSummary string // serialized; empty when the message has no attachments
	UpdatedAt         time.Time
}

// EventKind classifies an activity event.
type EventKind string

const (
	EventEdited            EventKind = "edited"
	EventAttachmentRemoved EventKind = "attachment_removed"
	EventDeleted           EventKind = "deleted"
)

// ParseEventKind maps a stored or user-supplied kind to an EventKind,
// ignoring case and surrounding whitespace.
func ParseEventKind(s string) (EventKind, bool) {
	switch EventKind(strings.ToLower(strings.TrimSpace(s))) {
	case EventEdited:
		return EventEdited, true
	case EventAttachmentRemoved:
		return EventAttachmentRemoved, true
	case EventDeleted:
		return EventDeleted, true
	}
	return "", false
}

// ActivityEvent is an immutable record of a classified message transition.
// Pointer fields are optional.
type ActivityEvent struct {
	ID                int64     `json:"id"`
	GuildID           uint64    `json:"guild_id,string"`
	ChannelID         uint64    `json:"channel_id,string"`
	MessageID         *uint64   `json:"message_id,omitempty,string"`
	AuthorID          *uint64   `json:"author_id,omitempty,string"`
	Kind              EventKind `json:"event_kind"`
	BeforeContent     *string   `json:"before_content,omitempty"`
	AfterContent      *string   `json:"after_content,omitempty"`
	AttachmentSummary *string   `json:"attachment_summary,omitempty"`
	DeletedBy         *uint64   `json:"deleted_by,omitempty,string"`
	CreatedAt         time.Time `json:"created_at"`
}

// ActivityFilter narrows an activity query. Zero values mean "no filter".
// A zero Limit selects MaxActivityQueryLimit; other values are clamped to
// [1, MaxActivityQueryLimit].
type ActivityFilter struct {
	AuthorID *uint64
	Kind     string
	Limit    int
}

// MaxActivityQueryLimit bounds the number of events a single query returns.
const MaxActivityQueryLimit = 200

// ChatMessage is one turn of the per-channel language-model conversation.
type ChatMessage struct {
	ID          int64     `msgpack:"id"`
	GuildID     uint64    `msgpack:"guild_id"`
	ChannelID   uint64    `msgpack:"channel_id"`
	UserID      uint64    `msgpack:"user_id"`
	DisplayName string    `msgpack:"display_name"`
	Role        string    `msgpack:"role"`
	Content     string    `msgpack:"content"`
	CreatedAt   time.Time `msgpack:"created_at"`
}

// Chat roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type snapshotRow struct {
	GuildID           int64          `db:"guild_id"`
	ChannelID         int64          `db:"channel_id"`
	MessageID         int64          `db:"message_id"`
	AuthorUserID      int64          `db:"author_user_id"`
	Content           string         `db:"content"`
	AttachmentSummary sql.NullString `db:"attachment_summary"`
	UpdatedAt         int64          `db:"updated_at"`
}

type activityRow struct {
	ID                int64          `db:"id"`
	GuildID           int64          `db:"guild_id"`
	ChannelID         int64          `db:"channel_id"`
	MessageID         sql.NullInt64  `db:"message_id"`
	AuthorUserID      sql.NullInt64  `db:"author_user_id"`
	EventType         string         `db:"event_type"`
	BeforeContent     sql.NullString `db:"before_content"`
	AfterContent      sql.NullString `db:"after_content"`
	AttachmentSummary sql.NullString `db:"attachment_summary"`
	DeletedByUserID   sql.NullInt64  `db:"deleted_by_user_id"`
	CreatedAt         int64          `db:"created_at"`
}

type chatRow struct {
	ID          int64          `db:"id"`
	GuildID     int64          `db:"guild_id"`
	ChannelID   int64          `db:"channel_id"`
	UserID      int64          `db:"user_id"`
	DisplayName sql.NullString `db:"display_name"`
	Role        string         `db:"role"`
	Content     string         `db:"content"`
	CreatedAt   int64          `db:"created_at"`
}

// toInt64 converts a platform id to the signed range the database accepts.
func toInt64(field string, v uint64) (int64, error) {
	if v > math.MaxInt64 {
		return 0, apperrors.NewValueOutOfRange(field, v)
	}
	return int64(v), nil
}

func toNullInt64(field string, v *uint64) (sql.NullInt64, error) {
	if v == nil {
		return sql.NullInt64{}, nil
	}
	i, err := toInt64(field, *v)
	if err != nil {
		return sql.NullInt64{}, err
	}
	return sql.NullInt64{Int64: i, Valid: true}, nil
}

// fromInt64 converts a stored id back to its unsigned platform form.
func fromInt64(field string, v int64) (uint64, error) {
	if v < 0 {
		return 0, apperrors.NewValueOutOfRange(field, v)
	}
	return uint64(v), nil
}

func fromNullInt64(field string, v sql.NullInt64) (*uint64, error) {
	if !v.Valid {
		return nil, nil
	}
	u, err := fromInt64(field, v.Int64)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func toNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func fromNullString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

func (k MessageKey) toInt64s() (guildID, channelID, messageID int64, err error) {
	if guildID, err = toInt64("guild_id", k.GuildID); err != nil {
		return 0, 0, 0, err
	}
	if channelID, err = toInt64("channel_id", k.ChannelID); err != nil {
		return 0, 0, 0, err
	}
	if messageID, err = toInt64("message_id", k.MessageID); err != nil {
		return 0, 0, 0, err
	}
	return guildID, channelID, messageID, nil
}

func (r snapshotRow) toSnapshot() (*MessageSnapshot, error) {
	var (
		s   MessageSnapshot
		err error
	)
	if s.GuildID, err = fromInt64("guild_id", r.GuildID); err != nil {
		return nil, err
	}
	if s.ChannelID, err = fromInt64("channel_id", r.ChannelID); err != nil {
		return nil, err
	}
	if s.MessageID, err = fromInt64("message_id", r.MessageID); err != nil {
		return nil, err
	}
	if s.AuthorID, err = fromInt64("author_user_id", r.AuthorUserID); err != nil {
		return nil, err
	}
	s.Content = r.Content
	s.AttachmentSummary = r.AttachmentSummary.String
	s.UpdatedAt = time.Unix(r.UpdatedAt, 0).UTC()
	return &s, nil
}

func (r activityRow) toEvent() (ActivityEvent, error) {
	var (
		e   ActivityEvent
		err error
	)
	kind, ok := ParseEventKind(r.EventType)
	if !ok {
		return e, apperrors.NewMalformedRecord("unknown event kind "+r.EventType, nil)
	}
	e.ID = r.ID
	e.Kind = kind
	if e.GuildID, err = fromInt64("guild_id", r.GuildID); err != nil {
		return e, err
	}
	if e.ChannelID, err = fromInt64("channel_id", r.ChannelID); err != nil {
		return e, err
	}
	if e.MessageID, err = fromNullInt64("message_id", r.MessageID); err != nil {
		return e, err
	}
	if e.AuthorID, err = fromNullInt64("author_user_id", r.AuthorUserID); err != nil {
		return e, err
	}
	if e.DeletedBy, err = fromNullInt64("deleted_by_user_id", r.DeletedByUserID); err != nil {
		return e, err
	}
	e.BeforeContent = fromNullString(r.BeforeContent)
	e.AfterContent = fromNullString(r.AfterContent)
	e.AttachmentSummary = fromNullString(r.AttachmentSummary)
	e.CreatedAt = time.Unix(r.CreatedAt, 0).UTC()
	return e, nil
}

func (r chatRow) toChatMessage() (ChatMessage, error) {
	var (
		m   ChatMessage
		err error
	)
	m.ID = r.ID
	if m.GuildID, err = fromInt64("guild_id", r.GuildID); err != nil {
		return m, err
	}
	if m.ChannelID, err = fromInt64("channel_id", r.ChannelID); err != nil {
		return m, err
	}
	if m.UserID, err = fromInt64("user_id", r.UserID); err != nil {
		return m, err
	}
	m.DisplayName = r.DisplayName.String
	m.Role = r.Role
	m.Content = r.Content
	m.CreatedAt = time.Unix(r.CreatedAt, 0).UTC()
	return m, nil
}
