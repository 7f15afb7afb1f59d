// Package activity reconstructs message edits and deletions from stored
// snapshots and records them in the activity log.
package activity

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/edgard/guildwatch/internal/database"
)

// Observation is one observed state of a guild message.
type Observation struct {
	GuildID     uint64
	ChannelID   uint64
	MessageID   uint64
	AuthorID    uint64
	Content     string
	Attachments []Attachment
	IsBot       bool // bot or webhook author
}

func (o Observation) key() database.MessageKey {
	return database.MessageKey{GuildID: o.GuildID, ChannelID: o.ChannelID, MessageID: o.MessageID}
}

// Service ties the snapshot store, classifier and attributor together.
type Service struct {
	store      database.Store
	attributor *Attributor
	ignore     *IgnoreSet
	clock      clockwork.Clock
	logger     *slog.Logger
}

// NewService creates a Service. A nil attributor always blames the author,
// a nil ignore set suppresses nothing.
func NewService(store database.Store, attributor *Attributor, ignore *IgnoreSet, clock clockwork.Clock, logger *slog.Logger) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{
		store:      store,
		attributor: attributor,
		ignore:     ignore,
		clock:      clock,
		logger:     logger.With("component", "activity"),
	}
}

// IgnoreDeletes suppresses activity for the given message ids for the ignore set's TTL.
func (s *Service) IgnoreDeletes(messageIDs ...uint64) {
	if s.ignore == nil {
		return
	}
	s.ignore.Add(messageIDs...)
}

// RecordCreate stores the baseline snapshot of a newly created message.
func (s *Service) RecordCreate(ctx context.Context, obs Observation) error {
	if obs.IsBot {
		return nil
	}
	return s.upsert(ctx, obs)
}

// RecordObservation diffs obs against the stored snapshot, appends an event
// when something changed, then stores obs as the new snapshot. It returns the
// appended event or nil.
func (s *Service) RecordObservation(ctx context.Context, obs Observation) (*database.ActivityEvent, error) {
	if obs.IsBot {
		return nil, nil
	}

	prev, err := s.store.GetSnapshot(ctx, obs.key())
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}

	summary := SummarizeAttachments(obs.Attachments)

	var (
		event     *database.ActivityEvent
		appendErr error
	)
	if kind, changed := Classify(prev, obs.Content, summary); changed {
		event = &database.ActivityEvent{
			GuildID:           obs.GuildID,
			ChannelID:         obs.ChannelID,
			MessageID:         &obs.MessageID,
			AuthorID:          &obs.AuthorID,
			Kind:              kind,
			BeforeContent:     &prev.Content,
			AfterContent:      &obs.Content,
			AttachmentSummary: optional(summary),
			CreatedAt:         s.clock.Now().UTC(),
		}
		if appendErr = s.appendEvent(ctx, event); appendErr != nil {
			event = nil
		}
	}

	// The snapshot always moves forward, even if the event was lost.
	if err := s.upsert(ctx, obs); err != nil {
		return event, errors.Join(appendErr, err)
	}
	return event, appendErr
}

// RecordDeletion appends a deleted event for key and drops its snapshot.
// Messages in the ignore set are dropped without an event. Without a
// snapshot the event carries no before content and no deleting actor.
func (s *Service) RecordDeletion(ctx context.Context, key database.MessageKey) (*database.ActivityEvent, error) {
	if s.ignore != nil && s.ignore.Take(key.MessageID) {
		deletionsSuppressed.Inc()
		s.logger.DebugContext(ctx, "Deletion suppressed", "message_id", key.MessageID)
		return nil, s.deleteSnapshot(ctx, key)
	}

	prev, err := s.store.GetSnapshot(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}

	event := &database.ActivityEvent{
		GuildID:   key.GuildID,
		ChannelID: key.ChannelID,
		MessageID: &key.MessageID,
		Kind:      database.EventDeleted,
		CreatedAt: s.clock.Now().UTC(),
	}
	if prev != nil {
		deletedBy := prev.AuthorID
		if s.attributor != nil {
			deletedBy = s.attributor.Attribute(ctx, key.GuildID, key.ChannelID, key.MessageID, prev.AuthorID)
		}
		event.AuthorID = &prev.AuthorID
		event.BeforeContent = &prev.Content
		event.AttachmentSummary = optional(prev.AttachmentSummary)
		event.DeletedBy = &deletedBy
	}

	appendErr := s.appendEvent(ctx, event)
	if appendErr != nil {
		event = nil
	}
	if err := s.deleteSnapshot(ctx, key); err != nil {
		return event, errors.Join(appendErr, err)
	}
	return event, appendErr
}

// QueryActivity returns the guild's events newest first.
func (s *Service) QueryActivity(ctx context.Context, guildID uint64, filter database.ActivityFilter) ([]database.ActivityEvent, error) {
	return s.store.QueryActivity(ctx, guildID, filter)
}

func (s *Service) appendEvent(ctx context.Context, event *database.ActivityEvent) error {
	if err := s.store.AppendActivity(ctx, event); err != nil {
		return fmt.Errorf("failed to append %s event: %w", event.Kind, err)
	}
	eventsRecorded.WithLabelValues(string(event.Kind)).Inc()
	s.logger.InfoContext(ctx, "Activity recorded",
		"guild_id", event.GuildID, "channel_id", event.ChannelID, "event_kind", event.Kind, "event_id", event.ID)
	return nil
}

func (s *Service) upsert(ctx context.Context, obs Observation) error {
	err := s.store.UpsertSnapshot(ctx, &database.MessageSnapshot{
		MessageKey:        obs.key(),
		AuthorID:          obs.AuthorID,
		Content:           obs.Content,
		AttachmentSummary: SummarizeAttachments(obs.Attachments),
		UpdatedAt:         s.clock.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

func (s *Service) deleteSnapshot(ctx context.Context, key database.MessageKey) error {
	if err := s.store.DeleteSnapshot(ctx, key); err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
