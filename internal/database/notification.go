package database

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/wesavefood/wesavefood/internal/domain"
	"github.com/wesavefood/wesavefood/internal/logger"
	"github.com/wesavefood/wesavefood/pkg/errors"
)

type NotificationRepo struct {
	log   zerolog.Logger
	store domain.DocumentStore
}

func NewNotificationRepo(log logger.Logger, store domain.DocumentStore) domain.NotificationRepo {
	return &NotificationRepo{
		log:   log.With().Str("repo", "notification").Logger(),
		store: store,
	}
}

// ListForUser returns notifications addressed to the user plus broadcast
// entries with no user id.
func (r *NotificationRepo) ListForUser(ctx context.Context, userID string) ([]domain.Notification, error) {
	docs, err := r.store.FindItems(ctx, domain.CollectionNotifications, func(doc domain.Document) bool {
		uid, _ := doc["userId"].(string)
		return uid == "" || uid == userID
	})
	if err != nil {
		r.log.Error().Err(err).Str("user_id", userID).Msg("Failed to list notifications")
		return nil, errors.Wrap(err, "failed to list notifications")
	}

	var notifications []domain.Notification
	if err := fromDocuments(docs, &notifications); err != nil {
		return nil, err
	}
	return notifications, nil
}

func (r *NotificationRepo) Store(ctx context.Context, notification domain.Notification) error {
	if notification.ID == "" {
		return errors.New("notification has no id")
	}
	now := time.Now().UTC()
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = now
	}
	if notification.UpdatedAt.IsZero() {
		notification.UpdatedAt = notification.CreatedAt
	}

	doc, err := toDocument(notification)
	if err != nil {
		return err
	}

	if err := r.store.AddItem(ctx, domain.CollectionNotifications, doc); err != nil {
		r.log.Error().Err(err).Str("notification_id", notification.ID).Msg("Failed to store notification")
		return errors.Wrap(err, "failed to store notification")
	}
	return nil
}

func (r *NotificationRepo) MarkRead(ctx context.Context, id string) error {
	if err := r.store.UpdateItem(ctx, domain.CollectionNotifications, id, domain.Document{"read": true}); err != nil {
		r.log.Error().Err(err).Str("notification_id", id).Msg("Failed to mark notification read")
		return errors.Wrap(err, "failed to mark notification read")
	}
	return nil
}

func (r *NotificationRepo) Delete(ctx context.Context, id string) error {
	if err := r.store.DeleteItem(ctx, domain.CollectionNotifications, id); err != nil {
		r.log.Error().Err(err).Str("notification_id", id).Msg("Failed to delete notification")
		return errors.Wrap(err, "failed to delete notification")
	}
	return nil
}
