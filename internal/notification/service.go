package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/wesavefood/wesavefood/internal/domain"
	"github.com/wesavefood/wesavefood/internal/logger"
	pkgErrors "github.com/wesavefood/wesavefood/pkg/errors"
)

type Service interface {
	ListForUser(ctx context.Context, userID string) ([]domain.Notification, error)
	// Send persists an in-app notification built from the payload. An
	// empty payload UserID marks the notification as broadcast.
	Send(event domain.NotificationEvent, payload domain.NotificationPayload)
	MarkRead(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

type service struct {
	log  zerolog.Logger
	repo domain.NotificationRepo
}

func NewService(log logger.Logger, repo domain.NotificationRepo) Service {
	return &service{
		log:  log.With().Str("module", "notification").Logger(),
		repo: repo,
	}
}

func (s *service) ListForUser(ctx context.Context, userID string) ([]domain.Notification, error) {
	return s.repo.ListForUser(ctx, userID)
}

func (s *service) Send(event domain.NotificationEvent, payload domain.NotificationPayload) {
	createdAt := payload.Timestamp
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	n := domain.Notification{
		ID:        uuid.NewString(),
		UserID:    payload.UserID,
		Event:     event,
		Title:     payload.Subject,
		Message:   payload.Message,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}

	// Best effort; a lost notification must not fail the operation that
	// triggered it.
	if err := s.repo.Store(context.Background(), n); err != nil {
		s.log.Error().Err(err).Str("event", string(event)).Msg("could not persist notification")
		return
	}

	s.log.Debug().Str("event", string(event)).Str("user_id", payload.UserID).Msg("notification sent")
}

func (s *service) MarkRead(ctx context.Context, id string) error {
	if err := s.repo.MarkRead(ctx, id); err != nil {
		return pkgErrors.Wrap(err, "failed to mark notification %s as read", id)
	}
	return nil
}

func (s *service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}
