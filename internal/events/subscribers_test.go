package events

import (
	"context"
	"testing"

	"github.com/asaskevich/EventBus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wesavefood/wesavefood/internal/domain"
	"github.com/wesavefood/wesavefood/internal/logger"
)

type capturingNotificationService struct {
	sent []domain.NotificationPayload
}

func (c *capturingNotificationService) ListForUser(_ context.Context, _ string) ([]domain.Notification, error) {
	return nil, nil
}

func (c *capturingNotificationService) Send(_ domain.NotificationEvent, payload domain.NotificationPayload) {
	c.sent = append(c.sent, payload)
}

func (c *capturingNotificationService) MarkRead(_ context.Context, _ string) error {
	return nil
}

func (c *capturingNotificationService) Delete(_ context.Context, _ string) error {
	return nil
}

func TestSubscribers_ProductCreated(t *testing.T) {
	bus := EventBus.New()
	svc := &capturingNotificationService{}
	NewSubscribers(logger.Mock(), bus, svc)

	bus.Publish(domain.EventProductCreated, domain.Product{ID: "p1", Name: "Bread"})

	require.Len(t, svc.sent, 1)
	assert.Equal(t, domain.NotificationEventProductCreated, svc.sent[0].Event)
	assert.Contains(t, svc.sent[0].Message, "Bread")
}

func TestSubscribers_AppUpdateAvailable(t *testing.T) {
	bus := EventBus.New()
	svc := &capturingNotificationService{}
	NewSubscribers(logger.Mock(), bus, svc)

	bus.Publish(domain.EventAppUpdateAvailable, "v1.2.3")

	require.Len(t, svc.sent, 1)
	assert.Equal(t, domain.NotificationEventAppUpdateAvailable, svc.sent[0].Event)
	assert.Contains(t, svc.sent[0].Message, "v1.2.3")
}
