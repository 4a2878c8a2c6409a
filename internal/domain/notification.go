package domain

import (
	"context"
	"time"
)

type NotificationRepo interface {
	ListForUser(ctx context.Context, userID string) ([]Notification, error)
	Store(ctx context.Context, notification Notification) error
	MarkRead(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// Notification is an in-app message persisted in the notifications
// collection.
type Notification struct {
	ID        string            `json:"id"`
	UserID    string            `json:"userId,omitempty"`
	Event     NotificationEvent `json:"event"`
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	Read      bool              `json:"read"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

type NotificationPayload struct {
	UserID    string
	Subject   string
	Message   string
	Event     NotificationEvent
	Timestamp time.Time
}

type NotificationEvent string

const (
	NotificationEventAppUpdateAvailable NotificationEvent = "SERVER_UPDATE_AVAILABLE"
	NotificationEventProductCreated     NotificationEvent = "PRODUCT_CREATED"
	NotificationEventProductExpiring    NotificationEvent = "PRODUCT_EXPIRING"
	NotificationEventTest               NotificationEvent = "TEST"
)

// Event topics published on the internal bus.
const (
	EventProductCreated        = "product:created"
	EventAppUpdateAvailable    = "server:update-available"
	EventVerificationRequested = "auth:code-requested"
)
