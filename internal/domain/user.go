package domain

import (
	"context"
	"time"
)

type UserRepo interface {
	List(ctx context.Context) ([]User, error)
	FindByID(ctx context.Context, id string) (*User, error)
	FindByPhone(ctx context.Context, phone string) (*User, error)
	Store(ctx context.Context, user User) error
	Update(ctx context.Context, id string, fields Document) error
	UpdatePreferences(ctx context.Context, id string, prefs Preferences) error
	UpdateAPITokenHash(ctx context.Context, id string, tokenHash string) error
	Delete(ctx context.Context, id string) error
}

type ProfileType string

const (
	ProfileTypeClient ProfileType = "client"
	ProfileTypeStore  ProfileType = "store"
)

// Preferences are the client-side filter defaults attached to a user.
type Preferences struct {
	Categories    []string `json:"categories"`
	MaxDistance   float64  `json:"maxDistance"`
	Notifications bool     `json:"notifications"`
}

// User is a marketplace account identified by phone number. The API token
// hash is persisted with the record but must never leave the server; HTTP
// responses use a trimmed representation.
type User struct {
	ID           string      `json:"id"`
	Phone        string      `json:"phone"`
	Name         string      `json:"name,omitempty"`
	ProfileType  ProfileType `json:"profileType"`
	Preferences  Preferences `json:"preferences"`
	APITokenHash string      `json:"apiTokenHash,omitempty"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}
