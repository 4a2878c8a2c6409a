package domain

import (
	"context"
	"time"
)

type StoreRepo interface {
	List(ctx context.Context) ([]Store, error)
	FindByID(ctx context.Context, id string) (*Store, error)
	// FindWithinRadius returns stores whose great-circle distance from the
	// given point is at most maxDistanceKm (inclusive).
	FindWithinRadius(ctx context.Context, lat, lng, maxDistanceKm float64) ([]Store, error)
	Store(ctx context.Context, store Store) error
	Update(ctx context.Context, id string, fields Document) error
	UpdateRating(ctx context.Context, id string, rating float64) error
	UpdateEcoRating(ctx context.Context, id string, ecoRating float64) error
	Delete(ctx context.Context, id string) error
}

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Store is a participating shop offering discounted near-expiry goods.
type Store struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Address     string      `json:"address,omitempty"`
	Coordinates Coordinates `json:"coordinates"`
	Category    string      `json:"category,omitempty"`
	Phone       string      `json:"phone,omitempty"`
	Rating      float64     `json:"rating"`
	EcoRating   float64     `json:"ecoRating"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}
