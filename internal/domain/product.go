package domain

import (
	"context"
	"time"
)

type ProductRepo interface {
	List(ctx context.Context) ([]Product, error)
	FindByID(ctx context.Context, id string) (*Product, error)
	FindByStoreID(ctx context.Context, storeID string) ([]Product, error)
	FindByCategory(ctx context.Context, category string) ([]Product, error)
	FindUrgent(ctx context.Context) ([]Product, error)
	// Search matches a case-insensitive substring against name, description
	// and category.
	Search(ctx context.Context, query string) ([]Product, error)
	FindByPriceRange(ctx context.Context, minPrice, maxPrice float64) ([]Product, error)
	FindByDiscountRange(ctx context.Context, minDiscount, maxDiscount float64) ([]Product, error)
	// FindExpiringSoon returns products with 0 < days-until-expiry <= days.
	// Already expired products are excluded.
	FindExpiringSoon(ctx context.Context, days int) ([]Product, error)
	Store(ctx context.Context, product Product) error
	Update(ctx context.Context, id string, fields Document) error
	Delete(ctx context.Context, id string) error
}

// ExpiryWindowDefaultDays the default threshold for expiring-soon queries.
const ExpiryWindowDefaultDays = 7

// Product is a discounted item listed by a store. DiscountPercentage is
// supplied by the caller; the store persists it verbatim and never derives
// it from the prices.
type Product struct {
	ID                 string    `json:"id"`
	StoreID            string    `json:"storeId"`
	StoreName          string    `json:"storeName,omitempty"`
	Name               string    `json:"name"`
	Description        string    `json:"description,omitempty"`
	Category           string    `json:"category,omitempty"`
	OriginalPrice      float64   `json:"originalPrice"`
	DiscountedPrice    float64   `json:"discountedPrice"`
	DiscountPercentage float64   `json:"discountPercentage,omitempty"`
	Quantity           int       `json:"quantity"`
	Unit               string    `json:"unit,omitempty"`
	Images             []string  `json:"images,omitempty"`
	IsUrgent           bool      `json:"isUrgent,omitempty"`
	ExpiryDate         time.Time `json:"expiryDate"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}
