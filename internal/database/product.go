package database

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/wesavefood/wesavefood/internal/domain"
	"github.com/wesavefood/wesavefood/internal/logger"
	"github.com/wesavefood/wesavefood/pkg/errors"
)

type ProductRepo struct {
	log   zerolog.Logger
	store domain.DocumentStore

	// nowFunc is replaceable in tests for the expiry-window queries.
	nowFunc func() time.Time
}

func NewProductRepo(log logger.Logger, store domain.DocumentStore) domain.ProductRepo {
	return &ProductRepo{
		log:     log.With().Str("repo", "product").Logger(),
		store:   store,
		nowFunc: time.Now,
	}
}

func (r *ProductRepo) List(ctx context.Context) ([]domain.Product, error) {
	docs, err := r.store.Get(ctx, domain.CollectionProducts)
	if err != nil {
		r.log.Error().Err(err).Msg("Failed to list products")
		return nil, errors.Wrap(err, "failed to list products")
	}

	var products []domain.Product
	if err := fromDocuments(docs, &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (r *ProductRepo) FindByID(ctx context.Context, id string) (*domain.Product, error) {
	products, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range products {
		if products[i].ID == id {
			return &products[i], nil
		}
	}
	return nil, nil
}

func (r *ProductRepo) FindByStoreID(ctx context.Context, storeID string) ([]domain.Product, error) {
	return r.filter(ctx, func(p domain.Product) bool {
		return p.StoreID == storeID
	})
}

func (r *ProductRepo) FindByCategory(ctx context.Context, category string) ([]domain.Product, error) {
	return r.filter(ctx, func(p domain.Product) bool {
		return p.Category == category
	})
}

func (r *ProductRepo) FindUrgent(ctx context.Context) ([]domain.Product, error) {
	return r.filter(ctx, func(p domain.Product) bool {
		return p.IsUrgent
	})
}

func (r *ProductRepo) Search(ctx context.Context, query string) ([]domain.Product, error) {
	q := strings.ToLower(query)
	return r.filter(ctx, func(p domain.Product) bool {
		return strings.Contains(strings.ToLower(p.Name), q) ||
			strings.Contains(strings.ToLower(p.Description), q) ||
			strings.Contains(strings.ToLower(p.Category), q)
	})
}

func (r *ProductRepo) FindByPriceRange(ctx context.Context, minPrice, maxPrice float64) ([]domain.Product, error) {
	return r.filter(ctx, func(p domain.Product) bool {
		return p.DiscountedPrice >= minPrice && p.DiscountedPrice <= maxPrice
	})
}

func (r *ProductRepo) FindByDiscountRange(ctx context.Context, minDiscount, maxDiscount float64) ([]domain.Product, error) {
	return r.filter(ctx, func(p domain.Product) bool {
		return p.DiscountPercentage >= minDiscount && p.DiscountPercentage <= maxDiscount
	})
}

// FindExpiringSoon returns products expiring within the window: a product
// qualifies when 0 < days-until-expiry <= days, where days-until-expiry
// rounds up. Products already expired are excluded.
func (r *ProductRepo) FindExpiringSoon(ctx context.Context, days int) ([]domain.Product, error) {
	if days <= 0 {
		days = domain.ExpiryWindowDefaultDays
	}
	now := r.nowFunc()

	return r.filter(ctx, func(p domain.Product) bool {
		daysUntil := int(math.Ceil(p.ExpiryDate.Sub(now).Hours() / 24))
		return daysUntil > 0 && daysUntil <= days
	})
}

func (r *ProductRepo) filter(ctx context.Context, match func(domain.Product) bool) ([]domain.Product, error) {
	products, err := r.List(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if match(p) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *ProductRepo) Store(ctx context.Context, product domain.Product) error {
	if product.ID == "" {
		return errors.New("product has no id")
	}
	now := time.Now().UTC()
	if product.CreatedAt.IsZero() {
		product.CreatedAt = now
	}
	if product.UpdatedAt.IsZero() {
		product.UpdatedAt = product.CreatedAt
	}

	doc, err := toDocument(product)
	if err != nil {
		return err
	}

	if err := r.store.AddItem(ctx, domain.CollectionProducts, doc); err != nil {
		r.log.Error().Err(err).Str("product_id", product.ID).Msg("Failed to store product")
		return errors.Wrap(err, "failed to store product")
	}

	r.log.Debug().Str("product_id", product.ID).Msg("Successfully stored product")
	return nil
}

func (r *ProductRepo) Update(ctx context.Context, id string, fields domain.Document) error {
	if err := r.store.UpdateItem(ctx, domain.CollectionProducts, id, fields); err != nil {
		r.log.Error().Err(err).Str("product_id", id).Msg("Failed to update product")
		return errors.Wrap(err, "failed to update product")
	}
	return nil
}

func (r *ProductRepo) Delete(ctx context.Context, id string) error {
	if err := r.store.DeleteItem(ctx, domain.CollectionProducts, id); err != nil {
		r.log.Error().Err(err).Str("product_id", id).Msg("Failed to delete product")
		return errors.Wrap(err, "failed to delete product")
	}
	return nil
}
