package database

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/wesavefood/wesavefood/internal/domain"
	"github.com/wesavefood/wesavefood/internal/logger"
	"github.com/wesavefood/wesavefood/pkg/errors"
)

// Seeder populates empty collections with starter data so a fresh content
// repository is usable immediately.
type Seeder struct {
	log   zerolog.Logger
	store domain.DocumentStore
}

func NewSeeder(log logger.Logger, store domain.DocumentStore) *Seeder {
	return &Seeder{
		log:   log.With().Str("module", "seed").Logger(),
		store: store,
	}
}

// HasData reports whether the primary collections already contain records.
func (s *Seeder) HasData(ctx context.Context) (bool, error) {
	for _, collection := range []string{domain.CollectionUsers, domain.CollectionStores, domain.CollectionProducts} {
		docs, err := s.store.Get(ctx, collection)
		if err != nil {
			return false, errors.Wrap(err, "failed to check collection %s", collection)
		}
		if len(docs) == 0 {
			return false, nil
		}
	}
	return true, nil
}

// Seed writes the starter data set. Collections that already hold data are
// left untouched.
func (s *Seeder) Seed(ctx context.Context) error {
	now := time.Now().UTC()

	stores := []domain.Store{
		{
			ID:          "store-neighborhood",
			Name:        "Neighborhood Grocery",
			Address:     "12 Amir Temur Avenue",
			Coordinates: domain.Coordinates{Lat: 41.311, Lng: 69.28},
			Category:    "grocery",
			Rating:      4.4,
			EcoRating:   4.0,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
		{
			ID:          "store-thrifty",
			Name:        "Thrifty Supermarket",
			Address:     "3 Navoi Street",
			Coordinates: domain.Coordinates{Lat: 41.317, Lng: 69.25},
			Category:    "supermarket",
			Rating:      4.1,
			EcoRating:   4.6,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
	}

	products := []domain.Product{
		{
			ID:              "product-bread",
			StoreID:         "store-neighborhood",
			StoreName:       "Neighborhood Grocery",
			Name:            "White bread",
			Description:     "Fresh white bread",
			Category:        "bakery",
			OriginalPrice:   40,
			DiscountedPrice: 30,
			Quantity:        5,
			Unit:            "pcs",
			ExpiryDate:      now.Add(48 * time.Hour),
			CreatedAt:       now,
			UpdatedAt:       now,
		},
		{
			ID:              "product-milk",
			StoreID:         "store-thrifty",
			StoreName:       "Thrifty Supermarket",
			Name:            "Milk 3.2%",
			Description:     "Fresh milk",
			Category:        "dairy",
			OriginalPrice:   80,
			DiscountedPrice: 65,
			Quantity:        10,
			Unit:            "l",
			ExpiryDate:      now.Add(96 * time.Hour),
			CreatedAt:       now,
			UpdatedAt:       now,
		},
	}

	if err := s.seedCollection(ctx, domain.CollectionStores, func() ([]domain.Document, error) {
		return toDocuments(stores)
	}); err != nil {
		return err
	}

	if err := s.seedCollection(ctx, domain.CollectionProducts, func() ([]domain.Document, error) {
		return toDocuments(products)
	}); err != nil {
		return err
	}

	s.log.Info().Msg("Starter data seeded")
	return nil
}

func (s *Seeder) seedCollection(ctx context.Context, collection string, build func() ([]domain.Document, error)) error {
	existing, err := s.store.Get(ctx, collection)
	if err != nil {
		return errors.Wrap(err, "failed to read collection %s", collection)
	}
	if len(existing) > 0 {
		s.log.Debug().Str("collection", collection).Msg("Collection already has data, skipping seed")
		return nil
	}

	docs, err := build()
	if err != nil {
		return err
	}

	if err := s.store.Set(ctx, collection, docs); err != nil {
		return errors.Wrap(err, "failed to seed collection %s", collection)
	}

	s.log.Debug().Str("collection", collection).Int("records", len(docs)).Msg("Collection seeded")
	return nil
}
