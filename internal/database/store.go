package database

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/wesavefood/wesavefood/internal/domain"
	"github.com/wesavefood/wesavefood/internal/logger"
	"github.com/wesavefood/wesavefood/pkg/errors"
)

const earthRadiusKm = 6371

type StoreRepo struct {
	log   zerolog.Logger
	store domain.DocumentStore
}

func NewStoreRepo(log logger.Logger, store domain.DocumentStore) domain.StoreRepo {
	return &StoreRepo{
		log:   log.With().Str("repo", "store").Logger(),
		store: store,
	}
}

func (r *StoreRepo) List(ctx context.Context) ([]domain.Store, error) {
	docs, err := r.store.Get(ctx, domain.CollectionStores)
	if err != nil {
		r.log.Error().Err(err).Msg("Failed to list stores")
		return nil, errors.Wrap(err, "failed to list stores")
	}

	var stores []domain.Store
	if err := fromDocuments(docs, &stores); err != nil {
		return nil, err
	}
	return stores, nil
}

func (r *StoreRepo) FindByID(ctx context.Context, id string) (*domain.Store, error) {
	docs, err := r.store.FindItems(ctx, domain.CollectionStores, func(doc domain.Document) bool {
		return doc.ID() == id
	})
	if err != nil {
		r.log.Error().Err(err).Str("store_id", id).Msg("Failed to find store")
		return nil, errors.Wrap(err, "failed to find store")
	}
	if len(docs) == 0 {
		return nil, nil
	}

	var store domain.Store
	if err := fromDocument(docs[0], &store); err != nil {
		return nil, err
	}
	return &store, nil
}

// FindWithinRadius filters stores by great-circle distance from the given
// point. A store exactly at maxDistanceKm qualifies.
func (r *StoreRepo) FindWithinRadius(ctx context.Context, lat, lng, maxDistanceKm float64) ([]domain.Store, error) {
	stores, err := r.List(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Store, 0, len(stores))
	for _, s := range stores {
		if haversineKm(lat, lng, s.Coordinates.Lat, s.Coordinates.Lng) <= maxDistanceKm {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *StoreRepo) Store(ctx context.Context, store domain.Store) error {
	if store.ID == "" {
		return errors.New("store has no id")
	}
	now := time.Now().UTC()
	if store.CreatedAt.IsZero() {
		store.CreatedAt = now
	}
	if store.UpdatedAt.IsZero() {
		store.UpdatedAt = store.CreatedAt
	}

	doc, err := toDocument(store)
	if err != nil {
		return err
	}

	if err := r.store.AddItem(ctx, domain.CollectionStores, doc); err != nil {
		r.log.Error().Err(err).Str("store_id", store.ID).Msg("Failed to store store record")
		return errors.Wrap(err, "failed to store store record")
	}

	r.log.Debug().Str("store_id", store.ID).Msg("Successfully stored store record")
	return nil
}

func (r *StoreRepo) Update(ctx context.Context, id string, fields domain.Document) error {
	if err := r.store.UpdateItem(ctx, domain.CollectionStores, id, fields); err != nil {
		r.log.Error().Err(err).Str("store_id", id).Msg("Failed to update store")
		return errors.Wrap(err, "failed to update store")
	}
	return nil
}

func (r *StoreRepo) UpdateRating(ctx context.Context, id string, rating float64) error {
	return r.Update(ctx, id, domain.Document{"rating": rating})
}

func (r *StoreRepo) UpdateEcoRating(ctx context.Context, id string, ecoRating float64) error {
	return r.Update(ctx, id, domain.Document{"ecoRating": ecoRating})
}

func (r *StoreRepo) Delete(ctx context.Context, id string) error {
	if err := r.store.DeleteItem(ctx, domain.CollectionStores, id); err != nil {
		r.log.Error().Err(err).Str("store_id", id).Msg("Failed to delete store")
		return errors.Wrap(err, "failed to delete store")
	}
	return nil
}

// haversineKm computes the great-circle distance between two lat/lng
// pairs in kilometers.
func haversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := deg2rad(lat2 - lat1)
	dLng := deg2rad(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(deg2rad(lat1))*math.Cos(deg2rad(lat2))*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

func deg2rad(deg float64) float64 {
	return deg * (math.Pi / 180)
}
