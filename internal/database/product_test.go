package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wesavefood/wesavefood/internal/domain"
	"github.com/wesavefood/wesavefood/internal/logger"
)

func newTestProductRepo(t *testing.T, now time.Time, products ...domain.Product) domain.ProductRepo {
	t.Helper()

	repo := NewProductRepo(logger.Mock(), newFakeDocStore()).(*ProductRepo)
	repo.nowFunc = func() time.Time { return now }

	for _, p := range products {
		require.NoError(t, repo.Store(context.Background(), p))
	}
	return repo
}

func TestProductRepo_FindExpiringSoon(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	repo := newTestProductRepo(t, now,
		domain.Product{ID: "expired", StoreID: "s1", Name: "Old milk", ExpiryDate: now.Add(-24 * time.Hour)},
		domain.Product{ID: "soon", StoreID: "s1", Name: "Bread", ExpiryDate: now.Add(3 * 24 * time.Hour)},
		domain.Product{ID: "edge", StoreID: "s1", Name: "Cheese", ExpiryDate: now.Add(7 * 24 * time.Hour)},
		domain.Product{ID: "later", StoreID: "s1", Name: "Canned beans", ExpiryDate: now.Add(30 * 24 * time.Hour)},
	)

	t.Run("default window", func(t *testing.T) {
		products, err := repo.FindExpiringSoon(context.Background(), 0)
		require.NoError(t, err)

		ids := make([]string, 0, len(products))
		for _, p := range products {
			ids = append(ids, p.ID)
		}
		// expired products are excluded, the 7 day boundary is inclusive
		assert.ElementsMatch(t, []string{"soon", "edge"}, ids)
	})

	t.Run("narrow window", func(t *testing.T) {
		products, err := repo.FindExpiringSoon(context.Background(), 3)
		require.NoError(t, err)
		require.Len(t, products, 1)
		assert.Equal(t, "soon", products[0].ID)
	})
}

func TestProductRepo_Search(t *testing.T) {
	now := time.Now()
	repo := newTestProductRepo(t, now,
		domain.Product{ID: "p1", StoreID: "s1", Name: "Fresh Bread", Category: "bakery"},
		domain.Product{ID: "p2", StoreID: "s1", Name: "Milk", Description: "Fresh dairy milk", Category: "dairy"},
		domain.Product{ID: "p3", StoreID: "s2", Name: "Apples", Category: "produce"},
	)

	products, err := repo.Search(context.Background(), "fresh")
	require.NoError(t, err)
	assert.Len(t, products, 2)

	products, err = repo.Search(context.Background(), "DAIRY")
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "p2", products[0].ID)

	products, err = repo.Search(context.Background(), "nothing matches this")
	require.NoError(t, err)
	assert.Empty(t, products)
}

func TestProductRepo_FindByPriceRange(t *testing.T) {
	now := time.Now()
	repo := newTestProductRepo(t, now,
		domain.Product{ID: "cheap", StoreID: "s1", Name: "Bread", DiscountedPrice: 3000},
		domain.Product{ID: "mid", StoreID: "s1", Name: "Cheese", DiscountedPrice: 15000},
		domain.Product{ID: "dear", StoreID: "s1", Name: "Honey", DiscountedPrice: 60000},
	)

	products, err := repo.FindByPriceRange(context.Background(), 3000, 15000)
	require.NoError(t, err)

	ids := make([]string, 0, len(products))
	for _, p := range products {
		ids = append(ids, p.ID)
	}
	// both bounds are inclusive
	assert.ElementsMatch(t, []string{"cheap", "mid"}, ids)
}

func TestProductRepo_FindByDiscountRange(t *testing.T) {
	now := time.Now()
	repo := newTestProductRepo(t, now,
		domain.Product{ID: "p1", StoreID: "s1", Name: "Bread", DiscountPercentage: 20},
		domain.Product{ID: "p2", StoreID: "s1", Name: "Milk", DiscountPercentage: 50},
		domain.Product{ID: "p3", StoreID: "s1", Name: "Eggs", DiscountPercentage: 70},
	)

	products, err := repo.FindByDiscountRange(context.Background(), 40, 70)
	require.NoError(t, err)
	assert.Len(t, products, 2)
}

func TestProductRepo_FiltersAndCRUD(t *testing.T) {
	now := time.Now()
	repo := newTestProductRepo(t, now,
		domain.Product{ID: "p1", StoreID: "s1", Name: "Bread", Category: "bakery", IsUrgent: true},
		domain.Product{ID: "p2", StoreID: "s2", Name: "Milk", Category: "dairy"},
	)
	ctx := context.Background()

	byStore, err := repo.FindByStoreID(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, byStore, 1)
	assert.Equal(t, "p1", byStore[0].ID)

	byCategory, err := repo.FindByCategory(ctx, "dairy")
	require.NoError(t, err)
	require.Len(t, byCategory, 1)
	assert.Equal(t, "p2", byCategory[0].ID)

	urgent, err := repo.FindUrgent(ctx)
	require.NoError(t, err)
	require.Len(t, urgent, 1)
	assert.Equal(t, "p1", urgent[0].ID)

	require.NoError(t, repo.Update(ctx, "p2", domain.Document{"quantity": 5}))
	p, err := repo.FindByID(ctx, "p2")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, 5, p.Quantity)

	require.NoError(t, repo.Delete(ctx, "p1"))
	p, err = repo.FindByID(ctx, "p1")
	require.NoError(t, err)
	assert.Nil(t, p)
}
