package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/asaskevich/EventBus"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wesavefood/wesavefood/internal/domain"
	"github.com/wesavefood/wesavefood/internal/logger"
)

type fakeProductService struct {
	products []domain.Product

	lastCall string
	lastDays int
}

func (f *fakeProductService) List(_ context.Context) ([]domain.Product, error) {
	f.lastCall = "List"
	return f.products, nil
}

func (f *fakeProductService) FindByID(_ context.Context, id string) (*domain.Product, error) {
	for i := range f.products {
		if f.products[i].ID == id {
			return &f.products[i], nil
		}
	}
	return nil, nil
}

func (f *fakeProductService) FindByStoreID(_ context.Context, _ string) ([]domain.Product, error) {
	f.lastCall = "FindByStoreID"
	return f.products, nil
}

func (f *fakeProductService) FindByCategory(_ context.Context, _ string) ([]domain.Product, error) {
	f.lastCall = "FindByCategory"
	return f.products, nil
}

func (f *fakeProductService) FindUrgent(_ context.Context) ([]domain.Product, error) {
	f.lastCall = "FindUrgent"
	return f.products, nil
}

func (f *fakeProductService) Search(_ context.Context, _ string) ([]domain.Product, error) {
	f.lastCall = "Search"
	return f.products, nil
}

func (f *fakeProductService) FindByPriceRange(_ context.Context, _, _ float64) ([]domain.Product, error) {
	f.lastCall = "FindByPriceRange"
	return f.products, nil
}

func (f *fakeProductService) FindByDiscountRange(_ context.Context, _, _ float64) ([]domain.Product, error) {
	f.lastCall = "FindByDiscountRange"
	return f.products, nil
}

func (f *fakeProductService) FindExpiringSoon(_ context.Context, days int) ([]domain.Product, error) {
	f.lastCall = "FindExpiringSoon"
	f.lastDays = days
	return f.products, nil
}

func (f *fakeProductService) Store(_ context.Context, product domain.Product) error {
	f.products = append(f.products, product)
	return nil
}

func (f *fakeProductService) Update(_ context.Context, id string, _ domain.Document) error {
	if p, _ := f.FindByID(context.Background(), id); p == nil {
		return domain.ErrNotFound
	}
	return nil
}

func (f *fakeProductService) Delete(_ context.Context, id string) error {
	return f.Update(context.Background(), id, nil)
}

func newProductTestRouter(svc productService, bus EventBus.Bus) *chi.Mux {
	log := logger.Mock().With().Logger()
	router := chi.NewRouter()
	router.Route("/api/products", newProductHandler(encoder{}, log, svc, bus).Routes)
	return router
}

func TestProductHandler_List_FilterDispatch(t *testing.T) {
	cases := []struct {
		query string
		want  string
	}{
		{"", "List"},
		{"?store_id=s1", "FindByStoreID"},
		{"?category=bakery", "FindByCategory"},
		{"?urgent=true", "FindUrgent"},
		{"?q=bread", "Search"},
		{"?min_price=1000", "FindByPriceRange"},
		{"?max_price=5000", "FindByPriceRange"},
		{"?min_discount=20&max_discount=50", "FindByDiscountRange"},
		{"?expiring_days=3", "FindExpiringSoon"},
	}

	for _, tc := range cases {
		t.Run("query "+tc.query, func(t *testing.T) {
			svc := &fakeProductService{}
			router := newProductTestRouter(svc, EventBus.New())

			req := httptest.NewRequest("GET", "/api/products/"+tc.query, nil)
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			require.Equal(t, http.StatusOK, rr.Code)
			assert.Equal(t, tc.want, svc.lastCall)
		})
	}
}

func TestProductHandler_List_ExpiringDaysDefault(t *testing.T) {
	svc := &fakeProductService{}
	router := newProductTestRouter(svc, EventBus.New())

	req := httptest.NewRequest("GET", "/api/products/?expiring_days=0", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, domain.ExpiryWindowDefaultDays, svc.lastDays)
}

func TestProductHandler_List_BadParams(t *testing.T) {
	router := newProductTestRouter(&fakeProductService{}, EventBus.New())

	for _, q := range []string{"?min_price=abc", "?expiring_days=-1", "?expiring_days=x"} {
		req := httptest.NewRequest("GET", "/api/products/"+q, nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusBadRequest, rr.Code, "query %s", q)
	}
}

func TestProductHandler_Create_PublishesEvent(t *testing.T) {
	svc := &fakeProductService{}
	bus := EventBus.New()

	var (
		mu        sync.Mutex
		published *domain.Product
	)
	wait := make(chan struct{})
	require.NoError(t, bus.Subscribe(domain.EventProductCreated, func(p domain.Product) {
		mu.Lock()
		published = &p
		mu.Unlock()
		close(wait)
	}))

	router := newProductTestRouter(svc, bus)

	body, _ := json.Marshal(domain.Product{Name: "Bread", StoreID: "s1"})
	req := httptest.NewRequest("POST", "/api/products/", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code)

	<-wait
	mu.Lock()
	defer mu.Unlock()
	require.NotNil(t, published)
	assert.Equal(t, "Bread", published.Name)
	assert.NotEmpty(t, published.ID)
}

func TestProductHandler_Create_Validation(t *testing.T) {
	router := newProductTestRouter(&fakeProductService{}, EventBus.New())

	// missing storeId
	body, _ := json.Marshal(domain.Product{Name: "Bread"})
	req := httptest.NewRequest("POST", "/api/products/", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestProductHandler_GetByID(t *testing.T) {
	svc := &fakeProductService{products: []domain.Product{{ID: "p1", Name: "Bread"}}}
	router := newProductTestRouter(svc, EventBus.New())

	req := httptest.NewRequest("GET", "/api/products/p1", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)

	req = httptest.NewRequest("GET", "/api/products/missing", nil)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
