package http

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"strconv"

	"github.com/asaskevich/EventBus"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/wesavefood/wesavefood/internal/domain"
	pkgErrors "github.com/wesavefood/wesavefood/pkg/errors"
)

type productService interface {
	List(ctx context.Context) ([]domain.Product, error)
	FindByID(ctx context.Context, id string) (*domain.Product, error)
	FindByStoreID(ctx context.Context, storeID string) ([]domain.Product, error)
	FindByCategory(ctx context.Context, category string) ([]domain.Product, error)
	FindUrgent(ctx context.Context) ([]domain.Product, error)
	Search(ctx context.Context, query string) ([]domain.Product, error)
	FindByPriceRange(ctx context.Context, minPrice, maxPrice float64) ([]domain.Product, error)
	FindByDiscountRange(ctx context.Context, minDiscount, maxDiscount float64) ([]domain.Product, error)
	FindExpiringSoon(ctx context.Context, days int) ([]domain.Product, error)
	Store(ctx context.Context, product domain.Product) error
	Update(ctx context.Context, id string, fields domain.Document) error
	Delete(ctx context.Context, id string) error
}

type productHandler struct {
	log     zerolog.Logger
	encoder encoder
	service productService
	bus     EventBus.Bus
}

func newProductHandler(encoder encoder, log zerolog.Logger, service productService, bus EventBus.Bus) *productHandler {
	return &productHandler{
		log:     log,
		encoder: encoder,
		service: service,
		bus:     bus,
	}
}

func (h productHandler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.store)
	r.Get("/{productID}", h.getByID)
	r.Patch("/{productID}", h.update)
	r.Delete("/{productID}", h.delete)
}

// list dispatches on query parameters. Filters are exclusive; the first
// recognized one wins, unfiltered listing is the fallback.
func (h productHandler) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	var (
		products []domain.Product
		err      error
	)

	switch {
	case q.Get("store_id") != "":
		products, err = h.service.FindByStoreID(ctx, q.Get("store_id"))
	case q.Get("category") != "":
		products, err = h.service.FindByCategory(ctx, q.Get("category"))
	case q.Get("urgent") == "true":
		products, err = h.service.FindUrgent(ctx)
	case q.Get("q") != "":
		products, err = h.service.Search(ctx, q.Get("q"))
	case q.Get("min_price") != "" || q.Get("max_price") != "":
		minPrice, maxPrice, parseErr := parseRange(q.Get("min_price"), q.Get("max_price"))
		if parseErr != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, errorResponse{Message: "min_price and max_price must be valid numbers"})
			return
		}
		products, err = h.service.FindByPriceRange(ctx, minPrice, maxPrice)
	case q.Get("min_discount") != "" || q.Get("max_discount") != "":
		minDiscount, maxDiscount, parseErr := parseRange(q.Get("min_discount"), q.Get("max_discount"))
		if parseErr != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, errorResponse{Message: "min_discount and max_discount must be valid numbers"})
			return
		}
		products, err = h.service.FindByDiscountRange(ctx, minDiscount, maxDiscount)
	case q.Get("expiring_days") != "":
		days, parseErr := strconv.Atoi(q.Get("expiring_days"))
		if parseErr != nil || days < 0 {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, errorResponse{Message: "expiring_days must be a non-negative integer"})
			return
		}
		if days == 0 {
			days = domain.ExpiryWindowDefaultDays
		}
		products, err = h.service.FindExpiringSoon(ctx, days)
	default:
		products, err = h.service.List(ctx)
	}

	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list products")
		h.encoder.StatusInternalError(w)
		return
	}

	render.JSON(w, r, products)
}

// parseRange parses optional min/max bounds, defaulting the missing side.
func parseRange(minStr, maxStr string) (float64, float64, error) {
	minVal := 0.0
	maxVal := math.MaxFloat64

	if minStr != "" {
		v, err := strconv.ParseFloat(minStr, 64)
		if err != nil {
			return 0, 0, err
		}
		minVal = v
	}
	if maxStr != "" {
		v, err := strconv.ParseFloat(maxStr, 64)
		if err != nil {
			return 0, 0, err
		}
		maxVal = v
	}

	return minVal, maxVal, nil
}

func (h productHandler) getByID(w http.ResponseWriter, r *http.Request) {
	var (
		ctx       = r.Context()
		productID = chi.URLParam(r, "productID")
	)

	p, err := h.service.FindByID(ctx, productID)
	if err != nil {
		h.log.Error().Err(err).Str("product_id", productID).Msg("Failed to fetch product")
		h.encoder.StatusInternalError(w)
		return
	}
	if p == nil {
		h.encoder.StatusNotFound(ctx, w)
		return
	}

	render.JSON(w, r, p)
}

func (h productHandler) store(w http.ResponseWriter, r *http.Request) {
	var (
		ctx  = r.Context()
		data domain.Product
	)

	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, errorResponse{Message: "invalid request body"})
		return
	}

	if data.Name == "" || data.StoreID == "" {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, errorResponse{Message: "product name and storeId are required"})
		return
	}

	if data.ID == "" {
		data.ID = uuid.NewString()
	}

	if err := h.service.Store(ctx, data); err != nil {
		if pkgErrors.Is(err, domain.ErrDuplicate) {
			render.Status(r, http.StatusConflict)
			render.JSON(w, r, errorResponse{Message: "product already exists"})
			return
		}
		h.log.Error().Err(err).Msg("Failed to create product")
		h.encoder.StatusInternalError(w)
		return
	}

	h.bus.Publish(domain.EventProductCreated, data)

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, data)
}

func (h productHandler) update(w http.ResponseWriter, r *http.Request) {
	var (
		ctx       = r.Context()
		productID = chi.URLParam(r, "productID")
		fields    domain.Document
	)

	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, errorResponse{Message: "invalid request body"})
		return
	}

	if err := h.service.Update(ctx, productID, fields); err != nil {
		if pkgErrors.Is(err, domain.ErrNotFound) {
			h.encoder.StatusNotFound(ctx, w)
			return
		}
		h.log.Error().Err(err).Str("product_id", productID).Msg("Failed to update product")
		h.encoder.StatusInternalError(w)
		return
	}

	h.encoder.NoContent(w)
}

func (h productHandler) delete(w http.ResponseWriter, r *http.Request) {
	var (
		ctx       = r.Context()
		productID = chi.URLParam(r, "productID")
	)

	if err := h.service.Delete(ctx, productID); err != nil {
		if pkgErrors.Is(err, domain.ErrNotFound) {
			h.encoder.StatusNotFound(ctx, w)
			return
		}
		h.log.Error().Err(err).Str("product_id", productID).Msg("Failed to delete product")
		h.encoder.StatusInternalError(w)
		return
	}

	h.encoder.NoContent(w)
}
