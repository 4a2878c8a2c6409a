package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wesavefood/wesavefood/internal/domain"
)

type notificationService interface {
	ListForUser(ctx context.Context, userID string) ([]domain.Notification, error)
	Send(event domain.NotificationEvent, payload domain.NotificationPayload)
	MarkRead(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

type notificationHandler struct {
	encoder encoder
	service notificationService
}

func newNotificationHandler(encoder encoder, service notificationService) *notificationHandler {
	return &notificationHandler{
		encoder: encoder,
		service: service,
	}
}

func (h notificationHandler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/test", h.test)
	r.Put("/{notificationID}/read", h.markRead)
	r.Delete("/{notificationID}", h.delete)
}

// list returns the authenticated user's notifications, broadcast ones
// included.
func (h notificationHandler) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user := userFromContext(ctx)
	if user == nil {
		http.Error(w, "Unauthorized: User not found in context", http.StatusUnauthorized)
		return
	}

	list, err := h.service.ListForUser(ctx, user.ID)
	if err != nil {
		h.encoder.StatusInternalError(w)
		return
	}

	h.encoder.StatusResponse(ctx, w, list, http.StatusOK)
}

func (h notificationHandler) markRead(w http.ResponseWriter, r *http.Request) {
	var (
		ctx            = r.Context()
		notificationID = chi.URLParam(r, "notificationID")
	)

	if err := h.service.MarkRead(ctx, notificationID); err != nil {
		h.encoder.StatusResponse(ctx, w, errorResponse{Message: "failed to mark notification as read"}, http.StatusInternalServerError)
		return
	}

	h.encoder.NoContent(w)
}

func (h notificationHandler) delete(w http.ResponseWriter, r *http.Request) {
	var (
		ctx            = r.Context()
		notificationID = chi.URLParam(r, "notificationID")
	)

	if err := h.service.Delete(ctx, notificationID); err != nil {
		h.encoder.StatusResponse(ctx, w, errorResponse{Message: "failed to delete notification"}, http.StatusInternalServerError)
		return
	}

	h.encoder.NoContent(w)
}

type testNotificationRequest struct {
	Message string `json:"message"`
}

func (h notificationHandler) test(w http.ResponseWriter, r *http.Request) {
	var (
		ctx  = r.Context()
		data testNotificationRequest
	)

	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		h.encoder.StatusResponse(ctx, w, errorResponse{Message: "invalid request body"}, http.StatusBadRequest)
		return
	}

	user := userFromContext(ctx)
	if user == nil {
		http.Error(w, "Unauthorized: User not found in context", http.StatusUnauthorized)
		return
	}

	msg := data.Message
	if msg == "" {
		msg = "This is a test notification"
	}

	h.service.Send(domain.NotificationEventTest, domain.NotificationPayload{
		UserID:  user.ID,
		Subject: "Test notification",
		Message: msg,
		Event:   domain.NotificationEventTest,
	})

	h.encoder.NoContent(w)
}
