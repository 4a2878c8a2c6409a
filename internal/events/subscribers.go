package events

import (
	"fmt"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/rs/zerolog"

	"github.com/wesavefood/wesavefood/internal/domain"
	"github.com/wesavefood/wesavefood/internal/logger"
	"github.com/wesavefood/wesavefood/internal/notification"
)

type Subscriber struct {
	log             zerolog.Logger
	eventBus        EventBus.Bus
	notificationSvc notification.Service
}

func NewSubscribers(log logger.Logger, eventBus EventBus.Bus, notificationSvc notification.Service) Subscriber {
	s := Subscriber{
		log:             log.With().Str("module", "events").Logger(),
		eventBus:        eventBus,
		notificationSvc: notificationSvc,
	}

	s.Register()

	return s
}

func (s Subscriber) Register() {
	s.eventBus.Subscribe(domain.EventProductCreated, s.productCreated)
	s.eventBus.Subscribe(domain.EventAppUpdateAvailable, s.appUpdateAvailable)
	s.eventBus.Subscribe(domain.EventVerificationRequested, s.verificationRequested)
}

func (s Subscriber) productCreated(product domain.Product) {
	s.log.Trace().Msgf("events: '%v' '%v'", domain.EventProductCreated, product)

	s.notificationSvc.Send(domain.NotificationEventProductCreated, domain.NotificationPayload{
		Subject:   "New offer nearby",
		Message:   fmt.Sprintf("%s is now available at a discount", product.Name),
		Event:     domain.NotificationEventProductCreated,
		Timestamp: time.Now(),
	})
}

func (s Subscriber) appUpdateAvailable(version string) {
	s.log.Trace().Msgf("events: '%v' '%v'", domain.EventAppUpdateAvailable, version)

	s.notificationSvc.Send(domain.NotificationEventAppUpdateAvailable, domain.NotificationPayload{
		Subject:   "New update available!",
		Message:   fmt.Sprintf("Update available: %s", version),
		Event:     domain.NotificationEventAppUpdateAvailable,
		Timestamp: time.Now(),
	})
}

// verificationRequested forwards a freshly issued login code to the SMS
// gateway. No provider is wired in yet, so delivery is a log line.
func (s Subscriber) verificationRequested(req domain.VerificationRequest) {
	s.log.Info().Str("phone", req.Phone).Msg("events: dispatching verification SMS")
}
