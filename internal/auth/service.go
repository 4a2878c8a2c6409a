package auth

import (
	"context"
	"regexp"

	"github.com/wesavefood/wesavefood/internal/domain"
	"github.com/wesavefood/wesavefood/internal/logger"
	"github.com/wesavefood/wesavefood/internal/user"
	"github.com/wesavefood/wesavefood/internal/verification"
	pkgErrors "github.com/wesavefood/wesavefood/pkg/errors"

	"github.com/asaskevich/EventBus"
	"github.com/rs/zerolog"
)

var (
	ErrInvalidPhone    = pkgErrors.New("phone number is not in the expected format")
	ErrCodeNotFound    = pkgErrors.New("no verification code requested for this phone")
	ErrCodeExpired     = pkgErrors.New("verification code has expired")
	ErrInvalidCode     = pkgErrors.New("verification code does not match")
	ErrTooManyAttempts = pkgErrors.New("too many verification attempts")
)

// phoneRe matches the national format used across the app,
// e.g. "+998 90 123 45 67".
var phoneRe = regexp.MustCompile(`^\+998 \d{2} \d{3} \d{2} \d{2}$`)

type Service interface {
	// RequestCode generates a fresh verification code for the phone and
	// dispatches it. A repeat request replaces any outstanding code.
	RequestCode(ctx context.Context, phone string) error
	// VerifyCode checks the submitted code and on success resolves the
	// phone to a user account, creating one if needed.
	VerifyCode(ctx context.Context, phone string, code string) (*domain.User, error)
}

type service struct {
	log         zerolog.Logger
	config      *domain.Config
	codes       *verification.Store
	userService user.Service
	bus         EventBus.Bus
}

func NewService(log logger.Logger, config *domain.Config, codes *verification.Store, userSvc user.Service, bus EventBus.Bus) Service {
	return &service{
		log:         log.With().Str("module", "auth").Logger(),
		config:      config,
		codes:       codes,
		userService: userSvc,
		bus:         bus,
	}
}

func (s *service) maxAttempts() int {
	if s.config.Auth.MaxAttempts > 0 {
		return s.config.Auth.MaxAttempts
	}
	return verification.MaxAttempts
}

func (s *service) RequestCode(_ context.Context, phone string) error {
	if !phoneRe.MatchString(phone) {
		return ErrInvalidPhone
	}

	// A request is a natural moment to drop stale codes for other phones.
	s.codes.CleanupExpired()

	code, err := verification.GenerateCode()
	if err != nil {
		return pkgErrors.Wrap(err, "failed to generate verification code")
	}

	s.codes.Save(phone, code)

	// SMS delivery is out of process; the code is handed to the dispatch
	// topic and logged at debug level for local development.
	s.bus.Publish(domain.EventVerificationRequested, domain.VerificationRequest{Phone: phone, Code: code})
	s.log.Debug().Str("phone", phone).Str("code", code).Msg("verification code issued")

	return nil
}

func (s *service) VerifyCode(ctx context.Context, phone string, code string) (*domain.User, error) {
	if !phoneRe.MatchString(phone) {
		return nil, ErrInvalidPhone
	}

	// Sweep stale codes for every phone on the way out. The target
	// phone's own expiry is reported distinctly below, so the sweep must
	// not run before the attempt is spent.
	defer s.codes.CleanupExpired()

	if s.config.Auth.AcceptAnyCode {
		s.log.Warn().Str("phone", phone).Msg("accept_any_code is enabled, skipping code comparison")
		s.codes.Delete(phone)
		return s.userService.FindOrCreateByPhone(ctx, phone)
	}

	entry, result := s.codes.SpendAttempt(phone, s.maxAttempts())
	switch result {
	case verification.AttemptMissing:
		return nil, ErrCodeNotFound
	case verification.AttemptExpired:
		return nil, ErrCodeExpired
	case verification.AttemptExhausted:
		return nil, ErrTooManyAttempts
	}

	if entry.Code != code {
		if entry.Attempts >= s.maxAttempts() {
			// The last attempt went to a wrong code; burn the entry so a
			// later retry looks exactly like never having requested one.
			s.codes.Delete(phone)
		}
		s.log.Debug().Str("phone", phone).Int("attempts", entry.Attempts).Msg("verification code mismatch")
		return nil, ErrInvalidCode
	}

	s.codes.Delete(phone)

	u, err := s.userService.FindOrCreateByPhone(ctx, phone)
	if err != nil {
		return nil, pkgErrors.Wrap(err, "verified phone but failed to resolve user")
	}

	s.log.Info().Str("phone", phone).Str("user_id", u.ID).Msg("phone verified")
	return u, nil
}
