package user

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/wesavefood/wesavefood/internal/domain"
	"github.com/wesavefood/wesavefood/internal/logger"
	pkgErrors "github.com/wesavefood/wesavefood/pkg/errors"
)

var (
	ErrAuthenticationFailed = pkgErrors.New("authentication failed")
	ErrTokenGeneration      = pkgErrors.New("failed to generate API token")
	ErrTokenHashing         = pkgErrors.New("failed to hash API token")
)

type Service interface {
	// FindOrCreateByPhone returns the user with the given phone, creating
	// a fresh client profile when none exists yet.
	FindOrCreateByPhone(ctx context.Context, phone string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
	UpdateProfile(ctx context.Context, id string, fields domain.Document) error
	UpdatePreferences(ctx context.Context, id string, prefs domain.Preferences) error
	// ResetAndRetrieveAPIToken generates a new API token for the user,
	// persists its bcrypt hash and returns the plain token once.
	ResetAndRetrieveAPIToken(ctx context.Context, id string) (string, error)
	// AuthenticateByToken verifies a plain API token against the stored
	// hashes. Iterates over all users; acceptable at this data volume.
	AuthenticateByToken(ctx context.Context, plainToken string) (*domain.User, error)
	Delete(ctx context.Context, id string) error
}

type service struct {
	repo domain.UserRepo
	log  logger.Logger
}

func NewService(repo domain.UserRepo, log logger.Logger) Service {
	return &service{
		repo: repo,
		log:  log,
	}
}

func (s *service) FindOrCreateByPhone(ctx context.Context, phone string) (*domain.User, error) {
	existing, err := s.repo.FindByPhone(ctx, phone)
	if err != nil {
		return nil, pkgErrors.Wrap(err, "failed to look up user by phone")
	}
	if existing != nil {
		return existing, nil
	}

	now := time.Now().UTC()
	newUser := domain.User{
		ID:          uuid.NewString(),
		Phone:       phone,
		ProfileType: domain.ProfileTypeClient,
		Preferences: domain.Preferences{
			Categories:    []string{},
			MaxDistance:   10,
			Notifications: true,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Store(ctx, newUser); err != nil {
		if pkgErrors.Is(err, domain.ErrDuplicate) {
			// Lost a race against a concurrent registration for the same
			// phone; the other writer's record wins.
			if existing, lookupErr := s.repo.FindByPhone(ctx, phone); lookupErr == nil && existing != nil {
				return existing, nil
			}
		}
		s.log.Error().Str("service", "user").Err(err).Msg("Failed to create user")
		return nil, pkgErrors.Wrap(err, "failed to create user")
	}

	s.log.Info().Str("service", "user").Str("user_id", newUser.ID).Msg("New user registered")
	return &newUser, nil
}

func (s *service) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *service) List(ctx context.Context) ([]domain.User, error) {
	return s.repo.List(ctx)
}

func (s *service) UpdateProfile(ctx context.Context, id string, fields domain.Document) error {
	// Only profile fields may pass through; identity and credential
	// fields are managed elsewhere.
	allowed := map[string]struct{}{
		"name":        {},
		"profileType": {},
		"preferences": {},
	}
	filtered := make(domain.Document, len(fields))
	for k, v := range fields {
		if _, ok := allowed[k]; ok {
			filtered[k] = v
		}
	}
	if len(filtered) == 0 {
		return pkgErrors.New("no updatable fields supplied")
	}

	return s.repo.Update(ctx, id, filtered)
}

func (s *service) UpdatePreferences(ctx context.Context, id string, prefs domain.Preferences) error {
	return s.repo.UpdatePreferences(ctx, id, prefs)
}

// generateAPIToken creates a cryptographically secure random token string.
func generateAPIToken(byteLength int) (string, error) {
	tokenBytes := make([]byte, byteLength)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", ErrTokenGeneration
	}
	return hex.EncodeToString(tokenBytes), nil
}

func (s *service) ResetAndRetrieveAPIToken(ctx context.Context, id string) (string, error) {
	plainToken, err := generateAPIToken(32)
	if err != nil {
		s.log.Error().Str("service", "user").Err(err).Msg("Failed to generate API token")
		return "", err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plainToken), bcrypt.DefaultCost)
	if err != nil {
		s.log.Error().Str("service", "user").Err(err).Msg("Failed to hash API token")
		return "", ErrTokenHashing
	}

	if err := s.repo.UpdateAPITokenHash(ctx, id, string(hashed)); err != nil {
		return "", pkgErrors.Wrap(err, "failed to persist API token hash")
	}

	s.log.Debug().Str("service", "user").Str("user_id", id).Msg("API token reset")
	return plainToken, nil
}

func (s *service) AuthenticateByToken(ctx context.Context, plainToken string) (*domain.User, error) {
	if plainToken == "" {
		return nil, ErrAuthenticationFailed
	}

	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgErrors.Wrap(err, "failed to list users for token authentication")
	}

	for i := range users {
		if users[i].APITokenHash == "" {
			continue
		}
		if bcrypt.CompareHashAndPassword([]byte(users[i].APITokenHash), []byte(plainToken)) == nil {
			return &users[i], nil
		}
	}

	return nil, ErrAuthenticationFailed
}

func (s *service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}
