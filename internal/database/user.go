package database

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/wesavefood/wesavefood/internal/domain"
	"github.com/wesavefood/wesavefood/internal/logger"
	"github.com/wesavefood/wesavefood/pkg/errors"
)

type UserRepo struct {
	log   zerolog.Logger
	store domain.DocumentStore
}

func NewUserRepo(log logger.Logger, store domain.DocumentStore) domain.UserRepo {
	return &UserRepo{
		log:   log.With().Str("repo", "user").Logger(),
		store: store,
	}
}

func (r *UserRepo) List(ctx context.Context) ([]domain.User, error) {
	docs, err := r.store.Get(ctx, domain.CollectionUsers)
	if err != nil {
		r.log.Error().Err(err).Msg("Failed to list users")
		return nil, errors.Wrap(err, "failed to list users")
	}

	var users []domain.User
	if err := fromDocuments(docs, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *UserRepo) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return r.findOne(ctx, func(doc domain.Document) bool {
		return doc.ID() == id
	})
}

func (r *UserRepo) FindByPhone(ctx context.Context, phone string) (*domain.User, error) {
	return r.findOne(ctx, func(doc domain.Document) bool {
		p, _ := doc["phone"].(string)
		return p == phone
	})
}

// findOne returns nil, nil when no user matches. Absence is not an
// application error here; callers decide.
func (r *UserRepo) findOne(ctx context.Context, match func(domain.Document) bool) (*domain.User, error) {
	docs, err := r.store.FindItems(ctx, domain.CollectionUsers, match)
	if err != nil {
		r.log.Error().Err(err).Msg("Failed to find user")
		return nil, errors.Wrap(err, "failed to find user")
	}
	if len(docs) == 0 {
		return nil, nil
	}

	var user domain.User
	if err := fromDocument(docs[0], &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepo) Store(ctx context.Context, user domain.User) error {
	if user.ID == "" {
		return errors.New("user has no id")
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = user.CreatedAt
	}

	doc, err := toDocument(user)
	if err != nil {
		return err
	}

	if err := r.store.AddItem(ctx, domain.CollectionUsers, doc); err != nil {
		r.log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to store user")
		return errors.Wrap(err, "failed to store user")
	}

	r.log.Debug().Str("user_id", user.ID).Msg("Successfully stored user")
	return nil
}

func (r *UserRepo) Update(ctx context.Context, id string, fields domain.Document) error {
	if err := r.store.UpdateItem(ctx, domain.CollectionUsers, id, fields); err != nil {
		r.log.Error().Err(err).Str("user_id", id).Msg("Failed to update user")
		return errors.Wrap(err, "failed to update user")
	}
	return nil
}

func (r *UserRepo) UpdatePreferences(ctx context.Context, id string, prefs domain.Preferences) error {
	doc, err := toDocument(prefs)
	if err != nil {
		return err
	}
	return r.Update(ctx, id, domain.Document{"preferences": map[string]interface{}(doc)})
}

func (r *UserRepo) UpdateAPITokenHash(ctx context.Context, id string, tokenHash string) error {
	return r.Update(ctx, id, domain.Document{"apiTokenHash": tokenHash})
}

func (r *UserRepo) Delete(ctx context.Context, id string) error {
	if err := r.store.DeleteItem(ctx, domain.CollectionUsers, id); err != nil {
		r.log.Error().Err(err).Str("user_id", id).Msg("Failed to delete user")
		return errors.Wrap(err, "failed to delete user")
	}
	return nil
}
