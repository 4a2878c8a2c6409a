// Package database implements the document store: it makes the remote
// content repository behave like a small multi-collection database with a
// TTL read cache and last-writer-wins optimistic concurrency at collection
// granularity. The typed collection repos in this package sit on top of it.
package database

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/wesavefood/wesavefood/internal/domain"
	"github.com/wesavefood/wesavefood/internal/logger"
	"github.com/wesavefood/wesavefood/pkg/errors"
)

type cacheEntry struct {
	docs      []domain.Document
	state     blobState
	fetchedAt time.Time
}

// Store is the document store. One instance per process, constructed in
// main and injected into the repos; there is no package-level singleton.
type Store struct {
	log    zerolog.Logger
	client domain.ContentClient
	layout layout
	ttl    time.Duration

	mu    sync.RWMutex
	cache map[string]*cacheEntry
	group singleflight.Group

	now func() time.Time
}

func NewStore(cfg *domain.Config, log logger.Logger, client domain.ContentClient) *Store {
	s := &Store{
		log:    log.With().Str("module", "database").Logger(),
		client: client,
		ttl:    cfg.Cache.TTL(),
		cache:  make(map[string]*cacheEntry),
		now:    time.Now,
	}

	switch cfg.GitHub.Layout {
	case "record":
		s.layout = &recordLayout{client: client, dataPath: cfg.GitHub.DataPath}
	default:
		s.layout = &collectionLayout{client: client, dataPath: cfg.GitHub.DataPath}
	}

	return s
}

// Ping verifies the remote content API is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

// cached returns the cache entry for the collection and whether it is
// still fresh. The entry itself is returned even when stale so mutations
// can reuse the most recently observed version token.
func (s *Store) cached(collection string) (*cacheEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.cache[collection]
	if !ok {
		return nil, false
	}
	return entry, s.now().Sub(entry.fetchedAt) < s.ttl
}

func (s *Store) storeCache(collection string, docs []domain.Document, state blobState) {
	s.mu.Lock()
	s.cache[collection] = &cacheEntry{docs: docs, state: state, fetchedAt: s.now()}
	s.mu.Unlock()
}

func (s *Store) dropCache(collection string) {
	s.mu.Lock()
	delete(s.cache, collection)
	s.mu.Unlock()
}

// load returns the collection payload and its version state, from cache
// when fresh. Concurrent cache misses for one collection are collapsed
// into a single remote fetch. No lock is held across the remote call.
func (s *Store) load(ctx context.Context, collection string) ([]domain.Document, blobState, error) {
	if entry, fresh := s.cached(collection); fresh {
		return entry.docs, entry.state, nil
	}

	type loadResult struct {
		docs  []domain.Document
		state blobState
	}

	v, err, _ := s.group.Do(collection, func() (interface{}, error) {
		// Another waiter may have refreshed the entry already.
		if entry, fresh := s.cached(collection); fresh {
			return loadResult{docs: entry.docs, state: entry.state}, nil
		}

		docs, state, err := s.layout.Load(ctx, collection)
		if err != nil {
			return nil, err
		}

		s.storeCache(collection, docs, state)
		s.log.Debug().Str("collection", collection).Int("records", len(docs)).Msg("collection fetched")

		return loadResult{docs: docs, state: state}, nil
	})
	if err != nil {
		return nil, blobState{}, err
	}

	res := v.(loadResult)
	return res.docs, res.state, nil
}

// Get returns the collection payload. A missing remote blob reads as an
// empty collection.
func (s *Store) Get(ctx context.Context, collection string) ([]domain.Document, error) {
	docs, _, err := s.load(ctx, collection)
	if err != nil {
		return nil, err
	}
	return copyDocs(docs), nil
}

// Set replaces the whole collection using the most recently observed
// version token, fetching the current one first when none is known. A
// concurrent writer racing on the same collection surfaces as ErrConflict;
// the losing caller must retry its whole read-modify-write.
func (s *Store) Set(ctx context.Context, collection string, docs []domain.Document) error {
	var state blobState
	if entry, _ := s.cached(collection); entry != nil {
		state = entry.state
	} else {
		_, loaded, err := s.load(ctx, collection)
		if err != nil {
			return err
		}
		state = loaded
	}

	return s.save(ctx, collection, copyDocs(docs), state)
}

func (s *Store) save(ctx context.Context, collection string, docs []domain.Document, state blobState) error {
	newState, err := s.layout.Save(ctx, collection, docs, state)
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			// The observed token is stale. Drop the entry so the retry
			// starts from the current remote content.
			s.dropCache(collection)
		}
		return err
	}

	s.storeCache(collection, docs, newState)
	return nil
}

// AddItem appends a record. The record must carry a unique id; an existing
// id is rejected with ErrDuplicate.
func (s *Store) AddItem(ctx context.Context, collection string, doc domain.Document) error {
	id := doc.ID()
	if id == "" {
		return errors.New("record for collection %s has no id", collection)
	}

	docs, state, err := s.load(ctx, collection)
	if err != nil {
		return err
	}

	for _, d := range docs {
		if d.ID() == id {
			return errors.Wrap(domain.ErrDuplicate, "collection %s id %s", collection, id)
		}
	}

	next := copyDocs(docs)
	next = append(next, doc)

	return s.save(ctx, collection, next, state)
}

// UpdateItem merges fields into the record with the given id and bumps its
// updatedAt. The id itself is never overwritten.
func (s *Store) UpdateItem(ctx context.Context, collection string, id string, fields domain.Document) error {
	docs, state, err := s.load(ctx, collection)
	if err != nil {
		return err
	}

	idx := -1
	for i, d := range docs {
		if d.ID() == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return errors.Wrap(domain.ErrNotFound, "collection %s id %s", collection, id)
	}

	merged := make(domain.Document, len(docs[idx])+len(fields))
	for k, v := range docs[idx] {
		merged[k] = v
	}
	for k, v := range fields {
		if k == "id" {
			continue
		}
		merged[k] = v
	}
	merged["updatedAt"] = s.now().UTC().Format(time.RFC3339Nano)

	next := copyDocs(docs)
	next[idx] = merged

	return s.save(ctx, collection, next, state)
}

// DeleteItem removes the record with the given id.
func (s *Store) DeleteItem(ctx context.Context, collection string, id string) error {
	docs, state, err := s.load(ctx, collection)
	if err != nil {
		return err
	}

	next := make([]domain.Document, 0, len(docs))
	found := false
	for _, d := range docs {
		if d.ID() == id {
			found = true
			continue
		}
		next = append(next, d)
	}
	if !found {
		return errors.Wrap(domain.ErrNotFound, "collection %s id %s", collection, id)
	}

	return s.save(ctx, collection, next, state)
}

// FindItems filters the collection in memory. Linear scan, no indexing;
// fine at the data volumes this system holds.
func (s *Store) FindItems(ctx context.Context, collection string, match func(domain.Document) bool) ([]domain.Document, error) {
	docs, _, err := s.load(ctx, collection)
	if err != nil {
		return nil, err
	}

	var out []domain.Document
	for _, d := range docs {
		if match(d) {
			out = append(out, d)
		}
	}
	return out, nil
}

// ClearCache invalidates the named collections, or all of them when called
// with no arguments.
func (s *Store) ClearCache(collections ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(collections) == 0 {
		s.cache = make(map[string]*cacheEntry)
		return
	}
	for _, c := range collections {
		delete(s.cache, c)
	}
}

func copyDocs(docs []domain.Document) []domain.Document {
	out := make([]domain.Document, len(docs))
	copy(out, docs)
	return out
}

var _ domain.DocumentStore = (*Store)(nil)
