package database

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wesavefood/wesavefood/internal/domain"
	"github.com/wesavefood/wesavefood/internal/logger"
	"github.com/wesavefood/wesavefood/pkg/errors"
)

type fakeBlob struct {
	content []byte
	sha     string
}

// fakeContentClient emulates the remote content API, including its
// conditional write semantics: an empty sha creates, a stale sha on an
// existing path conflicts.
type fakeContentClient struct {
	mu      sync.Mutex
	blobs   map[string]*fakeBlob
	nextSHA int

	reads  int
	writes int
}

func newFakeContentClient() *fakeContentClient {
	return &fakeContentClient{blobs: make(map[string]*fakeBlob)}
}

func (f *fakeContentClient) put(path string, content []byte) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextSHA++
	sha := fmt.Sprintf("sha-%d", f.nextSHA)
	f.blobs[path] = &fakeBlob{content: content, sha: sha}
	return sha
}

func (f *fakeContentClient) ReadBlob(_ context.Context, path string) (*domain.Blob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++

	b, ok := f.blobs[path]
	if !ok {
		return nil, errors.Wrap(domain.ErrNotFound, "blob %s", path)
	}
	return &domain.Blob{Path: path, Content: b.content, SHA: b.sha}, nil
}

func (f *fakeContentClient) WriteBlob(_ context.Context, path string, content []byte, sha string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++

	existing, ok := f.blobs[path]
	if ok && existing.sha != sha {
		return "", errors.Wrap(domain.ErrConflict, "blob %s", path)
	}
	if !ok && sha != "" {
		return "", errors.Wrap(domain.ErrConflict, "blob %s", path)
	}

	f.nextSHA++
	newSHA := fmt.Sprintf("sha-%d", f.nextSHA)
	f.blobs[path] = &fakeBlob{content: content, sha: newSHA}
	return newSHA, nil
}

func (f *fakeContentClient) DeleteBlob(_ context.Context, path string, sha string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	existing, ok := f.blobs[path]
	if !ok {
		return errors.Wrap(domain.ErrNotFound, "blob %s", path)
	}
	if existing.sha != sha {
		return errors.Wrap(domain.ErrConflict, "blob %s", path)
	}
	delete(f.blobs, path)
	return nil
}

func (f *fakeContentClient) ListBlobs(_ context.Context, dir string) ([]domain.BlobInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var infos []domain.BlobInfo
	for p, b := range f.blobs {
		if path.Dir(p) == dir {
			infos = append(infos, domain.BlobInfo{Path: p, Name: path.Base(p), SHA: b.sha})
		}
	}
	return infos, nil
}

func (f *fakeContentClient) Ping(_ context.Context) error {
	return nil
}

func (f *fakeContentClient) readCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads
}

func newTestStore(t *testing.T, client domain.ContentClient, layoutName string) (*Store, *time.Time) {
	t.Helper()

	cfg := &domain.Config{
		GitHub: domain.GitHubConfig{DataPath: "data", Layout: layoutName},
		Cache:  domain.CacheConfig{TTLMilliseconds: 300000},
	}

	store := NewStore(cfg, logger.Mock(), client)

	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return clock }
	return store, &clock
}

func TestStore_Get_MissingBlobReadsEmpty(t *testing.T) {
	client := newFakeContentClient()
	store, _ := newTestStore(t, client, "collection")

	docs, err := store.Get(context.Background(), domain.CollectionUsers)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestStore_Get_CacheHitWithinTTL(t *testing.T) {
	client := newFakeContentClient()
	client.put("data/users.json", []byte(`[{"id":"u1","phone":"+998 90 123 45 67"}]`))
	store, _ := newTestStore(t, client, "collection")

	docs, err := store.Get(context.Background(), domain.CollectionUsers)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	firstReads := client.readCount()

	// second read within the TTL must not touch the remote
	docs, err = store.Get(context.Background(), domain.CollectionUsers)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, firstReads, client.readCount())
}

func TestStore_Get_RefetchAfterTTL(t *testing.T) {
	client := newFakeContentClient()
	client.put("data/users.json", []byte(`[{"id":"u1"}]`))
	store, clock := newTestStore(t, client, "collection")

	_, err := store.Get(context.Background(), domain.CollectionUsers)
	require.NoError(t, err)
	firstReads := client.readCount()

	// remote content changes behind our back
	client.put("data/users.json", []byte(`[{"id":"u1"},{"id":"u2"}]`))

	// still fresh: the stale cached copy is returned
	docs, err := store.Get(context.Background(), domain.CollectionUsers)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
	assert.Equal(t, firstReads, client.readCount())

	// past the TTL: the next read refetches
	*clock = clock.Add(301 * time.Second)
	docs, err = store.Get(context.Background(), domain.CollectionUsers)
	require.NoError(t, err)
	assert.Len(t, docs, 2)
	assert.Greater(t, client.readCount(), firstReads)
}

func TestStore_Get_CorruptBlob(t *testing.T) {
	client := newFakeContentClient()
	client.put("data/users.json", []byte(`{"not":"an array"`))
	store, _ := newTestStore(t, client, "collection")

	_, err := store.Get(context.Background(), domain.CollectionUsers)
	assert.ErrorIs(t, err, domain.ErrCorrupt)
}

func TestStore_AddItem(t *testing.T) {
	client := newFakeContentClient()
	store, _ := newTestStore(t, client, "collection")
	ctx := context.Background()

	err := store.AddItem(ctx, domain.CollectionProducts, domain.Document{"id": "p1", "name": "Bread"})
	require.NoError(t, err)

	docs, err := store.Get(ctx, domain.CollectionProducts)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "p1", docs[0].ID())

	// same id again is rejected
	err = store.AddItem(ctx, domain.CollectionProducts, domain.Document{"id": "p1"})
	assert.ErrorIs(t, err, domain.ErrDuplicate)

	// record without id is rejected
	err = store.AddItem(ctx, domain.CollectionProducts, domain.Document{"name": "no id"})
	assert.Error(t, err)
}

func TestStore_UpdateItem(t *testing.T) {
	client := newFakeContentClient()
	store, _ := newTestStore(t, client, "collection")
	ctx := context.Background()

	require.NoError(t, store.AddItem(ctx, domain.CollectionProducts, domain.Document{
		"id":       "p1",
		"name":     "Bread",
		"quantity": 3,
	}))

	err := store.UpdateItem(ctx, domain.CollectionProducts, "p1", domain.Document{
		"quantity": 2,
		"id":       "evil", // must be ignored
	})
	require.NoError(t, err)

	docs, err := store.Get(ctx, domain.CollectionProducts)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "p1", docs[0].ID())
	assert.EqualValues(t, 2, docs[0]["quantity"])
	assert.Equal(t, "Bread", docs[0]["name"])
	assert.NotEmpty(t, docs[0]["updatedAt"])

	err = store.UpdateItem(ctx, domain.CollectionProducts, "missing", domain.Document{"quantity": 1})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_DeleteItem(t *testing.T) {
	client := newFakeContentClient()
	store, _ := newTestStore(t, client, "collection")
	ctx := context.Background()

	require.NoError(t, store.AddItem(ctx, domain.CollectionStores, domain.Document{"id": "s1"}))
	require.NoError(t, store.AddItem(ctx, domain.CollectionStores, domain.Document{"id": "s2"}))

	require.NoError(t, store.DeleteItem(ctx, domain.CollectionStores, "s1"))

	docs, err := store.Get(ctx, domain.CollectionStores)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "s2", docs[0].ID())

	err = store.DeleteItem(ctx, domain.CollectionStores, "s1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_FindItems(t *testing.T) {
	client := newFakeContentClient()
	store, _ := newTestStore(t, client, "collection")
	ctx := context.Background()

	require.NoError(t, store.AddItem(ctx, domain.CollectionProducts, domain.Document{"id": "p1", "category": "bakery"}))
	require.NoError(t, store.AddItem(ctx, domain.CollectionProducts, domain.Document{"id": "p2", "category": "dairy"}))

	docs, err := store.FindItems(ctx, domain.CollectionProducts, func(doc domain.Document) bool {
		c, _ := doc["category"].(string)
		return c == "dairy"
	})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "p2", docs[0].ID())
}

func TestStore_Set_ConflictDropsCache(t *testing.T) {
	client := newFakeContentClient()
	client.put("data/users.json", []byte(`[{"id":"u1"}]`))
	store, _ := newTestStore(t, client, "collection")
	ctx := context.Background()

	_, err := store.Get(ctx, domain.CollectionUsers)
	require.NoError(t, err)

	// another writer replaces the blob, invalidating our token
	client.put("data/users.json", []byte(`[{"id":"u1"},{"id":"u2"}]`))

	err = store.Set(ctx, domain.CollectionUsers, []domain.Document{{"id": "u1"}, {"id": "u3"}})
	require.ErrorIs(t, err, domain.ErrConflict)

	// the conflict dropped the cache entry, so the retry reads the
	// current remote content and wins
	docs, err := store.Get(ctx, domain.CollectionUsers)
	require.NoError(t, err)
	require.Len(t, docs, 2)

	err = store.Set(ctx, domain.CollectionUsers, []domain.Document{{"id": "u1"}, {"id": "u2"}, {"id": "u3"}})
	require.NoError(t, err)
}

func TestStore_ClearCache(t *testing.T) {
	client := newFakeContentClient()
	client.put("data/users.json", []byte(`[{"id":"u1"}]`))
	store, _ := newTestStore(t, client, "collection")
	ctx := context.Background()

	_, err := store.Get(ctx, domain.CollectionUsers)
	require.NoError(t, err)
	firstReads := client.readCount()

	client.put("data/users.json", []byte(`[{"id":"u1"},{"id":"u2"}]`))
	store.ClearCache(domain.CollectionUsers)

	docs, err := store.Get(ctx, domain.CollectionUsers)
	require.NoError(t, err)
	assert.Len(t, docs, 2)
	assert.Greater(t, client.readCount(), firstReads)
}

func TestStore_PersistsUnknownFieldsVerbatim(t *testing.T) {
	client := newFakeContentClient()
	store, _ := newTestStore(t, client, "collection")
	ctx := context.Background()

	// the store must not derive or normalize caller-supplied fields
	require.NoError(t, store.AddItem(ctx, domain.CollectionProducts, domain.Document{
		"id":                 "p1",
		"originalPrice":      10000.0,
		"discountedPrice":    5000.0,
		"discountPercentage": 99.0, // deliberately inconsistent with the prices
	}))

	store.ClearCache()
	docs, err := store.Get(ctx, domain.CollectionProducts)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.EqualValues(t, 99.0, docs[0]["discountPercentage"])
}

func TestStore_RecordLayout(t *testing.T) {
	client := newFakeContentClient()
	client.put("data/products/p1.json", []byte(`{"id":"p1","name":"Bread"}`))
	client.put("data/products/p2.json", []byte(`{"id":"p2","name":"Milk"}`))
	client.put("data/products/readme.txt", []byte(`not a record`))
	store, _ := newTestStore(t, client, "record")
	ctx := context.Background()

	docs, err := store.Get(ctx, domain.CollectionProducts)
	require.NoError(t, err)
	require.Len(t, docs, 2)

	ids := []string{docs[0].ID(), docs[1].ID()}
	assert.ElementsMatch(t, []string{"p1", "p2"}, ids)

	// adding a record writes one new blob and leaves the others alone
	require.NoError(t, store.AddItem(ctx, domain.CollectionProducts, domain.Document{"id": "p3", "name": "Eggs"}))
	assert.Contains(t, client.blobs, "data/products/p3.json")

	// deleting removes the backing blob
	require.NoError(t, store.DeleteItem(ctx, domain.CollectionProducts, "p1"))
	assert.NotContains(t, client.blobs, "data/products/p1.json")
	assert.Contains(t, client.blobs, "data/products/p2.json")
}

func TestStore_RecordLayout_SkipsUnchangedRecords(t *testing.T) {
	client := newFakeContentClient()
	client.put("data/products/p1.json", marshalDoc(t, domain.Document{"id": "p1", "name": "Bread"}))
	client.put("data/products/p2.json", marshalDoc(t, domain.Document{"id": "p2", "name": "Milk"}))
	store, _ := newTestStore(t, client, "record")
	ctx := context.Background()

	_, err := store.Get(ctx, domain.CollectionProducts)
	require.NoError(t, err)

	p2SHA := client.blobs["data/products/p2.json"].sha

	require.NoError(t, store.UpdateItem(ctx, domain.CollectionProducts, "p1", domain.Document{"name": "Rye bread"}))

	// p2 was untouched by the update, so its blob must keep its token
	assert.Equal(t, p2SHA, client.blobs["data/products/p2.json"].sha)
}

// marshalDoc renders a document exactly the way the record layout does,
// so unchanged-record detection can kick in.
func marshalDoc(t *testing.T, doc domain.Document) []byte {
	t.Helper()
	content, err := json.MarshalIndent(doc, "", "  ")
	require.NoError(t, err)
	return content
}
