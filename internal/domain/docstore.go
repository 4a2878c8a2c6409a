package domain

import (
	"context"
	"time"
)

// Collection names. Each one maps to a deterministic blob path in the
// content repository.
const (
	CollectionUsers         = "users"
	CollectionStores        = "stores"
	CollectionProducts      = "products"
	CollectionOrders        = "orders"
	CollectionFavorites     = "favorites"
	CollectionReviews       = "reviews"
	CollectionNotifications = "notifications"
)

// Document is a single record as stored in a collection blob. Every record
// carries a unique string "id" plus "createdAt"/"updatedAt" timestamps.
type Document map[string]interface{}

// ID returns the record id, or the empty string if the document has none.
func (d Document) ID() string {
	id, _ := d["id"].(string)
	return id
}

// DocumentStore presents remote collections as a local keyed store with
// read caching and last-writer-wins optimistic concurrency. Mutations are
// read-modify-write at collection granularity; a losing writer receives
// ErrConflict and must retry.
type DocumentStore interface {
	// Get returns the collection payload, from cache when fresh. A missing
	// remote blob is treated as an empty collection.
	Get(ctx context.Context, collection string) ([]Document, error)
	// Set replaces the whole collection using the most recently observed
	// version token.
	Set(ctx context.Context, collection string, docs []Document) error
	// AddItem appends a record, rejecting duplicates with ErrDuplicate.
	AddItem(ctx context.Context, collection string, doc Document) error
	// UpdateItem merges fields into the record with the given id and bumps
	// its updatedAt. ErrNotFound if the id is absent.
	UpdateItem(ctx context.Context, collection string, id string, fields Document) error
	// DeleteItem removes the record with the given id. ErrNotFound if absent.
	DeleteItem(ctx context.Context, collection string, id string) error
	// FindItems filters the collection in memory with a linear scan.
	FindItems(ctx context.Context, collection string, match func(Document) bool) ([]Document, error)
	// ClearCache invalidates the named collections, or everything when
	// called with no arguments.
	ClearCache(collections ...string)
}

// Blob is a remote content blob together with its opaque version token.
type Blob struct {
	Path    string
	Content []byte
	SHA     string
}

// BlobInfo is blob metadata without content, as returned by directory
// listings.
type BlobInfo struct {
	Path string
	Name string
	SHA  string
}

// ContentClient is the thin client to the versioned remote content API.
// An empty sha on WriteBlob means "create"; a stale or missing sha on an
// existing path is rejected by the remote side and surfaced as ErrConflict.
type ContentClient interface {
	ReadBlob(ctx context.Context, path string) (*Blob, error)
	WriteBlob(ctx context.Context, path string, content []byte, sha string) (string, error)
	DeleteBlob(ctx context.Context, path string, sha string) error
	ListBlobs(ctx context.Context, dir string) ([]BlobInfo, error)
	Ping(ctx context.Context) error
}

// VerificationEntry holds one pending phone login code. Entries live only
// in process memory for the duration of a login attempt window.
type VerificationEntry struct {
	Code      string
	ExpiresAt time.Time
	Attempts  int
}

// VerificationRequest is published when a login code has been issued and
// is ready for delivery to the user's phone.
type VerificationRequest struct {
	Phone string
	Code  string
}
