package database

import (
	"bytes"
	"context"
	"encoding/json"
	"path"
	"strings"

	"github.com/wesavefood/wesavefood/internal/domain"
	"github.com/wesavefood/wesavefood/pkg/errors"
)

// blobState is the version state observed when a collection was loaded,
// required for the next conditional write. Which fields are populated
// depends on the layout.
type blobState struct {
	// sha is the collection blob token (collection layout).
	sha string
	// recordSHAs maps record id to blob token (record layout).
	recordSHAs map[string]string
	// recordRaw keeps the marshaled record bytes from load time so Save
	// can skip unchanged records (record layout).
	recordRaw map[string][]byte
}

// layout is the blob backing strategy behind the document store. Exactly
// one is active per deployment, selected by github.layout.
type layout interface {
	Load(ctx context.Context, collection string) ([]domain.Document, blobState, error)
	Save(ctx context.Context, collection string, docs []domain.Document, prev blobState) (blobState, error)
}

// collectionLayout stores each collection as a single JSON array blob at
// data/<collection>.json. This is the default and matches the original
// data files; the whole blob is the unit of concurrency, so unrelated
// record updates in one collection can still conflict with each other.
type collectionLayout struct {
	client   domain.ContentClient
	dataPath string
}

func (l *collectionLayout) path(collection string) string {
	return path.Join(l.dataPath, collection+".json")
}

func (l *collectionLayout) Load(ctx context.Context, collection string) ([]domain.Document, blobState, error) {
	blob, err := l.client.ReadBlob(ctx, l.path(collection))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Lazily initialized: a collection that was never written
			// reads as empty.
			return []domain.Document{}, blobState{}, nil
		}
		return nil, blobState{}, err
	}

	var docs []domain.Document
	if err := json.Unmarshal(blob.Content, &docs); err != nil {
		return nil, blobState{}, errors.Wrap(domain.ErrCorrupt, "collection %s: %v", collection, err)
	}

	return docs, blobState{sha: blob.SHA}, nil
}

func (l *collectionLayout) Save(ctx context.Context, collection string, docs []domain.Document, prev blobState) (blobState, error) {
	content, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return blobState{}, errors.Wrap(err, "could not encode collection %s", collection)
	}

	sha, err := l.client.WriteBlob(ctx, l.path(collection), content, prev.sha)
	if err != nil {
		return blobState{}, err
	}

	return blobState{sha: sha}, nil
}

// recordLayout stores one blob per record at data/<collection>/<id>.json.
// It shrinks the conflict window to a single record at the cost of one
// remote call per changed record.
type recordLayout struct {
	client   domain.ContentClient
	dataPath string
}

func (l *recordLayout) dir(collection string) string {
	return path.Join(l.dataPath, collection)
}

func (l *recordLayout) path(collection, id string) string {
	return path.Join(l.dataPath, collection, id+".json")
}

func (l *recordLayout) Load(ctx context.Context, collection string) ([]domain.Document, blobState, error) {
	infos, err := l.client.ListBlobs(ctx, l.dir(collection))
	if err != nil {
		return nil, blobState{}, err
	}

	state := blobState{
		recordSHAs: make(map[string]string, len(infos)),
		recordRaw:  make(map[string][]byte, len(infos)),
	}

	docs := make([]domain.Document, 0, len(infos))
	for _, info := range infos {
		if !strings.HasSuffix(info.Name, ".json") {
			continue
		}

		blob, err := l.client.ReadBlob(ctx, info.Path)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				// Deleted between list and read; skip.
				continue
			}
			return nil, blobState{}, err
		}

		var doc domain.Document
		if err := json.Unmarshal(blob.Content, &doc); err != nil {
			return nil, blobState{}, errors.Wrap(domain.ErrCorrupt, "collection %s record %s: %v", collection, info.Name, err)
		}

		id := doc.ID()
		if id == "" {
			id = strings.TrimSuffix(info.Name, ".json")
		}

		docs = append(docs, doc)
		state.recordSHAs[id] = blob.SHA
		state.recordRaw[id] = blob.Content
	}

	return docs, state, nil
}

func (l *recordLayout) Save(ctx context.Context, collection string, docs []domain.Document, prev blobState) (blobState, error) {
	next := blobState{
		recordSHAs: make(map[string]string, len(docs)),
		recordRaw:  make(map[string][]byte, len(docs)),
	}

	seen := make(map[string]struct{}, len(docs))
	for _, doc := range docs {
		id := doc.ID()
		if id == "" {
			return blobState{}, errors.New("record for collection %s has no id", collection)
		}
		seen[id] = struct{}{}

		content, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return blobState{}, errors.Wrap(err, "could not encode record %s/%s", collection, id)
		}

		if old, ok := prev.recordRaw[id]; ok && bytes.Equal(old, content) {
			next.recordSHAs[id] = prev.recordSHAs[id]
			next.recordRaw[id] = old
			continue
		}

		sha, err := l.client.WriteBlob(ctx, l.path(collection, id), content, prev.recordSHAs[id])
		if err != nil {
			return blobState{}, err
		}

		next.recordSHAs[id] = sha
		next.recordRaw[id] = content
	}

	for id, sha := range prev.recordSHAs {
		if _, ok := seen[id]; ok {
			continue
		}
		if err := l.client.DeleteBlob(ctx, l.path(collection, id), sha); err != nil && !errors.Is(err, domain.ErrNotFound) {
			return blobState{}, err
		}
	}

	return next, nil
}
