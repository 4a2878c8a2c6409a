package database

import (
	"encoding/json"

	"github.com/wesavefood/wesavefood/internal/domain"
	"github.com/wesavefood/wesavefood/pkg/errors"
)

// toDocument converts a typed record to its stored form via a JSON round
// trip. The store persists exactly the fields the caller supplies; nothing
// is derived or dropped on the way in.
func toDocument(v interface{}) (domain.Document, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "could not encode record")
	}

	var doc domain.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, errors.Wrap(err, "could not convert record to document")
	}
	return doc, nil
}

// toDocuments converts a typed slice to stored documents.
func toDocuments(v interface{}) ([]domain.Document, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "could not encode records")
	}

	var docs []domain.Document
	if err := json.Unmarshal(raw, &docs); err != nil {
		return nil, errors.Wrap(err, "could not convert records to documents")
	}
	return docs, nil
}

// fromDocument decodes a stored document into a typed record.
func fromDocument(doc domain.Document, out interface{}) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, "could not encode document")
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return errors.Wrap(domain.ErrCorrupt, "could not decode document: %v", err)
	}
	return nil
}

// fromDocuments decodes a document slice into a typed slice.
func fromDocuments(docs []domain.Document, out interface{}) error {
	raw, err := json.Marshal(docs)
	if err != nil {
		return errors.Wrap(err, "could not encode documents")
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return errors.Wrap(domain.ErrCorrupt, "could not decode documents: %v", err)
	}
	return nil
}
