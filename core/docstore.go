package core

import (
	"context"
	"strings"

	"github.com/pkg/errors"
)

var ErrDocumentNotFound = errors.New("document not found")

type (
	// Data is the content of a document: field name -> value.
	Data map[string]interface{}

	Document struct {
		ID   string
		Data Data
	}

	// DocumentStore is a document database organised in collections.
	// Sub-collections are addressed with SubCollection, e.g. "subjects/<id>/<classCode>".
	// Writes are unconditional: last write wins.
	DocumentStore interface {
		// Get returns ErrDocumentNotFound when no document has the given id.
		Get(ctx context.Context, collection, id string) (Document, error)
		// Query returns every document whose field equals value, in no particular order.
		Query(ctx context.Context, collection, field string, value interface{}) ([]Document, error)
		// List returns every document of the collection, in no particular order.
		List(ctx context.Context, collection string) ([]Document, error)
		// Set creates or fully overwrites a document.
		Set(ctx context.Context, collection, id string, data Data) error
		// Update merges fields into an existing document; ErrDocumentNotFound if it does not exist.
		Update(ctx context.Context, collection, id string, fields Data) error
		// Add creates a document with a generated id.
		Add(ctx context.Context, collection string, data Data) (string, error)
	}
)

// SubCollection returns the path of the sub-collection `sub` of document `id` in `collection`.
func SubCollection(collection, id, sub string) string {
	return strings.Join([]string{collection, id, sub}, "/")
}

// Copy returns a shallow copy of d.
func (d Data) Copy() Data {
	cp := make(Data, len(d))
	for k, v := range d {
		cp[k] = v
	}
	return cp
}

// String returns the string value of field, or "" if it is missing or not a string.
func (d Data) String(field string) string {
	s, _ := d[field].(string)
	return s
}
