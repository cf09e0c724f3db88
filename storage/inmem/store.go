package inmem

import (
	"context"
	"reflect"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/trezcool/classrecord/core"
)

type (
	Store struct {
		sync.RWMutex
		collections map[string]collection
	}

	collection map[string]core.Data // {id: data}
)

var _ core.DocumentStore = (*Store)(nil) // interface compliance check

func Open() *Store {
	return &Store{collections: make(map[string]collection)}
}

func (s *Store) Get(_ context.Context, coll, id string) (core.Document, error) {
	s.RLock()
	defer s.RUnlock()

	if data, ok := s.collections[coll][id]; ok {
		return core.Document{ID: id, Data: cloneData(data)}, nil
	}
	return core.Document{}, core.ErrDocumentNotFound
}

func (s *Store) Query(_ context.Context, coll, field string, value interface{}) ([]core.Document, error) {
	s.RLock()
	defer s.RUnlock()

	var docs []core.Document
	for id, data := range s.collections[coll] {
		if v, ok := data[field]; ok && reflect.DeepEqual(v, value) {
			docs = append(docs, core.Document{ID: id, Data: cloneData(data)})
		}
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

func (s *Store) List(_ context.Context, coll string) ([]core.Document, error) {
	s.RLock()
	defer s.RUnlock()

	docs := make([]core.Document, 0, len(s.collections[coll]))
	for id, data := range s.collections[coll] {
		docs = append(docs, core.Document{ID: id, Data: cloneData(data)})
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

func (s *Store) Set(_ context.Context, coll, id string, data core.Data) error {
	s.Lock()
	defer s.Unlock()

	s.collection(coll)[id] = cloneData(data)
	return nil
}

func (s *Store) Update(_ context.Context, coll, id string, fields core.Data) error {
	s.Lock()
	defer s.Unlock()

	data, ok := s.collections[coll][id]
	if !ok {
		return core.ErrDocumentNotFound
	}
	for k, v := range fields {
		data[k] = clone(v)
	}
	return nil
}

func (s *Store) Add(ctx context.Context, coll string, data core.Data) (string, error) {
	id := uuid.New().String()
	if err := s.Set(ctx, coll, id, data); err != nil {
		return "", err
	}
	return id, nil
}

// Reset drops every collection.
func (s *Store) Reset() {
	s.Lock()
	defer s.Unlock()
	s.collections = make(map[string]collection)
}

func (s *Store) collection(name string) collection {
	coll, ok := s.collections[name]
	if !ok {
		coll = make(collection)
		s.collections[name] = coll
	}
	return coll
}

func cloneData(data core.Data) core.Data {
	cp := make(core.Data, len(data))
	for k, v := range data {
		cp[k] = clone(v)
	}
	return cp
}

// clone deep copies maps and slices so that callers never share state with the store.
func clone(v interface{}) interface{} {
	switch val := v.(type) {
	case core.Data:
		return map[string]interface{}(cloneData(val))
	case map[string]interface{}:
		return map[string]interface{}(cloneData(val))
	case []interface{}:
		cp := make([]interface{}, len(val))
		for i, e := range val {
			cp[i] = clone(e)
		}
		return cp
	case []string:
		return append([]string(nil), val...)
	case []int:
		return append([]int(nil), val...)
	case []byte:
		return append([]byte(nil), val...)
	}
	return v
}
