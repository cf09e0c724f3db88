package database

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/classrecord/core"
)

// Store keeps documents as JSONB rows of the documents table, keyed by (collection, id).
type Store struct {
	db *sqlx.DB
}

var _ core.DocumentStore = (*Store)(nil) // interface compliance check

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

type row struct {
	ID   string `db:"id"`
	Data []byte `db:"data"`
}

func (r row) document() (core.Document, error) {
	data, err := decodeData(r.Data)
	if err != nil {
		return core.Document{}, errors.Wrapf(err, "decoding document %q", r.ID)
	}
	return core.Document{ID: r.ID, Data: data}, nil
}

// decodeData keeps numbers as json.Number so that counts are never turned into floats.
func decodeData(raw []byte) (core.Data, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	data := make(core.Data)
	if err := dec.Decode(&data); err != nil {
		return nil, err
	}
	return data, nil
}

func (s *Store) Get(ctx context.Context, coll, id string) (core.Document, error) {
	var r row
	err := s.db.GetContext(ctx, &r, `SELECT id, data FROM documents WHERE collection = $1 AND id = $2`, coll, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return core.Document{}, core.ErrDocumentNotFound
		}
		return core.Document{}, core.NewTransportError("get", err)
	}
	return r.document()
}

func (s *Store) Query(ctx context.Context, coll, field string, value interface{}) ([]core.Document, error) {
	val, err := json.Marshal(value)
	if err != nil {
		return nil, errors.Wrap(err, "encoding query value")
	}
	return s.selectDocs(ctx, "query",
		`SELECT id, data FROM documents WHERE collection = $1 AND data -> $2 = $3::jsonb ORDER BY id`,
		coll, field, string(val))
}

func (s *Store) List(ctx context.Context, coll string) ([]core.Document, error) {
	return s.selectDocs(ctx, "list", `SELECT id, data FROM documents WHERE collection = $1 ORDER BY id`, coll)
}

func (s *Store) selectDocs(ctx context.Context, op, query string, args ...interface{}) ([]core.Document, error) {
	var rows []row
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, core.NewTransportError(op, err)
	}
	docs := make([]core.Document, 0, len(rows))
	for _, r := range rows {
		doc, err := r.document()
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (s *Store) Set(ctx context.Context, coll, id string, data core.Data) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return errors.Wrap(err, "encoding document")
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (collection, id, data) VALUES ($1, $2, $3::jsonb)
		ON CONFLICT (collection, id) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`,
		coll, id, string(raw))
	if err != nil {
		return core.NewTransportError("set", err)
	}
	return nil
}

func (s *Store) Update(ctx context.Context, coll, id string, fields core.Data) error {
	raw, err := json.Marshal(fields)
	if err != nil {
		return errors.Wrap(err, "encoding fields")
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE documents SET data = data || $3::jsonb, updated_at = now()
		WHERE collection = $1 AND id = $2`,
		coll, id, string(raw))
	if err != nil {
		return core.NewTransportError("update", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return core.NewTransportError("update", err)
	}
	if n == 0 {
		return core.ErrDocumentNotFound
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
