// Package storage opens the document store selected by the configuration.
package storage

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/classrecord/core"
	"github.com/trezcool/classrecord/storage/database"
	"github.com/trezcool/classrecord/storage/inmem"
	"github.com/trezcool/classrecord/storage/mongostore"
)

var errUnknownEngine = errors.New("unknown store engine")

// Handle is an opened document store.
type Handle struct {
	Store core.DocumentStore
	DB    *sqlx.DB // postgres engine only
	close func(ctx context.Context) error
}

func (h *Handle) Close(ctx context.Context) error {
	if h.close == nil {
		return nil
	}
	return h.close(ctx)
}

// Open opens the store of conf.Store.Engine. The postgres database and its user are created when missing.
func Open(ctx context.Context, conf *core.Config) (*Handle, error) {
	switch conf.Store.Engine {
	case core.StoreMemory:
		return &Handle{Store: inmem.Open()}, nil

	case core.StoreMongo:
		store, err := mongostore.Open(ctx, conf)
		if err != nil {
			return nil, errors.Wrap(err, "opening mongo store")
		}
		return &Handle{Store: store, close: store.Close}, nil

	case core.StorePostgres:
		if err := database.CreateIfNotExist(ctx, conf); err != nil {
			return nil, errors.Wrap(err, "creating database")
		}
		db, err := database.Open(ctx, conf)
		if err != nil {
			return nil, err
		}
		return &Handle{
			Store: database.NewStore(db),
			DB:    db,
			close: func(context.Context) error { return db.Close() },
		}, nil
	}
	return nil, errors.Wrapf(errUnknownEngine, "%q", conf.Store.Engine)
}
