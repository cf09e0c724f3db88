package teacher

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/classrecord/core"
)

type Repository interface {
	CreateTeacher(ctx context.Context, t Teacher) (Teacher, error)
	GetTeacherByID(ctx context.Context, id string) (Teacher, error)
	GetTeacherByEmail(ctx context.Context, email string) (Teacher, error)
	UpdateTeacher(ctx context.Context, t Teacher) (Teacher, error)
}

type docRepository struct {
	store   core.DocumentStore
	timeout time.Duration
}

var _ Repository = (*docRepository)(nil) // interface compliance check

func NewRepository(store core.DocumentStore, timeout time.Duration) Repository {
	return &docRepository{store: store, timeout: timeout}
}

func (repo *docRepository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if repo.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, repo.timeout)
}

func (repo *docRepository) CreateTeacher(ctx context.Context, t Teacher) (Teacher, error) {
	ctx, cancel := repo.withTimeout(ctx)
	defer cancel()

	id, err := repo.store.Add(ctx, Collection, t.data())
	if err != nil {
		return Teacher{}, errors.Wrap(err, "adding teacher")
	}
	t.ID = id
	return t, nil
}

func (repo *docRepository) GetTeacherByID(ctx context.Context, id string) (Teacher, error) {
	ctx, cancel := repo.withTimeout(ctx)
	defer cancel()

	doc, err := repo.store.Get(ctx, Collection, id)
	if err != nil {
		if errors.Cause(err) == core.ErrDocumentNotFound {
			return Teacher{}, ErrNotFound
		}
		return Teacher{}, errors.Wrap(err, "getting teacher")
	}
	return decodeTeacher(doc)
}

func (repo *docRepository) GetTeacherByEmail(ctx context.Context, email string) (Teacher, error) {
	ctx, cancel := repo.withTimeout(ctx)
	defer cancel()

	docs, err := repo.store.Query(ctx, Collection, "employeeId", email)
	if err != nil {
		return Teacher{}, errors.Wrap(err, "querying teachers")
	}
	if len(docs) == 0 {
		return Teacher{}, ErrNotFound
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return decodeTeacher(docs[0])
}

func (repo *docRepository) UpdateTeacher(ctx context.Context, t Teacher) (Teacher, error) {
	ctx, cancel := repo.withTimeout(ctx)
	defer cancel()

	if _, err := repo.store.Get(ctx, Collection, t.ID); err != nil {
		if errors.Cause(err) == core.ErrDocumentNotFound {
			return Teacher{}, ErrNotFound
		}
		return Teacher{}, errors.Wrap(err, "getting teacher")
	}
	if err := repo.store.Set(ctx, Collection, t.ID, t.data()); err != nil {
		return Teacher{}, errors.Wrap(err, "saving teacher")
	}
	return t, nil
}
