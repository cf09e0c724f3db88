package attendance

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/classrecord/core"
)

var (
	// errors
	ErrClassNotFound   = errors.New("class not found")
	ErrStudentNotFound = errors.New("student not found")
)

// Repository reads and writes class record documents.
type Repository interface {
	// FindClass resolves the session's class by its class code.
	// When the session has an email, only classes of that instructor match.
	FindClass(ctx context.Context, sess core.Session) (Class, error)
	QueryClasses(ctx context.Context, employeeID string) ([]Class, error)
	CreateClass(ctx context.Context, cls Class) (Class, error)
	UpdateClass(ctx context.Context, cls Class, fields core.Data) error

	ListStudents(ctx context.Context, cls Class) ([]Student, error)
	GetStudent(ctx context.Context, cls Class, id string) (Student, error)
	FindStudentByName(ctx context.Context, cls Class, name string) (Student, error)
	AddStudent(ctx context.Context, cls Class, st Student) (Student, error)
	UpdateStudent(ctx context.Context, cls Class, id string, fields core.Data) error
}

type docRepository struct {
	store   core.DocumentStore
	timeout time.Duration
}

var _ Repository = (*docRepository)(nil) // interface compliance check

// NewRepository returns a Repository over store. Each store call is bounded by timeout (0: no bound).
func NewRepository(store core.DocumentStore, timeout time.Duration) Repository {
	return &docRepository{store: store, timeout: timeout}
}

func (repo *docRepository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if repo.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, repo.timeout)
}

func (repo *docRepository) FindClass(ctx context.Context, sess core.Session) (Class, error) {
	if err := sess.RequireClass(); err != nil {
		return Class{}, err
	}
	ctx, cancel := repo.withTimeout(ctx)
	defer cancel()

	docs, err := repo.store.Query(ctx, ClassCollection, FieldClassCode, sess.ClassCode)
	if err != nil {
		return Class{}, errors.Wrap(err, "querying classes")
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })

	for _, doc := range docs {
		if sess.Email != "" && doc.Data.String(FieldEmployeeID) != sess.Email {
			continue
		}
		return decodeClass(doc)
	}
	return Class{}, ErrClassNotFound
}

func (repo *docRepository) QueryClasses(ctx context.Context, employeeID string) ([]Class, error) {
	ctx, cancel := repo.withTimeout(ctx)
	defer cancel()

	docs, err := repo.store.Query(ctx, ClassCollection, FieldEmployeeID, employeeID)
	if err != nil {
		return nil, errors.Wrap(err, "querying classes")
	}
	classes := make([]Class, 0, len(docs))
	for _, doc := range docs {
		cls, err := decodeClass(doc)
		if err != nil {
			return nil, err
		}
		classes = append(classes, cls)
	}
	return classes, nil
}

func (repo *docRepository) CreateClass(ctx context.Context, cls Class) (Class, error) {
	ctx, cancel := repo.withTimeout(ctx)
	defer cancel()

	id, err := repo.store.Add(ctx, ClassCollection, cls.data())
	if err != nil {
		return Class{}, errors.Wrap(err, "adding class")
	}
	cls.ID = id
	return cls, nil
}

func (repo *docRepository) UpdateClass(ctx context.Context, cls Class, fields core.Data) error {
	ctx, cancel := repo.withTimeout(ctx)
	defer cancel()

	if err := repo.store.Update(ctx, ClassCollection, cls.ID, fields); err != nil {
		if errors.Cause(err) == core.ErrDocumentNotFound {
			return ErrClassNotFound
		}
		return errors.Wrap(err, "updating class")
	}
	return nil
}

func (repo *docRepository) ListStudents(ctx context.Context, cls Class) ([]Student, error) {
	ctx, cancel := repo.withTimeout(ctx)
	defer cancel()

	docs, err := repo.store.Query(ctx, cls.StudentsCollection(), FieldClassCode, cls.ClassCode)
	if err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	students := make([]Student, 0, len(docs))
	for _, doc := range docs {
		st, err := decodeStudent(doc)
		if err != nil {
			return nil, err
		}
		students = append(students, st)
	}
	return students, nil
}

func (repo *docRepository) GetStudent(ctx context.Context, cls Class, id string) (Student, error) {
	ctx, cancel := repo.withTimeout(ctx)
	defer cancel()

	doc, err := repo.store.Get(ctx, cls.StudentsCollection(), id)
	if err != nil {
		if errors.Cause(err) == core.ErrDocumentNotFound {
			return Student{}, ErrStudentNotFound
		}
		return Student{}, errors.Wrap(err, "getting student")
	}
	return decodeStudent(doc)
}

func (repo *docRepository) FindStudentByName(ctx context.Context, cls Class, name string) (Student, error) {
	ctx, cancel := repo.withTimeout(ctx)
	defer cancel()

	docs, err := repo.store.Query(ctx, cls.StudentsCollection(), FieldName, name)
	if err != nil {
		return Student{}, errors.Wrap(err, "querying students by name")
	}
	if len(docs) == 0 {
		return Student{}, ErrStudentNotFound
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return decodeStudent(docs[0])
}

func (repo *docRepository) AddStudent(ctx context.Context, cls Class, st Student) (Student, error) {
	ctx, cancel := repo.withTimeout(ctx)
	defer cancel()

	st.ClassCode = cls.ClassCode
	data := st.data()
	delete(data, FieldDocumentID)
	id, err := repo.store.Add(ctx, cls.StudentsCollection(), data)
	if err != nil {
		return Student{}, errors.Wrap(err, "adding student")
	}
	// the generated id is also kept on the document
	if err = repo.store.Update(ctx, cls.StudentsCollection(), id, core.Data{FieldDocumentID: id}); err != nil {
		return Student{}, errors.Wrap(err, "setting student documentId")
	}
	st.ID = id
	return st, nil
}

func (repo *docRepository) UpdateStudent(ctx context.Context, cls Class, id string, fields core.Data) error {
	ctx, cancel := repo.withTimeout(ctx)
	defer cancel()

	if err := repo.store.Update(ctx, cls.StudentsCollection(), id, fields); err != nil {
		if errors.Cause(err) == core.ErrDocumentNotFound {
			return ErrStudentNotFound
		}
		return errors.Wrap(err, "updating student")
	}
	return nil
}
