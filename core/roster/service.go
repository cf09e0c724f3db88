package roster

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/classrecord/core"
	"github.com/trezcool/classrecord/core/attendance"
)

var (
	// errors
	ErrClassExists       = errors.New("you already have a class with this code")
	errClassCodeRequired = errors.New("class code is required")
	errNameRequired      = errors.New("student name is required")
	errGradeRequired     = errors.New("grade is required")
)

// ClassSummary is a class as listed on the teacher's dashboard.
type ClassSummary struct {
	attendance.Class
	// GradeRatio is "<graded students>/<students>"
	GradeRatio string `json:"grade_ratio"`
}

type NewClass struct {
	ClassCode   string `json:"class_code" validate:"required,notblank,alphanum_"`
	SubjectName string `json:"subject_name"`
	Period      string `json:"period"`
}

type NewStudent struct {
	Name  string `json:"name" validate:"required,notblank"`
	Grade string `json:"grade" validate:"required,notblank"`
}

type UpdateStudent struct {
	Name  string `json:"name" validate:"required,notblank"`
	Grade string `json:"grade" validate:"required,notblank"`
}

// Service manages the classes of a teacher and their students.
type Service struct {
	repo   attendance.Repository
	logger core.Logger
}

func NewService(repo attendance.Repository, logger core.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// ListClasses returns the classes of the teacher, sorted by class code.
// A class whose students cannot be read is listed with a "0/0" grade ratio.
func (svc *Service) ListClasses(ctx context.Context, email string) ([]ClassSummary, error) {
	classes, err := svc.repo.QueryClasses(ctx, core.CleanString(email, true /* lower */))
	if err != nil {
		return nil, err
	}
	sort.SliceStable(classes, func(i, j int) bool { return classes[i].ClassCode < classes[j].ClassCode })

	summaries := make([]ClassSummary, 0, len(classes))
	for _, cls := range classes {
		summaries = append(summaries, ClassSummary{Class: cls, GradeRatio: svc.gradeRatio(ctx, cls)})
	}
	return summaries, nil
}

func (svc *Service) gradeRatio(ctx context.Context, cls attendance.Class) string {
	students, err := svc.repo.ListStudents(ctx, cls)
	if err != nil {
		svc.logger.Warn(fmt.Sprintf("grade ratio of %s: %v", cls.ClassCode, err), err)
		return "0/0"
	}
	var graded int
	for _, st := range students {
		if strings.TrimSpace(st.Grade) != "" {
			graded++
		}
	}
	return fmt.Sprintf("%d/%d", graded, len(students))
}

// CreateClass adds a class owned by the teacher. Class codes are unique per teacher.
func (svc *Service) CreateClass(ctx context.Context, email string, nc NewClass) (attendance.Class, error) {
	email = core.CleanString(email, true /* lower */)
	code := core.CleanString(nc.ClassCode)
	if code == "" {
		return attendance.Class{}, core.NewValidationError(errClassCodeRequired, core.FieldError{Field: "class_code", Error: errClassCodeRequired.Error()})
	}

	_, err := svc.repo.FindClass(ctx, core.NewSession(email, code))
	switch errors.Cause(err) {
	case nil:
		return attendance.Class{}, core.NewValidationError(ErrClassExists, core.FieldError{Field: "class_code", Error: ErrClassExists.Error()})
	case attendance.ErrClassNotFound:
	default:
		return attendance.Class{}, err
	}

	return svc.repo.CreateClass(ctx, attendance.Class{
		ClassCode:   code,
		SubjectName: core.CleanString(nc.SubjectName),
		EmployeeID:  email,
		Period:      core.CleanString(nc.Period),
	})
}

// ListStudents returns the students of the session's class, sorted by name regardless of case.
func (svc *Service) ListStudents(ctx context.Context, sess core.Session) ([]attendance.Student, error) {
	cls, err := svc.repo.FindClass(ctx, sess)
	if err != nil {
		return nil, err
	}
	students, err := svc.repo.ListStudents(ctx, cls)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(students, func(i, j int) bool {
		return strings.ToLower(students[i].Name) < strings.ToLower(students[j].Name)
	})
	return students, nil
}

// AddStudent enrols a student in the session's class with an unset attendance.
func (svc *Service) AddStudent(ctx context.Context, sess core.Session, ns NewStudent) (attendance.Student, error) {
	name, grade, err := cleanStudent(ns.Name, ns.Grade)
	if err != nil {
		return attendance.Student{}, err
	}
	cls, err := svc.repo.FindClass(ctx, sess)
	if err != nil {
		return attendance.Student{}, err
	}
	return svc.repo.AddStudent(ctx, cls, attendance.Student{Name: name, Grade: grade})
}

// UpdateStudent renames or regrades a student of the session's class.
func (svc *Service) UpdateStudent(ctx context.Context, sess core.Session, id string, us UpdateStudent) (attendance.Student, error) {
	name, grade, err := cleanStudent(us.Name, us.Grade)
	if err != nil {
		return attendance.Student{}, err
	}
	cls, err := svc.repo.FindClass(ctx, sess)
	if err != nil {
		return attendance.Student{}, err
	}
	st, err := svc.repo.GetStudent(ctx, cls, id)
	if err != nil {
		return attendance.Student{}, err
	}

	st.Name, st.Grade, st.ClassCode = name, grade, cls.ClassCode
	err = svc.repo.UpdateStudent(ctx, cls, id, core.Data{
		attendance.FieldName:      st.Name,
		attendance.FieldGrade:     st.Grade,
		attendance.FieldClassCode: st.ClassCode,
	})
	if err != nil {
		return attendance.Student{}, err
	}
	return st, nil
}

func cleanStudent(name, grade string) (string, string, error) {
	name, grade = core.CleanString(name), core.CleanString(grade)
	var fldErrs []core.FieldError
	if name == "" {
		fldErrs = append(fldErrs, core.FieldError{Field: "name", Error: errNameRequired.Error()})
	}
	if grade == "" {
		fldErrs = append(fldErrs, core.FieldError{Field: "grade", Error: errGradeRequired.Error()})
	}
	if fldErrs != nil {
		return "", "", core.NewValidationError(nil, fldErrs...)
	}
	return name, grade, nil
}
