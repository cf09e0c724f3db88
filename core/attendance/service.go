package attendance

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/trezcool/classrecord/core"
)

var (
	// errors
	errNameRequired    = errors.New("student name is required")
	errPeriodRequired  = errors.New("period label is required")
	errTotalsRequired  = errors.New("one of total_absences or total_days_present is required")
	errNegativeTotal   = errors.New("must not be negative")
	errConfirmRequired = errors.New("confirmation is required")
)

type Outcome int

const (
	// Recorded: no status was set, the requested one was recorded.
	Recorded Outcome = iota + 1
	// AlreadySet: the requested status was already the current one; nothing was written.
	AlreadySet
	// ConfirmationRequired: another status is set; nothing was written until the call is repeated with confirmation.
	ConfirmationRequired
	// Changed: the previous status was replaced after confirmation.
	Changed
)

var outcomeNames = map[Outcome]string{
	Recorded:             "recorded",
	AlreadySet:           "already_set",
	ConfirmationRequired: "requires_confirmation",
	Changed:              "changed",
}

func (o Outcome) String() string { return outcomeNames[o] }

func (o Outcome) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

type SetStatusResult struct {
	Outcome  Outcome `json:"outcome"`
	Student  string  `json:"student"`
	Status   Status  `json:"status"`
	Previous Status  `json:"previous,omitempty"`
	Vector   Vector  `json:"attendance"`
}

// BulkReport describes a multi-student write (finalize, reset).
// Failed writes are logged and listed here; the others are kept.
type BulkReport struct {
	Period    string   `json:"period,omitempty"`
	Students  int      `json:"students"`
	Succeeded int      `json:"succeeded"`
	Failed    []string `json:"failed,omitempty"`
}

// ClassTotalsUpdate sets either or both class totals.
type ClassTotalsUpdate struct {
	TotalAbsences    *int `json:"total_absences"`
	TotalDaysPresent *int `json:"total_days_present"`
}

type Service struct {
	repo    Repository
	logger  core.Logger
	workers int
}

// NewService returns the attendance Service. workers bounds the concurrent student writes of bulk operations.
func NewService(repo Repository, logger core.Logger, workers int) *Service {
	if workers < 1 {
		workers = 1
	}
	return &Service{repo: repo, logger: logger, workers: workers}
}

// SetStatus records the status of the student named `studentName` in the session's class.
// Replacing an already set status requires confirm; without it the result asks for confirmation
// and nothing is written.
func (svc *Service) SetStatus(ctx context.Context, sess core.Session, studentName string, status Status, confirm bool) (SetStatusResult, error) {
	if !status.Valid() {
		return SetStatusResult{}, core.NewValidationError(ErrInvalidStatus, core.FieldError{Field: "status", Error: ErrInvalidStatus.Error()})
	}
	name := core.CleanString(studentName)
	if name == "" {
		return SetStatusResult{}, core.NewValidationError(errNameRequired, core.FieldError{Field: "name", Error: errNameRequired.Error()})
	}

	cls, err := svc.repo.FindClass(ctx, sess)
	if err != nil {
		return SetStatusResult{}, err
	}
	st, err := svc.repo.FindStudentByName(ctx, cls, name)
	if err != nil {
		return SetStatusResult{}, err
	}

	res := SetStatusResult{Student: st.Name, Status: status, Vector: st.Attendance}
	active, isSet := st.Attendance.Active()
	if isSet {
		res.Previous = active
		if active == status {
			res.Outcome = AlreadySet
			return res, nil
		}
		if !confirm {
			res.Outcome = ConfirmationRequired
			return res, nil
		}
	}

	vec := st.Attendance.With(status)
	if err = svc.repo.UpdateStudent(ctx, cls, st.ID, core.Data{FieldAttendance: vec.Values()}); err != nil {
		return SetStatusResult{}, errors.Wrap(err, "saving attendance")
	}

	res.Vector = vec
	if isSet {
		res.Outcome = Changed
	} else {
		res.Outcome = Recorded
	}
	return res, nil
}

// FinalizePeriod archives every student's live vector under periodKey (the class' period label when empty),
// replacing any archive already stored under that key, then resets the live vectors.
// Students are written independently: failures are logged and reported, never rolled back nor returned.
func (svc *Service) FinalizePeriod(ctx context.Context, sess core.Session, periodKey string) (BulkReport, error) {
	cls, err := svc.repo.FindClass(ctx, sess)
	if err != nil {
		return BulkReport{}, err
	}
	period := core.CleanString(periodKey)
	if period == "" {
		period = cls.Period
	}
	if period == "" {
		return BulkReport{}, core.NewValidationError(errPeriodRequired, core.FieldError{Field: "period", Error: errPeriodRequired.Error()})
	}

	students, err := svc.repo.ListStudents(ctx, cls)
	if err != nil {
		return BulkReport{}, errors.Wrap(err, "listing students")
	}

	report := svc.bulkUpdate(ctx, cls, students, "finalizing period "+period, func(st Student) core.Data {
		final := make(map[string]interface{}, len(st.FinalAttendance)+1)
		for key, vec := range st.FinalAttendance {
			final[key] = vec.Values()
		}
		final[period] = st.Attendance.Values()
		return core.Data{
			FieldFinalAttendance: final,
			FieldAttendance:      Vector{}.Values(),
		}
	})
	report.Period = period
	return report, nil
}

// ResetStatuses clears every student's live vector without archiving it.
func (svc *Service) ResetStatuses(ctx context.Context, sess core.Session) (BulkReport, error) {
	cls, err := svc.repo.FindClass(ctx, sess)
	if err != nil {
		return BulkReport{}, err
	}
	students, err := svc.repo.ListStudents(ctx, cls)
	if err != nil {
		return BulkReport{}, errors.Wrap(err, "listing students")
	}
	return svc.bulkUpdate(ctx, cls, students, "resetting statuses", func(Student) core.Data {
		return core.Data{FieldAttendance: Vector{}.Values()}
	}), nil
}

func (svc *Service) bulkUpdate(ctx context.Context, cls Class, students []Student, op string, fields func(Student) core.Data) BulkReport {
	report := BulkReport{Students: len(students)}
	if len(students) == 0 {
		return report
	}

	var (
		mu       sync.Mutex
		failures []core.BulkFailure
		g        errgroup.Group
	)
	g.SetLimit(svc.workers)

	for _, st := range students {
		st := st
		g.Go(func() error {
			if err := svc.repo.UpdateStudent(ctx, cls, st.ID, fields(st)); err != nil {
				svc.logger.Warn(fmt.Sprintf("%s: updating student %q (%s): %v", op, st.Name, st.ID, err), err)
				mu.Lock()
				failures = append(failures, core.BulkFailure{ID: st.Name, Err: err})
				mu.Unlock()
			}
			return nil // failures do not stop the other writes
		})
	}
	_ = g.Wait()

	report.Succeeded = len(students) - len(failures)
	if len(failures) > 0 {
		sort.Slice(failures, func(i, j int) bool { return failures[i].ID < failures[j].ID })
		bulkErr := &core.BulkError{Op: op, Total: len(students), Failures: failures}
		svc.logger.Error(bulkErr.Error(), bulkErr, map[string]interface{}{"class": cls.ClassCode})
		for _, f := range failures {
			report.Failed = append(report.Failed, f.ID)
		}
	}
	return report
}

// SetPeriodLabel overwrites the label of the class' open period.
func (svc *Service) SetPeriodLabel(ctx context.Context, sess core.Session, label string) error {
	label = core.CleanString(label)
	if label == "" {
		return core.NewValidationError(errPeriodRequired, core.FieldError{Field: "period", Error: errPeriodRequired.Error()})
	}
	cls, err := svc.repo.FindClass(ctx, sess)
	if err != nil {
		return err
	}
	return svc.repo.UpdateClass(ctx, cls, core.Data{FieldPeriod: label})
}

// SetClassTotals overwrites the instructor-entered class totals.
func (svc *Service) SetClassTotals(ctx context.Context, sess core.Session, upd ClassTotalsUpdate) (ClassTotals, error) {
	if upd.TotalAbsences == nil && upd.TotalDaysPresent == nil {
		return ClassTotals{}, core.NewValidationError(errTotalsRequired)
	}
	var fldErrs []core.FieldError
	if upd.TotalAbsences != nil && *upd.TotalAbsences < 0 {
		fldErrs = append(fldErrs, core.FieldError{Field: "total_absences", Error: errNegativeTotal.Error()})
	}
	if upd.TotalDaysPresent != nil && *upd.TotalDaysPresent < 0 {
		fldErrs = append(fldErrs, core.FieldError{Field: "total_days_present", Error: errNegativeTotal.Error()})
	}
	if fldErrs != nil {
		return ClassTotals{}, core.NewValidationError(nil, fldErrs...)
	}

	cls, err := svc.repo.FindClass(ctx, sess)
	if err != nil {
		return ClassTotals{}, err
	}

	totals := cls.Totals
	fields := make(core.Data, 2)
	if upd.TotalAbsences != nil {
		totals.TotalAbsences = *upd.TotalAbsences
		fields[FieldTotalAbsences] = totals.TotalAbsences
	}
	if upd.TotalDaysPresent != nil {
		totals.TotalDaysPresent = *upd.TotalDaysPresent
		fields[FieldTotalDaysPresent] = totals.TotalDaysPresent
	}
	if err = svc.repo.UpdateClass(ctx, cls, fields); err != nil {
		return ClassTotals{}, err
	}
	return totals, nil
}

// GetClass returns the session's class.
func (svc *Service) GetClass(ctx context.Context, sess core.Session) (Class, error) {
	return svc.repo.FindClass(ctx, sess)
}

// RequireConfirmation returns a ValidationError unless confirm is set.
// Irreversible bulk operations are only run once the caller confirmed them.
func RequireConfirmation(confirm bool) error {
	if !confirm {
		return core.NewValidationError(errConfirmRequired, core.FieldError{Field: "confirm", Error: errConfirmRequired.Error()})
	}
	return nil
}
