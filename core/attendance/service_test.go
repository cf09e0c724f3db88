package attendance_test

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/classrecord/core"
	"github.com/trezcool/classrecord/core/attendance"
	"github.com/trezcool/classrecord/storage/inmem"
	testutil "github.com/trezcool/classrecord/tests"
)

const teacherEmail = "t@school.edu"

// failingStore fails the updates of the documents listed in failIDs.
type failingStore struct {
	*inmem.Store
	failIDs map[string]bool
}

func (s *failingStore) Update(ctx context.Context, coll, id string, fields core.Data) error {
	if s.failIDs[id] {
		return core.NewTransportError("update", errors.New("unavailable"))
	}
	return s.Store.Update(ctx, coll, id, fields)
}

type fixture struct {
	store  *failingStore
	repo   attendance.Repository
	svc    *attendance.Service
	logger *testutil.Logger
	sess   core.Session
}

func setup() fixture {
	store := &failingStore{Store: inmem.Open(), failIDs: map[string]bool{}}
	repo := attendance.NewRepository(store, time.Second)
	logger := new(testutil.Logger)
	return fixture{
		store:  store,
		repo:   repo,
		svc:    attendance.NewService(repo, logger, 4),
		logger: logger,
		sess:   core.NewSession(teacherEmail, "CS101"),
	}
}

func (f fixture) student(t *testing.T, cls attendance.Class, id string) attendance.Student {
	st, err := f.repo.GetStudent(context.Background(), cls, id)
	require.NoError(t, err)
	return st
}

func TestService_classSession(t *testing.T) {
	f := setup()
	ctx := context.Background()
	cls := testutil.CreateClass(t, f.repo, "CS101", teacherEmail, "P1")
	alice := testutil.CreateStudent(t, f.repo, cls, "Alice")
	bob := testutil.CreateStudent(t, f.repo, cls, "Bob")

	res, err := f.svc.SetStatus(ctx, f.sess, "Alice", attendance.StatusPresent, false)
	require.NoError(t, err)
	assert.Equal(t, attendance.Recorded, res.Outcome)
	assert.Equal(t, attendance.Vector{1, 0, 0, 0}, f.student(t, cls, alice.ID).Attendance)

	res, err = f.svc.SetStatus(ctx, f.sess, "Alice", attendance.StatusAbsent, false)
	require.NoError(t, err)
	assert.Equal(t, attendance.ConfirmationRequired, res.Outcome)
	assert.Equal(t, attendance.StatusPresent, res.Previous)
	assert.Equal(t, attendance.Vector{1, 0, 0, 0}, f.student(t, cls, alice.ID).Attendance, "declined change must not be written")

	res, err = f.svc.SetStatus(ctx, f.sess, "Alice", attendance.StatusAbsent, true)
	require.NoError(t, err)
	assert.Equal(t, attendance.Changed, res.Outcome)
	assert.Equal(t, attendance.Vector{0, 1, 0, 0}, res.Vector)
	assert.Equal(t, attendance.Vector{0, 1, 0, 0}, f.student(t, cls, alice.ID).Attendance)

	res, err = f.svc.SetStatus(ctx, f.sess, "Bob", attendance.StatusLate, false)
	require.NoError(t, err)
	assert.Equal(t, attendance.Recorded, res.Outcome)
	assert.Equal(t, attendance.Vector{0, 0, 0, 1}, f.student(t, cls, bob.ID).Attendance)

	agg, err := f.svc.AggregateCurrentPeriod(ctx, f.sess)
	require.NoError(t, err)
	assert.Equal(t, "P1", agg.Period)
	assert.Equal(t, teacherEmail, agg.Instructor)
	assert.Equal(t, []attendance.Row{
		{Name: "Alice", Attendance: attendance.Vector{0, 1, 0, 0}},
		{Name: "Bob", Attendance: attendance.Vector{0, 0, 0, 1}},
	}, agg.Rows)
	assert.Equal(t, 0, agg.TotalPresent)
	assert.Equal(t, 1, agg.TotalAbsent)

	report, err := f.svc.FinalizePeriod(ctx, f.sess, "June 1")
	require.NoError(t, err)
	assert.Equal(t, attendance.BulkReport{Period: "June 1", Students: 2, Succeeded: 2}, report)

	for id, want := range map[string]attendance.Vector{alice.ID: {0, 1, 0, 0}, bob.ID: {0, 0, 0, 1}} {
		st := f.student(t, cls, id)
		assert.True(t, st.Attendance.IsUnset(), "%s: live vector not reset", st.Name)
		assert.Equal(t, map[string]attendance.ArchivedVector{"June 1": {Vector: want}}, st.FinalAttendance)
	}
	assert.Empty(t, f.logger.Entries("error"))
}

func TestService_SetStatus_errors(t *testing.T) {
	f := setup()
	ctx := context.Background()
	cls := testutil.CreateClass(t, f.repo, "CS101", teacherEmail, "P1")
	testutil.CreateStudent(t, f.repo, cls, "Alice")

	tests := []struct {
		name        string
		sess        core.Session
		student     string
		status      attendance.Status
		wantErr     error
		wantInvalid bool
	}{
		{name: "invalid status", sess: f.sess, student: "Alice", status: "excused", wantInvalid: true},
		{name: "blank name", sess: f.sess, student: "  ", status: attendance.StatusLate, wantInvalid: true},
		{name: "no class selected", sess: core.NewSession(teacherEmail, ""), student: "Alice", status: attendance.StatusLate, wantInvalid: true},
		{name: "unknown student", sess: f.sess, student: "Zed", status: attendance.StatusPresent, wantErr: attendance.ErrStudentNotFound},
		{name: "name is case-sensitive", sess: f.sess, student: "alice", status: attendance.StatusPresent, wantErr: attendance.ErrStudentNotFound},
		{name: "unknown class", sess: f.sess.WithClass("CS999"), student: "Alice", status: attendance.StatusPresent, wantErr: attendance.ErrClassNotFound},
		{name: "other teacher's class", sess: core.NewSession("other@school.edu", "CS101"), student: "Alice", status: attendance.StatusPresent, wantErr: attendance.ErrClassNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.SetStatus(ctx, tt.sess, tt.student, tt.status, true)
			require.Error(t, err)
			if tt.wantInvalid {
				assert.True(t, core.IsValidation(err), "got %v", err)
			} else {
				assert.Equal(t, tt.wantErr, errors.Cause(err))
			}
		})
	}

	// nothing was created nor written
	students, err := f.repo.ListStudents(ctx, cls)
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.True(t, students[0].Attendance.IsUnset())
}

func TestService_SetStatus_alreadySet(t *testing.T) {
	f := setup()
	ctx := context.Background()
	cls := testutil.CreateClass(t, f.repo, "CS101", teacherEmail, "P1")
	st := testutil.CreateStudent(t, f.repo, cls, "Alice")

	for _, confirm := range []bool{false, true} {
		_, err := f.svc.SetStatus(ctx, f.sess, "Alice", attendance.StatusExcuse, confirm)
		require.NoError(t, err)
	}
	res, err := f.svc.SetStatus(ctx, f.sess, "Alice", attendance.StatusExcuse, false)
	require.NoError(t, err)
	assert.Equal(t, attendance.AlreadySet, res.Outcome)
	assert.Equal(t, attendance.Vector{0, 0, 1, 0}, f.student(t, cls, st.ID).Attendance)
}

func TestService_SetStatus_staysOneHot(t *testing.T) {
	f := setup()
	ctx := context.Background()
	cls := testutil.CreateClass(t, f.repo, "CS101", teacherEmail, "P1")
	st := testutil.CreateStudent(t, f.repo, cls, "Alice")

	rnd := rand.New(rand.NewSource(42))
	var want attendance.Vector
	for i := 0; i < 200; i++ {
		status := attendance.Statuses[rnd.Intn(len(attendance.Statuses))]
		confirm := rnd.Intn(2) == 0

		if active, ok := want.Active(); !ok || (active != status && confirm) {
			want = attendance.Vector{}.With(status)
		}

		_, err := f.svc.SetStatus(ctx, f.sess, "Alice", status, confirm)
		require.NoError(t, err)

		got := f.student(t, cls, st.ID).Attendance
		require.Equal(t, want, got, "step %d: %s (confirm: %v)", i, status, confirm)

		var sum int
		for _, n := range got {
			sum += n
		}
		require.Equal(t, 1, sum, "step %d: %v is not one-hot", i, got)
	}
}

func TestService_FinalizePeriod(t *testing.T) {
	ctx := context.Background()

	t.Run("re-finalizing overwrites the same key", func(t *testing.T) {
		f := setup()
		cls := testutil.CreateClass(t, f.repo, "CS101", teacherEmail, "P1")
		st := testutil.CreateStudent(t, f.repo, cls, "Alice", attendance.Vector{1, 0, 0, 0})

		_, err := f.svc.FinalizePeriod(ctx, f.sess, "P2")
		require.NoError(t, err)
		_, err = f.svc.FinalizePeriod(ctx, f.sess, "P1")
		require.NoError(t, err)

		_, err = f.svc.SetStatus(ctx, f.sess, "Alice", attendance.StatusAbsent, false)
		require.NoError(t, err)
		_, err = f.svc.FinalizePeriod(ctx, f.sess, "P1")
		require.NoError(t, err)

		assert.Equal(t, map[string]attendance.ArchivedVector{
			"P1": {Vector: attendance.Vector{0, 1, 0, 0}},
			"P2": {Vector: attendance.Vector{1, 0, 0, 0}},
		}, f.student(t, cls, st.ID).FinalAttendance)
	})

	t.Run("no students", func(t *testing.T) {
		f := setup()
		testutil.CreateClass(t, f.repo, "CS101", teacherEmail, "P1")

		report, err := f.svc.FinalizePeriod(ctx, f.sess, "P1")
		require.NoError(t, err)
		assert.Equal(t, attendance.BulkReport{Period: "P1"}, report)
	})

	t.Run("defaults to the class period", func(t *testing.T) {
		f := setup()
		cls := testutil.CreateClass(t, f.repo, "CS101", teacherEmail, "Prelims")
		st := testutil.CreateStudent(t, f.repo, cls, "Alice", attendance.Vector{0, 0, 0, 1})

		report, err := f.svc.FinalizePeriod(ctx, f.sess, " ")
		require.NoError(t, err)
		assert.Equal(t, "Prelims", report.Period)
		assert.Contains(t, f.student(t, cls, st.ID).FinalAttendance, "Prelims")
	})

	t.Run("no period at all", func(t *testing.T) {
		f := setup()
		testutil.CreateClass(t, f.repo, "CS101", teacherEmail, "")

		_, err := f.svc.FinalizePeriod(ctx, f.sess, "")
		assert.True(t, core.IsValidation(err), "got %v", err)
	})

	t.Run("unknown class", func(t *testing.T) {
		f := setup()
		_, err := f.svc.FinalizePeriod(ctx, f.sess, "P1")
		assert.Equal(t, attendance.ErrClassNotFound, errors.Cause(err))
	})

	t.Run("partial failure", func(t *testing.T) {
		f := setup()
		cls := testutil.CreateClass(t, f.repo, "CS101", teacherEmail, "P1")
		alice := testutil.CreateStudent(t, f.repo, cls, "Alice", attendance.Vector{1, 0, 0, 0})
		bob := testutil.CreateStudent(t, f.repo, cls, "Bob", attendance.Vector{0, 1, 0, 0})
		carl := testutil.CreateStudent(t, f.repo, cls, "Carl", attendance.Vector{0, 0, 1, 0})
		f.store.failIDs[bob.ID] = true

		report, err := f.svc.FinalizePeriod(ctx, f.sess, "P1")
		require.NoError(t, err)
		assert.Equal(t, 3, report.Students)
		assert.Equal(t, 2, report.Succeeded)
		assert.Equal(t, []string{"Bob"}, report.Failed)

		for _, st := range []attendance.Student{alice, carl} {
			got := f.student(t, cls, st.ID)
			assert.True(t, got.Attendance.IsUnset())
			assert.Equal(t, st.Attendance, got.FinalAttendance["P1"].Vector)
		}
		got := f.student(t, cls, bob.ID)
		assert.Equal(t, attendance.Vector{0, 1, 0, 0}, got.Attendance)
		assert.Empty(t, got.FinalAttendance)

		assert.Len(t, f.logger.Entries("warning"), 1)
		errs := f.logger.Entries("error")
		require.Len(t, errs, 1)
		var bulkErr *core.BulkError
		for _, arg := range errs[0].Args {
			if e, ok := arg.(*core.BulkError); ok {
				bulkErr = e
			}
		}
		require.NotNil(t, bulkErr)
		assert.Equal(t, 3, bulkErr.Total)
		require.Len(t, bulkErr.Failures, 1)
		assert.True(t, core.IsTransport(bulkErr.Failures[0].Err))
	})
}

func TestService_ResetStatuses(t *testing.T) {
	f := setup()
	ctx := context.Background()
	cls := testutil.CreateClass(t, f.repo, "CS101", teacherEmail, "P1")
	st := testutil.CreateStudent(t, f.repo, cls, "Alice", attendance.Vector{0, 0, 0, 1})
	_, err := f.svc.FinalizePeriod(ctx, f.sess, "P0")
	require.NoError(t, err)
	_, err = f.svc.SetStatus(ctx, f.sess, "Alice", attendance.StatusPresent, false)
	require.NoError(t, err)

	report, err := f.svc.ResetStatuses(ctx, f.sess)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Succeeded)

	got := f.student(t, cls, st.ID)
	assert.True(t, got.Attendance.IsUnset())
	assert.Equal(t, map[string]attendance.ArchivedVector{"P0": {Vector: attendance.Vector{0, 0, 0, 1}}}, got.FinalAttendance)
}

func TestService_SetPeriodLabel(t *testing.T) {
	f := setup()
	ctx := context.Background()
	testutil.CreateClass(t, f.repo, "CS101", teacherEmail, "P1")

	require.NoError(t, f.svc.SetPeriodLabel(ctx, f.sess, " Midterms "))
	cls, err := f.svc.GetClass(ctx, f.sess)
	require.NoError(t, err)
	assert.Equal(t, "Midterms", cls.Period)

	assert.True(t, core.IsValidation(f.svc.SetPeriodLabel(ctx, f.sess, "")))
	assert.Equal(t, attendance.ErrClassNotFound, errors.Cause(f.svc.SetPeriodLabel(ctx, f.sess.WithClass("X"), "P2")))
}

func TestService_SetClassTotals(t *testing.T) {
	f := setup()
	ctx := context.Background()
	cls := testutil.CreateClass(t, f.repo, "CS101", teacherEmail, "P1")
	st := testutil.CreateStudent(t, f.repo, cls, "Alice", attendance.Vector{0, 1, 0, 0})

	intPtr := func(i int) *int { return &i }

	totals, err := f.svc.SetClassTotals(ctx, f.sess, attendance.ClassTotalsUpdate{TotalAbsences: intPtr(3)})
	require.NoError(t, err)
	assert.Equal(t, attendance.ClassTotals{TotalAbsences: 3}, totals)

	totals, err = f.svc.SetClassTotals(ctx, f.sess, attendance.ClassTotalsUpdate{TotalDaysPresent: intPtr(12)})
	require.NoError(t, err)
	assert.Equal(t, attendance.ClassTotals{TotalAbsences: 3, TotalDaysPresent: 12}, totals)

	got, err := f.svc.GetClass(ctx, f.sess)
	require.NoError(t, err)
	assert.Equal(t, totals, got.Totals)
	// totals never touch student vectors
	assert.Equal(t, attendance.Vector{0, 1, 0, 0}, f.student(t, cls, st.ID).Attendance)

	_, err = f.svc.SetClassTotals(ctx, f.sess, attendance.ClassTotalsUpdate{})
	assert.True(t, core.IsValidation(err))
	_, err = f.svc.SetClassTotals(ctx, f.sess, attendance.ClassTotalsUpdate{TotalAbsences: intPtr(-1)})
	assert.True(t, core.IsValidation(err))
}

func TestRequireConfirmation(t *testing.T) {
	assert.NoError(t, attendance.RequireConfirmation(true))
	assert.True(t, core.IsValidation(attendance.RequireConfirmation(false)))
}
