package attendance

import (
	"context"
	"sort"

	"github.com/pkg/errors"

	"github.com/trezcool/classrecord/core"
)

type Row struct {
	Name       string `json:"name"`
	Attendance Vector `json:"attendance"`
}

type CurrentAggregate struct {
	ClassCode    string `json:"class_code"`
	Period       string `json:"period"`
	Instructor   string `json:"instructor"`
	Rows         []Row  `json:"rows"`
	TotalPresent int    `json:"total_present"`
	TotalAbsent  int    `json:"total_absent"`
}

type PeriodAggregate struct {
	Period       string `json:"period"`
	Rows         []Row  `json:"rows"`
	TotalPresent int    `json:"total_present"`
	TotalAbsent  int    `json:"total_absent"`
}

type FinalizedAggregate struct {
	ClassCode  string            `json:"class_code"`
	Instructor string            `json:"instructor"`
	Periods    []PeriodAggregate `json:"periods"`
}

// AggregateCurrentPeriod sums the live vectors of the session's class.
// An unknown class yields an empty aggregate.
func (svc *Service) AggregateCurrentPeriod(ctx context.Context, sess core.Session) (CurrentAggregate, error) {
	agg := CurrentAggregate{ClassCode: sess.ClassCode, Instructor: sess.Email, Rows: []Row{}}

	cls, students, err := svc.loadClass(ctx, sess)
	if err != nil || cls.ID == "" {
		return agg, err
	}
	agg.Period = cls.Period
	agg.Instructor = cls.EmployeeID
	agg.Rows, agg.TotalPresent, agg.TotalAbsent = SummarizeCurrent(students)
	return agg, nil
}

// AggregateFinalizedByPeriod groups the archived vectors of the session's class by period.
// An unknown class yields an empty aggregate.
func (svc *Service) AggregateFinalizedByPeriod(ctx context.Context, sess core.Session) (FinalizedAggregate, error) {
	agg := FinalizedAggregate{ClassCode: sess.ClassCode, Instructor: sess.Email, Periods: []PeriodAggregate{}}

	cls, students, err := svc.loadClass(ctx, sess)
	if err != nil || cls.ID == "" {
		return agg, err
	}
	agg.Instructor = cls.EmployeeID
	agg.Periods = SummarizeFinalized(students)
	return agg, nil
}

func (svc *Service) loadClass(ctx context.Context, sess core.Session) (Class, []Student, error) {
	cls, err := svc.repo.FindClass(ctx, sess)
	if err != nil {
		if errors.Cause(err) == ErrClassNotFound {
			return Class{}, nil, nil
		}
		return Class{}, nil, err
	}
	students, err := svc.repo.ListStudents(ctx, cls)
	if err != nil {
		return Class{}, nil, errors.Wrap(err, "listing students")
	}
	return cls, students, nil
}

// SummarizeCurrent returns one row per student, sorted by name (case-sensitive),
// with the sums of present and absent counts.
func SummarizeCurrent(students []Student) (rows []Row, totalPresent, totalAbsent int) {
	rows = make([]Row, 0, len(students))
	for _, st := range students {
		rows = append(rows, Row{Name: st.Name, Attendance: st.Attendance})
		totalPresent += st.Attendance.Present()
		totalAbsent += st.Attendance.Absent()
	}
	sortRows(rows)
	return rows, totalPresent, totalAbsent
}

// SummarizeFinalized groups every archived vector by period key, across students.
// Periods are sorted by key and rows by name.
func SummarizeFinalized(students []Student) []PeriodAggregate {
	byPeriod := make(map[string]*PeriodAggregate)
	for _, st := range students {
		for period, vec := range st.FinalAttendance {
			pa, ok := byPeriod[period]
			if !ok {
				pa = &PeriodAggregate{Period: period}
				byPeriod[period] = pa
			}
			pa.Rows = append(pa.Rows, Row{Name: st.Name, Attendance: vec.Vector})
			pa.TotalPresent += vec.Present()
			pa.TotalAbsent += vec.Absent()
		}
	}

	periods := make([]PeriodAggregate, 0, len(byPeriod))
	for _, pa := range byPeriod {
		sortRows(pa.Rows)
		periods = append(periods, *pa)
	}
	sort.Slice(periods, func(i, j int) bool { return periods[i].Period < periods[j].Period })
	return periods
}

func sortRows(rows []Row) {
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Name < rows[j].Name })
}
