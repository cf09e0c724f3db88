package schedule

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/classrecord/core"
)

const (
	Collection = "schedule"

	clockLayout = "15:04"
)

var (
	// Days maps day codes to full day names.
	Days = map[string]string{
		"M":   "Monday",
		"T":   "Tuesday",
		"W":   "Wednesday",
		"TH":  "Thursday",
		"F":   "Friday",
		"SAT": "Saturday",
		"SUN": "Sunday",
	}
	weekOrder = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

	// errors
	errInvalidTime = errors.New("time must be formatted as HH:MM")
	errEndBefore   = errors.New("end time must be after start time")
	errInvalidDay  = errors.New("day must be one or more of M, T, W, TH, F, SAT, SUN separated by /")
)

type Entry struct {
	ID        string `json:"id" doc:"-"`
	ClassCode string `json:"class_code" doc:"classCode"`
	Day       string `json:"day" doc:"day"` // e.g. "M/W/F"
	StartTime string `json:"start_time" doc:"startTime"`
	EndTime   string `json:"end_time" doc:"endTime"`
}

type NewEntry struct {
	ClassCode string `json:"class_code" validate:"required,notblank"`
	Day       string `json:"day" validate:"required"`
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required"`
}

// Day is the schedule of one day of the week.
type Day struct {
	Name    string  `json:"name"`
	Entries []Entry `json:"entries"`
}

// SplitDays expands a day code such as "M/W/F" into full day names.
// Unknown codes are kept verbatim.
func SplitDays(code string) []string {
	var days []string
	for _, c := range strings.Split(code, "/") {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if name, ok := Days[strings.ToUpper(c)]; ok {
			days = append(days, name)
		} else {
			days = append(days, c)
		}
	}
	return days
}

type Service struct {
	store   core.DocumentStore
	timeout time.Duration
}

func NewService(store core.DocumentStore, timeout time.Duration) *Service {
	return &Service{store: store, timeout: timeout}
}

func (svc *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if svc.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, svc.timeout)
}

func (svc *Service) Create(ctx context.Context, ne NewEntry) (Entry, error) {
	e := Entry{
		ClassCode: core.CleanString(ne.ClassCode),
		Day:       strings.ToUpper(strings.ReplaceAll(ne.Day, " ", "")),
		StartTime: core.CleanString(ne.StartTime),
		EndTime:   core.CleanString(ne.EndTime),
	}
	if err := e.validate(); err != nil {
		return Entry{}, err
	}

	ctx, cancel := svc.withTimeout(ctx)
	defer cancel()

	id, err := svc.store.Add(ctx, Collection, core.Data{
		"classCode": e.ClassCode,
		"day":       e.Day,
		"startTime": e.StartTime,
		"endTime":   e.EndTime,
	})
	if err != nil {
		return Entry{}, errors.Wrap(err, "adding schedule entry")
	}
	e.ID = id
	return e, nil
}

func (e Entry) validate() error {
	var fldErrs []core.FieldError
	if e.ClassCode == "" {
		fldErrs = append(fldErrs, core.FieldError{Field: "class_code", Error: "class code is required"})
	}

	days := strings.Split(e.Day, "/")
	for _, d := range days {
		if _, ok := Days[d]; !ok {
			fldErrs = append(fldErrs, core.FieldError{Field: "day", Error: errInvalidDay.Error()})
			break
		}
	}

	start, startErr := time.Parse(clockLayout, e.StartTime)
	if startErr != nil {
		fldErrs = append(fldErrs, core.FieldError{Field: "start_time", Error: errInvalidTime.Error()})
	}
	end, endErr := time.Parse(clockLayout, e.EndTime)
	if endErr != nil {
		fldErrs = append(fldErrs, core.FieldError{Field: "end_time", Error: errInvalidTime.Error()})
	}
	if startErr == nil && endErr == nil && !end.After(start) {
		fldErrs = append(fldErrs, core.FieldError{Field: "end_time", Error: errEndBefore.Error()})
	}

	if fldErrs != nil {
		return core.NewValidationError(nil, fldErrs...)
	}
	return nil
}

// Week returns every day having at least one entry, Monday first, entries sorted by start time.
// Days with unknown codes follow the week days.
func (svc *Service) Week(ctx context.Context) ([]Day, error) {
	ctx, cancel := svc.withTimeout(ctx)
	defer cancel()

	entries, err := svc.list(ctx)
	if err != nil {
		return nil, err
	}
	return groupByDay(entries), nil
}

func (svc *Service) list(ctx context.Context) ([]Entry, error) {
	docs, err := svc.store.List(ctx, Collection)
	if err != nil {
		return nil, errors.Wrap(err, "listing schedule entries")
	}
	entries := make([]Entry, 0, len(docs))
	for _, doc := range docs {
		var e Entry
		if err := core.DecodeDocument(doc, &e); err != nil {
			return nil, err
		}
		e.ID = doc.ID
		entries = append(entries, e)
	}
	return entries, nil
}

func groupByDay(entries []Entry) []Day {
	byName := make(map[string]*Day)
	var extra []string
	for _, e := range entries {
		for _, name := range SplitDays(e.Day) {
			day, ok := byName[name]
			if !ok {
				day = &Day{Name: name}
				byName[name] = day
				if !isWeekDay(name) {
					extra = append(extra, name)
				}
			}
			day.Entries = append(day.Entries, e)
		}
	}
	sort.Strings(extra)

	week := make([]Day, 0, len(byName))
	for _, name := range append(append([]string{}, weekOrder...), extra...) {
		day, ok := byName[name]
		if !ok {
			continue
		}
		sort.SliceStable(day.Entries, func(i, j int) bool {
			if day.Entries[i].StartTime != day.Entries[j].StartTime {
				return day.Entries[i].StartTime < day.Entries[j].StartTime
			}
			return day.Entries[i].ClassCode < day.Entries[j].ClassCode
		})
		week = append(week, *day)
	}
	return week
}

func isWeekDay(name string) bool {
	for _, d := range weekOrder {
		if d == name {
			return true
		}
	}
	return false
}
