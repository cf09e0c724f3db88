// Package dtr keeps the daily time record of teachers: up to two time-in/time-out pairs a day.
package dtr

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/classrecord/core"
)

const (
	Collection = "dtr"

	dateLayout = "2006-01-02"
	timeLayout = "15:04:05"
)

// punch slots, also the stored field names
const (
	SlotAMIn  = "amIn"
	SlotAMOut = "amOut"
	SlotPMIn  = "pmIn"
	SlotPMOut = "pmOut"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrAlreadyPunched = errors.New("you already completed your time record for this half of the day")
	errEmailRequired  = errors.New("employee email is required")
)

type Record struct {
	ID         string `json:"id" doc:"-"`
	EmployeeID string `json:"employee_id" doc:"employeeId"`
	Date       string `json:"date" doc:"date"` // YYYY-MM-DD
	AMIn       string `json:"am_in" doc:"amIn"`
	AMOut      string `json:"am_out" doc:"amOut"`
	PMIn       string `json:"pm_in" doc:"pmIn"`
	PMOut      string `json:"pm_out" doc:"pmOut"`
}

type PunchResult struct {
	Slot   string `json:"slot"`
	Time   string `json:"time"`
	Record Record `json:"record"`
}

// DocumentID is the id of the employee's record for the day of t.
// The email is kept as stored and the day is the UTC date.
func DocumentID(email string, t time.Time) string {
	return email + "-" + recordDate(t)
}

func recordDate(t time.Time) string {
	return t.UTC().Format(dateLayout)
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

// Punch records the current time in the next empty slot of today's record.
// Morning (before noon) punches fill amIn then amOut; afternoon ones pmIn then pmOut.
func (svc *Service) Punch(ctx context.Context, email string) (PunchResult, error) {
	email = core.CleanString(email)
	if email == "" {
		return PunchResult{}, core.NewValidationError(errEmailRequired, core.FieldError{Field: "email", Error: errEmailRequired.Error()})
	}
	ctx, cancel := svc.withTimeout(ctx)
	defer cancel()

	now := NowFunc()
	id := DocumentID(email, now)
	res := PunchResult{Time: now.Format(timeLayout)}
	morning := now.Hour() < 12

	doc, err := svc.store.Get(ctx, Collection, id)
	if err != nil {
		if errors.Cause(err) != core.ErrDocumentNotFound {
			return PunchResult{}, errors.Wrap(err, "getting time record")
		}

		res.Record = Record{ID: id, EmployeeID: email, Date: recordDate(now)}
		res.Slot = SlotPMIn
		if morning {
			res.Slot = SlotAMIn
		}
		res.Record.set(res.Slot, res.Time)
		if err = svc.store.Set(ctx, Collection, id, res.Record.data()); err != nil {
			return PunchResult{}, errors.Wrap(err, "saving time record")
		}
		return res, nil
	}

	if res.Record, err = decodeRecord(doc); err != nil {
		return PunchResult{}, err
	}
	rec := res.Record
	switch {
	case morning && rec.AMIn == "":
		res.Slot = SlotAMIn
	case morning && rec.AMOut == "":
		res.Slot = SlotAMOut
	case !morning && rec.PMIn == "":
		res.Slot = SlotPMIn
	case !morning && rec.PMOut == "":
		res.Slot = SlotPMOut
	default:
		return PunchResult{}, core.NewValidationError(ErrAlreadyPunched, core.FieldError{Field: "time", Error: ErrAlreadyPunched.Error()})
	}

	res.Record.set(res.Slot, res.Time)
	if err = svc.store.Update(ctx, Collection, id, core.Data{res.Slot: res.Time}); err != nil {
		return PunchResult{}, errors.Wrap(err, "updating time record")
	}
	return res, nil
}

// ListRecords returns the employee's records, latest first.
func (svc *Service) ListRecords(ctx context.Context, email string) ([]Record, error) {
	ctx, cancel := svc.withTimeout(ctx)
	defer cancel()

	docs, err := svc.store.Query(ctx, Collection, "employeeId", core.CleanString(email))
	if err != nil {
		return nil, errors.Wrap(err, "querying time records")
	}
	records := make([]Record, 0, len(docs))
	for _, doc := range docs {
		rec, err := decodeRecord(doc)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Date > records[j].Date })
	return records, nil
}

func (r *Record) set(slot, t string) {
	switch slot {
	case SlotAMIn:
		r.AMIn = t
	case SlotAMOut:
		r.AMOut = t
	case SlotPMIn:
		r.PMIn = t
	case SlotPMOut:
		r.PMOut = t
	}
}

func (r Record) data() core.Data {
	return core.Data{
		"employeeId": r.EmployeeID,
		"date":       r.Date,
		SlotAMIn:     r.AMIn,
		SlotAMOut:    r.AMOut,
		SlotPMIn:     r.PMIn,
		SlotPMOut:    r.PMOut,
	}
}

func decodeRecord(doc core.Document) (Record, error) {
	var rec Record
	if err := core.DecodeDocument(doc, &rec); err != nil {
		return Record{}, err
	}
	rec.ID = doc.ID
	return rec, nil
}
