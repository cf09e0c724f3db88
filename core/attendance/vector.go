package attendance

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

type Status string

const (
	StatusPresent Status = "present"
	StatusAbsent  Status = "absent"
	StatusExcuse  Status = "excuse"
	StatusLate    Status = "late"
)

// slot indexes of a Vector
const (
	slotPresent = iota
	slotAbsent
	slotExcuse
	slotLate
	numSlots
)

var (
	Statuses = []Status{StatusPresent, StatusAbsent, StatusExcuse, StatusLate}

	statusSlots = map[Status]int{
		StatusPresent: slotPresent,
		StatusAbsent:  slotAbsent,
		StatusExcuse:  slotExcuse,
		StatusLate:    slotLate,
	}

	// errors
	ErrInvalidStatus = errors.New("status must be one of: present, absent, excuse, late")
	errInvalidVector = errors.New("invalid attendance vector")
)

// ParseStatus parses a status name, ignoring case and surrounding whitespace.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", ErrInvalidStatus
	}
	return st, nil
}

func (s Status) Valid() bool {
	_, ok := statusSlots[s]
	return ok
}

// Slot returns the Vector index of s, or -1 if s is not a valid status.
func (s Status) Slot() int {
	if i, ok := statusSlots[s]; ok {
		return i
	}
	return -1
}

// Vector is a student's attendance for the open period: [present, absent, excuse, late].
// It is one-hot: at most one slot is set, and a set slot holds 1.
type Vector [numSlots]int

// Active returns the status of the first nonzero slot.
func (v Vector) Active() (Status, bool) {
	for i, n := range v {
		if n != 0 {
			return Statuses[i], true
		}
	}
	return "", false
}

func (v Vector) IsUnset() bool {
	_, ok := v.Active()
	return !ok
}

// With returns the one-hot Vector for s; every other slot is zeroed.
func (v Vector) With(s Status) Vector {
	var nv Vector
	if i := s.Slot(); i >= 0 {
		nv[i] = 1
	}
	return nv
}

func (v Vector) Present() int { return v[slotPresent] }
func (v Vector) Absent() int  { return v[slotAbsent] }
func (v Vector) Excuse() int  { return v[slotExcuse] }
func (v Vector) Late() int    { return v[slotLate] }

// Values is the stored representation of v.
func (v Vector) Values() []interface{} {
	vals := make([]interface{}, 0, numSlots)
	for _, n := range v {
		vals = append(vals, n)
	}
	return vals
}

func (v Vector) Add(o Vector) Vector {
	for i := range v {
		v[i] += o[i]
	}
	return v
}

// ArchivedVector is a finalized Vector.
// Some stored archives carry a trailing non-numeric label after the four counts; it is kept apart in Label.
type ArchivedVector struct {
	Vector
	Label string
}

func (a ArchivedVector) Values() []interface{} {
	vals := a.Vector.Values()
	if a.Label != "" {
		vals = append(vals, a.Label)
	}
	return vals
}

func (a ArchivedVector) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.Values())
}

// parseVector reads a stored vector: up to four counts, optionally followed by a label.
// Counts may be any numeric type or a numeric string. An element past the four counts
// is the label whatever its type, so numeric-looking labels ("12", "0601") are kept.
// A missing vector is all-zero.
func parseVector(raw interface{}) (Vector, string, error) {
	var (
		vec   Vector
		label string
	)
	if raw == nil {
		return vec, label, nil
	}

	rv := reflect.ValueOf(raw)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return vec, label, errors.Wrapf(errInvalidVector, "got %T", raw)
	}

	n := rv.Len()
	if n > numSlots+1 {
		return Vector{}, "", errors.Wrapf(errInvalidVector, "too many elements (%d)", n)
	}
	for i := 0; i < n; i++ {
		elem := rv.Index(i).Interface()
		if i == numSlots { // trailing label
			label = fmt.Sprint(elem)
			break
		}
		count, ok := toCount(elem)
		if !ok {
			if i == n-1 && i > 0 { // trailing label of a short vector
				label = fmt.Sprint(elem)
				break
			}
			return Vector{}, "", errors.Wrapf(errInvalidVector, "element %d: %v", i, elem)
		}
		if count < 0 {
			return Vector{}, "", errors.Wrapf(errInvalidVector, "negative count at %d", i)
		}
		vec[i] = count
	}
	return vec, label, nil
}

func toCount(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		if n != float64(int(n)) {
			return 0, false
		}
		return int(n), true
	case float32:
		if n != float32(int(n)) {
			return 0, false
		}
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		return int(i), err == nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		return i, err == nil
	}
	return 0, false
}

var (
	vectorType         = reflect.TypeOf(Vector{})
	archivedVectorType = reflect.TypeOf(ArchivedVector{})
)

// vectorDecodeHook lets core.DecodeDocument read stored vectors.
func vectorDecodeHook(_ reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	switch to {
	case vectorType:
		vec, _, err := parseVector(data)
		return vec, err
	case archivedVectorType:
		vec, label, err := parseVector(data)
		return ArchivedVector{Vector: vec, Label: label}, err
	}
	return data, nil
}
