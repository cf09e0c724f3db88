package report

import (
	"strconv"

	"github.com/trezcool/classrecord/core/attendance"
)

// Columns of every attendance table.
var Columns = []string{
	"Student Name",
	"Present", "Absent", "Excuse", "Late",
	"Total No. of Present", "Total No. of Absence", "Total No. of Excuse", "Total No. of Late",
}

const totalLabel = "TOTAL"

type Table struct {
	Title    string
	Header   []string // "Label: value" lines
	Sections []Section
}

// Section is one block of rows closed by a totals row.
type Section struct {
	Title        string // period, empty for the open period
	Rows         []attendance.Row
	TotalPresent int
	TotalAbsent  int
}

// Cells returns the cells of a student row. The counts are repeated under the totals columns.
func Cells(row attendance.Row) []string {
	counts := []string{
		strconv.Itoa(row.Attendance.Present()),
		strconv.Itoa(row.Attendance.Absent()),
		strconv.Itoa(row.Attendance.Excuse()),
		strconv.Itoa(row.Attendance.Late()),
	}
	cells := append([]string{row.Name}, counts...)
	return append(cells, counts...)
}

// TotalCells returns the cells of the totals row: present and absent totals fill
// both the count and the totals columns, excuse and late stay blank.
func (s Section) TotalCells() []string {
	present, absent := strconv.Itoa(s.TotalPresent), strconv.Itoa(s.TotalAbsent)
	return []string{
		totalLabel,
		present, absent, "", "",
		present, absent, "", "",
	}
}

func header(classCode, period, instructor string) []string {
	return []string{
		"Class Code: " + classCode,
		"Day and Month: " + period,
		"Instructor: " + instructor,
	}
}

// CurrentTable is the attendance of the open period.
func CurrentTable(agg attendance.CurrentAggregate) Table {
	return Table{
		Title:  "Attendance Record",
		Header: header(agg.ClassCode, agg.Period, agg.Instructor),
		Sections: []Section{{
			Rows:         agg.Rows,
			TotalPresent: agg.TotalPresent,
			TotalAbsent:  agg.TotalAbsent,
		}},
	}
}

// FinalizedTable has one section per finalized period.
func FinalizedTable(agg attendance.FinalizedAggregate) Table {
	periods := make([]string, 0, len(agg.Periods))
	sections := make([]Section, 0, len(agg.Periods))
	for _, pa := range agg.Periods {
		periods = append(periods, pa.Period)
		sections = append(sections, Section{
			Title:        pa.Period,
			Rows:         pa.Rows,
			TotalPresent: pa.TotalPresent,
			TotalAbsent:  pa.TotalAbsent,
		})
	}

	var period string
	switch len(periods) {
	case 0:
	case 1:
		period = periods[0]
	default:
		period = periods[0] + " - " + periods[len(periods)-1]
	}
	return Table{
		Title:    "Finalized Attendance Record",
		Header:   header(agg.ClassCode, period, agg.Instructor),
		Sections: sections,
	}
}
