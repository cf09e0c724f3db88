package report

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/classrecord/core/attendance"
)

func sampleTable() Table {
	return CurrentTable(attendance.CurrentAggregate{
		ClassCode:  "CS101",
		Period:     "June 1",
		Instructor: "Jane Doe",
		Rows: []attendance.Row{
			{Name: "Alice", Attendance: attendance.Vector{0, 1, 0, 0}},
			{Name: "Bob", Attendance: attendance.Vector{0, 0, 0, 1}},
		},
		TotalAbsent: 1,
	})
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{in: "", want: FormatText},
		{in: "CSV", want: FormatCSV},
		{in: " pdf ", want: FormatPDF},
		{in: "html", want: FormatHTML},
		{in: "xlsx", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat() error = %v, wantErr %v", err, tt.wantErr)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSection_TotalCells(t *testing.T) {
	s := Section{TotalPresent: 3, TotalAbsent: 2}
	assert.Equal(t, []string{"TOTAL", "3", "2", "", "", "3", "2", "", ""}, s.TotalCells())
	assert.Len(t, s.TotalCells(), len(Columns))
}

func TestCells(t *testing.T) {
	got := Cells(attendance.Row{Name: "Alice", Attendance: attendance.Vector{0, 1, 0, 0}})
	assert.Equal(t, []string{"Alice", "0", "1", "0", "0", "0", "1", "0", "0"}, got)
	assert.Len(t, got, len(Columns))
}

func TestRenderTable_text(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderTable(&buf, FormatText, sampleTable()))
	out := buf.String()

	assert.Contains(t, out, "Class Code: CS101\n")
	assert.Contains(t, out, "Day and Month: June 1\n")
	assert.Contains(t, out, "Instructor: Jane Doe\n")

	lines := strings.Split(out, "\n")
	var alice, total string
	for _, l := range lines {
		switch {
		case strings.HasPrefix(l, "Alice"):
			alice = l
		case strings.HasPrefix(l, "TOTAL"):
			total = l
		}
	}
	assert.Equal(t, []string{"Alice", "0", "1", "0", "0", "0", "1", "0", "0"}, strings.Fields(alice))
	assert.Equal(t, []string{"TOTAL", "0", "1", "0", "1"}, strings.Fields(total))
}

func TestRenderTable_csv(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderTable(&buf, FormatCSV, sampleTable()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3+1+2+1)
	assert.Equal(t, "Class Code: CS101", records[0][0])
	assert.Equal(t, Columns, records[3])
	assert.Equal(t, []string{"Bob", "0", "0", "0", "1", "0", "0", "0", "1"}, records[5])
	assert.Equal(t, []string{"TOTAL", "0", "1", "", "", "0", "1", "", ""}, records[6])
}

func TestRenderTable_html(t *testing.T) {
	var buf bytes.Buffer
	tbl := sampleTable()
	tbl.Sections[0].Rows[0].Name = "<Alice>"
	require.NoError(t, RenderTable(&buf, FormatHTML, tbl))
	out := buf.String()

	assert.Contains(t, out, "<th>Total No. of Absence</th>")
	assert.Contains(t, out, "<td>&lt;Alice&gt;</td>")
	assert.Contains(t, out, "<td><strong>TOTAL</strong></td>")
	assert.Contains(t, out, "<p>Instructor: Jane Doe</p>")
}

func TestRenderTable_pdf(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderTable(&buf, FormatPDF, FinalizedTable(attendance.FinalizedAggregate{
		ClassCode: "CS101",
		Periods: []attendance.PeriodAggregate{
			{Period: "April 3", Rows: []attendance.Row{{Name: "José", Attendance: attendance.Vector{1, 0, 0, 0}}}, TotalPresent: 1},
			{Period: "June 1"},
		},
	})))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestRenderTable_invalidFormat(t *testing.T) {
	assert.Equal(t, ErrInvalidFormat, RenderTable(new(bytes.Buffer), "xlsx", sampleTable()))
}

func TestFinalizedTable(t *testing.T) {
	tbl := FinalizedTable(attendance.FinalizedAggregate{
		ClassCode:  "CS101",
		Instructor: "t@school.edu",
		Periods:    []attendance.PeriodAggregate{{Period: "April 3"}, {Period: "June 1"}},
	})
	assert.Equal(t, []string{"Class Code: CS101", "Day and Month: April 3 - June 1", "Instructor: t@school.edu"}, tbl.Header)
	require.Len(t, tbl.Sections, 2)
	assert.Equal(t, "June 1", tbl.Sections[1].Title)
}
