package report

import (
	"encoding/csv"
	"fmt"
	htmltmpl "html/template"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/pkg/errors"
)

type Format string

const (
	FormatText Format = "text"
	FormatCSV  Format = "csv"
	FormatHTML Format = "html"
	FormatPDF  Format = "pdf"
)

var (
	Formats = []Format{FormatText, FormatCSV, FormatHTML, FormatPDF}

	// errors
	ErrInvalidFormat = errors.New("format must be one of text, csv, html or pdf")

	formatInfo = map[Format]struct{ ext, contentType string }{
		FormatText: {"txt", "text/plain; charset=utf-8"},
		FormatCSV:  {"csv", "text/csv; charset=utf-8"},
		FormatHTML: {"html", "text/html; charset=utf-8"},
		FormatPDF:  {"pdf", "application/pdf"},
	}
)

func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	if f == "" {
		return FormatText, nil
	}
	if _, ok := formatInfo[f]; !ok {
		return "", ErrInvalidFormat
	}
	return f, nil
}

func (f Format) Ext() string         { return formatInfo[f].ext }
func (f Format) ContentType() string { return formatInfo[f].contentType }

// RenderTable writes t to w in the given format.
func RenderTable(w io.Writer, format Format, t Table) error {
	switch format {
	case FormatText:
		return renderText(w, t)
	case FormatCSV:
		return renderCSV(w, t)
	case FormatHTML:
		return htmlTmpl.Execute(w, t)
	case FormatPDF:
		return renderPDF(w, t)
	}
	return ErrInvalidFormat
}

func renderText(w io.Writer, t Table) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, t.Title)
	for _, line := range t.Header {
		fmt.Fprintln(tw, line)
	}
	for _, s := range t.Sections {
		fmt.Fprintln(tw)
		if s.Title != "" {
			fmt.Fprintf(tw, "[%s]\n", s.Title)
		}
		fmt.Fprintln(tw, strings.Join(Columns, "\t")+"\t")
		for _, row := range s.Rows {
			fmt.Fprintln(tw, strings.Join(Cells(row), "\t")+"\t")
		}
		fmt.Fprintln(tw, strings.Join(s.TotalCells(), "\t")+"\t")
	}
	return tw.Flush()
}

func renderCSV(w io.Writer, t Table) error {
	cw := csv.NewWriter(w)
	pad := func(cells ...string) []string {
		rec := make([]string, len(Columns))
		copy(rec, cells)
		return rec
	}

	for _, line := range t.Header {
		if err := cw.Write(pad(line)); err != nil {
			return err
		}
	}
	for _, s := range t.Sections {
		if s.Title != "" {
			if err := cw.Write(pad("Period: " + s.Title)); err != nil {
				return err
			}
		}
		if err := cw.Write(Columns); err != nil {
			return err
		}
		for _, row := range s.Rows {
			if err := cw.Write(Cells(row)); err != nil {
				return err
			}
		}
		if err := cw.Write(s.TotalCells()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

var htmlTmpl = htmltmpl.Must(htmltmpl.New("report").Funcs(htmltmpl.FuncMap{
	"columns": func() []string { return Columns },
	"cells":   Cells,
}).Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <title>{{.Title}}</title>
  <style>
    table { border-collapse: collapse; margin-bottom: 1em; }
    th, td { border: 1px solid #999; padding: 4px 8px; text-align: center; }
    td:first-child { text-align: left; }
  </style>
</head>
<body>
  <h1>{{.Title}}</h1>
  {{range .Header}}<p>{{.}}</p>
  {{end}}
  {{- range .Sections}}
  {{if .Title}}<h2>{{.Title}}</h2>{{end}}
  <table>
    <tr>{{range columns}}<th>{{.}}</th>{{end}}</tr>
    {{- range .Rows}}
    <tr>{{range cells .}}<td>{{.}}</td>{{end}}</tr>
    {{- end}}
    <tr>{{range .TotalCells}}<td><strong>{{.}}</strong></td>{{end}}</tr>
  </table>
  {{- end}}
</body>
</html>
`))
