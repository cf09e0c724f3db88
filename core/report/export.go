package report

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/mail"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/classrecord/core"
	"github.com/trezcool/classrecord/core/attendance"
	"github.com/trezcool/classrecord/core/teacher"
)

type Kind string

const (
	KindCurrent   Kind = "current"
	KindFinalized Kind = "finalized"
)

var (
	// errors
	ErrInvalidKind     = errors.New("kind must be one of current or finalized")
	errNoRecipient     = errors.New("recipient email is required")
	errInvalidEmailAdr = errors.New("invalid recipient email")
)

func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case "":
		return KindCurrent, nil
	case KindCurrent, KindFinalized:
		return k, nil
	}
	return "", ErrInvalidKind
}

type (
	// Aggregator computes the attendance aggregates of a class.
	Aggregator interface {
		AggregateCurrentPeriod(ctx context.Context, sess core.Session) (attendance.CurrentAggregate, error)
		AggregateFinalizedByPeriod(ctx context.Context, sess core.Session) (attendance.FinalizedAggregate, error)
	}

	// TeacherFinder resolves the instructor's name.
	TeacherFinder interface {
		GetByEmail(ctx context.Context, email string) (teacher.Teacher, error)
	}
)

// Exporter renders attendance reports and mails them.
type Exporter struct {
	agg      Aggregator
	teachers TeacherFinder
	mailSvc  core.EmailService
	logger   core.Logger
	appName  string
}

func NewExporter(agg Aggregator, teachers TeacherFinder, mailSvc core.EmailService, logger core.Logger, appName string) *Exporter {
	return &Exporter{agg: agg, teachers: teachers, mailSvc: mailSvc, logger: logger, appName: appName}
}

// Filename is the attachment name of the class' report.
func Filename(classCode string, format Format) string {
	return fmt.Sprintf("%s_attendance_record.%s", classCode, format.Ext())
}

// Table builds the report table of the session's class.
func (ex *Exporter) Table(ctx context.Context, sess core.Session, kind Kind) (Table, error) {
	var tbl Table
	switch kind {
	case KindCurrent:
		agg, err := ex.agg.AggregateCurrentPeriod(ctx, sess)
		if err != nil {
			return Table{}, err
		}
		agg.Instructor = ex.instructor(ctx, agg.Instructor)
		tbl = CurrentTable(agg)
	case KindFinalized:
		agg, err := ex.agg.AggregateFinalizedByPeriod(ctx, sess)
		if err != nil {
			return Table{}, err
		}
		agg.Instructor = ex.instructor(ctx, agg.Instructor)
		tbl = FinalizedTable(agg)
	default:
		return Table{}, core.NewValidationError(ErrInvalidKind, core.FieldError{Field: "kind", Error: ErrInvalidKind.Error()})
	}
	return tbl, nil
}

// instructor returns the teacher's full name, or email when it cannot be resolved.
func (ex *Exporter) instructor(ctx context.Context, email string) string {
	if ex.teachers == nil || email == "" {
		return email
	}
	t, err := ex.teachers.GetByEmail(ctx, email)
	if err != nil {
		if errors.Cause(err) != teacher.ErrNotFound {
			ex.logger.Warn(fmt.Sprintf("resolving instructor %s: %v", email, err), err)
		}
		return email
	}
	if name := t.FullName(); name != "" {
		return name
	}
	return email
}

// Export writes the report of the session's class to w.
func (ex *Exporter) Export(ctx context.Context, sess core.Session, kind Kind, format Format, w io.Writer) error {
	if _, ok := formatInfo[format]; !ok {
		return core.NewValidationError(ErrInvalidFormat, core.FieldError{Field: "format", Error: ErrInvalidFormat.Error()})
	}
	tbl, err := ex.Table(ctx, sess, kind)
	if err != nil {
		return err
	}
	return errors.Wrap(RenderTable(w, format, tbl), "rendering report")
}

// Email sends the report of the session's class to `to` as an attachment.
func (ex *Exporter) Email(ctx context.Context, sess core.Session, kind Kind, format Format, to string) error {
	to = core.CleanString(to)
	if to == "" {
		return core.NewValidationError(errNoRecipient, core.FieldError{Field: "to", Error: errNoRecipient.Error()})
	}
	addr, err := mail.ParseAddress(to)
	if err != nil {
		return core.NewValidationError(errInvalidEmailAdr, core.FieldError{Field: "to", Error: errInvalidEmailAdr.Error()})
	}

	var buf bytes.Buffer
	if err = ex.Export(ctx, sess, kind, format, &buf); err != nil {
		return err
	}

	filename := Filename(sess.ClassCode, format)
	msg := &core.EmailMessage{
		To:           []mail.Address{*addr},
		Subject:      sess.ClassCode + " attendance record",
		TemplateName: "attendance_report",
		TemplateData: map[string]interface{}{
			"ClassCode":  sess.ClassCode,
			"Kind":       string(kind),
			"Instructor": ex.instructor(ctx, sess.Email),
			"Filename":   filename,
			"AppName":    ex.appName,
		},
	}
	if err = msg.Attach(&buf, filename, format.ContentType()); err != nil {
		return errors.Wrap(err, "attaching report")
	}
	ex.mailSvc.SendMessages(msg)
	return nil
}
