package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/classrecord/core"
	"github.com/trezcool/classrecord/core/attendance"
	"github.com/trezcool/classrecord/core/report"
	"github.com/trezcool/classrecord/core/teacher"
	"github.com/trezcool/classrecord/storage/inmem"
	testutil "github.com/trezcool/classrecord/tests"
)

const email = "ada@school.edu"

type fixture struct {
	cli         *commandLine
	out         *bytes.Buffer
	teacherRepo teacher.Repository
	attRepo     attendance.Repository
	mailSvc     *testutil.MailService
}

func setup(t *testing.T) *fixture {
	return setupWithStore(t, inmem.Open())
}

// failingStore rejects every query.
type failingStore struct {
	*inmem.Store
}

func (s failingStore) Query(context.Context, string, string, interface{}) ([]core.Document, error) {
	return nil, core.NewTransportError("query", context.DeadlineExceeded)
}

func setupWithStore(t *testing.T, store core.DocumentStore) *fixture {
	conf := core.NewTestConfig()
	logger := new(testutil.Logger)
	mailSvc := new(testutil.MailService)

	validate, translator := core.NewValidator()
	teacher.InitValidators(validate, translator)

	teacherRepo := teacher.NewRepository(store, conf.Store.Timeout)
	attRepo := attendance.NewRepository(store, conf.Store.Timeout)
	teacherSvc := teacher.NewService(teacherRepo, mailSvc, logger, conf)
	attSvc := attendance.NewService(attRepo, logger, conf.Store.FinalizeWorkers)

	out := new(bytes.Buffer)
	return &fixture{
		cli: &commandLine{
			conf:       conf,
			teacherSvc: teacherSvc,
			attSvc:     attSvc,
			exporter:   report.NewExporter(attSvc, teacherSvc, mailSvc, logger, conf.AppName),
			validate:   validate,
			out:        out,
		},
		out:         out,
		teacherRepo: teacherRepo,
		attRepo:     attRepo,
		mailSvc:     mailSvc,
	}
}

func mockPassword(pwd string) {
	readPasswordFunc = func(fd int) ([]byte, error) { return []byte(pwd), nil }
}

type cliTest struct {
	name       string
	args       []string // without program name
	pwd        string
	wantErr    error
	wantErrStr string
}

func (tt cliTest) run(t *testing.T, cli *commandLine) error {
	mockPassword(tt.pwd)
	err := cli.run(append([]string{"admin"}, tt.args...))
	switch {
	case tt.wantErr != nil:
		assert.Equal(t, tt.wantErr, errors.Cause(err))
	case tt.wantErrStr != "":
		if assert.Error(t, err) {
			assert.Contains(t, err.Error(), tt.wantErrStr)
		}
	default:
		assert.NoError(t, err)
	}
	return err
}

func Test_commandLine_run(t *testing.T) {
	f := setup(t)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "help flag", args: []string{"setperiod", "-h"}, wantErr: errHelp},
		{name: "unknown flag", args: []string{"setperiod", "-lol"}, wantErrStr: "flag provided but not defined"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) { tt.run(t, f.cli) })
	}
}

func Test_commandLine_migrate(t *testing.T) {
	f := setup(t)

	var gotCommand string
	migrateFunc = func(db *sqlx.DB, command string, args ...string) error {
		gotCommand = command
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	t.Run("memory engine", func(t *testing.T) {
		cliTest{args: []string{"migrate", "up"}, wantErr: errMigrateEngine}.run(t, f.cli)
		assert.Empty(t, gotCommand)
	})

	f.cli.conf.Store.Engine = core.StorePostgres
	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "create", args: []string{"migrate", "create", "student_index", "sql"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) { tt.run(t, f.cli) })
	}
}

func Test_commandLine_addTeacher(t *testing.T) {
	f := setup(t)
	testutil.CreateTeacher(t, f.teacherRepo, "grace@school.edu", "Sup3r.S3cret", true)

	tests := []cliTest{
		{name: "no args", args: []string{"addteacher"}, wantErrStr: "email"},
		{name: "missing last name", args: []string{"addteacher", "-email", email, "-first", "Ada"}, wantErrStr: "last"},
		{name: "no password", args: []string{"addteacher", "-email", email, "-first", "Ada", "-last", "Lovelace"}, wantErr: errNoPassword},
		{name: "invalid email", args: []string{"addteacher", "-email", "ada", "-first", "Ada", "-last", "Lovelace"}, pwd: "Sup3r.S3cret", wantErrStr: "Email"},
		{name: "email exists", args: []string{"addteacher", "-email", "GRACE@school.edu", "-first", "Grace", "-last", "Hopper"}, pwd: "Sup3r.S3cret", wantErrStr: teacher.ErrEmailExists.Error()},
		{
			name: "created",
			args: []string{"addteacher", "-email", " Ada@School.edu ", "-first", "Ada", "-middle", "King", "-last", "Lovelace", "-title", "Professor"},
			pwd:  "Sup3r.S3cret",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) { tt.run(t, f.cli) })
	}

	tchr, err := f.teacherRepo.GetTeacherByEmail(context.Background(), email)
	require.NoError(t, err)
	assert.Equal(t, "Ada King Lovelace", tchr.FullName())
	assert.Equal(t, "Professor", tchr.PositionTitle)
	assert.True(t, tchr.IsActive)
	assert.NoError(t, tchr.CheckPassword("Sup3r.S3cret"))
	assert.Contains(t, f.out.String(), "created teacher Ada King Lovelace (ada@school.edu)")
}

func Test_commandLine_resetPassword(t *testing.T) {
	f := setup(t)
	tchr := testutil.CreateTeacher(t, f.teacherRepo, email, "Sup3r.S3cret", true)

	tests := []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErrStr: "email"},
		{name: "no password", args: []string{"resetpassword", "-email", email}, wantErr: errNoPassword},
		{name: "teacher not found", args: []string{"resetpassword", "-email", "lol@school.edu"}, pwd: "N3w.S3cret", wantErr: teacher.ErrNotFound},
		{name: "reset", args: []string{"resetpassword", "-email", "ADA@school.edu"}, pwd: "N3w.S3cret"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) { tt.run(t, f.cli) })
	}

	refreshed, err := f.teacherRepo.GetTeacherByID(context.Background(), tchr.ID)
	require.NoError(t, err)
	assert.NotEqual(t, tchr.PasswordHash, refreshed.PasswordHash)
	assert.NoError(t, refreshed.CheckPassword("N3w.S3cret"))
}

func Test_commandLine_setPeriod(t *testing.T) {
	f := setup(t)
	cls := testutil.CreateClass(t, f.attRepo, "CS101", email, "P1")

	tests := []cliTest{
		{name: "no period", args: []string{"setperiod", "-email", email, "-class", "CS101"}, wantErrStr: "period"},
		{name: "other instructor", args: []string{"setperiod", "-email", "lol@school.edu", "-class", "CS101", "-period", "P2"}, wantErr: attendance.ErrClassNotFound},
		{name: "set", args: []string{"setperiod", "-email", email, "-class", "CS101", "-period", " Week 2 "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) { tt.run(t, f.cli) })
	}

	refreshed, err := f.attRepo.FindClass(context.Background(), core.NewSession(email, cls.ClassCode))
	require.NoError(t, err)
	assert.Equal(t, "Week 2", refreshed.Period)
}

func Test_commandLine_finalize(t *testing.T) {
	f := setup(t)
	cls := testutil.CreateClass(t, f.attRepo, "CS101", email, "P1")
	alice := testutil.CreateStudent(t, f.attRepo, cls, "Alice", attendance.Vector{1, 0, 0, 0})
	testutil.CreateStudent(t, f.attRepo, cls, "Bob", attendance.Vector{0, 1, 0, 0})

	cliTest{name: "not confirmed", args: []string{"finalize", "-email", email, "-class", "CS101"}, wantErrStr: "confirm"}.
		run(t, f.cli)
	st, err := f.attRepo.GetStudent(context.Background(), cls, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, attendance.Vector{1, 0, 0, 0}, st.Attendance)

	cliTest{name: "finalized", args: []string{"finalize", "-email", email, "-class", "CS101", "-yes"}}.run(t, f.cli)
	assert.Contains(t, f.out.String(), `CS101: period "P1" finalized for 2 of 2 students`)

	st, err = f.attRepo.GetStudent(context.Background(), cls, alice.ID)
	require.NoError(t, err)
	assert.True(t, st.Attendance.IsUnset())
	assert.Equal(t, attendance.Vector{1, 0, 0, 0}, st.FinalAttendance["P1"].Vector)
}

func Test_commandLine_report(t *testing.T) {
	f := setup(t)
	testutil.CreateTeacher(t, f.teacherRepo, email, "Sup3r.S3cret", true)
	cls := testutil.CreateClass(t, f.attRepo, "CS101", email, "P1")
	testutil.CreateStudent(t, f.attRepo, cls, "Alice", attendance.Vector{1, 0, 0, 0})

	tests := []cliTest{
		{name: "bad kind", args: []string{"report", "-email", email, "-class", "CS101", "-kind", "weekly"}, wantErr: report.ErrInvalidKind},
		{name: "bad format", args: []string{"report", "-email", email, "-class", "CS101", "-format", "xlsx"}, wantErr: report.ErrInvalidFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.cli.run(append([]string{"admin"}, tt.args...))
			var argErr *ArgumentError
			if assert.True(t, errors.As(err, &argErr)) {
				assert.Equal(t, tt.wantErr.Error(), argErr.Error())
			}
		})
	}

	t.Run("stdout", func(t *testing.T) {
		f.out.Reset()
		cliTest{args: []string{"report", "-email", email, "-class", "CS101"}}.run(t, f.cli)
		assert.Contains(t, f.out.String(), "CS101")
		assert.Contains(t, f.out.String(), "Alice")
		assert.Contains(t, f.out.String(), "Test Teacher")
	})

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "report.csv")
		cliTest{args: []string{"report", "-email", email, "-class", "CS101", "-format", "csv", "-o", path}}.run(t, f.cli)
		b, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(b), "Alice")
		assert.Contains(t, f.out.String(), "CS101 report written to "+path)
	})

	t.Run("file not kept on failure", func(t *testing.T) {
		failing := setupWithStore(t, failingStore{Store: inmem.Open()})
		path := filepath.Join(t.TempDir(), "report.csv")
		err := failing.cli.run([]string{"admin", "report", "-email", email, "-class", "CS101", "-format", "csv", "-o", path})
		assert.True(t, core.IsTransport(err))
		_, statErr := os.Stat(path)
		assert.True(t, os.IsNotExist(statErr))
	})

	t.Run("email", func(t *testing.T) {
		cliTest{args: []string{"report", "-email", email, "-class", "CS101", "-format", "pdf", "-to", "dean@school.edu"}}.run(t, f.cli)
		msgs := f.mailSvc.Messages()
		if assert.Len(t, msgs, 1) {
			assert.Equal(t, "dean@school.edu", msgs[0].To[0].Address)
			if assert.Len(t, msgs[0].Attachments, 1) {
				assert.Equal(t, "CS101_attendance_record.pdf", msgs[0].Attachments[0].Filename)
			}
		}
	})
}
