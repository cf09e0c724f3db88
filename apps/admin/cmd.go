package main

import (
	"flag"
	"fmt"
	"io"
	"syscall"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/kat-co/vala"
	"golang.org/x/term"

	"github.com/trezcool/classrecord/core"
	"github.com/trezcool/classrecord/core/attendance"
	"github.com/trezcool/classrecord/core/report"
	"github.com/trezcool/classrecord/core/teacher"
)

var readPasswordFunc = term.ReadPassword // mockable

type commandLine struct {
	conf       *core.Config
	db         *sqlx.DB // postgres engine only
	teacherSvc *teacher.Service
	attSvc     *attendance.Service
	exporter   *report.Exporter
	validate   *validator.Validate
	out        io.Writer
}

func (cli *commandLine) printUsage() {
	_, _ = fmt.Fprintln(cli.out, "Usage:")
	_, _ = fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS]                                        - run a goose command (postgres store)")
	_, _ = fmt.Fprintln(cli.out, "  addteacher -email EMAIL -first NAME -last NAME [-middle NAME] [-title TITLE] - create a teacher account")
	_, _ = fmt.Fprintln(cli.out, "  resetpassword -email EMAIL                                    - reset a teacher's password")
	_, _ = fmt.Fprintln(cli.out, "  setperiod -email EMAIL -class CODE -period LABEL              - set the open period of a class")
	_, _ = fmt.Fprintln(cli.out, "  finalize -email EMAIL -class CODE [-period LABEL] -yes        - archive the live attendance of a class")
	_, _ = fmt.Fprintln(cli.out, "  report -email EMAIL -class CODE [-kind K] [-format F] [-o FILE] [-to EMAIL] - export an attendance report")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "addteacher":
		return cli.addTeacherCmd(args[2:])
	case "resetpassword":
		return cli.resetPasswordCmd(args[2:])
	case "setperiod":
		return cli.setPeriodCmd(args[2:])
	case "finalize":
		return cli.finalizeCmd(args[2:])
	case "report":
		return cli.reportCmd(args[2:])
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(cli.out)
	return fs
}

// parse parses the flags of a command then checks that every required flag is set.
func (cli *commandLine) parse(fs *flag.FlagSet, args []string, required map[string]*string) error {
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return errHelp
		}
		return NewArgumentError(err.Error())
	}

	val := vala.BeginValidation()
	fs.VisitAll(func(f *flag.Flag) {
		if v, ok := required[f.Name]; ok {
			val = val.Validate(vala.StringNotEmpty(core.CleanString(*v), f.Name))
		}
	})
	if err := val.Check(); err != nil {
		fs.Usage()
		return NewArgumentError(err.Error())
	}
	return nil
}

func (cli *commandLine) readPassword(usage func()) (string, error) {
	_, _ = fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	_, _ = fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	if len(pwd) == 0 {
		usage()
		return "", errNoPassword
	}
	return string(pwd), nil
}
