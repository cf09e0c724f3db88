package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/classrecord/core"
	"github.com/trezcool/classrecord/core/attendance"
	"github.com/trezcool/classrecord/core/report"
)

func (cli *commandLine) setPeriodCmd(args []string) error {
	fs := cli.newFlagSet("setperiod")
	email := fs.String("email", "", "The instructor's email.")
	class := fs.String("class", "", "The class code.")
	period := fs.String("period", "", "The new period label.")
	if err := cli.parse(fs, args, map[string]*string{"email": email, "class": class, "period": period}); err != nil {
		return err
	}

	sess := core.NewSession(*email, *class)
	if err := cli.attSvc.SetPeriodLabel(context.Background(), sess, *period); err != nil {
		return errors.Wrap(err, "setting period label")
	}
	_, _ = fmt.Fprintf(cli.out, "%s: period set to %q\n", sess.ClassCode, core.CleanString(*period))
	return nil
}

func (cli *commandLine) finalizeCmd(args []string) error {
	fs := cli.newFlagSet("finalize")
	email := fs.String("email", "", "The instructor's email.")
	class := fs.String("class", "", "The class code.")
	period := fs.String("period", "", "The archive key. Defaults to the class' period label.")
	yes := fs.Bool("yes", false, "Confirm. The live attendance of every student is reset.")
	if err := cli.parse(fs, args, map[string]*string{"email": email, "class": class}); err != nil {
		return err
	}
	if err := attendance.RequireConfirmation(*yes); err != nil {
		fs.Usage()
		return err
	}

	sess := core.NewSession(*email, *class)
	rep, err := cli.attSvc.FinalizePeriod(context.Background(), sess, *period)
	if err != nil {
		return errors.Wrap(err, "finalizing period")
	}
	_, _ = fmt.Fprintf(cli.out, "%s: period %q finalized for %d of %d students\n", sess.ClassCode, rep.Period, rep.Succeeded, rep.Students)
	if len(rep.Failed) > 0 {
		_, _ = fmt.Fprintf(cli.out, "failed: %s\n", strings.Join(rep.Failed, ", "))
	}
	return nil
}

func (cli *commandLine) reportCmd(args []string) error {
	fs := cli.newFlagSet("report")
	email := fs.String("email", "", "The instructor's email.")
	class := fs.String("class", "", "The class code.")
	kindFlag := fs.String("kind", string(report.KindCurrent), "current or finalized.")
	formatFlag := fs.String("format", string(report.FormatText), "text, csv, html or pdf.")
	outPath := fs.String("o", "", "Write the report to this file instead of the standard output.")
	to := fs.String("to", "", "Email the report to this address instead.")
	if err := cli.parse(fs, args, map[string]*string{"email": email, "class": class}); err != nil {
		return err
	}

	kind, err := report.ParseKind(*kindFlag)
	if err != nil {
		return NewArgumentError(err.Error())
	}
	format, err := report.ParseFormat(*formatFlag)
	if err != nil {
		return NewArgumentError(err.Error())
	}

	ctx := context.Background()
	sess := core.NewSession(*email, *class)
	if *to != "" {
		if err = cli.exporter.Email(ctx, sess, kind, format, *to); err != nil {
			return errors.Wrap(err, "emailing report")
		}
		_, _ = fmt.Fprintf(cli.out, "%s report sent to %s\n", sess.ClassCode, *to)
		return nil
	}

	if *outPath == "" {
		return cli.exporter.Export(ctx, sess, kind, format, cli.out)
	}
	return cli.exportToFile(ctx, sess, kind, format, *outPath)
}

// exportToFile writes the report to path. No partial file is left when the export fails.
func (cli *commandLine) exportToFile(ctx context.Context, sess core.Session, kind report.Kind, format report.Format, path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "creating report file")
	}
	defer func() {
		if cErr := f.Close(); cErr != nil && err == nil {
			err = errors.Wrap(cErr, "closing report file")
		}
		if err != nil {
			_ = os.Remove(path)
		}
	}()

	if err = cli.exporter.Export(ctx, sess, kind, format, f); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cli.out, "%s report written to %s\n", sess.ClassCode, path)
	return nil
}
