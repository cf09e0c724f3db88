package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/trezcool/classrecord/core"
	"github.com/trezcool/classrecord/core/attendance"
	"github.com/trezcool/classrecord/core/report"
	"github.com/trezcool/classrecord/core/teacher"
	emailsvc "github.com/trezcool/classrecord/services/email"
	logsvc "github.com/trezcool/classrecord/services/logger"
	"github.com/trezcool/classrecord/storage"
)

func main() {
	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	// set up the document store
	ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout+conf.Store.Timeout)
	handle, err := storage.Open(ctx, conf)
	cancel()
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening %s store: %v", conf.Store.Engine, err), err)
	}

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewSyncConsoleService(conf, os.Stdout, logger)
	} else {
		mailSvc = emailsvc.NewSyncSendgridService(conf, logger)
	}

	validate, translator := core.NewValidator()
	teacher.InitValidators(validate, translator)
	core.ParseEmailTemplates(logger)

	teacherSvc := teacher.NewService(teacher.NewRepository(handle.Store, conf.Store.Timeout), mailSvc, logger, conf)
	attSvc := attendance.NewService(attendance.NewRepository(handle.Store, conf.Store.Timeout), logger, conf.Store.FinalizeWorkers)

	// start CLI
	cli := commandLine{
		conf:       conf,
		db:         handle.DB,
		teacherSvc: teacherSvc,
		attSvc:     attSvc,
		exporter:   report.NewExporter(attSvc, teacherSvc, mailSvc, logger, conf.AppName),
		validate:   validate,
		out:        os.Stdout,
	}
	err = cli.run(os.Args)

	closeCtx, closeCancel := context.WithTimeout(context.Background(), conf.Store.Timeout)
	defer closeCancel()
	if cErr := handle.Close(closeCtx); cErr != nil {
		logger.Error(fmt.Sprintf("closing store: %v", cErr), cErr)
	}

	if err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("\nerror: %s\n", err), err)
		}
		closeCancel()
		os.Exit(1)
	}
}
