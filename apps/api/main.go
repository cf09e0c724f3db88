package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	echoapi "github.com/trezcool/classrecord/apps/api/echo"
	"github.com/trezcool/classrecord/core"
	"github.com/trezcool/classrecord/core/attendance"
	"github.com/trezcool/classrecord/core/dtr"
	"github.com/trezcool/classrecord/core/report"
	"github.com/trezcool/classrecord/core/roster"
	"github.com/trezcool/classrecord/core/schedule"
	"github.com/trezcool/classrecord/core/teacher"
	emailsvc "github.com/trezcool/classrecord/services/email"
	logsvc "github.com/trezcool/classrecord/services/logger"
	"github.com/trezcool/classrecord/storage"
	"github.com/trezcool/classrecord/storage/database"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	storeLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "STORE : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	storeLogger.Enable(!conf.Debug)

	// set up the document store
	handle, err := setUpStore(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up %s store: %v", conf.Store.Engine, err), err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()
		if err = handle.Close(ctx); err != nil {
			storeLogger.Fatal("Failed to close", err)
		}
	}()

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, os.Stdout, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	teacherSvc := teacher.NewService(teacher.NewRepository(handle.Store, conf.Store.Timeout), mailSvc, logger, conf)
	attRepo := attendance.NewRepository(handle.Store, conf.Store.Timeout)
	attSvc := attendance.NewService(attRepo, logger, conf.Store.FinalizeWorkers)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : %s", conf))
	defer logger.Info("Application stopped")

	validate, translator := core.NewValidator()
	teacher.InitValidators(validate, translator)
	attendance.InitValidators(validate, translator)

	core.ParseEmailTemplates(logger)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	expvar.NewString("store").Set(conf.Store.Engine)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:          conf,
			Logger:        logger,
			TeacherSvc:    teacherSvc,
			AttendanceSvc: attSvc,
			RosterSvc:     roster.NewService(attRepo, logger),
			DTRSvc:        dtr.NewService(handle.Store, conf.Store.Timeout),
			ScheduleSvc:   schedule.NewService(handle.Store, conf.Store.Timeout),
			Exporter:      report.NewExporter(attSvc, teacherSvc, mailSvc, logger, conf.AppName),
			Validate:      validate,
			Translator:    translator,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpStore(conf *core.Config) (*storage.Handle, error) {
	ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout+conf.Store.Timeout)
	defer cancel()

	handle, err := storage.Open(ctx, conf)
	if err != nil {
		return nil, err
	}
	if handle.DB != nil {
		if err = database.Migrate(handle.DB, "up"); err != nil {
			_ = handle.Close(ctx)
			return nil, err
		}
	}
	return handle, nil
}
