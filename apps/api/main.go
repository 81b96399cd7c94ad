package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"

	"github.com/trezcool/casebook/apps/api/echo"
	"github.com/trezcool/casebook/core"
	"github.com/trezcool/casebook/core/attendance"
	"github.com/trezcool/casebook/core/casefile"
	"github.com/trezcool/casebook/core/roster"
	"github.com/trezcool/casebook/core/student"
	"github.com/trezcool/casebook/core/user"
	"github.com/trezcool/casebook/services/email"
	"github.com/trezcool/casebook/services/logger"
	"github.com/trezcool/casebook/storage/database"
	"github.com/trezcool/casebook/storage/database/inmem"
	"github.com/trezcool/casebook/storage/database/sqlboiler"
	"github.com/trezcool/casebook/storage/database/sqlx"
)

const engineMemory = "memory"

func main() {
	if err := run(); err != nil {
		log.Fatalf("%+v", err)
	}
}

func run() error {
	// =========================================================================
	// Set up Dependencies

	conf, err := core.NewConfig()
	if err != nil {
		return errors.Wrap(err, "loading config")
	}

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	defer logger.Close()

	// set up repos
	var (
		usrRepo  user.Repository
		stdRepo  student.Repository
		caseRepo casefile.Repository
		attRepo  attendance.Repository
	)
	if conf.Database.Engine == engineMemory {
		db := inmemdb.Open()
		usrRepo = inmemdb.NewUserRepository(db)
		stdRepo = inmemdb.NewStudentRepository(db)
		caseRepo = inmemdb.NewCaseFileRepository(db)
		attRepo = inmemdb.NewAttendanceRepository(db)
	} else {
		db, err := setUpDB(conf)
		if err != nil {
			return errors.Wrap(err, "setting up database")
		}
		defer func() {
			if err := db.Close(); err != nil {
				logger.Error("closing database", err)
			}
		}()
		usrRepo = boiledrepos.NewUserRepository(db)
		stdRepo = sqlxrepos.NewStudentRepository(db)
		caseRepo = sqlxrepos.NewCaseFileRepository(db)
		attRepo = sqlxrepos.NewAttendanceRepository(db)
	}

	// set up services
	validate, translator := core.NewValidator()
	user.RegisterValidators(validate, translator)
	student.RegisterValidators(validate, translator)

	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	usrSvc := user.NewService(usrRepo)
	stdSvc := student.NewService(stdRepo, validate, translator)
	caseSvc := casefile.NewService(caseRepo, stdSvc, validate, translator)
	attSvc := attendance.NewService(attRepo, stdSvc, validate, translator)
	imports := roster.NewRegistry(
		roster.NewExtractor(validate, translator),
		roster.NewCommitter(stdSvc, logger, conf),
		conf.Import.SessionTTL,
	)

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	if conf.Import.SessionTTL > 0 {
		go imports.Run(ctx, conf.Import.SessionTTL/2)
	}

	// =========================================================================
	// Start API Service

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	signalShutdown := func() { shutdown <- syscall.SIGTERM }

	server := echoapi.NewServer(conf.Server.Address, signalShutdown, &echoapi.Deps{
		Conf:          conf,
		Logger:        logger,
		Validate:      validate,
		Translator:    translator,
		MailSvc:       mailSvc,
		UserSvc:       usrSvc,
		StudentSvc:    stdSvc,
		CaseFileSvc:   caseSvc,
		AttendanceSvc: attSvc,
		Imports:       imports,
	})

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return errors.Wrap(err, "server error")
		}

	case sig := <-shutdown:
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Stop(ctx); err != nil {
			return errors.Wrap(err, "could not stop server gracefully")
		}
	}
	return nil
}

func setUpDB(conf *core.Config) (*sql.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.OpenAndPing(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
