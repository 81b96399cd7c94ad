package main

import (
	"database/sql"
	"log"
	"os"

	"github.com/pkg/errors"

	"github.com/trezcool/casebook/core"
	"github.com/trezcool/casebook/core/roster"
	"github.com/trezcool/casebook/core/student"
	"github.com/trezcool/casebook/core/user"
	"github.com/trezcool/casebook/services/logger"
	"github.com/trezcool/casebook/storage/database"
	"github.com/trezcool/casebook/storage/database/sqlboiler"
	"github.com/trezcool/casebook/storage/database/sqlx"
)

func main() {
	stdLogger := log.New(os.Stderr, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	cli, closeDB, err := setUp(stdLogger)
	if err != nil {
		stdLogger.Fatalf("%+v", err)
	}

	err = cli.run(os.Args)
	closeDB()
	if err != nil {
		if err != errHelp {
			stdLogger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func setUp(stdLogger *log.Logger) (*commandLine, func(), error) {
	conf, err := core.NewConfig()
	if err != nil {
		return nil, nil, errors.Wrap(err, "loading config")
	}
	logger := logsvc.NewRollbarLogger(stdLogger, conf)

	// set up DB
	if err = database.CreateIfNotExist(conf); err != nil {
		return nil, nil, errors.Wrap(err, "creating database")
	}
	db, err := database.OpenAndPing(conf)
	if err != nil {
		return nil, nil, errors.Wrap(err, "opening database")
	}
	closeDB := func() {
		if err := db.Close(); err != nil {
			stdLogger.Printf("closing database: %v", err)
		}
		logger.Close()
	}

	return newCommandLine(conf, logger, db, boiledrepos.NewUserRepository(db), sqlxrepos.NewStudentRepository(db)), closeDB, nil
}

func newCommandLine(conf *core.Config, logger core.Logger, db *sql.DB, usrRepo user.Repository, stdRepo student.Repository) *commandLine {
	validate, translator := core.NewValidator()
	user.RegisterValidators(validate, translator)
	student.RegisterValidators(validate, translator)

	stdSvc := student.NewService(stdRepo, validate, translator)
	return &commandLine{
		db:        db,
		out:       os.Stdout,
		usrRepo:   usrRepo,
		usrSvc:    user.NewService(usrRepo),
		extractor: roster.NewExtractor(validate, translator),
		committer: roster.NewCommitter(stdSvc, logger, conf),
	}
}
