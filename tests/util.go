package testutil

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/casebook/core"
	"github.com/trezcool/casebook/core/user"
	"github.com/trezcool/casebook/storage/database"
)

// PrepareDB opens a clean, migrated test database. Tests are skipped when
// TEST_DATABASE_HOST is not set.
func PrepareDB(t *testing.T) *sql.DB {
	t.Helper()
	if os.Getenv("TEST_DATABASE_HOST") == "" {
		t.Skip("TEST_DATABASE_HOST is not set")
	}
	if err := os.Setenv("ENV", "TEST"); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	conf, err := core.NewConfig()
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	if err = database.CreateIfNotExist(conf); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	db, err := database.OpenAndPing(conf)
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(db); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	if _, err = db.Exec(`TRUNCATE attendance, case_file, student, "user" CASCADE`); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	return db
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		ID:        uuid.NewString(),
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("createUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}

// XLSX builds an in-memory workbook whose first sheet holds `rows`.
// Extra sheets can be given and are appended after the first one.
func XLSX(t *testing.T, rows [][]interface{}, extraSheets ...[][]interface{}) *bytes.Reader {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	write := func(sheet string, rows [][]interface{}) {
		for i, row := range rows {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			if err != nil {
				t.Fatalf("XLSX() failed: %v", err)
			}
			row := row
			if err := f.SetSheetRow(sheet, cell, &row); err != nil {
				t.Fatalf("XLSX() failed: %v", err)
			}
		}
	}

	write("Sheet1", rows)
	for i, extra := range extraSheets {
		name := fmt.Sprintf("Sheet%d", i+2)
		if _, err := f.NewSheet(name); err != nil {
			t.Fatalf("XLSX() failed: %v", err)
		}
		write(name, extra)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("XLSX() failed: %v", err)
	}
	return bytes.NewReader(buf.Bytes())
}

// Logger is a core.Logger that records messages for assertions.
type Logger struct {
	mu       sync.Mutex
	t        testing.TB
	Messages []string
}

var _ core.Logger = (*Logger)(nil)

func NewLogger(t testing.TB) *Logger { return &Logger{t: t} }

func (l *Logger) log(level, msg string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Messages = append(l.Messages, level+": "+msg)
	l.t.Logf("%s: %s %v", level, msg, args)
}

func (l *Logger) Debug(msg string, args ...interface{}) { l.log("DEBUG", msg, args...) }
func (l *Logger) Info(msg string, args ...interface{})  { l.log("INFO", msg, args...) }
func (l *Logger) Warn(msg string, args ...interface{})  { l.log("WARN", msg, args...) }
func (l *Logger) Error(msg string, args ...interface{}) { l.log("ERROR", msg, args...) }
func (l *Logger) Fatal(msg string, args ...interface{}) { l.log("FATAL", msg, args...) }

// Count returns how many messages were logged at `level`.
func (l *Logger) Count(level string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	var n int
	for _, m := range l.Messages {
		if len(m) > len(level) && m[:len(level)+1] == level+":" {
			n++
		}
	}
	return n
}
