package inmemdb

import (
	"sync"

	"github.com/trezcool/casebook/core/attendance"
	"github.com/trezcool/casebook/core/casefile"
	"github.com/trezcool/casebook/core/student"
	"github.com/trezcool/casebook/core/user"
)

type (
	DB struct {
		user       *userTable
		student    *studentTable
		caseFile   *caseFileTable
		attendance *attendanceTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	studentTable struct {
		sync.RWMutex
		table map[string]*student.Student // keyed by student code
		order []string                    // insertion order
	}

	caseFileTable struct {
		sync.RWMutex
		table map[string]*casefile.CaseFile
		order []string
	}

	attendanceTable struct {
		sync.RWMutex
		table map[string][]attendance.Record // keyed by date
	}
)

func Open() *DB {
	return &DB{
		user:       &userTable{table: make(map[string]*user.User)},
		student:    &studentTable{table: make(map[string]*student.Student)},
		caseFile:   &caseFileTable{table: make(map[string]*casefile.CaseFile)},
		attendance: &attendanceTable{table: make(map[string][]attendance.Record)},
	}
}
