package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/casebook/core"
	"github.com/trezcool/casebook/core/student"
)

type studentRepository struct {
	db *studentTable
}

var _ student.Repository = (*studentRepository)(nil)

func NewStudentRepository(db *DB) student.Repository {
	return &studentRepository{db: db.student}
}

func (repo *studentRepository) CreateStudent(ctx context.Context, std student.Student) (student.Student, error) {
	if err := ctx.Err(); err != nil {
		return student.Student{}, err
	}

	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[std.StudentCode]; ok {
		return student.Student{}, student.ErrCodeExists
	}
	repo.db.table[std.StudentCode] = &std
	repo.db.order = append(repo.db.order, std.StudentCode)
	return std, nil
}

func (repo *studentRepository) GetStudent(_ context.Context, code string) (student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if std, ok := repo.db.table[code]; ok {
		return *std, nil
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *studentRepository) QueryStudents(_ context.Context, filter student.QueryFilter, ordering []core.DBOrdering) ([]student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	search := strings.ToLower(filter.Search)
	stds := make([]student.Student, 0, len(repo.db.order))
	for _, code := range repo.db.order {
		std := repo.db.table[code]
		if filter.SchoolLevel != "" && std.SchoolLevel != filter.SchoolLevel {
			continue
		}
		if filter.Status != "" && std.Status != filter.Status {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(std.StudentName), search) &&
			!strings.Contains(strings.ToLower(std.StudentCode), search) {
			continue
		}
		stds = append(stds, *std)
	}

	for i := len(ordering) - 1; i >= 0; i-- {
		ord := ordering[i]
		less := studentLess(ord.Field)
		if less == nil {
			continue
		}
		sort.SliceStable(stds, func(a, b int) bool {
			if ord.Ascending {
				return less(stds[a], stds[b])
			}
			return less(stds[b], stds[a])
		})
	}
	return stds, nil
}

func studentLess(field string) func(a, b student.Student) bool {
	switch field {
	case "student_code":
		return func(a, b student.Student) bool { return a.StudentCode < b.StudentCode }
	case "student_name":
		return func(a, b student.Student) bool { return a.StudentName < b.StudentName }
	case "school_level":
		return func(a, b student.Student) bool { return a.SchoolLevel < b.SchoolLevel }
	case "created_at":
		return func(a, b student.Student) bool { return a.CreatedAt.Before(b.CreatedAt) }
	}
	return nil
}
