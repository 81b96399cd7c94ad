package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/casebook/core"
	"github.com/trezcool/casebook/core/student"
)

const (
	uniqueViolation = "23505"
	dateLayout      = "2006-01-02"

	studentColumns = `id, student_code, student_name, school_level, class_name, department,
		date_of_birth, enrollment_date, parent_name, parent_phone, parent_email, address, notes,
		status, created_by, created_at, updated_at`
)

// api field -> column
var studentOrderColumns = map[string]string{
	"student_code": "student_code",
	"student_name": "student_name",
	"school_level": "school_level",
	"created_at":   "created_at",
}

type studentRow struct {
	ID             string      `db:"id"`
	StudentCode    string      `db:"student_code"`
	StudentName    string      `db:"student_name"`
	SchoolLevel    null.String `db:"school_level"`
	ClassName      null.String `db:"class_name"`
	Department     null.String `db:"department"`
	DateOfBirth    null.Time   `db:"date_of_birth"`
	EnrollmentDate null.Time   `db:"enrollment_date"`
	ParentName     null.String `db:"parent_name"`
	ParentPhone    null.String `db:"parent_phone"`
	ParentEmail    null.String `db:"parent_email"`
	Address        null.String `db:"address"`
	Notes          null.String `db:"notes"`
	Status         string      `db:"status"`
	CreatedBy      null.String `db:"created_by"`
	CreatedAt      time.Time   `db:"created_at"`
	UpdatedAt      time.Time   `db:"updated_at"`
}

func nullString(s string) null.String { return null.NewString(s, s != "") }

func nullDate(s string) null.Time {
	t, err := time.Parse(dateLayout, s)
	return null.NewTime(t, err == nil)
}

func formatDate(t null.Time) string {
	if !t.Valid {
		return ""
	}
	return t.Time.Format(dateLayout)
}

func toRow(std student.Student) studentRow {
	return studentRow{
		ID:             std.ID,
		StudentCode:    std.StudentCode,
		StudentName:    std.StudentName,
		SchoolLevel:    nullString(std.SchoolLevel),
		ClassName:      nullString(std.ClassName),
		Department:     nullString(std.Department),
		DateOfBirth:    nullDate(std.DateOfBirth),
		EnrollmentDate: nullDate(std.EnrollmentDate),
		ParentName:     nullString(std.ParentName),
		ParentPhone:    nullString(std.ParentPhone),
		ParentEmail:    nullString(std.ParentEmail),
		Address:        nullString(std.Address),
		Notes:          nullString(std.Notes),
		Status:         std.Status,
		CreatedBy:      nullString(std.CreatedBy),
		CreatedAt:      std.CreatedAt.UTC(),
		UpdatedAt:      std.UpdatedAt.UTC(),
	}
}

func (row studentRow) student() student.Student {
	return student.Student{
		ID:             row.ID,
		StudentCode:    row.StudentCode,
		StudentName:    row.StudentName,
		SchoolLevel:    row.SchoolLevel.String,
		ClassName:      row.ClassName.String,
		Department:     row.Department.String,
		DateOfBirth:    formatDate(row.DateOfBirth),
		EnrollmentDate: formatDate(row.EnrollmentDate),
		ParentName:     row.ParentName.String,
		ParentPhone:    row.ParentPhone.String,
		ParentEmail:    row.ParentEmail.String,
		Address:        row.Address.String,
		Notes:          row.Notes.String,
		Status:         row.Status,
		CreatedBy:      row.CreatedBy.String,
		CreatedAt:      row.CreatedAt.UTC(),
		UpdatedAt:      row.UpdatedAt.UTC(),
	}
}

type studentRepository struct {
	db *sqlx.DB
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *sql.DB) student.Repository {
	return &studentRepository{db: sqlx.NewDb(db, "postgres")}
}

func (repo *studentRepository) CreateStudent(ctx context.Context, std student.Student) (student.Student, error) {
	q := `INSERT INTO student (` + studentColumns + `) VALUES (
		:id, :student_code, :student_name, :school_level, :class_name, :department,
		:date_of_birth, :enrollment_date, :parent_name, :parent_phone, :parent_email, :address, :notes,
		:status, :created_by, :created_at, :updated_at)`

	if _, err := repo.db.NamedExecContext(ctx, q, toRow(std)); err != nil {
		if pqErr, ok := errors.Cause(err).(*pq.Error); ok && pqErr.Code == uniqueViolation {
			return student.Student{}, student.ErrCodeExists
		}
		return student.Student{}, errors.Wrap(err, "inserting student")
	}
	return std, nil
}

func (repo *studentRepository) GetStudent(ctx context.Context, code string) (student.Student, error) {
	var row studentRow
	q := `SELECT ` + studentColumns + ` FROM student WHERE student_code = $1`
	if err := repo.db.GetContext(ctx, &row, q, code); err != nil {
		if err == sql.ErrNoRows {
			return student.Student{}, student.ErrNotFound
		}
		return student.Student{}, errors.Wrap(err, "finding student")
	}
	return row.student(), nil
}

func (repo *studentRepository) QueryStudents(ctx context.Context, filter student.QueryFilter, ordering []core.DBOrdering) ([]student.Student, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.Search != "" {
		where = append(where, "(student_name ILIKE ? OR student_code ILIKE ?)")
		val := "%" + filter.Search + "%"
		args = append(args, val, val)
	}
	if filter.SchoolLevel != "" {
		where = append(where, "school_level = ?")
		args = append(args, filter.SchoolLevel)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}

	q := `SELECT ` + studentColumns + ` FROM student`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY " + core.OrderBy(ordering, studentOrderColumns, "created_at ASC")

	var rows []studentRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	stds := make([]student.Student, 0, len(rows))
	for _, row := range rows {
		stds = append(stds, row.student())
	}
	return stds, nil
}
