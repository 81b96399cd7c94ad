package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/casebook/core"
	"github.com/trezcool/casebook/core/casefile"
)

const caseFileColumns = `id, student_code, student_name, school_level, class_name, case_type, priority,
	status, description, notes, created_by, created_at, updated_at`

var caseFileOrderColumns = map[string]string{
	"student_name": "student_name",
	"priority":     "array_position(ARRAY['low','medium','high','urgent'], priority)",
	"status":       "status",
	"created_at":   "created_at",
}

type caseFileRow struct {
	ID          string      `db:"id"`
	StudentCode string      `db:"student_code"`
	StudentName string      `db:"student_name"`
	SchoolLevel null.String `db:"school_level"`
	ClassName   null.String `db:"class_name"`
	CaseType    string      `db:"case_type"`
	Priority    string      `db:"priority"`
	Status      string      `db:"status"`
	Description string      `db:"description"`
	Notes       null.String `db:"notes"`
	CreatedBy   null.String `db:"created_by"`
	CreatedAt   time.Time   `db:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at"`
}

func toCaseFileRow(cf casefile.CaseFile) caseFileRow {
	return caseFileRow{
		ID:          cf.ID,
		StudentCode: cf.StudentCode,
		StudentName: cf.StudentName,
		SchoolLevel: nullString(cf.SchoolLevel),
		ClassName:   nullString(cf.ClassName),
		CaseType:    cf.CaseType,
		Priority:    cf.Priority,
		Status:      cf.Status,
		Description: cf.Description,
		Notes:       nullString(cf.Notes),
		CreatedBy:   nullString(cf.CreatedBy),
		CreatedAt:   cf.CreatedAt.UTC(),
		UpdatedAt:   cf.UpdatedAt.UTC(),
	}
}

func (row caseFileRow) caseFile() casefile.CaseFile {
	return casefile.CaseFile{
		ID:          row.ID,
		StudentCode: row.StudentCode,
		StudentName: row.StudentName,
		SchoolLevel: row.SchoolLevel.String,
		ClassName:   row.ClassName.String,
		CaseType:    row.CaseType,
		Priority:    row.Priority,
		Status:      row.Status,
		Description: row.Description,
		Notes:       row.Notes.String,
		CreatedBy:   row.CreatedBy.String,
		CreatedAt:   row.CreatedAt.UTC(),
		UpdatedAt:   row.UpdatedAt.UTC(),
	}
}

type caseFileRepository struct {
	db *sqlx.DB
}

var _ casefile.Repository = (*caseFileRepository)(nil)

func NewCaseFileRepository(db *sql.DB) casefile.Repository {
	return &caseFileRepository{db: sqlx.NewDb(db, "postgres")}
}

func (repo *caseFileRepository) CreateCaseFile(ctx context.Context, cf casefile.CaseFile) (casefile.CaseFile, error) {
	q := `INSERT INTO case_file (` + caseFileColumns + `) VALUES (
		:id, :student_code, :student_name, :school_level, :class_name, :case_type, :priority,
		:status, :description, :notes, :created_by, :created_at, :updated_at)`

	if _, err := repo.db.NamedExecContext(ctx, q, toCaseFileRow(cf)); err != nil {
		return casefile.CaseFile{}, errors.Wrap(err, "inserting case file")
	}
	return cf, nil
}

func (repo *caseFileRepository) GetCaseFile(ctx context.Context, id string) (casefile.CaseFile, error) {
	var row caseFileRow
	q := `SELECT ` + caseFileColumns + ` FROM case_file WHERE id = $1`
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		if err == sql.ErrNoRows {
			return casefile.CaseFile{}, casefile.ErrNotFound
		}
		return casefile.CaseFile{}, errors.Wrap(err, "finding case file")
	}
	return row.caseFile(), nil
}

func (repo *caseFileRepository) UpdateCaseFile(ctx context.Context, cf casefile.CaseFile) (casefile.CaseFile, error) {
	q := `UPDATE case_file SET priority = :priority, status = :status, notes = :notes, updated_at = :updated_at
		WHERE id = :id`

	res, err := repo.db.NamedExecContext(ctx, q, toCaseFileRow(cf))
	if err != nil {
		return casefile.CaseFile{}, errors.Wrap(err, "updating case file")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return casefile.CaseFile{}, casefile.ErrNotFound
	}
	return cf, nil
}

func (repo *caseFileRepository) QueryCaseFiles(ctx context.Context, filter casefile.QueryFilter, ordering []core.DBOrdering) ([]casefile.CaseFile, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.Search != "" {
		where = append(where, "(student_name ILIKE ? OR student_code ILIKE ? OR description ILIKE ?)")
		val := "%" + filter.Search + "%"
		args = append(args, val, val, val)
	}
	for col, val := range map[string]string{
		"student_code": filter.StudentCode,
		"case_type":    filter.CaseType,
		"priority":     filter.Priority,
		"status":       filter.Status,
	} {
		if val != "" {
			where = append(where, col+" = ?")
			args = append(args, val)
		}
	}

	q := `SELECT ` + caseFileColumns + ` FROM case_file`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY " + core.OrderBy(ordering, caseFileOrderColumns, "created_at DESC")

	var rows []caseFileRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "querying case files")
	}
	cfs := make([]casefile.CaseFile, 0, len(rows))
	for _, row := range rows {
		cfs = append(cfs, row.caseFile())
	}
	return cfs, nil
}
