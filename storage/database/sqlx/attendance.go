package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/casebook/core/attendance"
)

type attendanceRow struct {
	ID          string      `db:"id"`
	StudentCode string      `db:"student_code"`
	StudentName string      `db:"student_name"` // joined, never written
	Date        time.Time   `db:"date"`
	Status      string      `db:"status"`
	Notes       null.String `db:"notes"`
	RecordedBy  null.String `db:"recorded_by"`
	CreatedAt   time.Time   `db:"created_at"`
}

func toAttendanceRow(rec attendance.Record) attendanceRow {
	date, _ := time.Parse(dateLayout, rec.Date)
	return attendanceRow{
		ID:          rec.ID,
		StudentCode: rec.StudentCode,
		Date:        date,
		Status:      rec.Status,
		Notes:       nullString(rec.Notes),
		RecordedBy:  nullString(rec.RecordedBy),
		CreatedAt:   rec.CreatedAt.UTC(),
	}
}

func (row attendanceRow) record() attendance.Record {
	return attendance.Record{
		ID:          row.ID,
		StudentCode: row.StudentCode,
		StudentName: row.StudentName,
		Date:        row.Date.Format(dateLayout),
		Status:      row.Status,
		Notes:       row.Notes.String,
		RecordedBy:  row.RecordedBy.String,
		CreatedAt:   row.CreatedAt.UTC(),
	}
}

type attendanceRepository struct {
	db *sqlx.DB
}

var _ attendance.Repository = (*attendanceRepository)(nil)

func NewAttendanceRepository(db *sql.DB) attendance.Repository {
	return &attendanceRepository{db: sqlx.NewDb(db, "postgres")}
}

func (repo *attendanceRepository) ReplaceDay(ctx context.Context, date string, recs []attendance.Record) (err error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "starting transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM attendance WHERE date = $1`, date); err != nil {
		return errors.Wrap(err, "deleting attendance")
	}
	q := `INSERT INTO attendance (id, student_code, date, status, notes, recorded_by, created_at)
		VALUES (:id, :student_code, :date, :status, :notes, :recorded_by, :created_at)`
	for _, rec := range recs {
		if _, err = tx.NamedExecContext(ctx, q, toAttendanceRow(rec)); err != nil {
			return errors.Wrap(err, "inserting attendance")
		}
	}
	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "committing attendance")
	}
	return nil
}

func (repo *attendanceRepository) QueryRecords(ctx context.Context, filter attendance.QueryFilter) ([]attendance.Record, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.Date != "" {
		where = append(where, "a.date = ?")
		args = append(args, filter.Date)
	}
	if filter.StudentCode != "" {
		where = append(where, "a.student_code = ?")
		args = append(args, filter.StudentCode)
	}
	if filter.Status != "" {
		where = append(where, "a.status = ?")
		args = append(args, filter.Status)
	}

	q := `SELECT a.id, a.student_code, s.student_name, a.date, a.status, a.notes, a.recorded_by, a.created_at
		FROM attendance a JOIN student s ON s.student_code = a.student_code`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY a.date DESC, a.student_code ASC"

	var rows []attendanceRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "querying attendance")
	}
	recs := make([]attendance.Record, 0, len(rows))
	for _, row := range rows {
		recs = append(recs, row.record())
	}
	return recs, nil
}
