package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/casebook/core/attendance"
)

type attendanceRepository struct {
	db *attendanceTable
}

var _ attendance.Repository = (*attendanceRepository)(nil)

func NewAttendanceRepository(db *DB) attendance.Repository {
	return &attendanceRepository{db: db.attendance}
}

func (repo *attendanceRepository) ReplaceDay(ctx context.Context, date string, recs []attendance.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	repo.db.Lock()
	defer repo.db.Unlock()

	if len(recs) == 0 {
		delete(repo.db.table, date)
		return nil
	}
	repo.db.table[date] = append([]attendance.Record(nil), recs...)
	return nil
}

// QueryRecords returns the newest days first, students by code within a day.
func (repo *attendanceRepository) QueryRecords(_ context.Context, filter attendance.QueryFilter) ([]attendance.Record, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var recs []attendance.Record
	for date, day := range repo.db.table {
		if filter.Date != "" && date != filter.Date {
			continue
		}
		for _, rec := range day {
			if filter.StudentCode != "" && rec.StudentCode != filter.StudentCode {
				continue
			}
			if filter.Status != "" && rec.Status != filter.Status {
				continue
			}
			recs = append(recs, rec)
		}
	}
	sort.Slice(recs, func(a, b int) bool {
		if recs[a].Date != recs[b].Date {
			return recs[a].Date > recs[b].Date
		}
		return recs[a].StudentCode < recs[b].StudentCode
	})
	return recs, nil
}
