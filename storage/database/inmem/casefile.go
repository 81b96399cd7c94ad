package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/casebook/core"
	"github.com/trezcool/casebook/core/casefile"
)

type caseFileRepository struct {
	db *caseFileTable
}

var _ casefile.Repository = (*caseFileRepository)(nil)

func NewCaseFileRepository(db *DB) casefile.Repository {
	return &caseFileRepository{db: db.caseFile}
}

func (repo *caseFileRepository) CreateCaseFile(ctx context.Context, cf casefile.CaseFile) (casefile.CaseFile, error) {
	if err := ctx.Err(); err != nil {
		return casefile.CaseFile{}, err
	}

	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.table[cf.ID] = &cf
	repo.db.order = append(repo.db.order, cf.ID)
	return cf, nil
}

func (repo *caseFileRepository) GetCaseFile(_ context.Context, id string) (casefile.CaseFile, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if cf, ok := repo.db.table[id]; ok {
		return *cf, nil
	}
	return casefile.CaseFile{}, casefile.ErrNotFound
}

func (repo *caseFileRepository) UpdateCaseFile(_ context.Context, cf casefile.CaseFile) (casefile.CaseFile, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[cf.ID]; !ok {
		return casefile.CaseFile{}, casefile.ErrNotFound
	}
	repo.db.table[cf.ID] = &cf
	return cf, nil
}

func (repo *caseFileRepository) QueryCaseFiles(_ context.Context, filter casefile.QueryFilter, ordering []core.DBOrdering) ([]casefile.CaseFile, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	search := strings.ToLower(filter.Search)
	cfs := make([]casefile.CaseFile, 0, len(repo.db.order))
	// newest first
	for i := len(repo.db.order) - 1; i >= 0; i-- {
		cf := repo.db.table[repo.db.order[i]]
		if filter.StudentCode != "" && cf.StudentCode != filter.StudentCode {
			continue
		}
		if filter.CaseType != "" && cf.CaseType != filter.CaseType {
			continue
		}
		if filter.Priority != "" && cf.Priority != filter.Priority {
			continue
		}
		if filter.Status != "" && cf.Status != filter.Status {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(cf.StudentName), search) &&
			!strings.Contains(strings.ToLower(cf.StudentCode), search) &&
			!strings.Contains(strings.ToLower(cf.Description), search) {
			continue
		}
		cfs = append(cfs, *cf)
	}

	for i := len(ordering) - 1; i >= 0; i-- {
		ord := ordering[i]
		less := caseFileLess(ord.Field)
		if less == nil {
			continue
		}
		sort.SliceStable(cfs, func(a, b int) bool {
			if ord.Ascending {
				return less(cfs[a], cfs[b])
			}
			return less(cfs[b], cfs[a])
		})
	}
	return cfs, nil
}

var priorityRank = map[string]int{
	casefile.PriorityLow:    0,
	casefile.PriorityMedium: 1,
	casefile.PriorityHigh:   2,
	casefile.PriorityUrgent: 3,
}

func caseFileLess(field string) func(a, b casefile.CaseFile) bool {
	switch field {
	case "student_name":
		return func(a, b casefile.CaseFile) bool { return a.StudentName < b.StudentName }
	case "priority":
		return func(a, b casefile.CaseFile) bool { return priorityRank[a.Priority] < priorityRank[b.Priority] }
	case "status":
		return func(a, b casefile.CaseFile) bool { return a.Status < b.Status }
	case "created_at":
		return func(a, b casefile.CaseFile) bool { return a.CreatedAt.Before(b.CreatedAt) }
	}
	return nil
}
