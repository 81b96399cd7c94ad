package core

import (
	"context"
	"database/sql"
	"strings"
)

// DBExecutor is satisfied by *sql.DB, *sql.Tx & *sqlx.DB.
type DBExecutor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// OrderBy renders an ORDER BY list from `ords`, keeping only fields present in `columns`
// (api field -> column). Returns `fallback` when nothing usable is left.
func OrderBy(ords []DBOrdering, columns map[string]string, fallback string) string {
	parts := make([]string, 0, len(ords))
	for _, ord := range ords {
		col, ok := columns[ord.Field]
		if !ok {
			continue
		}
		parts = append(parts, DBOrdering{Field: col, Ascending: ord.Ascending}.String())
	}
	if len(parts) == 0 {
		return fallback
	}
	return strings.Join(parts, ", ")
}
