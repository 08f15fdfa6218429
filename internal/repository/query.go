package repository

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// where accumulates AND-combined conditions with positional arguments
type where struct {
	conds []string
	args  []any
}

func (w *where) arg(v any) string {
	w.args = append(w.args, v)
	return fmt.Sprintf("$%d", len(w.args))
}

// eq adds "col = value" when value is non-empty
func (w *where) eq(col, value string) *where {
	if value != "" {
		w.conds = append(w.conds, col+" = "+w.arg(value))
	}
	return w
}

// contains adds an array-membership test on a TEXT[] column
func (w *where) contains(col, value string) *where {
	if value != "" {
		w.conds = append(w.conds, w.arg(value)+" = ANY("+col+")")
	}
	return w
}

// raw adds a condition; every ? in cond binds to the same value
func (w *where) raw(cond string, value any) *where {
	w.conds = append(w.conds, strings.ReplaceAll(cond, "?", w.arg(value)))
	return w
}

func (w *where) gte(col string, t *time.Time) *where {
	if t != nil {
		w.conds = append(w.conds, col+" >= "+w.arg(*t))
	}
	return w
}

func (w *where) lte(col string, t *time.Time) *where {
	if t != nil {
		w.conds = append(w.conds, col+" <= "+w.arg(*t))
	}
	return w
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// helper to convert empty string to NULL
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullStringPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return nullString(*s)
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

func floatPtr(nf sql.NullFloat64) *float64 {
	if !nf.Valid {
		return nil
	}
	f := nf.Float64
	return &f
}

// scanner is satisfied by *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...any) error
}
