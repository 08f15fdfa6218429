package repository

import (
	"database/sql"
	"testing"
	"time"
)

func TestWhereEmpty(t *testing.T) {
	var w where
	w.eq("status", "").contains("assigned_to", "").gte("created_at", nil)

	if got := w.String(); got != "" {
		t.Errorf("Expected no clause, got %q", got)
	}
	if len(w.args) != 0 {
		t.Errorf("Expected no args, got %v", w.args)
	}
}

func TestWhereNumbersArgsInOrder(t *testing.T) {
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)

	var w where
	w.eq("t.status", "todo").
		contains("t.assigned_to", "u1").
		gte("t.created_at", &from).
		lte("t.created_at", &to)

	want := " WHERE t.status = $1 AND $2 = ANY(t.assigned_to) AND t.created_at >= $3 AND t.created_at <= $4"
	if got := w.String(); got != want {
		t.Errorf("Unexpected clause\n got: %s\nwant: %s", got, want)
	}
	if len(w.args) != 4 || w.args[0] != "todo" || w.args[1] != "u1" || w.args[2] != from || w.args[3] != to {
		t.Errorf("Unexpected args %v", w.args)
	}
}

func TestWhereRawReusesPlaceholder(t *testing.T) {
	var w where
	w.eq("status", "sent").raw("(created_by = ? OR owner = ?)", "u7")

	want := " WHERE status = $1 AND (created_by = $2 OR owner = $2)"
	if got := w.String(); got != want {
		t.Errorf("Unexpected clause\n got: %s\nwant: %s", got, want)
	}
	if len(w.args) != 2 {
		t.Errorf("Expected 2 args, got %d", len(w.args))
	}
}

func TestNullHelpers(t *testing.T) {
	if nullString("").Valid {
		t.Error("Empty string should map to NULL")
	}
	if ns := nullString("x"); !ns.Valid || ns.String != "x" {
		t.Errorf("Unexpected %v", ns)
	}
	if nullStringPtr(nil).Valid {
		t.Error("Nil pointer should map to NULL")
	}
	blank := ""
	if nullStringPtr(&blank).Valid {
		t.Error("Pointer to empty string should map to NULL")
	}

	if stringPtr(sql.NullString{}) != nil {
		t.Error("NULL should scan to nil")
	}
	if p := stringPtr(sql.NullString{String: "a", Valid: true}); p == nil || *p != "a" {
		t.Errorf("Unexpected %v", p)
	}

	now := time.Now()
	if p := timePtr(sql.NullTime{Time: now, Valid: true}); p == nil || !p.Equal(now) {
		t.Errorf("Unexpected %v", p)
	}
	if timePtr(sql.NullTime{}) != nil {
		t.Error("NULL time should scan to nil")
	}
	if p := floatPtr(sql.NullFloat64{Float64: 1.5, Valid: true}); p == nil || *p != 1.5 {
		t.Errorf("Unexpected %v", p)
	}
	if floatPtr(sql.NullFloat64{}) != nil {
		t.Error("NULL float should scan to nil")
	}
}
