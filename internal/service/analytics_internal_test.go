package service

import (
	"testing"
	"time"

	"github.com/opsdesk-api/internal/models"
)

func TestSummarizeLeads(t *testing.T) {
	now := time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)
	daysAgo := func(d int) time.Time { return now.AddDate(0, 0, -d) }
	changed := daysAgo(2)

	leads := []*models.Lead{
		{ID: "1", CurrentStatus: models.LeadStatusNew, CreatedAt: daysAgo(1)},
		{ID: "2", CurrentStatus: models.LeadStatusWon, CreatedAt: daysAgo(10)},
		{ID: "3", CurrentStatus: models.LeadStatusQualified, CreatedAt: daysAgo(20)},
		{ID: "4", CurrentStatus: models.LeadStatusQualified, CreatedAt: daysAgo(20), LastStatusChange: &changed},
		{ID: "5", CurrentStatus: models.LeadStatusLost, CreatedAt: daysAgo(45)},
		{ID: "6", CurrentStatus: models.LeadStatusWon, CreatedAt: daysAgo(3)},
	}

	got := summarizeLeads(leads, now)

	if got.Total != 6 {
		t.Errorf("Expected total 6, got %d", got.Total)
	}
	if got.CreatedThisWeek != 2 {
		t.Errorf("Expected 2 created this week, got %d", got.CreatedThisWeek)
	}
	if got.CreatedThisMonth != 5 {
		t.Errorf("Expected 5 created this month, got %d", got.CreatedThisMonth)
	}
	if got.Stale != 1 {
		t.Errorf("Expected 1 stale qualified lead, got %d", got.Stale)
	}
	if got.ConversionRate != 33.3 {
		t.Errorf("Expected 33.3%% conversion, got %v", got.ConversionRate)
	}
	if got.ByStatus[models.LeadStatusContacted] != 0 {
		t.Errorf("Every status should be present, got %v", got.ByStatus)
	}
	if got.ByStatus[models.LeadStatusQualified] != 2 {
		t.Errorf("Expected 2 qualified, got %d", got.ByStatus[models.LeadStatusQualified])
	}
}

func TestSummarizeLeadsEmpty(t *testing.T) {
	got := summarizeLeads(nil, time.Now())
	if got.Total != 0 || got.ConversionRate != 0 {
		t.Errorf("Expected zero summary, got %+v", got)
	}
	if len(got.ByStatus) != len(models.ValidLeadStatuses) {
		t.Errorf("Expected all statuses zeroed, got %v", got.ByStatus)
	}
}
