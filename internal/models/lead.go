package models

import (
	"time"
)

// LeadStatus represents a sales lead's pipeline stage
type LeadStatus string

const (
	LeadStatusNew       LeadStatus = "new"
	LeadStatusContacted LeadStatus = "contacted"
	LeadStatusQualified LeadStatus = "qualified"
	LeadStatusWon       LeadStatus = "won"
	LeadStatusLost      LeadStatus = "lost"
)

// ValidLeadStatuses defines allowed lead statuses
var ValidLeadStatuses = map[LeadStatus]bool{
	LeadStatusNew:       true,
	LeadStatusContacted: true,
	LeadStatusQualified: true,
	LeadStatusWon:       true,
	LeadStatusLost:      true,
}

// Lead is a prospective customer
type Lead struct {
	ID            string     `json:"id" db:"id"`
	FullName      string     `json:"full_name" db:"full_name"`
	Company       string     `json:"company" db:"company"`
	Phone         string     `json:"phone" db:"phone"`
	Email         string     `json:"email" db:"email"`
	CurrentStatus LeadStatus `json:"current_status" db:"current_status"`
	AssignedTo    *string    `json:"assigned_to" db:"assigned_to"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`

	// LastStatusChange is the newest lead_status_log entry, if any
	LastStatusChange *time.Time `json:"last_status_change,omitempty" db:"-"`
}

// LeadStatusLog is one recorded status change of a lead
type LeadStatusLog struct {
	ID        string     `json:"id" db:"id"`
	LeadID    string     `json:"lead_id" db:"lead_id"`
	Status    LeadStatus `json:"status" db:"status"`
	ChangedAt time.Time  `json:"changed_at" db:"changed_at"`
}

// ProposalStatus represents a proposal's state
type ProposalStatus string

const (
	ProposalStatusDraft    ProposalStatus = "draft"
	ProposalStatusSent     ProposalStatus = "sent"
	ProposalStatusAccepted ProposalStatus = "accepted"
	ProposalStatusRejected ProposalStatus = "rejected"
)

// Proposal is a versioned quote sent to a lead
type Proposal struct {
	ID        string         `json:"id" db:"id"`
	LeadID    string         `json:"lead_id" db:"lead_id"`
	Title     string         `json:"title" db:"title"`
	Status    ProposalStatus `json:"status" db:"status"`
	Version   int            `json:"version" db:"version"`
	IsLatest  bool           `json:"is_latest" db:"is_latest"`
	CreatedBy *string        `json:"created_by" db:"created_by"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
}

// ProjectStatus represents a project's state
type ProjectStatus string

const (
	ProjectStatusPlanning  ProjectStatus = "planning"
	ProjectStatusActive    ProjectStatus = "active"
	ProjectStatusOnHold    ProjectStatus = "on_hold"
	ProjectStatusCompleted ProjectStatus = "completed"
	ProjectStatusCancelled ProjectStatus = "cancelled"
)

// Project is a won piece of work spanning one or more jobs
type Project struct {
	ID        string        `json:"id" db:"id"`
	LeadID    string        `json:"lead_id" db:"lead_id"`
	Name      string        `json:"name" db:"name"`
	Status    ProjectStatus `json:"status" db:"status"`
	StartDate *time.Time    `json:"start_date" db:"start_date"`
	EndDate   *time.Time    `json:"end_date" db:"end_date"`
	CreatedAt time.Time     `json:"created_at" db:"created_at"`
}

// LeadAnalytics is the date-windowed lead summary
type LeadAnalytics struct {
	Total            int                `json:"total"`
	ByStatus         map[LeadStatus]int `json:"by_status"`
	CreatedThisWeek  int                `json:"created_this_week"`
	CreatedThisMonth int                `json:"created_this_month"`
	Stale            int                `json:"stale"`
	ConversionRate   float64            `json:"conversion_rate_pct"`
	GeneratedAt      time.Time          `json:"generated_at"`
}

// DashboardKPIs are the headline counts shown on the dashboard
type DashboardKPIs struct {
	TotalLeads     int `json:"total_leads"`
	ActiveJobs     int `json:"active_jobs"`
	CompletedTasks int `json:"completed_tasks"`
	OpenProposals  int `json:"open_proposals"`
}
