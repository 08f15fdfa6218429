package models

import (
	"time"
)

// JobStatus represents the status of a site job
type JobStatus string

const (
	JobStatusScheduled  JobStatus = "scheduled"
	JobStatusInProgress JobStatus = "in_progress"
	JobStatusComplete   JobStatus = "complete"
	JobStatusCancelled  JobStatus = "cancelled"
)

// Job represents a scheduled piece of site work
type Job struct {
	ID            string     `json:"id" db:"id"`
	Title         string     `json:"title" db:"title"`
	LeadID        string     `json:"lead_id,omitempty" db:"lead_id"`
	ScheduledDate *time.Time `json:"scheduled_date,omitempty" db:"scheduled_date"`
	Status        JobStatus  `json:"status" db:"status"`
	StartTime     *time.Time `json:"start_time" db:"start_time"`
	EndTime       *time.Time `json:"end_time" db:"end_time"`
	SiteAddress   string     `json:"site_address,omitempty" db:"site_address"`
	SiteNotes     string     `json:"site_notes,omitempty" db:"site_notes"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`

	AssignedTo []string `json:"assigned_to" db:"-"`
}

// JobFilter narrows job listings
type JobFilter struct {
	Status     JobStatus
	AssignedTo string // user id from job_assignments
	From       *time.Time
	To         *time.Time
}

// StaffTime is the check-in/out record of one staff member on one job
type StaffTime struct {
	ID        string     `json:"id" db:"id"`
	JobID     string     `json:"job_id" db:"job_id"`
	StaffName string     `json:"staff_name" db:"staff_name"`
	CheckIn   *time.Time `json:"check_in" db:"check_in"`
	CheckOut  *time.Time `json:"check_out" db:"check_out"`
}

// Open reports whether the staff member is checked in but not yet out
func (s *StaffTime) Open() bool {
	return s != nil && s.CheckIn != nil && s.CheckOut == nil
}

// WrapupItem is one entry of the end-of-job checklist
type WrapupItem struct {
	ID      string `json:"id" db:"id"`
	JobID   string `json:"job_id" db:"job_id"`
	Item    string `json:"item" db:"item"`
	Checked bool   `json:"checked" db:"checked"`
}

// DefaultWrapupItems is the checklist shown for jobs without saved items
var DefaultWrapupItems = []string{
	"Site cleaned",
	"Tools packed",
	"Client signature",
	"Photos taken",
	"Materials returned",
}

// CreateJobRequest is the body of POST /v1/jobs
type CreateJobRequest struct {
	Title         string     `json:"title" binding:"required,notblank"`
	LeadID        string     `json:"lead_id"`
	ScheduledDate *time.Time `json:"scheduled_date"`
	SiteAddress   string     `json:"site_address"`
	SiteNotes     string     `json:"site_notes"`
	AssignedTo    []string   `json:"assigned_to"`
}

// EditJobTimesRequest overrides recorded job times
type EditJobTimesRequest struct {
	StartTime *time.Time `json:"start_time"`
	EndTime   *time.Time `json:"end_time"`
}

// StaffActionRequest names the staff member checking in or out
type StaffActionRequest struct {
	StaffName string `json:"staff_name" binding:"required,notblank"`
}

// SaveWrapupRequest replaces a job's checklist
type SaveWrapupRequest struct {
	Items []WrapupItemInput `json:"items" binding:"required,dive"`
}

// WrapupItemInput is one checklist line in a save request
type WrapupItemInput struct {
	Item    string `json:"item" binding:"required,notblank"`
	Checked bool   `json:"checked"`
}
