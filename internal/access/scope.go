package access

import (
	"github.com/opsdesk-api/internal/models"
)

// DataScope restricts list queries to the rows a user may see. An empty
// string means unrestricted.
type DataScope struct {
	LeadsAssignedTo    string `json:"leads_assigned_to,omitempty"`
	JobsAssignedTo     string `json:"jobs_assigned_to,omitempty"`
	TasksAssignedTo    string `json:"tasks_assigned_to,omitempty"`
	ProposalsCreatedBy string `json:"proposals_created_by,omitempty"`
	Denied             bool   `json:"denied,omitempty"`
}

// ScopeFor derives row filters from the user's capabilities. Unauthorized
// users get a denied scope.
func ScopeFor(user *models.User) DataScope {
	if !IsActiveAndAuthorized(user) {
		return DataScope{Denied: true}
	}

	caps := CapabilitiesFor(user.Role)
	var scope DataScope
	if !caps.CanViewAllLeads {
		scope.LeadsAssignedTo = user.ID
	}
	if !caps.CanViewAllJobs {
		scope.JobsAssignedTo = user.ID
	}
	if !caps.CanViewAllTasks {
		scope.TasksAssignedTo = user.ID
	}
	if !caps.CanCreateProposals {
		scope.ProposalsCreatedBy = user.ID
	}
	return scope
}
