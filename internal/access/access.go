// Package access maps user roles to capabilities and derives navigation and
// page-access decisions from them. Every function is pure.
package access

import (
	"github.com/opsdesk-api/internal/models"
)

// CapabilitySet is the fixed bundle of permissions granted by a role
type CapabilitySet struct {
	CanManageUsers          bool `json:"canManageUsers"`
	CanViewAllLeads         bool `json:"canViewAllLeads"`
	CanViewAllJobs          bool `json:"canViewAllJobs"`
	CanViewAllTasks         bool `json:"canViewAllTasks"`
	CanViewFinancialReports bool `json:"canViewFinancialReports"`
	CanManageSystemSettings bool `json:"canManageSystemSettings"`
	CanAssignJobs           bool `json:"canAssignJobs"`
	CanCreateProposals      bool `json:"canCreateProposals"`
	CanManageInvoices       bool `json:"canManageInvoices"`
}

var roleCapabilities = map[models.Role]CapabilitySet{
	models.RoleAdmin: {
		CanManageUsers:          true,
		CanViewAllLeads:         true,
		CanViewAllJobs:          true,
		CanViewAllTasks:         true,
		CanViewFinancialReports: true,
		CanManageSystemSettings: true,
		CanAssignJobs:           true,
		CanCreateProposals:      true,
		CanManageInvoices:       true,
	},
	models.RoleManager: {
		CanViewAllLeads:    true,
		CanViewAllJobs:     true,
		CanViewAllTasks:    true,
		CanAssignJobs:      true,
		CanCreateProposals: true,
	},
	models.RoleTechnician:    {},
	models.RoleSubcontractor: {},
	models.RoleStaff:         {},
}

// CapabilitiesFor returns the capability set of a role. Unrecognised roles
// get the staff set.
func CapabilitiesFor(role models.Role) CapabilitySet {
	if caps, ok := roleCapabilities[role]; ok {
		return caps
	}
	return roleCapabilities[models.RoleStaff]
}

// IsFieldWorker reports whether the role gets the task/time-centric surface
func IsFieldWorker(role models.Role) bool {
	switch role {
	case models.RoleTechnician, models.RoleSubcontractor, models.RoleStaff:
		return true
	}
	return false
}

// IsActiveAndAuthorized is the precondition for every other check
func IsActiveAndAuthorized(user *models.User) bool {
	return user != nil && user.Active
}

// EffectiveCapabilities returns the user's capabilities, or the empty set
// when the user is missing or inactive.
func EffectiveCapabilities(user *models.User) CapabilitySet {
	if !IsActiveAndAuthorized(user) {
		return CapabilitySet{}
	}
	return CapabilitiesFor(user.Role)
}

// Has reports whether an authorized user holds the capability picked by fn
func Has(user *models.User, fn func(CapabilitySet) bool) bool {
	if !IsActiveAndAuthorized(user) {
		return false
	}
	return fn(CapabilitiesFor(user.Role))
}

// CanAccessAnalytics gates the analytics dashboard. Only roles that see the
// whole pipeline and dispatch work get it (admin, manager).
func CanAccessAnalytics(user *models.User) bool {
	return Has(user, func(c CapabilitySet) bool {
		return c.CanViewAllLeads && c.CanAssignJobs
	})
}
