package access

import (
	"github.com/opsdesk-api/internal/models"
)

// Page keys understood by CanAccessPage
const (
	PageDashboard    = "/dashboard"
	PageTimeTracking = "/time-tracking"
	PageGlobalTasks  = "/global-tasks"
	PageLeads        = "/leads"
	PageJobs         = "/jobs"
	PageProposals    = "/proposals"
	PageInvoices     = "/invoices"
	PageReports      = "/reports"
	PageUsers        = "/users"
)

// NavEntry is one item of the sidebar navigation
type NavEntry struct {
	Label string `json:"label"`
	Href  string `json:"href"`
	Icon  string `json:"icon"`
}

type gatedEntry struct {
	entry NavEntry
	gate  func(CapabilitySet) bool
}

// officeNavigation is ordered; the order is part of the contract.
var officeNavigation = []gatedEntry{
	{NavEntry{"Leads", PageLeads, "TargetIcon"}, func(c CapabilitySet) bool { return c.CanViewAllLeads }},
	{NavEntry{"Jobs", PageJobs, "GearIcon"}, func(c CapabilitySet) bool { return c.CanViewAllJobs }},
	{NavEntry{"Tasks", PageGlobalTasks, "CheckboxIcon"}, func(c CapabilitySet) bool { return c.CanViewAllTasks }},
	{NavEntry{"Proposals", PageProposals, "FileTextIcon"}, func(c CapabilitySet) bool { return c.CanCreateProposals }},
	{NavEntry{"Invoices", PageInvoices, "FileTextIcon"}, func(c CapabilitySet) bool { return c.CanManageInvoices }},
	{NavEntry{"Reports", PageReports, "FileTextIcon"}, func(c CapabilitySet) bool { return c.CanViewFinancialReports }},
	{NavEntry{"Users", PageUsers, "PersonIcon"}, func(c CapabilitySet) bool { return c.CanManageUsers }},
}

var (
	dashboardEntry    = NavEntry{"Dashboard", PageDashboard, "DashboardIcon"}
	myTasksEntry      = NavEntry{"My Tasks", PageGlobalTasks, "CheckboxIcon"}
	timeTrackingEntry = NavEntry{"Time Tracking", PageTimeTracking, "StopwatchIcon"}
)

// NavigationFor returns the ordered navigation for a user. Field workers get
// a fixed three-entry menu regardless of capability flags.
func NavigationFor(user *models.User) []NavEntry {
	if !IsActiveAndAuthorized(user) {
		return []NavEntry{}
	}

	items := []NavEntry{dashboardEntry}
	if IsFieldWorker(user.Role) {
		return append(items, myTasksEntry, timeTrackingEntry)
	}

	caps := CapabilitiesFor(user.Role)
	for _, g := range officeNavigation {
		if g.gate(caps) {
			items = append(items, g.entry)
		}
	}
	return items
}

// pageGates maps the single-capability pages
var pageGates = map[string]func(CapabilitySet) bool{
	PageLeads:     func(c CapabilitySet) bool { return c.CanViewAllLeads },
	PageJobs:      func(c CapabilitySet) bool { return c.CanViewAllJobs },
	PageProposals: func(c CapabilitySet) bool { return c.CanCreateProposals },
	PageInvoices:  func(c CapabilitySet) bool { return c.CanManageInvoices },
	PageReports:   func(c CapabilitySet) bool { return c.CanViewFinancialReports },
	PageUsers:     func(c CapabilitySet) bool { return c.CanManageUsers },
}

// CanAccessPage decides whether the user may open the page
func CanAccessPage(user *models.User, page string) bool {
	if !IsActiveAndAuthorized(user) {
		return false
	}

	caps := CapabilitiesFor(user.Role)
	switch page {
	case PageDashboard:
		return true
	case PageTimeTracking:
		return IsFieldWorker(user.Role)
	case PageGlobalTasks:
		return caps.CanViewAllTasks || IsFieldWorker(user.Role)
	}

	if gate, ok := pageGates[page]; ok {
		return gate(caps)
	}
	return false
}
