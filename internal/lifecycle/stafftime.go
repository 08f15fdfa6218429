package lifecycle

import (
	"time"

	"github.com/opsdesk-api/internal/models"
)

// CheckIn records a staff member's arrival on a job. existing is the current
// row for the staff+job pair, or nil. A repeated check-in leaves the row
// untouched and reports changed=false.
func CheckIn(existing *models.StaffTime, jobID, staffName string, now time.Time) (st *models.StaffTime, changed bool) {
	if existing == nil {
		return &models.StaffTime{JobID: jobID, StaffName: staffName, CheckIn: &now}, true
	}
	if existing.CheckIn != nil {
		return existing, false
	}
	existing.CheckIn = &now
	return existing, true
}

// CheckOut records departure. It is a no-op without a prior check-in or
// when already checked out.
func CheckOut(existing *models.StaffTime, now time.Time) (changed bool) {
	if !existing.Open() {
		return false
	}
	existing.CheckOut = &now
	return true
}
