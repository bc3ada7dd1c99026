package services

import (
	"strings"
	"time"

	"github.com/nordfleet/fleet-core/internal/app/models"
)

// Notes containing these substrings (case-insensitive) put a car into
// maintenance when no driver is set. This is a heuristic carried over
// from how the workshop staff actually write notes; "ikke ødelagt" still
// matches.
var maintenanceKeywords = []string{"vedlikehold", "ødelagt"}

// deriveStatus computes the status and registration time that follow from
// a requested (driver, note) pair. Inputs must already be sanitized.
// Priority: a non-empty driver always wins, then maintenance keywords in
// the note, then available.
func deriveStatus(driver, note string, now time.Time) (models.CarStatus, *time.Time) {
	if strings.TrimSpace(driver) != "" {
		return models.CarStatusInUse, &now
	}

	lowered := strings.ToLower(note)
	for _, keyword := range maintenanceKeywords {
		if strings.Contains(lowered, keyword) {
			return models.CarStatusMaintenance, nil
		}
	}

	return models.CarStatusAvailable, nil
}

// deriveAction computes the activity log action describing the change
// from previous to updated. Status transitions take priority over driver
// changes; a same-status driver change is still an assignment or removal.
func deriveAction(previous, updated *models.Car) models.ActivityAction {
	if previous.Status != updated.Status {
		switch {
		case updated.Status == models.CarStatusInUse:
			return models.ActionDriverAssigned
		case updated.Status == models.CarStatusAvailable && previous.Status == models.CarStatusInUse:
			return models.ActionDriverRemoved
		case updated.Status == models.CarStatusMaintenance:
			return models.ActionMaintenanceSet
		case previous.Status == models.CarStatusMaintenance:
			return models.ActionMaintenanceCleared
		}
	}

	if previous.Driver != updated.Driver {
		if updated.Driver != "" {
			return models.ActionDriverAssigned
		}
		return models.ActionDriverRemoved
	}

	return models.ActionCarUpdated
}
