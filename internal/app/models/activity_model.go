package models

import (
	"time"

	"github.com/google/uuid"
)

// ActivityAction represents the type of state change being recorded
type ActivityAction string

const (
	ActionDriverAssigned     ActivityAction = "driver_assigned"
	ActionDriverRemoved      ActivityAction = "driver_removed"
	ActionMaintenanceSet     ActivityAction = "maintenance_set"
	ActionMaintenanceCleared ActivityAction = "maintenance_cleared"
	ActionCarAdded           ActivityAction = "car_added"
	ActionCarUpdated         ActivityAction = "car_updated"
	ActionCarDeleted         ActivityAction = "car_deleted"
)

// Valid reports whether a is one of the known activity actions.
func (a ActivityAction) Valid() bool {
	switch a {
	case ActionDriverAssigned, ActionDriverRemoved, ActionMaintenanceSet,
		ActionMaintenanceCleared, ActionCarAdded, ActionCarUpdated, ActionCarDeleted:
		return true
	}
	return false
}

// ActivityLog is an append-only record of one state-changing event.
// Rows are never updated or deleted and outlive their referenced car:
// CarID is a plain reference, and CarNumber/RegistrationNumber snapshot
// the car's identity at the time of the event.
type ActivityLog struct {
	ID                 uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Action             ActivityAction `gorm:"type:varchar(30);not null;index" json:"action"`
	CarID              uuid.UUID      `gorm:"type:uuid;not null;index" json:"carId"`
	CarNumber          int            `gorm:"not null" json:"carNumber"`
	RegistrationNumber string         `gorm:"not null" json:"registrationNumber"`
	PreviousDriver     *string        `json:"previousDriver"`
	NewDriver          *string        `json:"newDriver"`
	Note               string         `json:"note"`
	UserID             string         `gorm:"not null;default:system" json:"userId"`
	Timestamp          time.Time      `gorm:"not null;index;default:CURRENT_TIMESTAMP" json:"timestamp"`
	IPAddress          string         `json:"ipAddress"`
	UserAgent          string         `json:"userAgent"`
}

// ActivityLogFilter holds the raw query filters for log retrieval and
// export. Values are validated by ActivityService before any query runs.
type ActivityLogFilter struct {
	CarID     string
	StartDate string
	EndDate   string
	Action    string
	Limit     int
}
