package models

import (
	"time"

	"github.com/google/uuid"
)

type CarStatus string

const (
	CarStatusAvailable   CarStatus = "available"
	CarStatusInUse       CarStatus = "inuse"
	CarStatusMaintenance CarStatus = "maintenance"
)

// Car is a tracked fleet vehicle. Status and RegistrationTime always move
// together: a car is inuse exactly when RegistrationTime is set.
type Car struct {
	ID                 uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CarNumber          int        `gorm:"uniqueIndex;not null" json:"carNumber"`
	RegistrationNumber string     `gorm:"uniqueIndex;not null" json:"registrationNumber"`
	PhoneNumber        string     `gorm:"not null" json:"phoneNumber"`
	Driver             string     `json:"driver"`
	Note               string     `json:"note"`
	RegistrationTime   *time.Time `json:"registrationTime"`
	Status             CarStatus  `gorm:"type:varchar(20);not null;default:available" json:"status"`
	CreatedAt          time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt          time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`
}

type CarCreateRequest struct {
	CarNumber          int        `json:"carNumber" validate:"required,gt=0"`
	RegistrationNumber string     `json:"registrationNumber" validate:"required,regnum"`
	PhoneNumber        string     `json:"phoneNumber" validate:"required,phonenum"`
	Driver             string     `json:"driver" validate:"omitempty,max=100"`
	Note               string     `json:"note" validate:"omitempty,max=500"`
	Status             *CarStatus `json:"status,omitempty" validate:"omitempty,oneof=available inuse maintenance"`
	UserID             string     `json:"userId" validate:"omitempty,max=100"`
}

type CarUpdateRequest struct {
	CarNumber          *int    `json:"carNumber,omitempty" validate:"omitempty,gt=0"`
	RegistrationNumber *string `json:"registrationNumber,omitempty" validate:"omitempty,regnum"`
	PhoneNumber        *string `json:"phoneNumber,omitempty" validate:"omitempty,phonenum"`
	Driver             *string `json:"driver,omitempty" validate:"omitempty,max=100"`
	Note               *string `json:"note,omitempty" validate:"omitempty,max=500"`
	UserID             string  `json:"userId" validate:"omitempty,max=100"`
	// Signature and Timestamp are optional; when both are present the
	// payload integrity check in CarService.UpdateCar is enforced.
	Signature *string `json:"signature,omitempty"`
	Timestamp *int64  `json:"timestamp,omitempty"`
}

type DriverUpdateRequest struct {
	Driver string `json:"driver" validate:"omitempty,max=100"`
	Note   string `json:"note" validate:"omitempty,max=500"`
	UserID string `json:"userId" validate:"omitempty,max=100"`
}

type MaintenanceRequest struct {
	Note   string `json:"note" validate:"omitempty,max=500"`
	UserID string `json:"userId" validate:"omitempty,max=100"`
}

type EndAllTripsRequest struct {
	UserID string `json:"userId" validate:"omitempty,max=100"`
}

type CarDeleteRequest struct {
	UserID string `json:"userId" validate:"omitempty,max=100"`
}

type EndAllTripsResponse struct {
	Message     string `json:"message"`
	CarsUpdated int    `json:"carsUpdated"`
}

// CarUpdateSignaturePayload is the exact structure the integrity signature
// is computed over for administrative edits. Field order matters for the
// serialized form, so both signer and verifier must use this type.
type CarUpdateSignaturePayload struct {
	ID                 string  `json:"id"`
	CarNumber          *int    `json:"carNumber,omitempty"`
	RegistrationNumber *string `json:"registrationNumber,omitempty"`
	PhoneNumber        *string `json:"phoneNumber,omitempty"`
	Driver             *string `json:"driver,omitempty"`
	Note               *string `json:"note,omitempty"`
	Timestamp          int64   `json:"timestamp"`
}

// Actor carries the request-origin metadata recorded on activity log rows.
type Actor struct {
	UserID    string
	IPAddress string
	UserAgent string
}

// ResolveUserID returns the actor's user id, falling back to "system".
func (a Actor) ResolveUserID() string {
	if a.UserID == "" {
		return "system"
	}
	return a.UserID
}
