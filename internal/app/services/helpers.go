package services

import (
	"fmt"
	"time"

	"github.com/nordfleet/fleet-core/internal/app/models"
)

func strPtr(s string) *string {
	return &s
}

// optionalDriver returns nil for an empty driver so log rows distinguish
// "no driver" from an actual name.
func optionalDriver(driver string) *string {
	if driver == "" {
		return nil
	}
	return &driver
}

// identityChangeNote describes an administrative edit's identity changes
// in the log row's note field.
func identityChangeNote(previous, updated *models.Car) string {
	return fmt.Sprintf(
		"Car number changed from %d to %d, Registration number changed from %s to %s",
		previous.CarNumber, updated.CarNumber,
		previous.RegistrationNumber, updated.RegistrationNumber,
	)
}

// seedCars is the demo fleet installed by SeedCars.
func seedCars() []models.Car {
	t := func(value string) *time.Time {
		parsed, _ := time.Parse("2006-01-02T15:04:05", value)
		return &parsed
	}

	return []models.Car{
		{CarNumber: 39, RegistrationNumber: "AB12345", PhoneNumber: "480 12 345", Driver: "Ola Nordmann", RegistrationTime: t("2025-03-22T08:15:00"), Status: models.CarStatusInUse},
		{CarNumber: 40, RegistrationNumber: "CD67890", PhoneNumber: "480 23 456", Driver: "Kari Nordmann", Note: "Verksted 3.3.15", RegistrationTime: t("2025-03-21T14:30:00"), Status: models.CarStatusInUse},
		{CarNumber: 41, RegistrationNumber: "EF12345", PhoneNumber: "480 34 567", Status: models.CarStatusAvailable},
		{CarNumber: 42, RegistrationNumber: "GH67890", PhoneNumber: "480 45 678", Driver: "Per Hansen", RegistrationTime: t("2025-03-22T09:45:00"), Status: models.CarStatusInUse},
		{CarNumber: 43, RegistrationNumber: "IJ12345", PhoneNumber: "480 56 789", Note: "Ødelagt bremsesystem", Status: models.CarStatusMaintenance},
		{CarNumber: 44, RegistrationNumber: "KL67890", PhoneNumber: "480 67 890", Driver: "Lisa Andersen", RegistrationTime: t("2025-03-22T10:20:00"), Status: models.CarStatusInUse},
		{CarNumber: 45, RegistrationNumber: "MN12345", PhoneNumber: "480 78 901", Status: models.CarStatusAvailable},
	}
}
