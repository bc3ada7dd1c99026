package services

import (
	"time"

	"github.com/google/uuid"
	"github.com/nordfleet/fleet-core/internal/app/errors"
	"github.com/nordfleet/fleet-core/internal/app/models"
	"github.com/nordfleet/fleet-core/internal/app/pkg"
	"github.com/nordfleet/fleet-core/internal/infrastructures"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// maxSignatureAge bounds how old a signed administrative edit may be
// before it is rejected as a possible replay.
const maxSignatureAge = 5 * time.Minute

// bulkWarnThreshold is the number of affected cars above which a bulk
// operation is logged as notable.
const bulkWarnThreshold = 10

// CarService is the transition engine: it derives the status and activity
// action that follow from a requested change and persists the car update
// together with its activity log row in one database transaction.
type CarService struct {
	db            *gorm.DB
	validator     *infrastructures.Validator
	sanitizer     *infrastructures.Sanitizer
	signingSecret string
}

func NewCarService(db *gorm.DB, validator *infrastructures.Validator, sanitizer *infrastructures.Sanitizer) *CarService {
	return &CarService{
		db:            db,
		validator:     validator,
		sanitizer:     sanitizer,
		signingSecret: infrastructures.Config.DATA_SIGNING_SECRET,
	}
}

func (s *CarService) parseCarID(carId string) (uuid.UUID, error) {
	carUUID, err := uuid.Parse(carId)
	if err != nil {
		return uuid.Nil, errors.NewBadRequestError("Invalid car ID format")
	}
	return carUUID, nil
}

// lockCar loads a car inside tx with a row lock so the read-modify-write
// of a transition is atomic per car.
func (s *CarService) lockCar(tx *gorm.DB, carUUID uuid.UUID) (*models.Car, error) {
	var car models.Car
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", carUUID).
		First(&car).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.NewNotFoundError("Car not found")
		}
		return nil, errors.NewInternalServerError(err, "Failed to get car")
	}
	return &car, nil
}

func (s *CarService) GetCars() ([]models.Car, error) {
	var cars []models.Car
	if err := s.db.Order("car_number ASC").Find(&cars).Error; err != nil {
		return nil, errors.NewInternalServerError(err, "Failed to get cars")
	}
	return cars, nil
}

func (s *CarService) GetCar(carId string) (*models.Car, error) {
	carUUID, err := s.parseCarID(carId)
	if err != nil {
		return nil, err
	}

	var car models.Car
	err = s.db.Where("id = ?", carUUID).First(&car).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.NewNotFoundError("Car not found")
		}
		return nil, errors.NewInternalServerError(err, "Failed to get car")
	}

	return &car, nil
}

// CreateCar validates and persists a new car and its car_added log row.
// Status defaults to available; a caller-supplied inuse status gets a
// registration time so the status/registration-time invariant holds.
func (s *CarService) CreateCar(req *models.CarCreateRequest, actor models.Actor) (*models.Car, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	car := &models.Car{
		CarNumber:          req.CarNumber,
		RegistrationNumber: req.RegistrationNumber,
		PhoneNumber:        req.PhoneNumber,
		Driver:             s.sanitizer.Clean(req.Driver),
		Note:               s.sanitizer.Clean(req.Note),
		Status:             models.CarStatusAvailable,
	}
	if req.Status != nil {
		car.Status = *req.Status
	}
	if car.Status == models.CarStatusInUse {
		now := time.Now()
		car.RegistrationTime = &now
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		// Check both natural keys before inserting so the common case is
		// a clean Conflict instead of a storage error.
		var existing models.Car
		err := tx.Where("car_number = ?", req.CarNumber).First(&existing).Error
		if err == nil {
			return errors.NewConflictError("Car number already exists")
		}
		if err != gorm.ErrRecordNotFound {
			return errors.NewInternalServerError(err, "Failed to check car number")
		}

		err = tx.Where("registration_number = ?", req.RegistrationNumber).First(&existing).Error
		if err == nil {
			return errors.NewConflictError("Registration number already exists")
		}
		if err != gorm.ErrRecordNotFound {
			return errors.NewInternalServerError(err, "Failed to check registration number")
		}

		if err := tx.Create(car).Error; err != nil {
			// Two concurrent creates can both pass the pre-check; the
			// unique index decides and the loser gets a Conflict.
			if err == gorm.ErrDuplicatedKey {
				return errors.NewConflictError("Car number or registration number already exists")
			}
			return errors.NewInternalServerError(err, "Failed to create car")
		}

		log := s.newActivityLog(models.ActionCarAdded, car, actor)
		log.PreviousDriver = nil
		log.NewDriver = optionalDriver(car.Driver)
		log.Note = car.Note

		if err := tx.Create(log).Error; err != nil {
			return errors.NewInternalServerError(err, "Failed to create activity log")
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	logrus.Infof("car created: number=%d registration=%s", car.CarNumber, car.RegistrationNumber)
	return car, nil
}

// UpdateCar is the administrative field edit. When the request carries a
// signature and timestamp, the payload integrity check and the replay
// window are enforced; unsigned requests skip the check entirely.
func (s *CarService) UpdateCar(carId string, req *models.CarUpdateRequest, actor models.Actor) (*models.Car, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	carUUID, err := s.parseCarID(carId)
	if err != nil {
		return nil, err
	}

	var sanitizedDriver, sanitizedNote *string
	if req.Driver != nil {
		cleaned := s.sanitizer.Clean(*req.Driver)
		sanitizedDriver = &cleaned
	}
	if req.Note != nil {
		cleaned := s.sanitizer.Clean(*req.Note)
		sanitizedNote = &cleaned
	}

	if req.Signature != nil && req.Timestamp != nil {
		if time.Since(time.UnixMilli(*req.Timestamp)) > maxSignatureAge {
			logrus.Warnf("expired update request for car %s", carId)
			return nil, errors.NewBadRequestError("Request has expired")
		}

		payload := models.CarUpdateSignaturePayload{
			ID:                 carId,
			CarNumber:          req.CarNumber,
			RegistrationNumber: req.RegistrationNumber,
			PhoneNumber:        req.PhoneNumber,
			Driver:             sanitizedDriver,
			Note:               sanitizedNote,
			Timestamp:          *req.Timestamp,
		}
		if !pkg.VerifyData(payload, *req.Signature, s.signingSecret) {
			logrus.Warnf("invalid data signature for car %s", carId)
			return nil, errors.NewForbiddenError("Invalid data signature")
		}
	}

	var car *models.Car
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var txErr error
		car, txErr = s.lockCar(tx, carUUID)
		if txErr != nil {
			return txErr
		}
		previous := *car

		if req.CarNumber != nil && *req.CarNumber != car.CarNumber {
			var existing models.Car
			err := tx.Where("car_number = ? AND id != ?", *req.CarNumber, car.ID).First(&existing).Error
			if err == nil {
				return errors.NewConflictError("Car number already exists")
			}
			if err != gorm.ErrRecordNotFound {
				return errors.NewInternalServerError(err, "Failed to check car number")
			}
			car.CarNumber = *req.CarNumber
		}

		if req.RegistrationNumber != nil && *req.RegistrationNumber != car.RegistrationNumber {
			var existing models.Car
			err := tx.Where("registration_number = ? AND id != ?", *req.RegistrationNumber, car.ID).First(&existing).Error
			if err == nil {
				return errors.NewConflictError("Registration number already exists")
			}
			if err != gorm.ErrRecordNotFound {
				return errors.NewInternalServerError(err, "Failed to check registration number")
			}
			car.RegistrationNumber = *req.RegistrationNumber
		}

		if req.PhoneNumber != nil {
			car.PhoneNumber = *req.PhoneNumber
		}
		if sanitizedDriver != nil {
			car.Driver = *sanitizedDriver
		}
		if sanitizedNote != nil {
			car.Note = *sanitizedNote
		}

		if err := tx.Save(car).Error; err != nil {
			if err == gorm.ErrDuplicatedKey {
				return errors.NewConflictError("Car number or registration number already exists")
			}
			return errors.NewInternalServerError(err, "Failed to update car")
		}

		log := s.newActivityLog(models.ActionCarUpdated, car, actor)
		log.PreviousDriver = strPtr(previous.Driver)
		log.NewDriver = strPtr(car.Driver)
		log.Note = identityChangeNote(&previous, car)

		if err := tx.Create(log).Error; err != nil {
			return errors.NewInternalServerError(err, "Failed to create activity log")
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return car, nil
}

// UpdateDriver applies a requested (driver, note) change, re-derives the
// car's status, and records the derived action. This is the main
// transition path used by the registration view.
func (s *CarService) UpdateDriver(carId string, req *models.DriverUpdateRequest, actor models.Actor) (*models.Car, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	carUUID, err := s.parseCarID(carId)
	if err != nil {
		return nil, err
	}

	// Sanitize before derivation so the keyword checks run on clean text.
	driver := s.sanitizer.Clean(req.Driver)
	note := s.sanitizer.Clean(req.Note)

	var car *models.Car
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var txErr error
		car, txErr = s.lockCar(tx, carUUID)
		if txErr != nil {
			return txErr
		}
		previous := *car

		status, registrationTime := deriveStatus(driver, note, time.Now())
		car.Driver = driver
		car.Note = note
		car.Status = status
		car.RegistrationTime = registrationTime

		if err := tx.Save(car).Error; err != nil {
			return errors.NewInternalServerError(err, "Failed to update car")
		}

		action := deriveAction(&previous, car)

		log := s.newActivityLog(action, car, actor)
		log.PreviousDriver = strPtr(previous.Driver)
		log.NewDriver = strPtr(car.Driver)
		log.Note = car.Note

		if err := tx.Create(log).Error; err != nil {
			return errors.NewInternalServerError(err, "Failed to create activity log")
		}

		logrus.Infof("car %d: %s (driver %q -> %q)", car.CarNumber, action, previous.Driver, car.Driver)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return car, nil
}

// SetMaintenance unconditionally puts a car into maintenance. No keyword
// inspection: an explicit request overrides derivation.
func (s *CarService) SetMaintenance(carId string, req *models.MaintenanceRequest, actor models.Actor) (*models.Car, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	carUUID, err := s.parseCarID(carId)
	if err != nil {
		return nil, err
	}

	note := s.sanitizer.Clean(req.Note)

	var car *models.Car
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var txErr error
		car, txErr = s.lockCar(tx, carUUID)
		if txErr != nil {
			return txErr
		}
		previous := *car

		car.Status = models.CarStatusMaintenance
		car.Driver = ""
		car.Note = note
		car.RegistrationTime = nil

		if err := tx.Save(car).Error; err != nil {
			return errors.NewInternalServerError(err, "Failed to update car")
		}

		log := s.newActivityLog(models.ActionMaintenanceSet, car, actor)
		log.PreviousDriver = strPtr(previous.Driver)
		log.NewDriver = strPtr("")
		log.Note = note

		if err := tx.Create(log).Error; err != nil {
			return errors.NewInternalServerError(err, "Failed to create activity log")
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return car, nil
}

// EndAllTrips releases every car currently inuse in one transaction and
// writes one driver_removed log row per released car. The inuse set is
// snapshotted first; a car that changed status concurrently is skipped
// without failing the batch. Zero affected cars is a successful no-op.
func (s *CarService) EndAllTrips(actor models.Actor) (int, error) {
	var carsInUse []models.Car
	if err := s.db.Where("status = ?", models.CarStatusInUse).Find(&carsInUse).Error; err != nil {
		return 0, errors.NewInternalServerError(err, "Failed to get cars in use")
	}

	if len(carsInUse) > bulkWarnThreshold {
		logrus.Warnf("large bulk operation: end-all-trips affects %d cars", len(carsInUse))
	}

	if len(carsInUse) == 0 {
		return 0, nil
	}

	updated := 0
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var logs []models.ActivityLog

		for _, car := range carsInUse {
			// Re-check the snapshot row at write time: only cars still
			// inuse are released and logged.
			result := tx.Model(&models.Car{}).
				Where("id = ? AND status = ?", car.ID, models.CarStatusInUse).
				Updates(map[string]interface{}{
					"status":            models.CarStatusAvailable,
					"driver":            "",
					"registration_time": nil,
				})
			if result.Error != nil {
				return errors.NewInternalServerError(result.Error, "Failed to update car")
			}
			if result.RowsAffected == 0 {
				continue
			}

			logs = append(logs, models.ActivityLog{
				Action:             models.ActionDriverRemoved,
				CarID:              car.ID,
				CarNumber:          car.CarNumber,
				RegistrationNumber: car.RegistrationNumber,
				PreviousDriver:     strPtr(car.Driver),
				NewDriver:          strPtr(""),
				Note:               "Mass ending of trips",
				UserID:             actor.ResolveUserID(),
				IPAddress:          actor.IPAddress,
				UserAgent:          actor.UserAgent,
			})
			updated++
		}

		if len(logs) > 0 {
			if err := tx.Create(&logs).Error; err != nil {
				return errors.NewInternalServerError(err, "Failed to create activity logs")
			}
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	logrus.Infof("end-all-trips released %d cars", updated)
	return updated, nil
}

// DeleteCar removes a car and appends a car_deleted row carrying the
// car's last known identity. Log rows referencing the car are kept.
func (s *CarService) DeleteCar(carId string, actor models.Actor) error {
	carUUID, err := s.parseCarID(carId)
	if err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		car, txErr := s.lockCar(tx, carUUID)
		if txErr != nil {
			return txErr
		}

		if err := tx.Where("id = ?", car.ID).Delete(&models.Car{}).Error; err != nil {
			return errors.NewInternalServerError(err, "Failed to delete car")
		}

		log := s.newActivityLog(models.ActionCarDeleted, car, actor)
		log.PreviousDriver = strPtr(car.Driver)
		log.NewDriver = nil
		log.Note = "Car deleted from the system"

		if err := tx.Create(log).Error; err != nil {
			return errors.NewInternalServerError(err, "Failed to create activity log")
		}

		logrus.Infof("car deleted: number=%d registration=%s", car.CarNumber, car.RegistrationNumber)
		return nil
	})
}

// SeedCars replaces all cars with a fixed test fleet. Intended for demo
// environments; deliberately writes no activity log rows.
func (s *CarService) SeedCars() (int, error) {
	cars := seedCars()

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&models.Car{}).Error; err != nil {
			return errors.NewInternalServerError(err, "Failed to clear cars")
		}
		if err := tx.Create(&cars).Error; err != nil {
			return errors.NewInternalServerError(err, "Failed to seed cars")
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return len(cars), nil
}

func (s *CarService) newActivityLog(action models.ActivityAction, car *models.Car, actor models.Actor) *models.ActivityLog {
	return &models.ActivityLog{
		Action:             action,
		CarID:              car.ID,
		CarNumber:          car.CarNumber,
		RegistrationNumber: car.RegistrationNumber,
		UserID:             actor.ResolveUserID(),
		IPAddress:          actor.IPAddress,
		UserAgent:          actor.UserAgent,
	}
}
