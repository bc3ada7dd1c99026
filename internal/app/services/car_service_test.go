package services

import (
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	appErrors "github.com/nordfleet/fleet-core/internal/app/errors"
	"github.com/nordfleet/fleet-core/internal/app/models"
	"github.com/nordfleet/fleet-core/internal/app/pkg"
	"github.com/nordfleet/fleet-core/internal/infrastructures"
)

func newCarServiceMock(t *testing.T) (*CarService, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	gdb, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 db,
		PreferSimpleProtocol: true,
	}), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	infrastructures.LoadConfig()
	return NewCarService(gdb, infrastructures.NewValidator(), infrastructures.NewSanitizer()), mock
}

func carColumns() []string {
	return []string{
		"id", "car_number", "registration_number", "phone_number",
		"driver", "note", "registration_time", "status", "created_at", "updated_at",
	}
}

func carRow(id uuid.UUID, carNumber int, regNumber, driver string, status models.CarStatus) *sqlmock.Rows {
	var regTime interface{}
	if status == models.CarStatusInUse {
		regTime = time.Now()
	}
	return sqlmock.NewRows(carColumns()).
		AddRow(id.String(), carNumber, regNumber, "480 12 345", driver, "", regTime, string(status), time.Now(), time.Now())
}

func statusCode(t *testing.T, err error) int {
	t.Helper()
	var appErr *appErrors.AppError
	require.ErrorAs(t, err, &appErr)
	return appErr.StatusCode
}

func TestUpdateDriverAssignsDriver(t *testing.T) {
	service, mock := newCarServiceMock(t)
	carID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM "cars" WHERE id =`).
		WillReturnRows(carRow(carID, 39, "AB12345", "", models.CarStatusAvailable))
	mock.ExpectExec(`UPDATE "cars" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO "activity_logs"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "timestamp"}).AddRow(uuid.NewString(), time.Now()))
	mock.ExpectCommit()

	car, err := service.UpdateDriver(carID.String(), &models.DriverUpdateRequest{
		Driver: "Ola Nordmann",
	}, models.Actor{})

	require.NoError(t, err)
	assert.Equal(t, models.CarStatusInUse, car.Status)
	assert.NotNil(t, car.RegistrationTime)
	assert.Equal(t, "Ola Nordmann", car.Driver)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateDriverMaintenanceNote(t *testing.T) {
	service, mock := newCarServiceMock(t)
	carID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM "cars" WHERE id =`).
		WillReturnRows(carRow(carID, 40, "CD67890", "Kari", models.CarStatusInUse))
	mock.ExpectExec(`UPDATE "cars" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO "activity_logs"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "timestamp"}).AddRow(uuid.NewString(), time.Now()))
	mock.ExpectCommit()

	car, err := service.UpdateDriver(carID.String(), &models.DriverUpdateRequest{
		Driver: "",
		Note:   "Ødelagt bremser",
	}, models.Actor{})

	require.NoError(t, err)
	assert.Equal(t, models.CarStatusMaintenance, car.Status)
	assert.Nil(t, car.RegistrationTime)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// The vehicle update must not survive a failed log append.
func TestUpdateDriverRollsBackWhenLogFails(t *testing.T) {
	service, mock := newCarServiceMock(t)
	carID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM "cars" WHERE id =`).
		WillReturnRows(carRow(carID, 39, "AB12345", "", models.CarStatusAvailable))
	mock.ExpectExec(`UPDATE "cars" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO "activity_logs"`).
		WillReturnError(errors.New("log insert failed"))
	mock.ExpectRollback()

	_, err := service.UpdateDriver(carID.String(), &models.DriverUpdateRequest{
		Driver: "Ola Nordmann",
	}, models.Actor{})

	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateDriverCarNotFound(t *testing.T) {
	service, mock := newCarServiceMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM "cars" WHERE id =`).
		WillReturnRows(sqlmock.NewRows(carColumns()))
	mock.ExpectRollback()

	_, err := service.UpdateDriver(uuid.NewString(), &models.DriverUpdateRequest{
		Driver: "Ola Nordmann",
	}, models.Actor{})

	assert.Equal(t, 404, statusCode(t, err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateDriverInvalidID(t *testing.T) {
	service, mock := newCarServiceMock(t)

	_, err := service.UpdateDriver("not-a-uuid", &models.DriverUpdateRequest{}, models.Actor{})

	assert.Equal(t, 400, statusCode(t, err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// A duplicate car number is a Conflict and must not write anything.
func TestCreateCarDuplicateNumberConflict(t *testing.T) {
	service, mock := newCarServiceMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM "cars" WHERE car_number =`).
		WillReturnRows(carRow(uuid.New(), 39, "AB12345", "", models.CarStatusAvailable))
	mock.ExpectRollback()

	_, err := service.CreateCar(&models.CarCreateRequest{
		CarNumber:          39,
		RegistrationNumber: "ZZ99999",
		PhoneNumber:        "480 99 999",
	}, models.Actor{})

	assert.Equal(t, 409, statusCode(t, err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateCarSuccess(t *testing.T) {
	service, mock := newCarServiceMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM "cars" WHERE car_number =`).
		WillReturnRows(sqlmock.NewRows(carColumns()))
	mock.ExpectQuery(`SELECT (.+) FROM "cars" WHERE registration_number =`).
		WillReturnRows(sqlmock.NewRows(carColumns()))
	mock.ExpectQuery(`INSERT INTO "cars"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.NewString()))
	mock.ExpectQuery(`INSERT INTO "activity_logs"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "timestamp"}).AddRow(uuid.NewString(), time.Now()))
	mock.ExpectCommit()

	car, err := service.CreateCar(&models.CarCreateRequest{
		CarNumber:          46,
		RegistrationNumber: "OP12345",
		PhoneNumber:        "480 89 012",
		Driver:             "<b>Ola Nordmann</b>",
	}, models.Actor{UserID: "admin"})

	require.NoError(t, err)
	assert.Equal(t, models.CarStatusAvailable, car.Status)
	// Markup is stripped before persistence
	assert.Equal(t, "Ola Nordmann", car.Driver)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateCarValidationFailed(t *testing.T) {
	service, mock := newCarServiceMock(t)

	_, err := service.CreateCar(&models.CarCreateRequest{
		CarNumber:          39,
		RegistrationNumber: "lowercase-reg",
		PhoneNumber:        "480 99 999",
	}, models.Actor{})

	assert.Equal(t, 400, statusCode(t, err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEndAllTripsReleasesOnlyCarsInUse(t *testing.T) {
	service, mock := newCarServiceMock(t)

	first := uuid.New()
	second := uuid.New()
	rows := sqlmock.NewRows(carColumns()).
		AddRow(first.String(), 39, "AB12345", "480 12 345", "Ola Nordmann", "", time.Now(), "inuse", time.Now(), time.Now()).
		AddRow(second.String(), 42, "GH67890", "480 45 678", "Per Hansen", "", time.Now(), "inuse", time.Now(), time.Now())

	mock.ExpectQuery(`SELECT (.+) FROM "cars" WHERE status =`).
		WillReturnRows(rows)
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "cars" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE "cars" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO "activity_logs"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "timestamp"}).
			AddRow(uuid.NewString(), time.Now()).
			AddRow(uuid.NewString(), time.Now()))
	mock.ExpectCommit()

	count, err := service.EndAllTrips(models.Actor{UserID: "admin"})

	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// A snapshot row that changed status concurrently is skipped without
// failing the batch or logging for it.
func TestEndAllTripsSkipsConcurrentlyChangedCar(t *testing.T) {
	service, mock := newCarServiceMock(t)

	first := uuid.New()
	second := uuid.New()
	rows := sqlmock.NewRows(carColumns()).
		AddRow(first.String(), 39, "AB12345", "480 12 345", "Ola Nordmann", "", time.Now(), "inuse", time.Now(), time.Now()).
		AddRow(second.String(), 42, "GH67890", "480 45 678", "Per Hansen", "", time.Now(), "inuse", time.Now(), time.Now())

	mock.ExpectQuery(`SELECT (.+) FROM "cars" WHERE status =`).
		WillReturnRows(rows)
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "cars" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE "cars" SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`INSERT INTO "activity_logs"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "timestamp"}).AddRow(uuid.NewString(), time.Now()))
	mock.ExpectCommit()

	count, err := service.EndAllTrips(models.Actor{})

	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEndAllTripsNoCarsInUse(t *testing.T) {
	service, mock := newCarServiceMock(t)

	mock.ExpectQuery(`SELECT (.+) FROM "cars" WHERE status =`).
		WillReturnRows(sqlmock.NewRows(carColumns()))

	count, err := service.EndAllTrips(models.Actor{})

	require.NoError(t, err)
	assert.Equal(t, 0, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Setting maintenance twice must succeed both times, leave the car in
// maintenance after each call, and append a log row per call.
func TestSetMaintenanceIsIdempotent(t *testing.T) {
	service, mock := newCarServiceMock(t)
	carID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM "cars" WHERE id =`).
		WillReturnRows(carRow(carID, 41, "EF11223", "Kari Olsen", models.CarStatusInUse))
	mock.ExpectExec(`UPDATE "cars" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// The log row snapshots the driver that was on the car before the call
	mock.ExpectQuery(`INSERT INTO "activity_logs"`).
		WithArgs("maintenance_set", carID.String(), 41, "EF11223",
			"Kari Olsen", "", "Service på verksted", "admin", "", "").
		WillReturnRows(sqlmock.NewRows([]string{"id", "timestamp"}).AddRow(uuid.NewString(), time.Now()))
	mock.ExpectCommit()

	car, err := service.SetMaintenance(carID.String(), &models.MaintenanceRequest{
		Note: "Service på verksted",
	}, models.Actor{UserID: "admin"})

	require.NoError(t, err)
	assert.Equal(t, models.CarStatusMaintenance, car.Status)
	assert.Empty(t, car.Driver)
	assert.Nil(t, car.RegistrationTime)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM "cars" WHERE id =`).
		WillReturnRows(carRow(carID, 41, "EF11223", "", models.CarStatusMaintenance))
	mock.ExpectExec(`UPDATE "cars" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO "activity_logs"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "timestamp"}).AddRow(uuid.NewString(), time.Now()))
	mock.ExpectCommit()

	car, err = service.SetMaintenance(carID.String(), &models.MaintenanceRequest{
		Note: "Service på verksted",
	}, models.Actor{UserID: "admin"})

	require.NoError(t, err)
	assert.Equal(t, models.CarStatusMaintenance, car.Status)
	assert.Empty(t, car.Driver)
	assert.Nil(t, car.RegistrationTime)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetMaintenanceRollsBackWhenLogFails(t *testing.T) {
	service, mock := newCarServiceMock(t)
	carID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM "cars" WHERE id =`).
		WillReturnRows(carRow(carID, 41, "EF11223", "Kari Olsen", models.CarStatusInUse))
	mock.ExpectExec(`UPDATE "cars" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO "activity_logs"`).
		WillReturnError(errors.New("log insert failed"))
	mock.ExpectRollback()

	_, err := service.SetMaintenance(carID.String(), &models.MaintenanceRequest{
		Note: "Service på verksted",
	}, models.Actor{})

	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateCarExpiredSignature(t *testing.T) {
	service, mock := newCarServiceMock(t)

	stale := time.Now().Add(-10 * time.Minute).UnixMilli()
	signature := "deadbeef"
	newNumber := 77

	_, err := service.UpdateCar(uuid.NewString(), &models.CarUpdateRequest{
		CarNumber: &newNumber,
		Signature: &signature,
		Timestamp: &stale,
	}, models.Actor{})

	assert.Equal(t, 400, statusCode(t, err))
	assert.Contains(t, err.Error(), "expired")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateCarInvalidSignature(t *testing.T) {
	service, mock := newCarServiceMock(t)

	now := time.Now().UnixMilli()
	signature := "0000000000000000000000000000000000000000000000000000000000000000"
	newNumber := 77

	_, err := service.UpdateCar(uuid.NewString(), &models.CarUpdateRequest{
		CarNumber: &newNumber,
		Signature: &signature,
		Timestamp: &now,
	}, models.Actor{})

	assert.Equal(t, 403, statusCode(t, err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateCarValidSignature(t *testing.T) {
	service, mock := newCarServiceMock(t)
	carID := uuid.New()

	newNumber := 77
	timestamp := time.Now().UnixMilli()
	signature, err := pkg.SignData(models.CarUpdateSignaturePayload{
		ID:        carID.String(),
		CarNumber: &newNumber,
		Timestamp: timestamp,
	}, infrastructures.Config.DATA_SIGNING_SECRET)
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM "cars" WHERE id =`).
		WillReturnRows(carRow(carID, 39, "AB12345", "", models.CarStatusAvailable))
	mock.ExpectQuery(`SELECT (.+) FROM "cars" WHERE car_number =`).
		WillReturnRows(sqlmock.NewRows(carColumns()))
	mock.ExpectExec(`UPDATE "cars" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO "activity_logs"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "timestamp"}).AddRow(uuid.NewString(), time.Now()))
	mock.ExpectCommit()

	car, err := service.UpdateCar(carID.String(), &models.CarUpdateRequest{
		CarNumber: &newNumber,
		Signature: &signature,
		Timestamp: &timestamp,
	}, models.Actor{UserID: "admin"})

	require.NoError(t, err)
	assert.Equal(t, 77, car.CarNumber)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteCarNotFound(t *testing.T) {
	service, mock := newCarServiceMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM "cars" WHERE id =`).
		WillReturnRows(sqlmock.NewRows(carColumns()))
	mock.ExpectRollback()

	err := service.DeleteCar(uuid.NewString(), models.Actor{})

	assert.Equal(t, 404, statusCode(t, err))
	assert.NoError(t, mock.ExpectationsWereMet())
}
