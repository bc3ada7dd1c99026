package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nordfleet/fleet-core/internal/app/errors"
	"github.com/nordfleet/fleet-core/internal/app/models"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	defaultLogLimit = 100
	maxLogLimit     = 1000
)

// csvHeaders are the Norwegian column names used by the admin export.
var csvHeaders = []string{
	"Tidspunkt",
	"Handling",
	"Bil Nr",
	"Registreringsnr",
	"Tidligere Sjåfør",
	"Ny Sjåfør",
	"Notat",
	"Bruker",
	"IP-adresse",
}

var actionLabels = map[models.ActivityAction]string{
	models.ActionDriverAssigned:     "Ansatt tildelt",
	models.ActionDriverRemoved:      "Ansatt fjernet",
	models.ActionMaintenanceSet:     "Satt til vedlikehold",
	models.ActionMaintenanceCleared: "Fjernet fra vedlikehold",
	models.ActionCarAdded:           "Bil lagt til",
	models.ActionCarUpdated:         "Bil oppdatert",
	models.ActionCarDeleted:         "Bil slettet",
}

// ActivityService reads the append-only activity log. It never mutates
// log rows; writes happen only through CarService's transactions.
type ActivityService struct {
	db *gorm.DB
}

func NewActivityService(db *gorm.DB) *ActivityService {
	return &ActivityService{
		db: db,
	}
}

// buildQuery validates the filter and returns a query with all filter
// clauses applied, newest entries first.
func (s *ActivityService) buildQuery(filter *models.ActivityLogFilter) (*gorm.DB, error) {
	query := s.db.Model(&models.ActivityLog{})

	if filter.CarID != "" {
		carUUID, err := uuid.Parse(filter.CarID)
		if err != nil {
			return nil, errors.NewBadRequestError("Invalid car ID format")
		}
		query = query.Where("car_id = ?", carUUID)
	}

	if filter.StartDate != "" {
		start, err := time.Parse(time.RFC3339, filter.StartDate)
		if err != nil {
			return nil, errors.NewBadRequestError("Invalid start date format")
		}
		query = query.Where("timestamp >= ?", start)
	}

	if filter.EndDate != "" {
		end, err := time.Parse(time.RFC3339, filter.EndDate)
		if err != nil {
			return nil, errors.NewBadRequestError("Invalid end date format")
		}
		query = query.Where("timestamp <= ?", end)
	}

	if filter.Action != "" {
		action := models.ActivityAction(filter.Action)
		if !action.Valid() {
			return nil, errors.NewBadRequestError("Invalid action type")
		}
		query = query.Where("action = ?", action)
	}

	return query.Order("timestamp DESC"), nil
}

// GetLogs returns filtered log entries, newest first, bounded by the
// filter's limit (default 100, max 1000).
func (s *ActivityService) GetLogs(filter *models.ActivityLogFilter) ([]models.ActivityLog, error) {
	if filter.Limit < 0 || filter.Limit > maxLogLimit {
		return nil, errors.NewBadRequestError("Limit must be between 1 and 1000")
	}

	query, err := s.buildQuery(filter)
	if err != nil {
		return nil, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultLogLimit
	}

	var logs []models.ActivityLog
	if err := query.Limit(limit).Find(&logs).Error; err != nil {
		return nil, errors.NewInternalServerError(err, "Failed to get activity logs")
	}

	logrus.Infof("activity log query returned %d entries", len(logs))
	return logs, nil
}

// ExportCSV returns the full filtered log set as CSV text. The export
// ignores the limit filter and returns everything that matches.
func (s *ActivityService) ExportCSV(filter *models.ActivityLogFilter) (string, error) {
	query, err := s.buildQuery(filter)
	if err != nil {
		return "", err
	}

	var logs []models.ActivityLog
	if err := query.Find(&logs).Error; err != nil {
		return "", errors.NewInternalServerError(err, "Failed to get activity logs")
	}

	var b strings.Builder
	b.WriteString(strings.Join(csvHeaders, ","))

	for _, log := range logs {
		row := []string{
			log.Timestamp.Format("02.01.2006 15:04:05"),
			actionLabel(log.Action),
			fmt.Sprintf("%d", log.CarNumber),
			log.RegistrationNumber,
			driverOrDash(log.PreviousDriver),
			driverOrDash(log.NewDriver),
			log.Note,
			log.UserID,
			valueOrDash(log.IPAddress),
		}

		escaped := make([]string, len(row))
		for i, value := range row {
			escaped[i] = escapeCSVValue(value)
		}

		b.WriteString("\n")
		b.WriteString(strings.Join(escaped, ","))
	}

	logrus.Infof("activity log export contains %d entries", len(logs))
	return b.String(), nil
}

func actionLabel(action models.ActivityAction) string {
	if label, ok := actionLabels[action]; ok {
		return label
	}
	return string(action)
}

func driverOrDash(driver *string) string {
	if driver == nil || *driver == "" {
		return "-"
	}
	return *driver
}

func valueOrDash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}

// escapeCSVValue quotes a value containing a comma, quote or newline and
// doubles any internal quotes, per standard CSV escaping.
func escapeCSVValue(value string) string {
	if strings.ContainsAny(value, ",\"\n") {
		return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
	}
	return value
}
