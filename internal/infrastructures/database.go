package infrastructures

import (
	"github.com/nordfleet/fleet-core/internal/app/models"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func NewDatabase() *gorm.DB {
	db, err := gorm.Open(postgres.Open(Config.DATABASE_URL), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		logrus.Fatalf("failed to connect database: %v", err)
	}

	if err := db.AutoMigrate(&models.Car{}, &models.ActivityLog{}); err != nil {
		logrus.Fatalf("failed to migrate database: %v", err)
	}

	return db
}
