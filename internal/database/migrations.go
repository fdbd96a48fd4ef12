package database

import (
	"gorm.io/gorm"

	"github.com/covoitsn/covoiturage-backend/internal/models"
)

func RunMigrations(db *gorm.DB) error {
	// Create tables if they don't exist
	err := db.AutoMigrate(
		&models.User{},
		&models.DriverLicense{},
		&models.Trip{},
		&models.Reservation{},
		&models.Notification{},
		&models.Message{},
		&models.Review{},
	)
	if err != nil {
		return err
	}

	// Constraints AutoMigrate does not manage
	if db.Dialector.Name() == "postgres" {
		db.Exec(`ALTER TABLE infos_conducteur DROP CONSTRAINT IF EXISTS infos_conducteur_statut_check`)
		if err := db.Exec(`ALTER TABLE infos_conducteur ADD CONSTRAINT infos_conducteur_statut_check CHECK (statut IN ('en_attente', 'valide', 'rejete'))`).Error; err != nil {
			return err
		}

		db.Exec(`ALTER TABLE reservations DROP CONSTRAINT IF EXISTS reservations_place_check`)
		if err := db.Exec(`ALTER TABLE reservations ADD CONSTRAINT reservations_place_check CHECK (place >= 1)`).Error; err != nil {
			return err
		}
	}

	return nil
}
