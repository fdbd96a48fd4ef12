package models

import (
	"time"

	"gorm.io/gorm"
)

// ValidationStatus is the lifecycle of a driver-license submission.
type ValidationStatus string

const (
	ValidationPending  ValidationStatus = "en_attente"
	ValidationApproved ValidationStatus = "valide"
	ValidationRejected ValidationStatus = "rejete"
)

var validationLabels = map[ValidationStatus]string{
	ValidationPending:  "En attente",
	ValidationApproved: "Validé",
	ValidationRejected: "Rejeté",
}

// Label returns the display label for the status.
func (s ValidationStatus) Label() string {
	return validationLabels[s]
}

// Valid reports whether s is one of the recognized status tokens.
func (s ValidationStatus) Valid() bool {
	_, ok := validationLabels[s]
	return ok
}

// DriverLicense is a user's request to become a driver. At most one row per
// user exists at any time; a rejected row is deleted on resubmission.
type DriverLicense struct {
	gorm.Model
	UserID          uint             `gorm:"column:user_id;uniqueIndex;not null" json:"userId"`
	User            User             `json:"-"`
	LicenseNumber   string           `gorm:"column:numero_permis;not null" json:"numeropermis"`
	IssueDate       time.Time        `gorm:"column:date_emission;not null" json:"-"`
	IssuingCountry  string           `gorm:"column:pays_delivrance;not null" json:"payededelivrance"`
	Status          ValidationStatus `gorm:"column:statut;not null;default:'en_attente'" json:"statut"`
	DecidedAt       *time.Time       `gorm:"column:date_validation" json:"-"`
	DecidedByID     *uint            `gorm:"column:valide_par_id" json:"-"`
	DecidedBy       *User            `gorm:"foreignKey:DecidedByID" json:"-"`
	RejectionReason string           `gorm:"column:motif_rejet" json:"motif_rejet,omitempty"`
}

func (DriverLicense) TableName() string {
	return "infos_conducteur"
}

func (l *DriverLicense) IsPending() bool {
	return l.Status == ValidationPending
}

func (l *DriverLicense) IsApproved() bool {
	return l.Status == ValidationApproved
}

func (l *DriverLicense) IsRejected() bool {
	return l.Status == ValidationRejected
}
