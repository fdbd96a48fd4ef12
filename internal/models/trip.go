package models

import (
	"time"

	"gorm.io/gorm"
)

type TripStatus string

const (
	TripStatusAvailable TripStatus = "disponible"
	TripStatusFull      TripStatus = "complet"
	TripStatusFinished  TripStatus = "termine"
	TripStatusCancelled TripStatus = "annule"
)

type Trip struct {
	gorm.Model
	DriverID       uint       `gorm:"column:conducteur_id;not null" json:"conducteur"`
	Driver         User       `gorm:"foreignKey:DriverID" json:"-"`
	Depart         string     `gorm:"column:depart;not null" json:"depart"`
	Arrivee        string     `gorm:"column:arrivee;not null" json:"arrivee"`
	Date           time.Time  `gorm:"column:date;not null" json:"-"`
	Heure          string     `gorm:"column:heure;not null" json:"heure"`
	DepartLat      float64    `gorm:"column:depart_lat" json:"departLat"`
	DepartLng      float64    `gorm:"column:depart_lng" json:"departLng"`
	ArriveeLat     float64    `gorm:"column:arrivee_lat" json:"arriveeLat"`
	ArriveeLng     float64    `gorm:"column:arrivee_lng" json:"arriveeLng"`
	Prix           float64    `gorm:"column:prix;not null" json:"prix"`
	SeatsAvailable int        `gorm:"column:places_disponibles;not null;default:4" json:"placesDisponibles"`
	Status         TripStatus `gorm:"column:statut;not null;default:'disponible'" json:"statut"`
}

func (Trip) TableName() string {
	return "trajets"
}
