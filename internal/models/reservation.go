package models

import (
	"gorm.io/gorm"
)

// ReservationStatus is the lifecycle of a seat reservation.
type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "en_attente" // demande envoyée
	ReservationAccepted  ReservationStatus = "acceptee"   // conducteur accepte
	ReservationRefused   ReservationStatus = "refusee"
	ReservationPaid      ReservationStatus = "payee" // reserved for the payment flow, never set today
	ReservationCancelled ReservationStatus = "annulee"
	ReservationCompleted ReservationStatus = "terminee" // trajet fini
)

// ActiveReservationStatuses are the statuses that count against trip
// capacity and block a duplicate booking by the same passenger.
var ActiveReservationStatuses = []ReservationStatus{
	ReservationPending,
	ReservationAccepted,
	ReservationPaid,
}

// IsTerminal reports whether the status has no outgoing transition.
func (s ReservationStatus) IsTerminal() bool {
	switch s {
	case ReservationRefused, ReservationCancelled, ReservationCompleted:
		return true
	}
	return false
}

type Reservation struct {
	gorm.Model
	PassengerID uint              `gorm:"column:utilisateur_id;not null;index" json:"utilisateur"`
	Passenger   User              `gorm:"foreignKey:PassengerID" json:"-"`
	TripID      uint              `gorm:"column:trajet_id;not null;index" json:"trajet_id"`
	Trip        Trip              `gorm:"foreignKey:TripID" json:"-"`
	Seats       int               `gorm:"column:place;not null" json:"place"`
	Status      ReservationStatus `gorm:"column:statut;not null;default:'en_attente'" json:"statut"`
}

func (Reservation) TableName() string {
	return "reservations"
}
