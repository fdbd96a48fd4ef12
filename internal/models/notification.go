package models

import (
	"gorm.io/gorm"
)

// Notification event types emitted by the reservation engine.
const (
	NotificationGeneral             = "general"
	NotificationReservationRequest  = "reservation_demande"
	NotificationReservationAccepted = "reservation_acceptee"
	NotificationReservationRefused  = "reservation_refusee"
	NotificationReservationCanceled = "reservation_annulee"
)

type Notification struct {
	gorm.Model
	UserID        uint   `gorm:"column:user_id;not null;index" json:"userId"`
	User          User   `json:"-"`
	Message       string `gorm:"column:contenue;not null" json:"message"`
	Read          bool   `gorm:"column:lue;not null;default:false" json:"lu"`
	Type          string `gorm:"column:type;not null;default:'general'" json:"type"`
	ReservationID *uint  `gorm:"column:reservation_id" json:"reservation_id"`
}

func (Notification) TableName() string {
	return "notifications"
}
