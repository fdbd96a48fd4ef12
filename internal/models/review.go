package models

import (
	"time"

	"gorm.io/gorm"
)

// Review is a rating left on a user ("avis" in the API).
type Review struct {
	gorm.Model
	UserID  uint      `gorm:"column:utilisateur_id;not null;index" json:"utilisateur_id"`
	User    User      `json:"-"`
	Vote    int       `gorm:"column:vote;not null" json:"vote"`
	Comment string    `gorm:"column:commentaire" json:"commentaire"`
	Date    time.Time `gorm:"column:date;not null" json:"-"`
}

func (Review) TableName() string {
	return "avis"
}
