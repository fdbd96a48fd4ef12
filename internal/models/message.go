package models

import (
	"time"

	"gorm.io/gorm"
)

type Message struct {
	gorm.Model
	Content    string    `gorm:"column:contenue;not null" json:"contenue"`
	SentAt     time.Time `gorm:"column:date;not null" json:"-"`
	SenderID   uint      `gorm:"column:sendeur_id;not null;index" json:"sender_id"`
	Sender     User      `gorm:"foreignKey:SenderID" json:"-"`
	ReceiverID uint      `gorm:"column:receiver_id;not null;index" json:"receiver_id"`
	Receiver   User      `gorm:"foreignKey:ReceiverID" json:"-"`
}

func (Message) TableName() string {
	return "messages"
}
