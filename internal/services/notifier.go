package services

import (
	"context"
	"log"

	"gorm.io/gorm"

	"github.com/covoitsn/covoiturage-backend/internal/models"
)

// Notifier is the notification sink. Notify persists the notification row
// synchronously, then fans the event out over Redis pub/sub and the
// WebSocket hub. Fan-out is best effort: a delivery failure never rolls
// back the state change that triggered the notification.
type Notifier struct {
	db  *gorm.DB
	hub *Hub
}

func NewNotifier(db *gorm.DB, hub *Hub) *Notifier {
	return &Notifier{db: db, hub: hub}
}

// Notify records a notification for userID and pushes it to delivery channels.
func (n *Notifier) Notify(userID uint, message string, reservationID *uint, notificationType string) error {
	notification := models.Notification{
		UserID:        userID,
		Message:       message,
		Type:          notificationType,
		ReservationID: reservationID,
	}

	if err := n.db.Create(&notification).Error; err != nil {
		return err
	}

	go func() {
		ctx := context.Background()
		if err := PublishNotification(ctx, userID, notification.ID, notificationType, message); err != nil {
			log.Printf("Failed to publish notification %d: %v", notification.ID, err)
		}
		if err := InvalidateUnreadCount(ctx, userID); err != nil {
			log.Printf("Failed to invalidate unread count for user %d: %v", userID, err)
		}
		if n.hub != nil {
			n.hub.SendNotification(userID, NotificationEvent{
				NotificationID: notification.ID,
				Message:        message,
				ReservationID:  reservationID,
				EventType:      notificationType,
			})
		}
	}()

	return nil
}
