package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/covoitsn/covoiturage-backend/internal/models"
	"github.com/covoitsn/covoiturage-backend/internal/services"
)

func notificationJSON(n *models.Notification) gin.H {
	return gin.H{
		"id":             n.ID,
		"message":        n.Message,
		"lu":             n.Read,
		"type":           n.Type,
		"reservation_id": n.ReservationID,
		"date":           n.CreatedAt.Format(datetimeLayout),
	}
}

// ListNotifications returns the caller's notifications, newest first
func ListNotifications(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")

		var notifications []models.Notification
		if err := db.Where("user_id = ?", userId).
			Order("created_at DESC").
			Find(&notifications).Error; err != nil {
			c.JSON(500, gin.H{"message": "Erreur lors de la récupération des notifications"})
			return
		}

		data := make([]gin.H, 0, len(notifications))
		for i := range notifications {
			data = append(data, notificationJSON(&notifications[i]))
		}
		c.JSON(200, gin.H{"total": len(data), "notifications": data})
	}
}

// ListUnreadNotifications returns the caller's unread notifications, newest
// first. The count is cached in Redis for the delivery side.
func ListUnreadNotifications(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")

		var notifications []models.Notification
		if err := db.Where("user_id = ? AND lue = ?", userId, false).
			Order("created_at DESC").
			Find(&notifications).Error; err != nil {
			c.JSON(500, gin.H{"message": "Erreur lors de la récupération des notifications"})
			return
		}

		data := make([]gin.H, 0, len(notifications))
		for i := range notifications {
			data = append(data, notificationJSON(&notifications[i]))
		}

		_ = services.SetUnreadCount(context.Background(), userId, int64(len(data)))

		c.JSON(200, gin.H{"non_lues": len(data), "notifications": data})
	}
}

// MarkNotificationRead marks one notification as read
func MarkNotificationRead(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")

		var notification models.Notification
		if err := db.First(&notification, c.Param("id")).Error; err != nil {
			c.JSON(404, gin.H{"message": "Notification introuvable"})
			return
		}

		if notification.UserID != userId {
			c.JSON(403, gin.H{"message": "Accès interdit"})
			return
		}

		if !notification.Read {
			notification.Read = true
			if err := db.Save(&notification).Error; err != nil {
				c.JSON(500, gin.H{"message": "Erreur lors de la mise à jour"})
				return
			}
			_ = services.InvalidateUnreadCount(context.Background(), userId)
		}

		c.JSON(200, gin.H{"message": "Notification marquée comme lue"})
	}
}

// MarkAllNotificationsRead marks every unread notification of the caller
func MarkAllNotificationsRead(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")

		result := db.Model(&models.Notification{}).
			Where("user_id = ? AND lue = ?", userId, false).
			Update("lue", true)
		if result.Error != nil {
			c.JSON(500, gin.H{"message": "Erreur lors de la mise à jour"})
			return
		}

		_ = services.InvalidateUnreadCount(context.Background(), userId)
		c.JSON(200, gin.H{
			"message":   "Toutes les notifications ont été marquées comme lues",
			"modifiees": result.RowsAffected,
		})
	}
}

// DeleteNotification removes one notification owned by the caller
func DeleteNotification(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")

		var notification models.Notification
		if err := db.First(&notification, c.Param("id")).Error; err != nil {
			c.JSON(404, gin.H{"message": "Notification introuvable"})
			return
		}

		if notification.UserID != userId {
			c.JSON(403, gin.H{"message": "Accès interdit"})
			return
		}

		if err := db.Delete(&notification).Error; err != nil {
			c.JSON(500, gin.H{"message": "Erreur lors de la suppression"})
			return
		}

		_ = services.InvalidateUnreadCount(context.Background(), userId)
		c.JSON(200, gin.H{"message": "Notification supprimée"})
	}
}
