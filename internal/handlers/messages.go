package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/covoitsn/covoiturage-backend/internal/models"
)

// SendMessage stores a direct message between two users
func SendMessage(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")

		var input struct {
			ReceiverID uint   `json:"destinataire" binding:"required"`
			Content    string `json:"contenu" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"message": "Destinataire et contenu requis"})
			return
		}

		if input.ReceiverID == userId {
			c.JSON(400, gin.H{"message": "Impossible de s'envoyer un message à soi-même"})
			return
		}

		var receiver models.User
		if err := db.First(&receiver, input.ReceiverID).Error; err != nil {
			c.JSON(404, gin.H{"message": "Destinataire introuvable"})
			return
		}

		message := models.Message{
			SenderID:   userId,
			ReceiverID: input.ReceiverID,
			Content:    input.Content,
			SentAt:     time.Now(),
		}
		if err := db.Create(&message).Error; err != nil {
			c.JSON(500, gin.H{"message": "Erreur lors de l'envoi du message"})
			return
		}

		c.JSON(201, gin.H{"message": "Message envoyé", "id": message.ID})
	}
}

// GetConversations returns one digest entry per correspondent, most recent
// exchange first.
func GetConversations(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")

		var messages []models.Message
		if err := db.Where("sendeur_id = ? OR receiver_id = ?", userId, userId).
			Order("date DESC").
			Find(&messages).Error; err != nil {
			c.JSON(500, gin.H{"message": "Erreur lors de la récupération des conversations"})
			return
		}

		seen := make(map[uint]bool)
		conversations := make([]gin.H, 0)
		for i := range messages {
			other := messages[i].SenderID
			if other == userId {
				other = messages[i].ReceiverID
			}
			if seen[other] {
				continue
			}
			seen[other] = true

			var correspondent models.User
			if err := db.First(&correspondent, other).Error; err != nil {
				continue
			}

			conversations = append(conversations, gin.H{
				"utilisateur": gin.H{
					"id":     correspondent.ID,
					"nom":    correspondent.Nom,
					"prenom": correspondent.Prenom,
					"photo":  correspondent.Photo,
				},
				"dernier_message": messages[i].Content,
				"date":            messages[i].SentAt.Format(datetimeLayout),
			})
		}

		c.JSON(200, gin.H{"total": len(conversations), "conversations": conversations})
	}
}

// GetConversation returns the full exchange with one correspondent,
// oldest first.
func GetConversation(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")
		otherId := c.Param("userId")

		var messages []models.Message
		if err := db.Where(
			"(sendeur_id = ? AND receiver_id = ?) OR (sendeur_id = ? AND receiver_id = ?)",
			userId, otherId, otherId, userId,
		).Order("date ASC").Find(&messages).Error; err != nil {
			c.JSON(500, gin.H{"message": "Erreur lors de la récupération des messages"})
			return
		}

		data := make([]gin.H, 0, len(messages))
		for i := range messages {
			data = append(data, gin.H{
				"id":           messages[i].ID,
				"contenu":      messages[i].Content,
				"sendeur":      messages[i].SenderID,
				"destinataire": messages[i].ReceiverID,
				"date":         messages[i].SentAt.Format(datetimeLayout),
			})
		}

		c.JSON(200, gin.H{"total": len(data), "messages": data})
	}
}
