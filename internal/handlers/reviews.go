package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/covoitsn/covoiturage-backend/internal/models"
)

func reviewJSON(review *models.Review) gin.H {
	return gin.H{
		"id":             review.ID,
		"utilisateur_id": review.UserID,
		"vote":           review.Vote,
		"commentaire":    review.Comment,
		"date":           review.Date.Format(datetimeLayout),
	}
}

// CreateReview records a rating left on a user
func CreateReview(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			UserID  uint   `json:"utilisateur" binding:"required"`
			Vote    *int   `json:"vote" binding:"required"`
			Comment string `json:"commentaire"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"message": "Utilisateur et vote requis"})
			return
		}

		if *input.Vote < 1 || *input.Vote > 5 {
			c.JSON(400, gin.H{"message": "Le vote doit être compris entre 1 et 5"})
			return
		}

		var target models.User
		if err := db.First(&target, input.UserID).Error; err != nil {
			c.JSON(404, gin.H{"message": "Utilisateur introuvable"})
			return
		}

		review := models.Review{
			UserID:  input.UserID,
			Vote:    *input.Vote,
			Comment: input.Comment,
			Date:    time.Now(),
		}
		if err := db.Create(&review).Error; err != nil {
			c.JSON(500, gin.H{"message": "Erreur lors de l'enregistrement de l'avis"})
			return
		}

		c.JSON(201, gin.H{"message": "Avis enregistré", "id": review.ID})
	}
}

// ListReviews returns every review, newest first
func ListReviews(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var reviews []models.Review
		if err := db.Order("date DESC").Find(&reviews).Error; err != nil {
			c.JSON(500, gin.H{"message": "Erreur lors de la récupération des avis"})
			return
		}

		data := make([]gin.H, 0, len(reviews))
		for i := range reviews {
			data = append(data, reviewJSON(&reviews[i]))
		}
		c.JSON(200, gin.H{"total": len(data), "avis": data})
	}
}

// ListUserReviews returns the reviews left on one user, newest first
func ListUserReviews(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var reviews []models.Review
		if err := db.Where("utilisateur_id = ?", c.Param("userId")).
			Order("date DESC").
			Find(&reviews).Error; err != nil {
			c.JSON(500, gin.H{"message": "Erreur lors de la récupération des avis"})
			return
		}

		var sum int
		data := make([]gin.H, 0, len(reviews))
		for i := range reviews {
			sum += reviews[i].Vote
			data = append(data, reviewJSON(&reviews[i]))
		}

		var average float64
		if len(reviews) > 0 {
			average = float64(sum) / float64(len(reviews))
		}

		c.JSON(200, gin.H{"total": len(data), "moyenne": average, "avis": data})
	}
}

// GetReview returns one review
func GetReview(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var review models.Review
		if err := db.First(&review, c.Param("id")).Error; err != nil {
			c.JSON(404, gin.H{"message": "Avis introuvable"})
			return
		}
		c.JSON(200, reviewJSON(&review))
	}
}

// UpdateReview changes the vote or comment of a review
func UpdateReview(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var review models.Review
		if err := db.First(&review, c.Param("id")).Error; err != nil {
			c.JSON(404, gin.H{"message": "Avis introuvable"})
			return
		}

		var input struct {
			Vote    *int    `json:"vote"`
			Comment *string `json:"commentaire"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"message": "Corps de requête invalide"})
			return
		}

		if input.Vote != nil {
			if *input.Vote < 1 || *input.Vote > 5 {
				c.JSON(400, gin.H{"message": "Le vote doit être compris entre 1 et 5"})
				return
			}
			review.Vote = *input.Vote
		}
		if input.Comment != nil {
			review.Comment = *input.Comment
		}

		if err := db.Save(&review).Error; err != nil {
			c.JSON(500, gin.H{"message": "Erreur lors de la mise à jour de l'avis"})
			return
		}

		c.JSON(200, gin.H{"message": "Avis mis à jour", "avis": reviewJSON(&review)})
	}
}

// DeleteReview removes a review, admin only
func DeleteReview(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var review models.Review
		if err := db.First(&review, c.Param("id")).Error; err != nil {
			c.JSON(404, gin.H{"message": "Avis introuvable"})
			return
		}

		if err := db.Delete(&review).Error; err != nil {
			c.JSON(500, gin.H{"message": "Erreur lors de la suppression de l'avis"})
			return
		}

		c.JSON(200, gin.H{"message": "Avis supprimé"})
	}
}
