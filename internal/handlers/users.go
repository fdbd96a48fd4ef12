package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/covoitsn/covoiturage-backend/internal/models"
	"github.com/covoitsn/covoiturage-backend/internal/services"
)

func userJSON(user *models.User) gin.H {
	return gin.H{
		"id":               user.ID,
		"email":            user.Email,
		"nom":              user.Nom,
		"prenom":           user.Prenom,
		"telephone":        user.Telephone,
		"photo":            user.Photo,
		"roles":            user.Roles.EffectiveRoles(),
		"date_inscription": user.Inscription.Format(datetimeLayout),
	}
}

// GetMe returns the authenticated user's profile
func GetMe(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")

		var user models.User
		if err := db.First(&user, userId).Error; err != nil {
			c.JSON(404, gin.H{"message": "Utilisateur introuvable"})
			return
		}

		c.JSON(200, userJSON(&user))
	}
}

// UpdateMe applies a partial update to the authenticated user's profile
func UpdateMe(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")

		var user models.User
		if err := db.First(&user, userId).Error; err != nil {
			c.JSON(404, gin.H{"message": "Utilisateur introuvable"})
			return
		}

		var input struct {
			Nom       *string `json:"nom"`
			Prenom    *string `json:"prenom"`
			Telephone *string `json:"telephone"`
			Password  *string `json:"password"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"message": "Corps de requête invalide"})
			return
		}

		if input.Nom != nil {
			user.Nom = *input.Nom
		}
		if input.Prenom != nil {
			user.Prenom = *input.Prenom
		}
		if input.Telephone != nil {
			user.Telephone = *input.Telephone
		}
		if input.Password != nil {
			if len(*input.Password) < 6 {
				c.JSON(400, gin.H{"message": "Le mot de passe doit contenir au moins 6 caractères"})
				return
			}
			user.Password = *input.Password
			if err := user.HashPassword(); err != nil {
				c.JSON(500, gin.H{"message": "Erreur lors de la mise à jour du profil"})
				return
			}
		}

		if err := db.Save(&user).Error; err != nil {
			c.JSON(500, gin.H{"message": "Erreur lors de la mise à jour du profil"})
			return
		}

		c.JSON(200, gin.H{"message": "Profil mis à jour", "user": userJSON(&user)})
	}
}

// UploadPhoto stores a profile picture and records its URL on the user
func UploadPhoto(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")

		var user models.User
		if err := db.First(&user, userId).Error; err != nil {
			c.JSON(404, gin.H{"message": "Utilisateur introuvable"})
			return
		}

		file, err := c.FormFile("photo")
		if err != nil {
			c.JSON(400, gin.H{"message": "Aucune photo fournie"})
			return
		}

		ext := strings.ToLower(file.Filename)
		if !strings.HasSuffix(ext, ".jpg") && !strings.HasSuffix(ext, ".jpeg") &&
			!strings.HasSuffix(ext, ".png") && !strings.HasSuffix(ext, ".webp") {
			c.JSON(400, gin.H{"message": "Format d'image non supporté"})
			return
		}

		url, err := services.UploadImage(file, "photos")
		if err != nil {
			c.JSON(500, gin.H{"message": "Erreur lors de l'envoi de la photo"})
			return
		}

		user.Photo = url
		if err := db.Save(&user).Error; err != nil {
			c.JSON(500, gin.H{"message": "Erreur lors de l'enregistrement de la photo"})
			return
		}

		c.JSON(200, gin.H{"message": "Photo mise à jour", "photo": url})
	}
}

// ListUsers returns every non admin account
func ListUsers(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var users []models.User
		if err := db.Order("id ASC").Find(&users).Error; err != nil {
			c.JSON(500, gin.H{"message": "Erreur lors de la récupération des utilisateurs"})
			return
		}

		data := make([]gin.H, 0, len(users))
		for i := range users {
			if users[i].IsAdmin() {
				continue
			}
			data = append(data, userJSON(&users[i]))
		}
		c.JSON(200, gin.H{"total": len(data), "utilisateurs": data})
	}
}

// ListSimpleUsers returns accounts that are neither drivers nor admins
func ListSimpleUsers(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var users []models.User
		if err := db.Order("id ASC").Find(&users).Error; err != nil {
			c.JSON(500, gin.H{"message": "Erreur lors de la récupération des utilisateurs"})
			return
		}

		data := make([]gin.H, 0, len(users))
		for i := range users {
			if users[i].IsAdmin() || users[i].IsDriver() {
				continue
			}
			data = append(data, userJSON(&users[i]))
		}
		c.JSON(200, gin.H{"total": len(data), "utilisateurs": data})
	}
}

// ListDrivers returns accounts holding the driver role
func ListDrivers(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var users []models.User
		if err := db.Order("id ASC").Find(&users).Error; err != nil {
			c.JSON(500, gin.H{"message": "Erreur lors de la récupération des utilisateurs"})
			return
		}

		data := make([]gin.H, 0, len(users))
		for i := range users {
			if !users[i].IsDriver() {
				continue
			}
			data = append(data, userJSON(&users[i]))
		}
		c.JSON(200, gin.H{"total": len(data), "conducteurs": data})
	}
}

// SearchUsers searches accounts by name or email fragment
func SearchUsers(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		q := strings.TrimSpace(c.Query("q"))
		if q == "" {
			c.JSON(400, gin.H{"message": "Paramètre de recherche requis"})
			return
		}

		pattern := "%" + strings.ToLower(q) + "%"
		var users []models.User
		if err := db.Where(
			"LOWER(nom) LIKE ? OR LOWER(prenom) LIKE ? OR LOWER(email) LIKE ?",
			pattern, pattern, pattern,
		).Order("id ASC").Find(&users).Error; err != nil {
			c.JSON(500, gin.H{"message": "Erreur lors de la recherche"})
			return
		}

		data := make([]gin.H, 0, len(users))
		for i := range users {
			data = append(data, userJSON(&users[i]))
		}
		c.JSON(200, gin.H{"total": len(data), "utilisateurs": data})
	}
}

// Statistics returns platform wide counters for the admin dashboard
func Statistics(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var totalUsers, totalTrips, totalReservations, pendingRequests int64

		db.Model(&models.User{}).Count(&totalUsers)
		db.Model(&models.Trip{}).Count(&totalTrips)
		db.Model(&models.Reservation{}).Count(&totalReservations)
		db.Model(&models.DriverLicense{}).
			Where("statut = ?", models.ValidationPending).
			Count(&pendingRequests)

		var users []models.User
		db.Find(&users)
		var drivers int64
		for i := range users {
			if users[i].IsDriver() {
				drivers++
			}
		}

		c.JSON(200, gin.H{
			"utilisateurs":        totalUsers,
			"conducteurs":         drivers,
			"trajets":             totalTrips,
			"reservations":        totalReservations,
			"demandes_en_attente": pendingRequests,
		})
	}
}
