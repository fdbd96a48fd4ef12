package handlers

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/covoitsn/covoiturage-backend/internal/models"
	"github.com/covoitsn/covoiturage-backend/pkg/utils"
)

// Register handles new user registration
func Register(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			Email     string `json:"email" binding:"required,email"`
			Password  string `json:"password" binding:"required,min=6"`
			Nom       string `json:"nom" binding:"required"`
			Prenom    string `json:"prenom" binding:"required"`
			Telephone string `json:"telephone"`
		}

		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"message": "Données d'inscription invalides"})
			return
		}

		email := strings.ToLower(strings.TrimSpace(input.Email))

		var count int64
		db.Model(&models.User{}).Where("email = ?", email).Count(&count)
		if count > 0 {
			c.JSON(400, gin.H{"message": "Un compte existe déjà avec cet email"})
			return
		}

		user := models.User{
			Email:       email,
			Password:    input.Password,
			Nom:         input.Nom,
			Prenom:      input.Prenom,
			Telephone:   input.Telephone,
			Roles:       models.RoleSet{},
			Inscription: time.Now(),
		}
		if err := user.HashPassword(); err != nil {
			c.JSON(500, gin.H{"message": "Erreur lors de la création du compte"})
			return
		}

		if err := db.Create(&user).Error; err != nil {
			c.JSON(500, gin.H{"message": "Erreur lors de la création du compte"})
			return
		}

		c.JSON(201, gin.H{
			"message": "Utilisateur créé avec succès",
			"user": gin.H{
				"id":     user.ID,
				"email":  user.Email,
				"nom":    user.Nom,
				"prenom": user.Prenom,
				"roles":  user.Roles.EffectiveRoles(),
			},
		})
	}
}

// Login authenticates a user and returns a JWT
func Login(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			Email    string `json:"email" binding:"required"`
			Password string `json:"password" binding:"required"`
		}

		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"message": "Email et mot de passe requis"})
			return
		}

		var user models.User
		if err := db.Where("email = ?", strings.ToLower(strings.TrimSpace(input.Email))).
			First(&user).Error; err != nil {
			c.JSON(401, gin.H{"message": "Identifiants invalides"})
			return
		}

		if err := user.CheckPassword(input.Password); err != nil {
			c.JSON(401, gin.H{"message": "Identifiants invalides"})
			return
		}

		token, err := utils.GenerateToken(&user)
		if err != nil {
			c.JSON(500, gin.H{"message": "Erreur lors de la génération du token"})
			return
		}

		c.JSON(200, gin.H{
			"token": token,
			"user": gin.H{
				"id":     user.ID,
				"email":  user.Email,
				"nom":    user.Nom,
				"prenom": user.Prenom,
				"photo":  user.Photo,
				"roles":  user.Roles.EffectiveRoles(),
			},
		})
	}
}

// Logout acknowledges a logout. Tokens are stateless, the client simply
// discards its copy.
func Logout() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "Déconnexion réussie"})
	}
}
