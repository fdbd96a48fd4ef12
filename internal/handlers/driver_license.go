package handlers

import (
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/covoitsn/covoiturage-backend/internal/models"
)

const (
	dateLayout     = "2006-01-02"
	datetimeLayout = "2006-01-02 15:04:05"
)

// SubmitLicense handles a user's request to become a driver. A rejected
// submission is deleted first so the user can resubmit; a pending or
// validated one blocks the new request.
func SubmitLicense(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")

		var input struct {
			LicenseNumber  string `json:"numeropermis"`
			IssueDate      string `json:"dateemission"`
			IssuingCountry string `json:"payededelivrance"`
		}

		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"message": "Tous les champs sont requis"})
			return
		}
		if input.LicenseNumber == "" || input.IssueDate == "" || input.IssuingCountry == "" {
			c.JSON(400, gin.H{"message": "Tous les champs sont requis"})
			return
		}

		issueDate, err := time.Parse(dateLayout, input.IssueDate)
		if err != nil {
			c.JSON(400, gin.H{"message": "Format de date invalide (Y-m-d)"})
			return
		}

		var existing models.DriverLicense
		err = db.Where("user_id = ?", userId).First(&existing).Error
		if err == nil {
			switch {
			case existing.IsPending():
				c.JSON(400, gin.H{"message": "Vous avez déjà une demande en attente de validation"})
				return
			case existing.IsApproved():
				c.JSON(400, gin.H{"message": "Vous êtes déjà conducteur validé"})
				return
			case existing.IsRejected():
				if err := db.Unscoped().Delete(&existing).Error; err != nil {
					c.JSON(500, gin.H{"message": "Erreur lors de la suppression de l'ancienne demande"})
					return
				}
			}
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(500, gin.H{"message": "Erreur interne"})
			return
		}

		license := models.DriverLicense{
			UserID:         userId,
			LicenseNumber:  input.LicenseNumber,
			IssueDate:      issueDate,
			IssuingCountry: input.IssuingCountry,
			Status:         models.ValidationPending,
		}

		if err := db.Create(&license).Error; err != nil {
			c.JSON(500, gin.H{"message": "Erreur lors de la création de la demande"})
			return
		}

		c.JSON(201, gin.H{
			"message": "Demande soumise avec succès. En attente de validation par un administrateur.",
			"infos_conducteur": gin.H{
				"id":               license.ID,
				"numeropermis":     license.LicenseNumber,
				"dateemission":     license.IssueDate.Format(dateLayout),
				"payededelivrance": license.IssuingCountry,
				"statut":           license.Status,
				"statut_label":     license.Status.Label(),
				"created_at":       license.CreatedAt.Format(datetimeLayout),
			},
		})
	}
}

// ListLicenseRequests lists all driver submissions for an admin, most
// recent first, optionally filtered by status.
func ListLicenseRequests(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		statusFilter := c.Query("statut")

		query := db.Preload("User").Preload("DecidedBy").Order("created_at DESC")
		if statusFilter != "" {
			status := models.ValidationStatus(statusFilter)
			if !status.Valid() {
				c.JSON(400, gin.H{"message": "Statut invalide"})
				return
			}
			query = query.Where("statut = ?", status)
		}

		var licenses []models.DriverLicense
		if err := query.Find(&licenses).Error; err != nil {
			c.JSON(500, gin.H{"message": "Erreur lors de la récupération des demandes"})
			return
		}

		result := make([]gin.H, 0, len(licenses))
		for i := range licenses {
			license := &licenses[i]
			item := gin.H{
				"id":               license.ID,
				"numeropermis":     license.LicenseNumber,
				"dateemission":     license.IssueDate.Format(dateLayout),
				"payededelivrance": license.IssuingCountry,
				"statut":           license.Status,
				"statut_label":     license.Status.Label(),
				"created_at":       license.CreatedAt.Format(datetimeLayout),
				"utilisateur": gin.H{
					"id":        license.User.ID,
					"nom":       license.User.Nom,
					"prenom":    license.User.Prenom,
					"email":     license.User.Email,
					"telephone": license.User.Telephone,
				},
			}
			if license.DecidedAt != nil {
				item["date_validation"] = license.DecidedAt.Format(datetimeLayout)
			}
			if license.DecidedBy != nil {
				item["valide_par"] = gin.H{
					"id":     license.DecidedBy.ID,
					"nom":    license.DecidedBy.Nom,
					"prenom": license.DecidedBy.Prenom,
				}
			}
			if license.RejectionReason != "" {
				item["motif_rejet"] = license.RejectionReason
			}
			result = append(result, item)
		}

		c.JSON(200, gin.H{
			"total":    len(result),
			"demandes": result,
		})
	}
}

// GetLicenseRequest returns the full detail of one submission for an admin
func GetLicenseRequest(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var license models.DriverLicense
		if err := db.Preload("User").Preload("DecidedBy").First(&license, c.Param("id")).Error; err != nil {
			c.JSON(404, gin.H{"message": "Demande non trouvée"})
			return
		}

		response := gin.H{
			"id":               license.ID,
			"numeropermis":     license.LicenseNumber,
			"dateemission":     license.IssueDate.Format(dateLayout),
			"payededelivrance": license.IssuingCountry,
			"statut":           license.Status,
			"statut_label":     license.Status.Label(),
			"created_at":       license.CreatedAt.Format(datetimeLayout),
			"updated_at":       license.UpdatedAt.Format(datetimeLayout),
			"utilisateur": gin.H{
				"id":        license.User.ID,
				"nom":       license.User.Nom,
				"prenom":    license.User.Prenom,
				"email":     license.User.Email,
				"telephone": license.User.Telephone,
			},
		}
		if license.DecidedAt != nil {
			response["date_validation"] = license.DecidedAt.Format(datetimeLayout)
		}
		if license.DecidedBy != nil {
			response["valide_par"] = gin.H{
				"id":     license.DecidedBy.ID,
				"nom":    license.DecidedBy.Nom,
				"prenom": license.DecidedBy.Prenom,
				"email":  license.DecidedBy.Email,
			}
		}
		if license.RejectionReason != "" {
			response["motif_rejet"] = license.RejectionReason
		}

		c.JSON(200, response)
	}
}

// errAlreadyDecided signals that the pending-status guard failed.
var errAlreadyDecided = errors.New("license already decided")

// decideLicense applies a decision to a pending submission. The status guard
// runs as a conditional UPDATE so two concurrent admin decisions cannot both
// apply; the loser sees zero affected rows.
func decideLicense(tx *gorm.DB, licenseID uint, adminID uint, status models.ValidationStatus, reason string) (bool, error) {
	now := time.Now()
	result := tx.Model(&models.DriverLicense{}).
		Where("id = ? AND statut = ?", licenseID, models.ValidationPending).
		Updates(map[string]interface{}{
			"statut":          status,
			"date_validation": now,
			"valide_par_id":   adminID,
			"motif_rejet":     reason,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// ValidateLicenseRequest marks a pending submission as validated and grants
// the driver role to its owner.
func ValidateLicenseRequest(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		adminID := c.GetUint("userId")

		var license models.DriverLicense
		if err := db.First(&license, c.Param("id")).Error; err != nil {
			c.JSON(404, gin.H{"message": "Demande non trouvée"})
			return
		}

		var owner models.User
		err := db.Transaction(func(tx *gorm.DB) error {
			decided, err := decideLicense(tx, license.ID, adminID, models.ValidationApproved, "")
			if err != nil {
				return err
			}
			if !decided {
				return errAlreadyDecided
			}

			if err := tx.First(&owner, license.UserID).Error; err != nil {
				return err
			}
			if !owner.Roles.Has(models.RoleDriver) {
				owner.Roles = owner.Roles.With(models.RoleDriver)
				if err := tx.Model(&owner).Update("roles", owner.Roles).Error; err != nil {
					return err
				}
			}
			return nil
		})
		if errors.Is(err, errAlreadyDecided) {
			db.First(&license, license.ID)
			c.JSON(400, gin.H{
				"message":       "Cette demande a déjà été traitée",
				"statut_actuel": license.Status.Label(),
			})
			return
		}
		if err != nil {
			c.JSON(500, gin.H{"message": "Erreur lors de la validation de la demande"})
			return
		}

		db.First(&license, license.ID)

		c.JSON(200, gin.H{
			"message": "Demande validée avec succès. L'utilisateur est maintenant conducteur.",
			"demande": gin.H{
				"id":              license.ID,
				"statut":          license.Status,
				"statut_label":    license.Status.Label(),
				"date_validation": license.DecidedAt.Format(datetimeLayout),
				"utilisateur": gin.H{
					"id":     owner.ID,
					"nom":    owner.Nom,
					"prenom": owner.Prenom,
					"roles":  owner.Roles.EffectiveRoles(),
				},
			},
		})
	}
}

// RejectLicenseRequest marks a pending submission as rejected with a reason
// and revokes the driver role from its owner if present.
func RejectLicenseRequest(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		adminID := c.GetUint("userId")

		var input struct {
			Reason string `json:"motif"`
		}
		if err := c.ShouldBindJSON(&input); err != nil || strings.TrimSpace(input.Reason) == "" {
			c.JSON(400, gin.H{"message": "Le motif de rejet est requis"})
			return
		}

		var license models.DriverLicense
		if err := db.First(&license, c.Param("id")).Error; err != nil {
			c.JSON(404, gin.H{"message": "Demande non trouvée"})
			return
		}

		var owner models.User
		err := db.Transaction(func(tx *gorm.DB) error {
			decided, err := decideLicense(tx, license.ID, adminID, models.ValidationRejected, input.Reason)
			if err != nil {
				return err
			}
			if !decided {
				return errAlreadyDecided
			}

			if err := tx.First(&owner, license.UserID).Error; err != nil {
				return err
			}
			if owner.Roles.Has(models.RoleDriver) {
				owner.Roles = owner.Roles.Without(models.RoleDriver)
				if err := tx.Model(&owner).Update("roles", owner.Roles).Error; err != nil {
					return err
				}
			}
			return nil
		})
		if errors.Is(err, errAlreadyDecided) {
			db.First(&license, license.ID)
			c.JSON(400, gin.H{
				"message":       "Cette demande a déjà été traitée",
				"statut_actuel": license.Status.Label(),
			})
			return
		}
		if err != nil {
			c.JSON(500, gin.H{"message": "Erreur lors du rejet de la demande"})
			return
		}

		db.First(&license, license.ID)

		c.JSON(200, gin.H{
			"message": "Demande rejetée",
			"demande": gin.H{
				"id":              license.ID,
				"statut":          license.Status,
				"statut_label":    license.Status.Label(),
				"motif_rejet":     license.RejectionReason,
				"date_validation": license.DecidedAt.Format(datetimeLayout),
				"utilisateur": gin.H{
					"id":     owner.ID,
					"nom":    owner.Nom,
					"prenom": owner.Prenom,
				},
			},
		})
	}
}

// GetLicenseStatus lets a user check the state of their own submission.
// Having no submission is not an error.
func GetLicenseStatus(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")

		var license models.DriverLicense
		if err := db.Where("user_id = ?", userId).First(&license).Error; err != nil {
			c.JSON(200, gin.H{
				"message":     "Aucune demande trouvée",
				"has_demande": false,
			})
			return
		}

		response := gin.H{
			"has_demande":      true,
			"id":               license.ID,
			"statut":           license.Status,
			"statut_label":     license.Status.Label(),
			"numeropermis":     license.LicenseNumber,
			"dateemission":     license.IssueDate.Format(dateLayout),
			"payededelivrance": license.IssuingCountry,
			"created_at":       license.CreatedAt.Format(datetimeLayout),
		}
		if license.DecidedAt != nil {
			response["date_validation"] = license.DecidedAt.Format(datetimeLayout)
		}
		if license.RejectionReason != "" {
			response["motif_rejet"] = license.RejectionReason
		}

		c.JSON(200, response)
	}
}

// GetOwnLicense returns the license record of a validated driver
func GetOwnLicense(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")

		var license models.DriverLicense
		if err := db.Preload("User").Where("user_id = ?", userId).First(&license).Error; err != nil {
			c.JSON(404, gin.H{"message": "Aucune information conducteur trouvée"})
			return
		}

		c.JSON(200, gin.H{
			"id":               license.ID,
			"numeropermis":     license.LicenseNumber,
			"dateemission":     license.IssueDate.Format(dateLayout),
			"payededelivrance": license.IssuingCountry,
			"statut":           license.Status,
			"utilisateur": gin.H{
				"id":     license.User.ID,
				"nom":    license.User.Nom,
				"prenom": license.User.Prenom,
				"email":  license.User.Email,
			},
		})
	}
}

// UpdateOwnLicense applies a partial update to a validated driver's license
// record. Only validated drivers may edit their information.
func UpdateOwnLicense(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")

		var input struct {
			LicenseNumber  *string `json:"numeropermis"`
			IssueDate      *string `json:"dateemission"`
			IssuingCountry *string `json:"payededelivrance"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"message": "Corps de requête invalide"})
			return
		}

		var license models.DriverLicense
		if err := db.Where("user_id = ?", userId).First(&license).Error; err != nil {
			c.JSON(404, gin.H{"message": "Aucune information conducteur trouvée"})
			return
		}

		if !license.IsApproved() {
			c.JSON(403, gin.H{"message": "Vous devez être un conducteur validé pour modifier vos informations"})
			return
		}

		if input.LicenseNumber != nil {
			license.LicenseNumber = *input.LicenseNumber
		}
		if input.IssueDate != nil {
			issueDate, err := time.Parse(dateLayout, *input.IssueDate)
			if err != nil {
				c.JSON(400, gin.H{"message": "Format de date invalide (Y-m-d)"})
				return
			}
			license.IssueDate = issueDate
		}
		if input.IssuingCountry != nil {
			license.IssuingCountry = *input.IssuingCountry
		}

		if err := db.Save(&license).Error; err != nil {
			c.JSON(500, gin.H{"message": "Erreur lors de la mise à jour"})
			return
		}

		c.JSON(200, gin.H{
			"message": "Informations conducteur mises à jour",
			"infos_conducteur": gin.H{
				"numeropermis":     license.LicenseNumber,
				"dateemission":     license.IssueDate.Format(dateLayout),
				"payededelivrance": license.IssuingCountry,
			},
		})
	}
}
