package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/covoitsn/covoiturage-backend/internal/models"
)

func tripJSON(trip *models.Trip) gin.H {
	return gin.H{
		"id":                trip.ID,
		"depart":            trip.Depart,
		"arrivee":           trip.Arrivee,
		"date":              trip.Date.Format(dateLayout),
		"heure":             trip.Heure,
		"conducteur":        trip.DriverID,
		"conducteurNom":     trip.Driver.Nom,
		"conducteurPrenom":  trip.Driver.Prenom,
		"departLat":         trip.DepartLat,
		"departLng":         trip.DepartLng,
		"arriveeLat":        trip.ArriveeLat,
		"arriveeLng":        trip.ArriveeLng,
		"prix":              trip.Prix,
		"placesDisponibles": trip.SeatsAvailable,
	}
}

// ListTrips retrieves all trips
func ListTrips(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var trips []models.Trip
		if err := db.Preload("Driver").Find(&trips).Error; err != nil {
			c.JSON(500, gin.H{"message": "Erreur lors de la récupération des trajets"})
			return
		}

		data := make([]gin.H, 0, len(trips))
		for i := range trips {
			data = append(data, tripJSON(&trips[i]))
		}
		c.JSON(200, data)
	}
}

// ListTripsByUser retrieves all trips offered by one driver
func ListTripsByUser(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var trips []models.Trip
		if err := db.Preload("Driver").
			Where("conducteur_id = ?", c.Param("userId")).
			Find(&trips).Error; err != nil {
			c.JSON(500, gin.H{"message": "Erreur lors de la récupération des trajets"})
			return
		}

		data := make([]gin.H, 0, len(trips))
		for i := range trips {
			data = append(data, tripJSON(&trips[i]))
		}
		c.JSON(200, data)
	}
}

// SearchTrips searches trips by origin, destination and date. Only trips
// with remaining declared seats are returned, soonest first.
func SearchTrips(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			Depart  string `json:"depart"`
			Arrivee string `json:"arrivee"`
			Date    string `json:"date"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"message": "Corps de requête invalide"})
			return
		}

		query := db.Preload("Driver").Where("places_disponibles > 0")

		if input.Depart != "" {
			query = query.Where("depart LIKE ?", "%"+input.Depart+"%")
		}
		if input.Arrivee != "" {
			query = query.Where("arrivee LIKE ?", "%"+input.Arrivee+"%")
		}
		if input.Date != "" {
			date, err := time.Parse(dateLayout, input.Date)
			if err != nil {
				c.JSON(400, gin.H{"message": "Format de date invalide (Y-m-d)"})
				return
			}
			query = query.Where("date = ?", date)
		}

		var trips []models.Trip
		if err := query.Order("date ASC, heure ASC").Find(&trips).Error; err != nil {
			c.JSON(500, gin.H{"message": "Erreur lors de la recherche"})
			return
		}

		data := make([]gin.H, 0, len(trips))
		for i := range trips {
			data = append(data, tripJSON(&trips[i]))
		}
		c.JSON(200, data)
	}
}

// CreateTrip handles the creation of a new trip by a driver
func CreateTrip(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")

		var input struct {
			Depart         string  `json:"depart" binding:"required"`
			Arrivee        string  `json:"arrivee" binding:"required"`
			Date           string  `json:"date" binding:"required"`
			Heure          string  `json:"heure" binding:"required"`
			DepartLat      float64 `json:"departLat"`
			DepartLng      float64 `json:"departLng"`
			ArriveeLat     float64 `json:"arriveeLat"`
			ArriveeLng     float64 `json:"arriveeLng"`
			Prix           float64 `json:"prix" binding:"required"`
			SeatsAvailable int     `json:"placesDisponibles" binding:"required,min=1"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"message": err.Error()})
			return
		}

		date, err := time.Parse(dateLayout, input.Date)
		if err != nil {
			c.JSON(400, gin.H{"message": "Format de date invalide (Y-m-d)"})
			return
		}
		if _, err := time.Parse("15:04:05", input.Heure); err != nil {
			c.JSON(400, gin.H{"message": "Format d'heure invalide (H:i:s)"})
			return
		}

		trip := models.Trip{
			DriverID:       userId,
			Depart:         input.Depart,
			Arrivee:        input.Arrivee,
			Date:           date,
			Heure:          input.Heure,
			DepartLat:      input.DepartLat,
			DepartLng:      input.DepartLng,
			ArriveeLat:     input.ArriveeLat,
			ArriveeLng:     input.ArriveeLng,
			Prix:           input.Prix,
			SeatsAvailable: input.SeatsAvailable,
			Status:         models.TripStatusAvailable,
		}

		if err := db.Create(&trip).Error; err != nil {
			c.JSON(500, gin.H{"message": "Erreur lors de la création du trajet"})
			return
		}

		c.JSON(201, gin.H{"message": "Trajet créé", "id": trip.ID})
	}
}

// GetTrip retrieves a single trip
func GetTrip(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var trip models.Trip
		if err := db.Preload("Driver").First(&trip, c.Param("id")).Error; err != nil {
			c.JSON(404, gin.H{"message": "Trajet introuvable"})
			return
		}
		c.JSON(200, tripJSON(&trip))
	}
}

// UpdateTrip applies a partial update to a trip owned by the caller
func UpdateTrip(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")

		var trip models.Trip
		if err := db.First(&trip, c.Param("id")).Error; err != nil {
			c.JSON(404, gin.H{"message": "Trajet introuvable"})
			return
		}

		if trip.DriverID != userId {
			c.JSON(403, gin.H{"message": "Accès interdit"})
			return
		}

		var input struct {
			Depart         *string  `json:"depart"`
			Arrivee        *string  `json:"arrivee"`
			Date           *string  `json:"date"`
			Heure          *string  `json:"heure"`
			DepartLat      *float64 `json:"departLat"`
			DepartLng      *float64 `json:"departLng"`
			ArriveeLat     *float64 `json:"arriveeLat"`
			ArriveeLng     *float64 `json:"arriveeLng"`
			Prix           *float64 `json:"prix"`
			SeatsAvailable *int     `json:"placesDisponibles"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"message": "Corps de requête invalide"})
			return
		}

		if input.Depart != nil {
			trip.Depart = *input.Depart
		}
		if input.Arrivee != nil {
			trip.Arrivee = *input.Arrivee
		}
		if input.Date != nil {
			date, err := time.Parse(dateLayout, *input.Date)
			if err != nil {
				c.JSON(400, gin.H{"message": "Format de date invalide (Y-m-d)"})
				return
			}
			trip.Date = date
		}
		if input.Heure != nil {
			if _, err := time.Parse("15:04:05", *input.Heure); err != nil {
				c.JSON(400, gin.H{"message": "Format d'heure invalide (H:i:s)"})
				return
			}
			trip.Heure = *input.Heure
		}
		if input.DepartLat != nil {
			trip.DepartLat = *input.DepartLat
		}
		if input.DepartLng != nil {
			trip.DepartLng = *input.DepartLng
		}
		if input.ArriveeLat != nil {
			trip.ArriveeLat = *input.ArriveeLat
		}
		if input.ArriveeLng != nil {
			trip.ArriveeLng = *input.ArriveeLng
		}
		if input.Prix != nil {
			trip.Prix = *input.Prix
		}
		if input.SeatsAvailable != nil {
			if *input.SeatsAvailable < 1 {
				c.JSON(400, gin.H{"message": "Nombre de places invalide"})
				return
			}
			trip.SeatsAvailable = *input.SeatsAvailable
		}

		if err := db.Save(&trip).Error; err != nil {
			c.JSON(500, gin.H{"message": "Erreur lors de la mise à jour du trajet"})
			return
		}

		c.JSON(200, gin.H{"message": "Trajet mis à jour"})
	}
}

// DeleteTrip soft deletes a trip owned by the caller
func DeleteTrip(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")

		var trip models.Trip
		if err := db.First(&trip, c.Param("id")).Error; err != nil {
			c.JSON(404, gin.H{"message": "Trajet introuvable"})
			return
		}

		if trip.DriverID != userId {
			c.JSON(403, gin.H{"message": "Accès interdit"})
			return
		}

		if err := db.Delete(&trip).Error; err != nil {
			c.JSON(500, gin.H{"message": "Erreur lors de la suppression du trajet"})
			return
		}

		c.JSON(200, gin.H{"message": "Trajet supprimé"})
	}
}
