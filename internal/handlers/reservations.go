package handlers

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/covoitsn/covoiturage-backend/internal/models"
	"github.com/covoitsn/covoiturage-backend/internal/services"
)

var (
	errDuplicateReservation = errors.New("duplicate active reservation")
	errCapacityExceeded     = errors.New("capacity exceeded")
)

// tripLocks serializes the capacity check-and-insert per trip so two
// concurrent bookings cannot jointly exceed the seat count. The API runs
// as a single process; a replicated deployment would move this to a row
// lock on the trip.
var tripLocks sync.Map

func lockTrip(tripID uint) *sync.Mutex {
	lock, _ := tripLocks.LoadOrStore(tripID, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

// occupiedSeats sums the seats held by active reservations on a trip.
// Pending, accepted and paid reservations all count against capacity.
func occupiedSeats(db *gorm.DB, tripID uint) (int, error) {
	var occupied int64
	err := db.Model(&models.Reservation{}).
		Select("COALESCE(SUM(place), 0)").
		Where("trajet_id = ? AND statut IN ?", tripID, models.ActiveReservationStatuses).
		Scan(&occupied).Error
	return int(occupied), err
}

// CreateReservation books seats on a trip for the calling passenger. The
// duplicate and capacity checks re-run inside the per-trip critical
// section, so the loser of a race gets the capacity conflict rather than
// an overbooked trip.
func CreateReservation(db *gorm.DB, notifier *services.Notifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")

		var input struct {
			TripID uint `json:"trajet"`
			Seats  *int `json:"place"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": "Corps de requête invalide"})
			return
		}

		var trip models.Trip
		if err := db.Preload("Driver").First(&trip, input.TripID).Error; err != nil {
			c.JSON(404, gin.H{"error": "Trajet introuvable"})
			return
		}

		if userId == trip.DriverID {
			c.JSON(400, gin.H{"error": "Vous ne pouvez pas réserver votre propre trajet"})
			return
		}

		seats := 1
		if input.Seats != nil {
			seats = *input.Seats
		}
		if seats < 1 {
			c.JSON(400, gin.H{"error": "Nombre de places invalide"})
			return
		}

		var passenger models.User
		if err := db.First(&passenger, userId).Error; err != nil {
			c.JSON(500, gin.H{"error": "Erreur interne"})
			return
		}

		lock := lockTrip(trip.ID)
		lock.Lock()
		defer lock.Unlock()

		var reservation models.Reservation
		var remaining int
		err := db.Transaction(func(tx *gorm.DB) error {
			var count int64
			if err := tx.Model(&models.Reservation{}).
				Where("utilisateur_id = ? AND trajet_id = ? AND statut IN ?",
					userId, trip.ID, models.ActiveReservationStatuses).
				Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				return errDuplicateReservation
			}

			occupied, err := occupiedSeats(tx, trip.ID)
			if err != nil {
				return err
			}
			remaining = trip.SeatsAvailable - occupied
			if occupied+seats > trip.SeatsAvailable {
				return errCapacityExceeded
			}

			reservation = models.Reservation{
				PassengerID: userId,
				TripID:      trip.ID,
				Seats:       seats,
				Status:      models.ReservationPending,
			}
			return tx.Create(&reservation).Error
		})

		switch err {
		case nil:
		case errDuplicateReservation:
			c.JSON(400, gin.H{"error": "Vous avez déjà une réservation active pour ce trajet"})
			return
		case errCapacityExceeded:
			c.JSON(400, gin.H{
				"error":            "Plus assez de places disponibles",
				"places_restantes": remaining,
			})
			return
		default:
			c.JSON(500, gin.H{"error": "Erreur lors de la création de la réservation"})
			return
		}

		if notifier != nil {
			reservationID := reservation.ID
			message := fmt.Sprintf("Nouvelle demande de réservation de %s pour votre trajet %s → %s (%d place(s))",
				passenger.FullName(), trip.Depart, trip.Arrivee, seats)
			if err := notifier.Notify(trip.DriverID, message, &reservationID, models.NotificationReservationRequest); err != nil {
				// Best effort, the reservation itself stands
				log.Printf("Failed to notify driver %d: %v", trip.DriverID, err)
			}
		}

		c.JSON(201, gin.H{
			"message": "Demande de réservation envoyée avec succès",
			"id":      reservation.ID,
			"statut":  reservation.Status,
		})
	}
}

// ConfirmReservation lets the trip's driver accept a pending reservation
func ConfirmReservation(db *gorm.DB, notifier *services.Notifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")

		var reservation models.Reservation
		if err := db.Preload("Trip").Preload("Passenger").First(&reservation, c.Param("id")).Error; err != nil {
			c.JSON(404, gin.H{"error": "Réservation introuvable"})
			return
		}

		if reservation.Trip.DriverID != userId {
			c.JSON(403, gin.H{"error": "Accès interdit"})
			return
		}

		// Guarded update: only a pending reservation can be confirmed
		result := db.Model(&models.Reservation{}).
			Where("id = ? AND statut = ?", reservation.ID, models.ReservationPending).
			Update("statut", models.ReservationAccepted)
		if result.Error != nil {
			c.JSON(500, gin.H{"error": "Erreur lors de la confirmation"})
			return
		}
		if result.RowsAffected == 0 {
			c.JSON(400, gin.H{"error": "Cette réservation ne peut pas être confirmée"})
			return
		}

		var driver models.User
		db.First(&driver, userId)

		if notifier != nil {
			reservationID := reservation.ID
			message := fmt.Sprintf("Votre réservation pour le trajet %s → %s a été confirmée par %s",
				reservation.Trip.Depart, reservation.Trip.Arrivee, driver.Prenom)
			notifier.Notify(reservation.PassengerID, message, &reservationID, models.NotificationReservationAccepted)
		}

		c.JSON(200, gin.H{
			"message": "Réservation confirmée",
			"statut":  models.ReservationAccepted,
		})
	}
}

// CancelReservation cancels a reservation. The passenger cancelling
// notifies the driver; the driver cancelling reads as a refusal and
// notifies the passenger. A reservation already in a terminal status
// cannot be cancelled again.
func CancelReservation(db *gorm.DB, notifier *services.Notifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")

		var reservation models.Reservation
		if err := db.Preload("Trip").First(&reservation, c.Param("id")).Error; err != nil {
			c.JSON(404, gin.H{"error": "Réservation introuvable"})
			return
		}

		isPassenger := reservation.PassengerID == userId
		isDriver := reservation.Trip.DriverID == userId

		if !isPassenger && !isDriver {
			c.JSON(403, gin.H{"error": "Accès interdit"})
			return
		}

		if reservation.Status.IsTerminal() {
			c.JSON(400, gin.H{
				"error":         "Cette réservation ne peut plus être annulée",
				"statut_actuel": reservation.Status,
			})
			return
		}

		result := db.Model(&models.Reservation{}).
			Where("id = ? AND statut IN ?", reservation.ID,
				[]models.ReservationStatus{models.ReservationPending, models.ReservationAccepted}).
			Update("statut", models.ReservationCancelled)
		if result.Error != nil {
			c.JSON(500, gin.H{"error": "Erreur lors de l'annulation"})
			return
		}
		if result.RowsAffected == 0 {
			db.First(&reservation, reservation.ID)
			c.JSON(400, gin.H{
				"error":         "Cette réservation ne peut plus être annulée",
				"statut_actuel": reservation.Status,
			})
			return
		}

		if notifier != nil {
			reservationID := reservation.ID
			if isPassenger {
				var passenger models.User
				db.First(&passenger, userId)
				message := fmt.Sprintf("%s a annulé sa réservation pour votre trajet %s → %s",
					passenger.Prenom, reservation.Trip.Depart, reservation.Trip.Arrivee)
				notifier.Notify(reservation.Trip.DriverID, message, &reservationID, models.NotificationReservationCanceled)
			} else {
				message := fmt.Sprintf("Votre demande de réservation pour le trajet %s → %s a été refusée",
					reservation.Trip.Depart, reservation.Trip.Arrivee)
				notifier.Notify(reservation.PassengerID, message, &reservationID, models.NotificationReservationRefused)
			}
		}

		c.JSON(200, gin.H{"message": "Réservation annulée"})
	}
}

// GetMyReservations lists the calling passenger's reservations with
// joined trip and driver display fields, newest first.
func GetMyReservations(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")

		var reservations []models.Reservation
		if err := db.Preload("Trip").Preload("Trip.Driver").
			Where("utilisateur_id = ?", userId).
			Order("id DESC").
			Find(&reservations).Error; err != nil {
			c.JSON(500, gin.H{"error": "Erreur lors de la récupération des réservations"})
			return
		}

		data := make([]gin.H, 0, len(reservations))
		for i := range reservations {
			r := &reservations[i]
			data = append(data, gin.H{
				"id":                r.ID,
				"trajet_id":         r.TripID,
				"depart":            r.Trip.Depart,
				"arrivee":           r.Trip.Arrivee,
				"date":              r.Trip.Date.Format(dateLayout),
				"heure":             r.Trip.Heure,
				"prix":              r.Trip.Prix,
				"place":             r.Seats,
				"statut":            r.Status,
				"conducteur_nom":    r.Trip.Driver.Nom,
				"conducteur_prenom": r.Trip.Driver.Prenom,
			})
		}

		c.JSON(200, gin.H{
			"reservations": data,
			"total":        len(data),
		})
	}
}

// GetDriverReservations lists reservations across all of the calling
// driver's trips, newest first per trip.
func GetDriverReservations(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")

		var trips []models.Trip
		if err := db.Where("conducteur_id = ?", userId).Find(&trips).Error; err != nil {
			c.JSON(500, gin.H{"error": "Erreur lors de la récupération des trajets"})
			return
		}

		data := make([]gin.H, 0)
		for i := range trips {
			trip := &trips[i]

			var reservations []models.Reservation
			if err := db.Preload("Passenger").
				Where("trajet_id = ?", trip.ID).
				Order("id DESC").
				Find(&reservations).Error; err != nil {
				c.JSON(500, gin.H{"error": "Erreur lors de la récupération des réservations"})
				return
			}

			for j := range reservations {
				r := &reservations[j]
				data = append(data, gin.H{
					"id":              r.ID,
					"trajet_id":       trip.ID,
					"depart":          trip.Depart,
					"arrivee":         trip.Arrivee,
					"date":            trip.Date.Format(dateLayout),
					"heure":           trip.Heure,
					"prix":            trip.Prix,
					"place":           r.Seats,
					"statut":          r.Status,
					"passager_nom":    r.Passenger.Nom,
					"passager_prenom": r.Passenger.Prenom,
				})
			}
		}

		c.JSON(200, gin.H{
			"reservations": data,
			"total":        len(data),
		})
	}
}

// GetTripReservations lists all reservations on one trip for its driver
func GetTripReservations(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")

		var trip models.Trip
		if err := db.First(&trip, c.Param("id")).Error; err != nil {
			c.JSON(404, gin.H{"error": "Trajet introuvable"})
			return
		}

		if trip.DriverID != userId {
			c.JSON(403, gin.H{"error": "Accès interdit"})
			return
		}

		var reservations []models.Reservation
		if err := db.Preload("Passenger").
			Where("trajet_id = ?", trip.ID).
			Order("id DESC").
			Find(&reservations).Error; err != nil {
			c.JSON(500, gin.H{"error": "Erreur lors de la récupération des réservations"})
			return
		}

		data := make([]gin.H, 0, len(reservations))
		for i := range reservations {
			r := &reservations[i]
			data = append(data, gin.H{
				"id":              r.ID,
				"place":           r.Seats,
				"statut":          r.Status,
				"passager_nom":    r.Passenger.Nom,
				"passager_prenom": r.Passenger.Prenom,
			})
		}

		c.JSON(200, gin.H{
			"reservations":       data,
			"total_reservations": len(data),
		})
	}
}
