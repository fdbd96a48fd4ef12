package handlers

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/covoitsn/covoiturage-backend/internal/middleware"
	"github.com/covoitsn/covoiturage-backend/internal/models"
	"github.com/covoitsn/covoiturage-backend/internal/services"
)

func reservationRouter(db *gorm.DB, notifier *services.Notifier) *gin.Engine {
	r := gin.New()
	api := r.Group("/api", middleware.AuthMiddleware())
	api.POST("/reservation_create", CreateReservation(db, notifier))
	api.PATCH("/reservation/:id/confirmer", ConfirmReservation(db, notifier))
	api.PATCH("/reservation/:id/annuler", CancelReservation(db, notifier))
	api.GET("/utilisateur/reservations", GetMyReservations(db))
	api.GET("/trajet/:id/reservations", GetTripReservations(db))
	return r
}

func reservationBody(tripID uint, seats int) map[string]interface{} {
	return map[string]interface{}{"trajet": tripID, "place": seats}
}

func TestCreateReservation(t *testing.T) {
	db := setupTestDB(t)
	r := reservationRouter(db, services.NewNotifier(db, nil))
	driver := createTestUser(t, db, "driver@example.com", models.RoleSet{models.RoleDriver})
	passenger := createTestUser(t, db, "passenger@example.com", models.RoleSet{})
	trip := createTestTrip(t, db, driver.ID, 4)

	w := performRequest(r, "POST", "/api/reservation_create", tokenFor(t, passenger), reservationBody(trip.ID, 2))
	if w.Code != 201 {
		t.Fatalf("got status %d (body %s)", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if body["statut"] != string(models.ReservationPending) {
		t.Errorf("statut = %v, want %s", body["statut"], models.ReservationPending)
	}

	// The driver gets a notification row for the request
	var notifications []models.Notification
	db.Where("user_id = ?", driver.ID).Find(&notifications)
	if len(notifications) != 1 {
		t.Fatalf("driver notifications = %d, want 1", len(notifications))
	}
	if notifications[0].Type != models.NotificationReservationRequest {
		t.Errorf("notification type = %s", notifications[0].Type)
	}
}

func TestCreateReservationDefaultsToOneSeat(t *testing.T) {
	db := setupTestDB(t)
	r := reservationRouter(db, nil)
	driver := createTestUser(t, db, "driver@example.com", models.RoleSet{models.RoleDriver})
	passenger := createTestUser(t, db, "passenger@example.com", models.RoleSet{})
	trip := createTestTrip(t, db, driver.ID, 4)

	w := performRequest(r, "POST", "/api/reservation_create", tokenFor(t, passenger),
		map[string]interface{}{"trajet": trip.ID})
	if w.Code != 201 {
		t.Fatalf("got status %d (body %s)", w.Code, w.Body.String())
	}

	var reservation models.Reservation
	db.Where("utilisateur_id = ?", passenger.ID).First(&reservation)
	if reservation.Seats != 1 {
		t.Errorf("seats = %d, want 1", reservation.Seats)
	}
}

func TestCreateReservationRejections(t *testing.T) {
	db := setupTestDB(t)
	r := reservationRouter(db, nil)
	driver := createTestUser(t, db, "driver@example.com", models.RoleSet{models.RoleDriver})
	passenger := createTestUser(t, db, "passenger@example.com", models.RoleSet{})
	trip := createTestTrip(t, db, driver.ID, 4)

	tests := []struct {
		name  string
		token string
		body  map[string]interface{}
		want  int
	}{
		{"unknown trip", tokenFor(t, passenger), reservationBody(9999, 1), 404},
		{"own trip", tokenFor(t, driver), reservationBody(trip.ID, 1), 400},
		{"zero seats", tokenFor(t, passenger), reservationBody(trip.ID, 0), 400},
		{"negative seats", tokenFor(t, passenger), reservationBody(trip.ID, -2), 400},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := performRequest(r, "POST", "/api/reservation_create", tt.token, tt.body)
			if w.Code != tt.want {
				t.Errorf("got status %d, want %d (body %s)", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestCreateReservationDuplicateActive(t *testing.T) {
	db := setupTestDB(t)
	r := reservationRouter(db, nil)
	driver := createTestUser(t, db, "driver@example.com", models.RoleSet{models.RoleDriver})
	passenger := createTestUser(t, db, "passenger@example.com", models.RoleSet{})
	trip := createTestTrip(t, db, driver.ID, 4)
	token := tokenFor(t, passenger)

	if w := performRequest(r, "POST", "/api/reservation_create", token, reservationBody(trip.ID, 1)); w.Code != 201 {
		t.Fatalf("first booking: got status %d", w.Code)
	}
	if w := performRequest(r, "POST", "/api/reservation_create", token, reservationBody(trip.ID, 1)); w.Code != 400 {
		t.Fatalf("duplicate booking: got status %d, want 400", w.Code)
	}

	// Cancelling frees the passenger to book again
	var reservation models.Reservation
	db.Where("utilisateur_id = ?", passenger.ID).First(&reservation)
	if w := performRequest(r, "PATCH", fmt.Sprintf("/api/reservation/%d/annuler", reservation.ID), token, nil); w.Code != 200 {
		t.Fatalf("cancel: got status %d", w.Code)
	}
	if w := performRequest(r, "POST", "/api/reservation_create", token, reservationBody(trip.ID, 1)); w.Code != 201 {
		t.Fatalf("rebooking after cancel: got status %d (body %s)", w.Code, w.Body.String())
	}
}

func TestCreateReservationCapacity(t *testing.T) {
	db := setupTestDB(t)
	r := reservationRouter(db, nil)
	driver := createTestUser(t, db, "driver@example.com", models.RoleSet{models.RoleDriver})
	trip := createTestTrip(t, db, driver.ID, 3)

	first := createTestUser(t, db, "p1@example.com", models.RoleSet{})
	if w := performRequest(r, "POST", "/api/reservation_create", tokenFor(t, first), reservationBody(trip.ID, 2)); w.Code != 201 {
		t.Fatalf("first booking: got status %d", w.Code)
	}

	// 1 seat left: asking 2 is a conflict with the remainder reported
	second := createTestUser(t, db, "p2@example.com", models.RoleSet{})
	w := performRequest(r, "POST", "/api/reservation_create", tokenFor(t, second), reservationBody(trip.ID, 2))
	if w.Code != 400 {
		t.Fatalf("overbooking: got status %d, want 400", w.Code)
	}
	body := decodeBody(t, w)
	if body["places_restantes"] != float64(1) {
		t.Errorf("places_restantes = %v, want 1", body["places_restantes"])
	}

	// Exactly the remainder still fits
	if w := performRequest(r, "POST", "/api/reservation_create", tokenFor(t, second), reservationBody(trip.ID, 1)); w.Code != 201 {
		t.Fatalf("boundary booking: got status %d (body %s)", w.Code, w.Body.String())
	}

	// Full trip rejects everyone
	third := createTestUser(t, db, "p3@example.com", models.RoleSet{})
	w = performRequest(r, "POST", "/api/reservation_create", tokenFor(t, third), reservationBody(trip.ID, 1))
	if w.Code != 400 {
		t.Fatalf("booking on full trip: got status %d, want 400", w.Code)
	}

	// Seats held never exceed the trip capacity
	occupied, err := occupiedSeats(db, trip.ID)
	if err != nil {
		t.Fatalf("occupiedSeats: %v", err)
	}
	if occupied > trip.SeatsAvailable {
		t.Errorf("occupied = %d, exceeds capacity %d", occupied, trip.SeatsAvailable)
	}
}

func TestConcurrentReservationsRespectCapacity(t *testing.T) {
	db := setupTestDB(t)
	r := reservationRouter(db, nil)
	driver := createTestUser(t, db, "driver@example.com", models.RoleSet{models.RoleDriver})
	trip := createTestTrip(t, db, driver.ID, 4)

	// 8 passengers asking 2 seats each against 4 seats: exactly 2 can win
	tokens := make([]string, 8)
	for i := range tokens {
		passenger := createTestUser(t, db, fmt.Sprintf("p%d@example.com", i), models.RoleSet{})
		tokens[i] = tokenFor(t, passenger)
	}

	codes := make([]int, len(tokens))
	bodies := make([]map[string]interface{}, len(tokens))

	var wg sync.WaitGroup
	for i, token := range tokens {
		wg.Add(1)
		go func(i int, token string) {
			defer wg.Done()
			w := performRequest(r, "POST", "/api/reservation_create", token, reservationBody(trip.ID, 2))
			codes[i] = w.Code
			json.Unmarshal(w.Body.Bytes(), &bodies[i])
		}(i, token)
	}
	wg.Wait()

	var accepted, rejected int
	for i, code := range codes {
		switch code {
		case 201:
			accepted++
		case 400:
			rejected++
			if bodies[i]["places_restantes"] != float64(0) {
				t.Errorf("loser %d: places_restantes = %v, want 0", i, bodies[i]["places_restantes"])
			}
		default:
			t.Errorf("request %d: unexpected status %d (body %v)", i, code, bodies[i])
		}
	}
	if accepted != 2 || rejected != 6 {
		t.Errorf("accepted = %d, rejected = %d, want 2 and 6", accepted, rejected)
	}

	occupied, err := occupiedSeats(db, trip.ID)
	if err != nil {
		t.Fatalf("occupiedSeats: %v", err)
	}
	if occupied > trip.SeatsAvailable {
		t.Errorf("occupied = %d, exceeds capacity %d", occupied, trip.SeatsAvailable)
	}
	if occupied != 4 {
		t.Errorf("occupied = %d, want 4", occupied)
	}
}

func TestCancelledSeatsFreeCapacity(t *testing.T) {
	db := setupTestDB(t)
	r := reservationRouter(db, nil)
	driver := createTestUser(t, db, "driver@example.com", models.RoleSet{models.RoleDriver})
	trip := createTestTrip(t, db, driver.ID, 2)

	first := createTestUser(t, db, "p1@example.com", models.RoleSet{})
	firstToken := tokenFor(t, first)
	performRequest(r, "POST", "/api/reservation_create", firstToken, reservationBody(trip.ID, 2))

	second := createTestUser(t, db, "p2@example.com", models.RoleSet{})
	if w := performRequest(r, "POST", "/api/reservation_create", tokenFor(t, second), reservationBody(trip.ID, 1)); w.Code != 400 {
		t.Fatalf("booking on full trip: got status %d, want 400", w.Code)
	}

	var reservation models.Reservation
	db.Where("utilisateur_id = ?", first.ID).First(&reservation)
	performRequest(r, "PATCH", fmt.Sprintf("/api/reservation/%d/annuler", reservation.ID), firstToken, nil)

	if w := performRequest(r, "POST", "/api/reservation_create", tokenFor(t, second), reservationBody(trip.ID, 2)); w.Code != 201 {
		t.Fatalf("booking after cancellation: got status %d (body %s)", w.Code, w.Body.String())
	}
}

func TestConfirmReservation(t *testing.T) {
	db := setupTestDB(t)
	r := reservationRouter(db, services.NewNotifier(db, nil))
	driver := createTestUser(t, db, "driver@example.com", models.RoleSet{models.RoleDriver})
	passenger := createTestUser(t, db, "passenger@example.com", models.RoleSet{})
	stranger := createTestUser(t, db, "stranger@example.com", models.RoleSet{})
	trip := createTestTrip(t, db, driver.ID, 4)

	performRequest(r, "POST", "/api/reservation_create", tokenFor(t, passenger), reservationBody(trip.ID, 1))

	var reservation models.Reservation
	db.Where("utilisateur_id = ?", passenger.ID).First(&reservation)
	path := fmt.Sprintf("/api/reservation/%d/confirmer", reservation.ID)

	// Only the trip owner may confirm
	if w := performRequest(r, "PATCH", path, tokenFor(t, stranger), nil); w.Code != 403 {
		t.Fatalf("stranger confirm: got status %d, want 403", w.Code)
	}

	if w := performRequest(r, "PATCH", path, tokenFor(t, driver), nil); w.Code != 200 {
		t.Fatalf("confirm: got status %d (body %s)", w.Code, w.Body.String())
	}

	db.First(&reservation, reservation.ID)
	if reservation.Status != models.ReservationAccepted {
		t.Errorf("status = %s, want %s", reservation.Status, models.ReservationAccepted)
	}

	// A second confirmation loses the pending-status guard
	if w := performRequest(r, "PATCH", path, tokenFor(t, driver), nil); w.Code != 400 {
		t.Errorf("double confirm: got status %d, want 400", w.Code)
	}
}

func TestCancelReservation(t *testing.T) {
	db := setupTestDB(t)
	r := reservationRouter(db, services.NewNotifier(db, nil))
	driver := createTestUser(t, db, "driver@example.com", models.RoleSet{models.RoleDriver})
	passenger := createTestUser(t, db, "passenger@example.com", models.RoleSet{})
	stranger := createTestUser(t, db, "stranger@example.com", models.RoleSet{})
	trip := createTestTrip(t, db, driver.ID, 4)

	performRequest(r, "POST", "/api/reservation_create", tokenFor(t, passenger), reservationBody(trip.ID, 1))

	var reservation models.Reservation
	db.Where("utilisateur_id = ?", passenger.ID).First(&reservation)
	path := fmt.Sprintf("/api/reservation/%d/annuler", reservation.ID)

	if w := performRequest(r, "PATCH", path, tokenFor(t, stranger), nil); w.Code != 403 {
		t.Fatalf("stranger cancel: got status %d, want 403", w.Code)
	}

	// Driver cancelling a request reads as a refusal for the passenger
	if w := performRequest(r, "PATCH", path, tokenFor(t, driver), nil); w.Code != 200 {
		t.Fatalf("driver cancel: got status %d (body %s)", w.Code, w.Body.String())
	}

	var notifications []models.Notification
	db.Where("user_id = ?", passenger.ID).Find(&notifications)
	if len(notifications) != 1 || notifications[0].Type != models.NotificationReservationRefused {
		t.Errorf("passenger notifications = %+v, want one refusal", notifications)
	}

	// A cancelled reservation is terminal
	w := performRequest(r, "PATCH", path, tokenFor(t, passenger), nil)
	if w.Code != 400 {
		t.Fatalf("cancel of cancelled: got status %d, want 400", w.Code)
	}
	body := decodeBody(t, w)
	if body["statut_actuel"] != string(models.ReservationCancelled) {
		t.Errorf("statut_actuel = %v, want %s", body["statut_actuel"], models.ReservationCancelled)
	}
}

func TestGetMyReservations(t *testing.T) {
	db := setupTestDB(t)
	r := reservationRouter(db, nil)
	driver := createTestUser(t, db, "driver@example.com", models.RoleSet{models.RoleDriver})
	passenger := createTestUser(t, db, "passenger@example.com", models.RoleSet{})
	token := tokenFor(t, passenger)

	for i := 0; i < 2; i++ {
		trip := createTestTrip(t, db, driver.ID, 4)
		performRequest(r, "POST", "/api/reservation_create", token, reservationBody(trip.ID, 1))
	}

	w := performRequest(r, "GET", "/api/utilisateur/reservations", token, nil)
	if w.Code != 200 {
		t.Fatalf("got status %d", w.Code)
	}
	body := decodeBody(t, w)
	if body["total"] != float64(2) {
		t.Errorf("total = %v, want 2", body["total"])
	}
}

func TestGetTripReservationsOwnerOnly(t *testing.T) {
	db := setupTestDB(t)
	r := reservationRouter(db, nil)
	driver := createTestUser(t, db, "driver@example.com", models.RoleSet{models.RoleDriver})
	passenger := createTestUser(t, db, "passenger@example.com", models.RoleSet{})
	trip := createTestTrip(t, db, driver.ID, 4)

	performRequest(r, "POST", "/api/reservation_create", tokenFor(t, passenger), reservationBody(trip.ID, 1))

	path := fmt.Sprintf("/api/trajet/%d/reservations", trip.ID)
	if w := performRequest(r, "GET", path, tokenFor(t, passenger), nil); w.Code != 403 {
		t.Fatalf("passenger listing: got status %d, want 403", w.Code)
	}

	w := performRequest(r, "GET", path, tokenFor(t, driver), nil)
	if w.Code != 200 {
		t.Fatalf("driver listing: got status %d", w.Code)
	}
	body := decodeBody(t, w)
	if body["total_reservations"] != float64(1) {
		t.Errorf("total_reservations = %v, want 1", body["total_reservations"])
	}
}
