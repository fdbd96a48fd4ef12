package main

import (
	"log"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/covoitsn/covoiturage-backend/internal/database"
	"github.com/covoitsn/covoiturage-backend/internal/handlers"
	"github.com/covoitsn/covoiturage-backend/internal/middleware"
	"github.com/covoitsn/covoiturage-backend/internal/models"
	"github.com/covoitsn/covoiturage-backend/internal/services"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment")
	}

	db, err := database.InitDB()
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("Failed to get database instance: %v", err)
	}

	// Configure connection pool
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	// Redis is optional, delivery falls back to the hub alone without it
	if err := services.InitRedis(); err != nil {
		log.Printf("Redis initialization warning: %v", err)
	}

	// Initialize Storage (S3 or local fallback)
	if err := services.InitStorage(); err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}

	// Initialize WebSocket hub
	hub := services.NewHub()
	go hub.Run()

	notifier := services.NewNotifier(db, hub)

	r := gin.Default()

	// Configure CORS
	config := cors.DefaultConfig()
	config.AllowOrigins = []string{"*"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	r.Use(cors.New(config))

	// Serve locally stored uploads
	uploadDir := os.Getenv("UPLOAD_DIR")
	if uploadDir == "" {
		uploadDir = "/app/uploads"
	}
	r.Static("/uploads", uploadDir)

	api := r.Group("/api")
	{
		// Public routes
		api.POST("/register", handlers.Register(db))
		api.POST("/login", handlers.Login(db))

		// WebSocket connection
		api.GET("/ws", middleware.AuthMiddleware(), handlers.WebSocketHandler(hub))

		// Protected routes
		protected := api.Group("/")
		protected.Use(middleware.AuthMiddleware())
		{
			protected.POST("/logout", handlers.Logout())

			// Profile
			protected.GET("/me", handlers.GetMe(db))
			protected.PUT("/me", handlers.UpdateMe(db))
			protected.POST("/me/photo", handlers.UploadPhoto(db))

			// User listings
			protected.GET("/users", handlers.ListUsers(db))
			protected.GET("/search", handlers.SearchUsers(db))

			// Driver credential submissions
			protected.POST("/infos-conducteur", handlers.SubmitLicense(db))
			protected.GET("/infos-conducteur/statut", handlers.GetLicenseStatus(db))

			// Trips
			protected.GET("/trajet_list", handlers.ListTrips(db))
			protected.GET("/trajet_list/user/:userId", handlers.ListTripsByUser(db))
			protected.GET("/trajet_list/:id", handlers.GetTrip(db))
			protected.POST("/trajet_search", handlers.SearchTrips(db))

			// Reservations
			protected.POST("/reservation_create", handlers.CreateReservation(db, notifier))
			protected.PATCH("/reservation/:id/confirmer", handlers.ConfirmReservation(db, notifier))
			protected.PATCH("/reservation/:id/annuler", handlers.CancelReservation(db, notifier))
			protected.GET("/utilisateur/reservations", handlers.GetMyReservations(db))
			protected.GET("/conducteur/reservations", handlers.GetDriverReservations(db))
			protected.GET("/trajet/:id/reservations", handlers.GetTripReservations(db))

			// Notifications
			protected.GET("/notifications", handlers.ListNotifications(db))
			protected.GET("/notifications/non-lues", handlers.ListUnreadNotifications(db))
			protected.PATCH("/notifications/tout-lire", handlers.MarkAllNotificationsRead(db))
			protected.PATCH("/notifications/:id/lire", handlers.MarkNotificationRead(db))
			protected.DELETE("/notifications/:id", handlers.DeleteNotification(db))

			// Messages
			protected.POST("/messages", handlers.SendMessage(db))
			protected.GET("/messages/conversations", handlers.GetConversations(db))
			protected.GET("/messages/conversation/:userId", handlers.GetConversation(db))

			// Reviews
			protected.POST("/avis", handlers.CreateReview(db))
			protected.GET("/avis", handlers.ListReviews(db))
			protected.GET("/avis/user/:userId", handlers.ListUserReviews(db))
			protected.GET("/avis/:id", handlers.GetReview(db))
			protected.PUT("/avis/:id", handlers.UpdateReview(db))

			// Driver only routes
			driver := protected.Group("/")
			driver.Use(middleware.RequireRole(models.RoleDriver))
			{
				driver.GET("/infos-conducteur", handlers.GetOwnLicense(db))
				driver.PUT("/infos-conducteur", handlers.UpdateOwnLicense(db))

				driver.POST("/trajet_create", handlers.CreateTrip(db))
				driver.PUT("/trajet_update/:id", handlers.UpdateTrip(db))
				driver.PATCH("/trajet_update/:id", handlers.UpdateTrip(db))
				driver.DELETE("/trajet_delete/:id", handlers.DeleteTrip(db))
			}

			// Admin only routes
			admin := protected.Group("/")
			admin.Use(middleware.RequireRole(models.RoleAdmin))
			{
				admin.GET("/role/simple-user", handlers.ListSimpleUsers(db))
				admin.GET("/role/conducteur", handlers.ListDrivers(db))
				admin.GET("/statistiques", handlers.Statistics(db))

				admin.GET("/admin/demandes-conducteur", handlers.ListLicenseRequests(db))
				admin.GET("/admin/demandes-conducteur/:id", handlers.GetLicenseRequest(db))
				admin.POST("/admin/demandes-conducteur/:id/valider", handlers.ValidateLicenseRequest(db))
				admin.POST("/admin/demandes-conducteur/:id/rejeter", handlers.RejectLicenseRequest(db))

				admin.DELETE("/avis/:id", handlers.DeleteReview(db))
			}
		}
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on port %s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
