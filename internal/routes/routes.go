package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"counseling-app-server/internal/appointment"
	"counseling-app-server/internal/chat"
	"counseling-app-server/internal/config"
	"counseling-app-server/internal/handlers"
	"counseling-app-server/internal/middleware"
	"counseling-app-server/internal/models"
)

// SetupRoutes configures the application routes.
func SetupRoutes(router *gin.Engine, db *gorm.DB, cfg *config.Config, ledger *appointment.Ledger, hub *chat.Hub, gateway *chat.Gateway) {
	// Initialize handlers
	authHandler := handlers.NewAuthHandler(db, cfg)
	userHandler := handlers.NewUserHandler(db)
	appointmentHandler := handlers.NewAppointmentHandler(ledger)
	messageHandler := handlers.NewMessageHandler(gateway)

	// Public routes (no authentication required)
	public := router.Group("/api/v1")
	{
		authRoutes := public.Group("/auth")
		{
			authRoutes.POST("/register", authHandler.Register)
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.POST("/refresh-token", authHandler.RefreshToken)
		}
	}

	// WebSocket endpoint authenticates inside the handler (token comes via
	// header or query string before the upgrade).
	router.GET("/api/v1/ws", func(c *gin.Context) {
		chat.ServeWS(hub, gateway, cfg, c)
	})

	// Authenticated routes
	private := router.Group("/api/v1")
	private.Use(middleware.AuthMiddleware(cfg))
	{
		authRoutesPrivate := private.Group("/auth")
		{
			authRoutesPrivate.POST("/logout", authHandler.Logout)
			authRoutesPrivate.GET("/profile", authHandler.GetProfile)
		}

		// User management routes
		userRoutes := private.Group("/users")
		{
			// Counselor directory, accessible by all authenticated users for booking
			userRoutes.GET("/counselors", userHandler.GetCounselors)

			// Student directory for counselors and admins
			userRoutes.GET("/students", userHandler.GetStudents)

			// Admin-only routes
			adminRoutes := userRoutes.Group("")
			adminRoutes.Use(middleware.RoleAuthMiddleware(models.RoleAdmin))
			{
				adminRoutes.POST("", userHandler.CreateUser)
				adminRoutes.GET("", userHandler.GetUsers)
				adminRoutes.GET("/:id", userHandler.GetUserByID)
			}
		}

		// Appointment routes; fine-grained authorization happens in the handlers
		appointmentRoutes := private.Group("/appointments")
		{
			appointmentRoutes.POST("", appointmentHandler.CreateAppointment)
			appointmentRoutes.GET("", appointmentHandler.GetAppointmentsForUser)
			appointmentRoutes.GET("/:id", appointmentHandler.GetAppointmentByID)
			appointmentRoutes.PATCH("/:id/status", appointmentHandler.UpdateAppointmentStatus)
			appointmentRoutes.POST("/:id/follow-up", appointmentHandler.RequestFollowUp)
			appointmentRoutes.GET("/:id/history", appointmentHandler.GetStatusHistory)
		}

		// Messaging routes: the pull side of the conversation contract
		messageRoutes := private.Group("/messages")
		{
			messageRoutes.POST("/send", messageHandler.SendMessage)
			messageRoutes.GET("/conversations", messageHandler.GetConversations)
			messageRoutes.GET("/conversations/:appointmentId", messageHandler.GetConversationMessages)
			messageRoutes.PATCH("/conversations/:appointmentId/read", messageHandler.MarkConversationRead)
		}
	}

	// Simple health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "UP"})
	})
}
