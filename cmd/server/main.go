package main

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/taskhub/task-management-api/internal/cache"
	"github.com/taskhub/task-management-api/internal/config"
	"github.com/taskhub/task-management-api/internal/database"
	"github.com/taskhub/task-management-api/internal/handlers"
	"github.com/taskhub/task-management-api/internal/middleware"
	"github.com/taskhub/task-management-api/internal/repository"
	"github.com/taskhub/task-management-api/internal/services"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Set Gin mode
	gin.SetMode(cfg.GinMode)

	// Connect to database
	if err := database.Connect(cfg); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.Migrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	if err := database.AddIndexes(database.GetDB()); err != nil {
		log.Fatalf("Failed to add indexes: %v", err)
	}

	// Connect to Redis
	redisClient, err := cache.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	// Wire dependencies
	userRepo := repository.NewUserRepository(database.GetDB())
	taskRepo := repository.NewTaskRepository(database.GetDB())

	listCache := cache.NewTaskListCache(redisClient)
	otpStore := cache.NewOTPStore(redisClient)
	emailService := services.NewEmailService(cfg)
	googleVerifier := services.NewGoogleVerifier(cfg.GoogleClientID)

	authService := services.NewAuthService(userRepo, otpStore, emailService, googleVerifier, cfg.JWTSecret)
	taskService := services.NewTaskService(taskRepo, userRepo, listCache, emailService)

	authHandler := handlers.NewAuthHandler(authService)
	taskHandler := handlers.NewTaskHandler(taskService)

	// Initialize Gin router
	r := gin.Default()

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"message": "Task Management API is running",
		})
	})

	requireAuth := middleware.RequireAuth(cfg.JWTSecret)

	// API routes
	api := r.Group("/api")
	{
		// Auth routes (public except change-password)
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/verify-otp", authHandler.VerifyOTP)
			auth.POST("/login", authHandler.Login)
			auth.POST("/google", authHandler.GoogleAuth)
			auth.POST("/password-reset", authHandler.InitiatePasswordReset)
			auth.POST("/password-reset/verify", authHandler.VerifyPasswordResetOTP)
			auth.POST("/password-reset/:email", authHandler.UpdatePassword)
			auth.POST("/change-password", requireAuth, authHandler.ChangePassword)
		}

		// Task routes (protected)
		tasks := api.Group("/tasks")
		tasks.Use(requireAuth)
		{
			tasks.GET("", taskHandler.ListTasks)
			tasks.POST("", taskHandler.CreateTask)
			tasks.POST("/share", taskHandler.ShareTask)
			tasks.GET("/:id", taskHandler.GetTask)
			tasks.PUT("/:id", taskHandler.UpdateTask)
			tasks.DELETE("/:id", taskHandler.DeleteTask)
			tasks.POST("/:id/subtasks", taskHandler.CreateSubtask)
			tasks.DELETE("/:id/subtasks/:subtask_id", taskHandler.DeleteSubtask)
		}
	}

	// Start server
	log.Printf("Server starting on :%s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
