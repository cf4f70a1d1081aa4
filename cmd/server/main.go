package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"coursepay_echo/internal/handlers"
	authMiddleware "coursepay_echo/internal/middleware"
	"coursepay_echo/internal/services"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}

	// Initialize Firebase
	credPath := os.Getenv("FIREBASE_CREDENTIALS_PATH")
	if credPath == "" {
		credPath = "./firebase-service-account.json"
	}

	authClient, err := authMiddleware.InitFirebase(credPath)
	if err != nil {
		log.Printf("Warning: Firebase initialization failed: %v", err)
		log.Println("Authenticated routes will not work until valid credentials are provided")
	}

	// Initialize Database
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL not set")
	}
	db, err := services.InitDB(databaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := services.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run database migrations: %v", err)
	}

	// Redis is optional; caching and webhook dedup degrade gracefully.
	var cache *services.RedisCache
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		cache, err = services.NewRedisCache(redisURL)
		if err != nil {
			log.Printf("Warning: Redis initialization failed: %v", err)
			cache = nil
		}
	}

	// Payment gateway client, constructed once and injected everywhere.
	gateway := services.NewGatewayService(services.GatewayConfig{
		ServerKey:  os.Getenv("MIDTRANS_SERVER_KEY"),
		ClientKey:  os.Getenv("MIDTRANS_CLIENT_KEY"),
		Production: os.Getenv("MIDTRANS_IS_PRODUCTION") == "true",
	})

	alerts := services.NewAlertService(os.Getenv("ALERT_WEBHOOK_URL"), os.Getenv("ALERT_WEBHOOK_API_KEY"))
	email := services.NewEmailService()

	// Domain services
	directory := services.NewDBCourseDirectory(db)
	planService := services.NewPlanService(db, cache)
	ledgerService := services.NewLedgerService(db)
	bridge := services.NewLegacyBridge(db)
	accessService := services.NewAccessService(ledgerService, bridge)
	paymentService := services.NewPaymentService(db, ledgerService, directory, gateway)
	reconciler := services.NewReconciler(db, ledgerService, services.LogAccessGranter{}, alerts, email, cache,
		os.Getenv("PAYMENT_WEBHOOK_SECRET"))

	// Create Echo instance
	e := echo.New()
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Validator = handlers.NewCustomValidator()

	// Initialize handlers
	planHandler := handlers.NewPlanHandler(planService, directory)
	billingHandler := handlers.NewBillingHandler(planService, ledgerService, bridge, accessService)
	paymentHandler := handlers.NewPaymentHandler(paymentService, reconciler)
	webhookHandler := handlers.NewWebhookHandler(reconciler)

	// Gateway webhooks authenticate by signature, not by session.
	e.POST("/webhooks/payment", webhookHandler.HandlePaymentWebhook)

	// Authenticated API
	api := e.Group("/api")
	api.Use(authMiddleware.RequireAuth(authClient, db))

	admin := api.Group("/admin")
	admin.Use(authMiddleware.RequireAdmin())
	admin.POST("/plans", planHandler.UpsertPlan)
	admin.GET("/plans", planHandler.ListPlans)
	admin.GET("/plans/:courseID/:planType", planHandler.GetPlan)

	api.POST("/enrollments", billingHandler.Enroll)
	api.POST("/payments/initiate", paymentHandler.InitiatePayment)
	api.GET("/payments", paymentHandler.ListPaidOrders)
	api.GET("/payments/:orderID", paymentHandler.GetOrderStatus)
	api.GET("/courses/:courseID/balance", billingHandler.GetBalance)
	api.GET("/courses/:courseID/timeline", billingHandler.GetTimeline)
	api.GET("/courses/:courseID/access", billingHandler.CheckAccess)

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on port %s", port)
	e.Logger.Fatal(e.Start(":" + port))
}
