package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	clerk "github.com/clerk/clerk-sdk-go/v2"
	gorilllaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"questNetAPI/handlers"
	"questNetAPI/internal/clock"
	"questNetAPI/internal/economy"
	"questNetAPI/internal/notification"
	"questNetAPI/middleware"
	"questNetAPI/services"

	_ "net/http/pprof"
)

var (
	dbPool              *pgxpool.Pool
	ledgerService       *services.LedgerService
	campaignService     *services.CampaignService
	questService        *services.QuestService
	eligibilityService  *services.EligibilityService
	notificationService *services.NotificationService
	metadataService     *services.GameMetadataService
	fcmService          *notification.FCMService
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	clerkSecretKey := os.Getenv("CLERK_SECRET_KEY")
	if clerkSecretKey == "" {
		log.Fatal("CLERK_SECRET_KEY environment variable is not set")
	}
	clerk.SetKey(clerkSecretKey)

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		log.Fatal("Failed to parse database URL:", err)
	}

	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	dbPool, err = pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		log.Fatal("Failed to create connection pool:", err)
	}

	if err := dbPool.Ping(ctx); err != nil {
		log.Fatal("Failed to ping database:", err)
	}

	log.Println("Successfully connected to Postgres")

	cfg := economy.DefaultConfig()
	clk := clock.System{}

	metadataService = services.NewGameMetadataService()
	notificationService = services.NewNotificationService(dbPool)
	ledgerService = services.NewLedgerService(dbPool, cfg)
	campaignService = services.NewCampaignService(dbPool, ledgerService, metadataService, notificationService, clk, cfg)
	questService = services.NewQuestService(dbPool, campaignService, ledgerService, notificationService, clk, cfg)
	eligibilityService = services.NewEligibilityService(dbPool, clk, cfg)

	fcmService, err = notification.NewFCMService("./serviceAccountKey.json")
	if err != nil {
		log.Printf("Warning: Could not initialize FCM: %v", err)
	} else {
		notificationService.SetPushProvider(fcmService)
		log.Println("FCM push provider initialized")
	}

	middleware.InitPrometheus()
	services.InitMetrics()
}

func main() {
	defer func() {
		log.Println("Closing database connection pool...")
		notificationService.Stop()
		dbPool.Close()
	}()

	questHandler := handlers.NewQuestHandler(questService, eligibilityService)
	campaignHandler := handlers.NewCampaignHandler(campaignService)
	adminHandler := handlers.NewAdminHandler(campaignService, ledgerService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)

	r := mux.NewRouter()

	standardRouter := r.PathPrefix("/").Subrouter()

	go middleware.CleanupVisitors()

	standardRouter.Use(middleware.RateLimitMiddleware)
	standardRouter.Use(middleware.MonitorMiddleware)

	standardRouter.Handle("/metrics", middleware.BasicAuthMiddleware(promhttp.Handler()))
	standardRouter.PathPrefix("/debug/pprof/").Handler(middleware.PprofSecurityMiddleware(http.DefaultServeMux))

	standardRouter.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := dbPool.Ping(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status": "unhealthy", "error": "database connection failed"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy", "service": "questnet-api"}`))
	}).Methods("GET")

	// -------------------------------------------------------------------------
	// API V1 SUBROUTER
	// -------------------------------------------------------------------------
	api := standardRouter.PathPrefix("/api/v1").Subrouter()

	// Game-server routes, authenticated by per-owner API key.
	game := api.PathPrefix("").Subrouter()
	game.Use(middleware.GameKeyAuthMiddleware(ledgerService))

	game.HandleFunc("/quests", questHandler.GetAvailableQuests).Methods("GET")
	game.HandleFunc("/quests/start", questHandler.StartQuest).Methods("POST")
	game.HandleFunc("/quests/verify-token", questHandler.VerifyToken).Methods("POST")
	game.HandleFunc("/quests/check-traffic", questHandler.CheckTraffic).Methods("POST")
	game.HandleFunc("/quests/complete-task", questHandler.CompleteTask).Methods("POST")
	game.HandleFunc("/quests/claim", questHandler.ClaimRewards).Methods("POST")

	// Owner dashboard routes, authenticated by Clerk session.
	dashboard := api.PathPrefix("").Subrouter()
	dashboard.Use(middleware.ClerkAuthMiddleware)

	dashboard.HandleFunc("/dashboard", campaignHandler.GetDashboard).Methods("GET")
	dashboard.HandleFunc("/campaigns/register", campaignHandler.RegisterCampaign).Methods("POST")
	dashboard.HandleFunc("/campaigns/buy-visits", campaignHandler.BuyVisits).Methods("POST")
	dashboard.HandleFunc("/notifications", notificationHandler.GetNotifications).Methods("GET")
	dashboard.HandleFunc("/notifications/read-all", notificationHandler.MarkAllAsRead).Methods("PUT")
	dashboard.HandleFunc("/notifications/register-device", notificationHandler.RegisterDevice).Methods("POST")

	// Admin routes, shared-secret header.
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(middleware.AdminAuthMiddleware)

	admin.HandleFunc("/campaigns/decide", adminHandler.DecideCampaign).Methods("POST")
	admin.HandleFunc("/add-balance", adminHandler.AddBalance).Methods("POST")

	// CORS configuration
	corsHandler := gorilllaHandlers.CORS(
		gorilllaHandlers.AllowedOrigins([]string{"*"}),
		gorilllaHandlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		gorilllaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-API-Key", "X-Admin-Key", "X-Pprof-Secret"}),
		gorilllaHandlers.ExposedHeaders([]string{"Content-Length"}),
		gorilllaHandlers.AllowCredentials(),
	)

	port := os.Getenv("PORT")
	if port == "" {
		port = "3333"
	}
	port = ":" + port

	server := http.Server{
		Addr:         port,
		Handler:      corsHandler(r),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Starting server on port %s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Error starting server:", err)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)

	sig := <-sigChan
	log.Println("Got signal:", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server shutdown complete")
}
