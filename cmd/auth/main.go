package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"hrops/internal/auth"
	"hrops/internal/device"
	"hrops/internal/domain"
	"hrops/internal/handler"
	"hrops/internal/middleware"
	"hrops/internal/notification"
	"hrops/internal/repository/postgres"
	"hrops/pkg/cache"
	"hrops/pkg/config"
	"hrops/pkg/geo"
	"hrops/pkg/logger"
	"hrops/pkg/mailer"
	"hrops/pkg/validator"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.New("auth-service")

	if err := cfg.ValidateCore(); err != nil {
		log.Fatal("Invalid configuration", logger.Fields{"error": err.Error()})
	}

	// Connect to database
	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatal("Failed to connect to database", logger.Fields{"error": err.Error()})
	}
	defer db.Close()

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	// Connect to Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.URL,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatal("Failed to connect to Redis", logger.Fields{"error": err.Error()})
	}
	sharedCache := cache.New(redisClient)

	// Repositories
	userRepo := postgres.NewUserRepository(db)
	companyRepo := postgres.NewCompanyRepository(db)
	deviceRepo := postgres.NewDeviceRepository(db)
	sessionRepo := postgres.NewSessionRepository(db)
	notificationRepo := postgres.NewNotificationRepository(db)

	// Notification fan-out: inbox row, email, admin dashboards.
	hub := notification.NewHub(log)
	m := mailer.New(mailer.Config{
		Host:     cfg.Email.SMTPHost,
		Port:     cfg.Email.SMTPPort,
		Username: cfg.Email.SMTPUsername,
		Password: cfg.Email.SMTPPassword,
		From:     cfg.Email.SMTPFrom,
		UseTLS:   cfg.Email.SMTPUseTLS,
	})
	geocoder := geo.NewCachedGeocoder(
		geo.NewHTTPGeocoder(cfg.Geo.Endpoint, cfg.Geo.Timeout),
		sharedCache,
		cfg.Geo.CacheTTL,
	)
	dispatcher := notification.NewDispatcher(notificationRepo, userRepo, m, hub, geocoder, log)
	dispatcher.Start()
	defer dispatcher.Stop()

	// Services
	blacklist := middleware.NewRedisJTIBlacklist(redisClient)
	policy := device.NewPolicyResolver(companyRepo, sharedCache, cfg.Devices.PolicyCacheTTL, log)
	tokens := auth.NewTokenIssuer(cfg.JWT.Secret, cfg.JWT.AccessExpiry, cfg.JWT.RefreshExpiry)
	authService := auth.NewService(userRepo, sessionRepo, blacklist, deviceRepo, policy, dispatcher, tokens, log)
	deviceService := device.NewService(deviceRepo, userRepo, dispatcher, sessionRepo, log)

	var oauthVerifier auth.OAuthVerifier
	if cfg.OAuth.GoogleClientID != "" {
		oauthVerifier = auth.NewGoogleVerifier(
			cfg.OAuth.GoogleClientID,
			cfg.OAuth.GoogleClientSecret,
			cfg.OAuth.GoogleRedirectURL,
		)
	}

	// Handlers
	val := validator.New()
	authHandler := handler.NewAuthHandler(authService, oauthVerifier, val, log)
	deviceHandler := handler.NewDeviceHandler(deviceService, policy, val, log)
	eventsHandler := handler.NewEventsHandler(hub, log)

	// Router
	r := mux.NewRouter()
	r.Use(middleware.CORS)
	r.Use(middleware.CorrelationID)
	r.Use(middleware.NewLoggingMiddleware(log).Log)
	r.Use(middleware.NewRateLimiter(redisClient, cfg.Server.RateLimit, cfg.Server.RateWindow).Limit)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.Recovery)
	r.Use(middleware.BodyLimit(1 << 20))

	r.HandleFunc("/health", healthCheck).Methods("GET")
	r.HandleFunc("/api/v1/auth/login", authHandler.Login).Methods("POST")
	r.HandleFunc("/api/v1/auth/google/login", authHandler.GoogleLogin).Methods("GET")
	r.HandleFunc("/api/v1/auth/google/callback", authHandler.GoogleCallback).Methods("GET")
	r.HandleFunc("/api/v1/auth/refresh", authHandler.Refresh).Methods("POST")
	r.HandleFunc("/api/v1/auth/logout", authHandler.Logout).Methods("POST")

	// Management surface: device approval and company policy.
	authMW := middleware.NewAuthMiddleware(cfg.JWT.Secret, blacklist)
	admin := r.PathPrefix("/api/v1/admin").Subrouter()
	admin.Use(authMW.Authenticate)
	admin.Use(middleware.RequireRole(domain.RoleAdmin))
	admin.HandleFunc("/devices", deviceHandler.List).Methods("GET")
	admin.HandleFunc("/devices/events", eventsHandler.Stream).Methods("GET")
	admin.HandleFunc("/devices/{id}/approve", deviceHandler.Approve).Methods("POST")
	admin.HandleFunc("/devices/{id}/reject", deviceHandler.Reject).Methods("POST")
	admin.HandleFunc("/devices/{id}", deviceHandler.Delete).Methods("DELETE")
	admin.HandleFunc("/device-policy", deviceHandler.GetPolicy).Methods("GET")

	superadmin := r.PathPrefix("/api/v1/superadmin").Subrouter()
	superadmin.Use(authMW.Authenticate)
	superadmin.Use(middleware.RequireRole(domain.RoleSuperadmin))
	superadmin.HandleFunc("/device-policy", deviceHandler.UpdatePolicy).Methods("PUT")

	// Server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("Auth service starting", logger.Fields{"port": cfg.Server.Port})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed", logger.Fields{"error": err.Error()})
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", logger.Fields{"error": err.Error()})
	}

	log.Info("Server stopped", nil)
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	_ = r
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy","service":"auth"}`))
}
