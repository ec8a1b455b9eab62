package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"whereyou-backend/internal/config"
	"whereyou-backend/internal/handlers"
	"whereyou-backend/internal/middleware"
	"whereyou-backend/internal/repository"
	"whereyou-backend/internal/services"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func Run() {
	// Load configuration
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Setup logger
	setupLogger(cfg.Log.Level)

	// Connect to database
	db, err := pgxpool.New(context.Background(), cfg.Database.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	// Test database connection
	if err := db.Ping(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to ping database")
	}
	log.Info().Msg("Database connection established")

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	friendRepo := repository.NewFriendRepository(db)
	meetingRepo := repository.NewMeetingRepository(db)

	// Initialize services
	userService := services.NewUserService(userRepo, cfg.JWT.Secret)
	friendService := services.NewFriendService(friendRepo, userRepo)
	meetingService := services.NewMeetingService(meetingRepo, friendRepo)
	avatarService, err := services.NewAvatarService(
		userRepo,
		cfg.AWS.Region,
		cfg.AWS.S3Bucket,
		cfg.AWS.AccessKey,
		cfg.AWS.SecretKey,
		cfg.AWS.Endpoint,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create avatar service")
	}
	sender, err := services.NewAPNsSender(
		cfg.APNs.KeyPath,
		cfg.APNs.KeyID,
		cfg.APNs.TeamID,
		cfg.APNs.Topic,
		cfg.APNs.Production,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create APNs sender")
	}
	tracker := services.NewTracker(meetingRepo, userRepo, sender)
	locationHub := services.NewLocationHub()

	// Initialize handlers
	userHandler := handlers.NewUserHandler(userService, avatarService)
	friendHandler := handlers.NewFriendHandler(friendService)
	meetingHandler := handlers.NewMeetingHandler(meetingService)
	wsHandler := handlers.NewLocationWSHandler(locationHub, userService, meetingService)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(corsMiddleware)

	// Routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Post("/users", userHandler.CreateUser)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(userService))

			r.Get("/users/me", userHandler.GetMe)
			r.Put("/users/me/push-token", userHandler.UpdatePushToken)
			r.Post("/users/me/avatar-upload", userHandler.RequestAvatarUpload)

			r.Post("/friends/requests", friendHandler.SendRequest)
			r.Get("/friends/requests", friendHandler.ListRequests)
			r.Post("/friends/requests/{request_id}/accept", friendHandler.AcceptRequest)
			r.Get("/friends", friendHandler.ListFriends)
			r.Delete("/friends/{friend_id}", friendHandler.RemoveFriend)

			r.Post("/meetings", meetingHandler.CreateMeeting)
			r.Get("/meetings", meetingHandler.ListMeetings)
			r.Get("/meetings/{meeting_id}", meetingHandler.GetMeeting)
			r.Delete("/meetings/{meeting_id}", meetingHandler.DeleteMeeting)
			r.Post("/meetings/{meeting_id}/members", meetingHandler.InviteMember)
			r.Delete("/meetings/{meeting_id}/members/{user_id}", meetingHandler.RemoveMember)
		})
	})

	// WebSocket route
	r.Get("/ws", wsHandler.HandleWebSocket)

	// Start the periodic sweeps. Each policy runs in its own goroutine;
	// ticks of one policy are serialized, so an overrunning tick delays
	// the next instead of overlapping with it.
	sweepCtx, stopSweeps := context.WithCancel(context.Background())
	defer stopSweeps()
	interval := cfg.Sweep.Duration()
	go runSweep(sweepCtx, interval, tracker.RunActivationSweep)
	go runSweep(sweepCtx, interval, tracker.RunDeletionSweep)
	log.Info().Dur("interval", interval).Msg("Tracking sweeps started")

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("host", cfg.Server.Host).
			Int("port", cfg.Server.Port).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	stopSweeps()

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// runSweep invokes run on every tick until ctx is cancelled. The tick
// timestamp is the only input the policy receives.
func runSweep(ctx context.Context, interval time.Duration, run func(context.Context, time.Time)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			run(ctx, now)
		}
	}
}

// setupLogger configures zerolog logger
func setupLogger(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// corsMiddleware handles CORS
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
