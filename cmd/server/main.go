package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"donation_tracker/internal/config"
	"donation_tracker/internal/handler"
	"donation_tracker/internal/logger"
	"donation_tracker/internal/policy"
	"donation_tracker/internal/repository"
	"donation_tracker/internal/repository/memory"
	"donation_tracker/internal/service"
	"donation_tracker/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// stores bundles the repositories a storage driver provides
type stores struct {
	users      repository.UserRepository
	volunteers repository.VolunteerRepository
	donations  repository.DonationRepository
	db         handler.Pinger
	close      func()
}

func openStores(ctx context.Context, driver string, log zerolog.Logger) (*stores, error) {
	if driver == config.StorageMemory {
		log.Warn().Msg("using in-memory storage; data is lost on restart")
		mem := memory.NewStore()
		return &stores{users: mem.Users(), volunteers: mem.Volunteers(), donations: mem.Donations(), close: func() {}}, nil
	}

	dbCfg, err := config.LoadDBConfig()
	if err != nil {
		return nil, err
	}
	pool, err := config.ConnectDB(ctx, dbCfg, log)
	if err != nil {
		return nil, err
	}
	if err := config.AutoMigrate(ctx, pool, log); err != nil {
		pool.Close()
		return nil, err
	}
	return &stores{
		users:      repository.NewUserRepository(pool),
		volunteers: repository.NewVolunteerRepository(pool),
		donations:  repository.NewDonationRepository(pool),
		db:         pool,
		close:      pool.Close,
	}, nil
}

func main() {
	// Load .env file
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New(os.Getenv("APP_ENV"))
		bootLog.Fatal().Err(err).Msg("failed to load config")
	}
	log := logger.New(cfg.AppEnv)
	if envErr != nil {
		log.Info().Msg("no .env file found, relying on environment variables")
	}
	if cfg.AppEnv != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg.StorageDriver, log)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.StorageDriver).Msg("failed to open storage")
	}
	defer st.close()

	jwtUtil := utils.NewJWTUtil(cfg.JWTSecret, cfg.JWTExpirationHours)
	p := policy.New()

	router, err := handler.NewRouter(handler.RouterConfig{
		Auth:               service.NewAuthService(st.users, jwtUtil, log),
		Donations:          service.NewDonationService(st.donations, st.volunteers, p, log),
		Volunteers:         service.NewVolunteerService(st.volunteers, st.donations, p, cfg.LeaderboardSize, log),
		Policy:             p,
		JWT:                jwtUtil,
		DB:                 st.db,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		AuthRateLimit:      cfg.AuthRateLimit,
		TrustedProxies:     cfg.TrustedProxies,
		Log:                log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build router")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.ServerPort).Str("storage", cfg.StorageDriver).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("listen")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exiting")
}
