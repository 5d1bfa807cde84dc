package handler

import (
	"fmt"
	"time"

	"donation_tracker/internal/middleware"
	"donation_tracker/internal/policy"
	"donation_tracker/internal/service"
	"donation_tracker/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterConfig is everything NewRouter wires together
type RouterConfig struct {
	Auth       service.AuthService
	Donations  service.DonationService
	Volunteers service.VolunteerService
	Policy     *policy.Policy
	JWT        *utils.JWTUtil
	DB         Pinger

	CORSAllowedOrigins []string
	AuthRateLimit      int // requests per minute per client IP on /api/auth, 0 disables
	// TrustedProxies may set X-Forwarded-For; nil trusts none and keys
	// clients by their socket address.
	TrustedProxies []string
	Log                zerolog.Logger
}

// NewRouter builds the gin engine with every route under /api plus /health
func NewRouter(cfg RouterConfig) (*gin.Engine, error) {
	router := gin.New()
	if err := router.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, fmt.Errorf("invalid trusted proxies: %w", err)
	}
	router.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.Logger(cfg.Log),
		middleware.CORS(cfg.CORSAllowedOrigins),
	)

	jwtAuthMW := middleware.JWTAuthMiddleware(cfg.JWT)

	var authMW []gin.HandlerFunc
	if cfg.AuthRateLimit > 0 {
		authMW = append(authMW, middleware.RateLimit(cfg.AuthRateLimit, time.Minute))
	}

	api := router.Group("/api")
	NewAuthHandler(cfg.Auth, cfg.Log).RegisterAuthRoutes(api, authMW...)
	NewDonationHandler(cfg.Donations, cfg.Log).RegisterDonationRoutes(api, jwtAuthMW, cfg.Policy)
	NewVolunteerHandler(cfg.Volunteers, cfg.Log).RegisterVolunteerRoutes(api, jwtAuthMW, cfg.Policy)

	router.GET("/health", Health(cfg.DB))
	return router, nil
}
