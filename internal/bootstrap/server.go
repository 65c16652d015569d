package bootstrap

import (
	"fmt"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/mohammadpnp/member-import/internal/config"
	httpecho "github.com/mohammadpnp/member-import/internal/interfaces/http/echo"
)

func NewHTTPServer(cfg *config.Configuration, s *Services, logger logrus.FieldLogger) (*echo.Echo, error) {
	server := echo.New()
	server.HideBanner = true

	server.Use(middleware.Recover())
	server.Use(middleware.RequestID())
	server.Use(httpecho.RequestLogger(logger))
	server.Use(middleware.BodyLimit(cfg.BodyLimit))

	activationLimiter, err := newActivationLimiter(cfg, s, logger)
	if err != nil {
		return nil, err
	}

	httpecho.RegisterRoutes(server, httpecho.Handlers{
		Imports:     httpecho.NewImportHandler(s.Preview, s.Commit, s.History, logger),
		Activations: httpecho.NewActivationHandler(s.Activation, logger),
		Members:     httpecho.NewMemberHandler(s.GetMember),
	}, activationLimiter)

	return server, nil
}

// newActivationLimiter shares counters through Redis when it is configured,
// so every replica enforces the same budget.
func newActivationLimiter(cfg *config.Configuration, s *Services, logger logrus.FieldLogger) (*limiter.Limiter, error) {
	if !cfg.RateLimit.Enabled {
		return nil, nil
	}
	rate, err := limiter.NewRateFromFormatted(cfg.RateLimit.Rate)
	if err != nil {
		return nil, fmt.Errorf("parse ACTIVATION_RATE_LIMIT: %w", err)
	}

	store := memory.NewStore()
	if s.Redis != nil {
		redisStore, err := sredis.NewStoreWithOptions(s.Redis, limiter.StoreOptions{Prefix: "member-import:activation-limit"})
		if err != nil {
			logger.WithError(err).Warn("failed to create redis rate limit store, falling back to memory")
		} else {
			store = redisStore
		}
	}
	return limiter.New(store, rate), nil
}
