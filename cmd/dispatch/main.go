package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/swiftride/dispatch-core/internal/cities"
	"github.com/swiftride/dispatch-core/internal/dispatch"
	"github.com/swiftride/dispatch-core/internal/geoindex"
	"github.com/swiftride/dispatch-core/internal/locations"
	"github.com/swiftride/dispatch-core/internal/pricing"
	"github.com/swiftride/dispatch-core/internal/shifts"
	"github.com/swiftride/dispatch-core/internal/trips"
	"github.com/swiftride/dispatch-core/pkg/common"
	"github.com/swiftride/dispatch-core/pkg/config"
	"github.com/swiftride/dispatch-core/pkg/database"
	"github.com/swiftride/dispatch-core/pkg/eventbus"
	"github.com/swiftride/dispatch-core/pkg/logger"
	"github.com/swiftride/dispatch-core/pkg/middleware"
	redisclient "github.com/swiftride/dispatch-core/pkg/redis"
	"github.com/swiftride/dispatch-core/pkg/websocket"
)

const (
	serviceName = "dispatch-core"
	version     = "1.0.0"
)

func main() {
	cfg, err := config.Load(serviceName)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	if err := logger.Init(cfg.Server.Environment); err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer logger.Sync()

	if err := database.Migrate(&cfg.Database); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	pool, err := database.NewPostgresPool(&cfg.Database)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer database.Close(pool)

	redis, err := redisclient.NewRedisClient(&cfg.Redis)
	if err != nil {
		logger.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer redis.Close()

	var bus *eventbus.Bus
	if cfg.NATS.Enabled {
		busCfg := eventbus.DefaultConfig()
		busCfg.URL = cfg.NATS.URL
		busCfg.Name = serviceName
		bus, err = eventbus.New(busCfg)
		if err != nil {
			logger.Fatal("failed to connect to event bus", zap.Error(err))
		}
		defer bus.Close()
	} else {
		logger.Info("event bus disabled")
	}

	hub := websocket.NewHub()
	go hub.Run()

	locationTTL := time.Duration(cfg.Location.TTLMinutes) * time.Minute
	offerTimeout := time.Duration(cfg.Dispatch.OfferTimeoutSeconds) * time.Second

	geoIndexService := geoindex.NewService(redis, locationTTL)

	citiesRepo := cities.NewRepository(pool)
	citiesService := cities.NewService(citiesRepo)
	citiesHandler := cities.NewHandler(citiesService)

	pricingRepo := pricing.NewRepository(pool)
	pricingService := pricing.NewService(pricingRepo, citiesService, cfg.Pricing.AverageSpeedKmh)
	pricingHandler := pricing.NewHandler(pricingService)

	shiftsRepo := shifts.NewRepository(pool)
	shiftsService := shifts.NewService(shiftsRepo, geoIndexService, publisher(bus))
	shiftsHandler := shifts.NewHandler(shiftsService)

	locationsRepo := locations.NewRepository(pool)
	locationsService := locations.NewService(locationsRepo, shiftsRepo, geoIndexService)
	locationsHandler := locations.NewHandler(locationsService)

	dispatchRepo := dispatch.NewRepository(pool)
	dispatchService := dispatch.NewService(dispatchRepo, geoIndexService, publisher(bus), hub, dispatch.Config{
		BatchSize:         cfg.Dispatch.BatchSize,
		MaxWaves:          cfg.Dispatch.MaxWaves,
		InitialRadiusKm:   cfg.Dispatch.InitialRadiusKm,
		RadiusIncrementKm: cfg.Dispatch.RadiusIncrementKm,
		MaxRadiusKm:       cfg.Dispatch.MaxRadiusKm,
		OfferTimeout:      offerTimeout,
		LocationTTL:       locationTTL,
	})
	dispatchHandler := dispatch.NewHandler(dispatchService)

	tripsRepo := trips.NewRepository(pool)
	tripsService := trips.NewService(
		tripsRepo, citiesService, pricingService, dispatchService, shiftsService,
		publisher(bus), hub,
		trips.Config{
			OTPLength:      cfg.OTP.Length,
			OTPTTL:         time.Duration(cfg.OTP.TTLMinutes) * time.Minute,
			OTPMaxAttempts: cfg.OTP.MaxAttempts,
		},
	)
	tripsHandler := trips.NewHandler(tripsService)

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.RequestLogger(serviceName))
	router.Use(middleware.Metrics(serviceName))
	router.Use(cors.New(corsConfig(cfg)))

	router.GET("/health", common.HealthCheck(serviceName, version))
	router.GET("/ready", common.ReadinessProbe(serviceName, version, map[string]func() error{
		"database": func() error { return pool.Ping(context.Background()) },
		"redis":    func() error { return redis.Ping(context.Background()).Err() },
	}))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.GET("/ws", func(c *gin.Context) {
		websocket.HandleWebSocket(c, hub, cfg.JWT.Secret)
	})

	api := router.Group("/api/v1", middleware.AuthMiddleware(cfg.JWT.Secret))
	citiesHandler.RegisterRoutes(api)
	pricingHandler.RegisterRoutes(api)
	shiftsHandler.RegisterRoutes(api)
	locationsHandler.RegisterRoutes(api)
	dispatchHandler.RegisterRoutes(api)
	tripsHandler.RegisterRoutes(api)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server starting",
			zap.String("service", serviceName),
			zap.String("port", cfg.Server.Port),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("forced shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

// publisher adapts the optional bus to the services' publisher interfaces. A
// nil *Bus must stay a nil interface value.
func publisher(bus *eventbus.Bus) interface {
	Publish(ctx context.Context, subject string, event *eventbus.Event) error
} {
	if bus == nil {
		return nil
	}
	return bus
}

func corsConfig(cfg *config.Config) cors.Config {
	c := cors.DefaultConfig()
	if cfg.Server.CORSOrigins == "*" {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = splitOrigins(cfg.Server.CORSOrigins)
	}
	c.AllowHeaders = append(c.AllowHeaders, "Authorization", "X-Correlation-ID")
	return c
}

func splitOrigins(origins string) []string {
	parts := strings.Split(origins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
