// Package app wires the engine's infrastructure, services and transports together.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/errgroup"

	"surveyengine/internal/cache"
	"surveyengine/internal/config"
	"surveyengine/internal/event"
	"surveyengine/internal/i18n"
	"surveyengine/internal/metrics"
	"surveyengine/internal/repository"
	"surveyengine/internal/service"
	"surveyengine/internal/stats"
	"surveyengine/internal/transport/rest"
	"surveyengine/internal/transport/ws"
)

const shutdownTimeout = 30 * time.Second

// App holds the running components of the server
type App struct {
	cfg *config.Config

	mongo     *mongo.Client
	redis     *redis.Client
	publisher event.Publisher

	Queue    *stats.Queue
	Notifier *service.LiveNotifier
	Hub      *ws.Hub
	Server   *http.Server
}

// New connects to Mongo and Redis and builds every component
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{cfg: cfg}

	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	a.mongo = mongoClient

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := mongoClient.Ping(pingCtx, nil); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	slog.Info("connected to MongoDB", "database", cfg.MongoDB)
	db := mongoClient.Database(cfg.MongoDB)

	a.redis = redis.NewClient(&redis.Options{Addr: strings.TrimPrefix(cfg.RedisAddr, "redis://")})
	if err := a.redis.Ping(ctx).Err(); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}
	slog.Info("connected to Redis", "addr", cfg.RedisAddr)

	a.publisher = newPublisher(cfg)

	messages, err := i18n.Default()
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}

	m := metrics.New("surveyengine")

	// Initialize repositories
	surveyRepo := repository.NewSurveyRepo(db)
	recipientRepo := repository.NewRecipientRepo(db)
	responseRepo := repository.NewResponseRepo(db, recipientRepo)
	statisticRepo := repository.NewStatisticRepo(db)

	// Initialize caches
	surveyCache := cache.NewSurveyCache(a.redis, cfg.SurveyCacheTTL)
	completionCache := cache.NewCompletionCache(a.redis)

	// Initialize WebSocket hub and background workers
	a.Hub = ws.NewHub()
	a.Queue = stats.NewQueue(statisticRepo, cfg.Stats, m)
	a.Notifier = service.NewLiveNotifier(a.Hub, cfg.LiveDataInterval, m)
	a.Hub.OnEmpty(a.Notifier.Forget)

	// Initialize services
	authSvc := service.NewAuthService(service.AuthConfig{
		HostUsername: cfg.HostUsername,
		HostPassword: cfg.HostPassword,
		JWTSecret:    cfg.JWTSecret,
		SessionTTL:   cfg.SessionTTL,
	})
	surveySvc := service.NewSurveyService(surveyRepo, surveyCache)
	surveySvc.SetBroadcaster(a.Hub)

	responseSvc := service.NewResponseService(surveySvc, responseRepo, recipientRepo, authSvc, messages, a.Queue)
	responseSvc.SetBroadcaster(a.Hub)
	responseSvc.SetNotifier(a.Notifier)
	responseSvc.SetPublisher(a.publisher)
	responseSvc.SetCompletionCache(completionCache)
	responseSvc.SetMetrics(m)

	router := rest.NewRouter(&rest.Container{
		AuthService:     authSvc,
		SurveyService:   surveySvc,
		ResponseService: responseSvc,
		Statistics:      statisticRepo,
		Responses:       responseRepo,
		WSHub:           a.Hub,
		Metrics:         m,
		CORSOrigins:     cfg.CORSOrigins,
	})

	a.Server = &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return a, nil
}

// newPublisher dials the broker when one is configured. Without a broker, completion
// events are only logged.
func newPublisher(cfg *config.Config) event.Publisher {
	logPub := event.NewLogPublisher(slog.Default().With("component", "events"))
	if cfg.AMQPURL == "" {
		slog.Warn("AMQP_URL not set, completion events are logged only")
		return logPub
	}
	pub, err := event.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	if err != nil {
		slog.Error("failed to connect to AMQP broker, completion events are logged only", "error", err)
		return logPub
	}
	slog.Info("publishing events", "exchange", cfg.AMQPExchange)
	return pub
}

// Run serves HTTP and runs the background workers until ctx is cancelled or one of
// them fails
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return a.Hub.Run(ctx) })
	g.Go(func() error { return a.Queue.Run(ctx) })
	g.Go(func() error { return a.Notifier.Run(ctx) })

	g.Go(func() error {
		slog.Info("server starting", "addr", a.Server.Addr)
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to serve HTTP: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		slog.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return a.Server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// Close releases broker, Redis and Mongo connections
func (a *App) Close() {
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			slog.Warn("failed to close publisher", "error", err)
		}
	}
	if a.redis != nil {
		a.redis.Close()
	}
	if a.mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.mongo.Disconnect(ctx); err != nil {
			slog.Warn("failed to disconnect from MongoDB", "error", err)
		}
	}
}
