// Package main is the entry point for the Posentia demo server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/posentia/posentia/internal/ai"
	"github.com/posentia/posentia/internal/audit"
	"github.com/posentia/posentia/internal/circuitbreaker"
	"github.com/posentia/posentia/internal/clock"
	"github.com/posentia/posentia/internal/concierge"
	"github.com/posentia/posentia/internal/config"
	"github.com/posentia/posentia/internal/contactlog"
	"github.com/posentia/posentia/internal/crm"
	"github.com/posentia/posentia/internal/database"
	"github.com/posentia/posentia/internal/domain"
	"github.com/posentia/posentia/internal/handler"
	"github.com/posentia/posentia/internal/logging"
	"github.com/posentia/posentia/internal/metrics"
	"github.com/posentia/posentia/internal/middleware"
	"github.com/posentia/posentia/internal/notify"
	"github.com/posentia/posentia/internal/places"
	"github.com/posentia/posentia/internal/ratelimit"
	"github.com/posentia/posentia/internal/repository"
	"github.com/posentia/posentia/internal/service"
	"github.com/posentia/posentia/internal/session"
	"github.com/posentia/posentia/internal/shutdown"
	"github.com/posentia/posentia/internal/voiceprovider"
	"github.com/posentia/posentia/internal/voiceprovider/retell"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

const (
	// dbStatsInterval is how often pool gauges are refreshed.
	dbStatsInterval = 15 * time.Second
	// sessionSweepInterval is how often expired in-memory sessions and visitor
	// flags are dropped.
	sessionSweepInterval = time.Minute
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "posentia: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logging.New(logging.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		Environment: cfg.Server.Environment,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger := log.Zap()
	defer func() { _ = logger.Sync() }()

	logger.Info("starting posentia server",
		zap.String("version", version),
		zap.String("addr", cfg.Server.Addr()),
		zap.String("env", cfg.Server.Environment),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	coord := shutdown.NewCoordinator(cfg.Server.ShutdownTimeout, logger)
	a, err := newApp(ctx, cfg, log, clock.New(), metrics.NewMetrics(), coord)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Completions and CRM webhooks may take a while.
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	coord.Add(shutdown.PhaseDrain, "http-server", server.Shutdown)

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	a.audit.ServiceStarted(ctx, version, cfg.Server.Environment)

	var listenErr error
	reason := "signal received"
	select {
	case <-ctx.Done():
	case listenErr = <-serveErr:
		reason = "server failed"
		logger.Error("server failed", zap.Error(listenErr))
	}

	a.audit.ServiceStopping(context.Background(), reason)
	return errors.Join(listenErr, coord.Shutdown(context.Background()))
}

// app is the wired server.
type app struct {
	handler  http.Handler
	audit    *audit.Logger
	breakers []*circuitbreaker.Breaker
}

// newApp wires every component from cfg. Missing credentials select the
// demo path of the matching collaborator; an unreachable database or Redis
// is logged and replaced by the in-process fallback. Cleanup hooks are
// registered on coord.
func newApp(ctx context.Context, cfg *config.Config, log *logging.Logger, clk clock.Clock, m *metrics.Metrics, coord *shutdown.Coordinator) (*app, error) {
	logger := log.Zap()
	auditLogger := audit.NewLogger(logger, clk)
	events := metrics.NewBusinessEventLogger(logger, clk)

	a := &app{audit: auditLogger}
	newBreaker := func(name string) *circuitbreaker.Breaker {
		b := circuitbreaker.New(name, circuitbreaker.DefaultConfig(), logger,
			circuitbreaker.WithClock(clk),
			circuitbreaker.OnStateChange(func(name string, _, to circuitbreaker.State) {
				m.SetCircuitBreakerState(name, int(to))
			}),
		)
		a.breakers = append(a.breakers, b)
		return b
	}

	checks := make(map[string]handler.HealthChecker)

	// Persistence.
	var (
		contactRepo  domain.ContactRepository
		demoLeadRepo domain.DemoLeadRepository
	)
	if db := openDatabase(ctx, cfg, clk, m, logger, coord); db != nil {
		contactRepo = repository.NewContactRepository(db.Pool, clk)
		demoLeadRepo = repository.NewDemoLeadRepository(db.Pool, clk)
		checks["database"] = db
	}

	sessions, flags, rdb := openSessionStores(ctx, cfg, clk, logger)
	if rdb != nil {
		checks["redis"] = redisPinger{rdb}
		coord.Add(shutdown.PhaseClose, "redis", func(context.Context) error { return rdb.Close() })
	}
	var sweepers []sweeper
	if mem, ok := sessions.(*session.MemoryStore); ok {
		sweepers = append(sweepers, mem)
	}
	if mem, ok := flags.(*session.MemoryFlagStore); ok {
		sweepers = append(sweepers, mem)
	}
	if len(sweepers) > 0 {
		startSessionSweeper(sweepers, coord, logger)
	}

	// Upstreams.
	var completer ai.Completer
	if cfg.OpenAI.APIKey != "" {
		completer = ai.NewOpenAIClient(ai.OpenAIConfig{
			APIKey:  cfg.OpenAI.APIKey,
			Model:   cfg.OpenAI.Model,
			BaseURL: cfg.OpenAI.BaseURL,
		}, newBreaker("openai"), logger)
	} else {
		logger.Warn("OpenAI API key not configured, chat uses scripted replies")
	}
	costLimiter := ratelimit.NewCostLimiter(ratelimit.Config{
		MaxPerMinute:  cfg.OpenAI.MaxPerMinute,
		MaxPerHour:    cfg.OpenAI.MaxPerHour,
		MaxPerDay:     cfg.OpenAI.MaxPerDay,
		MaxConcurrent: cfg.OpenAI.MaxConcurrent,
	}, clk, logger)

	var searcher places.Searcher
	if cfg.GooglePlaces.APIKey != "" {
		gs, err := places.NewGoogleSearcher(ctx, cfg.GooglePlaces.APIKey, newBreaker("google-places"))
		if err != nil {
			logger.Warn("google places client unavailable, lookups use the demo profile", zap.Error(err))
		} else {
			searcher = gs
		}
	}

	fub := crm.NewFUBClient(crm.FUBConfig{
		BaseURL: cfg.FUB.APIBaseURL,
		APIKey:  cfg.FUB.APIKey,
		Timeout: cfg.FUB.Timeout,
	}, newBreaker("fub"), clk, logger)

	voice := retell.New(retell.Config{
		APIKey:             cfg.Retell.APIKey,
		MasterAgentID:      cfg.Retell.MasterAgentID,
		MasterAgentVersion: cfg.Retell.MasterAgentVersion,
		WebhookSecret:      cfg.Retell.WebhookSecret,
		APIURL:             cfg.Retell.APIURL,
	}, newBreaker("retell"), clk, logger)
	registry := voiceprovider.NewRegistry(logger)
	registry.Register(voice)

	var sender notify.EmailSender
	if sg := notify.NewSendGridSender(notify.SendGridConfig{
		APIKey:    cfg.SendGrid.APIKey,
		FromEmail: cfg.SendGrid.FromEmail,
		FromName:  cfg.SendGrid.FromName,
	}, logger); sg != nil {
		sender = sg
	}
	notifier := notify.NewContactNotifier(sender, cfg.Contact.RecipientEmail, logger)

	// Services.
	conciergeSvc := service.NewConciergeService(concierge.New(cfg.Demo.TypingDelay, clk), sessions, clk, logger, m, events)
	chatSvc := service.NewChatService(completer, costLimiter, clk, logger, m, events)
	leadSvc := service.NewLeadService(fub, crm.NewWebhookSender(clk, logger), auditLogger, clk, logger, m, events)
	contactSvc := service.NewContactService(contactRepo, contactlog.New(cfg.Contact.CSVPath), notifier, clk, logger, m, events)
	demoLeadSvc := service.NewDemoLeadService(demoLeadRepo, flags, clk, logger, m, events)
	visitorSvc := service.NewVisitorService(flags)
	voiceSvc := service.NewReceptionistService(voice, places.NewLookup(searcher, logger), auditLogger, clk, logger, m, events)

	// HTTP.
	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window, logger,
		middleware.WithRateLimitClock(clk),
		middleware.OnRateLimited(func(r *http.Request, ip string) {
			auditLogger.RateLimitExceeded(r.Context(), ip, middleware.GetRequestID(r.Context()), r.URL.Path)
			m.RecordRateLimitHit("http")
		}),
	)
	coord.Add(shutdown.PhaseWorkers, "rate-limiter", func(context.Context) error {
		rateLimiter.Stop()
		return nil
	})

	breakers := make([]handler.BreakerReporter, 0, len(a.breakers))
	for _, b := range a.breakers {
		breakers = append(breakers, b)
	}

	a.handler = handler.NewRouter(handler.RouterConfig{
		Logger:      logger,
		Metrics:     m,
		RateLimiter: rateLimiter,
		Health: handler.NewHealthHandler(handler.HealthHandlerConfig{
			Version:          version,
			Checks:           checks,
			Breakers:         breakers,
			ProviderRegistry: registry,
			Drain:            coord,
			Logger:           logger,
		}),
		LogLevel: handler.NewLogLevelHandler(log),
		Webhooks: handler.NewWebhookHandler(handler.WebhookHandlerConfig{
			Service:          voiceSvc,
			ProviderRegistry: registry,
			Audit:            auditLogger,
			Logger:           logger,
			Metrics:          m,
		}),
		API: []handler.Routes{
			handler.NewConciergeHandler(conciergeSvc, logger),
			handler.NewLeadHandler(chatSvc, leadSvc, logger),
			handler.NewVoiceHandler(voiceSvc, logger),
			handler.NewFormsHandler(contactSvc, demoLeadSvc, visitorSvc, logger),
		},
	})

	logger.Info("components initialized",
		zap.Bool("database", contactRepo != nil),
		zap.Bool("redis", rdb != nil),
		zap.Bool("openai", completer != nil),
		zap.Bool("google_places", searcher != nil),
		zap.Bool("fub", cfg.FUB.APIKey != ""),
		zap.Bool("retell", cfg.Retell.Enabled()),
		zap.Bool("sendgrid", sender != nil),
	)
	return a, nil
}

// openDatabase connects to Postgres and applies migrations. It returns nil
// when the database is unconfigured or unreachable; form submissions then
// skip the insert.
func openDatabase(ctx context.Context, cfg *config.Config, clk clock.Clock, m *metrics.Metrics, logger *zap.Logger, coord *shutdown.Coordinator) *database.DB {
	if !cfg.Database.Enabled() {
		logger.Warn("database not configured, submissions are not persisted")
		return nil
	}

	tracer := database.NewQueryTracer(logger, clk, m.RecordDBQuery)
	db, err := database.New(ctx, &cfg.Database, tracer, logger)
	if err != nil {
		logger.Error("database unavailable, submissions are not persisted", zap.Error(err))
		return nil
	}
	if err := db.Migrate(ctx); err != nil {
		logger.Error("database migration failed, submissions are not persisted", zap.Error(err))
		db.Close()
		return nil
	}

	statsCtx, stopStats := context.WithCancel(context.WithoutCancel(ctx))
	statsDone := make(chan struct{})
	go func() {
		defer close(statsDone)
		ticker := time.NewTicker(dbStatsInterval)
		defer ticker.Stop()
		for {
			stat := db.Stats()
			m.UpdateDBConnections(int(stat.TotalConns()), int(stat.AcquiredConns()))
			select {
			case <-ticker.C:
			case <-statsCtx.Done():
				return
			}
		}
	}()

	coord.Add(shutdown.PhaseWorkers, "db-stats", func(ctx context.Context) error {
		stopStats()
		select {
		case <-statsDone:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	coord.Add(shutdown.PhaseClose, "database", func(context.Context) error {
		db.Close()
		return nil
	})
	return db
}

// openSessionStores returns Redis-backed stores when Redis is configured
// and answers, otherwise in-memory ones. The client is returned so it can
// be closed and health-checked.
func openSessionStores(ctx context.Context, cfg *config.Config, clk clock.Clock, logger *zap.Logger) (session.Store, session.FlagStore, *redis.Client) {
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err == nil {
			logger.Info("using redis session store", zap.String("addr", cfg.Redis.Addr))
			return session.NewRedisStore(rdb, cfg.Demo.SessionTTL, nil), session.NewRedisFlagStore(rdb, nil), rdb
		}
		logger.Error("redis unavailable, using in-memory session store", zap.Error(err))
		_ = rdb.Close()
	}
	return session.NewMemoryStore(cfg.Demo.SessionTTL, clk), session.NewMemoryFlagStore(clk), nil
}

// sweeper is an in-memory store that drops expired entries on demand.
type sweeper interface {
	Sweep() int
	Len() int
}

// startSessionSweeper evicts expired entries from the in-memory stores
// until the workers phase of shutdown.
func startSessionSweeper(stores []sweeper, coord *shutdown.Coordinator, logger *zap.Logger) {
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(sessionSweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				for _, st := range stores {
					if n := st.Sweep(); n > 0 {
						logger.Debug("expired entries swept", zap.Int("removed", n), zap.Int("remaining", st.Len()))
					}
				}
			case <-stop:
				return
			}
		}
	}()
	coord.Add(shutdown.PhaseWorkers, "session-sweeper", func(ctx context.Context) error {
		close(stop)
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
}

type redisPinger struct {
	client *redis.Client
}

func (p redisPinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}
