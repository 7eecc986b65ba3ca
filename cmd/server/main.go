// Command server wires the territorial rights engine: stores (postgres or
// in-memory), Redis-backed locks and dedupe, the Kafka alert sink, the chi
// HTTP surface and the background alert worker.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"demarc/internal/alert"
	"demarc/internal/auditchain"
	audithandler "demarc/internal/auditchain/handler"
	auditstore "demarc/internal/auditchain/store"
	"demarc/internal/fraud"
	fraudhandler "demarc/internal/fraud/handler"
	fraudmetrics "demarc/internal/fraud/metrics"
	fraudstore "demarc/internal/fraud/store"
	"demarc/internal/ledger"
	"demarc/internal/link"
	linkhandler "demarc/internal/link/handler"
	linkmetrics "demarc/internal/link/metrics"
	linkstore "demarc/internal/link/store"
	"demarc/internal/partner/handler"
	partnermetrics "demarc/internal/partner/metrics"
	partnerservice "demarc/internal/partner/service"
	partnerstore "demarc/internal/partner/store/partner"
	"demarc/internal/performance"
	perfhandler "demarc/internal/performance/handler"
	perfmetrics "demarc/internal/performance/metrics"
	perfstore "demarc/internal/performance/store"
	"demarc/internal/platform/config"
	"demarc/internal/platform/httpserver"
	"demarc/internal/platform/locker"
	"demarc/internal/platform/logger"
	"demarc/internal/platform/middleware"
	"demarc/internal/platform/postgres"
	platformredis "demarc/internal/platform/redis"
	splithandler "demarc/internal/split/handler"
	territoryhandler "demarc/internal/territory/handler"
	territorymetrics "demarc/internal/territory/metrics"
	territoryservice "demarc/internal/territory/service"
	territorystore "demarc/internal/territory/store/territory"
	"demarc/pkg/platform/tx"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()
	slog.SetDefault(log)

	db, err := postgres.Open(cfg.DatabaseURL)
	if err != nil {
		log.Error("postgres connection failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if db != nil {
		defer db.Close()
	}

	rdb, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if rdb != nil {
		defer rdb.Close()
	}

	// Stores: postgres when configured, in-memory otherwise.
	var (
		territories territoryservice.TerritoryStore
		partners    partnerservice.PartnerStore
		audits      auditchain.Store
		links       link.LinkStore
		frauds      fraud.Store
		targets     performance.TargetStore
		runner      tx.Runner
	)
	if db != nil {
		territories = territorystore.NewPostgres(db)
		partners = partnerstore.NewPostgres(db)
		audits = auditstore.NewPostgres(db)
		links = linkstore.NewPostgres(db)
		frauds = fraudstore.NewPostgres(db)
		targets = perfstore.NewPostgres(db)
		runner = tx.NewSQLRunner(db)
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores")
		territories = territorystore.NewInMemory()
		partners = partnerstore.NewInMemory()
		audits = auditstore.NewInMemory()
		links = linkstore.NewInMemory()
		frauds = fraudstore.NewInMemory()
		targets = perfstore.NewInMemory()
		runner = tx.NewInMemoryRunner()
	}

	var locks locker.Locker = locker.NewInProcess()
	if rdb != nil {
		locks = locker.NewRedis(rdb.Client, "demarc")
	}

	// Alert pipeline: async fan-out to Kafka when brokers are configured,
	// the structured log otherwise.
	var notifier alert.Notifier = alert.NewLogNotifier(log)
	if len(cfg.KafkaBrokers) > 0 {
		kafkaNotifier, err := alert.NewKafkaNotifier(cfg.KafkaBrokers, cfg.AlertTopic)
		if err != nil {
			log.Error("kafka connection failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer kafkaNotifier.Close()
		notifier = kafkaNotifier
	}
	alerts := alert.NewPublisher(0, log)
	alertWorker := alert.NewWorker(alerts, notifier, log)

	// Services.
	auditSvc := auditchain.NewService(audits, auditchain.WithLogger(log))
	partnerSvc := partnerservice.New(partners, territories, auditSvc,
		partnerservice.WithLogger(log),
		partnerservice.WithMetrics(partnermetrics.New()),
		partnerservice.WithTxRunner(runner),
		partnerservice.WithLocker(locks),
	)
	territorySvc := territoryservice.New(territories, partners, auditSvc,
		territoryservice.WithLogger(log),
		territoryservice.WithMetrics(territorymetrics.New()),
		territoryservice.WithTxRunner(runner),
		territoryservice.WithLocker(locks),
	)
	fraudOpts := []fraud.Option{
		fraud.WithLogger(log),
		fraud.WithMetrics(fraudmetrics.New()),
		fraud.WithTxRunner(runner),
	}
	if rdb != nil {
		fraudOpts = append(fraudOpts, fraud.WithDedupeWindow(fraud.NewRedisWindow(rdb.Client)))
	}
	fraudSvc := fraud.New(frauds, partnerSvc, alerts, fraudOpts...)
	linkSvc := link.NewService(links, partnerSvc, territories, auditSvc, fraudSvc, ledger.NewLogPoster(log),
		link.WithLogger(log),
		link.WithMetrics(linkmetrics.New()),
		link.WithTxRunner(runner),
	)
	perfSvc := performance.New(targets, links, partnerSvc,
		performance.WithLogger(log),
		performance.WithMetrics(perfmetrics.New()),
		performance.WithTxRunner(runner),
	)

	router := buildRouter(cfg, log, routerDeps{
		territories: territoryhandler.New(territorySvc, log),
		partners:    handler.New(partnerSvc, log),
		links:       linkhandler.New(linkSvc, log),
		splits:      splithandler.New(partnerSvc, log),
		frauds:      fraudhandler.New(fraudSvc, log),
		audits:      audithandler.New(auditSvc, log),
		targets:     perfhandler.New(perfSvc, log),
		db:          db,
		rdb:         rdb,
	})

	srv := httpserver.New(cfg.Addr, router)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening", slog.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := alertWorker.Run(gCtx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

type routerDeps struct {
	territories *territoryhandler.Handler
	partners    *handler.Handler
	links       *linkhandler.Handler
	splits      *splithandler.Handler
	frauds      *fraudhandler.Handler
	audits      *audithandler.Handler
	targets     *perfhandler.Handler

	db  *sql.DB
	rdb *platformredis.Client
}

func buildRouter(cfg config.Config, log *slog.Logger, deps routerDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)

	admin := r.With(middleware.RequireAdmin(middleware.NewHMACValidator(cfg.JWTSigningKey), log))

	deps.territories.Register(r, admin)
	deps.partners.Register(r, admin)
	deps.links.Register(r)
	deps.splits.Register(r)
	deps.frauds.Register(r)
	deps.audits.Register(r)
	deps.targets.Register(r, admin)

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", healthz(deps))
	return r
}

// healthz pings the backing stores. In-memory mode reports healthy with no
// checks.
func healthz(deps routerDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if deps.db != nil {
			if err := deps.db.PingContext(ctx); err != nil {
				http.Error(w, `{"status":"postgres unavailable"}`, http.StatusServiceUnavailable)
				return
			}
		}
		if deps.rdb != nil {
			if err := deps.rdb.Health(ctx); err != nil {
				http.Error(w, `{"status":"redis unavailable"}`, http.StatusServiceUnavailable)
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}
