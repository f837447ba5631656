package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"pitchroom/internal/audit"
	"pitchroom/internal/auth"
	authhandler "pitchroom/internal/auth/handler"
	"pitchroom/internal/auth/store/session"
	contenthandler "pitchroom/internal/content/handler"
	"pitchroom/internal/content/paths"
	"pitchroom/internal/content/schema"
	contentservice "pitchroom/internal/content/service"
	"pitchroom/internal/content/store"
	"pitchroom/internal/platform/config"
	"pitchroom/internal/platform/httpserver"
	"pitchroom/internal/platform/logger"
	"pitchroom/internal/platform/metrics"
	platformredis "pitchroom/internal/platform/redis"
)

// main wires high-level dependencies and keeps the server lifecycle small.
// Business logic lives in the internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	m := metrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	catalog, err := paths.Load(cfg.ContentManifest)
	if err != nil {
		log.Error("load content manifest", "error", err)
		os.Exit(1)
	}
	registry, err := schema.NewRegistry()
	if err != nil {
		log.Error("compile content schemas", "error", err)
		os.Exit(1)
	}

	var documents store.Store
	if cfg.DatabaseURL != "" {
		pg, err := store.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Error("connect postgres", "error", err)
			os.Exit(1)
		}
		defer pg.Close()
		documents = pg
		log.Info("content store: postgres")
	} else {
		fs, err := store.NewFileStore(cfg.ContentRoot, log)
		if err != nil {
			log.Error("open content root", "error", err)
			os.Exit(1)
		}
		documents = fs
		log.Info("content store: file", "root", fs.Root())
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("connect redis", "error", err)
		os.Exit(1)
	}
	var sessions auth.SessionStore
	if redisClient != nil {
		defer redisClient.Close()
		sessions = session.NewRedis(redisClient.Client)
		log.Info("session store: redis")
	} else {
		sessions = session.NewInMemory()
		log.Info("session store: memory")
	}

	tokens := auth.NewTokenService(cfg.SessionSigningKey)
	authService := auth.NewService(tokens, sessions, auth.Config{
		EditorEmail:        cfg.EditorEmail,
		EditorPasswordHash: cfg.EditorPasswordHash,
		AdminEmails:        cfg.AdminEmails,
		DevMode:            cfg.IsDevelopment(),
		SessionTTL:         cfg.SessionTTL,
	}, log)

	publishers := []audit.Publisher{&audit.LogPublisher{Logger: log}}
	if len(cfg.KafkaBrokers) > 0 {
		kafka, err := audit.NewKafkaPublisher(cfg.KafkaBrokers)
		if err != nil {
			log.Error("connect kafka", "error", err)
			os.Exit(1)
		}
		publishers = append(publishers, kafka)
		log.Info("audit sink: kafka", "topic", audit.Topic)
	}
	recorder := audit.NewRecorder(log, m.AuditDropped, publishers...)

	policy := schema.PolicyForEnvironment(cfg.IsDevelopment())
	contentSvc := contentservice.New(catalog, registry, documents, policy, m, recorder, log)

	router := chi.NewRouter()
	contenthandler.New(contentSvc, log, m, authService).Register(router)
	authhandler.New(authService, log, !cfg.IsDevelopment()).Register(router)
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting pitchroom",
		"addr", cfg.Addr,
		"environment", cfg.Environment,
		"validation_policy", string(policy),
		"paths", len(catalog.All()),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := recorder.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}
