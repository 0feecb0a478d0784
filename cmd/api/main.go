package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/programbi/crm-leads/internal/config"
	"github.com/programbi/crm-leads/internal/entity"
	"github.com/programbi/crm-leads/internal/infra/database"
	"github.com/programbi/crm-leads/internal/infra/http/handlers"
	"github.com/programbi/crm-leads/internal/infra/http/middleware"
	"github.com/programbi/crm-leads/internal/infra/integration/relay"
	"github.com/programbi/crm-leads/internal/infra/mail"
	"github.com/programbi/crm-leads/internal/infra/queue"
	"github.com/programbi/crm-leads/internal/infra/worker"
	"github.com/programbi/crm-leads/internal/logging"
	"github.com/programbi/crm-leads/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("configuração inválida", "error", err)
	}
	logger := logging.Setup(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Repositórios
	var (
		db        *sql.DB
		leadRepo  entity.LeadRepositoryInterface
		templates entity.TemplateRepositoryInterface
	)
	if cfg.DatabaseURL != "" {
		db, err = database.NewDBConnection(cfg.DatabaseURL)
		if err != nil {
			logging.Fatal("falha ao conectar no Postgres", "error", err)
		}
		defer db.Close()

		if err := database.Migrate(ctx, db); err != nil {
			logging.Fatal("falha nas migrations", "error", err)
		}
		leadRepo = database.NewLeadRepository(db, cfg.DatabaseURL)
		templates = database.NewTemplateRepository(db)
	} else {
		logger.Warn("DATABASE_URL vazio, usando store em memória")
		leadRepo = database.NewMemoryLeadRepository()
		templates = database.NewMemoryTemplateRepository()
	}

	// 2. Gateways e adapters
	relayClient := relay.NewClient(cfg.RelayURL, cfg.RelayTimeout)

	var rabbitMQ *queue.RabbitMQ
	if cfg.RabbitMQURL != "" {
		rabbitMQ, err = queue.NewRabbitMQ(cfg.RabbitMQURL)
		if err != nil {
			logging.Fatal("falha ao conectar no RabbitMQ", "error", err)
		}
		defer rabbitMQ.Close()
	}

	var mailer usecase.EmailService
	if cfg.MailEnabled() {
		mailer = mail.NewEmailSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPFrom)
	}

	// 3. UseCases
	syncUC := usecase.NewSyncLeadsUseCase(leadRepo, relayClient, usecase.RetryPolicy{
		BaseDelay:   cfg.RetryBaseDelay,
		MaxDelay:    cfg.RetryMaxDelay,
		MaxAttempts: cfg.RetryMaxAttempts,
	})
	syncUC.Metrics = middleware.SyncMetrics{}
	syncUC.Logger = logger.With("component", "sync")
	if rabbitMQ != nil {
		syncUC.Events = queue.NewProducer(rabbitMQ.Ch)
	}

	leadsUC := usecase.NewManageLeadsUseCase(leadRepo, templates, mailer)
	templatesUC := usecase.NewManageTemplatesUseCase(templates)
	contactUC := usecase.NewContactUseCase(leadRepo, templates)
	dashboardUC := usecase.NewDashboardUseCase(leadRepo, cfg.Location())

	// 4. Handlers
	leadHandler := handlers.NewLeadHandler(leadsUC)
	syncHandler := handlers.NewSyncHandler(syncUC)
	templateHandler := handlers.NewTemplateHandler(templatesUC)
	contactHandler := handlers.NewContactHandler(contactUC)
	dashboardHandler := handlers.NewDashboardHandler(dashboardUC)

	var broker handlers.BrokerStatus
	if rabbitMQ != nil {
		broker = rabbitMQ
	}
	healthHandler := handlers.NewHealthHandler(db, broker, cfg.RelayURL)

	// 5. Router
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Metrics)
	r.Use(requestLogger(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins(),
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/health", healthHandler.Handle)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/leads", func(r chi.Router) {
		r.Post("/", leadHandler.CaptureLead)
		r.Get("/", leadHandler.List)
		r.Get("/{id}", leadHandler.Get)
		r.Delete("/{id}", leadHandler.DeletePermanent)
		r.Patch("/{id}/status", leadHandler.ChangeStatus)
		r.Post("/{id}/toggle-contacted", leadHandler.ToggleContacted)
		r.Put("/{id}/note", leadHandler.SaveNote)
		r.Post("/{id}/trash", leadHandler.MoveToTrash)
		r.Post("/{id}/restore", leadHandler.Restore)
		r.Post("/{id}/email-sent", leadHandler.MarkEmailSent)
		r.Get("/{id}/contact/email", contactHandler.Email)
		r.Get("/{id}/contact/whatsapp", contactHandler.WhatsApp)
	})

	r.Route("/templates", func(r chi.Router) {
		r.Get("/", templateHandler.List)
		r.Post("/", templateHandler.Create)
		r.Put("/{id}", templateHandler.Update)
		r.Delete("/{id}", templateHandler.Delete)
	})

	r.Post("/sync/force", syncHandler.Force)
	r.Get("/sync/status", syncHandler.Status)

	r.Route("/dashboard", func(r chi.Router) {
		r.Get("/kpis", dashboardHandler.KPIs)
		r.Get("/trend", dashboardHandler.Trend)
		r.Get("/leads", dashboardHandler.Leads)
		r.Get("/export.csv", dashboardHandler.ExportCSV)
	})

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 6. Ciclo de vida
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("api rodando", "port", cfg.ServerPort, "env", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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

	// Snapshots disparam o sync fora da goroutine do store; o guard do engine coalesce.
	cancelSub, err := leadRepo.Subscribe(gctx, func(leads []entity.Lead) {
		go syncUC.HandleSnapshot(gctx, leads)
	})
	if err != nil {
		logging.Fatal("falha ao assinar mudanças de leads", "error", err)
	}
	defer cancelSub()

	retryWorker := worker.NewSyncRetryWorker(syncUC, cfg.SweepInterval)
	g.Go(func() error { return retryWorker.Start(gctx) })

	if rabbitMQ != nil {
		consumerCh, err := rabbitMQ.Conn.Channel()
		if err != nil {
			logging.Fatal("falha ao abrir canal de consumo", "error", err)
		}
		defer consumerCh.Close()

		audit := queue.NewWorker(consumerCh, queue.AuditLogger{Logger: logger.With("component", "sync_audit")})
		g.Go(func() error { return audit.Start(gctx, queue.QueueName) })
	}

	if err := g.Wait(); err != nil {
		logger.Error("api encerrada com erro", "error", err)
		return
	}
	logger.Info("api encerrada")
}

// requestLogger grava cada request no slog com o request id do chi.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Info("http",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", chimw.GetReqID(r.Context()),
			)
		})
	}
}
