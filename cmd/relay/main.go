package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/programbi/crm-leads/internal/config"
	"github.com/programbi/crm-leads/internal/infra/http/handlers"
	"github.com/programbi/crm-leads/internal/infra/http/middleware"
	"github.com/programbi/crm-leads/internal/infra/integration/shopify"
	"github.com/programbi/crm-leads/internal/logging"
	"github.com/programbi/crm-leads/internal/usecase"
)

// Relay: segura o token do e-commerce e faz o upsert de clientes por email.
func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("configuração inválida", "error", err)
	}
	logger := logging.Setup(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Sem credenciais o relay sobe mesmo assim e responde 500 em /customers.
	configErr := cfg.ValidateRelay()
	var upsertUC *usecase.UpsertCustomerUseCase
	if configErr != nil {
		logger.Error("relay sem credenciais do e-commerce", "error", configErr)
	} else {
		client := shopify.NewClient(cfg.ShopifyStore, cfg.ShopifyAdminToken, cfg.ShopifyAPIVersion)
		upsertUC = usecase.NewUpsertCustomerUseCase(client)
		upsertUC.Logger = logger.With("component", "relay")
	}
	relayHandler := handlers.NewRelayHandler(upsertUC, configErr)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins(),
		AllowedMethods: []string{"POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.HandleFunc("/customers", relayHandler.Handle)
	r.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              ":" + cfg.RelayPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("relay rodando", "port", cfg.RelayPort)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logging.Fatal("relay caiu", "error", err)
	}
}
