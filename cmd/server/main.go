package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/google/uuid"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/mamadbah2/dairyfarm/internal/app"
	"github.com/mamadbah2/dairyfarm/internal/config"
	"github.com/mamadbah2/dairyfarm/internal/domain/models"
	"github.com/mamadbah2/dairyfarm/internal/metrics"
	"github.com/mamadbah2/dairyfarm/internal/scheduler"
	"github.com/mamadbah2/dairyfarm/internal/server/handlers"
	"github.com/mamadbah2/dairyfarm/internal/server/router"
	commandsvc "github.com/mamadbah2/dairyfarm/internal/service/commands"
	whatsappsvc "github.com/mamadbah2/dairyfarm/internal/service/whatsapp"
	"github.com/mamadbah2/dairyfarm/pkg/clients/anthropic"
	whatsappclient "github.com/mamadbah2/dairyfarm/pkg/clients/whatsapp"
	"github.com/mamadbah2/dairyfarm/pkg/logger"
)

func main() {
	envFile := flag.String("env", "", "path to a .env file")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Log.Level))
	defer func() { _ = baseLogger.Sync() }()
	zap.ReplaceGlobals(baseLogger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, baseLogger)
	if err != nil {
		baseLogger.Fatal("failed to initialize application", zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.Close(closeCtx); err != nil {
			baseLogger.Error("failed to close backends", zap.Error(err))
		}
	}()

	m := metrics.New()
	deps := scheduler.Deps{
		Summaries: a.Summary,
		Farms:     a.Farms,
		Alerts:    a.Alerts,
		Reports:   a.Reports,
		Digests:   a.Digests,
		Observer:  m,
	}

	var webhookHandler *handlers.WebhookHandler
	if cfg.WhatsApp.Enabled() {
		messagingSvc := newMessaging(cfg, a, baseLogger)
		a.Notifications.SetDeliverer(messagingSvc)
		deps.Messenger = messagingSvc
		webhookHandler = handlers.NewWebhookHandler(messagingSvc, baseLogger)
	} else {
		baseLogger.Warn("whatsapp token missing, messaging disabled")
	}

	engine := router.New(router.Deps{
		API: []router.Mounter{
			handlers.NewRecords(a.Farms, a.Livestock, a.Production, a.Feeds, a.Health, a.Breeding, a.Financial, baseLogger),
			handlers.NewInsights(a.Summary, a.Analytics, baseLogger),
			handlers.NewReports(a.Reports, baseLogger),
			handlers.NewNotifications(a.Notifications, baseLogger),
			handlers.NewAdmin(a.Registry, baseLogger),
		},
		Webhook: webhookHandler,
		Metrics: m,
		DB:      a.Store,
	}, baseLogger)

	sched, err := scheduler.NewScheduler(cfg.Reporting, deps, baseLogger)
	if err != nil {
		baseLogger.Fatal("failed to create scheduler", zap.Error(err))
	}
	if err := sched.Register(); err != nil {
		baseLogger.Fatal("failed to schedule jobs", zap.Error(err))
	}
	sched.Start()
	defer sched.Stop()

	handler := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler(engine)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}

// newMessaging wires the WhatsApp side: commands run against the configured
// default farm, with the AI translator as a fallback when a key is set.
func newMessaging(cfg *config.Config, a *app.App, baseLogger *zap.Logger) *whatsappsvc.MetaWhatsAppService {
	farmID := uuid.Nil
	if cfg.WhatsApp.DefaultFarmID != "" {
		id, err := uuid.Parse(cfg.WhatsApp.DefaultFarmID)
		if err != nil {
			baseLogger.Fatal("invalid default farm id", zap.String("value", cfg.WhatsApp.DefaultFarmID), zap.Error(err))
		}
		farmID = id
	} else {
		baseLogger.Warn("no default farm configured, whatsapp commands will be rejected")
	}

	commands := commandsvc.NewService(farmID, a.Livestock, a.Production, a.Financial, a.Analytics, baseLogger.Named("svc.commands"))
	if cfg.AI.AnthropicKey != "" {
		commands.SetTranslator(anthropic.NewClient(cfg.AI.AnthropicKey, cfg.AI.Model, models.CommandUsage))
		baseLogger.Info("anthropic ai client enabled")
	} else {
		baseLogger.Warn("anthropic api key missing, natural language processing disabled")
	}

	client := whatsappclient.NewClient(cfg.WhatsApp)
	return whatsappsvc.NewMetaWhatsAppService(cfg.WhatsApp, client, commands, baseLogger.Named("svc.whatsapp"))
}
