// Package app assembles the storage backends and domain services shared by the
// HTTP server and farmctl.
package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mamadbah2/dairyfarm/internal/blob"
	"github.com/mamadbah2/dairyfarm/internal/config"
	"github.com/mamadbah2/dairyfarm/internal/repository/gormdb"
	"github.com/mamadbah2/dairyfarm/internal/repository/mongodb"
	"github.com/mamadbah2/dairyfarm/internal/repository/sheets"
	"github.com/mamadbah2/dairyfarm/internal/server/admin"
	"github.com/mamadbah2/dairyfarm/internal/service/alerts"
	"github.com/mamadbah2/dairyfarm/internal/service/analytics"
	"github.com/mamadbah2/dairyfarm/internal/service/breeding"
	"github.com/mamadbah2/dairyfarm/internal/service/farms"
	"github.com/mamadbah2/dairyfarm/internal/service/feeds"
	"github.com/mamadbah2/dairyfarm/internal/service/financial"
	"github.com/mamadbah2/dairyfarm/internal/service/health"
	"github.com/mamadbah2/dairyfarm/internal/service/livestock"
	"github.com/mamadbah2/dairyfarm/internal/service/notifications"
	"github.com/mamadbah2/dairyfarm/internal/service/production"
	"github.com/mamadbah2/dairyfarm/internal/service/reporting"
	"github.com/mamadbah2/dairyfarm/internal/service/reports"
	"github.com/mamadbah2/dairyfarm/internal/service/summary"
)

type App struct {
	Config *config.Config
	Logger *zap.Logger
	Store  *gormdb.Store

	// Archive is nil unless a MongoDB uri is configured.
	Archive *mongodb.Archive

	Farms         *farms.Service
	Livestock     *livestock.Service
	Production    *production.Service
	Feeds         *feeds.Service
	Health        *health.Service
	Breeding      *breeding.Service
	Financial     *financial.Service
	Analytics     *analytics.Service
	Summary       *summary.Service
	Notifications *notifications.Service
	Reports       *reports.Service
	Alerts        *alerts.Service
	Digests       *reporting.Service
	Registry      *admin.Registry

	closers []func(context.Context) error
}

// New opens the database and builds every service. Optional backends (the
// summary archive, the spreadsheet export and redis) that fail to connect are
// logged and left out.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{Config: cfg, Logger: logger}

	store, err := gormdb.Open(ctx, cfg.Database.Driver, cfg.Database.DSN, logger.Named("repo.gorm"))
	if err != nil {
		return nil, err
	}
	a.Store = store
	a.closers = append(a.closers, func(context.Context) error { return store.Close() })
	if cfg.Database.AutoMigrate {
		if err := store.Migrate(ctx); err != nil {
			_ = a.Close(ctx)
			return nil, err
		}
	}

	files, err := blob.New(ctx, cfg.Storage.Blob())
	if err != nil {
		_ = a.Close(ctx)
		return nil, fmt.Errorf("open report storage: %w", err)
	}

	a.Farms = farms.NewService(store, logger.Named("svc.farms"))
	a.Livestock = livestock.NewService(store, logger.Named("svc.livestock"))
	a.Production = production.NewService(store, logger.Named("svc.production"))
	a.Feeds = feeds.NewService(store, logger.Named("svc.feeds"))
	a.Health = health.NewService(store, logger.Named("svc.health"))
	a.Breeding = breeding.NewService(store, logger.Named("svc.breeding"))
	a.Financial = financial.NewService(store, logger.Named("svc.financial"))
	a.Analytics = analytics.NewService(store, logger.Named("svc.analytics"))
	a.Summary = summary.NewService(store, logger.Named("svc.summary"), a.sinks(ctx)...)
	a.Notifications = notifications.NewService(store, a.broker(ctx), logger.Named("svc.notifications"))
	a.Reports = reports.NewService(store, a.Analytics, files, a.Notifications, logger.Named("svc.reports"))
	a.Alerts = alerts.NewService(a.Breeding, a.Health, a.Feeds, a.Notifications, cfg.WhatsApp.ManagerNumber, logger.Named("svc.alerts"))
	a.Digests = reporting.NewService(a.Analytics, a.Livestock, logger.Named("svc.reporting"))
	a.Registry = admin.NewDefault(store, admin.Services{
		Farms:         a.Farms,
		Livestock:     a.Livestock,
		Production:    a.Production,
		Feeds:         a.Feeds,
		Health:        a.Health,
		Breeding:      a.Breeding,
		Financial:     a.Financial,
		Summary:       a.Summary,
		Reports:       a.Reports,
		Notifications: a.Notifications,
	})
	return a, nil
}

func (a *App) sinks(ctx context.Context) []summary.Sink {
	var sinks []summary.Sink
	if uri := a.Config.MongoDB.URI; uri != "" {
		archive, err := mongodb.NewArchive(ctx, uri, a.Config.MongoDB.DBName)
		if err != nil {
			a.Logger.Warn("summary archive disabled", zap.Error(err))
		} else {
			a.Archive = archive
			a.closers = append(a.closers, archive.Close)
			sinks = append(sinks, archive)
		}
	}
	if a.Config.Sheets.SpreadsheetID != "" {
		sheet, err := sheets.NewSheet(ctx, a.Config.Sheets, a.Logger.Named("repo.sheets"))
		if err != nil {
			a.Logger.Warn("spreadsheet export disabled", zap.Error(err))
			return sinks
		}
		exporter := sheets.NewExporter(sheet)
		if err := exporter.EnsureHeaders(ctx); err != nil {
			a.Logger.Warn("spreadsheet headers not written", zap.Error(err))
		}
		sinks = append(sinks, exporter)
	}
	return sinks
}

func (a *App) broker(ctx context.Context) notifications.Broker {
	if a.Config.Redis.Addr == "" {
		return notifications.NewMemoryBroker()
	}
	rb, err := notifications.NewRedisBroker(ctx, a.Config.Redis.Addr, a.Config.Redis.Password, a.Logger.Named("repo.redis"))
	if err != nil {
		a.Logger.Warn("redis unavailable, notifications stay in process", zap.Error(err))
		return notifications.NewMemoryBroker()
	}
	a.closers = append(a.closers, func(context.Context) error { return rb.Close() })
	return rb
}

// Close releases the backends in reverse order of opening.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
