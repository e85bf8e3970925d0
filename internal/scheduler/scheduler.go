package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/dairyfarm/internal/config"
	"github.com/mamadbah2/dairyfarm/internal/domain/models"
	"github.com/mamadbah2/dairyfarm/internal/service/alerts"
	"github.com/mamadbah2/dairyfarm/internal/service/summary"
)

type Summaries interface {
	RecalculateAllForDate(ctx context.Context, day models.Date) (summary.RecalculateResult, error)
	RecalculateMonthlyFinancial(ctx context.Context, farmID uuid.UUID, year, month int) (*models.MonthlyFinancialSummary, error)
}

type Farms interface {
	ActiveIDs(ctx context.Context) ([]uuid.UUID, error)
}

type Alerts interface {
	Sweep(ctx context.Context) (alerts.Result, error)
}

type Reports interface {
	Generate(ctx context.Context, req models.ReportRequest) (*models.ProductionReport, error)
}

type Digests interface {
	WeeklyDigest(ctx context.Context, farmID uuid.UUID, end models.Date) (string, error)
}

// Messenger reaches the farm manager. It is optional.
type Messenger interface {
	NotifyManager(ctx context.Context, message string) error
}

// Observer records job runs. It is optional.
type Observer interface {
	ObserveJob(job string, took time.Duration, err error)
}

// Deps are the services the jobs drive.
type Deps struct {
	Summaries Summaries
	Farms     Farms
	Alerts    Alerts
	Reports   Reports
	Digests   Digests
	Messenger Messenger
	Observer  Observer
}

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron    *cron.Cron
	cfg     config.ReportingConfig
	deps    Deps
	loc     *time.Location
	timeout time.Duration
	now     func() time.Time
	logger  *zap.Logger
}

// NewScheduler creates a scheduler running in the configured timezone.
func NewScheduler(cfg config.ReportingConfig, deps Deps, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
	}
	timeout := cfg.JobTimeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Scheduler{
		cron:    cron.New(cron.WithLocation(loc)),
		cfg:     cfg,
		deps:    deps,
		loc:     loc,
		timeout: timeout,
		now:     time.Now,
		logger:  logger.Named("scheduler"),
	}, nil
}

// Register adds every job to the cron table without starting it.
func (s *Scheduler) Register() error {
	jobs := []struct {
		name string
		spec string
		run  func(context.Context) error
	}{
		{"daily_milk", s.cfg.DailyMilkSchedule, s.RecalculateYesterday},
		{"monthly_financial", s.cfg.MonthlySchedule, s.RecalculatePreviousMonth},
		{"alerts", s.cfg.AlertsSchedule, s.SweepAlerts},
		{"weekly_report", s.cfg.WeeklyReportSchedule, s.WeeklyReports},
	}
	for _, job := range jobs {
		if job.spec == "" {
			s.logger.Info("job disabled", zap.String("job", job.name))
			continue
		}
		if _, err := s.cron.AddFunc(job.spec, s.wrap(job.name, job.run)); err != nil {
			return fmt.Errorf("schedule %s %q: %w", job.name, job.spec, err)
		}
	}
	return nil
}

// Start starts the scheduler.
func (s *Scheduler) Start() {
	s.logger.Info("starting scheduler", zap.String("timezone", s.loc.String()), zap.Int("jobs", len(s.cron.Entries())))
	s.cron.Start()
}

// Stop stops the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) wrap(name string, run func(context.Context) error) func() {
	return func() {
		start := time.Now()
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		err := run(ctx)
		if s.deps.Observer != nil {
			s.deps.Observer.ObserveJob(name, time.Since(start), err)
		}
		if err != nil {
			s.logger.Error("job failed", zap.String("job", name), zap.Duration("took", time.Since(start)), zap.Error(err))
			return
		}
		s.logger.Info("job done", zap.String("job", name), zap.Duration("took", time.Since(start)))
	}
}

func (s *Scheduler) today() models.Date {
	return models.Today(s.now().In(s.loc))
}

// RecalculateYesterday refreshes yesterday's summaries for every active farm.
func (s *Scheduler) RecalculateYesterday(ctx context.Context) error {
	day := s.today().AddDays(-1)
	res, err := s.deps.Summaries.RecalculateAllForDate(ctx, day)
	s.logger.Info("summaries recalculated", zap.String("date", day.String()),
		zap.Int("farms", res.Farms), zap.Int("daily", res.Daily), zap.Int("monthly", res.Monthly))
	return err
}

// RecalculatePreviousMonth closes the books of the month before today.
func (s *Scheduler) RecalculatePreviousMonth(ctx context.Context) error {
	first := s.today().Time
	prev := time.Date(first.Year(), first.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)

	ids, err := s.deps.Farms.ActiveIDs(ctx)
	if err != nil {
		return err
	}
	var errs []error
	for _, id := range ids {
		if _, err := s.deps.Summaries.RecalculateMonthlyFinancial(ctx, id, prev.Year(), int(prev.Month())); err != nil {
			errs = append(errs, fmt.Errorf("farm %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

func (s *Scheduler) SweepAlerts(ctx context.Context) error {
	res, err := s.deps.Alerts.Sweep(ctx)
	if res.Total() > 0 {
		s.logger.Info("alerts raised", zap.Int("calvings", res.Calvings), zap.Int("follow_ups", res.FollowUps), zap.Int("low_stock", res.LowStock))
	}
	return err
}

// WeeklyReports stores a weekly production report per active farm covering the
// seven days up to yesterday and sends the manager a digest of each.
func (s *Scheduler) WeeklyReports(ctx context.Context) error {
	end := s.today().AddDays(-1)
	ids, err := s.deps.Farms.ActiveIDs(ctx)
	if err != nil {
		return err
	}
	var errs []error
	for _, id := range ids {
		_, err := s.deps.Reports.Generate(ctx, models.ReportRequest{
			FarmID:      id,
			ReportType:  models.ReportWeekly,
			StartDate:   end.AddDays(-6),
			EndDate:     end,
			GeneratedBy: "scheduler",
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("weekly report for farm %s: %w", id, err))
			continue
		}
		if s.deps.Messenger == nil || s.deps.Digests == nil {
			continue
		}
		digest, err := s.deps.Digests.WeeklyDigest(ctx, id, end)
		if err != nil {
			errs = append(errs, fmt.Errorf("digest for farm %s: %w", id, err))
			continue
		}
		if err := s.deps.Messenger.NotifyManager(ctx, digest); err != nil {
			errs = append(errs, fmt.Errorf("send digest for farm %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}
