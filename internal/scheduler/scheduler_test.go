package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/dairyfarm/internal/config"
	"github.com/mamadbah2/dairyfarm/internal/domain/models"
	"github.com/mamadbah2/dairyfarm/internal/service/alerts"
	"github.com/mamadbah2/dairyfarm/internal/service/summary"
)

type recorder struct {
	days     []models.Date
	months   []string
	reports  []models.ReportRequest
	digests  []models.Date
	messages []string
	farms    []uuid.UUID
	failFarm uuid.UUID
}

func (r *recorder) RecalculateAllForDate(_ context.Context, day models.Date) (summary.RecalculateResult, error) {
	r.days = append(r.days, day)
	return summary.RecalculateResult{Farms: len(r.farms)}, nil
}

func (r *recorder) RecalculateMonthlyFinancial(_ context.Context, farmID uuid.UUID, year, month int) (*models.MonthlyFinancialSummary, error) {
	if farmID == r.failFarm {
		return nil, errors.New("locked")
	}
	r.months = append(r.months, time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC).Format("2006-01"))
	return &models.MonthlyFinancialSummary{}, nil
}

func (r *recorder) ActiveIDs(context.Context) ([]uuid.UUID, error) { return r.farms, nil }

func (r *recorder) Sweep(context.Context) (alerts.Result, error) {
	return alerts.Result{Calvings: 1}, nil
}

func (r *recorder) Generate(_ context.Context, req models.ReportRequest) (*models.ProductionReport, error) {
	if req.FarmID == r.failFarm {
		return nil, errors.New("disk full")
	}
	r.reports = append(r.reports, req)
	return &models.ProductionReport{}, nil
}

func (r *recorder) WeeklyDigest(_ context.Context, _ uuid.UUID, end models.Date) (string, error) {
	r.digests = append(r.digests, end)
	return "digest " + end.String(), nil
}

func (r *recorder) NotifyManager(_ context.Context, message string) error {
	r.messages = append(r.messages, message)
	return nil
}

var reporting = config.ReportingConfig{
	DailyMilkSchedule:    "30 0 * * *",
	MonthlySchedule:      "0 1 1 * *",
	AlertsSchedule:       "0 6 * * *",
	WeeklyReportSchedule: "0 20 * * 0",
	Timezone:             "Africa/Nairobi",
	JobTimeout:           time.Minute,
}

func newScheduler(t *testing.T, rec *recorder, now time.Time) *Scheduler {
	t.Helper()
	s, err := NewScheduler(reporting, Deps{
		Summaries: rec, Farms: rec, Alerts: rec, Reports: rec, Digests: rec, Messenger: rec,
	}, nil)
	require.NoError(t, err)
	s.now = func() time.Time { return now }
	return s
}

func TestRecalculateYesterdayUsesLocalDate(t *testing.T) {
	rec := &recorder{}
	// 22:30 UTC on May 31 is already June 1 in Nairobi.
	s := newScheduler(t, rec, time.Date(2024, 5, 31, 22, 30, 0, 0, time.UTC))

	require.NoError(t, s.RecalculateYesterday(context.Background()))
	assert.Equal(t, []models.Date{models.DateOf(2024, 5, 31)}, rec.days)
}

func TestRecalculatePreviousMonth(t *testing.T) {
	bad := uuid.New()
	rec := &recorder{farms: []uuid.UUID{uuid.New(), bad, uuid.New()}, failFarm: bad}
	s := newScheduler(t, rec, time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC))

	err := s.RecalculatePreviousMonth(context.Background())
	assert.ErrorContains(t, err, "locked")
	assert.Equal(t, []string{"2023-12", "2023-12"}, rec.months)
}

func TestWeeklyReports(t *testing.T) {
	rec := &recorder{farms: []uuid.UUID{uuid.New()}}
	s := newScheduler(t, rec, time.Date(2024, 5, 19, 17, 0, 0, 0, time.UTC))

	require.NoError(t, s.WeeklyReports(context.Background()))
	require.Len(t, rec.reports, 1)
	assert.Equal(t, models.ReportWeekly, rec.reports[0].ReportType)
	assert.Equal(t, models.DateOf(2024, 5, 12), rec.reports[0].StartDate)
	assert.Equal(t, models.DateOf(2024, 5, 18), rec.reports[0].EndDate)
	assert.Equal(t, []string{"digest 2024-05-18"}, rec.messages)
}

func TestWeeklyReportsWithoutMessenger(t *testing.T) {
	bad := uuid.New()
	rec := &recorder{farms: []uuid.UUID{bad, uuid.New()}, failFarm: bad}
	s := newScheduler(t, rec, time.Date(2024, 5, 19, 17, 0, 0, 0, time.UTC))
	s.deps.Messenger = nil

	err := s.WeeklyReports(context.Background())
	assert.ErrorContains(t, err, "disk full")
	assert.Len(t, rec.reports, 1)
	assert.Empty(t, rec.digests)
}

func TestRegister(t *testing.T) {
	rec := &recorder{}
	s := newScheduler(t, rec, time.Now())
	require.NoError(t, s.Register())
	assert.Len(t, s.cron.Entries(), 4)
	require.NoError(t, s.SweepAlerts(context.Background()))

	broken := reporting
	broken.AlertsSchedule = "every day"
	s, err := NewScheduler(broken, Deps{}, nil)
	require.NoError(t, err)
	assert.Error(t, s.Register())

	broken.Timezone = "Mars/Olympus"
	_, err = NewScheduler(broken, Deps{}, nil)
	assert.Error(t, err)
}

type observed struct {
	jobs []string
	errs []error
}

func (o *observed) ObserveJob(job string, _ time.Duration, err error) {
	o.jobs = append(o.jobs, job)
	o.errs = append(o.errs, err)
}

func TestWrapObservesAndBoundsRuns(t *testing.T) {
	obs := &observed{}
	s, err := NewScheduler(reporting, Deps{Observer: obs}, nil)
	require.NoError(t, err)

	var deadline bool
	s.wrap("heartbeat", func(ctx context.Context) error {
		_, deadline = ctx.Deadline()
		return errors.New("boom")
	})()

	assert.True(t, deadline)
	assert.Equal(t, []string{"heartbeat"}, obs.jobs)
	assert.EqualError(t, obs.errs[0], "boom")
}
