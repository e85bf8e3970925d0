package reports

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mamadbah2/dairyfarm/internal/blob"
	"github.com/mamadbah2/dairyfarm/internal/domain/models"
	"github.com/mamadbah2/dairyfarm/internal/repository/gormdb"
)

var ReportSpec = gormdb.ListSpec{
	Filters: map[string]gormdb.Filter{
		"farm_id":     {Column: "farm_id", Kind: gormdb.FilterUUID},
		"report_type": {Column: "report_type"},
		"start_date":  {Column: "start_date", Kind: gormdb.FilterDate},
	},
	Search:   []string{"generated_by"},
	Ordering: []string{"created_at", "start_date", "end_date"},
	Default:  "-created_at",
}

// Bundler computes the statistics a report is made of.
type Bundler interface {
	Bundle(ctx context.Context, farmID uuid.UUID, start, end models.Date) (models.AnalyticsBundle, error)
}

// Notifier announces finished reports.
type Notifier interface {
	Create(ctx context.Context, in models.NotificationInput) (*models.Notification, error)
}

const defaultRecipient = "farm-manager"

type Service struct {
	store    *gormdb.Store
	bundler  Bundler
	files    blob.Store
	notifier Notifier
	logger   *zap.Logger
}

func NewService(store *gormdb.Store, bundler Bundler, files blob.Store, notifier Notifier, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, bundler: bundler, files: files, notifier: notifier, logger: logger}
}

// Generate builds the analytics bundle for the range, renders it to PDF, stores the
// file and the report row, and notifies the requester.
func (s *Service) Generate(ctx context.Context, req models.ReportRequest) (*models.ProductionReport, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	bundle, err := s.bundler.Bundle(ctx, req.FarmID, req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}
	r := &models.ProductionReport{
		FarmID:      req.FarmID,
		ReportType:  req.ReportType,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		ReportData:  bundle,
		GeneratedBy: req.GeneratedBy,
	}
	r.EnsureID()

	doc, err := renderPDF(r)
	if err != nil {
		return nil, err
	}
	key := fmt.Sprintf("reports/%s/%s-%s-%s.pdf", r.FarmID, r.ReportType, r.StartDate, r.ID)
	if err := s.files.Put(ctx, key, bytes.NewReader(doc), "application/pdf"); err != nil {
		return nil, fmt.Errorf("store report file: %w", err)
	}
	r.FilePath = key
	if err := gormdb.Create(s.store.Conn(ctx), r); err != nil {
		return nil, err
	}
	s.logger.Info("report generated",
		zap.String("report_id", r.ID.String()),
		zap.String("farm_id", r.FarmID.String()),
		zap.String("period", bundle.Period),
		zap.String("file", key),
		zap.Int("bytes", len(doc)))

	if s.notifier != nil {
		recipient := req.GeneratedBy
		if recipient == "" {
			recipient = defaultRecipient
		}
		farmID := r.FarmID
		_, err := s.notifier.Create(ctx, models.NotificationInput{
			RecipientID:      recipient,
			Title:            fmt.Sprintf("%s report ready", r.ReportType),
			Message:          fmt.Sprintf("The %s report for %s (%s) is ready.", r.ReportType, bundle.Farm, bundle.Period),
			NotificationType: models.NotifyReportGenerated,
			Priority:         models.PriorityLow,
			FarmID:           &farmID,
		})
		if err != nil {
			s.logger.Warn("notify report", zap.String("report_id", r.ID.String()), zap.Error(err))
		}
	}
	return r, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.ProductionReport, error) {
	return gormdb.Get[models.ProductionReport](s.store.Conn(ctx), id, "report")
}

func (s *Service) List(ctx context.Context, q models.ListQuery) (models.Page[models.ProductionReport], error) {
	return gormdb.List[models.ProductionReport](s.store.Conn(ctx), ReportSpec, q)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return gormdb.SoftDelete[models.ProductionReport](s.store.Conn(ctx), id, "report")
}

// Open returns the stored PDF of a report.
func (s *Service) Open(ctx context.Context, id uuid.UUID) (*models.ProductionReport, io.ReadCloser, error) {
	r, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if r.FilePath == "" {
		return nil, nil, fmt.Errorf("report %s file: %w", id, models.ErrNotFound)
	}
	rc, err := s.files.Get(ctx, r.FilePath)
	if err != nil {
		return nil, nil, fmt.Errorf("report %s file: %w", id, translateBlob(err))
	}
	return r, rc, nil
}

func translateBlob(err error) error {
	if errors.Is(err, blob.ErrNotFound) {
		return models.ErrNotFound
	}
	return err
}
