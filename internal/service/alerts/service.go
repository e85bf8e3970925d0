package alerts

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mamadbah2/dairyfarm/internal/domain/models"
)

// CalvingWindow is how many days ahead an expected calving raises an alert.
const CalvingWindow = 7

type Calvings interface {
	CalvingsDue(ctx context.Context, within int) ([]models.CalvingDue, error)
}

type FollowUps interface {
	FollowUpsDue(ctx context.Context, day models.Date) ([]models.HealthRecord, error)
	Today() models.Date
}

type Stock interface {
	LowStock(ctx context.Context) ([]models.FeedInventory, error)
}

type Notifier interface {
	Create(ctx context.Context, in models.NotificationInput) (*models.Notification, error)
}

// Result counts the notifications raised by one sweep.
type Result struct {
	Calvings  int `json:"calvings"`
	FollowUps int `json:"follow_ups"`
	LowStock  int `json:"low_stock"`
}

func (r Result) Total() int { return r.Calvings + r.FollowUps + r.LowStock }

// Service scans the herd for conditions that need the manager's attention and turns
// them into notifications for a single recipient.
type Service struct {
	calvings  Calvings
	followUps FollowUps
	stock     Stock
	notifier  Notifier
	recipient string
	logger    *zap.Logger
}

func NewService(calvings Calvings, followUps FollowUps, stock Stock, notifier Notifier, recipient string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if recipient == "" {
		recipient = "farm-manager"
	}
	return &Service{
		calvings:  calvings,
		followUps: followUps,
		stock:     stock,
		notifier:  notifier,
		recipient: recipient,
		logger:    logger,
	}
}

// Sweep runs every check once. A failing check does not stop the others.
func (s *Service) Sweep(ctx context.Context) (Result, error) {
	var res Result
	var errs []error

	n, err := s.CheckCalvings(ctx)
	res.Calvings = n
	errs = append(errs, err)

	n, err = s.CheckFollowUps(ctx)
	res.FollowUps = n
	errs = append(errs, err)

	n, err = s.CheckLowStock(ctx)
	res.LowStock = n
	errs = append(errs, err)

	s.logger.Info("alert sweep finished",
		zap.Int("calvings", res.Calvings),
		zap.Int("follow_ups", res.FollowUps),
		zap.Int("low_stock", res.LowStock))
	return res, errors.Join(errs...)
}

func (s *Service) CheckCalvings(ctx context.Context) (int, error) {
	due, err := s.calvings.CalvingsDue(ctx, CalvingWindow)
	if err != nil {
		return 0, fmt.Errorf("calvings due: %w", err)
	}
	sent := 0
	for _, d := range due {
		cowID, farmID := d.Cow.ID, d.Cow.FarmID
		priority := models.PriorityHigh
		if d.DaysLeft <= 1 {
			priority = models.PriorityUrgent
		}
		in := models.NotificationInput{
			RecipientID: s.recipient,
			Title:       "Calving due",
			Message: fmt.Sprintf("%s (%s) is expected to calve on %s, in %d day(s).",
				d.Cow.Name, d.Cow.TagNumber, d.Record.ExpectedCalvingDate, d.DaysLeft),
			NotificationType: models.NotifyCalvingDue,
			Priority:         priority,
			FarmID:           &farmID,
			CowID:            &cowID,
		}
		if s.send(ctx, in) {
			sent++
		}
	}
	return sent, nil
}

func (s *Service) CheckFollowUps(ctx context.Context) (int, error) {
	today := s.followUps.Today()
	due, err := s.followUps.FollowUpsDue(ctx, today)
	if err != nil {
		return 0, fmt.Errorf("follow-ups due: %w", err)
	}
	sent := 0
	for _, r := range due {
		farmID := r.FarmID
		in := models.NotificationInput{
			RecipientID:      s.recipient,
			Title:            "Treatment follow-up",
			Message:          fmt.Sprintf("Follow up on %s for %s today.", r.AnimalName, r.DiseaseName),
			NotificationType: models.NotifyTreatmentFollowup,
			Priority:         models.PriorityMedium,
			FarmID:           &farmID,
		}
		if r.Animal.Kind == models.AnimalCow {
			cowID := r.Animal.ID
			in.CowID = &cowID
		}
		if s.send(ctx, in) {
			sent++
		}
	}
	return sent, nil
}

func (s *Service) CheckLowStock(ctx context.Context) (int, error) {
	low, err := s.stock.LowStock(ctx)
	if err != nil {
		return 0, fmt.Errorf("low stock: %w", err)
	}
	sent := 0
	for _, inv := range low {
		farmID := inv.FarmID
		priority := models.PriorityMedium
		if inv.CurrentStock.IsZero() {
			priority = models.PriorityUrgent
		}
		name := inv.FeedTypeName
		if name == "" {
			name = inv.FeedTypeID.String()
		}
		in := models.NotificationInput{
			RecipientID: s.recipient,
			Title:       "Low feed stock",
			Message: fmt.Sprintf("%s is down to %s kg (minimum %s kg).",
				name, inv.CurrentStock.StringFixed(2), inv.MinimumStockLevel.StringFixed(2)),
			NotificationType: models.NotifyLowStock,
			Priority:         priority,
			FarmID:           &farmID,
		}
		if s.send(ctx, in) {
			sent++
		}
	}
	return sent, nil
}

func (s *Service) send(ctx context.Context, in models.NotificationInput) bool {
	if _, err := s.notifier.Create(ctx, in); err != nil {
		s.logger.Warn("alert not recorded", zap.String("type", string(in.NotificationType)), zap.Error(err))
		return false
	}
	return true
}
