package notifications

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mamadbah2/dairyfarm/internal/domain/models"
	"github.com/mamadbah2/dairyfarm/internal/repository/gormdb"
)

var NotificationSpec = gormdb.ListSpec{
	Filters: map[string]gormdb.Filter{
		"recipient_id":      {Column: "recipient_id"},
		"is_read":           {Column: "is_read", Kind: gormdb.FilterBool},
		"notification_type": {Column: "notification_type"},
		"priority":          {Column: "priority"},
		"farm_id":           {Column: "farm_id", Kind: gormdb.FilterUUID},
		"cow_id":            {Column: "cow_id", Kind: gormdb.FilterUUID},
	},
	Search:   []string{"title", "message"},
	Ordering: []string{"created_at", "priority", "is_read"},
	Default:  "-created_at",
}

// Deliverer pushes escalated notifications outside the application, e.g. to WhatsApp.
type Deliverer interface {
	Deliver(ctx context.Context, n models.Notification) error
}

type Service struct {
	store     *gormdb.Store
	broker    Broker
	deliverer Deliverer
	logger    *zap.Logger
	now       func() time.Time
}

func NewService(store *gormdb.Store, broker Broker, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if broker == nil {
		broker = NewMemoryBroker()
	}
	return &Service{store: store, broker: broker, logger: logger, now: time.Now}
}

// SetDeliverer installs the outside channel for high and urgent notifications.
func (s *Service) SetDeliverer(d Deliverer) {
	s.deliverer = d
}

// Create stores the notification and publishes it to the recipient's live
// subscribers. Publishing and outside delivery are best effort.
func (s *Service) Create(ctx context.Context, in models.NotificationInput) (*models.Notification, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	n := in.Build()
	if err := gormdb.Create(s.store.Conn(ctx), n); err != nil {
		return nil, err
	}
	s.logger.Info("notification created",
		zap.String("notification_id", n.ID.String()),
		zap.String("recipient", n.RecipientID),
		zap.String("type", string(n.NotificationType)),
		zap.String("priority", string(n.Priority)))

	if payload, err := json.Marshal(n); err != nil {
		s.logger.Warn("encode notification", zap.Error(err))
	} else if err := s.broker.Publish(ctx, n.RecipientID, payload); err != nil {
		s.logger.Warn("publish notification", zap.String("notification_id", n.ID.String()), zap.Error(err))
	}

	if n.Priority.Escalated() && s.deliverer != nil {
		if err := s.deliverer.Deliver(ctx, *n); err != nil {
			s.logger.Warn("deliver notification", zap.String("notification_id", n.ID.String()), zap.Error(err))
		}
	}
	return n, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Notification, error) {
	return gormdb.Get[models.Notification](s.store.Conn(ctx), id, "notification")
}

func (s *Service) List(ctx context.Context, q models.ListQuery) (models.Page[models.Notification], error) {
	return gormdb.List[models.Notification](s.store.Conn(ctx), NotificationSpec, q)
}

// ListForRecipient lists one recipient's notifications, optionally unread only.
func (s *Service) ListForRecipient(ctx context.Context, recipient string, unreadOnly bool, q models.ListQuery) (models.Page[models.Notification], error) {
	if recipient == "" {
		return models.Page[models.Notification]{}, models.FieldError("recipient_id", "this field is required")
	}
	q = q.WithFilter("recipient_id", recipient)
	if unreadOnly {
		q = q.WithFilter("is_read", "false")
	}
	return s.List(ctx, q)
}

// MarkRead flags the notification read. Repeated calls keep the first read time.
func (s *Service) MarkRead(ctx context.Context, id uuid.UUID) (*models.Notification, error) {
	var n *models.Notification
	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		var err error
		if n, err = gormdb.Get[models.Notification](tx, id, "notification"); err != nil {
			return err
		}
		if !n.MarkRead(s.now().UTC()) {
			return nil
		}
		return gormdb.Save(tx, n)
	})
	if err != nil {
		return nil, err
	}
	return n, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return gormdb.SoftDelete[models.Notification](s.store.Conn(ctx), id, "notification")
}

// Subscribe opens the live stream of a recipient.
func (s *Service) Subscribe(ctx context.Context, recipient string) (<-chan []byte, func(), error) {
	if recipient == "" {
		return nil, nil, models.FieldError("recipient_id", "this field is required")
	}
	return s.broker.Subscribe(ctx, recipient)
}
