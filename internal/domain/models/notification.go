package models

import (
	"time"

	"github.com/google/uuid"
)

// Notification is a message addressed to one user of the farm. Users live outside
// this service, so the recipient is an opaque identifier.
type Notification struct {
	Base
	RecipientID      string           `gorm:"size:100;not null;index:idx_notification_recipient" json:"recipient_id"`
	Title            string           `gorm:"size:200;not null" json:"title"`
	Message          string           `gorm:"type:text;not null" json:"message"`
	NotificationType NotificationType `gorm:"size:20;not null" json:"notification_type"`
	Priority         Priority         `gorm:"size:10;not null" json:"priority"`
	IsRead           bool             `gorm:"not null;index:idx_notification_recipient" json:"is_read"`
	ReadAt           *time.Time       `json:"read_at"`
	FarmID           *uuid.UUID       `gorm:"type:uuid;index" json:"farm_id"`
	CowID            *uuid.UUID       `gorm:"type:uuid" json:"cow_id"`
}

func (Notification) TableName() string { return "notifications" }

// MarkRead flags the notification as read. The first read time is kept.
func (n *Notification) MarkRead(at time.Time) bool {
	if n.IsRead {
		return false
	}
	n.IsRead = true
	n.ReadAt = &at
	return true
}

type NotificationInput struct {
	RecipientID      string           `json:"recipient_id" validate:"required,max=100"`
	Title            string           `json:"title" validate:"required,max=200"`
	Message          string           `json:"message" validate:"required"`
	NotificationType NotificationType `json:"notification_type" validate:"omitempty,oneof=low_stock calving_due heat_detected vaccination_due treatment_followup report_generated system"`
	Priority         Priority         `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	FarmID           *uuid.UUID       `json:"farm_id"`
	CowID            *uuid.UUID       `json:"cow_id"`
}

func (in NotificationInput) Validate() error {
	return ValidateStruct(in).Err()
}

func (in NotificationInput) Build() *Notification {
	n := &Notification{
		RecipientID:      in.RecipientID,
		Title:            in.Title,
		Message:          in.Message,
		NotificationType: in.NotificationType,
		Priority:         in.Priority,
		FarmID:           in.FarmID,
		CowID:            in.CowID,
	}
	if n.NotificationType == "" {
		n.NotificationType = NotifySystem
	}
	if n.Priority == "" {
		n.Priority = PriorityMedium
	}
	return n
}
