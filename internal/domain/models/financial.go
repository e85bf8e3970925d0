package models

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type SourceKind string

const (
	SourceMilkSale       SourceKind = "milk_sale"
	SourceFeedPurchase   SourceKind = "feed_purchase"
	SourceHealthRecord   SourceKind = "health_record"
	SourceBreedingRecord SourceKind = "breeding_record"
)

// SourceRef points at the record a transaction was booked from.
type SourceRef struct {
	Kind SourceKind `json:"kind"`
	ID   uuid.UUID  `json:"id"`
}

type Transaction struct {
	Base
	FarmID          uuid.UUID           `gorm:"type:uuid;not null;index:idx_tx_farm_date" json:"farm_id"`
	TransactionType TransactionType     `gorm:"size:10;not null;index" json:"transaction_type"`
	Category        TransactionCategory `gorm:"size:20;not null;index" json:"category"`
	Date            Date                `gorm:"not null;index:idx_tx_farm_date" json:"date"`
	Amount          decimal.Decimal     `gorm:"type:numeric(10,2);not null" json:"amount"`
	Description     string              `gorm:"size:500;not null" json:"description"`
	PaymentMethod   PaymentMethod       `gorm:"size:20;not null" json:"payment_method"`
	ReferenceNumber string              `gorm:"size:100" json:"reference_number"`
	SourceKind      SourceKind          `gorm:"size:20;index:idx_tx_source" json:"-"`
	SourceID        *uuid.UUID          `gorm:"type:uuid;index:idx_tx_source" json:"-"`
	RecordedBy      string              `gorm:"size:100" json:"recorded_by"`
	Notes           string              `gorm:"type:text" json:"notes"`
}

func (Transaction) TableName() string { return "transactions" }

// Source returns the provenance of an automatically booked transaction.
func (t Transaction) Source() *SourceRef {
	if t.SourceKind == "" || t.SourceID == nil {
		return nil
	}
	return &SourceRef{Kind: t.SourceKind, ID: *t.SourceID}
}

// SetSource records where the transaction came from.
func (t *Transaction) SetSource(kind SourceKind, id uuid.UUID) {
	t.SourceKind = kind
	t.SourceID = &id
}

func (t Transaction) MarshalJSON() ([]byte, error) {
	type transaction Transaction
	return json.Marshal(struct {
		transaction
		Source *SourceRef `json:"source"`
	}{transaction(t), t.Source()})
}

func (t Transaction) IsIncome() bool  { return t.TransactionType == TransactionIncome }
func (t Transaction) IsExpense() bool { return t.TransactionType == TransactionExpense }

type TransactionInput struct {
	FarmID          uuid.UUID           `json:"farm_id" validate:"required"`
	TransactionType TransactionType     `json:"transaction_type" validate:"required,oneof=income expense"`
	Category        TransactionCategory `json:"category" validate:"required,oneof=milk_sales livestock_sales egg_sales feed_purchase veterinary breeding equipment labor utilities transport maintenance other"`
	Date            Date                `json:"date" validate:"required"`
	Amount          decimal.Decimal     `json:"amount" validate:"gte=0"`
	Description     string              `json:"description" validate:"required,max=500"`
	PaymentMethod   PaymentMethod       `json:"payment_method" validate:"omitempty,oneof=cash bank mobile check credit"`
	ReferenceNumber string              `json:"reference_number" validate:"max=100"`
	RecordedBy      string              `json:"recorded_by" validate:"max=100"`
	Notes           string              `json:"notes"`
}

func (in TransactionInput) Validate() error {
	verr := ValidateStruct(in)
	if _, bad := verr.Fields["category"]; !bad && in.TransactionType != "" && !in.Category.AllowsType(in.TransactionType) {
		verr.Add("category", string(in.Category)+" is not a valid "+string(in.TransactionType)+" category")
	}
	return verr.Err()
}

func (in TransactionInput) Apply(t *Transaction) {
	t.FarmID = in.FarmID
	t.TransactionType = in.TransactionType
	t.Category = in.Category
	t.Date = in.Date
	t.Amount = in.Amount
	t.Description = in.Description
	t.PaymentMethod = in.PaymentMethod
	if t.PaymentMethod == "" {
		t.PaymentMethod = PaymentCash
	}
	t.ReferenceNumber = in.ReferenceNumber
	t.RecordedBy = in.RecordedBy
	t.Notes = in.Notes
}
