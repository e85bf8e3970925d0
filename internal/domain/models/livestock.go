package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Cow struct {
	Base
	FarmID          uuid.UUID       `gorm:"type:uuid;not null;index;uniqueIndex:idx_cow_farm_tag,where:is_deleted = false" json:"farm_id"`
	Name            string          `gorm:"size:100;not null" json:"name"`
	TagNumber       string          `gorm:"size:50;not null;uniqueIndex:idx_cow_farm_tag,where:is_deleted = false" json:"tag_number"`
	Breed           Breed           `gorm:"size:20;not null" json:"breed"`
	DateOfBirth     Date            `json:"date_of_birth"`
	DateAcquired    Date            `gorm:"not null" json:"date_acquired"`
	AcquisitionCost decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"acquisition_cost"`
	CurrentStage    CowStage        `gorm:"size:20;not null;index" json:"current_stage"`
	Weight          decimal.Decimal `gorm:"type:numeric(6,2)" json:"weight"`
	MotherID        *uuid.UUID      `gorm:"type:uuid;index" json:"mother_id"`
	FatherInfo      string          `gorm:"size:200" json:"father_info"`
	Notes           string          `gorm:"type:text" json:"notes"`
	IsActive        bool            `gorm:"not null" json:"is_active"`

	TotalCalves int64  `gorm:"-" json:"total_calves"`
	MotherName  string `gorm:"-" json:"mother_name"`
}

func (Cow) TableName() string { return "cows" }

// AgeInMonths is the approximate age on today, nil when the birth date is unknown.
func (c Cow) AgeInMonths(today Date) *int {
	if c.DateOfBirth.IsZero() {
		return nil
	}
	months := c.DateOfBirth.DaysUntil(today) / 30
	if months < 0 {
		months = 0
	}
	return &months
}

func (c Cow) IsMilking() bool {
	return c.CurrentStage == StageLactating
}

func (c Cow) MarshalJSON() ([]byte, error) {
	type cow Cow
	return json.Marshal(struct {
		cow
		AgeInMonths *int `json:"age_in_months"`
		IsMilking   bool `json:"is_milking"`
	}{cow(c), c.AgeInMonths(Today(time.Now())), c.IsMilking()})
}

type CowInput struct {
	FarmID          uuid.UUID       `json:"farm_id" validate:"required"`
	Name            string          `json:"name" validate:"required,max=100"`
	TagNumber       string          `json:"tag_number" validate:"required,max=50"`
	Breed           Breed           `json:"breed" validate:"required,oneof=friesian jersey ayrshire guernsey holstein crossbreed indigenous"`
	DateOfBirth     Date            `json:"date_of_birth"`
	DateAcquired    Date            `json:"date_acquired" validate:"required"`
	AcquisitionCost decimal.Decimal `json:"acquisition_cost" validate:"gte=0"`
	CurrentStage    CowStage        `json:"current_stage" validate:"omitempty,oneof=calf heifer lactating dry pregnant heat sick sold"`
	Weight          decimal.Decimal `json:"weight" validate:"gte=0"`
	MotherID        *uuid.UUID      `json:"mother_id"`
	FatherInfo      string          `json:"father_info" validate:"max=200"`
	Notes           string          `json:"notes"`
	IsActive        *bool           `json:"is_active"`
}

func (in CowInput) Validate() error {
	verr := ValidateStruct(in)
	if !in.DateOfBirth.IsZero() && !in.DateAcquired.IsZero() && in.DateAcquired.Before(in.DateOfBirth) {
		verr.Add("date_acquired", "must not be before date_of_birth")
	}
	return verr.Err()
}

func (in CowInput) Apply(c *Cow) {
	c.FarmID = in.FarmID
	c.Name = in.Name
	c.TagNumber = in.TagNumber
	c.Breed = in.Breed
	c.DateOfBirth = in.DateOfBirth
	c.DateAcquired = in.DateAcquired
	c.AcquisitionCost = in.AcquisitionCost
	c.CurrentStage = in.CurrentStage
	if c.CurrentStage == "" {
		c.CurrentStage = StageHeifer
	}
	c.Weight = in.Weight
	c.MotherID = in.MotherID
	c.FatherInfo = in.FatherInfo
	c.Notes = in.Notes
	c.IsActive = boolOr(in.IsActive, true)
}

type ChickenBatch struct {
	Base
	FarmID                 uuid.UUID       `gorm:"type:uuid;not null;index;uniqueIndex:idx_batch_farm_name,where:is_deleted = false" json:"farm_id"`
	BatchName              string          `gorm:"size:100;not null;uniqueIndex:idx_batch_farm_name,where:is_deleted = false" json:"batch_name"`
	BatchType              BatchType       `gorm:"size:20;not null" json:"batch_type"`
	InitialCount           int             `gorm:"not null" json:"initial_count"`
	CurrentCount           int             `gorm:"not null" json:"current_count"`
	DateAcquired           Date            `gorm:"not null" json:"date_acquired"`
	AcquisitionCostPerBird decimal.Decimal `gorm:"type:numeric(8,2);not null" json:"acquisition_cost_per_bird"`
	ExpectedLayingStart    Date            `json:"expected_laying_start"`
	Notes                  string          `gorm:"type:text" json:"notes"`
	IsActive               bool            `gorm:"not null" json:"is_active"`
}

func (ChickenBatch) TableName() string { return "chicken_batches" }

// MortalityCount is the number of birds no longer in the batch. Hatched chicks can
// push the current count above the initial one; that is not negative mortality.
func (b ChickenBatch) MortalityCount() int {
	if b.CurrentCount >= b.InitialCount {
		return 0
	}
	return b.InitialCount - b.CurrentCount
}

// MortalityRate is MortalityCount as a percentage of InitialCount, within [0,100].
func (b ChickenBatch) MortalityRate() float64 {
	if b.InitialCount <= 0 {
		return 0
	}
	rate := float64(b.MortalityCount()) / float64(b.InitialCount) * 100
	if rate > 100 {
		return 100
	}
	return round2(rate)
}

func (b ChickenBatch) TotalCost() decimal.Decimal {
	return b.AcquisitionCostPerBird.Mul(decimal.NewFromInt(int64(b.InitialCount)))
}

func (b ChickenBatch) MarshalJSON() ([]byte, error) {
	type batch ChickenBatch
	return json.Marshal(struct {
		batch
		MortalityCount int             `json:"mortality_count"`
		MortalityRate  float64         `json:"mortality_rate"`
		TotalCost      decimal.Decimal `json:"total_cost"`
	}{batch(b), b.MortalityCount(), b.MortalityRate(), b.TotalCost()})
}

// ChickenBatchInput is the writable surface of a batch. CurrentCount is only
// honoured on create; afterwards the count moves through reductions and hatchings
// and an update may only repeat the stored value.
type ChickenBatchInput struct {
	FarmID                 uuid.UUID       `json:"farm_id" validate:"required"`
	BatchName              string          `json:"batch_name" validate:"required,max=100"`
	BatchType              BatchType       `json:"batch_type" validate:"omitempty,oneof=layers broilers mixed"`
	InitialCount           int             `json:"initial_count" validate:"gte=1"`
	CurrentCount           *int            `json:"current_count" validate:"omitempty,gte=0"`
	DateAcquired           Date            `json:"date_acquired" validate:"required"`
	AcquisitionCostPerBird decimal.Decimal `json:"acquisition_cost_per_bird" validate:"gte=0"`
	ExpectedLayingStart    Date            `json:"expected_laying_start"`
	Notes                  string          `json:"notes"`
	IsActive               *bool           `json:"is_active"`
}

func (in ChickenBatchInput) Validate() error {
	return ValidateStruct(in).Err()
}

// ValidateUpdate also rejects a current_count that differs from the stored one.
func (in ChickenBatchInput) ValidateUpdate(b *ChickenBatch) error {
	verr := ValidateStruct(in)
	if in.CurrentCount != nil && *in.CurrentCount != b.CurrentCount {
		verr.Add("current_count", "is read-only after creation, record a reduction or hatching instead")
	}
	return verr.Err()
}

func (in ChickenBatchInput) Apply(b *ChickenBatch) {
	b.FarmID = in.FarmID
	b.BatchName = in.BatchName
	b.BatchType = in.BatchType
	if b.BatchType == "" {
		b.BatchType = BatchLayers
	}
	b.InitialCount = in.InitialCount
	b.DateAcquired = in.DateAcquired
	b.AcquisitionCostPerBird = in.AcquisitionCostPerBird
	b.ExpectedLayingStart = in.ExpectedLayingStart
	b.Notes = in.Notes
	b.IsActive = boolOr(in.IsActive, true)
}

// ChickenReduction is the audit row appended for every accepted reduction.
type ChickenReduction struct {
	Base
	BatchID uuid.UUID       `gorm:"type:uuid;not null;index" json:"batch_id"`
	Count   int             `gorm:"not null" json:"count"`
	Reason  ReductionReason `gorm:"size:20;not null" json:"reason"`
	Date    Date            `gorm:"not null;index" json:"date"`
	Notes   string          `gorm:"type:text" json:"notes"`
}

func (ChickenReduction) TableName() string { return "chicken_reductions" }

type ReductionInput struct {
	Count  int             `json:"count" validate:"gte=1"`
	Reason ReductionReason `json:"reason" validate:"required,oneof=death sale consumption transfer other"`
	Date   Date            `json:"date"`
	Notes  string          `json:"notes"`
}

func (in ReductionInput) Validate() error {
	return ValidateStruct(in).Err()
}
