package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// GestationDays is the default span between breeding and expected calving.
const GestationDays = 283

// BreedingRecord is one breeding cycle of a cow. Status only moves forward:
// bred -> pregnancy_confirmed -> calved, or bred -> not_pregnant when the
// insemination did not take.
type BreedingRecord struct {
	Base
	CowID                uuid.UUID       `gorm:"type:uuid;not null;index" json:"cow_id"`
	BreedingDate         Date            `gorm:"not null;index" json:"breeding_date"`
	BreedingMethod       BreedingMethod  `gorm:"size:10;not null" json:"breeding_method"`
	BullInfo             string          `gorm:"size:200" json:"bull_info"`
	AITechnician         string          `gorm:"column:ai_technician;size:100" json:"ai_technician"`
	BreedingCost         decimal.Decimal `gorm:"type:numeric(8,2);not null" json:"breeding_cost"`
	HeatDetectedDate     Date            `json:"heat_detected_date"`
	ExpectedCalvingDate  Date            `gorm:"index" json:"expected_calving_date"`
	Status               BreedingStatus  `gorm:"size:30;not null;index" json:"status"`
	PregnancyTestDate    Date            `json:"pregnancy_test_date"`
	ActualCalvingDate    Date            `json:"actual_calving_date"`
	CalvingComplications string          `gorm:"type:text" json:"calving_complications"`
	CalfID               *uuid.UUID      `gorm:"type:uuid" json:"calf_id"`
	Notes                string          `gorm:"type:text" json:"notes"`
}

func (BreedingRecord) TableName() string { return "breeding_records" }

// IsOverdue holds while a confirmed pregnancy has passed its expected calving date.
func (r BreedingRecord) IsOverdue(today Date) bool {
	if r.Status != BreedingPregnancyConfirmed || r.ExpectedCalvingDate.IsZero() {
		return false
	}
	return today.After(r.ExpectedCalvingDate)
}

// CalvingDue pairs an upcoming calving with its cow.
type CalvingDue struct {
	Record   BreedingRecord `json:"record"`
	Cow      Cow            `json:"cow"`
	DaysLeft int            `json:"days_left"`
}

// DaysToCalving is defined only while the pregnancy is confirmed.
func (r BreedingRecord) DaysToCalving(today Date) *int {
	if r.Status != BreedingPregnancyConfirmed || r.ExpectedCalvingDate.IsZero() {
		return nil
	}
	days := today.DaysUntil(r.ExpectedCalvingDate)
	return &days
}

// GestationPeriodDays is defined once the cow has calved.
func (r BreedingRecord) GestationPeriodDays() *int {
	if r.Status != BreedingCalved || r.ActualCalvingDate.IsZero() {
		return nil
	}
	days := r.BreedingDate.DaysUntil(r.ActualCalvingDate)
	return &days
}

// ConfirmPregnancy moves a bred cycle to pregnancy_confirmed.
func (r *BreedingRecord) ConfirmPregnancy(testDate Date) error {
	if r.Status != BreedingBred {
		return fmt.Errorf("confirm pregnancy from %q: %w", r.Status, ErrInvalidTransition)
	}
	if testDate.IsZero() {
		return FieldError("pregnancy_test_date", "this field is required")
	}
	if testDate.Before(r.BreedingDate) {
		return FieldError("pregnancy_test_date", "must not be before breeding_date")
	}
	r.Status = BreedingPregnancyConfirmed
	r.PregnancyTestDate = testDate
	return nil
}

// MarkNotPregnant closes a bred cycle whose pregnancy test came back negative.
func (r *BreedingRecord) MarkNotPregnant(testDate Date) error {
	if r.Status != BreedingBred {
		return fmt.Errorf("mark not pregnant from %q: %w", r.Status, ErrInvalidTransition)
	}
	if testDate.IsZero() {
		return FieldError("pregnancy_test_date", "this field is required")
	}
	if testDate.Before(r.BreedingDate) {
		return FieldError("pregnancy_test_date", "must not be before breeding_date")
	}
	r.Status = BreedingNotPregnant
	r.PregnancyTestDate = testDate
	return nil
}

// RecordCalving closes a confirmed pregnancy.
func (r *BreedingRecord) RecordCalving(in CalvingInput) error {
	if r.Status != BreedingPregnancyConfirmed {
		return fmt.Errorf("record calving from %q: %w", r.Status, ErrInvalidTransition)
	}
	if in.ActualCalvingDate.IsZero() {
		return FieldError("actual_calving_date", "this field is required")
	}
	if in.ActualCalvingDate.Before(r.BreedingDate) {
		return FieldError("actual_calving_date", "must not be before breeding_date")
	}
	r.Status = BreedingCalved
	r.ActualCalvingDate = in.ActualCalvingDate
	r.CalvingComplications = in.CalvingComplications
	r.CalfID = in.CalfID
	return nil
}

func (r BreedingRecord) MarshalJSON() ([]byte, error) {
	type record BreedingRecord
	today := Today(time.Now())
	return json.Marshal(struct {
		record
		IsOverdue           bool `json:"is_overdue"`
		DaysToCalving       *int `json:"days_to_calving"`
		GestationPeriodDays *int `json:"gestation_period_days"`
	}{record(r), r.IsOverdue(today), r.DaysToCalving(today), r.GestationPeriodDays()})
}

type BreedingRecordInput struct {
	CowID               uuid.UUID       `json:"cow_id" validate:"required"`
	BreedingDate        Date            `json:"breeding_date" validate:"required"`
	BreedingMethod      BreedingMethod  `json:"breeding_method" validate:"omitempty,oneof=ai natural"`
	BullInfo            string          `json:"bull_info" validate:"max=200"`
	AITechnician        string          `json:"ai_technician" validate:"max=100"`
	BreedingCost        decimal.Decimal `json:"breeding_cost" validate:"gte=0"`
	HeatDetectedDate    Date            `json:"heat_detected_date"`
	ExpectedCalvingDate Date            `json:"expected_calving_date"`
	Notes               string          `json:"notes"`
}

func (in BreedingRecordInput) Validate() error {
	verr := ValidateStruct(in)
	if !in.ExpectedCalvingDate.IsZero() && !in.BreedingDate.IsZero() && !in.ExpectedCalvingDate.After(in.BreedingDate) {
		verr.Add("expected_calving_date", "must be after breeding_date")
	}
	return verr.Err()
}

// NewBreedingRecord builds a fresh cycle in the bred state, filling the date defaults.
func (in BreedingRecordInput) NewBreedingRecord() *BreedingRecord {
	r := &BreedingRecord{
		CowID:               in.CowID,
		BreedingDate:        in.BreedingDate,
		BreedingMethod:      in.BreedingMethod,
		BullInfo:            in.BullInfo,
		AITechnician:        in.AITechnician,
		BreedingCost:        in.BreedingCost,
		HeatDetectedDate:    in.HeatDetectedDate,
		ExpectedCalvingDate: in.ExpectedCalvingDate,
		Status:              BreedingBred,
		Notes:               in.Notes,
	}
	if r.BreedingMethod == "" {
		r.BreedingMethod = BreedingAI
	}
	if r.HeatDetectedDate.IsZero() {
		r.HeatDetectedDate = r.BreedingDate
	}
	if r.ExpectedCalvingDate.IsZero() {
		r.ExpectedCalvingDate = r.BreedingDate.AddDays(GestationDays)
	}
	return r
}

type PregnancyConfirmationInput struct {
	PregnancyTestDate Date `json:"pregnancy_test_date"`
}

type CalvingInput struct {
	ActualCalvingDate    Date       `json:"actual_calving_date"`
	CalvingComplications string     `json:"calving_complications"`
	CalfID               *uuid.UUID `json:"calf_id"`
}

type HeatDetection struct {
	Base
	CowID            uuid.UUID     `gorm:"type:uuid;not null;index" json:"cow_id"`
	HeatDate         Date          `gorm:"not null;index" json:"heat_date"`
	HeatIntensity    HeatIntensity `gorm:"size:10;not null" json:"heat_intensity"`
	BredThisCycle    bool          `gorm:"not null" json:"bred_this_cycle"`
	BreedingRecordID *uuid.UUID    `gorm:"type:uuid" json:"breeding_record_id"`
	Notes            string        `gorm:"type:text" json:"notes"`
}

func (HeatDetection) TableName() string { return "heat_detections" }

type HeatDetectionInput struct {
	CowID            uuid.UUID     `json:"cow_id" validate:"required"`
	HeatDate         Date          `json:"heat_date" validate:"required"`
	HeatIntensity    HeatIntensity `json:"heat_intensity" validate:"omitempty,oneof=weak moderate strong"`
	BredThisCycle    bool          `json:"bred_this_cycle"`
	BreedingRecordID *uuid.UUID    `json:"breeding_record_id"`
	Notes            string        `json:"notes"`
}

func (in HeatDetectionInput) Validate() error {
	return ValidateStruct(in).Err()
}

func (in HeatDetectionInput) Apply(h *HeatDetection) {
	h.CowID = in.CowID
	h.HeatDate = in.HeatDate
	h.HeatIntensity = in.HeatIntensity
	if h.HeatIntensity == "" {
		h.HeatIntensity = HeatModerate
	}
	h.BredThisCycle = in.BredThisCycle
	h.BreedingRecordID = in.BreedingRecordID
	h.Notes = in.Notes
}
