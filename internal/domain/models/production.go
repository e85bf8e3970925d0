package models

import (
	"encoding/json"
	"math"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MaxMilkPerSession bounds a single milking record, in liters.
var MaxMilkPerSession = decimal.NewFromInt(50)

type MilkProduction struct {
	Base
	CowID          uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_milk_cow_date_session,where:is_deleted = false" json:"cow_id"`
	Date           Date            `gorm:"not null;index;uniqueIndex:idx_milk_cow_date_session,where:is_deleted = false" json:"date"`
	Session        Session         `gorm:"size:10;not null;uniqueIndex:idx_milk_cow_date_session,where:is_deleted = false" json:"session"`
	QuantityLiters decimal.Decimal `gorm:"type:numeric(6,2);not null" json:"quantity_liters"`
	QualityGrade   QualityGrade    `gorm:"size:1;not null" json:"quality_grade"`
	RecordedBy     string          `gorm:"size:100" json:"recorded_by"`
	Notes          string          `gorm:"type:text" json:"notes"`
}

func (MilkProduction) TableName() string { return "milk_productions" }

type MilkProductionInput struct {
	CowID          uuid.UUID       `json:"cow_id" validate:"required"`
	Date           Date            `json:"date" validate:"required"`
	Session        Session         `json:"session" validate:"required,oneof=morning afternoon evening"`
	QuantityLiters decimal.Decimal `json:"quantity_liters" validate:"gte=0,lte=50"`
	QualityGrade   QualityGrade    `json:"quality_grade" validate:"omitempty,oneof=A B C"`
	RecordedBy     string          `json:"recorded_by" validate:"max=100"`
	Notes          string          `json:"notes"`
}

func (in MilkProductionInput) Validate() error {
	verr := ValidateStruct(in)
	if in.QuantityLiters.GreaterThan(MaxMilkPerSession) {
		verr.Add("quantity_liters", "must be less than or equal to 50")
	}
	return verr.Err()
}

func (in MilkProductionInput) Apply(m *MilkProduction) {
	m.CowID = in.CowID
	m.Date = in.Date
	m.Session = in.Session
	m.QuantityLiters = in.QuantityLiters
	m.QualityGrade = in.QualityGrade
	if m.QualityGrade == "" {
		m.QualityGrade = GradeA
	}
	m.RecordedBy = in.RecordedBy
	m.Notes = in.Notes
}

type MilkSale struct {
	Base
	FarmID         uuid.UUID       `gorm:"type:uuid;not null;index" json:"farm_id"`
	Date           Date            `gorm:"not null;index" json:"date"`
	QuantityLiters decimal.Decimal `gorm:"type:numeric(8,2);not null" json:"quantity_liters"`
	PricePerLiter  decimal.Decimal `gorm:"type:numeric(6,2);not null" json:"price_per_liter"`
	TotalAmount    decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"total_amount"`
	BuyerName      string          `gorm:"size:200" json:"buyer_name"`
	BuyerContact   string          `gorm:"size:15" json:"buyer_contact"`
	PaymentMethod  PaymentMethod   `gorm:"size:20;not null" json:"payment_method"`
	Notes          string          `gorm:"type:text" json:"notes"`
}

func (MilkSale) TableName() string { return "milk_sales" }

type MilkSaleInput struct {
	FarmID         uuid.UUID       `json:"farm_id" validate:"required"`
	Date           Date            `json:"date" validate:"required"`
	QuantityLiters decimal.Decimal `json:"quantity_liters" validate:"gte=0"`
	PricePerLiter  decimal.Decimal `json:"price_per_liter" validate:"gte=0"`
	BuyerName      string          `json:"buyer_name" validate:"max=200"`
	BuyerContact   string          `json:"buyer_contact" validate:"max=15"`
	PaymentMethod  PaymentMethod   `json:"payment_method" validate:"omitempty,oneof=cash bank mobile check credit"`
	Notes          string          `json:"notes"`
}

func (in MilkSaleInput) Validate() error {
	return ValidateStruct(in).Err()
}

func (in MilkSaleInput) Apply(s *MilkSale) {
	s.FarmID = in.FarmID
	s.Date = in.Date
	s.QuantityLiters = in.QuantityLiters
	s.PricePerLiter = in.PricePerLiter
	s.TotalAmount = in.QuantityLiters.Mul(in.PricePerLiter).Round(2)
	s.BuyerName = in.BuyerName
	s.BuyerContact = in.BuyerContact
	s.PaymentMethod = in.PaymentMethod
	if s.PaymentMethod == "" {
		s.PaymentMethod = PaymentCash
	}
	s.Notes = in.Notes
}

type EggProduction struct {
	Base
	BatchID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_egg_batch_date,where:is_deleted = false" json:"batch_id"`
	Date          Date      `gorm:"not null;index;uniqueIndex:idx_egg_batch_date,where:is_deleted = false" json:"date"`
	EggsCollected int       `gorm:"not null" json:"eggs_collected"`
	BrokenEggs    int       `gorm:"not null" json:"broken_eggs"`
	EggsConsumed  int       `gorm:"not null" json:"eggs_consumed"`
	EggsSold      int       `gorm:"not null" json:"eggs_sold"`
	Notes         string    `gorm:"type:text" json:"notes"`
}

func (EggProduction) TableName() string { return "egg_productions" }

func (e EggProduction) UsableEggs() int {
	if e.BrokenEggs >= e.EggsCollected {
		return 0
	}
	return e.EggsCollected - e.BrokenEggs
}

func (e EggProduction) MarshalJSON() ([]byte, error) {
	type egg EggProduction
	return json.Marshal(struct {
		egg
		UsableEggs int `json:"usable_eggs"`
	}{egg(e), e.UsableEggs()})
}

type EggProductionInput struct {
	BatchID       uuid.UUID `json:"batch_id" validate:"required"`
	Date          Date      `json:"date" validate:"required"`
	EggsCollected int       `json:"eggs_collected" validate:"gte=0"`
	BrokenEggs    int       `json:"broken_eggs" validate:"gte=0"`
	EggsConsumed  int       `json:"eggs_consumed" validate:"gte=0"`
	EggsSold      int       `json:"eggs_sold" validate:"gte=0"`
	Notes         string    `json:"notes"`
}

func (in EggProductionInput) Validate() error {
	verr := ValidateStruct(in)
	if in.BrokenEggs > in.EggsCollected {
		verr.Add("broken_eggs", "cannot exceed eggs_collected")
	}
	return verr.Err()
}

func (in EggProductionInput) Apply(e *EggProduction) {
	e.BatchID = in.BatchID
	e.Date = in.Date
	e.EggsCollected = in.EggsCollected
	e.BrokenEggs = in.BrokenEggs
	e.EggsConsumed = in.EggsConsumed
	e.EggsSold = in.EggsSold
	e.Notes = in.Notes
}

type ChickHatching struct {
	Base
	BatchID            uuid.UUID `gorm:"type:uuid;not null;index" json:"batch_id"`
	Date               Date      `gorm:"not null;index" json:"date"`
	EggsSetForHatching int       `gorm:"not null" json:"eggs_set_for_hatching"`
	ChicksHatched      int       `gorm:"not null" json:"chicks_hatched"`
	FailedEggs         int       `gorm:"not null" json:"failed_eggs"`
	Notes              string    `gorm:"type:text" json:"notes"`
}

func (ChickHatching) TableName() string { return "chick_hatchings" }

func (h ChickHatching) HatchingRate() float64 {
	if h.EggsSetForHatching <= 0 {
		return 0
	}
	return round2(float64(h.ChicksHatched) / float64(h.EggsSetForHatching) * 100)
}

func (h ChickHatching) MarshalJSON() ([]byte, error) {
	type hatching ChickHatching
	return json.Marshal(struct {
		hatching
		HatchingRate float64 `json:"hatching_rate"`
	}{hatching(h), h.HatchingRate()})
}

type HatchingInput struct {
	BatchID            uuid.UUID `json:"batch_id" validate:"required"`
	Date               Date      `json:"date" validate:"required"`
	EggsSetForHatching int       `json:"eggs_set_for_hatching" validate:"gte=1"`
	ChicksHatched      int       `json:"chicks_hatched" validate:"gte=0"`
	FailedEggs         int       `json:"failed_eggs" validate:"gte=0"`
	Notes              string    `json:"notes"`
}

func (in HatchingInput) Validate() error {
	verr := ValidateStruct(in)
	if in.ChicksHatched > in.EggsSetForHatching {
		verr.Add("chicks_hatched", "cannot exceed eggs_set_for_hatching")
	}
	return verr.Err()
}

func (in HatchingInput) Apply(h *ChickHatching) {
	h.BatchID = in.BatchID
	h.Date = in.Date
	h.EggsSetForHatching = in.EggsSetForHatching
	h.ChicksHatched = in.ChicksHatched
	h.FailedEggs = in.FailedEggs
	h.Notes = in.Notes
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
