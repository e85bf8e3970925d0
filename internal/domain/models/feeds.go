package models

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type FeedType struct {
	Base
	Name              string       `gorm:"size:100;not null;uniqueIndex:idx_feed_type_name,where:is_deleted = false" json:"name"`
	Category          FeedCategory `gorm:"size:20;not null" json:"category"`
	UnitOfMeasurement FeedUnit     `gorm:"size:20;not null" json:"unit_of_measurement"`
	Description       string       `gorm:"type:text" json:"description"`
	IsActive          bool         `gorm:"not null" json:"is_active"`
}

func (FeedType) TableName() string { return "feed_types" }

type FeedTypeInput struct {
	Name              string       `json:"name" validate:"required,max=100"`
	Category          FeedCategory `json:"category" validate:"required,oneof=concentrate mineral roughage"`
	UnitOfMeasurement FeedUnit     `json:"unit_of_measurement" validate:"omitempty,oneof=kg bags tonnes bales"`
	Description       string       `json:"description"`
	IsActive          *bool        `json:"is_active"`
}

func (in FeedTypeInput) Validate() error {
	return ValidateStruct(in).Err()
}

func (in FeedTypeInput) Apply(f *FeedType) {
	f.Name = in.Name
	f.Category = in.Category
	f.UnitOfMeasurement = in.UnitOfMeasurement
	if f.UnitOfMeasurement == "" {
		f.UnitOfMeasurement = UnitKg
	}
	f.Description = in.Description
	f.IsActive = boolOr(in.IsActive, true)
}

type FeedPurchase struct {
	Base
	FarmID            uuid.UUID       `gorm:"type:uuid;not null;index" json:"farm_id"`
	FeedTypeID        uuid.UUID       `gorm:"type:uuid;not null;index" json:"feed_type_id"`
	PurchaseDate      Date            `gorm:"not null;index" json:"purchase_date"`
	Quantity          decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"quantity"`
	UnitPrice         decimal.Decimal `gorm:"type:numeric(8,2);not null" json:"unit_price"`
	TotalCost         decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"total_cost"`
	TransportCost     decimal.Decimal `gorm:"type:numeric(8,2);not null" json:"transport_cost"`
	SupplierName      string          `gorm:"size:200;not null" json:"supplier_name"`
	SupplierContact   string          `gorm:"size:15" json:"supplier_contact"`
	RemainingQuantity decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"remaining_quantity"`
	IsFinished        bool            `gorm:"not null" json:"is_finished"`
	ExpiryDate        Date            `json:"expiry_date"`
	Notes             string          `gorm:"type:text" json:"notes"`

	FeedTypeName string `gorm:"-" json:"feed_type_name"`
}

func (FeedPurchase) TableName() string { return "feed_purchases" }

// ConsumptionPercentage is the share of the purchased quantity already used.
func (p FeedPurchase) ConsumptionPercentage() float64 {
	if !p.Quantity.IsPositive() {
		return 0
	}
	used := p.Quantity.Sub(p.RemainingQuantity)
	if used.IsNegative() {
		return 0
	}
	pct, _ := used.Div(p.Quantity).Mul(decimal.NewFromInt(100)).Round(2).Float64()
	if pct > 100 {
		return 100
	}
	return pct
}

// ExpenseAmount is what the purchase costs the farm, transport included.
func (p FeedPurchase) ExpenseAmount() decimal.Decimal {
	return p.TotalCost.Add(p.TransportCost)
}

func (p FeedPurchase) MarshalJSON() ([]byte, error) {
	type purchase FeedPurchase
	return json.Marshal(struct {
		purchase
		ConsumptionPercentage float64 `json:"consumption_percentage"`
	}{purchase(p), p.ConsumptionPercentage()})
}

type FeedPurchaseInput struct {
	FarmID            uuid.UUID        `json:"farm_id" validate:"required"`
	FeedTypeID        uuid.UUID        `json:"feed_type_id" validate:"required"`
	PurchaseDate      Date             `json:"purchase_date" validate:"required"`
	Quantity          decimal.Decimal  `json:"quantity" validate:"gte=0"`
	UnitPrice         decimal.Decimal  `json:"unit_price" validate:"gte=0"`
	TotalCost         decimal.Decimal  `json:"total_cost" validate:"gte=0"`
	TransportCost     decimal.Decimal  `json:"transport_cost" validate:"gte=0"`
	SupplierName      string           `json:"supplier_name" validate:"required,max=200"`
	SupplierContact   string           `json:"supplier_contact" validate:"max=15"`
	RemainingQuantity *decimal.Decimal `json:"remaining_quantity"`
	ExpiryDate        Date             `json:"expiry_date"`
	Notes             string           `json:"notes"`
}

func (in FeedPurchaseInput) Validate() error {
	verr := ValidateStruct(in)
	if in.RemainingQuantity != nil {
		if in.RemainingQuantity.IsNegative() {
			verr.Add("remaining_quantity", "must be greater than or equal to 0")
		} else if in.RemainingQuantity.GreaterThan(in.Quantity) {
			verr.Add("remaining_quantity", "cannot exceed quantity")
		}
	}
	return verr.Err()
}

// Apply copies the input onto p. On create the remaining quantity starts at the
// purchased quantity; on update it is kept unless the caller sets it.
func (in FeedPurchaseInput) Apply(p *FeedPurchase, creating bool) {
	p.FarmID = in.FarmID
	p.FeedTypeID = in.FeedTypeID
	p.PurchaseDate = in.PurchaseDate
	p.Quantity = in.Quantity
	p.UnitPrice = in.UnitPrice
	p.TotalCost = in.TotalCost
	if p.TotalCost.IsZero() {
		p.TotalCost = in.Quantity.Mul(in.UnitPrice).Round(2)
	}
	p.TransportCost = in.TransportCost
	p.SupplierName = in.SupplierName
	p.SupplierContact = in.SupplierContact
	switch {
	case in.RemainingQuantity != nil:
		p.RemainingQuantity = *in.RemainingQuantity
	case creating:
		p.RemainingQuantity = in.Quantity
	}
	p.ExpiryDate = in.ExpiryDate
	p.Notes = in.Notes
}

// DailyFeedConsumption is one cow's ration for one day, per feed line.
type DailyFeedConsumption struct {
	Base
	CowID             uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_feed_cow_date,where:is_deleted = false" json:"cow_id"`
	Date              Date            `gorm:"not null;index;uniqueIndex:idx_feed_cow_date,where:is_deleted = false" json:"date"`
	DairyMealKg       decimal.Decimal `gorm:"type:numeric(6,2);not null" json:"dairy_meal_kg"`
	MaizeGermKg       decimal.Decimal `gorm:"type:numeric(6,2);not null" json:"maize_germ_kg"`
	MaclicSupaKg      decimal.Decimal `gorm:"type:numeric(6,2);not null" json:"maclic_supa_kg"`
	MaclicPlusKg      decimal.Decimal `gorm:"type:numeric(6,2);not null" json:"maclic_plus_kg"`
	NapierHaySilageKg decimal.Decimal `gorm:"type:numeric(6,2);not null" json:"napier_hay_silage_kg"`
	Notes             string          `gorm:"type:text" json:"notes"`
}

func (DailyFeedConsumption) TableName() string { return "daily_feed_consumptions" }

func (c DailyFeedConsumption) TotalConcentrateKg() decimal.Decimal {
	return c.DairyMealKg.Add(c.MaizeGermKg)
}

func (c DailyFeedConsumption) TotalMineralKg() decimal.Decimal {
	return c.MaclicSupaKg.Add(c.MaclicPlusKg)
}

func (c DailyFeedConsumption) TotalFeedKg() decimal.Decimal {
	return c.TotalConcentrateKg().Add(c.TotalMineralKg()).Add(c.NapierHaySilageKg)
}

func (c DailyFeedConsumption) MarshalJSON() ([]byte, error) {
	type consumption DailyFeedConsumption
	return json.Marshal(struct {
		consumption
		TotalConcentrateKg decimal.Decimal `json:"total_concentrate_kg"`
		TotalMineralKg     decimal.Decimal `json:"total_mineral_kg"`
		TotalFeedKg        decimal.Decimal `json:"total_feed_kg"`
	}{consumption(c), c.TotalConcentrateKg(), c.TotalMineralKg(), c.TotalFeedKg()})
}

type DailyFeedConsumptionInput struct {
	CowID             uuid.UUID       `json:"cow_id" validate:"required"`
	Date              Date            `json:"date" validate:"required"`
	DairyMealKg       decimal.Decimal `json:"dairy_meal_kg" validate:"gte=0"`
	MaizeGermKg       decimal.Decimal `json:"maize_germ_kg" validate:"gte=0"`
	MaclicSupaKg      decimal.Decimal `json:"maclic_supa_kg" validate:"gte=0"`
	MaclicPlusKg      decimal.Decimal `json:"maclic_plus_kg" validate:"gte=0"`
	NapierHaySilageKg decimal.Decimal `json:"napier_hay_silage_kg" validate:"gte=0"`
	Notes             string          `json:"notes"`
}

func (in DailyFeedConsumptionInput) Validate() error {
	return ValidateStruct(in).Err()
}

func (in DailyFeedConsumptionInput) Apply(c *DailyFeedConsumption) {
	c.CowID = in.CowID
	c.Date = in.Date
	c.DairyMealKg = in.DairyMealKg
	c.MaizeGermKg = in.MaizeGermKg
	c.MaclicSupaKg = in.MaclicSupaKg
	c.MaclicPlusKg = in.MaclicPlusKg
	c.NapierHaySilageKg = in.NapierHaySilageKg
	c.Notes = in.Notes
}

type ChickenFeedConsumption struct {
	Base
	BatchID        uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_chicken_feed_batch_date,where:is_deleted = false" json:"batch_id"`
	Date           Date            `gorm:"not null;index;uniqueIndex:idx_chicken_feed_batch_date,where:is_deleted = false" json:"date"`
	FeedQuantityKg decimal.Decimal `gorm:"type:numeric(8,2);not null" json:"feed_quantity_kg"`
	FeedCost       decimal.Decimal `gorm:"type:numeric(8,2);not null" json:"feed_cost"`
	Notes          string          `gorm:"type:text" json:"notes"`

	CostPerBird decimal.Decimal `gorm:"-" json:"cost_per_bird"`
}

func (ChickenFeedConsumption) TableName() string { return "chicken_feed_consumptions" }

// CostPerBirdFor divides the day's feed cost over the birds currently in the batch.
func (c ChickenFeedConsumption) CostPerBirdFor(currentCount int) decimal.Decimal {
	if currentCount <= 0 {
		return decimal.Zero
	}
	return c.FeedCost.Div(decimal.NewFromInt(int64(currentCount))).Round(2)
}

type ChickenFeedConsumptionInput struct {
	BatchID        uuid.UUID       `json:"batch_id" validate:"required"`
	Date           Date            `json:"date" validate:"required"`
	FeedQuantityKg decimal.Decimal `json:"feed_quantity_kg" validate:"gte=0"`
	FeedCost       decimal.Decimal `json:"feed_cost" validate:"gte=0"`
	Notes          string          `json:"notes"`
}

func (in ChickenFeedConsumptionInput) Validate() error {
	return ValidateStruct(in).Err()
}

func (in ChickenFeedConsumptionInput) Apply(c *ChickenFeedConsumption) {
	c.BatchID = in.BatchID
	c.Date = in.Date
	c.FeedQuantityKg = in.FeedQuantityKg
	c.FeedCost = in.FeedCost
	c.Notes = in.Notes
}

type StockStatus string

const (
	StockLow        StockStatus = "Low Stock"
	StockRunningLow StockStatus = "Running Low"
	StockGood       StockStatus = "Good Stock"
)

type FeedInventory struct {
	Base
	FarmID            uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_inventory_farm_feed,where:is_deleted = false" json:"farm_id"`
	FeedTypeID        uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_inventory_farm_feed,where:is_deleted = false" json:"feed_type_id"`
	CurrentStock      decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"current_stock"`
	MinimumStockLevel decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"minimum_stock_level"`

	FeedTypeName string `gorm:"-" json:"feed_type_name"`
}

func (FeedInventory) TableName() string { return "feed_inventories" }

func (i FeedInventory) IsLowStock() bool {
	return i.CurrentStock.LessThanOrEqual(i.MinimumStockLevel)
}

func (i FeedInventory) StockStatus() StockStatus {
	switch {
	case i.IsLowStock():
		return StockLow
	case i.CurrentStock.LessThanOrEqual(i.MinimumStockLevel.Mul(decimal.NewFromFloat(1.5))):
		return StockRunningLow
	default:
		return StockGood
	}
}

func (i FeedInventory) MarshalJSON() ([]byte, error) {
	type inventory FeedInventory
	return json.Marshal(struct {
		inventory
		IsLowStock  bool        `json:"is_low_stock"`
		StockStatus StockStatus `json:"stock_status"`
	}{inventory(i), i.IsLowStock(), i.StockStatus()})
}

type FeedInventoryInput struct {
	FarmID            uuid.UUID       `json:"farm_id" validate:"required"`
	FeedTypeID        uuid.UUID       `json:"feed_type_id" validate:"required"`
	CurrentStock      decimal.Decimal `json:"current_stock" validate:"gte=0"`
	MinimumStockLevel decimal.Decimal `json:"minimum_stock_level" validate:"gte=0"`
}

func (in FeedInventoryInput) Validate() error {
	return ValidateStruct(in).Err()
}

func (in FeedInventoryInput) Apply(i *FeedInventory) {
	i.FarmID = in.FarmID
	i.FeedTypeID = in.FeedTypeID
	i.CurrentStock = in.CurrentStock
	i.MinimumStockLevel = in.MinimumStockLevel
}
