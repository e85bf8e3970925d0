package models

// Enumerated value domains. Values are exact and case-sensitive on the wire.

type Session string

const (
	SessionMorning   Session = "morning"
	SessionAfternoon Session = "afternoon"
	SessionEvening   Session = "evening"
)

func (s Session) Valid() bool {
	switch s {
	case SessionMorning, SessionAfternoon, SessionEvening:
		return true
	}
	return false
}

type CowStage string

const (
	StageCalf      CowStage = "calf"
	StageHeifer    CowStage = "heifer"
	StageLactating CowStage = "lactating"
	StageDry       CowStage = "dry"
	StagePregnant  CowStage = "pregnant"
	StageHeat      CowStage = "heat"
	StageSick      CowStage = "sick"
	StageSold      CowStage = "sold"
)

type Breed string

const (
	BreedFriesian   Breed = "friesian"
	BreedJersey     Breed = "jersey"
	BreedAyrshire   Breed = "ayrshire"
	BreedGuernsey   Breed = "guernsey"
	BreedHolstein   Breed = "holstein"
	BreedCrossbreed Breed = "crossbreed"
	BreedIndigenous Breed = "indigenous"
)

type BatchType string

const (
	BatchLayers   BatchType = "layers"
	BatchBroilers BatchType = "broilers"
	BatchMixed    BatchType = "mixed"
)

type ReductionReason string

const (
	ReductionDeath       ReductionReason = "death"
	ReductionSale        ReductionReason = "sale"
	ReductionConsumption ReductionReason = "consumption"
	ReductionTransfer    ReductionReason = "transfer"
	ReductionOther       ReductionReason = "other"
)

type QualityGrade string

const (
	GradeA QualityGrade = "A"
	GradeB QualityGrade = "B"
	GradeC QualityGrade = "C"
)

type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "cash"
	PaymentBank   PaymentMethod = "bank"
	PaymentMobile PaymentMethod = "mobile"
	PaymentCheck  PaymentMethod = "check"
	PaymentCredit PaymentMethod = "credit"
)

type FeedCategory string

const (
	FeedConcentrate FeedCategory = "concentrate"
	FeedMineral     FeedCategory = "mineral"
	FeedRoughage    FeedCategory = "roughage"
)

type FeedUnit string

const (
	UnitKg     FeedUnit = "kg"
	UnitBags   FeedUnit = "bags"
	UnitTonnes FeedUnit = "tonnes"
	UnitBales  FeedUnit = "bales"
)

type TreatmentStatus string

const (
	TreatmentDiagnosed TreatmentStatus = "diagnosed"
	TreatmentTreating  TreatmentStatus = "treating"
	TreatmentRecovered TreatmentStatus = "recovered"
	TreatmentChronic   TreatmentStatus = "chronic"
	TreatmentDead      TreatmentStatus = "dead"
)

type BreedingMethod string

const (
	BreedingAI      BreedingMethod = "ai"
	BreedingNatural BreedingMethod = "natural"
)

type BreedingStatus string

const (
	BreedingBred               BreedingStatus = "bred"
	BreedingPregnancyConfirmed BreedingStatus = "pregnancy_confirmed"
	BreedingCalved             BreedingStatus = "calved"
	BreedingNotPregnant        BreedingStatus = "not_pregnant"
)

// Active reports whether the cycle still occupies the cow.
func (s BreedingStatus) Active() bool {
	return s == BreedingBred || s == BreedingPregnancyConfirmed
}

type HeatIntensity string

const (
	HeatWeak     HeatIntensity = "weak"
	HeatModerate HeatIntensity = "moderate"
	HeatStrong   HeatIntensity = "strong"
)

type TransactionType string

const (
	TransactionIncome  TransactionType = "income"
	TransactionExpense TransactionType = "expense"
)

type TransactionCategory string

const (
	CategoryMilkSales      TransactionCategory = "milk_sales"
	CategoryLivestockSales TransactionCategory = "livestock_sales"
	CategoryEggSales       TransactionCategory = "egg_sales"
	CategoryFeedPurchase   TransactionCategory = "feed_purchase"
	CategoryVeterinary     TransactionCategory = "veterinary"
	CategoryBreeding       TransactionCategory = "breeding"
	CategoryEquipment      TransactionCategory = "equipment"
	CategoryLabor          TransactionCategory = "labor"
	CategoryUtilities      TransactionCategory = "utilities"
	CategoryTransport      TransactionCategory = "transport"
	CategoryMaintenance    TransactionCategory = "maintenance"
	CategoryOther          TransactionCategory = "other"
)

// AllowsType reports whether a transaction of type t may be filed under c.
// "other" is valid on both sides of the ledger.
func (c TransactionCategory) AllowsType(t TransactionType) bool {
	switch c {
	case CategoryOther:
		return true
	case CategoryMilkSales, CategoryLivestockSales, CategoryEggSales:
		return t == TransactionIncome
	default:
		return t == TransactionExpense
	}
}

type ReportType string

const (
	ReportDaily   ReportType = "daily"
	ReportWeekly  ReportType = "weekly"
	ReportMonthly ReportType = "monthly"
	ReportYearly  ReportType = "yearly"
	ReportCustom  ReportType = "custom"
)

type NotificationType string

const (
	NotifyLowStock          NotificationType = "low_stock"
	NotifyCalvingDue        NotificationType = "calving_due"
	NotifyHeatDetected      NotificationType = "heat_detected"
	NotifyVaccinationDue    NotificationType = "vaccination_due"
	NotifyTreatmentFollowup NotificationType = "treatment_followup"
	NotifyReportGenerated   NotificationType = "report_generated"
	NotifySystem            NotificationType = "system"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Escalated reports whether the priority warrants an out-of-band message.
func (p Priority) Escalated() bool {
	return p == PriorityHigh || p == PriorityUrgent
}
