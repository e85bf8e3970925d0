package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Veterinarian struct {
	Base
	Name           string `gorm:"size:200;not null" json:"name"`
	LicenseNumber  string `gorm:"size:50;not null;uniqueIndex:idx_vet_license,where:is_deleted = false" json:"license_number"`
	PhoneNumber    string `gorm:"size:15;not null" json:"phone_number"`
	Email          string `gorm:"size:254" json:"email"`
	Location       string `gorm:"size:200" json:"location"`
	Specialization string `gorm:"size:100" json:"specialization"`
	IsActive       bool   `gorm:"not null" json:"is_active"`
}

func (Veterinarian) TableName() string { return "veterinarians" }

type VeterinarianInput struct {
	Name           string `json:"name" validate:"required,max=200"`
	LicenseNumber  string `json:"license_number" validate:"required,max=50"`
	PhoneNumber    string `json:"phone_number" validate:"required,max=15"`
	Email          string `json:"email" validate:"omitempty,email"`
	Location       string `json:"location" validate:"max=200"`
	Specialization string `json:"specialization" validate:"max=100"`
	IsActive       *bool  `json:"is_active"`
}

func (in VeterinarianInput) Validate() error {
	return ValidateStruct(in).Err()
}

func (in VeterinarianInput) Apply(v *Veterinarian) {
	v.Name = in.Name
	v.LicenseNumber = in.LicenseNumber
	v.PhoneNumber = in.PhoneNumber
	v.Email = in.Email
	v.Location = in.Location
	v.Specialization = in.Specialization
	v.IsActive = boolOr(in.IsActive, true)
}

type AnimalKind string

const (
	AnimalCow          AnimalKind = "cow"
	AnimalChickenBatch AnimalKind = "chicken_batch"
)

// AnimalRef names exactly one treated animal: a cow or a whole chicken batch.
type AnimalRef struct {
	Kind AnimalKind `gorm:"column:animal_type;size:20;not null;index:idx_health_animal" json:"kind" validate:"required,oneof=cow chicken_batch"`
	ID   uuid.UUID  `gorm:"column:animal_id;type:uuid;not null;index:idx_health_animal" json:"id" validate:"required"`
}

type HealthRecord struct {
	Base
	Animal           AnimalRef       `gorm:"embedded" json:"animal"`
	FarmID           uuid.UUID       `gorm:"type:uuid;not null;index" json:"farm_id"`
	DateReported     Date            `gorm:"not null;index" json:"date_reported"`
	DiseaseName      string          `gorm:"size:200;not null" json:"disease_name"`
	Symptoms         string          `gorm:"type:text;not null" json:"symptoms"`
	Diagnosis        string          `gorm:"type:text" json:"diagnosis"`
	TreatmentDate    Date            `json:"treatment_date"`
	MedicineUsed     string          `gorm:"size:200" json:"medicine_used"`
	MedicineCost     decimal.Decimal `gorm:"type:numeric(8,2);not null" json:"medicine_cost"`
	VeterinarianID   *uuid.UUID      `gorm:"type:uuid;index" json:"veterinarian_id"`
	TreatmentStatus  TreatmentStatus `gorm:"size:20;not null;index" json:"treatment_status"`
	RecoveryDate     Date            `json:"recovery_date"`
	FollowUpRequired bool            `gorm:"not null" json:"follow_up_required"`
	FollowUpDate     Date            `gorm:"index" json:"follow_up_date"`
	Notes            string          `gorm:"type:text" json:"notes"`

	AnimalName string `gorm:"-" json:"animal_name"`
}

func (HealthRecord) TableName() string { return "health_records" }

type HealthRecordInput struct {
	Animal           AnimalRef       `json:"animal"`
	DateReported     Date            `json:"date_reported" validate:"required"`
	DiseaseName      string          `json:"disease_name" validate:"required,max=200"`
	Symptoms         string          `json:"symptoms" validate:"required"`
	Diagnosis        string          `json:"diagnosis"`
	TreatmentDate    Date            `json:"treatment_date"`
	MedicineUsed     string          `json:"medicine_used" validate:"max=200"`
	MedicineCost     decimal.Decimal `json:"medicine_cost" validate:"gte=0"`
	VeterinarianID   *uuid.UUID      `json:"veterinarian_id"`
	TreatmentStatus  TreatmentStatus `json:"treatment_status" validate:"omitempty,oneof=diagnosed treating recovered chronic dead"`
	RecoveryDate     Date            `json:"recovery_date"`
	FollowUpRequired bool            `json:"follow_up_required"`
	FollowUpDate     Date            `json:"follow_up_date"`
	Notes            string          `json:"notes"`
}

func (in HealthRecordInput) Validate() error {
	verr := ValidateStruct(in)
	if !in.TreatmentDate.IsZero() && !in.DateReported.IsZero() && in.TreatmentDate.Before(in.DateReported) {
		verr.Add("treatment_date", "must not be before date_reported")
	}
	if !in.RecoveryDate.IsZero() && !in.DateReported.IsZero() && in.RecoveryDate.Before(in.DateReported) {
		verr.Add("recovery_date", "must not be before date_reported")
	}
	if in.FollowUpRequired && in.FollowUpDate.IsZero() {
		verr.Add("follow_up_date", "is required when follow_up_required is set")
	}
	return verr.Err()
}

// Apply copies the input onto r. The owning farm is resolved by the caller from the animal.
func (in HealthRecordInput) Apply(r *HealthRecord) {
	r.Animal = in.Animal
	r.DateReported = in.DateReported
	r.DiseaseName = in.DiseaseName
	r.Symptoms = in.Symptoms
	r.Diagnosis = in.Diagnosis
	r.TreatmentDate = in.TreatmentDate
	r.MedicineUsed = in.MedicineUsed
	r.MedicineCost = in.MedicineCost
	r.VeterinarianID = in.VeterinarianID
	r.TreatmentStatus = in.TreatmentStatus
	if r.TreatmentStatus == "" {
		r.TreatmentStatus = TreatmentDiagnosed
	}
	r.RecoveryDate = in.RecoveryDate
	r.FollowUpRequired = in.FollowUpRequired
	r.FollowUpDate = in.FollowUpDate
	r.Notes = in.Notes
}
