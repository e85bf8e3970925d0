package models

// Farm owns every other record, directly or through a cow or chicken batch.
type Farm struct {
	Base
	Name            string `gorm:"size:200;not null" json:"name"`
	Location        string `gorm:"size:200;not null" json:"location"`
	Address         string `gorm:"type:text" json:"address"`
	PhoneNumber     string `gorm:"size:15" json:"phone_number"`
	Email           string `gorm:"size:254" json:"email"`
	EstablishedDate Date   `json:"established_date"`
	Description     string `gorm:"type:text" json:"description"`
	IsActive        bool   `gorm:"not null" json:"is_active"`

	TotalCows     int64 `gorm:"-" json:"total_cows"`
	TotalChickens int64 `gorm:"-" json:"total_chickens"`
}

func (Farm) TableName() string { return "farms" }

// FarmInput is the writable surface of a Farm.
type FarmInput struct {
	Name            string `json:"name" validate:"required,max=200"`
	Location        string `json:"location" validate:"required,max=200"`
	Address         string `json:"address"`
	PhoneNumber     string `json:"phone_number" validate:"max=15"`
	Email           string `json:"email" validate:"omitempty,email"`
	EstablishedDate Date   `json:"established_date"`
	Description     string `json:"description"`
	IsActive        *bool  `json:"is_active"`
}

func (in FarmInput) Validate() error {
	return ValidateStruct(in).Err()
}

// Apply copies the input onto f.
func (in FarmInput) Apply(f *Farm) {
	f.Name = in.Name
	f.Location = in.Location
	f.Address = in.Address
	f.PhoneNumber = in.PhoneNumber
	f.Email = in.Email
	f.EstablishedDate = in.EstablishedDate
	f.Description = in.Description
	f.IsActive = boolOr(in.IsActive, true)
}

func boolOr(v *bool, fallback bool) bool {
	if v == nil {
		return fallback
	}
	return *v
}
