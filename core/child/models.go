package child

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/davomat/core"
)

// Child is a person enrolled in a group. Children are never hard-deleted; see Service.Deactivate.
type Child struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Surname        string          `json:"surname"`
	BirthDate      string          `json:"birth_date"`
	Group          string          `json:"group"`
	ParentName     string          `json:"parent_name"`
	ParentPhone    string          `json:"parent_phone"`
	ParentTelegram null.String     `json:"parent_telegram"`
	Address        string          `json:"address"`
	MedicalInfo    null.String     `json:"medical_info"`
	EnrollmentDate string          `json:"enrollment_date"`
	MonthlyFee     decimal.Decimal `json:"monthly_fee"`
	IsActive       bool            `json:"is_active"`
	CreatedAt      time.Time       `json:"created_at"` // UTC
	UpdatedAt      time.Time       `json:"updated_at"` // UTC
}

func (c Child) DisplayName() string {
	return strings.TrimSpace(c.Name + " " + c.Surname)
}

// Contact is how the guardian is referenced in absence notices.
func (c Child) Contact() string {
	if c.ParentPhone == "" {
		return c.ParentName
	}
	if c.ParentName == "" {
		return c.ParentPhone
	}
	return c.ParentName + " (" + c.ParentPhone + ")"
}

// NewChild contains information needed to enroll a Child.
type NewChild struct {
	Name           string          `json:"name" validate:"required"`
	Surname        string          `json:"surname" validate:"required"`
	BirthDate      string          `json:"birth_date" validate:"omitempty,isodate"`
	Group          string          `json:"group" validate:"required"`
	ParentName     string          `json:"parent_name" validate:"required"`
	ParentPhone    string          `json:"parent_phone" validate:"required"`
	ParentTelegram string          `json:"parent_telegram"`
	Address        string          `json:"address"`
	MedicalInfo    string          `json:"medical_info"`
	EnrollmentDate string          `json:"enrollment_date" validate:"omitempty,isodate"`
	MonthlyFee     decimal.Decimal `json:"monthly_fee"`
}

func (nc *NewChild) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	nc.Surname = core.CleanString(nc.Surname)
	nc.Group = core.CleanString(nc.Group)
	nc.ParentName = core.CleanString(nc.ParentName)
	nc.ParentPhone = core.CleanString(nc.ParentPhone)
	nc.ParentTelegram = core.CleanString(nc.ParentTelegram)
	nc.Address = core.CleanString(nc.Address)
	nc.MedicalInfo = core.CleanString(nc.MedicalInfo)
	nc.BirthDate = core.CleanString(nc.BirthDate)
	nc.EnrollmentDate = core.CleanString(nc.EnrollmentDate)

	if err := validate.Struct(nc); err != nil {
		return err
	}
	return validateFee(nc.MonthlyFee)
}

// UpdateChild defines what information may be provided to modify an existing Child.
// Empty fields keep their current value.
type UpdateChild struct {
	Name           string           `json:"name"`
	Surname        string           `json:"surname"`
	BirthDate      string           `json:"birth_date" validate:"omitempty,isodate"`
	Group          string           `json:"group"`
	ParentName     string           `json:"parent_name"`
	ParentPhone    string           `json:"parent_phone"`
	ParentTelegram *string          `json:"parent_telegram"`
	Address        *string          `json:"address"`
	MedicalInfo    *string          `json:"medical_info"`
	MonthlyFee     *decimal.Decimal `json:"monthly_fee"`
	IsActive       *bool            `json:"is_active"`
}

func (uc *UpdateChild) Validate(validate *validator.Validate) error {
	uc.Name = core.CleanString(uc.Name)
	uc.Surname = core.CleanString(uc.Surname)
	uc.BirthDate = core.CleanString(uc.BirthDate)
	uc.Group = core.CleanString(uc.Group)
	uc.ParentName = core.CleanString(uc.ParentName)
	uc.ParentPhone = core.CleanString(uc.ParentPhone)

	if err := validate.Struct(uc); err != nil {
		return err
	}
	if uc.MonthlyFee != nil {
		return validateFee(*uc.MonthlyFee)
	}
	return nil
}

func validateFee(fee decimal.Decimal) error {
	if fee.IsNegative() {
		return core.NewValidationError(nil, core.FieldError{Field: "monthly_fee", Error: "must not be negative"})
	}
	return nil
}

type QueryFilter struct {
	Search          string `query:"search"`
	Group           string `query:"group"`
	IncludeInactive bool   `query:"include_inactive"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search, true /* lower */)
	qf.Group = core.CleanString(qf.Group)
}

func optionalString(s string) null.String {
	return null.NewString(s, s != "")
}
