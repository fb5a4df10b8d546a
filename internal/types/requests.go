package types

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// DocumentPatch updates top-level fields. Nil fields are left unchanged;
// Contact and Theme are merged field by field.
type DocumentPatch struct {
	Name      *string       `json:"name,omitempty" validate:"omitempty,max=200"`
	Title     *string       `json:"title,omitempty" validate:"omitempty,max=200"`
	About     *string       `json:"about,omitempty" validate:"omitempty,max=5000"`
	Photo     *string       `json:"photo,omitempty"`
	ShowPhoto *bool         `json:"showPhoto,omitempty"`
	Contact   *ContactPatch `json:"contact,omitempty"`
	Theme     *ThemePatch   `json:"theme,omitempty"`
}

// ContactPatch updates individual contact fields
type ContactPatch struct {
	Email    *string `json:"email,omitempty" validate:"omitempty,max=200"`
	Phone    *string `json:"phone,omitempty" validate:"omitempty,max=50"`
	Address  *string `json:"address,omitempty" validate:"omitempty,max=200"`
	Website  *string `json:"website,omitempty" validate:"omitempty,max=300"`
	LinkedIn *string `json:"linkedin,omitempty" validate:"omitempty,max=300"`
}

// ThemePatch updates the theme
type ThemePatch struct {
	PrimaryColor *string `json:"primaryColor,omitempty" validate:"omitempty,hexcolor"`
}

// Validate validates the DocumentPatch using the validator.
func (p *DocumentPatch) Validate() error {
	validate := validator.New()
	return validate.Struct(p)
}

// LocaleRequest switches the document locale
type LocaleRequest struct {
	Locale string `json:"locale" validate:"required,oneof=es en"`
}

// Validate validates the LocaleRequest using the validator.
func (r *LocaleRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// TemplateRequest switches the selected template
type TemplateRequest struct {
	Template string `json:"template" validate:"required,oneof=original modern classic"`
}

// Validate validates the TemplateRequest using the validator.
func (r *TemplateRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// SkillRequest adds one skill
type SkillRequest struct {
	Skill string `json:"skill" validate:"required,max=100"`
}

// Validate validates the SkillRequest using the validator.
func (r *SkillRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// JobDescription is the target position for CV optimization
type JobDescription struct {
	Company     string `json:"company" validate:"required,max=200"`
	Position    string `json:"position" validate:"required,max=200"`
	Description string `json:"description" validate:"required,max=20000"`
}

// OptimizeRequest asks for optimization suggestions against a job
type OptimizeRequest struct {
	Job    JobDescription `json:"job" validate:"required"`
	Locale string         `json:"locale,omitempty" validate:"omitempty,oneof=es en"`
}

// Validate validates the OptimizeRequest using the validator.
func (r *OptimizeRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// TranslateRequest asks for the free-text fields to be translated
type TranslateRequest struct {
	Target string `json:"target" validate:"required,oneof=es en"`
}

// Validate validates the TranslateRequest using the validator.
func (r *TranslateRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// SubscriptionRequest activates premium for a number of months
type SubscriptionRequest struct {
	Months int `json:"months" validate:"required,min=1,max=24"`
}

// Validate validates the SubscriptionRequest using the validator.
func (r *SubscriptionRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// ValidateDocument validates entry-level constraints of a whole document.
func ValidateDocument(doc *CVDocument) error {
	validate := validator.New()
	return validate.Struct(doc)
}

// SessionResponse is returned when a new editing session is issued
type SessionResponse struct {
	SessionID string      `json:"session_id"`
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	Document  *CVDocument `json:"document"`
}
