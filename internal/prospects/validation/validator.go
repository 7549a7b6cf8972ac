// Package validation turns one untyped input record into a typed prospect
// with its children, or a list of field errors.
package validation

import (
	"fmt"
	"strings"
	"time"

	"prospect_backend/internal/prospects/domain"
	"prospect_backend/platform/phone"
	"prospect_backend/platform/sanitize"
	"prospect_backend/platform/validator"
)

// Record is a validated input record ready for identity derivation.
type Record struct {
	Prospect domain.Prospect
	// Fields lists the prospect attributes the input actually supplied.
	Fields   domain.FieldMask
	Contacts []domain.Contact
	Signals  []domain.Signal
}

// HasOwner reports whether the input supplied an owner.
func (r Record) HasOwner() bool {
	return r.Fields.Has(domain.FieldOwner)
}

type contactInput struct {
	Name  string `json:"name" validate:"required"`
	Title string `json:"title"`
	Email string `json:"email" validate:"omitempty,email"`
	Phone string `json:"phone"`
	Role  string `json:"role"`
}

type signalInput struct {
	Type   string     `json:"type" validate:"required"`
	Title  string     `json:"title" validate:"required"`
	Date   *time.Time `json:"date"`
	Source string     `json:"source"`
}

type prospectInput struct {
	TenantID        string         `json:"tenantId" validate:"required"`
	InstitutionName string         `json:"institutionName" validate:"required,min=2"`
	Domain          string         `json:"domain" validate:"required"`
	Product         string         `json:"product" validate:"required,oneof=verity panorama lumina"`
	Region          string         `json:"region"`
	Timezone        string         `json:"timezone"`
	LMS             string         `json:"lms"`
	Score           *int           `json:"score" validate:"omitempty,min=0,max=100"`
	Stage           string         `json:"stage" validate:"omitempty,oneof=P1 nurture research hold"`
	Wedges          []string       `json:"wedges"`
	WhyNow          string         `json:"whyNow"`
	CurrentTools    []string       `json:"currentTools"`
	OwnerID         string         `json:"ownerId"`
	OwnerName       string         `json:"ownerName"`
	Status          string         `json:"status" validate:"omitempty,oneof=new working replied qualified disqualified"`
	Priority        string         `json:"priority" validate:"omitempty,oneof=A B C"`
	LastContactedAt *time.Time     `json:"lastContactedAt"`
	NextStep        string         `json:"nextStep"`
	NextStepDueAt   *time.Time     `json:"nextStepDueAt"`
	Contacts        []contactInput `json:"contacts" validate:"omitempty,dive"`
	Signals         []signalInput  `json:"signals" validate:"omitempty,dive"`
}

// Validator is the schema validator for imported prospect records.
type Validator struct {
	v      *validator.Validator
	phones *phone.Normalizer
}

// New creates a schema validator. phones normalizes contact numbers to E.164.
func New(v *validator.Validator, phones *phone.Normalizer) *Validator {
	return &Validator{v: v, phones: phones}
}

// Validate checks and coerces raw. index is the record's position in the call
// and is echoed in every FieldError. The error is always of type Errors.
func (val *Validator) Validate(index int, raw map[string]any) (Record, error) {
	r := &reader{raw: raw, index: index}

	in := prospectInput{
		TenantID:        r.text("tenantId", 0),
		InstitutionName: sanitize.Text(r.text("institutionName", 0)),
		Domain:          strings.ToLower(r.text("domain", 0)),
		Product:         r.text("product", 0),
		Region:          r.text("region", domain.FieldRegion),
		Timezone:        r.text("timezone", domain.FieldTimezone),
		LMS:             sanitize.Text(r.text("lms", domain.FieldLMS)),
		Score:           r.integer("score", domain.FieldScore),
		Stage:           r.text("stage", domain.FieldStage),
		Wedges:          sanitize.Strings(r.list("wedges", domain.FieldWedges)),
		WhyNow:          sanitize.Text(r.text("whyNow", domain.FieldWhyNow)),
		CurrentTools:    sanitize.Strings(r.list("currentTools", domain.FieldCurrentTools)),
		OwnerID:         r.text("ownerId", domain.FieldOwner),
		OwnerName:       sanitize.Text(r.text("ownerName", 0)),
		Status:          r.text("status", domain.FieldStatus),
		Priority:        r.text("priority", domain.FieldPriority),
		LastContactedAt: r.timestamp("lastContactedAt", domain.FieldLastContactedAt),
		NextStep:        sanitize.Text(r.text("nextStep", domain.FieldNextStep)),
		NextStepDueAt:   r.timestamp("nextStepDueAt", domain.FieldNextStepDueAt),
		Contacts:        r.contacts("contacts"),
		Signals:         r.signals("signals"),
	}
	if len(r.errs) > 0 {
		return Record{}, r.errs
	}

	if err := val.v.Struct(in); err != nil {
		violations := validator.Violations(err)
		if violations == nil {
			return Record{}, Errors{{Index: index, Field: "", Reason: err.Error()}}
		}
		errs := make(Errors, 0, len(violations))
		for _, v := range violations {
			errs = append(errs, FieldError{Index: index, Field: v.Field, Reason: reasonFor(v)})
		}
		return Record{}, errs
	}

	return val.build(in, r.present), nil
}

func (val *Validator) build(in prospectInput, present domain.FieldMask) Record {
	p := domain.Prospect{
		TenantID:        in.TenantID,
		InstitutionName: in.InstitutionName,
		Domain:          in.Domain,
		Product:         domain.Product(in.Product),
		Region:          in.Region,
		Timezone:        in.Timezone,
		LMS:             in.LMS,
		Stage:           domain.Stage(in.Stage),
		Wedges:          in.Wedges,
		WhyNow:          in.WhyNow,
		CurrentTools:    in.CurrentTools,
		Status:          domain.Status(in.Status),
		Priority:        domain.Priority(in.Priority),
		LastContactedAt: in.LastContactedAt,
		NextStep:        in.NextStep,
		NextStepDueAt:   in.NextStepDueAt,
	}
	if in.Score != nil {
		p.Score = *in.Score
	}
	if in.OwnerID != "" {
		ownerID := in.OwnerID
		p.OwnerID = &ownerID
		if in.OwnerName != "" {
			ownerName := in.OwnerName
			p.OwnerName = &ownerName
		}
	}

	fields := present.
		With(domain.FieldInstitutionName).
		With(domain.FieldDomain).
		With(domain.FieldProduct)

	contacts := make([]domain.Contact, 0, len(in.Contacts))
	for _, c := range in.Contacts {
		contacts = append(contacts, domain.Contact{
			Name:  c.Name,
			Title: c.Title,
			Email: strings.ToLower(c.Email),
			Phone: val.normalizePhone(c.Phone),
			Role:  c.Role,
		})
	}

	signals := make([]domain.Signal, 0, len(in.Signals))
	for _, s := range in.Signals {
		signals = append(signals, domain.Signal{
			Type:   s.Type,
			Title:  s.Title,
			Date:   s.Date,
			Source: s.Source,
		})
	}

	return Record{Prospect: p, Fields: fields, Contacts: contacts, Signals: signals}
}

func (val *Validator) normalizePhone(value string) string {
	if value == "" || val.phones == nil {
		return value
	}
	return val.phones.NormalizeE164(value)
}

func reasonFor(v validator.FieldViolation) string {
	switch v.Tag {
	case "required":
		return "is required"
	case "min":
		if v.Field == "score" {
			return "must be between 0 and 100"
		}
		return fmt.Sprintf("must be at least %s characters", v.Param)
	case "max":
		if v.Field == "score" {
			return "must be between 0 and 100"
		}
		return fmt.Sprintf("must be at most %s characters", v.Param)
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(v.Param, " ", ", ")
	case "email":
		return "must be a valid email address"
	default:
		return "failed " + v.Tag + " validation"
	}
}
