// Package domain holds the prospect aggregate, its enumerations and the pure
// rules (identity, decay, stage thresholds) shared by the import and scoring paths.
package domain

import (
	"slices"
	"time"
)

// Product is the closed set of sellable products a prospect targets.
type Product string

const (
	ProductVerity   Product = "verity"
	ProductPanorama Product = "panorama"
	ProductLumina   Product = "lumina"
)

// Stage is the lifecycle stage derived from score.
type Stage string

const (
	StageP1       Stage = "P1"
	StageNurture  Stage = "nurture"
	StageResearch Stage = "research"
	StageHold     Stage = "hold"
)

// Status tracks the outreach state of a prospect.
type Status string

const (
	StatusNew          Status = "new"
	StatusWorking      Status = "working"
	StatusReplied      Status = "replied"
	StatusQualified    Status = "qualified"
	StatusDisqualified Status = "disqualified"
)

// Priority is the manual A/B/C ranking.
type Priority string

const (
	PriorityA Priority = "A"
	PriorityB Priority = "B"
	PriorityC Priority = "C"
)

// Defaults applied when a prospect is first created.
const (
	DefaultScore    = 0
	DefaultStage    = StageResearch
	DefaultStatus   = StatusNew
	DefaultPriority = PriorityB

	MinScore = 0
	MaxScore = 100
)

var (
	products   = []Product{ProductVerity, ProductPanorama, ProductLumina}
	stages     = []Stage{StageP1, StageNurture, StageResearch, StageHold}
	statuses   = []Status{StatusNew, StatusWorking, StatusReplied, StatusQualified, StatusDisqualified}
	priorities = []Priority{PriorityA, PriorityB, PriorityC}
)

func (p Product) Valid() bool  { return slices.Contains(products, p) }
func (s Stage) Valid() bool    { return slices.Contains(stages, s) }
func (s Status) Valid() bool   { return slices.Contains(statuses, s) }
func (p Priority) Valid() bool { return slices.Contains(priorities, p) }

// Prospect is one target institution and product opportunity within a tenant.
type Prospect struct {
	TenantID        string
	ID              string
	InstitutionName string
	Domain          string
	Product         Product
	Region          string
	Timezone        string
	LMS             string
	Score           int
	Stage           Stage
	Wedges          []string
	WhyNow          string
	CurrentTools    []string
	OwnerID         *string
	OwnerName       *string
	Status          Status
	Priority        Priority
	LastContactedAt *time.Time
	NextStep        string
	NextStepDueAt   *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Contact is a person at the prospect institution. Append-only.
type Contact struct {
	ID         string
	TenantID   string
	ProspectID string
	Name       string
	Title      string
	Email      string
	Phone      string
	Role       string
	CreatedAt  time.Time
}

// Signal is a dated buying signal attached to a prospect. Append-only.
type Signal struct {
	ID         string
	TenantID   string
	ProspectID string
	Type       string
	Title      string
	Date       *time.Time
	Source     string
	CreatedAt  time.Time
}

// AuditType values written by this service.
const (
	AuditTypeImport = "import"
)

// AuditRecord is an immutable fact about a write performed on behalf of a caller.
type AuditRecord struct {
	ID         string
	Type       string
	TenantID   string
	ProspectID string
	By         string
	At         time.Time
}

// RotationCursor is the durable round-robin position for one assignment scope.
type RotationCursor struct {
	ScopeKey  string
	TenantID  string
	Region    string
	LastIndex int
	Count     int64
	UpdatedAt time.Time
}

// Field identifies a mergeable prospect attribute.
type Field uint32

const (
	FieldInstitutionName Field = 1 << iota
	FieldDomain
	FieldProduct
	FieldRegion
	FieldTimezone
	FieldLMS
	FieldScore
	FieldStage
	FieldWedges
	FieldWhyNow
	FieldCurrentTools
	FieldOwner
	FieldStatus
	FieldPriority
	FieldLastContactedAt
	FieldNextStep
	FieldNextStepDueAt
)

// FieldMask is the set of fields an upsert overwrites on an existing record.
type FieldMask Field

// Has reports whether f is part of the mask.
func (m FieldMask) Has(f Field) bool { return Field(m)&f != 0 }

// With returns a mask that also contains f.
func (m FieldMask) With(f Field) FieldMask { return FieldMask(Field(m) | f) }

// ApplyDefaults fills unset optional enumerations and the score with their
// creation defaults. Only meaningful for a record that does not exist yet.
func (p *Prospect) ApplyDefaults() {
	if p.Stage == "" {
		p.Stage = DefaultStage
	}
	if p.Status == "" {
		p.Status = DefaultStatus
	}
	if p.Priority == "" {
		p.Priority = DefaultPriority
	}
	if p.Wedges == nil {
		p.Wedges = []string{}
	}
	if p.CurrentTools == nil {
		p.CurrentTools = []string{}
	}
}

// Merge overwrites the masked fields of p with the ones from update.
// Identity and timestamps are left alone.
func (p *Prospect) Merge(update Prospect, mask FieldMask) {
	if mask.Has(FieldInstitutionName) {
		p.InstitutionName = update.InstitutionName
	}
	if mask.Has(FieldDomain) {
		p.Domain = update.Domain
	}
	if mask.Has(FieldProduct) {
		p.Product = update.Product
	}
	if mask.Has(FieldRegion) {
		p.Region = update.Region
	}
	if mask.Has(FieldTimezone) {
		p.Timezone = update.Timezone
	}
	if mask.Has(FieldLMS) {
		p.LMS = update.LMS
	}
	if mask.Has(FieldScore) {
		p.Score = update.Score
	}
	if mask.Has(FieldStage) {
		p.Stage = update.Stage
	}
	if mask.Has(FieldWedges) {
		p.Wedges = slices.Clone(update.Wedges)
	}
	if mask.Has(FieldWhyNow) {
		p.WhyNow = update.WhyNow
	}
	if mask.Has(FieldCurrentTools) {
		p.CurrentTools = slices.Clone(update.CurrentTools)
	}
	if mask.Has(FieldOwner) {
		p.OwnerID = update.OwnerID
		p.OwnerName = update.OwnerName
	}
	if mask.Has(FieldStatus) {
		p.Status = update.Status
	}
	if mask.Has(FieldPriority) {
		p.Priority = update.Priority
	}
	if mask.Has(FieldLastContactedAt) {
		p.LastContactedAt = update.LastContactedAt
	}
	if mask.Has(FieldNextStep) {
		p.NextStep = update.NextStep
	}
	if mask.Has(FieldNextStepDueAt) {
		p.NextStepDueAt = update.NextStepDueAt
	}
}
