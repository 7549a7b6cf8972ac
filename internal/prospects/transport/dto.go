// Package transport holds the wire shapes of the prospects HTTP surface.
package transport

import (
	"time"

	"prospect_backend/internal/prospects/domain"
)

// ImportResponse is returned by a committed import call.
type ImportResponse struct {
	OK    bool `json:"ok"`
	Count int  `json:"count"`
}

// RecalculateResponse acknowledges an enqueued recalculation run.
type RecalculateResponse struct {
	Queued bool   `json:"queued"`
	TaskID string `json:"taskId,omitempty"`
}

// ContactResponse represents a stored contact.
type ContactResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Title     string `json:"title,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Role      string `json:"role,omitempty"`
	CreatedAt string `json:"createdAt"`
}

// SignalResponse represents a stored signal.
type SignalResponse struct {
	ID        string  `json:"id"`
	Type      string  `json:"type"`
	Title     string  `json:"title"`
	Date      *string `json:"date,omitempty"`
	Source    string  `json:"source,omitempty"`
	CreatedAt string  `json:"createdAt"`
}

// AuditResponse represents one audit record.
type AuditResponse struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	By   string `json:"by"`
	At   string `json:"at"`
}

// ProspectResponse is the read-back view of a prospect and its children.
type ProspectResponse struct {
	TenantID        string            `json:"tenantId"`
	ID              string            `json:"id"`
	InstitutionName string            `json:"institutionName"`
	Domain          string            `json:"domain"`
	Product         string            `json:"product"`
	Region          string            `json:"region,omitempty"`
	Timezone        string            `json:"timezone,omitempty"`
	LMS             string            `json:"lms,omitempty"`
	Score           int               `json:"score"`
	Stage           string            `json:"stage"`
	Wedges          []string          `json:"wedges"`
	WhyNow          string            `json:"whyNow,omitempty"`
	CurrentTools    []string          `json:"currentTools"`
	OwnerID         *string           `json:"ownerId"`
	OwnerName       *string           `json:"ownerName"`
	Status          string            `json:"status"`
	Priority        string            `json:"priority"`
	LastContactedAt *string           `json:"lastContactedAt,omitempty"`
	NextStep        string            `json:"nextStep,omitempty"`
	NextStepDueAt   *string           `json:"nextStepDueAt,omitempty"`
	CreatedAt       string            `json:"createdAt"`
	UpdatedAt       string            `json:"updatedAt"`
	Contacts        []ContactResponse `json:"contacts"`
	Signals         []SignalResponse  `json:"signals"`
	Audit           []AuditResponse   `json:"audit"`
}

// ToProspectResponse maps a prospect and its children to the wire shape.
func ToProspectResponse(p domain.Prospect, contacts []domain.Contact, signals []domain.Signal, audit []domain.AuditRecord) ProspectResponse {
	resp := ProspectResponse{
		TenantID:        p.TenantID,
		ID:              p.ID,
		InstitutionName: p.InstitutionName,
		Domain:          p.Domain,
		Product:         string(p.Product),
		Region:          p.Region,
		Timezone:        p.Timezone,
		LMS:             p.LMS,
		Score:           p.Score,
		Stage:           string(p.Stage),
		Wedges:          orEmpty(p.Wedges),
		WhyNow:          p.WhyNow,
		CurrentTools:    orEmpty(p.CurrentTools),
		OwnerID:         p.OwnerID,
		OwnerName:       p.OwnerName,
		Status:          string(p.Status),
		Priority:        string(p.Priority),
		LastContactedAt: formatOptional(p.LastContactedAt),
		NextStep:        p.NextStep,
		NextStepDueAt:   formatOptional(p.NextStepDueAt),
		CreatedAt:       p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       p.UpdatedAt.Format(time.RFC3339),
		Contacts:        make([]ContactResponse, 0, len(contacts)),
		Signals:         make([]SignalResponse, 0, len(signals)),
		Audit:           make([]AuditResponse, 0, len(audit)),
	}

	for _, c := range contacts {
		resp.Contacts = append(resp.Contacts, ContactResponse{
			ID:        c.ID,
			Name:      c.Name,
			Title:     c.Title,
			Email:     c.Email,
			Phone:     c.Phone,
			Role:      c.Role,
			CreatedAt: c.CreatedAt.Format(time.RFC3339),
		})
	}
	for _, s := range signals {
		resp.Signals = append(resp.Signals, SignalResponse{
			ID:        s.ID,
			Type:      s.Type,
			Title:     s.Title,
			Date:      formatOptional(s.Date),
			Source:    s.Source,
			CreatedAt: s.CreatedAt.Format(time.RFC3339),
		})
	}
	for _, a := range audit {
		resp.Audit = append(resp.Audit, AuditResponse{
			ID:   a.ID,
			Type: a.Type,
			By:   a.By,
			At:   a.At.Format(time.RFC3339),
		})
	}
	return resp
}

func formatOptional(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

func orEmpty(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
