package repository

import (
	"context"
	"errors"
	"fmt"

	"prospect_backend/internal/prospects/domain"

	"github.com/jackc/pgx/v5"
)

const prospectColumns = `
	tenant_id, id, institution_name, domain, product, region, timezone, lms,
	score, stage, wedges, why_now, current_tools, owner_id, owner_name,
	status, priority, last_contacted_at, next_step, next_step_due_at,
	created_at, updated_at`

func scanProspect(row pgx.Row) (domain.Prospect, error) {
	var (
		p                                domain.Prospect
		product, stage, status, priority string
	)
	err := row.Scan(
		&p.TenantID, &p.ID, &p.InstitutionName, &p.Domain, &product, &p.Region, &p.Timezone, &p.LMS,
		&p.Score, &stage, &p.Wedges, &p.WhyNow, &p.CurrentTools, &p.OwnerID, &p.OwnerName,
		&status, &priority, &p.LastContactedAt, &p.NextStep, &p.NextStepDueAt,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return domain.Prospect{}, err
	}
	p.Product = domain.Product(product)
	p.Stage = domain.Stage(stage)
	p.Status = domain.Status(status)
	p.Priority = domain.Priority(priority)
	return p, nil
}

// GetProspect loads one prospect by tenant and id.
func (r *Repository) GetProspect(ctx context.Context, tenantID, id string) (domain.Prospect, error) {
	p, err := scanProspect(r.pool.QueryRow(ctx, `
		SELECT `+prospectColumns+`
		FROM prospects
		WHERE tenant_id = $1 AND id = $2
	`, tenantID, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Prospect{}, ErrNotFound
	}
	if err != nil {
		return domain.Prospect{}, fmt.Errorf("get prospect: %w", err)
	}
	return p, nil
}

// ListContacts returns the contacts of a prospect, oldest first.
func (r *Repository) ListContacts(ctx context.Context, tenantID, prospectID string) ([]domain.Contact, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, tenant_id, prospect_id, name, COALESCE(title, ''), COALESCE(email, ''),
			COALESCE(phone, ''), COALESCE(role, ''), created_at
		FROM prospect_contacts
		WHERE tenant_id = $1 AND prospect_id = $2
		ORDER BY created_at ASC, id ASC
	`, tenantID, prospectID)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	defer rows.Close()

	items := make([]domain.Contact, 0)
	for rows.Next() {
		var c domain.Contact
		if err := rows.Scan(&c.ID, &c.TenantID, &c.ProspectID, &c.Name, &c.Title, &c.Email, &c.Phone, &c.Role, &c.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

// ListSignals returns the signals of a prospect, oldest first.
func (r *Repository) ListSignals(ctx context.Context, tenantID, prospectID string) ([]domain.Signal, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, tenant_id, prospect_id, type, title, date, COALESCE(source, ''), created_at
		FROM prospect_signals
		WHERE tenant_id = $1 AND prospect_id = $2
		ORDER BY created_at ASC, id ASC
	`, tenantID, prospectID)
	if err != nil {
		return nil, fmt.Errorf("list signals: %w", err)
	}
	defer rows.Close()

	items := make([]domain.Signal, 0)
	for rows.Next() {
		var s domain.Signal
		if err := rows.Scan(&s.ID, &s.TenantID, &s.ProspectID, &s.Type, &s.Title, &s.Date, &s.Source, &s.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

// ListAuditRecords returns the audit trail of a prospect in the order it was written.
func (r *Repository) ListAuditRecords(ctx context.Context, tenantID, prospectID string) ([]domain.AuditRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, type, tenant_id, prospect_id, actor_id, at
		FROM audit_records
		WHERE tenant_id = $1 AND prospect_id = $2
		ORDER BY at ASC, id ASC
	`, tenantID, prospectID)
	if err != nil {
		return nil, fmt.Errorf("list audit records: %w", err)
	}
	defer rows.Close()

	items := make([]domain.AuditRecord, 0)
	for rows.Next() {
		var a domain.AuditRecord
		if err := rows.Scan(&a.ID, &a.Type, &a.TenantID, &a.ProspectID, &a.By, &a.At); err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}
