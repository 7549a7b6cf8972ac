package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"prospect_backend/internal/prospects/batch"
	"prospect_backend/internal/prospects/domain"

	"github.com/jackc/pgx/v5"
)

// Apply writes every staged mutation inside one transaction. Writes are sent
// in chunks of chunkSize statements; a failure in any chunk rolls back all of them.
func (r *Repository) Apply(ctx context.Context, writes []batch.Write) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin commit: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := applyWrites(ctx, tx, writes, r.chunkSize); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func applyWrites(ctx context.Context, q querier, writes []batch.Write, chunkSize int) error {
	for n, chunk := range batch.Chunks(writes, chunkSize) {
		b := &pgx.Batch{}
		for _, w := range chunk {
			if err := queueWrite(b, w); err != nil {
				return err
			}
		}

		results := q.SendBatch(ctx, b)
		for i := range chunk {
			if _, err := results.Exec(); err != nil {
				_ = results.Close()
				return fmt.Errorf("chunk %d %s: %w", n, batch.Kind(chunk[i]), err)
			}
		}
		if err := results.Close(); err != nil {
			return fmt.Errorf("chunk %d: %w", n, err)
		}
	}
	return nil
}

func queueWrite(b *pgx.Batch, w batch.Write) error {
	switch typed := w.(type) {
	case batch.ProspectUpsert:
		b.Queue(upsertSQL(typed.Fields), upsertArgs(typed.Prospect, typed.At)...)
	case batch.ContactCreate:
		c := typed.Contact
		b.Queue(`
			INSERT INTO prospect_contacts (id, tenant_id, prospect_id, name, title, email, phone, role, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, c.ID, c.TenantID, c.ProspectID, c.Name, nullable(c.Title), nullable(c.Email), nullable(c.Phone), nullable(c.Role), c.CreatedAt)
	case batch.SignalCreate:
		s := typed.Signal
		b.Queue(`
			INSERT INTO prospect_signals (id, tenant_id, prospect_id, type, title, date, source, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, s.ID, s.TenantID, s.ProspectID, s.Type, s.Title, s.Date, nullable(s.Source), s.CreatedAt)
	case batch.AuditAppend:
		a := typed.Record
		b.Queue(`
			INSERT INTO audit_records (id, type, tenant_id, prospect_id, actor_id, at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, a.ID, a.Type, a.TenantID, a.ProspectID, a.By, a.At)
	case batch.ScoreUpdate:
		s := typed.Rescore
		b.Queue(`
			UPDATE prospects SET score = $3, stage = $4, updated_at = $5
			WHERE tenant_id = $1 AND id = $2
		`, s.TenantID, s.ID, s.Score, string(s.Stage), typed.At)
	default:
		return fmt.Errorf("unsupported write %T", w)
	}
	return nil
}

// mergeColumns maps mask bits to the columns they overwrite on conflict.
var mergeColumns = []struct {
	field   domain.Field
	columns []string
}{
	{domain.FieldInstitutionName, []string{"institution_name"}},
	{domain.FieldDomain, []string{"domain"}},
	{domain.FieldProduct, []string{"product"}},
	{domain.FieldRegion, []string{"region"}},
	{domain.FieldTimezone, []string{"timezone"}},
	{domain.FieldLMS, []string{"lms"}},
	{domain.FieldScore, []string{"score"}},
	{domain.FieldStage, []string{"stage"}},
	{domain.FieldWedges, []string{"wedges"}},
	{domain.FieldWhyNow, []string{"why_now"}},
	{domain.FieldCurrentTools, []string{"current_tools"}},
	{domain.FieldOwner, []string{"owner_id", "owner_name"}},
	{domain.FieldStatus, []string{"status"}},
	{domain.FieldPriority, []string{"priority"}},
	{domain.FieldLastContactedAt, []string{"last_contacted_at"}},
	{domain.FieldNextStep, []string{"next_step"}},
	{domain.FieldNextStepDueAt, []string{"next_step_due_at"}},
}

func upsertSQL(mask domain.FieldMask) string {
	sets := make([]string, 0, len(mergeColumns)+1)
	for _, mc := range mergeColumns {
		if !mask.Has(mc.field) {
			continue
		}
		for _, col := range mc.columns {
			sets = append(sets, col+" = EXCLUDED."+col)
		}
	}
	sets = append(sets, "updated_at = EXCLUDED.updated_at")

	return `
		INSERT INTO prospects (
			tenant_id, id, institution_name, domain, product, region, timezone, lms,
			score, stage, wedges, why_now, current_tools, owner_id, owner_name,
			status, priority, last_contacted_at, next_step, next_step_due_at,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20, $21, $21
		)
		ON CONFLICT (tenant_id, id) DO UPDATE SET ` + strings.Join(sets, ", ")
}

func upsertArgs(p domain.Prospect, at time.Time) []any {
	return []any{
		p.TenantID, p.ID, p.InstitutionName, p.Domain, string(p.Product), p.Region, p.Timezone, p.LMS,
		p.Score, string(p.Stage), nonNil(p.Wedges), p.WhyNow, nonNil(p.CurrentTools), p.OwnerID, p.OwnerName,
		string(p.Status), string(p.Priority), p.LastContactedAt, p.NextStep, p.NextStepDueAt,
		at,
	}
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
