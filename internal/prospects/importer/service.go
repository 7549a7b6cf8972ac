// Package importer drives one import call end to end: validate every record,
// derive identities, assign owners, stage all writes and commit them once.
package importer

import (
	"context"
	"errors"
	"maps"
	"slices"
	"strings"
	"time"

	"prospect_backend/internal/adapters/storage"
	"prospect_backend/internal/events"
	"prospect_backend/internal/ingest"
	"prospect_backend/internal/prospects/batch"
	"prospect_backend/internal/prospects/domain"
	"prospect_backend/internal/prospects/validation"
	"prospect_backend/internal/rolepool"
	"prospect_backend/platform/apperr"
	"prospect_backend/platform/logger"

	"github.com/google/uuid"
)

const archiveTimeout = 30 * time.Second

// Assigner picks the next owner of a scope, or nil when nobody is eligible.
type Assigner interface {
	Assign(ctx context.Context, tenantID, region string) (*rolepool.Entry, error)
}

// Result summarizes a committed import call.
type Result struct {
	Count      int
	Assigned   int
	Unassigned int
	Supplied   int
	ArchiveKey string
}

// Service is the import orchestrator.
type Service struct {
	validator *validation.Validator
	assigner  Assigner
	committer batch.Committer
	archive   storage.ImportArchive
	eventBus  events.Bus
	log       *logger.Logger
	maxWrites int
	now       func() time.Time
}

// New creates the import service. archive may be nil.
func New(
	validator *validation.Validator,
	assigner Assigner,
	committer batch.Committer,
	archive storage.ImportArchive,
	eventBus events.Bus,
	log *logger.Logger,
	maxWrites int,
) *Service {
	if archive == nil {
		archive = storage.NoopArchive{}
	}
	return &Service{
		validator: validator,
		assigner:  assigner,
		committer: committer,
		archive:   archive,
		eventBus:  eventBus,
		log:       log,
		maxWrites: maxWrites,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// ImportPayload parses a raw payload (JSON object, JSON array or delimited
// text), imports its records and archives the payload once committed.
func (s *Service) ImportPayload(ctx context.Context, callerID string, payload []byte) (Result, error) {
	if strings.TrimSpace(callerID) == "" {
		return Result{}, s.reject(ctx, callerID, events.RejectUnauthorized, 0, apperr.Unauthorized("authenticated caller required"))
	}

	records, format, err := ingest.Parse(payload)
	if err != nil {
		return Result{}, s.reject(ctx, callerID, events.RejectValidation, 0, apperr.Wrap(apperr.KindBadRequest, "unreadable import payload", err))
	}

	result, err := s.ImportBatch(ctx, callerID, records)
	if err != nil {
		return Result{}, err
	}

	result.ArchiveKey = s.archivePayload(ctx, callerID, format, payload, result.Count)
	return result, nil
}

// ImportBatch imports already parsed records as one atomic unit.
func (s *Service) ImportBatch(ctx context.Context, callerID string, records []map[string]any) (Result, error) {
	callerID = strings.TrimSpace(callerID)
	if callerID == "" {
		return Result{}, s.reject(ctx, callerID, events.RejectUnauthorized, len(records), apperr.Unauthorized("authenticated caller required"))
	}
	if len(records) == 0 {
		return Result{}, s.reject(ctx, callerID, events.RejectValidation, 0, apperr.BadRequest("no records to import"))
	}

	validated, err := s.validateAll(records)
	if err != nil {
		return Result{}, s.reject(ctx, callerID, events.RejectValidation, len(records), err)
	}

	if need := writesNeeded(validated); s.maxWrites > 0 && need > s.maxWrites {
		err := apperr.BadRequest("import exceeds the write limit of a single commit").
			WithDetails(map[string]int{"writes": need, "limit": s.maxWrites})
		return Result{}, s.reject(ctx, callerID, events.RejectTooLarge, len(records), err)
	}

	unit := batch.NewUnit(s.committer, s.maxWrites)
	now := s.now()
	var result Result
	tenants := make([]string, 0)

	for _, rec := range validated {
		p := rec.Prospect
		p.ID = domain.NormalizeID(p.Domain, p.Product)
		p.ApplyDefaults()
		fields := rec.Fields

		switch {
		case rec.HasOwner():
			result.Supplied++
		default:
			owner, err := s.assigner.Assign(ctx, p.TenantID, p.Region)
			if err != nil {
				return Result{}, s.reject(ctx, callerID, events.RejectAssignment, len(records), apperr.Wrap(apperr.KindUnavailable, "owner assignment failed", err))
			}
			if owner == nil {
				result.Unassigned++
				s.log.Debug("no eligible owner", "tenant_id", p.TenantID, "region", p.Region, "prospect_id", p.ID)
				break
			}
			ownerID, ownerName := owner.OwnerID, owner.DisplayName
			p.OwnerID = &ownerID
			p.OwnerName = &ownerName
			fields = fields.With(domain.FieldOwner)
			result.Assigned++
		}

		if err := unit.Stage(stageWrites(p, fields, rec, callerID, now)...); err != nil {
			if errors.Is(err, batch.ErrTooManyWrites) {
				return Result{}, s.reject(ctx, callerID, events.RejectTooLarge, len(records), apperr.Wrap(apperr.KindBadRequest, "import exceeds the write limit of a single commit", err))
			}
			return Result{}, s.reject(ctx, callerID, events.RejectCommit, len(records), apperr.Wrap(apperr.KindInternal, "stage import", err))
		}

		if !slices.Contains(tenants, p.TenantID) {
			tenants = append(tenants, p.TenantID)
		}
		result.Count++
	}

	if err := unit.Commit(ctx); err != nil {
		s.log.WithContext(ctx).DatabaseError("import_commit", err)
		return Result{}, s.reject(ctx, callerID, events.RejectCommit, len(records), apperr.Wrap(apperr.KindInternal, "import commit failed", err))
	}

	slices.Sort(tenants)
	s.log.WithContext(ctx).ImportCompleted(callerID, result.Count, result.Assigned, result.Unassigned)
	if s.eventBus != nil {
		s.eventBus.Publish(ctx, events.ProspectsImported{
			BaseEvent:  events.NewBaseEvent(),
			CallerID:   callerID,
			Processed:  result.Count,
			Assigned:   result.Assigned,
			Unassigned: result.Unassigned,
			Supplied:   result.Supplied,
			Tenants:    tenants,
		})
	}
	return result, nil
}

// validateAll checks every record before anything else happens, so an
// invalid record never advances a rotation cursor.
func (s *Service) validateAll(records []map[string]any) ([]validation.Record, error) {
	validated := make([]validation.Record, 0, len(records))
	var fieldErrs validation.Errors
	for i, raw := range records {
		rec, err := s.validator.Validate(i, foldProduct(raw))
		if err != nil {
			var errs validation.Errors
			if errors.As(err, &errs) {
				fieldErrs = append(fieldErrs, errs...)
				continue
			}
			return nil, apperr.Wrap(apperr.KindValidation, "record validation failed", err)
		}
		validated = append(validated, rec)
	}
	if len(fieldErrs) > 0 {
		return nil, apperr.Wrap(apperr.KindValidation, "record validation failed", fieldErrs).WithDetails(fieldErrs)
	}
	return validated, nil
}

// foldProduct lower-cases the product before validation without touching the caller's map.
func foldProduct(raw map[string]any) map[string]any {
	product, ok := raw["product"].(string)
	if !ok {
		return raw
	}
	folded := maps.Clone(raw)
	folded["product"] = strings.ToLower(strings.TrimSpace(product))
	return folded
}

func writesNeeded(records []validation.Record) int {
	n := 0
	for _, rec := range records {
		n += 2 + len(rec.Contacts) + len(rec.Signals)
	}
	return n
}

func stageWrites(p domain.Prospect, fields domain.FieldMask, rec validation.Record, callerID string, now time.Time) []batch.Write {
	writes := make([]batch.Write, 0, 2+len(rec.Contacts)+len(rec.Signals))
	writes = append(writes, batch.ProspectUpsert{Prospect: p, Fields: fields, At: now})

	for _, c := range rec.Contacts {
		c.ID = uuid.NewString()
		c.TenantID = p.TenantID
		c.ProspectID = p.ID
		c.CreatedAt = now
		writes = append(writes, batch.ContactCreate{Contact: c})
	}
	for _, sig := range rec.Signals {
		sig.ID = uuid.NewString()
		sig.TenantID = p.TenantID
		sig.ProspectID = p.ID
		sig.CreatedAt = now
		writes = append(writes, batch.SignalCreate{Signal: sig})
	}

	writes = append(writes, batch.AuditAppend{Record: domain.AuditRecord{
		ID:         uuid.NewString(),
		Type:       domain.AuditTypeImport,
		TenantID:   p.TenantID,
		ProspectID: p.ID,
		By:         callerID,
		At:         now,
	}})
	return writes
}

func (s *Service) reject(ctx context.Context, callerID, reason string, records int, err error) error {
	s.log.WithContext(ctx).ImportRejected(callerID, reason, err)
	if s.eventBus != nil {
		s.eventBus.Publish(ctx, events.ImportRejected{
			BaseEvent: events.NewBaseEvent(),
			CallerID:  callerID,
			Reason:    reason,
			Records:   records,
		})
	}
	return err
}

func (s *Service) archivePayload(ctx context.Context, callerID string, format ingest.Format, payload []byte, records int) string {
	archiveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), archiveTimeout)
	defer cancel()

	key, err := s.archive.Archive(archiveCtx, storage.ArchiveObject{
		ID:          uuid.NewString(),
		CallerID:    callerID,
		Extension:   format.Extension(),
		ContentType: format.ContentType(),
		Data:        payload,
		Records:     records,
		At:          s.now(),
	})
	if err != nil {
		s.log.WithContext(ctx).Warn("import archive failed", "caller_id", callerID, "error", err)
		return ""
	}
	return key
}
