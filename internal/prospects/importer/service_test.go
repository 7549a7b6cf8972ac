package importer

import (
	"context"
	"errors"
	"sync"
	"testing"

	"prospect_backend/internal/adapters/storage"
	"prospect_backend/internal/events"
	"prospect_backend/internal/prospects/assignment"
	"prospect_backend/internal/prospects/domain"
	"prospect_backend/internal/prospects/repository"
	"prospect_backend/internal/prospects/validation"
	"prospect_backend/internal/rolepool"
	"prospect_backend/platform/apperr"
	"prospect_backend/platform/logger"
	"prospect_backend/platform/phone"
	"prospect_backend/platform/validator"
)

type recordingBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *recordingBus) Publish(_ context.Context, e events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
}

func (b *recordingBus) PublishSync(ctx context.Context, e events.Event) error {
	b.Publish(ctx, e)
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

func (b *recordingBus) last() events.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.events) == 0 {
		return nil
	}
	return b.events[len(b.events)-1]
}

type recordingArchive struct {
	objects []storage.ArchiveObject
	err     error
}

func (a *recordingArchive) Archive(_ context.Context, obj storage.ArchiveObject) (string, error) {
	if a.err != nil {
		return "", a.err
	}
	a.objects = append(a.objects, obj)
	return storage.ObjectKey(obj), nil
}

type fixture struct {
	svc     *Service
	store   *repository.MemoryStore
	bus     *recordingBus
	archive *recordingArchive
}

func newFixture(t *testing.T, pool rolepool.StaticSource, maxWrites int) fixture {
	t.Helper()
	store := repository.NewMemoryStore()
	bus := &recordingBus{}
	archive := &recordingArchive{}
	svc := New(
		validation.New(validator.New(), phone.NewNormalizer("US")),
		assignment.NewAssigner(assignment.NewResolver(pool), store),
		store,
		archive,
		bus,
		logger.Discard(),
		maxWrites,
	)
	return fixture{svc: svc, store: store, bus: bus, archive: archive}
}

func sdrPool(tenant string, ids ...string) rolepool.StaticSource {
	out := make(rolepool.StaticSource, 0, len(ids))
	for _, id := range ids {
		out = append(out, rolepool.Entry{OwnerID: id, DisplayName: "Name " + id, Tenants: map[string]string{tenant: rolepool.RoleSDR}})
	}
	return out
}

func record(domainName, product string) map[string]any {
	return map[string]any{
		"tenantId":        "acme",
		"institutionName": "Institution " + domainName,
		"domain":          domainName,
		"product":         product,
		"region":          "east",
	}
}

func TestImportBatchCommitsRecordsWithAudit(t *testing.T) {
	f := newFixture(t, sdrPool("acme", "u-1", "u-2"), 100)
	ctx := context.Background()

	rec := record("Example.EDU ", "Verity")
	rec["contacts"] = []any{map[string]any{"name": "Dana"}}
	rec["signals"] = []any{map[string]any{"type": "rfp", "title": "RFP"}}

	result, err := f.svc.ImportBatch(ctx, "caller-1", []map[string]any{rec, record("other.edu", "lumina")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Count != 2 || result.Assigned != 2 {
		t.Fatalf("unexpected result %+v", result)
	}
	if f.store.ApplyCount() != 1 {
		t.Fatalf("expected a single commit, got %d", f.store.ApplyCount())
	}

	p, err := f.store.GetProspect(ctx, "acme", "example.edu_verity")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if p.Stage != domain.StageResearch || p.Status != domain.StatusNew || p.Priority != domain.PriorityB {
		t.Fatalf("expected creation defaults, got %+v", p)
	}
	if p.OwnerID == nil || *p.OwnerID != "u-1" || *p.OwnerName != "Name u-1" {
		t.Fatalf("expected first owner u-1, got %v", p.OwnerID)
	}

	audit, _ := f.store.ListAuditRecords(ctx, "acme", "example.edu_verity")
	if len(audit) != 1 || audit[0].By != "caller-1" || audit[0].Type != domain.AuditTypeImport {
		t.Fatalf("unexpected audit %+v", audit)
	}
	contacts, _ := f.store.ListContacts(ctx, "acme", "example.edu_verity")
	signals, _ := f.store.ListSignals(ctx, "acme", "example.edu_verity")
	if len(contacts) != 1 || len(signals) != 1 {
		t.Fatalf("expected one contact and one signal, got %d/%d", len(contacts), len(signals))
	}
	if f.store.AuditCount() != 2 {
		t.Fatalf("expected one audit record per input record, got %d", f.store.AuditCount())
	}

	if _, ok := f.bus.last().(events.ProspectsImported); !ok {
		t.Fatalf("expected ProspectsImported event, got %T", f.bus.last())
	}
}

func TestImportBatchIsIdempotentOnIdentity(t *testing.T) {
	f := newFixture(t, sdrPool("acme", "u-1"), 100)
	ctx := context.Background()

	first := record("example.edu", "verity")
	first["whyNow"] = "budget"
	first["score"] = 40
	if _, err := f.svc.ImportBatch(ctx, "caller", []map[string]any{first}); err != nil {
		t.Fatalf("first import: %v", err)
	}

	second := record(" EXAMPLE.edu", "VERITY")
	second["score"] = 65
	if _, err := f.svc.ImportBatch(ctx, "caller", []map[string]any{second}); err != nil {
		t.Fatalf("second import: %v", err)
	}

	if f.store.CountProspects() != 1 {
		t.Fatalf("expected one stored prospect, got %d", f.store.CountProspects())
	}
	p, _ := f.store.GetProspect(ctx, "acme", "example.edu_verity")
	if p.Score != 65 {
		t.Fatalf("expected latest score 65, got %d", p.Score)
	}
	if p.WhyNow != "budget" {
		t.Fatalf("expected omitted whyNow to survive, got %q", p.WhyNow)
	}
	audit, _ := f.store.ListAuditRecords(ctx, "acme", "example.edu_verity")
	if len(audit) != 2 {
		t.Fatalf("expected an audit record per import, got %d", len(audit))
	}
}

func TestImportBatchValidationFailureWritesNothing(t *testing.T) {
	f := newFixture(t, sdrPool("acme", "u-1"), 100)
	ctx := context.Background()

	records := []map[string]any{record("a.edu", "verity"), record("b.edu", "unknown"), record("c.edu", "lumina")}
	_, err := f.svc.ImportBatch(ctx, "caller", records)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	var domainErr *apperr.Error
	if !errors.As(err, &domainErr) {
		t.Fatalf("expected *apperr.Error")
	}
	details, ok := domainErr.Details.(validation.Errors)
	if !ok || len(details) != 1 || details[0].Index != 1 || details[0].Field != "product" {
		t.Fatalf("unexpected details %+v", domainErr.Details)
	}

	if f.store.ApplyCount() != 0 || f.store.CountProspects() != 0 {
		t.Fatalf("expected zero writes")
	}
	if _, ok := f.store.Cursor("acme__east"); ok {
		t.Fatalf("expected no rotation cursor to be advanced")
	}
	rejected, ok := f.bus.last().(events.ImportRejected)
	if !ok || rejected.Reason != events.RejectValidation {
		t.Fatalf("expected validation rejection event, got %+v", f.bus.last())
	}
}

func TestImportBatchCommitFailureIsAtomic(t *testing.T) {
	f := newFixture(t, sdrPool("acme", "u-1"), 100)
	ctx := context.Background()
	f.store.FailNextApply()

	records := []map[string]any{record("a.edu", "verity"), record("b.edu", "verity"), record("c.edu", "verity")}
	_, err := f.svc.ImportBatch(ctx, "caller", records)
	if !apperr.Is(err, apperr.KindInternal) {
		t.Fatalf("expected internal commit error, got %v", err)
	}
	if !errors.Is(err, repository.ErrInjected) {
		t.Fatalf("expected storage error in chain, got %v", err)
	}
	if f.store.CountProspects() != 0 || f.store.AuditCount() != 0 {
		t.Fatalf("expected nothing observable after a failed commit")
	}
}

func TestImportBatchRequiresCaller(t *testing.T) {
	f := newFixture(t, sdrPool("acme", "u-1"), 100)

	_, err := f.svc.ImportBatch(context.Background(), "  ", []map[string]any{record("a.edu", "verity")})
	if !apperr.Is(err, apperr.KindUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if f.store.ApplyCount() != 0 {
		t.Fatalf("expected storage to be untouched")
	}
}

func TestImportBatchKeepsSuppliedOwner(t *testing.T) {
	f := newFixture(t, sdrPool("acme", "u-1"), 100)
	ctx := context.Background()

	rec := record("a.edu", "verity")
	rec["ownerId"] = "manual"
	result, err := f.svc.ImportBatch(ctx, "caller", []map[string]any{rec})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Supplied != 1 || result.Assigned != 0 {
		t.Fatalf("unexpected result %+v", result)
	}
	if _, ok := f.store.Cursor("acme__east"); ok {
		t.Fatalf("supplied owner must not advance the cursor")
	}
	p, _ := f.store.GetProspect(ctx, "acme", "a.edu_verity")
	if p.OwnerID == nil || *p.OwnerID != "manual" {
		t.Fatalf("expected supplied owner, got %v", p.OwnerID)
	}
}

func TestImportBatchWithoutEligibleOwnerLeavesUnassigned(t *testing.T) {
	f := newFixture(t, sdrPool("globex", "u-1"), 100)

	result, err := f.svc.ImportBatch(context.Background(), "caller", []map[string]any{record("a.edu", "verity")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Unassigned != 1 || result.Count != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
	p, _ := f.store.GetProspect(context.Background(), "acme", "a.edu_verity")
	if p.OwnerID != nil {
		t.Fatalf("expected no owner, got %v", *p.OwnerID)
	}
}

func TestImportBatchRoundRobinAcrossCalls(t *testing.T) {
	f := newFixture(t, sdrPool("acme", "u-1", "u-2", "u-3"), 100)
	ctx := context.Background()

	want := []string{"u-1", "u-2", "u-3", "u-1"}
	for i, domainName := range []string{"a.edu", "b.edu", "c.edu", "d.edu"} {
		if _, err := f.svc.ImportBatch(ctx, "caller", []map[string]any{record(domainName, "verity")}); err != nil {
			t.Fatalf("import %d: %v", i, err)
		}
		p, _ := f.store.GetProspect(ctx, "acme", domainName+"_verity")
		if *p.OwnerID != want[i] {
			t.Fatalf("import %d: expected %s, got %s", i, want[i], *p.OwnerID)
		}
	}
}

func TestImportBatchRejectsOversizeBeforeAssignment(t *testing.T) {
	f := newFixture(t, sdrPool("acme", "u-1"), 3)

	_, err := f.svc.ImportBatch(context.Background(), "caller", []map[string]any{record("a.edu", "verity"), record("b.edu", "verity")})
	if !apperr.Is(err, apperr.KindBadRequest) {
		t.Fatalf("expected bad request, got %v", err)
	}
	if _, ok := f.store.Cursor("acme__east"); ok {
		t.Fatalf("oversize import must not advance the cursor")
	}
	if f.store.ApplyCount() != 0 {
		t.Fatalf("expected no commit")
	}
}

func TestImportPayloadParsesAndArchives(t *testing.T) {
	f := newFixture(t, sdrPool("acme", "u-1"), 100)

	payload := []byte("tenantId,institutionName,domain,product\nacme,Example U,example.edu,Panorama\n")
	result, err := f.svc.ImportPayload(context.Background(), "caller", payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Count != 1 {
		t.Fatalf("expected 1 record, got %d", result.Count)
	}
	if len(f.archive.objects) != 1 || f.archive.objects[0].ContentType != "text/csv" {
		t.Fatalf("expected csv payload to be archived, got %+v", f.archive.objects)
	}
	if result.ArchiveKey == "" {
		t.Fatalf("expected archive key")
	}
}

func TestImportPayloadArchiveFailureDoesNotFailImport(t *testing.T) {
	f := newFixture(t, sdrPool("acme", "u-1"), 100)
	f.archive.err = errors.New("bucket offline")

	result, err := f.svc.ImportPayload(context.Background(), "caller", []byte(`{"tenantId":"acme","institutionName":"Ex","domain":"ex.edu","product":"verity"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Count != 1 || result.ArchiveKey != "" {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestImportPayloadRejectsGarbage(t *testing.T) {
	f := newFixture(t, sdrPool("acme", "u-1"), 100)

	_, err := f.svc.ImportPayload(context.Background(), "caller", []byte(`[1, 2]`))
	if !apperr.Is(err, apperr.KindBadRequest) {
		t.Fatalf("expected bad request, got %v", err)
	}
	if len(f.archive.objects) != 0 {
		t.Fatalf("rejected payloads are not archived")
	}
}
