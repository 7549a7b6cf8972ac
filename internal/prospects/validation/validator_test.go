package validation

import (
	"errors"
	"testing"
	"time"

	"prospect_backend/internal/prospects/domain"
	"prospect_backend/platform/phone"
	"prospect_backend/platform/validator"
)

func newTestValidator() *Validator {
	return New(validator.New(), phone.NewNormalizer("US"))
}

func baseRecord() map[string]any {
	return map[string]any{
		"tenantId":        "tenant-a",
		"institutionName": "Example University",
		"domain":          " Example.EDU ",
		"product":         "verity",
	}
}

func fieldErrors(t *testing.T, err error) Errors {
	t.Helper()
	var errs Errors
	if !errors.As(err, &errs) {
		t.Fatalf("expected validation.Errors, got %T (%v)", err, err)
	}
	return errs
}

func TestValidateMinimalRecordAppliesNoDefaults(t *testing.T) {
	rec, err := newTestValidator().Validate(0, baseRecord())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Prospect.Domain != "example.edu" {
		t.Fatalf("expected trimmed lower-case domain, got %q", rec.Prospect.Domain)
	}
	if rec.Prospect.Product != domain.ProductVerity {
		t.Fatalf("expected verity, got %q", rec.Prospect.Product)
	}
	if rec.Fields.Has(domain.FieldScore) || rec.Fields.Has(domain.FieldStage) || rec.Fields.Has(domain.FieldRegion) {
		t.Fatalf("expected absent optional fields to stay out of the mask")
	}
	if rec.HasOwner() {
		t.Fatalf("expected no owner")
	}
}

func TestValidateRejectsUnknownProduct(t *testing.T) {
	raw := baseRecord()
	raw["product"] = "unknown"

	_, err := newTestValidator().Validate(3, raw)
	errs := fieldErrors(t, err)
	if len(errs) != 1 {
		t.Fatalf("expected 1 error, got %d: %v", len(errs), errs)
	}
	if errs[0].Index != 3 || errs[0].Field != "product" {
		t.Fatalf("expected product error on record 3, got %+v", errs[0])
	}
}

func TestValidateRequiredFields(t *testing.T) {
	_, err := newTestValidator().Validate(0, map[string]any{"institutionName": "X"})
	errs := fieldErrors(t, err)

	got := map[string]string{}
	for _, fe := range errs {
		got[fe.Field] = fe.Reason
	}
	for _, field := range []string{"tenantId", "domain", "product"} {
		if got[field] != "is required" {
			t.Fatalf("expected %s to be required, got %q", field, got[field])
		}
	}
	if got["institutionName"] != "must be at least 2 characters" {
		t.Fatalf("expected institutionName length error, got %q", got["institutionName"])
	}
}

func TestValidateWrongPrimitiveType(t *testing.T) {
	raw := baseRecord()
	raw["tenantId"] = 42.0
	raw["score"] = "high"

	_, err := newTestValidator().Validate(0, raw)
	errs := fieldErrors(t, err)
	if len(errs) != 2 {
		t.Fatalf("expected 2 errors, got %v", errs)
	}
}

func TestValidateScoreRange(t *testing.T) {
	for _, score := range []any{101.0, -1.0, "150"} {
		raw := baseRecord()
		raw["score"] = score
		_, err := newTestValidator().Validate(0, raw)
		errs := fieldErrors(t, err)
		if errs[0].Field != "score" || errs[0].Reason != "must be between 0 and 100" {
			t.Fatalf("score %v: unexpected error %+v", score, errs[0])
		}
	}
}

func TestValidateCoercesOptionalFields(t *testing.T) {
	raw := baseRecord()
	raw["score"] = "75"
	raw["stage"] = "hold"
	raw["wedges"] = "LMS migration | accreditation; "
	raw["currentTools"] = []any{"Canvas", "<b>Zoom</b>"}
	raw["lastContactedAt"] = "2026-02-01"
	raw["nextStepDueAt"] = "2026-02-10T09:30:00+01:00"
	raw["ownerId"] = "owner-7"
	raw["ownerName"] = "Sam"
	raw["region"] = "   "

	rec, err := newTestValidator().Validate(0, raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p := rec.Prospect
	if p.Score != 75 || p.Stage != domain.StageHold {
		t.Fatalf("unexpected score/stage %d/%s", p.Score, p.Stage)
	}
	if len(p.Wedges) != 2 || p.Wedges[1] != "accreditation" {
		t.Fatalf("unexpected wedges %v", p.Wedges)
	}
	if p.CurrentTools[1] != "Zoom" {
		t.Fatalf("expected html stripped from tools, got %v", p.CurrentTools)
	}
	wantContact := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	if p.LastContactedAt == nil || !p.LastContactedAt.Equal(wantContact) {
		t.Fatalf("unexpected lastContactedAt %v", p.LastContactedAt)
	}
	if p.NextStepDueAt == nil || p.NextStepDueAt.Hour() != 8 {
		t.Fatalf("expected nextStepDueAt normalized to UTC, got %v", p.NextStepDueAt)
	}
	if !rec.HasOwner() || *p.OwnerID != "owner-7" || *p.OwnerName != "Sam" {
		t.Fatalf("expected supplied owner to be kept")
	}
	if rec.Fields.Has(domain.FieldRegion) {
		t.Fatalf("blank region must count as absent")
	}
}

func TestValidateChildren(t *testing.T) {
	raw := baseRecord()
	raw["contacts"] = []any{
		map[string]any{"name": "Dana", "email": "Dana@Example.EDU", "phone": "(201) 555-0123"},
	}
	raw["signals"] = []any{
		map[string]any{"type": "rfp", "title": "RFP published", "date": "2026-01-15"},
	}

	rec, err := newTestValidator().Validate(0, raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rec.Contacts) != 1 || rec.Contacts[0].Email != "dana@example.edu" {
		t.Fatalf("unexpected contacts %+v", rec.Contacts)
	}
	if rec.Contacts[0].Phone != "+12015550123" {
		t.Fatalf("expected E.164 phone, got %q", rec.Contacts[0].Phone)
	}
	if len(rec.Signals) != 1 || rec.Signals[0].Date == nil {
		t.Fatalf("unexpected signals %+v", rec.Signals)
	}
}

func TestValidateChildFieldPaths(t *testing.T) {
	raw := baseRecord()
	raw["contacts"] = []any{map[string]any{"name": "Ok"}, map[string]any{"title": "CIO"}}
	raw["signals"] = []any{"not an object"}

	_, err := newTestValidator().Validate(1, raw)
	errs := fieldErrors(t, err)
	if errs[0].Field != "signals[0]" {
		t.Fatalf("expected signals[0] type error first, got %+v", errs)
	}

	delete(raw, "signals")
	_, err = newTestValidator().Validate(1, raw)
	errs = fieldErrors(t, err)
	if errs[0].Field != "contacts[1].name" || errs[0].Reason != "is required" {
		t.Fatalf("expected contacts[1].name to be required, got %+v", errs[0])
	}
}
