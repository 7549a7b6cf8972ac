package domain

import "testing"

func TestMergeOnlyTouchesMaskedFields(t *testing.T) {
	owner := "u-1"
	stored := Prospect{
		InstitutionName: "Old Name",
		Region:          "east",
		Score:           40,
		OwnerID:         &owner,
		WhyNow:          "budget cycle",
	}
	update := Prospect{InstitutionName: "New Name", Region: "west", Score: 90}

	mask := FieldMask(0).With(FieldInstitutionName).With(FieldScore)
	stored.Merge(update, mask)

	if stored.InstitutionName != "New Name" || stored.Score != 90 {
		t.Fatalf("expected masked fields to change, got %+v", stored)
	}
	if stored.Region != "east" {
		t.Fatalf("expected region to be preserved, got %q", stored.Region)
	}
	if stored.OwnerID == nil || *stored.OwnerID != "u-1" {
		t.Fatalf("expected owner to be preserved")
	}
	if stored.WhyNow != "budget cycle" {
		t.Fatalf("expected whyNow to be preserved, got %q", stored.WhyNow)
	}
}

func TestApplyDefaults(t *testing.T) {
	var p Prospect
	p.ApplyDefaults()
	if p.Stage != StageResearch || p.Status != StatusNew || p.Priority != PriorityB || p.Score != 0 {
		t.Fatalf("unexpected defaults: %+v", p)
	}
	if p.Wedges == nil || p.CurrentTools == nil {
		t.Fatalf("expected empty, non-nil list fields")
	}
}

func TestEnumerationsAreClosed(t *testing.T) {
	if Product("unknown").Valid() {
		t.Fatalf("expected unknown product to be invalid")
	}
	if !ProductPanorama.Valid() || !StageHold.Valid() || !StatusReplied.Valid() || !PriorityC.Valid() {
		t.Fatalf("expected known values to be valid")
	}
	if Stage("p1").Valid() {
		t.Fatalf("stage comparison must be exact")
	}
}
