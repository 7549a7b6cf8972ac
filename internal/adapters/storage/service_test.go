package storage

import (
	"testing"
	"time"
)

func TestObjectKeyUsesUTCDay(t *testing.T) {
	at := time.Date(2026, 3, 1, 23, 30, 0, 0, time.FixedZone("PST", -8*3600))
	key := ObjectKey(ArchiveObject{ID: "abc", Extension: "csv", At: at})
	if key != "imports/2026/03/02/abc.csv" {
		t.Fatalf("unexpected key %q", key)
	}
}

func TestValidateObject(t *testing.T) {
	ok := ArchiveObject{ID: "abc", ContentType: "application/json", Data: []byte("{}")}
	if err := ValidateObject(ok); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	bad := ok
	bad.ContentType = "image/png"
	if err := ValidateObject(bad); err == nil {
		t.Fatalf("expected content type error")
	}

	empty := ok
	empty.Data = nil
	if err := ValidateObject(empty); err == nil {
		t.Fatalf("expected empty payload error")
	}
}
