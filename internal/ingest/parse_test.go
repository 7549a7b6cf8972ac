package ingest

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseSingleObject(t *testing.T) {
	records, format, err := Parse([]byte(` {"tenantId":"acme","score":75} `))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if format != FormatJSONObject || len(records) != 1 {
		t.Fatalf("expected one object record, got %s/%d", format, len(records))
	}
	if _, ok := records[0]["score"].(json.Number); !ok {
		t.Fatalf("expected json.Number score, got %T", records[0]["score"])
	}
}

func TestParseArray(t *testing.T) {
	records, format, err := Parse([]byte(`[{"tenantId":"a"},{"tenantId":"b","contacts":[{"name":"Dana"}]}]`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if format != FormatJSONArray || len(records) != 2 {
		t.Fatalf("expected two array records, got %s/%d", format, len(records))
	}
	if _, ok := records[1]["contacts"].([]any); !ok {
		t.Fatalf("expected nested contacts to survive")
	}
}

func TestParseArrayRejectsScalars(t *testing.T) {
	if _, _, err := Parse([]byte(`[{"a":1}, 2]`)); err == nil {
		t.Fatalf("expected error for scalar element")
	}
}

func TestParseRejectsTrailingData(t *testing.T) {
	if _, _, err := Parse([]byte(`{"a":1} {"b":2}`)); err == nil {
		t.Fatalf("expected error for trailing data")
	}
}

func TestParseEmpty(t *testing.T) {
	if _, _, err := Parse([]byte("  \n")); !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("expected ErrEmptyInput, got %v", err)
	}
}

func TestParseDelimitedWithChildren(t *testing.T) {
	input := "\xEF\xBB\xBFtenantId;institutionName;domain;product;wedges;contact.name;contact.email;signal.type;signal.title\n" +
		"acme;Example U;example.edu;Verity;\"LMS | grants\";Dana;dana@example.edu;;\n" +
		";;;;;;;;\n" +
		"acme;Other U;other.edu;lumina;;;;rfp;RFP out\n"

	records, format, err := Parse([]byte(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if format != FormatDelimited {
		t.Fatalf("expected delimited, got %s", format)
	}
	if len(records) != 2 {
		t.Fatalf("expected blank row to be skipped, got %d records", len(records))
	}

	first := records[0]
	if first["tenantId"] != "acme" || first["wedges"] != "LMS | grants" {
		t.Fatalf("unexpected first record %v", first)
	}
	contacts, ok := first["contacts"].([]any)
	if !ok || len(contacts) != 1 {
		t.Fatalf("expected one contact, got %v", first["contacts"])
	}
	if contacts[0].(map[string]any)["email"] != "dana@example.edu" {
		t.Fatalf("unexpected contact %v", contacts[0])
	}
	if _, ok := first["signals"]; ok {
		t.Fatalf("expected no signal for blank signal cells")
	}

	second := records[1]
	if _, ok := second["contacts"]; ok {
		t.Fatalf("expected no contact on second row")
	}
	if _, ok := second["signals"].([]any); !ok {
		t.Fatalf("expected signal on second row")
	}
}

func TestDetectDelimiter(t *testing.T) {
	cases := map[string]rune{
		"a,b,c":   ',',
		"a;b;c":   ';',
		"a\tb\tc": '\t',
		"single":  ',',
		"a;b,c;d": ';',
	}
	for line, want := range cases {
		if got := DetectDelimiter(line); got != want {
			t.Fatalf("%q: expected %q, got %q", line, want, got)
		}
	}
}
