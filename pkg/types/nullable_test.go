package types

import (
	"encoding/json"
	"testing"
)

func TestNullableStringUnmarshal(t *testing.T) {
	type payload struct {
		Notes NullableString `json:"notes"`
	}

	var got payload
	if err := json.Unmarshal([]byte(`{"notes": "  leave at door "}`), &got); err != nil {
		t.Fatalf("unmarshal value: %v", err)
	}
	if !got.Notes.Valid || got.Notes.Value == nil {
		t.Fatalf("expected valid value, got %+v", got.Notes)
	}
	if n := got.Notes.Normalized(); n == nil || *n != "leave at door" {
		t.Fatalf("unexpected normalized value %v", n)
	}

	got = payload{}
	if err := json.Unmarshal([]byte(`{"notes": null}`), &got); err != nil {
		t.Fatalf("unmarshal null: %v", err)
	}
	if !got.Notes.Valid || got.Notes.Value != nil {
		t.Fatalf("expected null to be valid but nil, got %+v", got.Notes)
	}

	got = payload{}
	if err := json.Unmarshal([]byte(`{}`), &got); err != nil {
		t.Fatalf("unmarshal missing: %v", err)
	}
	if got.Notes.Valid {
		t.Fatalf("expected invalid flag for missing field, got %+v", got.Notes)
	}

	got = payload{}
	if err := json.Unmarshal([]byte(`{"notes": "   "}`), &got); err != nil {
		t.Fatalf("unmarshal blank: %v", err)
	}
	if !got.Notes.Valid || got.Notes.Normalized() != nil {
		t.Fatalf("expected blank to normalize to nil, got %+v", got.Notes)
	}
}
