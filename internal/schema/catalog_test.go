// internal/schema/catalog_test.go
// Package schema provides unit tests for catalog document validation.
package schema

import (
	"testing"

	"github.com/sarabot/sara-catalog-go/internal/model"
)

// TestValidateCatalogAccepts verifies a well-formed catalog passes, empty
// catalogs included.
func TestValidateCatalogAccepts(t *testing.T) {
	v, err := NewValidator()
	if err != nil {
		t.Fatalf("NewValidator failed: %v", err)
	}

	if err := v.ValidateCatalog(model.Catalog{}); err != nil {
		t.Errorf("empty catalog rejected: %v", err)
	}
	if err := v.ValidateCatalog(model.Catalog{
		{Title: "Inception", MsgID: 101},
		{Title: "Interstellar", Filename: "interstellar.mkv", FileURL: "https://example.com/i"},
	}); err != nil {
		t.Errorf("valid catalog rejected: %v", err)
	}
}

// TestValidateDocumentRejects verifies structurally broken documents are
// rejected: wrong top-level type, missing title, unknown fields, and
// non-integer references.
func TestValidateDocumentRejects(t *testing.T) {
	v, err := NewValidator()
	if err != nil {
		t.Fatalf("NewValidator failed: %v", err)
	}

	cases := []struct {
		name string
		doc  string
	}{
		{"not an array", `{"title": "Inception"}`},
		{"missing title", `[{"msg_id": 1}]`},
		{"empty title", `[{"title": "", "msg_id": 1}]`},
		{"unknown field", `[{"title": "X", "msg_id": 1, "rating": 5}]`},
		{"string msg_id", `[{"title": "X", "msg_id": "101"}]`},
		{"negative msg_id", `[{"title": "X", "msg_id": -1}]`},
		{"malformed json", `[{"title": `},
	}

	for _, tc := range cases {
		if err := v.ValidateDocument([]byte(tc.doc)); err == nil {
			t.Errorf("%s: expected validation failure", tc.name)
		}
	}
}
