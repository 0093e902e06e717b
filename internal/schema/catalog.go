// internal/schema/catalog.go
// Package schema provides JSON schema validation for the persisted catalog
// document. A remote mirror is an external system; its content is validated
// before being trusted as a matching corpus.
package schema

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/sarabot/sara-catalog-go/internal/model"
)

// catalogSchema describes the persisted catalog shape: a sequence of objects
// with a required title, an optional descriptive filename, and the two
// reference fields. The exactly-one-reference invariant is enforced by
// record validation, not here; the schema only guards structure and types.
const catalogSchema = `{
	"type": "array",
	"items": {
		"type": "object",
		"required": ["title"],
		"properties": {
			"title":    {"type": "string", "minLength": 1},
			"filename": {"type": "string"},
			"msg_id":   {"type": "integer", "minimum": 0},
			"file_url": {"type": "string"}
		},
		"additionalProperties": false
	}
}`

// Validator validates catalog documents against the catalog JSON schema.
type Validator struct {
	schema *gojsonschema.Schema // Compiled catalog schema
}

// NewValidator creates a catalog document validator.
// Returns:
//   - *Validator: initialized validator instance
//   - error: any error that occurred compiling the schema
func NewValidator() (*Validator, error) {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(catalogSchema))
	if err != nil {
		return nil, fmt.Errorf("failed to compile catalog schema: %w", err)
	}
	return &Validator{schema: s}, nil
}

// ValidateCatalog checks a catalog against the schema. It returns a single
// error summarizing every violated constraint, or nil for a valid document.
func (v *Validator) ValidateCatalog(catalog model.Catalog) error {
	b, err := json.Marshal(catalog)
	if err != nil {
		return fmt.Errorf("marshal catalog for validation: %w", err)
	}
	return v.ValidateDocument(b)
}

// ValidateDocument checks a raw JSON document against the catalog schema.
func (v *Validator) ValidateDocument(doc []byte) error {
	result, err := v.schema.Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return fmt.Errorf("catalog document is not valid JSON: %w", err)
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		msgs = append(msgs, desc.String())
	}
	return fmt.Errorf("catalog document failed validation: %s", strings.Join(msgs, "; "))
}
