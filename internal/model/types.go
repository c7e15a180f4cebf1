package model

import (
	"errors"
	"strings"
)

// MergeField is a single occurrence of a Conga merge field in a template.
type MergeField struct {
	Original string `json:"original"` // full token including guillemets
	Name     string `json:"name"`     // token interior
	Context  string `json:"context"`  // surrounding text window, first occurrence
}

// QueryInfo is the parsed structure of a Conga SOQL query.
// MainObject and Conditions are empty strings when the clause is absent.
type QueryInfo struct {
	MainObject    string              `json:"main_object"`
	Fields        []string            `json:"fields"`
	Conditions    string              `json:"conditions"`
	Relationships map[string][]string `json:"relationships"`
}

// FieldInfo describes a single schema field.
type FieldInfo struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

// SchemaObject holds the fields and relationship edges of one schema object.
type SchemaObject struct {
	Fields        map[string]FieldInfo `json:"fields"`
	Relationships map[string]string    `json:"relationships"` // relationship name -> related object name
}

// NameCollision records that a second schema branch claimed an already-assigned
// object name. The first branch keeps the name; the collision is surfaced here
// instead of being silently merged over.
type NameCollision struct {
	Name      string `json:"name"`
	FirstPath string `json:"first_path"`
	Path      string `json:"path"`
}

// SchemaIndex is the object index built by one traversal of a JSON schema.
type SchemaIndex struct {
	Objects    map[string]*SchemaObject `json:"objects"`
	Raw        any                      `json:"-"`
	Collisions []NameCollision          `json:"collisions,omitempty"`
}

// FieldMapping is the result of resolving a dotted field path against a SchemaIndex.
type FieldMapping struct {
	Object string    `json:"object"`
	Field  string    `json:"field"`
	Path   string    `json:"path"`
	Info   FieldInfo `json:"info"`
}

// MappingRecord is one Conga-to-Box field correspondence.
type MappingRecord struct {
	CongaField string `json:"conga_field"`
	BoxField   string `json:"box_field"`
	Notes      string `json:"notes"`
}

// NewMappingRecord builds a MappingRecord, trimming whitespace on every field.
// Both the source and target fields are required; notes may be empty.
func NewMappingRecord(congaField, boxField, notes string) (MappingRecord, error) {
	rec := MappingRecord{
		CongaField: strings.TrimSpace(congaField),
		BoxField:   strings.TrimSpace(boxField),
		Notes:      strings.TrimSpace(notes),
	}
	if rec.CongaField == "" {
		return MappingRecord{}, errors.New("mapping record missing conga_field")
	}
	if rec.BoxField == "" {
		return MappingRecord{}, errors.New("mapping record missing box_field")
	}
	return rec, nil
}

// ErrorAnalysis is the sectioned result of the secondary error-analysis prompt.
// Missing sections are empty strings, never an error.
type ErrorAnalysis struct {
	Cause                 string `json:"cause"`
	Solutions             string `json:"solutions"`
	AdditionalInformation string `json:"additional_information"`
}

// ConversionRun is one recorded conversion, as persisted in the run store.
type ConversionRun struct {
	ID           int64  `json:"id"`
	StartedAt    string `json:"started_at"`
	FinishedAt   string `json:"finished_at"`
	Status       string `json:"status"` // "running", "complete", "failed"
	TemplateName string `json:"template_name"`
	QueryName    string `json:"query_name"`
	SchemaName   string `json:"schema_name"`
	Model        string `json:"model"`
	CSVPath      string `json:"csv_path"`
	ArchivePath  string `json:"archive_path"`
}
