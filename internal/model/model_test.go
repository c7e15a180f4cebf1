package model

import (
	"errors"
	"io/fs"
	"strings"
	"testing"
)

func TestNewMappingRecord(t *testing.T) {
	rec, err := NewMappingRecord("  «Contact_Name»  ", "{{Contact.Name}}", "  Direct mapping ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.CongaField != "«Contact_Name»" || rec.Notes != "Direct mapping" {
		t.Errorf("fields should be trimmed: %+v", rec)
	}

	if _, err := NewMappingRecord("«Field»", "   ", "note"); err == nil {
		t.Error("expected error for blank box_field")
	}
	if _, err := NewMappingRecord("", "{{Contact.Name}}", ""); err == nil {
		t.Error("expected error for blank conga_field")
	}

	rec, err = NewMappingRecord("«Field»", "{{Contact.Field}}", "")
	if err != nil {
		t.Fatalf("empty notes should be allowed: %v", err)
	}
	if rec.Notes != "" {
		t.Errorf("unexpected notes: %q", rec.Notes)
	}
}

func TestParseErrorUnwrap(t *testing.T) {
	err := &ParseError{Stage: "template", Err: fs.ErrNotExist}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Error("ParseError should unwrap to its cause")
	}
	if !strings.Contains(err.Error(), "template") {
		t.Errorf("message should name the stage: %q", err.Error())
	}
}

func TestTransportErrorMessage(t *testing.T) {
	withStatus := &TransportError{Op: "text_gen", StatusCode: 429, Body: "rate limited"}
	if !strings.Contains(withStatus.Error(), "429") || !strings.Contains(withStatus.Error(), "rate limited") {
		t.Errorf("status and body should surface in the message: %q", withStatus.Error())
	}

	cause := errors.New("connection refused")
	withErr := &TransportError{Op: "upload", Err: cause}
	if !errors.Is(withErr, cause) {
		t.Error("TransportError should unwrap to its cause")
	}
	if !strings.Contains(withErr.Error(), "connection refused") {
		t.Errorf("cause should surface in the message: %q", withErr.Error())
	}
}
