package model

import "fmt"

// ParseError means a source artifact (template, query, or schema) was
// malformed or unreadable. Stage identifies which parser failed.
type ParseError struct {
	Stage string // "template", "query", "schema"
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing %s: %v", e.Stage, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// MappingParseError means the AI response contained no recognizable mapping block.
type MappingParseError struct {
	Msg string
}

func (e *MappingParseError) Error() string { return e.Msg }

// TransportError means a call to the Box API failed. StatusCode and Body are
// populated when an HTTP response was received.
type TransportError struct {
	Op         string // "upload", "text_gen", "validate"
	StatusCode int
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("box %s: status %d: %s", e.Op, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("box %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// WriteError means a local file write failed.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("writing %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }
