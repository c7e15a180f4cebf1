// Package pipeline runs a full conversion: parse the three input artifacts,
// upload them, request the AI mapping, normalize the response, and write the
// mapping CSV plus the result archive.
//
// Stages are strictly sequential and each run is single-shot: one generation
// call, no retry or backoff. A failing stage aborts the run, but everything
// produced by earlier stages is preserved in the returned Result for
// diagnostics.
package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/fairsailau/congabox2/internal/archive"
	"github.com/fairsailau/congabox2/internal/boxapi"
	"github.com/fairsailau/congabox2/internal/config"
	"github.com/fairsailau/congabox2/internal/docx"
	"github.com/fairsailau/congabox2/internal/errlog"
	"github.com/fairsailau/congabox2/internal/mapping"
	"github.com/fairsailau/congabox2/internal/model"
	"github.com/fairsailau/congabox2/internal/schema"
	"github.com/fairsailau/congabox2/internal/soql"
	"github.com/fairsailau/congabox2/internal/store"
)

// BoxService is the external capability the pipeline depends on.
type BoxService interface {
	UploadFile(ctx context.Context, r io.Reader, name string) (string, error)
	GenerateText(ctx context.Context, prompt string, fileIDs []string) (string, error)
}

// ConversionContext owns the collaborators of a single conversion run. It is
// created per run and never shared across concurrent runs.
type ConversionContext struct {
	Box    BoxService
	Config *config.Config
	Errors *errlog.Log
	Store  *store.Store // optional run-history persistence
}

// Inputs names the three source artifacts and the output directory.
// QueryText is used when QueryPath is empty.
type Inputs struct {
	TemplatePath string
	QueryPath    string
	QueryText    string
	SchemaPath   string
	OutDir       string
}

// Result carries every artifact a run produced. On failure the fields filled
// in by completed stages remain populated.
type Result struct {
	RunID       int64
	FullText    string
	MergeFields []model.MergeField
	Query       *model.QueryInfo
	Schema      *model.SchemaIndex
	FileIDs     []string
	RawResponse string
	Mappings    []model.MappingRecord
	CSVPath     string
	ArchivePath string
}

// Output file names, fixed for downstream consumers.
const (
	MappingFileName = "conga_to_box_mapping.csv"
	ArchiveFileName = "conga_to_box_conversion.zip"
)

// Run executes the conversion pipeline. The returned Result is never nil.
func Run(ctx context.Context, cc *ConversionContext, in Inputs) (*Result, error) {
	cfg := cc.Config
	if cfg == nil {
		cfg = config.Defaults()
	}
	log := cc.Errors
	if log == nil {
		log = errlog.New(nil)
	}

	res := &Result{}

	fail := func(errType string, err error, context map[string]any) error {
		entry := log.Record(errType, err.Error(), context)
		if cc.Store != nil && res.RunID != 0 {
			cc.Store.RecordError(res.RunID, entry)
			cc.Store.FinishRun(res.RunID, "failed", res.CSVPath, res.ArchivePath)
		}
		return err
	}

	// Stage 1: parse the template.
	templateBytes, err := os.ReadFile(in.TemplatePath)
	if err != nil {
		perr := &model.ParseError{Stage: "template", Err: err}
		return res, fail("parsing", perr, map[string]any{"template": in.TemplatePath})
	}
	parser := docx.NewParser()
	if cfg.Convert.ContextChars > 0 {
		parser.ContextChars = cfg.Convert.ContextChars
	}
	res.FullText, res.MergeFields, err = parser.Parse(templateBytes)
	if err != nil {
		return res, fail("parsing", err, map[string]any{"template": in.TemplatePath})
	}

	// Stage 2: parse the query.
	queryText := in.QueryText
	queryName := "inline"
	if in.QueryPath != "" {
		qb, err := os.ReadFile(in.QueryPath)
		if err != nil {
			perr := &model.ParseError{Stage: "query", Err: err}
			return res, fail("parsing", perr, map[string]any{"query": in.QueryPath})
		}
		queryText = string(qb)
		queryName = filepath.Base(in.QueryPath)
	}
	res.Query, err = soql.Parse(queryText)
	if err != nil {
		return res, fail("parsing", err, map[string]any{"query": queryName})
	}

	// Stage 3: parse the schema.
	schemaBytes, err := os.ReadFile(in.SchemaPath)
	if err != nil {
		perr := &model.ParseError{Stage: "schema", Err: err}
		return res, fail("parsing", perr, map[string]any{"schema": in.SchemaPath})
	}
	res.Schema, err = schema.Parse(bytes.NewReader(schemaBytes))
	if err != nil {
		return res, fail("parsing", err, map[string]any{"schema": in.SchemaPath})
	}

	if cc.Store != nil {
		res.RunID, err = cc.Store.BeginRun(
			filepath.Base(in.TemplatePath), queryName, filepath.Base(in.SchemaPath), cfg.Box.Model)
		if err != nil {
			return res, fail("output", err, nil)
		}
	}

	// Stage 4: upload the artifacts.
	stamp := time.Now().Format("20060102150405")
	uploads := []struct {
		name string
		data []byte
	}{
		{"conga_template_" + stamp + ".docx", templateBytes},
		{"soql_query_" + stamp + ".txt", []byte(queryText)},
		{"schema_" + stamp + ".json", schemaBytes},
	}
	for _, up := range uploads {
		id, err := cc.Box.UploadFile(ctx, bytes.NewReader(up.data), up.name)
		if err != nil {
			return res, fail("api", err, map[string]any{"file": up.name})
		}
		res.FileIDs = append(res.FileIDs, id)
	}

	// Stage 5: one generation call per run.
	res.RawResponse, err = cc.Box.GenerateText(ctx, boxapi.BuildConversionPrompt(), res.FileIDs)
	if err != nil {
		return res, fail("api", err, map[string]any{"file_ids": res.FileIDs})
	}

	// Stage 6: normalize the response.
	res.Mappings, err = boxapi.ParseMappingResponse(res.RawResponse)
	if err != nil {
		return res, fail("response", err, map[string]any{"response_length": len(res.RawResponse)})
	}

	// Stage 7: write the mapping CSV.
	res.CSVPath = filepath.Join(in.OutDir, MappingFileName)
	if err := mapping.WriteFile(res.CSVPath, res.Mappings); err != nil {
		return res, fail("output", err, map[string]any{"path": res.CSVPath})
	}

	// Stage 8: bundle the archive with the original inputs.
	originals := map[string][]byte{
		"original_template.docx": templateBytes,
		"original_query.txt":     []byte(queryText),
		"original_schema.json":   schemaBytes,
	}
	files := map[string]string{MappingFileName: res.CSVPath}
	for name, data := range originals {
		path := filepath.Join(in.OutDir, name)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return res, fail("output", &model.WriteError{Path: path, Err: err}, nil)
		}
		files[name] = path
	}

	zipPath := filepath.Join(in.OutDir, ArchiveFileName)
	if err := archive.Create(zipPath, files, archive.Readme(time.Now())); err != nil {
		return res, fail("output", err, map[string]any{"path": zipPath})
	}
	res.ArchivePath = zipPath

	if cc.Store != nil {
		if err := cc.Store.WriteMappings(res.RunID, res.Mappings); err != nil {
			return res, fail("output", fmt.Errorf("recording mappings: %w", err), nil)
		}
		if err := cc.Store.FinishRun(res.RunID, "complete", res.CSVPath, res.ArchivePath); err != nil {
			return res, fail("output", fmt.Errorf("recording run: %w", err), nil)
		}
	}

	return res, nil
}
