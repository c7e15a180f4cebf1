package pipeline

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fairsailau/congabox2/internal/config"
	"github.com/fairsailau/congabox2/internal/errlog"
	"github.com/fairsailau/congabox2/internal/store"
)

type fakeBox struct {
	response  string
	genErr    error
	uploads   []string
	genCalls  int
	genPrompt string
}

func (f *fakeBox) UploadFile(_ context.Context, r io.Reader, name string) (string, error) {
	io.Copy(io.Discard, r)
	f.uploads = append(f.uploads, name)
	return "file-" + name, nil
}

func (f *fakeBox) GenerateText(_ context.Context, prompt string, fileIDs []string) (string, error) {
	f.genCalls++
	f.genPrompt = prompt
	if f.genErr != nil {
		return "", f.genErr
	}
	return f.response, nil
}

func writeTestDocx(t *testing.T, path string) {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	doc := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">` +
		`<w:body>` +
		`<w:p><w:r><w:t>Dear «Contact_Name»,</w:t></w:r></w:p>` +
		`<w:p><w:r><w:t>Your total is «Amount».</w:t></w:r></w:p>` +
		`</w:body></w:document>`
	_, err = f.Write([]byte(doc))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func testInputs(t *testing.T) Inputs {
	t.Helper()
	dir := t.TempDir()

	templatePath := filepath.Join(dir, "template.docx")
	writeTestDocx(t, templatePath)

	queryPath := filepath.Join(dir, "query.txt")
	require.NoError(t, os.WriteFile(queryPath,
		[]byte("SELECT Id, Name, Amount FROM Opportunity WHERE StageName='Closed Won'"), 0o644))

	schemaPath := filepath.Join(dir, "schema.json")
	require.NoError(t, os.WriteFile(schemaPath, []byte(`{
	  "title": "Opportunity",
	  "type": "object",
	  "properties": {
	    "Name": {"type": "string"},
	    "Amount": {"type": "number"}
	  }
	}`), 0o644))

	return Inputs{
		TemplatePath: templatePath,
		QueryPath:    queryPath,
		SchemaPath:   schemaPath,
		OutDir:       filepath.Join(dir, "out"),
	}
}

const fakeResponse = `Here is the requested mapping:

conga_field,box_field,notes
«Contact_Name»,{{Contact.Name}},Direct mapping
«Amount»,{{Opportunity.Amount}},

That covers every merge field.`

func TestRun(t *testing.T) {
	in := testInputs(t)

	s, err := store.New(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	box := &fakeBox{response: fakeResponse}
	cc := &ConversionContext{
		Box:    box,
		Config: config.Defaults(),
		Errors: errlog.New(nil),
		Store:  s,
	}

	res, err := Run(context.Background(), cc, in)
	require.NoError(t, err)
	require.NotNil(t, res)

	// Parsed artifacts.
	require.Len(t, res.MergeFields, 2)
	require.Equal(t, "Opportunity", res.Query.MainObject)
	require.Contains(t, res.Schema.Objects, "Opportunity")

	// One upload per artifact, one generation call.
	require.Len(t, box.uploads, 3)
	require.True(t, strings.HasPrefix(box.uploads[0], "conga_template_"))
	require.True(t, strings.HasPrefix(box.uploads[1], "soql_query_"))
	require.True(t, strings.HasPrefix(box.uploads[2], "schema_"))
	require.Equal(t, 1, box.genCalls)
	require.Contains(t, box.genPrompt, "conga_field,box_field,notes")
	require.Len(t, res.FileIDs, 3)

	// Normalized mappings.
	require.Len(t, res.Mappings, 2)
	require.Equal(t, "«Contact_Name»", res.Mappings[0].CongaField)
	require.Equal(t, "", res.Mappings[1].Notes)

	// Output files.
	require.Equal(t, filepath.Join(in.OutDir, MappingFileName), res.CSVPath)
	_, err = os.Stat(res.CSVPath)
	require.NoError(t, err)

	zr, err := zip.OpenReader(res.ArchivePath)
	require.NoError(t, err)
	defer zr.Close()
	names := map[string]bool{}
	for _, f := range zr.File {
		names[f.Name] = true
	}
	for _, want := range []string{
		MappingFileName, "original_template.docx", "original_query.txt", "original_schema.json", "README.txt",
	} {
		require.True(t, names[want], "archive missing %s", want)
	}

	// Run history.
	require.NotZero(t, res.RunID)
	runs, err := s.ListRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, "complete", runs[0].Status)
	require.Equal(t, 2, s.MappingCount(res.RunID))
	require.Equal(t, 0, s.ErrorCount(res.RunID))
	require.Empty(t, cc.Errors.Entries())
}

func TestRun_InlineQuery(t *testing.T) {
	in := testInputs(t)
	in.QueryPath = ""
	in.QueryText = "SELECT Id FROM Contact"

	cc := &ConversionContext{
		Box:    &fakeBox{response: fakeResponse},
		Config: config.Defaults(),
		Errors: errlog.New(nil),
	}

	res, err := Run(context.Background(), cc, in)
	require.NoError(t, err)
	require.Equal(t, "Contact", res.Query.MainObject)
}

func TestRun_GenerationFailure(t *testing.T) {
	in := testInputs(t)

	s, err := store.New(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	cc := &ConversionContext{
		Box:    &fakeBox{genErr: errors.New("text_gen returned 429")},
		Config: config.Defaults(),
		Errors: errlog.New(nil),
		Store:  s,
	}

	res, err := Run(context.Background(), cc, in)
	require.Error(t, err)
	require.NotNil(t, res)

	// Earlier-stage artifacts survive the failure.
	require.Len(t, res.MergeFields, 2)
	require.NotNil(t, res.Query)
	require.NotNil(t, res.Schema)
	require.Len(t, res.FileIDs, 3)
	require.Empty(t, res.Mappings)

	apiErrors := cc.Errors.ByType("api")
	require.Len(t, apiErrors, 1)
	require.Contains(t, apiErrors[0].Message, "429")

	runs, err := s.ListRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, "failed", runs[0].Status)
	require.Equal(t, 1, s.ErrorCount(res.RunID))
}

func TestRun_UnparseableResponse(t *testing.T) {
	in := testInputs(t)

	cc := &ConversionContext{
		Box:    &fakeBox{response: "I could not map anything."},
		Config: config.Defaults(),
		Errors: errlog.New(nil),
	}

	res, err := Run(context.Background(), cc, in)
	require.Error(t, err)
	require.Equal(t, "I could not map anything.", res.RawResponse)
	require.Len(t, cc.Errors.ByType("response"), 1)
}

func TestRun_MissingTemplate(t *testing.T) {
	in := testInputs(t)
	in.TemplatePath = filepath.Join(t.TempDir(), "absent.docx")

	cc := &ConversionContext{
		Box:    &fakeBox{response: fakeResponse},
		Config: config.Defaults(),
		Errors: errlog.New(nil),
	}

	res, err := Run(context.Background(), cc, in)
	require.Error(t, err)
	require.NotNil(t, res)
	require.Len(t, cc.Errors.ByType("parsing"), 1)
}
