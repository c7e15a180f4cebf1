// Package archive bundles conversion results into a downloadable zip.
package archive

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/fairsailau/congabox2/internal/model"
)

// Create writes a zip at outPath containing the given files (zip entry name
// -> local path) plus a README.txt with the given content. Source files that
// do not exist are skipped.
func Create(outPath string, files map[string]string, readme string) error {
	if dir := filepath.Dir(outPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return &model.WriteError{Path: outPath, Err: err}
		}
	}

	f, err := os.Create(outPath)
	if err != nil {
		return &model.WriteError{Path: outPath, Err: err}
	}

	zw := zip.NewWriter(f)
	fail := func(err error) error {
		zw.Close()
		f.Close()
		return &model.WriteError{Path: outPath, Err: err}
	}

	for name, localPath := range files {
		src, err := os.Open(localPath)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fail(err)
		}

		entry, err := zw.Create(name)
		if err != nil {
			src.Close()
			return fail(err)
		}
		if _, err := io.Copy(entry, src); err != nil {
			src.Close()
			return fail(err)
		}
		src.Close()
	}

	if readme != "" {
		entry, err := zw.Create("README.txt")
		if err != nil {
			return fail(err)
		}
		if _, err := io.WriteString(entry, readme); err != nil {
			return fail(err)
		}
	}

	if err := zw.Close(); err != nil {
		f.Close()
		return &model.WriteError{Path: outPath, Err: err}
	}
	return f.Close()
}

// Readme produces the plain-text description bundled with every archive.
func Readme(now time.Time) string {
	return `Conga to Box Doc Gen Conversion
===============================
Conversion Date: ` + now.Format("2006-01-02 15:04:05") + `

This ZIP file contains the following:
- conga_to_box_mapping.csv: Mapping between Conga merge fields and Box Doc Gen fields
- original_template.docx: Original Conga template
- original_query.txt: Original SOQL query
- original_schema.json: Original Box-Salesforce JSON schema

The mapping CSV file can be used as a reference for manually converting your Conga template to Box Doc Gen format.
`
}
