package boxapi

import (
	"encoding/csv"
	"regexp"
	"strings"

	"github.com/fairsailau/congabox2/internal/model"
)

var (
	causeRe     = regexp.MustCompile(`(?is)cause:(.*?)(?:solutions|$)`)
	solutionsRe = regexp.MustCompile(`(?is)solutions:(.*?)(?:additional information|$)`)
	additionRe  = regexp.MustCompile(`(?is)additional information:(.*)$`)
)

// ParseMappingResponse extracts the CSV mapping block embedded in free-form
// model output and normalizes it into mapping records.
//
// Block detection is line-oriented: a line containing a comma that starts
// with the header token or with « enters CSV mode; the first subsequent
// comma-free line ends it. The comma toggle is a deliberate heuristic and is
// fragile against quoted fields with embedded commas or multi-line quoted
// values; that limitation is accepted rather than hardened away.
//
// Records missing either required column are dropped, all fields are
// trimmed, and notes defaults to "". Any non-empty extraction is returned
// best-effort; only zero retained CSV lines is an error.
func ParseMappingResponse(responseText string) ([]model.MappingRecord, error) {
	var csvLines []string
	inCSV := false

	for _, line := range strings.Split(responseText, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		hasComma := strings.Contains(line, ",")
		if hasComma && (strings.HasPrefix(line, "conga_field") || strings.HasPrefix(line, "«")) {
			inCSV = true
		} else if inCSV && !hasComma {
			inCSV = false
		}

		if inCSV {
			csvLines = append(csvLines, line)
		}
	}

	if len(csvLines) == 0 {
		return nil, &model.MappingParseError{Msg: "no CSV data found in response"}
	}

	reader := csv.NewReader(strings.NewReader(strings.Join(csvLines, "\n")))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, &model.MappingParseError{Msg: "malformed CSV data in response: " + err.Error()}
	}
	if len(rows) == 0 {
		return nil, &model.MappingParseError{Msg: "no CSV data found in response"}
	}

	// Header-driven access when the block leads with the header row;
	// otherwise the model skipped the header and columns are positional.
	congaIdx, boxIdx, notesIdx := 0, 1, 2
	data := rows
	if strings.TrimSpace(rows[0][0]) == "conga_field" {
		congaIdx, boxIdx, notesIdx = -1, -1, -1
		for i, col := range rows[0] {
			switch strings.TrimSpace(col) {
			case "conga_field":
				congaIdx = i
			case "box_field":
				boxIdx = i
			case "notes":
				notesIdx = i
			}
		}
		data = rows[1:]
	}

	mappings := []model.MappingRecord{}
	for _, row := range data {
		if congaIdx < 0 || boxIdx < 0 || congaIdx >= len(row) || boxIdx >= len(row) {
			continue
		}
		notes := ""
		if notesIdx >= 0 && notesIdx < len(row) {
			notes = row[notesIdx]
		}
		rec, err := model.NewMappingRecord(row[congaIdx], row[boxIdx], notes)
		if err != nil {
			continue
		}
		mappings = append(mappings, rec)
	}

	return mappings, nil
}

// ParseErrorAnalysis pulls the three labeled sections out of an
// error-analysis response. Missing sections yield empty strings; this parser
// never fails, unlike the primary mapping parser.
func ParseErrorAnalysis(responseText string) model.ErrorAnalysis {
	section := func(re *regexp.Regexp) string {
		if m := re.FindStringSubmatch(responseText); m != nil {
			return strings.TrimSpace(m[1])
		}
		return ""
	}

	return model.ErrorAnalysis{
		Cause:                 section(causeRe),
		Solutions:             section(solutionsRe),
		AdditionalInformation: section(additionRe),
	}
}
