// Package soql extracts structure from Conga SOQL queries: selected fields,
// the source object, filter conditions, and relationship prefixes.
package soql

import (
	"errors"
	"regexp"
	"strings"

	"github.com/fairsailau/congabox2/internal/model"
)

var (
	selectRe = regexp.MustCompile(`(?is)SELECT\s+(.*?)\s+FROM`)
	fromRe   = regexp.MustCompile(`(?i)FROM\s+(\w+)`)
	whereRe  = regexp.MustCompile(`(?is)WHERE\s+(.*?)(?:ORDER\s+BY|GROUP\s+BY|LIMIT|$)`)
	// Matched against the start of a field only; Account.Owner.Name groups
	// under Account with no chained-relationship resolution.
	relRe = regexp.MustCompile(`^(\w+)\.(\w+)`)
)

// Parse extracts QueryInfo from raw SOQL text. Missing clauses are represented
// as empty values, never an error; only untokenizable (blank) input fails.
func Parse(queryText string) (*model.QueryInfo, error) {
	queryText = strings.TrimSpace(queryText)
	if queryText == "" {
		return nil, &model.ParseError{Stage: "query", Err: errors.New("empty query text")}
	}

	info := &model.QueryInfo{
		Relationships: map[string][]string{},
	}

	if m := selectRe.FindStringSubmatch(queryText); m != nil {
		for _, f := range strings.Split(m[1], ",") {
			info.Fields = append(info.Fields, strings.TrimSpace(f))
		}
	}

	if m := fromRe.FindStringSubmatch(queryText); m != nil {
		info.MainObject = m[1]
	}

	if m := whereRe.FindStringSubmatch(queryText); m != nil {
		info.Conditions = strings.TrimSpace(m[1])
	}

	for _, f := range info.Fields {
		if m := relRe.FindStringSubmatch(f); m != nil {
			info.Relationships[m[1]] = append(info.Relationships[m[1]], m[2])
		}
	}

	return info, nil
}

// FieldPaths derives canonical Object.Field dotted paths from parsed query
// info. Fields already containing a dot pass through unchanged; bare fields
// are prefixed with the main object. Returns nil when no main object was found.
func FieldPaths(info *model.QueryInfo) []string {
	if info == nil || info.MainObject == "" {
		return nil
	}

	var paths []string
	for _, f := range info.Fields {
		if strings.Contains(f, ".") {
			paths = append(paths, f)
		} else {
			paths = append(paths, info.MainObject+"."+f)
		}
	}
	return paths
}
