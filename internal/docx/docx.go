// Package docx extracts text and Conga merge fields from DOCX templates.
//
// A DOCX file is a zip container; the document body lives in
// word/document.xml as WordprocessingML. Paragraph text is concatenated in
// document order, followed by every table cell's paragraphs, so table content
// is appended after all top-level paragraphs rather than interleaved.
package docx

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fairsailau/congabox2/internal/model"
)

// fieldRe matches a Conga merge field: a maximal guillemet-delimited token
// with no delimiter nesting.
var fieldRe = regexp.MustCompile(`«([^»]+)»`)

const defaultContextChars = 50

// Parser extracts content from Conga template DOCX files.
type Parser struct {
	// ContextChars is the number of characters captured before and after a
	// merge field when building its context window.
	ContextChars int
}

// NewParser returns a Parser with the default context window size.
func NewParser() *Parser {
	return &Parser{ContextChars: defaultContextChars}
}

// ParseFile reads and parses a template from disk.
func (p *Parser) ParseFile(path string) (string, []model.MergeField, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, &model.ParseError{Stage: "template", Err: err}
	}
	return p.Parse(data)
}

// Parse extracts the full text and every merge field occurrence from DOCX
// bytes. Fields are returned in first-to-last document order; identical
// tokens at different positions all receive the first occurrence's context.
func (p *Parser) Parse(data []byte) (string, []model.MergeField, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", nil, &model.ParseError{Stage: "template", Err: fmt.Errorf("opening docx container: %w", err)}
	}

	var docXML *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			docXML = f
			break
		}
	}
	if docXML == nil {
		return "", nil, &model.ParseError{Stage: "template", Err: errors.New("docx container has no word/document.xml")}
	}

	rc, err := docXML.Open()
	if err != nil {
		return "", nil, &model.ParseError{Stage: "template", Err: err}
	}
	defer rc.Close()

	doc, err := goquery.NewDocumentFromReader(rc)
	if err != nil {
		return "", nil, &model.ParseError{Stage: "template", Err: fmt.Errorf("parsing document body: %w", err)}
	}

	var sb strings.Builder

	// Top-level paragraphs first.
	doc.Find(`w\:body > w\:p`).Each(func(_ int, para *goquery.Selection) {
		sb.WriteString(paragraphText(para))
		sb.WriteString("\n")
	})

	// Then every table cell's paragraphs, in document order.
	doc.Find(`w\:tbl w\:tc`).Each(func(_ int, cell *goquery.Selection) {
		cell.Find(`w\:p`).Each(func(_ int, para *goquery.Selection) {
			sb.WriteString(paragraphText(para))
			sb.WriteString("\n")
		})
	})

	fullText := sb.String()

	var fields []model.MergeField
	for _, m := range fieldRe.FindAllStringSubmatch(fullText, -1) {
		fields = append(fields, model.MergeField{
			Original: m[0],
			Name:     m[1],
			Context:  p.fieldContext(fullText, m[1]),
		})
	}

	return fullText, fields, nil
}

// paragraphText concatenates the text runs of a single paragraph.
func paragraphText(para *goquery.Selection) string {
	return para.Find(`w\:t`).Text()
}

// fieldContext captures a fixed-size character window around the first
// occurrence of the delimited field, marking truncated edges with an
// ellipsis. Returns "" if the token is not found.
func (p *Parser) fieldContext(text, name string) string {
	token := "«" + name + "»"
	byteIdx := strings.Index(text, token)
	if byteIdx < 0 {
		return ""
	}

	runes := []rune(text)
	pos := len([]rune(text[:byteIdx]))
	tokenLen := len([]rune(token))

	start := pos - p.ContextChars
	if start < 0 {
		start = 0
	}
	end := pos + tokenLen + p.ContextChars
	if end > len(runes) {
		end = len(runes)
	}

	context := string(runes[start:end])
	if start > 0 {
		context = "..." + context
	}
	if end < len(runes) {
		context = context + "..."
	}
	return context
}
