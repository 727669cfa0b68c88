// Package importer turns uploaded client rosters (CSV or spreadsheet) into
// validated, typed rows. Parsing is all-or-nothing: the first invalid row
// aborts the whole file before anything is written downstream.
package importer

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Row is one validated roster line tagged with its track kind. Savings fields
// are meaningful only for KindSavings rows, policy fields only for KindPolicy.
type Row struct {
	Kind           Kind
	Name           string
	Email          string
	Phone          string
	BirthDate      *time.Time
	FirstSavings   decimal.Decimal
	CurrentSavings decimal.Decimal
	PolicyType     string
	PolicyStart    *time.Time
	PolicyEnd      *time.Time
}

// ErrNoRows is returned when a file has a valid header but every data line
// was filtered out.
var ErrNoRows = errors.New("CSV içinde müşteri satırı bulunamadı.")

var lineSplitPattern = regexp.MustCompile(`\r?\n`)

// Parse processes raw delimited text for the given track kind.
func Parse(kind Kind, content string) ([]Row, error) {
	var lines []string
	for _, line := range lineSplitPattern.Split(content, -1) {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}

	if len(lines) < 2 {
		return nil, errors.New("CSV dosyasında başlık satırı ve en az bir kayıt bulunmalıdır.")
	}

	delimiter := DetectDelimiter(lines[0])
	headerCells := strings.Split(lines[0], delimiter)

	dataRows := make([][]string, 0, len(lines)-1)
	for _, line := range lines[1:] {
		dataRows = append(dataRows, strings.Split(line, delimiter))
	}

	return parseCells(kind, headerCells, dataRows, lines[0])
}

// ParseRecords processes an already-tabular input, e.g. a spreadsheet sheet
// converted to a cell grid, through the same mapping and validation pipeline.
func ParseRecords(kind Kind, records [][]string) ([]Row, error) {
	if len(records) < 2 {
		return nil, errors.New("CSV dosyasında başlık satırı ve en az bir kayıt bulunmalıdır.")
	}
	return parseCells(kind, records[0], records[1:], strings.Join(records[0], ";"))
}

// Normalised name/email cells that indicate a duplicated header row embedded
// mid-file. Such rows are skipped silently rather than rejected.
var embeddedHeaderNames = map[string]bool{
	"adsoyad": true, "isim": true, "advesoyad": true, "musteriadsoyad": true,
}
var embeddedHeaderEmails = map[string]bool{
	"eposta": true, "email": true,
}

func parseCells(kind Kind, headerCells []string, dataRows [][]string, rawHeader string) ([]Row, error) {
	positions, err := mapHeader(kind, headerCells, rawHeader)
	if err != nil {
		return nil, err
	}

	getValue := func(parts []string, field Field) string {
		index, ok := positions[field]
		if !ok || index >= len(parts) {
			return ""
		}
		return CleanCell(parts[index])
	}

	var rows []Row
	for i, parts := range dataRows {
		lineNo := i + 2 // 1-based, line 1 is the header

		blank := true
		for _, part := range parts {
			if strings.TrimSpace(part) != "" {
				blank = false
				break
			}
		}
		if blank {
			continue
		}

		name := getValue(parts, FieldName)
		email := SanitizeEmail(getValue(parts, FieldEmail))
		if name == "" && email == "" {
			continue
		}
		if embeddedHeaderNames[NormalizeHeader(name)] || embeddedHeaderEmails[NormalizeHeader(email)] {
			continue
		}

		row := Row{
			Kind:  kind,
			Name:  name,
			Email: email,
			Phone: getValue(parts, FieldPhone),
		}

		var problems []string
		if kind == KindSavings {
			row.BirthDate = ParseDate(getValue(parts, FieldBirthDate))
			problems = validateSavingsRow(&row, getValue(parts, FieldFirstSavings), getValue(parts, FieldCurrentSavings))
		} else {
			row.PolicyType = getValue(parts, FieldPolicyType)
			row.PolicyStart = ParseDate(getValue(parts, FieldPolicyStart))
			row.PolicyEnd = ParseDate(getValue(parts, FieldPolicyEnd))
			problems = validatePolicyRow(&row)
		}

		if len(problems) > 0 {
			return nil, fmt.Errorf("Satır %d: %s", lineNo, strings.Join(problems, ", "))
		}

		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return nil, ErrNoRows
	}
	return rows, nil
}

func validateSavingsRow(row *Row, firstRaw, currentRaw string) []string {
	var problems []string

	if row.Name == "" {
		problems = append(problems, "Ad soyad boş olamaz.")
	}
	if !ValidEmail(row.Email) {
		problems = append(problems, "Geçerli bir e-posta adresi gerekli.")
	}

	first, err := ParseAmount(firstRaw)
	switch {
	case err != nil:
		problems = append(problems, "İlk tasarruf tutarı geçersiz.")
	case first.IsNegative():
		problems = append(problems, "İlk tasarruf tutarı 0'dan küçük olamaz.")
	default:
		row.FirstSavings = first
	}

	current, err := ParseAmount(currentRaw)
	switch {
	case err != nil:
		problems = append(problems, "Güncel tasarruf tutarı geçersiz.")
	case current.IsNegative():
		problems = append(problems, "Güncel tasarruf tutarı 0'dan küçük olamaz.")
	default:
		row.CurrentSavings = current
	}

	return problems
}

func validatePolicyRow(row *Row) []string {
	var problems []string

	if row.Name == "" {
		problems = append(problems, "Müşteri adı boş olamaz.")
	}
	if !ValidEmail(row.Email) {
		problems = append(problems, "Geçerli bir e-posta adresi gerekli.")
	}
	if row.PolicyType == "" {
		problems = append(problems, "Poliçe türü gerekli.")
	}
	if row.PolicyStart == nil {
		problems = append(problems, "Poliçe başlangıç tarihi gerekli.")
	}
	if row.PolicyEnd == nil {
		problems = append(problems, "Poliçe bitiş tarihi gerekli.")
	}

	return problems
}
