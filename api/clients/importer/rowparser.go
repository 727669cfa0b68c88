package importer

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DetectDelimiter picks the delimiter for a whole file from its header line:
// semicolon when present, comma otherwise.
func DetectDelimiter(headerLine string) string {
	if strings.Contains(headerLine, ";") {
		return ";"
	}
	return ","
}

var quotePairPattern = regexp.MustCompile(`^"+|"+$`)

// CleanCell strips wrapping quote characters and surrounding whitespace.
func CleanCell(value string) string {
	return strings.TrimSpace(quotePairPattern.ReplaceAllString(value, ""))
}

// SanitizeEmail normalises an address cell: whitespace removed, commas folded
// to dots (a frequent typo in exported files), lowercased.
func SanitizeEmail(value string) string {
	var b strings.Builder
	for _, r := range value {
		switch {
		case r == ' ' || r == '\t':
		case r == ',':
			b.WriteRune('.')
		default:
			b.WriteRune(r)
		}
	}
	return strings.ToLower(b.String())
}

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-']+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// ValidEmail reports whether value looks like a deliverable address.
func ValidEmail(value string) bool {
	return emailPattern.MatchString(value)
}

var numberStripPattern = regexp.MustCompile(`[^\d,.\-]`)
var dotThousandsPattern = regexp.MustCompile(`^\d{1,3}(\.\d{3})+$`)

var errNotANumber = errors.New("value is not numeric")

// ParseAmount interprets a locale-ambiguous amount cell. When both separators
// appear the right-most one is the decimal separator; a lone comma is a
// decimal comma; dots forming groups of three digits are thousands separators.
func ParseAmount(raw string) (decimal.Decimal, error) {
	cleaned := strings.TrimSpace(numberStripPattern.ReplaceAllString(raw, ""))
	if cleaned == "" {
		return decimal.Zero, errNotANumber
	}

	commaCount := strings.Count(cleaned, ",")
	dotCount := strings.Count(cleaned, ".")

	switch {
	case commaCount > 0 && dotCount > 0:
		if strings.LastIndex(cleaned, ",") > strings.LastIndex(cleaned, ".") {
			cleaned = strings.ReplaceAll(cleaned, ".", "")
			cleaned = strings.Replace(cleaned, ",", ".", 1)
		} else {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	case commaCount > 1:
		cleaned = strings.ReplaceAll(cleaned, ",", "")
	case commaCount == 1:
		cleaned = strings.Replace(cleaned, ",", ".", 1)
	case dotCount > 0:
		if dotThousandsPattern.MatchString(cleaned) || dotCount > 1 {
			cleaned = strings.ReplaceAll(cleaned, ".", "")
		}
	}

	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, errNotANumber
	}
	return amount, nil
}

type datePattern struct {
	re        *regexp.Regexp
	yearFirst bool
}

var datePatterns = []datePattern{
	{regexp.MustCompile(`^(\d{1,2})\.(\d{1,2})\.(\d{4})$`), false}, // DD.MM.YYYY
	{regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`), false},   // DD/MM/YYYY
	{regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`), true},    // YYYY-MM-DD
	{regexp.MustCompile(`^(\d{1,2})-(\d{1,2})-(\d{4})$`), false},   // DD-MM-YYYY
}

// ParseDate tries the accepted date layouts in order and returns nil when the
// cell matches none of them or names an impossible calendar day.
func ParseDate(raw string) *time.Time {
	value := strings.TrimSpace(raw)
	if value == "" {
		return nil
	}

	for _, pattern := range datePatterns {
		match := pattern.re.FindStringSubmatch(value)
		if match == nil {
			continue
		}
		var day, month, year int
		if pattern.yearFirst {
			year, month, day = atoi(match[1]), atoi(match[2]), atoi(match[3])
		} else {
			day, month, year = atoi(match[1]), atoi(match[2]), atoi(match[3])
		}
		candidate := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
		if candidate.Year() != year || candidate.Month() != time.Month(month) || candidate.Day() != day {
			return nil
		}
		return &candidate
	}
	return nil
}

func atoi(s string) int {
	n := 0
	for _, r := range s {
		n = n*10 + int(r-'0')
	}
	return n
}
