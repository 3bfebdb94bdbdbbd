package browser

import (
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/pkg/errors"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Unaccented lower-case French month names.
var frenchMonths = map[string]time.Month{
	"janvier":   time.January,
	"fevrier":   time.February,
	"mars":      time.March,
	"avril":     time.April,
	"mai":       time.May,
	"juin":      time.June,
	"juillet":   time.July,
	"aout":      time.August,
	"septembre": time.September,
	"octobre":   time.October,
	"novembre":  time.November,
	"decembre":  time.December,
}

var lowerFR = cases.Lower(language.French)

func unaccent(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// ParseMonthLabel reads the calendar header, e.g. "février 2026" or
// "Août 2025", into a month and a year.
func ParseMonthLabel(label string) (time.Month, int, error) {
	fields := strings.FieldsFunc(unaccent(lowerFR.String(label)), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	var (
		month time.Month
		year  int
	)
	for _, f := range fields {
		if m, ok := frenchMonths[f]; ok && month == 0 {
			month = m
			continue
		}
		if len(f) == 4 && year == 0 {
			if y, err := strconv.Atoi(f); err == nil {
				year = y
			}
		}
	}
	if month == 0 || year == 0 {
		return 0, 0, errors.Wrapf(ErrMonthLabel, "%q", label)
	}
	return month, year, nil
}
