package domain

import (
	"regexp"
	"strconv"
	"strings"
)

// Scraped financial fields are free text. These sentinels all mean "no
// value"; the comparison is done on the trimmed, upper-cased input.
var financialSentinels = map[string]struct{}{
	"":     {},
	"N/A":  {},
	"NA":   {},
	"NULL": {},
	"NONE": {},
	"-":    {},
	"--":   {},
}

var numericPattern = regexp.MustCompile(`^[+-]?\d+(?:\.\d+)?$`)

// ParseFinancial converts raw financial text ("$1,200,000", "(123.45)",
// "N/A", ...) to a number. Returns nil for anything unparseable; malformed
// input is a data-quality signal, never an error. The function is pure and
// idempotent: feeding a formatted result back in yields the same value.
func ParseFinancial(raw string) *float64 {
	text := strings.TrimSpace(raw)
	if _, sentinel := financialSentinels[strings.ToUpper(text)]; sentinel {
		return nil
	}

	// Accounting negatives: "(123.45)" -> "-123.45".
	if strings.HasPrefix(text, "(") && strings.HasSuffix(text, ")") {
		text = "-" + text[1:len(text)-1]
	}

	cleaned := strings.NewReplacer("$", "", ",", "", " ", "").Replace(text)
	if !numericPattern.MatchString(cleaned) {
		return nil
	}

	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return nil
	}
	return &v
}
