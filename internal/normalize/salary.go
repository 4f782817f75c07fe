package normalize

import (
	"regexp"
	"strconv"
	"strings"
)

// ParsedSalary is the numeric triple extracted from free-form salary text.
// All fields nil/empty when nothing parseable was found — never zero.
type ParsedSalary struct {
	Min      *float64
	Max      *float64
	Currency string
}

var (
	// Amounts like "150,000", "150000", "150k", "$150K", "92.5k".
	salaryAmountRegex = regexp.MustCompile(`(?i)([$£€]?\s*)(\d{1,3}(?:,\d{3})+|\d+(?:\.\d+)?)(\s*k)?`)
	salaryUpToRegex   = regexp.MustCompile(`(?i)\bup\s+to\b`)
	currencyCodeRegex = regexp.MustCompile(`\b(USD|EUR|GBP|CAD|AUD|CHF|SEK|INR)\b`)
)

var currencySymbols = map[string]string{
	"$": "USD",
	"£": "GBP",
	"€": "EUR",
}

// ParseSalaryText extracts a salary range from text like "$150,000 - $180,000",
// "150k–180k", "up to $90k" or "£45,000 per year". Amounts under 1000 without
// a k-suffix are ignored (hours, percentages, headcounts).
func ParseSalaryText(text string) ParsedSalary {
	var out ParsedSalary
	if strings.TrimSpace(text) == "" {
		return out
	}

	if code := currencyCodeRegex.FindString(text); code != "" {
		out.Currency = code
	}

	var amounts []float64
	for _, m := range salaryAmountRegex.FindAllStringSubmatch(text, -1) {
		symbol := strings.TrimSpace(m[1])
		raw := strings.ReplaceAll(m[2], ",", "")
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			continue
		}
		if strings.TrimSpace(m[3]) != "" {
			v *= 1000
		}
		// Reject noise: bare small numbers are years of experience, team
		// sizes, etc. A currency symbol or k-suffix marks intent.
		if v < 1000 {
			continue
		}
		if out.Currency == "" && symbol != "" {
			if code, ok := currencySymbols[symbol]; ok {
				out.Currency = code
			}
		}
		amounts = append(amounts, v)
	}

	if len(amounts) == 0 {
		out.Currency = ""
		return out
	}

	min, max := amounts[0], amounts[0]
	for _, v := range amounts[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}

	// "up to X" is a ceiling, not a range.
	if salaryUpToRegex.MatchString(text) && len(amounts) == 1 {
		out.Max = &max
		return out
	}

	out.Min = &min
	out.Max = &max
	return out
}
