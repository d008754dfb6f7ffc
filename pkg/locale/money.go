package locale

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func printer() *message.Printer {
	return message.NewPrinter(language.BrazilianPortuguese)
}

// FormatBRL renders v as "R$ 1.234,56".
func FormatBRL(v float64) string {
	return "R$ " + printer().Sprintf("%.2f", v)
}

// FormatPercent renders v as "12,5%".
func FormatPercent(v float64) string {
	return printer().Sprintf("%.1f", v) + "%"
}

// FormatNumber renders v with pt-BR separators and no trailing zero decimals.
func FormatNumber(v float64) string {
	if v == math.Trunc(v) {
		return printer().Sprintf("%d", int64(v))
	}
	return printer().Sprintf("%.2f", v)
}

var numberPattern = regexp.MustCompile(`\d{1,3}(?:\.\d{3})+(?:,\d+)?|\d+(?:[.,]\d+)?`)

// ExtractNumbers returns every number written in s, reading "1.234,56" and
// "1234.56" alike.
func ExtractNumbers(s string) []float64 {
	var out []float64
	for _, m := range numberPattern.FindAllString(s, -1) {
		if v, ok := parseNumber(m); ok {
			out = append(out, v)
		}
	}
	return out
}

// ReplaceNumbers rewrites whole number tokens of s. repl sees each token
// and its value and returns the replacement, or false to keep the token.
// A token is never split, so "18" does not match inside "180".
func ReplaceNumbers(s string, repl func(token string, v float64) (string, bool)) string {
	return numberPattern.ReplaceAllStringFunc(s, func(m string) string {
		v, ok := parseNumber(m)
		if !ok {
			return m
		}
		if out, ok := repl(m, v); ok {
			return out
		}
		return m
	})
}

// FormatLike renders v in pt-BR with as many decimals as token shows. A
// token without decimals gets the shortest rendering of v.
func FormatLike(token string, v float64) string {
	if d := decimalsOf(token); d > 0 {
		return printer().Sprintf(fmt.Sprintf("%%.%df", d), v)
	}
	if v == math.Trunc(v) {
		return printer().Sprintf("%d", int64(v))
	}
	out := strings.TrimRight(printer().Sprintf("%.2f", v), "0")
	return strings.TrimSuffix(out, ",")
}

func decimalsOf(token string) int {
	if i := strings.LastIndexByte(token, ','); i >= 0 {
		return len(token) - i - 1
	}
	if strings.Count(token, ".") == 1 && !thousandsOnly(token) {
		return len(token) - strings.IndexByte(token, '.') - 1
	}
	return 0
}

// HasNumber reports whether s contains at least one digit.
func HasNumber(s string) bool {
	return strings.ContainsAny(s, "0123456789")
}

func parseNumber(m string) (float64, bool) {
	switch {
	case strings.Contains(m, ",") && strings.Contains(m, "."):
		m = strings.ReplaceAll(m, ".", "")
		m = strings.Replace(m, ",", ".", 1)
	case strings.Contains(m, ","):
		m = strings.Replace(m, ",", ".", 1)
	case strings.Count(m, ".") > 1 || thousandsOnly(m):
		m = strings.ReplaceAll(m, ".", "")
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// thousandsOnly matches "1.500": a dot followed by exactly three digits.
func thousandsOnly(m string) bool {
	i := strings.IndexByte(m, '.')
	return i > 0 && len(m)-i-1 == 3
}
