package services

import (
	"fmt"
	"strings"
)

// formatQuoteNumber joins the settings prefix and counter: "2024-" + 7 -> "2024-7".
func formatQuoteNumber(prefix string, counter int) string {
	if counter < 1 {
		counter = 1
	}
	return fmt.Sprintf("%s%d", prefix, counter)
}

// ResolveDisplayNumber returns the trimmed explicit number when one was
// typed, otherwise the next number from the settings counter.
func ResolveDisplayNumber(explicit string, s *Settings) string {
	if n := strings.TrimSpace(explicit); n != "" {
		return n
	}
	if s == nil {
		return formatQuoteNumber("", 1)
	}
	return formatQuoteNumber(s.QuoteNumberPrefix, s.NextQuoteNumber)
}

// ExportFilename builds the download name for a quote: Preventivo_<number>.<ext>.
func ExportFilename(number, ext string) string {
	n := SanitizeFilename(strings.TrimSpace(number))
	if n == "" {
		n = "bozza"
	}
	return fmt.Sprintf("Preventivo_%s.%s", n, strings.TrimPrefix(ext, "."))
}

// SanitizeFilename replaces characters that break Content-Disposition
// headers or file systems.
func SanitizeFilename(s string) string {
	r := strings.NewReplacer(
		" ", "-",
		"/", "-",
		"\\", "-",
		":", "-",
		"\"", "",
		"\n", "",
		"\r", "",
	)
	return r.Replace(s)
}
