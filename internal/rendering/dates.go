package rendering

import (
	"strings"

	"github.com/jonathan/cv-builder/internal/types"
)

// FormatDateRange renders "{startMonth} {startYear} - {endMonth} {endYear}".
// A side whose month and year are both blank is omitted, and the dash only
// appears between two present sides. All blank yields "".
func FormatDateRange(startMonth, startYear, endMonth, endYear string) string {
	start := joinNonEmpty(" ", startMonth, startYear)
	end := joinNonEmpty(" ", endMonth, endYear)
	return joinNonEmpty(" - ", start, end)
}

// FormatPeriod formats the date range of a dated entry.
func FormatPeriod(p types.Period) string {
	return FormatDateRange(p.StartMonth, p.StartYear, p.EndMonth, p.EndYear)
}

// FormatExperienceDates appends the free-text duration after the computed
// range, separated by a single space.
func FormatExperienceDates(e types.Experience) string {
	return joinNonEmpty(" ", FormatPeriod(e.Period), e.Duration)
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
