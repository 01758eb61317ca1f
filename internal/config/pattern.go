package config

import "strings"

// Granularity orders time placeholders from coarsest to finest so callers
// can determine both "is this pattern time-partitioned" and "what's the
// finest unit to round to" with one table.
type Granularity int

const (
	GranularityNone Granularity = iota
	GranularityYear
	GranularityMonth
	GranularityDay
	GranularityHour
	GranularityMinute
)

var placeholders = []struct {
	token string
	gran  Granularity
}{
	{"{year}", GranularityYear},
	{"{month}", GranularityMonth},
	{"{day}", GranularityDay},
	{"{hour}", GranularityHour},
	{"{minute}", GranularityMinute},
}

// finestGranularity returns the finest time placeholder present in pattern,
// or GranularityNone if the pattern carries no time placeholder at all.
func finestGranularity(pattern string) Granularity {
	finest := GranularityNone
	for _, p := range placeholders {
		if strings.Contains(pattern, p.token) && p.gran > finest {
			finest = p.gran
		}
	}
	return finest
}

// FinestGranularity exposes finestGranularity for use by the scheduler when
// computing an action's data time window (spec §4.5).
func FinestGranularity(pattern string) Granularity {
	return finestGranularity(pattern)
}

// Placeholders returns the ordered list of time placeholder tokens, coarsest
// first, for use by callers expanding a pattern over a window.
func Placeholders() []string {
	toks := make([]string, len(placeholders))
	for i, p := range placeholders {
		toks[i] = p.token
	}
	return toks
}
