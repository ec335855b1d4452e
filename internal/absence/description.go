package absence

import (
	"regexp"
	"strings"
)

// The request description doubles as a structured-data carrier for classes
// that were not yet synced to the store when the student submitted. Two
// generations of the prefix exist in historical records and both must keep
// parsing byte-for-byte:
//
//	new:    [2025-12-23] Subject (Time) - free text
//	multi:  [2025-12-23, 2025-12-24] free text
//	legacy: [Subject (Time)] free text
//
// All regex parsing of the format lives in this file so a future format
// change touches one place.
var (
	bracketedDatesRe = regexp.MustCompile(`\[([\d\-,\s]+)\]`)
	singleDateRe     = regexp.MustCompile(`\[(\d{4}-\d{2}-\d{2})\]`)
	isoDateRe        = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	newFormatRe      = regexp.MustCompile(`\[(\d{4}-\d{2}-\d{2})\]\s*([^(]+)\(([^)]+)\)`)
	legacyFormatRe   = regexp.MustCompile(`\[([^\(]+)\(([^\)]+)\)\]`)
	suffixClassRe    = regexp.MustCompile(`\]\s*([^(]+)\(([^)]+)\)`)
)

// ClassIdentity is a class recovered from a description prefix. Date is
// empty for the legacy format, which never carried one.
type ClassIdentity struct {
	Date    string
	Subject string
	Time    string
}

// ExtractDates returns the absent calendar dates encoded in a description:
// a bracketed comma-separated ISO list first, then a single bracketed ISO
// date. An empty result means the description predates date prefixes.
func ExtractDates(description string) []string {
	if description == "" {
		return nil
	}

	if m := bracketedDatesRe.FindStringSubmatch(description); m != nil {
		var dates []string
		for _, part := range strings.Split(m[1], ",") {
			d := strings.TrimSpace(part)
			if d != "" && isoDateRe.MatchString(d) {
				dates = append(dates, d)
			}
		}
		if len(dates) > 0 {
			return dates
		}
	}

	if m := singleDateRe.FindStringSubmatch(description); m != nil {
		return []string{m[1]}
	}

	return nil
}

// ParseClassIdentity recovers a class from the new-format prefix
// "[date] Subject (Time)", falling back to the legacy "[Subject (Time)]".
func ParseClassIdentity(description string) (ClassIdentity, bool) {
	if description == "" {
		return ClassIdentity{}, false
	}
	if m := newFormatRe.FindStringSubmatch(description); m != nil {
		return ClassIdentity{Date: m[1], Subject: strings.TrimSpace(m[2]), Time: strings.TrimSpace(m[3])}, true
	}
	return ParseLegacyDescription(description)
}

// ParseLegacyDescription recovers a class from the oldest prefix format,
// "[Subject (Time)] free text".
func ParseLegacyDescription(description string) (ClassIdentity, bool) {
	if description == "" {
		return ClassIdentity{}, false
	}
	m := legacyFormatRe.FindStringSubmatch(description)
	if m == nil {
		return ClassIdentity{}, false
	}
	return ClassIdentity{Subject: strings.TrimSpace(m[1]), Time: strings.TrimSpace(m[2])}, true
}

// suffixSubjectTime pulls a subject/time pair that follows the closing
// bracket of a date prefix, i.e. "] Subject (Time)". Used when the group's
// schedule for an extracted date is missing from the store.
func suffixSubjectTime(description string) (subject, timeRange string, ok bool) {
	m := suffixClassRe.FindStringSubmatch(description)
	if m == nil {
		return "", "", false
	}
	return strings.TrimSpace(m[1]), strings.TrimSpace(m[2]), true
}

// BuildClassDescription writes the new-format prefix for a request against
// an unsynced class, preserving its identity through the description.
func BuildClassDescription(date, subject, timeRange, comment string) string {
	return "[" + date + "] " + subject + " (" + timeRange + ") - " + comment
}

// BuildPeriodDescription writes the multi-date prefix for a period request.
func BuildPeriodDescription(dates []string, comment string) string {
	return "[" + strings.Join(dates, ", ") + "] " + comment
}
