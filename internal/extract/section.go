// Package extract turns the plain text of a care-plan document into a
// structured care plan: sections are located by heading, split into entry
// blocks, and each block is read field by field.
package extract

import (
	"regexp"
	"strings"
)

// Section headings recognised in care-plan documents.
const (
	HeadingMedications    = "Medications"
	HeadingAppointments   = "Appointments"
	HeadingMedicalHistory = "Medical History"
	HeadingNotes          = "Notes"
	HeadingCarePlan       = "Care Plan"
)

// Headings is the sibling set any section may be terminated by.
var Headings = []string{
	HeadingMedications,
	HeadingAppointments,
	HeadingNotes,
	HeadingCarePlan,
	HeadingMedicalHistory,
}

func headingPattern(heading string) *regexp.Regexp {
	return regexp.MustCompile(`(?im)^[ \t]*` + regexp.QuoteMeta(heading) + `[ \t]*:?[ \t]*$`)
}

// FindSection returns the trimmed text between the first line consisting of
// heading (optionally followed by a colon) and the nearest following line
// that is one of next. Matching is case-insensitive. It returns "" when the
// heading is absent.
func FindSection(text, heading string, next []string) string {
	if text == "" || heading == "" {
		return ""
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")

	loc := headingPattern(heading).FindStringIndex(text)
	if loc == nil {
		return ""
	}
	start, end := loc[1], len(text)

	for _, nh := range next {
		if strings.EqualFold(nh, heading) {
			continue
		}
		m := headingPattern(nh).FindStringIndex(text[start:])
		if m != nil && start+m[0] < end {
			end = start + m[0]
		}
	}
	return strings.TrimSpace(text[start:end])
}
