package extract

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"github.com/AryanC19/Greeno-BE/internal/domain/careplan"
)

// fieldRule reads one medication field from a block. Rules run in order and a
// rule never overwrites a field an earlier match already set.
type fieldRule struct {
	pattern *regexp.Regexp
	apply   func(m *careplan.Medication, value string)
}

func labelRule(apply func(m *careplan.Medication, value string), labels ...string) fieldRule {
	quoted := make([]string, len(labels))
	for i, l := range labels {
		quoted[i] = regexp.QuoteMeta(l)
	}
	return fieldRule{
		pattern: regexp.MustCompile(`(?im)^[ \t]*(?:` + strings.Join(quoted, "|") + `)[ \t]*[:\-][ \t]*(.+)$`),
		apply:   apply,
	}
}

var nameLabels = []string{"Medicine", "Medication", "Name"}

var medicationRules = []fieldRule{
	labelRule(func(m *careplan.Medication, v string) {
		if m.Name == "" {
			m.Name = v
		}
	}, nameLabels...),
	labelRule(func(m *careplan.Medication, v string) {
		if m.Dose == nil {
			m.Dose = &v
		}
	}, "Dose", "Dosage"),
	labelRule(func(m *careplan.Medication, v string) {
		if len(m.Schedule) == 0 {
			m.Schedule = ParseSchedule(v)
		}
	}, "Time", "When to take", "Timing", "Frequency"),
	labelRule(func(m *careplan.Medication, v string) {
		if m.Duration == nil {
			m.Duration = &v
		}
	}, "Duration", "For how long", "Days", "Weeks", "Months"),
}

var (
	nameLabelPrefix = regexp.MustCompile(`(?i)^(?:` + strings.Join(nameLabels, "|") + `)[ \t]*[:\-]?[ \t]*`)
	doseWord        = regexp.MustCompile(`(?i)\bDose\b`)
	scheduleSep     = regexp.MustCompile(`[;,/]+`)
)

// firstLineName is the fallback name: the block's first line without a name
// label, cut before any inline "Dose".
func firstLineName(block string) string {
	line, _, _ := strings.Cut(block, "\n")
	line = nameLabelPrefix.ReplaceAllString(strings.TrimSpace(line), "")
	if loc := doseWord.FindStringIndex(line); loc != nil {
		line = line[:loc[0]]
	}
	return strings.TrimRight(strings.TrimSpace(line), " -–—:,;")
}

var timeSynonyms = map[string]string{
	"breakfast": careplan.TimeMorning,
	"noon":      careplan.TimeAfternoon,
	"lunch":     careplan.TimeAfternoon,
	"dinner":    careplan.TimeEvening,
	"supper":    careplan.TimeEvening,
	"bedtime":   careplan.TimeNight,
}

// NormalizeTime maps a free-text timing token onto a time-of-day label. The
// first word that names a label, directly or through a synonym, decides.
// Tokens naming no label are kept lowercased with inner spacing collapsed, so
// "8 AM" stays "8 am".
func NormalizeTime(token string) string {
	lower := strings.ToLower(token)
	words := strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	for _, w := range words {
		if careplan.IsTimeOfDay(w) {
			return w
		}
		if label, ok := timeSynonyms[w]; ok {
			return label
		}
	}
	if raw := strings.Join(strings.Fields(lower), " "); raw != "" {
		return raw
	}
	return careplan.TimeUnspecified
}

// ParseSchedule splits a timing value on ";", "," and "/" and returns one
// untaken entry per token. Tokens resolving to the same time collapse into one
// entry, which keeps (medication, time) unique. An empty value yields a single
// unspecified entry.
func ParseSchedule(value string) []careplan.ScheduleEntry {
	var (
		entries []careplan.ScheduleEntry
		seen    = make(map[string]bool)
	)
	for _, tok := range scheduleSep.Split(value, -1) {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		label := NormalizeTime(tok)
		if seen[label] {
			continue
		}
		seen[label] = true
		entries = append(entries, careplan.ScheduleEntry{Time: label})
	}
	if len(entries) == 0 {
		entries = []careplan.ScheduleEntry{{Time: careplan.TimeUnspecified}}
	}
	return entries
}

// ParseMedication reads a single medication block. ok is false when no name
// can be found.
func ParseMedication(block string) (med careplan.Medication, ok bool) {
	block = CleanPrefix(block)
	for _, rule := range medicationRules {
		if m := rule.pattern.FindStringSubmatch(block); m != nil {
			if v := strings.TrimSpace(m[1]); v != "" {
				rule.apply(&med, v)
			}
		}
	}
	if med.Name == "" {
		med.Name = firstLineName(block)
	}
	if med.Name == "" {
		return med, false
	}
	if len(med.Schedule) == 0 {
		med.Schedule = []careplan.ScheduleEntry{{Time: careplan.TimeUnspecified}}
	}
	med.ID = uuid.NewString()
	return med, true
}

// ParseMedications reads every block of a Medications section.
func ParseMedications(section string) []careplan.Medication {
	meds := []careplan.Medication{}
	for _, block := range SplitBlocks(section) {
		if med, ok := ParseMedication(block); ok {
			meds = append(meds, med)
		}
	}
	return meds
}

// ParseAppointments reads an Appointments section. Each block becomes one
// pending appointment whose type is the cleaned block text. When no line
// carries a list marker, every non-blank line is an appointment of its own.
func ParseAppointments(section string) []careplan.Appointment {
	appts := []careplan.Appointment{}
	if strings.TrimSpace(section) == "" {
		return appts
	}

	var blocks []string
	if hasListMarkers(section) {
		blocks = SplitBlocks(section)
	} else {
		for _, line := range strings.Split(section, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				blocks = append(blocks, line)
			}
		}
	}

	for _, block := range blocks {
		kind := CleanPrefix(block)
		if kind == "" {
			continue
		}
		appts = append(appts, careplan.Appointment{
			ID:     uuid.NewString(),
			Type:   kind,
			Status: careplan.StatusPending,
		})
	}
	return appts
}

func hasListMarkers(section string) bool {
	for _, line := range strings.Split(section, "\n") {
		if StartsListItem(strings.TrimSpace(line)) {
			return true
		}
	}
	return false
}
