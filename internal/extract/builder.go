package extract

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/AryanC19/Greeno-BE/internal/domain/careplan"
	"github.com/AryanC19/Greeno-BE/internal/platform/pdftext"
)

func siblingsOf(heading string) []string {
	out := make([]string, 0, len(Headings)-1)
	for _, h := range Headings {
		if h != heading {
			out = append(out, h)
		}
	}
	return out
}

// Builder assembles care plans from documents.
type Builder struct {
	pages pdftext.PageExtractor
	now   func() time.Time
}

func NewBuilder(pages pdftext.PageExtractor) *Builder {
	return &Builder{pages: pages, now: time.Now}
}

// Text joins the non-empty pages of a document with newlines.
func Text(pages []string) string {
	kept := make([]string, 0, len(pages))
	for _, p := range pages {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, strings.ReplaceAll(p, "\r\n", "\n"))
		}
	}
	return strings.Join(kept, "\n")
}

// Build produces a care plan for patientID from page texts. Missing sections
// produce empty collections; Build never fails on content.
func (b *Builder) Build(pages []string, patientID string) *careplan.CarePlan {
	text := Text(pages)

	cp := &careplan.CarePlan{
		ID:            uuid.NewString(),
		PatientID:     patientID,
		Medications:   ParseMedications(FindSection(text, HeadingMedications, siblingsOf(HeadingMedications))),
		Appointments:  ParseAppointments(FindSection(text, HeadingAppointments, siblingsOf(HeadingAppointments))),
		ReminderSlots: careplan.DefaultReminderSlots(),
		CreatedAt:     b.now().UTC(),
	}
	if history := FindSection(text, HeadingMedicalHistory, siblingsOf(HeadingMedicalHistory)); history != "" {
		cp.MedicalHistory = &history
	}
	cp.Normalize()
	return cp
}

// Extract reads the pages of content and builds a care plan from them. A
// document without text yields an empty plan.
func (b *Builder) Extract(ctx context.Context, content []byte, patientID string) (*careplan.CarePlan, error) {
	pages, err := b.pages.Pages(ctx, content)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	return b.Build(pages, patientID), nil
}
