package extract

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/AryanC19/Greeno-BE/internal/domain/careplan"
	"github.com/AryanC19/Greeno-BE/internal/platform/pdftext"
	"github.com/AryanC19/Greeno-BE/internal/platform/pdftext/pdftexttest"
)

func TestFindSection(t *testing.T) {
	text := "Patient: Jane\nMedications:\n- Metformin\n- Lisinopril\nAppointments\n- Cardiology follow-up\nNotes:\nrest well"

	tests := []struct {
		name    string
		text    string
		heading string
		want    string
	}{
		{"medications", text, HeadingMedications, "- Metformin\n- Lisinopril"},
		{"appointments stops at notes", text, HeadingAppointments, "- Cardiology follow-up"},
		{"case insensitive", strings.ToUpper(text), HeadingNotes, "REST WELL"},
		{"absent", text, HeadingMedicalHistory, ""},
		{"empty input", "", HeadingMedications, ""},
		{"heading mid paragraph ignored", "Take your Medications daily\nNotes:\nx", HeadingMedications, ""},
		{"runs to end", "Medical History:\nasthma since 2010\n", HeadingMedicalHistory, "asthma since 2010"},
		{"earlier sibling does not terminate", "Appointments:\nA\nMedications:\nB", HeadingMedications, "B"},
		{"crlf", "Medications:\r\n- A\r\nNotes:\r\nx", HeadingMedications, "- A"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FindSection(tt.text, tt.heading, Headings)
			if got != tt.want {
				t.Errorf("FindSection() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFindSection_FirstOccurrenceOnly(t *testing.T) {
	text := "Medications:\nA\nNotes:\nn\nMedications:\nB"
	if got := FindSection(text, HeadingMedications, Headings); got != "A" {
		t.Errorf("expected first occurrence, got %q", got)
	}
}

func TestSplitBlocks(t *testing.T) {
	tests := []struct {
		name    string
		section string
		want    []string
	}{
		{"consecutive bullets", "- item1\n- item2", []string{"- item1", "- item2"}},
		{"numbered", "1. first\n2. second", []string{"1. first", "2. second"}},
		{"continuation", "• Metformin\nDose: 500mg\n• Aspirin", []string{"• Metformin\nDose: 500mg", "• Aspirin"}},
		{"blank line separates", "Metformin\n\nAspirin", []string{"Metformin", "Aspirin"}},
		{"whitespace only", "  \n\t\n", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitBlocks(tt.section)
			if len(got) != len(tt.want) {
				t.Fatalf("SplitBlocks() = %q, want %q", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("block %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestCleanPrefix(t *testing.T) {
	tests := map[string]string{
		"- item1":         "item1",
		"• Metformin":     "Metformin",
		"3. Aspirin":      "Aspirin",
		"* - Vitamin D":   "Vitamin D",
		"500mg Metformin": "500mg Metformin",
		"  plain  ":       "plain",
	}
	for in, want := range tests {
		if got := CleanPrefix(in); got != want {
			t.Errorf("CleanPrefix(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseSchedule(t *testing.T) {
	tests := []struct {
		value string
		want  []string
	}{
		{"Morning, Night", []string{"morning", "night"}},
		{"morning; evening / night", []string{"morning", "evening", "night"}},
		{"after breakfast, at bedtime", []string{"morning", "night"}},
		{"morning, Morning", []string{"morning"}},
		{"twice daily", []string{"twice daily"}},
		{"8 AM, 8 PM", []string{"8 am", "8 pm"}},
		{"8  AM; 8 am", []string{"8 am"}},
		{"with breakfast, 10 PM", []string{"morning", "10 pm"}},
		{"", []string{"unspecified"}},
		{" ; , ", []string{"unspecified"}},
	}

	for _, tt := range tests {
		got := ParseSchedule(tt.value)
		if len(got) != len(tt.want) {
			t.Fatalf("ParseSchedule(%q) = %+v, want %v", tt.value, got, tt.want)
		}
		for i, e := range got {
			if e.Time != tt.want[i] {
				t.Errorf("ParseSchedule(%q)[%d] = %q, want %q", tt.value, i, e.Time, tt.want[i])
			}
			if e.Taken != nil {
				t.Errorf("ParseSchedule(%q)[%d] taken should be unset", tt.value, i)
			}
		}
	}
}

func TestParseMedication_ClockTimesKeepEveryDose(t *testing.T) {
	med, ok := ParseMedication("Aspirin\nTime: 8 AM, 8 PM")
	if !ok {
		t.Fatal("expected medication")
	}
	if len(med.Schedule) != 2 {
		t.Fatalf("expected 2 schedule entries, got %+v", med.Schedule)
	}
	if med.Schedule[0].Time != "8 am" || med.Schedule[1].Time != "8 pm" {
		t.Errorf("unexpected schedule %+v", med.Schedule)
	}
}

func TestParseMedication_Labels(t *testing.T) {
	block := "- Medicine: Metformin\nDose: 500mg\nTime: morning, night\nDuration: 30 days"
	med, ok := ParseMedication(block)
	if !ok {
		t.Fatal("expected medication")
	}
	if med.Name != "Metformin" {
		t.Errorf("expected name Metformin, got %q", med.Name)
	}
	if med.Dose == nil || *med.Dose != "500mg" {
		t.Errorf("unexpected dose: %v", med.Dose)
	}
	if med.Duration == nil || *med.Duration != "30 days" {
		t.Errorf("unexpected duration: %v", med.Duration)
	}
	if len(med.Schedule) != 2 || med.Schedule[0].Time != "morning" || med.Schedule[1].Time != "night" {
		t.Errorf("unexpected schedule: %+v", med.Schedule)
	}
	if med.ID == "" {
		t.Error("expected generated id")
	}
}

func TestParseMedication_FirstLineFallback(t *testing.T) {
	med, ok := ParseMedication("• Aspirin 75mg Dose: 1 tablet")
	if !ok {
		t.Fatal("expected medication")
	}
	if med.Name != "Aspirin 75mg" {
		t.Errorf("expected fallback name, got %q", med.Name)
	}
	if med.Dose != nil {
		t.Errorf("inline dose is not a line label, got %q", *med.Dose)
	}
	if len(med.Schedule) != 1 || med.Schedule[0].Time != careplan.TimeUnspecified {
		t.Errorf("expected single unspecified entry, got %+v", med.Schedule)
	}
}

func TestParseMedication_LabelNotMidLine(t *testing.T) {
	med, _ := ParseMedication("Ibuprofen as needed. Take with food. Time: never")
	if med.Schedule[0].Time != careplan.TimeUnspecified {
		t.Errorf("label in the middle of a line must not match, got %+v", med.Schedule)
	}
}

func TestParseMedication_EmptyName(t *testing.T) {
	if _, ok := ParseMedication("- "); ok {
		t.Error("expected block without a name to be skipped")
	}
}

func TestParseMedications_CountAndUniqueIDs(t *testing.T) {
	section := "- Metformin\n- Lisinopril\n- Aspirin\n- Atorvastatin"
	meds := ParseMedications(section)
	if len(meds) != 4 {
		t.Fatalf("expected 4 medications, got %d", len(meds))
	}
	seen := make(map[string]bool)
	for _, m := range meds {
		if m.ID == "" || seen[m.ID] {
			t.Errorf("expected unique non-empty id, got %q", m.ID)
		}
		seen[m.ID] = true
	}
}

func TestParseAppointments(t *testing.T) {
	appts := ParseAppointments("- Cardiology follow-up in 2 weeks\n- Blood test")
	if len(appts) != 2 {
		t.Fatalf("expected 2 appointments, got %d", len(appts))
	}
	if appts[0].Type != "Cardiology follow-up in 2 weeks" {
		t.Errorf("unexpected type %q", appts[0].Type)
	}
	for _, a := range appts {
		if a.Status != careplan.StatusPending {
			t.Errorf("expected pending, got %q", a.Status)
		}
		if a.ProposedSlot != nil {
			t.Error("expected no proposed slot")
		}
	}
}

func TestParseAppointments_LineFallback(t *testing.T) {
	appts := ParseAppointments("Dermatology review\nEye exam\n\nPhysiotherapy")
	if len(appts) != 3 {
		t.Fatalf("expected one appointment per line, got %d", len(appts))
	}
	if appts[1].Type != "Eye exam" {
		t.Errorf("unexpected type %q", appts[1].Type)
	}
}

func TestBuild(t *testing.T) {
	pages := []string{
		"Care Plan\nMedications:\n- Medicine: Metformin\n  Dose: 500mg\n  Time: morning",
		"",
		"- Lisinopril\nAppointments:\n- Cardiology check\nMedical History:\nType 2 diabetes",
	}
	cp := NewBuilder(pdftext.Static(nil)).Build(pages, "p-1")

	if cp.ID == "" || cp.PatientID != "p-1" {
		t.Errorf("unexpected identity: id=%q patient=%q", cp.ID, cp.PatientID)
	}
	if len(cp.Medications) != 2 {
		t.Fatalf("expected 2 medications, got %d", len(cp.Medications))
	}
	if len(cp.Appointments) != 1 {
		t.Fatalf("expected 1 appointment, got %d", len(cp.Appointments))
	}
	if cp.MedicalHistory == nil || *cp.MedicalHistory != "Type 2 diabetes" {
		t.Errorf("unexpected medical history: %v", cp.MedicalHistory)
	}
	if len(cp.ReminderSlots) != 4 {
		t.Errorf("expected 4 reminder slots, got %d", len(cp.ReminderSlots))
	}
	if cp.CreatedAt.IsZero() {
		t.Error("expected created_at")
	}
}

func TestBuild_NoSections(t *testing.T) {
	cp := NewBuilder(pdftext.Static(nil)).Build([]string{"just some text"}, "p-1")
	if cp.Medications == nil || len(cp.Medications) != 0 {
		t.Errorf("expected empty medications, got %v", cp.Medications)
	}
	if cp.Appointments == nil || len(cp.Appointments) != 0 {
		t.Errorf("expected empty appointments, got %v", cp.Appointments)
	}
	if cp.MedicalHistory != nil {
		t.Error("expected medical history unset")
	}
}

type failingPages struct{}

func (failingPages) Pages(context.Context, []byte) ([]string, error) {
	return nil, pdftext.ErrUnreadable
}

func TestExtract(t *testing.T) {
	b := NewBuilder(pdftext.Static{"Medications:\n- Metformin"})
	cp, err := b.Extract(context.Background(), []byte("%PDF"), "p-2")
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}
	if len(cp.Medications) != 1 || cp.PatientID != "p-2" {
		t.Errorf("unexpected plan: %+v", cp)
	}

	_, err = NewBuilder(failingPages{}).Extract(context.Background(), []byte("x"), "p-2")
	if !errors.Is(err, pdftext.ErrUnreadable) {
		t.Errorf("expected ErrUnreadable, got %v", err)
	}
}

func TestExtract_PDFDocument(t *testing.T) {
	doc := pdftexttest.Build([]string{
		"Care Plan",
		"Medications:",
		"- Metformin",
		"Dose: 500mg",
		"Time: 8 AM, 8 PM",
		"- Lisinopril",
		"Appointments:",
		"- Cardiology follow-up",
		"Medical History:",
		"Type 2 diabetes",
	})

	cp, err := NewBuilder(pdftext.New()).Extract(context.Background(), doc, "p-3")
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}
	if len(cp.Medications) != 2 {
		t.Fatalf("expected 2 medications, got %+v", cp.Medications)
	}
	met := cp.Medications[0]
	if met.Name != "Metformin" || met.Dose == nil || *met.Dose != "500mg" {
		t.Errorf("unexpected first medication %+v", met)
	}
	if len(met.Schedule) != 2 {
		t.Errorf("expected 2 schedule entries, got %+v", met.Schedule)
	}
	if cp.Medications[1].Name != "Lisinopril" {
		t.Errorf("unexpected second medication %q", cp.Medications[1].Name)
	}
	if len(cp.Appointments) != 1 || cp.Appointments[0].Type != "Cardiology follow-up" {
		t.Errorf("unexpected appointments %+v", cp.Appointments)
	}
	if cp.MedicalHistory == nil || *cp.MedicalHistory != "Type 2 diabetes" {
		t.Errorf("unexpected medical history %v", cp.MedicalHistory)
	}
}

func TestBuild_RoundTripThroughRepository(t *testing.T) {
	pages := []string{"Medications:\n- Metformin\n  Time: morning, night\n- Aspirin\nAppointments:\n- Cardiology check\n- Eye exam"}
	built := NewBuilder(pdftext.Static(nil)).Build(pages, "p-1")

	repo := careplan.NewMemoryRepo()
	if err := repo.Create(context.Background(), built); err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	got, err := repo.GetActiveByPatient(context.Background(), "p-1")
	if err != nil {
		t.Fatalf("GetActiveByPatient() error: %v", err)
	}

	if got.ID != built.ID || len(got.Medications) != len(built.Medications) {
		t.Fatalf("round trip changed the plan: %+v", got)
	}
	for i, m := range got.Medications {
		want := built.Medications[i]
		if m.ID != want.ID || len(m.Schedule) != len(want.Schedule) {
			t.Errorf("medication %d differs: %+v vs %+v", i, m, want)
		}
		for j := range m.Schedule {
			if m.Schedule[j].Time != want.Schedule[j].Time {
				t.Errorf("schedule %d/%d: %s vs %s", i, j, m.Schedule[j].Time, want.Schedule[j].Time)
			}
		}
	}
	for i, a := range got.Appointments {
		if a.Status != careplan.StatusPending || a.ID != built.Appointments[i].ID {
			t.Errorf("appointment %d differs: %+v", i, a)
		}
	}
}
