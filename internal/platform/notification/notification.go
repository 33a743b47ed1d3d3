// Package notification renders reminder messages and fans them out to the
// configured senders.
package notification

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/AryanC19/Greeno-BE/internal/platform/middleware"
)

const (
	TemplateMedicationReminder = "medication-reminder"
	TemplateSlotProposed       = "appointment-slot-proposed"
)

// Notification is a single outbound message.
type Notification struct {
	ID         string            `json:"id"`
	Recipient  string            `json:"recipient"`
	Subject    string            `json:"subject,omitempty"`
	Body       string            `json:"body"`
	TemplateID string            `json:"template_id,omitempty"`
	Data       map[string]string `json:"data,omitempty"`
	Status     string            `json:"status"`
	CreatedAt  time.Time         `json:"created_at"`
	SentAt     *time.Time        `json:"sent_at,omitempty"`
	Error      string            `json:"error,omitempty"`
}

// Sender delivers a rendered notification over one channel.
type Sender interface {
	Name() string
	Send(ctx context.Context, n *Notification) error
}

// Template is a reusable message with {{key}} placeholders.
type Template struct {
	ID      string `json:"id"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type TemplateEngine struct {
	mu        sync.RWMutex
	templates map[string]Template
}

func NewTemplateEngine() *TemplateEngine {
	e := &TemplateEngine{templates: make(map[string]Template)}
	e.RegisterTemplate(Template{
		ID:      TemplateMedicationReminder,
		Subject: "Medication reminder ({{slot}})",
		Body:    "It is {{time}}. Time to take your {{slot}} medications: {{medications}}.",
	})
	e.RegisterTemplate(Template{
		ID:      TemplateSlotProposed,
		Subject: "Proposed appointment slot",
		Body:    "We found a slot for '{{appointment}}' with {{doctor}} on {{slot}}. Please confirm or decline.",
	})
	return e
}

// RegisterTemplate adds or replaces a template.
func (e *TemplateEngine) RegisterTemplate(t Template) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.templates[t.ID] = t
}

// Render substitutes data into the template. Unknown placeholders are left as-is.
func (e *TemplateEngine) Render(templateID string, data map[string]string) (subject, body string, err error) {
	e.mu.RLock()
	t, ok := e.templates[templateID]
	e.mu.RUnlock()
	if !ok {
		return "", "", fmt.Errorf("template %q not found", templateID)
	}

	pairs := make([]string, 0, len(data)*2)
	for k, v := range data {
		pairs = append(pairs, "{{"+k+"}}", v)
	}
	r := strings.NewReplacer(pairs...)
	return r.Replace(t.Subject), r.Replace(t.Body), nil
}

// LogSender writes notifications to the structured log.
type LogSender struct {
	logger zerolog.Logger
}

func NewLogSender(logger zerolog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Name() string { return "log" }

func (s *LogSender) Send(_ context.Context, n *Notification) error {
	s.logger.Info().
		Str("notification_id", n.ID).
		Str("recipient", n.Recipient).
		Str("template", n.TemplateID).
		Str("subject", n.Subject).
		Msg(n.Body)
	return nil
}

const historyLimit = 200

// Manager renders templates, sends through every sender and keeps a bounded
// in-memory history.
type Manager struct {
	senders   []Sender
	templates *TemplateEngine

	mu      sync.Mutex
	history []*Notification
}

func NewManager(tpl *TemplateEngine, senders ...Sender) *Manager {
	return &Manager{senders: senders, templates: tpl}
}

// Send delivers n through all senders. The notification is marked sent when
// at least one sender succeeded; every sender error is returned.
func (m *Manager) Send(ctx context.Context, n *Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	n.CreatedAt = time.Now().UTC()
	n.Status = "pending"

	var errs []error
	delivered := 0
	for _, s := range m.senders {
		if err := s.Send(ctx, n); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		delivered++
	}

	sendErr := errors.Join(errs...)
	if delivered > 0 {
		n.Status = "sent"
		sentAt := time.Now().UTC()
		n.SentAt = &sentAt
	} else {
		n.Status = "failed"
	}
	if sendErr != nil {
		n.Error = sendErr.Error()
	}

	m.mu.Lock()
	m.history = append(m.history, n)
	if len(m.history) > historyLimit {
		m.history = m.history[len(m.history)-historyLimit:]
	}
	m.mu.Unlock()

	return sendErr
}

// SendFromTemplate renders templateID with data and sends it to recipient.
func (m *Manager) SendFromTemplate(ctx context.Context, templateID string, data map[string]string, recipient string) (*Notification, error) {
	subject, body, err := m.templates.Render(templateID, data)
	if err != nil {
		return nil, err
	}
	n := &Notification{
		Recipient:  recipient,
		Subject:    subject,
		Body:       body,
		TemplateID: templateID,
		Data:       data,
	}
	return n, m.Send(ctx, n)
}

// Recent returns up to limit notifications for recipient, newest first.
func (m *Manager) Recent(recipient string, limit int) []*Notification {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*Notification, 0)
	for i := len(m.history) - 1; i >= 0 && len(out) < limit; i-- {
		if m.history[i].Recipient == recipient {
			out = append(out, m.history[i])
		}
	}
	return out
}

// Handler exposes the notification history of the calling patient.
type Handler struct {
	manager *Manager
}

func NewHandler(manager *Manager) *Handler {
	return &Handler{manager: manager}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/notifications", h.List)
}

func (h *Handler) List(c echo.Context) error {
	limit := 20
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = n
	}
	if limit > historyLimit {
		limit = historyLimit
	}
	return c.JSON(http.StatusOK, h.manager.Recent(middleware.PatientFromContext(c.Request().Context()), limit))
}
