package careplan

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/AryanC19/Greeno-BE/internal/platform/notification"
)

// ReminderNotifier polls a patient's reminder slots and sends a medication
// reminder when a slot's time matches the current minute. Each slot fires at
// most once per minute however often the notifier polls.
type ReminderNotifier struct {
	svc       *Service
	sender    TemplateSender
	patientID string
	interval  time.Duration
	logger    zerolog.Logger
	now       func() time.Time

	mu    sync.Mutex
	fired map[string]string
}

func NewReminderNotifier(svc *Service, sender TemplateSender, patientID string, interval time.Duration, logger zerolog.Logger) *ReminderNotifier {
	return &ReminderNotifier{
		svc:       svc,
		sender:    sender,
		patientID: patientID,
		interval:  interval,
		logger:    logger.With().Str("component", "reminder-notifier").Logger(),
		now:       time.Now,
		fired:     make(map[string]string),
	}
}

// Run polls until ctx is cancelled.
func (n *ReminderNotifier) Run(ctx context.Context) {
	ticker := time.NewTicker(n.interval)
	defer ticker.Stop()

	n.logger.Info().Dur("interval", n.interval).Str("patient_id", n.patientID).Msg("reminder notifier started")
	n.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			n.logger.Info().Msg("reminder notifier stopped")
			return
		case <-ticker.C:
			n.Tick(ctx)
		}
	}
}

// Tick checks the slots once and returns how many reminders were sent.
func (n *ReminderNotifier) Tick(ctx context.Context) int {
	slots, err := n.svc.Reminders(ctx, n.patientID)
	if err != nil {
		n.logger.Error().Err(err).Msg("load reminder slots")
		return 0
	}

	now := n.now()
	clock := now.Format("15:04")
	minute := now.Format("2006-01-02 15:04")

	n.mu.Lock()
	defer n.mu.Unlock()

	sent := 0
	for _, label := range ReminderLabels {
		v := slots[label]
		if v.Time == nil || *v.Time != clock || len(v.Medications) == 0 {
			continue
		}
		if n.fired[label] == minute {
			continue
		}
		n.fired[label] = minute

		_, err := n.sender.SendFromTemplate(ctx, notification.TemplateMedicationReminder, map[string]string{
			"slot":        label,
			"time":        clock,
			"medications": strings.Join(v.Medications, ", "),
		}, n.patientID)
		if err != nil {
			n.logger.Warn().Err(err).Str("slot", label).Msg("reminder delivery failed")
			continue
		}
		sent++
	}
	return sent
}
