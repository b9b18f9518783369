package notify

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// PendingLister is implemented by the connection ledger repository.
type PendingLister interface {
	PendingReviewerEmails(ctx context.Context, from, to time.Time) ([]string, error)
}

// Reminder periodically mails users who received interest the previous day
// and have not reviewed it yet.
type Reminder struct {
	lister   PendingLister
	notifier Notifier
	interval time.Duration
	log      zerolog.Logger
}

func NewReminder(lister PendingLister, notifier Notifier, interval time.Duration, log zerolog.Logger) *Reminder {
	return &Reminder{
		lister:   lister,
		notifier: notifier,
		interval: interval,
		log:      log,
	}
}

// Run blocks until ctx is cancelled. Failures are logged and the next tick
// proceeds normally.
func (r *Reminder) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.runOnce(ctx)
		}
	}
}

func (r *Reminder) runOnce(ctx context.Context) {
	now := time.Now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	from := dayStart.AddDate(0, 0, -1)
	to := dayStart

	emails, err := r.lister.PendingReviewerEmails(ctx, from, to)
	if err != nil {
		r.log.Error().Err(err).Msg("reminder: listing pending requests failed")
		return
	}
	if len(emails) == 0 {
		return
	}

	counts := make(map[string]int, len(emails))
	for _, email := range emails {
		counts[email]++
	}

	for email, pending := range counts {
		if err := r.notifier.PendingReminder(ctx, email, pending); err != nil {
			r.log.Error().Err(err).Str("to", email).Msg("reminder delivery failed")
		}
	}
	r.log.Info().Int("recipients", len(counts)).Msg("reminder run complete")
}
