package outreach

import (
	"context"
	"time"

	"igleads/pkg/extract"
	"igleads/pkg/ledger"
	"igleads/pkg/logger"
	"igleads/pkg/retry"
)

// MessageGenerator produces outreach copy for one account.
type MessageGenerator interface {
	Generate(ctx context.Context, username, fullName, bio string) extract.Message
}

// Sender delivers one email.
type Sender interface {
	Send(to, subject, body string) error
}

// Stats summarizes one outreach run.
type Stats struct {
	EmailsSent  int
	DMsPrepared int
	Failures    int
}

// Runner contacts qualified accounts: influencers with an email get a
// generated email, influencers without one get a direct message drafted
// and recorded for manual delivery.
type Runner struct {
	ledger    *ledger.Ledger
	sender    Sender
	generator MessageGenerator
	sendDelay time.Duration
	logger    logger.Logger
}

// NewRunner creates a Runner. sendDelay spaces out deliveries to stay
// under provider sending limits.
func NewRunner(l *ledger.Ledger, sender Sender, generator MessageGenerator, sendDelay time.Duration) *Runner {
	return &Runner{
		ledger:    l,
		sender:    sender,
		generator: generator,
		sendDelay: sendDelay,
		logger:    logger.GetLogger(),
	}
}

// Run contacts every influencer not yet reached. A single failed delivery
// is counted and skipped; the account stays uncontacted for the next run.
// The stop check is consulted between accounts.
func (r *Runner) Run(ctx context.Context, stop func() bool) (Stats, error) {
	var stats Stats

	uncontacted, err := r.ledger.Uncontacted()
	if err != nil {
		return stats, err
	}

	for i, rec := range uncontacted {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if stop != nil && stop() {
			r.logger.Info("stop requested, ending outreach early")
			return stats, nil
		}

		bio := ""
		if rec.Bio != nil {
			bio = *rec.Bio
		}
		msg := r.generator.Generate(ctx, rec.Username, rec.FullName, bio)

		if err := r.sender.Send(*rec.Email, msg.Subject, msg.Body); err != nil {
			stats.Failures++
			continue
		}
		if err := r.ledger.MarkEmailSent(rec.Username, msg.Subject, msg.Body); err != nil {
			return stats, err
		}
		stats.EmailsSent++

		if r.sendDelay > 0 && i < len(uncontacted)-1 {
			if err := retry.Wait(ctx, r.sendDelay); err != nil {
				return stats, err
			}
		}
	}

	dms, err := r.prepareDMs(ctx, stop)
	stats.DMsPrepared = dms
	if err != nil {
		return stats, err
	}

	r.logger.InfoWithFields("outreach run complete", map[string]interface{}{
		"emails_sent":  stats.EmailsSent,
		"dms_prepared": stats.DMsPrepared,
		"failures":     stats.Failures,
	})
	return stats, nil
}

// prepareDMs drafts direct messages for influencers that have no email to
// write to. The drafts are stored on the account for manual sending.
func (r *Runner) prepareDMs(ctx context.Context, stop func() bool) (int, error) {
	influencers, err := r.ledger.Influencers(false)
	if err != nil {
		return 0, err
	}

	prepared := 0
	for _, rec := range influencers {
		if err := ctx.Err(); err != nil {
			return prepared, err
		}
		if stop != nil && stop() {
			return prepared, nil
		}
		if rec.Email != nil || rec.DMSent {
			continue
		}

		bio := ""
		if rec.Bio != nil {
			bio = *rec.Bio
		}
		msg := r.generator.Generate(ctx, rec.Username, rec.FullName, bio)
		if err := r.ledger.MarkDMSent(rec.Username, msg.Body); err != nil {
			return prepared, err
		}
		prepared++
	}
	return prepared, nil
}
