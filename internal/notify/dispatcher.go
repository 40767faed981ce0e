// Package notify turns back-office business events into emails addressed to
// the active admin and moderator pool.
package notify

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/backoffice/internal/mailer"
	"github.com/backoffice/internal/metrics"
	"github.com/backoffice/internal/model"
)

// Directory lists candidate recipients. Implementations should return only
// active admins and moderators; the dispatcher filters again regardless.
type Directory interface {
	ListNotifiable(ctx context.Context) ([]model.AdminUser, error)
}

// Sender delivers one message. *mailer.Transport satisfies it.
type Sender interface {
	Send(ctx context.Context, msg mailer.Message) error
}

// Dispatch outcomes, as counted by metrics.Notifications.
const (
	OutcomeSent         = "sent"
	OutcomeNoRecipients = "no_recipients"
	OutcomeRenderFailed = "render_failed"
	OutcomeSendFailed   = "send_failed"
	OutcomePanic        = "panic"
)

var noRecipientCauses = []string{
	"no active admin or moderator users exist",
	"eligible users have no email address",
	"eligible users turned email notifications off",
}

type Dispatcher struct {
	users     Directory
	sender    Sender
	clientURL string
	log       *zap.SugaredLogger
}

func New(users Directory, sender Sender, clientURL string, log *zap.SugaredLogger) *Dispatcher {
	clientURL = strings.TrimRight(clientURL, "/")
	if clientURL == "" {
		clientURL = DefaultClientURL
	}
	return &Dispatcher{
		users:     users,
		sender:    sender,
		clientURL: clientURL,
		log:       log.Named("notify"),
	}
}

// ResolveRecipients returns the addresses of every eligible user that has not
// opted out, in directory order. A directory failure yields an empty list.
// kind does not change the pool; every event goes to the same users.
func (d *Dispatcher) ResolveRecipients(ctx context.Context, kind model.EventKind) []string {
	users, err := d.users.ListNotifiable(ctx)
	if err != nil {
		d.log.Errorw("failed to load notification recipients", "kind", kind, "error", err)
		return []string{}
	}

	recipients := make([]string, 0, len(users))
	for _, u := range users {
		if !u.Eligible() || !u.EmailNotificationsEnabled() {
			continue
		}
		email := strings.TrimSpace(u.Email)
		if email == "" {
			d.log.Warnw("skipping recipient without email address", "kind", kind, "userId", u.ID)
			continue
		}
		recipients = append(recipients, email)
	}
	return recipients
}

func (d *Dispatcher) NotifyNewJobApplication(ctx context.Context, a model.JobApplication) {
	d.withIsolation(ctx, model.KindJobApplication,
		[]any{"applicant", a.FullName, "position", a.PositionOrDefault()},
		func() (Email, error) { return RenderJobApplication(d.clientURL, a) })
}

func (d *Dispatcher) NotifyNewLead(ctx context.Context, l model.Lead) {
	d.withIsolation(ctx, model.KindLead,
		[]any{"lead", l.Name, "service", l.Service},
		func() (Email, error) { return RenderLead(d.clientURL, l) })
}

func (d *Dispatcher) NotifyNewReview(ctx context.Context, r model.Review) {
	d.withIsolation(ctx, model.KindReview,
		[]any{"reviewer", r.ReviewerName, "company", r.Company, "rating", r.Rating},
		func() (Email, error) { return RenderReview(d.clientURL, r) })
}

func (d *Dispatcher) NotifySystemAlert(ctx context.Context, a model.SystemAlert) {
	d.withIsolation(ctx, model.KindSystemAlert,
		[]any{"title", a.Title, "severity", string(a.Severity)},
		func() (Email, error) { return RenderSystemAlert(d.clientURL, a) })
}

// withIsolation runs one dispatch and absorbs every failure beneath it,
// panics included. Nothing it does is visible to the caller except latency.
// The dispatch is detached from ctx cancellation: once started it runs to
// completion even if the triggering request goes away.
func (d *Dispatcher) withIsolation(ctx context.Context, kind model.EventKind, fields []any, render func() (Email, error)) {
	ctx = context.WithoutCancel(ctx)
	log := d.log.With("notificationId", uuid.NewString(), "kind", string(kind))

	defer func() {
		if r := recover(); r != nil {
			metrics.Notifications.WithLabelValues(string(kind), OutcomePanic).Inc()
			log.Errorw("notification dispatch panicked",
				"error", fmt.Sprint(r),
				"stack", string(debug.Stack()))
		}
	}()

	log.Infow("dispatching notification", fields...)

	to := d.ResolveRecipients(ctx, kind)
	if len(to) == 0 {
		metrics.Notifications.WithLabelValues(string(kind), OutcomeNoRecipients).Inc()
		log.Warnw("no recipients for notification, nothing sent", "possibleCauses", noRecipientCauses)
		return
	}

	email, err := render()
	if err != nil {
		metrics.Notifications.WithLabelValues(string(kind), OutcomeRenderFailed).Inc()
		log.Errorw("failed to render notification", "error", err)
		return
	}

	if err := d.sender.Send(ctx, mailer.Message{To: to, Subject: email.Subject, HTML: email.HTML}); err != nil {
		metrics.Notifications.WithLabelValues(string(kind), OutcomeSendFailed).Inc()
		log.Errorw("failed to send notification", "recipients", len(to), "error", err)
		return
	}

	metrics.Notifications.WithLabelValues(string(kind), OutcomeSent).Inc()
	log.Infow("notification sent", "recipients", len(to), "subject", email.Subject)
}
