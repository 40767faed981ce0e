package mailer

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/backoffice/internal/metrics"
)

// DefaultFrom is the sender used when neither the message, SMTP_FROM nor
// SMTP_USER provide one.
const DefaultFrom = "noreply@localhost"

// Config is the SMTP connection configuration read from the environment.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// Validate reports ErrConfigurationMissing naming every absent required field.
func (c Config) Validate() error {
	var missing []string
	if c.Host == "" {
		missing = append(missing, "SMTP_HOST")
	}
	if c.Port <= 0 {
		missing = append(missing, "SMTP_PORT")
	}
	if c.User == "" {
		missing = append(missing, "SMTP_USER")
	}
	if c.Password == "" {
		missing = append(missing, "SMTP_PASS")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrConfigurationMissing, strings.Join(missing, ", "))
	}
	return nil
}

// Message is a single outbound email. Text defaults to HTML with tags
// stripped, From to the configured sender.
type Message struct {
	To      []string
	Subject string
	HTML    string
	Text    string
	From    string
}

// Reachability values reported by Transport.Status.
const (
	StatusDisabled    = "disabled"
	StatusUnknown     = "unknown"
	StatusOK          = "ok"
	StatusUnreachable = "unreachable"
)

// dialer is satisfied by *gomail.Dialer.
type dialer interface {
	Dial() (gomail.SendCloser, error)
}

// Transport owns the SMTP client and delivers one message per Send call.
// It starts unconfigured; Initialize with a complete Config enables it.
type Transport struct {
	log *zap.SugaredLogger

	mu     sync.RWMutex
	cfg    Config
	dialer dialer
	status string
}

func NewTransport(log *zap.SugaredLogger) *Transport {
	return &Transport{log: log.Named("mailer")}
}

// Initialize binds the transport to cfg. An incomplete cfg only logs a
// warning: an unconfigured transport stays unconfigured and a configured one
// keeps its current dialer.
func (t *Transport) Initialize(cfg Config) {
	if err := cfg.Validate(); err != nil {
		if t.Configured() {
			t.log.Warnw("SMTP configuration incomplete, keeping current transport", "host", t.Host(), "error", err)
			return
		}
		t.log.Warnw("SMTP configuration incomplete, email notifications disabled", "error", err)
		return
	}

	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)

	t.mu.Lock()
	t.cfg = cfg
	t.dialer = d
	t.status = StatusUnknown
	t.mu.Unlock()

	t.log.Infow("SMTP transport initialized",
		"host", cfg.Host,
		"port", cfg.Port,
		"user", cfg.User,
		"implicitTLS", d.SSL)
}

// Configured reports whether Initialize succeeded.
func (t *Transport) Configured() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.dialer != nil
}

// Host returns the configured SMTP host, or empty when unconfigured.
func (t *Transport) Host() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.cfg.Host
}

// Status returns the SMTP reachability seen by the last Verify or Send,
// without opening a connection. It is StatusUnknown until one of them ran.
func (t *Transport) Status() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.dialer == nil {
		return StatusDisabled
	}
	return t.status
}

// record stores the reachability observed through d. A result from a dialer
// replaced by Initialize in the meantime is dropped.
func (t *Transport) record(d dialer, status string) {
	t.mu.Lock()
	if t.dialer == d {
		t.status = status
	}
	t.mu.Unlock()
}

// Verify performs a connect, EHLO and AUTH handshake. It never returns an
// error; failures are logged and reported as false.
func (t *Transport) Verify(ctx context.Context) bool {
	t.mu.RLock()
	d := t.dialer
	host := t.cfg.Host
	t.mu.RUnlock()

	if d == nil {
		return false
	}
	if err := ctx.Err(); err != nil {
		t.log.Warnw("SMTP verification skipped", "host", host, "error", err)
		return false
	}

	s, err := d.Dial()
	if err != nil {
		t.record(d, StatusUnreachable)
		t.log.Errorw("SMTP verification failed", "host", host, "error", newDeliveryError(dialCommand(err), err))
		return false
	}
	if err := s.Close(); err != nil {
		t.log.Debugw("SMTP verification close failed", "host", host, "error", err)
	}
	t.record(d, StatusOK)
	t.log.Infow("SMTP connection verified", "host", host)
	return true
}

// Send delivers msg in a single attempt.
func (t *Transport) Send(ctx context.Context, msg Message) error {
	t.mu.RLock()
	d := t.dialer
	cfg := t.cfg
	t.mu.RUnlock()

	if d == nil {
		metrics.MailNotConfigured.Inc()
		return ErrTransportNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("mailer: send aborted: %w", err)
	}

	env := prepare(cfg, msg)
	m := env.build()

	s, err := d.Dial()
	if err != nil {
		t.record(d, StatusUnreachable)
		metrics.MailSendFailure.WithLabelValues(cfg.Host).Inc()
		return newDeliveryError(dialCommand(err), err)
	}
	defer s.Close()
	t.record(d, StatusOK)

	if err := s.Send(env.from, env.to, m); err != nil {
		metrics.MailSendFailure.WithLabelValues(cfg.Host).Inc()
		return newDeliveryError(CommandSend, err)
	}

	metrics.MailSendSuccess.WithLabelValues(cfg.Host).Inc()
	t.log.Debugw("mail sent", "receivers", len(env.to), "subject", env.subject)
	return nil
}

// envelope is a Message with every default resolved.
type envelope struct {
	from    string
	to      []string
	subject string
	html    string
	text    string
}

func prepare(cfg Config, msg Message) envelope {
	from := msg.From
	if from == "" {
		from = cfg.From
	}
	if from == "" {
		from = cfg.User
	}
	if from == "" {
		from = DefaultFrom
	}

	text := msg.Text
	if text == "" {
		text = StripTags(msg.HTML)
	}

	// Strip CR/LF from subject to prevent header injection.
	subject := strings.NewReplacer("\r", "", "\n", "").Replace(msg.Subject)

	return envelope{
		from:    from,
		to:      msg.To,
		subject: subject,
		html:    msg.HTML,
		text:    text,
	}
}

func (e envelope) toHeader() string {
	return strings.Join(e.to, ", ")
}

func (e envelope) build() *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", e.from)
	m.SetHeader("To", e.toHeader())
	m.SetHeader("Subject", e.subject)
	m.SetBody("text/plain", e.text)
	m.AddAlternative("text/html", e.html)
	return m
}
