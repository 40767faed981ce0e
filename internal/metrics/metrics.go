package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Mail metrics
	MailSendSuccess = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "backoffice_mail_send_success_total",
		Help: "Total number of successful mail sends",
	}, []string{"host"})
	MailSendFailure = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "backoffice_mail_send_failure_total",
		Help: "Total number of failed mail sends",
	}, []string{"host"})
	MailNotConfigured = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "backoffice_mail_not_configured_total",
		Help: "Total number of sends attempted while the transport was not configured",
	})

	// Notification metrics
	Notifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "backoffice_notifications_total",
		Help: "Notification dispatches by event kind and outcome",
	}, []string{"kind", "outcome"})
	IntakeMessages = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "backoffice_intake_messages_total",
		Help: "Event bus messages consumed, by result",
	}, []string{"result"})
)

func init() {
	prometheus.MustRegister(MailSendSuccess)
	prometheus.MustRegister(MailSendFailure)
	prometheus.MustRegister(MailNotConfigured)
	prometheus.MustRegister(Notifications)
	prometheus.MustRegister(IntakeMessages)
}

// Handler returns an http.Handler exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
