package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the OAuth flow and webhook
// processing.
type Metrics struct {
	InstallsStarted   prometheus.Counter
	InstallsCompleted prometheus.Counter
	CallbackFailures  *prometheus.CounterVec
	WebhooksReceived  *prometheus.CounterVec
	WebhooksRejected  prometheus.Counter
}

// New registers the collectors with reg and returns them.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		InstallsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "oauth_installs_started_total",
			Help: "Install redirects issued.",
		}),
		InstallsCompleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "oauth_installs_completed_total",
			Help: "OAuth callbacks that persisted a shop record.",
		}),
		CallbackFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "oauth_callback_failures_total",
			Help: "OAuth callbacks rejected, by reason.",
		}, []string{"reason"}),
		WebhooksReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "webhooks_received_total",
			Help: "Verified webhook deliveries, by topic.",
		}, []string{"topic"}),
		WebhooksRejected: factory.NewCounter(prometheus.CounterOpts{
			Name: "webhooks_rejected_total",
			Help: "Webhook deliveries rejected for a bad signature.",
		}),
	}
}
