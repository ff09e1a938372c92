// Package metrics exposes Prometheus counters for the authentication endpoints.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what handlers depend on; Collector is the Prometheus
// implementation and Nop discards everything.
type Recorder interface {
	RecordLogin(result string)
	RecordLogout(result string)
	RecordReissue(result string)
	RecordGateRejection(reason string)
	RecordOAuth2Login(provider, result string)
}

type Collector struct {
	login          *prometheus.CounterVec
	logout         *prometheus.CounterVec
	reissue        *prometheus.CounterVec
	gateRejections *prometheus.CounterVec
	oauth2Login    *prometheus.CounterVec
}

// NewCollector registers the auth counters on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		login: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dailog_login_total",
			Help: "Email/password login attempts by result.",
		}, []string{"result"}),
		logout: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dailog_logout_total",
			Help: "Logout attempts by result.",
		}, []string{"result"}),
		reissue: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dailog_reissue_total",
			Help: "Refresh token reissue attempts by result.",
		}, []string{"result"}),
		gateRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dailog_access_gate_rejections_total",
			Help: "Bearer tokens rejected by the access gate, by reason.",
		}, []string{"reason"}),
		oauth2Login: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dailog_oauth2_login_total",
			Help: "OAuth2 logins by provider and result.",
		}, []string{"provider", "result"}),
	}

	reg.MustRegister(c.login, c.logout, c.reissue, c.gateRejections, c.oauth2Login)
	return c
}

func (c *Collector) RecordLogin(result string)         { c.login.WithLabelValues(result).Inc() }
func (c *Collector) RecordLogout(result string)        { c.logout.WithLabelValues(result).Inc() }
func (c *Collector) RecordReissue(result string)       { c.reissue.WithLabelValues(result).Inc() }
func (c *Collector) RecordGateRejection(reason string) { c.gateRejections.WithLabelValues(reason).Inc() }

func (c *Collector) RecordOAuth2Login(provider, result string) {
	c.oauth2Login.WithLabelValues(provider, result).Inc()
}

// Handler serves the registry in the Prometheus text format.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

type Nop struct{}

func (Nop) RecordLogin(string)               {}
func (Nop) RecordLogout(string)              {}
func (Nop) RecordReissue(string)             {}
func (Nop) RecordGateRejection(string)       {}
func (Nop) RecordOAuth2Login(string, string) {}
