// Package metrics expone contadores Prometheus de los flujos de cuenta.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder es lo que usan los servicios; permite un no-op en tests.
type Recorder interface {
	RecordSignup(outcome string)
	RecordSignin(outcome string)
	RecordIssue(kind, outcome string)
	RecordConsume(kind, outcome string)
	RecordEmailFailure(kind string)
	RecordCleanup(deleted int)
}

// Collector implementa Recorder sobre Prometheus.
type Collector struct {
	signups       *prometheus.CounterVec
	signins       *prometheus.CounterVec
	issued        *prometheus.CounterVec
	consumed      *prometheus.CounterVec
	emailFailures *prometheus.CounterVec
	cleaned       prometheus.Counter
}

func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		signups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "accounts_signup_total",
			Help: "Signup attempts by outcome.",
		}, []string{"outcome"}),
		signins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "accounts_signin_total",
			Help: "Signin attempts by outcome.",
		}, []string{"outcome"}),
		issued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "accounts_verification_issued_total",
			Help: "Verification secrets issued by kind and outcome.",
		}, []string{"kind", "outcome"}),
		consumed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "accounts_verification_consumed_total",
			Help: "Verification attempts by kind and outcome.",
		}, []string{"kind", "outcome"}),
		emailFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "accounts_email_failures_total",
			Help: "Verification emails that could not be dispatched.",
		}, []string{"kind"}),
		cleaned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "accounts_verification_cleaned_total",
			Help: "Expired verification records removed by the cleanup worker.",
		}),
	}

	reg.MustRegister(
		c.signups,
		c.signins,
		c.issued,
		c.consumed,
		c.emailFailures,
		c.cleaned,
	)
	return c
}

func (c *Collector) RecordSignup(outcome string) {
	c.signups.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordSignin(outcome string) {
	c.signins.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordIssue(kind, outcome string) {
	c.issued.WithLabelValues(kind, outcome).Inc()
}

func (c *Collector) RecordConsume(kind, outcome string) {
	c.consumed.WithLabelValues(kind, outcome).Inc()
}

func (c *Collector) RecordEmailFailure(kind string) {
	c.emailFailures.WithLabelValues(kind).Inc()
}

func (c *Collector) RecordCleanup(deleted int) {
	c.cleaned.Add(float64(deleted))
}

// Handler devuelve el handler de scrape para el gatherer dado.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

type nop struct{}

// Nop descarta todas las mediciones.
func Nop() Recorder { return nop{} }

func (nop) RecordSignup(string)          {}
func (nop) RecordSignin(string)          {}
func (nop) RecordIssue(string, string)   {}
func (nop) RecordConsume(string, string) {}
func (nop) RecordEmailFailure(string)    {}
func (nop) RecordCleanup(int)            {}
