package metrics

import "github.com/prometheus/client_golang/prometheus"

// Outcome labels shared by the workflow counters.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
	OutcomeIgnored  = "ignored"
)

// Workflow counts analyze and certificate-export attempts by outcome.
// A nil *Workflow is valid and records nothing.
type Workflow struct {
	analyses     *prometheus.CounterVec
	certificates *prometheus.CounterVec
}

// NewWorkflow registers the workflow counters on reg.
func NewWorkflow(reg prometheus.Registerer) (*Workflow, error) {
	w := &Workflow{
		analyses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rentscore_analyses_total",
				Help: "Statement analysis attempts by outcome.",
			},
			[]string{"outcome"},
		),
		certificates: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rentscore_certificates_total",
				Help: "Certificate export attempts by outcome.",
			},
			[]string{"outcome"},
		),
	}
	if err := reg.Register(w.analyses); err != nil {
		return nil, err
	}
	if err := reg.Register(w.certificates); err != nil {
		return nil, err
	}
	return w, nil
}

// Analysis records one analyze attempt.
func (w *Workflow) Analysis(outcome string) {
	if w == nil {
		return
	}
	w.analyses.WithLabelValues(outcome).Inc()
}

// Certificate records one export attempt.
func (w *Workflow) Certificate(outcome string) {
	if w == nil {
		return
	}
	w.certificates.WithLabelValues(outcome).Inc()
}
