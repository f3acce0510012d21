package metrics

import "github.com/prometheus/client_golang/prometheus"

// WorkflowMetrics counts checkout and payment confirmation outcomes.
type WorkflowMetrics struct {
	outcomes *prometheus.CounterVec
}

func NewWorkflowMetrics(reg prometheus.Registerer) *WorkflowMetrics {
	if reg == nil {
		return &WorkflowMetrics{}
	}
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_workflow_outcomes_total",
		Help: "Checkout and confirmation outcomes by stage and result.",
	}, []string{"stage", "outcome"})
	reg.MustRegister(outcomes)
	return &WorkflowMetrics{outcomes: outcomes}
}

// Record increments the outcome counter for stage ("checkout", "confirmation").
func (w *WorkflowMetrics) Record(stage, outcome string) {
	if w == nil || w.outcomes == nil {
		return
	}
	w.outcomes.WithLabelValues(normalizeLabel(stage), normalizeLabel(outcome)).Inc()
}
