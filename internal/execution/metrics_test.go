package execution

import (
	"testing"
)

func TestMetrics_Registration(t *testing.T) {
	if TradesTotal == nil {
		t.Error("TradesTotal not registered")
	}

	if ProfitRealized == nil {
		t.Error("ProfitRealized not registered")
	}

	if PaperBalance == nil {
		t.Error("PaperBalance not registered")
	}

	if ExecutionDurationSeconds == nil {
		t.Error("ExecutionDurationSeconds not registered")
	}

	if ExecutionErrorsTotal == nil {
		t.Error("ExecutionErrorsTotal not registered")
	}
}

func TestMetrics_Labels(t *testing.T) {
	TradesTotal.WithLabelValues(ModePaper, "success").Inc()
	TradesTotal.WithLabelValues(ModePaper, "reverted").Inc()
	TradesTotal.WithLabelValues(ModeDryRun, "success").Inc()
	ExecutionDurationSeconds.WithLabelValues(ModePaper).Observe(5)
	ProfitRealized.WithLabelValues(ModeDryRun).Set(0)
}
