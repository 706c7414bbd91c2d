package core

// DecisionMetrics records approval-workflow outcomes. Implementations must
// tolerate being nil-checked by callers; recording never fails a decision.
type DecisionMetrics interface {
	RecordDecision(kind, outcome string)
	RecordBudgetExceeded(kind string)
}
