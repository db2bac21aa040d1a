package grounding

// Signals carries the grounding evidence extracted from a provider response.
type Signals struct {
	// ToolCallCount is the number of discrete tool calls the model reported.
	ToolCallCount int
	// CitationCount is the number of citations attached to the response.
	CitationCount int
	// ReportsToolCalls is true for providers that emit a discrete tool-call
	// signal. Providers that only surface citations set this false, and
	// citations become the evidence instead.
	ReportsToolCalls bool
}

// Verdict is the enforcement gate's decision for one run.
type Verdict struct {
	GroundedEffective bool   `json:"grounded_effective"`
	EnforcementFailed bool   `json:"enforcement_failed"`
	Reason            string `json:"reason,omitempty"`
}

// Evaluate applies the grounding state machine to a completed run. It runs
// strictly after the provider call and before the result is persisted. The
// verdict is stored, never retried automatically.
func Evaluate(mode Mode, sig Signals) Verdict {
	evidence := sig.CitationCount > 0
	if sig.ReportsToolCalls {
		evidence = sig.ToolCallCount > 0
	}

	switch mode {
	case ModeEnforced:
		if !evidence {
			reason := "required mode but response contained no citations"
			if sig.ReportsToolCalls {
				reason = "required mode but model made no tool calls"
			}
			return Verdict{GroundedEffective: false, EnforcementFailed: true, Reason: reason}
		}
		return Verdict{GroundedEffective: true}
	case ModePreferred:
		// Both outcomes are valid; no enforcement failure is possible.
		return Verdict{GroundedEffective: evidence}
	default:
		// ModeNotGrounded: effective grounding = false is the only valid outcome.
		if evidence {
			return Verdict{
				GroundedEffective: true,
				EnforcementFailed: true,
				Reason:            "grounding disabled but model produced grounding evidence",
			}
		}
		return Verdict{GroundedEffective: false}
	}
}
