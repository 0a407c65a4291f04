package decision

type Outcome int

const (
	OutcomeSkipped Outcome = iota
	OutcomeNoSnapshot
	OutcomeOracleFailed
	OutcomeNoDecision
	OutcomeHold
	OutcomeSurfaced
	OutcomeExecutionFailed
	OutcomeExecuted
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSkipped:
		return "skipped"
	case OutcomeNoSnapshot:
		return "no_snapshot"
	case OutcomeOracleFailed:
		return "oracle_failed"
	case OutcomeNoDecision:
		return "no_decision"
	case OutcomeHold:
		return "hold"
	case OutcomeSurfaced:
		return "surfaced"
	case OutcomeExecutionFailed:
		return "execution_failed"
	case OutcomeExecuted:
		return "executed"
	default:
		return "unknown"
	}
}

func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}
