package engine

// CycleState is the coordinator's position in the cycle state machine.
// Exactly one state is held per Engine at any time.
type CycleState int

const (
	StateIdle CycleState = iota
	StateScanning
	StateSelecting
	StateExecuting
	StateSettling
)

func (s CycleState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScanning:
		return "scanning"
	case StateSelecting:
		return "selecting"
	case StateExecuting:
		return "executing"
	case StateSettling:
		return "settling"
	default:
		return "unknown"
	}
}

// MarshalText renders the state by name in JSON snapshots.
func (s CycleState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// CycleOutcome is how a single RunCycle call ended.
type CycleOutcome string

const (
	// OutcomeSkipped means another cycle was in flight or the engine was paused.
	OutcomeSkipped CycleOutcome = "skipped"
	// OutcomeAbandoned means a pause landed while scanning or selecting.
	OutcomeAbandoned CycleOutcome = "abandoned"
	// OutcomeNoOpportunity means nothing actionable was found. Not an error.
	OutcomeNoOpportunity CycleOutcome = "no_opportunity"
	// OutcomeGuarded means the execution guard refused the trade.
	OutcomeGuarded CycleOutcome = "guarded"
	// OutcomeExecuted means the trade settled successfully.
	OutcomeExecuted CycleOutcome = "executed"
	// OutcomeFailed means the trade failed or timed out and was recorded as such.
	OutcomeFailed CycleOutcome = "failed"
)
