package game

import "fmt"

// Validation error codes shared across engines. Engine packages add
// game-specific codes on top of these.
const (
	CodeNotActor    = "NOT_ACTOR"
	CodeDeadPlayer  = "DEAD_PLAYER"
	CodeBadPayload  = "BAD_PAYLOAD"
	CodeBadKind     = "BAD_KIND"
	CodeIneligible  = "INELIGIBLE_TARGET"
	CodeDoubleVote  = "DOUBLE_VOTE"
	CodeOutOfPhase  = "OUT_OF_PHASE"
	CodeAgentFailed = "AGENT_FAILURE"
)

// ValidationError marks an action rejected by rule or schema checks. It is
// recorded as an Error event and never crosses the Step boundary.
type ValidationError struct {
	Code   string
	Detail string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation %s: %s", e.Code, e.Detail)
}

// Reject builds a ValidationError.
func Reject(code, format string, args ...any) *ValidationError {
	return &ValidationError{Code: code, Detail: fmt.Sprintf(format, args...)}
}

// AgentFailure wraps a failed or timed-out agent call; the driver records
// it against the player and substitutes the engine fallback.
type AgentFailure struct {
	Player PlayerID
	Err    error
}

func (e *AgentFailure) Error() string {
	return fmt.Sprintf("agent for player %d: %v", e.Player, e.Err)
}

func (e *AgentFailure) Unwrap() error { return e.Err }
