// Package game defines the shared substrate of the benchmark: player and
// action records, per-player observations, the event log, and the engine
// interface every game implements.
package game

// PlayerID identifies a seat in a match. IDs are dense in [0, N).
type PlayerID int

// ObsType classifies who an observation is meaningful for.
type ObsType string

const (
	ObsPublic  ObsType = "public"
	ObsPrivate ObsType = "private"
	ObsTeam    ObsType = "team"
	ObsRole    ObsType = "role"
)

// Action is the uniform envelope an agent submits. Kind selects the
// per-phase payload schema carried in Data.
type Action struct {
	Player   PlayerID       `json:"player"`
	Kind     string         `json:"kind"`
	Data     map[string]any `json:"data,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// NoopKind is the distinguished kind for "no decision"; engines substitute
// their phase fallback when they see it.
const NoopKind = "noop"

// Noop returns the empty action for a player.
func Noop(p PlayerID) Action {
	return Action{Player: p, Kind: NoopKind}
}

// Str extracts a string payload field.
func (a Action) Str(key string) (string, bool) {
	if a.Data == nil {
		return "", false
	}
	s, ok := a.Data[key].(string)
	return s, ok
}

// Int extracts an integer payload field. JSON-decoded payloads carry
// numbers as float64, so both forms are accepted.
func (a Action) Int(key string) (int, bool) {
	if a.Data == nil {
		return 0, false
	}
	switch v := a.Data[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case PlayerID:
		return int(v), true
	}
	return 0, false
}

// Ints extracts an integer-slice payload field.
func (a Action) Ints(key string) ([]int, bool) {
	if a.Data == nil {
		return nil, false
	}
	switch v := a.Data[key].(type) {
	case []int:
		out := make([]int, len(v))
		copy(out, v)
		return out, true
	case []any:
		out := make([]int, 0, len(v))
		for _, e := range v {
			switch n := e.(type) {
			case int:
				out = append(out, n)
			case int64:
				out = append(out, int(n))
			case float64:
				out = append(out, int(n))
			default:
				return nil, false
			}
		}
		return out, true
	}
	return nil, false
}

// Strs extracts a string-slice payload field.
func (a Action) Strs(key string) ([]string, bool) {
	if a.Data == nil {
		return nil, false
	}
	switch v := a.Data[key].(type) {
	case []string:
		out := make([]string, len(v))
		copy(out, v)
		return out, true
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			s, ok := e.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	return nil, false
}

// Bool extracts a boolean payload field.
func (a Action) Bool(key string) (bool, bool) {
	if a.Data == nil {
		return false, false
	}
	b, ok := a.Data[key].(bool)
	return b, ok
}

// Observation is the per-player view of the current state. Data always
// carries "type" ("act" or "observe") and "instruction"; act observations
// additionally carry "action_kind" and, for finite choices, "options".
type Observation struct {
	Player PlayerID       `json:"player"`
	Type   ObsType        `json:"obs_type"`
	Phase  string         `json:"phase"`
	Data   map[string]any `json:"data"`
}

// IsActor reports whether this player must submit an action this step.
func (o Observation) IsActor() bool {
	t, _ := o.Data["type"].(string)
	return t == "act"
}

// ActObs builds an observation requiring an action. extra fields are merged
// into Data after the common envelope.
func ActObs(p PlayerID, t ObsType, phase, instruction, actionKind string, extra map[string]any) Observation {
	data := map[string]any{
		"type":        "act",
		"instruction": instruction,
		"action_kind": actionKind,
	}
	for k, v := range extra {
		data[k] = v
	}
	return Observation{Player: p, Type: t, Phase: phase, Data: data}
}

// WaitObs builds a passive observation.
func WaitObs(p PlayerID, t ObsType, phase, instruction string, extra map[string]any) Observation {
	data := map[string]any{
		"type":        "observe",
		"instruction": instruction,
	}
	for k, v := range extra {
		data[k] = v
	}
	return Observation{Player: p, Type: t, Phase: phase, Data: data}
}

// Outcome of a completed match.
const (
	OutcomeWin       = "win"
	OutcomeDraw      = "draw"
	OutcomeTimeout   = "timeout"
	OutcomeCancelled = "cancelled"
)

// Result is the frozen record of a finished match.
type Result struct {
	MatchID         string                     `json:"match_id"`
	Game            string                     `json:"game"`
	Outcome         string                     `json:"outcome"`
	Winner          string                     `json:"winner"`
	WinReason       string                     `json:"win_reason"`
	Rounds          int                        `json:"rounds"`
	Steps           int                        `json:"steps"`
	DurationSeconds float64                    `json:"duration_seconds"`
	PerPlayerStats  map[PlayerID]PlayerStats   `json:"per_player_stats,omitempty"`
	Metadata        map[string]any             `json:"metadata,omitempty"`
}

// PlayerStats are per-seat outcome stats; Extra holds game-specific fields.
type PlayerStats struct {
	Role   string         `json:"role,omitempty"`
	Score  float64        `json:"score"`
	Won    bool           `json:"won"`
	Extra  map[string]any `json:"extra,omitempty"`
}
