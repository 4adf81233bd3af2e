package game

import "sort"

// StepResult bundles everything a Step returns.
type StepResult struct {
	Observations map[PlayerID]Observation
	Rewards      map[PlayerID]float64
	Done         bool
	Info         map[string]any
}

// Engine is the capability set every game implements. Engines are
// single-goroutine value machines: Reset/Step/Observations are never called
// concurrently, all randomness comes from the seeded match RNG, and rule
// violations are recorded as events rather than returned as errors.
type Engine interface {
	// Reset deals roles, shuffles decks, and returns the first observations.
	Reset() map[PlayerID]Observation
	// Step applies one atomic batch of actions from the current actors.
	Step(actions map[PlayerID]Action) StepResult
	// Observations recomputes the current per-player views without stepping.
	Observations() map[PlayerID]Observation
	Terminal() bool
	Winner() string
	WinReason() string
	// ForceTerminate freezes the engine when the driver's safety bound
	// trips, writing a final GameEnd event.
	ForceTerminate()
	NumPlayers() int
	Events() *EventLog
}

// Actors returns the sorted players whose observation demands an action.
func Actors(obs map[PlayerID]Observation) []PlayerID {
	var out []PlayerID
	for p, o := range obs {
		if o.IsActor() {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// SortedActionPlayers returns the batch's players in ascending ID order.
// Engines use this to make intra-step application deterministic regardless
// of agent arrival order.
func SortedActionPlayers(actions map[PlayerID]Action) []PlayerID {
	out := make([]PlayerID, 0, len(actions))
	for p := range actions {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// PlayerIDs returns [0, n) as a slice, a convenience for option lists.
func PlayerIDs(n int) []PlayerID {
	out := make([]PlayerID, n)
	for i := range out {
		out[i] = PlayerID(i)
	}
	return out
}

// IDsToInts converts player IDs for observation payloads.
func IDsToInts(ids []PlayerID) []int {
	out := make([]int, len(ids))
	for i, id := range ids {
		out[i] = int(id)
	}
	return out
}
