package game

import (
	"sync"
	"time"
)

// EventKind enumerates the closed set of log event kinds.
type EventKind string

const (
	EventGameStart           EventKind = "GameStart"
	EventGameEnd             EventKind = "GameEnd"
	EventPhaseChange         EventKind = "PhaseChange"
	EventRoundStart          EventKind = "RoundStart"
	EventRoundEnd            EventKind = "RoundEnd"
	EventPlayerAction        EventKind = "PlayerAction"
	EventPlayerVote          EventKind = "PlayerVote"
	EventPlayerNominate      EventKind = "PlayerNominate"
	EventVoteCast            EventKind = "VoteCast"
	EventElectionResult      EventKind = "ElectionResult"
	EventQuestResult         EventKind = "QuestResult"
	EventPolicyEnacted       EventKind = "PolicyEnacted"
	EventPresidentialPower   EventKind = "PresidentialPower"
	EventInvestigationResult EventKind = "InvestigationResult"
	EventPlayerEliminated    EventKind = "PlayerEliminated"
	EventDiscussion          EventKind = "Discussion"
	EventVetoProposed        EventKind = "VetoProposed"
	EventVetoResponse        EventKind = "VetoResponse"
	EventAgentReasoning      EventKind = "AgentReasoning"
	EventError               EventKind = "Error"
	EventInfo                EventKind = "Info"
	EventLLMCall             EventKind = "LLMCall"
)

// Event is one record in the append-only match log.
type Event struct {
	Timestamp time.Time      `json:"timestamp"`
	Kind      EventKind      `json:"kind"`
	MatchID   string         `json:"match_id"`
	Round     int            `json:"round"`
	Data      map[string]any `json:"data"`
	Player    *PlayerID      `json:"player,omitempty"`
	Private   bool           `json:"private"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// errorThrottleWindow suppresses identical repeated error events. The
// suppressed count surfaces in the next emitted event's metadata.
const errorThrottleWindow = 5 * time.Second

type throttleKey struct {
	player PlayerID
	code   string
	detail string
}

type throttleEntry struct {
	last       time.Time
	suppressed int
}

// EventLog is the per-match append-only event sequence. It is owned by one
// engine and must not be shared across matches. The log locks internally:
// the engine appends from its single Step goroutine, but the driver reports
// agent failures from concurrent collection goroutines.
type EventLog struct {
	mu       sync.Mutex
	matchID  string
	round    int
	events   []Event
	sink     func(Event)
	throttle map[throttleKey]*throttleEntry
	now      func() time.Time
}

// NewEventLog creates an empty log for a match.
func NewEventLog(matchID string) *EventLog {
	return &EventLog{
		matchID:  matchID,
		throttle: make(map[throttleKey]*throttleEntry),
		now:      time.Now,
	}
}

// SetSink installs a callback invoked for every appended event, e.g. a
// JSONL file writer. The sink runs under the log's lock and must not call
// back into the log. Pass nil to detach.
func (l *EventLog) SetSink(fn func(Event)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sink = fn
}

// SetClock overrides the timestamp source. Tests use this for stable logs.
func (l *EventLog) SetClock(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
}

// SetRound updates the round stamped on subsequent events.
func (l *EventLog) SetRound(r int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.round = r
}

// Round returns the current round stamp.
func (l *EventLog) Round() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.round
}

// MatchID returns the owning match's ID.
func (l *EventLog) MatchID() string { return l.matchID }

// append requires l.mu held.
func (l *EventLog) append(ev Event) {
	ev.Timestamp = l.now()
	ev.MatchID = l.matchID
	ev.Round = l.round
	if ev.Data == nil {
		ev.Data = map[string]any{}
	}
	l.events = append(l.events, ev)
	if l.sink != nil {
		l.sink(ev)
	}
}

// Append records a public event.
func (l *EventLog) Append(kind EventKind, data map[string]any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.append(Event{Kind: kind, Data: data})
}

// AppendFor records a public event attributed to a player.
func (l *EventLog) AppendFor(p PlayerID, kind EventKind, data map[string]any) {
	pp := p
	l.mu.Lock()
	defer l.mu.Unlock()
	l.append(Event{Kind: kind, Data: data, Player: &pp})
}

// AppendPrivate records an event visible only to one player.
func (l *EventLog) AppendPrivate(p PlayerID, kind EventKind, data map[string]any) {
	pp := p
	l.mu.Lock()
	defer l.mu.Unlock()
	l.append(Event{Kind: kind, Data: data, Player: &pp, Private: true})
}

// Error records a rule-rejection event for a player, throttled per
// (player, code, detail). Returns false when the event was suppressed.
func (l *EventLog) Error(p PlayerID, code, detail string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := throttleKey{player: p, code: code, detail: detail}
	now := l.now()

	ent := l.throttle[key]
	if ent != nil && now.Sub(ent.last) < errorThrottleWindow {
		ent.suppressed++
		return false
	}

	var meta map[string]any
	if ent != nil && ent.suppressed > 0 {
		meta = map[string]any{"suppressed": ent.suppressed}
	}
	if ent == nil {
		ent = &throttleEntry{}
		l.throttle[key] = ent
	}
	ent.last = now
	ent.suppressed = 0

	pp := p
	l.append(Event{
		Kind:     EventError,
		Data:     map[string]any{"code": code, "detail": detail},
		Player:   &pp,
		Metadata: meta,
	})
	return true
}

// Len returns the number of events appended so far.
func (l *EventLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}

// Events returns a copy of the full log.
func (l *EventLog) Events() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}

// Public returns all events with private events removed.
func (l *EventLog) Public() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Event
	for _, ev := range l.events {
		if !ev.Private {
			out = append(out, ev)
		}
	}
	return out
}

// VisibleTo returns the log view for one player: public events plus that
// player's private events.
func (l *EventLog) VisibleTo(p PlayerID) []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Event
	for _, ev := range l.events {
		if !ev.Private || (ev.Player != nil && *ev.Player == p) {
			out = append(out, ev)
		}
	}
	return out
}

// CountKind returns how many events of the given kind have been recorded.
func (l *EventLog) CountKind(kind EventKind) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, ev := range l.events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

// LastOfKind returns the most recent event of the given kind, if any.
func (l *EventLog) LastOfKind(kind EventKind) (Event, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := len(l.events) - 1; i >= 0; i-- {
		if l.events[i].Kind == kind {
			return l.events[i], true
		}
	}
	return Event{}, false
}
