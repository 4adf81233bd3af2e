package game

import (
	"sync"
	"testing"
	"time"
)

func TestEventLogVisibility(t *testing.T) {
	l := NewEventLog("m1")
	l.Append(EventGameStart, map[string]any{"players": 5})
	l.AppendFor(2, EventVoteCast, map[string]any{"vote": "ja"})
	l.AppendPrivate(0, EventInvestigationResult, map[string]any{"party": "fascist"})
	l.AppendPrivate(3, EventInfo, map[string]any{"note": "seer result"})

	if l.Len() != 4 {
		t.Fatalf("expected 4 events, got %d", l.Len())
	}
	if got := len(l.Public()); got != 2 {
		t.Errorf("expected 2 public events, got %d", got)
	}
	if got := len(l.VisibleTo(0)); got != 3 {
		t.Errorf("player 0 should see public plus own private, got %d", got)
	}
	if got := len(l.VisibleTo(1)); got != 2 {
		t.Errorf("player 1 should see only public events, got %d", got)
	}

	ev, ok := l.LastOfKind(EventVoteCast)
	if !ok || ev.Player == nil || *ev.Player != 2 {
		t.Errorf("LastOfKind should find the attributed vote, got %+v", ev)
	}
	if l.CountKind(EventInfo) != 1 {
		t.Errorf("CountKind(Info) = %d", l.CountKind(EventInfo))
	}
}

func TestEventLogStampsRoundAndMatch(t *testing.T) {
	l := NewEventLog("m2")
	l.SetRound(3)
	l.Append(EventRoundStart, nil)

	ev := l.Events()[0]
	if ev.MatchID != "m2" || ev.Round != 3 {
		t.Errorf("event should carry match and round stamps, got %+v", ev)
	}
	if ev.Data == nil {
		t.Error("nil data should be normalized to an empty map")
	}
}

func TestEventLogSinkSeesEveryAppend(t *testing.T) {
	l := NewEventLog("m3")
	var kinds []EventKind
	l.SetSink(func(ev Event) { kinds = append(kinds, ev.Kind) })

	l.Append(EventGameStart, nil)
	l.AppendPrivate(1, EventInfo, nil)
	l.SetSink(nil)
	l.Append(EventGameEnd, nil)

	if len(kinds) != 2 || kinds[0] != EventGameStart || kinds[1] != EventInfo {
		t.Errorf("sink should see appends while attached, got %v", kinds)
	}
}

func TestErrorThrottling(t *testing.T) {
	l := NewEventLog("m4")
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l.SetClock(func() time.Time { return now })

	if !l.Error(1, CodeNotActor, "not your turn") {
		t.Fatal("first error should be emitted")
	}
	for i := 0; i < 3; i++ {
		if l.Error(1, CodeNotActor, "not your turn") {
			t.Fatal("identical error inside the window should be suppressed")
		}
	}
	// A different detail is its own key.
	if !l.Error(1, CodeNotActor, "different detail") {
		t.Error("distinct detail should not be throttled")
	}
	if !l.Error(2, CodeNotActor, "not your turn") {
		t.Error("distinct player should not be throttled")
	}

	now = now.Add(errorThrottleWindow)
	if !l.Error(1, CodeNotActor, "not your turn") {
		t.Fatal("error after the window should be emitted")
	}
	ev, _ := l.LastOfKind(EventError)
	if ev.Metadata["suppressed"] != 3 {
		t.Errorf("re-emitted error should report the suppressed count, got %v", ev.Metadata)
	}
}

// The driver reports agent failures from concurrent collection goroutines
// while a JSONL sink is attached, so appends, the throttle map, and the
// sink must all be safe under concurrent Error calls.
func TestEventLogConcurrentErrors(t *testing.T) {
	l := NewEventLog("race")
	sunk := 0
	l.SetSink(func(Event) { sunk++ })

	const seats = 5
	var wg sync.WaitGroup
	for i := 0; i < seats; i++ {
		wg.Add(1)
		go func(p PlayerID) {
			defer wg.Done()
			time.Sleep(time.Millisecond)
			l.Error(p, CodeAgentFailed, "agent call failed")
			l.AppendFor(p, EventInfo, map[string]any{"seat": int(p)})
		}(PlayerID(i))
	}
	wg.Wait()

	if l.Len() != 2*seats {
		t.Fatalf("expected %d events, got %d", 2*seats, l.Len())
	}
	if sunk != 2*seats {
		t.Errorf("sink should see every append, got %d", sunk)
	}
	if got := l.CountKind(EventError); got != seats {
		t.Errorf("expected %d error events, got %d", seats, got)
	}
}

func TestActorsAndSortedPlayers(t *testing.T) {
	obs := map[PlayerID]Observation{
		3: ActObs(3, ObsPrivate, "night", "Pick a target.", "kill", nil),
		0: WaitObs(0, ObsPublic, "night", "Night falls.", nil),
		1: ActObs(1, ObsPrivate, "night", "Pick a target.", "kill", nil),
	}
	actors := Actors(obs)
	if len(actors) != 2 || actors[0] != 1 || actors[1] != 3 {
		t.Errorf("expected sorted actors [1 3], got %v", actors)
	}

	actions := map[PlayerID]Action{4: Noop(4), 0: Noop(0), 2: Noop(2)}
	order := SortedActionPlayers(actions)
	if len(order) != 3 || order[0] != 0 || order[1] != 2 || order[2] != 4 {
		t.Errorf("expected ascending order [0 2 4], got %v", order)
	}
}

func TestActionExtractorsAcceptJSONNumbers(t *testing.T) {
	// JSON decoding hands engines float64; native callers hand them ints.
	a := Action{Player: 1, Kind: "vote", Data: map[string]any{
		"target": float64(3),
		"team":   []any{float64(0), float64(2)},
		"word":   "skip",
		"fail":   true,
	}}

	if n, ok := a.Int("target"); !ok || n != 3 {
		t.Errorf("Int(target) = %d, %v", n, ok)
	}
	if ids, ok := a.Ints("team"); !ok || len(ids) != 2 || ids[1] != 2 {
		t.Errorf("Ints(team) = %v, %v", ids, ok)
	}
	if s, ok := a.Str("word"); !ok || s != "skip" {
		t.Errorf("Str(word) = %q, %v", s, ok)
	}
	if b, ok := a.Bool("fail"); !ok || !b {
		t.Errorf("Bool(fail) = %v, %v", b, ok)
	}
	if _, ok := a.Int("missing"); ok {
		t.Error("missing key should not extract")
	}
	if _, ok := Noop(0).Int("target"); ok {
		t.Error("nil data should not extract")
	}
}
