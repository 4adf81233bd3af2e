package spyfall

import (
	"fmt"
	"math/rand"

	"github.com/EternisAI/strategy-bench/pkg/game"
)

// Phase is the engine-local phase enumeration.
type Phase string

const (
	PhaseQandA           Phase = "QandA"
	PhaseAccusationVote  Phase = "AccusationVote"
	PhaseFinalNomination Phase = "FinalNomination"
	PhaseFinalVote       Phase = "FinalVote"
	PhaseSpyGuess        Phase = "SpyGuess"
	PhaseGameOver        Phase = "GameOver"
)

const noPlayer = game.PlayerID(-1)

// Engine is the Spyfall state machine.
type Engine struct {
	cfg Config
	rng *rand.Rand
	log *game.EventLog

	phase Phase

	spy         game.PlayerID
	locationIdx int
	roles       []string

	// Q&A state
	asker     game.PlayerID
	answerer  game.PlayerID // noPlayer while a question is awaited
	noAskBack game.PlayerID
	exchanges int
	budget    int

	// one-shot abilities
	accuseUsed        map[game.PlayerID]bool
	guessUsed         bool
	accusationStarted bool

	// accusation / final vote state
	accuser game.PlayerID
	suspect game.PlayerID
	votes   map[game.PlayerID]bool
	tried   map[game.PlayerID]bool

	// final-vote nomination rotation
	nominator game.PlayerID

	invalid map[game.PlayerID]int

	scores    []int
	terminal  bool
	winner    string
	winReason string
}

// New validates the config and builds an unstarted engine.
func New(cfg Config) (*Engine, error) {
	if cfg.Players < MinPlayers || cfg.Players > MaxPlayers {
		return nil, fmt.Errorf("spyfall: player count %d outside [%d,%d]", cfg.Players, MinPlayers, MaxPlayers)
	}
	if cfg.Spy != nil && (*cfg.Spy < 0 || *cfg.Spy >= cfg.Players) {
		return nil, fmt.Errorf("spyfall: fixed spy %d out of range", *cfg.Spy)
	}
	if cfg.LocationIdx != nil && (*cfg.LocationIdx < 0 || *cfg.LocationIdx >= len(Locations)) {
		return nil, fmt.Errorf("spyfall: fixed location index %d out of range", *cfg.LocationIdx)
	}
	if cfg.MaxExchanges <= 0 {
		cfg.MaxExchanges = maxExchanges
	}
	if cfg.MatchID == "" {
		cfg.MatchID = Name
	}
	return &Engine{
		cfg:    cfg,
		budget: cfg.MaxExchanges,
		rng:    game.NewRNG(cfg.Seed),
		log:    game.NewEventLog(cfg.MatchID),
	}, nil
}

func (e *Engine) NumPlayers() int        { return e.cfg.Players }
func (e *Engine) Events() *game.EventLog { return e.log }
func (e *Engine) Terminal() bool         { return e.terminal }
func (e *Engine) Winner() string         { return e.winner }
func (e *Engine) WinReason() string      { return e.winReason }

// Reset draws the location and the spy, deals roles, and opens Q&A.
func (e *Engine) Reset() map[game.PlayerID]game.Observation {
	if e.cfg.LocationIdx != nil {
		e.locationIdx = *e.cfg.LocationIdx
	} else {
		e.locationIdx = e.rng.Intn(len(Locations))
	}
	if e.cfg.Spy != nil {
		e.spy = game.PlayerID(*e.cfg.Spy)
	} else {
		e.spy = game.PlayerID(e.rng.Intn(e.cfg.Players))
	}

	loc := Locations[e.locationIdx]
	deal := make([]string, len(loc.Roles))
	copy(deal, loc.Roles)
	e.rng.Shuffle(len(deal), func(i, j int) { deal[i], deal[j] = deal[j], deal[i] })

	e.roles = make([]string, e.cfg.Players)
	ri := 0
	for i := range e.roles {
		if game.PlayerID(i) == e.spy {
			e.roles[i] = RoleSpy
			continue
		}
		e.roles[i] = deal[ri%len(deal)]
		ri++
	}

	e.asker = game.PlayerID(e.rng.Intn(e.cfg.Players))
	e.answerer = noPlayer
	e.noAskBack = noPlayer
	e.exchanges = 0
	e.accuseUsed = make(map[game.PlayerID]bool)
	e.guessUsed = false
	e.accusationStarted = false
	e.tried = make(map[game.PlayerID]bool)
	e.scores = make([]int, e.cfg.Players)
	e.terminal = false
	e.winner, e.winReason = "", ""

	e.log.SetRound(1)
	e.log.Append(game.EventGameStart, map[string]any{"game": Name, "players": e.cfg.Players})

	for i := 0; i < e.cfg.Players; i++ {
		pid := game.PlayerID(i)
		data := map[string]any{"event": "role_assignment", "role": e.roles[i]}
		if pid != e.spy {
			data["location"] = loc.Name
		}
		e.log.AppendPrivate(pid, game.EventInfo, data)
	}

	e.setPhase(PhaseQandA)
	return e.Observations()
}

// --- phase transitions ---

func (e *Engine) setPhase(p Phase) {
	e.phase = p
	e.invalid = make(map[game.PlayerID]int)
	e.log.Append(game.EventPhaseChange, map[string]any{"phase": string(p)})
}

func (e *Engine) gameOver(winner, reason string) {
	e.terminal = true
	e.winner = winner
	e.winReason = reason
	e.phase = PhaseGameOver
	scores := make([]int, len(e.scores))
	copy(scores, e.scores)
	e.log.Append(game.EventGameEnd, map[string]any{
		"winner":     winner,
		"win_reason": reason,
		"spy":        int(e.spy),
		"location":   Locations[e.locationIdx].Name,
		"scores":     scores,
		"exchanges":  e.exchanges,
	})
}

func (e *Engine) spyWins(reason string, spyScore int) {
	e.scores[e.spy] = spyScore
	e.gameOver(WinnerSpy, reason)
}

func (e *Engine) nonSpiesWin(reason string) {
	for i := range e.scores {
		if game.PlayerID(i) != e.spy {
			e.scores[i] = 1
		}
	}
	e.gameOver(WinnerNonSpy, reason)
}

// ForceTerminate freezes a match that hit the driver's safety bound.
func (e *Engine) ForceTerminate() {
	if e.terminal {
		return
	}
	e.terminal = true
	e.winner = ""
	e.winReason = "force_terminated"
	e.phase = PhaseGameOver
	e.log.Append(game.EventGameEnd, map[string]any{"winner": "", "win_reason": "force_terminated"})
}

// --- step ---

// Step applies one batch of actions in ascending player order.
func (e *Engine) Step(actions map[game.PlayerID]game.Action) game.StepResult {
	if !e.terminal {
		for _, p := range game.SortedActionPlayers(actions) {
			if e.terminal {
				break
			}
			e.handle(p, actions[p])
		}
	}
	return game.StepResult{
		Observations: e.Observations(),
		Rewards:      e.rewards(),
		Done:         e.terminal,
		Info:         map[string]any{"phase": string(e.phase), "exchanges": e.exchanges},
	}
}

func (e *Engine) handle(p game.PlayerID, a game.Action) {
	if int(p) < 0 || int(p) >= e.cfg.Players {
		return
	}
	if !e.isActor(p) {
		e.log.Error(p, game.CodeNotActor, fmt.Sprintf("not an actor in phase %s", e.phase))
		return
	}
	if a.Kind == game.NoopKind {
		e.applyFallback(p)
		return
	}

	var verr *game.ValidationError
	switch e.phase {
	case PhaseQandA:
		verr = e.applyQandA(p, a)
	case PhaseAccusationVote, PhaseFinalVote:
		verr = e.applyVote(p, a)
	case PhaseFinalNomination:
		verr = e.applyNomination(p, a)
	case PhaseSpyGuess:
		verr = e.applyGuess(p, a)
	default:
		verr = game.Reject(game.CodeOutOfPhase, "no actions accepted in phase %s", e.phase)
	}

	if verr != nil {
		e.log.Error(p, verr.Code, verr.Detail)
		e.invalid[p]++
		if e.invalid[p] >= maxInvalidAttempts {
			e.applyFallback(p)
		}
	}
}

func (e *Engine) isActor(p game.PlayerID) bool {
	switch e.phase {
	case PhaseQandA:
		if e.answerer != noPlayer {
			return p == e.answerer
		}
		return p == e.asker
	case PhaseAccusationVote, PhaseFinalVote:
		if p == e.suspect {
			return false
		}
		_, voted := e.votes[p]
		return !voted
	case PhaseFinalNomination:
		return p == e.nominator
	case PhaseSpyGuess:
		return p == e.spy
	}
	return false
}

// applyFallback performs the engine default: ask a stock question of the
// next eligible player, give a stock answer, vote no, decline to
// nominate, and guess the first location.
func (e *Engine) applyFallback(p game.PlayerID) {
	switch e.phase {
	case PhaseQandA:
		if e.answerer != noPlayer {
			e.recordAnswer(p, "I would rather not say.")
			return
		}
		e.recordQuestion(p, e.defaultTarget(p), "What do you think of this place?")
	case PhaseAccusationVote, PhaseFinalVote:
		e.recordVote(p, false)
	case PhaseFinalNomination:
		e.advanceNominator()
	case PhaseSpyGuess:
		e.resolveGuess(Locations[0].Name)
	}
}

func (e *Engine) defaultTarget(p game.PlayerID) game.PlayerID {
	for i := 1; i < e.cfg.Players; i++ {
		t := (p + game.PlayerID(i)) % game.PlayerID(e.cfg.Players)
		if t != e.noAskBack {
			return t
		}
	}
	return (p + 1) % game.PlayerID(e.cfg.Players)
}

// --- Q&A ---

func (e *Engine) applyQandA(p game.PlayerID, a game.Action) *game.ValidationError {
	if e.answerer != noPlayer {
		switch a.Kind {
		case "answer":
			text, _ := a.Str("answer")
			e.recordAnswer(p, text)
			return nil
		case "accuse":
			return e.applyAccuse(p, a)
		case "guess":
			return e.applyVoluntaryGuess(p, a)
		}
		return game.Reject(game.CodeBadKind, "expected answer, accuse, or guess, got %s", a.Kind)
	}

	switch a.Kind {
	case "question":
		t, ok := a.Int("target")
		if !ok || t < 0 || t >= e.cfg.Players {
			return game.Reject(game.CodeBadPayload, "question requires a valid target")
		}
		target := game.PlayerID(t)
		if target == p {
			return game.Reject(game.CodeIneligible, "cannot question yourself")
		}
		if target == e.noAskBack {
			return game.Reject(game.CodeIneligible, "cannot ask back the player who just asked you")
		}
		text, _ := a.Str("question")
		if text == "" {
			return game.Reject(game.CodeBadPayload, "question requires text")
		}
		e.recordQuestion(p, target, text)
		return nil
	case "accuse":
		return e.applyAccuse(p, a)
	case "guess":
		return e.applyVoluntaryGuess(p, a)
	}
	return game.Reject(game.CodeBadKind, "expected question, accuse, or guess, got %s", a.Kind)
}

func (e *Engine) recordQuestion(from, to game.PlayerID, text string) {
	e.log.AppendFor(from, game.EventDiscussion, map[string]any{
		"type": "question", "target": int(to), "text": text,
	})
	e.answerer = to
}

func (e *Engine) recordAnswer(p game.PlayerID, text string) {
	e.log.AppendFor(p, game.EventDiscussion, map[string]any{
		"type": "answer", "text": text,
	})
	e.exchanges++
	e.noAskBack = e.asker
	e.asker = p
	e.answerer = noPlayer
	if e.exchanges >= e.budget {
		e.enterFinalNomination(0)
	}
}

// applyAccuse spends the accuser's one-shot and opens an accusation vote.
// The accuser's own ballot is an automatic yes.
func (e *Engine) applyAccuse(p game.PlayerID, a game.Action) *game.ValidationError {
	if p == e.spy {
		return game.Reject(game.CodeIneligible, "the spy cannot accuse")
	}
	if e.accuseUsed[p] {
		return game.Reject(game.CodeIneligible, "accusation already used")
	}
	t, ok := a.Int("target")
	if !ok || t < 0 || t >= e.cfg.Players || game.PlayerID(t) == p {
		return game.Reject(game.CodeBadPayload, "accuse requires another player as target")
	}
	e.accuseUsed[p] = true
	e.accusationStarted = true
	e.accuser = p
	e.suspect = game.PlayerID(t)
	e.votes = map[game.PlayerID]bool{p: true}
	e.log.AppendFor(p, game.EventPlayerNominate, map[string]any{
		"type": "accusation", "suspect": t,
	})
	e.setPhase(PhaseAccusationVote)
	return nil
}

func (e *Engine) applyVoluntaryGuess(p game.PlayerID, a game.Action) *game.ValidationError {
	if p != e.spy {
		return game.Reject(game.CodeIneligible, "only the spy can guess the location")
	}
	if e.guessUsed {
		return game.Reject(game.CodeIneligible, "guess already used")
	}
	if e.accusationStarted {
		return game.Reject(game.CodeIneligible, "guess is blocked once an accusation has been made")
	}
	loc, ok := a.Str("location")
	if !ok {
		return game.Reject(game.CodeBadPayload, "guess requires a location name")
	}
	e.guessUsed = true
	e.resolveGuess(loc)
	return nil
}

// resolveGuess settles a spy location guess, voluntary or after being
// identified in the final vote.
func (e *Engine) resolveGuess(loc string) {
	correct := loc == Locations[e.locationIdx].Name
	e.log.AppendFor(e.spy, game.EventPlayerAction, map[string]any{
		"action": "location_guess", "guess": loc, "correct": correct,
	})
	if correct {
		e.spyWins("Spy guessed location correctly", 2)
		return
	}
	e.nonSpiesWin("Spy guessed wrong location")
}

// --- voting (accusation and final) ---

func (e *Engine) applyVote(p game.PlayerID, a game.Action) *game.ValidationError {
	if a.Kind != "vote" {
		return game.Reject(game.CodeBadKind, "expected vote, got %s", a.Kind)
	}
	v, ok := a.Str("vote")
	if !ok || (v != "yes" && v != "no") {
		return game.Reject(game.CodeBadPayload, "vote must be yes or no")
	}
	if _, dup := e.votes[p]; dup {
		return game.Reject(game.CodeDoubleVote, "player %d already voted", int(p))
	}
	e.recordVote(p, v == "yes")
	return nil
}

func (e *Engine) recordVote(p game.PlayerID, yes bool) {
	if _, dup := e.votes[p]; dup {
		return
	}
	e.votes[p] = yes
	if len(e.votes) < e.cfg.Players-1 {
		return
	}

	yesCount := 0
	for i := 0; i < e.cfg.Players; i++ {
		pid := game.PlayerID(i)
		if pid == e.suspect {
			continue
		}
		vote := "no"
		if e.votes[pid] {
			vote = "yes"
			yesCount++
		}
		e.log.AppendFor(pid, game.EventVoteCast, map[string]any{"vote": vote, "suspect": int(e.suspect)})
	}

	if e.phase == PhaseAccusationVote {
		e.resolveAccusation(yesCount)
		return
	}
	e.resolveFinalVote(yesCount)
}

// resolveAccusation: unanimous yes executes the accusation, anything
// else returns to play.
func (e *Engine) resolveAccusation(yesCount int) {
	voters := e.cfg.Players - 1
	passed := yesCount == voters
	e.log.Append(game.EventElectionResult, map[string]any{
		"type": "accusation", "passed": passed, "yes": yesCount, "voters": voters, "suspect": int(e.suspect),
	})
	if passed {
		if e.suspect == e.spy {
			e.nonSpiesWin("Spy identified by accusation")
		} else {
			e.spyWins("Wrong player accused", 1)
		}
		return
	}
	if e.exchanges >= e.budget {
		e.enterFinalNomination(0)
		return
	}
	e.setPhase(PhaseQandA)
}

// --- final vote ---

func (e *Engine) enterFinalNomination(from int) {
	if from >= e.cfg.Players {
		// Every player has had a nomination turn without a conviction.
		e.spyWins("Spy remained unidentified", 1)
		return
	}
	e.nominator = game.PlayerID(from)
	e.setPhase(PhaseFinalNomination)
}

func (e *Engine) advanceNominator() {
	e.enterFinalNomination(int(e.nominator) + 1)
}

func (e *Engine) applyNomination(p game.PlayerID, a game.Action) *game.ValidationError {
	switch a.Kind {
	case "pass":
		e.advanceNominator()
		return nil
	case "nominate":
		t, ok := a.Int("target")
		if !ok || t < 0 || t >= e.cfg.Players {
			return game.Reject(game.CodeBadPayload, "nominate requires a valid target")
		}
		target := game.PlayerID(t)
		if target == p {
			return game.Reject(game.CodeIneligible, "cannot nominate yourself")
		}
		if e.tried[target] {
			return game.Reject(game.CodeIneligible, "player %d was already tried", t)
		}
		e.suspect = target
		e.tried[target] = true
		e.votes = make(map[game.PlayerID]bool)
		e.log.AppendFor(p, game.EventPlayerNominate, map[string]any{
			"type": "final_vote", "suspect": t,
		})
		e.setPhase(PhaseFinalVote)
		return nil
	}
	return game.Reject(game.CodeBadKind, "expected nominate or pass, got %s", a.Kind)
}

// resolveFinalVote: strict majority convicts the suspect. Convicting the
// spy offers them a last location guess.
func (e *Engine) resolveFinalVote(yesCount int) {
	voters := e.cfg.Players - 1
	passed := yesCount > voters/2
	e.log.Append(game.EventElectionResult, map[string]any{
		"type": "final_vote", "passed": passed, "yes": yesCount, "voters": voters, "suspect": int(e.suspect),
	})
	if !passed {
		e.advanceNominator()
		return
	}
	if e.suspect == e.spy {
		e.setPhase(PhaseSpyGuess)
		return
	}
	e.spyWins("Wrong player identified", 1)
}

// --- spy guess after conviction ---

func (e *Engine) applyGuess(p game.PlayerID, a game.Action) *game.ValidationError {
	if a.Kind != "guess" {
		return game.Reject(game.CodeBadKind, "expected guess, got %s", a.Kind)
	}
	loc, ok := a.Str("location")
	if !ok {
		return game.Reject(game.CodeBadPayload, "guess requires a location name")
	}
	e.resolveGuess(loc)
	return nil
}

// --- rewards and stats ---

func (e *Engine) rewards() map[game.PlayerID]float64 {
	out := make(map[game.PlayerID]float64, e.cfg.Players)
	for i := 0; i < e.cfg.Players; i++ {
		out[game.PlayerID(i)] = float64(e.scores[i])
	}
	return out
}

// PlayerStats reports per-seat outcome stats for the match result.
func (e *Engine) PlayerStats() map[game.PlayerID]game.PlayerStats {
	out := make(map[game.PlayerID]game.PlayerStats, e.cfg.Players)
	for i := 0; i < e.cfg.Players; i++ {
		pid := game.PlayerID(i)
		won := false
		if e.terminal {
			if pid == e.spy {
				won = e.winner == WinnerSpy
			} else {
				won = e.winner == WinnerNonSpy
			}
		}
		out[pid] = game.PlayerStats{Role: e.roles[i], Score: float64(e.scores[i]), Won: won}
	}
	return out
}
