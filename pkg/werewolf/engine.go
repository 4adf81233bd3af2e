package werewolf

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/EternisAI/strategy-bench/pkg/game"
)

// Phase is the engine-local phase enumeration.
type Phase string

const (
	PhaseNightWerewolf Phase = "NightWerewolf"
	PhaseNightDoctor   Phase = "NightDoctor"
	PhaseNightSeer     Phase = "NightSeer"
	PhaseDayBidding    Phase = "DayBidding"
	PhaseDayDebate     Phase = "DayDebate"
	PhaseDayVoting     Phase = "DayVoting"
	PhaseGameOver      Phase = "GameOver"
)

const noPlayer = game.PlayerID(-1)

// Engine is the Werewolf state machine.
type Engine struct {
	cfg Config
	rng *rand.Rand
	log *game.EventLog

	phase Phase

	roles []Role
	alive []bool

	round     int
	maxRounds int

	// night state
	wolfActed     map[game.PlayerID]bool
	wolfTarget    game.PlayerID
	protectTarget game.PlayerID

	// day state
	lastSpeaker game.PlayerID
	bids        map[game.PlayerID]int
	speaker     game.PlayerID
	debateTurns int
	votes       map[game.PlayerID]game.PlayerID

	invalid map[game.PlayerID]int

	terminal  bool
	winner    string
	winReason string
}

// New validates the config and builds an unstarted engine.
func New(cfg Config) (*Engine, error) {
	if cfg.Players < MinPlayers || cfg.Players > MaxPlayers {
		return nil, fmt.Errorf("werewolf: player count %d outside [%d,%d]", cfg.Players, MinPlayers, MaxPlayers)
	}
	if cfg.Roles != nil {
		if len(cfg.Roles) != cfg.Players {
			return nil, fmt.Errorf("werewolf: fixed roles length %d != players %d", len(cfg.Roles), cfg.Players)
		}
		wolves := 0
		for _, r := range cfg.Roles {
			if r == RoleWerewolf {
				wolves++
			}
		}
		if wolves == 0 || wolves == cfg.Players {
			return nil, fmt.Errorf("werewolf: fixed roles need at least one werewolf and one villager")
		}
	}
	if cfg.MaxRounds <= 0 {
		cfg.MaxRounds = defaultMaxRounds
	}
	if cfg.MatchID == "" {
		cfg.MatchID = Name
	}
	return &Engine{
		cfg:       cfg,
		maxRounds: cfg.MaxRounds,
		rng:       game.NewRNG(cfg.Seed),
		log:       game.NewEventLog(cfg.MatchID),
	}, nil
}

func (e *Engine) NumPlayers() int        { return e.cfg.Players }
func (e *Engine) Events() *game.EventLog { return e.log }
func (e *Engine) Terminal() bool         { return e.terminal }
func (e *Engine) Winner() string         { return e.winner }
func (e *Engine) WinReason() string      { return e.winReason }

// Reset deals roles and opens the first night.
func (e *Engine) Reset() map[game.PlayerID]game.Observation {
	roles := e.cfg.Roles
	if roles == nil {
		roles = defaultRoles(e.cfg.Players)
		e.rng.Shuffle(len(roles), func(i, j int) { roles[i], roles[j] = roles[j], roles[i] })
	}
	e.roles = roles
	e.alive = make([]bool, e.cfg.Players)
	for i := range e.alive {
		e.alive[i] = true
	}
	e.lastSpeaker = noPlayer
	e.terminal = false
	e.winner, e.winReason = "", ""

	e.log.Append(game.EventGameStart, map[string]any{"game": Name, "players": e.cfg.Players})

	for p := range e.roles {
		pid := game.PlayerID(p)
		data := map[string]any{"event": "role_assignment", "role": string(e.roles[p]), "team": e.roles[p].Team()}
		if e.roles[p] == RoleWerewolf {
			data["werewolves"] = e.wolfIDs()
		}
		e.log.AppendPrivate(pid, game.EventInfo, data)
	}

	e.beginRound(1)
	return e.Observations()
}

func (e *Engine) wolfIDs() []int {
	var out []int
	for i, r := range e.roles {
		if r == RoleWerewolf {
			out = append(out, i)
		}
	}
	return out
}

func (e *Engine) aliveCount() int {
	n := 0
	for _, ok := range e.alive {
		if ok {
			n++
		}
	}
	return n
}

func (e *Engine) aliveByTeam() (wolves, villagers int) {
	for i, ok := range e.alive {
		if !ok {
			continue
		}
		if e.roles[i] == RoleWerewolf {
			wolves++
		} else {
			villagers++
		}
	}
	return
}

func (e *Engine) aliveWithRole(r Role) (game.PlayerID, bool) {
	for i, ok := range e.alive {
		if ok && e.roles[i] == r {
			return game.PlayerID(i), true
		}
	}
	return noPlayer, false
}

// --- phase transitions ---

func (e *Engine) setPhase(p Phase) {
	e.phase = p
	e.invalid = make(map[game.PlayerID]int)
	e.log.Append(game.EventPhaseChange, map[string]any{"phase": string(p)})
}

func (e *Engine) beginRound(n int) {
	if n > e.maxRounds {
		e.gameOver("", "round limit reached")
		return
	}
	e.round = n
	e.log.SetRound(n)
	e.log.Append(game.EventRoundStart, map[string]any{"round": n, "alive": e.aliveCount()})
	e.enterNight()
}

func (e *Engine) enterNight() {
	e.wolfActed = make(map[game.PlayerID]bool)
	e.wolfTarget = noPlayer
	e.protectTarget = noPlayer
	e.setPhase(PhaseNightWerewolf)
}

func (e *Engine) advanceNight() {
	switch e.phase {
	case PhaseNightWerewolf:
		if _, ok := e.aliveWithRole(RoleDoctor); ok {
			e.setPhase(PhaseNightDoctor)
			return
		}
		fallthrough
	case PhaseNightDoctor:
		if _, ok := e.aliveWithRole(RoleSeer); ok {
			e.setPhase(PhaseNightSeer)
			return
		}
		fallthrough
	default:
		e.resolveNight()
	}
}

func (e *Engine) resolveNight() {
	if e.wolfTarget != noPlayer && e.wolfTarget != e.protectTarget {
		e.eliminate(e.wolfTarget, "werewolf_attack")
	} else {
		e.log.Append(game.EventInfo, map[string]any{"event": "night_result", "eliminated": -1})
	}
	if e.checkWin() {
		return
	}
	e.debateTurns = 0
	e.enterBidding()
}

func (e *Engine) enterBidding() {
	e.bids = make(map[game.PlayerID]int)
	e.setPhase(PhaseDayBidding)
}

func (e *Engine) enterVoting() {
	e.votes = make(map[game.PlayerID]game.PlayerID)
	e.setPhase(PhaseDayVoting)
}

// eliminate marks a player dead. The role stays hidden; only the seer
// learns roles, through investigation.
func (e *Engine) eliminate(p game.PlayerID, cause string) {
	e.alive[p] = false
	e.log.Append(game.EventPlayerEliminated, map[string]any{
		"player": int(p), "cause": cause, "alive": e.aliveCount(),
	})
}

// checkWin ends the game when a side has won. Wolves must strictly
// outnumber villagers: at parity the village still gets its day vote.
func (e *Engine) checkWin() bool {
	wolves, villagers := e.aliveByTeam()
	switch {
	case wolves == 0:
		e.gameOver(TeamVillage, "all werewolves eliminated")
	case wolves > villagers:
		e.gameOver(TeamWerewolves, "werewolves outnumber villagers")
	default:
		return false
	}
	return true
}

func (e *Engine) gameOver(winner, reason string) {
	e.terminal = true
	e.winner = winner
	e.winReason = reason
	e.phase = PhaseGameOver
	wolves, villagers := e.aliveByTeam()
	e.log.Append(game.EventGameEnd, map[string]any{
		"winner":           winner,
		"win_reason":       reason,
		"rounds":           e.round,
		"alive_werewolves": wolves,
		"alive_villagers":  villagers,
	})
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
		Info:         map[string]any{"phase": string(e.phase), "round": e.round},
	}
}

func (e *Engine) handle(p game.PlayerID, a game.Action) {
	if int(p) < 0 || int(p) >= e.cfg.Players {
		return
	}
	if !e.alive[p] {
		e.log.Error(p, game.CodeDeadPlayer, "dead players cannot act")
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
	case PhaseNightWerewolf:
		verr = e.applyWolfTarget(p, a)
	case PhaseNightDoctor:
		verr = e.applyProtect(p, a)
	case PhaseNightSeer:
		verr = e.applyInvestigate(p, a)
	case PhaseDayBidding:
		verr = e.applyBid(p, a)
	case PhaseDayDebate:
		verr = e.applyStatement(p, a)
	case PhaseDayVoting:
		verr = e.applyVote(p, a)
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
	case PhaseNightWerewolf:
		return e.roles[p] == RoleWerewolf && !e.wolfActed[p]
	case PhaseNightDoctor:
		return e.roles[p] == RoleDoctor
	case PhaseNightSeer:
		return e.roles[p] == RoleSeer
	case PhaseDayBidding:
		if p == e.lastSpeaker {
			return false
		}
		_, bid := e.bids[p]
		return !bid
	case PhaseDayDebate:
		return p == e.speaker
	case PhaseDayVoting:
		_, voted := e.votes[p]
		return !voted
	}
	return false
}

// applyFallback performs the engine default: skip the night action, bid
// zero, stay silent, abstain from the vote.
func (e *Engine) applyFallback(p game.PlayerID) {
	switch e.phase {
	case PhaseNightWerewolf:
		e.markWolfActed(p)
	case PhaseNightDoctor, PhaseNightSeer:
		e.advanceNight()
	case PhaseDayBidding:
		e.recordBid(p, 0)
	case PhaseDayDebate:
		e.finishSpeech()
	case PhaseDayVoting:
		e.recordVote(p, noPlayer)
	}
}

// --- night ---

// applyWolfTarget records the pack's kill target. The first valid target
// submitted by any living werewolf this night stands; later submissions
// are accepted and ignored.
func (e *Engine) applyWolfTarget(p game.PlayerID, a game.Action) *game.ValidationError {
	if a.Kind != "target" {
		return game.Reject(game.CodeBadKind, "expected target, got %s", a.Kind)
	}
	t, ok := a.Int("target")
	if !ok || t < 0 || t >= e.cfg.Players {
		return game.Reject(game.CodeBadPayload, "target requires a valid player id")
	}
	if !e.alive[t] || e.roles[t] == RoleWerewolf {
		return game.Reject(game.CodeIneligible, "target must be a living non-werewolf")
	}
	if e.wolfTarget == noPlayer {
		e.wolfTarget = game.PlayerID(t)
	}
	e.markWolfActed(p)
	return nil
}

func (e *Engine) markWolfActed(p game.PlayerID) {
	e.wolfActed[p] = true
	for i, r := range e.roles {
		if r == RoleWerewolf && e.alive[i] && !e.wolfActed[game.PlayerID(i)] {
			return
		}
	}
	e.advanceNight()
}

func (e *Engine) applyProtect(p game.PlayerID, a game.Action) *game.ValidationError {
	if a.Kind != "protect" {
		return game.Reject(game.CodeBadKind, "expected protect, got %s", a.Kind)
	}
	t, ok := a.Int("target")
	if !ok || t < 0 || t >= e.cfg.Players || !e.alive[t] {
		return game.Reject(game.CodeBadPayload, "protect requires a living player id")
	}
	e.protectTarget = game.PlayerID(t)
	e.advanceNight()
	return nil
}

func (e *Engine) applyInvestigate(p game.PlayerID, a game.Action) *game.ValidationError {
	if a.Kind != "investigate" {
		return game.Reject(game.CodeBadKind, "expected investigate, got %s", a.Kind)
	}
	t, ok := a.Int("target")
	if !ok || t < 0 || t >= e.cfg.Players {
		return game.Reject(game.CodeBadPayload, "investigate requires a valid player id")
	}
	if game.PlayerID(t) == p {
		return game.Reject(game.CodeIneligible, "cannot investigate yourself")
	}
	e.log.AppendPrivate(p, game.EventInvestigationResult, map[string]any{
		"target": t, "role": string(e.roles[t]),
	})
	e.advanceNight()
	return nil
}

// --- day bidding ---

func (e *Engine) applyBid(p game.PlayerID, a game.Action) *game.ValidationError {
	if a.Kind != "bid" {
		return game.Reject(game.CodeBadKind, "expected bid, got %s", a.Kind)
	}
	v, ok := a.Int("bid")
	if !ok || v < 0 || v > maxBid {
		return game.Reject(game.CodeBadPayload, "bid must be an integer in [0,%d]", maxBid)
	}
	e.recordBid(p, v)
	return nil
}

func (e *Engine) recordBid(p game.PlayerID, v int) {
	e.bids[p] = v
	for i, ok := range e.alive {
		pid := game.PlayerID(i)
		if ok && pid != e.lastSpeaker {
			if _, bid := e.bids[pid]; !bid {
				return
			}
		}
	}
	e.resolveBidding()
}

func (e *Engine) resolveBidding() {
	best := -1
	var top []game.PlayerID
	for i, ok := range e.alive {
		pid := game.PlayerID(i)
		if !ok || pid == e.lastSpeaker {
			continue
		}
		switch v := e.bids[pid]; {
		case v > best:
			best = v
			top = top[:0]
			top = append(top, pid)
		case v == best:
			top = append(top, pid)
		}
	}
	if len(top) == 0 {
		// Everyone alive was the last speaker; nothing to debate.
		e.enterVoting()
		return
	}
	e.speaker = top[e.rng.Intn(len(top))]
	e.log.Append(game.EventInfo, map[string]any{
		"event": "bidding_result", "speaker": int(e.speaker), "bid": best,
	})
	e.setPhase(PhaseDayDebate)
}

// --- day debate ---

func (e *Engine) applyStatement(p game.PlayerID, a game.Action) *game.ValidationError {
	switch a.Kind {
	case "statement":
		text, _ := a.Str("statement")
		if text != "" {
			e.log.AppendFor(p, game.EventDiscussion, map[string]any{
				"statement": text, "round": e.round,
			})
		}
		e.finishSpeech()
		return nil
	case "silence":
		e.finishSpeech()
		return nil
	}
	return game.Reject(game.CodeBadKind, "expected statement or silence, got %s", a.Kind)
}

func (e *Engine) finishSpeech() {
	e.lastSpeaker = e.speaker
	e.debateTurns++
	if e.debateTurns >= maxDebateTurns {
		e.enterVoting()
		return
	}
	e.enterBidding()
}

// --- day voting ---

func (e *Engine) applyVote(p game.PlayerID, a game.Action) *game.ValidationError {
	if a.Kind != "vote" {
		return game.Reject(game.CodeBadKind, "expected vote, got %s", a.Kind)
	}
	t, ok := a.Int("target")
	if !ok || t < 0 || t >= e.cfg.Players {
		return game.Reject(game.CodeBadPayload, "vote requires a valid player id")
	}
	if game.PlayerID(t) == p {
		return game.Reject(game.CodeIneligible, "cannot vote for yourself")
	}
	if !e.alive[t] {
		return game.Reject(game.CodeIneligible, "cannot vote for a dead player")
	}
	if _, dup := e.votes[p]; dup {
		return game.Reject(game.CodeDoubleVote, "player %d already voted", int(p))
	}
	e.recordVote(p, game.PlayerID(t))
	return nil
}

func (e *Engine) recordVote(p, target game.PlayerID) {
	if _, dup := e.votes[p]; dup {
		return
	}
	e.votes[p] = target
	if len(e.votes) < e.aliveCount() {
		return
	}
	e.resolveVoting()
}

// resolveVoting eliminates the unique top vote-getter when it holds a
// strict majority of living players; ties and short tallies eliminate
// no one.
func (e *Engine) resolveVoting() {
	tally := make(map[game.PlayerID]int)
	for i := 0; i < e.cfg.Players; i++ {
		pid := game.PlayerID(i)
		target, ok := e.votes[pid]
		if !ok {
			continue
		}
		vote := "abstain"
		if target != noPlayer {
			vote = fmt.Sprintf("%d", int(target))
			tally[target]++
		}
		e.log.AppendFor(pid, game.EventVoteCast, map[string]any{"vote": vote})
	}

	best, unique := noPlayer, false
	for target, n := range tally {
		switch {
		case best == noPlayer || n > tally[best]:
			best, unique = target, true
		case n == tally[best]:
			unique = false
		}
	}

	eliminated := -1
	if best != noPlayer && unique && tally[best] > e.aliveCount()/2 {
		eliminated = int(best)
	}
	e.log.Append(game.EventElectionResult, map[string]any{
		"passed": eliminated >= 0, "eliminated": eliminated, "round": e.round,
	})
	if eliminated >= 0 {
		e.eliminate(game.PlayerID(eliminated), "day_vote")
		if e.checkWin() {
			return
		}
	}
	e.beginRound(e.round + 1)
}

// --- rewards and stats ---

func (e *Engine) rewards() map[game.PlayerID]float64 {
	out := make(map[game.PlayerID]float64, e.cfg.Players)
	for i := range e.roles {
		pid := game.PlayerID(i)
		if e.terminal && e.winner == e.roles[i].Team() {
			out[pid] = 1
		} else {
			out[pid] = 0
		}
	}
	return out
}

// PlayerStats reports per-seat outcome stats for the match result.
func (e *Engine) PlayerStats() map[game.PlayerID]game.PlayerStats {
	out := make(map[game.PlayerID]game.PlayerStats, e.cfg.Players)
	for i := range e.roles {
		pid := game.PlayerID(i)
		won := e.terminal && e.winner == e.roles[i].Team()
		score := 0.0
		if won {
			score = 1
		}
		out[pid] = game.PlayerStats{
			Role:  string(e.roles[i]),
			Score: score,
			Won:   won,
			Extra: map[string]any{"alive": e.alive[i]},
		}
	}
	return out
}

// sortedAlive returns living player ids ascending, used by observations.
func (e *Engine) sortedAlive() []int {
	var out []int
	for i, ok := range e.alive {
		if ok {
			out = append(out, i)
		}
	}
	sort.Ints(out)
	return out
}
