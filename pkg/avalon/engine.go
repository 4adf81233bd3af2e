package avalon

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"

	"github.com/EternisAI/strategy-bench/pkg/game"
)

// Phase is the engine-local phase enumeration.
type Phase string

const (
	PhaseTeamSelection Phase = "TeamSelection"
	PhaseTeamDiscuss   Phase = "TeamDiscussion"
	PhaseTeamVoting    Phase = "TeamVoting"
	PhaseQuestVoting   Phase = "QuestVoting"
	PhaseAssassination Phase = "Assassination"
	PhaseGameOver      Phase = "GameOver"
)

// Config configures a match.
type Config struct {
	Players int
	Seed    int64
	MatchID string
	// Roles optionally fixes the deal (index = player). Must contain
	// exactly evilCount(Players) evil roles including the assassin.
	Roles []Role
}

// Engine is the Avalon state machine.
type Engine struct {
	cfg Config
	rng *rand.Rand
	log *game.EventLog

	phase Phase

	roles []Role

	quest        int // 1-based current quest
	questResults []bool
	leader       game.PlayerID
	proposalIdx  int // global proposal counter
	roundIdx     int // proposals within the current quest (rejections so far)

	team         []game.PlayerID
	teamBallots  map[game.PlayerID]string
	questBallots map[game.PlayerID]string

	speakQueue []game.PlayerID
	spoken     map[string]bool // (player|normalized text) dedup per discussion

	invalid map[game.PlayerID]int

	terminal  bool
	winner    string
	winReason string
}

// New validates the config and builds an unstarted engine.
func New(cfg Config) (*Engine, error) {
	if cfg.Players < MinPlayers || cfg.Players > MaxPlayers {
		return nil, fmt.Errorf("avalon: player count %d outside [%d,%d]", cfg.Players, MinPlayers, MaxPlayers)
	}
	if cfg.Roles != nil {
		if len(cfg.Roles) != cfg.Players {
			return nil, fmt.Errorf("avalon: fixed roles length %d != players %d", len(cfg.Roles), cfg.Players)
		}
		evil, assassins := 0, 0
		for _, r := range cfg.Roles {
			if r.Evil() {
				evil++
			}
			if r == RoleAssassin {
				assassins++
			}
		}
		if evil != evilCount(cfg.Players) || assassins != 1 {
			return nil, fmt.Errorf("avalon: fixed roles need %d evil including one assassin", evilCount(cfg.Players))
		}
	}
	if cfg.MatchID == "" {
		cfg.MatchID = Name
	}
	return &Engine{
		cfg: cfg,
		rng: game.NewRNG(cfg.Seed),
		log: game.NewEventLog(cfg.MatchID),
	}, nil
}

func (e *Engine) NumPlayers() int        { return e.cfg.Players }
func (e *Engine) Events() *game.EventLog { return e.log }
func (e *Engine) Terminal() bool         { return e.terminal }
func (e *Engine) Winner() string         { return e.winner }
func (e *Engine) WinReason() string      { return e.winReason }

// Reset deals roles and opens quest 1.
func (e *Engine) Reset() map[game.PlayerID]game.Observation {
	roles := e.cfg.Roles
	if roles == nil {
		roles = defaultRoles(e.cfg.Players)
		e.rng.Shuffle(len(roles), func(i, j int) { roles[i], roles[j] = roles[j], roles[i] })
	}
	e.roles = roles

	e.quest = 1
	e.questResults = nil
	e.leader = game.PlayerID(e.rng.Intn(e.cfg.Players))
	e.proposalIdx = 0
	e.roundIdx = 0
	e.terminal = false
	e.winner, e.winReason = "", ""

	e.log.SetRound(e.quest)
	e.log.Append(game.EventGameStart, map[string]any{"game": Name, "players": e.cfg.Players})

	for p := range e.roles {
		pid := game.PlayerID(p)
		data := map[string]any{"event": "role_assignment", "role": string(e.roles[p]), "team": e.roles[p].Team()}
		if known := e.knownPlayers(pid); len(known) > 0 {
			data[e.knowledgeLabel(pid)] = known
		}
		e.log.AppendPrivate(pid, game.EventInfo, data)
	}

	e.enterSelection()
	return e.Observations()
}

// knownPlayers returns the IDs this player knows by role at setup.
// Merlin sees all evil except Mordred; Percival sees Merlin and Morgana
// without distinction; evil except Oberon see each other excluding Oberon.
func (e *Engine) knownPlayers(p game.PlayerID) []int {
	var out []int
	switch e.roles[p] {
	case RoleMerlin:
		for i, r := range e.roles {
			if r.Evil() && r != RoleMordred {
				out = append(out, i)
			}
		}
	case RolePercival:
		for i, r := range e.roles {
			if r == RoleMerlin || r == RoleMorgana {
				out = append(out, i)
			}
		}
	default:
		if e.roles[p].Evil() && e.roles[p] != RoleOberon {
			for i, r := range e.roles {
				if game.PlayerID(i) == p {
					continue
				}
				if r.Evil() && r != RoleOberon {
					out = append(out, i)
				}
			}
		}
	}
	sort.Ints(out)
	return out
}

func (e *Engine) knowledgeLabel(p game.PlayerID) string {
	switch e.roles[p] {
	case RoleMerlin:
		return "seen_evil"
	case RolePercival:
		return "merlin_candidates"
	default:
		return "evil_team"
	}
}

func (e *Engine) teamSize() int {
	return teamSizes(e.cfg.Players)[e.quest-1]
}

func (e *Engine) assassin() game.PlayerID {
	for i, r := range e.roles {
		if r == RoleAssassin {
			return game.PlayerID(i)
		}
	}
	return 0
}

// --- phase transitions ---

func (e *Engine) setPhase(p Phase) {
	e.phase = p
	e.invalid = make(map[game.PlayerID]int)
	e.log.Append(game.EventPhaseChange, map[string]any{"phase": string(p)})
}

func (e *Engine) enterSelection() {
	e.team = nil
	e.setPhase(PhaseTeamSelection)
}

func (e *Engine) enterDiscussion() {
	e.speakQueue = e.speakQueue[:0]
	e.speakQueue = append(e.speakQueue, e.leader)
	for i := 0; i < e.cfg.Players; i++ {
		pid := game.PlayerID(i)
		if pid != e.leader {
			e.speakQueue = append(e.speakQueue, pid)
		}
	}
	e.spoken = make(map[string]bool)
	e.setPhase(PhaseTeamDiscuss)
}

func (e *Engine) enterTeamVoting() {
	e.teamBallots = make(map[game.PlayerID]string)
	e.setPhase(PhaseTeamVoting)
}

func (e *Engine) enterQuestVoting() {
	e.questBallots = make(map[game.PlayerID]string)
	e.setPhase(PhaseQuestVoting)
}

func (e *Engine) rotateLeader() {
	e.leader = (e.leader + 1) % game.PlayerID(e.cfg.Players)
}

func (e *Engine) gameOver(winner, reason string) {
	e.terminal = true
	e.winner = winner
	e.winReason = reason
	e.phase = PhaseGameOver
	succeeded, failed := e.questTally()
	e.log.Append(game.EventGameEnd, map[string]any{
		"winner":           winner,
		"win_reason":       reason,
		"quests_succeeded": succeeded,
		"quests_failed":    failed,
	})
}

func (e *Engine) questTally() (succeeded, failed int) {
	for _, ok := range e.questResults {
		if ok {
			succeeded++
		} else {
			failed++
		}
	}
	return
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
		Info:         map[string]any{"phase": string(e.phase), "quest": e.quest},
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
	case PhaseTeamSelection:
		verr = e.applyProposal(p, a)
	case PhaseTeamDiscuss:
		verr = e.applyStatement(p, a)
	case PhaseTeamVoting:
		verr = e.applyTeamVote(p, a)
	case PhaseQuestVoting:
		verr = e.applyQuestVote(p, a)
	case PhaseAssassination:
		verr = e.applyAssassination(p, a)
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
	case PhaseTeamSelection:
		return p == e.leader
	case PhaseTeamDiscuss:
		return len(e.speakQueue) > 0 && e.speakQueue[0] == p
	case PhaseTeamVoting:
		_, voted := e.teamBallots[p]
		return !voted
	case PhaseQuestVoting:
		if !e.onTeam(p) {
			return false
		}
		_, voted := e.questBallots[p]
		return !voted
	case PhaseAssassination:
		return p == e.assassin()
	}
	return false
}

func (e *Engine) onTeam(p game.PlayerID) bool {
	for _, m := range e.team {
		if m == p {
			return true
		}
	}
	return false
}

// applyFallback performs the engine default: propose the lowest IDs
// including the leader, stay silent, approve nothing (vote reject), send
// success on quests, and assassinate the first good player.
func (e *Engine) applyFallback(p game.PlayerID) {
	switch e.phase {
	case PhaseTeamSelection:
		team := []game.PlayerID{e.leader}
		for i := 0; len(team) < e.teamSize(); i++ {
			pid := game.PlayerID(i)
			if pid != e.leader {
				team = append(team, pid)
			}
		}
		e.propose(team)
	case PhaseTeamDiscuss:
		e.popSpeaker()
	case PhaseTeamVoting:
		e.castTeamVote(p, "reject")
	case PhaseQuestVoting:
		e.castQuestVote(p, "success")
	case PhaseAssassination:
		for i, r := range e.roles {
			if !r.Evil() {
				e.assassinate(game.PlayerID(i))
				return
			}
		}
	}
}

// --- team selection ---

func (e *Engine) applyProposal(p game.PlayerID, a game.Action) *game.ValidationError {
	if a.Kind != "propose" {
		return game.Reject(game.CodeBadKind, "expected propose, got %s", a.Kind)
	}
	ids, ok := a.Ints("team")
	if !ok {
		return game.Reject(game.CodeBadPayload, "propose requires an integer team list")
	}
	if len(ids) != e.teamSize() {
		return game.Reject(game.CodeBadPayload, "team must have exactly %d members", e.teamSize())
	}
	seen := make(map[int]bool)
	team := make([]game.PlayerID, 0, len(ids))
	for _, id := range ids {
		if id < 0 || id >= e.cfg.Players {
			return game.Reject(game.CodeIneligible, "player %d does not exist", id)
		}
		if seen[id] {
			return game.Reject(game.CodeBadPayload, "duplicate team member %d", id)
		}
		seen[id] = true
		team = append(team, game.PlayerID(id))
	}
	sort.Slice(team, func(i, j int) bool { return team[i] < team[j] })
	e.propose(team)
	return nil
}

func (e *Engine) propose(team []game.PlayerID) {
	e.team = team
	e.proposalIdx++
	e.log.AppendFor(e.leader, game.EventPlayerNominate, map[string]any{
		"leader":       int(e.leader),
		"team":         game.IDsToInts(team),
		"quest":        e.quest,
		"proposal_idx": e.proposalIdx,
		"round_idx":    e.roundIdx,
	})
	e.enterDiscussion()
}

// --- discussion ---

func (e *Engine) applyStatement(p game.PlayerID, a game.Action) *game.ValidationError {
	switch a.Kind {
	case "statement":
		text, _ := a.Str("statement")
		norm := strings.ToLower(strings.TrimSpace(text))
		key := fmt.Sprintf("%d|%s", int(p), norm)
		if norm != "" && !e.spoken[key] {
			e.spoken[key] = true
			e.log.AppendFor(p, game.EventDiscussion, map[string]any{
				"statement": text, "quest": e.quest, "round_idx": e.roundIdx,
			})
		}
		e.popSpeaker()
		return nil
	case "silence":
		e.popSpeaker()
		return nil
	}
	return game.Reject(game.CodeBadKind, "expected statement or silence, got %s", a.Kind)
}

func (e *Engine) popSpeaker() {
	if len(e.speakQueue) > 0 {
		e.speakQueue = e.speakQueue[1:]
	}
	if len(e.speakQueue) == 0 {
		e.enterTeamVoting()
	}
}

// --- team voting ---

func (e *Engine) applyTeamVote(p game.PlayerID, a game.Action) *game.ValidationError {
	if a.Kind != "vote" {
		return game.Reject(game.CodeBadKind, "expected vote, got %s", a.Kind)
	}
	v, ok := a.Str("vote")
	if !ok || (v != "approve" && v != "reject") {
		return game.Reject(game.CodeBadPayload, "vote must be approve or reject")
	}
	if _, dup := e.teamBallots[p]; dup {
		return game.Reject(game.CodeDoubleVote, "player %d already voted", int(p))
	}
	e.castTeamVote(p, v)
	return nil
}

func (e *Engine) castTeamVote(p game.PlayerID, v string) {
	if _, dup := e.teamBallots[p]; dup {
		return
	}
	e.teamBallots[p] = v
	if len(e.teamBallots) < e.cfg.Players {
		return
	}

	approve, reject := 0, 0
	for i := 0; i < e.cfg.Players; i++ {
		pid := game.PlayerID(i)
		vote := e.teamBallots[pid]
		e.log.AppendFor(pid, game.EventVoteCast, map[string]any{"vote": vote})
		if vote == "approve" {
			approve++
		} else {
			reject++
		}
	}

	approved := approve > e.cfg.Players/2
	e.log.Append(game.EventElectionResult, map[string]any{
		"passed": approved, "approve": approve, "reject": reject,
		"quest": e.quest, "proposal_idx": e.proposalIdx, "round_idx": e.roundIdx,
	})

	if approved {
		e.enterQuestVoting()
		return
	}

	e.roundIdx++
	if e.roundIdx >= maxProposalsPerQuest {
		e.gameOver(TeamEvil, "5 consecutive team rejections")
		return
	}
	e.rotateLeader()
	e.enterSelection()
}

// --- quest voting ---

func (e *Engine) applyQuestVote(p game.PlayerID, a game.Action) *game.ValidationError {
	if a.Kind != "vote" {
		return game.Reject(game.CodeBadKind, "expected vote, got %s", a.Kind)
	}
	v, ok := a.Str("vote")
	if !ok || (v != "success" && v != "fail") {
		return game.Reject(game.CodeBadPayload, "vote must be success or fail")
	}
	if v == "fail" && !e.roles[p].Evil() {
		return game.Reject(game.CodeIneligible, "good players must vote success")
	}
	if _, dup := e.questBallots[p]; dup {
		return game.Reject(game.CodeDoubleVote, "player %d already voted", int(p))
	}
	e.castQuestVote(p, v)
	return nil
}

func (e *Engine) castQuestVote(p game.PlayerID, v string) {
	if _, dup := e.questBallots[p]; dup {
		return
	}
	e.questBallots[p] = v
	if len(e.questBallots) < len(e.team) {
		return
	}

	fails := 0
	ballots := make([]string, 0, len(e.team))
	for _, m := range e.team {
		b := e.questBallots[m]
		ballots = append(ballots, b)
		if b == "fail" {
			fails++
		}
	}
	// Ballots are anonymized: shuffle before publishing.
	e.rng.Shuffle(len(ballots), func(i, j int) { ballots[i], ballots[j] = ballots[j], ballots[i] })

	needed := failsNeeded(e.cfg.Players, e.quest)
	succeeded := fails < needed
	e.questResults = append(e.questResults, succeeded)
	e.log.Append(game.EventQuestResult, map[string]any{
		"quest":        e.quest,
		"succeeded":    succeeded,
		"fails":        fails,
		"fails_needed": needed,
		"ballots":      ballots,
		"team":         game.IDsToInts(e.team),
	})

	sc, fc := e.questTally()
	if sc >= 3 {
		e.setPhase(PhaseAssassination)
		return
	}
	if fc >= 3 {
		e.gameOver(TeamEvil, "3 quests failed")
		return
	}

	e.quest++
	e.roundIdx = 0
	e.log.SetRound(e.quest)
	e.log.Append(game.EventRoundStart, map[string]any{"quest": e.quest})
	e.rotateLeader()
	e.enterSelection()
}

// --- assassination ---

func (e *Engine) applyAssassination(p game.PlayerID, a game.Action) *game.ValidationError {
	if a.Kind != "assassinate" {
		return game.Reject(game.CodeBadKind, "expected assassinate, got %s", a.Kind)
	}
	t, ok := a.Int("target")
	if !ok || t < 0 || t >= e.cfg.Players {
		return game.Reject(game.CodeBadPayload, "assassinate requires a valid target")
	}
	if e.roles[t].Evil() {
		return game.Reject(game.CodeIneligible, "target must be a good player")
	}
	e.assassinate(game.PlayerID(t))
	return nil
}

func (e *Engine) assassinate(target game.PlayerID) {
	hit := e.roles[target] == RoleMerlin
	e.log.AppendFor(e.assassin(), game.EventPlayerAction, map[string]any{
		"action": "assassinate", "target": int(target), "was_merlin": hit,
	})
	if hit {
		e.gameOver(TeamEvil, "Merlin assassinated")
	} else {
		e.gameOver(TeamGood, "3 quests succeeded")
	}
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
		out[pid] = game.PlayerStats{Role: string(e.roles[i]), Score: score, Won: won}
	}
	return out
}
