package secrethitler

import (
	"fmt"
	"math/rand"

	"github.com/EternisAI/strategy-bench/pkg/game"
)

// Engine is the Secret Hitler state machine. It is not safe for concurrent
// use; the match driver is its only caller.
type Engine struct {
	cfg Config
	rng *rand.Rand
	log *game.EventLog

	phase Phase
	round int

	players []playerState
	deck    []Policy
	discard []Policy

	liberal int
	fascist int
	tracker int

	vetoUnlocked bool
	vetoDenied   bool // chancellor's veto already rejected this session

	president      game.PlayerID
	nominee        game.PlayerID
	lastPresident  game.PlayerID
	lastChancellor game.PlayerID
	termsWaived    bool

	investigated  map[game.PlayerID]bool
	specialReturn game.PlayerID

	ballots        map[game.PlayerID]string
	speakQueue     []game.PlayerID
	presidentHand  []Policy
	chancellorHand []Policy
	pendingPower   Power

	invalid map[game.PlayerID]int

	terminal  bool
	winner    string
	winReason string
}

// New validates the config and builds an unstarted engine; call Reset to deal.
func New(cfg Config) (*Engine, error) {
	if cfg.Players < MinPlayers || cfg.Players > MaxPlayers {
		return nil, fmt.Errorf("secrethitler: player count %d outside [%d,%d]", cfg.Players, MinPlayers, MaxPlayers)
	}
	if cfg.Roles != nil {
		if len(cfg.Roles) != cfg.Players {
			return nil, fmt.Errorf("secrethitler: fixed roles length %d != players %d", len(cfg.Roles), cfg.Players)
		}
		hitlers, fascists := 0, 0
		for _, r := range cfg.Roles {
			switch r {
			case RoleHitler:
				hitlers++
			case RoleFascist:
				fascists++
			case RoleLiberal:
			default:
				return nil, fmt.Errorf("secrethitler: unknown role %q", r)
			}
		}
		if hitlers != 1 || fascists != fascistCount(cfg.Players) {
			return nil, fmt.Errorf("secrethitler: fixed roles need 1 hitler and %d fascists", fascistCount(cfg.Players))
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

// Reset deals roles, shuffles the policy deck, and opens round 1.
func (e *Engine) Reset() map[game.PlayerID]game.Observation {
	n := e.cfg.Players

	roles := e.cfg.Roles
	if roles == nil {
		roles = make([]Role, 0, n)
		roles = append(roles, RoleHitler)
		for i := 0; i < fascistCount(n); i++ {
			roles = append(roles, RoleFascist)
		}
		for len(roles) < n {
			roles = append(roles, RoleLiberal)
		}
		e.rng.Shuffle(len(roles), func(i, j int) { roles[i], roles[j] = roles[j], roles[i] })
	}

	e.players = make([]playerState, n)
	for i := range e.players {
		e.players[i] = playerState{role: roles[i], alive: true}
	}

	e.deck = make([]Policy, 0, deckLiberal+deckFascist)
	for i := 0; i < deckLiberal; i++ {
		e.deck = append(e.deck, PolicyLiberal)
	}
	for i := 0; i < deckFascist; i++ {
		e.deck = append(e.deck, PolicyFascist)
	}
	e.rng.Shuffle(len(e.deck), func(i, j int) { e.deck[i], e.deck[j] = e.deck[j], e.deck[i] })
	e.discard = nil

	e.liberal, e.fascist, e.tracker = 0, 0, 0
	e.vetoUnlocked, e.vetoDenied = false, false
	e.president = 0
	e.nominee = noPlayer()
	e.lastPresident = noPlayer()
	e.lastChancellor = noPlayer()
	e.termsWaived = false
	e.investigated = make(map[game.PlayerID]bool)
	e.specialReturn = noPlayer()
	e.terminal = false
	e.winner, e.winReason = "", ""

	e.round = 1
	e.log.SetRound(e.round)
	e.log.Append(game.EventGameStart, map[string]any{"game": Name, "players": n})

	for p := range e.players {
		pid := game.PlayerID(p)
		data := map[string]any{"event": "role_assignment", "role": string(e.players[p].role)}
		if know, fascists := e.knownFascists(pid); know {
			data["fascists"] = fascists
			data["hitler"] = e.hitlerID()
		}
		e.log.AppendPrivate(pid, game.EventInfo, data)
	}

	e.log.Append(game.EventRoundStart, map[string]any{"president": int(e.president)})
	e.enterNomination()
	return e.Observations()
}

// knownFascists returns whether player p sees the fascist team, and the
// team member IDs. Fascists always see each other and Hitler; Hitler sees
// the fascist only at small tables.
func (e *Engine) knownFascists(p game.PlayerID) (bool, []int) {
	role := e.players[p].role
	if role == RoleLiberal {
		return false, nil
	}
	if role == RoleHitler && !hitlerKnowsFascists(e.cfg.Players) {
		return false, nil
	}
	var team []int
	for i, ps := range e.players {
		if ps.role == RoleFascist && game.PlayerID(i) != p {
			team = append(team, i)
		}
	}
	return true, team
}

func (e *Engine) hitlerID() int {
	for i, ps := range e.players {
		if ps.role == RoleHitler {
			return i
		}
	}
	return -1
}

func (e *Engine) aliveCount() int {
	n := 0
	for _, ps := range e.players {
		if ps.alive {
			n++
		}
	}
	return n
}

func (e *Engine) aliveIDs() []int {
	var out []int
	for i, ps := range e.players {
		if ps.alive {
			out = append(out, i)
		}
	}
	return out
}

func (e *Engine) nextAlive(from game.PlayerID) game.PlayerID {
	n := game.PlayerID(e.cfg.Players)
	for i := game.PlayerID(0); i < n; i++ {
		cand := (from + i) % n
		if e.players[cand].alive {
			return cand
		}
	}
	return from
}

// eligibleChancellors lists legal nominees for the sitting president.
func (e *Engine) eligibleChancellors() []game.PlayerID {
	var out []game.PlayerID
	for i, ps := range e.players {
		pid := game.PlayerID(i)
		if !ps.alive || pid == e.president {
			continue
		}
		if !e.termsWaived {
			if pid == e.lastChancellor {
				continue
			}
			if e.aliveCount() > 5 && pid == e.lastPresident {
				continue
			}
		}
		out = append(out, pid)
	}
	return out
}

// --- phase transitions ---

func (e *Engine) setPhase(p Phase) {
	e.phase = p
	e.invalid = make(map[game.PlayerID]int)
	e.log.Append(game.EventPhaseChange, map[string]any{"phase": string(p)})
}

func (e *Engine) enterNomination() {
	e.nominee = noPlayer()
	e.setPhase(PhaseNomination)
}

func (e *Engine) enterDiscussion() {
	e.speakQueue = e.speakQueue[:0]
	e.speakQueue = append(e.speakQueue, e.president)
	for i := range e.players {
		pid := game.PlayerID(i)
		if e.players[i].alive && pid != e.president {
			e.speakQueue = append(e.speakQueue, pid)
		}
	}
	e.setPhase(PhaseDiscussion)
}

func (e *Engine) enterVoting() {
	e.ballots = make(map[game.PlayerID]string)
	e.setPhase(PhaseVoting)
}

func (e *Engine) nextRound() {
	if e.terminal {
		return
	}
	if e.specialReturn != noPlayer() {
		e.president = e.nextAlive(e.specialReturn)
		e.specialReturn = noPlayer()
	} else {
		e.president = e.nextAlive(e.president + 1)
	}
	e.beginRound()
}

// beginRound opens a new election round with the presidency already set.
func (e *Engine) beginRound() {
	e.round++
	e.log.SetRound(e.round)
	e.presidentHand = nil
	e.chancellorHand = nil
	e.pendingPower = PowerNone
	e.vetoDenied = false
	e.log.Append(game.EventRoundStart, map[string]any{"president": int(e.president)})
	e.enterNomination()
}

func (e *Engine) gameOver(winner, reason string) {
	e.terminal = true
	e.winner = winner
	e.winReason = reason
	e.phase = PhaseGameOver
	e.log.Append(game.EventGameEnd, map[string]any{
		"winner":           winner,
		"win_reason":       reason,
		"liberal_policies": e.liberal,
		"fascist_policies": e.fascist,
		"rounds":           e.round,
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

// --- deck ---

// drawPolicies draws n cards, reshuffling the discard pile into the deck
// when fewer than three cards remain.
func (e *Engine) drawPolicies(n int) []Policy {
	if len(e.deck) < 3 {
		e.deck = append(e.deck, e.discard...)
		e.discard = nil
		e.rng.Shuffle(len(e.deck), func(i, j int) { e.deck[i], e.deck[j] = e.deck[j], e.deck[i] })
	}
	drawn := make([]Policy, n)
	copy(drawn, e.deck[:n])
	e.deck = e.deck[n:]
	return drawn
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
	if !e.players[p].alive {
		e.log.Error(p, game.CodeDeadPlayer, "dead players cannot act")
		return
	}
	if e.phase == PhaseVoting && a.Kind != game.NoopKind {
		// A player with a ballot is no longer an actor; name the real
		// offense instead of falling through to NOT_ACTOR.
		if _, dup := e.ballots[p]; dup {
			e.log.Error(p, game.CodeDoubleVote, fmt.Sprintf("player %d already voted", int(p)))
			return
		}
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
	case PhaseNomination:
		verr = e.applyNomination(p, a)
	case PhaseDiscussion:
		verr = e.applyStatement(p, a)
	case PhaseVoting:
		verr = e.applyVote(p, a)
	case PhasePresident:
		verr = e.applyDiscard(p, a)
	case PhaseChancellor:
		verr = e.applyChancellor(p, a)
	case PhaseVetoReply:
		verr = e.applyVetoReply(p, a)
	case PhasePower:
		verr = e.applyPower(p, a)
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

// isActor reports whether p must act in the current phase.
func (e *Engine) isActor(p game.PlayerID) bool {
	switch e.phase {
	case PhaseNomination, PhasePresident, PhaseVetoReply, PhasePower:
		return p == e.president
	case PhaseChancellor:
		return p == e.nominee
	case PhaseDiscussion:
		return len(e.speakQueue) > 0 && e.speakQueue[0] == p
	case PhaseVoting:
		_, voted := e.ballots[p]
		return !voted
	}
	return false
}

// applyFallback performs the engine default for the actor's current duty:
// nominate the first legal candidate, stay silent, vote nein, discard the
// first drawn policy, enact the first of the two, reject the veto, and aim
// powers at the first legal target.
func (e *Engine) applyFallback(p game.PlayerID) {
	switch e.phase {
	case PhaseNomination:
		cands := e.eligibleChancellors()
		if len(cands) == 0 {
			// No legal nominee; burn the round as a failed election.
			e.resolveElection(0, e.aliveCount())
			return
		}
		e.nominate(cands[0])
	case PhaseDiscussion:
		e.popSpeaker()
	case PhaseVoting:
		e.castVote(p, VoteNein)
	case PhasePresident:
		e.discardAsPresident(0)
	case PhaseChancellor:
		e.enactAsChancellor(0)
	case PhaseVetoReply:
		e.resolveVeto(false)
	case PhasePower:
		targets := e.powerTargets()
		if len(targets) == 0 {
			e.pendingPower = PowerNone
			e.nextRound()
			return
		}
		e.resolvePower(targets[0])
	}
}

// --- nomination ---

func (e *Engine) applyNomination(p game.PlayerID, a game.Action) *game.ValidationError {
	if a.Kind != "nominate" {
		return game.Reject(game.CodeBadKind, "expected nominate, got %s", a.Kind)
	}
	t, ok := a.Int("target")
	if !ok {
		return game.Reject(game.CodeBadPayload, "nominate requires integer target")
	}
	target := game.PlayerID(t)
	for _, c := range e.eligibleChancellors() {
		if c == target {
			e.nominate(target)
			return nil
		}
	}
	return game.Reject(game.CodeIneligible, "player %d is not an eligible chancellor", t)
}

func (e *Engine) nominate(target game.PlayerID) {
	e.nominee = target
	e.log.AppendFor(e.president, game.EventPlayerNominate, map[string]any{
		"president": int(e.president),
		"nominee":   int(target),
	})
	e.enterDiscussion()
}

// --- discussion ---

func (e *Engine) applyStatement(p game.PlayerID, a game.Action) *game.ValidationError {
	switch a.Kind {
	case "statement":
		text, _ := a.Str("statement")
		if text != "" {
			e.log.AppendFor(p, game.EventDiscussion, map[string]any{"statement": text})
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
		e.enterVoting()
	}
}

// --- voting ---

func (e *Engine) applyVote(p game.PlayerID, a game.Action) *game.ValidationError {
	if a.Kind != "vote" {
		return game.Reject(game.CodeBadKind, "expected vote, got %s", a.Kind)
	}
	v, ok := a.Str("vote")
	if !ok || (v != VoteJa && v != VoteNein) {
		return game.Reject(game.CodeBadPayload, "vote must be %q or %q", VoteJa, VoteNein)
	}
	e.castVote(p, v)
	return nil
}

func (e *Engine) castVote(p game.PlayerID, v string) {
	if _, dup := e.ballots[p]; dup {
		return
	}
	e.ballots[p] = v
	if len(e.ballots) < e.aliveCount() {
		return
	}

	ja, nein := 0, 0
	for i := range e.players {
		pid := game.PlayerID(i)
		if !e.players[i].alive {
			continue
		}
		vote := e.ballots[pid]
		e.log.AppendFor(pid, game.EventVoteCast, map[string]any{"vote": vote})
		if vote == VoteJa {
			ja++
		} else {
			nein++
		}
	}
	e.resolveElection(ja, nein)
}

func (e *Engine) resolveElection(ja, nein int) {
	passed := ja > e.aliveCount()/2
	e.log.Append(game.EventElectionResult, map[string]any{
		"passed": passed, "ja": ja, "nein": nein,
		"president": int(e.president), "chancellor": int(e.nominee),
	})

	if passed {
		if e.fascist >= 3 && e.nominee != noPlayer() && e.players[e.nominee].role == RoleHitler {
			e.gameOver(string(RoleFascist), "Hitler elected chancellor")
			return
		}
		e.tracker = 0
		e.termsWaived = false
		e.lastPresident = e.president
		e.lastChancellor = e.nominee
		e.presidentHand = e.drawPolicies(3)
		e.setPhase(PhasePresident)
		return
	}

	e.tracker++
	if e.tracker >= 3 {
		e.enactChaos()
		if e.terminal {
			return
		}
	}
	e.nextRound()
}

// enactChaos plays the top policy with no power and waives term limits for
// the next government.
func (e *Engine) enactChaos() {
	top := e.drawPolicies(1)[0]
	e.tracker = 0
	e.termsWaived = true
	e.lastPresident = noPlayer()
	e.lastChancellor = noPlayer()
	e.enact(top, true)
}

// --- legislative session ---

func (e *Engine) applyDiscard(p game.PlayerID, a game.Action) *game.ValidationError {
	if a.Kind != "discard" {
		return game.Reject(game.CodeBadKind, "expected discard, got %s", a.Kind)
	}
	idx, ok := a.Int("index")
	if !ok || idx < 0 || idx >= len(e.presidentHand) {
		return game.Reject(game.CodeBadPayload, "discard index out of range")
	}
	e.discardAsPresident(idx)
	return nil
}

func (e *Engine) discardAsPresident(idx int) {
	e.discard = append(e.discard, e.presidentHand[idx])
	e.chancellorHand = append([]Policy{}, append(e.presidentHand[:idx:idx], e.presidentHand[idx+1:]...)...)
	e.presidentHand = nil
	e.setPhase(PhaseChancellor)
}

func (e *Engine) applyChancellor(p game.PlayerID, a game.Action) *game.ValidationError {
	switch a.Kind {
	case "enact":
		idx, ok := a.Int("index")
		if !ok || idx < 0 || idx >= len(e.chancellorHand) {
			return game.Reject(game.CodeBadPayload, "enact index out of range")
		}
		e.enactAsChancellor(idx)
		return nil
	case "veto":
		if !e.vetoUnlocked {
			return game.Reject(game.CodeIneligible, "veto power is not unlocked")
		}
		if e.vetoDenied {
			return game.Reject(game.CodeIneligible, "veto already rejected this session")
		}
		e.log.AppendFor(p, game.EventVetoProposed, map[string]any{"chancellor": int(p)})
		e.setPhase(PhaseVetoReply)
		return nil
	}
	return game.Reject(game.CodeBadKind, "expected enact or veto, got %s", a.Kind)
}

func (e *Engine) enactAsChancellor(idx int) {
	policy := e.chancellorHand[idx]
	e.discard = append(e.discard, e.chancellorHand[1-idx])
	e.chancellorHand = nil
	e.enact(policy, false)
}

func (e *Engine) applyVetoReply(p game.PlayerID, a game.Action) *game.ValidationError {
	if a.Kind != "veto_response" {
		return game.Reject(game.CodeBadKind, "expected veto_response, got %s", a.Kind)
	}
	resp, ok := a.Str("response")
	if !ok || (resp != "accept" && resp != "reject") {
		return game.Reject(game.CodeBadPayload, "response must be accept or reject")
	}
	e.resolveVeto(resp == "accept")
	return nil
}

func (e *Engine) resolveVeto(accepted bool) {
	e.log.AppendFor(e.president, game.EventVetoResponse, map[string]any{"accepted": accepted})
	if !accepted {
		e.vetoDenied = true
		e.setPhase(PhaseChancellor)
		return
	}
	e.discard = append(e.discard, e.chancellorHand...)
	e.chancellorHand = nil
	e.tracker++
	if e.tracker >= 3 {
		e.enactChaos()
		if e.terminal {
			return
		}
	}
	e.nextRound()
}

// enact plays a policy, recomputes veto availability, checks wins, and
// triggers the presidential power table on fascist enactments.
func (e *Engine) enact(policy Policy, chaos bool) {
	if policy == PolicyLiberal {
		e.liberal++
	} else {
		e.fascist++
	}
	e.log.Append(game.EventPolicyEnacted, map[string]any{
		"policy":        string(policy),
		"liberal_total": e.liberal,
		"fascist_total": e.fascist,
		"chaos":         chaos,
	})

	e.vetoUnlocked = e.fascist >= 5

	if e.liberal >= liberalPoliciesToWin {
		e.gameOver(string(RoleLiberal), "5 liberal policies")
		return
	}
	if e.fascist >= fascistPoliciesToWin {
		e.gameOver(string(RoleFascist), "6 fascist policies")
		return
	}

	if !chaos && policy == PolicyFascist {
		if power := powerFor(e.cfg.Players, e.fascist); power != PowerNone {
			e.triggerPower(power)
			return
		}
	}
	e.nextRound()
}

// --- presidential powers ---

func (e *Engine) triggerPower(power Power) {
	e.pendingPower = power
	if power == PowerPeek {
		top := make([]string, 0, 3)
		peek := e.peekTop(3)
		for _, c := range peek {
			top = append(top, string(c))
		}
		e.log.Append(game.EventPresidentialPower, map[string]any{
			"power": string(PowerPeek), "president": int(e.president),
		})
		e.log.AppendPrivate(e.president, game.EventInfo, map[string]any{
			"event": "policy_peek", "policies": top,
		})
		e.pendingPower = PowerNone
		e.nextRound()
		return
	}
	e.setPhase(PhasePower)
}

// peekTop inspects the top n cards without drawing, reshuffling first if
// fewer than three remain so the peek matches the next legislative draw.
func (e *Engine) peekTop(n int) []Policy {
	if len(e.deck) < 3 {
		e.deck = append(e.deck, e.discard...)
		e.discard = nil
		e.rng.Shuffle(len(e.deck), func(i, j int) { e.deck[i], e.deck[j] = e.deck[j], e.deck[i] })
	}
	out := make([]Policy, n)
	copy(out, e.deck[:n])
	return out
}

// powerTargets lists legal targets for the pending power.
func (e *Engine) powerTargets() []game.PlayerID {
	var out []game.PlayerID
	for i, ps := range e.players {
		pid := game.PlayerID(i)
		if !ps.alive || pid == e.president {
			continue
		}
		if e.pendingPower == PowerInvestigate && e.investigated[pid] {
			continue
		}
		out = append(out, pid)
	}
	return out
}

func (e *Engine) applyPower(p game.PlayerID, a game.Action) *game.ValidationError {
	if a.Kind != string(e.pendingPower) {
		return game.Reject(game.CodeBadKind, "expected %s, got %s", e.pendingPower, a.Kind)
	}
	t, ok := a.Int("target")
	if !ok {
		return game.Reject(game.CodeBadPayload, "%s requires integer target", e.pendingPower)
	}
	target := game.PlayerID(t)
	for _, c := range e.powerTargets() {
		if c == target {
			e.resolvePower(target)
			return nil
		}
	}
	return game.Reject(game.CodeIneligible, "player %d is not a legal target for %s", t, e.pendingPower)
}

func (e *Engine) resolvePower(target game.PlayerID) {
	power := e.pendingPower
	e.pendingPower = PowerNone
	e.log.Append(game.EventPresidentialPower, map[string]any{
		"power": string(power), "president": int(e.president), "target": int(target),
	})

	switch power {
	case PowerInvestigate:
		e.investigated[target] = true
		e.log.AppendPrivate(e.president, game.EventInvestigationResult, map[string]any{
			"target": int(target), "party": e.players[target].role.Party(),
		})
		e.nextRound()
	case PowerSpecialElection:
		e.specialReturn = e.nextAlive(e.president + 1)
		e.president = target
		e.beginRound()
	case PowerExecute:
		e.players[target].alive = false
		e.log.Append(game.EventPlayerEliminated, map[string]any{"player": int(target), "cause": "execution"})
		if e.players[target].role == RoleHitler {
			e.gameOver(string(RoleLiberal), "Hitler executed")
			return
		}
		e.nextRound()
	}
}

// --- rewards and stats ---

func (e *Engine) rewards() map[game.PlayerID]float64 {
	out := make(map[game.PlayerID]float64, e.cfg.Players)
	for i := range e.players {
		pid := game.PlayerID(i)
		if e.terminal && e.winner != "" && e.onWinningTeam(pid) {
			out[pid] = 1
		} else {
			out[pid] = 0
		}
	}
	return out
}

func (e *Engine) onWinningTeam(p game.PlayerID) bool {
	if e.winner == string(RoleLiberal) {
		return e.players[p].role == RoleLiberal
	}
	return e.players[p].role != RoleLiberal
}

// PlayerStats reports per-seat outcome stats for the match result.
func (e *Engine) PlayerStats() map[game.PlayerID]game.PlayerStats {
	out := make(map[game.PlayerID]game.PlayerStats, e.cfg.Players)
	for i := range e.players {
		pid := game.PlayerID(i)
		won := e.terminal && e.winner != "" && e.onWinningTeam(pid)
		score := 0.0
		if won {
			score = 1
		}
		out[pid] = game.PlayerStats{
			Role:  string(e.players[i].role),
			Score: score,
			Won:   won,
			Extra: map[string]any{"alive": e.players[i].alive},
		}
	}
	return out
}
