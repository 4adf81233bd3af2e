package sheriff

import (
	"fmt"
	"math/rand"

	"github.com/EternisAI/strategy-bench/pkg/game"
)

// Phase is the engine-local phase enumeration.
type Phase string

const (
	PhaseMarket           Phase = "Market"
	PhaseLoadBag          Phase = "LoadBag"
	PhaseDeclare          Phase = "Declare"
	PhaseNegotiateOffer   Phase = "NegotiateOffer"
	PhaseNegotiateRespond Phase = "NegotiateRespond"
	PhaseInspect          Phase = "Inspect"
	PhaseGameOver         Phase = "GameOver"
)

const noPlayer = game.PlayerID(-1)

type declaration struct {
	good  Good
	count int
	made  bool
}

type offer struct {
	gold       int
	standGoods []Good
	bagGoods   []Good
	promises   string
}

type bribe struct {
	gold     int
	bagGoods []Good
	refunded bool
}

// Engine is the Sheriff of Nottingham state machine.
type Engine struct {
	cfg       Config
	rng       *rand.Rand
	log       *game.EventLog
	negRounds int

	phase Phase

	round   int
	sheriff game.PlayerID
	served  []int

	deck  []Good
	piles [2][]Good

	hands  [][]Good
	stands [][]Good
	bags   [][]Good
	gold   []int

	declared []declaration

	marketQueue  []game.PlayerID
	loaded       map[game.PlayerID]bool
	negRound     int
	offers       map[game.PlayerID]*offer
	offerDone    map[game.PlayerID]bool
	bribes       map[game.PlayerID]*bribe
	respondQueue []game.PlayerID
	inspectQueue []game.PlayerID

	invalid map[game.PlayerID]int

	scores    []int
	terminal  bool
	winner    string
	winReason string
}

// New validates the config and builds an unstarted engine.
func New(cfg Config) (*Engine, error) {
	if cfg.Players < MinPlayers || cfg.Players > MaxPlayers {
		return nil, fmt.Errorf("sheriff: player count %d outside [%d,%d]", cfg.Players, MinPlayers, MaxPlayers)
	}
	if cfg.NegotiationRounds <= 0 {
		cfg.NegotiationRounds = maxNegotiationRounds
	}
	if cfg.MatchID == "" {
		cfg.MatchID = Name
	}
	return &Engine{
		cfg:       cfg,
		negRounds: cfg.NegotiationRounds,
		rng:       game.NewRNG(cfg.Seed),
		log:       game.NewEventLog(cfg.MatchID),
	}, nil
}

func (e *Engine) NumPlayers() int        { return e.cfg.Players }
func (e *Engine) Events() *game.EventLog { return e.log }
func (e *Engine) Terminal() bool         { return e.terminal }
func (e *Engine) Winner() string         { return e.winner }
func (e *Engine) WinReason() string      { return e.winReason }

// Reset shuffles the deck, deals hands and gold, and opens round 1.
func (e *Engine) Reset() map[game.PlayerID]game.Observation {
	n := e.cfg.Players
	e.deck = buildDeck()
	e.rng.Shuffle(len(e.deck), func(i, j int) { e.deck[i], e.deck[j] = e.deck[j], e.deck[i] })
	e.piles = [2][]Good{}

	e.hands = make([][]Good, n)
	e.stands = make([][]Good, n)
	e.bags = make([][]Good, n)
	e.gold = make([]int, n)
	e.served = make([]int, n)
	for i := 0; i < n; i++ {
		e.hands[i] = e.draw(handSize)
		e.gold[i] = startingGold
	}

	e.sheriff = 0
	e.round = 0
	e.scores = nil
	e.terminal = false
	e.winner, e.winReason = "", ""

	e.log.Append(game.EventGameStart, map[string]any{
		"game": Name, "players": n, "terms": sheriffTerms(n),
	})
	e.beginRound()
	return e.Observations()
}

// draw takes up to n cards from the deck, reshuffling the discard piles'
// lower layers when the deck runs dry. The top pileTopVisible cards of
// each pile stay face-up.
func (e *Engine) draw(n int) []Good {
	out := make([]Good, 0, n)
	for len(out) < n {
		if len(e.deck) == 0 {
			e.reshuffleDeck()
			if len(e.deck) == 0 {
				break
			}
		}
		out = append(out, e.deck[len(e.deck)-1])
		e.deck = e.deck[:len(e.deck)-1]
	}
	return out
}

func (e *Engine) reshuffleDeck() {
	for i := range e.piles {
		pile := e.piles[i]
		if len(pile) <= pileTopVisible {
			continue
		}
		cut := len(pile) - pileTopVisible
		e.deck = append(e.deck, pile[:cut]...)
		e.piles[i] = append([]Good(nil), pile[cut:]...)
	}
	e.rng.Shuffle(len(e.deck), func(i, j int) { e.deck[i], e.deck[j] = e.deck[j], e.deck[i] })
}

// merchants returns the non-sheriff players in ascending order.
func (e *Engine) merchants() []game.PlayerID {
	out := make([]game.PlayerID, 0, e.cfg.Players-1)
	for i := 0; i < e.cfg.Players; i++ {
		if game.PlayerID(i) != e.sheriff {
			out = append(out, game.PlayerID(i))
		}
	}
	return out
}

// --- phase transitions ---

func (e *Engine) setPhase(p Phase) {
	e.phase = p
	e.invalid = make(map[game.PlayerID]int)
	e.log.Append(game.EventPhaseChange, map[string]any{"phase": string(p)})
}

func (e *Engine) beginRound() {
	e.round++
	e.log.SetRound(e.round)

	e.declared = make([]declaration, e.cfg.Players)
	for i := range e.bags {
		e.bags[i] = nil
	}
	e.bribes = make(map[game.PlayerID]*bribe)
	e.negRound = 0

	e.log.Append(game.EventRoundStart, map[string]any{
		"round": e.round, "sheriff": int(e.sheriff),
	})
	e.marketQueue = e.merchants()
	e.setPhase(PhaseMarket)
}

func (e *Engine) gameOver() {
	e.scores = e.computeScores()
	best := 0
	for i := 1; i < e.cfg.Players; i++ {
		if e.scores[i] > e.scores[best] ||
			(e.scores[i] == e.scores[best] && e.gold[i] > e.gold[best]) {
			best = i
		}
	}
	e.terminal = true
	e.winner = fmt.Sprintf("player_%d", best)
	e.winReason = "highest score"
	e.phase = PhaseGameOver

	scores := make([]int, len(e.scores))
	copy(scores, e.scores)
	e.log.Append(game.EventGameEnd, map[string]any{
		"winner":     e.winner,
		"win_reason": e.winReason,
		"scores":     scores,
		"rounds":     e.round,
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
	case PhaseMarket:
		verr = e.applyMarket(p, a)
	case PhaseLoadBag:
		verr = e.applyLoad(p, a)
	case PhaseDeclare:
		verr = e.applyDeclare(p, a)
	case PhaseNegotiateOffer:
		verr = e.applyOffer(p, a)
	case PhaseNegotiateRespond:
		verr = e.applyRespond(p, a)
	case PhaseInspect:
		verr = e.applyInspect(p, a)
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
	case PhaseMarket:
		return len(e.marketQueue) > 0 && e.marketQueue[0] == p
	case PhaseLoadBag:
		return p != e.sheriff && !e.loaded[p]
	case PhaseDeclare:
		return p != e.sheriff && !e.declared[p].made
	case PhaseNegotiateOffer:
		return p != e.sheriff && !e.offerDone[p] && e.bribes[p] == nil
	case PhaseNegotiateRespond, PhaseInspect:
		return p == e.sheriff
	}
	return false
}

// applyFallback performs the engine default: skip the market, force-load
// one card, declare apples, pass on bribes, reject offers, wave the
// merchant through.
func (e *Engine) applyFallback(p game.PlayerID) {
	switch e.phase {
	case PhaseMarket:
		e.finishMarketTurn(p, nil, 0)
	case PhaseLoadBag:
		e.forceLoad(p)
	case PhaseDeclare:
		e.defaultDeclare(p)
	case PhaseNegotiateOffer:
		e.finishOffer(p, nil)
	case PhaseNegotiateRespond:
		if len(e.respondQueue) > 0 {
			e.respond(e.respondQueue[0], false)
		}
	case PhaseInspect:
		if len(e.inspectQueue) > 0 {
			e.pass(e.inspectQueue[0])
		}
	}
}

// --- market ---

// applyMarket lets the merchant at the head of the queue discard cards to
// one pile and draw back to hand size from the deck or either pile top.
func (e *Engine) applyMarket(p game.PlayerID, a game.Action) *game.ValidationError {
	if a.Kind == "skip" {
		e.finishMarketTurn(p, nil, 0)
		return nil
	}
	if a.Kind != "market" {
		return game.Reject(game.CodeBadKind, "expected market or skip, got %s", a.Kind)
	}
	names, _ := a.Strs("discard")
	discard, unknown := stringsToGoods(names)
	if unknown != "" {
		return game.Reject(game.CodeBadPayload, "unknown good %q", unknown)
	}
	pile, _ := a.Int("pile")
	if len(discard) > 0 && pile != 1 && pile != 2 {
		return game.Reject(game.CodeBadPayload, "pile must be 1 or 2")
	}
	rest, ok := removeGoods(e.hands[p], discard)
	if !ok {
		return game.Reject(game.CodeBadPayload, "cannot discard cards not in hand")
	}
	e.hands[p] = rest
	if len(discard) > 0 {
		e.piles[pile-1] = append(e.piles[pile-1], discard...)
	}

	sources, _ := a.Strs("draws")
	e.finishMarketTurn(p, sources, len(discard))
	return nil
}

// finishMarketTurn draws the merchant back up to hand size and pops the
// market queue.
func (e *Engine) finishMarketTurn(p game.PlayerID, sources []string, discarded int) {
	drawn := 0
	for len(e.hands[p]) < handSize {
		var card []Good
		src := "deck"
		if drawn < len(sources) {
			src = sources[drawn]
		}
		switch src {
		case "pile1", "pile2":
			idx := 0
			if src == "pile2" {
				idx = 1
			}
			if n := len(e.piles[idx]); n > 0 {
				card = []Good{e.piles[idx][n-1]}
				e.piles[idx] = e.piles[idx][:n-1]
			} else {
				card = e.draw(1)
			}
		default:
			card = e.draw(1)
		}
		if len(card) == 0 {
			break
		}
		e.hands[p] = append(e.hands[p], card...)
		drawn++
	}
	if discarded > 0 || drawn > 0 {
		e.log.AppendFor(p, game.EventPlayerAction, map[string]any{
			"action": "market", "discarded": discarded, "drawn": drawn,
		})
	}
	e.marketQueue = e.marketQueue[1:]
	if len(e.marketQueue) == 0 {
		e.loaded = make(map[game.PlayerID]bool)
		e.setPhase(PhaseLoadBag)
	}
}

// --- load bag ---

func (e *Engine) applyLoad(p game.PlayerID, a game.Action) *game.ValidationError {
	if a.Kind != "load" {
		return game.Reject(game.CodeBadKind, "expected load, got %s", a.Kind)
	}
	names, _ := a.Strs("goods")
	if len(names) == 0 {
		// An empty bag is force-loaded rather than rejected.
		e.forceLoad(p)
		return nil
	}
	if len(names) > bagLimit {
		return game.Reject(game.CodeBadPayload, "bag holds at most %d cards", bagLimit)
	}
	goods, unknown := stringsToGoods(names)
	if unknown != "" {
		return game.Reject(game.CodeBadPayload, "unknown good %q", unknown)
	}
	rest, ok := removeGoods(e.hands[p], goods)
	if !ok {
		return game.Reject(game.CodeBadPayload, "cannot load cards not in hand")
	}
	e.hands[p] = rest
	e.bags[p] = goods
	e.finishLoad(p)
	return nil
}

func (e *Engine) forceLoad(p game.PlayerID) {
	if len(e.hands[p]) > 0 {
		e.bags[p] = []Good{e.hands[p][0]}
		e.hands[p] = e.hands[p][1:]
	}
	e.finishLoad(p)
}

func (e *Engine) finishLoad(p game.PlayerID) {
	e.loaded[p] = true
	e.log.AppendPrivate(p, game.EventInfo, map[string]any{
		"event": "bag_loaded", "goods": goodsToStrings(e.bags[p]),
	})
	e.log.AppendFor(p, game.EventPlayerAction, map[string]any{
		"action": "load_bag", "count": len(e.bags[p]),
	})
	for _, m := range e.merchants() {
		if !e.loaded[m] {
			return
		}
	}
	e.setPhase(PhaseDeclare)
}

// --- declare ---

func (e *Engine) applyDeclare(p game.PlayerID, a game.Action) *game.ValidationError {
	if a.Kind != "declare" {
		return game.Reject(game.CodeBadKind, "expected declare, got %s", a.Kind)
	}
	name, _ := a.Str("good")
	count, _ := a.Int("count")
	g := Good(name)
	if !IsLegal(g) || count != len(e.bags[p]) {
		// Invalid declarations auto-default to all-apples.
		e.log.Error(p, game.CodeBadPayload, "invalid declaration defaults to apples")
		e.defaultDeclare(p)
		return nil
	}
	e.recordDeclaration(p, g, count)
	return nil
}

func (e *Engine) defaultDeclare(p game.PlayerID) {
	e.recordDeclaration(p, GoodApples, len(e.bags[p]))
}

func (e *Engine) recordDeclaration(p game.PlayerID, g Good, count int) {
	e.declared[p] = declaration{good: g, count: count, made: true}
	e.log.AppendFor(p, game.EventPlayerAction, map[string]any{
		"action": "declare", "good": string(g), "count": count,
	})
	for _, m := range e.merchants() {
		if !e.declared[m].made {
			return
		}
	}
	e.negRound = 1
	e.enterOffers()
}

// --- rewards and stats ---

func (e *Engine) rewards() map[game.PlayerID]float64 {
	out := make(map[game.PlayerID]float64, e.cfg.Players)
	for i := 0; i < e.cfg.Players; i++ {
		pid := game.PlayerID(i)
		if e.terminal && e.scores != nil {
			out[pid] = float64(e.scores[i])
		} else {
			out[pid] = 0
		}
	}
	return out
}

// PlayerStats reports per-seat outcome stats for the match result.
func (e *Engine) PlayerStats() map[game.PlayerID]game.PlayerStats {
	out := make(map[game.PlayerID]game.PlayerStats, e.cfg.Players)
	for i := 0; i < e.cfg.Players; i++ {
		pid := game.PlayerID(i)
		score := 0.0
		if e.scores != nil {
			score = float64(e.scores[i])
		}
		out[pid] = game.PlayerStats{
			Role:  "merchant",
			Score: score,
			Won:   e.terminal && e.winner == fmt.Sprintf("player_%d", i),
			Extra: map[string]any{"gold": e.gold[i], "stand": len(e.stands[i])},
		}
	}
	return out
}
