package sheriff

import (
	"fmt"

	"github.com/EternisAI/strategy-bench/pkg/game"
)

// --- negotiation ---

// enterOffers opens one offer round for every merchant without an
// accepted bribe. When none remain, inspection begins.
func (e *Engine) enterOffers() {
	e.offers = make(map[game.PlayerID]*offer)
	e.offerDone = make(map[game.PlayerID]bool)
	open := false
	for _, m := range e.merchants() {
		if e.bribes[m] == nil {
			open = true
		}
	}
	if !open || e.negRound > e.negRounds {
		e.enterInspection()
		return
	}
	e.setPhase(PhaseNegotiateOffer)
}

// applyOffer records one merchant's bribe offer for this round. The
// offer is capped at gold and cards the merchant actually owns.
func (e *Engine) applyOffer(p game.PlayerID, a game.Action) *game.ValidationError {
	if a.Kind == "pass" {
		e.finishOffer(p, nil)
		return nil
	}
	if a.Kind != "offer" {
		return game.Reject(game.CodeBadKind, "expected offer or pass, got %s", a.Kind)
	}
	goldAmt, _ := a.Int("gold")
	if goldAmt < 0 || goldAmt > e.gold[p] {
		return game.Reject(game.CodeBadPayload, "offer gold %d exceeds holdings %d", goldAmt, e.gold[p])
	}
	standNames, _ := a.Strs("stand_goods")
	standGoods, unknown := stringsToGoods(standNames)
	if unknown != "" {
		return game.Reject(game.CodeBadPayload, "unknown good %q", unknown)
	}
	if _, ok := removeGoods(e.stands[p], standGoods); !ok {
		return game.Reject(game.CodeBadPayload, "offered stand goods not on stand")
	}
	bagNames, _ := a.Strs("bag_goods")
	bagGoods, unknown := stringsToGoods(bagNames)
	if unknown != "" {
		return game.Reject(game.CodeBadPayload, "unknown good %q", unknown)
	}
	if _, ok := removeGoods(e.bags[p], bagGoods); !ok {
		return game.Reject(game.CodeBadPayload, "offered bag goods not in bag")
	}
	promises, _ := a.Str("promises")

	e.finishOffer(p, &offer{
		gold:       goldAmt,
		standGoods: standGoods,
		bagGoods:   bagGoods,
		promises:   promises,
	})
	return nil
}

func (e *Engine) finishOffer(p game.PlayerID, o *offer) {
	e.offerDone[p] = true
	if o != nil {
		e.offers[p] = o
		data := map[string]any{
			"event": "offer", "merchant": int(p), "gold": o.gold,
			"stand_goods": goodsToStrings(o.standGoods),
			"bag_goods":   goodsToStrings(o.bagGoods),
			"promises":    o.promises,
			"neg_round":   e.negRound,
		}
		e.log.AppendPrivate(e.sheriff, game.EventInfo, data)
		e.log.AppendPrivate(p, game.EventInfo, data)
	}
	for _, m := range e.merchants() {
		if e.bribes[m] == nil && !e.offerDone[m] {
			return
		}
	}
	e.respondQueue = e.respondQueue[:0]
	for _, m := range e.merchants() {
		if e.offers[m] != nil {
			e.respondQueue = append(e.respondQueue, m)
		}
	}
	if len(e.respondQueue) == 0 {
		e.nextNegotiationRound()
		return
	}
	e.setPhase(PhaseNegotiateRespond)
}

func (e *Engine) nextNegotiationRound() {
	e.negRound++
	if e.negRound > e.negRounds {
		e.enterInspection()
		return
	}
	e.enterOffers()
}

// applyRespond handles the sheriff's accept/reject for the merchant at
// the head of the response queue, or an early end to negotiation.
func (e *Engine) applyRespond(p game.PlayerID, a game.Action) *game.ValidationError {
	switch a.Kind {
	case "end_negotiation":
		for _, m := range e.respondQueue {
			e.respond(m, false)
		}
		e.enterInspection()
		return nil
	case "respond":
		if len(e.respondQueue) == 0 {
			return game.Reject(game.CodeOutOfPhase, "no offers awaiting a response")
		}
		m := e.respondQueue[0]
		if t, ok := a.Int("merchant"); ok && game.PlayerID(t) != m {
			return game.Reject(game.CodeBadPayload, "respond to merchant %d first", int(m))
		}
		r, ok := a.Str("response")
		if !ok || (r != "accept" && r != "reject") {
			return game.Reject(game.CodeBadPayload, "response must be accept or reject")
		}
		e.respond(m, r == "accept")
		if len(e.respondQueue) == 0 && e.phase == PhaseNegotiateRespond {
			e.nextNegotiationRound()
		}
		return nil
	}
	return game.Reject(game.CodeBadKind, "expected respond or end_negotiation, got %s", a.Kind)
}

// respond settles one offer. Accepting transfers the gold and the named
// stand goods immediately and records the bag goods for delivery on pass.
func (e *Engine) respond(m game.PlayerID, accept bool) {
	o := e.offers[m]
	if o == nil {
		return
	}
	delete(e.offers, m)
	if len(e.respondQueue) > 0 && e.respondQueue[0] == m {
		e.respondQueue = e.respondQueue[1:]
	}

	data := map[string]any{"event": "bribe_response", "merchant": int(m), "accepted": accept}
	if accept {
		paid := e.pay(m, e.sheriff, o.gold)
		if rest, ok := removeGoods(e.stands[m], o.standGoods); ok {
			e.stands[m] = rest
			e.stands[e.sheriff] = append(e.stands[e.sheriff], o.standGoods...)
		}
		e.bribes[m] = &bribe{gold: paid, bagGoods: o.bagGoods}
		data["gold"] = paid
	}
	e.log.AppendPrivate(e.sheriff, game.EventInfo, data)
	e.log.AppendPrivate(m, game.EventInfo, data)
}

// pay moves gold between players, clamped at the payer's holdings.
func (e *Engine) pay(from, to game.PlayerID, amount int) int {
	if amount > e.gold[from] {
		amount = e.gold[from]
	}
	if amount < 0 {
		amount = 0
	}
	e.gold[from] -= amount
	e.gold[to] += amount
	return amount
}

// --- inspection ---

func (e *Engine) enterInspection() {
	e.inspectQueue = e.merchants()
	e.setPhase(PhaseInspect)
}

func (e *Engine) applyInspect(p game.PlayerID, a game.Action) *game.ValidationError {
	if len(e.inspectQueue) == 0 {
		return game.Reject(game.CodeOutOfPhase, "no merchants awaiting inspection")
	}
	m := e.inspectQueue[0]
	switch a.Kind {
	case "pass":
		e.pass(m)
		return nil
	case "inspect":
		e.inspect(m)
		return nil
	}
	return game.Reject(game.CodeBadKind, "expected inspect or pass, got %s", a.Kind)
}

// pass waves the merchant through: bag cards reach the merchant's stand,
// except cards promised in an accepted bribe, which go to the sheriff.
func (e *Engine) pass(m game.PlayerID) {
	delivered := e.bags[m]
	toSheriff := []Good{}
	if b := e.bribes[m]; b != nil && len(b.bagGoods) > 0 {
		if rest, ok := removeGoods(delivered, b.bagGoods); ok {
			delivered = rest
			toSheriff = b.bagGoods
		}
	}
	e.stands[m] = append(e.stands[m], delivered...)
	e.stands[e.sheriff] = append(e.stands[e.sheriff], toSheriff...)
	e.bags[m] = nil

	e.log.AppendFor(e.sheriff, game.EventPlayerAction, map[string]any{
		"action": "pass", "merchant": int(m), "delivered": len(delivered),
	})
	e.advanceInspection()
}

// inspect opens the bag. An accepted bribe is refunded first, once per
// (sheriff, merchant) pair this round; the traded stand goods stay put.
func (e *Engine) inspect(m game.PlayerID) {
	if b := e.bribes[m]; b != nil && !b.refunded {
		refund := e.pay(e.sheriff, m, b.gold)
		b.refunded = true
		e.log.Append(game.EventInfo, map[string]any{
			"event": "bribe_refund", "merchant": int(m), "gold": refund,
		})
	}

	decl := e.declared[m]
	truthful := decl.count == len(e.bags[m])
	for _, g := range e.bags[m] {
		if g != decl.good {
			truthful = false
			break
		}
	}

	if truthful {
		penalty := Info(decl.good).Penalty * len(e.bags[m])
		paid := e.pay(e.sheriff, m, penalty)
		e.stands[m] = append(e.stands[m], e.bags[m]...)
		e.bags[m] = nil
		e.log.AppendFor(e.sheriff, game.EventPlayerAction, map[string]any{
			"action": "inspect", "merchant": int(m), "truthful": true, "penalty_paid": paid,
		})
		e.advanceInspection()
		return
	}

	penalty := 0
	confiscated := []Good{}
	for _, g := range e.bags[m] {
		if g == decl.good {
			e.stands[m] = append(e.stands[m], g)
			continue
		}
		penalty += Info(g).Penalty
		confiscated = append(confiscated, g)
	}
	e.piles[0] = append(e.piles[0], confiscated...)
	e.bags[m] = nil
	paid := e.pay(m, e.sheriff, penalty)
	e.log.AppendFor(e.sheriff, game.EventPlayerAction, map[string]any{
		"action": "inspect", "merchant": int(m), "truthful": false,
		"penalty_paid": paid, "confiscated": goodsToStrings(confiscated),
	})
	e.advanceInspection()
}

func (e *Engine) advanceInspection() {
	e.inspectQueue = e.inspectQueue[1:]
	if len(e.inspectQueue) == 0 {
		e.resolveRound()
	}
}

// --- resolve ---

// resolveRound refills hands, rotates the sheriff, and either starts the
// next round or ends the game once every player has served their terms.
func (e *Engine) resolveRound() {
	for i := 0; i < e.cfg.Players; i++ {
		if need := handSize - len(e.hands[i]); need > 0 {
			e.hands[i] = append(e.hands[i], e.draw(need)...)
		}
	}
	e.served[e.sheriff]++
	e.log.Append(game.EventRoundEnd, map[string]any{
		"round": e.round, "sheriff": int(e.sheriff),
	})

	if e.round >= e.cfg.Players*sheriffTerms(e.cfg.Players) {
		e.gameOver()
		return
	}
	e.sheriff = (e.sheriff + 1) % game.PlayerID(e.cfg.Players)
	e.beginRound()
}

// --- scoring ---

// computeScores returns gold plus stand values plus King/Queen bonuses.
// Royal goods count toward their legal good with a multiplier for the
// bonus race but score their own printed value.
func (e *Engine) computeScores() []int {
	n := e.cfg.Players
	scores := make([]int, n)
	for i := 0; i < n; i++ {
		scores[i] = e.gold[i]
		for _, g := range e.stands[i] {
			scores[i] += Info(g).Value
		}
	}

	for _, legal := range legalGoods {
		counts := make([]int, n)
		for i := 0; i < n; i++ {
			for _, g := range e.stands[i] {
				info := Info(g)
				if g == legal {
					counts[i]++
				} else if info.RoyalOf == legal {
					counts[i] += info.Mult
				}
			}
		}
		king, queen := bonusHolders(counts)
		if king >= 0 {
			scores[king] += Info(legal).King
		}
		if queen >= 0 {
			scores[queen] += Info(legal).Queen
		}
	}
	return scores
}

// bonusHolders finds the King (unique strict maximum) and Queen (unique
// strict runner-up) for one good. Exact ties at either rank award no
// bonus for that rank.
func bonusHolders(counts []int) (king, queen int) {
	king, queen = -1, -1
	top, second := 0, 0
	for i, c := range counts {
		if c == 0 {
			continue
		}
		switch {
		case c > top:
			second = top
			queen = king
			top = c
			king = i
		case c == top:
			king = -1
			queen = -1
			second = c
		case c > second:
			second = c
			queen = i
		case c == second:
			queen = -1
		}
	}
	if top == 0 {
		return -1, -1
	}
	if second == 0 {
		queen = -1
	}
	return king, queen
}

// String renders a declaration for debugging and tests.
func (d declaration) String() string {
	return fmt.Sprintf("%d %s", d.count, d.good)
}
