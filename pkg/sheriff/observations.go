package sheriff

import (
	"fmt"

	"github.com/EternisAI/strategy-bench/pkg/game"
)

// Observations recomputes every player's view. Hands and bags are private;
// stands, declarations, gold, and the discard pile tops are public.
func (e *Engine) Observations() map[game.PlayerID]game.Observation {
	out := make(map[game.PlayerID]game.Observation, e.cfg.Players)
	for i := 0; i < e.cfg.Players; i++ {
		p := game.PlayerID(i)
		out[p] = e.observationFor(p)
	}
	return out
}

func (e *Engine) observationFor(p game.PlayerID) game.Observation {
	base := e.baseData(p)

	if e.terminal {
		return game.WaitObs(p, game.ObsPublic, string(PhaseGameOver),
			fmt.Sprintf("Game over: %s (%s).", e.winner, e.winReason), base)
	}
	if !e.isActor(p) {
		return game.WaitObs(p, game.ObsPrivate, string(e.phase), e.waitInstruction(), base)
	}

	switch e.phase {
	case PhaseMarket:
		return game.ActObs(p, game.ObsPrivate, string(e.phase),
			"Market: discard cards to a pile and draw back to hand size, or skip.",
			"market", base)
	case PhaseLoadBag:
		base["options"] = goodsToStrings(e.hands[p])
		base["option_field"] = "goods"
		return game.ActObs(p, game.ObsPrivate, string(e.phase),
			fmt.Sprintf("Load 1-%d cards from your hand into your bag.", bagLimit),
			"load", base)
	case PhaseDeclare:
		base["options"] = goodsToStrings(legalGoods)
		base["option_field"] = "good"
		return game.ActObs(p, game.ObsPrivate, string(e.phase),
			fmt.Sprintf("Declare a legal good and a count equal to your bag size (%d).", len(e.bags[p])),
			"declare", base)
	case PhaseNegotiateOffer:
		return game.ActObs(p, game.ObsPrivate, string(e.phase),
			"Offer the sheriff a bribe (gold, stand goods, bag goods, promises), or pass.",
			"offer", base)
	case PhaseNegotiateRespond:
		if len(e.respondQueue) > 0 {
			base["responding_to"] = int(e.respondQueue[0])
		}
		base["options"] = []string{"accept", "reject"}
		base["option_field"] = "response"
		return game.ActObs(p, game.ObsRole, string(e.phase),
			"Respond to the pending offer, or end negotiation.", "respond", base)
	case PhaseInspect:
		if len(e.inspectQueue) > 0 {
			base["inspecting"] = int(e.inspectQueue[0])
		}
		base["options"] = []string{"inspect", "pass"}
		return game.ActObs(p, game.ObsRole, string(e.phase),
			"Inspect this merchant's bag or wave them through.", "inspect", base)
	}
	return game.WaitObs(p, game.ObsPrivate, string(e.phase), e.waitInstruction(), base)
}

func (e *Engine) waitInstruction() string {
	switch e.phase {
	case PhaseMarket:
		if len(e.marketQueue) > 0 {
			return fmt.Sprintf("Player %d is at the market.", int(e.marketQueue[0]))
		}
	case PhaseLoadBag:
		return "Merchants are loading their bags."
	case PhaseDeclare:
		return "Merchants are declaring their goods."
	case PhaseNegotiateOffer:
		return "Merchants are preparing offers."
	case PhaseNegotiateRespond:
		return "The sheriff is weighing the offers."
	case PhaseInspect:
		if len(e.inspectQueue) > 0 {
			return fmt.Sprintf("The sheriff is deciding on merchant %d.", int(e.inspectQueue[0]))
		}
	}
	return "Waiting."
}

func (e *Engine) baseData(p game.PlayerID) map[string]any {
	stands := make(map[string][]string, e.cfg.Players)
	goldView := make([]int, e.cfg.Players)
	for i := 0; i < e.cfg.Players; i++ {
		stands[fmt.Sprintf("player_%d", i)] = goodsToStrings(e.stands[i])
		goldView[i] = e.gold[i]
	}

	declarations := make(map[string]string)
	for i, d := range e.declared {
		if d.made {
			declarations[fmt.Sprintf("player_%d", i)] = d.String()
		}
	}

	data := map[string]any{
		"round":        e.round,
		"sheriff":      int(e.sheriff),
		"is_sheriff":   p == e.sheriff,
		"gold":         goldView,
		"hand":         goodsToStrings(e.hands[p]),
		"bag":          goodsToStrings(e.bags[p]),
		"stands":       stands,
		"declarations": declarations,
		"deck_size":    len(e.deck),
		"pile1_top":    pileTop(e.piles[0]),
		"pile2_top":    pileTop(e.piles[1]),
		"neg_round":    e.negRound,
	}
	if p == e.sheriff {
		offers := make(map[string]map[string]any)
		for m, o := range e.offers {
			offers[fmt.Sprintf("player_%d", int(m))] = map[string]any{
				"gold":        o.gold,
				"stand_goods": goodsToStrings(o.standGoods),
				"bag_goods":   goodsToStrings(o.bagGoods),
				"promises":    o.promises,
			}
		}
		if len(offers) > 0 {
			data["offers"] = offers
		}
	}
	if b := e.bribes[p]; b != nil {
		data["bribe_accepted"] = map[string]any{"gold": b.gold, "bag_goods": goodsToStrings(b.bagGoods)}
	}
	return data
}

// pileTop shows the face-up tail of a discard pile, newest last.
func pileTop(pile []Good) []string {
	n := len(pile)
	if n > pileTopVisible {
		pile = pile[n-pileTopVisible:]
	}
	return goodsToStrings(pile)
}
