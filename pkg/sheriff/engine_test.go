package sheriff

import (
	"testing"

	"github.com/EternisAI/strategy-bench/pkg/game"
)

func newTest(t *testing.T, players int, seed int64) *Engine {
	t.Helper()
	e, err := New(Config{Players: players, Seed: seed, MatchID: "test"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	e.Reset()
	return e
}

func act(e *Engine, p game.PlayerID, kind string, data map[string]any) {
	e.Step(map[game.PlayerID]game.Action{p: {Player: p, Kind: kind, Data: data}})
}

func skipMarket(t *testing.T, e *Engine) {
	t.Helper()
	for e.phase == PhaseMarket {
		act(e, e.marketQueue[0], "skip", nil)
	}
	if e.phase != PhaseLoadBag {
		t.Fatalf("expected LoadBag after market, got %s", e.phase)
	}
}

func loadOneCard(t *testing.T, e *Engine) {
	t.Helper()
	for _, m := range e.merchants() {
		act(e, m, "load", map[string]any{"goods": []string{string(e.hands[m][0])}})
	}
	if e.phase != PhaseDeclare {
		t.Fatalf("expected Declare after loading, got %s", e.phase)
	}
}

func declareApples(t *testing.T, e *Engine) {
	t.Helper()
	for _, m := range e.merchants() {
		act(e, m, "declare", map[string]any{"good": "apples", "count": len(e.bags[m])})
	}
	if e.phase != PhaseNegotiateOffer {
		t.Fatalf("expected NegotiateOffer after declarations, got %s", e.phase)
	}
}

func passNegotiation(t *testing.T, e *Engine) {
	t.Helper()
	for e.phase == PhaseNegotiateOffer || e.phase == PhaseNegotiateRespond {
		actions := make(map[game.PlayerID]game.Action)
		for _, p := range game.Actors(e.Observations()) {
			if p == e.sheriff {
				actions[p] = game.Action{Player: p, Kind: "end_negotiation"}
			} else {
				actions[p] = game.Action{Player: p, Kind: "pass"}
			}
		}
		e.Step(actions)
	}
	if e.phase != PhaseInspect {
		t.Fatalf("expected Inspect after negotiation, got %s", e.phase)
	}
}

func TestDeckComposition(t *testing.T) {
	deck := buildDeck()
	if len(deck) != 216 {
		t.Fatalf("deck size: expected 216, got %d", len(deck))
	}
	counts := countGoods(deck)
	for g, info := range goodTable {
		if counts[g] != info.Count {
			t.Errorf("%s: expected %d copies, got %d", g, info.Count, counts[g])
		}
	}
}

func TestSetupDealsHandsAndGold(t *testing.T) {
	e := newTest(t, 4, 1)
	for i := 0; i < 4; i++ {
		if len(e.hands[i]) != handSize {
			t.Errorf("player %d hand: expected %d, got %d", i, handSize, len(e.hands[i]))
		}
		if e.gold[i] != startingGold {
			t.Errorf("player %d gold: expected %d, got %d", i, startingGold, e.gold[i])
		}
	}
	if e.sheriff != 0 || e.round != 1 {
		t.Errorf("round 1 should open with sheriff 0, got sheriff=%d round=%d", int(e.sheriff), e.round)
	}
}

func TestMarketPileRoundTrip(t *testing.T) {
	e := newTest(t, 3, 2)
	m := e.marketQueue[0]
	card := string(e.hands[m][0])

	act(e, m, "market", map[string]any{
		"discard": []string{card},
		"pile":    1,
		"draws":   []string{"pile1"},
	})
	if len(e.hands[m]) != handSize {
		t.Fatalf("hand not refilled: %d", len(e.hands[m]))
	}
	if _, ok := removeGoods(e.hands[m], []Good{Good(card)}); !ok {
		t.Error("drawing from the pile just discarded to should return the card")
	}
}

func TestEmptyBagForceLoads(t *testing.T) {
	e := newTest(t, 3, 3)
	skipMarket(t, e)

	m := e.merchants()[0]
	act(e, m, "load", map[string]any{"goods": []string{}})
	if len(e.bags[m]) != 1 {
		t.Fatalf("empty bag should force-load one card, got %d", len(e.bags[m]))
	}
	if len(e.hands[m]) != handSize-1 {
		t.Errorf("force-load should come from the hand, hand=%d", len(e.hands[m]))
	}
}

func TestInvalidDeclarationDefaultsToApples(t *testing.T) {
	e := newTest(t, 3, 4)
	skipMarket(t, e)
	loadOneCard(t, e)

	m := e.merchants()[0]
	act(e, m, "declare", map[string]any{"good": "silk", "count": 1})
	if !e.declared[m].made || e.declared[m].good != GoodApples {
		t.Fatalf("contraband declaration should default to apples, got %+v", e.declared[m])
	}
	if e.declared[m].count != len(e.bags[m]) {
		t.Errorf("default count should equal bag size")
	}
}

// TestBribeRefundOnInspect runs the fixed scenario: the sheriff accepts a
// 5-gold bribe from a merchant and then inspects them anyway. The bribe
// gold comes back before penalties, so the pair's bribe delta is zero.
func TestBribeRefundOnInspect(t *testing.T) {
	e := newTest(t, 3, 5)
	skipMarket(t, e)
	loadOneCard(t, e)
	declareApples(t, e)

	m1, m2 := e.merchants()[0], e.merchants()[1]
	e.Step(map[game.PlayerID]game.Action{
		m1: {Player: m1, Kind: "offer", Data: map[string]any{"gold": 5}},
		m2: {Player: m2, Kind: "pass"},
	})
	if e.phase != PhaseNegotiateRespond {
		t.Fatalf("expected a response phase, got %s", e.phase)
	}
	act(e, e.sheriff, "respond", map[string]any{"merchant": int(m1), "response": "accept"})
	if e.gold[e.sheriff] != startingGold+5 || e.gold[m1] != startingGold-5 {
		t.Fatalf("bribe transfer wrong: sheriff=%d merchant=%d", e.gold[e.sheriff], e.gold[m1])
	}

	passNegotiation(t, e)

	// Pin the bag so the inspection outcome is known: a silk card
	// declared as apples.
	e.bags[m1] = []Good{GoodSilk}
	e.declared[m1] = declaration{good: GoodApples, count: 1, made: true}

	sheriffGold, merchantGold := e.gold[e.sheriff], e.gold[m1]
	act(e, e.sheriff, "inspect", nil)

	refundSeen := false
	for _, rec := range e.log.Events() {
		if rec.Kind == game.EventInfo && rec.Data["event"] == "bribe_refund" {
			refundSeen = true
			if rec.Data["gold"] != 5 {
				t.Errorf("refund amount: expected 5, got %v", rec.Data["gold"])
			}
		}
	}
	if !refundSeen {
		t.Fatal("missing bribe_refund event")
	}

	// Refund of 5, then a 4-gold contraband penalty paid to the sheriff.
	if e.gold[e.sheriff] != sheriffGold-5+4 {
		t.Errorf("sheriff gold: expected %d, got %d", sheriffGold-5+4, e.gold[e.sheriff])
	}
	if e.gold[m1] != merchantGold+5-4 {
		t.Errorf("merchant gold: expected %d, got %d", merchantGold+5-4, e.gold[m1])
	}
	if countGoods(e.piles[0])[GoodSilk] == 0 {
		t.Error("contraband should be confiscated to the discard pile")
	}
}

func TestTruthfulInspectionPaysMerchant(t *testing.T) {
	e := newTest(t, 3, 6)
	skipMarket(t, e)
	loadOneCard(t, e)
	declareApples(t, e)
	passNegotiation(t, e)

	m := e.inspectQueue[0]
	e.bags[m] = []Good{GoodApples, GoodApples}
	e.declared[m] = declaration{good: GoodApples, count: 2, made: true}
	before := e.gold[m]

	act(e, e.sheriff, "inspect", nil)
	if e.gold[m] != before+2*Info(GoodApples).Penalty {
		t.Errorf("truthful merchant should collect the penalty, gold=%d", e.gold[m])
	}
	if countGoods(e.stands[m])[GoodApples] != 2 {
		t.Errorf("inspected goods should reach the stand, stand=%v", e.stands[m])
	}
}

func TestPassDeliversBribedBagGoods(t *testing.T) {
	e := newTest(t, 3, 7)
	skipMarket(t, e)

	// Load a known two-card bag for merchant 1.
	m1, m2 := e.merchants()[0], e.merchants()[1]
	e.hands[m1] = append([]Good{GoodSilk, GoodApples}, e.hands[m1][2:]...)
	act(e, m1, "load", map[string]any{"goods": []string{"silk", "apples"}})
	act(e, m2, "load", map[string]any{"goods": []string{string(e.hands[m2][0])}})
	declareApples(t, e)

	e.Step(map[game.PlayerID]game.Action{
		m1: {Player: m1, Kind: "offer", Data: map[string]any{"gold": 2, "bag_goods": []string{"silk"}}},
		m2: {Player: m2, Kind: "pass"},
	})
	act(e, e.sheriff, "respond", map[string]any{"response": "accept"})
	passNegotiation(t, e)

	act(e, e.sheriff, "pass", nil)
	if countGoods(e.stands[e.sheriff])[GoodSilk] != 1 {
		t.Error("bribed bag goods should land on the sheriff's stand on pass")
	}
	if countGoods(e.stands[m1])[GoodApples] != 1 {
		t.Error("remaining bag goods should land on the merchant's stand")
	}
}

func TestHandsRefilledAfterResolve(t *testing.T) {
	e := newTest(t, 3, 8)
	skipMarket(t, e)
	loadOneCard(t, e)
	declareApples(t, e)
	passNegotiation(t, e)

	for e.phase == PhaseInspect {
		act(e, e.sheriff, "pass", nil)
	}
	if e.round != 2 {
		t.Fatalf("expected round 2 after resolve, got %d", e.round)
	}
	for i := 0; i < 3; i++ {
		if len(e.hands[i]) != handSize {
			t.Errorf("player %d hand after resolve: expected %d, got %d", i, handSize, len(e.hands[i]))
		}
	}
	if e.sheriff != 1 {
		t.Errorf("sheriff should rotate to player 1, got %d", int(e.sheriff))
	}
}

func TestBonusHolders(t *testing.T) {
	cases := []struct {
		name        string
		counts      []int
		king, queen int
	}{
		{"clear ranks", []int{5, 3, 1}, 0, 1},
		{"king tie", []int{5, 5, 3}, -1, -1},
		{"queen tie", []int{5, 3, 3}, 0, -1},
		{"single holder", []int{0, 4, 0}, 1, -1},
		{"nobody", []int{0, 0, 0}, -1, -1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			king, queen := bonusHolders(tc.counts)
			if king != tc.king || queen != tc.queen {
				t.Errorf("counts %v: expected king=%d queen=%d, got %d/%d",
					tc.counts, tc.king, tc.queen, king, queen)
			}
		})
	}
}

func TestScoringCountsRoyalMultipliers(t *testing.T) {
	e := newTest(t, 3, 9)
	for i := range e.stands {
		e.stands[i] = nil
		e.gold[i] = 0
	}
	// Player 0: 3 plain apples. Player 1: one golden apples card, which
	// counts as 3 apples for the race and ties the King count exactly.
	e.stands[0] = []Good{GoodApples, GoodApples, GoodApples}
	e.stands[1] = []Good{GoodGoldenApples}

	scores := e.computeScores()
	// Tied at 3 apples each: no King, no Queen.
	if scores[0] != 3*Info(GoodApples).Value {
		t.Errorf("player 0 score: expected %d, got %d", 3*Info(GoodApples).Value, scores[0])
	}
	if scores[1] != Info(GoodGoldenApples).Value {
		t.Errorf("player 1 score: expected printed value %d, got %d", Info(GoodGoldenApples).Value, scores[1])
	}
}

func TestNoopSelfPlayTerminates(t *testing.T) {
	for _, players := range []int{3, 4, 5} {
		e, err := New(Config{Players: players, Seed: 42, MatchID: "noop"})
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		e.Reset()

		steps := 0
		for !e.Terminal() && steps < 5000 {
			actions := make(map[game.PlayerID]game.Action)
			for _, p := range game.Actors(e.Observations()) {
				actions[p] = game.Noop(p)
			}
			e.Step(actions)
			steps++
		}
		if !e.Terminal() {
			t.Fatalf("%d players: match did not terminate within %d steps", players, steps)
		}
		wantRounds := players * sheriffTerms(players)
		if e.round != wantRounds {
			t.Errorf("%d players: expected %d rounds, got %d", players, wantRounds, e.round)
		}
		t.Logf("players=%d winner=%s steps=%d", players, e.Winner(), steps)
	}
}
