// Package tournament schedules batches of matches across the supported
// games, runs them concurrently, and aggregates the results.
package tournament

import (
	"fmt"
	"sort"
	"sync"

	"github.com/EternisAI/strategy-bench/pkg/amongus"
	"github.com/EternisAI/strategy-bench/pkg/avalon"
	"github.com/EternisAI/strategy-bench/pkg/game"
	"github.com/EternisAI/strategy-bench/pkg/secrethitler"
	"github.com/EternisAI/strategy-bench/pkg/sheriff"
	"github.com/EternisAI/strategy-bench/pkg/spyfall"
	"github.com/EternisAI/strategy-bench/pkg/werewolf"
)

// Factory builds one engine instance for a scheduled match. roles, when
// non-empty, fixes the role deal (index = seat) using the game's role
// names; games that cannot honor it return an error.
type Factory func(players int, seed int64, matchID string, roles []string) (game.Engine, error)

// playerRange is the supported table size for one game.
type playerRange struct {
	min, max int
}

var (
	regMu    sync.RWMutex
	registry = map[string]Factory{}
	ranges   = map[string]playerRange{}
)

// Register adds a game to the schedulable set. Registering an existing
// name replaces the factory, which tests use to stub engines.
func Register(name string, minPlayers, maxPlayers int, f Factory) {
	regMu.Lock()
	defer regMu.Unlock()
	registry[name] = f
	ranges[name] = playerRange{min: minPlayers, max: maxPlayers}
}

// PlayerRange reports the supported player counts for a registered game.
func PlayerRange(name string) (min, max int, ok bool) {
	regMu.RLock()
	defer regMu.RUnlock()
	r, ok := ranges[name]
	return r.min, r.max, ok
}

// NewEngine instantiates a registered game. roles may be nil.
func NewEngine(name string, players int, seed int64, matchID string, roles []string) (game.Engine, error) {
	regMu.RLock()
	f := registry[name]
	regMu.RUnlock()
	if f == nil {
		return nil, fmt.Errorf("tournament: unknown game %q (have %v)", name, Games())
	}
	return f(players, seed, matchID, roles)
}

// Games lists the registered game names, sorted.
func Games() []string {
	regMu.RLock()
	defer regMu.RUnlock()
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func init() {
	Register(secrethitler.Name, secrethitler.MinPlayers, secrethitler.MaxPlayers, func(players int, seed int64, matchID string, roles []string) (game.Engine, error) {
		cfg := secrethitler.Config{Players: players, Seed: seed, MatchID: matchID}
		for _, r := range roles {
			cfg.Roles = append(cfg.Roles, secrethitler.Role(r))
		}
		return secrethitler.New(cfg)
	})
	Register(avalon.Name, avalon.MinPlayers, avalon.MaxPlayers, func(players int, seed int64, matchID string, roles []string) (game.Engine, error) {
		cfg := avalon.Config{Players: players, Seed: seed, MatchID: matchID}
		for _, r := range roles {
			cfg.Roles = append(cfg.Roles, avalon.Role(r))
		}
		return avalon.New(cfg)
	})
	Register(werewolf.Name, werewolf.MinPlayers, werewolf.MaxPlayers, func(players int, seed int64, matchID string, roles []string) (game.Engine, error) {
		cfg := werewolf.Config{Players: players, Seed: seed, MatchID: matchID}
		for _, r := range roles {
			cfg.Roles = append(cfg.Roles, werewolf.Role(r))
		}
		return werewolf.New(cfg)
	})
	Register(spyfall.Name, spyfall.MinPlayers, spyfall.MaxPlayers, func(players int, seed int64, matchID string, roles []string) (game.Engine, error) {
		cfg := spyfall.Config{Players: players, Seed: seed, MatchID: matchID}
		for i, r := range roles {
			if r != spyfall.RoleSpy {
				continue
			}
			if cfg.Spy != nil {
				return nil, fmt.Errorf("spyfall: more than one spy seat")
			}
			seat := i
			cfg.Spy = &seat
		}
		return spyfall.New(cfg)
	})
	Register(amongus.Name, amongus.MinPlayers, amongus.MaxPlayers, func(players int, seed int64, matchID string, roles []string) (game.Engine, error) {
		cfg := amongus.Config{Players: players, Seed: seed, MatchID: matchID}
		for i, r := range roles {
			if r == "impostor" {
				cfg.Impostors = append(cfg.Impostors, i)
			}
		}
		return amongus.New(cfg)
	})
	Register(sheriff.Name, sheriff.MinPlayers, sheriff.MaxPlayers, func(players int, seed int64, matchID string, roles []string) (game.Engine, error) {
		if len(roles) > 0 {
			return nil, fmt.Errorf("sheriff: the sheriff seat rotates and cannot be fixed")
		}
		return sheriff.New(sheriff.Config{Players: players, Seed: seed, MatchID: matchID})
	})
}
