// Package services provides business logic and orchestration services.
//
// This file implements the Strategy Pattern for ordering guests before seat
// assignment. Each strategy decides the order in which unseated guests are
// offered a table; the assigner itself is strategy agnostic.
package services

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"

	"nozze/internal/core"
)

// Strategy names accepted by GetGuestOrderer.
const (
	StrategyByGroup = "by_group"
	StrategyBySide  = "by_side"
	StrategyRandom  = "random"
)

var ErrUnknownStrategy = errors.New("unknown seating strategy")

// GuestOrderer is the strategy interface for seat assignment order.
// Implementations return a new slice and never modify their input.
type GuestOrderer interface {
	Order(guests []core.Guest) []core.Guest
}

// ByGroup orders guests by group name, guests without a group last.
type ByGroup struct{}

func (ByGroup) Order(guests []core.Guest) []core.Guest {
	return sortEmptyLast(guests, func(g core.Guest) string { return strings.TrimSpace(g.Group) })
}

// BySide orders guests by side, guests without a side last.
type BySide struct{}

func (BySide) Order(guests []core.Guest) []core.Guest {
	return sortEmptyLast(guests, func(g core.Guest) string { return string(g.Side) })
}

// Random shuffles guests uniformly. A nil Seed draws from the global source.
type Random struct {
	Seed *int64
}

func (r Random) Order(guests []core.Guest) []core.Guest {
	out := slices.Clone(guests)
	swap := func(i, j int) { out[i], out[j] = out[j], out[i] }
	if r.Seed == nil {
		rand.Shuffle(len(out), swap)
		return out
	}
	seed := uint64(*r.Seed)
	rand.New(rand.NewPCG(seed, seed)).Shuffle(len(out), swap)
	return out
}

// sortEmptyLast is a stable ascending sort on key where the empty key sorts
// after every other value. Ties keep retrieval order.
func sortEmptyLast(guests []core.Guest, key func(core.Guest) string) []core.Guest {
	out := slices.Clone(guests)
	slices.SortStableFunc(out, func(a, b core.Guest) int {
		ka, kb := key(a), key(b)
		switch {
		case ka == kb:
			return 0
		case ka == "":
			return 1
		case kb == "":
			return -1
		}
		return strings.Compare(ka, kb)
	})
	return out
}

// orderers maps strategy names to constructors. Only Random uses the seed.
var orderers = map[string]func(seed *int64) GuestOrderer{
	StrategyByGroup: func(*int64) GuestOrderer { return ByGroup{} },
	StrategyBySide:  func(*int64) GuestOrderer { return BySide{} },
	StrategyRandom:  func(seed *int64) GuestOrderer { return Random{Seed: seed} },
}

// GetGuestOrderer returns the orderer for a strategy name.
func GetGuestOrderer(strategy string, seed *int64) (GuestOrderer, error) {
	mk, ok := orderers[strategy]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, strategy)
	}
	return mk(seed), nil
}

// Strategies lists the accepted strategy names in display order.
func Strategies() []string {
	return []string{StrategyByGroup, StrategyBySide, StrategyRandom}
}
