// internal/game/engine.go
//
// Core game engine for a single Concentration session.
// Responsibilities:
//   - Deal a deck with every identifier present exactly twice.
//   - Apply card selections: flip, compare, match or leave a mismatch pending.
//   - Track flips and score, and the transition playing → won.
//   - Reset to a fresh deal of the same size.
//
// Notes:
//   - The shuffle is driven by a PCG source seeded from Game.Seed, so a seed
//     reproduces the first deal exactly (the daily challenge relies on this).
//   - A mismatched pair stays face up until ConcealMismatch runs, either from
//     the server's delay timer or at the start of the next selection.
package game

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
)

// New constructs a game with the given number of pairs, shuffled from seed.
func New(pairs int, seed uint64) (*Game, error) {
	if pairs < MinPairs || pairs > MaxPairs {
		return nil, fmt.Errorf("%w: %d (want %d..%d)", ErrInvalidPairs, pairs, MinPairs, MaxPairs)
	}
	g := &Game{
		ID:    uuid.NewString(),
		Pairs: pairs,
		Seed:  seed,
		rng:   rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
	g.deal()
	return g, nil
}

// RandomSeed returns a seed from crypto/rand.
func RandomSeed() uint64 {
	var b [8]byte
	_, _ = crand.Read(b[:])
	return binary.BigEndian.Uint64(b[:])
}

// NewDeck builds 2*pairs cards, two per identifier taken from ids, and
// shuffles them with rng.
func NewDeck(pairs int, ids *Identifiers, rng *rand.Rand) []Card {
	cards := make([]Card, 0, 2*pairs)
	for i := 0; i < pairs; i++ {
		c := Card{ID: ids.Next()}
		cards = append(cards, c, c)
	}
	rng.Shuffle(len(cards), func(i, j int) {
		cards[i], cards[j] = cards[j], cards[i]
	})
	return cards
}

// deal replaces the table with a fresh deck and zeroes all counters.
func (g *Game) deal() {
	g.Deals++
	g.ids.Reset()
	g.Cards = NewDeck(g.Pairs, &g.ids, g.rng)
	g.Candidate = NoCandidate
	g.Mismatched = nil
	g.Flips = 0
	g.Score = 0
	g.Finished = false
	g.StartedAt = time.Now().UTC()
}

// ChooseCard selects the card at index.
//
// Rejected selections (finished game, bad index, matched card, the face-up
// candidate itself) return an error and leave the game untouched.
func (g *Game) ChooseCard(index int) (Outcome, error) {
	if g.Finished {
		return "", ErrGameFinished
	}
	if index < 0 || index >= len(g.Cards) {
		return "", fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	if g.Cards[index].Matched {
		return "", ErrCardMatched
	}
	if index == g.Candidate {
		return "", ErrCardFaceUp
	}

	g.ConcealMismatch()

	card := &g.Cards[index]
	card.Flip()
	g.Flips++

	if g.Candidate == NoCandidate {
		g.Candidate = index
		return OutcomeFlipped, nil
	}

	prev := g.Candidate
	first := &g.Cards[prev]
	g.Candidate = NoCandidate
	if first.Matches(*card) {
		first.Matched, card.Matched = true, true
		g.Score++
		if g.allMatched() {
			g.Finished = true
		}
		return OutcomeMatched, nil
	}
	g.Mismatched = []int{prev, index}
	return OutcomeMismatched, nil
}

// ConcealMismatch turns a pending mismatched pair face down.
// Reports whether any card changed.
func (g *Game) ConcealMismatch() bool {
	if len(g.Mismatched) == 0 {
		return false
	}
	for _, i := range g.Mismatched {
		g.Cards[i].SetFaceDown()
	}
	g.Mismatched = nil
	return true
}

// Reset deals a new shuffled deck of the same size. Identifiers restart at 0.
func (g *Game) Reset() {
	g.deal()
}

// Status reports the coarse game state.
func (g *Game) Status() Status {
	if g.Finished {
		return StatusWon
	}
	return StatusPlaying
}

// MatchedPairs counts pairs already found.
func (g *Game) MatchedPairs() int {
	n := 0
	for _, c := range g.Cards {
		if c.Matched {
			n++
		}
	}
	return n / 2
}

func (g *Game) allMatched() bool {
	for _, c := range g.Cards {
		if !c.Matched {
			return false
		}
	}
	return true
}
