// internal/game/types.go
//
// Core type definitions for the Concentration game engine.
// Defines:
//   - Card: identity plus face/match state for one card on the table.
//   - Identifiers: per-game monotonic identifier source.
//   - Outcome / Status: results of a selection and coarse game state.
//   - Game: state for a single in-progress or finished game.

package game

import (
	"errors"
	"math/rand/v2"
	"time"
)

// Card is a single card. Two cards are a pair iff their IDs are equal.
type Card struct {
	ID             int  // Identifier shared by both cards of a pair.
	FaceUp         bool // True while the card is showing its face.
	Matched        bool // True once the card's pair has been found.
	HasBeenFlipped bool // True once the card has been face up at least once.
}

// Matches reports whether c and other belong to the same pair.
func (c Card) Matches(other Card) bool { return c.ID == other.ID }

// Flip toggles the face state of the card.
func (c *Card) Flip() {
	c.FaceUp = !c.FaceUp
	if c.FaceUp {
		c.HasBeenFlipped = true
	}
}

// SetFaceDown turns the card face down.
func (c *Card) SetFaceDown() {
	if c.FaceUp {
		c.FaceUp = false
	}
}

// Identifiers hands out card identifiers 0, 1, 2, ...
type Identifiers struct {
	next int
}

// Next returns a fresh identifier.
func (s *Identifiers) Next() int {
	id := s.next
	s.next++
	return id
}

// Reset makes the next identifier 0 again.
func (s *Identifiers) Reset() { s.next = 0 }

// Outcome is the result of a successful card selection.
type Outcome string

const (
	OutcomeFlipped    Outcome = "flipped"    // first card of a turn is now face up
	OutcomeMatched    Outcome = "matched"    // second card matched the first
	OutcomeMismatched Outcome = "mismatched" // second card did not match
)

// Status is the coarse state of a game.
type Status string

const (
	StatusPlaying Status = "playing"
	StatusWon     Status = "won"
)

// NoCandidate marks the absence of a face-up card waiting for comparison.
const NoCandidate = -1

const (
	MinPairs = 1
	MaxPairs = 32
)

var (
	ErrGameFinished    = errors.New("game finished")
	ErrIndexOutOfRange = errors.New("card index out of range")
	ErrCardMatched     = errors.New("card already matched")
	ErrCardFaceUp      = errors.New("card already face up")
	ErrInvalidPairs    = errors.New("invalid number of pairs")
)

// Game holds the state of a single Concentration game.
type Game struct {
	ID         string    // Unique game identifier.
	Pairs      int       // Number of pairs on the table.
	Seed       uint64    // Seed of the shuffle source; same seed, same first layout.
	Cards      []Card    // Cards in table order.
	Candidate  int       // Index of the face-up card awaiting comparison, or NoCandidate.
	Mismatched []int     // Indices of a face-up mismatched pair awaiting concealment.
	Flips      int       // Number of cards turned face up by selection.
	Score      int       // Number of pairs matched.
	Finished   bool      // True once every card is matched.
	Deals      int       // Number of deals so far; Reset bumps it.
	StartedAt  time.Time // When the current deal started.

	ids Identifiers
	rng *rand.Rand
}
