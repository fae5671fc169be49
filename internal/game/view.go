package game

import "time"

// CardView is the client-facing representation of a card.
// Face is only set when the card is face up, so clients cannot peek.
type CardView struct {
	Index          int  `json:"index"`
	Face           *int `json:"face,omitempty"`
	FaceUp         bool `json:"faceUp"`
	Matched        bool `json:"matched"`
	HasBeenFlipped bool `json:"hasBeenFlipped"`
}

// View is the client-facing snapshot of a game.
type View struct {
	ID           string     `json:"id"`
	Status       Status     `json:"status"`
	Pairs        int        `json:"pairs"`
	MatchedPairs int        `json:"matchedPairs"`
	Flips        int        `json:"flips"`
	Score        int        `json:"score"`
	Cards        []CardView `json:"cards"`
	StartedAt    time.Time  `json:"startedAt"`
}

// View builds the snapshot sent to clients.
func (g *Game) View() View {
	cards := make([]CardView, len(g.Cards))
	for i, c := range g.Cards {
		cv := CardView{
			Index:          i,
			FaceUp:         c.FaceUp,
			Matched:        c.Matched,
			HasBeenFlipped: c.HasBeenFlipped,
		}
		if c.FaceUp {
			face := c.ID
			cv.Face = &face
		}
		cards[i] = cv
	}
	return View{
		ID:           g.ID,
		Status:       g.Status(),
		Pairs:        g.Pairs,
		MatchedPairs: g.MatchedPairs(),
		Flips:        g.Flips,
		Score:        g.Score,
		Cards:        cards,
		StartedAt:    g.StartedAt,
	}
}
