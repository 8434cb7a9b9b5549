// Package game defines the trivia session record persisted by the store.
package game

// Question is a single multiple-choice question. CorrectAnswer is kept
// alongside the distractors; scoring happens server-side.
type Question struct {
	Text          string   `json:"text"`
	CorrectAnswer string   `json:"correctAnswer"`
	OtherAnswers  []string `json:"otherAnswers"`
}

// Player is one participant in a game. Connected is the authoritative
// liveness flag; ConnectionID only routes direct messages and carries no
// identity across restarts.
type Player struct {
	Name         string `json:"name"`
	Score        int    `json:"score"`
	Connected    bool   `json:"connected"`
	ConnectionID string `json:"connectionId"`
	Choice       string `json:"choice"`
}

// Game is the full session record, stored as one JSON value keyed by room
// code. Players is keyed by the client-generated player identifier; Order
// records join order so host migration is deterministic.
type Game struct {
	Code      string             `json:"code"`
	Host      string             `json:"host"`
	Players   map[string]*Player `json:"players"`
	Order     []string           `json:"order"`
	Questions []Question         `json:"questions"`
	CurrentQ  int                `json:"currentQ"`
}

// New creates a game with the given player as sole member and host.
func New(code, hostID, hostName, connID string) *Game {
	g := &Game{
		Code:      code,
		Host:      hostID,
		Players:   make(map[string]*Player),
		Questions: []Question{},
	}
	g.AddPlayer(hostID, hostName, connID)
	return g
}

// AddPlayer inserts a fresh connected player with score zero. Existing
// entries are returned untouched.
func (g *Game) AddPlayer(id, name, connID string) *Player {
	if p, ok := g.Players[id]; ok {
		return p
	}
	p := &Player{
		Name:         name,
		Connected:    true,
		ConnectionID: connID,
	}
	g.Players[id] = p
	g.Order = append(g.Order, id)
	return p
}

// CurrentQuestion returns the most recently served question, the one at
// CurrentQ-1. ok is false when no question has been served this round.
func (g *Game) CurrentQuestion() (Question, bool) {
	if g.CurrentQ < 1 || g.CurrentQ > len(g.Questions) {
		return Question{}, false
	}
	return g.Questions[g.CurrentQ-1], true
}

// ConnectedCount counts players whose liveness flag is set.
func (g *Game) ConnectedCount() int {
	count := 0
	for _, p := range g.Players {
		if p.Connected {
			count++
		}
	}
	return count
}

// FirstConnected returns the earliest-joined connected player.
func (g *Game) FirstConnected() (string, bool) {
	for _, id := range g.Order {
		if p, ok := g.Players[id]; ok && p.Connected {
			return id, true
		}
	}
	return "", false
}

// ClearChoices resets every player's selected answer.
func (g *Game) ClearChoices() {
	for _, p := range g.Players {
		p.Choice = ""
	}
}
