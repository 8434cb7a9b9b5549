package game

import (
	"encoding/json"
	"fmt"
)

// Encode serializes a game to the store's value representation. Questions is
// never nil on the wire so the store-side script can index it.
func Encode(g *Game) ([]byte, error) {
	if g.Questions == nil {
		g.Questions = []Question{}
	}
	data, err := json.Marshal(g)
	if err != nil {
		return nil, fmt.Errorf("encode game %s: %w", g.Code, err)
	}
	return data, nil
}

// Decode parses a stored game record.
func Decode(data []byte) (*Game, error) {
	var g Game
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("decode game record: %w", err)
	}
	if g.Players == nil {
		g.Players = make(map[string]*Player)
	}
	if g.Questions == nil {
		g.Questions = []Question{}
	}
	return &g, nil
}
