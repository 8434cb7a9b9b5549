package server

import (
	"context"
	"encoding/json"
	"log"
	"strings"

	"github.com/seanmcgon/McTrivia/internal/game"
)

type createGamePayload struct {
	Name     string `json:"name" validate:"required,max=20"`
	PlayerID string `json:"playerId" validate:"required,max=64"`
}

type joinGamePayload struct {
	Code     string `json:"code" validate:"required,max=8"`
	Name     string `json:"name" validate:"required,max=20"`
	PlayerID string `json:"playerId" validate:"required,max=64"`
}

type roomPayload struct {
	Code string `json:"code" validate:"required,max=8"`
}

type submitAnswerPayload struct {
	Code     string `json:"code" validate:"required,max=8"`
	PlayerID string `json:"playerId" validate:"required,max=64"`
	Choice   string `json:"choice" validate:"required,max=140"`
}

type identifyPayload struct {
	Code     string `json:"code" validate:"required,max=8"`
	PlayerID string `json:"playerId" validate:"required,max=64"`
}

type joinResult struct {
	Success bool                    `json:"success"`
	Error   string                  `json:"error,omitempty"`
	Players map[string]*game.Player `json:"players,omitempty"`
}

type playersPayload struct {
	Players map[string]*game.Player `json:"players"`
}

type hostPayload struct {
	Host string `json:"host"`
}

type questionPayload struct {
	Question game.Question `json:"question"`
	Index    int           `json:"index"`
}

// dispatch routes one inbound frame. Malformed envelopes and payloads are
// rejected at the boundary: logged and dropped, never propagated.
func (s *Server) dispatch(c *client, raw []byte) {
	var msg envelope
	if err := json.Unmarshal(raw, &msg); err != nil {
		log.Printf("malformed frame conn=%s error=%v", c.id, err)
		return
	}
	ctx := context.Background()
	switch msg.Event {
	case "create_game":
		var p createGamePayload
		if s.decode(c, msg.Event, msg.Data, &p) {
			s.createGame(ctx, c, p)
		}
	case "join_game":
		var p joinGamePayload
		if s.decode(c, msg.Event, msg.Data, &p) {
			p.Code = normalizeCode(p.Code)
			s.joinGame(ctx, c, p)
		}
	case "start_game":
		var p roomPayload
		if s.decode(c, msg.Event, msg.Data, &p) {
			p.Code = normalizeCode(p.Code)
			s.startGame(ctx, c, p)
		}
	case "next_question":
		var p roomPayload
		if s.decode(c, msg.Event, msg.Data, &p) {
			p.Code = normalizeCode(p.Code)
			s.nextQuestion(ctx, c, p)
		}
	case "submit_answer":
		var p submitAnswerPayload
		if s.decode(c, msg.Event, msg.Data, &p) {
			p.Code = normalizeCode(p.Code)
			s.submitAnswer(ctx, c, p)
		}
	case "resend_question":
		var p roomPayload
		if s.decode(c, msg.Event, msg.Data, &p) {
			p.Code = normalizeCode(p.Code)
			s.resendQuestion(ctx, c, p)
		}
	case "identify":
		var p identifyPayload
		if s.decode(c, msg.Event, msg.Data, &p) {
			p.Code = normalizeCode(p.Code)
			s.identify(ctx, c, p)
		}
	default:
		log.Printf("unknown event conn=%s event=%s", c.id, msg.Event)
	}
}

func (s *Server) decode(c *client, event string, data json.RawMessage, dest any) bool {
	if err := json.Unmarshal(data, dest); err != nil {
		log.Printf("malformed payload conn=%s event=%s error=%v", c.id, event, err)
		return false
	}
	if err := s.validate.Struct(dest); err != nil {
		log.Printf("invalid payload conn=%s event=%s error=%v", c.id, event, err)
		return false
	}
	return true
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
