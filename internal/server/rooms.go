package server

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/seanmcgon/McTrivia/internal/game"
	"github.com/seanmcgon/McTrivia/internal/store"
)

const (
	// How many fresh codes to try before giving up on create.
	maxCodeAttempts = 5
	// Reconnecting clients can miss an earlier new_host broadcast, so the
	// host identity is re-announced shortly after a reconnect completes.
	hostReannounceDelay = time.Second
)

func (s *Server) createGame(ctx context.Context, c *client, p createGamePayload) {
	var g *game.Game
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		candidate := game.New(newRoomCode(s.cfg.CodeLength), p.PlayerID, p.Name, c.id)
		created, err := s.store.CreateGame(ctx, candidate)
		if err != nil {
			s.storeError(c, "create_game", err)
			return
		}
		if created {
			g = candidate
			break
		}
	}
	if g == nil {
		s.storeError(c, "create_game", errors.New("room code collisions exhausted retries"))
		return
	}
	s.hub.BindPlayer(c, p.PlayerID)
	s.hub.JoinRoom(g.Code, c)
	log.Printf("game created code=%s host=%s", g.Code, p.PlayerID)
	c.send("game_created", map[string]any{
		"code":    g.Code,
		"players": g.Players,
	})
}

func (s *Server) joinGame(ctx context.Context, c *client, p joinGamePayload) {
	g, err := s.store.GetGame(ctx, p.Code)
	if errors.Is(err, store.ErrRoomNotFound) {
		c.send("join_result", joinResult{Success: false, Error: "Game not found"})
		return
	}
	if err != nil {
		s.storeError(c, "join_game", err)
		return
	}

	existing, reconnect := g.Players[p.PlayerID]
	if reconnect {
		existing.Connected = true
		existing.ConnectionID = c.id
	} else {
		g.AddPlayer(p.PlayerID, p.Name, c.id)
	}
	if err := s.store.SaveGame(ctx, g); err != nil {
		s.storeError(c, "join_game", err)
		return
	}
	s.hub.BindPlayer(c, p.PlayerID)
	s.hub.JoinRoom(p.Code, c)

	if reconnect {
		log.Printf("player reconnected code=%s player=%s", p.Code, p.PlayerID)
		s.hub.Broadcast(p.Code, "restart_game", playersPayload{Players: g.Players})
		code := p.Code
		time.AfterFunc(hostReannounceDelay, func() {
			s.reannounceHost(code)
		})
	} else {
		log.Printf("player joined code=%s player=%s", p.Code, p.PlayerID)
		s.hub.Broadcast(p.Code, "player_joined", playersPayload{Players: g.Players})
	}
	c.send("join_result", joinResult{Success: true, Players: g.Players})
}

// reannounceHost reads the game fresh rather than trusting state captured
// before the delay; the host may have changed in the meantime.
func (s *Server) reannounceHost(code string) {
	g, err := s.store.GetGame(context.Background(), code)
	if err != nil {
		return
	}
	s.hub.Broadcast(code, "new_host", hostPayload{Host: g.Host})
}

func (s *Server) startGame(ctx context.Context, c *client, p roomPayload) {
	if _, err := s.store.GetGame(ctx, p.Code); err != nil {
		if !errors.Is(err, store.ErrRoomNotFound) {
			s.storeError(c, "start_game", err)
		}
		return
	}
	log.Printf("game started code=%s", p.Code)
	s.hub.Broadcast(p.Code, "game_started", nil)
}

// nextQuestion advances the room to its next question. Only the host's
// client is expected to send this, but the claim is not verified: any caller
// that knows the code can trigger an advance.
func (s *Server) nextQuestion(ctx context.Context, c *client, p roomPayload) {
	recovering, err := s.store.Recovering(ctx)
	if err != nil {
		s.storeError(c, "next_question", err)
		return
	}
	if recovering {
		log.Printf("next question dropped during recovery code=%s", p.Code)
		return
	}

	held, err := s.store.AcquireLock(ctx, p.Code)
	if err != nil {
		s.storeError(c, "next_question", err)
		return
	}
	if !held {
		log.Printf("next question contended code=%s", p.Code)
		return
	}

	s.hub.Broadcast(p.Code, "next_question_confirmed", nil)

	g, err := s.store.GetGame(ctx, p.Code)
	if err != nil {
		if !errors.Is(err, store.ErrRoomNotFound) {
			s.storeError(c, "next_question", err)
		}
		s.releaseLock(ctx, p.Code)
		return
	}

	if g.CurrentQ >= len(g.Questions) {
		questions, err := s.fetchQuestions(ctx)
		if err != nil {
			log.Printf("question fetch failed code=%s error=%v", p.Code, err)
			s.hub.Broadcast(p.Code, "question_error", map[string]string{
				"status": err.Error(),
			})
			// Abandon the advance; the lock expires by its own TTL.
			return
		}
		g.Questions = questions
		g.CurrentQ = 0
	}

	g.ClearChoices()
	g.CurrentQ++
	if err := s.store.SaveGame(ctx, g); err != nil {
		s.storeError(c, "next_question", err)
		s.releaseLock(ctx, p.Code)
		return
	}

	q, _ := g.CurrentQuestion()
	log.Printf("question served code=%s index=%d", p.Code, g.CurrentQ-1)
	s.hub.Broadcast(p.Code, "question_served", questionPayload{Question: q, Index: g.CurrentQ - 1})
	s.releaseLock(ctx, p.Code)
}

func (s *Server) releaseLock(ctx context.Context, code string) {
	if err := s.store.ReleaseLock(ctx, code); err != nil {
		log.Printf("release lock failed code=%s error=%v", code, err)
	}
}

func (s *Server) submitAnswer(ctx context.Context, c *client, p submitAnswerPayload) {
	snapshot, err := s.store.SubmitAnswer(ctx, p.Code, p.PlayerID, p.Choice)
	switch {
	case errors.Is(err, store.ErrRecovering):
		log.Printf("answer dropped during recovery code=%s player=%s", p.Code, p.PlayerID)
		return
	case errors.Is(err, store.ErrRoomNotFound),
		errors.Is(err, store.ErrUnknownPlayer),
		errors.Is(err, store.ErrNoQuestion):
		log.Printf("answer rejected code=%s player=%s reason=%v", p.Code, p.PlayerID, err)
		return
	case err != nil:
		s.storeError(c, "submit_answer", err)
		return
	}

	c.send("submit_answer_confirmed", nil)
	if snapshot != nil {
		log.Printf("answers revealed code=%s players=%d", p.Code, len(snapshot))
		s.hub.Broadcast(p.Code, "reveal_answers", map[string]any{
			"players": snapshot,
		})
	}
}

// resendQuestion is a point-to-point resync for a client that missed the
// question_served broadcast. While an advance is in flight the request is
// dropped; the client will see the upcoming broadcast instead.
func (s *Server) resendQuestion(ctx context.Context, c *client, p roomPayload) {
	held, err := s.store.LockHeld(ctx, p.Code)
	if err != nil {
		s.storeError(c, "resend_question", err)
		return
	}
	if held {
		log.Printf("resend skipped code=%s reason=advance_in_flight", p.Code)
		return
	}
	g, err := s.store.GetGame(ctx, p.Code)
	if err != nil {
		if !errors.Is(err, store.ErrRoomNotFound) {
			s.storeError(c, "resend_question", err)
		}
		return
	}
	q, ok := g.CurrentQuestion()
	if !ok {
		return
	}
	c.send("question_served", questionPayload{Question: q, Index: g.CurrentQ - 1})
}

// identify is the reconnection handshake: a freshly connected transport
// announces the room code and player identifier it cached locally. On
// success the player is live again and the connection joins the room's
// broadcast group; there is no explicit ack.
func (s *Server) identify(ctx context.Context, c *client, p identifyPayload) {
	_, err := s.store.UpdateGame(ctx, p.Code, func(g *game.Game) error {
		pl, ok := g.Players[p.PlayerID]
		if !ok {
			return store.ErrUnknownPlayer
		}
		pl.Connected = true
		pl.ConnectionID = c.id
		return nil
	})
	if err != nil {
		log.Printf("identify rejected code=%s player=%s reason=%v", p.Code, p.PlayerID, err)
		return
	}
	s.hub.BindPlayer(c, p.PlayerID)
	s.hub.JoinRoom(p.Code, c)
	log.Printf("player identified code=%s player=%s conn=%s", p.Code, p.PlayerID, c.id)
}

// handleDisconnect runs when a connection's read loop ends. The player is
// flipped to disconnected in every room the connection belonged to, the host
// role migrates to the earliest-joined connected player, and a room with no
// connected players left is deleted outright.
func (s *Server) handleDisconnect(c *client) {
	playerID, codes := s.hub.Unregister(c)
	if playerID == "" {
		return
	}
	ctx := context.Background()
	for _, code := range codes {
		s.dropPlayer(ctx, code, playerID, c.id)
	}
}

func (s *Server) dropPlayer(ctx context.Context, code, playerID, connID string) {
	g, err := s.store.GetGame(ctx, code)
	if err != nil {
		if !errors.Is(err, store.ErrRoomNotFound) {
			log.Printf("disconnect load failed code=%s error=%v", code, err)
		}
		return
	}
	pl, ok := g.Players[playerID]
	if !ok {
		return
	}
	if pl.ConnectionID != connID {
		// The player already reconnected on a newer transport.
		return
	}
	pl.Connected = false

	if g.ConnectedCount() == 0 {
		if err := s.store.DeleteGame(ctx, code); err != nil {
			log.Printf("delete empty game failed code=%s error=%v", code, err)
			return
		}
		log.Printf("game deleted code=%s reason=empty", code)
		return
	}

	hostChanged := false
	if g.Host == playerID {
		if next, ok := g.FirstConnected(); ok {
			g.Host = next
			hostChanged = true
		}
	}
	if err := s.store.SaveGame(ctx, g); err != nil {
		log.Printf("disconnect save failed code=%s error=%v", code, err)
		return
	}
	log.Printf("player left code=%s player=%s", code, playerID)
	s.hub.Broadcast(code, "player_left", playersPayload{Players: g.Players})
	if hostChanged {
		log.Printf("host migrated code=%s host=%s", code, g.Host)
		s.hub.Broadcast(code, "new_host", hostPayload{Host: g.Host})
	}
}

// storeError reports a store-connectivity failure to the acting connection.
// Nothing was persisted by the failed operation.
func (s *Server) storeError(c *client, op string, err error) {
	log.Printf("store error op=%s error=%v", op, err)
	c.send("store_error", map[string]string{
		"op":    op,
		"error": "state store unavailable",
	})
}
