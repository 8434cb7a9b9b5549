package server

import (
	"context"
	"log"
	"time"

	"github.com/seanmcgon/McTrivia/internal/game"
)

// Recover runs once at process start, before the server accepts events.
// A restarted process has lost all knowledge of which transports are still
// alive, so every persisted player is presumed disconnected until it
// re-identifies, and question advance / answer submission refuse to run
// while the recovery flag is up. The flag is cleared after the grace window;
// its TTL is only the outer bound should the process die again first.
func (s *Server) Recover(ctx context.Context) error {
	if err := s.store.SetRecovering(ctx); err != nil {
		return err
	}
	count := 0
	err := s.store.ForEachGame(ctx, func(g *game.Game) error {
		for _, p := range g.Players {
			p.Connected = false
		}
		if err := s.store.SaveGame(ctx, g); err != nil {
			return err
		}
		count++
		return nil
	})
	if err != nil {
		return err
	}

	grace := time.Duration(s.cfg.RecoveryGraceSeconds) * time.Second
	log.Printf("recovery sweep complete games=%d grace=%s", count, grace)
	time.AfterFunc(grace, func() {
		if err := s.store.ClearRecovering(context.Background()); err != nil {
			log.Printf("clear recovery flag failed error=%v", err)
			return
		}
		log.Printf("recovery window closed")
	})
	return nil
}
