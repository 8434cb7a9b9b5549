package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/seanmcgon/McTrivia/internal/config"
	"github.com/seanmcgon/McTrivia/internal/server"
	"github.com/seanmcgon/McTrivia/internal/store"
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		log.Fatal(err)
	}
	cfg := config.Load()

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatal(err)
	}
	rdb := redis.NewClient(opt)
	st := store.New(rdb, store.Options{
		GameTTL:     time.Duration(cfg.GameTTLSeconds) * time.Second,
		LockTTL:     time.Duration(cfg.LockTTLSeconds) * time.Second,
		RecoveryTTL: time.Duration(cfg.RecoveryTTLSeconds) * time.Second,
	})

	srv := server.New(st, cfg)
	if err := srv.Recover(context.Background()); err != nil {
		log.Fatal(err)
	}

	addr := ":" + cfg.Port
	log.Printf("mctrivia server listening on %s", addr)
	if err := http.ListenAndServe(addr, srv.Handler()); err != nil {
		log.Fatal(err)
	}
}
