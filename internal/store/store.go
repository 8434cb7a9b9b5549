// Package store persists game records in Redis. Every record carries a TTL
// that is refreshed on write; an untouched session is reclaimed by the store
// rather than by application logic. Advisory locks and the recovery flag are
// plain TTL'd sentinel keys.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/seanmcgon/McTrivia/internal/game"
)

const (
	gameKeyPrefix = "game:"
	lockSuffix    = ":lock"
	recoveryKey   = "recovering"
)

var (
	ErrRoomNotFound  = errors.New("room not found")
	ErrUnknownPlayer = errors.New("unknown player")
	ErrNoQuestion    = errors.New("no question in flight")
	ErrRecovering    = errors.New("recovery in progress")
)

type Options struct {
	GameTTL     time.Duration
	LockTTL     time.Duration
	RecoveryTTL time.Duration
}

func DefaultOptions() Options {
	return Options{
		GameTTL:     7200 * time.Second,
		LockTTL:     5 * time.Second,
		RecoveryTTL: 120 * time.Second,
	}
}

type Store struct {
	rdb  *redis.Client
	opts Options
}

func New(rdb *redis.Client, opts Options) *Store {
	defaults := DefaultOptions()
	if opts.GameTTL <= 0 {
		opts.GameTTL = defaults.GameTTL
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = defaults.LockTTL
	}
	if opts.RecoveryTTL <= 0 {
		opts.RecoveryTTL = defaults.RecoveryTTL
	}
	return &Store{rdb: rdb, opts: opts}
}

func gameKey(code string) string {
	return gameKeyPrefix + code
}

func lockKey(code string) string {
	return gameKeyPrefix + code + lockSuffix
}

// CreateGame writes a new record only if the code is unclaimed. It returns
// false on a code collision so the caller can retry with a fresh code.
func (s *Store) CreateGame(ctx context.Context, g *game.Game) (bool, error) {
	data, err := game.Encode(g)
	if err != nil {
		return false, err
	}
	created, err := s.rdb.SetNX(ctx, gameKey(g.Code), data, s.opts.GameTTL).Result()
	if err != nil {
		return false, fmt.Errorf("create game %s: %w", g.Code, err)
	}
	return created, nil
}

func (s *Store) GetGame(ctx context.Context, code string) (*game.Game, error) {
	raw, err := s.rdb.Get(ctx, gameKey(code)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get game %s: %w", code, err)
	}
	return game.Decode(raw)
}

// SaveGame rewrites the record and refreshes its TTL.
func (s *Store) SaveGame(ctx context.Context, g *game.Game) error {
	data, err := game.Encode(g)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, gameKey(g.Code), data, s.opts.GameTTL).Err(); err != nil {
		return fmt.Errorf("save game %s: %w", g.Code, err)
	}
	return nil
}

// UpdateGame is a read-modify-write convenience for the paths where
// last-write-wins is acceptable (join, identify, disconnect). Scoring and
// question advance must not use it.
func (s *Store) UpdateGame(ctx context.Context, code string, update func(g *game.Game) error) (*game.Game, error) {
	g, err := s.GetGame(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := update(g); err != nil {
		return nil, err
	}
	if err := s.SaveGame(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}

func (s *Store) DeleteGame(ctx context.Context, code string) error {
	if err := s.rdb.Del(ctx, gameKey(code)).Err(); err != nil {
		return fmt.Errorf("delete game %s: %w", code, err)
	}
	return nil
}

// AcquireLock takes the per-game advance lock. The short TTL is a safety net
// against a crash mid-advance, not a correctness mechanism by itself.
func (s *Store) AcquireLock(ctx context.Context, code string) (bool, error) {
	held, err := s.rdb.SetNX(ctx, lockKey(code), "1", s.opts.LockTTL).Result()
	if err != nil {
		return false, fmt.Errorf("acquire lock %s: %w", code, err)
	}
	return held, nil
}

func (s *Store) ReleaseLock(ctx context.Context, code string) error {
	if err := s.rdb.Del(ctx, lockKey(code)).Err(); err != nil {
		return fmt.Errorf("release lock %s: %w", code, err)
	}
	return nil
}

func (s *Store) LockHeld(ctx context.Context, code string) (bool, error) {
	n, err := s.rdb.Exists(ctx, lockKey(code)).Result()
	if err != nil {
		return false, fmt.Errorf("check lock %s: %w", code, err)
	}
	return n > 0, nil
}

// SetRecovering raises the process-wide flag that suppresses mutating game
// events after a restart. The TTL is an outer bound; the recovery controller
// clears the flag after its grace window.
func (s *Store) SetRecovering(ctx context.Context) error {
	if err := s.rdb.Set(ctx, recoveryKey, "1", s.opts.RecoveryTTL).Err(); err != nil {
		return fmt.Errorf("set recovery flag: %w", err)
	}
	return nil
}

func (s *Store) ClearRecovering(ctx context.Context) error {
	if err := s.rdb.Del(ctx, recoveryKey).Err(); err != nil {
		return fmt.Errorf("clear recovery flag: %w", err)
	}
	return nil
}

func (s *Store) Recovering(ctx context.Context) (bool, error) {
	n, err := s.rdb.Exists(ctx, recoveryKey).Result()
	if err != nil {
		return false, fmt.Errorf("check recovery flag: %w", err)
	}
	return n > 0, nil
}

// ForEachGame iterates every persisted game record, skipping lock keys.
func (s *Store) ForEachGame(ctx context.Context, fn func(g *game.Game) error) error {
	iter := s.rdb.Scan(ctx, 0, gameKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		if strings.HasSuffix(key, lockSuffix) {
			continue
		}
		raw, err := s.rdb.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return fmt.Errorf("scan game %s: %w", key, err)
		}
		g, err := game.Decode(raw)
		if err != nil {
			return err
		}
		if err := fn(g); err != nil {
			return err
		}
	}
	return iter.Err()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}
