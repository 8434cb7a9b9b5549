package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads environment variables from a .env file if present.
// Existing environment variables are not overwritten.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}

type Config struct {
	Port                 string
	PublicURL            string
	RedisURL             string
	TriviaURL            string
	QuestionsPerRound    int
	CodeLength           int
	GameTTLSeconds       int
	LockTTLSeconds       int
	RecoveryTTLSeconds   int
	RecoveryGraceSeconds int
}

func Default() Config {
	return Config{
		Port:                 "3001",
		PublicURL:            "http://localhost:3001",
		RedisURL:             "redis://localhost:6379",
		TriviaURL:            "https://opentdb.com/api.php",
		QuestionsPerRound:    5,
		CodeLength:           5,
		GameTTLSeconds:       7200,
		LockTTLSeconds:       5,
		RecoveryTTLSeconds:   120,
		RecoveryGraceSeconds: 5,
	}
}

func Load() Config {
	cfg := Default()
	if raw := os.Getenv("PORT"); raw != "" {
		cfg.Port = raw
	}
	if raw := os.Getenv("PUBLIC_URL"); raw != "" {
		cfg.PublicURL = raw
	}
	if raw := os.Getenv("REDIS_URL"); raw != "" {
		cfg.RedisURL = raw
	}
	if raw := os.Getenv("TRIVIA_URL"); raw != "" {
		cfg.TriviaURL = raw
	}
	if raw := os.Getenv("QUESTIONS_PER_ROUND"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.QuestionsPerRound = value
		}
	}
	if raw := os.Getenv("CODE_LENGTH"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value >= 4 {
			cfg.CodeLength = value
		}
	}
	if raw := os.Getenv("GAME_TTL_SECONDS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.GameTTLSeconds = value
		}
	}
	if raw := os.Getenv("LOCK_TTL_SECONDS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.LockTTLSeconds = value
		}
	}
	if raw := os.Getenv("RECOVERY_TTL_SECONDS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.RecoveryTTLSeconds = value
		}
	}
	if raw := os.Getenv("RECOVERY_GRACE_SECONDS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value >= 0 {
			cfg.RecoveryGraceSeconds = value
		}
	}
	return cfg
}
