package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr        string        `env:"HTTP_ADDR"        envDefault:":8080"`
	Env             string        `env:"ENV"              envDefault:"production"`
	Formats         []string      `env:"FORMATS"          envDefault:"gen9ou,gen9ubers,gen9uu,gen9randombattle,gen8ou"`
	Rated           bool          `env:"RATED"            envDefault:"false"`
	DatabaseURL     string        `env:"DATABASE_URL"`
	JoinCooldown    time.Duration `env:"JOIN_COOLDOWN"    envDefault:"60s"`
	OfficialRooms   []string      `env:"OFFICIAL_ROOMS"`
	PayoutMinSize   int           `env:"PAYOUT_MIN_SIZE"  envDefault:"8"`
	Creators        []string      `env:"CREATORS"`
	Moderators      []string      `env:"MODERATORS"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

const prefix = "TOUR_"

// Load reads .env when present, then the TOUR_ prefixed environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return Parse()
}

// Parse reads the environment only.
func Parse() (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: prefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if len(cfg.Formats) == 0 {
		return Config{}, errors.New("parse env: " + prefix + "FORMATS must list at least one format")
	}
	return cfg, nil
}

func (c Config) Development() bool { return c.Env == "development" }
