// Package config loads the TOML configuration shared by the server and
// the CLI.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Match holds the two-stage matching thresholds.
type Match struct {
	PHashThreshold int     `toml:"phash_threshold"` // max Hamming distance, stage 1
	CNNThreshold   float64 `toml:"cnn_threshold"`   // min cosine similarity, stage 2
	CandidateLimit int     `toml:"candidate_limit"` // stage-1 fan-out bound
}

// Server holds the HTTP API settings.
type Server struct {
	Bind           string   `toml:"bind"`
	AllowedOrigins []string `toml:"allowed_origins"`
}

// Log holds logging settings.
type Log struct {
	Level string `toml:"level"`
}

// Config is the full application configuration.
type Config struct {
	DBPath       string `toml:"db_path"`
	SampleFrames int    `toml:"sample_frames"`
	Match        Match  `toml:"match"`
	Server       Server `toml:"server"`
	Log          Log    `toml:"log"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DBPath:       "visrec.sqlite3",
		SampleFrames: 5,
		Match: Match{
			PHashThreshold: 15,
			CNNThreshold:   0.6,
			CandidateLimit: 50,
		},
		Server: Server{
			Bind:           ":8080",
			AllowedOrigins: []string{"*"},
		},
		Log: Log{Level: "info"},
	}
}

// Load reads and validates the TOML file at path, layered over the
// defaults. An empty path or a missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks threshold ranges.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return errors.New("db_path must not be empty")
	}
	if c.SampleFrames <= 0 {
		return errors.New("sample_frames must be positive")
	}
	if c.Match.PHashThreshold < 0 {
		return errors.New("match.phash_threshold must not be negative")
	}
	if c.Match.CNNThreshold < -1 || c.Match.CNNThreshold > 1 {
		return errors.New("match.cnn_threshold must be within [-1, 1]")
	}
	if c.Match.CandidateLimit <= 0 {
		return errors.New("match.candidate_limit must be positive")
	}
	if c.Server.Bind == "" {
		return errors.New("server.bind must not be empty")
	}
	return nil
}
