package visrec

import (
	"log/slog"

	"github.com/visrec/visrec/pkg/visrec/match"
)

// Config collects the service construction parameters.
type Config struct {
	DBPath       string
	Match        match.Config
	SampleFrames int // frames sampled per identify call when unspecified
	Logger       *slog.Logger
	Storage      Storage
	Sampler      FrameSampler
	Extractor    Extractor
}

type Option func(*Config)

func WithDBPath(path string) Option {
	return func(c *Config) {
		c.DBPath = path
	}
}

// WithPHashThreshold sets the stage-1 maximum Hamming distance.
func WithPHashThreshold(d int) Option {
	return func(c *Config) {
		c.Match.PHashThreshold = d
	}
}

// WithCNNThreshold sets the stage-2 minimum cosine similarity.
func WithCNNThreshold(s float64) Option {
	return func(c *Config) {
		c.Match.CNNThreshold = s
	}
}

// WithCandidateLimit bounds stage-1 fan-out.
func WithCandidateLimit(n int) Option {
	return func(c *Config) {
		c.Match.CandidateLimit = n
	}
}

func WithMatchConfig(cfg match.Config) Option {
	return func(c *Config) {
		c.Match = cfg
	}
}

func WithSampleFrames(n int) Option {
	return func(c *Config) {
		c.SampleFrames = n
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = log
	}
}

func WithStorage(storage Storage) Option {
	return func(c *Config) {
		c.Storage = storage
	}
}

func WithSampler(sampler FrameSampler) Option {
	return func(c *Config) {
		c.Sampler = sampler
	}
}

func WithExtractor(extractor Extractor) Option {
	return func(c *Config) {
		c.Extractor = extractor
	}
}

func defaultConfig() *Config {
	return &Config{
		DBPath:       "visrec.sqlite3",
		Match:        match.DefaultConfig(),
		SampleFrames: 5,
	}
}
