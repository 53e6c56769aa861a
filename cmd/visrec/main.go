// Command visrec is the CLI for the recognition service: identify a
// clip from its pre-extracted fingerprints, ingest reference media,
// and manage the fingerprint library.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/visrec/visrec/internal/config"
	"github.com/visrec/visrec/pkg/logger"
	"github.com/visrec/visrec/pkg/visrec"
)

var (
	configPath string
	dbPath     string
)

func main() {
	root := &cobra.Command{
		Use:           "visrec",
		Short:         "Identify movies and shows from clip fingerprints",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", os.Getenv("VISREC_CONFIG"), "path to TOML config file")
	root.PersistentFlags().StringVar(&dbPath, "db", "", "path to sqlite database, overrides config")

	root.AddCommand(
		newIdentifyCommand(),
		newIngestCommand(),
		newListCommand(),
		newDeleteCommand(),
		newStatsCommand(),
	)

	if err := root.Execute(); err != nil {
		logger.GetLogger().Error("command failed", "error", err)
		os.Exit(1)
	}
}

// loadConfig resolves the effective configuration for a command run.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, err
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	return cfg, nil
}

func newService(cfg config.Config, opts ...visrec.Option) (visrec.Service, error) {
	base := []visrec.Option{
		visrec.WithDBPath(cfg.DBPath),
		visrec.WithPHashThreshold(cfg.Match.PHashThreshold),
		visrec.WithCNNThreshold(cfg.Match.CNNThreshold),
		visrec.WithCandidateLimit(cfg.Match.CandidateLimit),
		visrec.WithSampleFrames(cfg.SampleFrames),
		visrec.WithLogger(logger.GetLogger()),
	}
	return visrec.NewService(append(base, opts...)...)
}
