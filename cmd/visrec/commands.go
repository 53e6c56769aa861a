package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/visrec/visrec/pkg/models"
	"github.com/visrec/visrec/pkg/visrec"
)

// frameFile is the JSON layout produced by the out-of-process
// fingerprint extractor: one entry per sampled frame.
type frameFile struct {
	Frames []struct {
		Timestamp float64   `json:"timestamp"`
		Hash      string    `json:"hash"`
		Vector    []float32 `json:"vector"`
	} `json:"frames"`
}

func readFrameFile(path string) (frameFile, error) {
	var ff frameFile
	data, err := os.ReadFile(path)
	if err != nil {
		return ff, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &ff); err != nil {
		return ff, fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(ff.Frames) == 0 {
		return ff, fmt.Errorf("%s contains no frames", path)
	}
	return ff, nil
}

func newIdentifyCommand() *cobra.Command {
	var (
		phashThreshold int
		cnnThreshold   float64
	)
	cmd := &cobra.Command{
		Use:   "identify <fingerprints.json>",
		Short: "Identify the source media from extracted frame fingerprints",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("phash-threshold") {
				cfg.Match.PHashThreshold = phashThreshold
			}
			if cmd.Flags().Changed("cnn-threshold") {
				cfg.Match.CNNThreshold = cnnThreshold
			}

			ff, err := readFrameFile(args[0])
			if err != nil {
				return err
			}
			queries := make([]models.QueryFingerprint, len(ff.Frames))
			for i, f := range ff.Frames {
				queries[i] = models.QueryFingerprint{Hash: f.Hash, Vector: f.Vector}
			}

			service, err := newService(cfg)
			if err != nil {
				return err
			}
			defer service.Close()

			result, err := service.IdentifyFingerprints(cmd.Context(), queries)
			if err != nil {
				return err
			}
			renderResult(cmd.OutOrStdout(), result)
			return nil
		},
	}
	cmd.Flags().IntVar(&phashThreshold, "phash-threshold", 15, "maximum Hamming distance for stage 1")
	cmd.Flags().Float64Var(&cnnThreshold, "cnn-threshold", 0.6, "minimum cosine similarity for stage 2")
	return cmd
}

func newIngestCommand() *cobra.Command {
	var (
		title string
		year  int
	)
	cmd := &cobra.Command{
		Use:   "ingest <fingerprints.json>",
		Short: "Add a reference media item from extracted fingerprints",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ff, err := readFrameFile(args[0])
			if err != nil {
				return err
			}
			fps := make([]models.FrameFingerprint, len(ff.Frames))
			for i, f := range ff.Frames {
				fps[i] = models.FrameFingerprint{Timestamp: f.Timestamp, Hash: f.Hash, Vector: f.Vector}
			}

			service, err := newService(cfg)
			if err != nil {
				return err
			}
			defer service.Close()

			var yearPtr *int
			if cmd.Flags().Changed("year") {
				yearPtr = &year
			}
			mediaID, err := service.Ingest(cmd.Context(), title, yearPtr, fps)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ingested %q (%d fingerprints) as %s\n", title, len(fps), mediaID)
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "media title (required)")
	cmd.Flags().IntVar(&year, "year", 0, "release year")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List reference media in the library",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			service, err := serviceFromFlags()
			if err != nil {
				return err
			}
			defer service.Close()

			items, err := service.ListMedia()
			if err != nil {
				return err
			}
			renderMediaTable(cmd.OutOrStdout(), items)
			return nil
		},
	}
}

func newDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <media-id>",
		Short: "Remove a media item and its fingerprints",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			service, err := serviceFromFlags()
			if err != nil {
				return err
			}
			defer service.Close()

			if err := service.DeleteMedia(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}
}

func newStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show fingerprint library statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			service, err := serviceFromFlags()
			if err != nil {
				return err
			}
			defer service.Close()

			st, err := service.Stats()
			if err != nil {
				return err
			}
			renderStats(cmd.OutOrStdout(), st)
			return nil
		},
	}
}

func serviceFromFlags() (visrec.Service, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return newService(cfg)
}
