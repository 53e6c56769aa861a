// Package visrec identifies which known media item a short video clip
// or still image was taken from, by matching visual fingerprints of
// sampled frames against a reference library in two stages: a coarse
// Hamming-distance filter over binary hashes, then cosine-similarity
// verification over dense feature vectors.
package visrec

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/visrec/visrec/pkg/logger"
	"github.com/visrec/visrec/pkg/models"
	"github.com/visrec/visrec/pkg/visrec/match"
	"github.com/visrec/visrec/pkg/visrec/storage"
)

// recognizerService is the default implementation of the Service
// interface.
type recognizerService struct {
	storage Storage
	log     *slog.Logger
	config  *Config
	rec     *match.FrameRecognizer
	agg     *match.Aggregator
}

func NewService(opts ...Option) (Service, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.Logger == nil {
		cfg.Logger = logger.GetLogger()
	}

	stor := cfg.Storage
	if stor == nil {
		var err error
		stor, err = storage.NewStore(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("creating storage: %w", err)
		}
	}

	rec := match.NewFrameRecognizer(stor, cfg.Match)
	return &recognizerService{
		storage: stor,
		log:     cfg.Logger,
		config:  cfg,
		rec:     rec,
		agg:     match.NewAggregator(rec, stor, cfg.Logger),
	}, nil
}

// Identify samples frames from the file at path and aggregates the
// per-frame matches. A file the sampler cannot read yields a no-match
// result rather than an error; only structural store failures abort.
func (s *recognizerService) Identify(ctx context.Context, path string, frameCount int) (models.RecognitionResult, error) {
	if s.config.Sampler == nil || s.config.Extractor == nil {
		return models.RecognitionResult{}, fmt.Errorf("identify by path requires a frame sampler and extractor")
	}
	if frameCount <= 0 {
		frameCount = s.config.SampleFrames
	}

	start := time.Now()
	frames, err := s.config.Sampler.Sample(ctx, path, frameCount)
	if err != nil {
		s.log.Warn("sampling failed, returning no-match", "path", path, "error", err)
		return models.RecognitionResult{
			MatchType:      models.MatchNone,
			ProcessingTime: time.Since(start),
		}, nil
	}

	provider := func(i int) (models.QueryFingerprint, error) {
		q, err := s.config.Extractor.Extract(ctx, frames[i])
		if err != nil {
			return models.QueryFingerprint{}, &models.ExtractionError{FrameIndex: frames[i].Index, Err: err}
		}
		return q, nil
	}

	result, err := s.agg.Identify(ctx, provider, len(frames))
	if err != nil {
		return models.RecognitionResult{}, err
	}
	result.ProcessingTime = time.Since(start)
	s.log.Info("identify finished",
		"path", path,
		"matched", result.Matched,
		"title", result.Title,
		"confidence", result.Confidence,
		"frames_matched", result.FramesMatched,
		"frames_sampled", result.FramesSampled)
	return result, nil
}

// IdentifyFingerprints runs the matching engine over already extracted
// query fingerprints, one per sampled frame.
func (s *recognizerService) IdentifyFingerprints(ctx context.Context, queries []models.QueryFingerprint) (models.RecognitionResult, error) {
	provider := func(i int) (models.QueryFingerprint, error) {
		return queries[i], nil
	}
	return s.agg.Identify(ctx, provider, len(queries))
}

// AddMedia samples and fingerprints a reference file, then ingests it.
// Frames the extractor cannot fingerprint are skipped.
func (s *recognizerService) AddMedia(ctx context.Context, path, title string, year *int, frameCount int) (string, error) {
	if s.config.Sampler == nil || s.config.Extractor == nil {
		return "", fmt.Errorf("adding media by path requires a frame sampler and extractor")
	}
	if frameCount <= 0 {
		return "", &models.ValidationError{Msg: "frame count must be positive"}
	}

	frames, err := s.config.Sampler.Sample(ctx, path, frameCount)
	if err != nil {
		return "", fmt.Errorf("sampling %s: %w", path, err)
	}

	fps := make([]models.FrameFingerprint, 0, len(frames))
	for _, f := range frames {
		q, err := s.config.Extractor.Extract(ctx, f)
		if err != nil {
			s.log.Warn("skipping unreadable frame", "path", path, "frame", f.Index, "error", err)
			continue
		}
		fps = append(fps, models.FrameFingerprint{
			Timestamp: f.Timestamp,
			Hash:      q.Hash,
			Vector:    q.Vector,
		})
	}
	if len(fps) == 0 {
		return "", fmt.Errorf("no frame of %s could be fingerprinted", path)
	}

	return s.Ingest(ctx, title, year, fps)
}

// Ingest stores pre-extracted fingerprints for a new media item. A
// failed fingerprint batch rolls the media entry back.
func (s *recognizerService) Ingest(ctx context.Context, title string, year *int, fps []models.FrameFingerprint) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.log.Info("ingesting media", "title", title, "fingerprints", len(fps))

	mediaID, err := s.storage.RegisterMedia(title, year)
	if err != nil {
		return "", fmt.Errorf("registering media: %w", err)
	}

	if err := s.storage.StoreFingerprints(mediaID, fps); err != nil {
		if delErr := s.storage.DeleteMedia(mediaID); delErr != nil {
			s.log.Error("rollback of media failed", "media_id", mediaID, "error", delErr)
		}
		return "", fmt.Errorf("storing fingerprints: %w", err)
	}

	s.log.Info("media ingested", "media_id", mediaID, "title", title)
	return mediaID, nil
}

func (s *recognizerService) MediaByID(id string) (*models.MediaItem, error) {
	return s.storage.MediaByID(id)
}

func (s *recognizerService) ListMedia() ([]models.MediaItem, error) {
	return s.storage.ListMedia()
}

func (s *recognizerService) DeleteMedia(id string) error {
	return s.storage.DeleteMedia(id)
}

func (s *recognizerService) Stats() (models.Stats, error) {
	return s.storage.Stats()
}

func (s *recognizerService) Close() error {
	return s.storage.Close()
}
