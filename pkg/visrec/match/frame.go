package match

import (
	"fmt"

	"github.com/visrec/visrec/pkg/models"
)

// Config holds the matching thresholds. Lower PHashThreshold and
// higher CNNThreshold are stricter.
type Config struct {
	PHashThreshold int     // max Hamming distance accepted in stage 1
	CNNThreshold   float64 // min cosine similarity accepted in stage 2
	CandidateLimit int     // bounds stage-1 fan-out
}

func DefaultConfig() Config {
	return Config{
		PHashThreshold: 15,
		CNNThreshold:   0.6,
		CandidateLimit: 50,
	}
}

// VectorFetcher looks up stored feature vectors by fingerprint id.
type VectorFetcher interface {
	FetchVectors(ids []uint) (map[uint]models.VectorRecord, error)
}

// Store is the read surface the matching engine needs.
type Store interface {
	HashScanner
	VectorFetcher
	MediaResolver
}

// FrameResult is the outcome of matching a single query frame. Match
// is nil when neither stage produced a survivor.
type FrameResult struct {
	Match            *models.FrameMatch
	Stage1Candidates int
	Stage2Candidates int
}

// FrameRecognizer composes the coarse filter and the fine verifier
// into a single-frame match decision.
type FrameRecognizer struct {
	store  VectorFetcher
	coarse *CoarseMatcher
	verify *Verifier
	cfg    Config
}

func NewFrameRecognizer(store Store, cfg Config) *FrameRecognizer {
	return &FrameRecognizer{
		store:  store,
		coarse: NewCoarseMatcher(store),
		verify: NewVerifier(store),
		cfg:    cfg,
	}
}

// MatchFrame runs stage 1 then stage 2 for one query fingerprint and
// returns the best surviving match, if any.
func (r *FrameRecognizer) MatchFrame(q models.QueryFingerprint) (FrameResult, error) {
	candidates, err := r.coarse.Search(q.Hash, r.cfg.PHashThreshold, r.cfg.CandidateLimit)
	if err != nil {
		return FrameResult{}, fmt.Errorf("stage 1: %w", err)
	}
	if len(candidates) == 0 {
		return FrameResult{}, nil
	}

	ids := make([]uint, len(candidates))
	for i, c := range candidates {
		ids[i] = c.FingerprintID
	}
	vectors, err := r.store.FetchVectors(ids)
	if err != nil {
		return FrameResult{}, fmt.Errorf("fetching candidate vectors: %w", err)
	}
	for i := range candidates {
		candidates[i].Vector = vectors[candidates[i].FingerprintID].Vector
	}

	matches, err := r.verify.Verify(candidates, q.Vector, r.cfg.CNNThreshold)
	if err != nil {
		return FrameResult{}, fmt.Errorf("stage 2: %w", err)
	}

	res := FrameResult{
		Stage1Candidates: len(candidates),
		Stage2Candidates: len(matches),
	}
	if len(matches) > 0 {
		best := matches[0]
		res.Match = &best
	}
	return res, nil
}
