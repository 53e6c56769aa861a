package models

import "time"

// MatchType is the confidence tier derived from the representative
// similarity of a recognition result.
type MatchType string

const (
	MatchStrong   MatchType = "strong"   // similarity >= 0.95
	MatchProbable MatchType = "probable" // similarity >= 0.80
	MatchWeak     MatchType = "weak"     // similarity >= 0.70
	MatchNone     MatchType = "none"
)

// MatchTypeFor maps a cosine similarity to its confidence tier.
func MatchTypeFor(similarity float64) MatchType {
	switch {
	case similarity >= 0.95:
		return MatchStrong
	case similarity >= 0.80:
		return MatchProbable
	case similarity >= 0.70:
		return MatchWeak
	default:
		return MatchNone
	}
}

// MediaItem is a reference media entry (movie or show) in the store.
type MediaItem struct {
	ID               string   // UUID assigned on insert
	Title            string   // non-empty
	Year             *int     // release year, optional
	Duration         float64  // seconds, derived from the last fingerprint timestamp
	FingerprintCount int
	CreatedAt        time.Time
}

// FrameFingerprint is one stored-side fingerprint: a sampled frame's
// timestamp within the media plus its dual fingerprint.
type FrameFingerprint struct {
	Timestamp float64 // seconds from media start
	Hash      string  // hex-encoded binary hash
	Vector    []float32
}

// QueryFingerprint is the ephemeral fingerprint of one query frame.
// It is never persisted.
type QueryFingerprint struct {
	Hash   string // hex-encoded binary hash
	Vector []float32
}

// HashRecord is one row of the store's hash scan, the coarse matcher's
// input.
type HashRecord struct {
	FingerprintID uint
	MediaID       string
	Timestamp     float64
	Hash          string
}

// VectorRecord is one entry of a feature-vector lookup by fingerprint id.
type VectorRecord struct {
	MediaID   string
	Timestamp float64
	Vector    []float32
}

// MatchCandidate is a stage-1 survivor handed to stage-2 verification.
// Vector is filled in by the feature lookup between the two stages.
type MatchCandidate struct {
	FingerprintID uint
	MediaID       string
	Timestamp     float64
	Hash          []byte // decoded binary hash
	Distance      int    // Hamming distance to the query hash
	Vector        []float32
}

// FrameMatch is the verified best match for a single query frame.
type FrameMatch struct {
	FingerprintID uint
	MediaID       string
	Title         string
	Timestamp     float64
	Similarity    float64
}

// RecognitionResult is the aggregated outcome of one identify call.
type RecognitionResult struct {
	Matched    bool
	Title      string
	Year       *int
	Timestamp  float64
	Confidence float64
	MatchType  MatchType

	FramesSampled    int
	FramesMatched    int
	Stage1Candidates int // summed across all sampled frames
	Stage2Candidates int
	ProcessingTime   time.Duration
}

// Stats summarizes the contents of the fingerprint store.
type Stats struct {
	MediaCount       int64
	FingerprintCount int64
	HashBits         int // 0 until the first fingerprint is inserted
	VectorDim        int
}
