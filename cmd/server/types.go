package main

import (
	"math"
	"time"

	"github.com/visrec/visrec/pkg/models"
)

// frameRequest is one pre-extracted fingerprint on the wire.
type frameRequest struct {
	Timestamp float64   `json:"timestamp"`
	Hash      string    `json:"hash"`
	Vector    []float32 `json:"vector"`
}

type identifyRequest struct {
	Frames []frameRequest `json:"frames"`
}

type ingestRequest struct {
	Title        string         `json:"title"`
	Year         *int           `json:"year,omitempty"`
	Fingerprints []frameRequest `json:"fingerprints"`
}

type ingestResponse struct {
	MediaID string `json:"media_id"`
}

type identifyResponse struct {
	Matched          bool     `json:"matched"`
	Title            *string  `json:"title"`
	Year             *int     `json:"year"`
	Timestamp        *float64 `json:"timestamp"`
	Confidence       *float64 `json:"confidence"`
	MatchType        string   `json:"match_type"`
	ProcessingTimeMs float64  `json:"processing_time_ms"`
	Debug            struct {
		Stage1Candidates int `json:"stage1_candidates"`
		Stage2Candidates int `json:"stage2_candidates"`
		FramesSampled    int `json:"frames_sampled"`
		FramesMatched    int `json:"frames_matched"`
	} `json:"debug"`
}

type mediaResponse struct {
	ID               string  `json:"id"`
	Title            string  `json:"title"`
	Year             *int    `json:"year"`
	Duration         float64 `json:"duration"`
	FingerprintCount int     `json:"fingerprint_count"`
}

type statsResponse struct {
	MediaCount       int64 `json:"media_count"`
	FingerprintCount int64 `json:"fingerprint_count"`
	HashBits         int   `json:"hash_bits"`
	VectorDim        int   `json:"vector_dim"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func toIdentifyResponse(r models.RecognitionResult) identifyResponse {
	resp := identifyResponse{
		Matched:          r.Matched,
		MatchType:        string(r.MatchType),
		ProcessingTimeMs: round1(float64(r.ProcessingTime) / float64(time.Millisecond)),
	}
	resp.Debug.Stage1Candidates = r.Stage1Candidates
	resp.Debug.Stage2Candidates = r.Stage2Candidates
	resp.Debug.FramesSampled = r.FramesSampled
	resp.Debug.FramesMatched = r.FramesMatched
	if r.Matched {
		title := r.Title
		ts := r.Timestamp
		conf := round4(r.Confidence)
		resp.Title = &title
		resp.Year = r.Year
		resp.Timestamp = &ts
		resp.Confidence = &conf
	}
	return resp
}

func toMediaResponse(m models.MediaItem) mediaResponse {
	return mediaResponse{
		ID:               m.ID,
		Title:            m.Title,
		Year:             m.Year,
		Duration:         m.Duration,
		FingerprintCount: m.FingerprintCount,
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
