package match

import (
	"context"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/visrec/visrec/pkg/models"
)

// Pairwise Hamming distances between these hashes are all >= 32, far
// outside the default stage-1 budget, so a query hash reaches exactly
// its own fingerprint.
var distantHashes = []string{
	hash64(0x0000000000000000),
	hash64(0x00000000ffffffff),
	hash64(0xffffffff00000000),
	hash64(0xffffffffffffffff),
	hash64(0x0f0f0f0f0f0f0f0f),
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// setupVoteStore registers two media items and five fingerprints, one
// per distant hash: fingerprints 1-3 belong to "Title A", 4-5 to
// "Title B". Stored vectors are all (1, 0), so a query built with
// vectorWithSimilarity scores a chosen similarity against any of them.
func setupVoteStore() *fakeStore {
	store := newFakeStore()
	yearA := 2011
	store.addMedia("a", "Title A", &yearA)
	store.addMedia("b", "Title B", nil)
	owners := []string{"a", "a", "a", "b", "b"}
	for i, h := range distantHashes {
		store.addFingerprint(uint(i+1), owners[i], float64(i)*10, h, []float32{1, 0})
	}
	return store
}

func newTestAggregator(store *fakeStore) *Aggregator {
	rec := NewFrameRecognizer(store, DefaultConfig())
	return NewAggregator(rec, store, testLogger())
}

func providerOf(queries []models.QueryFingerprint) FrameProvider {
	return func(i int) (models.QueryFingerprint, error) {
		return queries[i], nil
	}
}

func TestMatchFrameSelfMatch(t *testing.T) {
	store := setupVoteStore()
	rec := NewFrameRecognizer(store, DefaultConfig())

	got, err := rec.MatchFrame(models.QueryFingerprint{
		Hash:   distantHashes[2],
		Vector: []float32{1, 0},
	})
	if err != nil {
		t.Fatalf("MatchFrame failed: %v", err)
	}
	if got.Match == nil {
		t.Fatal("Expected a self-match")
	}
	if got.Match.FingerprintID != 3 {
		t.Errorf("Expected fingerprint 3, got %d", got.Match.FingerprintID)
	}
	if got.Match.Similarity < 0.999 {
		t.Errorf("Expected self-match similarity >= 0.999, got %v", got.Match.Similarity)
	}
	if got.Stage1Candidates != 1 || got.Stage2Candidates != 1 {
		t.Errorf("Expected 1 candidate per stage, got %d/%d", got.Stage1Candidates, got.Stage2Candidates)
	}
}

func TestMatchFrameNoCandidates(t *testing.T) {
	store := setupVoteStore()
	rec := NewFrameRecognizer(store, DefaultConfig())

	got, err := rec.MatchFrame(models.QueryFingerprint{
		Hash:   hash64(0x5555555555555555), // >= 16 bits from every stored hash
		Vector: []float32{1, 0},
	})
	if err != nil {
		t.Fatalf("MatchFrame failed: %v", err)
	}
	if got.Match != nil {
		t.Errorf("Expected no match, got fingerprint %d", got.Match.FingerprintID)
	}
}

func TestIdentifyMajorityVote(t *testing.T) {
	store := setupVoteStore()
	agg := newTestAggregator(store)

	// 3 frames vote "Title A" (0.81, 0.85, 0.90), 2 frames vote
	// "Title B" (0.99, 0.99). A wins on votes despite B's higher
	// similarities; the representative match is A's best frame.
	queries := []models.QueryFingerprint{
		{Hash: distantHashes[0], Vector: vectorWithSimilarity(0.81)},
		{Hash: distantHashes[1], Vector: vectorWithSimilarity(0.85)},
		{Hash: distantHashes[2], Vector: vectorWithSimilarity(0.90)},
		{Hash: distantHashes[3], Vector: vectorWithSimilarity(0.99)},
		{Hash: distantHashes[4], Vector: vectorWithSimilarity(0.99)},
	}

	result, err := agg.Identify(context.Background(), providerOf(queries), len(queries))
	if err != nil {
		t.Fatalf("Identify failed: %v", err)
	}
	if !result.Matched {
		t.Fatal("Expected a match")
	}
	if result.Title != "Title A" {
		t.Errorf("Expected winner 'Title A', got %q", result.Title)
	}
	if math.Abs(result.Confidence-0.90) > 1e-6 {
		t.Errorf("Expected representative similarity 0.90, got %v", result.Confidence)
	}
	if result.FramesMatched != 5 {
		t.Errorf("Expected frames_matched 5 (all matching frames), got %d", result.FramesMatched)
	}
	if result.FramesSampled != 5 {
		t.Errorf("Expected frames_sampled 5, got %d", result.FramesSampled)
	}
	if result.MatchType != models.MatchProbable {
		t.Errorf("Expected match type probable, got %s", result.MatchType)
	}
	if result.Year == nil || *result.Year != 2011 {
		t.Errorf("Expected year 2011, got %v", result.Year)
	}
	if result.Stage1Candidates != 5 || result.Stage2Candidates != 5 {
		t.Errorf("Expected summed candidate counts 5/5, got %d/%d", result.Stage1Candidates, result.Stage2Candidates)
	}
}

func TestIdentifyVoteTieBreakBySimilarity(t *testing.T) {
	store := setupVoteStore()
	agg := newTestAggregator(store)

	// One vote each; B's similarity is higher, so B wins the tie.
	queries := []models.QueryFingerprint{
		{Hash: distantHashes[0], Vector: vectorWithSimilarity(0.75)},
		{Hash: distantHashes[3], Vector: vectorWithSimilarity(0.92)},
	}
	result, err := agg.Identify(context.Background(), providerOf(queries), len(queries))
	if err != nil {
		t.Fatalf("Identify failed: %v", err)
	}
	if result.Title != "Title B" {
		t.Errorf("Expected tie to go to 'Title B', got %q", result.Title)
	}
}

func TestIdentifyVoteTieBreakByEarliestFrame(t *testing.T) {
	store := setupVoteStore()
	agg := newTestAggregator(store)

	// One vote each with identical similarity; the title seen at the
	// earliest frame index wins.
	queries := []models.QueryFingerprint{
		{Hash: distantHashes[3], Vector: vectorWithSimilarity(0.8)},
		{Hash: distantHashes[0], Vector: vectorWithSimilarity(0.8)},
	}
	result, err := agg.Identify(context.Background(), providerOf(queries), len(queries))
	if err != nil {
		t.Fatalf("Identify failed: %v", err)
	}
	if result.Title != "Title B" {
		t.Errorf("Expected earliest-frame title 'Title B', got %q", result.Title)
	}
}

func TestIdentifyNoMatches(t *testing.T) {
	store := setupVoteStore()
	agg := newTestAggregator(store)

	queries := []models.QueryFingerprint{
		{Hash: hash64(0x5555555555555555), Vector: []float32{1, 0}},
		{Hash: hash64(0xaaaaaaaaaaaaaaaa), Vector: []float32{1, 0}},
		{Hash: hash64(0x5a5a5a5a5a5a5a5a), Vector: []float32{1, 0}},
	}
	result, err := agg.Identify(context.Background(), providerOf(queries), len(queries))
	if err != nil {
		t.Fatalf("Identify failed: %v", err)
	}
	if result.Matched {
		t.Error("Expected no match")
	}
	if result.FramesMatched != 0 {
		t.Errorf("Expected frames_matched 0, got %d", result.FramesMatched)
	}
	if result.FramesSampled != 3 {
		t.Errorf("Expected frames_sampled 3, got %d", result.FramesSampled)
	}
	if result.MatchType != models.MatchNone {
		t.Errorf("Expected match type none, got %s", result.MatchType)
	}
}

func TestIdentifySingleFrame(t *testing.T) {
	store := setupVoteStore()
	agg := newTestAggregator(store)

	queries := []models.QueryFingerprint{
		{Hash: distantHashes[0], Vector: []float32{1, 0}},
	}
	result, err := agg.Identify(context.Background(), providerOf(queries), 1)
	if err != nil {
		t.Fatalf("Identify failed: %v", err)
	}
	if !result.Matched {
		t.Fatal("Expected a match")
	}
	if result.FramesSampled != 1 || result.FramesMatched != 1 {
		t.Errorf("Expected 1/1 frames, got %d/%d", result.FramesMatched, result.FramesSampled)
	}
	if result.MatchType != models.MatchStrong {
		t.Errorf("Expected match type strong for self-match, got %s", result.MatchType)
	}
}

func TestIdentifyAbsorbsFrameErrors(t *testing.T) {
	store := setupVoteStore()
	agg := newTestAggregator(store)

	provider := func(i int) (models.QueryFingerprint, error) {
		if i == 1 {
			return models.QueryFingerprint{}, &models.ExtractionError{FrameIndex: i, Err: context.DeadlineExceeded}
		}
		return models.QueryFingerprint{Hash: distantHashes[0], Vector: []float32{1, 0}}, nil
	}
	result, err := agg.Identify(context.Background(), provider, 3)
	if err != nil {
		t.Fatalf("Identify failed: %v", err)
	}
	if !result.Matched {
		t.Fatal("Expected the readable frames to still produce a match")
	}
	if result.FramesSampled != 3 {
		t.Errorf("Expected frames_sampled 3, got %d", result.FramesSampled)
	}
	if result.FramesMatched != 2 {
		t.Errorf("Expected frames_matched 2, got %d", result.FramesMatched)
	}
}

func TestIdentifyCancelled(t *testing.T) {
	store := setupVoteStore()
	agg := newTestAggregator(store)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	queries := []models.QueryFingerprint{
		{Hash: distantHashes[0], Vector: []float32{1, 0}},
	}
	if _, err := agg.Identify(ctx, providerOf(queries), 1); err == nil {
		t.Fatal("Expected error from cancelled context")
	}
}
