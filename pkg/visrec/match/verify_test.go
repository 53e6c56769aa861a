package match

import (
	"errors"
	"math"
	"testing"

	"github.com/visrec/visrec/pkg/models"
)

func TestCosineSimilaritySelfIsOne(t *testing.T) {
	v := []float32{0.3, -1.2, 4.5, 0.01}
	sim, err := CosineSimilarity(v, v)
	if err != nil {
		t.Fatalf("CosineSimilarity failed: %v", err)
	}
	if math.Abs(sim-1.0) > 1e-9 {
		t.Errorf("Expected self-similarity 1.0, got %v", sim)
	}
}

func TestCosineSimilarityBounds(t *testing.T) {
	cases := []struct {
		a, b []float32
		want float64
	}{
		{[]float32{1, 0}, []float32{0, 1}, 0},
		{[]float32{1, 0}, []float32{-1, 0}, -1},
		{[]float32{2, 0}, []float32{5, 0}, 1},
	}
	for _, c := range cases {
		sim, err := CosineSimilarity(c.a, c.b)
		if err != nil {
			t.Fatalf("CosineSimilarity(%v, %v) failed: %v", c.a, c.b, err)
		}
		if math.Abs(sim-c.want) > 1e-9 {
			t.Errorf("CosineSimilarity(%v, %v) = %v, want %v", c.a, c.b, sim, c.want)
		}
		if sim < -1 || sim > 1 {
			t.Errorf("Similarity %v outside [-1, 1]", sim)
		}
	}
}

func TestCosineSimilarityZeroMagnitude(t *testing.T) {
	sim, err := CosineSimilarity([]float32{0, 0}, []float32{1, 2})
	if err != nil {
		t.Fatalf("CosineSimilarity failed: %v", err)
	}
	if sim != 0 {
		t.Errorf("Expected 0 for zero-magnitude vector, got %v", sim)
	}
}

func TestCosineSimilarityDimensionMismatch(t *testing.T) {
	_, err := CosineSimilarity([]float32{1, 2, 3}, []float32{1, 2})
	if err == nil {
		t.Fatal("Expected error for vectors of different dimensions")
	}
	var schemaErr *models.SchemaMismatchError
	if !errors.As(err, &schemaErr) {
		t.Errorf("Expected SchemaMismatchError, got %T", err)
	}
}

func verifyCandidates(store *fakeStore, sims map[uint]float64) []models.MatchCandidate {
	var out []models.MatchCandidate
	for _, r := range store.rows {
		out = append(out, models.MatchCandidate{
			FingerprintID: r.FingerprintID,
			MediaID:       r.MediaID,
			Timestamp:     r.Timestamp,
			Vector:        vectorWithSimilarity(sims[r.FingerprintID]),
		})
	}
	return out
}

func TestVerifyFiltersAndSorts(t *testing.T) {
	store := newFakeStore()
	store.addMedia("m1", "Movie One", nil)
	store.addMedia("m2", "Movie Two", nil)
	store.addFingerprint(1, "m1", 10, hash64(0), nil)
	store.addFingerprint(2, "m2", 20, hash64(0), nil)
	store.addFingerprint(3, "m1", 30, hash64(0), nil)

	candidates := verifyCandidates(store, map[uint]float64{1: 0.5, 2: 0.95, 3: 0.7})
	query := []float32{1, 0}

	got, err := NewVerifier(store).Verify(candidates, query, 0.6)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 matches above floor, got %d", len(got))
	}
	if got[0].FingerprintID != 2 || got[1].FingerprintID != 3 {
		t.Errorf("Expected order [2 3], got [%d %d]", got[0].FingerprintID, got[1].FingerprintID)
	}
	for _, m := range got {
		if m.Similarity < 0.6 {
			t.Errorf("Match %d below floor: %v", m.FingerprintID, m.Similarity)
		}
	}
	if got[0].Title != "Movie Two" || got[1].Title != "Movie One" {
		t.Errorf("Titles not resolved: got %q, %q", got[0].Title, got[1].Title)
	}
}

func TestVerifyTieBreakByFingerprintID(t *testing.T) {
	store := newFakeStore()
	store.addMedia("m1", "Movie One", nil)
	store.addFingerprint(7, "m1", 10, hash64(0), nil)
	store.addFingerprint(3, "m1", 20, hash64(0), nil)

	// Identical vectors score identically; the lower id must lead.
	candidates := verifyCandidates(store, map[uint]float64{7: 0.9, 3: 0.9})

	got, err := NewVerifier(store).Verify(candidates, []float32{1, 0}, 0.6)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 matches, got %d", len(got))
	}
	if got[0].FingerprintID != 3 {
		t.Errorf("Expected fingerprint 3 first on equal similarity, got %d", got[0].FingerprintID)
	}
}

func TestVerifyNoneAboveFloor(t *testing.T) {
	store := newFakeStore()
	store.addMedia("m1", "Movie One", nil)
	store.addFingerprint(1, "m1", 10, hash64(0), nil)

	candidates := verifyCandidates(store, map[uint]float64{1: 0.2})
	got, err := NewVerifier(store).Verify(candidates, []float32{1, 0}, 0.6)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Expected no matches above floor, got %d", len(got))
	}
}

func TestVerifyQueryDimensionMismatch(t *testing.T) {
	store := newFakeStore()
	store.addMedia("m1", "Movie One", nil)
	store.addFingerprint(1, "m1", 10, hash64(0), nil)

	candidates := verifyCandidates(store, map[uint]float64{1: 0.9})
	_, err := NewVerifier(store).Verify(candidates, []float32{1, 0, 0}, 0.6)
	if err == nil {
		t.Fatal("Expected error for mismatched query dimension")
	}
	var schemaErr *models.SchemaMismatchError
	if !errors.As(err, &schemaErr) {
		t.Errorf("Expected SchemaMismatchError, got %T", err)
	}
}
