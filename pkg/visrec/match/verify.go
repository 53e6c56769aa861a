package match

import (
	"fmt"
	"math"
	"sort"

	"github.com/visrec/visrec/pkg/models"
)

// MediaResolver resolves a media id to its title and year.
type MediaResolver interface {
	MediaTitleYear(mediaID string) (string, *int, error)
}

// CosineSimilarity computes the normalized dot product of two vectors.
// It is 0 when either vector has zero magnitude.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, &models.SchemaMismatchError{Field: "vector dim", Want: len(b), Got: len(a)}
	}
	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB)), nil
}

// Verifier is the stage-2 re-ranker: cosine similarity of the query
// feature vector against each stage-1 candidate's stored vector.
type Verifier struct {
	media MediaResolver
}

func NewVerifier(media MediaResolver) *Verifier {
	return &Verifier{media: media}
}

// Verify scores every candidate against queryVector, drops those below
// minSimilarity, and returns the survivors descending by similarity
// with ties broken by ascending fingerprint id. Candidates must carry
// their stored vectors.
func (v *Verifier) Verify(candidates []models.MatchCandidate, queryVector []float32, minSimilarity float64) ([]models.FrameMatch, error) {
	titles := make(map[string]string)

	var out []models.FrameMatch
	for _, c := range candidates {
		sim, err := CosineSimilarity(queryVector, c.Vector)
		if err != nil {
			return nil, err
		}
		if sim < minSimilarity {
			continue
		}

		title, ok := titles[c.MediaID]
		if !ok {
			t, _, err := v.media.MediaTitleYear(c.MediaID)
			if err != nil {
				return nil, fmt.Errorf("resolving media %s: %w", c.MediaID, err)
			}
			title = t
			titles[c.MediaID] = t
		}

		out = append(out, models.FrameMatch{
			FingerprintID: c.FingerprintID,
			MediaID:       c.MediaID,
			Title:         title,
			Timestamp:     c.Timestamp,
			Similarity:    sim,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Similarity != out[j].Similarity {
			return out[i].Similarity > out[j].Similarity
		}
		return out[i].FingerprintID < out[j].FingerprintID
	})
	return out, nil
}
