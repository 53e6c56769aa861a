package match

import (
	"fmt"
	"sort"

	"github.com/visrec/visrec/pkg/models"
)

// HashScanner streams every stored hash row. The store guarantees a
// consistent snapshot per call.
type HashScanner interface {
	ScanHashes(fn func(models.HashRecord) error) error
}

// CoarseMatcher is the stage-1 filter: a linear Hamming-distance scan
// over all stored hashes. An index bucketed by hash prefix could slot
// in behind the same Search contract at larger scales.
type CoarseMatcher struct {
	store HashScanner
}

func NewCoarseMatcher(store HashScanner) *CoarseMatcher {
	return &CoarseMatcher{store: store}
}

// Search returns the stored fingerprints within maxDistance of
// queryHash, ascending by distance with ties broken by ascending
// fingerprint id, truncated to limit. An empty result is not an error.
func (m *CoarseMatcher) Search(queryHash string, maxDistance, limit int) ([]models.MatchCandidate, error) {
	query, err := DecodeHash(queryHash)
	if err != nil {
		return nil, err
	}

	var out []models.MatchCandidate
	err = m.store.ScanHashes(func(rec models.HashRecord) error {
		stored, err := DecodeHash(rec.Hash)
		if err != nil {
			return fmt.Errorf("stored fingerprint %d: %w", rec.FingerprintID, err)
		}
		d, err := HammingDistance(query, stored)
		if err != nil {
			return err
		}
		if d > maxDistance {
			return nil
		}
		out = append(out, models.MatchCandidate{
			FingerprintID: rec.FingerprintID,
			MediaID:       rec.MediaID,
			Timestamp:     rec.Timestamp,
			Hash:          stored,
			Distance:      d,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		return out[i].FingerprintID < out[j].FingerprintID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
