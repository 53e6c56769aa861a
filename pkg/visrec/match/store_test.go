package match

import (
	"fmt"
	"math"

	"github.com/visrec/visrec/pkg/models"
)

// fakeStore is an in-memory match.Store for engine tests.
type fakeStore struct {
	rows    []models.HashRecord
	vectors map[uint]models.VectorRecord
	titles  map[string]string
	years   map[string]*int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		vectors: make(map[uint]models.VectorRecord),
		titles:  make(map[string]string),
		years:   make(map[string]*int),
	}
}

func (f *fakeStore) addMedia(id, title string, year *int) {
	f.titles[id] = title
	f.years[id] = year
}

func (f *fakeStore) addFingerprint(id uint, mediaID string, ts float64, hash string, vec []float32) {
	f.rows = append(f.rows, models.HashRecord{
		FingerprintID: id,
		MediaID:       mediaID,
		Timestamp:     ts,
		Hash:          hash,
	})
	f.vectors[id] = models.VectorRecord{MediaID: mediaID, Timestamp: ts, Vector: vec}
}

func (f *fakeStore) ScanHashes(fn func(models.HashRecord) error) error {
	for _, r := range f.rows {
		if err := fn(r); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeStore) FetchVectors(ids []uint) (map[uint]models.VectorRecord, error) {
	out := make(map[uint]models.VectorRecord, len(ids))
	for _, id := range ids {
		rec, ok := f.vectors[id]
		if !ok {
			return nil, &models.NotFoundError{Kind: "fingerprint", IDs: []string{fmt.Sprint(id)}}
		}
		out[id] = rec
	}
	return out, nil
}

func (f *fakeStore) MediaTitleYear(mediaID string) (string, *int, error) {
	title, ok := f.titles[mediaID]
	if !ok {
		return "", nil, &models.NotFoundError{Kind: "media", IDs: []string{mediaID}}
	}
	return title, f.years[mediaID], nil
}

// hash64 renders a 64-bit value as the 16-char hex hashes used
// throughout the tests.
func hash64(v uint64) string {
	return fmt.Sprintf("%016x", v)
}

// vectorWithSimilarity builds a unit 2-d vector whose cosine
// similarity against (1, 0) equals sim.
func vectorWithSimilarity(sim float64) []float32 {
	return []float32{float32(sim), float32(math.Sqrt(1 - sim*sim))}
}
