package visrec

import (
	"context"

	"github.com/visrec/visrec/pkg/models"
)

// Service identifies media clips and images against a reference
// fingerprint library and manages that library.
type Service interface {
	// Identify samples frameCount frames from the clip or image at
	// path (1 for a still image), fingerprints them through the
	// configured sampler and extractor, and aggregates the per-frame
	// matches into one result.
	Identify(ctx context.Context, path string, frameCount int) (models.RecognitionResult, error)

	// IdentifyFingerprints runs the matching engine over already
	// extracted query fingerprints, one per sampled frame.
	IdentifyFingerprints(ctx context.Context, queries []models.QueryFingerprint) (models.RecognitionResult, error)

	// AddMedia samples and fingerprints a reference file and ingests it.
	AddMedia(ctx context.Context, path, title string, year *int, frameCount int) (string, error)

	// Ingest stores pre-extracted fingerprints for a new media item.
	Ingest(ctx context.Context, title string, year *int, fps []models.FrameFingerprint) (string, error)

	MediaByID(id string) (*models.MediaItem, error)
	ListMedia() ([]models.MediaItem, error)
	DeleteMedia(id string) error
	Stats() (models.Stats, error)
	Close() error
}

// Storage is the persistence contract the service and matching engine
// run against.
type Storage interface {
	RegisterMedia(title string, year *int) (string, error)
	StoreFingerprints(mediaID string, fps []models.FrameFingerprint) error
	ScanHashes(fn func(models.HashRecord) error) error
	FetchVectors(ids []uint) (map[uint]models.VectorRecord, error)
	MediaTitleYear(mediaID string) (string, *int, error)
	MediaByID(mediaID string) (*models.MediaItem, error)
	ListMedia() ([]models.MediaItem, error)
	DeleteMedia(mediaID string) error
	Stats() (models.Stats, error)
	Close() error
}

// Frame is one sampled frame image handed to the extractor.
type Frame struct {
	Index     int
	Timestamp float64 // seconds from the start of the sampled input
	Data      []byte  // encoded image bytes
}

// FrameSampler decodes a video or image file and yields frameCount
// evenly spaced frames (a still image yields one). Implementations
// live outside this module.
type FrameSampler interface {
	Sample(ctx context.Context, path string, frameCount int) ([]Frame, error)
}

// Extractor turns one sampled frame into its dual fingerprint. The
// perceptual-hash and CNN inference implementations live outside this
// module; outputs must conform to the store-wide hash length and
// vector dimension.
type Extractor interface {
	Extract(ctx context.Context, frame Frame) (models.QueryFingerprint, error)
}
