package storage

import (
	"database/sql"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/visrec/visrec/pkg/models"
)

const DefaultDBFile = "visrec.sqlite3"

// Media is the persisted form of a reference media item.
type Media struct {
	ID               string `gorm:"primaryKey;type:varchar(36)"`
	Title            string `gorm:"not null;index:idx_media_title"`
	Year             *int
	Duration         float64
	FingerprintCount int
	CreatedAt        time.Time
}

// Fingerprint is one sampled frame of a reference media item. Hash is
// hex-encoded; Features is the little-endian float32 feature vector.
type Fingerprint struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	MediaID    string `gorm:"type:varchar(36);index:idx_fp_media;index:idx_fp_media_ts,priority:1"`
	Timestamp  float64 `gorm:"index:idx_fp_media_ts,priority:2"`
	FrameIndex int
	Hash       string `gorm:"not null;index:idx_fp_hash"`
	Features   []byte `gorm:"not null"`
}

// Store is the sqlite-backed fingerprint store. The binary-hash bit
// length and feature-vector dimension are store-wide constants fixed
// by the first fingerprint batch ever inserted.
type Store struct {
	DB *gorm.DB
	db *sql.DB

	mu       sync.Mutex
	hashBits int
	vecDim   int
}

// NewStore opens (creating if necessary) the sqlite database at path.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = DefaultDBFile
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating db dir: %w", err)
		}
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	db, err := gorm.Open(sqlite.Open(path+"?_foreign_keys=on"), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB from gorm: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&Media{}, &Fingerprint{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	s := &Store{DB: db, db: sqlDB}
	if err := s.loadSchemaConstants(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return s, nil
}

// loadSchemaConstants recovers the hash length and vector dimension
// from the earliest fingerprint on disk, if any.
func (s *Store) loadSchemaConstants() error {
	var fp Fingerprint
	err := s.DB.Order("id").First(&fp).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading schema constants: %w", err)
	}
	s.hashBits = len(fp.Hash) / 2 * 8
	s.vecDim = len(fp.Features) / 4
	return nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// RegisterMedia creates a media entry and returns its id.
func (s *Store) RegisterMedia(title string, year *int) (string, error) {
	if strings.TrimSpace(title) == "" {
		return "", &models.ValidationError{Msg: "media title must not be empty"}
	}
	m := Media{
		ID:    uuid.NewString(),
		Title: title,
		Year:  year,
	}
	if err := s.DB.Create(&m).Error; err != nil {
		return "", fmt.Errorf("creating media: %w", err)
	}
	return m.ID, nil
}

// StoreFingerprints appends a batch of fingerprints to a media item
// and updates its duration and fingerprint count. The whole batch is
// validated against the store-wide hash length and vector dimension
// before anything is written, so a mismatch leaves the store unchanged.
func (s *Store) StoreFingerprints(mediaID string, fps []models.FrameFingerprint) error {
	if len(fps) == 0 {
		return nil
	}

	var media Media
	if err := s.DB.First(&media, "id = ?", mediaID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &models.NotFoundError{Kind: "media", IDs: []string{mediaID}}
		}
		return fmt.Errorf("looking up media: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	hashBits, vecDim := s.hashBits, s.vecDim
	rows := make([]Fingerprint, 0, len(fps))
	for i, fp := range fps {
		raw, err := decodeHex(fp.Hash)
		if err != nil {
			return err
		}
		if fp.Timestamp < 0 {
			return &models.ValidationError{Msg: fmt.Sprintf("fingerprint %d: negative timestamp", i)}
		}
		bits := len(raw) * 8
		dim := len(fp.Vector)
		if hashBits == 0 {
			hashBits, vecDim = bits, dim
		}
		if bits != hashBits {
			return &models.SchemaMismatchError{Field: "hash bits", Want: hashBits, Got: bits}
		}
		if dim != vecDim {
			return &models.SchemaMismatchError{Field: "vector dim", Want: vecDim, Got: dim}
		}
		rows = append(rows, Fingerprint{
			MediaID:    mediaID,
			Timestamp:  fp.Timestamp,
			FrameIndex: media.FingerprintCount + i,
			Hash:       strings.ToLower(fp.Hash),
			Features:   encodeVector(fp.Vector),
		})
	}

	lastTS := math.Max(media.Duration, fps[len(fps)-1].Timestamp)
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.CreateInBatches(rows, 500).Error; err != nil {
			return fmt.Errorf("batch insert fingerprints: %w", err)
		}
		return tx.Model(&media).Updates(map[string]any{
			"fingerprint_count": gorm.Expr("fingerprint_count + ?", len(rows)),
			"duration":          lastTS,
		}).Error
	})
	if err != nil {
		return err
	}

	s.hashBits, s.vecDim = hashBits, vecDim
	return nil
}

// ScanHashes streams every stored hash row in fingerprint-id order.
// An error returned by fn aborts the scan.
func (s *Store) ScanHashes(fn func(models.HashRecord) error) error {
	rows, err := s.DB.Model(&Fingerprint{}).
		Select("id", "media_id", "timestamp", "hash").
		Order("id").
		Rows()
	if err != nil {
		return fmt.Errorf("scanning hashes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rec models.HashRecord
		if err := rows.Scan(&rec.FingerprintID, &rec.MediaID, &rec.Timestamp, &rec.Hash); err != nil {
			return fmt.Errorf("scanning hash row: %w", err)
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return rows.Err()
}

// FetchVectors looks up stored feature vectors by fingerprint id. All
// requested ids must exist; absent ids are reported in a NotFoundError.
func (s *Store) FetchVectors(ids []uint) (map[uint]models.VectorRecord, error) {
	out := make(map[uint]models.VectorRecord, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var rows []Fingerprint
	if err := s.DB.Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("fetching vectors: %w", err)
	}
	for _, r := range rows {
		out[r.ID] = models.VectorRecord{
			MediaID:   r.MediaID,
			Timestamp: r.Timestamp,
			Vector:    decodeVector(r.Features),
		}
	}

	if len(out) != len(ids) {
		var missing []string
		for _, id := range ids {
			if _, ok := out[id]; !ok {
				missing = append(missing, strconv.FormatUint(uint64(id), 10))
			}
		}
		return nil, &models.NotFoundError{Kind: "fingerprint", IDs: missing}
	}
	return out, nil
}

// MediaTitleYear resolves a media id to its title and year.
func (s *Store) MediaTitleYear(mediaID string) (string, *int, error) {
	var m Media
	if err := s.DB.First(&m, "id = ?", mediaID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, &models.NotFoundError{Kind: "media", IDs: []string{mediaID}}
		}
		return "", nil, fmt.Errorf("looking up media: %w", err)
	}
	return m.Title, m.Year, nil
}

func (s *Store) MediaByID(mediaID string) (*models.MediaItem, error) {
	var m Media
	if err := s.DB.First(&m, "id = ?", mediaID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &models.NotFoundError{Kind: "media", IDs: []string{mediaID}}
		}
		return nil, fmt.Errorf("looking up media: %w", err)
	}
	item := toMediaItem(m)
	return &item, nil
}

func (s *Store) ListMedia() ([]models.MediaItem, error) {
	var rows []Media
	if err := s.DB.Order("created_at, id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing media: %w", err)
	}
	out := make([]models.MediaItem, len(rows))
	for i, m := range rows {
		out[i] = toMediaItem(m)
	}
	return out, nil
}

// DeleteMedia removes a media item and all its fingerprints.
func (s *Store) DeleteMedia(mediaID string) error {
	var m Media
	if err := s.DB.First(&m, "id = ?", mediaID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &models.NotFoundError{Kind: "media", IDs: []string{mediaID}}
		}
		return fmt.Errorf("looking up media: %w", err)
	}
	return s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("media_id = ?", mediaID).Delete(&Fingerprint{}).Error; err != nil {
			return err
		}
		return tx.Delete(&Media{}, "id = ?", mediaID).Error
	})
}

func (s *Store) Stats() (models.Stats, error) {
	var st models.Stats
	if err := s.DB.Model(&Media{}).Count(&st.MediaCount).Error; err != nil {
		return st, fmt.Errorf("counting media: %w", err)
	}
	if err := s.DB.Model(&Fingerprint{}).Count(&st.FingerprintCount).Error; err != nil {
		return st, fmt.Errorf("counting fingerprints: %w", err)
	}
	s.mu.Lock()
	st.HashBits, st.VectorDim = s.hashBits, s.vecDim
	s.mu.Unlock()
	return st, nil
}

func toMediaItem(m Media) models.MediaItem {
	return models.MediaItem{
		ID:               m.ID,
		Title:            m.Title,
		Year:             m.Year,
		Duration:         m.Duration,
		FingerprintCount: m.FingerprintCount,
		CreatedAt:        m.CreatedAt,
	}
}

func decodeHex(h string) ([]byte, error) {
	if h == "" {
		return nil, &models.ValidationError{Msg: "empty hash"}
	}
	raw, err := hex.DecodeString(h)
	if err != nil {
		return nil, &models.ValidationError{Msg: fmt.Sprintf("malformed hash %q: %v", h, err)}
	}
	return raw, nil
}

// encodeVector packs a feature vector as little-endian float32 bytes,
// the layout FetchVectors decodes.
func encodeVector(v []float32) []byte {
	out := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(f))
	}
	return out
}

func decodeVector(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}
