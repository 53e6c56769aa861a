package match

import (
	"context"
	"log/slog"
	"time"

	"github.com/visrec/visrec/pkg/models"
)

// FrameProvider supplies the query fingerprint for sampled frame i.
// A returned error marks that frame as unreadable; it counts as a
// no-match rather than failing the aggregate call.
type FrameProvider func(i int) (models.QueryFingerprint, error)

// Aggregator runs the frame recognizer over several sampled frames and
// reconciles the per-frame matches into one result by majority vote.
type Aggregator struct {
	rec   *FrameRecognizer
	media MediaResolver
	log   *slog.Logger
}

func NewAggregator(rec *FrameRecognizer, media MediaResolver, log *slog.Logger) *Aggregator {
	if log == nil {
		log = slog.Default()
	}
	return &Aggregator{rec: rec, media: media, log: log}
}

// tally accumulates the votes for one title. First-seen frame index is
// the final tie-break, so a tally also remembers where it started.
type tally struct {
	title      string
	votes      int
	best       models.FrameMatch
	firstFrame int
}

// Identify matches frameCount frames independently and votes on the
// winning title. Ties go to the title with the higher best single-frame
// similarity, then to the title seen at the earliest frame index.
func (a *Aggregator) Identify(ctx context.Context, frames FrameProvider, frameCount int) (models.RecognitionResult, error) {
	start := time.Now()
	result := models.RecognitionResult{
		MatchType:     models.MatchNone,
		FramesSampled: frameCount,
	}

	byTitle := make(map[string]*tally)
	var order []*tally

	for i := 0; i < frameCount; i++ {
		if err := ctx.Err(); err != nil {
			return models.RecognitionResult{}, err
		}

		q, err := frames(i)
		if err != nil {
			a.log.Warn("frame unreadable, counting as no-match", "frame", i, "error", err)
			continue
		}

		fr, err := a.rec.MatchFrame(q)
		if err != nil {
			return models.RecognitionResult{}, err
		}
		result.Stage1Candidates += fr.Stage1Candidates
		result.Stage2Candidates += fr.Stage2Candidates
		if fr.Match == nil {
			continue
		}

		result.FramesMatched++
		m := *fr.Match
		t, ok := byTitle[m.Title]
		if !ok {
			t = &tally{title: m.Title, best: m, firstFrame: i}
			byTitle[m.Title] = t
			order = append(order, t)
		}
		t.votes++
		if m.Similarity > t.best.Similarity {
			t.best = m
		}
	}

	if len(order) == 0 {
		result.ProcessingTime = time.Since(start)
		return result, nil
	}

	winner := order[0]
	for _, t := range order[1:] {
		if t.votes != winner.votes {
			if t.votes > winner.votes {
				winner = t
			}
			continue
		}
		if t.best.Similarity != winner.best.Similarity {
			if t.best.Similarity > winner.best.Similarity {
				winner = t
			}
			continue
		}
		if t.firstFrame < winner.firstFrame {
			winner = t
		}
	}

	_, year, err := a.media.MediaTitleYear(winner.best.MediaID)
	if err != nil {
		return models.RecognitionResult{}, err
	}

	result.Matched = true
	result.Title = winner.title
	result.Year = year
	result.Timestamp = winner.best.Timestamp
	result.Confidence = winner.best.Similarity
	result.MatchType = models.MatchTypeFor(winner.best.Similarity)
	result.ProcessingTime = time.Since(start)
	return result, nil
}
