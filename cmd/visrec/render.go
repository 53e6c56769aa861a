package main

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/visrec/visrec/pkg/models"
)

func renderResult(w io.Writer, r models.RecognitionResult) {
	if !r.Matched {
		fmt.Fprintln(w, "no match found")
		fmt.Fprintf(w, "  frames matched: %d/%d\n", r.FramesMatched, r.FramesSampled)
		return
	}

	if r.Year != nil {
		fmt.Fprintf(w, "%s (%d)\n", r.Title, *r.Year)
	} else {
		fmt.Fprintln(w, r.Title)
	}
	fmt.Fprintf(w, "  confidence: %.1f%% [%s]\n", r.Confidence*100, r.MatchType)
	fmt.Fprintf(w, "  timestamp:  %.1fs\n", r.Timestamp)
	fmt.Fprintf(w, "  votes:      %d/%d frames\n", r.FramesMatched, r.FramesSampled)
	fmt.Fprintf(w, "  stage 1:    %d candidates\n", r.Stage1Candidates)
	fmt.Fprintf(w, "  stage 2:    %d passed verification\n", r.Stage2Candidates)
	fmt.Fprintf(w, "  took:       %s\n", r.ProcessingTime.Round(time.Millisecond))
}

func renderMediaTable(w io.Writer, items []models.MediaItem) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"ID", "Title", "Year", "Duration", "Fingerprints"})
	for _, m := range items {
		year := ""
		if m.Year != nil {
			year = fmt.Sprintf("%d", *m.Year)
		}
		t.AppendRow(table.Row{
			m.ID,
			m.Title,
			year,
			fmt.Sprintf("%.1fs", m.Duration),
			m.FingerprintCount,
		})
	}
	t.SetStyle(table.StyleLight)
	t.Render()
}

func renderStats(w io.Writer, st models.Stats) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendRows([]table.Row{
		{"media items", st.MediaCount},
		{"fingerprints", st.FingerprintCount},
		{"hash bits", st.HashBits},
		{"vector dim", st.VectorDim},
	})
	t.SetStyle(table.StyleLight)
	t.Render()
}
