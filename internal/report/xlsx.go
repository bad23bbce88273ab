// Package report renders analyzed episodes as an xlsx workbook.
package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"podcast-adscan/internal/types"
)

const (
	episodesSheet = "Episodes"
	segmentsSheet = "Ad Segments"
)

// Write streams a two-sheet workbook: one row per episode, one row per
// merged ad segment.
func Write(w io.Writer, results []types.EpisodeResult) error {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", episodesSheet)
	if _, err := f.NewSheet(segmentsSheet); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}

	episodeHeader := []interface{}{"Title", "URL", "Ad Segments", "Transcription $", "Classification $", "Analyzed At"}
	if err := f.SetSheetRow(episodesSheet, "A1", &episodeHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	segmentHeader := []interface{}{"Episode", "Start (ms)", "End (ms)", "Category", "Description"}
	if err := f.SetSheetRow(segmentsSheet, "A1", &segmentHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	segRow := 2
	for i, res := range results {
		row := []interface{}{
			res.Title,
			res.NormalizedURL,
			len(res.Segments),
			res.Cost.TranscriptionCostUSD,
			res.Cost.ClassificationCostUSD,
			res.AnalyzedAt.Format("2006-01-02 15:04"),
		}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(episodesSheet, cell, &row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
		for _, seg := range res.Segments {
			sRow := []interface{}{res.Title, seg.StartMS, seg.EndMS, seg.Category, seg.Description}
			cell := fmt.Sprintf("A%d", segRow)
			if err := f.SetSheetRow(segmentsSheet, cell, &sRow); err != nil {
				return fmt.Errorf("write row: %w", err)
			}
			segRow++
		}
	}

	return f.Write(w)
}
