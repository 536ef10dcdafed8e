// Package dataset reads transcript workbooks and writes note workbooks.
package dataset

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"theranotes-go/internal/logger"
)

// Row is one transcript read from a workbook. Line is the 1-based sheet row.
type Row struct {
	Line       int
	ID         string
	Transcript string
}

var ErrNoTranscriptColumn = errors.New("dataset: no transcript column")

// Load reads the first sheet of path. The transcript and id columns are
// detected from header names; rows with neither are skipped.
func Load(path string, log *logger.Logger) ([]Row, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) <= 1 {
		return nil, fmt.Errorf("no data rows")
	}

	transcriptIdx, idIdx := detectColumns(rows[0])
	if transcriptIdx == -1 {
		return nil, ErrNoTranscriptColumn
	}
	log.WithFields(map[string]interface{}{
		"sheet":          sheets[0],
		"transcript_col": transcriptIdx,
		"id_col":         idIdx,
	}).Debug("detected dataset columns")

	var out []Row
	for i, r := range rows[1:] {
		row := Row{Line: i + 2}
		if transcriptIdx < len(r) {
			row.Transcript = r[transcriptIdx]
		}
		if idIdx >= 0 && idIdx < len(r) {
			row.ID = strings.TrimSpace(r[idIdx])
		}
		if row.ID == "" && strings.TrimSpace(row.Transcript) == "" {
			continue
		}
		if row.ID == "" {
			row.ID = "row-" + strconv.Itoa(row.Line)
		}
		out = append(out, row)
	}
	return out, nil
}

// detectColumns returns the transcript and id column indexes, or -1. A
// single-column sheet is taken to be all transcripts.
func detectColumns(header []string) (transcriptIdx, idIdx int) {
	transcriptIdx, idIdx = -1, -1
	for i, h := range header {
		l := strings.ToLower(strings.TrimSpace(h))
		switch {
		case strings.Contains(l, "transcript") || strings.Contains(l, "text"):
			if transcriptIdx == -1 {
				transcriptIdx = i
			}
		case l == "id" || strings.HasSuffix(l, " id") || strings.HasSuffix(l, "_id") || strings.Contains(l, "session"):
			if idIdx == -1 {
				idIdx = i
			}
		}
	}
	if transcriptIdx == -1 && len(header) == 1 {
		transcriptIdx = 0
	}
	return transcriptIdx, idIdx
}
