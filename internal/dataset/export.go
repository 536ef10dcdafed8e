package dataset

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
	"theranotes-go/internal/aggregator"
	"theranotes-go/internal/types"
)

const (
	NotesSheet   = "Notes"
	SummarySheet = "Summary"
)

// Note is one exported row.
type Note struct {
	ID     string
	Record types.SessionRecord
	Text   string
}

// NotesHeader is the first row of the notes sheet.
var NotesHeader = append(append([]string{"id"}, types.SessionFields...), "therapy_note")

// WriteNotes saves notes and the batch summary to a new workbook at path.
func WriteNotes(path string, notes []Note, s aggregator.Summary) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), NotesSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := setRow(f, NotesSheet, 1, NotesHeader); err != nil {
		return err
	}
	for i, n := range notes {
		r := n.Record
		if err := setRow(f, NotesSheet, i+2, []string{
			n.ID,
			r.Goal,
			r.Content,
			r.Assessment,
			strings.Join(r.Diagnoses, "; "),
			r.InterventionResponse,
			r.Plan,
			r.ClientName,
			r.SessionDate,
			n.Text,
		}); err != nil {
			return err
		}
	}

	if _, err := f.NewSheet(SummarySheet); err != nil {
		return fmt.Errorf("new sheet: %w", err)
	}
	if err := writeSummary(f, s); err != nil {
		return err
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

func writeSummary(f *excelize.File, s aggregator.Summary) error {
	line := 1
	put := func(vals ...interface{}) error {
		err := setRow(f, SummarySheet, line, vals)
		line++
		return err
	}
	if err := put("records", s.Records); err != nil {
		return err
	}
	line++
	if err := put("diagnosis", "count"); err != nil {
		return err
	}
	for _, d := range s.TopDiagnoses(0) {
		if err := put(d.Diagnosis, d.Count); err != nil {
			return err
		}
	}
	line++
	if err := put("field", "not_found_rate"); err != nil {
		return err
	}
	for _, field := range types.SessionFields {
		if err := put(field, s.SentinelRates[field]); err != nil {
			return err
		}
	}
	return nil
}

func setRow[T any](f *excelize.File, sheet string, line int, vals []T) error {
	cell, err := excelize.CoordinatesToCellName(1, line)
	if err != nil {
		return err
	}
	row := make([]interface{}, len(vals))
	for i, v := range vals {
		row[i] = v
	}
	if err := f.SetSheetRow(sheet, cell, &row); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, line, err)
	}
	return nil
}
