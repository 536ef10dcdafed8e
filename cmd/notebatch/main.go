// Command notebatch extracts session records from a workbook of transcripts
// and writes a workbook of rendered notes.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
	"theranotes-go/internal/aggregator"
	"theranotes-go/internal/dataset"
	"theranotes-go/internal/extractor"
	"theranotes-go/internal/formatter"
	"theranotes-go/internal/logger"
	"theranotes-go/internal/ner"
	"theranotes-go/internal/types"
)

func main() {
	_ = godotenv.Load()

	in := flag.String("in", "", "input workbook with a transcript column")
	out := flag.String("out", "notes.xlsx", "output workbook")
	workers := flag.Int("workers", runtime.NumCPU(), "concurrent extractions")
	useNER := flag.Bool("ner", true, "use the entity recognizer for client name and session date")
	flag.Parse()

	log := logger.NewWithOptions(logger.Options{
		Environment: os.Getenv("ENVIRONMENT"),
		Level:       os.Getenv("LOG_LEVEL"),
		Service:     "notebatch",
	})
	if *in == "" {
		fmt.Fprintln(os.Stderr, "usage: notebatch -in transcripts.xlsx [-out notes.xlsx]")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	capability := ner.Unavailable()
	if *useNER {
		capability = ner.Available(ner.NewDefault())
	}
	if err := run(ctx, log, extractor.New(capability), *in, *out, *workers); err != nil {
		log.WithError(err).Error("batch failed")
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, log *logger.Logger, ext *extractor.Extractor, in, out string, workers int) error {
	start := time.Now()
	rows, err := dataset.Load(in, log)
	if err != nil {
		return fmt.Errorf("load %s: %w", in, err)
	}
	log.WithField("rows", len(rows)).Info("dataset loaded")

	notes := make([]dataset.Note, len(rows))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	for i, row := range rows {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			note := formatter.Note(ext.Extract(row.Transcript))
			notes[i] = dataset.Note{ID: row.ID, Record: note.Record, Text: note.Text}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	records := make([]types.SessionRecord, len(notes))
	for i, n := range notes {
		records[i] = n.Record
	}
	summary := aggregator.Aggregate(records)
	if err := dataset.WriteNotes(out, notes, summary); err != nil {
		return err
	}

	log.WithFields(map[string]interface{}{
		"records":        summary.Records,
		"top_diagnoses":  summary.TopDiagnoses(5),
		"sentinel_rates": summary.SentinelRates,
		"out":            out,
		"duration_ms":    time.Since(start).Milliseconds(),
	}).Info("batch complete")
	return nil
}
