package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/voiceslab/annotate-backend/internal/config"
	"github.com/voiceslab/annotate-backend/internal/logger"
	"github.com/voiceslab/annotate-backend/internal/repository"
)

// Merges every annotator's per-task CSV into one combined file with an extra
// annotator column, ready for analysis.
func main() {
	taskName := flag.String("task", "", "task name to export")
	outPath := flag.String("out", "", "output CSV path (default <results>/<task>_combined.csv)")
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	if *taskName == "" {
		log.Fatal().Msg("-task is required")
	}
	if *outPath == "" {
		*outPath = filepath.Join(cfg.ResultsDir, *taskName+"_combined.csv")
	}

	results := repository.NewResultsRepository(cfg.ResultsDir)

	annotators, err := results.Annotators(*taskName)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list annotators")
	}
	if len(annotators) == 0 {
		log.Fatal().Str("task", *taskName).Msg("No results found")
	}

	out, err := os.Create(*outPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create output file")
	}
	defer out.Close()

	w := csv.NewWriter(out)
	wroteHeader := false
	rows := 0

	for _, annotator := range annotators {
		path := filepath.Join(cfg.ResultsDir, annotator, *taskName+".csv")
		f, err := os.Open(path)
		if err != nil {
			log.Warn().Err(err).Str("annotator", annotator).Msg("Skipping unreadable file")
			continue
		}

		r := csv.NewReader(f)
		records, err := r.ReadAll()
		f.Close()
		if err != nil {
			log.Fatal().Err(err).Str("annotator", annotator).Msg("Failed to read results file")
		}
		if len(records) == 0 {
			continue
		}

		if !wroteHeader {
			header := append([]string{"annotator"}, records[0]...)
			if err := w.Write(header); err != nil {
				log.Fatal().Err(err).Msg("Failed to write header")
			}
			wroteHeader = true
		}

		for _, rec := range records[1:] {
			if err := w.Write(append([]string{annotator}, rec...)); err != nil {
				log.Fatal().Err(err).Msg("Failed to write record")
			}
			rows++
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		log.Fatal().Err(err).Msg("Failed to flush output")
	}

	fmt.Printf("Wrote %d rows from %d annotators to %s\n", rows, len(annotators), *outPath)
}
