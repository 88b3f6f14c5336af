package repository

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrUnsafeAnnotator rejects annotator names that cannot be used as a
// directory component.
var ErrUnsafeAnnotator = errors.New("annotator name not usable as a directory name")

// ResultsRepository appends annotation records to per-annotator CSV files:
// one file per (annotator, task) under <dir>/<annotator>/<task>.csv. There is
// no locking; per-annotator file isolation is the only concurrency control.
type ResultsRepository struct {
	dir string
}

// NewResultsRepository creates a ResultsRepository rooted at dir.
func NewResultsRepository(dir string) *ResultsRepository {
	return &ResultsRepository{dir: dir}
}

// Append writes one record to the annotator's results file for the task,
// creating the file with a header row on first write. The column order is
// stimulus_id, the question labels in page order, notes, unsure.
func (r *ResultsRepository) Append(annotator, taskName string, labels []string, stimulusID string, values map[string]string, notes string, unsure bool) error {
	path, err := r.resultsPath(annotator, taskName)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create results dir: %w", err)
	}

	_, statErr := os.Stat(path)
	writeHeader := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open results file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if writeHeader {
		header := append([]string{"stimulus_id"}, labels...)
		header = append(header, "notes", "unsure")
		if err := w.Write(header); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}

	row := make([]string, 0, len(labels)+3)
	row = append(row, stimulusID)
	for _, label := range labels {
		row = append(row, values[label])
	}
	row = append(row, notes, yesNo(unsure))
	if err := w.Write(row); err != nil {
		return fmt.Errorf("write row: %w", err)
	}

	w.Flush()
	return w.Error()
}

// AnnotatedIDs returns the set of stimulus IDs the annotator has submitted
// for the task. A missing results file means an empty set.
func (r *ResultsRepository) AnnotatedIDs(annotator, taskName string) (map[string]bool, error) {
	path, err := r.resultsPath(annotator, taskName)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]bool{}, nil
		}
		return nil, fmt.Errorf("open results file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1 // header may differ from older rows

	ids := make(map[string]bool)
	first := true
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read results file: %w", err)
		}
		if first {
			first = false
			continue // header
		}
		if len(rec) > 0 {
			ids[rec[0]] = true
		}
	}
	return ids, nil
}

// CountRows returns the number of submitted records for (annotator, task).
func (r *ResultsRepository) CountRows(annotator, taskName string) (int, error) {
	ids, err := r.AnnotatedIDs(annotator, taskName)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

// Annotators lists every annotator with a results file for the task, sorted.
func (r *ResultsRepository) Annotators(taskName string) ([]string, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read results dir: %w", err)
	}

	var out []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(r.dir, e.Name(), taskName+".csv")); err == nil {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}

func (r *ResultsRepository) resultsPath(annotator, taskName string) (string, error) {
	if annotator == "" ||
		strings.ContainsAny(annotator, `/\`) ||
		strings.HasPrefix(annotator, ".") {
		return "", fmt.Errorf("%w: %q", ErrUnsafeAnnotator, annotator)
	}
	return filepath.Join(r.dir, annotator, taskName+".csv"), nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
