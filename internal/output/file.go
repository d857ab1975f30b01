// internal/output/file.go

package output

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/pricescout/pricescout/internal/extract"
)

// jsonWriter appends one JSON object per line (or writes to stdout when no
// file is configured).
type jsonWriter struct {
	f     *os.File
	owned bool
}

func newJSONWriter(path string) (*jsonWriter, error) {
	if path == "" || path == "-" {
		return &jsonWriter{f: os.Stdout}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening json output %s: %w", path, err)
	}
	return &jsonWriter{f: f, owned: true}, nil
}

func (w *jsonWriter) Write(_ context.Context, records []*extract.Record) error {
	enc := json.NewEncoder(w.f)
	for _, rec := range records {
		m := rec.Map()
		m["extractedAt"] = time.Now().UTC().Format(time.RFC3339)
		if err := enc.Encode(m); err != nil {
			return fmt.Errorf("writing json record: %w", err)
		}
	}
	return nil
}

func (w *jsonWriter) Close() error {
	if !w.owned {
		return nil
	}
	return w.f.Close()
}

// csvWriter writes the fixed schema with a header row on a fresh file.
type csvWriter struct {
	f  *os.File
	cw *csv.Writer
}

func newCSVWriter(path string) (*csvWriter, error) {
	if path == "" {
		return nil, fmt.Errorf("csv output requires a file path")
	}
	info, statErr := os.Stat(path)
	fresh := statErr != nil || info.Size() == 0

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening csv output %s: %w", path, err)
	}
	w := &csvWriter{f: f, cw: csv.NewWriter(f)}
	if fresh {
		if err := w.cw.Write(columns); err != nil {
			f.Close()
			return nil, fmt.Errorf("writing csv header: %w", err)
		}
	}
	return w, nil
}

func (w *csvWriter) Write(_ context.Context, records []*extract.Record) error {
	now := time.Now()
	for _, rec := range records {
		row := make([]string, len(columns))
		for i, v := range rowValues(rec, now) {
			if v == nil {
				continue
			}
			row[i] = fmt.Sprintf("%v", v)
		}
		if err := w.cw.Write(row); err != nil {
			return fmt.Errorf("writing csv record: %w", err)
		}
	}
	w.cw.Flush()
	return w.cw.Error()
}

func (w *csvWriter) Close() error {
	w.cw.Flush()
	if err := w.cw.Error(); err != nil {
		w.f.Close()
		return err
	}
	return w.f.Close()
}
