package feedloader

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"golang.org/x/xerrors"
)

// CSVWriter writes a Table as delimited text.
type CSVWriter struct {
	// Comma is the field delimiter. Zero means ','.
	Comma rune
}

// Write persists t to path: the header line, then one line per row.
// The file appears at path only once it is completely written; on failure
// nothing is left behind and an *IOWriteError is returned.
func (w *CSVWriter) Write(ctx context.Context, path string, t *Table) error {
	l := log.Ctx(ctx)

	err := writeFileAtomic(path, func(out io.Writer) error {
		cw := csv.NewWriter(out)
		if w.Comma != 0 {
			cw.Comma = w.Comma
		}

		if err := cw.Write(t.Header); err != nil {
			return xerrors.Errorf("failed to write header: %w", err)
		}
		if err := cw.WriteAll(rowsOf(t)); err != nil {
			return xerrors.Errorf("failed to write rows: %w", err)
		}

		return nil
	})
	if err != nil {
		l.Error().Err(err).Str("path", path).Msg("failed to write tabular artifact")
		return err
	}

	l.Info().Str("path", path).Int("rows", len(t.Rows)).Msg("tabular artifact written")

	return nil
}

func rowsOf(t *Table) [][]string {
	rs := make([][]string, len(t.Rows))
	for i, r := range t.Rows {
		rs[i] = r
	}
	return rs
}

// WriteRawJSON persists doc to path as an indented JSON array.
func WriteRawJSON(ctx context.Context, path string, doc Document) error {
	l := log.Ctx(ctx)

	err := writeFileAtomic(path, func(out io.Writer) error {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		if doc == nil {
			doc = Document{}
		}
		return enc.Encode(doc)
	})
	if err != nil {
		l.Error().Err(err).Str("path", path).Msg("failed to write raw artifact")
		return err
	}

	l.Info().Str("path", path).Int("records", len(doc)).Msg("raw artifact written")

	return nil
}

// writeFileAtomic writes through a temp file in the destination directory and
// renames it into place. The temp file is removed on every failure path.
func writeFileAtomic(path string, fill func(io.Writer) error) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &IOWriteError{Path: path, Err: err}
	}

	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return &IOWriteError{Path: path, Err: err}
	}
	tmp := f.Name()

	defer func() {
		if err != nil {
			f.Close()
			os.Remove(tmp)
		}
	}()

	bw := bufio.NewWriter(f)
	if err := fill(bw); err != nil {
		return &IOWriteError{Path: path, Err: err}
	}
	if err := bw.Flush(); err != nil {
		return &IOWriteError{Path: path, Err: err}
	}
	if err := f.Sync(); err != nil {
		return &IOWriteError{Path: path, Err: err}
	}
	if err := f.Chmod(0o644); err != nil {
		return &IOWriteError{Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		return &IOWriteError{Path: path, Err: err}
	}
	if err := os.Rename(tmp, path); err != nil {
		return &IOWriteError{Path: path, Err: err}
	}

	return nil
}
