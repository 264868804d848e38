package feedloader

import (
	"context"
	"iter"

	"github.com/rs/zerolog/log"
)

// Document is the ordered sequence of source records returned by one fetch.
// Elements are decoded JSON values, normally map[string]interface{}.
type Document []interface{}

// Table is the tabular output of a transform: a fixed header and one row per record.
type Table struct {
	Header Row
	Rows   []Row

	// Failures is only populated when the transformer isolates invalid records.
	Failures []*RecordError
}

// Transformer applies a Schema to every record of a Document.
type Transformer struct {
	Schema Schema

	// Isolate keeps transforming after an invalid record and reports it in
	// Table.Failures instead of aborting. The default is to abort on the first one.
	Isolate bool
}

// NewTransformer returns a fail-fast transformer for s.
func NewTransformer(s Schema) *Transformer {
	return &Transformer{Schema: s}
}

// Rows yields one row per record in document order. On the first invalid record
// it yields a nil row with a *RecordError and stops.
// Iterating again re-reads doc from the start.
func (t *Transformer) Rows(doc Document) iter.Seq2[Row, error] {
	return func(yield func(Row, error) bool) {
		for i, rec := range doc {
			row, err := t.Schema.ExtractRow(rec)
			if err != nil {
				yield(nil, &RecordError{Index: i, Err: err})
				return
			}
			if !yield(row, nil) {
				return
			}
		}
	}
}

// Transform materializes doc into a Table.
func (t *Transformer) Transform(ctx context.Context, doc Document) (*Table, error) {
	l := log.Ctx(ctx)
	l.Info().Int("records", len(doc)).Msg("transforming records")

	table := &Table{
		Header: t.Schema.Header(),
		Rows:   make([]Row, 0, len(doc)),
	}

	if t.Isolate {
		for i, rec := range doc {
			row, err := t.Schema.ExtractRow(rec)
			if err != nil {
				rerr := &RecordError{Index: i, Err: err}
				l.Warn().Err(rerr).Msg("skipping invalid record")
				table.Failures = append(table.Failures, rerr)
				continue
			}
			table.Rows = append(table.Rows, row)
		}
	} else {
		for row, err := range t.Rows(doc) {
			if err != nil {
				l.Error().Err(err).Msg("failed to transform record")
				return nil, err
			}
			table.Rows = append(table.Rows, row)
		}
	}

	l.Info().Int("rows", len(table.Rows)).Int("failures", len(table.Failures)).Msg("transformed records")

	return table, nil
}
