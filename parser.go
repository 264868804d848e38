package feedloader

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"golang.org/x/xerrors"
)

// Parser parses a fetched body into a Document.
type Parser func(context.Context, io.Reader) (Document, error)

// JSONParser provides a parser for a JSON array body.
// Numbers are kept as json.Number so integers survive without float rounding.
func JSONParser() Parser {
	return func(_ context.Context, r io.Reader) (Document, error) {
		dec := json.NewDecoder(r)
		dec.UseNumber()

		var doc Document
		if err := dec.Decode(&doc); err != nil {
			return nil, xerrors.Errorf("failed to decode JSON array: %w", err)
		}

		if _, err := dec.Token(); err != io.EOF {
			return nil, xerrors.New("unexpected data after JSON array")
		}

		if doc == nil {
			return nil, xerrors.New("document is null, want a JSON array")
		}

		return doc, nil
	}
}

// ReadDocument parses a raw artifact written by a previous fetch.
func ReadDocument(ctx context.Context, path string) (Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, xerrors.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	doc, err := JSONParser()(ctx, f)
	if err != nil {
		return nil, xerrors.Errorf("failed to parse %s: %w", path, err)
	}

	return doc, nil
}
