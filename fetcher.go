package feedloader

import (
	"context"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
	"golang.org/x/xerrors"
)

// Fetcher retrieves a Document from a feed endpoint.
type Fetcher interface {
	Fetch(ctx context.Context, endpoint string) (Document, error)
}

// HTTPFetcher fetches a feed with a single GET request.
type HTTPFetcher struct {
	// Client defaults to http.DefaultClient.
	Client *http.Client

	// Encoding decodes the response body before parsing. Nil means UTF-8.
	Encoding encoding.Encoding

	// Parser defaults to JSONParser.
	Parser Parser
}

// NewHTTPFetcher builds a fetcher decoding bodies with the named charset
// (a WHATWG label such as "shift_jis"). An empty name means UTF-8.
func NewHTTPFetcher(client *http.Client, charset string) (*HTTPFetcher, error) {
	f := &HTTPFetcher{Client: client}

	if charset != "" {
		enc, err := htmlindex.Get(charset)
		if err != nil {
			return nil, xerrors.Errorf("unknown encoding %q: %w", charset, err)
		}
		f.Encoding = enc
	}

	return f, nil
}

// Fetch requests endpoint and parses the body. Every failure is a *FetchError.
func (f *HTTPFetcher) Fetch(ctx context.Context, endpoint string) (Document, error) {
	l := log.Ctx(ctx)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &FetchError{Endpoint: endpoint, Err: xerrors.Errorf("failed to build http request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")

	l.Info().Str("endpoint", endpoint).Msg("making request")

	resp, err := f.client().Do(req)
	if err != nil {
		return nil, &FetchError{Endpoint: endpoint, Err: xerrors.Errorf("failed to send request: %w", err)}
	}
	defer resp.Body.Close()

	l.Debug().Msgf("resp = %+v", resp)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &FetchError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Err:        xerrors.Errorf("unexpected status %s (%s)", resp.Status, body),
		}
	}

	var r io.Reader = resp.Body
	if f.Encoding != nil {
		r = transform.NewReader(r, f.Encoding.NewDecoder())
	}

	doc, err := f.parser()(ctx, r)
	if err != nil {
		return nil, &FetchError{Endpoint: endpoint, StatusCode: resp.StatusCode, Err: err}
	}

	l.Info().Int("records", len(doc)).Msgf("received %d records", len(doc))

	return doc, nil
}

func (f *HTTPFetcher) client() *http.Client {
	if f.Client == nil {
		return http.DefaultClient
	}
	return f.Client
}

func (f *HTTPFetcher) parser() Parser {
	if f.Parser == nil {
		return JSONParser()
	}
	return f.Parser
}
