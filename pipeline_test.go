package feedloader

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
)

func mustParseStamp(t *testing.T, s string) time.Time {
	t.Helper()

	stamp, err := time.Parse(StampFormat, s)
	if err != nil {
		t.Fatal(err)
	}

	return stamp
}

func readCSVFrom(r io.Reader) [][]string {
	records, _ := csv.NewReader(r).ReadAll()
	return records
}

type testFetcher struct {
	doc      Document
	err      error
	endpoint string
}

func (f *testFetcher) Fetch(_ context.Context, endpoint string) (Document, error) {
	f.endpoint = endpoint
	return f.doc, f.err
}

type testLoader struct {
	requests []LoadRequest
	result   *LoadResult
	err      error
	body     [][]string
}

func (l *testLoader) Load(_ context.Context, req LoadRequest) (*LoadResult, error) {
	l.requests = append(l.requests, req)

	if f, err := os.Open(req.Source); err == nil {
		l.body = readCSVFrom(f)
		f.Close()
	}

	if l.err != nil {
		return nil, l.err
	}
	if l.result != nil {
		return l.result, nil
	}
	return &LoadResult{RowsLoaded: int64(len(l.body) - 1)}, nil
}

type testArchiver struct {
	archived []Artifacts
	err      error
}

func (a *testArchiver) Archive(_ context.Context, arts Artifacts) (Artifacts, error) {
	a.archived = append(a.archived, arts)
	if a.err != nil {
		return Artifacts{}, a.err
	}
	return Artifacts{
		Raw:     objectURI("bucket", filepath.Base(arts.Raw)),
		Tabular: objectURI("bucket", filepath.Base(arts.Tabular)),
	}, nil
}

type testNotifier struct {
	results []*Result
	err     error
}

func (n *testNotifier) Notify(_ context.Context, r *Result) error {
	n.results = append(n.results, r)
	return n.err
}

func newTestConfig(t *testing.T) Config {
	t.Helper()

	cfg := DefaultConfig()
	cfg.Endpoint = "https://example.com/products"
	cfg.OutputDir = filepath.Join(t.TempDir(), "xtracts")
	cfg.Dataset = "sales"
	cfg.Table = "Products"

	return cfg
}

func newTestPipeline(t *testing.T, cfg Config, opts ...Option) *Pipeline {
	t.Helper()

	opts = append([]Option{WithLogger(zerolog.Nop())}, opts...)
	p, err := New(cfg, opts...)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { p.Close() })

	return p
}

func TestPipeline_Run(t *testing.T) {
	t.Parallel()

	cfg := newTestConfig(t)
	stamp := mustParseStamp(t, "2024_03_05_07_08_09")

	tf := &testFetcher{doc: readTestDocument(t, "testdata/products.json")}
	tl := &testLoader{}
	tn := &testNotifier{}

	p := newTestPipeline(t, cfg, WithFetcher(tf), WithLoader(tl), WithNotifier(tn))

	res, err := p.Run(context.Background(), stamp)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	arts := ArtifactPaths(cfg.OutputDir, "", stamp)

	if tf.endpoint != cfg.Endpoint {
		t.Errorf("expected endpoint %s, but %s", cfg.Endpoint, tf.endpoint)
	}

	if _, err := os.Stat(arts.Raw); err != nil {
		t.Errorf("raw artifact not written: %v", err)
	}

	expectedReq := []LoadRequest{{Source: arts.Tabular, Dataset: "sales", Table: "Products"}}
	if diff := cmp.Diff(expectedReq, tl.requests); diff != "" {
		t.Errorf("load requests mismatch (-want +got):\n%s", diff)
	}

	if len(tl.body) != 4 {
		t.Fatalf("Size of loaded records should be 4, but %d", len(tl.body))
	}
	if diff := cmp.Diff([]string{"id", "title", "description", "category", "rate", "count"}, tl.body[0]); diff != "" {
		t.Errorf("header mismatch (-want +got):\n%s", diff)
	}
	if tl.body[3][2] != "great outerwear jackets for Spring/Autumn/Winter.\nSuitable for many occasions" {
		t.Errorf("unexpected description %q", tl.body[3][2])
	}

	if res.Rows != 3 || res.RowsLoaded != 3 {
		t.Errorf("expected 3 rows transformed and loaded, but %d and %d", res.Rows, res.RowsLoaded)
	}
	if res.Error != nil || res.Stage != "" {
		t.Errorf("expected no error, but %s: %v", res.Stage, res.Error)
	}

	if len(tn.results) != 1 || tn.results[0] != res {
		t.Errorf("expected the result to be notified once, but %v", tn.results)
	}
}

func TestPipeline_Run_EmptyDocument(t *testing.T) {
	t.Parallel()

	cfg := newTestConfig(t)
	stamp := mustParseStamp(t, "2024_03_05_07_08_09")
	tl := &testLoader{}

	p := newTestPipeline(t, cfg, WithFetcher(&testFetcher{doc: Document{}}), WithLoader(tl))

	if _, err := p.Run(context.Background(), stamp); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if diff := cmp.Diff([][]string{{"id", "title", "description", "category", "rate", "count"}}, tl.body); diff != "" {
		t.Errorf("CSV mismatch (-want +got):\n%s", diff)
	}
}

func TestPipeline_Run_Archive(t *testing.T) {
	t.Parallel()

	cfg := newTestConfig(t)
	stamp := mustParseStamp(t, "2024_03_05_07_08_09")

	ta := &testArchiver{}
	tl := &testLoader{result: &LoadResult{RowsLoaded: 3}}

	p := newTestPipeline(t, cfg,
		WithFetcher(&testFetcher{doc: readTestDocument(t, "testdata/products.json")}),
		WithLoader(tl),
		WithArchiver(ta),
	)

	res, err := p.Run(context.Background(), stamp)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	local := ArtifactPaths(cfg.OutputDir, "", stamp)
	if diff := cmp.Diff([]Artifacts{local}, ta.archived); diff != "" {
		t.Errorf("archived artifacts mismatch (-want +got):\n%s", diff)
	}

	remote := "gs://bucket/products_data_trans_2024_03_05_07_08_09.csv"
	if len(tl.requests) != 1 || tl.requests[0].Source != remote {
		t.Errorf("expected load from %s, but %v", remote, tl.requests)
	}
	if res.Artifacts.Tabular != remote {
		t.Errorf("expected result artifact %s, but %s", remote, res.Artifacts.Tabular)
	}
}

func TestPipeline_Run_Errors(t *testing.T) {
	t.Parallel()

	stamp := mustParseStamp(t, "2024_03_05_07_08_09")
	products := readTestDocument(t, "testdata/products.json")
	missingCategory := readTestDocument(t, "testdata/products_missing_category.json")

	serviceErr := &LoadError{Table: "sales.Products", Err: errors.New("invalid CSV")}

	cases := []struct {
		name        string
		fetcher     *testFetcher
		loader      *testLoader
		archiver    Archiver
		stage       Stage
		target      interface{}
		wantTabular bool
		wantLoad    bool
	}{
		{
			name:    "fetch failure",
			fetcher: &testFetcher{err: &FetchError{Endpoint: "x", StatusCode: 503, Err: errors.New("unavailable")}},
			loader:  &testLoader{},
			stage:   StageFetch,
			target:  new(*FetchError),
		},
		{
			name:    "missing category",
			fetcher: &testFetcher{doc: missingCategory},
			loader:  &testLoader{},
			stage:   StageTransform,
			target:  new(*MissingFieldError),
		},
		{
			name:        "archive failure",
			fetcher:     &testFetcher{doc: products},
			loader:      &testLoader{},
			archiver:    &testArchiver{err: errors.New("bucket not found")},
			stage:       StageArchive,
			wantTabular: true,
		},
		{
			name:        "load could not start",
			fetcher:     &testFetcher{doc: products},
			loader:      &testLoader{err: &LoadError{Table: "sales.Products", Err: errors.New("permission denied")}},
			stage:       StageLoad,
			target:      new(*LoadError),
			wantTabular: true,
			wantLoad:    true,
		},
		{
			name:        "load job reported an error",
			fetcher:     &testFetcher{doc: products},
			loader:      &testLoader{result: &LoadResult{Err: serviceErr}},
			stage:       StageLoad,
			target:      new(*LoadError),
			wantTabular: true,
			wantLoad:    true,
		},
	}

	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			cfg := newTestConfig(t)
			tn := &testNotifier{err: errors.New("slack is down")}

			opts := []Option{WithFetcher(c.fetcher), WithLoader(c.loader), WithNotifier(tn)}
			if c.archiver != nil {
				opts = append(opts, WithArchiver(c.archiver))
			}
			p := newTestPipeline(t, cfg, opts...)

			res, err := p.Run(context.Background(), stamp)

			var se *StageError
			if !errors.As(err, &se) {
				t.Fatalf("expected StageError, but %v", err)
			}
			if se.Stage != c.stage {
				t.Errorf("expected stage %s, but %s", c.stage, se.Stage)
			}
			if c.target != nil && !errors.As(err, c.target) {
				t.Errorf("expected %T in chain, but %v", c.target, err)
			}

			if res.Stage != c.stage || res.Error == nil {
				t.Errorf("expected result to report stage %s, but %s: %v", c.stage, res.Stage, res.Error)
			}
			if len(tn.results) != 1 {
				t.Errorf("expected the failure to be notified once, but %d", len(tn.results))
			}

			_, statErr := os.Stat(res.Artifacts.Tabular)
			if c.wantTabular != (statErr == nil) {
				t.Errorf("tabular artifact exists = %t, want %t", statErr == nil, c.wantTabular)
			}
			if c.wantLoad != (len(c.loader.requests) > 0) {
				t.Errorf("loader called = %t, want %t", len(c.loader.requests) > 0, c.wantLoad)
			}
		})
	}
}

func TestPipeline_Run_InvalidConfig(t *testing.T) {
	t.Parallel()

	cfg := newTestConfig(t)
	cfg.Table = ""
	tf := &testFetcher{doc: Document{}}

	p := newTestPipeline(t, cfg, WithFetcher(tf), WithLoader(&testLoader{}))

	res, err := p.Run(context.Background(), time.Now())

	var se *StageError
	if !errors.As(err, &se) {
		t.Fatalf("expected StageError, but %v", err)
	}
	if se.Stage != StageConfig || res.Stage != StageConfig {
		t.Errorf("expected stage %s, but %s", StageConfig, se.Stage)
	}
	if !strings.Contains(err.Error(), "table is required") {
		t.Errorf("expected error to name the table, but %v", err)
	}
	if tf.endpoint != "" {
		t.Error("expected nothing to be fetched")
	}
}

func TestPipeline_Run_Isolate(t *testing.T) {
	t.Parallel()

	cfg := newTestConfig(t)
	cfg.IsolateInvalidRecords = true
	tl := &testLoader{}

	p := newTestPipeline(t, cfg,
		WithFetcher(&testFetcher{doc: readTestDocument(t, "testdata/products_missing_category.json")}),
		WithLoader(tl),
	)

	res, err := p.Run(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if res.Rows != 2 {
		t.Errorf("expected 2 rows, but %d", res.Rows)
	}
	if len(tl.body) != 3 {
		t.Errorf("expected header and 2 rows loaded, but %d lines", len(tl.body))
	}
}

func TestPipeline_TransformFile(t *testing.T) {
	t.Parallel()

	cfg := newTestConfig(t)
	p := newTestPipeline(t, cfg)

	out := filepath.Join(cfg.OutputDir, "products.csv")
	table, err := p.TransformFile(context.Background(), "testdata/products.json", out)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	records := readCSV(t, out)
	if len(records) != len(table.Rows)+1 {
		t.Errorf("expected %d lines, but %d", len(table.Rows)+1, len(records))
	}
	if records[1][0] != "1" || records[1][4] != "3.9" || records[1][5] != "120" {
		t.Errorf("unexpected first row %v", records[1])
	}
}

func TestNew_InvalidLogLevel(t *testing.T) {
	t.Parallel()

	if _, err := New(DefaultConfig(), WithLogLevel("loud")); err == nil {
		t.Error("expected error but no error occurred")
	}
}
