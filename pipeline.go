package feedloader

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/xerrors"
)

// Pipeline fetches a feed, flattens it into a CSV artifact and loads that into BigQuery.
// Stages run strictly one after another and the first failure aborts the run.
type Pipeline struct {
	cfg Config

	logger        *zerolog.Logger
	logLevel      *zerolog.Level
	prettyLogging bool

	httpClient *http.Client
	schema     Schema

	fetcher     Fetcher
	transformer *Transformer
	writer      *CSVWriter
	archiver    Archiver
	loader      Loader
	notifier    Notifier

	closers []io.Closer
}

// New builds a pipeline. Cloud clients are created on first use.
func New(cfg Config, opts ...Option) (*Pipeline, error) {
	p := &Pipeline{cfg: cfg, schema: ProductSchema}

	for _, o := range opts {
		if err := o.apply(p); err != nil {
			return nil, xerrors.Errorf("failed to apply option: %w", err)
		}
	}

	p.buildLogger()

	if p.fetcher == nil {
		f, err := NewHTTPFetcher(p.httpClient, cfg.Encoding)
		if err != nil {
			return nil, err
		}
		p.fetcher = f
	}

	p.transformer = &Transformer{Schema: p.schema, Isolate: cfg.IsolateInvalidRecords}
	p.writer = &CSVWriter{}

	if p.notifier == nil && cfg.SlackToken != "" {
		p.notifier = &SlackNotifier{
			Token:      cfg.SlackToken,
			Channel:    cfg.SlackChannel,
			Username:   cfg.Name,
			HTTPClient: p.httpClient,
		}
	}

	return p, nil
}

func (p *Pipeline) buildLogger() {
	if p.logger != nil {
		return
	}

	var out io.Writer = os.Stderr
	if p.prettyLogging {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}

	lvl := zerolog.InfoLevel
	if p.logLevel != nil {
		lvl = *p.logLevel
	}

	l := zerolog.New(out).Level(lvl).With().Timestamp().Logger()
	p.logger = &l
}

// Context attaches the pipeline logger to ctx.
func (p *Pipeline) Context(ctx context.Context) context.Context {
	l := p.logger.With().Str("pipeline", p.cfg.Name).Logger()
	return l.WithContext(ctx)
}

// Run executes every stage for a run stamped at stamp. The stamp names the
// artifacts, so equal stamps reproduce equal paths.
//
// The returned Result is never nil. On failure the error is a *StageError.
func (p *Pipeline) Run(ctx context.Context, stamp time.Time) (*Result, error) {
	ctx = withStartedTime(p.Context(ctx), time.Now())
	l := log.Ctx(ctx)

	res := &Result{
		Name:      p.cfg.Name,
		Table:     p.cfg.Dataset + "." + p.cfg.Table,
		Stamp:     stamp,
		Artifacts: ArtifactPaths(p.cfg.OutputDir, p.cfg.FilePrefix, stamp),
	}

	l.Info().Str("stamp", stamp.Format(StampFormat)).Msg("pipeline started")

	err := p.run(ctx, res)

	if started, ok := startedTimeFrom(ctx); ok {
		res.Elapsed = time.Since(started)
	}

	var se *StageError
	if errors.As(err, &se) {
		res.Stage = se.Stage
		res.Error = se.Err
		l.Error().Err(se.Err).Str("stage", string(se.Stage)).Msg("pipeline failed")
	} else if err != nil {
		res.Error = err
		l.Error().Err(err).Msg("pipeline failed")
	} else {
		l.Info().Int64("rows_loaded", res.RowsLoaded).Dur("elapsed", res.Elapsed).Msg("pipeline finished")
	}

	p.notify(ctx, res)

	return res, err
}

func (p *Pipeline) run(ctx context.Context, res *Result) error {
	if err := p.cfg.Validate(); err != nil {
		return &StageError{Stage: StageConfig, Err: xerrors.Errorf("invalid config: %w", err)}
	}

	doc, err := p.Fetch(ctx, res.Artifacts.Raw)
	if err != nil {
		return err
	}

	table, err := p.transform(ctx, doc)
	if err != nil {
		return err
	}
	res.Rows = len(table.Rows)

	if err := p.write(ctx, res.Artifacts.Tabular, table); err != nil {
		return err
	}

	source := res.Artifacts.Tabular
	remote, err := p.Archive(ctx, res.Artifacts)
	if err != nil {
		return err
	}
	if remote != nil {
		res.Artifacts = *remote
		source = remote.Tabular
	}

	lr, err := p.Load(ctx, source)
	if err != nil {
		return err
	}
	res.RowsLoaded = lr.RowsLoaded

	return nil
}

// Fetch requests the configured endpoint and persists the raw document to rawPath.
func (p *Pipeline) Fetch(ctx context.Context, rawPath string) (Document, error) {
	if err := p.cfg.validateSource(); err != nil {
		return nil, &StageError{Stage: StageFetch, Err: err}
	}

	doc, err := p.fetcher.Fetch(ctx, p.cfg.Endpoint)
	if err != nil {
		return nil, &StageError{Stage: StageFetch, Err: err}
	}

	if err := WriteRawJSON(ctx, rawPath, doc); err != nil {
		return nil, &StageError{Stage: StageWrite, Err: err}
	}

	return doc, nil
}

// TransformFile re-reads a raw artifact and writes its tabular artifact.
func (p *Pipeline) TransformFile(ctx context.Context, rawPath, tabularPath string) (*Table, error) {
	doc, err := ReadDocument(ctx, rawPath)
	if err != nil {
		return nil, &StageError{Stage: StageTransform, Err: err}
	}

	table, err := p.transform(ctx, doc)
	if err != nil {
		return nil, err
	}

	if err := p.write(ctx, tabularPath, table); err != nil {
		return nil, err
	}

	return table, nil
}

func (p *Pipeline) transform(ctx context.Context, doc Document) (*Table, error) {
	table, err := p.transformer.Transform(ctx, doc)
	if err != nil {
		return nil, &StageError{Stage: StageTransform, Err: err}
	}
	return table, nil
}

func (p *Pipeline) write(ctx context.Context, path string, t *Table) error {
	if err := p.writer.Write(ctx, path, t); err != nil {
		return &StageError{Stage: StageWrite, Err: err}
	}
	return nil
}

// Archive uploads the artifacts when staging is configured and returns their
// remote locations. It returns nil, nil when there is nothing to do.
func (p *Pipeline) Archive(ctx context.Context, a Artifacts) (*Artifacts, error) {
	if p.archiver == nil {
		if p.cfg.StagingBucket == "" {
			return nil, nil
		}

		ar, err := NewGCSArchiver(ctx, p.cfg.StagingBucket, p.cfg.StagingPrefix, p.cfg.StorageEndpoint)
		if err != nil {
			return nil, &StageError{Stage: StageArchive, Err: err}
		}
		p.archiver = ar
		p.closers = append(p.closers, ar)
	}

	remote, err := p.archiver.Archive(ctx, a)
	if err != nil {
		return nil, &StageError{Stage: StageArchive, Err: err}
	}

	return &remote, nil
}

// Load loads source, a local path or gs:// URI, into the configured table.
// A load job that ran but failed is returned as a *StageError wrapping its *LoadError.
func (p *Pipeline) Load(ctx context.Context, source string) (*LoadResult, error) {
	if err := p.cfg.validateDestination(); err != nil {
		return nil, &StageError{Stage: StageLoad, Err: err}
	}

	if p.loader == nil {
		ld, err := NewBigQueryLoader(ctx, p.cfg.Project, p.cfg.Location, p.cfg.BigQueryEndpoint)
		if err != nil {
			return nil, &StageError{Stage: StageLoad, Err: err}
		}
		p.loader = ld
		p.closers = append(p.closers, ld)
	}

	req := LoadRequest{Source: source, Dataset: p.cfg.Dataset, Table: p.cfg.Table}

	lr, err := p.loader.Load(ctx, req)
	if err != nil {
		return nil, &StageError{Stage: StageLoad, Err: err}
	}
	if lr.Err != nil {
		return lr, &StageError{Stage: StageLoad, Err: lr.Err}
	}

	return lr, nil
}

func (p *Pipeline) notify(ctx context.Context, res *Result) {
	if p.notifier == nil {
		return
	}

	if err := p.notifier.Notify(ctx, res); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("stage", string(StageNotify)).Msg("failed to notify")
	}
}

// Close releases cloud clients created by the pipeline.
func (p *Pipeline) Close() error {
	var errs []error
	for _, c := range p.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	p.closers = nil
	return errors.Join(errs...)
}
