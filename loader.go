package feedloader

import (
	"context"
	"os"
	"strings"

	"cloud.google.com/go/bigquery"
	"github.com/rs/zerolog/log"
	"golang.org/x/xerrors"
	"google.golang.org/api/option"
)

// LoadRequest names a tabular artifact and its destination table.
// Source is a local path or a gs:// URI.
type LoadRequest struct {
	Source  string
	Dataset string
	Table   string
}

// TableID returns "dataset.table".
func (r LoadRequest) TableID() string {
	return r.Dataset + "." + r.Table
}

// LoadResult is the completion status of a load job that was started.
// Err is a *LoadError when the service reported a failure.
type LoadResult struct {
	RowsLoaded int64
	Err        error
}

// Loader loads a tabular artifact into a warehouse table.
// The returned error means the job could not be started or awaited; a job that
// ran and failed reports through LoadResult.Err instead.
type Loader interface {
	Load(ctx context.Context, req LoadRequest) (*LoadResult, error)
}

// BigQueryLoader loads CSV artifacts with schema auto-detection, creating the
// table if needed and appending otherwise.
type BigQueryLoader struct {
	client   *bigquery.Client
	location string
}

// NewBigQueryLoader builds a loader for project. An empty location means "US".
// A non-empty endpoint targets an emulator without authentication.
func NewBigQueryLoader(ctx context.Context, project, location, endpoint string) (*BigQueryLoader, error) {
	if project == "" {
		project = bigquery.DetectProjectID
	}
	if location == "" {
		location = DefaultLocation
	}

	bq, err := bigquery.NewClient(ctx, project, clientOptions(endpoint)...)
	if err != nil {
		return nil, xerrors.Errorf("failed to build bigquery client for %s: %w", project, err)
	}

	return &BigQueryLoader{client: bq, location: location}, nil
}

func clientOptions(endpoint string) []option.ClientOption {
	opts := []option.ClientOption{option.WithTelemetryDisabled()}
	if endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint), option.WithoutAuthentication())
	}
	return opts
}

// Load streams req.Source into req.Dataset.req.Table and waits for the job.
func (l *BigQueryLoader) Load(ctx context.Context, req LoadRequest) (*LoadResult, error) {
	lg := log.Ctx(ctx)

	src, closer, err := newLoadSource(req.Source)
	if err != nil {
		return nil, &LoadError{Table: req.TableID(), Err: err}
	}
	defer closer()

	loader := l.client.Dataset(req.Dataset).Table(req.Table).LoaderFrom(src)
	loader.Location = l.location
	loader.CreateDisposition = bigquery.CreateIfNeeded
	loader.WriteDisposition = bigquery.WriteAppend

	lg.Info().Str("source", req.Source).Str("table", req.TableID()).Msg("loading data into bigquery")

	job, err := loader.Run(ctx)
	if err != nil {
		lg.Error().Err(err).Msg("failed to run bigquery load job")
		return nil, &LoadError{Table: req.TableID(), Err: xerrors.Errorf("failed to run load job: %w", err)}
	}

	status, err := job.Wait(ctx)
	if err != nil {
		lg.Error().Err(err).Str("job", job.ID()).Msg("failed to wait job")
		return nil, &LoadError{Table: req.TableID(), Err: xerrors.Errorf("failed to wait job %s: %w", job.ID(), err)}
	}

	res := &LoadResult{RowsLoaded: outputRows(status)}

	if status.Err() != nil {
		causes := make([]string, 0, len(status.Errors))
		for _, e := range status.Errors {
			causes = append(causes, e.Error())
		}
		res.Err = &LoadError{Table: req.TableID(), Err: status.Err(), Causes: causes}
		lg.Error().Err(res.Err).Str("job", job.ID()).Msg("bigquery was unable to load into the table")
		return res, nil
	}

	lg.Info().Int64("rows_loaded", res.RowsLoaded).Msgf("schema auto-detected and %d rows loaded to %s", res.RowsLoaded, req.TableID())

	return res, nil
}

// Close releases the BigQuery client.
func (l *BigQueryLoader) Close() error {
	return l.client.Close()
}

// newLoadSource opens a CSV load source with one header row and auto-detected schema.
func newLoadSource(source string) (bigquery.LoadSource, func(), error) {
	if strings.HasPrefix(source, "gs://") {
		ref := bigquery.NewGCSReference(source)
		configureCSV(&ref.FileConfig)
		return ref, func() {}, nil
	}

	f, err := os.Open(source)
	if err != nil {
		return nil, nil, xerrors.Errorf("failed to open %s: %w", source, err)
	}

	rs := bigquery.NewReaderSource(f)
	configureCSV(&rs.FileConfig)

	return rs, func() { f.Close() }, nil
}

func configureCSV(fc *bigquery.FileConfig) {
	fc.SourceFormat = bigquery.CSV
	fc.AutoDetect = true
	fc.SkipLeadingRows = 1
	fc.AllowQuotedNewlines = true
}

func outputRows(status *bigquery.JobStatus) int64 {
	if status == nil || status.Statistics == nil {
		return 0
	}
	if ls, ok := status.Statistics.Details.(*bigquery.LoadStatistics); ok {
		return ls.OutputRows
	}
	return 0
}

// DefaultLocation is the load job location when none is configured.
const DefaultLocation = "US"
