package main

import (
	"strconv"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/xerrors"

	"go.nownabe.dev/feedloader"
)

// setting binds one string Config field to a flag and an environment variable.
type setting struct {
	flag  string
	env   string
	usage string
	field func(*feedloader.Config) *string
}

var settings = []setting{
	{"name", "FEEDLOADER_NAME", "pipeline name used in logs and notifications", func(c *feedloader.Config) *string { return &c.Name }},
	{"endpoint", "FEEDLOADER_ENDPOINT", "feed endpoint URI", func(c *feedloader.Config) *string { return &c.Endpoint }},
	{"encoding", "FEEDLOADER_ENCODING", "feed charset, e.g. shift_jis (default utf-8)", func(c *feedloader.Config) *string { return &c.Encoding }},
	{"output-dir", "FEEDLOADER_OUTPUT_DIR", "directory for raw and tabular artifacts", func(c *feedloader.Config) *string { return &c.OutputDir }},
	{"file-prefix", "FEEDLOADER_FILE_PREFIX", "artifact file name prefix", func(c *feedloader.Config) *string { return &c.FilePrefix }},
	{"project", "BIGQUERY_PROJECT_ID", "BigQuery project (detected from credentials if empty)", func(c *feedloader.Config) *string { return &c.Project }},
	{"dataset", "BIGQUERY_DATASET_ID", "BigQuery dataset of the destination table", func(c *feedloader.Config) *string { return &c.Dataset }},
	{"table", "BIGQUERY_TABLE_ID", "BigQuery destination table", func(c *feedloader.Config) *string { return &c.Table }},
	{"location", "BIGQUERY_LOCATION", "BigQuery job location", func(c *feedloader.Config) *string { return &c.Location }},
	{"bigquery-endpoint", "BIGQUERY_ENDPOINT", "BigQuery API endpoint override (emulators)", func(c *feedloader.Config) *string { return &c.BigQueryEndpoint }},
	{"staging-bucket", "FEEDLOADER_STAGING_BUCKET", "Cloud Storage bucket to stage artifacts in before loading", func(c *feedloader.Config) *string { return &c.StagingBucket }},
	{"staging-prefix", "FEEDLOADER_STAGING_PREFIX", "object name prefix inside the staging bucket", func(c *feedloader.Config) *string { return &c.StagingPrefix }},
	{"storage-endpoint", "STORAGE_EMULATOR_ENDPOINT", "Cloud Storage API endpoint override (emulators)", func(c *feedloader.Config) *string { return &c.StorageEndpoint }},
	{"slack-channel", "SLACK_CHANNEL", "Slack channel for run notifications", func(c *feedloader.Config) *string { return &c.SlackChannel }},
}

const (
	isolateFlag = "isolate-invalid-records"
	isolateEnv  = "FEEDLOADER_ISOLATE_INVALID_RECORDS"

	// The token is only read from the environment or the config file.
	slackTokenEnv = "SLACK_TOKEN"
)

func addConfigFlags(fs *pflag.FlagSet) {
	for _, s := range settings {
		fs.String(s.flag, "", s.usage+" (env "+s.env+")")
	}
	fs.Bool(isolateFlag, false, "skip invalid records instead of aborting (env "+isolateEnv+")")
}

// resolveConfig layers defaults, the config file, the environment and changed flags.
func resolveConfig(fs *pflag.FlagSet, file string, getenv func(string) string) (feedloader.Config, error) {
	cfg := feedloader.DefaultConfig()

	if file != "" {
		var err error
		cfg, err = feedloader.LoadConfigFile(file)
		if err != nil {
			return cfg, err
		}
	}

	for _, s := range settings {
		if v := getenv(s.env); v != "" {
			*s.field(&cfg) = v
		}
	}
	if v := getenv(slackTokenEnv); v != "" {
		cfg.SlackToken = v
	}
	if v := getenv(isolateEnv); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return cfg, xerrors.Errorf("invalid %s: %w", isolateEnv, err)
		}
		cfg.IsolateInvalidRecords = b
	}

	for _, s := range settings {
		if fs.Lookup(s.flag) == nil || !fs.Changed(s.flag) {
			continue
		}
		v, err := fs.GetString(s.flag)
		if err != nil {
			return cfg, err
		}
		*s.field(&cfg) = v
	}
	if fs.Lookup(isolateFlag) != nil && fs.Changed(isolateFlag) {
		b, err := fs.GetBool(isolateFlag)
		if err != nil {
			return cfg, err
		}
		cfg.IsolateInvalidRecords = b
	}

	return cfg, nil
}

// parseStamp returns now unless a stamp in feedloader.StampFormat was given.
func parseStamp(s string, now func() time.Time) (time.Time, error) {
	if s == "" {
		return now(), nil
	}
	t, err := time.ParseInLocation(feedloader.StampFormat, s, time.Local)
	if err != nil {
		return time.Time{}, xerrors.Errorf("invalid stamp %q, want %s: %w", s, feedloader.StampFormat, err)
	}
	return t, nil
}
