package feedloader

import (
	"os"

	"golang.org/x/xerrors"
	"gopkg.in/yaml.v2"
)

// Config holds every input of a pipeline run.
type Config struct {
	// Name is used in logs and notifications.
	Name string `yaml:"name"`

	// Source.
	Endpoint string `yaml:"endpoint"`
	Encoding string `yaml:"encoding"`

	// Artifacts.
	OutputDir  string `yaml:"output_dir"`
	FilePrefix string `yaml:"file_prefix"`

	// IsolateInvalidRecords skips invalid records instead of aborting the run.
	IsolateInvalidRecords bool `yaml:"isolate_invalid_records"`

	// Destination.
	Project          string `yaml:"project"`
	Dataset          string `yaml:"dataset"`
	Table            string `yaml:"table"`
	Location         string `yaml:"location"`
	BigQueryEndpoint string `yaml:"bigquery_endpoint"`

	// Optional Cloud Storage staging. When StagingBucket is set the tabular
	// artifact is loaded from its gs:// copy.
	StagingBucket   string `yaml:"staging_bucket"`
	StagingPrefix   string `yaml:"staging_prefix"`
	StorageEndpoint string `yaml:"storage_endpoint"`

	// Optional Slack notification.
	SlackToken   string `yaml:"slack_token"`
	SlackChannel string `yaml:"slack_channel"`
}

// DefaultConfig returns a Config with defaults for everything but the
// endpoint and the destination table.
func DefaultConfig() Config {
	return Config{
		Name:       "products",
		OutputDir:  "xtracts",
		FilePrefix: DefaultFilePrefix,
		Location:   DefaultLocation,
	}
}

// LoadConfigFile reads a YAML config over DefaultConfig. Unknown keys are errors.
func LoadConfigFile(path string) (Config, error) {
	cfg := DefaultConfig()

	body, err := os.ReadFile(path)
	if err != nil {
		return cfg, xerrors.Errorf("failed to read config %s: %w", path, err)
	}

	if err := yaml.UnmarshalStrict(body, &cfg); err != nil {
		return cfg, xerrors.Errorf("failed to parse config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks the inputs a full run needs.
func (c Config) Validate() error {
	if err := c.validateSource(); err != nil {
		return err
	}
	return c.validateDestination()
}

func (c Config) validateSource() error {
	if c.Endpoint == "" {
		return xerrors.New("endpoint is required")
	}
	if c.OutputDir == "" {
		return xerrors.New("output directory is required")
	}
	return nil
}

func (c Config) validateDestination() error {
	if c.Dataset == "" {
		return xerrors.New("dataset is required")
	}
	if c.Table == "" {
		return xerrors.New("table is required")
	}
	return nil
}
