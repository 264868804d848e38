package feedloader

import (
	"net/http"

	"github.com/rs/zerolog"
)

// Option configures Pipeline.
type Option interface {
	apply(*Pipeline) error
}

type optionFunc func(*Pipeline) error

func (f optionFunc) apply(p *Pipeline) error {
	return f(p)
}

// WithPrettyLogging configures Pipeline to print human friendly logs.
func WithPrettyLogging() Option {
	return optionFunc(func(p *Pipeline) error {
		p.prettyLogging = true
		return nil
	})
}

// WithLogLevel sets the log level such as "debug" or "warn".
func WithLogLevel(level string) Option {
	return optionFunc(func(p *Pipeline) error {
		lvl, err := zerolog.ParseLevel(level)
		if err != nil {
			return err
		}
		p.logLevel = &lvl
		return nil
	})
}

// WithLogger replaces the logger built from the other logging options.
func WithLogger(l zerolog.Logger) Option {
	return optionFunc(func(p *Pipeline) error {
		p.logger = &l
		return nil
	})
}

// WithHTTPClient sets the client used for the feed request and notifications.
func WithHTTPClient(c *http.Client) Option {
	return optionFunc(func(p *Pipeline) error {
		p.httpClient = c
		return nil
	})
}

// WithFetcher replaces the HTTP fetcher.
func WithFetcher(f Fetcher) Option {
	return optionFunc(func(p *Pipeline) error {
		p.fetcher = f
		return nil
	})
}

// WithLoader replaces the BigQuery loader.
func WithLoader(l Loader) Option {
	return optionFunc(func(p *Pipeline) error {
		p.loader = l
		return nil
	})
}

// WithArchiver replaces the Cloud Storage archiver. It is used even when no
// staging bucket is configured.
func WithArchiver(a Archiver) Option {
	return optionFunc(func(p *Pipeline) error {
		p.archiver = a
		return nil
	})
}

// WithNotifier replaces the Slack notifier.
func WithNotifier(n Notifier) Option {
	return optionFunc(func(p *Pipeline) error {
		p.notifier = n
		return nil
	})
}

// WithSchema replaces ProductSchema.
func WithSchema(s Schema) Option {
	return optionFunc(func(p *Pipeline) error {
		p.schema = s
		return nil
	})
}
