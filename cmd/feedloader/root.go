package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"go.nownabe.dev/feedloader"
)

type globalFlags struct {
	configFile string
	logLevel   string
	pretty     bool
	stamp      string
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:   "feedloader",
		Short: "Fetch a JSON product feed, flatten it into CSV and load it into BigQuery",
		Long: `feedloader runs a three stage batch pipeline:

  fetch      GET the feed endpoint and keep the raw JSON artifact
  transform  flatten every product into id,title,description,category,rate,count
  load       load the CSV artifact into a BigQuery table (schema auto-detected)

Settings come from --config (YAML), then the environment, then flags.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&g.configFile, "config", "", "YAML config file")
	pf.StringVar(&g.logLevel, "log-level", "info", "log level (trace, debug, info, warn, error)")
	pf.BoolVar(&g.pretty, "pretty", false, "human friendly log output")
	pf.StringVar(&g.stamp, "stamp", "", "run stamp "+feedloader.StampFormat+" (default now)")
	addConfigFlags(pf)

	root.AddCommand(
		newRunCmd(g),
		newFetchCmd(g),
		newTransformCmd(g),
		newLoadCmd(g),
	)

	return root
}

// newPipeline resolves the configuration of cmd and builds a pipeline from it.
func (g *globalFlags) newPipeline(cmd *cobra.Command) (*feedloader.Pipeline, feedloader.Config, error) {
	cfg, err := resolveConfig(cmd.Flags(), g.configFile, os.Getenv)
	if err != nil {
		return nil, cfg, err
	}

	opts := []feedloader.Option{feedloader.WithLogLevel(g.logLevel)}
	if g.pretty {
		opts = append(opts, feedloader.WithPrettyLogging())
	}

	p, err := feedloader.New(cfg, opts...)
	if err != nil {
		return nil, cfg, err
	}

	return p, cfg, nil
}

func (g *globalFlags) runStamp() (time.Time, error) {
	return parseStamp(g.stamp, time.Now)
}
