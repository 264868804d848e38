package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"go.nownabe.dev/feedloader"
)

func newFetchCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch",
		Short: "Fetch the feed and write the raw JSON artifact",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			stamp, err := g.runStamp()
			if err != nil {
				return err
			}

			p, cfg, err := g.newPipeline(cmd)
			if err != nil {
				return err
			}
			defer p.Close()

			arts := feedloader.ArtifactPaths(cfg.OutputDir, cfg.FilePrefix, stamp)
			if _, err := p.Fetch(p.Context(cmd.Context()), arts.Raw); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), arts.Raw)
			return nil
		},
	}
}
