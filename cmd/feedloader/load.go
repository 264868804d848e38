package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/xerrors"
)

func newLoadCmd(g *globalFlags) *cobra.Command {
	var source string

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Load a tabular CSV artifact (local path or gs:// URI) into BigQuery",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if source == "" {
				return xerrors.New("--source is required")
			}

			p, cfg, err := g.newPipeline(cmd)
			if err != nil {
				return err
			}
			defer p.Close()

			res, err := p.Load(p.Context(cmd.Context()), source)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%d rows loaded to %s.%s\n", res.RowsLoaded, cfg.Dataset, cfg.Table)
			return nil
		},
	}

	cmd.Flags().StringVar(&source, "source", "", "tabular artifact to load")

	return cmd
}
