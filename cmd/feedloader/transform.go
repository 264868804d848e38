package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/xerrors"

	"go.nownabe.dev/feedloader"
)

func newTransformCmd(g *globalFlags) *cobra.Command {
	var input, output string

	cmd := &cobra.Command{
		Use:   "transform",
		Short: "Transform a raw JSON artifact into the tabular CSV artifact",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if input == "" {
				return xerrors.New("--input is required")
			}

			p, cfg, err := g.newPipeline(cmd)
			if err != nil {
				return err
			}
			defer p.Close()

			if output == "" {
				stamp, err := g.runStamp()
				if err != nil {
					return err
				}
				output = feedloader.ArtifactPaths(cfg.OutputDir, cfg.FilePrefix, stamp).Tabular
			}

			if _, err := p.TransformFile(p.Context(cmd.Context()), input, output); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), output)
			return nil
		},
	}

	cmd.Flags().StringVar(&input, "input", "", "raw JSON artifact to transform")
	cmd.Flags().StringVar(&output, "output", "", "tabular artifact path (default named after --stamp in --output-dir)")

	return cmd
}
