package main

import (
	"github.com/spf13/cobra"
)

func newRunCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run fetch, transform and load in sequence",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			stamp, err := g.runStamp()
			if err != nil {
				return err
			}

			p, _, err := g.newPipeline(cmd)
			if err != nil {
				return err
			}
			defer p.Close()

			_, err = p.Run(cmd.Context(), stamp)
			return err
		},
	}
}
