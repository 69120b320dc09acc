package main

import (
	"fmt"

	"github.com/adammck/sstprops/pkg/compactor"
	"github.com/adammck/sstprops/pkg/sstable"
	"github.com/spf13/cobra"
)

func newCompactCmd(a *app) *cobra.Command {
	var dir string
	var cf uint32

	cmd := &cobra.Command{
		Use:   "compact",
		Short: "Rewrite the due sstables in a directory without their expired entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := a.writerFactory(cf)
			if err != nil {
				return err
			}

			p, err := a.picker()
			if err != nil {
				return err
			}

			c := compactor.New(sstable.NewManager(dir, f), p, a.extractorFactory(),
				compactor.WithLogger(a.logger),
				compactor.WithColumnFamily(cf))

			stats, err := c.Run(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(stats) == 0 {
				fmt.Fprintln(out, "nothing to compact")
				return nil
			}

			for _, s := range stats {
				if s.Error != nil {
					return s.Error
				}
				for _, m := range s.Inputs {
					fmt.Fprintf(out, "- %s\n", m.Filename())
				}
				for _, m := range s.Outputs {
					fmt.Fprintf(out, "+ %s\n", m.Filename())
				}
				fmt.Fprintf(out, "dropped %d expired entries\n", s.Dropped)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "directory of sstables")
	cmd.Flags().Uint32Var(&cf, "cf", 0, "column family ID passed to the TTL extractor")
	_ = cmd.MarkFlagRequired("dir")

	return cmd
}
