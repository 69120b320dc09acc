package main

import (
	"fmt"

	"github.com/adammck/sstprops/pkg/sstable"
	"github.com/spf13/cobra"
)

func newPickCmd(a *app) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "pick [FILE...]",
		Short: "Print the sstables which are due for compaction now",
		RunE: func(cmd *cobra.Command, args []string) error {
			if (len(args) == 0) == (dir == "") {
				return fmt.Errorf("give either files or --dir")
			}

			var metas []*sstable.Meta
			names := map[*sstable.Meta]string{}

			if dir != "" {
				var err error
				metas, err = sstable.NewManager(dir, nil).List(cmd.Context())
				if err != nil {
					return err
				}
				for _, m := range metas {
					names[m] = m.Filename()
				}
			} else {
				var err error
				metas, err = readMetas(cmd, args, a.cfg.Inspect.Concurrency)
				if err != nil {
					return err
				}
				for i, m := range metas {
					names[m] = args[i]
				}
			}

			p, err := a.picker()
			if err != nil {
				return err
			}

			for _, pk := range p.Pick(metas) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", names[pk.Meta], pk.Reason, formatTimePoint(pk.Due))
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "consider every sstable in this directory")

	return cmd
}
