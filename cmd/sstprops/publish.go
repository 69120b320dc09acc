package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

func newPublishCmd(a *app) *cobra.Command {
	var initStore bool

	cmd := &cobra.Command{
		Use:   "publish FILE...",
		Short: "Upload sstables to the bucket and record their properties",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, done, err := a.catalog(cmd)
			if err != nil {
				return err
			}
			defer done()

			if initStore {
				if err := cat.Init(cmd.Context()); err != nil {
					return err
				}
			}

			for _, path := range args {
				f, err := os.Open(path)
				if err != nil {
					return err
				}

				key := filepath.Base(path)
				_, err = cat.Publish(cmd.Context(), key, f)
				f.Close()
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}

				fmt.Fprintf(cmd.OutOrStdout(), "+ %s\n", key)
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&initStore, "init", false, "create the metadata collection and indexes first")

	return cmd
}

func newDueCmd(a *app) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "due",
		Short: "Print the published sstables which are due for compaction",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, done, err := a.catalog(cmd)
			if err != nil {
				return err
			}
			defer done()

			list := cat.Due
			if all {
				list = cat.All
			}

			recs, err := list(cmd.Context())
			if err != nil {
				return err
			}

			for _, r := range recs {
				earliest, latest := r.Meta.TimePoints()
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", r.Key, formatTimePoint(earliest), formatTimePoint(latest))
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "print every published sstable, due or not")

	return cmd
}
