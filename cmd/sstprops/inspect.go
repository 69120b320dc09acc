package main

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/adammck/sstprops/pkg/filter"
	"github.com/adammck/sstprops/pkg/props"
	"github.com/adammck/sstprops/pkg/sstable"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newInspectCmd(a *app) *cobra.Command {
	var key string

	cmd := &cobra.Command{
		Use:   "inspect FILE...",
		Short: "Print the collected properties of sstables",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			metas, err := readMetas(cmd, args, a.cfg.Inspect.Concurrency)
			if err != nil {
				return err
			}

			for i, m := range metas {
				printMeta(cmd.OutOrStdout(), args[i], m)

				if key != "" {
					ok, err := filter.MayContain(m.Properties, []byte(key))
					if err != nil {
						return fmt.Errorf("%s: %w", args[i], err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "  may contain %q: %t\n", key, ok)
				}
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&key, "key", "", "also check the key filter for this user key")

	return cmd
}

// readMetas reads the properties blocks of the given files concurrently,
// returning them in the same order.
func readMetas(cmd *cobra.Command, paths []string, concurrency int) ([]*sstable.Meta, error) {
	metas := make([]*sstable.Meta, len(paths))

	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(concurrency)

	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			m, err := sstable.ReadFile(path)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}

			metas[i] = m
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return metas, nil
}

func printMeta(w io.Writer, name string, m *sstable.Meta) {
	earliest, latest := m.TimePoints()

	fmt.Fprintf(w, "%s:\n", name)
	fmt.Fprintf(w, "  id: %s\n", m.ID)
	fmt.Fprintf(w, "  entries: %d\n", m.Count)
	fmt.Fprintf(w, "  size: %d\n", m.Size)
	fmt.Fprintf(w, "  created: %s\n", m.Created.UTC().Format(time.RFC3339))
	fmt.Fprintf(w, "  keys: %q..%q\n", m.MinKey, m.MaxKey)
	fmt.Fprintf(w, "  %s: %d\n", props.DeletedKeys, props.GetDeletedKeys(m.Properties))

	if mo, ok := props.GetMergeOperands(m.Properties); ok {
		fmt.Fprintf(w, "  %s: %d\n", props.MergeOperands, mo)
	} else {
		fmt.Fprintf(w, "  %s: unknown\n", props.MergeOperands)
	}

	fmt.Fprintf(w, "  %s: %s\n", props.EarliestTimeBeginCompact, formatTimePoint(earliest))
	fmt.Fprintf(w, "  %s: %s\n", props.LatestTimeEndCompact, formatTimePoint(latest))

	if n, ok := m.Readable[filter.KeysPropertyName]; ok {
		fmt.Fprintf(w, "  %s: %s\n", filter.KeysPropertyName, n)
	}
}

func formatTimePoint(v uint64) string {
	if v == props.Unknown {
		return "unknown"
	}
	if v > math.MaxInt64 {
		return fmt.Sprintf("%d", v)
	}
	return fmt.Sprintf("%d (%s)", v, time.Unix(int64(v), 0).UTC().Format(time.RFC3339))
}
