package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/adammck/sstprops/pkg/api"
	"github.com/adammck/sstprops/pkg/extractor"
	"github.com/adammck/sstprops/pkg/sstable"
	"github.com/adammck/sstprops/pkg/types"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// input is the YAML document read by the build command.
type input struct {
	ColumnFamily uint32       `yaml:"columnFamily"`
	Entries      []inputEntry `yaml:"entries"`
}

type inputEntry struct {
	Key   string             `yaml:"key"`
	Seq   api.SequenceNumber `yaml:"seq"`
	Type  string             `yaml:"type"`
	Value string             `yaml:"value"`

	// Age is how long ago the entry was written. Data-bearing entries get the
	// write time appended to their value.
	Age time.Duration `yaml:"age"`

	// BlobFile is the blob file number of index entries.
	BlobFile uint64 `yaml:"blobFile"`
}

var valueTypes = map[string]types.ValueType{
	"put":          types.TypeValue,
	"delete":       types.TypeDeletion,
	"singledelete": types.TypeSingleDeletion,
	"merge":        types.TypeMerge,
	"rangedelete":  types.TypeRangeDeletion,
	"valueindex":   types.TypeValueIndex,
	"mergeindex":   types.TypeMergeIndex,
}

func newBuildCmd(a *app) *cobra.Command {
	var in, out, dir string

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build an sstable from a YAML list of entries",
		Long: `Build an sstable from a YAML document like:

  columnFamily: 0
  entries:
    - {key: a, seq: 1, type: put, value: hello, age: 2h}
    - {key: b, seq: 2, type: delete}

Either --out (a single file) or --dir (a directory managed like compaction
does) must be given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if (out == "") == (dir == "") {
				return fmt.Errorf("exactly one of --out and --dir is required")
			}

			doc, err := readInput(in, cmd.InOrStdin())
			if err != nil {
				return err
			}

			entries, err := doc.toEntries(a.clock.Now())
			if err != nil {
				return err
			}

			f, err := a.writerFactory(doc.ColumnFamily)
			if err != nil {
				return err
			}

			var meta *sstable.Meta
			if dir != "" {
				meta, err = flushToDir(cmd.Context(), sstable.NewManager(dir, f), entries)
			} else {
				meta, err = writeFile(f.NewWriter(), out, entries)
			}
			if err != nil {
				return err
			}

			a.logger.Info("built sstable", zap.String("id", meta.ID), zap.Int("count", meta.Count))
			printMeta(cmd.OutOrStdout(), nameOr(out, meta.Filename()), meta)
			return nil
		},
	}

	cmd.Flags().StringVar(&in, "in", "-", "YAML input file, or - for stdin")
	cmd.Flags().StringVar(&out, "out", "", "path of the sstable to write")
	cmd.Flags().StringVar(&dir, "dir", "", "directory to write the sstable into, named by its metadata")

	return cmd
}

func readInput(path string, stdin io.Reader) (*input, error) {
	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("os.Open: %w", err)
		}
		defer f.Close()
		r = f
	}

	doc := &input{}
	if err := yaml.NewDecoder(r).Decode(doc); err != nil {
		return nil, fmt.Errorf("yaml.Decode: %w", err)
	}

	return doc, nil
}

func (in *input) toEntries(now time.Time) ([]*types.Entry, error) {
	out := make([]*types.Entry, 0, len(in.Entries))

	for i, e := range in.Entries {
		vt, ok := valueTypes[strings.ToLower(e.Type)]
		if !ok {
			return nil, fmt.Errorf("entry %d: unknown type %q", i, e.Type)
		}
		if e.Seq > types.MaxSequenceNumber {
			return nil, fmt.Errorf("entry %d: sequence number too large: %d", i, e.Seq)
		}

		var value []byte
		typ := types.GetEntryType(vt)
		if typ.HasValue() {
			value = extractor.AppendTimestamp([]byte(e.Value), now.Add(-e.Age))
			if typ.IsIndex() {
				value = types.EncodeValueIndex(e.BlobFile, value)
			}
		} else if e.Value != "" {
			value = []byte(e.Value)
		}

		out = append(out, &types.Entry{
			Key:   types.MakeInternalKey([]byte(e.Key), e.Seq, vt),
			Value: value,
		})
	}

	return out, nil
}

func writeFile(w *sstable.Writer, path string, entries []*types.Entry) (*sstable.Meta, error) {
	for _, e := range entries {
		if err := w.Add(e.Key, e.Value); err != nil {
			return nil, err
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("os.Create: %w", err)
	}
	defer f.Close()

	meta, err := w.Write(f)
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("Writer.Write: %w", err)
	}

	if err := f.Sync(); err != nil {
		return nil, fmt.Errorf("File.Sync: %w", err)
	}

	return meta, nil
}

func flushToDir(ctx context.Context, mgr *sstable.Manager, entries []*types.Entry) (*sstable.Meta, error) {
	ch := make(chan *types.Entry, len(entries))
	for _, e := range entries {
		ch <- e
	}
	close(ch)

	meta, err := mgr.Flush(ctx, ch)
	if err != nil {
		return nil, fmt.Errorf("Manager.Flush: %w", err)
	}

	return meta, nil
}

func nameOr(name, fallback string) string {
	if name != "" {
		return name
	}
	return fallback
}
