package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/adammck/sstprops/pkg/props"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const nowUnix = 1_700_000_000

type harness struct {
	t      *testing.T
	dir    string
	config string
	clock  *clockwork.FakeClock
}

func newHarness(t *testing.T) *harness {
	dir := t.TempDir()
	h := &harness{
		t:      t,
		dir:    dir,
		config: filepath.Join(dir, "config.yaml"),
		clock:  clockwork.NewFakeClockAt(time.Unix(nowUnix, 0)),
	}

	h.write("config.yaml", fmt.Sprintf(`
ttl:
  expiry: 1h
  scanCap: 2
  gcRatio: 0.5
log:
  format: none
  fileLoggingEnabled: true
  directory: %s
`, filepath.Join(dir, "logs")))

	require.NoError(t, os.Mkdir(filepath.Join(dir, "tables"), 0o755))
	return h
}

func (h *harness) write(name, body string) string {
	path := filepath.Join(h.dir, name)
	require.NoError(h.t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func (h *harness) run(args ...string) (string, error) {
	cmd := newRootCmd(h.clock)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", h.config}, args...))
	err := cmd.Execute()
	return out.String(), err
}

const expiredInput = `
entries:
  - {key: a, seq: 1, type: put, value: x, age: 2h}
  - {key: b, seq: 2, type: put, value: y, age: 2h}
  - {key: c, seq: 3, type: delete}
`

const freshInput = `
entries:
  - {key: d, seq: 4, type: merge, value: z}
`

func TestBuildInspect(t *testing.T) {
	h := newHarness(t)
	in := h.write("in.yaml", expiredInput)
	sst := filepath.Join(h.dir, "out.sstable")

	out, err := h.run("build", "--in", in, "--out", sst)
	require.NoError(t, err)
	assert.Contains(t, out, "entries: 3")

	out, err = h.run("inspect", sst)
	require.NoError(t, err)
	assert.Contains(t, out, sst+":")
	assert.Contains(t, out, props.DeletedKeys+": 1")
	assert.Contains(t, out, props.MergeOperands+": 0")
	assert.Contains(t, out, fmt.Sprintf("%s: %d (", props.EarliestTimeBeginCompact, nowUnix))
	assert.Contains(t, out, fmt.Sprintf("%s: %d (", props.LatestTimeEndCompact, nowUnix))
}

func TestInspectKey(t *testing.T) {
	h := newHarness(t)
	in := h.write("in.yaml", expiredInput)
	sst := filepath.Join(h.dir, "out.sstable")

	_, err := h.run("build", "--in", in, "--out", sst)
	require.NoError(t, err)

	out, err := h.run("inspect", "--key", "b", sst)
	require.NoError(t, err)
	assert.Contains(t, out, "key_filter_keys: 3")
	assert.Contains(t, out, `may contain "b": true`)
}

func TestBuildRequiresOneOutput(t *testing.T) {
	h := newHarness(t)
	in := h.write("in.yaml", expiredInput)

	_, err := h.run("build", "--in", in)
	require.Error(t, err)
}

func TestBuildUnknownType(t *testing.T) {
	h := newHarness(t)
	in := h.write("in.yaml", "entries: [{key: a, seq: 1, type: upsert}]")

	_, err := h.run("build", "--in", in, "--out", filepath.Join(h.dir, "x.sstable"))
	require.ErrorContains(t, err, "unknown type")
}

func TestInspectMissingFile(t *testing.T) {
	h := newHarness(t)
	_, err := h.run("inspect", filepath.Join(h.dir, "nope.sstable"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestPickAndCompact(t *testing.T) {
	h := newHarness(t)
	tables := filepath.Join(h.dir, "tables")

	_, err := h.run("build", "--in", h.write("expired.yaml", expiredInput), "--dir", tables)
	require.NoError(t, err)
	_, err = h.run("build", "--in", h.write("fresh.yaml", freshInput), "--dir", tables)
	require.NoError(t, err)

	out, err := h.run("pick", "--dir", tables)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], props.LatestTimeEndCompact)

	out, err = h.run("compact", "--dir", tables)
	require.NoError(t, err)
	assert.Contains(t, out, "dropped 2 expired entries")

	out, err = h.run("compact", "--dir", tables)
	require.NoError(t, err)
	assert.Contains(t, out, "nothing to compact")
}

func TestMetricsFile(t *testing.T) {
	h := newHarness(t)
	in := h.write("in.yaml", expiredInput)
	mf := filepath.Join(h.dir, "metrics.prom")

	_, err := h.run("--metrics-file", mf, "build", "--in", in, "--out", filepath.Join(h.dir, "x.sstable"))
	require.NoError(t, err)

	b, err := os.ReadFile(mf)
	require.NoError(t, err)
	assert.Contains(t, string(b), "files_finished")
}

func TestBadConfig(t *testing.T) {
	h := newHarness(t)
	h.write("config.yaml", "ttl: {gcRatio: 2}")

	_, err := h.run("inspect", "whatever")
	require.Error(t, err)
}
