// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/slidelock/internal/scan"
	"github.com/pdiddy/slidelock/pkg/types"
)

// mockExecutor records converter invocations. By default each run writes
// the expected PDF into the --outdir argument and succeeds.
type mockExecutor struct {
	calls   [][]string
	fail    map[string]error // input base name -> error returned
	noOut   map[string]bool  // input base name -> exit cleanly without output
	missing bool             // LookPath fails
}

func (m *mockExecutor) LookPath(file string) (string, error) {
	if m.missing {
		return "", errors.New("executable file not found in $PATH")
	}
	return "/usr/bin/" + filepath.Base(file), nil
}

func (m *mockExecutor) Run(ctx context.Context, name string, args []string, stdout, stderr io.Writer) error {
	m.calls = append(m.calls, append([]string{name}, args...))
	if len(args) != 5 || args[0] != "--convert-to" || args[2] != "--outdir" {
		return errors.New("unexpected argv")
	}
	outDir, input := args[3], args[4]
	base := filepath.Base(input)
	if err := m.fail[base]; err != nil {
		io.WriteString(stderr, "Error: source file could not be loaded\n")
		return err
	}
	if m.noOut[base] {
		return nil
	}
	pdf := filepath.Join(outDir, strings.TrimSuffix(base, filepath.Ext(base))+".pdf")
	return os.WriteFile(pdf, []byte("%PDF-1.4\n"), 0o644)
}

// buildTree creates files (relative paths) under a fresh source root and
// returns the source and destination roots.
func buildTree(t *testing.T, files ...string) (src, dst string) {
	t.Helper()
	base := t.TempDir()
	src = filepath.Join(base, "src")
	dst = filepath.Join(base, "out")
	require.NoError(t, os.MkdirAll(src, 0o755))
	for _, f := range files {
		p := filepath.Join(src, filepath.FromSlash(f))
		if strings.HasSuffix(f, "/") {
			require.NoError(t, os.MkdirAll(p, 0o755))
			continue
		}
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("deck"), 0o644))
	}
	return src, dst
}

func newTestConverter(t *testing.T, src, dst string, ex executor, w io.Writer) *Converter {
	t.Helper()
	c, err := newConverter(Options{
		SourceDir:  src,
		DistDir:    dst,
		Binary:     "soffice",
		Extensions: []string{".pptx"},
	}, w, ex)
	require.NoError(t, err)
	return c
}

func TestConvert_EndToEndTree(t *testing.T) {
	src, dst := buildTree(t, "a/one.pptx", "a/b/two.pptx", "a/notes.txt", "empty/")
	ex := &mockExecutor{}
	var log bytes.Buffer

	res, err := newTestConverter(t, src, dst, ex, &log).Convert(context.Background())
	require.NoError(t, err)

	got := append([]string(nil), res.Files...)
	sort.Strings(got)
	assert.Equal(t, []string{
		filepath.Join(dst, "a", "b", "two.pdf"),
		filepath.Join(dst, "a", "one.pdf"),
	}, got)
	assert.Equal(t, 2, res.Converted())
	assert.Zero(t, res.Failed)
	assert.False(t, res.HasFailures())

	for _, dir := range []string{"a", filepath.Join("a", "b"), "empty"} {
		info, err := os.Stat(filepath.Join(dst, dir))
		require.NoError(t, err, "mirrored dir %s", dir)
		assert.True(t, info.IsDir())
	}
	assert.NoFileExists(t, filepath.Join(dst, "a", "notes.pdf"))
	assert.NoFileExists(t, filepath.Join(dst, "a", "notes.txt"))
	assert.Len(t, ex.calls, 2, "only .pptx files reach the converter")
	assert.Contains(t, log.String(), "converted:")
}

func TestConvert_Argv(t *testing.T) {
	src, dst := buildTree(t, "q3/deck; rm -rf ~ $(whoami).pptx")
	ex := &mockExecutor{}

	res, err := newTestConverter(t, src, dst, ex, io.Discard).Convert(context.Background())
	require.NoError(t, err)
	require.Len(t, ex.calls, 1)

	want := []string{
		"/usr/bin/soffice",
		"--convert-to", "pdf",
		"--outdir", filepath.Join(dst, "q3"),
		filepath.Join(src, "q3", "deck; rm -rf ~ $(whoami).pptx"),
	}
	assert.Equal(t, want, ex.calls[0])
	assert.Equal(t, []string{filepath.Join(dst, "q3", "deck; rm -rf ~ $(whoami).pdf")}, res.Files)
}

func TestConvert_PerFileFailures(t *testing.T) {
	tests := []struct {
		name    string
		ex      *mockExecutor
		wantLog string
	}{
		{
			name:    "non-zero exit",
			ex:      &mockExecutor{fail: map[string]error{"bad.pptx": errors.New("exit status 1")}},
			wantLog: "failed:  bad.pptx (exit status 1)",
		},
		{
			name:    "clean exit without output",
			ex:      &mockExecutor{noOut: map[string]bool{"bad.pptx": true}},
			wantLog: "was not produced",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, dst := buildTree(t, "bad.pptx", "good.pptx")
			var log bytes.Buffer

			res, err := newTestConverter(t, src, dst, tt.ex, &log).Convert(context.Background())
			require.NoError(t, err, "per-file failures do not abort the run")

			assert.Equal(t, []string{filepath.Join(dst, "good.pdf")}, res.Files)
			assert.Equal(t, 1, res.Failed)
			assert.True(t, res.HasFailures())
			assert.Equal(t, 2, res.Total())
			assert.Len(t, tt.ex.calls, 2, "processing continues after the failure")
			assert.Contains(t, log.String(), tt.wantLog)
		})
	}
}

func TestConvert_ExistenceDominatesExitCode(t *testing.T) {
	src, dst := buildTree(t, "ghost.pptx")
	ex := &mockExecutor{noOut: map[string]bool{"ghost.pptx": true}}

	res, err := newTestConverter(t, src, dst, ex, io.Discard).Convert(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.Files)
	assert.Equal(t, 1, res.Failed)
}

func TestConvert_Idempotent(t *testing.T) {
	src, dst := buildTree(t, "a/one.pptx", "a/b/two.pptx")
	c := newTestConverter(t, src, dst, &mockExecutor{}, io.Discard)

	first, err := c.Convert(context.Background())
	require.NoError(t, err)
	afterFirst := listFiles(t, dst)

	second, err := c.Convert(context.Background())
	require.NoError(t, err)

	assert.ElementsMatch(t, first.Files, second.Files)
	assert.Equal(t, afterFirst, listFiles(t, dst))
	assert.Len(t, afterFirst, 2)
}

func TestConvert_DestinationInsideSource(t *testing.T) {
	src, _ := buildTree(t, "deck.pptx")
	dst := filepath.Join(src, "pdf")
	// A stale deck inside the destination must not be picked up.
	require.NoError(t, os.MkdirAll(dst, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dst, "stale.pptx"), []byte("x"), 0o644))

	ex := &mockExecutor{}
	res, err := newTestConverter(t, src, dst, ex, io.Discard).Convert(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dst, "deck.pdf")}, res.Files)
	assert.Len(t, ex.calls, 1)
	assert.NoDirExists(t, filepath.Join(dst, "pdf"))
}

func TestConvert_MissingSource(t *testing.T) {
	base := t.TempDir()
	c := newTestConverter(t, filepath.Join(base, "nope"), filepath.Join(base, "out"), &mockExecutor{}, io.Discard)

	_, err := c.Convert(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading source directory")
}

func TestConvert_Cancelled(t *testing.T) {
	src, dst := buildTree(t, "a.pptx", "b.pptx")
	ex := &mockExecutor{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestConverter(t, src, dst, ex, io.Discard).Convert(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, ex.calls)
}

func TestConvert_Extensions(t *testing.T) {
	src, dst := buildTree(t, "a.pptx", "b.ppt", "c.odp", "d.PPTX.txt")
	ex := &mockExecutor{}
	c, err := newConverter(Options{
		SourceDir:  src,
		DistDir:    dst,
		Binary:     "soffice",
		Extensions: []string{".pptx", ".ppt", ".odp"},
	}, io.Discard, ex)
	require.NoError(t, err)

	res, err := c.Convert(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		filepath.Join(dst, "a.pdf"),
		filepath.Join(dst, "b.pdf"),
		filepath.Join(dst, "c.pdf"),
	}, res.Files)
}

func TestConvert_Symlinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need extra privileges on windows")
	}
	src, dst := buildTree(t, "shared/master.pptx", "talks/")
	require.NoError(t, os.Symlink(filepath.Join(src, "shared", "master.pptx"), filepath.Join(src, "talks", "linked.pptx")))
	require.NoError(t, os.Symlink(filepath.Join(src, "missing.pptx"), filepath.Join(src, "talks", "dangling.pptx")))
	require.NoError(t, os.Symlink(filepath.Join(src, "shared"), filepath.Join(src, "talks", "alias.pptx")))

	ex := &mockExecutor{}
	res, err := newTestConverter(t, src, dst, ex, io.Discard).Convert(context.Background())
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{
		filepath.Join(dst, "shared", "master.pdf"),
		filepath.Join(dst, "talks", "linked.pdf"),
	}, res.Files, "links to files convert; dangling links and links to directories do not")
	assert.Len(t, ex.calls, 2)
}

type fakeScanner struct {
	infected map[string]bool
	err      error
}

func (f *fakeScanner) ScanFile(path string) (scan.Result, error) {
	if f.err != nil {
		return scan.Result{}, f.err
	}
	if f.infected[filepath.Base(path)] {
		return scan.Result{Infected: true, Threats: []string{"Eicar-Test-Signature"}}, nil
	}
	return scan.Result{}, nil
}

func TestConvertFile_Scanner(t *testing.T) {
	tests := []struct {
		name       string
		scanner    *fakeScanner
		wantStatus types.FileStatus
		wantLog    string
	}{
		{
			name:       "clean file converts",
			scanner:    &fakeScanner{},
			wantStatus: types.StatusConverted,
			wantLog:    "converted:",
		},
		{
			name:       "infected file is skipped",
			scanner:    &fakeScanner{infected: map[string]bool{"deck.pptx": true}},
			wantStatus: types.StatusInfected,
			wantLog:    "infected: Eicar-Test-Signature",
		},
		{
			name:       "scan error is a failure",
			scanner:    &fakeScanner{err: errors.New("clamd went away")},
			wantStatus: types.StatusFailed,
			wantLog:    "scan: clamd went away",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, dst := buildTree(t, "deck.pptx")
			require.NoError(t, os.MkdirAll(dst, 0o755))
			ex := &mockExecutor{}
			c, err := newConverter(Options{
				SourceDir:  src,
				DistDir:    dst,
				Binary:     "soffice",
				Extensions: []string{".pptx"},
				Scanner:    tt.scanner,
			}, io.Discard, ex)
			require.NoError(t, err)
			var log bytes.Buffer
			c.out = &log

			_, status := c.ConvertFile(context.Background(), filepath.Join(src, "deck.pptx"), dst)
			assert.Equal(t, tt.wantStatus, status)
			assert.Contains(t, log.String(), tt.wantLog)
			if tt.wantStatus != types.StatusConverted {
				assert.Empty(t, ex.calls, "unsafe inputs never reach the converter")
			}
		})
	}
}

func TestNewConverter_Validation(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		ex      *mockExecutor
		wantErr string
	}{
		{
			name:    "binary not found",
			opts:    Options{SourceDir: "s", DistDir: "d", Binary: "soffice", Extensions: []string{".pptx"}},
			ex:      &mockExecutor{missing: true},
			wantErr: `converter "soffice" not found`,
		},
		{
			name:    "no extensions",
			opts:    Options{SourceDir: "s", DistDir: "d", Binary: "soffice"},
			ex:      &mockExecutor{},
			wantErr: "extension",
		},
		{
			name:    "no directories",
			opts:    Options{Binary: "soffice", Extensions: []string{".pptx"}},
			ex:      &mockExecutor{},
			wantErr: "directories are required",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newConverter(tt.opts, io.Discard, tt.ex)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

// TestConvert_RealProcess exercises the os/exec path with a stand-in
// converter script that honours the soffice argument layout.
func TestConvert_RealProcess(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script stand-in needs a POSIX shell")
	}
	bin := filepath.Join(t.TempDir(), "fake-soffice")
	script := `#!/bin/sh
outdir="$4"
in="$5"
name=$(basename "$in")
case "$name" in
  *broken*) echo "Error: source file could not be loaded" >&2; exit 1 ;;
esac
printf '%%PDF-1.4\n' > "$outdir/${name%.*}.pdf"
`
	require.NoError(t, os.WriteFile(bin, []byte(script), 0o755))

	src, dst := buildTree(t, "team/q1 review.pptx", "team/broken.pptx", "team/it's $HOME.pptx")
	var log bytes.Buffer
	c, err := New(Options{
		SourceDir:  src,
		DistDir:    dst,
		Binary:     bin,
		Extensions: []string{".pptx"},
		Timeout:    time.Minute,
	}, &log)
	require.NoError(t, err)
	assert.Equal(t, bin, c.Binary())

	res, err := c.Convert(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		filepath.Join(dst, "team", "q1 review.pdf"),
		filepath.Join(dst, "team", "it's $HOME.pdf"),
	}, res.Files)
	assert.Equal(t, 1, res.Failed)
	assert.Contains(t, log.String(), "failed:  "+filepath.Join("team", "broken.pptx"))
}

func TestConvert_Timeout(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script stand-in needs a POSIX shell")
	}
	bin := filepath.Join(t.TempDir(), "hung-soffice")
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\nexec sleep 30\n"), 0o755))

	src, dst := buildTree(t, "slow.pptx")
	var log bytes.Buffer
	c, err := New(Options{
		SourceDir:  src,
		DistDir:    dst,
		Binary:     bin,
		Extensions: []string{".pptx"},
		Timeout:    100 * time.Millisecond,
	}, &log)
	require.NoError(t, err)

	start := time.Now()
	res, err := c.Convert(context.Background())
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 20*time.Second)
	assert.Empty(t, res.Files)
	assert.Equal(t, 1, res.Failed)
	assert.Contains(t, log.String(), "deadline exceeded")
}

func TestArgs(t *testing.T) {
	assert.Equal(t,
		[]string{"--convert-to", "pdf", "--outdir", "out/a", "src/a/x.pptx"},
		Args("out/a", "src/a/x.pptx"))
}

func listFiles(t *testing.T, root string) []string {
	t.Helper()
	var files []string
	require.NoError(t, filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			files = append(files, path)
		}
		return nil
	}))
	return files
}
