// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package convert walks a source tree, mirrors its directories under a
// destination root, and converts each presentation file to PDF with an
// external office converter (LibreOffice soffice).
package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/slidelock/internal/scan"
	"github.com/pdiddy/slidelock/pkg/types"
)

const pdfExt = ".pdf"

// Options configures a Converter.
type Options struct {
	// SourceDir is the tree searched for input files.
	SourceDir string
	// DistDir is the root of the mirrored output tree.
	DistDir string
	// Binary is the converter executable, absolute or resolved on PATH.
	Binary string
	// Extensions lists the input suffixes to convert, e.g. ".pptx".
	Extensions []string
	// Timeout bounds one converter invocation. Zero means no limit.
	Timeout time.Duration
	// Scanner, when non-nil, vets each input before conversion.
	Scanner scan.Scanner
	// Logger receives diagnostics. Nil disables them.
	Logger *zerolog.Logger
}

// BatchResult holds the outcome of a conversion run.
type BatchResult struct {
	// Files lists the produced PDFs in traversal order. A path is present
	// only if the file existed on disk after its conversion.
	Files  []string
	Failed int
}

// Converted returns the number of PDFs produced.
func (r BatchResult) Converted() int {
	return len(r.Files)
}

// Total returns the number of input files processed.
func (r BatchResult) Total() int {
	return r.Converted() + r.Failed
}

// HasFailures reports whether any input failed conversion.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0
}

// Converter turns every matching file under a source tree into a PDF in the
// mirrored location under a destination tree.
type Converter struct {
	opts Options
	bin  string
	exec executor
	out  io.Writer
	log  zerolog.Logger
}

// New creates a Converter that prints per-file status lines to w. It
// resolves opts.Binary up front and fails if the converter cannot be found.
func New(opts Options, w io.Writer) (*Converter, error) {
	return newConverter(opts, w, defaultExec)
}

func newConverter(opts Options, w io.Writer, ex executor) (*Converter, error) {
	if opts.SourceDir == "" || opts.DistDir == "" {
		return nil, errors.New("source and destination directories are required")
	}
	if len(opts.Extensions) == 0 {
		return nil, errors.New("at least one input extension is required")
	}
	bin, err := ex.LookPath(opts.Binary)
	if err != nil {
		return nil, fmt.Errorf("converter %q not found: %w", opts.Binary, err)
	}

	log := zerolog.Nop()
	if opts.Logger != nil {
		log = *opts.Logger
	}
	return &Converter{opts: opts, bin: bin, exec: ex, out: w, log: log}, nil
}

// Binary returns the resolved converter path.
func (c *Converter) Binary() string { return c.bin }

// Convert walks the source tree. Every directory is mirrored under the
// destination root whether or not it holds matching files. Per-file
// failures are printed and counted; they do not stop the walk. An
// unreadable source root or a cancelled context ends the walk with an error.
func (c *Converter) Convert(ctx context.Context) (BatchResult, error) {
	var result BatchResult
	root := c.opts.SourceDir

	distAbs, err := filepath.Abs(c.opts.DistDir)
	if err != nil {
		return result, fmt.Errorf("resolving %s: %w", c.opts.DistDir, err)
	}

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return fmt.Errorf("reading source directory %s: %w", root, err)
			}
			fmt.Fprintf(c.out, "failed:  %s (%v)\n", c.rel(path), err)
			result.Failed++
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if d.IsDir() {
			if path != root && isSameDir(path, distAbs) {
				c.log.Debug().Str("dir", path).Msg("skipping destination tree nested in source")
				return filepath.SkipDir
			}
			target := filepath.Join(c.opts.DistDir, c.rel(path))
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("mirroring %s: %w", path, err)
			}
			return nil
		}

		if !c.matches(d.Name()) || !isRegularFile(path, d) {
			return nil
		}

		targetDir := filepath.Join(c.opts.DistDir, c.rel(filepath.Dir(path)))
		pdfPath, status := c.ConvertFile(ctx, path, targetDir)
		if status == types.StatusConverted {
			result.Files = append(result.Files, pdfPath)
		} else {
			result.Failed++
		}
		return nil
	})

	if walkErr != nil {
		return result, walkErr
	}
	c.log.Info().
		Int("converted", result.Converted()).
		Int("failed", result.Failed).
		Msg("conversion finished")
	return result, nil
}

// ConvertFile converts a single input into targetDir and returns the PDF
// path and outcome. The PDF path is meaningful only for StatusConverted:
// the converter must exit cleanly and the PDF must then exist on disk.
func (c *Converter) ConvertFile(ctx context.Context, src, targetDir string) (string, types.FileStatus) {
	name := filepath.Base(src)
	pdfPath := filepath.Join(targetDir, strings.TrimSuffix(name, filepath.Ext(name))+pdfExt)
	label := c.rel(src)

	if c.opts.Scanner != nil {
		res, err := c.opts.Scanner.ScanFile(src)
		if err != nil {
			fmt.Fprintf(c.out, "failed:  %s (scan: %v)\n", label, err)
			return "", types.StatusFailed
		}
		if res.Infected {
			fmt.Fprintf(c.out, "failed:  %s (infected: %s)\n", label, strings.Join(res.Threats, ", "))
			return "", types.StatusInfected
		}
	}

	runCtx := ctx
	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}

	args := Args(targetDir, src)
	c.log.Debug().Str("bin", c.bin).Strs("args", args).Msg("running converter")

	var output bytes.Buffer
	start := time.Now()
	if err := c.exec.Run(runCtx, c.bin, args, &output, &output); err != nil {
		if runCtx.Err() != nil {
			err = fmt.Errorf("%w: %w", err, runCtx.Err())
		}
		c.log.Debug().Str("output", strings.TrimSpace(output.String())).Msg("converter output")
		fmt.Fprintf(c.out, "failed:  %s (%v)\n", label, err)
		return "", types.StatusFailed
	}
	c.log.Debug().Dur("took", time.Since(start)).Str("output", strings.TrimSpace(output.String())).Msg("converter output")

	info, err := os.Stat(pdfPath)
	if err != nil || !info.Mode().IsRegular() {
		fmt.Fprintf(c.out, "failed:  %s (converter exited cleanly but %s was not produced)\n", label, pdfPath)
		return "", types.StatusFailed
	}

	fmt.Fprintf(c.out, "converted: %s -> %s\n", label, pdfPath)
	return pdfPath, types.StatusConverted
}

// Args builds the converter argument vector for one input file.
func Args(outDir, input string) []string {
	return []string{"--convert-to", "pdf", "--outdir", outDir, input}
}

func (c *Converter) matches(name string) bool {
	for _, ext := range c.opts.Extensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// rel returns path relative to the source root, or path itself if it is
// not beneath it.
func (c *Converter) rel(path string) string {
	r, err := filepath.Rel(c.opts.SourceDir, path)
	if err != nil {
		return path
	}
	return r
}

// isRegularFile reports whether d is a regular file or a symlink that
// resolves to one. Symlinked directories are not followed.
func isRegularFile(path string, d fs.DirEntry) bool {
	if d.Type().IsRegular() {
		return true
	}
	if d.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func isSameDir(path, abs string) bool {
	p, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	return p == abs
}
