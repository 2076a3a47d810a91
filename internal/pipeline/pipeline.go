// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline runs a conversion pass over the source tree and then
// protects every PDF it produced, in order, one file at a time.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"

	"github.com/pdiddy/slidelock/internal/convert"
)

// Converter produces PDFs for every matching file under a source tree.
type Converter interface {
	Convert(ctx context.Context) (convert.BatchResult, error)
}

// Protector encrypts one PDF in place.
type Protector interface {
	Protect(path string) error
}

// Report summarizes a run.
type Report struct {
	// Converted lists the PDFs produced, in traversal order.
	Converted     []string
	ConvertFailed int
	Protected     int
	ProtectFailed int
}

// HasFailures reports whether any file failed conversion or protection.
func (r Report) HasFailures() bool {
	return r.ConvertFailed > 0 || r.ProtectFailed > 0
}

// Failed returns the number of files that failed either step.
func (r Report) Failed() int {
	return r.ConvertFailed + r.ProtectFailed
}

// Pipeline wires a Converter and a Protector together.
type Pipeline struct {
	conv     Converter
	prot     Protector
	distDir  string
	out      io.Writer
	log      zerolog.Logger
	progress io.Writer
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the diagnostics logger.
func WithLogger(l zerolog.Logger) Option {
	return func(p *Pipeline) { p.log = l }
}

// WithProgress draws a progress bar for the protection pass on w.
func WithProgress(w io.Writer) Option {
	return func(p *Pipeline) { p.progress = w }
}

// New builds a Pipeline that writes per-file status lines to w.
func New(conv Converter, prot Protector, distDir string, w io.Writer, opts ...Option) *Pipeline {
	p := &Pipeline{
		conv:    conv,
		prot:    prot,
		distDir: distDir,
		out:     w,
		log:     zerolog.Nop(),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Run ensures the destination root exists, converts the whole tree, then
// protects each converted file. A protection failure is printed and counted
// and the loop moves on to the next file. Run returns an error only when the
// destination cannot be created, the source tree cannot be read, or ctx is
// cancelled.
func (p *Pipeline) Run(ctx context.Context) (Report, error) {
	var report Report

	if err := os.MkdirAll(p.distDir, 0o755); err != nil {
		return report, fmt.Errorf("creating destination %s: %w", p.distDir, err)
	}

	batch, err := p.conv.Convert(ctx)
	report.Converted = batch.Files
	report.ConvertFailed = batch.Failed
	if err != nil {
		return report, fmt.Errorf("converting: %w", err)
	}

	bar := p.newBar(len(batch.Files))
	for _, path := range batch.Files {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if err := p.prot.Protect(path); err != nil {
			fmt.Fprintf(p.out, "failed:  %s (%v)\n", path, err)
			p.log.Error().Err(err).Str("file", path).Msg("protection failed")
			report.ProtectFailed++
		} else {
			fmt.Fprintf(p.out, "protected: %s\n", path)
			report.Protected++
		}
		_ = bar.Add(1)
	}
	_ = bar.Finish()

	fmt.Fprintf(p.out, "\nRun summary: %d converted, %d protected, %d failed\n",
		len(report.Converted), report.Protected, report.Failed())
	return report, nil
}

func (p *Pipeline) newBar(n int) *progressbar.ProgressBar {
	if p.progress == nil {
		return progressbar.DefaultSilent(int64(n))
	}
	return progressbar.NewOptions(n,
		progressbar.OptionSetWriter(p.progress),
		progressbar.OptionSetDescription("Protecting"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}
