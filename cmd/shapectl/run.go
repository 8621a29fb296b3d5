package main

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"shapegraph/pkg/config"
	"shapegraph/pkg/errors"
	"shapegraph/pkg/ident"
	"shapegraph/pkg/object"
	"shapegraph/pkg/script"
	"shapegraph/pkg/shape"
)

// Exit codes follow sysexits.h.
const (
	exitUsage    = 64
	exitDataErr  = 65
	exitSoftware = 70
)

// usageError marks failures caused by the command line itself.
type usageError struct{ error }

// reportedError wraps a script failure that report already printed.
type reportedError struct{ error }

func (e reportedError) Unwrap() error { return e.error }

func exitCode(err error) int {
	var (
		uerr usageError
		rerr reportedError
		serr errors.ShapeError
	)
	switch {
	case stderrors.As(err, &uerr):
		fmt.Fprintln(os.Stderr, "Error:", err)
		return exitUsage
	case stderrors.As(err, &rerr):
		return exitDataErr
	case stderrors.As(err, &serr):
		errors.DisplayErrors(os.Stderr, []errors.ShapeError{serr})
		return exitDataErr
	default:
		fmt.Fprintln(os.Stderr, "Error:", err)
		return exitSoftware
	}
}

// outcome is what one script run produced.
type outcome struct {
	path   string
	output bytes.Buffer
	err    error
}

// runBatch runs every file on its own engine, at most jobs at a time. All
// engines intern into one shared identifier table. Script failures are
// recorded per file; only I/O and parse failures abort the batch.
func runBatch(ctx context.Context, files []string, cfg config.Config, logger *slog.Logger, keep func(string) bool) ([]*outcome, error) {
	idents := ident.NewTable()
	outcomes := make([]*outcome, len(files))

	g, ctx := errgroup.WithContext(ctx)
	if jobs > 0 {
		g.SetLimit(jobs)
	}
	for i, path := range files {
		out := &outcome{path: path}
		outcomes[i] = out
		g.Go(func() error {
			doc, err := script.LoadFile(path)
			if err != nil {
				return err
			}
			engine, err := shape.NewEngine(cfg, idents, logger.With("script", doc.Name))
			if err != nil {
				return err
			}
			defer engine.Close()

			res, err := script.Run(ctx, object.NewHeap(engine, len(doc.Objects)), doc)
			out.err = err
			if dumpShapes {
				res.Dump(&out.output, keep)
			}
			logger.Info("script finished", "script", doc.Name, "steps", res.Steps,
				"shapes", res.Stats.Live, "transitions", res.Stats.Transitions, "failed", err != nil)
			return ctx.Err()
		})
	}
	return outcomes, g.Wait()
}

// report prints outputs in command-line order and returns the first
// script failure.
func report(w io.Writer, outcomes []*outcome) error {
	var failures []errors.ShapeError
	var first error
	for _, out := range outcomes {
		if out == nil {
			continue
		}
		if _, err := io.Copy(w, &out.output); err != nil {
			return fmt.Errorf("writing output of %s: %w", out.path, err)
		}
		if out.err == nil {
			continue
		}
		if first == nil {
			first = out.err
		}
		var serr errors.ShapeError
		if stderrors.As(out.err, &serr) {
			failures = append(failures, serr)
		} else {
			fmt.Fprintf(os.Stderr, "%s: %v\n", out.path, out.err)
		}
	}
	errors.DisplayErrors(os.Stderr, failures)
	if first != nil {
		return reportedError{first}
	}
	return nil
}

func prepare() (config.Config, *slog.Logger, func(string) bool, error) {
	cfg, err := loadConfig()
	if err != nil {
		return cfg, nil, nil, usageError{err}
	}
	keep, err := memberFilter(filterExpr)
	if err != nil {
		return cfg, nil, nil, usageError{err}
	}
	logger, err := newLogger(os.Stderr, cfg)
	if err != nil {
		return cfg, nil, nil, usageError{err}
	}
	return cfg, logger, keep, nil
}

func runScripts(cmd *cobra.Command, args []string) error {
	cfg, logger, keep, err := prepare()
	if err != nil {
		return err
	}
	outcomes, err := runBatch(cmd.Context(), args, cfg, logger, keep)
	if rerr := report(cmd.OutOrStdout(), outcomes); err == nil {
		err = rerr
	}
	return err
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, logger, keep, err := prepare()
	if err != nil {
		return err
	}
	outcomes, err := runBatch(cmd.Context(), args, cfg, logger, keep)
	if rerr := report(cmd.OutOrStdout(), outcomes); err == nil {
		err = rerr
	}
	if werr := writeMetrics(cmd.OutOrStdout(), prometheus.DefaultGatherer); err == nil {
		err = werr
	}
	return err
}

// writeMetrics prints the shapegraph_* families of g in text exposition
// format.
func writeMetrics(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("gathering metrics: %w", err)
	}
	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), "shapegraph_") {
			continue
		}
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}
