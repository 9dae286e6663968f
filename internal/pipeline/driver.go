package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"vntransl/internal/glossary"
	"vntransl/internal/llmclient"
	"vntransl/internal/placeholder"
	"vntransl/internal/prompt"
	"vntransl/internal/workfile"
)

// Driver iterates a project's work files, applies the pre/post-translation
// dictionaries, and runs a Dispatcher over each file's pending entries.
type Driver struct {
	Clients      []*llmclient.Client
	BatchSize    int
	HistorySize  int
	Params       prompt.Hyperparameters
	PreDict      []glossary.Entry
	PostDict     []glossary.Entry
	ModelDict    []glossary.Term
	Cache        Cache
	QualityGate  QualityGate
	StreamOutput bool
	Logger       *slog.Logger
}

func (d *Driver) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

// ProcessProject discovers every work file under projectPath and translates
// each in turn.
func (d *Driver) ProcessProject(ctx context.Context, projectPath string) error {
	paths, err := workfile.Discover(projectPath)
	if err != nil {
		return fmt.Errorf("pipeline: discover work files: %w", err)
	}

	for _, path := range paths {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := d.ProcessFile(ctx, path); err != nil {
			return fmt.Errorf("pipeline: process %s: %w", path, err)
		}
	}
	return nil
}

// ProcessFile translates one work file's pending entries in place.
func (d *Driver) ProcessFile(ctx context.Context, path string) error {
	f, err := workfile.Load(path)
	if err != nil {
		return err
	}

	pending := f.Pending()
	if len(pending) == 0 {
		d.logger().Info("no pending entries", "file", path)
		return nil
	}

	for i, e := range pending {
		pending[i].Source = applyDict(e.Source, d.PreDict)
	}

	var corpus strings.Builder
	for _, e := range pending {
		corpus.WriteString(e.Source)
		corpus.WriteByte('\n')
	}
	tok, err := placeholder.MintTriple(corpus.String())
	if err != nil {
		return fmt.Errorf("pipeline: %s: %w", path, err)
	}

	workers := make([]*Worker, len(d.Clients))
	for i, c := range d.Clients {
		workers[i] = NewWorker(fmt.Sprintf("worker-%d", i), c)
	}

	dispatcher := New(Config{
		Workers:      workers,
		BatchSize:    d.BatchSize,
		HistorySize:  d.HistorySize,
		Placeholders: tok,
		ModelDict:    d.ModelDict,
		PostDict:     d.PostDict,
		Params:       d.Params,
		Cache:        d.Cache,
		QualityGate:  d.QualityGate,
		StreamOutput: d.StreamOutput,
		Logger:       d.Logger,
	}, pending)

	results := dispatcher.Run(ctx)
	for _, r := range results {
		f.Apply(r)
	}

	if excluded := dispatcher.Excluded(); len(excluded) > 0 {
		d.logger().Warn("entries excluded from this run", "file", path, "count", len(excluded))
	}

	return f.Save()
}
