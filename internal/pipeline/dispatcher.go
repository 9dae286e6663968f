package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"vntransl/internal/glossary"
	"vntransl/internal/placeholder"
	"vntransl/internal/prompt"
	"vntransl/internal/translate"
	"vntransl/internal/workfile"
)

// tickInterval is the dispatcher's idle poll period, matching the spec's
// "sleep for a short interval (~1s)".
const tickInterval = time.Second

// Cache is the dedup lookup/store contract the Dispatcher consults before
// placing an Entry into a Batch and after a Worker validates a result. A nil
// Cache disables the dedup optimization entirely.
type Cache interface {
	Lookup(source, speaker string) (target, targetSpeaker string, ok bool)
	Store(source, speaker, target, targetSpeaker string)
}

// QualityGate is the advisory check run over a Worker's validated results
// before they're integrated into done. It never alters target/target_speaker
// and never changes queue/done membership; implementations only log.
type QualityGate interface {
	Check(batch []workfile.Entry, terms []glossary.Term)
}

// Config configures one Dispatcher run over one file's pending entries.
type Config struct {
	Workers      []*Worker
	BatchSize    int
	HistorySize  int
	Placeholders placeholder.Triple
	ModelDict    []glossary.Term
	PostDict     []glossary.Entry
	Params       prompt.Hyperparameters
	Cache        Cache
	QualityGate  QualityGate
	StreamOutput bool // only honored when len(Workers) == 1
	Logger       *slog.Logger
}

// Dispatcher runs the per-file translation loop described in the spec's
// component design: it owns the queue and done list, pairs free workers
// with batches, and reintegrates results until every pending entry (bar
// poison-pilled ones) is resolved.
type Dispatcher struct {
	cfg Config

	queue            []workfile.Entry
	done             []workfile.Entry
	excluded         []workfile.Entry
	batchSize        int
	initialBatchSize int
}

// New builds a Dispatcher over the given pending entries.
func New(cfg Config, pending []workfile.Entry) *Dispatcher {
	queue := make([]workfile.Entry, len(pending))
	copy(queue, pending)
	return &Dispatcher{
		cfg:              cfg,
		queue:            queue,
		batchSize:        cfg.BatchSize,
		initialBatchSize: cfg.BatchSize,
	}
}

func (d *Dispatcher) logger() *slog.Logger {
	if d.cfg.Logger != nil {
		return d.cfg.Logger
	}
	return slog.Default()
}

// Excluded returns the poison-pilled entries from the most recent Run: those
// whose original array slot the caller must leave untouched.
func (d *Dispatcher) Excluded() []workfile.Entry {
	return d.excluded
}

// Run drives the dispatcher loop to completion (or context cancellation)
// and returns the resolved entries, sorted by index. Poison-pilled entries
// are omitted; their original array slot is left untouched by the caller.
func (d *Dispatcher) Run(ctx context.Context) []workfile.Entry {
	total := len(d.queue)
	d.resolveFromCache()

	streamOutput := d.cfg.StreamOutput && len(d.cfg.Workers) == 1

	for len(d.done)+len(d.excluded) < total {
		select {
		case <-ctx.Done():
			return d.sorted()
		default:
		}

		for _, w := range d.cfg.Workers {
			slot, batch, results, kind := w.Poll()
			switch slot {
			case SlotBusy:
				continue
			case SlotDoneOK:
				d.integrate(batch, results)
				w.Reset()
			case SlotDoneErr:
				d.recover(batch, kind)
				w.Reset()
			case SlotFree:
				d.assignNext(ctx, w, streamOutput)
			}
		}

		if len(d.queue) == 0 && !d.anyBusy() {
			break
		}

		select {
		case <-ctx.Done():
			return d.sorted()
		case <-time.After(tickInterval):
		}
	}

	return d.sorted()
}

func (d *Dispatcher) sorted() []workfile.Entry {
	sort.Slice(d.done, func(i, j int) bool { return d.done[i].Index < d.done[j].Index })
	return d.done
}

func (d *Dispatcher) anyBusy() bool {
	for _, w := range d.cfg.Workers {
		slot, _, _, _ := w.Poll()
		if slot != SlotFree {
			return true
		}
	}
	return false
}

// resolveFromCache resolves every queued entry with a dedup cache hit
// directly into done, so it never reaches a Worker and never triggers an
// HTTP call.
func (d *Dispatcher) resolveFromCache() {
	if d.cfg.Cache == nil {
		return
	}
	var remaining []workfile.Entry
	for _, e := range d.queue {
		target, targetSpeaker, ok := d.cfg.Cache.Lookup(e.Source, e.Speaker)
		if !ok {
			remaining = append(remaining, e)
			continue
		}
		e.Target = target
		e.HasTarget = true
		e.TargetSpeaker = targetSpeaker
		d.done = append(d.done, e)
	}
	d.queue = remaining
}

// integrate applies the post-translation dictionary, stores results into
// the cache, runs the advisory Quality Gate, and folds the results into
// done, resetting batch_size to its configured initial value.
func (d *Dispatcher) integrate(batch []workfile.Entry, results []translate.Result) {
	byIndex := make(map[int]workfile.Entry, len(batch))
	for _, e := range batch {
		byIndex[e.Index] = e
	}

	resolved := make([]workfile.Entry, 0, len(results))
	for _, r := range results {
		entry := byIndex[r.Index]
		entry.Target = applyDict(r.Target, d.cfg.PostDict)
		entry.TargetSpeaker = r.TargetSpeaker
		entry.HasTarget = true

		if d.cfg.Cache != nil {
			d.cfg.Cache.Store(entry.Source, entry.Speaker, entry.Target, entry.TargetSpeaker)
		}
		resolved = append(resolved, entry)
	}

	if d.cfg.QualityGate != nil {
		d.cfg.QualityGate.Check(resolved, d.cfg.ModelDict)
	}

	d.done = append(d.done, resolved...)
	d.batchSize = d.initialBatchSize
}

// recover returns a failed batch to the front of the queue, applying the
// CountMismatch halving rule, unless it is a single-entry batch failing for
// a non-transport reason, in which case the entry is poison-pilled and
// excluded from this run instead of being retried.
func (d *Dispatcher) recover(batch []workfile.Entry, kind OutcomeKind) {
	if len(batch) == 1 && kind != OutcomeTransport {
		d.logger().Warn("excluding poison-pill entry", "index", batch[0].Index, "kind", kind)
		d.excluded = append(d.excluded, batch[0])
		return
	}

	level := slog.LevelInfo
	if kind == OutcomeTransport || kind == OutcomeDegeneration {
		level = slog.LevelWarn
	}
	d.logger().Log(context.Background(), level, "batch failed, returning to queue", "size", len(batch), "kind", kind)

	d.queue = append(batch, d.queue...)
	sort.Slice(d.queue, func(i, j int) bool { return d.queue[i].Index < d.queue[j].Index })

	if kind == OutcomeCountMismatch {
		d.batchSize = max(1, d.batchSize/2)
	}
}

// assignNext takes the next batch_size entries from the head of the queue
// (or all remaining, whichever is fewer) and hands them to a free worker
// along with the current history window.
func (d *Dispatcher) assignNext(ctx context.Context, w *Worker, streamOutput bool) {
	if len(d.queue) == 0 {
		return
	}

	n := d.batchSize
	if n > len(d.queue) {
		n = len(d.queue)
	}
	batch := d.queue[:n]
	d.queue = d.queue[n:]

	history := lastN(d.done, d.cfg.HistorySize)
	terms := relevantTerms(batch, d.cfg.ModelDict)

	var onFragment func(string)
	if streamOutput {
		onFragment = func(s string) { fmt.Print(s) }
	}

	w.Assign(ctx, batch, history, terms, d.cfg.Placeholders, d.cfg.Params, onFragment)
}

func lastN(entries []workfile.Entry, n int) []workfile.Entry {
	if n <= 0 || len(entries) == 0 {
		return nil
	}
	if len(entries) <= n {
		return entries
	}
	return entries[len(entries)-n:]
}

func relevantTerms(batch []workfile.Entry, terms []glossary.Term) []glossary.Term {
	var raw strings.Builder
	for _, e := range batch {
		raw.WriteString(e.Source)
		raw.WriteByte('\n')
	}
	text := raw.String()

	var out []glossary.Term
	for _, t := range terms {
		if strings.Contains(text, t.Source) {
			out = append(out, t)
		}
	}
	return out
}

func applyDict(s string, dict []glossary.Entry) string {
	for _, e := range dict {
		s = strings.ReplaceAll(s, e.Source, e.Target)
	}
	return s
}
