package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"

	"vntransl/internal/glossary"
	"vntransl/internal/llmclient"
	"vntransl/internal/placeholder"
	"vntransl/internal/prompt"
	"vntransl/internal/translate"
	"vntransl/internal/workfile"
)

// Slot is a Worker's state, owned exclusively by the Dispatcher.
type Slot int

const (
	SlotFree Slot = iota
	SlotBusy
	SlotDoneOK
	SlotDoneErr
)

// OutcomeKind classifies why a busy Worker moved to SlotDoneErr.
type OutcomeKind string

const (
	OutcomeTransport     OutcomeKind = "transport"
	OutcomeCountMismatch OutcomeKind = "count_mismatch"
	OutcomeEmptyLine     OutcomeKind = "empty_line"
	OutcomeDegeneration  OutcomeKind = "degeneration"
)

var errDegenerate = errors.New("pipeline: degeneration detected mid-stream")

// Worker owns one endpoint and one outstanding HTTP request at a time. All
// state is guarded by its own mutex; only the Dispatcher reads or writes it.
type Worker struct {
	Endpoint string

	mu      sync.Mutex
	client  *llmclient.Client
	slot    Slot
	batch   []workfile.Entry
	results []translate.Result
	kind    OutcomeKind
}

// NewWorker builds a free Worker bound to one Streaming Client.
func NewWorker(endpoint string, client *llmclient.Client) *Worker {
	return &Worker{Endpoint: endpoint, client: client, slot: SlotFree}
}

// Assign hands the worker a batch to translate and starts the request in
// the background, transitioning free -> busy.
func (w *Worker) Assign(ctx context.Context, batch, history []workfile.Entry, terms []glossary.Term, tok placeholder.Triple, params prompt.Hyperparameters, onFragment func(string)) {
	w.mu.Lock()
	w.slot = SlotBusy
	w.batch = batch
	w.mu.Unlock()

	go w.run(ctx, batch, history, terms, tok, params, onFragment)
}

func (w *Worker) run(ctx context.Context, batch, history []workfile.Entry, terms []glossary.Term, tok placeholder.Triple, params prompt.Hyperparameters, onFragment func(string)) {
	assembled := prompt.Build(batch, history, terms, tok, params)

	sourcesLen := 0
	for _, e := range batch {
		sourcesLen += len(e.Source)
	}

	var buf strings.Builder
	err := w.client.Stream(ctx, assembled, func(fragment string) error {
		buf.WriteString(fragment)
		if onFragment != nil {
			onFragment(fragment)
		}
		if translate.Degeneration(buf.String(), sourcesLen) {
			return errDegenerate
		}
		return nil
	})

	w.mu.Lock()
	defer w.mu.Unlock()

	if err != nil {
		w.slot = SlotDoneErr
		w.kind = classifyStreamErr(err)
		return
	}

	results, verr := translate.Validate(buf.String(), batch, tok)
	if verr != nil {
		w.slot = SlotDoneErr
		w.kind = classifyValidateErr(verr)
		return
	}

	w.slot = SlotDoneOK
	w.results = results
}

func classifyStreamErr(err error) OutcomeKind {
	if errors.Is(err, errDegenerate) {
		return OutcomeDegeneration
	}
	return OutcomeTransport
}

func classifyValidateErr(err error) OutcomeKind {
	var verr *translate.Error
	if errors.As(err, &verr) {
		switch verr.Kind {
		case translate.KindCountMismatch:
			return OutcomeCountMismatch
		case translate.KindEmptyLine:
			return OutcomeEmptyLine
		}
	}
	return OutcomeTransport
}

// Poll returns the worker's current slot and, when it carries an outcome,
// the in-flight batch plus the results or error kind. The Dispatcher is the
// only caller.
func (w *Worker) Poll() (slot Slot, batch []workfile.Entry, results []translate.Result, kind OutcomeKind) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.slot, w.batch, w.results, w.kind
}

// Reset clears a done-* slot back to free, ready for the next assignment.
func (w *Worker) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.slot = SlotFree
	w.batch = nil
	w.results = nil
	w.kind = ""
}
