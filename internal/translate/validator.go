// Package translate validates and reconstructs a worker's accumulated LLM
// reply against the batch it was produced for, and detects degeneration in
// a still-streaming reply.
package translate

import (
	"fmt"
	"strings"

	"vntransl/internal/placeholder"
	"vntransl/internal/workfile"
)

// Kind classifies a validation failure.
type Kind string

const (
	KindCountMismatch Kind = "count_mismatch"
	KindEmptyLine     Kind = "empty_line"
	KindDegeneration  Kind = "degeneration"
)

// Error wraps a validation failure with its classification and, for
// CountMismatch, the expected/actual counts.
type Error struct {
	Kind     Kind
	Expected int
	Got      int
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindCountMismatch:
		return fmt.Sprintf("translate: count mismatch: expected %d, got %d", e.Expected, e.Got)
	default:
		return fmt.Sprintf("translate: %s", e.Kind)
	}
}

// Result is one reconstructed entry: the entry's index with its resolved
// target and (if applicable) target_speaker.
type Result struct {
	Index         int
	Target        string
	TargetSpeaker string
}

// Validate reconstructs the accumulated reply R against batch, per entry,
// substituting the placeholder triple back to literal newlines/quotes and
// splitting off a speaker prefix where applicable. It does not itself
// retry or split the batch: callers decide recovery from the returned Kind.
func Validate(reply string, batch []workfile.Entry, tok placeholder.Triple) ([]Result, error) {
	// A single trailing newline is a reply terminator, not an extra empty
	// line, matching Python's str.splitlines() (which the ground-truth
	// sakurallm.py response splitting relies on): strings.Split would
	// otherwise manufacture a spurious trailing "" element.
	lines := strings.Split(strings.TrimSuffix(reply, "\n"), "\n")

	if len(lines) != len(batch) {
		if len(batch) == 1 {
			// Single-line recovery: collapse all embedded newlines.
			collapsed := strings.ReplaceAll(reply, "\n", "")
			lines = []string{collapsed}
		} else {
			return nil, &Error{Kind: KindCountMismatch, Expected: len(batch), Got: len(lines)}
		}
	}

	results := make([]Result, len(batch))
	singleLineRecovery := len(batch) == 1 && len(lines) == 1 && strings.Contains(reply, "\n")
	for i, entry := range batch {
		line := lines[i]
		if line == "" && !singleLineRecovery {
			return nil, &Error{Kind: KindEmptyLine}
		}

		target, targetSpeaker := reconstruct(line, entry, tok)
		results[i] = Result{Index: entry.Index, Target: target, TargetSpeaker: targetSpeaker}
	}
	return results, nil
}

// reconstruct undoes one line's placeholder substitutions and splits a
// speaker prefix off the body when the entry has a speaker and the line
// carries an opening quote.
func reconstruct(line string, entry workfile.Entry, tok placeholder.Triple) (target, targetSpeaker string) {
	line = strings.ReplaceAll(line, tok.NL, "\n")

	if entry.HasSpeaker {
		if idx := strings.Index(line, "「"); idx >= 0 {
			speakerPart := line[:idx]
			body := line[idx+len("「"):]
			if last := strings.LastIndex(body, "」"); last >= 0 {
				body = body[:last]
			}
			body = strings.ReplaceAll(body, tok.QS, "「")
			body = strings.ReplaceAll(body, tok.QE, "」")
			return body, speakerPart
		}
	}
	return line, ""
}

// degenerationMinLen is the floor of the spec's threshold T = max(len, 30).
const degenerationMinLen = 30

// Degeneration reports whether the running buffer R looks like a degenerate
// (repeating or runaway) generation, given the total length of the batch's
// source texts. It is checked incrementally during streaming, before the
// reply is fully accumulated.
func Degeneration(buffer string, sourcesLen int) bool {
	threshold := sourcesLen
	if threshold < degenerationMinLen {
		threshold = degenerationMinLen
	}

	if len(buffer) > 0 && float64(len(buffer)) > 1.5*float64(sourcesLen) {
		return true
	}

	return hasRepeatingSuffix(buffer, threshold)
}

// hasRepeatingSuffix reports whether buffer ends in threshold consecutive,
// non-overlapping occurrences of some suffix substring t with 1 <= |t| <
// |buffer|/threshold.
func hasRepeatingSuffix(buffer string, threshold int) bool {
	n := len(buffer)
	if threshold <= 0 || n == 0 {
		return false
	}
	maxLen := n / threshold
	for tLen := 1; tLen <= maxLen; tLen++ {
		span := tLen * threshold
		if span >= n {
			break
		}
		t := buffer[n-tLen:]
		repeats := true
		for k := 1; k < threshold; k++ {
			start := n - (k+1)*tLen
			end := n - k*tLen
			if buffer[start:end] != t {
				repeats = false
				break
			}
		}
		if repeats {
			return true
		}
	}
	return false
}
