// Package quality implements the advisory Quality Gate the dispatcher runs
// over a batch's resolved results: bracket-balance, excessive-punctuation,
// and glossary-mismatch checks that only log, never mutate a result or
// affect queue/done membership.
package quality

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"vntransl/internal/glossary"
	"vntransl/internal/workfile"
)

// Severity classifies how concerning an Issue is.
type Severity string

const (
	SeverityMedium Severity = "MED"
	SeverityLow    Severity = "LOW"
)

// Issue is one advisory finding against a single entry's target text.
type Issue struct {
	Index      int
	Severity   Severity
	IssueType  string
	Content    string
	Suggestion string
}

// Linter is a pipeline.QualityGate that logs its findings rather than
// returning them, matching the spec's "purely advisory" requirement.
type Linter struct {
	Logger *slog.Logger
}

// NewLinter builds a Linter that logs through logger, or slog.Default if nil.
func NewLinter(logger *slog.Logger) *Linter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Linter{Logger: logger}
}

// Check runs every enabled check over each translated entry in batch and
// logs any findings. It never mutates batch or terms.
func (l *Linter) Check(batch []workfile.Entry, terms []glossary.Term) {
	for _, e := range batch {
		if !e.HasTarget {
			continue
		}
		for _, issue := range checkEntry(e, terms) {
			l.log(issue)
		}
	}
}

func (l *Linter) log(issue Issue) {
	level := slog.LevelInfo
	if issue.Severity == SeverityMedium {
		level = slog.LevelWarn
	}
	l.Logger.Log(context.Background(), level, "quality gate finding",
		"index", issue.Index,
		"type", issue.IssueType,
		"content", issue.Content,
		"suggestion", issue.Suggestion,
	)
}

func checkEntry(e workfile.Entry, terms []glossary.Term) []Issue {
	var issues []Issue
	if issue := checkBrackets(e.Index, e.Target); issue != nil {
		issues = append(issues, *issue)
	}
	if issue := checkPunctuation(e.Index, e.Target); issue != nil {
		issues = append(issues, *issue)
	}
	for _, term := range terms {
		if !strings.Contains(e.Source, term.Source) {
			continue
		}
		if issue := checkGlossaryMismatch(e.Index, e.Target, term); issue != nil {
			issues = append(issues, *issue)
		}
	}
	return issues
}

// checkBrackets flags unbalanced or mismatched (), [], {} in a target line.
func checkBrackets(index int, text string) *Issue {
	closers := map[rune]rune{'(': ')', '[': ']', '{': '}'}
	var stack []rune

	for _, char := range text {
		if closer, isOpen := closers[char]; isOpen {
			stack = append(stack, closer)
			continue
		}
		if char == ')' || char == ']' || char == '}' {
			if len(stack) == 0 || stack[len(stack)-1] != char {
				return &Issue{
					Index:      index,
					Severity:   SeverityMedium,
					IssueType:  "bracket_mismatch",
					Content:    truncate(text, 50),
					Suggestion: fmt.Sprintf("mismatched bracket: %c", char),
				}
			}
			stack = stack[:len(stack)-1]
		}
	}

	if len(stack) > 0 {
		return &Issue{
			Index:      index,
			Severity:   SeverityMedium,
			IssueType:  "bracket_mismatch",
			Content:    truncate(text, 50),
			Suggestion: "unclosed brackets detected",
		}
	}
	return nil
}

var punctuationRun = regexp.MustCompile(`[!?.！？。]{3,}`)

// checkPunctuation flags 3+ consecutive punctuation marks.
func checkPunctuation(index int, text string) *Issue {
	if punctuationRun.MatchString(text) {
		return &Issue{
			Index:      index,
			Severity:   SeverityLow,
			IssueType:  "excessive_punctuation",
			Content:    truncate(text, 50),
			Suggestion: "reduce repeated punctuation",
		}
	}
	return nil
}

// checkGlossaryMismatch flags when a glossary term's source text is
// plausibly in scope for the line (the term's description, if any, would
// otherwise be meaningless here) but its target translation never appears.
func checkGlossaryMismatch(index int, target string, term glossary.Term) *Issue {
	lower := strings.ToLower(target)
	expected := strings.ToLower(term.Target)
	if expected == "" || strings.Contains(lower, expected) {
		return nil
	}
	return &Issue{
		Index:      index,
		Severity:   SeverityLow,
		IssueType:  "glossary_mismatch",
		Content:    truncate(target, 50),
		Suggestion: fmt.Sprintf("expected %q to be translated as %q", term.Source, term.Target),
	}
}

func truncate(text string, maxLen int) string {
	if len(text) <= maxLen {
		return text
	}
	return text[:maxLen] + "..."
}
