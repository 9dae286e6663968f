// Package glossary loads the two glossary file grammars the translator
// accepts: plain pre/post-processing dictionaries and model-facing
// dictionaries consulted by the Prompt Assembler.
package glossary

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Entry is one line of a translation dictionary, used for pre/post
// substitution over raw source/target text.
type Entry struct {
	Source string
	Target string
}

// Term is one line of a model-facing dictionary, surfaced to the LLM as a
// glossary hint in the assembled prompt.
type Term struct {
	Source      string
	Target      string
	Description string
}

// LoadTranslationDict reads pre/post substitution dictionaries from files.
// Each line is "src->dst"; "//"-prefixed lines are comments; lines without
// "->" are skipped; src/dst are trimmed of surrounding whitespace.
func LoadTranslationDict(files []string) ([]Entry, error) {
	var entries []Entry
	for _, file := range files {
		err := scanLines(file, func(line string) error {
			src, dst, ok := splitArrow(line)
			if !ok {
				return nil
			}
			entries = append(entries, Entry{Source: src, Target: dst})
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return entries, nil
}

// LoadModelDict reads model-facing glossary dictionaries from files. Each
// line is "src->dst" or "src->dst #description"; a literal "\->" in src
// un-escapes to "->".
func LoadModelDict(files []string) ([]Term, error) {
	var terms []Term
	for _, file := range files {
		err := scanLines(file, func(line string) error {
			// Hide escaped arrows so the split lands on the first unescaped "->".
			src, dst, ok := splitArrow(strings.ReplaceAll(line, `\->`, "\x00"))
			if !ok {
				return nil
			}
			src = strings.ReplaceAll(src, "\x00", "->")
			dst = strings.ReplaceAll(dst, "\x00", `\->`)

			var description string
			if idx := strings.Index(dst, " #"); idx >= 0 {
				description = strings.TrimSpace(dst[idx+2:])
				dst = strings.TrimSpace(dst[:idx])
			}
			terms = append(terms, Term{Source: src, Target: dst, Description: description})
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return terms, nil
}

// splitArrow splits a glossary line on the first "->", trimming whitespace
// from both sides. ok is false for blank lines, comments, and lines without
// an arrow, all of which callers must skip.
func splitArrow(line string) (src, dst string, ok bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "//") {
		return "", "", false
	}
	idx := strings.Index(line, "->")
	if idx < 0 {
		return "", "", false
	}
	src = strings.TrimSpace(line[:idx])
	dst = strings.TrimSpace(line[idx+2:])
	return src, dst, true
}

func scanLines(path string, fn func(line string) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("glossary: open %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if err := fn(scanner.Text()); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("glossary: read %s: %w", path, err)
	}
	return nil
}
