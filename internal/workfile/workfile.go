// Package workfile loads and rewrites the JSON work files the translator
// operates on: one JSON array of objects per file, each object a script
// line with a required "source" field and arbitrary passthrough fields.
package workfile

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Entry is one object in a work file's JSON array: known fields are
// extracted, everything else (including fields the spec never
// names) is kept untouched in Extra so the round trip is lossless.
type Entry struct {
	Index         int
	Source        string
	Speaker       string
	HasSpeaker    bool
	Target        string
	HasTarget     bool
	TargetSpeaker string
	Extra         map[string]json.RawMessage
}

const (
	fieldSource        = "source"
	fieldSpeaker       = "speaker"
	fieldTarget        = "target"
	fieldTargetSpeaker = "target_speaker"
)

// File is one loaded work file: its path and the array of entries in their
// original order. Pending computes the subset awaiting translation.
type File struct {
	Path    string
	Entries []Entry
}

// Load reads a work file's JSON array into entries, tagging each with its
// original array index.
func Load(path string) (*File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("workfile: read %s: %w", path, err)
	}

	var objects []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &objects); err != nil {
		return nil, fmt.Errorf("workfile: parse %s: %w", path, err)
	}

	entries := make([]Entry, len(objects))
	for i, obj := range objects {
		e := Entry{Index: i, Extra: make(map[string]json.RawMessage, len(obj))}
		for k, v := range obj {
			switch k {
			case fieldSource:
				if err := json.Unmarshal(v, &e.Source); err != nil {
					return nil, fmt.Errorf("workfile: %s entry %d: field %q: %w", path, i, k, err)
				}
			case fieldSpeaker:
				if err := json.Unmarshal(v, &e.Speaker); err != nil {
					return nil, fmt.Errorf("workfile: %s entry %d: field %q: %w", path, i, k, err)
				}
				e.HasSpeaker = true
			case fieldTarget:
				if err := json.Unmarshal(v, &e.Target); err != nil {
					return nil, fmt.Errorf("workfile: %s entry %d: field %q: %w", path, i, k, err)
				}
				e.HasTarget = true
			case fieldTargetSpeaker:
				if err := json.Unmarshal(v, &e.TargetSpeaker); err != nil {
					return nil, fmt.Errorf("workfile: %s entry %d: field %q: %w", path, i, k, err)
				}
			default:
				e.Extra[k] = v
			}
		}
		entries[i] = e
	}
	return &File{Path: path, Entries: entries}, nil
}

// Pending returns entries eligible for translation: non-empty trimmed
// source and no target yet.
func (f *File) Pending() []Entry {
	var pending []Entry
	for _, e := range f.Entries {
		if strings.TrimSpace(e.Source) != "" && !e.HasTarget {
			pending = append(pending, e)
		}
	}
	return pending
}

// Apply merges a translated entry back into the file at its original
// index, overwriting rather than inserting.
func (f *File) Apply(e Entry) {
	f.Entries[e.Index] = e
}

// Save writes the file's entries back as a JSON array, preserving each
// entry's extra fields and adding target/target_speaker where present.
func (f *File) Save() error {
	objects := make([]map[string]json.RawMessage, len(f.Entries))
	for i, e := range f.Entries {
		obj := make(map[string]json.RawMessage, len(e.Extra)+4)
		for k, v := range e.Extra {
			obj[k] = v
		}
		if b, err := json.Marshal(e.Source); err == nil {
			obj[fieldSource] = b
		}
		if e.HasSpeaker {
			if b, err := json.Marshal(e.Speaker); err == nil {
				obj[fieldSpeaker] = b
			}
		}
		if e.HasTarget {
			if b, err := json.Marshal(e.Target); err == nil {
				obj[fieldTarget] = b
			}
			if e.TargetSpeaker != "" {
				if b, err := json.Marshal(e.TargetSpeaker); err == nil {
					obj[fieldTargetSpeaker] = b
				}
			}
		}
		objects[i] = obj
	}

	out, err := json.MarshalIndent(objects, "", "\t")
	if err != nil {
		return fmt.Errorf("workfile: marshal %s: %w", f.Path, err)
	}
	if err := os.WriteFile(f.Path, out, 0o644); err != nil {
		return fmt.Errorf("workfile: write %s: %w", f.Path, err)
	}
	return nil
}

// Discover recursively finds work files under projectPath, mirroring the
// "project_path/**/*.json" glob the spec describes.
func Discover(projectPath string) ([]string, error) {
	var matches []string
	err := filepath.WalkDir(projectPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ".json") {
			matches = append(matches, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("workfile: discover under %s: %w", projectPath, err)
	}
	return matches, nil
}
