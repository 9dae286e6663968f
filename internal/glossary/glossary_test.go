package glossary

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTemp(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writeTemp: %v", err)
	}
	return path
}

func TestLoadTranslationDict(t *testing.T) {
	dir := t.TempDir()
	path := writeTemp(t, dir, "pre.txt", ""+
		"// a comment\n"+
		"\n"+
		"Hello->你好\n"+
		"no arrow here\n"+
		"  World  ->  世界  \n")

	entries, err := LoadTranslationDict([]string{path})
	if err != nil {
		t.Fatalf("LoadTranslationDict: %v", err)
	}
	want := []Entry{
		{Source: "Hello", Target: "你好"},
		{Source: "World", Target: "世界"},
	}
	if len(entries) != len(want) {
		t.Fatalf("got %d entries, want %d: %+v", len(entries), len(want), entries)
	}
	for i := range want {
		if entries[i] != want[i] {
			t.Errorf("entry %d = %+v, want %+v", i, entries[i], want[i])
		}
	}
}

func TestLoadModelDict(t *testing.T) {
	dir := t.TempDir()
	path := writeTemp(t, dir, "gpt.txt", ""+
		"shirakami fubuki->白上吹雪 #虚拟主播，Hololive成员\n"+
		"plain->纯粹\n"+
		`escaped\->arrow->转义箭头`+"\n")

	terms, err := LoadModelDict([]string{path})
	if err != nil {
		t.Fatalf("LoadModelDict: %v", err)
	}
	if len(terms) != 3 {
		t.Fatalf("got %d terms, want 3: %+v", len(terms), terms)
	}
	if terms[0].Source != "shirakami fubuki" || terms[0].Target != "白上吹雪" || terms[0].Description != "虚拟主播，Hololive成员" {
		t.Errorf("term 0 = %+v", terms[0])
	}
	if terms[1].Source != "plain" || terms[1].Target != "纯粹" || terms[1].Description != "" {
		t.Errorf("term 1 = %+v", terms[1])
	}
	if terms[2].Source != "escaped->arrow" || terms[2].Target != "转义箭头" {
		t.Errorf("term 2 = %+v", terms[2])
	}
}

func TestLoadDictMultipleFiles(t *testing.T) {
	dir := t.TempDir()
	a := writeTemp(t, dir, "a.txt", "A->甲\n")
	b := writeTemp(t, dir, "b.txt", "B->乙\n")

	entries, err := LoadTranslationDict([]string{a, b})
	if err != nil {
		t.Fatalf("LoadTranslationDict: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
}

func TestLoadTranslationDictMissingFile(t *testing.T) {
	_, err := LoadTranslationDict([]string{"/nonexistent/path.txt"})
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}
