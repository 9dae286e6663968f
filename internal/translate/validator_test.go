package translate

import (
	"errors"
	"strings"
	"testing"

	"vntransl/internal/placeholder"
	"vntransl/internal/workfile"
)

func fixtureTok() placeholder.Triple {
	return placeholder.Triple{NL: "<NL-1>", QS: "<QS-1>", QE: "<QE-1>"}
}

func TestValidateBasicLineCount(t *testing.T) {
	batch := []workfile.Entry{{Index: 0, Source: "a"}, {Index: 1, Source: "b"}}
	reply := "你好\n再见"
	results, err := Validate(reply, batch, fixtureTok())
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].Target != "你好" || results[1].Target != "再见" {
		t.Errorf("unexpected targets: %+v", results)
	}
}

func TestValidateCountMismatch(t *testing.T) {
	batch := []workfile.Entry{{Index: 0, Source: "a"}, {Index: 1, Source: "b"}}
	_, err := Validate("只有一行", batch, fixtureTok())
	var verr *Error
	if !errors.As(err, &verr) || verr.Kind != KindCountMismatch {
		t.Fatalf("expected KindCountMismatch, got %v", err)
	}
	if verr.Expected != 2 || verr.Got != 1 {
		t.Errorf("expected Expected=2 Got=1, got %+v", verr)
	}
}

func TestValidateSingleLineRecovery(t *testing.T) {
	tok := fixtureTok()
	batch := []workfile.Entry{{Index: 0, Source: "a"}}
	reply := "第一行\n第二行"
	results, err := Validate(reply, batch, tok)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].Target != "第一行第二行" {
		t.Errorf("expected collapsed target, got %q", results[0].Target)
	}
}

func TestValidateTrailingNewlineIsNotAnExtraLine(t *testing.T) {
	// A lone trailing "\n" is a reply terminator, matching Python's
	// str.splitlines(): it must not be counted as an extra empty line, so
	// this 1-line reply against a 2-entry batch is a count mismatch, not
	// an empty-line failure.
	batch := []workfile.Entry{{Index: 0, Source: "a"}, {Index: 1, Source: "b"}}
	_, err := Validate("你好\n", batch, fixtureTok())
	var verr *Error
	if !errors.As(err, &verr) || verr.Kind != KindCountMismatch {
		t.Fatalf("expected KindCountMismatch, got %v", err)
	}
	if verr.Expected != 2 || verr.Got != 1 {
		t.Errorf("expected Expected=2 Got=1, got %+v", verr)
	}
}

func TestValidateEmptyLineFails(t *testing.T) {
	batch := []workfile.Entry{{Index: 0, Source: "a"}, {Index: 1, Source: "b"}}
	_, err := Validate("你好\n\n", batch, fixtureTok())
	var verr *Error
	if !errors.As(err, &verr) || verr.Kind != KindEmptyLine {
		t.Fatalf("expected KindEmptyLine, got %v", err)
	}
}

func TestValidateSpeakerReconstruction(t *testing.T) {
	tok := fixtureTok()
	batch := []workfile.Entry{{Index: 0, Source: "「元気？」", Speaker: "Yuki", HasSpeaker: true}}
	line := "雪「" + tok.QS + "元気？" + tok.QE + "」"
	results, err := Validate(line, batch, tok)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if results[0].Target != "「元気？」" {
		t.Errorf("expected target 「元気？」, got %q", results[0].Target)
	}
	if results[0].TargetSpeaker != "雪" {
		t.Errorf("expected target_speaker 雪, got %q", results[0].TargetSpeaker)
	}
}

func TestValidateSpeakerReconstructionTruncatesAtLastQuote(t *testing.T) {
	tok := fixtureTok()
	batch := []workfile.Entry{{Index: 0, Source: "「test」", Speaker: "A", HasSpeaker: true}}
	// trailing garbage after the closing quote must be dropped
	line := "甲「body」trailing junk"
	results, err := Validate(line, batch, tok)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if results[0].Target != "body" {
		t.Errorf("expected target 'body', got %q", results[0].Target)
	}
}

func TestValidateNewlineRestoration(t *testing.T) {
	tok := fixtureTok()
	batch := []workfile.Entry{{Index: 0, Source: "multi"}}
	line := "第一行" + tok.NL + "第二行"
	results, err := Validate(line, batch, tok)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	want := "第一行\n第二行"
	if results[0].Target != want {
		t.Errorf("expected %q, got %q", want, results[0].Target)
	}
}

func TestDegenerationDetectsRepeatingSuffix(t *testing.T) {
	sourcesLen := 10
	repeated := strings.Repeat("ab", 40) // threshold = max(10,30) = 30, tLen=2 span=60 <= len
	if !Degeneration(repeated, sourcesLen) {
		t.Fatal("expected degeneration to be detected for a long repeating buffer")
	}
}

func TestDegenerationDetectsLengthRatio(t *testing.T) {
	sourcesLen := 10
	buffer := strings.Repeat("x", 20) // > 1.5 * 10 = 15
	if !Degeneration(buffer, sourcesLen) {
		t.Fatal("expected degeneration on excessive length ratio")
	}
}

func TestDegenerationFalseOnNormalReply(t *testing.T) {
	sourcesLen := 100
	buffer := "これは普通の返信です"
	if Degeneration(buffer, sourcesLen) {
		t.Fatal("expected no degeneration on a short normal reply")
	}
}
