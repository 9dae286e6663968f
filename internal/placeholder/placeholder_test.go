package placeholder

import (
	"strings"
	"testing"
)

func TestMintAvoidsCollision(t *testing.T) {
	corpus := "some japanese text 「こんにちは」\nwith a newline"
	tok, err := Mint("NL", corpus)
	if err != nil {
		t.Fatalf("Mint returned error: %v", err)
	}
	if strings.Contains(corpus, tok) {
		t.Fatalf("minted token %q collides with corpus", tok)
	}
	if !strings.HasPrefix(tok, "<NL-") || !strings.HasSuffix(tok, ">") {
		t.Fatalf("token %q does not match <base-N> format", tok)
	}
}

func TestMintTripleDistinctTokens(t *testing.T) {
	corpus := "ただのテキスト"
	triple, err := MintTriple(corpus)
	if err != nil {
		t.Fatalf("MintTriple returned error: %v", err)
	}
	if triple.NL == triple.QS || triple.NL == triple.QE || triple.QS == triple.QE {
		t.Fatalf("expected distinct tokens, got %+v", triple)
	}
	for _, tok := range []string{triple.NL, triple.QS, triple.QE} {
		if strings.Contains(corpus, tok) {
			t.Fatalf("token %q collides with corpus", tok)
		}
	}
}

func TestMintTokenNeverEmpty(t *testing.T) {
	tok, err := Mint("QS", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tok == "" {
		t.Fatal("expected non-empty token")
	}
}
