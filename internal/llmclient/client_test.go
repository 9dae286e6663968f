package llmclient

import (
	"testing"
	"time"

	"vntransl/internal/prompt"
)

func assembledFixture() prompt.Assembled {
	return prompt.Assembled{
		Messages: []prompt.Message{
			{Role: "system", Content: "sys"},
			{Role: "user", Content: "user"},
		},
		Params: prompt.Hyperparameters{Temperature: 0.3, TopP: 0.8, PresencePenalty: 0.1, FrequencyPenalty: 0.2},
	}
}

func TestBuildParamsSetsModelAndMessages(t *testing.T) {
	params := buildParams("test-model", assembledFixture())

	if string(params.Model) != "test-model" {
		t.Errorf("expected model test-model, got %s", params.Model)
	}
	if len(params.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(params.Messages))
	}
	if params.Messages[0].OfSystem == nil {
		t.Error("expected first message to be a system message")
	}
	if params.Messages[1].OfUser == nil {
		t.Error("expected second message to be a user message")
	}
}

func TestBuildParamsDefaultsNonSystemRolesToUser(t *testing.T) {
	assembled := prompt.Assembled{
		Messages: []prompt.Message{{Role: "assistant", Content: "hi"}},
	}
	params := buildParams("m", assembled)
	if params.Messages[0].OfUser == nil {
		t.Error("expected a non-system role to fall back to a user message")
	}
}

func TestNewRejectsMalformedProxyURL(t *testing.T) {
	_, err := New("http://localhost:1234", "m", 5*time.Second, "://bad-proxy")
	if err == nil {
		t.Fatal("expected an error for a malformed proxy URL")
	}
}

func TestErrorFormatsKindAndMessage(t *testing.T) {
	err := transportErrorf("boom: %d", 42)
	var clientErr *Error
	if e, ok := err.(*Error); ok {
		clientErr = e
	} else {
		t.Fatalf("expected *Error, got %T", err)
	}
	if clientErr.Kind != KindTransport {
		t.Errorf("expected KindTransport, got %s", clientErr.Kind)
	}
	if clientErr.Error() != "llmclient: transport: boom: 42" {
		t.Errorf("unexpected error string: %s", clientErr.Error())
	}
}
