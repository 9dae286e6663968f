// Package prompt assembles the two-message chat payload sent to an
// OpenAI-chat-completions-compatible endpoint: a fixed system message
// establishing the translator role, and a user message built from the
// current batch, the history window, and the applicable glossary terms.
package prompt

import (
	"strings"

	"vntransl/internal/glossary"
	"vntransl/internal/placeholder"
	"vntransl/internal/workfile"
)

// historySeparator joins history entries inline; distinct from the NL
// placeholder used for in-text line breaks.
const historySeparator = "<SEP>"

const systemPrompt = "你是一个视觉小说翻译模型，可以通顺地使用给定的术语表以指定的风格将日文翻译成简体中文，并联系上下文正确使用人称代词，注意不要混淆使役态和被动态的主语和宾语，不要擅自添加原文中没有的特殊符号，也不要擅自增加或减少换行。"

const template = "历史翻译：[History]\n参考以下术语表（可为空，格式为src->dst #备注）：\n[Glossary]\n根据以上术语表的对应关系和备注，结合历史剧情和上下文，将下面的文本从日文翻译成简体中文：\n[Input]"

// Hyperparameters carries the generation knobs forwarded verbatim into the
// wire request body.
type Hyperparameters struct {
	Temperature      float64
	TopP             float64
	PresencePenalty  float64
	FrequencyPenalty float64
}

// Message is one chat-completion message.
type Message struct {
	Role    string
	Content string
}

// Assembled is the payload the Streaming Client needs to issue a request:
// the two messages plus hyperparameters.
type Assembled struct {
	Messages []Message
	Params   Hyperparameters
}

// normalizeLF normalizes CRLF and lone CR to LF.
func normalizeLF(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

// transformBody applies the source-text transformation from a raw string
// belonging to entry e: normalize line endings, substitute the newline
// placeholder, then (if e has a speaker) substitute quote placeholders and
// wrap as speaker「body」.
func transformBody(text string, hasSpeaker bool, speakerDisplay string, tok placeholder.Triple) string {
	body := normalizeLF(text)
	body = strings.ReplaceAll(body, "\n", tok.NL)
	if hasSpeaker {
		body = strings.ReplaceAll(body, "「", tok.QS)
		body = strings.ReplaceAll(body, "」", tok.QE)
		return speakerDisplay + "「" + body + "」"
	}
	return body
}

// Build assembles the chat payload for one batch, given its history window,
// the model-facing glossary terms, the placeholder triple minted for the
// enclosing file, and the generation hyperparameters.
func Build(batch, history []workfile.Entry, terms []glossary.Term, tok placeholder.Triple, params Hyperparameters) Assembled {
	var rawBuf strings.Builder
	for _, e := range batch {
		rawBuf.WriteString(e.Source)
		rawBuf.WriteByte('\n')
	}
	rawText := rawBuf.String()

	historyParts := make([]string, len(history))
	for i, e := range history {
		speakerDisplay := e.Speaker
		if e.TargetSpeaker != "" {
			speakerDisplay = e.TargetSpeaker
		}
		historyParts[i] = transformBody(e.Target, e.HasSpeaker, speakerDisplay, tok)
	}
	historyBlock := strings.Join(historyParts, historySeparator)

	inputParts := make([]string, len(batch))
	for i, e := range batch {
		inputParts[i] = transformBody(e.Source, e.HasSpeaker, e.Speaker, tok)
	}
	inputBlock := strings.Join(inputParts, "\n")

	var glossaryLines []string
	for _, term := range terms {
		if !strings.Contains(rawText, term.Source) {
			continue
		}
		line := term.Source + "->" + term.Target
		if term.Description != "" {
			line += " #" + term.Description
		}
		glossaryLines = append(glossaryLines, line)
	}
	glossaryBlock := strings.Join(glossaryLines, "\n")

	userContent := template
	userContent = strings.Replace(userContent, "[History]", historyBlock, 1)
	userContent = strings.Replace(userContent, "[Glossary]", glossaryBlock, 1)
	userContent = strings.Replace(userContent, "[Input]", inputBlock, 1)

	return Assembled{
		Messages: []Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userContent},
		},
		Params: params,
	}
}
