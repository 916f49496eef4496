// Package normalize converts heterogeneous backend response payloads
// into one canonical (text, tools-used, sources) triple. Backend
// vendors return structurally incompatible payloads for conceptually
// identical results; centralizing the lenient shape sniffing here keeps
// dialect knowledge out of the rest of the system.
//
// Normalization is total: it never fails, and any shape it cannot
// recognize degrades to a textual coercion of the whole value.
package normalize

import (
	"strings"

	"github.com/tidwall/gjson"
)

// Reply is the canonical result of one backend call.
type Reply struct {
	Text    string
	Tools   []string
	Sources []map[string]any
}

// dialectMatcher is one named response-shape recognizer: a predicate
// over the parsed payload plus a text extractor. Matchers are tried in
// a fixed precedence order; an extractor may report no text, which
// falls through to the next dialect.
type dialectMatcher struct {
	name    string
	match   func(v gjson.Result) bool
	extract func(v gjson.Result) (string, bool)
}

// textDialects lists the recognized response shapes in precedence order.
var textDialects = []dialectMatcher{
	{
		// Structured-output shape: top-level "output" list whose items
		// hold nested content entries with text fields.
		name:  "structured-output",
		match: func(v gjson.Result) bool { return v.Get("output").IsArray() },
		extract: func(v gjson.Result) (string, bool) {
			var lines []string
			v.Get("output").ForEach(func(_, item gjson.Result) bool {
				item.Get("content").ForEach(func(_, entry gjson.Result) bool {
					if text := entry.Get("text"); text.Exists() {
						lines = append(lines, text.String())
					}
					return true
				})
				return true
			})
			if len(lines) == 0 {
				return "", false
			}
			return strings.Join(lines, "\n"), true
		},
	},
	{
		// Chat-completion shape: choices[0].message.content. Absent or
		// empty content is an empty reply, not a failure.
		name: "chat-completion",
		match: func(v gjson.Result) bool {
			return v.Get("choices").IsArray() && v.Get("choices.0.message").Exists()
		},
		extract: func(v gjson.Result) (string, bool) {
			return v.Get("choices.0.message.content").String(), true
		},
	},
	{
		// Direct "content" field, either plain text or a list of
		// entries carrying text fields.
		name:  "direct-content",
		match: func(v gjson.Result) bool { return v.Get("content").Exists() },
		extract: func(v gjson.Result) (string, bool) {
			content := v.Get("content")
			if content.Type == gjson.String {
				return content.String(), true
			}
			if content.IsArray() {
				var lines []string
				content.ForEach(func(_, entry gjson.Result) bool {
					if text := entry.Get("text"); text.Exists() {
						lines = append(lines, text.String())
					} else if entry.Type == gjson.String {
						lines = append(lines, entry.String())
					}
					return true
				})
				return strings.Join(lines, "\n"), true
			}
			return "", false
		},
	},
}

// Normalize extracts the canonical triple from a raw response body.
func Normalize(raw []byte) Reply {
	// Not JSON at all: the payload is already plain text.
	if !gjson.ValidBytes(raw) {
		return Reply{Text: string(raw), Tools: []string{}, Sources: []map[string]any{}}
	}

	v := gjson.ParseBytes(raw)
	if v.Type == gjson.String {
		return Reply{Text: v.String(), Tools: []string{}, Sources: []map[string]any{}}
	}

	return Reply{
		Text:    extractText(v),
		Tools:   extractTools(v),
		Sources: extractSources(v),
	}
}

func extractText(v gjson.Result) string {
	for _, d := range textDialects {
		if !d.match(v) {
			continue
		}
		if text, ok := d.extract(v); ok {
			return text
		}
	}
	// Fallback: stringified representation of the whole value.
	return v.Raw
}

// extractTools collects the tool identifiers reported by either
// dialect: a top-level "tools" list (structured-output) or
// choices[0].message.tool_calls (chat-completion).
func extractTools(v gjson.Result) []string {
	tools := []string{}

	v.Get("tools").ForEach(func(_, tool gjson.Result) bool {
		if name := tool.Get("type"); name.Exists() {
			tools = append(tools, name.String())
		} else if name := tool.Get("name"); name.Exists() {
			tools = append(tools, name.String())
		} else if tool.Type == gjson.String {
			tools = append(tools, tool.String())
		}
		return true
	})

	v.Get("choices.0.message.tool_calls").ForEach(func(_, call gjson.Result) bool {
		if name := call.Get("function.name"); name.Exists() {
			tools = append(tools, name.String())
		}
		return true
	})

	return tools
}

// extractSources collects citation annotations from either dialect.
// Structured-output nests them under output[].content[].annotations;
// the chat dialect reports message.annotations entries tagged
// "url_citation". Records are copied through as-is when they are
// already key-value documents; anything unconvertible becomes
// {"annotation": <string form>}.
func extractSources(v gjson.Result) []map[string]any {
	sources := []map[string]any{}

	v.Get("output").ForEach(func(_, item gjson.Result) bool {
		item.Get("content").ForEach(func(_, entry gjson.Result) bool {
			entry.Get("annotations").ForEach(func(_, ann gjson.Result) bool {
				sources = append(sources, toRecord(ann))
				return true
			})
			return true
		})
		return true
	})

	v.Get("choices.0.message.annotations").ForEach(func(_, ann gjson.Result) bool {
		if ann.Get("type").String() != "url_citation" {
			return true
		}
		if cite := ann.Get("url_citation"); cite.IsObject() {
			sources = append(sources, toRecord(cite))
		} else {
			sources = append(sources, toRecord(ann))
		}
		return true
	})

	return sources
}

// toRecord converts an annotation value into a citation record.
func toRecord(ann gjson.Result) map[string]any {
	if ann.IsObject() {
		if m, ok := ann.Value().(map[string]any); ok {
			return m
		}
	}
	return map[string]any{"annotation": ann.String()}
}
