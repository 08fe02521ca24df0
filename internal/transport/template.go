package transport

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/roshinpv1/promptshield/internal/coretypes"
)

const (
	promptPlaceholder       = "{prompt}"
	systemPromptPlaceholder = "{system_prompt}"
)

// RenderPayload implements the two-pass renderer from spec.md §4.2 / §9
// (Design Notes): string-substitute the placeholders into the raw JSON
// text, then parse. If the parsed object has no "messages" array but
// contains either placeholder, a messages array is synthesized with a
// system entry (if system_prompt was provided) followed by a user entry.
// Otherwise the parsed object is returned unchanged.
func RenderPayload(template, prompt, systemPrompt string) ([]byte, error) {
	if strings.TrimSpace(template) == "" {
		return nil, coretypes.NewError(coretypes.TRANSPORT_RENDER_FAILED, "payload template is empty")
	}

	rendered := substitutePlaceholders(template, prompt, systemPrompt)

	var obj map[string]any
	if err := json.Unmarshal([]byte(rendered), &obj); err != nil {
		return nil, coretypes.WrapError(coretypes.TRANSPORT_RENDER_FAILED, "rendered payload is not valid JSON", err)
	}

	hasPlaceholder := strings.Contains(template, promptPlaceholder) || strings.Contains(template, systemPromptPlaceholder)
	_, hasMessages := obj["messages"]

	if hasPlaceholder && !hasMessages {
		messages := make([]map[string]string, 0, 2)
		if systemPrompt != "" {
			messages = append(messages, map[string]string{"role": "system", "content": systemPrompt})
		}
		messages = append(messages, map[string]string{"role": "user", "content": prompt})
		obj["messages"] = messages
	}

	out, err := json.Marshal(obj)
	if err != nil {
		return nil, coretypes.WrapError(coretypes.TRANSPORT_RENDER_FAILED, "failed to re-marshal rendered payload", err)
	}
	return out, nil
}

// substitutePlaceholders replaces every occurrence of {prompt} and
// {system_prompt} in the raw template text. Substitution happens before
// JSON parsing so the caller's JSON structure (and any pre-existing escape
// sequences) is preserved verbatim.
func substitutePlaceholders(template, prompt, systemPrompt string) string {
	r := strings.NewReplacer(
		promptPlaceholder, jsonEscape(prompt),
		systemPromptPlaceholder, jsonEscape(systemPrompt),
	)
	return r.Replace(template)
}

// jsonEscape escapes s for safe inlining inside a JSON string literal that
// the template already quotes (i.e. `"{prompt}"` in the template becomes
// `"escaped text"`).
func jsonEscape(s string) string {
	b, _ := json.Marshal(s)
	// json.Marshal wraps the string in quotes; strip them since the
	// template supplies its own surrounding quotes.
	if len(b) >= 2 {
		return string(b[1 : len(b)-1])
	}
	return fmt.Sprintf("%v", s)
}
