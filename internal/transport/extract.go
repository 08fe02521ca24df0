package transport

import (
	"encoding/json"

	"github.com/roshinpv1/promptshield/internal/coretypes"
)

// ExtractResponseText implements the response-extraction order from
// spec.md §4.2: choices[0].message.content, choices[0].text, response,
// output, text, then a bare top-level string. If none yields a non-empty
// string, the raw body is returned verbatim. If the body is recognized as
// an error envelope (an "error" key, or "error.message"), a non-retryable
// CoreError (TRANSPORT_EXTRACT_FAILED) is returned instead so the caller
// records an adapter_error Finding.
func ExtractResponseText(body []byte) (string, error) {
	var parsed any
	if err := json.Unmarshal(body, &parsed); err != nil {
		// Not JSON at all: treat the raw body as the response text.
		return string(body), nil
	}

	if errText, isErr := errorEnvelopeMessage(parsed); isErr {
		return "", coretypes.NewError(coretypes.TRANSPORT_EXTRACT_FAILED, "response is an error envelope: "+errText)
	}

	if s, ok := parsed.(string); ok && s != "" {
		return s, nil
	}

	obj, ok := parsed.(map[string]any)
	if !ok {
		return string(body), nil
	}

	if text, ok := digString(obj, "choices", 0, "message", "content"); ok && text != "" {
		return text, nil
	}
	if text, ok := digString(obj, "choices", 0, "text"); ok && text != "" {
		return text, nil
	}
	for _, key := range []string{"response", "output", "text"} {
		if s, ok := obj[key].(string); ok && s != "" {
			return s, nil
		}
	}

	return string(body), nil
}

// errorEnvelopeMessage reports whether parsed looks like an error envelope
// (a top-level "error" key, string or {"message": "..."}).
func errorEnvelopeMessage(parsed any) (string, bool) {
	obj, ok := parsed.(map[string]any)
	if !ok {
		return "", false
	}
	errVal, present := obj["error"]
	if !present {
		return "", false
	}
	switch e := errVal.(type) {
	case string:
		if e != "" {
			return e, true
		}
	case map[string]any:
		if msg, ok := e["message"].(string); ok && msg != "" {
			return msg, true
		}
		return "unspecified error", true
	}
	return "", false
}

// digString walks a mix of map keys and slice indices to reach a leaf
// string value, reporting ok=false if any step along the path is missing
// or of the wrong type.
func digString(root any, path ...any) (string, bool) {
	cur := root
	for _, step := range path {
		switch s := step.(type) {
		case string:
			m, ok := cur.(map[string]any)
			if !ok {
				return "", false
			}
			cur, ok = m[s]
			if !ok {
				return "", false
			}
		case int:
			arr, ok := cur.([]any)
			if !ok || s < 0 || s >= len(arr) {
				return "", false
			}
			cur = arr[s]
		}
	}
	s, ok := cur.(string)
	return s, ok
}
