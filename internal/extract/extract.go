// Package extract normalizes heterogeneous provider response shapes
// into plain text or image references.
package extract

import (
	"encoding/json"
	"fmt"
)

type Kind string

const (
	KindURL    Kind = "url"
	KindBase64 Kind = "b64"
)

// ImageRef points at a generated image, either by URL or as inline
// base64 payload.
type ImageRef struct {
	Kind    Kind
	Payload string
}

// Decode turns a raw JSON body into the generic value Text and Image
// operate on. Invalid JSON is returned as a string so callers still
// get the best-effort fallback.
func Decode(raw json.RawMessage) any {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	return v
}

// Text extracts the generated text from a chat-style response. Shapes
// are tried in order: plain string, {content}, {choices:[{message:
// {content}}]}, {text}. Unrecognized shapes degrade to a best-effort
// string rendering; Text never fails.
func Text(v any) string {
	switch resp := v.(type) {
	case string:
		return resp
	case map[string]any:
		if content, ok := resp["content"].(string); ok {
			return content
		}
		if choices, ok := resp["choices"].([]any); ok && len(choices) > 0 {
			if choice, ok := choices[0].(map[string]any); ok {
				if message, ok := choice["message"].(map[string]any); ok {
					if content, ok := message["content"].(string); ok {
						return content
					}
				}
			}
		}
		if text, ok := resp["text"].(string); ok {
			return text
		}
	case fmt.Stringer:
		return resp.String()
	}
	return fmt.Sprintf("%v", v)
}

// Image extracts an image reference from an image-generation
// response. One level of {result:{...}} nesting is unwrapped; the
// "images" or "data" list is scanned, falling back to the object
// itself; within the chosen item a url field wins over inline
// content/b64_json. Returns false on any unrecognized shape.
func Image(v any) (ImageRef, bool) {
	switch resp := v.(type) {
	case map[string]any:
		if result, ok := resp["result"].(map[string]any); ok {
			return Image(result)
		}
		return imageFromItem(firstItem(resp))
	case []any:
		if len(resp) == 0 {
			return ImageRef{}, false
		}
		return imageFromItem(resp[0])
	}
	return ImageRef{}, false
}

func firstItem(resp map[string]any) any {
	var items []any
	if list, ok := resp["images"].([]any); ok {
		items = list
	} else if list, ok := resp["data"].([]any); ok {
		items = list
	}
	if len(items) > 0 {
		return items[0]
	}
	return resp
}

func imageFromItem(item any) (ImageRef, bool) {
	first, ok := item.(map[string]any)
	if !ok {
		return ImageRef{}, false
	}
	if url, ok := first["url"].(string); ok && url != "" {
		return ImageRef{Kind: KindURL, Payload: url}, true
	}
	if content, ok := first["content"].(string); ok && content != "" {
		return ImageRef{Kind: KindBase64, Payload: content}, true
	}
	if b64, ok := first["b64_json"].(string); ok && b64 != "" {
		return ImageRef{Kind: KindBase64, Payload: b64}, true
	}
	return ImageRef{}, false
}
