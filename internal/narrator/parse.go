package narrator

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractJSON decodes the Response embedded in a model reply. Markdown code
// fences are stripped and the outermost {...} span is decoded.
//
// Postcondition: Returns the decoded (unsanitized) Response, an error wrapping
// ErrNoJSON when the text holds no object, or a wrapped decode error.
func ExtractJSON(text string) (Response, error) {
	body := strings.TrimSpace(text)
	if fenced, ok := unfence(body); ok {
		body = fenced
	}
	start := strings.Index(body, "{")
	end := strings.LastIndex(body, "}")
	if start < 0 || end < start {
		return Response{}, ErrNoJSON
	}
	var r Response
	if err := json.Unmarshal([]byte(body[start:end+1]), &r); err != nil {
		return Response{}, fmt.Errorf("decoding model reply: %w", err)
	}
	return r, nil
}

// unfence returns the contents of the first markdown code block in s.
func unfence(s string) (string, bool) {
	const fence = "```"
	open := strings.Index(s, fence)
	if open < 0 {
		return "", false
	}
	rest := s[open+len(fence):]
	rest = strings.TrimPrefix(rest, "json")
	end := strings.Index(rest, fence)
	if end < 0 {
		return strings.TrimSpace(rest), true
	}
	return strings.TrimSpace(rest[:end]), true
}

// ParseReply extracts and sanitizes the Response in a model reply.
func ParseReply(text string) (Response, error) {
	r, err := ExtractJSON(text)
	if err != nil {
		return Response{}, err
	}
	return Sanitize(r), nil
}
