package jsonutil

import (
	"strings"
)

const codeFence = "```"

// ExtractFenced returns the body of the first ``` block whose info string equals tag
// (case-insensitive). The body is trimmed; an empty body counts as not found.
func ExtractFenced(raw, tag string) (string, bool) {
	tag = strings.ToLower(strings.TrimSpace(tag))
	rest := raw
	for {
		start := strings.Index(rest, codeFence)
		if start == -1 {
			return "", false
		}
		rest = rest[start+len(codeFence):]
		end := strings.Index(rest, codeFence)
		if end == -1 {
			return "", false
		}
		block := rest[:end]
		rest = rest[end+len(codeFence):]

		info, body := block, ""
		if idx := strings.Index(block, "\n"); idx != -1 {
			info, body = block[:idx], block[idx+1:]
		}
		if strings.ToLower(strings.TrimSpace(info)) != tag {
			continue
		}
		body = strings.TrimSpace(body)
		if body == "" {
			return "", false
		}
		return body, true
	}
}

// ExtractObject returns the first balanced {...} object in raw, ignoring braces inside strings.
func ExtractObject(raw string) (string, bool) {
	start := strings.Index(raw, "{")
	if start == -1 {
		return "", false
	}
	depth := 0
	inString := false
	escape := false
	for i := start; i < len(raw); i++ {
		ch := raw[i]
		if inString {
			if escape {
				escape = false
				continue
			}
			if ch == '\\' {
				escape = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return strings.TrimSpace(raw[start : i+1]), true
			}
		}
	}
	return "", false
}
