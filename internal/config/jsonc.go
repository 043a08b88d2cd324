package config

import "errors"

// normalizeJSONC rewrites JSONC into strict JSON of the same length:
// comments become spaces and trailing commas become spaces, so decode
// error offsets still point at the author's text.
func normalizeJSONC(content string) (string, error) {
	out := make([]byte, 0, len(content))

	const (
		stateCode = iota
		stateString
		stateLineComment
		stateBlockComment
	)
	state := stateCode
	escaped := false
	pendingComma := -1

	blank := func(ch byte) byte {
		if ch == '\n' || ch == '\r' || ch == '\t' {
			return ch
		}
		return ' '
	}

	for i := 0; i < len(content); i++ {
		ch := content[i]

		switch state {
		case stateLineComment:
			if ch == '\n' || ch == '\r' {
				state = stateCode
			}
			out = append(out, blank(ch))

		case stateBlockComment:
			if ch == '*' && i+1 < len(content) && content[i+1] == '/' {
				state = stateCode
				out = append(out, ' ', ' ')
				i++
				continue
			}
			out = append(out, blank(ch))

		case stateString:
			out = append(out, ch)
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				state = stateCode
			}

		default:
			if ch == '/' && i+1 < len(content) {
				if content[i+1] == '/' {
					state = stateLineComment
					out = append(out, ' ', ' ')
					i++
					continue
				}
				if content[i+1] == '*' {
					state = stateBlockComment
					out = append(out, ' ', ' ')
					i++
					continue
				}
			}
			if ch == ',' {
				pendingComma = len(out)
				out = append(out, ch)
				continue
			}
			if ch == '}' || ch == ']' {
				if pendingComma >= 0 {
					out[pendingComma] = ' '
				}
			}
			if !isJSONSpace(ch) {
				pendingComma = -1
			}
			if ch == '"' {
				state = stateString
			}
			out = append(out, ch)
		}
	}

	if state == stateBlockComment {
		return "", errors.New("unterminated block comment in JSONC")
	}

	return string(out), nil
}

func isJSONSpace(ch byte) bool {
	switch ch {
	case ' ', '\n', '\r', '\t':
		return true
	default:
		return false
	}
}
