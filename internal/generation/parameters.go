package generation

import (
	"encoding/json"
	"regexp"
	"strings"
)

// negativePromptPrefix marks the start of the negative-prompt section
// inside the narrative lines.
const negativePromptPrefix = "Negative prompt:"

// minTailPairs is the plausibility threshold for treating the last line as
// a key-value tail; below it the line is folded back into the narrative.
const minTailPairs = 3

var imageSizeRe = regexp.MustCompile(`^(\d+)x(\d+)$`)

// ParseParameters splits a raw generation-parameters blob into prompt,
// negative prompt, and the key-value tail of the last line.
//
// It never fails: malformed input degrades to populated prompt fields and
// an empty tail.
func ParseParameters(raw string) Fields {
	fields := Fields{Tail: make(map[string]string)}

	lines := strings.Split(strings.TrimSpace(raw), "\n")
	lastLine := lines[len(lines)-1]
	lines = lines[:len(lines)-1]

	if len(scanTailPairs(lastLine)) < minTailPairs {
		lines = append(lines, lastLine)
		lastLine = ""
	}

	var prompt, negative []string
	doneWithPrompt := false
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, negativePromptPrefix) {
			doneWithPrompt = true
			line = strings.TrimSpace(line[len(negativePromptPrefix):])
		}
		if doneWithPrompt {
			negative = append(negative, line)
		} else {
			prompt = append(prompt, line)
		}
	}
	fields.Prompt = strings.Join(prompt, "\n")
	fields.NegativePrompt = strings.Join(negative, "\n")

	for _, pair := range scanTailPairs(lastLine) {
		value := pair.value
		if len(value) >= 2 && value[0] == '"' && value[len(value)-1] == '"' {
			value = unquote(value)
		}
		// A WxH value also yields numeric width/height fields; the
		// composite value is kept under its own key as well.
		if m := imageSizeRe.FindStringSubmatch(value); m != nil {
			fields.Tail[FieldWidth] = m[1]
			fields.Tail[FieldHeight] = m[2]
		}
		fields.Tail[pair.key] = value
	}

	return fields
}

type tailPair struct {
	key   string
	value string
}

// scanTailPairs tokenizes a tail line of comma-separated "key: value"
// pairs. Values may be double-quoted with backslash escapes, in which case
// commas and colons inside the quotes are not separators. Segments that do
// not look like a key-value pair are skipped.
func scanTailPairs(line string) []tailPair {
	var pairs []tailPair

	i, n := 0, len(line)
	for i < n {
		// Skip separators between pairs.
		for i < n && (line[i] == ' ' || line[i] == '\t' || line[i] == ',') {
			i++
		}
		if i >= n {
			break
		}

		// Scan the key up to the colon.
		start := i
		valid := true
		for i < n && line[i] != ':' {
			if !isKeyChar(line[i]) {
				valid = false
				break
			}
			i++
		}
		if !valid || i >= n {
			// Not a recognizable pair, drop the segment up to the next
			// top-level comma.
			for i < n && line[i] != ',' {
				i++
			}
			continue
		}
		key := strings.TrimSpace(line[start:i])
		i++ // consume ':'

		for i < n && line[i] == ' ' {
			i++
		}

		var value string
		if i < n && line[i] == '"' {
			j := i + 1
			for j < n {
				if line[j] == '\\' && j+1 < n {
					j += 2
					continue
				}
				if line[j] == '"' {
					break
				}
				j++
			}
			if j < n {
				value = line[i : j+1]
				i = j + 1
			} else {
				// Unterminated quote, take the rest verbatim.
				value = line[i:]
				i = n
			}
		} else {
			j := i
			for j < n && line[j] != ',' {
				j++
			}
			value = strings.TrimSpace(line[i:j])
			i = j
		}

		if key == "" {
			continue
		}
		pairs = append(pairs, tailPair{key: key, value: value})
	}

	return pairs
}

// isKeyChar reports whether c may appear in a tail key: word characters
// and spaces, matching the "Model hash"-style keys the pipeline emits.
func isKeyChar(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c == '_' || c == ' ':
		return true
	}
	return false
}

// unquote decodes a double-quoted value with JSON string semantics. A
// value that fails to decode is returned unmodified rather than dropped.
func unquote(text string) string {
	if len(text) == 0 || text[0] != '"' || text[len(text)-1] != '"' {
		return text
	}
	var s string
	if err := json.Unmarshal([]byte(text), &s); err != nil {
		return text
	}
	return s
}
