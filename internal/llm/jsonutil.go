package llm

import "strings"

// stripFences removes a surrounding markdown code block from a model reply,
// tolerating a language tag on the opening fence.
func stripFences(reply string) string {
	reply = strings.TrimSpace(reply)
	if !strings.HasPrefix(reply, "```") {
		return reply
	}
	lines := strings.Split(reply, "\n")
	end := len(lines)
	for i := len(lines) - 1; i >= 1; i-- {
		if strings.TrimSpace(lines[i]) == "```" {
			end = i
			break
		}
	}
	return strings.TrimSpace(strings.Join(lines[1:end], "\n"))
}

// firstJSONValue slices out the first balanced JSON object or array, for
// replies that wrap the payload in prose.
func firstJSONValue(reply string) string {
	start := -1
	var opener, closer byte
	for i := 0; i < len(reply); i++ {
		if reply[i] == '{' || reply[i] == '[' {
			start = i
			opener = reply[i]
			closer = '}'
			if opener == '[' {
				closer = ']'
			}
			break
		}
	}
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	for i := start; i < len(reply); i++ {
		c := reply[i]
		if inString {
			switch c {
			case '\\':
				i++
			case '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case opener:
			depth++
		case closer:
			depth--
			if depth == 0 {
				return reply[start : i+1]
			}
		}
	}
	return ""
}
