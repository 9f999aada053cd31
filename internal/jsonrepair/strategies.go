package jsonrepair

import (
	"regexp"
	"strings"
)

// A strategy rewrites raw model output into a candidate JSON document.
// Strategies are pure; they never mutate their input and never panic.
type strategy struct {
	name  string
	apply func(string) string
}

// strategies is the ordered cascade. Earlier entries are cheaper and
// less destructive; later entries sacrifice fidelity to recover
// something parseable.
var strategies = []strategy{
	{"trim", strings.TrimSpace},
	{"strip-code-fence", StripCodeFence},
	{"extract-json-block", ExtractJSONBlock},
	{"remove-chatter", RemoveChatter},
	{"trim-to-brackets", TrimToBrackets},
	{"strip-trailing-commas", StripTrailingCommas},
	{"close-unbalanced", CloseUnbalanced},
	{"cut-truncated-tail", CutTruncatedTail},
}

// StripCodeFence removes markdown code fences (```json ... ``` or
// bare ``` ... ```) around the payload, returning the fenced content.
func StripCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)

	for _, fence := range []string{"```json", "```JSON", "```"} {
		idx := strings.Index(trimmed, fence)
		if idx < 0 {
			continue
		}
		start := idx + len(fence)
		if end := strings.Index(trimmed[start:], "```"); end >= 0 {
			return strings.TrimSpace(trimmed[start : start+end])
		}
		// opening fence with no closing fence: take the rest
		return strings.TrimSpace(trimmed[start:])
	}
	return trimmed
}

// ExtractJSONBlock finds the first balanced top-level JSON object or
// array in the text and returns it. Brace counting ignores braces
// inside string literals.
func ExtractJSONBlock(text string) string {
	start := -1
	for i := 0; i < len(text); i++ {
		if text[i] == '{' || text[i] == '[' {
			start = i
			break
		}
	}
	if start < 0 {
		return text
	}

	var depth int
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	// never balanced; hand the tail to later strategies
	return text[start:]
}

// chatterPrefixes are conversational lead-ins models emit before the
// JSON payload. Both English and Chinese phrasings show up in practice.
var chatterPrefixes = []string{
	"here's", "here is", "sure", "certainly", "of course",
	"the json", "below is", "i've", "i have",
	"以下是", "这是", "好的", "根据",
}

// chatterSuffixes are trailing remarks appended after the payload.
var chatterSuffixes = []string{
	"hope this helps", "let me know",
	"希望", "如有", "请注意",
}

// RemoveChatter strips conversational prose before the first JSON
// bracket and after the last one.
func RemoveChatter(text string) string {
	lines := strings.Split(text, "\n")
	start, end := 0, len(lines)

	for start < end {
		line := strings.ToLower(strings.TrimSpace(lines[start]))
		if line == "" || hasAnyPrefix(line, chatterPrefixes) {
			start++
			continue
		}
		break
	}
	for end > start {
		line := strings.ToLower(strings.TrimSpace(lines[end-1]))
		if line == "" || hasAnyPrefix(line, chatterSuffixes) {
			end--
			continue
		}
		break
	}
	return strings.TrimSpace(strings.Join(lines[start:end], "\n"))
}

func hasAnyPrefix(line string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(line, p) {
			return true
		}
	}
	return false
}

// TrimToBrackets cuts everything before the first opening bracket and
// after the last closing bracket.
func TrimToBrackets(text string) string {
	start := strings.IndexAny(text, "{[")
	if start < 0 {
		return text
	}
	end := strings.LastIndexAny(text, "}]")
	if end < start {
		return text[start:]
	}
	return text[start : end+1]
}

var trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)

// StripTrailingCommas removes commas that precede a closing brace or
// bracket, a common model output defect.
func StripTrailingCommas(text string) string {
	return trailingCommaRe.ReplaceAllString(text, "$1")
}

// CloseUnbalanced appends closing braces and brackets for any that
// were opened but never closed, in reverse opening order.
func CloseUnbalanced(text string) string {
	var stack []byte
	inString := false
	escaped := false
	for i := 0; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) > 0 && stack[len(stack)-1] == c {
				stack = stack[:len(stack)-1]
			}
		}
	}

	out := text
	if inString {
		out += `"`
	}
	for i := len(stack) - 1; i >= 0; i-- {
		out += string(stack[i])
	}
	return out
}

// CutTruncatedTail handles responses cut off mid-value: it drops the
// text after the last complete key-value pair and closes what remains.
func CutTruncatedTail(text string) string {
	start := strings.IndexAny(text, "{[")
	if start < 0 {
		return text
	}

	// walk back to the last comma or closing bracket at a sane position
	last := -1
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '}', ']':
			last = i
		case ',':
			last = i - 1
		}
	}
	if last <= start {
		return text
	}
	return CloseUnbalanced(text[start : last+1])
}
