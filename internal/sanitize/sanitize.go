// Package sanitize repairs common structural defects in generative model
// output before JSON parsing. It is a best-effort, total transformation:
// Sanitize always returns text, parse failures are for the caller to
// surface. Rules run as an ordered chain so each one stays independently
// testable.
package sanitize

import (
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// rule is one named rewrite in the chain. Every rule must be idempotent.
type rule struct {
	name  string
	apply func(string) string
}

var rules = []rule{
	{"fence", extractFenced},
	{"tuples", tuplesToArrays},
	{"trailing-commas", dropTrailingCommas},
	{"control-chars", stripControlChars},
	{"balance", balanceBrackets},
}

var (
	tupleRe         = regexp.MustCompile(`\((-?\d+(?:\.\d+)?),\s*(-?\d+(?:\.\d+)?)\)`)
	trailingCommaRe = regexp.MustCompile(`,(\s*[\]}])`)
)

// Sanitize applies the repair chain to raw model output. It never fails;
// the result may still be unparseable.
func Sanitize(raw string) string {
	out, _ := sanitize(raw)
	return out
}

// SanitizeLogged is Sanitize with debug logging of which rules changed
// the text. Recovered noise is never surfaced beyond the log.
func SanitizeLogged(raw string, logger *zap.Logger) string {
	out, applied := sanitize(raw)
	if len(applied) > 0 {
		logger.Debug("sanitized model output",
			zap.Strings("rules", applied),
			zap.Int("in_bytes", len(raw)),
			zap.Int("out_bytes", len(out)))
	}
	return out
}

func sanitize(raw string) (string, []string) {
	var applied []string
	text := raw
	for _, r := range rules {
		next := r.apply(text)
		if next != text {
			applied = append(applied, r.name)
		}
		text = next
	}
	return text, applied
}

// extractFenced pulls the inner content out of a ```json or plain ```
// fenced block. Text without a complete fence passes through unchanged.
func extractFenced(text string) string {
	for _, open := range []string{"```json\n", "```json\r\n", "```\n", "```\r\n"} {
		idx := strings.Index(text, open)
		if idx == -1 {
			continue
		}
		start := idx + len(open)
		end := strings.Index(text[start:], "```")
		if end == -1 {
			continue
		}
		return strings.TrimSpace(text[start : start+end])
	}
	return text
}

// tuplesToArrays rewrites bare numeric pairs (a, b) into [a, b]. Models
// trained on Python emit coordinate tuples, which JSON does not accept.
func tuplesToArrays(text string) string {
	return tupleRe.ReplaceAllString(text, "[$1, $2]")
}

// dropTrailingCommas removes commas that directly precede a closing
// bracket or brace. Runs to a fixpoint so stacked commas (",,]") do not
// survive a single pass and break idempotence.
func dropTrailingCommas(text string) string {
	for {
		next := trailingCommaRe.ReplaceAllString(text, "$1")
		if next == text {
			return text
		}
		text = next
	}
}

// stripControlChars removes bytes below 0x20 that strict parsers reject.
func stripControlChars(text string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 {
			return -1
		}
		return r
	}, text)
}

// balanceBrackets appends the minimum number of closers needed to reach
// brace and bracket count parity. It never removes openers and never
// inserts mid-text.
func balanceBrackets(text string) string {
	if open := strings.Count(text, "{") - strings.Count(text, "}"); open > 0 {
		text += strings.Repeat("}", open)
	}
	if open := strings.Count(text, "[") - strings.Count(text, "]"); open > 0 {
		text += strings.Repeat("]", open)
	}
	return text
}

// CarveJSON extracts the outermost {...} region of text, for use as a
// parse fallback when the sanitized text still carries prose around the
// payload. Returns text unchanged when no brace pair exists.
func CarveJSON(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return text
	}
	return text[start : end+1]
}
