// Package entity decodes the HTML character entities that providers leave in
// titles, descriptions and post bodies.
package entity

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

var numericEntity = regexp.MustCompile(`&#([0-9]{1,7}|[xX][0-9a-fA-F]{1,6});`)

var namedEntities = strings.NewReplacer(
	"&apos;", "'",
	"&quot;", `"`,
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&nbsp;", " ",
	"&lsquo;", "‘",
	"&rsquo;", "’",
	"&ldquo;", "“",
	"&rdquo;", "”",
)

// Decode replaces numeric entities (&#39;, &#x27;) and a fixed set of named
// entities with their literal characters. Numeric entities are resolved before
// named ones, and the text is decoded until it stops changing, so
// Decode(Decode(s)) == Decode(s).
func Decode(text string) string {
	if !strings.Contains(text, "&") {
		return text
	}
	for {
		next := decodeOnce(text)
		if next == text {
			return text
		}
		// every substitution shortens the text, so this terminates
		text = next
	}
}

func decodeOnce(text string) string {
	text = numericEntity.ReplaceAllStringFunc(text, func(match string) string {
		r, ok := codePoint(match[2 : len(match)-1])
		if !ok {
			return match
		}
		return string(r)
	})
	return namedEntities.Replace(text)
}

func codePoint(ref string) (rune, bool) {
	base := 10
	if ref[0] == 'x' || ref[0] == 'X' {
		base = 16
		ref = ref[1:]
	}
	n, err := strconv.ParseInt(ref, base, 32)
	if err != nil {
		return 0, false
	}
	r := rune(n)
	if r == 0 || !utf8.ValidRune(r) {
		return 0, false
	}
	return r, true
}
