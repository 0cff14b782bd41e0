// Package chat formats player-facing messages: {key} placeholders and
// '&'-prefixed colour codes translated to the client's '§' codes.
package chat

import "strings"

const (
	// AltColorChar is the colour prefix used in configuration files.
	AltColorChar = '&'
	// ColorChar is the colour prefix understood by clients.
	ColorChar = '§'
)

// Format replaces every {key} in tpl with its value.
// pairs is a flat key, value list; a trailing key without a value is ignored.
func Format(tpl string, pairs ...string) string {
	if len(pairs) < 2 || !strings.Contains(tpl, "{") {
		return tpl
	}
	args := make([]string, 0, len(pairs))
	for i := 0; i+1 < len(pairs); i += 2 {
		args = append(args, "{"+pairs[i]+"}", pairs[i+1])
	}
	return strings.NewReplacer(args...).Replace(tpl)
}

// Colorize translates "&c"-style codes into "§c". Only valid codes are
// translated; a lone '&' or "&z" is left as is.
func Colorize(s string) string {
	if !strings.ContainsRune(s, AltColorChar) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 8)
	for i := 0; i < len(s); i++ {
		if s[i] == AltColorChar && i+1 < len(s) && isCode(s[i+1]) {
			b.WriteRune(ColorChar)
			b.WriteByte(lower(s[i+1]))
			i++
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// Strip removes '§' colour codes, for logs and plain-text sinks.
func Strip(s string) string {
	if !strings.ContainsRune(s, ColorChar) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	rs := []rune(s)
	for i := 0; i < len(rs); i++ {
		if rs[i] == ColorChar && i+1 < len(rs) && rs[i+1] < 0x80 && isCode(byte(rs[i+1])) {
			i++
			continue
		}
		b.WriteRune(rs[i])
	}
	return b.String()
}

// Blank reports whether the message has nothing worth sending.
func Blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// isCode matches 0-9, a-f (colours), k-o (formats) and r (reset), any case.
func isCode(c byte) bool {
	c = lower(c)
	switch {
	case c >= '0' && c <= '9':
		return true
	case c >= 'a' && c <= 'f':
		return true
	case c >= 'k' && c <= 'o':
		return true
	case c == 'r':
		return true
	}
	return false
}

func lower(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}
