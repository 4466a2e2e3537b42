// Package sanitize makes service-supplied strings safe to print on a terminal.
package sanitize

import (
	"net/netip"
	"strings"
	"unicode/utf8"
)

const DefaultMaxMessageLength = 256

// Terminal neutralizes control characters and ANSI escape sequences so a
// hostile detection service cannot drive the operator's terminal.
func Terminal(s string) string {
	if s == "" {
		return s
	}

	clean := true
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < 0x20 || c == 0x7F {
			clean = false
			break
		}
	}
	if clean {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))

	i := 0
	for i < len(s) {
		c := s[i]

		if c == 0x1B {
			i++
			if i < len(s) && s[i] == '[' {
				i++
				for i < len(s) && !isCSITerminator(s[i]) {
					i++
				}
				if i < len(s) {
					i++
				}
			}
			b.WriteString("[ESC]")
			continue
		}

		switch {
		case c == '\t', c == '\n':
			b.WriteByte(' ')
		case c == '\r':
			b.WriteString("[CR]")
		case c < 0x20:
			b.WriteString("[CTRL]")
		case c == 0x7F:
			b.WriteString("[DEL]")
		default:
			b.WriteByte(c)
		}
		i++
	}

	return b.String()
}

func isCSITerminator(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || c == '@' || c == '`'
}

// Truncate shortens s to at most maxLen runes, marking the cut with "...".
// maxLen <= 0 leaves s untouched.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// Message is Terminal followed by Truncate.
func Message(s string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = DefaultMaxMessageLength
	}
	return Truncate(Terminal(s), maxLen)
}

// IP keeps only characters that can appear in an IPv4 or IPv6 address.
func IP(ip string) string {
	var b strings.Builder
	b.Grow(len(ip))

	for _, r := range ip {
		if (r >= '0' && r <= '9') || r == '.' || r == ':' ||
			(r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F') {
			b.WriteRune(r)
		}
	}

	if b.Len() == 0 {
		return "[INVALID]"
	}
	return b.String()
}

// ValidIP reports whether s parses as an IPv4 or IPv6 address.
func ValidIP(s string) bool {
	_, err := netip.ParseAddr(s)
	return err == nil
}
