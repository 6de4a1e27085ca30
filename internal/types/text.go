package types

import (
	"strings"
	"unicode/utf8"
)

// IsXMLChar reports whether r may appear in an XML 1.0 document.
func IsXMLChar(r rune) bool {
	switch {
	case r == '\t' || r == '\n' || r == '\r':
		return true
	case r >= 0x20 && r <= 0xD7FF:
		return true
	case r >= 0xE000 && r <= 0xFFFD:
		return true
	case r >= 0x10000 && r <= 0x10FFFF:
		return true
	}
	return false
}

// StripNonXML removes the runes XML 1.0 cannot carry, such as the ANSI
// escapes found in pasted terminal logs. Invalid UTF-8 becomes U+FFFD.
func StripNonXML(s string) string {
	if validXMLText(s) {
		return s
	}
	return strings.Map(func(r rune) rune {
		if IsXMLChar(r) {
			return r
		}
		return -1
	}, s)
}

func validXMLText(s string) bool {
	return utf8.ValidString(s) && strings.IndexFunc(s, func(r rune) bool { return !IsXMLChar(r) }) < 0
}
