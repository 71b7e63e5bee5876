package urlsafety

import (
	"regexp"
	"strings"
	"unicode"
)

// absoluteSchemeRe matches a hierarchical scheme prefix such as "https://".
var absoluteSchemeRe = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.\-]*://`)

// opaqueSchemes are schemes that are recognised without a "//" authority.
var opaqueSchemes = []string{
	"mailto:",
	"tel:",
	"sms:",
	"data:",
	"blob:",
	"javascript:",
	"vbscript:",
	"file:",
}

// Sanitize removes ASCII control characters (0x00-0x1F and 0x7F) and trims
// surrounding whitespace. The result never contains a control character and
// Sanitize(Sanitize(s)) == Sanitize(s).
func Sanitize(raw string) string {
	if raw == "" {
		return ""
	}
	cleaned := strings.Map(func(r rune) rune {
		if isControl(r) {
			return -1
		}
		return r
	}, raw)
	return strings.TrimFunc(cleaned, isTrimmable)
}

func isControl(r rune) bool {
	return r < 0x20 || r == 0x7F
}

// isTrimmable mirrors String.prototype.trim: Unicode white space plus the BOM.
func isTrimmable(r rune) bool {
	return unicode.IsSpace(r) || r == '\uFEFF'
}

// NormalizeURL sanitizes raw and prefixes "https://" when it carries no scheme.
// Relative references (/path, #frag, ?q, ./x) are returned unchanged. The
// result is not validated; pass it through ValidateLinkURL before use.
func NormalizeURL(raw string) string {
	s := Sanitize(raw)
	if s == "" || hasScheme(s) || isRelativeReference(s) {
		return s
	}
	return "https://" + s
}

func hasScheme(s string) bool {
	if absoluteSchemeRe.MatchString(s) {
		return true
	}
	lower := strings.ToLower(s)
	for _, scheme := range opaqueSchemes {
		if strings.HasPrefix(lower, scheme) {
			return true
		}
	}
	return false
}

func isRelativeReference(s string) bool {
	switch s[0] {
	case '/', '#', '?', '.':
		return true
	}
	return false
}
