package urlsafety

import (
	"net/url"
	"strings"
)

// Scheme tokens as they appear at the start of a lowercased URL.
const (
	schemeHTTP       = "http:"
	schemeHTTPS      = "https:"
	schemeMailto     = "mailto:"
	schemeTel        = "tel:"
	schemeJavascript = "javascript:"
	schemeVBScript   = "vbscript:"
	schemeData       = "data:"
	schemeFile       = "file:"
	schemeBlob       = "blob:"

	dataImagePrefix = "data:image/"
)

// DangerousProtocols can execute script or read local resources when
// rendered or navigated. They are rejected in link context.
var DangerousProtocols = []string{
	schemeJavascript,
	schemeVBScript,
	schemeData,
	schemeFile,
}

// scriptProtocols are rejected in every context, including images.
var scriptProtocols = []string{
	schemeJavascript,
	schemeVBScript,
}

// imageFetchProtocols are the schemes an image source may be fetched over.
var imageFetchProtocols = map[string]bool{
	schemeHTTP:  true,
	schemeHTTPS: true,
}

// HasDangerousProtocol reports whether raw, once sanitized, starts with one
// of DangerousProtocols. Matching is case-insensitive.
func HasDangerousProtocol(raw string) bool {
	return dangerousPrefix(strings.ToLower(Sanitize(raw)), DangerousProtocols) != ""
}

// dangerousPrefix returns the first entry of list that lower starts with.
func dangerousPrefix(lower string, list []string) string {
	for _, p := range list {
		if strings.HasPrefix(lower, p) {
			return p
		}
	}
	return ""
}

// IsAllowedLinkProtocol reports whether protocol (lowercase, with trailing
// colon) may be used as a link target under opts.
func IsAllowedLinkProtocol(protocol string, opts LinkOptions) bool {
	switch protocol {
	case schemeHTTP, schemeHTTPS:
		return true
	case schemeMailto:
		return opts.AllowMailto()
	case schemeTel:
		return opts.AllowTel()
	}
	return false
}

// parseAbsolute is the strict parse step. It succeeds only for URLs with a
// scheme; ok == false marks a relative reference or an unparseable string,
// both of which are expected inputs rather than errors.
func parseAbsolute(sanitized string) (u *url.URL, ok bool) {
	u, err := url.Parse(sanitized)
	if err != nil || u.Scheme == "" {
		return nil, false
	}
	return u, true
}

// bracketedHost pulls the host out of an absolute URL whose authority is a
// bracketed IPv6 literal, for URLs parseAbsolute refuses. proto is in
// "scheme:" form.
func bracketedHost(sanitized string) (proto, host string, ok bool) {
	if !absoluteSchemeRe.MatchString(sanitized) {
		return "", "", false
	}
	scheme, rest, _ := strings.Cut(sanitized, "://")
	authority := rest
	if i := strings.IndexAny(rest, "/?#"); i >= 0 {
		authority = rest[:i]
	}
	if i := strings.LastIndexByte(authority, '@'); i >= 0 {
		authority = authority[i+1:]
	}
	if !strings.HasPrefix(authority, "[") {
		return "", "", false
	}
	end := strings.IndexByte(authority, ']')
	if end < 0 {
		return "", "", false
	}
	return strings.ToLower(scheme) + ":", authority[1:end], true
}

// protocolOf renders the scheme of u in "scheme:" form.
func protocolOf(u *url.URL) string {
	return strings.ToLower(u.Scheme) + ":"
}
