// Package urlsafety decides whether a URL taken from editor content is safe to
// render or safe for a server process to fetch.
//
// # Overview
//
// Every entry point is a pure function from an untrusted string (plus options)
// to a verdict. Nothing here performs DNS lookups or network I/O, logs, or
// holds state between calls, so all functions are safe for concurrent use.
//
// # Pipeline
//
//	raw string
//	  → Sanitize              strip 0x00-0x1F / 0x7F, trim whitespace
//	  → protocol policy       dangerous-scheme table, link or image rules
//	  → ParseIPv4Host         decimal, octal, hex, integer, shorthand, IPv6-mapped forms
//	  → Classify              loopback, private, link-local, cloud metadata
//	  → ValidationResult
//
// Sanitizing comes first because control characters interposed in a scheme
// (java\tscript:) defeat naive prefix checks while browsers still honour them.
//
// # Link vs image contexts
//
// Link targets are navigated by the reader's own browser, so ValidateLinkURL
// only guards against script-bearing schemes:
//
//   - Allows http, https, mailto and tel (mailto/tel can be disabled)
//   - Allows relative references (/path, #anchor, example.com/page)
//   - Rejects javascript:, vbscript:, data: and file:
//
// Image and file sources may be fetched server-side, so IsSafeImageURL adds
// SSRF checks on top of the protocol rules:
//
//   - Allows data:image/... and blob: (each can be disabled)
//   - Blocks localhost and the 127.0.0.0/8 loopback range
//   - Blocks RFC 1918 ranges, 0.0.0.0/8 and 169.254.0.0/16
//   - Blocks cloud metadata endpoints (169.254.169.254, metadata.google.internal, ...)
//
// # IP Address Encodings
//
// Browsers and HTTP clients accept several spellings of the same IPv4 address.
// All of them normalize to the same octets before classification:
//
//	127.0.0.1  2130706433  0x7f000001  0177.0.0.1  0x7f.0.0.1  [::ffff:127.0.0.1]
//
// # Usage
//
//	import "github.com/c360studio/urlguard/urlsafety"
//
//	// Render a link
//	href := urlsafety.GetSafeHref(userInput)
//
//	// Validate an image source before fetching it
//	res := urlsafety.IsSafeImageURL(src, urlsafety.ImageOptions{})
//	if !res.IsValid {
//	    return res.Err()
//	}
//
// The zero value of LinkOptions and ImageOptions is the secure default policy.
package urlsafety
