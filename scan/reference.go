// Package scan audits stored editor content (HTML, Markdown and ProseMirror
// JSON documents) for link and image URLs that the validation engine rejects.
// Nothing is fetched; every URL is judged from its text alone.
package scan

import (
	"github.com/c360studio/urlguard/urlsafety"
)

// Kind is the context a URL is used in.
type Kind string

// Reference kinds.
const (
	// KindLink is a navigation target, validated with ValidateLinkURL.
	KindLink Kind = "link"
	// KindImage is a resource the renderer or server fetches, validated with
	// IsSafeImageURL.
	KindImage Kind = "image"
)

// Reference is a URL found in a document.
type Reference struct {
	// Line is 1-based; 0 when the position is unknown.
	Line int    `json:"line"`
	Kind Kind   `json:"kind"`
	URL  string `json:"url"`
	// Source names where the URL came from, e.g. "img[src]" or "mark:link".
	Source string `json:"source"`
}

// Validate judges r under p.
func (r Reference) Validate(p urlsafety.Policy) urlsafety.ValidationResult {
	if r.Kind == KindImage {
		return p.ValidateImage(r.URL)
	}
	return p.ValidateLink(r.URL)
}
