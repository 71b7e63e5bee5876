package scan

import (
	"bytes"
	"errors"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// htmlAttrs maps element name to the URL attributes scanned on it.
var htmlAttrs = map[string]map[string]Kind{
	"a":      {"href": KindLink},
	"area":   {"href": KindLink},
	"img":    {"src": KindImage, "srcset": KindImage},
	"source": {"src": KindImage, "srcset": KindImage},
	"video":  {"src": KindImage, "poster": KindImage},
	"audio":  {"src": KindImage},
}

// ExtractHTML returns the URL references in an HTML document or fragment.
func ExtractHTML(r io.Reader) ([]Reference, error) {
	var refs []Reference
	z := html.NewTokenizer(r)
	line := 1

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if err := z.Err(); !errors.Is(err, io.EOF) {
				return refs, err
			}
			return refs, nil
		}
		tokenLine := line
		line += bytes.Count(z.Raw(), []byte{'\n'})

		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			continue
		}
		name, hasAttr := z.TagName()
		attrs, ok := htmlAttrs[string(name)]
		if !ok || !hasAttr {
			continue
		}

		for {
			key, val, more := z.TagAttr()
			k := string(key)
			if kind, ok := attrs[k]; ok {
				source := string(name) + "[" + k + "]"
				if k == "srcset" {
					for _, u := range parseSrcset(string(val)) {
						refs = append(refs, Reference{Line: tokenLine, Kind: kind, URL: u, Source: source})
					}
				} else {
					refs = append(refs, Reference{Line: tokenLine, Kind: kind, URL: string(val), Source: source})
				}
			}
			if !more {
				break
			}
		}
	}
}

// parseSrcset returns the candidate URLs of a srcset attribute. A candidate
// is a URL followed by optional descriptors; candidates are comma separated,
// but a comma directly after a URL belongs to the separator, not the URL.
func parseSrcset(s string) []string {
	var urls []string
	for {
		s = strings.TrimLeft(s, " \t\n\r\f,")
		if s == "" {
			return urls
		}

		end := strings.IndexAny(s, " \t\n\r\f")
		if end < 0 {
			end = len(s)
		}
		u := s[:end]
		s = s[end:]

		if trimmed := strings.TrimRight(u, ","); trimmed != u {
			// URL ended the candidate; no descriptors follow.
			urls = append(urls, trimmed)
			continue
		}
		urls = append(urls, u)

		// Skip descriptors up to the next comma.
		if i := strings.IndexByte(s, ','); i >= 0 {
			s = s[i+1:]
		} else {
			s = ""
		}
	}
}
