package scan

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
)

// Node types whose attrs.src is fetched when the document is rendered or
// exported.
var pmSourceNodes = map[string]bool{
	"image": true,
	"file":  true,
	"video": true,
	"audio": true,
}

// ExtractProseMirror returns the URL references in a ProseMirror-style JSON
// document. Any object with a string "type" is treated as a node, wherever
// it appears, so documents wrapped in envelopes are found too. Line numbers
// point at the first occurrence of the URL in the source.
func ExtractProseMirror(r io.Reader) ([]Reference, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	var refs []Reference
	walkJSON(doc, func(obj map[string]any) {
		typ, _ := obj["type"].(string)
		if typ == "" {
			return
		}
		attrs, _ := obj["attrs"].(map[string]any)

		switch {
		case pmSourceNodes[typ]:
			if src, ok := attrs["src"].(string); ok {
				refs = append(refs, Reference{Kind: KindImage, URL: src, Source: "node:" + typ})
			}
		case typ == "link":
			// Link marks, and editors that model links as nodes.
			if href, ok := attrs["href"].(string); ok {
				refs = append(refs, Reference{Kind: KindLink, URL: href, Source: "mark:link"})
			}
		}
	})

	for i := range refs {
		refs[i].Line = lineOf(data, refs[i].URL)
	}
	return refs, nil
}

// walkJSON calls fn for every object in v, visiting keys in sorted order.
func walkJSON(v any, fn func(map[string]any)) {
	switch t := v.(type) {
	case map[string]any:
		fn(t)
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			walkJSON(t[k], fn)
		}
	case []any:
		for _, e := range t {
			walkJSON(e, fn)
		}
	}
}

// lineOf returns the 1-based line of the first occurrence of s as a JSON
// string literal in data, or 0 when it cannot be located.
func lineOf(data []byte, s string) int {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return 0
	}
	needle := bytes.TrimSuffix(buf.Bytes(), []byte{'\n'})
	idx := bytes.Index(data, needle)
	if idx < 0 {
		return 0
	}
	return bytes.Count(data[:idx], []byte{'\n'}) + 1
}
