package scan

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractHTML(t *testing.T) {
	doc := strings.Join([]string{
		`<p>hi</p>`,
		`<a href="javascript:alert(1)">x</a>`,
		`<img src="http://169.254.169.254/x.png" srcset="https://a.example/1.png 1x, http://127.0.0.1/2.png 2x">`,
		`<A HREF="https://example.com">ok</A><area href="/map">`,
		`<video poster="blob:https://example.com/p"></video><script>var a = "<img src=nope>";</script>`,
		`<span data-href="javascript:ignored"></span>`,
	}, "\n")

	refs, err := ExtractHTML(strings.NewReader(doc))
	require.NoError(t, err)

	assert.Equal(t, []Reference{
		{Line: 2, Kind: KindLink, URL: "javascript:alert(1)", Source: "a[href]"},
		{Line: 3, Kind: KindImage, URL: "http://169.254.169.254/x.png", Source: "img[src]"},
		{Line: 3, Kind: KindImage, URL: "https://a.example/1.png", Source: "img[srcset]"},
		{Line: 3, Kind: KindImage, URL: "http://127.0.0.1/2.png", Source: "img[srcset]"},
		{Line: 4, Kind: KindLink, URL: "https://example.com", Source: "a[href]"},
		{Line: 4, Kind: KindLink, URL: "/map", Source: "area[href]"},
		{Line: 5, Kind: KindImage, URL: "blob:https://example.com/p", Source: "video[poster]"},
	}, refs)
}

func TestExtractHTML_EntityDecoding(t *testing.T) {
	refs, err := ExtractHTML(strings.NewReader(`<a href="&#106;avascript:alert(1)">x</a>`))
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, "javascript:alert(1)", refs[0].URL)
}

func TestParseSrcset(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"a.png", []string{"a.png"}},
		{"a.png 1x, b.png 2x", []string{"a.png", "b.png"}},
		{"a.png, b.png 2x", []string{"a.png", "b.png"}},
		{" a.png 100w ,b.png 200w ", []string{"a.png", "b.png"}},
		{"data:image/png;base64,AAAA 1x", []string{"data:image/png;base64,AAAA"}},
		{"", nil},
		{" , ", nil},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseSrcset(tt.in), tt.in)
	}
}

func TestExtractMarkdown(t *testing.T) {
	doc := strings.Join([]string{
		"# Title",
		"[ok](https://example.com) and [bad](javascript:alert(1))",
		`![img](http://localhost/a.png "title")`,
		"<vbscript:msgbox>",
		"```js",
		"[fence](javascript:no)",
		"```",
		"`[code](javascript:no)`",
		"[ref]: file:///etc/passwd",
		"[angle](<https://example.com/a b>)",
	}, "\n")

	refs, err := ExtractMarkdown(strings.NewReader(doc))
	require.NoError(t, err)

	assert.Equal(t, []Reference{
		{Line: 2, Kind: KindLink, URL: "https://example.com", Source: "inline-link"},
		{Line: 2, Kind: KindLink, URL: "javascript:alert(1", Source: "inline-link"},
		{Line: 3, Kind: KindImage, URL: "http://localhost/a.png", Source: "inline-image"},
		{Line: 4, Kind: KindLink, URL: "vbscript:msgbox", Source: "autolink"},
		{Line: 9, Kind: KindLink, URL: "file:///etc/passwd", Source: "definition"},
		{Line: 10, Kind: KindLink, URL: "https://example.com/a b", Source: "inline-link"},
	}, refs)
}

func TestExtractProseMirror(t *testing.T) {
	doc := `{
  "type": "doc",
  "content": [
    {"type": "paragraph", "content": [
      {"type": "text", "text": "click", "marks": [{"type": "link", "attrs": {"href": "javascript:alert(1)"}}]}
    ]},
    {"type": "image", "attrs": {"src": "http://10.0.0.1/a.png"}},
    {"type": "file", "attrs": {"src": "https://cdn.example.com/f.pdf", "type": "application/pdf"}}
  ]
}`

	refs, err := ExtractProseMirror(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, refs, 3)

	byURL := make(map[string]Reference)
	for _, r := range refs {
		byURL[r.URL] = r
	}
	assert.Equal(t, Reference{Line: 5, Kind: KindLink, URL: "javascript:alert(1)", Source: "mark:link"}, byURL["javascript:alert(1)"])
	assert.Equal(t, Reference{Line: 7, Kind: KindImage, URL: "http://10.0.0.1/a.png", Source: "node:image"}, byURL["http://10.0.0.1/a.png"])
	assert.Equal(t, Reference{Line: 8, Kind: KindImage, URL: "https://cdn.example.com/f.pdf", Source: "node:file"}, byURL["https://cdn.example.com/f.pdf"])
}

func TestExtractProseMirror_Envelope(t *testing.T) {
	doc := `[{"id": 1, "body": {"type": "doc", "content": [{"type": "image", "attrs": {"src": "data:image/png;base64,AAAA"}}]}}]`
	refs, err := ExtractProseMirror(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, KindImage, refs[0].Kind)
	assert.Equal(t, 1, refs[0].Line)
}

func TestExtractProseMirror_Invalid(t *testing.T) {
	_, err := ExtractProseMirror(strings.NewReader("{"))
	assert.Error(t, err)
}

func TestExtractorFor(t *testing.T) {
	for _, name := range []string{"a.html", "b.HTM", "c.md", "d.markdown", "e.json"} {
		_, ok := ExtractorFor(name)
		assert.True(t, ok, name)
	}
	_, ok := ExtractorFor("notes.txt")
	assert.False(t, ok)
}
