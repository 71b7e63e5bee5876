package scan

import (
	"bufio"
	"io"
	"regexp"
	"strings"
)

var (
	// ![alt](url "title") and [text](url 'title'), url optionally in <>.
	mdInlineRe = regexp.MustCompile(`(!?)\[[^\]]*\]\(\s*(<[^>]*>|[^\s)]+)(?:\s+(?:"[^"]*"|'[^']*'|\([^)]*\)))?\s*\)`)
	// <scheme:rest>
	mdAutolinkRe = regexp.MustCompile(`<([a-zA-Z][a-zA-Z0-9+.\-]{1,31}:[^\s<>]*)>`)
	// [label]: url
	mdDefinitionRe = regexp.MustCompile(`^ {0,3}\[[^\]]+\]:\s*(<[^>]*>|\S+)`)
)

// ExtractMarkdown returns the URL references in a Markdown document. Fenced
// code blocks and inline code spans are skipped.
func ExtractMarkdown(r io.Reader) ([]Reference, error) {
	var refs []Reference
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var fence string
	for n := 1; sc.Scan(); n++ {
		line := sc.Text()
		trimmed := strings.TrimSpace(line)

		if fence != "" {
			if strings.HasPrefix(trimmed, fence) {
				fence = ""
			}
			continue
		}
		if f := fenceMarker(trimmed); f != "" {
			fence = f
			continue
		}

		line = stripCodeSpans(line)

		if m := mdDefinitionRe.FindStringSubmatch(line); m != nil {
			refs = append(refs, Reference{Line: n, Kind: KindLink, URL: unbracket(m[1]), Source: "definition"})
			continue
		}
		for _, m := range mdInlineRe.FindAllStringSubmatch(line, -1) {
			ref := Reference{Line: n, Kind: KindLink, URL: unbracket(m[2]), Source: "inline-link"}
			if m[1] == "!" {
				ref.Kind = KindImage
				ref.Source = "inline-image"
			}
			refs = append(refs, ref)
		}
		rest := mdInlineRe.ReplaceAllString(line, " ")
		for _, m := range mdAutolinkRe.FindAllStringSubmatch(rest, -1) {
			refs = append(refs, Reference{Line: n, Kind: KindLink, URL: m[1], Source: "autolink"})
		}
	}
	return refs, sc.Err()
}

func fenceMarker(trimmed string) string {
	for _, f := range []string{"```", "~~~"} {
		if strings.HasPrefix(trimmed, f) {
			return f
		}
	}
	return ""
}

// stripCodeSpans blanks out `code` spans so URLs shown as code are ignored.
func stripCodeSpans(line string) string {
	if !strings.Contains(line, "`") {
		return line
	}
	var b strings.Builder
	inCode := false
	for _, r := range line {
		if r == '`' {
			inCode = !inCode
			b.WriteRune(' ')
			continue
		}
		if inCode {
			b.WriteRune(' ')
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func unbracket(s string) string {
	if strings.HasPrefix(s, "<") && strings.HasSuffix(s, ">") {
		return s[1 : len(s)-1]
	}
	return s
}
