package scan

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"github.com/c360studio/urlguard/urlsafety"
)

// Extractor pulls URL references out of one document.
type Extractor func(io.Reader) ([]Reference, error)

// extractors by lowercase file extension.
var extractors = map[string]Extractor{
	".html":     ExtractHTML,
	".htm":      ExtractHTML,
	".md":       ExtractMarkdown,
	".markdown": ExtractMarkdown,
	".json":     ExtractProseMirror,
}

// ExtractorFor returns the extractor for name's extension.
func ExtractorFor(name string) (Extractor, bool) {
	e, ok := extractors[strings.ToLower(path.Ext(name))]
	return e, ok
}

// Finding is a reference the policy rejects.
type Finding struct {
	Path string `json:"path"`
	Reference
	Result urlsafety.ValidationResult `json:"result"`
}

// FileError records a file that could not be parsed. Such files are
// reported, not fatal.
type FileError struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// Report is the outcome of a scan.
type Report struct {
	Files      int         `json:"files"`
	References int         `json:"references"`
	Findings   []Finding   `json:"findings"`
	Errors     []FileError `json:"errors,omitempty"`
}

// Clean reports whether the scan found nothing to act on.
func (r *Report) Clean() bool {
	return len(r.Findings) == 0 && len(r.Errors) == 0
}

// Options configures a Scanner.
type Options struct {
	// Include lists doublestar patterns, relative to the scan root, of files
	// to scan. Files without a known extension are skipped regardless.
	Include []string
	// Exclude lists doublestar patterns of files to skip.
	Exclude []string
	// Workers bounds the number of files processed at once (default 4).
	Workers int
	Policy  urlsafety.Policy
	Logger  *slog.Logger
}

// Scanner scans document trees.
type Scanner struct {
	opts   Options
	logger *slog.Logger
}

// New creates a Scanner.
func New(opts Options) *Scanner {
	if opts.Workers < 1 {
		opts.Workers = 4
	}
	if len(opts.Include) == 0 {
		opts.Include = []string{"**/*"}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{opts: opts, logger: logger}
}

// Scan scans the directory tree at root.
func (s *Scanner) Scan(ctx context.Context, root string) (*Report, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("scan root: %w", err)
	}
	if !info.IsDir() {
		// A single file is scanned as the only member of its directory.
		return s.scanFiles(ctx, os.DirFS(filepath.Dir(root)), []string{filepath.Base(root)})
	}
	return s.ScanFS(ctx, os.DirFS(root))
}

// ScanFS scans every matching file in fsys.
func (s *Scanner) ScanFS(ctx context.Context, fsys fs.FS) (*Report, error) {
	files, err := s.ResolveFiles(fsys)
	if err != nil {
		return nil, err
	}
	return s.scanFiles(ctx, fsys, files)
}

// ResolveFiles lists the files in fsys matched by the include patterns, not
// matched by any exclude pattern and with a known extension, sorted.
func (s *Scanner) ResolveFiles(fsys fs.FS) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	for _, pattern := range s.opts.Include {
		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("resolve pattern %q: %w", pattern, err)
		}
		for _, m := range matches {
			if seen[m] || s.excluded(m) {
				continue
			}
			if _, ok := ExtractorFor(m); !ok {
				continue
			}
			seen[m] = true
			files = append(files, m)
		}
	}
	sort.Strings(files)
	return files, nil
}

func (s *Scanner) excluded(name string) bool {
	for _, pattern := range s.opts.Exclude {
		if ok, _ := doublestar.Match(pattern, name); ok {
			return true
		}
	}
	return false
}

type fileResult struct {
	refs     int
	findings []Finding
	parseErr error
}

func (s *Scanner) scanFiles(ctx context.Context, fsys fs.FS, files []string) (*Report, error) {
	results := make([]fileResult, len(files))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)
	for i, name := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := s.scanFile(fsys, name)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &Report{Files: len(files), Findings: []Finding{}}
	for i, res := range results {
		report.References += res.refs
		report.Findings = append(report.Findings, res.findings...)
		if res.parseErr != nil {
			report.Errors = append(report.Errors, FileError{Path: files[i], Error: res.parseErr.Error()})
		}
	}
	sort.SliceStable(report.Findings, func(i, j int) bool {
		a, b := report.Findings[i], report.Findings[j]
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		return a.Line < b.Line
	})

	s.logger.Debug("Scan complete",
		"files", report.Files,
		"references", report.References,
		"findings", len(report.Findings),
		"errors", len(report.Errors))
	return report, nil
}

// scanFile reads and checks one file. Read failures are returned; parse
// failures are recorded in the result.
func (s *Scanner) scanFile(fsys fs.FS, name string) (fileResult, error) {
	extract, ok := ExtractorFor(name)
	if !ok {
		return fileResult{}, nil
	}
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return fileResult{}, fmt.Errorf("read %s: %w", name, err)
	}

	refs, err := extract(bytes.NewReader(data))
	if err != nil {
		s.logger.Warn("Failed to parse document", "path", name, "error", err)
		return fileResult{parseErr: err}, nil
	}

	res := fileResult{refs: len(refs)}
	for _, ref := range refs {
		verdict := ref.Validate(s.opts.Policy)
		if verdict.IsValid {
			continue
		}
		res.findings = append(res.findings, Finding{Path: name, Reference: ref, Result: verdict})
	}
	return res, nil
}
