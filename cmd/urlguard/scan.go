package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/c360studio/urlguard/scan"
)

func scanCmd(flags *globalFlags) *cobra.Command {
	var (
		output  string
		include []string
		exclude []string
		workers int
	)

	cmd := &cobra.Command{
		Use:   "scan [path]...",
		Short: "Scan stored content for unsafe URLs",
		Long: `Scan HTML, Markdown and ProseMirror JSON documents for link and image
URLs the effective policy rejects. Paths may be directories or single files
and default to the current directory. Nothing is fetched.

Exit status is 0 when no findings or parse errors were reported, 1 otherwise.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if output != outputText && output != outputJSON {
				return fmt.Errorf("unknown output format %q", output)
			}
			cfg, _, err := loadConfig(flags)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("include") {
				cfg.Scan.Include = include
			}
			if cmd.Flags().Changed("exclude") {
				cfg.Scan.Exclude = exclude
			}
			if cmd.Flags().Changed("workers") {
				cfg.Scan.Workers = workers
			}

			scanner := scan.New(scan.Options{
				Include: cfg.Scan.Include,
				Exclude: cfg.Scan.Exclude,
				Workers: cfg.Scan.Workers,
				Policy:  cfg.Policy(),
				Logger:  slog.Default(),
			})

			if len(args) == 0 {
				args = []string{"."}
			}
			clean := true
			var reports []pathReport
			for _, root := range args {
				report, err := scanner.Scan(cmd.Context(), root)
				if err != nil {
					return fmt.Errorf("scan %s: %w", root, err)
				}
				clean = clean && report.Clean()
				reports = append(reports, pathReport{Root: root, Report: report})
			}

			if err := writeReports(cmd.OutOrStdout(), output, reports); err != nil {
				return err
			}
			if !clean {
				return &exitError{code: 1}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", outputText, "Output format (text, json)")
	cmd.Flags().StringSliceVar(&include, "include", nil, "Include patterns (overrides scan.include)")
	cmd.Flags().StringSliceVar(&exclude, "exclude", nil, "Exclude patterns (overrides scan.exclude)")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Files scanned concurrently (overrides scan.workers)")
	return cmd
}

type pathReport struct {
	Root string `json:"root"`
	*scan.Report
}

func writeReports(w io.Writer, output string, reports []pathReport) error {
	if output == outputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(reports)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, r := range reports {
		for _, f := range r.Findings {
			fmt.Fprintf(tw, "%s:%d\t%s\t%s\t%q\n", joinRoot(r.Root, f.Path), f.Line, f.Kind, f.Result.ErrorCode, f.URL)
		}
		for _, e := range r.Errors {
			fmt.Fprintf(tw, "%s\tERROR\t%s\n", joinRoot(r.Root, e.Path), e.Error)
		}
		fmt.Fprintf(tw, "# %s: %d files, %d references, %d findings\n", r.Root, r.Files, r.References, len(r.Findings))
	}
	return tw.Flush()
}

// joinRoot prefixes a report path with its root unless the root was a file.
func joinRoot(root, p string) string {
	if root == "." || root == "" {
		return p
	}
	if info, err := os.Stat(root); err == nil && !info.IsDir() {
		return root
	}
	return filepath.Join(root, filepath.FromSlash(p))
}
