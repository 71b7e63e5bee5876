package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/c360studio/urlguard/urlsafety"
)

const (
	outputText = "text"
	outputJSON = "json"
)

// checkLine is one row of check output.
type checkLine struct {
	URL     string              `json:"url"`
	Allowed bool                `json:"allowed"`
	Code    urlsafety.ErrorCode `json:"code,omitempty"`
	Message string              `json:"message,omitempty"`
	// Value is the normalized URL for link and image checks, the canonical
	// hostname for SSRF checks.
	Value string `json:"value,omitempty"`
	Class string `json:"class,omitempty"`
}

func checkCmd(flags *globalFlags) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate URLs from the command line",
		Long: `Validate one or more URLs under the effective policy.

Exit status is 0 when every URL is allowed and 1 when any is denied.`,
	}
	cmd.PersistentFlags().StringVarP(&output, "output", "o", outputText, "Output format (text, json)")

	run := func(kind string) func(cmd *cobra.Command, args []string) error {
		return func(cmd *cobra.Command, args []string) error {
			if output != outputText && output != outputJSON {
				return fmt.Errorf("unknown output format %q", output)
			}
			cfg, _, err := loadConfig(flags)
			if err != nil {
				return err
			}
			policy := cfg.Policy()

			lines := make([]checkLine, 0, len(args))
			for _, raw := range args {
				lines = append(lines, checkOne(kind, policy, raw))
			}
			if err := writeCheckLines(cmd.OutOrStdout(), output, lines); err != nil {
				return err
			}
			for _, l := range lines {
				if !l.Allowed {
					return &exitError{code: 1}
				}
			}
			return nil
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "link <url>...",
			Short: "Check URLs for use as link targets",
			Args:  cobra.MinimumNArgs(1),
			RunE:  run("link"),
		},
		&cobra.Command{
			Use:   "image <url>...",
			Short: "Check URLs for use as image or file sources",
			Args:  cobra.MinimumNArgs(1),
			RunE:  run("image"),
		},
		&cobra.Command{
			Use:   "ssrf <url>...",
			Short: "Check whether a server may fetch URLs",
			Args:  cobra.MinimumNArgs(1),
			RunE:  run("ssrf"),
		},
	)
	return cmd
}

func checkOne(kind string, policy urlsafety.Policy, raw string) checkLine {
	switch kind {
	case "ssrf":
		res := urlsafety.CheckSSRF(raw)
		line := checkLine{
			URL:     raw,
			Allowed: res.IsSafe,
			Code:    res.ErrorCode,
			Message: res.Reason,
			Value:   res.Hostname,
		}
		if res.Hostname != "" {
			line.Class = res.Class.String()
		}
		return line
	case "image":
		return fromResult(raw, policy.ValidateImage(raw))
	default:
		return fromResult(raw, policy.ValidateLink(raw))
	}
}

func fromResult(raw string, res urlsafety.ValidationResult) checkLine {
	return checkLine{
		URL:     raw,
		Allowed: res.IsValid,
		Code:    res.ErrorCode,
		Message: res.ErrorMessage,
		Value:   res.NormalizedURL,
	}
}

func writeCheckLines(w io.Writer, output string, lines []checkLine) error {
	if output == outputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(lines)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, l := range lines {
		if l.Allowed {
			fmt.Fprintf(tw, "ALLOW\t%q\t%s\n", l.URL, l.Value)
		} else {
			fmt.Fprintf(tw, "DENY\t%q\t%s\t%s\n", l.URL, l.Code, l.Message)
		}
	}
	return tw.Flush()
}

func sanitizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sanitize <url>",
		Short: "Print a URL with control characters and surrounding whitespace removed",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), urlsafety.Sanitize(args[0]))
		},
	}
}

func normalizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "normalize <url>",
		Short: "Print a URL with https:// added when it has no scheme",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), urlsafety.NormalizeURL(args[0]))
		},
	}
}
