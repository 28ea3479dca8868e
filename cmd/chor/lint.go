package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/chorbdd/chor/pkg/ast"
	"github.com/chorbdd/chor/pkg/lint"
)

func newLintCmd() *cobra.Command {
	var file string
	var copyClip bool
	cmd := &cobra.Command{
		Use:   "lint",
		Short: "Check a .chor file for style and OpenAPI drift issues",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := readFile(file)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%v\n", err)
				os.Exit(1)
			}

			var doc []byte
			if ref := openapiRefHint(f); ref != "" {
				doc, _ = os.ReadFile(ref)
			}

			diags := lint.Lint(f, os.LookupEnv, doc)
			lint.Print(os.Stdout, diags)

			if copyClip {
				if err := lint.CopyToClipboard(diags); err != nil {
					fmt.Fprintf(os.Stderr, "Warning: failed to copy to clipboard: %v\n", err)
				}
			}

			for _, d := range diags {
				if d.Severity == lint.SeverityError {
					os.Exit(1)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "feature.chor", "path to the .chor file")
	cmd.Flags().BoolVar(&copyClip, "copy", false, "copy diagnostics to the system clipboard")
	return cmd
}

// openapiRefHint reads the raw `openapi_ref` setting directly off the
// parsed file, ahead of loader.Load succeeding, so lint can read the
// document even when it otherwise reports only the one fatal E- finding.
func openapiRefHint(f *ast.File) string {
	if v, ok := f.Settings["openapi_ref"]; ok {
		return v.String
	}
	return ""
}
