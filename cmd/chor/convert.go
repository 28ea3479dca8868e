package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/chorbdd/chor/pkg/convert"
)

// newConvertCmd is the supplemented `chor convert` command: exporting a
// plan's Web calls as a Postman collection, or importing one as a skeleton
// `.chor` file. Not part of spec.md's CLI surface; added per SPEC_FULL.md's
// domain-stack wiring for github.com/rbretecher/go-postman-collection.
func newConvertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert between .chor feature files and Postman collections",
	}
	cmd.AddCommand(newConvertToPostmanCmd())
	cmd.AddCommand(newConvertFromPostmanCmd())
	return cmd
}

func newConvertToPostmanCmd() *cobra.Command {
	var file, out string
	cmd := &cobra.Command{
		Use:   "to-postman",
		Short: "Export a .chor file's Web calls as a Postman v2.1 collection",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			plan, err := loadPlan(file, cfg)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%v\n", err)
				os.Exit(1)
			}

			w := os.Stdout
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					fmt.Fprintf(os.Stderr, "creating %s: %v\n", out, err)
					os.Exit(1)
				}
				defer f.Close()
				return convert.WritePostman(f, convert.ToPostman(plan))
			}
			return convert.WritePostman(w, convert.ToPostman(plan))
		},
	}
	cmd.Flags().StringVar(&file, "file", "feature.chor", "path to the .chor file")
	cmd.Flags().StringVar(&out, "out", "", "output path (default: stdout)")
	return cmd
}

func newConvertFromPostmanCmd() *cobra.Command {
	var in, out string
	cmd := &cobra.Command{
		Use:   "from-postman",
		Short: "Import a Postman v2.1 collection as a skeleton .chor file",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(in)
			if err != nil {
				fmt.Fprintf(os.Stderr, "opening %s: %v\n", in, err)
				os.Exit(1)
			}
			defer f.Close()

			src, err := convert.FromPostman(f)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%v\n", err)
				os.Exit(1)
			}

			if out == "" {
				fmt.Print(src)
				return nil
			}
			return os.WriteFile(out, []byte(src), 0o644)
		},
	}
	cmd.Flags().StringVar(&in, "collection", "collection.json", "path to the Postman collection")
	cmd.Flags().StringVar(&out, "out", "", "output .chor path (default: stdout)")
	return cmd
}
