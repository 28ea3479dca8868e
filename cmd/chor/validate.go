package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newValidateCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Load a .chor file and report the first fatal error, if any",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			_, err := loadPlan(file, cfg)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%v\n", err)
				os.Exit(1)
			}
			fmt.Println("ok")
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "feature.chor", "path to the .chor file")
	return cmd
}
