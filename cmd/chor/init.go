package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/chorbdd/chor/pkg/wizard"
)

func newInitCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Scaffold a new .chor feature file and .chor/config.yaml",
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := wizard.Run()
			if err != nil {
				fmt.Fprintf(os.Stderr, "%v\n", err)
				os.Exit(1)
			}

			if err := wizard.WriteFeatureFile(name, result); err != nil {
				fmt.Fprintf(os.Stderr, "%v\n", err)
				os.Exit(1)
			}
			if err := wizard.WriteConfig(result); err != nil {
				fmt.Fprintf(os.Stderr, "%v\n", err)
				os.Exit(1)
			}

			fmt.Printf("\nCreated %s and .chor/config.yaml\n", name)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "file", "feature.chor", "path to write the scaffolded feature file")
	return cmd
}
