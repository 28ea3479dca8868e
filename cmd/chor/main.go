// Command chor is the CLI entry point: init, validate, lint, run, convert
// and update. Grounded on the teacher's cmd/falcon/main.go, which wires
// cobra + viper + godotenv the same way around its own root command; chor
// has no TUI/web-server mode, so the root command has no action of its own
// and only dispatches to its subcommands rather than launching a REPL.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"

	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:     "chor",
	Version: version,
	Short:   "chor - behaviour-driven test execution for CLI tools and HTTP services",
	Long: `chor runs .chor feature files: a DSL describing scenarios of Given/When/Then
tests against Terminal, Web, FileSystem and System actors, and reports the
result as Cucumber-style JSON.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .chor/config.yaml)")
	rootCmd.AddCommand(newInitCmd())
	rootCmd.AddCommand(newValidateCmd())
	rootCmd.AddCommand(newLintCmd())
	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newConvertCmd())
	rootCmd.AddCommand(newUpdateCmd())
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("chor %s\n", version)
			fmt.Printf("  commit: %s\n", commit)
			fmt.Printf("  built:  %s\n", date)
		},
	})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
