package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/chorbdd/chor/pkg/engine"
	"github.com/chorbdd/chor/pkg/report"
	"github.com/chorbdd/chor/pkg/watch"
)

func newRunCmd() *cobra.Command {
	var file string
	var verbose bool
	var watchFlag bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a .chor file's scenarios and write a JSON report",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			plan, err := loadPlan(file, cfg)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%v\n", err)
				os.Exit(1)
			}

			start := time.Now()
			var suite engine.SuiteResult
			if watchFlag {
				suite, err = watch.Run(context.Background(), plan)
			} else {
				suite, err = engine.RunPlan(context.Background(), plan)
			}
			if err != nil {
				fmt.Fprintf(os.Stderr, "%v\n", err)
				os.Exit(1)
			}
			elapsed := time.Since(start)

			feature := report.Build(file, plan.Feature, suite, elapsed)
			features := []report.Feature{feature}

			path, err := report.Write(plan.Settings.ReportPath, features, time.Now())
			if err != nil {
				fmt.Fprintf(os.Stderr, "writing report: %v\n", err)
				os.Exit(1)
			}

			printSummaryMarkdown(features, path)

			if verbose {
				for _, line := range report.Failures(features) {
					fmt.Println("FAIL:", line)
				}
			}

			if feature.Summary.Failures != plan.Settings.ExpectedFailures {
				os.Exit(1)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "feature.chor", "path to the .chor file")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print failing step names after the summary")
	cmd.Flags().BoolVar(&watchFlag, "watch", false, "show a live bubbletea view of scenario/test progress while running")
	return cmd
}

// printSummaryMarkdown renders the run summary through glamour, the same
// terminal-markdown renderer the teacher uses for its saved-request
// responses (cmd/falcon/main.go's runCLI), falling back to the plain
// report.PrintSummary text if the renderer can't be built.
func printSummaryMarkdown(features []report.Feature, reportPath string) {
	md := fmt.Sprintf("## chor run\n\n**%s** tests, **%s** failures, report at `%s`\n",
		fmt.Sprint(totalTests(features)), fmt.Sprint(totalFailures(features)), reportPath)
	for _, line := range report.Failures(features) {
		md += fmt.Sprintf("- %s\n", line)
	}

	renderer, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		report.PrintSummary(os.Stdout, features)
		return
	}
	out, err := renderer.Render(md)
	if err != nil {
		report.PrintSummary(os.Stdout, features)
		return
	}
	fmt.Print(out)
}

func totalTests(features []report.Feature) int {
	n := 0
	for _, f := range features {
		n += f.Summary.Tests
	}
	return n
}

func totalFailures(features []report.Feature) int {
	n := 0
	for _, f := range features {
		n += f.Summary.Failures
	}
	return n
}
