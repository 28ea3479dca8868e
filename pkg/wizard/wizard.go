// Package wizard implements the interactive `chor init` scaffolding flow:
// an huh form collects the actors a first feature needs and the core
// settings, then a skeleton `.chor` file and `.chor/config.yaml` are
// written. Grounded on the teacher's pkg/core/init.go runSetupWizard,
// which walks the same "huh.NewForm per phase, confirm, then write files"
// shape for its own (LLM provider) first-run questions.
package wizard

import (
	"fmt"
	"os"

	"github.com/charmbracelet/huh"

	"github.com/chorbdd/chor/pkg/config"
)

// actorOptions mirrors the four actor kinds the loader recognizes.
func actorOptions() []huh.Option[string] {
	return []huh.Option[string]{
		huh.NewOption("Terminal (spawn a PTY, run shell commands)", "Terminal"),
		huh.NewOption("Web (HTTP requests against a service)", "Web"),
		huh.NewOption("FileSystem (create/read/delete files and directories)", "FileSystem"),
		huh.NewOption("System (services, ports, uuid, timestamp)", "System"),
	}
}

// Result holds the answers collected by Run, enough to render a skeleton
// feature file and a config.yaml.
type Result struct {
	FeatureName string
	Actors      []string
	ShellPath   string
	TimeoutSecs float64
}

// Run displays the setup form and returns the collected answers. Modeled
// on the teacher's runSetupWizard: one huh.NewGroup per logical phase,
// a themed form, and an explicit confirm step before anything is written.
func Run() (*Result, error) {
	var (
		featureName string
		actors      []string
		shellPath   = "sh"
		timeout     = "30"
	)

	fmt.Println()
	fmt.Println("  Welcome to chor - behaviour-driven test execution")
	fmt.Println("  Let's scaffold your first feature file.")
	fmt.Println()

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Feature name").
				Description("Used in the file's `feature` declaration and its first scenario's name.").
				Placeholder("checkout").
				Value(&featureName),
		),
		huh.NewGroup(
			huh.NewMultiSelect[string]().
				Title("Select the actors this feature will use").
				Description("Determines which backends are started for each scenario.").
				Options(actorOptions()...).
				Value(&actors),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Shell path").
				Description("Command used to spawn the Terminal actor's PTY.").
				Placeholder("sh").
				Value(&shellPath),
			huh.NewInput().
				Title("Scenario timeout (seconds)").
				Description("How long a scenario may run before its remaining tests time out.").
				Placeholder("30").
				Value(&timeout),
		),
	).WithTheme(huh.ThemeDracula())

	if err := form.Run(); err != nil {
		return nil, fmt.Errorf("wizard: setup cancelled: %w", err)
	}

	if featureName == "" {
		featureName = "example"
	}
	if shellPath == "" {
		shellPath = "sh"
	}

	var timeoutSecs float64
	if _, err := fmt.Sscanf(timeout, "%f", &timeoutSecs); err != nil || timeoutSecs <= 0 {
		timeoutSecs = 30
	}

	var confirmed bool
	confirmForm := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Create feature file and config with these settings?").
				Description(fmt.Sprintf("Feature:  %s\nActors:   %v\nShell:    %s\nTimeout:  %.0fs",
					featureName, actors, shellPath, timeoutSecs)).
				Affirmative("Yes, create").
				Negative("No, cancel").
				Value(&confirmed),
		),
	).WithTheme(huh.ThemeDracula())

	if err := confirmForm.Run(); err != nil {
		return nil, fmt.Errorf("wizard: confirmation cancelled: %w", err)
	}
	if !confirmed {
		return nil, fmt.Errorf("wizard: cancelled by user")
	}

	return &Result{
		FeatureName: featureName,
		Actors:      actors,
		ShellPath:   shellPath,
		TimeoutSecs: timeoutSecs,
	}, nil
}

// WriteFeatureFile renders a skeleton `.chor` source file from r and
// writes it to path, failing if the file already exists.
func WriteFeatureFile(path string, r *Result) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("wizard: %s already exists", path)
	}

	src := renderFeature(r)
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		return fmt.Errorf("wizard: writing %s: %w", path, err)
	}
	return nil
}

// WriteConfig persists r's settings as .chor/config.yaml via the config
// package, the same role the teacher's createDefaultConfig plays for
// .falcon/config.yaml.
func WriteConfig(r *Result) error {
	s := config.Defaults()
	s.ShellPath = r.ShellPath
	s.TimeoutSeconds = r.TimeoutSecs
	return config.Write(s)
}

func renderFeature(r *Result) string {
	s := fmt.Sprintf("feature %q\n", r.FeatureName)
	if len(r.Actors) == 0 {
		s += "actor System\n\n"
	} else if len(r.Actors) == 1 {
		s += fmt.Sprintf("actor %s\n\n", r.Actors[0])
	} else {
		s += "actors {\n"
		for _, a := range r.Actors {
			s += fmt.Sprintf("  %s\n", a)
		}
		s += "}\n\n"
	}

	s += fmt.Sprintf("scenario %q {\n", r.FeatureName+" happy path")
	s += "  test smoke \"scaffolded by chor init\" {\n"
	s += "    given: Test can_start\n"
	s += "    when: System log \"hello from chor\"\n"
	s += "    then: Test can_start\n"
	s += "  }\n"
	s += "}\n"
	return s
}
