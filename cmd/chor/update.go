package main

import (
	"fmt"

	"github.com/blang/semver"
	"github.com/rhysd/go-github-selfupdate/selfupdate"
	"github.com/spf13/cobra"
)

// repoSlug is the GitHub repository chor releases are published to.
const repoSlug = "chorbdd/chor"

func newUpdateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update",
		Short: "Update chor to the latest release",
		RunE: func(cmd *cobra.Command, args []string) error {
			if version == "" || version == "dev" {
				return fmt.Errorf("cannot self-update a development build")
			}

			current, err := semver.ParseTolerant(version)
			if err != nil {
				return fmt.Errorf("parsing current version %q: %w", version, err)
			}

			fmt.Printf("Current version: %s\n", current)
			fmt.Println("Checking for updates...")

			latest, err := selfupdate.UpdateSelf(current, repoSlug)
			if err != nil {
				return fmt.Errorf("update failed: %w", err)
			}

			if latest.Version.Equals(current) {
				fmt.Println("Current version is the latest.")
				return nil
			}

			fmt.Printf("Successfully updated to version %s\n", latest.Version)
			fmt.Printf("Release notes:\n%s\n", latest.ReleaseNotes)
			return nil
		},
	}
}
