package main

import (
	"fmt"
	"os"

	"github.com/AlecAivazis/survey/v2"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create relata.yml and a sample resource file",
	Long:  "Interactively create the configuration and resource declaration files in the current directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInit()
	},
}

func runInit() error {
	successColor := color.New(color.FgGreen, color.Bold)
	infoColor := color.New(color.FgCyan)

	if _, err := os.Stat("relata.yml"); err == nil {
		return fmt.Errorf("relata.yml already exists")
	}

	var projectName string
	if err := survey.AskOne(&survey.Input{
		Message: "Project name:",
	}, &projectName, survey.WithValidator(survey.Required)); err != nil {
		return err
	}

	var driver string
	if err := survey.AskOne(&survey.Select{
		Message: "Database driver:",
		Options: []string{"pgx", "postgres", "sqlite3"},
		Default: "pgx",
	}, &driver); err != nil {
		return err
	}

	defaultURL := fmt.Sprintf("postgres://localhost:5432/%s?sslmode=disable", projectName)
	if driver == "sqlite3" {
		defaultURL = projectName + ".db"
	}
	var databaseURL string
	if err := survey.AskOne(&survey.Input{
		Message: "Database URL:",
		Default: defaultURL,
	}, &databaseURL); err != nil {
		return err
	}

	port := "8080"
	if err := survey.AskOne(&survey.Input{
		Message: "Server port:",
		Default: port,
	}, &port); err != nil {
		return err
	}

	rateLimiting := false
	if err := survey.AskOne(&survey.Confirm{
		Message: "Enable Redis rate limiting?",
	}, &rateLimiting); err != nil {
		return err
	}

	configContents := fmt.Sprintf(`project_name: %s

server:
  host: 0.0.0.0
  port: %s

database:
  driver: %s
  url: %s

redis:
  enabled: %t
  addr: localhost:6379
  rate_limit: 100
  rate_window: 1m

auth:
  enabled: false

log:
  debug: true
`, projectName, port, driver, databaseURL, rateLimiting)

	if err := os.WriteFile("relata.yml", []byte(configContents), 0o644); err != nil {
		return fmt.Errorf("failed to write relata.yml: %w", err)
	}

	if _, err := os.Stat("resources.yml"); os.IsNotExist(err) {
		if err := os.WriteFile("resources.yml", []byte(sampleResources), 0o644); err != nil {
			return fmt.Errorf("failed to write resources.yml: %w", err)
		}
		infoColor.Println("Wrote resources.yml with a sample schema - edit it to declare your types")
	}

	successColor.Printf("Project %s initialized\n", projectName)
	infoColor.Println("Run 'relata serve' to start the API")
	return nil
}

const sampleResources = `resources:
  - name: User
    columns:
      name: string
      email: string
      createdAt: date
    associations:
      - kind: has_many
        target: Post
        foreign_key: userId
        alias: posts

  - name: Post
    columns:
      title: string
      body: text
      userId: integer
      publishedAt: date
    associations:
      - kind: belongs_to
        target: User
        foreign_key: userId
        alias: user
`
