package ui

import (
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"

	"gitsink/pkg/models"
)

// SetupWizard collects the warehouse connection and sync settings
// interactively.
type SetupWizard struct {
	// StoreInKeyring is set when the user chose the OS keyring over the
	// config file for the password.
	StoreInKeyring bool
}

func NewSetupWizard() *SetupWizard {
	return &SetupWizard{}
}

// Run walks through the prompts and returns the assembled config.
func (w *SetupWizard) Run() (*models.Config, error) {
	fmt.Println(ColorBold("gitsink configuration"))
	fmt.Println()

	config := &models.Config{
		Sync: models.Sync{
			MaxFileSize: models.DefaultMaxFileSize,
			Concurrency: models.DefaultConcurrency,
		},
		LogLevel: "info",
	}

	if err := w.askConnection(config); err != nil {
		if err == terminal.InterruptErr {
			return nil, fmt.Errorf("setup cancelled")
		}
		return nil, err
	}
	if err := w.askSyncOptions(config); err != nil {
		if err == terminal.InterruptErr {
			return nil, fmt.Errorf("setup cancelled")
		}
		return nil, err
	}

	return config, nil
}

func (w *SetupWizard) askConnection(config *models.Config) error {
	questions := []*survey.Question{
		{
			Name: "account",
			Prompt: &survey.Input{
				Message: "Snowflake account:",
				Help:    "Account identifier, e.g. xy12345.us-east-1",
			},
			Validate: survey.Required,
		},
		{
			Name: "username",
			Prompt: &survey.Input{
				Message: "Username:",
			},
			Validate: survey.Required,
		},
		{
			Name: "password",
			Prompt: &survey.Password{
				Message: "Password:",
			},
			Validate: survey.Required,
		},
		{
			Name: "role",
			Prompt: &survey.Input{
				Message: "Role:",
				Default: "SYSADMIN",
			},
			Validate: survey.Required,
		},
		{
			Name: "warehouse",
			Prompt: &survey.Input{
				Message: "Warehouse:",
				Default: "COMPUTE_WH",
			},
			Validate: survey.Required,
		},
		{
			Name: "database",
			Prompt: &survey.Input{
				Message: "Database:",
				Default: "GIT_DATA",
			},
			Validate: survey.Required,
		},
		{
			Name: "schema",
			Prompt: &survey.Input{
				Message: "Schema:",
				Default: "PUBLIC",
			},
			Validate: survey.Required,
		},
	}

	if err := survey.Ask(questions, &config.Snowflake); err != nil {
		return err
	}

	return survey.AskOne(&survey.Confirm{
		Message: "Store the password in the OS keyring instead of the config file?",
		Default: true,
	}, &w.StoreInKeyring)
}

func (w *SetupWizard) askSyncOptions(config *models.Config) error {
	var allBranches bool
	if err := survey.AskOne(&survey.Confirm{
		Message: "Sync all branches by default?",
		Default: false,
	}, &allBranches); err != nil {
		return err
	}
	config.Sync.AllBranches = allBranches

	maxSize := fmt.Sprintf("%d", models.DefaultMaxFileSize)
	if err := survey.AskOne(&survey.Input{
		Message: "Max file size for current-file mirroring (bytes):",
		Default: maxSize,
	}, &maxSize); err != nil {
		return err
	}
	if _, err := fmt.Sscanf(maxSize, "%d", &config.Sync.MaxFileSize); err != nil {
		return fmt.Errorf("invalid max file size %q", maxSize)
	}

	return nil
}

// Confirm asks a yes/no question.
func Confirm(message string, defaultValue bool) (bool, error) {
	answer := defaultValue
	err := survey.AskOne(&survey.Confirm{
		Message: message,
		Default: defaultValue,
	}, &answer)
	if err == terminal.InterruptErr {
		return false, fmt.Errorf("cancelled")
	}
	return answer, err
}
