package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"gitsink/pkg/errors"
	"gitsink/pkg/models"
)

// Resolution order, highest wins: explicit flag, GITSINK_* environment
// variable, .gitsink.yaml in the working directory, ~/.gitsink/config.yaml,
// built-in default.

const (
	envPrefix     = "GITSINK"
	localFileName = ".gitsink"
)

// flagBindings maps config keys to flag names. Only flags the caller
// actually registered are bound.
var flagBindings = map[string]string{
	"snowflake.account":   "account",
	"snowflake.username":  "user",
	"snowflake.password":  "password",
	"snowflake.role":      "role",
	"snowflake.warehouse": "warehouse",
	"snowflake.database":  "database",
	"snowflake.schema":    "schema",
	"sync.repo_id":        "repo-id",
	"sync.branch":         "branch",
	"sync.all_branches":   "all-branches",
	"sync.include_remote": "remote",
	"sync.max_file_size":  "max-file-size",
	"sync.concurrency":    "concurrency",
	"log_level":           "log-level",
}

// Dir returns the directory holding the user-level config file.
func Dir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".gitsink")
}

// File returns the user-level config file path.
func File() string {
	return filepath.Join(Dir(), "config.yaml")
}

// Exists reports whether a user-level config file has been written.
func Exists() bool {
	_, err := os.Stat(File())
	return err == nil
}

// Load resolves the layered configuration into an immutable Config.
// flags may be nil when no command-line flags apply.
func Load(flags *pflag.FlagSet) (*models.Config, error) {
	v := viper.New()

	v.SetDefault("sync.max_file_size", models.DefaultMaxFileSize)
	v.SetDefault("sync.concurrency", models.DefaultConcurrency)
	v.SetDefault("sync.commit_batch_size", models.DefaultCommitBatchSize)
	v.SetDefault("log_level", "info")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Unmarshal only sees keys viper knows about, so every key is bound
	// explicitly for the GITSINK_* environment lookup.
	for key := range flagBindings {
		v.BindEnv(key)
	}
	v.BindEnv("sync.commit_batch_size")

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	if flags != nil {
		for key, name := range flagBindings {
			if flag := flags.Lookup(name); flag != nil {
				if err := v.BindPFlag(key, flag); err != nil {
					return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "Failed to bind flag").
						WithContext("flag", name)
				}
			}
		}
	}

	var config models.Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "Failed to parse configuration")
	}
	return &config, nil
}

// readConfigFile loads .gitsink.yaml from the working directory, falling
// back to the user-level file. A missing file in either place is fine; a
// malformed one is not.
func readConfigFile(v *viper.Viper) error {
	v.SetConfigName(localFileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	err := v.ReadInConfig()
	if err == nil {
		return nil
	}
	if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
		return errors.Wrap(err, errors.ErrCodeConfigInvalid, "Failed to read config file").
			WithContext("file", v.ConfigFileUsed())
	}

	if !Exists() {
		return nil
	}
	v.SetConfigFile(File())
	if err := v.ReadInConfig(); err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigInvalid, "Failed to read config file").
			WithContext("file", File())
	}
	return nil
}

// Save writes the user-level config file. Used by the setup wizard; the
// password is omitted from the yaml when it lives in the keyring.
func Save(config *models.Config) error {
	if err := os.MkdirAll(Dir(), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(File(), data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
