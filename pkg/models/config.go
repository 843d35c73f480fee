package models

type Config struct {
	Snowflake Snowflake `yaml:"snowflake" mapstructure:"snowflake"`
	Sync      Sync      `yaml:"sync" mapstructure:"sync"`
	LogLevel  string    `yaml:"log_level" mapstructure:"log_level"`
}

type Snowflake struct {
	Account   string `yaml:"account" mapstructure:"account"`
	Username  string `yaml:"username" mapstructure:"username"`
	Password  string `yaml:"password,omitempty" mapstructure:"password"`
	Role      string `yaml:"role" mapstructure:"role"`
	Warehouse string `yaml:"warehouse" mapstructure:"warehouse"`
	Database  string `yaml:"database" mapstructure:"database"`
	Schema    string `yaml:"schema" mapstructure:"schema"`
}

type Sync struct {
	RepoID          string `yaml:"repo_id,omitempty" mapstructure:"repo_id"`
	Branch          string `yaml:"branch,omitempty" mapstructure:"branch"`
	AllBranches     bool   `yaml:"all_branches" mapstructure:"all_branches"`
	IncludeRemote   bool   `yaml:"include_remote" mapstructure:"include_remote"`
	MaxFileSize     int64  `yaml:"max_file_size" mapstructure:"max_file_size"`
	Concurrency     int    `yaml:"concurrency" mapstructure:"concurrency"`
	CommitBatchSize int    `yaml:"commit_batch_size,omitempty" mapstructure:"commit_batch_size"`
}

// DefaultMaxFileSize is the largest file content mirrored into
// current_files when no explicit limit is configured.
const DefaultMaxFileSize int64 = 102400

// DefaultConcurrency bounds the all-branches worker pool.
const DefaultConcurrency = 4

// DefaultCommitBatchSize is the number of commits flushed to the
// warehouse per INSERT statement.
const DefaultCommitBatchSize = 500
