package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/snowflakedb/gosnowflake"

	"gitsink/pkg/errors"
	"gitsink/pkg/models"
)

// Service provides the warehouse read and write paths over a Snowflake
// connection. All sync-state mutation happens here so state transitions
// stay tied to the data writes they describe.
type Service struct {
	db        *sql.DB
	config    models.Snowflake
	connected bool
	timeout   time.Duration
}

// NewService creates a warehouse service for the given connection
// settings. Connect must be called before any other method.
func NewService(config models.Snowflake) *Service {
	return &Service{
		config:  config,
		timeout: 60 * time.Second,
	}
}

// ValidateConfig checks that every required connection setting is present.
func ValidateConfig(config models.Snowflake) error {
	required := []struct{ name, value string }{
		{"account", config.Account},
		{"username", config.Username},
		{"password", config.Password},
		{"role", config.Role},
		{"warehouse", config.Warehouse},
		{"database", config.Database},
		{"schema", config.Schema},
	}
	for _, field := range required {
		if field.value == "" {
			return errors.ConfigError(fmt.Sprintf("%s is required", field.name), "snowflake."+field.name)
		}
	}
	return nil
}

// Connect establishes the connection, retrying transient failures with
// backoff.
func (s *Service) Connect(ctx context.Context) error {
	if s.connected {
		return nil
	}

	return errors.RetryWithBackoff(ctx, func(ctx context.Context) error {
		dsn := fmt.Sprintf("%s:%s@%s/%s/%s?warehouse=%s&role=%s",
			s.config.Username,
			s.config.Password,
			s.config.Account,
			s.config.Database,
			s.config.Schema,
			s.config.Warehouse,
			s.config.Role,
		)

		db, err := sql.Open("snowflake", dsn)
		if err != nil {
			return errors.ConnectionError("Failed to open Snowflake connection", err).
				WithContext("account", s.config.Account)
		}

		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(10 * time.Minute)

		pingCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		if err := db.PingContext(pingCtx); err != nil {
			db.Close()

			if strings.Contains(err.Error(), "authentication") {
				return errors.New(errors.ErrCodeAuthenticationFailed, "Authentication failed").
					WithContext("user", s.config.Username).
					WithSuggestions(
						"Verify your username and password",
						"Check the account identifier and role",
					)
			}

			return errors.ConnectionError("Failed to connect to Snowflake", err).
				WithContext("account", s.config.Account).
				AsRecoverable()
		}

		s.db = db
		s.connected = true
		return nil
	})
}

// Close releases the connection. Safe to call when never connected.
func (s *Service) Close() error {
	if !s.connected {
		return nil
	}

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close connection: %w", err)
	}

	s.connected = false
	return nil
}

func (s *Service) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// withRetry runs a warehouse write with the bounded sink retry policy.
// Only transient failures are retried; exhausted retries surface to the
// caller with the branch's sync state unchanged.
func (s *Service) withRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	return errors.RetryWithBackoff(ctx, fn)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func nullable(v string) interface{} {
	if v == "" {
		return nil
	}
	return v
}
