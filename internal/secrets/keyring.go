package secrets

import (
	"fmt"

	"github.com/zalando/go-keyring"
)

const service = "gitsink"

// StorePassword saves the Snowflake password for a user in the OS keyring.
func StorePassword(username, password string) error {
	if err := keyring.Set(service, username, password); err != nil {
		return fmt.Errorf("failed to store password in keyring: %w", err)
	}
	return nil
}

// LookupPassword fetches the password for a user. Returns "" without an
// error when no entry exists, so callers can fall through to prompting.
func LookupPassword(username string) (string, error) {
	password, err := keyring.Get(service, username)
	if err == keyring.ErrNotFound {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read password from keyring: %w", err)
	}
	return password, nil
}

// DeletePassword removes a stored entry. Missing entries are not an error.
func DeletePassword(username string) error {
	err := keyring.Delete(service, username)
	if err != nil && err != keyring.ErrNotFound {
		return fmt.Errorf("failed to delete keyring entry: %w", err)
	}
	return nil
}
