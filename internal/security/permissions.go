package security

import (
	"fmt"
	"os"
)

const (
	// PermConfigFile is for configuration files that may hold the webhook secret.
	PermConfigFile os.FileMode = 0640

	// PermLogFile is for the server log and the deployment log.
	PermLogFile os.FileMode = 0640

	// PermDBFile is for the SQLite database holding leads.
	PermDBFile os.FileMode = 0640

	// PermExecutable is for generated deploy wrapper scripts.
	// rwxr-x--- (0750): owner can read/write/execute, group can read/execute.
	PermExecutable os.FileMode = 0750

	// PermDirectory is for directories leadbox creates (logs, wrappers, data).
	PermDirectory os.FileMode = 0750
)

// CreateSecureFile creates a new file with secure permissions.
// If the file exists, it will be truncated.
func CreateSecureFile(path string, perm os.FileMode) (*os.File, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return nil, fmt.Errorf("failed to create secure file: %w", err)
	}

	// Explicitly set permissions to bypass umask
	if err := os.Chmod(path, perm); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to set file permissions: %w", err)
	}

	return file, nil
}

// WriteSecureFile writes data to path, replacing any previous content, and
// leaves the file with exactly perm.
func WriteSecureFile(path string, data []byte, perm os.FileMode) error {
	file, err := CreateSecureFile(path, perm)
	if err != nil {
		return err
	}

	if _, err := file.Write(data); err != nil {
		file.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}

	return nil
}

// OpenAppendFile opens path for appending, creating it with perm if needed.
func OpenAppendFile(path string, perm os.FileMode) (*os.File, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, perm)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s for append: %w", path, err)
	}
	return file, nil
}

// CreateSecureDir creates a directory (and parents) and makes sure the
// final directory has perm.
func CreateSecureDir(path string, perm os.FileMode) error {
	if err := os.MkdirAll(path, perm); err != nil {
		return fmt.Errorf("failed to create secure directory: %w", err)
	}

	// MkdirAll is subject to umask
	if err := os.Chmod(path, perm); err != nil {
		return fmt.Errorf("failed to set directory permissions: %w", err)
	}

	return nil
}

// IsWorldReadable checks if a file is readable by others.
func IsWorldReadable(perm os.FileMode) bool {
	return perm&0004 != 0
}

// ValidateSecurePermissions reports an error when a sensitive file can be
// read or written by other users.
func ValidateSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}

	perm := info.Mode().Perm()

	if IsWorldReadable(perm) {
		return fmt.Errorf("file %s is world-readable (%04o), which is insecure for sensitive data", path, perm)
	}

	if perm&0002 != 0 {
		return fmt.Errorf("file %s is world-writable (%04o), which is a serious security risk", path, perm)
	}

	return nil
}
