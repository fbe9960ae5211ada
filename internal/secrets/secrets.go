// Package secrets reads credentials from files, such as Docker or systemd
// credentials, as an alternative to plain configuration values.
package secrets

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/tphakala/monadwatch/internal/errors"
	"github.com/tphakala/monadwatch/internal/logger"
)

const (
	// maxSecretFileSize limits secret file reads; secrets are tokens, not documents
	maxSecretFileSize = 64 * 1024

	// group and other permission bits
	permissiveBits = 0o077
)

// ReadFile reads a secret from path. Trailing newlines are removed and an
// empty file is an error. Files readable by group or other are accepted
// with a warning.
func ReadFile(path string) (string, error) {
	if path == "" {
		return "", secretError(errors.NewStd("secret file path is empty"), path)
	}
	cleanPath := filepath.Clean(path)

	info, err := os.Stat(cleanPath)
	if err != nil {
		return "", secretError(err, cleanPath)
	}
	if !info.Mode().IsRegular() {
		return "", secretError(errors.NewStd("secret path is not a regular file"), cleanPath)
	}
	if info.Size() > maxSecretFileSize {
		return "", secretError(errors.NewStd("secret file too large"), cleanPath)
	}
	if perm := info.Mode().Perm(); perm&permissiveBits != 0 {
		logger.Global().Module("secrets").Warn("secret file has group/other permissions",
			logger.String("path", cleanPath),
			logger.String("mode", perm.String()))
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return "", secretError(err, cleanPath)
	}

	// Only trailing newlines; spaces may be part of the secret.
	secret := strings.TrimRight(string(data), "\r\n")
	if secret == "" {
		return "", secretError(errors.NewStd("secret file is empty"), cleanPath)
	}
	return secret, nil
}

// Resolve returns the contents of filePath when it is set, else value.
func Resolve(filePath, value string) (string, error) {
	if filePath == "" {
		return value, nil
	}
	return ReadFile(filePath)
}

func secretError(err error, path string) error {
	return errors.New(err).
		Component("secrets").
		Category(errors.CategoryConfiguration).
		Context("path", path).
		Build()
}
