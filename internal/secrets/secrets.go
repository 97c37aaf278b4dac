package secrets

import (
	"fmt"
	"os"
	"strings"
)

// Get resolves a secret from the environment. A KEY_FILE variant pointing at
// a mounted file (Docker/Kubernetes secrets) takes precedence over the plain
// KEY variable; file contents are trimmed of surrounding whitespace.
func Get(envKey string, defaultValue string) (string, error) {
	if filePath := os.Getenv(envKey + "_FILE"); filePath != "" {
		data, err := os.ReadFile(filePath)
		if err != nil {
			return "", fmt.Errorf("read secret file %s: %w", filePath, err)
		}
		return strings.TrimSpace(string(data)), nil
	}

	if value := os.Getenv(envKey); value != "" {
		return value, nil
	}

	return defaultValue, nil
}

// GetOptional resolves a secret and swallows file read errors, falling back
// to the default. Used for credentials the service can run without.
func GetOptional(envKey string, defaultValue string) string {
	value, err := Get(envKey, defaultValue)
	if err != nil {
		return defaultValue
	}
	return value
}
