// internal/common/config/env.go
package config

import (
	"os"
	"strings"

	"maritime-edge/internal/common/errors"
)

// GetEnvVar returns the value of key, or the first non-empty default.
// It never returns an empty string silently: a missing value is ENV_VAR_MISSING.
func GetEnvVar(key string, def ...string) (string, error) {
	if val, ok := os.LookupEnv(key); ok && strings.TrimSpace(val) != "" {
		return val, nil
	}
	for _, d := range def {
		if d != "" {
			return d, nil
		}
	}
	return "", errors.NewEnvVarMissingError(key)
}
