// Package secrets resolves config values that may be indirected through an
// environment variable or a file, adapted from
// sandrolain-events-bridge/src/common/secrets/secrets.go (Resolve), used
// here for the database password and the session cookie salt so neither has
// to live in plaintext in the config file.
package secrets

import (
	"fmt"
	"os"
	"strings"
)

const (
	envPrefix  = "env:"
	filePrefix = "file:"
)

// Resolve interprets value:
//
//	"env:NAME"  -> the value of environment variable NAME
//	"file:PATH" -> the trimmed contents of the file at PATH
//	anything else -> returned as-is
func Resolve(value string) (string, error) {
	switch {
	case strings.HasPrefix(value, envPrefix):
		name := strings.TrimPrefix(value, envPrefix)
		v, ok := os.LookupEnv(name)
		if !ok {
			return "", fmt.Errorf("secrets: environment variable %q is not set", name)
		}
		return v, nil
	case strings.HasPrefix(value, filePrefix):
		path := strings.TrimPrefix(value, filePrefix)
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("secrets: read secret file %q: %w", path, err)
		}
		return strings.TrimRight(string(data), "\r\n"), nil
	default:
		return value, nil
	}
}
