package util

import (
	"os"
	"strings"
)

// GetEnvironmentVariables snapshots the process environment. Values keep any '=' they contain.
func GetEnvironmentVariables() map[string]string {
	environment := make(map[string]string, len(os.Environ()))

	for _, variable := range os.Environ() {
		if name, value, found := strings.Cut(variable, "="); found {
			environment[name] = value
		}
	}

	return environment
}
