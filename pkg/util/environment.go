package util

import (
	"os"
	"strconv"
	"strings"
)

func GetEnvironmentVariables() map[string]string {
	environmentVariables := map[string]string{}

	for _, variable := range os.Environ() {
		pair := strings.SplitN(variable, "=", 2)

		environmentVariables[pair[0]] = pair[1]
	}

	return environmentVariables
}

// EnvironmentInt reads an integer variable from env, falling back when it is unset or malformed
func EnvironmentInt(env map[string]string, name string, fallback int) int {
	if env[name] == "" {
		return fallback
	}

	if n, err := strconv.Atoi(env[name]); err == nil {
		return n
	}

	return fallback
}
