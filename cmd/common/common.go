// Package common holds functions shared by the feedme-client command-line binaries.
package common

import (
	"fmt"

	"github.com/auriora/feedme-client/pkg/logging"
)

const version = "0.1.0rc1"

var commit string

// Version returns the current version string.
func Version() string {
	clen := 0
	if len(commit) > 7 {
		clen = 8
	}
	return fmt.Sprintf("v%s %s", version, commit[:clen])
}

// StringToLevel converts a string to a logging.Level that can be used with the logging package.
func StringToLevel(input string) logging.Level {
	level, err := logging.ParseLevel(input)
	if err != nil {
		logging.Error().Err(err).Msg("Could not parse log level, defaulting to \"debug\"")
		return logging.DebugLevel
	}
	return level
}

// LogLevels returns the available logging levels.
func LogLevels() []string {
	return []string{"trace", "debug", "info", "warn", "error", "fatal"}
}
