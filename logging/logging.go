package logging

import (
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
)

// EnvLogLevel overrides the level picked from the command line.
const EnvLogLevel = "DASHLINK_LOG_LEVEL"

// Configure sets up the process wide logger. verbose selects debug output, which
// includes a line per transmitted or received frame.
func Configure(verbose bool) {
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05.000",
	})
	log.SetLevel(Level(verbose, os.Getenv(EnvLogLevel)))
}

// Level resolves the effective level. An unparsable override is ignored.
func Level(verbose bool, override string) log.Level {
	level := log.InfoLevel
	if verbose {
		level = log.DebugLevel
	}
	override = strings.TrimSpace(override)
	if override == "" {
		return level
	}
	parsed, err := log.ParseLevel(override)
	if err != nil {
		log.WithField("value", override).Warnf("ignoring invalid %s", EnvLogLevel)
		return level
	}
	return parsed
}
