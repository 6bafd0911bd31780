// Package logging configures the process-wide logrus logger.
package logging

import (
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Setup applies the level and format. Unknown levels fall back to info.
func Setup(level, format string) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	log.SetLevel(lvl)
	log.SetOutput(os.Stdout)

	if strings.EqualFold(format, "json") {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	if err != nil {
		log.WithField("level", level).Warn("Unknown log level, using info")
	}
}
