// Package logging configures the process-wide logrus logger.
package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Setup applies level and format to the standard logrus logger.
// An unknown level falls back to info and is reported once.
func Setup(level string, json bool) {
	SetupTo(os.Stderr, level, json)
}

func SetupTo(out io.Writer, level string, json bool) {
	logrus.SetOutput(out)
	if json {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		logrus.SetLevel(logrus.InfoLevel)
		logrus.Warnf("unknown LOG_LEVEL %q, using info", level)
		return
	}
	logrus.SetLevel(lvl)
}
