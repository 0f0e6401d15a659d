// Package logging configures the process-wide logrus logger.
//
//	log := logging.For("catalog")
//	log.WithField("key", key).Warn("row fetch failed")
package logging

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

var base = logrus.New()

// Setup configures level and output format. Unknown levels fall back to info.
func Setup(level, format string) {
	base.SetOutput(os.Stdout)
	if strings.EqualFold(format, "json") {
		base.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		})
	} else {
		base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil || level == "" {
		lvl = logrus.InfoLevel
	}
	base.SetLevel(lvl)
}

// For returns an entry tagged with the component name.
func For(component string) *logrus.Entry {
	return base.WithField("component", component)
}
