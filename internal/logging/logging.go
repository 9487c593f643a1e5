package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// New creates a stdout logger for the given component.
// Unknown levels fall back to info; format is "text" or "json".
func New(component, level, format string) *logrus.Entry {
	return NewWithOutput(os.Stdout, component, level, format)
}

func NewWithOutput(out io.Writer, component, level, format string) *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(out)

	if strings.EqualFold(format, "json") {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	lvl, err := logrus.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)

	return logger.WithField("component", component)
}
