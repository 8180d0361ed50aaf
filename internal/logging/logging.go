package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// New builds the service logger: JSON formatted, writing to stdout,
// at the requested level (defaulting to info when unparseable).
func New(level string) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(os.Stdout)

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	log.SetLevel(parsed)

	return log
}
