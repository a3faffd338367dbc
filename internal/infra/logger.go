// README: Structured JSON logger construction.
package infra

import (
	"os"

	"github.com/sirupsen/logrus"
)

func NewLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)
	log.SetFormatter(&logrus.JSONFormatter{})
	if os.Getenv("DISPATCH_LOG_DEBUG") != "" {
		log.SetLevel(logrus.DebugLevel)
	}
	return log
}
