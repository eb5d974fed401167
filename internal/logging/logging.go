// Package logging configures the process logger from the logging section.
package logging

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"machine-manual-backend/config"
)

// Configure applies level and format to l. A nil l means the standard
// logger, which is what packages logging through the logrus globals see.
func Configure(l *logrus.Logger, cfg config.LoggingConfig) error {
	if l == nil {
		l = logrus.StandardLogger()
	}
	level, err := logrus.ParseLevel(strings.TrimSpace(cfg.Level))
	if err != nil {
		return errors.Wrapf(err, "invalid logging.level %q", cfg.Level)
	}
	l.SetLevel(level)

	switch cfg.Format {
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	case "", "text":
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return errors.Errorf("unsupported logging.format %q", cfg.Format)
	}
	l.SetOutput(os.Stderr)
	return nil
}
