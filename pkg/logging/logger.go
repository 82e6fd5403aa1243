package logging

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Format selects the log output format
type Format string

const (
	// FormatText is the colored key=value format for terminals
	FormatText Format = "text"
	// FormatJSON is plain logrus JSON for log collectors
	FormatJSON Format = "json"
)

// New creates a logger writing to stderr with the given level and format.
// An empty level means info, an empty format means text.
func New(level string, format Format) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)

	if level == "" {
		level = "info"
	}
	parsed, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	logger.SetLevel(parsed)

	switch format {
	case "", FormatText:
		logger.SetFormatter(NewColoredJSONFormatter())
	case FormatJSON:
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("invalid log format %q", format)
	}
	return logger, nil
}
