// Package logging sets up the logrus standard logger the gridmap packages log to.
package logging

import (
	"fmt"
	"io"
	"os"

	nested "github.com/antonfisher/nested-logrus-formatter"
	log "github.com/sirupsen/logrus"
)

const TimestampFormat = "2006-01-02 15:04:05.000"

func Formatter() log.Formatter {
	return &nested.Formatter{
		HideKeys:        true,
		ShowFullLevel:   true,
		TimestampFormat: TimestampFormat,
		FieldsOrder:     []string{"component", "run"},
	}
}

// Setup configures the standard logger with the nested formatter at level.
// With file set, the log goes to stderr and is appended to file. The returned
// closer releases file.
func Setup(level, file string) (io.Closer, error) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	log.SetLevel(lvl)
	log.SetFormatter(Formatter())

	if file == "" {
		log.SetOutput(os.Stderr)
		return io.NopCloser(nil), nil
	}
	f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file %s: %w", file, err)
	}
	log.SetOutput(io.MultiWriter(os.Stderr, f))
	return f, nil
}

// Component is the logger of one part of gridmap.
func Component(name string) *log.Entry {
	return log.WithField("component", name)
}
