package logging

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

var validLogFormats = map[string]bool{
	"text":    true,
	"json":    true,
	"colored": true,
}

// Config defines console logging for the application.
type Config struct {
	// Log level, e.g. info, debug etc
	Level string
	// Logging format, one of text, colored or json
	Format string
}

func (c Config) Validate() error {
	if _, err := log.ParseLevel(strings.ToLower(c.Level)); err != nil {
		return errors.Errorf("unknown log level: %s", c.Level)
	}
	if !validLogFormats[c.Format] {
		formats := maps.Keys(validLogFormats)
		slices.Sort(formats)
		return errors.Errorf("unknown log format: %s.  Valid formats are %s", c.Format, formats)
	}
	return nil
}

// Configure applies c to the standard logrus logger.
func Configure(c Config) error {
	if err := c.Validate(); err != nil {
		return err
	}
	level, _ := log.ParseLevel(strings.ToLower(c.Level))
	log.SetLevel(level)
	switch c.Format {
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	case "colored":
		log.SetFormatter(&log.TextFormatter{ForceColors: true, FullTimestamp: true})
	default:
		log.SetFormatter(&log.TextFormatter{DisableColors: true, FullTimestamp: true})
	}
	log.SetOutput(os.Stdout)
	return nil
}
