package logger

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

var DefaultLogger = log.NewWithOptions(os.Stderr, log.Options{
	ReportTimestamp: true,
	TimeFormat:      "2006-01-02 15:04:05",
})

// Init applies the configured level. Accepted names are debug, info, warn,
// error and none; dev and prod are kept as aliases for debug and info.
func Init(level string) error {
	lvl, err := ParseLevel(level)
	if err != nil {
		return err
	}
	DefaultLogger.SetLevel(lvl)
	DefaultLogger.SetReportCaller(lvl == log.DebugLevel)
	return nil
}

// ParseLevel converts a level name to a charmbracelet level.
func ParseLevel(level string) (log.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info", "prod":
		return log.InfoLevel, nil
	case "debug", "dev":
		return log.DebugLevel, nil
	case "warn", "warning":
		return log.WarnLevel, nil
	case "error":
		return log.ErrorLevel, nil
	case "none", "off":
		return log.FatalLevel, nil
	default:
		return log.InfoLevel, fmt.Errorf("unknown log level %q", level)
	}
}

// Named returns a child logger tagged with prefix.
func Named(prefix string) *log.Logger {
	return DefaultLogger.WithPrefix(prefix)
}
