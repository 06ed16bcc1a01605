// Package logging configures the logrus logger pase writes to. The terminal is
// owned by the board, so logs go to a rotated file.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options selects the log destination and level.
type Options struct {
	Path  string
	Level string
}

// Setup builds a logger writing to a lumberjack-rotated file at opts.Path.
// The returned closer releases the file.
func Setup(opts Options) (*logrus.Logger, io.Closer, error) {
	level, err := parseLevel(opts.Level)
	if err != nil {
		return nil, nil, err
	}
	if strings.TrimSpace(opts.Path) == "" {
		return nil, nil, fmt.Errorf("log path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}

	out := &lumberjack.Logger{
		Filename:   opts.Path,
		MaxSize:    32, // megabytes
		MaxBackups: 2,
		MaxAge:     28, // days
		Compress:   true,
	}
	return New(out, level), out, nil
}

// New builds a logger writing to w at level, formatted like the log file.
func New(w io.Writer, level logrus.Level) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(w)
	log.SetLevel(level)
	log.SetFormatter(&logrus.TextFormatter{
		PadLevelText:    true,
		DisableColors:   true,
		FullTimestamp:   true,
		TimestampFormat: time.DateTime,
	})
	return log
}

func parseLevel(level string) (logrus.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return logrus.TraceLevel, nil
	case "debug":
		return logrus.DebugLevel, nil
	case "", "info":
		return logrus.InfoLevel, nil
	case "warn", "warning":
		return logrus.WarnLevel, nil
	case "error":
		return logrus.ErrorLevel, nil
	default:
		return logrus.InfoLevel, fmt.Errorf("unknown log level %q", level)
	}
}
