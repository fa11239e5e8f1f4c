package logger

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Config contains the logger configuration.
type Config struct {
	Format string `mapstructure:"format" help:"Format to write log lines in" enum:"text,json" default:"text"`
	Level  string `mapstructure:"level" help:"Lowest log level that will be emitted" enum:"trace,debug,info,warn,error" default:"info"`
	File   string `mapstructure:"file" help:"File to append logs to. If left blank, or '-', logs go to stderr" default:"-"`
}

// New builds a logger from cfg. The returned closer releases the log file
// and must be called once the logger is no longer used.
func New(cfg Config) (*logrus.Logger, io.Closer, error) {
	l := logrus.New()
	l.SetOutput(os.Stderr)

	var closer io.Closer = nopCloser{}

	if cfg.Level != "" {
		level, err := logrus.ParseLevel(cfg.Level)
		if err != nil {
			return nil, nil, err
		}
		l.SetLevel(level)
	}

	switch cfg.Format {
	case "", "text":
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, nil, fmt.Errorf("log format must be either text or json, got %q", cfg.Format)
	}

	if cfg.File != "" && cfg.File != "-" {
		f, err := os.OpenFile(cfg.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o666)
		if err != nil {
			return nil, nil, err
		}
		l.SetOutput(f)
		closer = f
	}

	return l, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
