// Package diag holds the CLI's logging setup and error classification.
package diag

import (
	"fmt"
	"io"
	"strings"

	log "github.com/sirupsen/logrus"
)

// NewLogger builds a logrus logger writing to w. format is "text" (default)
// or "json"; level is any logrus level name ("" means info).
func NewLogger(level, format string, w io.Writer) (*log.Logger, error) {
	l := log.New()
	l.SetOutput(w)

	lvl := log.InfoLevel
	if s := strings.TrimSpace(level); s != "" {
		var err error
		if lvl, err = log.ParseLevel(s); err != nil {
			return nil, err
		}
	}
	l.SetLevel(lvl)

	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "text":
		l.SetFormatter(&log.TextFormatter{DisableTimestamp: true})
	case "json":
		l.SetFormatter(&log.JSONFormatter{})
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
	return l, nil
}
