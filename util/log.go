// Package util provides process-level helpers shared by all other
// packages.
package util

import (
	"io"
	"os"

	log "github.com/sirupsen/logrus"
)

// SetupLogging configures the process-wide logger. All log output goes
// to stderr so stdout carries nothing but dump text. Verbosity 0 shows
// warnings and errors; -v adds informational notes (such as absent
// optional streams); -vv adds decode detail.
func SetupLogging(verbosity int) {
	log.SetOutput(os.Stderr)
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	switch {
	case verbosity <= 0:
		log.SetLevel(log.WarnLevel)
	case verbosity == 1:
		log.SetLevel(log.InfoLevel)
	default:
		log.SetLevel(log.DebugLevel)
	}
}

// SetLogOutput redirects log output, for tests that assert on log
// behavior.
func SetLogOutput(w io.Writer) {
	log.SetOutput(w)
}
