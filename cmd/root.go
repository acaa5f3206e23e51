// Package cmd wires up the CLI flags and dispatches to the selected
// output mode.
package cmd

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"

	"mddump/config"
	"mddump/internal/dump"
	mderrors "mddump/internal/errors"
	"mddump/minidump"
	"mddump/util"
)

// Execute parses args and runs the selected output mode, writing dump
// text to stdout and usage/diagnostics to stderr. A nil return means the
// process should exit 0.
func Execute(args []string, stdout, stderr io.Writer) error {
	cfg := &config.Config{}
	fs := flag.NewFlagSet("mddump", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.BoolVarP(&cfg.Hexdump, "hexdump", "x", false, "Display memory in a hexdump like format")
	fs.BoolVarP(&cfg.ModulesDebugInfo, "modules-debug-info", "M", false, "Display modules and debug information")
	fs.BoolVarP(&cfg.PlatformInfo, "platform-info", "P", false, "Display platform information")
	fs.CountVarP(&cfg.Verbose, "verbose", "v", "Increase verbosity (repeatable)")

	var showHelp bool
	fs.BoolVarP(&showHelp, "help", "h", false, "Usage")

	fs.Usage = func() { printUsage(stderr) }

	if err := fs.Parse(args); err != nil {
		return &mderrors.UsageError{Message: err.Error()}
	}
	if showHelp {
		printUsage(stdout)
		return nil
	}
	if err := cfg.SetPositional(fs.Args()); err != nil {
		printUsage(stderr)
		return err
	}

	util.SetupLogging(cfg.Verbose)

	// ── open the container ───────────────────────────────────────────
	md, err := minidump.Open(cfg.Path, cfg.MinidumpOptions())
	if err != nil {
		log.WithError(err).Error("Failed to read minidump")
		return errors.Wrap(err, cfg.Path)
	}
	defer md.Close()

	// ── dispatch the output mode ─────────────────────────────────────
	switch {
	case cfg.ModulesDebugInfo:
		if err := dump.PrintModulesDebugInfo(md, stdout); err != nil {
			log.WithError(err).Error("Failed to list module debug info")
			return err
		}
		return nil
	case cfg.PlatformInfo:
		if err := dump.PrintPlatformInfo(md, stdout); err != nil {
			log.WithError(err).Error("Failed to read platform info")
			return err
		}
		return nil
	default:
		report := dump.New(md, stdout).Run()
		if !report.OK() {
			return errors.Errorf("%d stream(s) could not be decoded", report.Errors)
		}
		return nil
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, `Usage: mddump [options...] <minidump>
Dump data in a minidump.

Options:
  <minidump> should be a minidump.
  -x:	 Display memory in a hexdump like format
  -M:	 Display modules and debug information
  -P:	 Display platform information
  -h:	 Usage
`)
}
