// Package config defines the runtime configuration for one mddump
// invocation.
package config

import (
	"math"

	mderrors "mddump/internal/errors"
	"mddump/minidump"
)

// Config holds every tuneable for a single dump run.
type Config struct {
	// ── Input ────────────────────────────────────────────────────────
	Path string // positional minidump path

	// ── Output mode ──────────────────────────────────────────────────
	Hexdump          bool // -x: render memory region bytes in the full dump
	ModulesDebugInfo bool // -M: module identity table instead of a full dump
	PlatformInfo     bool // -P: one platform line instead of a full dump

	// ── Diagnostics ──────────────────────────────────────────────────
	Verbose int // -v (repeatable)
}

// SetPositional validates and applies the non-flag arguments: exactly one
// minidump path.
func (c *Config) SetPositional(args []string) error {
	switch len(args) {
	case 0:
		return &mderrors.UsageError{Message: "missing minidump file"}
	case 1:
		c.Path = args[0]
		return nil
	default:
		return &mderrors.UsageError{Message: "too many arguments, expected one minidump file"}
	}
}

// MinidumpOptions maps this configuration to decode settings for the
// model library. The module-debug-info table must never silently drop
// modules, so that mode alone lifts the module cap; the default cap
// stays in place everywhere else.
func (c *Config) MinidumpOptions() minidump.Options {
	opts := minidump.Options{Hexdump: c.Hexdump}
	if c.ModulesDebugInfo {
		opts.MaxModules = math.MaxUint32
	}
	return opts
}
