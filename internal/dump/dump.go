// Package dump renders the contents of a minidump as human-readable text.
//
// It drives the minidump model through a fixed sequence of structured
// streams, then renders the Linux side-channel byte streams, tallying
// per-stream failures into a Report that decides the process exit status.
package dump

import (
	"io"

	log "github.com/sirupsen/logrus"

	"mddump/minidump"
)

// printer is the rendering half of every decoded stream object.
type printer interface {
	Print(w io.Writer)
}

// stage is one structured-stream step of the full dump. Streams marked
// optional are routinely absent (no crash, no assertion, non-Breakpad
// producer); their absence is informational, never an error.
type stage struct {
	name     string
	optional bool
	get      func(md *minidump.Minidump) (printer, error)
}

// stages lists the structured streams of a full dump, in render order.
// The required/optional split mirrors long-standing consumer
// expectations; adjust it here, not in Run.
var stages = []stage{
	{name: "thread list", get: func(md *minidump.Minidump) (printer, error) {
		return asPrinter(md.GetThreadList())
	}},
	{name: "thread names", optional: true, get: func(md *minidump.Minidump) (printer, error) {
		return asPrinter(md.GetThreadNameList())
	}},
	{name: "module list", get: func(md *minidump.Minidump) (printer, error) {
		return asPrinter(md.GetModuleList())
	}},
	{name: "memory list", get: func(md *minidump.Minidump) (printer, error) {
		return asPrinter(md.GetMemoryList())
	}},
	{name: "exception", optional: true, get: func(md *minidump.Minidump) (printer, error) {
		return asPrinter(md.GetException())
	}},
	{name: "assertion", optional: true, get: func(md *minidump.Minidump) (printer, error) {
		return asPrinter(md.GetAssertion())
	}},
	{name: "system info", get: func(md *minidump.Minidump) (printer, error) {
		return asPrinter(md.GetSystemInfo())
	}},
	{name: "misc info", get: func(md *minidump.Minidump) (printer, error) {
		return asPrinter(md.GetMiscInfo())
	}},
	{name: "breakpad info", optional: true, get: func(md *minidump.Minidump) (printer, error) {
		return asPrinter(md.GetBreakpadInfo())
	}},
	{name: "memory info list", get: func(md *minidump.Minidump) (printer, error) {
		return asPrinter(md.GetMemoryInfoList())
	}},
	{name: "crashpad info", optional: true, get: func(md *minidump.Minidump) (printer, error) {
		return asPrinter(md.GetCrashpadInfo())
	}},
}

// asPrinter collapses a typed accessor result to the printer interface
// without smuggling a typed nil through on the error path.
func asPrinter[T printer](obj T, err error) (printer, error) {
	if err != nil {
		return nil, err
	}
	return obj, nil
}

// rawStreams lists the Linux side-channel streams of a full dump, in
// render order.
var rawStreams = []struct {
	streamType uint32
	name       string
}{
	{minidump.LinuxCmdLine, "MD_LINUX_CMD_LINE"},
	{minidump.LinuxEnviron, "MD_LINUX_ENVIRON"},
	{minidump.LinuxLSBRelease, "MD_LINUX_LSB_RELEASE"},
	{minidump.LinuxProcStatus, "MD_LINUX_PROC_STATUS"},
	{minidump.LinuxCPUInfo, "MD_LINUX_CPU_INFO"},
	{minidump.LinuxMaps, "MD_LINUX_MAPS"},
}

// Report is the outcome of one full dump run.
type Report struct {
	// Errors counts required streams that were absent or undecodable
	// plus raw streams that could not be read in full.
	Errors int
}

// OK reports whether the run finished without stream errors.
func (r Report) OK() bool { return r.Errors == 0 }

// Dumper renders one minidump to one writer. It owns the handle's read
// cursor for the duration of Run and is not safe for concurrent use.
type Dumper struct {
	md     *minidump.Minidump
	out    io.Writer
	errors int
}

// New returns a Dumper for the given handle, writing to out.
func New(md *minidump.Minidump, out io.Writer) *Dumper {
	return &Dumper{md: md, out: out}
}

// Run renders the container header and directory, every structured
// stream in stage order, and the Linux raw streams. A failed stream is
// logged and counted; later streams are still attempted.
func (d *Dumper) Run() Report {
	d.md.Print(d.out)

	for _, st := range stages {
		obj, err := st.get(d.md)
		if err != nil {
			if st.optional {
				log.WithError(err).Infof("Optional stream %s unavailable", st.name)
			} else {
				d.errors++
				log.WithError(err).Errorf("Stream %s unavailable", st.name)
			}
			continue
		}
		obj.Print(d.out)
	}

	for _, rs := range rawStreams {
		d.DumpRawStream(rs.streamType, rs.name)
	}

	return Report{Errors: d.errors}
}
