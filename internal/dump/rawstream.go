package dump

import (
	"bytes"
	"fmt"

	log "github.com/sirupsen/logrus"
)

// RawStatus is the outcome of rendering one raw stream.
type RawStatus int

const (
	// RawAbsent: the directory has no stream of this type. Expected for
	// these optional side-channel streams; nothing is printed.
	RawAbsent RawStatus = iota
	// RawOK: the stream was rendered, possibly as a single blank line
	// when its length is zero.
	RawOK
	// RawFailed: the stream is present but could not be read in full.
	RawFailed
)

// DumpRawStream renders the stream with the given type as a sequence of
// NUL-delimited text fragments under a "Stream <name>:" header. It is
// used for the Linux side-channel streams (/proc/cpuinfo, environment,
// command line, ...), whose payloads are mostly printable text.
//
// Each pass writes the remaining buffer from the current offset to the
// end, then an explicit `\0` marker for the NUL that ended the fragment.
// Because the write runs to the end of the buffer rather than to the
// NUL, every pass after the first re-emits the tail that earlier passes
// already printed. That re-emission is a long-standing quirk of this
// tool's output and is kept for compatibility; downstream consumers may
// depend on the exact byte sequence.
//
// A stream whose declared length exceeds the bytes actually available is
// counted as an error and abandoned; other streams are unaffected.
func (d *Dumper) DumpRawStream(streamType uint32, name string) RawStatus {
	length, ok := d.md.SeekToStreamType(streamType)
	if !ok {
		return RawAbsent
	}

	fmt.Fprintf(d.out, "Stream %s:\n", name)

	if length == 0 {
		fmt.Fprintf(d.out, "\n")
		return RawOK
	}

	contents, err := d.md.ReadBytes(length)
	if err != nil {
		d.errors++
		log.WithError(err).WithField("stream", name).Error("Reading raw stream failed")
		return RawFailed
	}

	current := 0
	for current < len(contents) {
		remaining := contents[current:]
		d.out.Write(remaining)
		next := bytes.IndexByte(remaining, 0)
		if next < 0 {
			break
		}
		fmt.Fprintf(d.out, "\\0\n")
		current += next + 1
	}
	fmt.Fprintf(d.out, "\n\n")
	return RawOK
}
