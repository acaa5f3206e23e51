package minidump

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/emirpasic/gods/maps/linkedhashmap"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	mderrors "mddump/internal/errors"
)

// Options are per-handle decode settings. Zero values select the defaults
// below. Callers that need every module listed (the modules-debug-info
// table) pass MaxModules = math.MaxUint32 for that open only; the cap is
// never process-global state.
type Options struct {
	// Hexdump renders the bytes of each memory region when the memory
	// list is printed.
	Hexdump bool

	MaxModules      uint32
	MaxThreads      uint32
	MaxMemoryRanges uint32
}

// Default decode caps. A stream whose element count exceeds its cap fails
// to decode; the caps exist so a corrupt count field cannot drive a huge
// allocation.
const (
	DefaultMaxModules      = 1024
	DefaultMaxThreads      = 4096
	DefaultMaxMemoryRanges = 4096

	maxStreamCount = 4096
)

func (o Options) withDefaults() Options {
	if o.MaxModules == 0 {
		o.MaxModules = DefaultMaxModules
	}
	if o.MaxThreads == 0 {
		o.MaxThreads = DefaultMaxThreads
	}
	if o.MaxMemoryRanges == 0 {
		o.MaxMemoryRanges = DefaultMaxMemoryRanges
	}
	return o
}

// Minidump is an opened, read-only minidump container. It is exclusively
// owned by one dump run and is not safe for concurrent use: stream reads
// share a single seek cursor.
type Minidump struct {
	r      io.ReadSeeker
	closer io.Closer
	opts   Options
	order  binary.ByteOrder

	header RawHeader
	dir    []Directory

	// streams indexes the directory by stream type in file order; the
	// first entry of a type wins.
	streams *linkedhashmap.Map
}

// Open opens the minidump at path and reads its header and directory.
func Open(path string, opts Options) (*Minidump, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open minidump")
	}
	md, err := NewReader(f, opts)
	if err != nil {
		f.Close()
		return nil, err
	}
	md.closer = f
	return md, nil
}

// NewReader reads a minidump from an in-memory or already-open source.
func NewReader(r io.ReadSeeker, opts Options) (*Minidump, error) {
	md := &Minidump{
		r:       r,
		opts:    opts.withDefaults(),
		streams: linkedhashmap.New(),
	}
	if err := md.read(); err != nil {
		return nil, err
	}
	return md, nil
}

// Close releases the underlying file, if this handle owns one.
func (md *Minidump) Close() error {
	if md.closer == nil {
		return nil
	}
	return md.closer.Close()
}

// Options returns the decode settings this handle was opened with.
func (md *Minidump) Options() Options { return md.opts }

// read parses the header and stream directory. Minidumps are written in
// the producer's byte order; a byte-swapped signature identifies a dump
// from the opposite endianness.
func (md *Minidump) read() error {
	sig, err := md.readAt(0, 4)
	if err != nil {
		return &mderrors.FormatError{Offset: 0, What: "signature", Err: err}
	}
	switch {
	case binary.LittleEndian.Uint32(sig) == headerSignature:
		md.order = binary.LittleEndian
	case binary.BigEndian.Uint32(sig) == headerSignature:
		md.order = binary.BigEndian
	default:
		return &mderrors.FormatError{Offset: 0, What: "signature",
			Err: errors.Errorf("0x%08x is not a minidump signature", binary.LittleEndian.Uint32(sig))}
	}

	raw, err := md.readAt(0, headerSize)
	if err != nil {
		return &mderrors.FormatError{Offset: 0, What: "header", Err: err}
	}
	if err := binary.Read(bytes.NewReader(raw), md.order, &md.header); err != nil {
		return &mderrors.FormatError{Offset: 0, What: "header", Err: err}
	}
	if v := md.header.Version & headerVersionMask; v != headerVersion {
		return &mderrors.FormatError{Offset: 0, What: "header version",
			Err: errors.Errorf("0x%04x, want 0x%04x", v, headerVersion)}
	}
	if md.header.StreamCount > maxStreamCount {
		return &mderrors.FormatError{Offset: 0, What: "stream count",
			Err: errors.Errorf("%d exceeds limit %d", md.header.StreamCount, maxStreamCount)}
	}

	dirOff := uint64(md.header.StreamDirectoryRVA)
	raw, err = md.readAt(dirOff, md.header.StreamCount*directorySize)
	if err != nil {
		return &mderrors.FormatError{Offset: dirOff, What: "stream directory", Err: err}
	}
	md.dir = make([]Directory, md.header.StreamCount)
	if err := binary.Read(bytes.NewReader(raw), md.order, md.dir); err != nil {
		return &mderrors.FormatError{Offset: dirOff, What: "stream directory", Err: err}
	}

	for _, entry := range md.dir {
		if _, dup := md.streams.Get(entry.StreamType); dup {
			log.WithField("stream_type", fmt.Sprintf("0x%x", entry.StreamType)).
				Debug("Duplicate stream type in directory, keeping first")
			continue
		}
		md.streams.Put(entry.StreamType, entry)
	}
	return nil
}

// SeekToStreamType positions the read cursor at the start of the stream
// with the given type and returns its length. The second return is false
// if the directory has no such stream.
func (md *Minidump) SeekToStreamType(streamType uint32) (uint32, bool) {
	v, ok := md.streams.Get(streamType)
	if !ok {
		return 0, false
	}
	entry := v.(Directory)
	if _, err := md.r.Seek(int64(entry.Location.RVA), io.SeekStart); err != nil {
		return 0, false
	}
	return entry.Location.DataSize, true
}

// ReadBytes reads exactly n bytes from the current cursor position. Fewer
// available bytes than requested is an error.
func (md *Minidump) ReadBytes(n uint32) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(md.r, buf); err != nil {
		return nil, errors.Wrap(err, "read stream bytes")
	}
	return buf, nil
}

// readAt reads n bytes at an absolute container offset.
func (md *Minidump) readAt(off uint64, n uint32) ([]byte, error) {
	if _, err := md.r.Seek(int64(off), io.SeekStart); err != nil {
		return nil, errors.Wrapf(err, "seek to 0x%x", off)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(md.r, buf); err != nil {
		return nil, errors.Wrapf(err, "read %d bytes at 0x%x", n, off)
	}
	return buf, nil
}

// readLocation reads the byte range named by a location descriptor.
func (md *Minidump) readLocation(loc LocationDescriptor) ([]byte, error) {
	return md.readAt(uint64(loc.RVA), loc.DataSize)
}

// streamData returns the full payload of the stream with the given type,
// or ErrStreamNotFound if the directory has no such stream.
func (md *Minidump) streamData(streamType uint32) ([]byte, error) {
	v, ok := md.streams.Get(streamType)
	if !ok {
		return nil, mderrors.ErrStreamNotFound
	}
	entry := v.(Directory)
	data, err := md.readLocation(entry.Location)
	if err != nil {
		return nil, &mderrors.StreamError{
			StreamType: streamType,
			Name:       StreamTypeName(streamType),
			Err:        err,
		}
	}
	return data, nil
}

// Header returns the decoded container header.
func (md *Minidump) Header() RawHeader { return md.header }

// Directory returns the stream directory in file order.
func (md *Minidump) Directory() []Directory { return md.dir }

// StreamTypeName returns the conventional name for a stream type, or the
// hex value for types this package does not know.
func StreamTypeName(streamType uint32) string {
	switch streamType {
	case ThreadListStream:
		return "MD_THREAD_LIST_STREAM"
	case ModuleListStream:
		return "MD_MODULE_LIST_STREAM"
	case MemoryListStream:
		return "MD_MEMORY_LIST_STREAM"
	case ExceptionStream:
		return "MD_EXCEPTION_STREAM"
	case SystemInfoStream:
		return "MD_SYSTEM_INFO_STREAM"
	case MiscInfoStream:
		return "MD_MISC_INFO_STREAM"
	case MemoryInfoListStream:
		return "MD_MEMORY_INFO_LIST_STREAM"
	case ThreadNamesStream:
		return "MD_THREAD_NAMES_STREAM"
	case BreakpadInfoStream:
		return "MD_BREAKPAD_INFO_STREAM"
	case AssertionInfoStream:
		return "MD_ASSERTION_INFO_STREAM"
	case LinuxCPUInfo:
		return "MD_LINUX_CPU_INFO"
	case LinuxProcStatus:
		return "MD_LINUX_PROC_STATUS"
	case LinuxLSBRelease:
		return "MD_LINUX_LSB_RELEASE"
	case LinuxCmdLine:
		return "MD_LINUX_CMD_LINE"
	case LinuxEnviron:
		return "MD_LINUX_ENVIRON"
	case LinuxAuxv:
		return "MD_LINUX_AUXV"
	case LinuxMaps:
		return "MD_LINUX_MAPS"
	case LinuxDSODebug:
		return "MD_LINUX_DSO_DEBUG"
	case CrashpadInfoStream:
		return "MD_CRASHPAD_INFO_STREAM"
	default:
		return fmt.Sprintf("0x%08x", streamType)
	}
}

// Print writes the container header and stream directory to w.
func (md *Minidump) Print(w io.Writer) {
	h := md.header
	fmt.Fprintf(w, "MDRawHeader\n")
	fmt.Fprintf(w, "  signature            = 0x%x\n", h.Signature)
	fmt.Fprintf(w, "  version              = 0x%x\n", h.Version)
	fmt.Fprintf(w, "  stream_count         = %d\n", h.StreamCount)
	fmt.Fprintf(w, "  stream_directory_rva = 0x%x\n", h.StreamDirectoryRVA)
	fmt.Fprintf(w, "  checksum             = 0x%x\n", h.Checksum)
	fmt.Fprintf(w, "  time_date_stamp      = 0x%x %s\n", h.TimeDateStamp,
		formatTimestamp(h.TimeDateStamp))
	fmt.Fprintf(w, "  flags                = 0x%x\n", h.Flags)
	fmt.Fprintf(w, "\n")

	for i, entry := range md.dir {
		fmt.Fprintf(w, "mDirectory[%d]\n", i)
		fmt.Fprintf(w, "MDRawDirectory\n")
		fmt.Fprintf(w, "  stream_type        = 0x%x (%s)\n",
			entry.StreamType, StreamTypeName(entry.StreamType))
		fmt.Fprintf(w, "  location.data_size = %d\n", entry.Location.DataSize)
		fmt.Fprintf(w, "  location.rva       = 0x%x\n", entry.Location.RVA)
		fmt.Fprintf(w, "\n")
	}
}

func formatTimestamp(ts uint32) string {
	if ts == 0 {
		return "(none)"
	}
	return time.Unix(int64(ts), 0).UTC().Format("2006-01-02 15:04:05 +0000")
}
