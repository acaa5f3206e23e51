// Package mdtest assembles synthetic minidump containers in memory for
// tests. It is deliberately permissive: tests use it to produce both
// well-formed and corrupt dumps.
package mdtest

import (
	"bytes"
	"encoding/binary"
	"unicode/utf16"
)

const (
	headerSize      = 32
	headerSignature = 0x504d444d
	headerVersion   = 0xa793
)

// Builder accumulates streams and out-of-line blobs and renders them as a
// little-endian minidump: header first, payloads in insertion order, the
// stream directory at the end of the file.
type Builder struct {
	buf bytes.Buffer
	dir []dirEntry
}

type dirEntry struct {
	streamType uint32
	dataSize   uint32
	rva        uint32
}

// New returns an empty Builder.
func New() *Builder {
	b := &Builder{}
	b.buf.Write(make([]byte, headerSize)) // reserved for the header
	return b
}

// AddBlob appends raw bytes outside any stream and returns their RVA.
// Use it for strings and records that streams reference by offset.
func (b *Builder) AddBlob(data []byte) uint32 {
	rva := uint32(b.buf.Len())
	b.buf.Write(data)
	return rva
}

// AddString appends a minidump UTF-16 string and returns its RVA.
func (b *Builder) AddString(s string) uint32 {
	units := utf16.Encode([]rune(s))
	var out bytes.Buffer
	binary.Write(&out, binary.LittleEndian, uint32(2*len(units)))
	binary.Write(&out, binary.LittleEndian, units)
	binary.Write(&out, binary.LittleEndian, uint16(0)) // terminator
	return b.AddBlob(out.Bytes())
}

// AddUTF8String appends a Crashpad UTF-8 string and returns its RVA.
func (b *Builder) AddUTF8String(s string) uint32 {
	var out bytes.Buffer
	binary.Write(&out, binary.LittleEndian, uint32(len(s)))
	out.WriteString(s)
	out.WriteByte(0)
	return b.AddBlob(out.Bytes())
}

// AddStream appends a stream payload and a directory entry for it.
func (b *Builder) AddStream(streamType uint32, data []byte) *Builder {
	return b.AddStreamDeclared(streamType, data, uint32(len(data)))
}

// AddStreamDeclared appends a stream payload but records the given size
// in the directory. A declared size larger than the bytes actually in
// the file produces a short read when the stream is consumed.
func (b *Builder) AddStreamDeclared(streamType uint32, data []byte, declared uint32) *Builder {
	rva := uint32(b.buf.Len())
	b.buf.Write(data)
	b.dir = append(b.dir, dirEntry{streamType: streamType, dataSize: declared, rva: rva})
	return b
}

// AddRecordStream encodes the given values little-endian, in order, as
// one stream payload. Values must be fixed-size in the encoding/binary
// sense.
func (b *Builder) AddRecordStream(streamType uint32, values ...interface{}) *Builder {
	var out bytes.Buffer
	for _, v := range values {
		binary.Write(&out, binary.LittleEndian, v)
	}
	return b.AddStream(streamType, out.Bytes())
}

// Bytes renders the container.
func (b *Builder) Bytes() []byte {
	out := append([]byte(nil), b.buf.Bytes()...)
	dirRVA := uint32(len(out))
	var dir bytes.Buffer
	for _, entry := range b.dir {
		binary.Write(&dir, binary.LittleEndian, entry.streamType)
		binary.Write(&dir, binary.LittleEndian, entry.dataSize)
		binary.Write(&dir, binary.LittleEndian, entry.rva)
	}
	out = append(out, dir.Bytes()...)

	header := out[:headerSize]
	binary.LittleEndian.PutUint32(header[0:], headerSignature)
	binary.LittleEndian.PutUint32(header[4:], headerVersion)
	binary.LittleEndian.PutUint32(header[8:], uint32(len(b.dir)))
	binary.LittleEndian.PutUint32(header[12:], dirRVA)
	binary.LittleEndian.PutUint32(header[16:], 0)          // checksum
	binary.LittleEndian.PutUint32(header[20:], 0x45d35f73) // time_date_stamp
	binary.LittleEndian.PutUint64(header[24:], 0)          // flags
	return out
}

// Reader renders the container and wraps it in a seekable reader.
func (b *Builder) Reader() *bytes.Reader {
	return bytes.NewReader(b.Bytes())
}
