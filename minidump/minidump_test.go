package minidump_test

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mderrors "mddump/internal/errors"
	"mddump/minidump"
	"mddump/minidump/mdtest"
)

func TestOpenHeaderAndDirectory(t *testing.T) {
	b := mdtest.New()
	b.AddStream(minidump.LinuxCmdLine, []byte("app\x00"))
	b.AddStream(minidump.LinuxEnviron, []byte("HOME=/root\x00"))

	md, err := minidump.NewReader(b.Reader(), minidump.Options{})
	require.NoError(t, err)

	header := md.Header()
	assert.Equal(t, uint32(0x504d444d), header.Signature)
	assert.Equal(t, uint32(0xa793), header.Version&0xffff)
	assert.Equal(t, uint32(2), header.StreamCount)

	dir := md.Directory()
	require.Len(t, dir, 2)
	assert.Equal(t, minidump.LinuxCmdLine, dir[0].StreamType)
	assert.Equal(t, minidump.LinuxEnviron, dir[1].StreamType)
}

func TestOpenRejectsGarbage(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"bad signature", []byte("GARBAGEGARBAGEGARBAGEGARBAGEGARB")},
		{"truncated header", []byte("MDMP\x93\xa7")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := minidump.NewReader(bytes.NewReader(tt.data), minidump.Options{})
			require.Error(t, err)
			var fe *mderrors.FormatError
			assert.True(t, mderrors.As(err, &fe), "want FormatError, got %v", err)
		})
	}
}

func TestOpenRejectsBadVersion(t *testing.T) {
	data := mdtest.New().Bytes()
	binary.LittleEndian.PutUint32(data[4:], 0x1234)
	_, err := minidump.NewReader(bytes.NewReader(data), minidump.Options{})
	require.Error(t, err)
}

// Big-endian producers store the same signature in their own byte order;
// the reader must detect the swap from the signature alone.
func TestOpenBigEndian(t *testing.T) {
	header := make([]byte, 32)
	binary.BigEndian.PutUint32(header[0:], 0x504d444d)
	binary.BigEndian.PutUint32(header[4:], 0xa793)
	binary.BigEndian.PutUint32(header[8:], 0)   // stream_count
	binary.BigEndian.PutUint32(header[12:], 32) // directory right at EOF

	md, err := minidump.NewReader(bytes.NewReader(header), minidump.Options{})
	require.NoError(t, err)
	assert.Equal(t, uint32(0xa793), md.Header().Version)
	assert.Empty(t, md.Directory())
}

func TestSeekToStreamType(t *testing.T) {
	b := mdtest.New()
	b.AddStream(minidump.LinuxMaps, []byte("00400000-00452000 r-xp\x00"))

	md, err := minidump.NewReader(b.Reader(), minidump.Options{})
	require.NoError(t, err)

	length, ok := md.SeekToStreamType(minidump.LinuxMaps)
	require.True(t, ok)
	assert.Equal(t, uint32(23), length)

	data, err := md.ReadBytes(length)
	require.NoError(t, err)
	assert.Equal(t, []byte("00400000-00452000 r-xp\x00"), data)

	_, ok = md.SeekToStreamType(minidump.LinuxAuxv)
	assert.False(t, ok)
}

func TestReadBytesShortRead(t *testing.T) {
	b := mdtest.New()
	b.AddStreamDeclared(minidump.LinuxCPUInfo, []byte("processor: 0\x00"), 0x10000)

	md, err := minidump.NewReader(b.Reader(), minidump.Options{})
	require.NoError(t, err)

	length, ok := md.SeekToStreamType(minidump.LinuxCPUInfo)
	require.True(t, ok)
	_, err = md.ReadBytes(length)
	require.Error(t, err)
}

// The first directory entry of a type wins; later duplicates are ignored.
func TestDuplicateStreamTypeKeepsFirst(t *testing.T) {
	b := mdtest.New()
	b.AddStream(minidump.LinuxCmdLine, []byte("first\x00"))
	b.AddStream(minidump.LinuxCmdLine, []byte("second\x00"))

	md, err := minidump.NewReader(b.Reader(), minidump.Options{})
	require.NoError(t, err)

	length, ok := md.SeekToStreamType(minidump.LinuxCmdLine)
	require.True(t, ok)
	data, err := md.ReadBytes(length)
	require.NoError(t, err)
	assert.Equal(t, []byte("first\x00"), data)
}

func TestGetStreamAbsent(t *testing.T) {
	md, err := minidump.NewReader(mdtest.New().Reader(), minidump.Options{})
	require.NoError(t, err)

	_, err = md.GetThreadList()
	assert.True(t, mderrors.IsNotFound(err), "want ErrStreamNotFound, got %v", err)
	_, err = md.GetSystemInfo()
	assert.True(t, mderrors.IsNotFound(err))
	_, err = md.GetCrashpadInfo()
	assert.True(t, mderrors.IsNotFound(err))
}

func TestStreamTypeName(t *testing.T) {
	assert.Equal(t, "MD_THREAD_LIST_STREAM", minidump.StreamTypeName(minidump.ThreadListStream))
	assert.Equal(t, "MD_LINUX_CMD_LINE", minidump.StreamTypeName(minidump.LinuxCmdLine))
	assert.Equal(t, "0x000000ff", minidump.StreamTypeName(0xff))
}

func TestPrintHeaderAndDirectory(t *testing.T) {
	b := mdtest.New()
	b.AddStream(minidump.LinuxEnviron, []byte("A=1\x00"))

	md, err := minidump.NewReader(b.Reader(), minidump.Options{})
	require.NoError(t, err)

	var out bytes.Buffer
	md.Print(&out)
	text := out.String()
	assert.Contains(t, text, "MDRawHeader")
	assert.Contains(t, text, "signature            = 0x504d444d")
	assert.Contains(t, text, "mDirectory[0]")
	assert.Contains(t, text, "MD_LINUX_ENVIRON")
}
