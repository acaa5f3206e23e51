package dump

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mddump/minidump"
	"mddump/minidump/mdtest"
)

// requiredStreams adds every stream the full dump treats as required.
func requiredStreams(b *mdtest.Builder) {
	b.AddRecordStream(minidump.ThreadListStream, uint32(1),
		minidump.RawThread{ThreadID: 0x1})
	addOneModule(b)
	b.AddRecordStream(minidump.MemoryListStream, uint32(0))
	b.AddRecordStream(minidump.SystemInfoStream, minidump.RawSystemInfo{
		ProcessorArchitecture: 9,      // amd64
		PlatformID:            0x8201, // linux
		MajorVersion:          4,
		MinorVersion:          19,
	})
	b.AddRecordStream(minidump.MiscInfoStream,
		uint32(24), uint32(0x1), uint32(77), uint32(0), uint32(0), uint32(0))
	b.AddRecordStream(minidump.MemoryInfoListStream,
		uint32(16), uint32(48), uint64(0))
}

func addOneModule(b *mdtest.Builder) {
	var out bytes.Buffer
	nameRVA := b.AddString("/bin/app")
	mod := minidump.RawModule{BaseOfImage: 0x400000, ModuleNameRVA: nameRVA}
	binary.Write(&out, binary.LittleEndian, uint32(1))
	binary.Write(&out, binary.LittleEndian, mod)
	b.AddStream(minidump.ModuleListStream, out.Bytes())
}

// linuxRawStreams adds all six Linux side-channel streams.
func linuxRawStreams(b *mdtest.Builder) {
	b.AddStream(minidump.LinuxCmdLine, []byte("app\x00--flag\x00"))
	b.AddStream(minidump.LinuxEnviron, []byte("HOME=/root\x00TERM=xterm\x00"))
	b.AddStream(minidump.LinuxLSBRelease, []byte("DISTRIB_ID=Ubuntu\n\x00"))
	b.AddStream(minidump.LinuxProcStatus, []byte("Name:\tapp\n\x00"))
	b.AddStream(minidump.LinuxCPUInfo, []byte("processor\t: 0\n\x00"))
	b.AddStream(minidump.LinuxMaps, []byte("00400000-00452000 r-xp\n\x00"))
}

func runDump(t *testing.T, b *mdtest.Builder) (Report, string) {
	t.Helper()
	md, err := minidump.NewReader(b.Reader(), minidump.Options{})
	require.NoError(t, err)
	var out bytes.Buffer
	report := New(md, &out).Run()
	return report, out.String()
}

func TestRunCompleteDump(t *testing.T) {
	b := mdtest.New()
	requiredStreams(b)
	linuxRawStreams(b)

	report, text := runDump(t, b)

	assert.True(t, report.OK())
	assert.Equal(t, 0, report.Errors)

	// Every structured section present in the output.
	for _, section := range []string{
		"MDRawHeader",
		"MinidumpThreadList",
		"MinidumpModuleList",
		"MinidumpMemoryList",
		"MDRawSystemInfo",
		"MDRawMiscInfo",
		"MinidumpMemoryInfoList",
	} {
		assert.Contains(t, text, section)
	}

	// The six raw streams render in their fixed order.
	order := []string{
		"Stream MD_LINUX_CMD_LINE:",
		"Stream MD_LINUX_ENVIRON:",
		"Stream MD_LINUX_LSB_RELEASE:",
		"Stream MD_LINUX_PROC_STATUS:",
		"Stream MD_LINUX_CPU_INFO:",
		"Stream MD_LINUX_MAPS:",
	}
	last := -1
	for _, header := range order {
		idx := strings.Index(text, header)
		require.NotEqual(t, -1, idx, "missing %q", header)
		assert.Greater(t, idx, last, "%q out of order", header)
		last = idx
	}
}

// Absent optional streams never count as errors.
func TestRunOptionalStreamsAbsent(t *testing.T) {
	b := mdtest.New()
	requiredStreams(b)

	report, text := runDump(t, b)

	assert.Equal(t, 0, report.Errors)
	assert.NotContains(t, text, "MDRawExceptionStream")
	assert.NotContains(t, text, "MDRawBreakpadInfo")
}

// A missing required stream is counted but does not stop later stages.
func TestRunMissingModuleList(t *testing.T) {
	b := mdtest.New()
	b.AddRecordStream(minidump.ThreadListStream, uint32(1), minidump.RawThread{})
	b.AddRecordStream(minidump.MemoryListStream, uint32(0))
	b.AddRecordStream(minidump.SystemInfoStream, minidump.RawSystemInfo{})
	b.AddRecordStream(minidump.MiscInfoStream,
		uint32(24), uint32(0), uint32(0), uint32(0), uint32(0), uint32(0))
	b.AddRecordStream(minidump.MemoryInfoListStream,
		uint32(16), uint32(48), uint64(0))
	linuxRawStreams(b)

	report, text := runDump(t, b)

	assert.Equal(t, 1, report.Errors)
	assert.False(t, report.OK())
	// Later stages still rendered.
	assert.Contains(t, text, "MDRawSystemInfo")
	assert.Contains(t, text, "Stream MD_LINUX_MAPS:")
}

func TestRunEmptyDumpCountsAllRequired(t *testing.T) {
	report, _ := runDump(t, mdtest.New())
	// thread list, module list, memory list, system info, misc info,
	// memory info list.
	assert.Equal(t, 6, report.Errors)
}

func TestRunRawStreamErrorCounted(t *testing.T) {
	b := mdtest.New()
	requiredStreams(b)
	b.AddStreamDeclared(minidump.LinuxEnviron, []byte("HOME=/root\x00"), 0x100000)

	report, _ := runDump(t, b)
	assert.Equal(t, 1, report.Errors)
}

func TestRunOptionalStreamsPresent(t *testing.T) {
	b := mdtest.New()
	requiredStreams(b)
	b.AddRecordStream(minidump.ExceptionStream, minidump.RawExceptionStream{
		ThreadID: 0x1,
		Record:   minidump.RawExceptionRecord{ExceptionCode: 0xb},
	})
	b.AddRecordStream(minidump.BreakpadInfoStream, minidump.RawBreakpadInfo{Validity: 0x1})

	report, text := runDump(t, b)

	assert.Equal(t, 0, report.Errors)
	assert.Contains(t, text, "MDRawExceptionStream")
	assert.Contains(t, text, "MDRawBreakpadInfo")
}
