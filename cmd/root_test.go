package cmd

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mderrors "mddump/internal/errors"
	"mddump/minidump"
	"mddump/minidump/mdtest"
)

// writeDump renders the builder to a file under the test's temp dir.
func writeDump(t *testing.T, b *mdtest.Builder) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.dmp")
	require.NoError(t, os.WriteFile(path, b.Bytes(), 0o644))
	return path
}

// completeDump builds a dump with every required structured stream and
// all six Linux raw streams.
func completeDump() *mdtest.Builder {
	b := mdtest.New()
	b.AddRecordStream(minidump.ThreadListStream, uint32(1), minidump.RawThread{ThreadID: 1})

	var mods bytes.Buffer
	nameRVA := b.AddString("/bin/app")
	binary.Write(&mods, binary.LittleEndian, uint32(1))
	binary.Write(&mods, binary.LittleEndian, minidump.RawModule{ModuleNameRVA: nameRVA})
	b.AddStream(minidump.ModuleListStream, mods.Bytes())

	b.AddRecordStream(minidump.MemoryListStream, uint32(0))
	b.AddRecordStream(minidump.SystemInfoStream, minidump.RawSystemInfo{
		ProcessorArchitecture: 9,
		PlatformID:            0x8201,
		MajorVersion:          5,
		MinorVersion:          10,
	})
	b.AddRecordStream(minidump.MiscInfoStream,
		uint32(24), uint32(0), uint32(0), uint32(0), uint32(0), uint32(0))
	b.AddRecordStream(minidump.MemoryInfoListStream, uint32(16), uint32(48), uint64(0))
	b.AddStream(minidump.LinuxCmdLine, []byte("app\x00"))
	b.AddStream(minidump.LinuxEnviron, []byte("HOME=/root\x00"))
	b.AddStream(minidump.LinuxLSBRelease, []byte("DISTRIB_ID=Ubuntu\x00"))
	b.AddStream(minidump.LinuxProcStatus, []byte("Name:\tapp\x00"))
	b.AddStream(minidump.LinuxCPUInfo, []byte("processor: 0\x00"))
	b.AddStream(minidump.LinuxMaps, []byte("00400000 r-xp\x00"))
	return b
}

func TestExecuteHelp(t *testing.T) {
	var stdout, stderr bytes.Buffer
	err := Execute([]string{"-h"}, &stdout, &stderr)
	require.NoError(t, err)
	assert.Contains(t, stdout.String(), "Usage: mddump")
	assert.Empty(t, stderr.String())
}

func TestExecuteUsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no arguments", nil},
		{"two files", []string{"a.dmp", "b.dmp"}},
		{"unknown flag", []string{"--bogus", "a.dmp"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			err := Execute(tt.args, &stdout, &stderr)
			require.Error(t, err)
			assert.True(t, mderrors.IsUsage(err), "want UsageError, got %v", err)
			assert.Contains(t, stderr.String(), "Usage: mddump")
			assert.Empty(t, stdout.String())
		})
	}
}

func TestExecuteUnreadableFile(t *testing.T) {
	var stdout, stderr bytes.Buffer
	err := Execute([]string{filepath.Join(t.TempDir(), "nope.dmp")}, &stdout, &stderr)
	require.Error(t, err)
	assert.False(t, mderrors.IsUsage(err))
}

func TestExecuteFullDump(t *testing.T) {
	path := writeDump(t, completeDump())
	var stdout, stderr bytes.Buffer
	err := Execute([]string{path}, &stdout, &stderr)
	require.NoError(t, err)
	assert.Contains(t, stdout.String(), "MDRawHeader")
	assert.Contains(t, stdout.String(), "Stream MD_LINUX_MAPS:")
}

func TestExecuteFullDumpMissingRequiredStream(t *testing.T) {
	// Only a thread list: every other required stream is missing.
	b := mdtest.New()
	b.AddRecordStream(minidump.ThreadListStream, uint32(0))
	path := writeDump(t, b)

	var stdout, stderr bytes.Buffer
	err := Execute([]string{path}, &stdout, &stderr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "could not be decoded")
	// Partial output was still produced.
	assert.Contains(t, stdout.String(), "MDRawHeader")
}

func TestExecutePlatformInfo(t *testing.T) {
	path := writeDump(t, completeDump())
	var stdout, stderr bytes.Buffer
	err := Execute([]string{"-P", path}, &stdout, &stderr)
	require.NoError(t, err)
	assert.Equal(t, "linux;5.10.0;amd64\n", stdout.String())
}

func TestExecuteModulesDebugInfo(t *testing.T) {
	path := writeDump(t, completeDump())
	var stdout, stderr bytes.Buffer
	err := Execute([]string{"-M", path}, &stdout, &stderr)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(stdout.String(), "\n"), "\n")
	require.Len(t, lines, 1)
	assert.Equal(t, 3, strings.Count(lines[0], ";"))
	assert.True(t, strings.HasPrefix(lines[0], "/bin/app;"))
}

// -M wins over -P when both are given, matching the historical tool.
func TestExecuteModePrecedence(t *testing.T) {
	path := writeDump(t, completeDump())
	var stdout, stderr bytes.Buffer
	err := Execute([]string{"-M", "-P", path}, &stdout, &stderr)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stdout.String(), "/bin/app;"))
}
