// Package minidump reads Windows/Breakpad minidump crash-report containers.
//
// A minidump is a directory of typed streams: structured records (thread
// list, module list, system info, ...) plus loosely-typed byte blobs such
// as the Linux /proc side-channel streams. This package decodes the
// container and the structured streams read-only; it never writes or
// repairs a dump.
package minidump

// Stream types found in the directory. The numeric values are fixed by the
// minidump format; the 0x4767xxxx range is the Breakpad extension space
// ("Gg") and 0x4350xxxx is the Crashpad extension space ("CP").
const (
	ThreadListStream     uint32 = 3
	ModuleListStream     uint32 = 4
	MemoryListStream     uint32 = 5
	ExceptionStream      uint32 = 6
	SystemInfoStream     uint32 = 7
	MiscInfoStream       uint32 = 15
	MemoryInfoListStream uint32 = 16
	ThreadNamesStream    uint32 = 24

	BreakpadInfoStream  uint32 = 0x47670001
	AssertionInfoStream uint32 = 0x47670002
	LinuxCPUInfo        uint32 = 0x47670003
	LinuxProcStatus     uint32 = 0x47670004
	LinuxLSBRelease     uint32 = 0x47670005
	LinuxCmdLine        uint32 = 0x47670006
	LinuxEnviron        uint32 = 0x47670007
	LinuxAuxv           uint32 = 0x47670008
	LinuxMaps           uint32 = 0x47670009
	LinuxDSODebug       uint32 = 0x4767000A

	CrashpadInfoStream uint32 = 0x43500001
)

// headerSignature is "MDMP" read as a little-endian uint32.
const (
	headerSignature   uint32 = 0x504d444d
	headerVersionMask uint32 = 0x0000ffff
	headerVersion     uint32 = 0xa793
)

const (
	headerSize    = 32
	directorySize = 12
)

// RawHeader is the fixed-size container header at offset 0.
type RawHeader struct {
	Signature          uint32
	Version            uint32
	StreamCount        uint32
	StreamDirectoryRVA uint32
	Checksum           uint32
	TimeDateStamp      uint32
	Flags              uint64
}

// LocationDescriptor addresses a byte range within the container file.
type LocationDescriptor struct {
	DataSize uint32
	RVA      uint32
}

// MemoryDescriptor maps a range of the crashed process's address space to
// a byte range in the container.
type MemoryDescriptor struct {
	StartOfMemoryRange uint64
	Memory             LocationDescriptor
}

// Directory is one stream directory entry.
type Directory struct {
	StreamType uint32
	Location   LocationDescriptor
}

// RawThread is one entry of the thread list stream.
type RawThread struct {
	ThreadID      uint32
	SuspendCount  uint32
	PriorityClass uint32
	Priority      uint32
	TEB           uint64
	Stack         MemoryDescriptor
	ThreadContext LocationDescriptor
}

// rawThreadName is one entry of the thread names stream. The name itself
// is a UTF-16 string addressed by a 64-bit RVA.
type rawThreadName struct {
	ThreadID  uint32
	NameRVA64 uint64
}

// VSFixedFileInfo is the version block embedded in each module record.
type VSFixedFileInfo struct {
	Signature        uint32
	StructVersion    uint32
	FileVersionHi    uint32
	FileVersionLo    uint32
	ProductVersionHi uint32
	ProductVersionLo uint32
	FileFlagsMask    uint32
	FileFlags        uint32
	FileOS           uint32
	FileType         uint32
	FileSubtype      uint32
	FileDateHi       uint32
	FileDateLo       uint32
}

// RawModule is one entry of the module list stream.
type RawModule struct {
	BaseOfImage   uint64
	SizeOfImage   uint32
	Checksum      uint32
	TimeDateStamp uint32
	ModuleNameRVA uint32
	VersionInfo   VSFixedFileInfo
	CVRecord      LocationDescriptor
	MiscRecord    LocationDescriptor
	Reserved0     uint64
	Reserved1     uint64
}

// CodeView record signatures found behind RawModule.CVRecord.
const (
	cvSignaturePDB70 uint32 = 0x53445352 // "RSDS"
	cvSignaturePDB20 uint32 = 0x3031424e // "NB10"
	cvSignatureELF   uint32 = 0x4270454c // "LEpB", Breakpad ELF build id
)

// RawSystemInfo is the system info stream payload.
type RawSystemInfo struct {
	ProcessorArchitecture uint16
	ProcessorLevel        uint16
	ProcessorRevision     uint16
	NumberOfProcessors    uint8
	ProductType           uint8
	MajorVersion          uint32
	MinorVersion          uint32
	BuildNumber           uint32
	PlatformID            uint32
	CSDVersionRVA         uint32
	SuiteMask             uint16
	Reserved2             uint16
	CPU                   [24]byte
}

// Platform identifiers for RawSystemInfo.PlatformID.
const (
	osWin32Windows uint32 = 1
	osWin32NT      uint32 = 2
	osWin32CE      uint32 = 3
	osUnix         uint32 = 0x8000
	osMacOSX       uint32 = 0x8101
	osIOS          uint32 = 0x8102
	osLinux        uint32 = 0x8201
	osSolaris      uint32 = 0x8202
	osAndroid      uint32 = 0x8203
	osPS3          uint32 = 0x8204
	osNaCl         uint32 = 0x8205
	osFuchsia      uint32 = 0x8206
)

// Processor architectures for RawSystemInfo.ProcessorArchitecture.
const (
	cpuX86     uint16 = 0
	cpuMIPS    uint16 = 1
	cpuPPC     uint16 = 3
	cpuARM     uint16 = 5
	cpuAMD64   uint16 = 9
	cpuARM64   uint16 = 12
	cpuSPARC   uint16 = 0x8001
	cpuPPC64   uint16 = 0x8002
	cpuMIPS64  uint16 = 0x8004
	cpuRISCV   uint16 = 0x8005
	cpuRISCV64 uint16 = 0x8006
	cpuUnknown uint16 = 0xffff
)

// RawMiscInfo is the misc info stream payload. Later format revisions
// append fields; SizeOfInfo and Flags1 gate which ones are meaningful.
type RawMiscInfo struct {
	SizeOfInfo          uint32
	Flags1              uint32
	ProcessID           uint32
	ProcessCreateTime   uint32
	ProcessUserTime     uint32
	ProcessKernelTime   uint32
	ProcessorMaxMhz     uint32
	ProcessorCurrentMhz uint32
	ProcessorMhzLimit   uint32
	ProcessorMaxIdle    uint32
	ProcessorCurIdle    uint32
}

// Misc info validity flags and revision sizes.
const (
	miscInfo1ProcessID      uint32 = 0x00000001
	miscInfo1ProcessTimes   uint32 = 0x00000002
	miscInfo1ProcessorPower uint32 = 0x00000004

	miscInfoSizeV1 = 24
	miscInfoSizeV2 = 44
)

// RawExceptionRecord describes the faulting exception.
type RawExceptionRecord struct {
	ExceptionCode    uint32
	ExceptionFlags   uint32
	ExceptionRecord  uint64
	ExceptionAddress uint64
	NumberParameters uint32
	Alignment        uint32
	Information      [15]uint64
}

// RawExceptionStream is the exception stream payload.
type RawExceptionStream struct {
	ThreadID      uint32
	Alignment     uint32
	Record        RawExceptionRecord
	ThreadContext LocationDescriptor
}

// RawAssertionInfo is the Breakpad assertion stream payload. The three
// strings are fixed-size UTF-16 arrays, not RVAs.
type RawAssertionInfo struct {
	Expression [128]uint16
	Function   [128]uint16
	File       [128]uint16
	Line       uint32
	Type       uint32
}

// RawBreakpadInfo is the Breakpad info stream payload.
type RawBreakpadInfo struct {
	Validity           uint32
	DumpThreadID       uint32
	RequestingThreadID uint32
}

// Validity bits for RawBreakpadInfo.
const (
	breakpadInfoDumpThreadID       uint32 = 0x00000001
	breakpadInfoRequestingThreadID uint32 = 0x00000002
)

// rawMemoryInfoList is the fixed header of the memory info list stream.
type rawMemoryInfoList struct {
	SizeOfHeader    uint32
	SizeOfEntry     uint32
	NumberOfEntries uint64
}

// RawMemoryInfo describes one virtual memory region of the crashed process.
type RawMemoryInfo struct {
	BaseAddress          uint64
	AllocationBase       uint64
	AllocationProtection uint32
	Alignment1           uint32
	RegionSize           uint64
	State                uint32
	Protection           uint32
	Type                 uint32
	Alignment2           uint32
}

// rawCrashpadInfo is the Crashpad info stream payload.
type rawCrashpadInfo struct {
	Version           uint32
	ReportID          GUID
	ClientID          GUID
	SimpleAnnotations LocationDescriptor
	ModuleList        LocationDescriptor
}

// GUID is a Windows-layout GUID as stored in CodeView and Crashpad records.
type GUID struct {
	Data1 uint32
	Data2 uint16
	Data3 uint16
	Data4 [8]byte
}
