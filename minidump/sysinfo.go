package minidump

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/pkg/errors"
)

// SystemInfo is the decoded system info stream.
type SystemInfo struct {
	Raw        RawSystemInfo
	CSDVersion string // service pack / kernel version string, may be empty
}

// GetSystemInfo decodes the system info stream.
func (md *Minidump) GetSystemInfo() (*SystemInfo, error) {
	data, err := md.streamData(SystemInfoStream)
	if err != nil {
		return nil, err
	}
	si := &SystemInfo{}
	if err := binary.Read(bytes.NewReader(data), md.order, &si.Raw); err != nil {
		return nil, md.streamErr(SystemInfoStream, errors.Wrap(err, "system info record"))
	}
	if si.Raw.CSDVersionRVA != 0 {
		csd, err := md.readString(uint64(si.Raw.CSDVersionRVA))
		if err != nil {
			return nil, md.streamErr(SystemInfoStream, errors.Wrap(err, "csd version string"))
		}
		si.CSDVersion = csd
	}
	return si, nil
}

// OS returns a short name for the platform the dump was produced on.
func (si *SystemInfo) OS() string {
	switch si.Raw.PlatformID {
	case osWin32NT, osWin32Windows:
		return "windows"
	case osWin32CE:
		return "windows ce"
	case osMacOSX:
		return "mac"
	case osIOS:
		return "ios"
	case osLinux:
		return "linux"
	case osSolaris:
		return "solaris"
	case osAndroid:
		return "android"
	case osPS3:
		return "ps3"
	case osNaCl:
		return "nacl"
	case osFuchsia:
		return "fuchsia"
	case osUnix:
		return "unix"
	default:
		// Unrecognized platforms report an empty name, matching what the
		// semicolon-joined platform-info line expects for unknown fields.
		return ""
	}
}

// CPU returns a short name for the processor architecture.
func (si *SystemInfo) CPU() string {
	switch si.Raw.ProcessorArchitecture {
	case cpuX86:
		return "x86"
	case cpuMIPS:
		return "mips"
	case cpuMIPS64:
		return "mips64"
	case cpuPPC:
		return "ppc"
	case cpuPPC64:
		return "ppc64"
	case cpuARM:
		return "arm"
	case cpuARM64:
		return "arm64"
	case cpuAMD64:
		return "amd64"
	case cpuSPARC:
		return "sparc"
	case cpuRISCV:
		return "riscv"
	case cpuRISCV64:
		return "riscv64"
	default:
		return ""
	}
}

// OSVersion returns the platform version as "major.minor.build".
func (si *SystemInfo) OSVersion() string {
	return fmt.Sprintf("%d.%d.%d",
		si.Raw.MajorVersion, si.Raw.MinorVersion, si.Raw.BuildNumber)
}

// Print writes the system info record to w.
func (si *SystemInfo) Print(w io.Writer) {
	r := si.Raw
	fmt.Fprintf(w, "MDRawSystemInfo\n")
	fmt.Fprintf(w, "  processor_architecture = 0x%x (%s)\n", r.ProcessorArchitecture, si.CPU())
	fmt.Fprintf(w, "  processor_level        = %d\n", r.ProcessorLevel)
	fmt.Fprintf(w, "  processor_revision     = 0x%x\n", r.ProcessorRevision)
	fmt.Fprintf(w, "  number_of_processors   = %d\n", r.NumberOfProcessors)
	fmt.Fprintf(w, "  product_type           = %d\n", r.ProductType)
	fmt.Fprintf(w, "  major_version          = %d\n", r.MajorVersion)
	fmt.Fprintf(w, "  minor_version          = %d\n", r.MinorVersion)
	fmt.Fprintf(w, "  build_number           = %d\n", r.BuildNumber)
	fmt.Fprintf(w, "  platform_id            = 0x%x (%s)\n", r.PlatformID, si.OS())
	fmt.Fprintf(w, "  csd_version_rva        = 0x%x\n", r.CSDVersionRVA)
	fmt.Fprintf(w, "  suite_mask             = 0x%x\n", r.SuiteMask)
	if si.CSDVersion != "" {
		fmt.Fprintf(w, "  (csd_version)          = \"%s\"\n", si.CSDVersion)
	}
	fmt.Fprintf(w, "\n")
}
