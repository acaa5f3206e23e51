package minidump

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// vsFixedFileInfoSignature marks a populated version info block.
const vsFixedFileInfoSignature = 0xfeef04bd

// Module is one loaded module of the crashed process, with its identity
// fields derived from the record and its CodeView blob.
type Module struct {
	Raw  RawModule
	Name string

	cv       []byte // raw CodeView record, nil if absent
	order    binary.ByteOrder
	platform uint32 // platform id from system info, 0 if unknown
}

// ModuleList is the decoded module list stream.
type ModuleList struct {
	Modules []*Module
}

// GetModuleList decodes the module list stream. The element count is
// bounded by Options.MaxModules for the handle.
func (md *Minidump) GetModuleList() (*ModuleList, error) {
	data, err := md.streamData(ModuleListStream)
	if err != nil {
		return nil, err
	}
	r := bytes.NewReader(data)
	var count uint32
	if err := binary.Read(r, md.order, &count); err != nil {
		return nil, md.streamErr(ModuleListStream, errors.Wrap(err, "module count"))
	}
	if count > md.opts.MaxModules {
		return nil, md.streamErr(ModuleListStream,
			errors.Errorf("module count %d exceeds limit %d", count, md.opts.MaxModules))
	}

	// Module identity derivation wants to know the platform; a dump
	// without system info still yields modules, just with weaker ids.
	var platform uint32
	if si, err := md.GetSystemInfo(); err == nil {
		platform = si.Raw.PlatformID
	}

	modules := make([]*Module, count)
	for i := range modules {
		var raw RawModule
		if err := binary.Read(r, md.order, &raw); err != nil {
			return nil, md.streamErr(ModuleListStream, errors.Wrapf(err, "module[%d]", i))
		}
		name, err := md.readString(uint64(raw.ModuleNameRVA))
		if err != nil {
			return nil, md.streamErr(ModuleListStream, errors.Wrapf(err, "module[%d] name", i))
		}
		m := &Module{Raw: raw, Name: name, order: md.order, platform: platform}
		if raw.CVRecord.DataSize > 0 {
			cv, err := md.readLocation(raw.CVRecord)
			if err != nil {
				return nil, md.streamErr(ModuleListStream,
					errors.Wrapf(err, "module[%d] CodeView record", i))
			}
			m.cv = cv
		}
		modules[i] = m
	}
	return &ModuleList{Modules: modules}, nil
}

// CodeFile returns the on-disk path of the module image.
func (m *Module) CodeFile() string { return m.Name }

// CodeIdentifier returns the identifier of the module image itself:
// timestamp+size on Windows, the ELF build id elsewhere when the record
// carries one.
func (m *Module) CodeIdentifier() string {
	switch m.platform {
	case osWin32NT, osWin32Windows, osWin32CE:
		return fmt.Sprintf("%08X%x", m.Raw.TimeDateStamp, m.Raw.SizeOfImage)
	}
	if sig, ok := m.cvSignature(); ok && sig == cvSignatureELF {
		return hex.EncodeToString(m.cv[4:])
	}
	return ""
}

// DebugFile returns the path of the file holding debug information.
func (m *Module) DebugFile() string {
	sig, ok := m.cvSignature()
	if !ok {
		return ""
	}
	switch sig {
	case cvSignaturePDB70:
		// u32 signature, GUID, u32 age, then a NUL-terminated filename.
		if len(m.cv) > 24 {
			return strings.TrimRight(string(m.cv[24:]), "\x00")
		}
	case cvSignatureELF:
		return m.Name
	}
	return ""
}

// DebugIdentifier returns the identifier that names this module's debug
// information: GUID+age for PDB records, the build id recast as a GUID
// with a zero age for ELF records.
func (m *Module) DebugIdentifier() string {
	sig, ok := m.cvSignature()
	if !ok {
		return ""
	}
	switch sig {
	case cvSignaturePDB70:
		if len(m.cv) < 24 {
			return ""
		}
		guid := guidFromBytes(m.cv[4:20], m.order)
		age := m.order.Uint32(m.cv[20:24])
		return fmt.Sprintf("%s%x", guid.compact(), age)
	case cvSignatureELF:
		id := make([]byte, 16)
		copy(id, m.cv[4:])
		return strings.ToUpper(hex.EncodeToString(id)) + "0"
	}
	return ""
}

func (m *Module) cvSignature() (uint32, bool) {
	if len(m.cv) < 4 {
		return 0, false
	}
	return m.order.Uint32(m.cv[0:4]), true
}

// Version returns the four-part file version, or "" when the module
// record has no populated version block.
func (m *Module) Version() string {
	vi := m.Raw.VersionInfo
	if vi.Signature != vsFixedFileInfoSignature {
		return ""
	}
	return fmt.Sprintf("%d.%d.%d.%d",
		vi.FileVersionHi>>16, vi.FileVersionHi&0xffff,
		vi.FileVersionLo>>16, vi.FileVersionLo&0xffff)
}

// Print writes every module record to w.
func (ml *ModuleList) Print(w io.Writer) {
	fmt.Fprintf(w, "MinidumpModuleList\n")
	fmt.Fprintf(w, "  module_count = %d\n\n", len(ml.Modules))
	for i, m := range ml.Modules {
		fmt.Fprintf(w, "module[%d]\n", i)
		fmt.Fprintf(w, "MDRawModule\n")
		fmt.Fprintf(w, "  base_of_image        = 0x%x\n", m.Raw.BaseOfImage)
		fmt.Fprintf(w, "  size_of_image        = 0x%x\n", m.Raw.SizeOfImage)
		fmt.Fprintf(w, "  checksum             = 0x%x\n", m.Raw.Checksum)
		fmt.Fprintf(w, "  time_date_stamp      = 0x%x %s\n", m.Raw.TimeDateStamp,
			formatTimestamp(m.Raw.TimeDateStamp))
		fmt.Fprintf(w, "  module_name_rva      = 0x%x\n", m.Raw.ModuleNameRVA)
		fmt.Fprintf(w, "  cv_record.data_size  = %d\n", m.Raw.CVRecord.DataSize)
		fmt.Fprintf(w, "  cv_record.rva        = 0x%x\n", m.Raw.CVRecord.RVA)
		fmt.Fprintf(w, "  (code_file)          = \"%s\"\n", m.CodeFile())
		fmt.Fprintf(w, "  (code_identifier)    = \"%s\"\n", m.CodeIdentifier())
		fmt.Fprintf(w, "  (debug_file)         = \"%s\"\n", m.DebugFile())
		fmt.Fprintf(w, "  (debug_identifier)   = \"%s\"\n", m.DebugIdentifier())
		if v := m.Version(); v != "" {
			fmt.Fprintf(w, "  (version)            = \"%s\"\n", v)
		}
		fmt.Fprintf(w, "\n")
	}
}
