package minidump

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/pkg/errors"
)

// BreakpadInfo is the decoded Breakpad info stream.
type BreakpadInfo struct {
	Raw RawBreakpadInfo
}

// GetBreakpadInfo decodes the Breakpad info stream. Only dumps written by
// Breakpad itself carry one.
func (md *Minidump) GetBreakpadInfo() (*BreakpadInfo, error) {
	data, err := md.streamData(BreakpadInfoStream)
	if err != nil {
		return nil, err
	}
	bi := &BreakpadInfo{}
	if err := binary.Read(bytes.NewReader(data), md.order, &bi.Raw); err != nil {
		return nil, md.streamErr(BreakpadInfoStream, errors.Wrap(err, "breakpad info record"))
	}
	return bi, nil
}

// Print writes the Breakpad info record to w. Fields without their
// validity bit set are shown as invalid rather than as stale zeros.
func (bi *BreakpadInfo) Print(w io.Writer) {
	r := bi.Raw
	fmt.Fprintf(w, "MDRawBreakpadInfo\n")
	fmt.Fprintf(w, "  validity             = 0x%x\n", r.Validity)
	if r.Validity&breakpadInfoDumpThreadID != 0 {
		fmt.Fprintf(w, "  dump_thread_id       = 0x%x\n", r.DumpThreadID)
	} else {
		fmt.Fprintf(w, "  dump_thread_id       = (invalid)\n")
	}
	if r.Validity&breakpadInfoRequestingThreadID != 0 {
		fmt.Fprintf(w, "  requesting_thread_id = 0x%x\n", r.RequestingThreadID)
	} else {
		fmt.Fprintf(w, "  requesting_thread_id = (invalid)\n")
	}
	fmt.Fprintf(w, "\n")
}

// Annotation is one key/value pair of a Crashpad simple annotation
// dictionary.
type Annotation struct {
	Key   string
	Value string
}

// CrashpadInfo is the decoded Crashpad info stream.
type CrashpadInfo struct {
	Version           uint32
	ReportID          GUID
	ClientID          GUID
	SimpleAnnotations []Annotation
}

// maxAnnotations bounds the simple annotation dictionary so a corrupt
// count cannot drive a huge allocation.
const maxAnnotations = 1024

// GetCrashpadInfo decodes the Crashpad info stream. Only dumps written by
// Crashpad carry one.
func (md *Minidump) GetCrashpadInfo() (*CrashpadInfo, error) {
	data, err := md.streamData(CrashpadInfoStream)
	if err != nil {
		return nil, err
	}
	var raw rawCrashpadInfo
	if err := binary.Read(bytes.NewReader(data), md.order, &raw); err != nil {
		return nil, md.streamErr(CrashpadInfoStream, errors.Wrap(err, "crashpad info record"))
	}
	ci := &CrashpadInfo{
		Version:  raw.Version,
		ReportID: raw.ReportID,
		ClientID: raw.ClientID,
	}
	if raw.SimpleAnnotations.DataSize > 0 {
		annotations, err := md.readSimpleAnnotations(raw.SimpleAnnotations)
		if err != nil {
			return nil, md.streamErr(CrashpadInfoStream, err)
		}
		ci.SimpleAnnotations = annotations
	}
	return ci, nil
}

// readSimpleAnnotations decodes a Crashpad simple string dictionary: a
// count followed by pairs of RVAs to UTF-8 strings.
func (md *Minidump) readSimpleAnnotations(loc LocationDescriptor) ([]Annotation, error) {
	data, err := md.readLocation(loc)
	if err != nil {
		return nil, errors.Wrap(err, "simple annotations")
	}
	r := bytes.NewReader(data)
	var count uint32
	if err := binary.Read(r, md.order, &count); err != nil {
		return nil, errors.Wrap(err, "annotation count")
	}
	if count > maxAnnotations {
		return nil, errors.Errorf("annotation count %d exceeds limit %d", count, maxAnnotations)
	}
	annotations := make([]Annotation, count)
	for i := range annotations {
		var keyRVA, valueRVA uint32
		if err := binary.Read(r, md.order, &keyRVA); err != nil {
			return nil, errors.Wrapf(err, "annotation[%d] key rva", i)
		}
		if err := binary.Read(r, md.order, &valueRVA); err != nil {
			return nil, errors.Wrapf(err, "annotation[%d] value rva", i)
		}
		key, err := md.readUTF8String(uint64(keyRVA))
		if err != nil {
			return nil, errors.Wrapf(err, "annotation[%d] key", i)
		}
		value, err := md.readUTF8String(uint64(valueRVA))
		if err != nil {
			return nil, errors.Wrapf(err, "annotation[%d] value", i)
		}
		annotations[i] = Annotation{Key: key, Value: value}
	}
	return annotations, nil
}

// Print writes the Crashpad info record to w.
func (ci *CrashpadInfo) Print(w io.Writer) {
	fmt.Fprintf(w, "MDRawCrashpadInfo\n")
	fmt.Fprintf(w, "  version   = %d\n", ci.Version)
	fmt.Fprintf(w, "  report_id = %s\n", ci.ReportID)
	fmt.Fprintf(w, "  client_id = %s\n", ci.ClientID)
	for _, a := range ci.SimpleAnnotations {
		fmt.Fprintf(w, "  simple_annotations[\"%s\"] = \"%s\"\n", a.Key, a.Value)
	}
	fmt.Fprintf(w, "\n")
}
