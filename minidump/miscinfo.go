package minidump

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/pkg/errors"
)

// MiscInfo is the decoded misc info stream. Fields past the first
// revision are zero unless the dump carries the larger record.
type MiscInfo struct {
	Raw RawMiscInfo
}

// GetMiscInfo decodes the misc info stream. The record has grown across
// format revisions; SizeOfInfo says how much of it is present.
func (md *Minidump) GetMiscInfo() (*MiscInfo, error) {
	data, err := md.streamData(MiscInfoStream)
	if err != nil {
		return nil, err
	}
	if len(data) < miscInfoSizeV1 {
		return nil, md.streamErr(MiscInfoStream,
			errors.Errorf("stream length %d below minimum %d", len(data), miscInfoSizeV1))
	}
	r := bytes.NewReader(data)
	mi := &MiscInfo{}
	v1 := []interface{}{
		&mi.Raw.SizeOfInfo, &mi.Raw.Flags1, &mi.Raw.ProcessID,
		&mi.Raw.ProcessCreateTime, &mi.Raw.ProcessUserTime, &mi.Raw.ProcessKernelTime,
	}
	for _, field := range v1 {
		if err := binary.Read(r, md.order, field); err != nil {
			return nil, md.streamErr(MiscInfoStream, errors.Wrap(err, "misc info record"))
		}
	}
	if mi.Raw.SizeOfInfo >= miscInfoSizeV2 && len(data) >= miscInfoSizeV2 {
		v2 := []interface{}{
			&mi.Raw.ProcessorMaxMhz, &mi.Raw.ProcessorCurrentMhz, &mi.Raw.ProcessorMhzLimit,
			&mi.Raw.ProcessorMaxIdle, &mi.Raw.ProcessorCurIdle,
		}
		for _, field := range v2 {
			if err := binary.Read(r, md.order, field); err != nil {
				return nil, md.streamErr(MiscInfoStream, errors.Wrap(err, "misc info v2 fields"))
			}
		}
	}
	return mi, nil
}

// Print writes the misc info record to w, showing only fields the dump's
// validity flags vouch for.
func (mi *MiscInfo) Print(w io.Writer) {
	r := mi.Raw
	fmt.Fprintf(w, "MDRawMiscInfo\n")
	fmt.Fprintf(w, "  size_of_info         = %d\n", r.SizeOfInfo)
	fmt.Fprintf(w, "  flags1               = 0x%x\n", r.Flags1)
	if r.Flags1&miscInfo1ProcessID != 0 {
		fmt.Fprintf(w, "  process_id           = %d\n", r.ProcessID)
	}
	if r.Flags1&miscInfo1ProcessTimes != 0 {
		fmt.Fprintf(w, "  process_create_time  = 0x%x %s\n", r.ProcessCreateTime,
			formatTimestamp(r.ProcessCreateTime))
		fmt.Fprintf(w, "  process_user_time    = %d\n", r.ProcessUserTime)
		fmt.Fprintf(w, "  process_kernel_time  = %d\n", r.ProcessKernelTime)
	}
	if r.SizeOfInfo >= miscInfoSizeV2 && r.Flags1&miscInfo1ProcessorPower != 0 {
		fmt.Fprintf(w, "  processor_max_mhz    = %d\n", r.ProcessorMaxMhz)
		fmt.Fprintf(w, "  processor_current_mhz = %d\n", r.ProcessorCurrentMhz)
		fmt.Fprintf(w, "  processor_mhz_limit  = %d\n", r.ProcessorMhzLimit)
	}
	fmt.Fprintf(w, "\n")
}
