package minidump

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/pkg/errors"
)

// MemoryList is the decoded memory list stream. It keeps a reference to
// its handle so region contents can be fetched lazily when printing.
type MemoryList struct {
	Regions []MemoryDescriptor

	md *Minidump
}

// GetMemoryList decodes the memory list stream.
func (md *Minidump) GetMemoryList() (*MemoryList, error) {
	data, err := md.streamData(MemoryListStream)
	if err != nil {
		return nil, err
	}
	r := bytes.NewReader(data)
	var count uint32
	if err := binary.Read(r, md.order, &count); err != nil {
		return nil, md.streamErr(MemoryListStream, errors.Wrap(err, "memory range count"))
	}
	if count > md.opts.MaxMemoryRanges {
		return nil, md.streamErr(MemoryListStream,
			errors.Errorf("memory range count %d exceeds limit %d", count, md.opts.MaxMemoryRanges))
	}
	regions := make([]MemoryDescriptor, count)
	if err := binary.Read(r, md.order, regions); err != nil {
		return nil, md.streamErr(MemoryListStream, errors.Wrap(err, "memory range entries"))
	}
	return &MemoryList{Regions: regions, md: md}, nil
}

// Print writes every memory range to w. When the handle was opened with
// the Hexdump option, each range's bytes follow its record in xxd-style
// rows.
func (ml *MemoryList) Print(w io.Writer) {
	fmt.Fprintf(w, "MinidumpMemoryList\n")
	fmt.Fprintf(w, "  region_count = %d\n\n", len(ml.Regions))
	for i, region := range ml.Regions {
		fmt.Fprintf(w, "region[%d]\n", i)
		fmt.Fprintf(w, "MDMemoryDescriptor\n")
		fmt.Fprintf(w, "  start_of_memory_range = 0x%x\n", region.StartOfMemoryRange)
		fmt.Fprintf(w, "  memory.data_size      = 0x%x\n", region.Memory.DataSize)
		fmt.Fprintf(w, "  memory.rva            = 0x%x\n", region.Memory.RVA)
		if ml.md.opts.Hexdump {
			if data, err := ml.md.readLocation(region.Memory); err == nil {
				fmt.Fprintf(w, "Memory\n")
				io.WriteString(w, hex.Dump(data))
			} else {
				fmt.Fprintf(w, "Memory (unreadable: %v)\n", err)
			}
		}
		fmt.Fprintf(w, "\n")
	}
}

// MemoryInfoList is the decoded memory info list stream.
type MemoryInfoList struct {
	Infos []RawMemoryInfo
}

// GetMemoryInfoList decodes the memory info list stream.
func (md *Minidump) GetMemoryInfoList() (*MemoryInfoList, error) {
	data, err := md.streamData(MemoryInfoListStream)
	if err != nil {
		return nil, err
	}
	r := bytes.NewReader(data)
	var header rawMemoryInfoList
	if err := binary.Read(r, md.order, &header); err != nil {
		return nil, md.streamErr(MemoryInfoListStream, errors.Wrap(err, "memory info header"))
	}
	if header.NumberOfEntries > uint64(md.opts.MaxMemoryRanges) {
		return nil, md.streamErr(MemoryInfoListStream,
			errors.Errorf("entry count %d exceeds limit %d",
				header.NumberOfEntries, md.opts.MaxMemoryRanges))
	}
	// Entries start right after the declared header size, which may be
	// larger than the fields this package knows about.
	if header.SizeOfHeader < 16 || int(header.SizeOfHeader) > len(data) {
		return nil, md.streamErr(MemoryInfoListStream,
			errors.Errorf("implausible header size %d", header.SizeOfHeader))
	}
	r = bytes.NewReader(data[header.SizeOfHeader:])
	infos := make([]RawMemoryInfo, header.NumberOfEntries)
	for i := range infos {
		if err := binary.Read(r, md.order, &infos[i]); err != nil {
			return nil, md.streamErr(MemoryInfoListStream, errors.Wrapf(err, "entry[%d]", i))
		}
		// Skip any trailing bytes a larger entry size declares.
		if extra := int64(header.SizeOfEntry) - 48; extra > 0 {
			if _, err := r.Seek(extra, io.SeekCurrent); err != nil {
				return nil, md.streamErr(MemoryInfoListStream, errors.Wrapf(err, "entry[%d] padding", i))
			}
		}
	}
	return &MemoryInfoList{Infos: infos}, nil
}

// Print writes every memory region record to w.
func (mil *MemoryInfoList) Print(w io.Writer) {
	fmt.Fprintf(w, "MinidumpMemoryInfoList\n")
	fmt.Fprintf(w, "  info_count = %d\n\n", len(mil.Infos))
	for i, info := range mil.Infos {
		fmt.Fprintf(w, "info[%d]\n", i)
		fmt.Fprintf(w, "MDRawMemoryInfo\n")
		fmt.Fprintf(w, "  base_address          = 0x%x\n", info.BaseAddress)
		fmt.Fprintf(w, "  allocation_base       = 0x%x\n", info.AllocationBase)
		fmt.Fprintf(w, "  allocation_protection = 0x%x\n", info.AllocationProtection)
		fmt.Fprintf(w, "  region_size           = 0x%x\n", info.RegionSize)
		fmt.Fprintf(w, "  state                 = 0x%x\n", info.State)
		fmt.Fprintf(w, "  protection            = 0x%x\n", info.Protection)
		fmt.Fprintf(w, "  type                  = 0x%x\n", info.Type)
		fmt.Fprintf(w, "\n")
	}
}
