package minidump

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/pkg/errors"

	mderrors "mddump/internal/errors"
)

// ThreadList is the decoded thread list stream.
type ThreadList struct {
	Threads []RawThread
}

// GetThreadList decodes the thread list stream. It returns
// ErrStreamNotFound if the dump has no thread list.
func (md *Minidump) GetThreadList() (*ThreadList, error) {
	data, err := md.streamData(ThreadListStream)
	if err != nil {
		return nil, err
	}
	r := bytes.NewReader(data)
	var count uint32
	if err := binary.Read(r, md.order, &count); err != nil {
		return nil, md.streamErr(ThreadListStream, errors.Wrap(err, "thread count"))
	}
	if count > md.opts.MaxThreads {
		return nil, md.streamErr(ThreadListStream,
			errors.Errorf("thread count %d exceeds limit %d", count, md.opts.MaxThreads))
	}
	threads := make([]RawThread, count)
	if err := binary.Read(r, md.order, threads); err != nil {
		return nil, md.streamErr(ThreadListStream, errors.Wrap(err, "thread entries"))
	}
	return &ThreadList{Threads: threads}, nil
}

// Print writes every thread record to w.
func (tl *ThreadList) Print(w io.Writer) {
	fmt.Fprintf(w, "MinidumpThreadList\n")
	fmt.Fprintf(w, "  thread_count = %d\n\n", len(tl.Threads))
	for i, t := range tl.Threads {
		fmt.Fprintf(w, "thread[%d]\n", i)
		fmt.Fprintf(w, "MDRawThread\n")
		fmt.Fprintf(w, "  thread_id                   = 0x%x\n", t.ThreadID)
		fmt.Fprintf(w, "  suspend_count               = %d\n", t.SuspendCount)
		fmt.Fprintf(w, "  priority_class              = 0x%x\n", t.PriorityClass)
		fmt.Fprintf(w, "  priority                    = 0x%x\n", t.Priority)
		fmt.Fprintf(w, "  teb                         = 0x%x\n", t.TEB)
		fmt.Fprintf(w, "  stack.start_of_memory_range = 0x%x\n", t.Stack.StartOfMemoryRange)
		fmt.Fprintf(w, "  stack.memory.data_size      = 0x%x\n", t.Stack.Memory.DataSize)
		fmt.Fprintf(w, "  stack.memory.rva            = 0x%x\n", t.Stack.Memory.RVA)
		fmt.Fprintf(w, "  thread_context.data_size    = 0x%x\n", t.ThreadContext.DataSize)
		fmt.Fprintf(w, "  thread_context.rva          = 0x%x\n", t.ThreadContext.RVA)
		fmt.Fprintf(w, "\n")
	}
}

// ThreadName pairs a thread id with its human-assigned name.
type ThreadName struct {
	ThreadID uint32
	Name     string
}

// ThreadNameList is the decoded thread names stream.
type ThreadNameList struct {
	Names []ThreadName
}

// GetThreadNameList decodes the thread names stream. The stream is
// optional; most dumps do not carry one.
func (md *Minidump) GetThreadNameList() (*ThreadNameList, error) {
	data, err := md.streamData(ThreadNamesStream)
	if err != nil {
		return nil, err
	}
	r := bytes.NewReader(data)
	var count uint32
	if err := binary.Read(r, md.order, &count); err != nil {
		return nil, md.streamErr(ThreadNamesStream, errors.Wrap(err, "thread name count"))
	}
	if count > md.opts.MaxThreads {
		return nil, md.streamErr(ThreadNamesStream,
			errors.Errorf("thread name count %d exceeds limit %d", count, md.opts.MaxThreads))
	}
	raw := make([]rawThreadName, count)
	if err := binary.Read(r, md.order, raw); err != nil {
		return nil, md.streamErr(ThreadNamesStream, errors.Wrap(err, "thread name entries"))
	}
	names := make([]ThreadName, count)
	for i, entry := range raw {
		name, err := md.readString(entry.NameRVA64)
		if err != nil {
			return nil, md.streamErr(ThreadNamesStream,
				errors.Wrapf(err, "name of thread 0x%x", entry.ThreadID))
		}
		names[i] = ThreadName{ThreadID: entry.ThreadID, Name: name}
	}
	return &ThreadNameList{Names: names}, nil
}

// Print writes every thread name record to w.
func (tn *ThreadNameList) Print(w io.Writer) {
	fmt.Fprintf(w, "MinidumpThreadNameList\n")
	fmt.Fprintf(w, "  name_count = %d\n\n", len(tn.Names))
	for i, n := range tn.Names {
		fmt.Fprintf(w, "thread_name[%d]\n", i)
		fmt.Fprintf(w, "MDRawThreadName\n")
		fmt.Fprintf(w, "  thread_id = 0x%x\n", n.ThreadID)
		fmt.Fprintf(w, "  name      = \"%s\"\n", n.Name)
		fmt.Fprintf(w, "\n")
	}
}

// streamErr wraps a decode failure with the stream's identity.
func (md *Minidump) streamErr(streamType uint32, err error) error {
	return &mderrors.StreamError{
		StreamType: streamType,
		Name:       StreamTypeName(streamType),
		Err:        err,
	}
}
